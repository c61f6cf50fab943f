package model

import (
	"encoding/json"
	"time"
)

type BookingKind string

const (
	KindEmergency BookingKind = "emergency"
	KindScheduled BookingKind = "scheduled"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingEnRoute   BookingStatus = "en_route"
	BookingArrived   BookingStatus = "arrived"
	BookingPickedUp  BookingStatus = "picked_up"
	BookingInTransit BookingStatus = "in_transit"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// successors is the single transition table. Every non-terminal status may be
// cancelled; completed and cancelled have no successors.
var successors = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingEnRoute, BookingCancelled},
	BookingEnRoute:   {BookingArrived, BookingCancelled},
	BookingArrived:   {BookingPickedUp, BookingCancelled},
	BookingPickedUp:  {BookingInTransit, BookingCancelled},
	BookingInTransit: {BookingCompleted, BookingCancelled},
	BookingCompleted: {},
	BookingCancelled: {},
}

func (s BookingStatus) Valid() bool {
	_, ok := successors[s]
	return ok
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

// CanTransitionTo reports whether target is a legal successor of s.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, next := range successors[s] {
		if next == target {
			return true
		}
	}
	return false
}

type Coordinate struct {
	Latitude  float64
	Longitude float64
	Address   string
}

type Booking struct {
	ID               string // uuid
	Number           string // human readable, AMB_YYYYMMDD_NNN
	RequesterID      string // uuid
	AmbulanceID      *string
	AmbulanceTypeID  string
	Kind             BookingKind
	Status           BookingStatus
	Pickup           Coordinate
	Destination      *Coordinate
	HospitalID       *string
	PatientDetails   json.RawMessage // opaque to the dispatch core
	EmergencyContact *string
	EstimatedFare    float64
	ActualFare       *float64
	ScheduledAt      *time.Time // scheduled kind only, strictly in the future
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
