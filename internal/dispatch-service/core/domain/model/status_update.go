package model

import "time"

// StatusUpdate is one row of the append-only audit trail. Availability of the
// fleet is rebuildable from this log: an ambulance is free when no non-terminal
// booking references it.
type StatusUpdate struct {
	ID         string // uuid
	BookingID  string
	Status     BookingStatus
	Message    *string
	Latitude   *float64
	Longitude  *float64
	EtaSeconds *int
	CreatedAt  time.Time
}

type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDriver  Role = "DRIVER"
	RoleAdmin   Role = "ADMIN"
)
