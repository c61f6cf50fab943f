package model

import "time"

type AmbulanceStatus string

const (
	AmbulanceAvailable   AmbulanceStatus = "available"
	AmbulanceAssigned    AmbulanceStatus = "assigned"
	AmbulanceEnRoute     AmbulanceStatus = "en_route"
	AmbulanceUnavailable AmbulanceStatus = "unavailable"
)

type Ambulance struct {
	ID          string // uuid
	TypeID      string // uuid references ambulance_types(type_id)
	Status      AmbulanceStatus
	PlateNumber string
	DriverID    *string // uuid, nil until a driver takes the shift
	Latitude    *float64
	Longitude   *float64
	Active      bool // fleet never deletes, only deactivates
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasPosition reports whether the ambulance has sent at least one location report.
func (a Ambulance) HasPosition() bool {
	return a.Latitude != nil && a.Longitude != nil
}

type AmbulanceType struct {
	ID          string // uuid
	Name        string
	BasePrice   float64
	PricePerKm  float64
	Description string
}

// AmbulanceDistance is a geo query result: an ambulance together with its
// great-circle distance from the query point.
type AmbulanceDistance struct {
	Ambulance  Ambulance
	DistanceKm float64
}
