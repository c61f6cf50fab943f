package websocketdto

import "encoding/json"

const (
	EventBookingCreated = "booking_created"
	EventStatusChanged  = "status_changed"
	EventLocationUpdate = "location_update"
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

type BookingCreatedDto struct {
	BookingID     string   `json:"booking_id"`
	BookingNumber string   `json:"booking_number"`
	Status        string   `json:"status"`
	Kind          string   `json:"kind"`
	AmbulanceID   *string  `json:"ambulance_id,omitempty"`
	Pickup        Location `json:"pickup"`
	EstimatedFare float64  `json:"estimated_fare"`
}

type StatusChangedDto struct {
	BookingID  string  `json:"booking_id"`
	Status     string  `json:"status"`
	Message    *string `json:"message,omitempty"`
	EtaSeconds *int    `json:"eta_seconds,omitempty"`
	Timestamp  string  `json:"timestamp"`
}

type LocationUpdateDto struct {
	BookingID        string   `json:"booking_id"`
	AmbulanceID      string   `json:"ambulance_id"`
	AmbulanceLocated Location `json:"ambulance_location"`
	DistanceKm       float64  `json:"distance_km"`
	EtaMinutes       int      `json:"eta_minutes"`
}

type AuthMessage struct {
	Token string `json:"token"`
}
