package dto

import (
	"encoding/json"
	"time"
)

type BookingRequestDto struct {
	RequesterID      *string         `json:"requester_id" validate:"required"`
	Kind             *string         `json:"kind" validate:"required,oneof=emergency scheduled"`
	AmbulanceTypeID  *string         `json:"ambulance_type_id" validate:"required"`
	AmbulanceID      *string         `json:"ambulance_id,omitempty"`
	PickupLatitude   *float64        `json:"pickup_latitude" validate:"required"`
	PickupLongitude  *float64        `json:"pickup_longitude" validate:"required"`
	PickupAddress    *string         `json:"pickup_address" validate:"required,max=255"`
	DestLatitude     *float64        `json:"destination_latitude,omitempty"`
	DestLongitude    *float64        `json:"destination_longitude,omitempty"`
	DestAddress      *string         `json:"destination_address,omitempty" validate:"omitempty,max=255"`
	HospitalID       *string         `json:"hospital_id,omitempty"`
	PatientDetails   json.RawMessage `json:"patient_details" validate:"required"`
	EmergencyContact *string         `json:"emergency_contact,omitempty"`
	ScheduledAt      *time.Time      `json:"scheduled_at,omitempty"`
}

type BookingResponseDto struct {
	BookingID     string     `json:"booking_id"`
	BookingNumber string     `json:"booking_number"`
	Status        string     `json:"status"`
	Kind          string     `json:"kind"`
	AmbulanceID   *string    `json:"ambulance_id,omitempty"`
	EstimatedFare float64    `json:"estimated_fare"`
	ScheduledAt   *time.Time `json:"scheduled_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type StatusUpdateDto struct {
	Status     string    `json:"status"`
	Message    *string   `json:"message,omitempty"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	EtaSeconds *int      `json:"eta_seconds,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type BookingDetailsDto struct {
	BookingResponseDto
	PickupAddress string            `json:"pickup_address"`
	ActualFare    *float64          `json:"actual_fare,omitempty"`
	History       []StatusUpdateDto `json:"history"`
}

// TransitionRequestDto carries the optional context a driver may attach to a
// status change.
type TransitionRequestDto struct {
	Status     *string  `json:"status" validate:"required"`
	Message    *string  `json:"message,omitempty" validate:"omitempty,max=255"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	EtaSeconds *int     `json:"eta_seconds,omitempty"`
	ActualFare *float64 `json:"actual_fare,omitempty"`
}

type CancelRequestDto struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=255"`
}

type AssignRequestDto struct {
	AmbulanceID *string `json:"ambulance_id,omitempty"`
}

type LocationReportDto struct {
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
}

type NearbyAmbulanceDto struct {
	AmbulanceID string  `json:"ambulance_id"`
	TypeID      string  `json:"type_id"`
	PlateNumber string  `json:"plate_number"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DistanceKm  float64 `json:"distance_km"`
	EtaMinutes  int     `json:"eta_minutes"`
}
