package dto

type AmbulanceTypeRequestDto struct {
	Name        *string  `json:"name" validate:"required,max=50"`
	BasePrice   *float64 `json:"base_price" validate:"required,gte=0"`
	PricePerKm  *float64 `json:"price_per_km" validate:"required,gte=0"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=255"`
}

type AmbulanceTypeDto struct {
	TypeID      string  `json:"type_id"`
	Name        string  `json:"name"`
	BasePrice   float64 `json:"base_price"`
	PricePerKm  float64 `json:"price_per_km"`
	Description string  `json:"description,omitempty"`
}

type AmbulanceRequestDto struct {
	TypeID      *string `json:"type_id" validate:"required"`
	PlateNumber *string `json:"plate_number" validate:"required,max=20"`
	DriverID    *string `json:"driver_id,omitempty"`
}

type AmbulanceUpdateDto struct {
	Status   *string `json:"status,omitempty" validate:"omitempty,oneof=available assigned en_route unavailable"`
	DriverID *string `json:"driver_id,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

type AmbulanceDto struct {
	AmbulanceID string   `json:"ambulance_id"`
	TypeID      string   `json:"type_id"`
	Status      string   `json:"status"`
	PlateNumber string   `json:"plate_number"`
	DriverID    *string  `json:"driver_id,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Active      bool     `json:"active"`
}

type FleetOverview struct {
	Timestamp         string            `json:"timestamp"`
	Metrics           MetricsParams     `json:"metrics"`
	FleetDistribution []TypeCountParams `json:"fleet_distribution"`
}

type MetricsParams struct {
	ActiveBookings        int     `json:"active_bookings"`
	AvailableAmbulances   int     `json:"available_ambulances"`
	AssignedAmbulances    int     `json:"assigned_ambulances"`
	TotalBookingsToday    int     `json:"total_bookings_today"`
	TotalRevenueToday     float32 `json:"total_revenue_today"`
	AverageFareToday      float32 `json:"average_fare_today"`
	CancellationRateToday float32 `json:"cancellation_rate_today"`
}

type TypeCountParams struct {
	TypeName string `json:"type_name"`
	Count    int    `json:"count"`
}

type ActiveBooking struct {
	BookingID     string  `json:"booking_id"`
	BookingNumber string  `json:"booking_number"`
	Status        string  `json:"status"`
	Kind          string  `json:"kind"`
	AmbulanceID   *string `json:"ambulance_id,omitempty"`
	PickupAddress string  `json:"pickup_address"`
	CreatedAt     string  `json:"created_at"`
}
