package ports

import (
	"context"

	"ambu-dispatch/internal/dispatch-service/core/domain/dto"
	"ambu-dispatch/internal/dispatch-service/core/domain/model"
)

type IDispatchService interface {
	CreateBooking(ctx context.Context, req dto.BookingRequestDto) (dto.BookingResponseDto, error)

	// AssignAmbulance is the late allocation path for pending scheduled
	// bookings. With an empty ambulanceID the nearest available one is taken.
	AssignAmbulance(ctx context.Context, bookingID, ambulanceID string) (dto.BookingResponseDto, error)

	FindNearbyAmbulances(ctx context.Context, lat, lon float64, k int) ([]dto.NearbyAmbulanceDto, error)
	ReportAmbulanceLocation(ctx context.Context, ambulanceID string, lat, lon float64) error
	GetBooking(ctx context.Context, bookingID string) (dto.BookingDetailsDto, error)
}

type IBookingStateMachine interface {
	Transition(ctx context.Context, bookingID string, target model.BookingStatus, tctx dto.TransitionRequestDto) (model.Booking, error)
}
