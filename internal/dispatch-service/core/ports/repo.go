package ports

import (
	"context"

	"ambu-dispatch/internal/dispatch-service/core/domain/model"
)

type IAmbulanceRepo interface {
	GetByID(ctx context.Context, id string) (model.Ambulance, error)
	GetType(ctx context.Context, typeID string) (model.AmbulanceType, error)

	// Reserve is the one conditional update the dispatch core depends on:
	// available -> assigned as a single compare-and-swap. It returns false,
	// without error, when the ambulance was no longer available.
	Reserve(ctx context.Context, id string) (bool, error)

	SetStatus(ctx context.Context, id string, status model.AmbulanceStatus) error
	SetDriver(ctx context.Context, id string, driverID *string) error
	UpdatePosition(ctx context.Context, id string, lat, lon float64) error
	ListActive(ctx context.Context) ([]model.Ambulance, error)
}

type IBookingRepo interface {
	Create(ctx context.Context, b model.Booking) (model.Booking, error)
	GetByID(ctx context.Context, id string) (model.Booking, error)
	// UpdateStatus writes the new status only while the row still holds from.
	// A caller that validated against a stale snapshot gets
	// myerrors.ErrIllegalTransition instead of clobbering the winner's write.
	UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus, actualFare *float64) error

	SetAmbulance(ctx context.Context, bookingID, ambulanceID string) error
	CountCreatedToday(ctx context.Context) (int64, error)

	// ActiveByAmbulance returns the single non-terminal booking referencing the
	// ambulance, or myerrors.ErrNotFound when there is none.
	ActiveByAmbulance(ctx context.Context, ambulanceID string) (model.Booking, error)

	AppendStatusUpdate(ctx context.Context, su model.StatusUpdate) error
	ListStatusUpdates(ctx context.Context, bookingID string) ([]model.StatusUpdate, error)
}
