package ports

import (
	"context"

	"ambu-dispatch/internal/dispatch-service/core/domain/model"
)

// IGeoIndex answers nearest-ambulance queries. Backed either by the in-memory
// index in core/services or by the Redis GEO adapter.
type IGeoIndex interface {
	// Upsert registers or refreshes an ambulance in the index.
	Upsert(ctx context.Context, a model.Ambulance) error

	// UpdatePosition overwrites the stored position. Fails with
	// myerrors.ErrNotFound on unknown id.
	UpdatePosition(ctx context.Context, ambulanceID string, lat, lon float64) error

	SetStatus(ctx context.Context, ambulanceID string, status model.AmbulanceStatus) error
	Remove(ctx context.Context, ambulanceID string) error

	// FindNearest returns up to k ambulances matching status, ascending by
	// great-circle distance from (lat, lon), ties broken by id ascending.
	// An empty result is not an error.
	FindNearest(ctx context.Context, lat, lon float64, status model.AmbulanceStatus, k int) ([]model.AmbulanceDistance, error)
}
