package ports

import (
	"context"

	"ambu-dispatch/internal/fleet-service/core/domain/dto"

	"github.com/jackc/pgx/v5"
)

type IDB interface {
	GetConn() *pgx.Conn
	IsAlive() error
	Close() error
}

type IFleetRepo interface {
	CreateAmbulanceType(ctx context.Context, t dto.AmbulanceTypeDto) error
	ListAmbulanceTypes(ctx context.Context) ([]dto.AmbulanceTypeDto, error)

	CreateAmbulance(ctx context.Context, a dto.AmbulanceDto) error
	UpdateAmbulance(ctx context.Context, ambulanceID string, upd dto.AmbulanceUpdateDto) error
	ListAmbulances(ctx context.Context) ([]dto.AmbulanceDto, error)

	GetMetrics(ctx context.Context) (dto.MetricsParams, error)
	GetFleetDistribution(ctx context.Context) ([]dto.TypeCountParams, error)
	GetActiveBookings(ctx context.Context, page, pageSize int) (int, []dto.ActiveBooking, error)
}
