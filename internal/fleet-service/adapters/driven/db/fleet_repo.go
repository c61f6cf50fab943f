package db

import (
	"context"
	"errors"
	"fmt"

	"ambu-dispatch/internal/dispatch-service/core/myerrors"
	"ambu-dispatch/internal/fleet-service/core/domain/dto"
	"ambu-dispatch/internal/fleet-service/core/ports"

	"github.com/jackc/pgx/v5"
)

type FleetRepo struct {
	db ports.IDB
}

func NewFleetRepo(db ports.IDB) *FleetRepo {
	return &FleetRepo{db: db}
}

func (fr *FleetRepo) CreateAmbulanceType(ctx context.Context, t dto.AmbulanceTypeDto) error {
	q := `
	INSERT INTO ambulance_types(type_id, name, base_price, price_per_km, description)
	VALUES ($1, $2, $3, $4, $5)`

	_, err := fr.db.GetConn().Exec(ctx, q, t.TypeID, t.Name, t.BasePrice, t.PricePerKm, t.Description)
	if err != nil {
		return fmt.Errorf("failed to insert ambulance type: %v", err)
	}
	return nil
}

func (fr *FleetRepo) ListAmbulanceTypes(ctx context.Context) ([]dto.AmbulanceTypeDto, error) {
	q := `SELECT type_id, name, base_price, price_per_km, COALESCE(description, '') FROM ambulance_types ORDER BY name`

	rows, err := fr.db.GetConn().Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query ambulance types: %v", err)
	}
	defer rows.Close()

	var types []dto.AmbulanceTypeDto
	for rows.Next() {
		var t dto.AmbulanceTypeDto
		if err := rows.Scan(&t.TypeID, &t.Name, &t.BasePrice, &t.PricePerKm, &t.Description); err != nil {
			return nil, fmt.Errorf("failed to scan ambulance type: %v", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (fr *FleetRepo) CreateAmbulance(ctx context.Context, a dto.AmbulanceDto) error {
	q := `
	INSERT INTO ambulances(ambulance_id, type_id, status, plate_number, driver_id, active, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, now(), now())`

	_, err := fr.db.GetConn().Exec(ctx, q, a.AmbulanceID, a.TypeID, a.Status, a.PlateNumber, a.DriverID, a.Active)
	if err != nil {
		return fmt.Errorf("failed to insert ambulance: %v", err)
	}
	return nil
}

func (fr *FleetRepo) UpdateAmbulance(ctx context.Context, ambulanceID string, upd dto.AmbulanceUpdateDto) error {
	q := `
	UPDATE ambulances
	SET status = COALESCE($2, status),
		driver_id = COALESCE($3, driver_id),
		active = COALESCE($4, active),
		updated_at = now()
	WHERE ambulance_id = $1`

	ct, err := fr.db.GetConn().Exec(ctx, q, ambulanceID, upd.Status, upd.DriverID, upd.Active)
	if err != nil {
		return fmt.Errorf("failed to update ambulance: %v", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("ambulance %s: %w", ambulanceID, myerrors.ErrNotFound)
	}
	return nil
}

func (fr *FleetRepo) ListAmbulances(ctx context.Context) ([]dto.AmbulanceDto, error) {
	q := `
	SELECT ambulance_id, type_id, status, plate_number, driver_id, latitude, longitude, active
	FROM ambulances
	ORDER BY plate_number`

	rows, err := fr.db.GetConn().Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query ambulances: %v", err)
	}
	defer rows.Close()

	var ambulances []dto.AmbulanceDto
	for rows.Next() {
		var a dto.AmbulanceDto
		if err := rows.Scan(&a.AmbulanceID, &a.TypeID, &a.Status, &a.PlateNumber, &a.DriverID, &a.Latitude, &a.Longitude, &a.Active); err != nil {
			return nil, fmt.Errorf("failed to scan ambulance: %v", err)
		}
		ambulances = append(ambulances, a)
	}
	return ambulances, rows.Err()
}

func (fr *FleetRepo) GetMetrics(ctx context.Context) (dto.MetricsParams, error) {
	var metrics dto.MetricsParams

	q1 := `
	SELECT
		COUNT(*) FILTER (WHERE status NOT IN ('completed', 'cancelled')) as active_bookings,
		COUNT(*) FILTER (WHERE created_at::date = current_date) as total_bookings_today,
		COALESCE(SUM(actual_fare) FILTER (WHERE status = 'completed' AND created_at::date = current_date), 0)::float as total_revenue_today,
		COALESCE(AVG(actual_fare) FILTER (WHERE status = 'completed' AND created_at::date = current_date), 0)::float as average_fare_today,
		CASE
			WHEN COUNT(*) FILTER (WHERE created_at::date = current_date) > 0 THEN
				COUNT(*) FILTER (WHERE status = 'cancelled' AND created_at::date = current_date)::float /
				COUNT(*) FILTER (WHERE created_at::date = current_date)::float
			ELSE 0
		END::float as cancellation_rate_today
	FROM bookings;
	`

	q2 := `
	SELECT
		COUNT(*) FILTER (WHERE status = 'available' AND active) as available_ambulances,
		COUNT(*) FILTER (WHERE status IN ('assigned', 'en_route') AND active) as assigned_ambulances
	FROM ambulances;
	`

	err := fr.db.GetConn().QueryRow(ctx, q1).Scan(
		&metrics.ActiveBookings,
		&metrics.TotalBookingsToday,
		&metrics.TotalRevenueToday,
		&metrics.AverageFareToday,
		&metrics.CancellationRateToday,
	)
	if err != nil {
		return dto.MetricsParams{}, fmt.Errorf("failed to get booking metrics: %v", err)
	}

	err = fr.db.GetConn().QueryRow(ctx, q2).Scan(
		&metrics.AvailableAmbulances,
		&metrics.AssignedAmbulances,
	)
	if err != nil {
		return dto.MetricsParams{}, fmt.Errorf("failed to get ambulance metrics: %v", err)
	}

	return metrics, nil
}

func (fr *FleetRepo) GetFleetDistribution(ctx context.Context) ([]dto.TypeCountParams, error) {
	q := `
	SELECT t.name, COUNT(a.ambulance_id) as ambulances
	FROM ambulance_types t
	LEFT JOIN ambulances a ON a.type_id = t.type_id AND a.active
	GROUP BY t.name
	ORDER BY t.name;
	`

	rows, err := fr.db.GetConn().Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query fleet distribution: %v", err)
	}
	defer rows.Close()

	var distribution []dto.TypeCountParams
	for rows.Next() {
		var tc dto.TypeCountParams
		if err := rows.Scan(&tc.TypeName, &tc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan fleet distribution: %v", err)
		}
		distribution = append(distribution, tc)
	}
	return distribution, rows.Err()
}

func (fr *FleetRepo) GetActiveBookings(ctx context.Context, page, pageSize int) (int, []dto.ActiveBooking, error) {
	var total int
	countQ := `SELECT COUNT(*) FROM bookings WHERE status NOT IN ('completed', 'cancelled')`
	if err := fr.db.GetConn().QueryRow(ctx, countQ).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("failed to count active bookings: %v", err)
	}

	q := `
	SELECT booking_id, booking_number, status, kind, ambulance_id, pickup_address, created_at::text
	FROM bookings
	WHERE status NOT IN ('completed', 'cancelled')
	ORDER BY created_at DESC
	LIMIT $1 OFFSET $2`

	rows, err := fr.db.GetConn().Query(ctx, q, pageSize, (page-1)*pageSize)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return total, nil, nil
		}
		return 0, nil, fmt.Errorf("failed to query active bookings: %v", err)
	}
	defer rows.Close()

	var bookings []dto.ActiveBooking
	for rows.Next() {
		var b dto.ActiveBooking
		if err := rows.Scan(&b.BookingID, &b.BookingNumber, &b.Status, &b.Kind, &b.AmbulanceID, &b.PickupAddress, &b.CreatedAt); err != nil {
			return 0, nil, fmt.Errorf("failed to scan active booking: %v", err)
		}
		bookings = append(bookings, b)
	}
	return total, bookings, rows.Err()
}
