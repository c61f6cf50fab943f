package db

import (
	"context"
	"errors"
	"fmt"

	"ambu-dispatch/internal/dispatch-service/core/domain/model"
	"ambu-dispatch/internal/dispatch-service/core/myerrors"
	"ambu-dispatch/internal/dispatch-service/core/ports"

	"github.com/jackc/pgx/v5"
)

type AmbulanceRepo struct {
	db *DB
}

func NewAmbulanceRepo(db *DB) ports.IAmbulanceRepo {
	return &AmbulanceRepo{db: db}
}

func (ar *AmbulanceRepo) GetByID(ctx context.Context, id string) (model.Ambulance, error) {
	q := `
	SELECT
		ambulance_id, type_id, status, plate_number, driver_id,
		latitude, longitude, active, created_at, updated_at
	FROM ambulances
	WHERE ambulance_id = $1`

	var a model.Ambulance
	err := ar.db.pool.QueryRow(ctx, q, id).Scan(
		&a.ID, &a.TypeID, &a.Status, &a.PlateNumber, &a.DriverID,
		&a.Latitude, &a.Longitude, &a.Active, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Ambulance{}, fmt.Errorf("ambulance %s: %w", id, myerrors.ErrNotFound)
		}
		return model.Ambulance{}, err
	}
	return a, nil
}

func (ar *AmbulanceRepo) GetType(ctx context.Context, typeID string) (model.AmbulanceType, error) {
	q := `
	SELECT type_id, name, base_price, price_per_km, description
	FROM ambulance_types
	WHERE type_id = $1`

	var t model.AmbulanceType
	err := ar.db.pool.QueryRow(ctx, q, typeID).Scan(
		&t.ID, &t.Name, &t.BasePrice, &t.PricePerKm, &t.Description,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.AmbulanceType{}, fmt.Errorf("ambulance type %s: %w", typeID, myerrors.ErrNotFound)
		}
		return model.AmbulanceType{}, err
	}
	return t, nil
}

// Reserve is the reservation CAS: one conditional update, no surrounding
// read. RowsAffected == 0 means the ambulance was no longer available and the
// caller lost the race.
func (ar *AmbulanceRepo) Reserve(ctx context.Context, id string) (bool, error) {
	q := `
	UPDATE ambulances
	SET status = 'assigned', updated_at = now()
	WHERE ambulance_id = $1 AND status = 'available' AND active`

	ct, err := ar.db.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (ar *AmbulanceRepo) SetStatus(ctx context.Context, id string, status model.AmbulanceStatus) error {
	q := `UPDATE ambulances SET status = $2, updated_at = now() WHERE ambulance_id = $1`

	ct, err := ar.db.pool.Exec(ctx, q, id, status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("ambulance %s: %w", id, myerrors.ErrNotFound)
	}
	return nil
}

func (ar *AmbulanceRepo) SetDriver(ctx context.Context, id string, driverID *string) error {
	q := `UPDATE ambulances SET driver_id = $2, updated_at = now() WHERE ambulance_id = $1`

	ct, err := ar.db.pool.Exec(ctx, q, id, driverID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("ambulance %s: %w", id, myerrors.ErrNotFound)
	}
	return nil
}

func (ar *AmbulanceRepo) UpdatePosition(ctx context.Context, id string, lat, lon float64) error {
	q := `
	UPDATE ambulances
	SET latitude = $2, longitude = $3, updated_at = now()
	WHERE ambulance_id = $1`

	ct, err := ar.db.pool.Exec(ctx, q, id, lat, lon)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("ambulance %s: %w", id, myerrors.ErrNotFound)
	}
	return nil
}

func (ar *AmbulanceRepo) ListActive(ctx context.Context) ([]model.Ambulance, error) {
	q := `
	SELECT
		ambulance_id, type_id, status, plate_number, driver_id,
		latitude, longitude, active, created_at, updated_at
	FROM ambulances
	WHERE active
	ORDER BY ambulance_id`

	rows, err := ar.db.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []model.Ambulance
	for rows.Next() {
		var a model.Ambulance
		if err := rows.Scan(
			&a.ID, &a.TypeID, &a.Status, &a.PlateNumber, &a.DriverID,
			&a.Latitude, &a.Longitude, &a.Active, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}
