package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ambu-dispatch/internal/dispatch-service/core/domain/model"
	"ambu-dispatch/internal/dispatch-service/core/myerrors"
	"ambu-dispatch/internal/dispatch-service/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type BookingRepo struct {
	db *DB
}

func NewBookingRepo(db *DB) ports.IBookingRepo {
	return &BookingRepo{db: db}
}

const bookingColumns = `
	booking_id, booking_number, requester_id, ambulance_id, type_id, kind,
	status, pickup_latitude, pickup_longitude, pickup_address,
	destination_latitude, destination_longitude, destination_address,
	hospital_id, patient_details, emergency_contact,
	estimated_fare, actual_fare, scheduled_at, created_at, updated_at`

func (br *BookingRepo) Create(ctx context.Context, b model.Booking) (model.Booking, error) {
	q := `
	INSERT INTO bookings(
		booking_id, booking_number, requester_id, ambulance_id, type_id, kind,
		status, pickup_latitude, pickup_longitude, pickup_address,
		destination_latitude, destination_longitude, destination_address,
		hospital_id, patient_details, emergency_contact,
		estimated_fare, scheduled_at, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`

	var destLat, destLon *float64
	var destAddr *string
	if b.Destination != nil {
		destLat = &b.Destination.Latitude
		destLon = &b.Destination.Longitude
		destAddr = &b.Destination.Address
	}

	_, err := br.db.pool.Exec(ctx, q,
		b.ID, b.Number, b.RequesterID, b.AmbulanceID, b.AmbulanceTypeID, b.Kind,
		b.Status, b.Pickup.Latitude, b.Pickup.Longitude, b.Pickup.Address,
		destLat, destLon, destAddr,
		b.HospitalID, b.PatientDetails, b.EmergencyContact,
		b.EstimatedFare, b.ScheduledAt, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		// the unique index on booking_number arbitrates concurrent creations
		// that counted the same day total
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "booking_number") { // unique_violation
			return model.Booking{}, fmt.Errorf("booking number %s: %w", b.Number, myerrors.ErrDuplicateBookingNumber)
		}
		return model.Booking{}, err
	}
	return b, nil
}

func (br *BookingRepo) GetByID(ctx context.Context, id string) (model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_id = $1`
	return br.scanBooking(br.db.pool.QueryRow(ctx, q, id), id)
}

// ActiveByAmbulance returns the one non-terminal booking holding the
// ambulance. The schema's partial unique index guarantees at most one.
func (br *BookingRepo) ActiveByAmbulance(ctx context.Context, ambulanceID string) (model.Booking, error) {
	q := `SELECT ` + bookingColumns + `
	FROM bookings
	WHERE ambulance_id = $1 AND status NOT IN ('completed', 'cancelled')`

	return br.scanBooking(br.db.pool.QueryRow(ctx, q, ambulanceID), ambulanceID)
}

func (br *BookingRepo) scanBooking(row pgx.Row, id string) (model.Booking, error) {
	var b model.Booking
	var destLat, destLon *float64
	var destAddr *string

	err := row.Scan(
		&b.ID, &b.Number, &b.RequesterID, &b.AmbulanceID, &b.AmbulanceTypeID, &b.Kind,
		&b.Status, &b.Pickup.Latitude, &b.Pickup.Longitude, &b.Pickup.Address,
		&destLat, &destLon, &destAddr,
		&b.HospitalID, &b.PatientDetails, &b.EmergencyContact,
		&b.EstimatedFare, &b.ActualFare, &b.ScheduledAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Booking{}, fmt.Errorf("booking %s: %w", id, myerrors.ErrNotFound)
		}
		return model.Booking{}, err
	}

	if destLat != nil && destLon != nil {
		b.Destination = &model.Coordinate{Latitude: *destLat, Longitude: *destLon}
		if destAddr != nil {
			b.Destination.Address = *destAddr
		}
	}
	return b, nil
}

// UpdateStatus is a compare-and-swap on the status column. Two transitions
// validated against the same snapshot race here, and only the first one lands.
func (br *BookingRepo) UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus, actualFare *float64) error {
	q := `
	UPDATE bookings
	SET status = $3, actual_fare = COALESCE($4, actual_fare), updated_at = now()
	WHERE booking_id = $1 AND status = $2`

	ct, err := br.db.pool.Exec(ctx, q, id, from, to, actualFare)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 0 {
		return nil
	}

	var current model.BookingStatus
	err = br.db.pool.QueryRow(ctx, `SELECT status FROM bookings WHERE booking_id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("booking %s: %w", id, myerrors.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%s -> %s: %w", current, to, myerrors.ErrIllegalTransition)
}

func (br *BookingRepo) SetAmbulance(ctx context.Context, bookingID, ambulanceID string) error {
	q := `UPDATE bookings SET ambulance_id = $2, updated_at = now() WHERE booking_id = $1`

	ct, err := br.db.pool.Exec(ctx, q, bookingID, ambulanceID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("booking %s: %w", bookingID, myerrors.ErrNotFound)
	}
	return nil
}

// CountCreatedToday feeds booking-number generation.
func (br *BookingRepo) CountCreatedToday(ctx context.Context) (int64, error) {
	q := `SELECT COUNT(*) FROM bookings WHERE created_at::date = current_date`

	var count int64
	if err := br.db.pool.QueryRow(ctx, q).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (br *BookingRepo) AppendStatusUpdate(ctx context.Context, su model.StatusUpdate) error {
	q := `
	INSERT INTO status_updates(
		update_id, booking_id, status, message, latitude, longitude, eta_seconds, created_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err := br.db.pool.Exec(ctx, q,
		su.ID, su.BookingID, su.Status, su.Message,
		su.Latitude, su.Longitude, su.EtaSeconds, su.CreatedAt,
	)
	return err
}

func (br *BookingRepo) ListStatusUpdates(ctx context.Context, bookingID string) ([]model.StatusUpdate, error) {
	q := `
	SELECT update_id, booking_id, status, message, latitude, longitude, eta_seconds, created_at
	FROM status_updates
	WHERE booking_id = $1
	ORDER BY created_at, update_id`

	rows, err := br.db.pool.Query(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []model.StatusUpdate
	for rows.Next() {
		var su model.StatusUpdate
		if err := rows.Scan(
			&su.ID, &su.BookingID, &su.Status, &su.Message,
			&su.Latitude, &su.Longitude, &su.EtaSeconds, &su.CreatedAt,
		); err != nil {
			return nil, err
		}
		res = append(res, su)
	}
	return res, rows.Err()
}

// RebuildAvailability is the crash-recovery rule: the status-update log and
// booking table are the source of truth, an ambulance is free when no
// non-terminal booking references it.
func (br *BookingRepo) RebuildAvailability(ctx context.Context) (int64, error) {
	q := `
	UPDATE ambulances a
	SET status = 'available', updated_at = now()
	WHERE a.status IN ('assigned', 'en_route')
	  AND NOT EXISTS (
		SELECT 1 FROM bookings b
		WHERE b.ambulance_id = a.ambulance_id
		  AND b.status NOT IN ('completed', 'cancelled')
	  )`

	ct, err := br.db.pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
