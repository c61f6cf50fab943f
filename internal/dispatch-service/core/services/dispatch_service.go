package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ambu-dispatch/internal/dispatch-service/core/domain/dto"
	"ambu-dispatch/internal/dispatch-service/core/domain/model"
	websocketdto "ambu-dispatch/internal/dispatch-service/core/domain/websocket_dto"
	"ambu-dispatch/internal/dispatch-service/core/myerrors"
	"ambu-dispatch/internal/dispatch-service/core/ports"
	"ambu-dispatch/internal/mylogger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// maxReserveAttempts bounds the reservation retry loop when competing
// emergencies race for the same ambulances.
const maxReserveAttempts = 3

// maxNumberAttempts bounds booking-number regeneration when concurrent
// creations collide on the same day counter.
const maxNumberAttempts = 3

var validate = validator.New()

type DispatchService struct {
	mylog      mylogger.Logger
	ambulances ports.IAmbulanceRepo
	bookings   ports.IBookingRepo
	geo        ports.IGeoIndex
	broker     ports.INotificationBroker
	rt         ports.IRealtimePublisher
}

func NewDispatchService(
	log mylogger.Logger,
	ambulances ports.IAmbulanceRepo,
	bookings ports.IBookingRepo,
	geo ports.IGeoIndex,
	broker ports.INotificationBroker,
	rt ports.IRealtimePublisher,
) ports.IDispatchService {
	return &DispatchService{
		mylog:      log,
		ambulances: ambulances,
		bookings:   bookings,
		geo:        geo,
		broker:     broker,
		rt:         rt,
	}
}

func (ds *DispatchService) CreateBooking(ctx context.Context, req dto.BookingRequestDto) (dto.BookingResponseDto, error) {
	log := ds.mylog.Action("CreateBooking")

	// all validation happens before any geo or storage call
	if err := validateBookingRequest(req); err != nil {
		return dto.BookingResponseDto{}, err
	}

	kind := model.BookingKind(*req.Kind)
	pickup := model.Coordinate{
		Latitude:  *req.PickupLatitude,
		Longitude: *req.PickupLongitude,
		Address:   *req.PickupAddress,
	}
	var destination *model.Coordinate
	if req.DestLatitude != nil && req.DestLongitude != nil {
		destination = &model.Coordinate{
			Latitude:  *req.DestLatitude,
			Longitude: *req.DestLongitude,
		}
		if req.DestAddress != nil {
			destination.Address = *req.DestAddress
		}
		if err := validateCoordinate(destination.Latitude, destination.Longitude); err != nil {
			return dto.BookingResponseDto{}, err
		}
	}

	typ, err := ds.ambulances.GetType(ctx, *req.AmbulanceTypeID)
	if err != nil {
		log.Error("cannot resolve ambulance type", err, "type_id", *req.AmbulanceTypeID)
		return dto.BookingResponseDto{}, err
	}

	// fare is computed before the reservation so its failure leaves nothing to
	// roll back
	fare, err := EstimateFare(typ, pickup, destination)
	if err != nil {
		return dto.BookingResponseDto{}, err
	}

	ambulance, err := ds.resolveAmbulance(ctx, req, kind, pickup)
	if err != nil {
		return dto.BookingResponseDto{}, err
	}

	// emergencies skip pending: auto-dispatch already happened
	status := model.BookingPending
	if ambulance != nil {
		status = model.BookingConfirmed
	}

	now := time.Now().UTC()
	b := model.Booking{
		ID:               uuid.New().String(),
		RequesterID:      *req.RequesterID,
		AmbulanceTypeID:  typ.ID,
		Kind:             kind,
		Status:           status,
		Pickup:           pickup,
		Destination:      destination,
		HospitalID:       req.HospitalID,
		PatientDetails:   req.PatientDetails,
		EmergencyContact: req.EmergencyContact,
		EstimatedFare:    fare,
		ScheduledAt:      req.ScheduledAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if ambulance != nil {
		b.AmbulanceID = &ambulance.ID
	}

	// until the booking row exists, nothing references the reserved ambulance,
	// so every failed exit here rolls the reservation back
	var created model.Booking
	for attempt := 1; ; attempt++ {
		number, err := ds.nextBookingNumber(ctx)
		if err != nil {
			log.Error("cannot build booking number", err)
			ds.rollbackReservation(ctx, ambulance)
			return dto.BookingResponseDto{}, err
		}
		b.Number = number

		created, err = ds.bookings.Create(ctx, b)
		if err == nil {
			break
		}
		if errors.Is(err, myerrors.ErrDuplicateBookingNumber) && attempt < maxNumberAttempts {
			// a concurrent creation counted the same day total, recount
			log.Debug("booking number collision", "booking_number", number)
			continue
		}
		log.Error("cannot persist booking", err)
		ds.rollbackReservation(ctx, ambulance)
		return dto.BookingResponseDto{}, err
	}

	msg := "booking created"
	su := model.StatusUpdate{
		ID:        uuid.New().String(),
		BookingID: created.ID,
		Status:    created.Status,
		Message:   &msg,
		CreatedAt: now,
	}
	if err := ds.bookings.AppendStatusUpdate(ctx, su); err != nil {
		log.Error("cannot append initial status update", err, "booking_id", created.ID)
		return dto.BookingResponseDto{}, err
	}

	ds.publishBookingCreated(ctx, created, ambulance)

	log.Info("booking created",
		"booking_id", created.ID,
		"booking_number", created.Number,
		"kind", string(created.Kind),
		"status", string(created.Status),
		"estimated_fare", created.EstimatedFare,
	)

	return toBookingResponse(created), nil
}

// resolveAmbulance reserves an ambulance for the new booking, or returns nil
// when a scheduled booking may stay pending.
func (ds *DispatchService) resolveAmbulance(ctx context.Context, req dto.BookingRequestDto, kind model.BookingKind, pickup model.Coordinate) (*model.Ambulance, error) {
	log := ds.mylog.Action("resolveAmbulance")

	// explicitly requested ambulance: a single CAS attempt
	if req.AmbulanceID != nil {
		ok, err := ds.ambulances.Reserve(ctx, *req.AmbulanceID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("ambulance %s: %w", *req.AmbulanceID, myerrors.ErrNoAvailableAmbulance)
		}
		a, err := ds.ambulances.GetByID(ctx, *req.AmbulanceID)
		if err != nil {
			return nil, err
		}
		ds.syncGeoStatus(ctx, a.ID, model.AmbulanceAssigned)
		return &a, nil
	}

	if kind != model.KindEmergency {
		// scheduled bookings are created pending and assigned by a later
		// allocation pass
		return nil, nil
	}

	candidates, err := ds.geo.FindNearest(ctx, pickup.Latitude, pickup.Longitude, model.AmbulanceAvailable, maxReserveAttempts)
	if err != nil {
		log.Error("nearest-ambulance query failed", err)
		return nil, err
	}

	for _, cand := range candidates {
		ok, err := ds.ambulances.Reserve(ctx, cand.Ambulance.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			// lost the race, try the next-nearest candidate
			log.Debug("reservation lost", "ambulance_id", cand.Ambulance.ID)
			continue
		}
		ds.syncGeoStatus(ctx, cand.Ambulance.ID, model.AmbulanceAssigned)
		a := cand.Ambulance
		a.Status = model.AmbulanceAssigned
		return &a, nil
	}

	return nil, myerrors.ErrNoAvailableAmbulance
}

func (ds *DispatchService) AssignAmbulance(ctx context.Context, bookingID, ambulanceID string) (dto.BookingResponseDto, error) {
	log := ds.mylog.Action("AssignAmbulance")

	b, err := ds.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return dto.BookingResponseDto{}, err
	}
	if b.Status != model.BookingPending {
		return dto.BookingResponseDto{}, fmt.Errorf("booking %s is %s: %w", b.ID, b.Status, myerrors.ErrIllegalTransition)
	}

	req := dto.BookingRequestDto{}
	if ambulanceID != "" {
		req.AmbulanceID = &ambulanceID
	}
	ambulance, err := ds.resolveAmbulance(ctx, req, model.KindEmergency, b.Pickup)
	if err != nil {
		return dto.BookingResponseDto{}, err
	}

	if err := ds.bookings.SetAmbulance(ctx, b.ID, ambulance.ID); err != nil {
		log.Error("cannot attach ambulance to booking", err, "booking_id", b.ID)
		ds.rollbackReservation(ctx, ambulance)
		return dto.BookingResponseDto{}, err
	}

	if err := ds.bookings.UpdateStatus(ctx, b.ID, model.BookingPending, model.BookingConfirmed, nil); err != nil {
		ds.rollbackReservation(ctx, ambulance)
		return dto.BookingResponseDto{}, err
	}

	msg := "ambulance assigned"
	su := model.StatusUpdate{
		ID:        uuid.New().String(),
		BookingID: b.ID,
		Status:    model.BookingConfirmed,
		Message:   &msg,
		CreatedAt: time.Now().UTC(),
	}
	if err := ds.bookings.AppendStatusUpdate(ctx, su); err != nil {
		return dto.BookingResponseDto{}, err
	}

	b.AmbulanceID = &ambulance.ID
	b.Status = model.BookingConfirmed

	ds.publishBookingCreated(ctx, b, ambulance)

	log.Info("pending booking assigned", "booking_id", b.ID, "ambulance_id", ambulance.ID)
	return toBookingResponse(b), nil
}

func (ds *DispatchService) FindNearbyAmbulances(ctx context.Context, lat, lon float64, k int) ([]dto.NearbyAmbulanceDto, error) {
	if err := validateCoordinate(lat, lon); err != nil {
		return nil, err
	}

	matches, err := ds.geo.FindNearest(ctx, lat, lon, model.AmbulanceAvailable, k)
	if err != nil {
		return nil, err
	}

	res := make([]dto.NearbyAmbulanceDto, 0, len(matches))
	for _, m := range matches {
		res = append(res, dto.NearbyAmbulanceDto{
			AmbulanceID: m.Ambulance.ID,
			TypeID:      m.Ambulance.TypeID,
			PlateNumber: m.Ambulance.PlateNumber,
			Latitude:    *m.Ambulance.Latitude,
			Longitude:   *m.Ambulance.Longitude,
			DistanceKm:  m.DistanceKm,
			EtaMinutes:  EstimateEtaMinutes(m.DistanceKm, 1.0),
		})
	}
	return res, nil
}

func (ds *DispatchService) ReportAmbulanceLocation(ctx context.Context, ambulanceID string, lat, lon float64) error {
	log := ds.mylog.Action("ReportAmbulanceLocation")

	if err := validateCoordinate(lat, lon); err != nil {
		return err
	}

	if err := ds.geo.UpdatePosition(ctx, ambulanceID, lat, lon); err != nil {
		return err
	}
	if err := ds.ambulances.UpdatePosition(ctx, ambulanceID, lat, lon); err != nil {
		return err
	}

	// a position report on an active booking recomputes the ETA for its
	// subscribers
	b, err := ds.bookings.ActiveByAmbulance(ctx, ambulanceID)
	if err != nil {
		if errors.Is(err, myerrors.ErrNotFound) {
			return nil
		}
		return err
	}

	target := b.Pickup
	if b.Status == model.BookingPickedUp || b.Status == model.BookingInTransit {
		if b.Destination != nil {
			target = *b.Destination
		}
	}
	distance := Haversine(lat, lon, target.Latitude, target.Longitude)

	payload, err := json.Marshal(websocketdto.LocationUpdateDto{
		BookingID:   b.ID,
		AmbulanceID: ambulanceID,
		AmbulanceLocated: websocketdto.Location{
			Lat: lat,
			Lng: lon,
		},
		DistanceKm: distance,
		EtaMinutes: EstimateEtaMinutes(distance, 1.0),
	})
	if err != nil {
		log.Error("cannot marshal location event", err, "booking_id", b.ID)
		return nil
	}

	ds.rt.Publish(b.ID, websocketdto.Event{
		Type: websocketdto.EventLocationUpdate,
		Data: payload,
	})
	return nil
}

func (ds *DispatchService) GetBooking(ctx context.Context, bookingID string) (dto.BookingDetailsDto, error) {
	b, err := ds.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return dto.BookingDetailsDto{}, err
	}

	updates, err := ds.bookings.ListStatusUpdates(ctx, b.ID)
	if err != nil {
		return dto.BookingDetailsDto{}, err
	}

	history := make([]dto.StatusUpdateDto, 0, len(updates))
	for _, su := range updates {
		history = append(history, dto.StatusUpdateDto{
			Status:     string(su.Status),
			Message:    su.Message,
			Latitude:   su.Latitude,
			Longitude:  su.Longitude,
			EtaSeconds: su.EtaSeconds,
			CreatedAt:  su.CreatedAt,
		})
	}

	return dto.BookingDetailsDto{
		BookingResponseDto: toBookingResponse(b),
		PickupAddress:      b.Pickup.Address,
		ActualFare:         b.ActualFare,
		History:            history,
	}, nil
}

// rollbackReservation frees an ambulance reserved for a booking whose
// persistence failed.
func (ds *DispatchService) rollbackReservation(ctx context.Context, ambulance *model.Ambulance) {
	if ambulance == nil {
		return
	}
	if err := ds.ambulances.SetStatus(ctx, ambulance.ID, model.AmbulanceAvailable); err != nil {
		ds.mylog.Error("cannot roll back reservation", err, "ambulance_id", ambulance.ID)
	}
	ds.syncGeoStatus(ctx, ambulance.ID, model.AmbulanceAvailable)
}

func (ds *DispatchService) syncGeoStatus(ctx context.Context, ambulanceID string, status model.AmbulanceStatus) {
	if err := ds.geo.SetStatus(ctx, ambulanceID, status); err != nil {
		ds.mylog.Warn("geo index out of sync", "ambulance_id", ambulanceID, "status", string(status))
	}
}

func (ds *DispatchService) nextBookingNumber(ctx context.Context) (string, error) {
	count, err := ds.bookings.CountCreatedToday(ctx)
	if err != nil {
		return "", err
	}
	now := time.Now()
	return fmt.Sprintf("AMB_%d%02d%02d_%03d", now.Year(), now.Month(), now.Day(), count+1), nil
}

func (ds *DispatchService) publishBookingCreated(ctx context.Context, b model.Booking, ambulance *model.Ambulance) {
	log := ds.mylog.Action("publishBookingCreated")

	payload, err := json.Marshal(websocketdto.BookingCreatedDto{
		BookingID:     b.ID,
		BookingNumber: b.Number,
		Status:        string(b.Status),
		Kind:          string(b.Kind),
		AmbulanceID:   b.AmbulanceID,
		Pickup: websocketdto.Location{
			Lat:     b.Pickup.Latitude,
			Lng:     b.Pickup.Longitude,
			Address: b.Pickup.Address,
		},
		EstimatedFare: b.EstimatedFare,
	})
	if err != nil {
		log.Error("cannot marshal booking event", err, "booking_id", b.ID)
		return
	}

	event := websocketdto.Event{
		Type: websocketdto.EventBookingCreated,
		Data: payload,
	}

	// requester topic; the assigned driver listens on the ambulance topic
	ds.rt.Publish(b.ID, event)
	if ambulance != nil {
		ds.rt.Publish("ambulance."+ambulance.ID, event)
	}

	// secondary concern: a failed notification never fails the booking
	if err := ds.broker.PublishBookingEvent(ctx, ports.RouteBookingCreated, event); err != nil {
		log.Error("cannot publish notification", err, "booking_id", b.ID)
	}
}

func toBookingResponse(b model.Booking) dto.BookingResponseDto {
	return dto.BookingResponseDto{
		BookingID:     b.ID,
		BookingNumber: b.Number,
		Status:        string(b.Status),
		Kind:          string(b.Kind),
		AmbulanceID:   b.AmbulanceID,
		EstimatedFare: b.EstimatedFare,
		ScheduledAt:   b.ScheduledAt,
		CreatedAt:     b.CreatedAt,
	}
}

func validateBookingRequest(req dto.BookingRequestDto) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%v: %w", err, myerrors.ErrValidation)
	}

	if err := validateCoordinate(*req.PickupLatitude, *req.PickupLongitude); err != nil {
		return err
	}

	if len(req.PatientDetails) == 0 || string(req.PatientDetails) == "null" {
		return fmt.Errorf("patient details required: %w", myerrors.ErrValidation)
	}

	switch model.BookingKind(*req.Kind) {
	case model.KindScheduled:
		if req.ScheduledAt == nil {
			return fmt.Errorf("scheduled booking requires scheduled_at: %w", myerrors.ErrValidation)
		}
		if !req.ScheduledAt.After(time.Now()) {
			return fmt.Errorf("scheduled_at must be in the future: %w", myerrors.ErrValidation)
		}
	case model.KindEmergency:
		if req.ScheduledAt != nil {
			return fmt.Errorf("emergency booking cannot be scheduled: %w", myerrors.ErrValidation)
		}
	}

	return nil
}
