package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ambu-dispatch/internal/dispatch-service/core/domain/dto"
	"ambu-dispatch/internal/dispatch-service/core/domain/model"
	websocketdto "ambu-dispatch/internal/dispatch-service/core/domain/websocket_dto"
	"ambu-dispatch/internal/dispatch-service/core/myerrors"
	"ambu-dispatch/internal/dispatch-service/core/ports"
	"ambu-dispatch/internal/mylogger"

	"github.com/google/uuid"
)

// BookingStateMachine drives every booking status change. A transition
// validates the successor table, releases the ambulance on terminal states,
// appends one immutable StatusUpdate and broadcasts the change. The
// StatusUpdate log stays the source of truth for recovery: availability is
// rebuildable from "no non-terminal booking references me".
type BookingStateMachine struct {
	mylog      mylogger.Logger
	bookings   ports.IBookingRepo
	ambulances ports.IAmbulanceRepo
	geo        ports.IGeoIndex
	rt         ports.IRealtimePublisher
}

func NewBookingStateMachine(
	log mylogger.Logger,
	bookings ports.IBookingRepo,
	ambulances ports.IAmbulanceRepo,
	geo ports.IGeoIndex,
	rt ports.IRealtimePublisher,
) ports.IBookingStateMachine {
	return &BookingStateMachine{
		mylog:      log,
		bookings:   bookings,
		ambulances: ambulances,
		geo:        geo,
		rt:         rt,
	}
}

func (sm *BookingStateMachine) Transition(ctx context.Context, bookingID string, target model.BookingStatus, tctx dto.TransitionRequestDto) (model.Booking, error) {
	log := sm.mylog.Action("Transition")

	if !target.Valid() {
		return model.Booking{}, fmt.Errorf("unknown status %q: %w", target, myerrors.ErrValidation)
	}

	b, err := sm.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}

	if !b.Status.CanTransitionTo(target) {
		return model.Booking{}, fmt.Errorf("%s -> %s: %w", b.Status, target, myerrors.ErrIllegalTransition)
	}

	var actualFare *float64
	if target == model.BookingCompleted {
		actualFare = tctx.ActualFare
	}

	// conditional on the status we validated against: a concurrent transition
	// that already moved the booking turns this into ErrIllegalTransition
	if err := sm.bookings.UpdateStatus(ctx, b.ID, b.Status, target, actualFare); err != nil {
		log.Error("cannot update booking status", err, "booking_id", b.ID)
		return model.Booking{}, err
	}

	// terminal states are the only path that frees a reserved ambulance,
	// besides the driver going offline
	if target.IsTerminal() && b.AmbulanceID != nil {
		if err := sm.releaseAmbulance(ctx, *b.AmbulanceID); err != nil {
			log.Error("cannot release ambulance", err, "ambulance_id", *b.AmbulanceID, "booking_id", b.ID)
			return model.Booking{}, err
		}
	}

	su := model.StatusUpdate{
		ID:         uuid.New().String(),
		BookingID:  b.ID,
		Status:     target,
		Message:    tctx.Message,
		Latitude:   tctx.Latitude,
		Longitude:  tctx.Longitude,
		EtaSeconds: tctx.EtaSeconds,
		CreatedAt:  time.Now().UTC(),
	}
	if err := sm.bookings.AppendStatusUpdate(ctx, su); err != nil {
		log.Error("cannot append status update", err, "booking_id", b.ID)
		return model.Booking{}, err
	}

	b.Status = target
	if actualFare != nil {
		b.ActualFare = actualFare
	}
	b.UpdatedAt = su.CreatedAt

	sm.publishStatusChanged(b, su)

	log.Info("booking status changed", "booking_id", b.ID, "status", string(target))
	return b, nil
}

func (sm *BookingStateMachine) releaseAmbulance(ctx context.Context, ambulanceID string) error {
	if err := sm.ambulances.SetStatus(ctx, ambulanceID, model.AmbulanceAvailable); err != nil {
		return err
	}
	return sm.geo.SetStatus(ctx, ambulanceID, model.AmbulanceAvailable)
}

func (sm *BookingStateMachine) publishStatusChanged(b model.Booking, su model.StatusUpdate) {
	payload, err := json.Marshal(websocketdto.StatusChangedDto{
		BookingID:  b.ID,
		Status:     string(su.Status),
		Message:    su.Message,
		EtaSeconds: su.EtaSeconds,
		Timestamp:  su.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		sm.mylog.Error("cannot marshal status event", err, "booking_id", b.ID)
		return
	}

	sm.rt.Publish(b.ID, websocketdto.Event{
		Type: websocketdto.EventStatusChanged,
		Data: payload,
	})
}
