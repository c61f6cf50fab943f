package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"ambu-dispatch/internal/dispatch-service/core/domain/dto"
	"ambu-dispatch/internal/dispatch-service/core/domain/model"
	"ambu-dispatch/internal/dispatch-service/core/myerrors"
	"ambu-dispatch/internal/dispatch-service/core/ports"
)

type stateFixture struct {
	sm         ports.IBookingStateMachine
	dispatch   ports.IDispatchService
	ambulances *fakeAmbulanceRepo
	bookings   *fakeBookingRepo
	geo        *countingGeoIndex
	rt         *capturingPublisher
}

func newStateFixture(t *testing.T) *stateFixture {
	t.Helper()

	ambulances := newFakeAmbulanceRepo()
	ambulances.types["type-basic"] = basicType
	bookings := newFakeBookingRepo()
	geo := &countingGeoIndex{GeoIndex: NewGeoIndex()}
	rt := &capturingPublisher{}
	log := testLogger(t)

	return &stateFixture{
		sm:         NewBookingStateMachine(log, bookings, ambulances, geo, rt),
		dispatch:   NewDispatchService(log, ambulances, bookings, geo, &fakeBroker{}, rt),
		ambulances: ambulances,
		bookings:   bookings,
		geo:        geo,
		rt:         rt,
	}
}

func (fx *stateFixture) createAssigned(t *testing.T) (bookingID, ambulanceID string) {
	t.Helper()

	a := ambulanceAt("amb-1", 12.97, 77.59, model.AmbulanceAvailable)
	a.TypeID = "type-basic"
	fx.ambulances.put(a)
	if err := fx.geo.Upsert(context.Background(), a); err != nil {
		t.Fatalf("geo upsert: %v", err)
	}

	res, err := fx.dispatch.CreateBooking(context.Background(), emergencyRequest())
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return res.BookingID, "amb-1"
}

func TestTransitionLegalChain(t *testing.T) {
	fx := newStateFixture(t)
	bookingID, _ := fx.createAssigned(t)

	chain := []model.BookingStatus{
		model.BookingEnRoute,
		model.BookingArrived,
		model.BookingPickedUp,
		model.BookingInTransit,
		model.BookingCompleted,
	}

	for i, target := range chain {
		b, err := fx.sm.Transition(context.Background(), bookingID, target, dto.TransitionRequestDto{})
		if err != nil {
			t.Fatalf("step %d (%s): %v", i, target, err)
		}
		if b.Status != target {
			t.Fatalf("step %d: expected %s, got %s", i, target, b.Status)
		}

		updates, _ := fx.bookings.ListStatusUpdates(context.Background(), bookingID)
		// one initial update from creation plus one per transition
		if len(updates) != i+2 {
			t.Fatalf("step %d: expected %d status updates, got %d", i, i+2, len(updates))
		}
		if updates[len(updates)-1].Status != target {
			t.Fatalf("step %d: last update is %s", i, updates[len(updates)-1].Status)
		}
	}
}

func TestTransitionIllegal(t *testing.T) {
	fx := newStateFixture(t)
	bookingID, _ := fx.createAssigned(t)

	// confirmed only allows en_route and cancelled
	illegal := []model.BookingStatus{
		model.BookingPending,
		model.BookingConfirmed,
		model.BookingArrived,
		model.BookingPickedUp,
		model.BookingInTransit,
		model.BookingCompleted,
	}
	for _, target := range illegal {
		if _, err := fx.sm.Transition(context.Background(), bookingID, target, dto.TransitionRequestDto{}); !errors.Is(err, myerrors.ErrIllegalTransition) {
			t.Fatalf("confirmed -> %s: expected ErrIllegalTransition, got %v", target, err)
		}
	}

	t.Run("unknown status", func(t *testing.T) {
		if _, err := fx.sm.Transition(context.Background(), bookingID, "warped", dto.TransitionRequestDto{}); !errors.Is(err, myerrors.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("unknown booking", func(t *testing.T) {
		if _, err := fx.sm.Transition(context.Background(), "ghost", model.BookingCancelled, dto.TransitionRequestDto{}); !errors.Is(err, myerrors.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestTransitionTerminalReleasesAmbulance(t *testing.T) {
	t.Run("cancellation", func(t *testing.T) {
		fx := newStateFixture(t)
		bookingID, ambulanceID := fx.createAssigned(t)

		reason := "patient recovered"
		if _, err := fx.sm.Transition(context.Background(), bookingID, model.BookingCancelled, dto.TransitionRequestDto{Message: &reason}); err != nil {
			t.Fatalf("cancel: %v", err)
		}

		a, err := fx.ambulances.GetByID(context.Background(), ambulanceID)
		if err != nil {
			t.Fatalf("get ambulance: %v", err)
		}
		if a.Status != model.AmbulanceAvailable {
			t.Fatalf("ambulance not released, status %s", a.Status)
		}

		// and it is visible to the geo index again
		res, _ := fx.geo.GeoIndex.FindNearest(context.Background(), 12.97, 77.59, model.AmbulanceAvailable, 1)
		if len(res) != 1 || res[0].Ambulance.ID != ambulanceID {
			t.Fatalf("geo index still hides the ambulance: %+v", res)
		}
	})

	t.Run("completion records the actual fare", func(t *testing.T) {
		fx := newStateFixture(t)
		bookingID, ambulanceID := fx.createAssigned(t)

		for _, target := range []model.BookingStatus{model.BookingEnRoute, model.BookingArrived, model.BookingPickedUp, model.BookingInTransit} {
			if _, err := fx.sm.Transition(context.Background(), bookingID, target, dto.TransitionRequestDto{}); err != nil {
				t.Fatalf("%s: %v", target, err)
			}
		}

		fare := 745.0
		b, err := fx.sm.Transition(context.Background(), bookingID, model.BookingCompleted, dto.TransitionRequestDto{ActualFare: &fare})
		if err != nil {
			t.Fatalf("complete: %v", err)
		}
		if b.ActualFare == nil || *b.ActualFare != fare {
			t.Fatalf("actual fare not recorded: %+v", b.ActualFare)
		}

		a, _ := fx.ambulances.GetByID(context.Background(), ambulanceID)
		if a.Status != model.AmbulanceAvailable {
			t.Fatalf("ambulance not released on completion, status %s", a.Status)
		}
	})
}

func TestTerminalImmutability(t *testing.T) {
	fx := newStateFixture(t)
	bookingID, _ := fx.createAssigned(t)

	if _, err := fx.sm.Transition(context.Background(), bookingID, model.BookingCancelled, dto.TransitionRequestDto{}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	for _, target := range []model.BookingStatus{
		model.BookingConfirmed,
		model.BookingEnRoute,
		model.BookingCompleted,
		model.BookingCancelled,
	} {
		if _, err := fx.sm.Transition(context.Background(), bookingID, target, dto.TransitionRequestDto{}); !errors.Is(err, myerrors.ErrIllegalTransition) {
			t.Fatalf("cancelled -> %s: expected ErrIllegalTransition, got %v", target, err)
		}
	}

	updates, _ := fx.bookings.ListStatusUpdates(context.Background(), bookingID)
	// creation + cancellation, nothing from the rejected calls
	if len(updates) != 2 {
		t.Fatalf("rejected transitions appended updates: %d", len(updates))
	}
}

// A cancellation racing a driver update: both funnel through the same
// validator, the first terminal write wins and the loser gets a conflict.
func TestCancellationRace(t *testing.T) {
	fx := newStateFixture(t)
	bookingID, _ := fx.createAssigned(t)

	if _, err := fx.sm.Transition(context.Background(), bookingID, model.BookingCancelled, dto.TransitionRequestDto{}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := fx.sm.Transition(context.Background(), bookingID, model.BookingEnRoute, dto.TransitionRequestDto{}); !errors.Is(err, myerrors.ErrIllegalTransition) {
		t.Fatalf("late driver update should conflict, got %v", err)
	}
}

// barrierBookingRepo holds every GetByID until all expected readers arrived,
// so concurrent transitions validate against the same stale snapshot.
type barrierBookingRepo struct {
	*fakeBookingRepo
	readers *sync.WaitGroup
}

func (r *barrierBookingRepo) GetByID(ctx context.Context, id string) (model.Booking, error) {
	b, err := r.fakeBookingRepo.GetByID(ctx, id)
	r.readers.Done()
	r.readers.Wait()
	return b, err
}

// The cancellation and the driver update both read the booking as confirmed
// before either writes. The conditional status write lets exactly one land,
// the other fails with a conflict instead of overwriting the winner.
func TestCancellationRaceConcurrent(t *testing.T) {
	ambulances := newFakeAmbulanceRepo()
	ambulances.types["type-basic"] = basicType
	a := ambulanceAt("amb-1", 12.97, 77.59, model.AmbulanceAvailable)
	a.TypeID = "type-basic"
	ambulances.put(a)

	geo := NewGeoIndex()
	if err := geo.Upsert(context.Background(), a); err != nil {
		t.Fatalf("geo upsert: %v", err)
	}

	var readers sync.WaitGroup
	bookings := &barrierBookingRepo{fakeBookingRepo: newFakeBookingRepo(), readers: &readers}
	log := testLogger(t)
	rt := &capturingPublisher{}
	dispatch := NewDispatchService(log, ambulances, bookings, geo, &fakeBroker{}, rt)
	sm := NewBookingStateMachine(log, bookings, ambulances, geo, rt)

	res, err := dispatch.CreateBooking(context.Background(), emergencyRequest())
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}

	targets := []model.BookingStatus{model.BookingCancelled, model.BookingEnRoute}
	errs := make([]error, len(targets))
	readers.Add(len(targets))

	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target model.BookingStatus) {
			defer wg.Done()
			_, errs[i] = sm.Transition(context.Background(), res.BookingID, target, dto.TransitionRequestDto{})
		}(i, target)
	}
	wg.Wait()

	var winner *model.BookingStatus
	for i, target := range targets {
		switch {
		case errs[i] == nil:
			if winner != nil {
				t.Fatalf("both transitions landed from the same snapshot")
			}
			target := target
			winner = &target
		case errors.Is(errs[i], myerrors.ErrIllegalTransition):
		default:
			t.Fatalf("transition to %s: %v", target, errs[i])
		}
	}
	if winner == nil {
		t.Fatalf("no transition landed: %v", errs)
	}

	b, err := bookings.fakeBookingRepo.GetByID(context.Background(), res.BookingID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if b.Status != *winner {
		t.Fatalf("booking status %s, winner was %s", b.Status, *winner)
	}

	updates, _ := bookings.ListStatusUpdates(context.Background(), res.BookingID)
	// creation plus the winner, nothing from the conflicted call
	if len(updates) != 2 {
		t.Fatalf("expected 2 status updates, got %d", len(updates))
	}

	amb, _ := ambulances.GetByID(context.Background(), "amb-1")
	if *winner == model.BookingCancelled {
		if amb.Status != model.AmbulanceAvailable {
			t.Fatalf("cancellation won but ambulance stayed %s", amb.Status)
		}
	} else if amb.Status != model.AmbulanceAssigned {
		t.Fatalf("driver update won but ambulance became %s", amb.Status)
	}
}

func TestTransitionPublishesStatusChanged(t *testing.T) {
	fx := newStateFixture(t)
	bookingID, _ := fx.createAssigned(t)

	eta := 240
	if _, err := fx.sm.Transition(context.Background(), bookingID, model.BookingEnRoute, dto.TransitionRequestDto{EtaSeconds: &eta}); err != nil {
		t.Fatalf("transition: %v", err)
	}

	events := fx.rt.byType("status_changed")
	if len(events) != 1 {
		t.Fatalf("expected one status_changed event, got %d", len(events))
	}
	var payload struct {
		BookingID  string `json:"booking_id"`
		Status     string `json:"status"`
		EtaSeconds *int   `json:"eta_seconds"`
	}
	if err := json.Unmarshal(events[0].Data, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.BookingID != bookingID || payload.Status != string(model.BookingEnRoute) {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.EtaSeconds == nil || *payload.EtaSeconds != eta {
		t.Fatalf("eta context lost: %+v", payload.EtaSeconds)
	}
}
