package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ambu-dispatch/internal/dispatch-service/core/domain/model"
	websocketdto "ambu-dispatch/internal/dispatch-service/core/domain/websocket_dto"
	"ambu-dispatch/internal/dispatch-service/core/myerrors"
	"ambu-dispatch/internal/mylogger"
)

func testLogger(t interface{ Fatalf(string, ...any) }) mylogger.Logger {
	log, err := mylogger.New(mylogger.LevelError)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

// fakeAmbulanceRepo is an in-memory IAmbulanceRepo with a mutex-guarded CAS,
// the same contract the SQL adapter provides with a conditional UPDATE.
type fakeAmbulanceRepo struct {
	mu         sync.Mutex
	ambulances map[string]model.Ambulance
	types      map[string]model.AmbulanceType
}

func newFakeAmbulanceRepo() *fakeAmbulanceRepo {
	return &fakeAmbulanceRepo{
		ambulances: make(map[string]model.Ambulance),
		types:      make(map[string]model.AmbulanceType),
	}
}

func (f *fakeAmbulanceRepo) put(a model.Ambulance) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ambulances[a.ID] = a
}

func (f *fakeAmbulanceRepo) GetByID(_ context.Context, id string) (model.Ambulance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.ambulances[id]
	if !ok {
		return model.Ambulance{}, fmt.Errorf("ambulance %s: %w", id, myerrors.ErrNotFound)
	}
	return a, nil
}

func (f *fakeAmbulanceRepo) GetType(_ context.Context, typeID string) (model.AmbulanceType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	typ, ok := f.types[typeID]
	if !ok {
		return model.AmbulanceType{}, fmt.Errorf("ambulance type %s: %w", typeID, myerrors.ErrNotFound)
	}
	return typ, nil
}

func (f *fakeAmbulanceRepo) Reserve(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.ambulances[id]
	if !ok {
		return false, fmt.Errorf("ambulance %s: %w", id, myerrors.ErrNotFound)
	}
	if a.Status != model.AmbulanceAvailable {
		return false, nil
	}
	a.Status = model.AmbulanceAssigned
	f.ambulances[id] = a
	return true, nil
}

func (f *fakeAmbulanceRepo) SetStatus(_ context.Context, id string, status model.AmbulanceStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.ambulances[id]
	if !ok {
		return fmt.Errorf("ambulance %s: %w", id, myerrors.ErrNotFound)
	}
	a.Status = status
	f.ambulances[id] = a
	return nil
}

func (f *fakeAmbulanceRepo) SetDriver(_ context.Context, id string, driverID *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.ambulances[id]
	if !ok {
		return fmt.Errorf("ambulance %s: %w", id, myerrors.ErrNotFound)
	}
	a.DriverID = driverID
	f.ambulances[id] = a
	return nil
}

func (f *fakeAmbulanceRepo) UpdatePosition(_ context.Context, id string, lat, lon float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.ambulances[id]
	if !ok {
		return fmt.Errorf("ambulance %s: %w", id, myerrors.ErrNotFound)
	}
	a.Latitude = &lat
	a.Longitude = &lon
	f.ambulances[id] = a
	return nil
}

func (f *fakeAmbulanceRepo) ListActive(_ context.Context) ([]model.Ambulance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []model.Ambulance
	for _, a := range f.ambulances {
		if a.Active {
			res = append(res, a)
		}
	}
	return res, nil
}

type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]model.Booking
	updates  map[string][]model.StatusUpdate
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{
		bookings: make(map[string]model.Booking),
		updates:  make(map[string][]model.StatusUpdate),
	}
}

func (f *fakeBookingRepo) Create(_ context.Context, b model.Booking) (model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings[b.ID] = b
	return b, nil
}

func (f *fakeBookingRepo) GetByID(_ context.Context, id string) (model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return model.Booking{}, fmt.Errorf("booking %s: %w", id, myerrors.ErrNotFound)
	}
	return b, nil
}

// UpdateStatus keeps the SQL adapter's compare-and-swap contract: the write
// lands only while the row still holds from.
func (f *fakeBookingRepo) UpdateStatus(_ context.Context, id string, from, to model.BookingStatus, actualFare *float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return fmt.Errorf("booking %s: %w", id, myerrors.ErrNotFound)
	}
	if b.Status != from {
		return fmt.Errorf("%s -> %s: %w", b.Status, to, myerrors.ErrIllegalTransition)
	}
	b.Status = to
	if actualFare != nil {
		b.ActualFare = actualFare
	}
	b.UpdatedAt = time.Now().UTC()
	f.bookings[id] = b
	return nil
}

func (f *fakeBookingRepo) SetAmbulance(_ context.Context, bookingID, ambulanceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[bookingID]
	if !ok {
		return fmt.Errorf("booking %s: %w", bookingID, myerrors.ErrNotFound)
	}
	b.AmbulanceID = &ambulanceID
	f.bookings[bookingID] = b
	return nil
}

func (f *fakeBookingRepo) CountCreatedToday(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.bookings)), nil
}

func (f *fakeBookingRepo) ActiveByAmbulance(_ context.Context, ambulanceID string) (model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.AmbulanceID != nil && *b.AmbulanceID == ambulanceID && !b.Status.IsTerminal() {
			return b, nil
		}
	}
	return model.Booking{}, fmt.Errorf("no active booking for %s: %w", ambulanceID, myerrors.ErrNotFound)
}

func (f *fakeBookingRepo) AppendStatusUpdate(_ context.Context, su model.StatusUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[su.BookingID] = append(f.updates[su.BookingID], su)
	return nil
}

func (f *fakeBookingRepo) ListStatusUpdates(_ context.Context, bookingID string) ([]model.StatusUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.StatusUpdate(nil), f.updates[bookingID]...), nil
}

// countingGeoIndex wraps the in-memory index and counts queries, so tests can
// assert validation happens before any geo access.
type countingGeoIndex struct {
	*GeoIndex
	mu    sync.Mutex
	calls int
}

func (c *countingGeoIndex) FindNearest(ctx context.Context, lat, lon float64, status model.AmbulanceStatus, k int) ([]model.AmbulanceDistance, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.GeoIndex.FindNearest(ctx, lat, lon, status, k)
}

func (c *countingGeoIndex) queryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type fakeBroker struct {
	mu     sync.Mutex
	events []websocketdto.Event
	fail   bool
}

func (f *fakeBroker) Close() error { return nil }

func (f *fakeBroker) PublishBookingEvent(_ context.Context, _ string, event websocketdto.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("broker unreachable")
	}
	f.events = append(f.events, event)
	return nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []websocketdto.Event
}

func (c *capturingPublisher) Publish(topic string, event websocketdto.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = append(c.topics, topic)
	c.events = append(c.events, event)
}

func (c *capturingPublisher) byType(typ string) []websocketdto.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var res []websocketdto.Event
	for _, e := range c.events {
		if e.Type == typ {
			res = append(res, e)
		}
	}
	return res
}
