package services

import (
	"sync"

	"ambu-dispatch/internal/dispatch-service/core/domain/model"
	websocketdto "ambu-dispatch/internal/dispatch-service/core/domain/websocket_dto"
	"ambu-dispatch/internal/mylogger"

	"github.com/google/uuid"
)

const defaultQueueSize = 32

// Subscription is one subscriber connection's view of the broadcaster. Events
// arrive on Events(); when the bounded queue overflowed, the oldest events were
// dropped and NeedsReconnect reports true so the transport can ask the client
// to resync.
type Subscription struct {
	id    string
	Topic string
	Role  model.Role

	mu             sync.Mutex
	events         chan websocketdto.Event
	needsReconnect bool
	closed         bool
}

func (s *Subscription) ID() string { return s.id }

func (s *Subscription) Events() <-chan websocketdto.Event { return s.events }

func (s *Subscription) NeedsReconnect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.needsReconnect
}

// Broadcaster fans booking events out to subscribed connections. It is an
// explicit instance owned by the service root, injected where needed.
// Publish never blocks on a slow subscriber.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[string]*Subscription // keyed by subscription id
	log  mylogger.Logger

	queueSize int
}

func NewBroadcaster(log mylogger.Logger) *Broadcaster {
	return &Broadcaster{
		subs:      make(map[string]*Subscription),
		log:       log,
		queueSize: defaultQueueSize,
	}
}

func (b *Broadcaster) Subscribe(topic string, role model.Role) *Subscription {
	sub := &Subscription{
		id:     uuid.New().String(),
		Topic:  topic,
		Role:   role,
		events: make(chan websocketdto.Event, b.queueSize),
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()

	return sub
}

// Unsubscribe is idempotent; a second call for the same handle is a no-op.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	_, present := b.subs[sub.id]
	delete(b.subs, sub.id)
	b.mu.Unlock()

	if !present {
		return
	}

	sub.mu.Lock()
	if !sub.closed {
		sub.closed = true
		close(sub.events)
	}
	sub.mu.Unlock()
}

// Publish delivers the event to every subscriber of the topic plus every
// admin-role subscriber. Delivery is best effort: a full queue drops its
// oldest event and flags the subscriber for reconnection.
func (b *Broadcaster) Publish(topic string, event websocketdto.Event) {
	b.mu.RLock()
	targets := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.Topic == topic || sub.Role == model.RoleAdmin {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		b.offer(sub, event)
	}
}

func (b *Broadcaster) offer(sub *Subscription, event websocketdto.Event) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if sub.closed {
		return
	}

	select {
	case sub.events <- event:
		return
	default:
	}

	// queue full: drop the oldest, keep the newest, flag the subscriber
	select {
	case <-sub.events:
	default:
	}
	select {
	case sub.events <- event:
	default:
	}

	if !sub.needsReconnect {
		sub.needsReconnect = true
		b.log.Warn("subscriber queue overflowed, reconnect required",
			"subscription_id", sub.id, "topic", sub.Topic, "role", string(sub.Role))
	}
}
