package events

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Event is a domain event carried by an aggregate until Notify flushes it
// onto the global bus.
type Event interface {
	EventName() string
	Topic() string
}

type Message struct {
	Topic string
	Data  []byte
}

type MessageHandler func(ctx context.Context, msg *Message) error

// Bus publishes serialized domain events.
type Bus interface {
	Publish(topic string, data []byte) error
	Close() error
}

// PubSub is a Bus that also supports local subscriptions. Used by the
// in-process implementation; NATS wires subscriptions through JetStream
// consumers instead.
type PubSub interface {
	Bus
	Subscribe(pattern string, handler MessageHandler) error
}

var (
	mu     sync.RWMutex
	global Bus = NewSimpleBus()
)

func ReplaceGlobals(bus Bus) {
	mu.Lock()
	defer mu.Unlock()
	global = bus
}

func G() Bus {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// EventStore collects events raised by an aggregate. Aggregates embed it;
// services call Notify (usually deferred) after a successful mutation.
type EventStore interface {
	AddEvent(e Event)
	Events() []Event
	Notify()
}

func NewEventStore() EventStore {
	return &eventStore{
		events: make([]Event, 0),
	}
}

type eventStore struct {
	sync.Mutex
	events []Event
}

func (s *eventStore) AddEvent(e Event) {
	s.Lock()
	defer s.Unlock()
	s.events = append(s.events, e)
}

func (s *eventStore) Events() []Event {
	s.Lock()
	defer s.Unlock()

	events := make([]Event, len(s.events))
	copy(events, s.events)
	return events
}

func (s *eventStore) Notify() {
	s.Lock()
	pending := s.events
	s.events = nil
	s.Unlock()

	bus := G()
	for _, e := range pending {
		data, err := json.Marshal(e)
		if err != nil {
			zap.L().Error(err.Error(),
				zap.String("event", e.EventName()),
			)
			continue
		}

		if err := bus.Publish(e.Topic(), data); err != nil {
			zap.L().Error(err.Error(),
				zap.String("event", e.EventName()),
				zap.String("topic", e.Topic()),
			)
		}
	}
}
