package events

import (
	"context"
	"strings"
	"sync"
)

// SimpleBus is an in-process PubSub used by tests and as the default global
// bus before NATS is wired in. Patterns use "#" as a single-token wildcard.
type SimpleBus struct {
	mu   sync.RWMutex
	subs []subscription
}

type subscription struct {
	pattern string
	handler MessageHandler
}

func NewSimpleBus() *SimpleBus {
	return &SimpleBus{
		subs: make([]subscription, 0),
	}
}

func (bus *SimpleBus) Publish(topic string, data []byte) error {
	bus.mu.RLock()
	subs := make([]subscription, len(bus.subs))
	copy(subs, bus.subs)
	bus.mu.RUnlock()

	msg := &Message{Topic: topic, Data: data}

	ctx := context.Background()
	for _, sub := range subs {
		if !matchTopic(sub.pattern, topic) {
			continue
		}

		if err := sub.handler(ctx, msg); err != nil {
			return err
		}
	}

	return nil
}

func (bus *SimpleBus) Subscribe(pattern string, handler MessageHandler) error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.subs = append(bus.subs, subscription{pattern, handler})
	return nil
}

func (bus *SimpleBus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.subs = nil
	return nil
}

func matchTopic(pattern string, topic string) bool {
	ps := strings.Split(pattern, ".")
	ts := strings.Split(topic, ".")

	if len(ps) != len(ts) {
		return false
	}

	for i, p := range ps {
		if p == "#" {
			continue
		}

		if p != ts[i] {
			return false
		}
	}

	return true
}
