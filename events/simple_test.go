package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchTopic(t *testing.T) {
	cases := []struct {
		pattern string
		topic   string
		match   bool
	}{
		{"shop.users.#.registered", "shop.users.01J8ZX.registered", true},
		{"shop.users.#.registered", "shop.payments.01J8ZX.registered", false},
		{"shop.payments.#.completed", "shop.payments.01J8ZX.canceled", false},
		{"shop.#.#.completed", "shop.payments.01J8ZX.completed", true},
		{"shop.users.#.registered", "shop.users.registered", false},
		{"shop.users", "shop.users", true},
	}

	for _, c := range cases {
		assert.Equal(t, c.match, matchTopic(c.pattern, c.topic), "%s vs %s", c.pattern, c.topic)
	}
}

func TestPublishRouting(t *testing.T) {
	bus := NewSimpleBus()
	defer bus.Close()

	var completed, canceled int

	bus.Subscribe("shop.payments.#.completed", func(ctx context.Context, msg *Message) error {
		completed++
		return nil
	})
	bus.Subscribe("shop.payments.#.canceled", func(ctx context.Context, msg *Message) error {
		canceled++
		return nil
	})

	require.NoError(t, bus.Publish("shop.payments.01J8ZX.completed", []byte(`{}`)))
	require.NoError(t, bus.Publish("shop.payments.01J8ZX.completed", []byte(`{}`)))
	require.NoError(t, bus.Publish("shop.payments.01J8ZX.canceled", []byte(`{}`)))

	assert.Equal(t, 2, completed)
	assert.Equal(t, 1, canceled)
}

func TestPublishHandlerError(t *testing.T) {
	bus := NewSimpleBus()
	defer bus.Close()

	handlerErr := errors.New("handler failed")
	bus.Subscribe("shop.users.#.registered", func(ctx context.Context, msg *Message) error {
		return handlerErr
	})

	err := bus.Publish("shop.users.01J8ZX.registered", []byte(`{}`))
	assert.ErrorIs(t, err, handlerErr)
}
