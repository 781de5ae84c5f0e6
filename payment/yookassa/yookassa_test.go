package yookassa

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miravpn/shop/payment"
)

func TestCreatePayment(t *testing.T) {
	var received map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/payments", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "shop-1", user)
		assert.Equal(t, "secret", pass)
		assert.NotEmpty(t, r.Header.Get("Idempotence-Key"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "2d9b2e16-000f",
			"status": "pending",
			"confirmation": {
				"type": "redirect",
				"confirmation_url": "https://yoomoney.ru/checkout/payments/2d9b2e16-000f"
			}
		}`))
	}))
	defer srv.Close()

	gw := NewGateway("shop-1", "secret", "receipts@example.com", "https://t.me/bot",
		WithAPIURL(srv.URL))

	inv := payment.Invoice{
		TelegramID:  100,
		Price:       300,
		Description: "VPN subscription: 3 devices, 30 days",
		Payload:     "subscription:pay:0:100:0:3:30:300",
	}

	p, err := gw.CreatePayment(context.Background(), inv)
	require.NoError(t, err)
	assert.Equal(t, "2d9b2e16-000f", p.ID)
	assert.Equal(t, "https://yoomoney.ru/checkout/payments/2d9b2e16-000f", p.URL)

	amount := received["amount"].(map[string]any)
	assert.Equal(t, "300.00", amount["value"])
	assert.Equal(t, "RUB", amount["currency"])
	assert.Equal(t, true, received["capture"])

	metadata := received["metadata"].(map[string]any)
	assert.Equal(t, inv.Payload, metadata["payload"])
}

func TestCreatePaymentRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"description": "invalid credentials"}`))
	}))
	defer srv.Close()

	gw := NewGateway("shop-1", "wrong", "receipts@example.com", "https://t.me/bot",
		WithAPIURL(srv.URL))

	_, err := gw.CreatePayment(context.Background(), payment.Invoice{Price: 100})
	assert.ErrorIs(t, err, ErrPaymentRejected)
}

func TestParseNotification(t *testing.T) {
	event, id, err := ParseNotification([]byte(`{
		"type": "notification",
		"event": "payment.succeeded",
		"object": {"id": "2d9b2e16-000f", "status": "succeeded"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, PaymentSucceeded, event)
	assert.Equal(t, "2d9b2e16-000f", id)

	event, _, err = ParseNotification([]byte(`{
		"event": "payment.canceled",
		"object": {"id": "2d9b2e16-000f"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, PaymentCanceled, event)
}

func TestParseNotificationInvalid(t *testing.T) {
	cases := [][]byte{
		[]byte(`not json`),
		[]byte(`{}`),
		[]byte(`{"event": "payment.succeeded"}`),
		[]byte(`{"event": "refund.succeeded", "object": {"id": "x"}}`),
	}

	for _, body := range cases {
		_, _, err := ParseNotification(body)
		assert.ErrorIs(t, err, ErrInvalidNotification, string(body))
	}
}

func TestTrustedIP(t *testing.T) {
	gw := NewGateway("shop-1", "secret", "", "")

	assert.True(t, gw.TrustedIP("185.71.76.10"))
	assert.True(t, gw.TrustedIP("77.75.156.11"))
	assert.False(t, gw.TrustedIP("8.8.8.8"))
	assert.False(t, gw.TrustedIP("not-an-ip"))

	gw = NewGateway("shop-1", "secret", "", "",
		WithTrustedNets([]string{"10.0.0.0/8"}))
	assert.True(t, gw.TrustedIP("10.1.2.3"))
	assert.False(t, gw.TrustedIP("185.71.76.10"))
}
