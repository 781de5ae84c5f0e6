package payment

import (
	"context"
	"errors"
)

var ErrGatewayNotFound = errors.New("gateway not found")

// Invoice is what a gateway needs to create a payment.
type Invoice struct {
	TelegramID  int64
	Price       float64
	Description string
	Payload     string // packed SubscriptionData
}

// Payment is the gateway's answer: where to send the user and how to
// correlate the webhook later.
type Payment struct {
	ID  string
	URL string
}

type Gateway interface {
	Name() string
	Currency() string
	CreatePayment(ctx context.Context, inv Invoice) (*Payment, error)
}
