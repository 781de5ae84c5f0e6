package payment

import (
	"context"
	"fmt"
)

// Service creates payments through registered gateways and settles
// transactions when gateway webhooks arrive. Settlement only flips the
// transaction status and raises an event; provisioning happens in the
// event handler downstream.
type Service interface {
	Gateways() []Gateway
	Gateway(name string) (Gateway, error)
	CreatePayment(ctx context.Context, gateway string, data SubscriptionData) (*Payment, error)
	HandleSucceeded(ctx context.Context, paymentID string) error
	HandleCanceled(ctx context.Context, paymentID string) error
	Transactions(telegramID int64) ([]*Transaction, error)
}

type ServiceMiddleware func(Service) Service

func NewService(transactions Repository, describe func(data SubscriptionData) string, gateways ...Gateway) Service {
	byName := make(map[string]Gateway, len(gateways))
	for _, gw := range gateways {
		byName[gw.Name()] = gw
	}

	if describe == nil {
		describe = func(data SubscriptionData) string {
			return fmt.Sprintf("VPN subscription: %d devices, %d days", data.Devices, data.Duration)
		}
	}

	return &service{
		transactions: transactions,
		gateways:     gateways,
		byName:       byName,
		describe:     describe,
	}
}

type service struct {
	transactions Repository
	gateways     []Gateway
	byName       map[string]Gateway
	describe     func(data SubscriptionData) string
}

func (svc *service) Gateways() []Gateway {
	return svc.gateways
}

func (svc *service) Gateway(name string) (Gateway, error) {
	gw, ok := svc.byName[name]
	if !ok {
		return nil, ErrGatewayNotFound
	}

	return gw, nil
}

func (svc *service) CreatePayment(ctx context.Context, gateway string, data SubscriptionData) (*Payment, error) {
	gw, err := svc.Gateway(gateway)
	if err != nil {
		return nil, err
	}

	inv := Invoice{
		TelegramID:  data.TelegramID,
		Price:       data.Price,
		Description: svc.describe(data),
		Payload:     data.Pack(),
	}

	p, err := gw.CreatePayment(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	t := NewTransaction(data.TelegramID, p.ID, gw.Name(), inv.Payload)
	if err := svc.transactions.Store(t); err != nil {
		return nil, err
	}

	return p, nil
}

func (svc *service) HandleSucceeded(ctx context.Context, paymentID string) error {
	return svc.settle(paymentID, (*Transaction).Complete)
}

func (svc *service) HandleCanceled(ctx context.Context, paymentID string) error {
	return svc.settle(paymentID, (*Transaction).Cancel)
}

func (svc *service) settle(paymentID string, transition func(*Transaction)) error {
	t, err := svc.transactions.FindByPaymentID(paymentID)
	if err != nil {
		return err
	}

	// Webhooks can be redelivered; settle once.
	if t.Status != Pending {
		return nil
	}

	transition(t)
	defer t.Notify()

	return svc.transactions.Store(t)
}

func (svc *service) Transactions(telegramID int64) ([]*Transaction, error) {
	return svc.transactions.ListByTelegramID(telegramID)
}
