package payment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/miravpn/shop/events"
	"github.com/miravpn/shop/payment"
	"github.com/miravpn/shop/persistence/inmem"
)

type fakeGateway struct {
	created int
}

func (gw *fakeGateway) Name() string {
	return "fake"
}

func (gw *fakeGateway) Currency() string {
	return "RUB"
}

func (gw *fakeGateway) CreatePayment(ctx context.Context, inv payment.Invoice) (*payment.Payment, error) {
	gw.created++
	return &payment.Payment{
		ID:  "pay-001",
		URL: "https://pay.example.com/pay-001",
	}, nil
}

type paymentServiceTestSuite struct {
	suite.Suite
	svc          payment.Service
	transactions payment.Repository
	gateway      *fakeGateway
	completed    []string
	canceled     []string
}

func (suite *paymentServiceTestSuite) SetupTest() {
	transactions, _ := inmem.NewTransactionRepository()
	gateway := &fakeGateway{}

	suite.svc = payment.NewService(transactions, nil, gateway)
	suite.transactions = transactions
	suite.gateway = gateway
	suite.completed = nil
	suite.canceled = nil

	bus := events.NewSimpleBus()
	bus.Subscribe("shop.payments.#.completed", func(ctx context.Context, msg *events.Message) error {
		suite.completed = append(suite.completed, msg.Topic)
		return nil
	})
	bus.Subscribe("shop.payments.#.canceled", func(ctx context.Context, msg *events.Message) error {
		suite.canceled = append(suite.canceled, msg.Topic)
		return nil
	})
	events.ReplaceGlobals(bus)
}

func (suite *paymentServiceTestSuite) TearDownTest() {
	events.ReplaceGlobals(events.NewSimpleBus())
}

func (suite *paymentServiceTestSuite) createPayment() *payment.Payment {
	data := payment.SubscriptionData{
		State:      "pay",
		TelegramID: 100,
		Devices:    3,
		Duration:   30,
		Price:      300,
	}

	p, err := suite.svc.CreatePayment(context.Background(), "fake", data)
	suite.Require().NoError(err)
	return p
}

func (suite *paymentServiceTestSuite) TestCreatePayment() {
	p := suite.createPayment()
	suite.Equal("pay-001", p.ID)
	suite.Equal(1, suite.gateway.created)

	t, err := suite.transactions.FindByPaymentID("pay-001")
	suite.NoError(err)
	suite.Equal(payment.Pending, t.Status)
	suite.EqualValues(100, t.TelegramID)
}

func (suite *paymentServiceTestSuite) TestUnknownGateway() {
	_, err := suite.svc.CreatePayment(context.Background(), "stripe", payment.SubscriptionData{})
	suite.ErrorIs(err, payment.ErrGatewayNotFound)
}

func (suite *paymentServiceTestSuite) TestHandleSucceeded() {
	suite.createPayment()

	err := suite.svc.HandleSucceeded(context.Background(), "pay-001")
	suite.Require().NoError(err)

	t, _ := suite.transactions.FindByPaymentID("pay-001")
	suite.Equal(payment.Completed, t.Status)
	suite.Len(suite.completed, 1)
}

func (suite *paymentServiceTestSuite) TestHandleSucceededIdempotent() {
	suite.createPayment()

	suite.Require().NoError(suite.svc.HandleSucceeded(context.Background(), "pay-001"))
	suite.Require().NoError(suite.svc.HandleSucceeded(context.Background(), "pay-001"))

	// redelivered webhooks settle once
	suite.Len(suite.completed, 1)
}

func (suite *paymentServiceTestSuite) TestHandleCanceled() {
	suite.createPayment()

	err := suite.svc.HandleCanceled(context.Background(), "pay-001")
	suite.Require().NoError(err)

	t, _ := suite.transactions.FindByPaymentID("pay-001")
	suite.Equal(payment.Canceled, t.Status)
	suite.Len(suite.canceled, 1)

	// a canceled payment cannot complete afterwards
	suite.Require().NoError(suite.svc.HandleSucceeded(context.Background(), "pay-001"))
	suite.Len(suite.completed, 0)
}

func (suite *paymentServiceTestSuite) TestHandleUnknownPayment() {
	err := suite.svc.HandleSucceeded(context.Background(), "pay-999")
	suite.ErrorIs(err, payment.ErrTransactionNotFound)
}

func TestPaymentServiceTestSuite(t *testing.T) {
	suite.Run(t, new(paymentServiceTestSuite))
}
