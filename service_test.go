package shop_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/miravpn/shop"
	"github.com/miravpn/shop/conf"
	"github.com/miravpn/shop/events"
	"github.com/miravpn/shop/payment"
	"github.com/miravpn/shop/persistence/inmem"
	"github.com/miravpn/shop/promocode"
	"github.com/miravpn/shop/transport/pubsub"
	"github.com/miravpn/shop/user"
	"github.com/miravpn/shop/xui"
)

// fakePanel is an in-memory 3x-ui stand-in.
type fakePanel struct {
	mu       sync.Mutex
	settings map[string]*xui.ClientSettings // by email
	fail     bool
}

func newFakePanel() *fakePanel {
	return &fakePanel{
		settings: make(map[string]*xui.ClientSettings),
	}
}

func (p *fakePanel) Login(ctx context.Context) error {
	return nil
}

func (p *fakePanel) ClientByEmail(ctx context.Context, email string) (*xui.ClientTraffic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fail {
		return nil, errors.New("panel down")
	}

	s, ok := p.settings[email]
	if !ok {
		return nil, nil
	}

	return &xui.ClientTraffic{
		Email:      s.Email,
		Enable:     s.Enable,
		ExpiryTime: s.ExpiryTime,
	}, nil
}

func (p *fakePanel) ClientSettingsByEmail(ctx context.Context, email string) (*xui.ClientSettings, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fail {
		return nil, errors.New("panel down")
	}

	s, ok := p.settings[email]
	if !ok {
		return nil, xui.ErrClientNotFound
	}

	copied := *s
	return &copied, nil
}

func (p *fakePanel) AddClient(ctx context.Context, inboundID int, c xui.ClientSettings) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fail {
		return errors.New("panel down")
	}

	c.InboundID = inboundID
	p.settings[c.Email] = &c
	return nil
}

func (p *fakePanel) UpdateClient(ctx context.Context, c xui.ClientSettings) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fail {
		return errors.New("panel down")
	}

	p.settings[c.Email] = &c
	return nil
}

func (p *fakePanel) OnlineClients(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	emails := make([]string, 0, len(p.settings))
	for email := range p.settings {
		emails = append(emails, email)
	}

	return emails, nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	purchased []int64
	extended  []int64
	canceled  []int64
}

func (n *fakeNotifier) PurchaseSucceeded(telegramID int64, key string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.purchased = append(n.purchased, telegramID)
}

func (n *fakeNotifier) SubscriptionExtended(telegramID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.extended = append(n.extended, telegramID)
}

func (n *fakeNotifier) PaymentCanceled(telegramID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.canceled = append(n.canceled, telegramID)
}

type serviceTestSuite struct {
	suite.Suite
	svc        shop.Service
	users      user.Repository
	promocodes promocode.Repository
	panel      *fakePanel
	notifier   *fakeNotifier
}

func (suite *serviceTestSuite) SetupTest() {
	users, _ := inmem.NewUserRepository()
	promocodes, _ := inmem.NewPromocodeRepository()
	servers, _ := inmem.NewServerRepository()
	transactions, _ := inmem.NewTransactionRepository()

	panel := newFakePanel()

	cfg := conf.Panel{
		Subscription: "https://panel.example.com/sub/",
		InboundID:    1,
	}

	svc := shop.NewService(users, promocodes, servers, transactions, panel, cfg)

	// Route domain events straight back into the service, the way the
	// JetStream consumer does in production.
	bus := events.NewSimpleBus()
	handler := pubsub.EventHandler(shop.EventEndpoint(svc))
	bus.Subscribe("shop.users.#.registered", handler)
	bus.Subscribe("shop.payments.#.completed", handler)
	bus.Subscribe("shop.payments.#.canceled", handler)
	events.ReplaceGlobals(bus)

	notifier := &fakeNotifier{}
	svc.SetNotifier(notifier)

	suite.svc = svc
	suite.users = users
	suite.promocodes = promocodes
	suite.panel = panel
	suite.notifier = notifier
}

func (suite *serviceTestSuite) TearDownTest() {
	events.ReplaceGlobals(events.NewSimpleBus())
}

func (suite *serviceTestSuite) register(telegramID int64) *user.User {
	u, err := suite.svc.RegisterUser(context.Background(), telegramID, "Alice", "alice")
	suite.Require().NoError(err)
	return u
}

func (suite *serviceTestSuite) TestRegisterUser() {
	u := suite.register(100)
	suite.NotEmpty(u.VPNID)

	// the registered event stores the user
	found, err := suite.svc.User(100)
	suite.NoError(err)
	suite.Equal(u.ID, found.ID)
	suite.Equal("Alice", found.FirstName)
}

func (suite *serviceTestSuite) TestRegisterUserTwice() {
	first := suite.register(100)

	again, err := suite.svc.RegisterUser(context.Background(), 100, "Alicia", "alice")
	suite.NoError(err)
	suite.Equal(first.ID, again.ID)
	suite.Equal("Alicia", again.FirstName)
}

func (suite *serviceTestSuite) TestSubscriptionKey() {
	u := suite.register(100)

	key, err := suite.svc.SubscriptionKey(100)
	suite.NoError(err)
	suite.Equal("https://panel.example.com/sub/"+u.VPNID, key)
}

func (suite *serviceTestSuite) TestCreateSubscription() {
	u := suite.register(100)

	err := suite.svc.CreateSubscription(context.Background(), 100, 3, 30)
	suite.Require().NoError(err)

	s := suite.panel.settings["100"]
	suite.Require().NotNil(s)
	suite.Equal(u.VPNID, s.ID)
	suite.Equal(3, s.LimitIP)
	suite.True(s.Enable)

	expected := xui.DaysToTimestamp(30)
	suite.InDelta(expected, s.ExpiryTime, float64(time.Minute.Milliseconds()))
}

func (suite *serviceTestSuite) TestCreateSubscriptionReplacesExisting() {
	suite.register(100)

	suite.Require().NoError(suite.svc.CreateSubscription(context.Background(), 100, 1, 30))
	suite.Require().NoError(suite.svc.CreateSubscription(context.Background(), 100, 5, 90))

	s := suite.panel.settings["100"]
	suite.Equal(5, s.LimitIP)

	expected := xui.DaysToTimestamp(90)
	suite.InDelta(expected, s.ExpiryTime, float64(time.Minute.Milliseconds()))
}

func (suite *serviceTestSuite) TestExtendSubscription() {
	suite.register(100)
	suite.Require().NoError(suite.svc.CreateSubscription(context.Background(), 100, 1, 30))

	err := suite.svc.ExtendSubscription(context.Background(), 100, 3, 30)
	suite.Require().NoError(err)

	s := suite.panel.settings["100"]
	suite.Equal(3, s.LimitIP)

	// 30 days left plus 30 more
	expected := xui.DaysToTimestamp(60)
	suite.InDelta(expected, s.ExpiryTime, float64(time.Minute.Milliseconds()))
}

func (suite *serviceTestSuite) TestClientData() {
	suite.register(100)
	suite.Require().NoError(suite.svc.CreateSubscription(context.Background(), 100, 3, 30))

	data, err := suite.svc.ClientData(context.Background(), 100)
	suite.Require().NoError(err)
	suite.Equal(3, data.MaxDevices)
	suite.False(data.Expired(time.Now()))
}

func (suite *serviceTestSuite) TestClientDataNoSubscription() {
	suite.register(100)

	_, err := suite.svc.ClientData(context.Background(), 100)
	suite.ErrorIs(err, shop.ErrNoSubscription)
}

func (suite *serviceTestSuite) TestActivatePromocode() {
	suite.register(100)

	p, err := suite.svc.CreatePromocode(30)
	suite.Require().NoError(err)

	activated, err := suite.svc.ActivatePromocode(context.Background(), 100, p.Code)
	suite.Require().NoError(err)
	suite.True(activated.Activated)
	suite.EqualValues(100, activated.ActivatedBy)

	// a fresh client gets one device
	s := suite.panel.settings["100"]
	suite.Require().NotNil(s)
	suite.Equal(1, s.LimitIP)

	_, err = suite.svc.ActivatePromocode(context.Background(), 100, p.Code)
	suite.ErrorIs(err, promocode.ErrPromocodeActivated)
}

func (suite *serviceTestSuite) TestActivatePromocodeRollback() {
	suite.register(100)

	p, err := suite.svc.CreatePromocode(30)
	suite.Require().NoError(err)

	suite.panel.fail = true
	_, err = suite.svc.ActivatePromocode(context.Background(), 100, p.Code)
	suite.Error(err)

	// the failed activation must not burn the code
	found, err := suite.promocodes.Find(p.Code)
	suite.NoError(err)
	suite.False(found.Activated)
}

func (suite *serviceTestSuite) TestPaymentCompletedProvisions() {
	suite.register(100)

	data := payment.SubscriptionData{
		State:      "pay",
		TelegramID: 100,
		Devices:    3,
		Duration:   30,
		Price:      300,
	}

	t := payment.NewTransaction(100, "pay-123", "yookassa", data.Pack())
	t.Complete()
	t.Notify()

	s := suite.panel.settings["100"]
	suite.Require().NotNil(s)
	suite.Equal(3, s.LimitIP)

	suite.notifier.mu.Lock()
	defer suite.notifier.mu.Unlock()
	suite.Equal([]int64{100}, suite.notifier.purchased)
}

func (suite *serviceTestSuite) TestPaymentCanceledNotifies() {
	suite.register(100)

	data := payment.SubscriptionData{
		State:      "pay",
		TelegramID: 100,
		Devices:    1,
		Duration:   30,
		Price:      150,
	}

	t := payment.NewTransaction(100, "pay-456", "yookassa", data.Pack())
	t.Cancel()
	t.Notify()

	suite.notifier.mu.Lock()
	defer suite.notifier.mu.Unlock()
	suite.Empty(suite.notifier.purchased)
	suite.Equal([]int64{100}, suite.notifier.canceled)
}

func (suite *serviceTestSuite) TestStatistics() {
	suite.register(100)
	suite.register(200)

	suite.Require().NoError(suite.svc.CreateSubscription(context.Background(), 100, 1, 30))

	p, _ := suite.svc.CreatePromocode(30)
	suite.svc.ActivatePromocode(context.Background(), 200, p.Code)

	stats, err := suite.svc.Statistics(context.Background())
	suite.Require().NoError(err)
	suite.EqualValues(2, stats.TotalUsers)
	suite.EqualValues(1, stats.ActivatedPromocodes)
	suite.Equal(2, stats.OnlineClients)
}

func (suite *serviceTestSuite) TestMaintenance() {
	suite.False(suite.svc.Maintenance())
	suite.svc.SetMaintenance(true)
	suite.True(suite.svc.Maintenance())
	suite.svc.SetMaintenance(false)
	suite.False(suite.svc.Maintenance())
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(serviceTestSuite))
}
