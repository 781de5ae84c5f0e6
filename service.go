package shop

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/miravpn/shop/conf"
	"github.com/miravpn/shop/payment"
	"github.com/miravpn/shop/promocode"
	"github.com/miravpn/shop/server"
	"github.com/miravpn/shop/user"
	"github.com/miravpn/shop/xui"
)

var (
	ErrNoSubscription = errors.New("no active subscription")
)

// Notifier is how provisioning results reach the user. The bot layer
// implements it; a nil notifier is valid and drops messages.
type Notifier interface {
	PurchaseSucceeded(telegramID int64, key string)
	SubscriptionExtended(telegramID int64)
	PaymentCanceled(telegramID int64)
}

type Statistics struct {
	TotalUsers          int64            `json:"total_users"`
	OnlineClients       int              `json:"online_clients"`
	Transactions        map[string]int64 `json:"transactions"`
	ActivatedPromocodes int64            `json:"activated_promocodes"`
}

type Service interface {
	RegisterUser(ctx context.Context, telegramID int64, firstName string, username string) (*user.User, error)
	User(telegramID int64) (*user.User, error)
	Users() ([]*user.User, error)
	SubscriptionKey(telegramID int64) (string, error)
	ClientData(ctx context.Context, telegramID int64) (*xui.ClientData, error)
	CreateSubscription(ctx context.Context, telegramID int64, devices int, duration int) error
	ExtendSubscription(ctx context.Context, telegramID int64, devices int, duration int) error
	ActivatePromocode(ctx context.Context, telegramID int64, code string) (*promocode.Promocode, error)
	CreatePromocode(duration int) (*promocode.Promocode, error)
	DeletePromocode(code string) error
	Promocodes() ([]*promocode.Promocode, error)
	AddServer(ctx context.Context, name string, host string, subscription string, maxClients int) (*server.Server, error)
	DeleteServer(name string) error
	Servers() ([]*server.Server, error)
	PingServer(ctx context.Context, name string) (time.Duration, error)
	Statistics(ctx context.Context) (*Statistics, error)
	SetMaintenance(active bool)
	Maintenance() bool
	SetNotifier(n Notifier)
	Handler() (EventHandler, error)
}

type EventHandler interface {
	UserRegisteredHandler(e *user.UserRegisteredEvent) error
	TransactionCompletedHandler(e *payment.TransactionCompletedEvent) error
	TransactionCanceledHandler(e *payment.TransactionCanceledEvent) error
}

type ServiceMiddleware func(Service) Service

func NewService(
	users user.Repository,
	promocodes promocode.Repository,
	servers server.Repository,
	transactions payment.Repository,
	panel xui.Panel,
	cfg conf.Panel,
) Service {
	inboundID := cfg.InboundID
	if inboundID == 0 {
		inboundID = 1
	}

	return &service{
		users:        users,
		promocodes:   promocodes,
		servers:      servers,
		transactions: transactions,
		panel:        panel,
		subscription: cfg.Subscription,
		inboundID:    inboundID,
	}
}

type service struct {
	users        user.Repository
	promocodes   promocode.Repository
	servers      server.Repository
	transactions payment.Repository
	panel        xui.Panel
	subscription string
	inboundID    int

	maintenance atomic.Bool
	notifier    atomic.Pointer[Notifier]
}

func (svc *service) RegisterUser(ctx context.Context, telegramID int64, firstName string, username string) (*user.User, error) {
	u, err := svc.users.FindByTelegramID(telegramID)
	if err == nil {
		if u.Rename(firstName, username) {
			if err := svc.users.Store(u); err != nil {
				return nil, err
			}
		}

		return u, nil
	}

	if !errors.Is(err, user.ErrUserNotFound) {
		return nil, err
	}

	u = user.NewUser(telegramID, firstName, username)
	u.Register()
	defer u.Notify()

	return u, nil
}

func (svc *service) User(telegramID int64) (*user.User, error) {
	return svc.users.FindByTelegramID(telegramID)
}

func (svc *service) Users() ([]*user.User, error) {
	return svc.users.ListAll()
}

func (svc *service) SubscriptionKey(telegramID int64) (string, error) {
	u, err := svc.users.FindByTelegramID(telegramID)
	if err != nil {
		return "", err
	}

	return svc.subscription + u.VPNID, nil
}

func (svc *service) ClientData(ctx context.Context, telegramID int64) (*xui.ClientData, error) {
	email := clientEmail(telegramID)

	traffic, err := svc.panel.ClientByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if traffic == nil {
		return nil, ErrNoSubscription
	}

	limitIP := 0
	if settings, err := svc.panel.ClientSettingsByEmail(ctx, email); err == nil {
		limitIP = settings.LimitIP
	}

	data := xui.BuildClientData(*traffic, limitIP)
	return &data, nil
}

func (svc *service) CreateSubscription(ctx context.Context, telegramID int64, devices int, duration int) error {
	u, err := svc.users.FindByTelegramID(telegramID)
	if err != nil {
		return err
	}

	traffic, err := svc.panel.ClientByEmail(ctx, clientEmail(telegramID))
	if err != nil {
		return err
	}

	if traffic == nil {
		return svc.createClient(ctx, u, devices, duration)
	}

	return svc.updateClient(ctx, u, devices, duration, true, true)
}

func (svc *service) ExtendSubscription(ctx context.Context, telegramID int64, devices int, duration int) error {
	u, err := svc.users.FindByTelegramID(telegramID)
	if err != nil {
		return err
	}

	return svc.updateClient(ctx, u, devices, duration, true, false)
}

func (svc *service) createClient(ctx context.Context, u *user.User, devices int, duration int) error {
	settings := xui.ClientSettings{
		ID:         u.VPNID,
		Email:      clientEmail(u.TelegramID),
		Enable:     true,
		Flow:       xui.DefaultFlow,
		LimitIP:    devices,
		ExpiryTime: xui.DaysToTimestamp(duration),
		SubID:      u.VPNID,
	}

	return svc.panel.AddClient(ctx, svc.inboundID, settings)
}

// updateClient rewrites the panel client. Without replaceDevices the new
// device count stacks on the current limit; without replaceDuration the
// period extends from whichever is later, now or the current expiry.
func (svc *service) updateClient(ctx context.Context, u *user.User, devices int, duration int, replaceDevices bool, replaceDuration bool) error {
	settings, err := svc.panel.ClientSettingsByEmail(ctx, clientEmail(u.TelegramID))
	if err != nil {
		return err
	}

	if !replaceDevices {
		devices += settings.LimitIP
	}

	now := xui.CurrentTimestamp()

	base := now
	if !replaceDuration && settings.ExpiryTime > now {
		base = settings.ExpiryTime
	}

	settings.ID = u.VPNID
	settings.Enable = true
	settings.Flow = xui.DefaultFlow
	settings.LimitIP = devices
	settings.ExpiryTime = xui.AddDays(base, duration)
	settings.SubID = u.VPNID

	return svc.panel.UpdateClient(ctx, *settings)
}

func (svc *service) ActivatePromocode(ctx context.Context, telegramID int64, code string) (*promocode.Promocode, error) {
	p, err := svc.promocodes.Find(code)
	if err != nil {
		return nil, err
	}

	if err := p.Activate(telegramID); err != nil {
		return nil, err
	}

	if err := svc.promocodes.Store(p); err != nil {
		return nil, err
	}

	u, err := svc.users.FindByTelegramID(telegramID)
	if err != nil {
		return nil, err
	}

	traffic, err := svc.panel.ClientByEmail(ctx, clientEmail(telegramID))
	if err == nil {
		if traffic == nil {
			err = svc.createClient(ctx, u, 1, p.Duration)
		} else {
			err = svc.updateClient(ctx, u, 0, p.Duration, false, false)
		}
	}

	if err != nil {
		// Provisioning failed; make the code usable again.
		p.Deactivate()
		if storeErr := svc.promocodes.Store(p); storeErr != nil {
			return nil, storeErr
		}
		return nil, err
	}

	return p, nil
}

func (svc *service) CreatePromocode(duration int) (*promocode.Promocode, error) {
	p := promocode.New(duration)
	if err := svc.promocodes.Store(p); err != nil {
		return nil, err
	}

	return p, nil
}

func (svc *service) DeletePromocode(code string) error {
	return svc.promocodes.Delete(code)
}

func (svc *service) Promocodes() ([]*promocode.Promocode, error) {
	return svc.promocodes.ListAll()
}

func (svc *service) AddServer(ctx context.Context, name string, host string, subscription string, maxClients int) (*server.Server, error) {
	_, err := svc.servers.Find(name)
	if err == nil {
		return nil, server.ErrServerExists
	}

	if !errors.Is(err, server.ErrServerNotFound) {
		return nil, err
	}

	s, err := server.New(name, host, subscription, maxClients)
	if err != nil {
		return nil, err
	}

	if _, err := server.Ping(ctx, s.Host, 5*time.Second); err == nil {
		s.Online = true
	}

	if err := svc.servers.Store(s); err != nil {
		return nil, err
	}

	return s, nil
}

func (svc *service) DeleteServer(name string) error {
	return svc.servers.Delete(name)
}

func (svc *service) Servers() ([]*server.Server, error) {
	return svc.servers.ListAll()
}

func (svc *service) PingServer(ctx context.Context, name string) (time.Duration, error) {
	s, err := svc.servers.Find(name)
	if err != nil {
		return 0, err
	}

	latency, err := server.Ping(ctx, s.Host, 5*time.Second)

	online := err == nil
	if s.Online != online {
		s.Online = online
		s.UpdatedAt = time.Now()
		if storeErr := svc.servers.Store(s); storeErr != nil {
			return 0, storeErr
		}
	}

	if err != nil {
		return 0, err
	}

	return latency, nil
}

func (svc *service) Statistics(ctx context.Context) (*Statistics, error) {
	totalUsers, err := svc.users.Count()
	if err != nil {
		return nil, err
	}

	transactions := make(map[string]int64)
	for _, status := range []payment.Status{
		payment.Pending, payment.Completed, payment.Canceled, payment.Refunded,
	} {
		count, err := svc.transactions.CountByStatus(status)
		if err != nil {
			return nil, err
		}
		transactions[status.String()] = count
	}

	activated, err := svc.promocodes.CountActivated()
	if err != nil {
		return nil, err
	}

	online := 0
	if emails, err := svc.panel.OnlineClients(ctx); err == nil {
		online = len(emails)
	}

	return &Statistics{
		TotalUsers:          totalUsers,
		OnlineClients:       online,
		Transactions:        transactions,
		ActivatedPromocodes: activated,
	}, nil
}

func (svc *service) SetMaintenance(active bool) {
	svc.maintenance.Store(active)
}

func (svc *service) Maintenance() bool {
	return svc.maintenance.Load()
}

func (svc *service) SetNotifier(n Notifier) {
	svc.notifier.Store(&n)
}

func (svc *service) notify(fn func(n Notifier)) {
	p := svc.notifier.Load()
	if p == nil || *p == nil {
		return
	}

	fn(*p)
}

func (svc *service) Handler() (EventHandler, error) {
	return svc, nil
}

func (svc *service) UserRegisteredHandler(e *user.UserRegisteredEvent) error {
	return svc.users.Store(&e.User)
}

func (svc *service) TransactionCompletedHandler(e *payment.TransactionCompletedEvent) error {
	data, err := payment.UnpackSubscriptionData(e.Transaction.Subscription)
	if err != nil {
		return err
	}

	ctx := context.Background()

	if data.Extend {
		if err := svc.ExtendSubscription(ctx, data.TelegramID, data.Devices, data.Duration); err != nil {
			return err
		}

		svc.notify(func(n Notifier) {
			n.SubscriptionExtended(data.TelegramID)
		})
		return nil
	}

	if err := svc.CreateSubscription(ctx, data.TelegramID, data.Devices, data.Duration); err != nil {
		return err
	}

	key, err := svc.SubscriptionKey(data.TelegramID)
	if err != nil {
		return err
	}

	svc.notify(func(n Notifier) {
		n.PurchaseSucceeded(data.TelegramID, key)
	})
	return nil
}

func (svc *service) TransactionCanceledHandler(e *payment.TransactionCanceledEvent) error {
	svc.notify(func(n Notifier) {
		n.PaymentCanceled(e.Transaction.TelegramID)
	})
	return nil
}

// clientEmail is the panel-side identity of a user: its Telegram id.
func clientEmail(telegramID int64) string {
	return strconv.FormatInt(telegramID, 10)
}
