package shop

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/miravpn/shop/payment"
	"github.com/miravpn/shop/promocode"
	"github.com/miravpn/shop/server"
	"github.com/miravpn/shop/user"
	"github.com/miravpn/shop/xui"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	return func(next Service) Service {
		return &loggingMiddleware{
			log.With(
				zap.String("service", "shop"),
				zap.String("middleware", "logging"),
			),
			next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) RegisterUser(ctx context.Context, telegramID int64, firstName string, username string) (*user.User, error) {
	log := mw.log.With(
		zap.String("action", "register_user"),
		zap.Int64("telegram_id", telegramID),
	)

	u, err := mw.next.RegisterUser(ctx, telegramID, firstName, username)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	return u, nil
}

func (mw *loggingMiddleware) User(telegramID int64) (*user.User, error) {
	return mw.next.User(telegramID)
}

func (mw *loggingMiddleware) Users() ([]*user.User, error) {
	return mw.next.Users()
}

func (mw *loggingMiddleware) SubscriptionKey(telegramID int64) (string, error) {
	return mw.next.SubscriptionKey(telegramID)
}

func (mw *loggingMiddleware) ClientData(ctx context.Context, telegramID int64) (*xui.ClientData, error) {
	log := mw.log.With(
		zap.String("action", "client_data"),
		zap.Int64("telegram_id", telegramID),
	)

	data, err := mw.next.ClientData(ctx, telegramID)
	if err != nil {
		if err != ErrNoSubscription {
			log.Error(err.Error())
		}
		return nil, err
	}

	return data, nil
}

func (mw *loggingMiddleware) CreateSubscription(ctx context.Context, telegramID int64, devices int, duration int) error {
	log := mw.log.With(
		zap.String("action", "create_subscription"),
		zap.Int64("telegram_id", telegramID),
		zap.Int("devices", devices),
		zap.Int("duration", duration),
	)

	if err := mw.next.CreateSubscription(ctx, telegramID, devices, duration); err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("subscription created")
	return nil
}

func (mw *loggingMiddleware) ExtendSubscription(ctx context.Context, telegramID int64, devices int, duration int) error {
	log := mw.log.With(
		zap.String("action", "extend_subscription"),
		zap.Int64("telegram_id", telegramID),
		zap.Int("devices", devices),
		zap.Int("duration", duration),
	)

	if err := mw.next.ExtendSubscription(ctx, telegramID, devices, duration); err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("subscription extended")
	return nil
}

func (mw *loggingMiddleware) ActivatePromocode(ctx context.Context, telegramID int64, code string) (*promocode.Promocode, error) {
	log := mw.log.With(
		zap.String("action", "activate_promocode"),
		zap.Int64("telegram_id", telegramID),
		zap.String("code", code),
	)

	p, err := mw.next.ActivatePromocode(ctx, telegramID, code)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("promocode activated", zap.Int("duration", p.Duration))
	return p, nil
}

func (mw *loggingMiddleware) CreatePromocode(duration int) (*promocode.Promocode, error) {
	log := mw.log.With(
		zap.String("action", "create_promocode"),
		zap.Int("duration", duration),
	)

	p, err := mw.next.CreatePromocode(duration)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("promocode created", zap.String("code", p.Code))
	return p, nil
}

func (mw *loggingMiddleware) DeletePromocode(code string) error {
	log := mw.log.With(
		zap.String("action", "delete_promocode"),
		zap.String("code", code),
	)

	if err := mw.next.DeletePromocode(code); err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("promocode deleted")
	return nil
}

func (mw *loggingMiddleware) Promocodes() ([]*promocode.Promocode, error) {
	return mw.next.Promocodes()
}

func (mw *loggingMiddleware) AddServer(ctx context.Context, name string, host string, subscription string, maxClients int) (*server.Server, error) {
	log := mw.log.With(
		zap.String("action", "add_server"),
		zap.String("name", name),
	)

	s, err := mw.next.AddServer(ctx, name, host, subscription, maxClients)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("server added", zap.Bool("online", s.Online))
	return s, nil
}

func (mw *loggingMiddleware) DeleteServer(name string) error {
	log := mw.log.With(
		zap.String("action", "delete_server"),
		zap.String("name", name),
	)

	if err := mw.next.DeleteServer(name); err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("server deleted")
	return nil
}

func (mw *loggingMiddleware) Servers() ([]*server.Server, error) {
	return mw.next.Servers()
}

func (mw *loggingMiddleware) PingServer(ctx context.Context, name string) (time.Duration, error) {
	log := mw.log.With(
		zap.String("action", "ping_server"),
		zap.String("name", name),
	)

	latency, err := mw.next.PingServer(ctx, name)
	if err != nil {
		log.Error(err.Error())
		return 0, err
	}

	return latency, nil
}

func (mw *loggingMiddleware) Statistics(ctx context.Context) (*Statistics, error) {
	stats, err := mw.next.Statistics(ctx)
	if err != nil {
		mw.log.Error(err.Error(), zap.String("action", "statistics"))
		return nil, err
	}

	return stats, nil
}

func (mw *loggingMiddleware) SetMaintenance(active bool) {
	mw.log.Info("maintenance switched",
		zap.String("action", "set_maintenance"),
		zap.Bool("active", active),
	)

	mw.next.SetMaintenance(active)
}

func (mw *loggingMiddleware) Maintenance() bool {
	return mw.next.Maintenance()
}

func (mw *loggingMiddleware) SetNotifier(n Notifier) {
	mw.next.SetNotifier(n)
}

func (mw *loggingMiddleware) Handler() (EventHandler, error) {
	return mw, nil
}

func (mw *loggingMiddleware) UserRegisteredHandler(e *user.UserRegisteredEvent) error {
	log := mw.log.With(
		zap.String("event", e.EventName()),
		zap.String("user_id", e.UserID.String()),
	)

	handler, err := mw.next.Handler()
	if err != nil {
		return err
	}

	if err := handler.UserRegisteredHandler(e); err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("user stored")
	return nil
}

func (mw *loggingMiddleware) TransactionCompletedHandler(e *payment.TransactionCompletedEvent) error {
	log := mw.log.With(
		zap.String("event", e.EventName()),
		zap.String("transaction_id", e.TransactionID.String()),
	)

	handler, err := mw.next.Handler()
	if err != nil {
		return err
	}

	if err := handler.TransactionCompletedHandler(e); err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("subscription provisioned")
	return nil
}

func (mw *loggingMiddleware) TransactionCanceledHandler(e *payment.TransactionCanceledEvent) error {
	log := mw.log.With(
		zap.String("event", e.EventName()),
		zap.String("transaction_id", e.TransactionID.String()),
	)

	handler, err := mw.next.Handler()
	if err != nil {
		return err
	}

	if err := handler.TransactionCanceledHandler(e); err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("transaction canceled")
	return nil
}
