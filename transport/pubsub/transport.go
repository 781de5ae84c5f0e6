package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go/micro"

	"github.com/miravpn/shop/events"
	"github.com/miravpn/shop/payment"
	"github.com/miravpn/shop/user"
)

// EventHandler turns bus messages back into typed domain events and feeds
// them to the event endpoint. Topics look like shop.users.<id>.registered
// or shop.payments.<id>.completed.
func EventHandler(endpoint endpoint.Endpoint) events.MessageHandler {
	return func(ctx context.Context, msg *events.Message) error {
		ss := strings.Split(msg.Topic, ".")
		if len(ss) != 4 || ss[0] != "shop" {
			return errors.New("invalid event")
		}

		var event any

		switch ss[1] {
		case "users":
			name := user.ParseEventName("user_" + ss[3])

			switch name {
			case user.UserRegistered:
				var e *user.UserRegisteredEvent
				if err := json.Unmarshal(msg.Data, &e); err != nil {
					return err
				}
				event = e

			default:
				return errors.New("invalid event")
			}

		case "payments":
			name := payment.ParseEventName("transaction_" + ss[3])

			switch name {
			case payment.TransactionCompleted:
				var e *payment.TransactionCompletedEvent
				if err := json.Unmarshal(msg.Data, &e); err != nil {
					return err
				}
				event = e

			case payment.TransactionCanceled:
				var e *payment.TransactionCanceledEvent
				if err := json.Unmarshal(msg.Data, &e); err != nil {
					return err
				}
				event = e

			default:
				return errors.New("invalid event")
			}

		default:
			return errors.New("invalid event")
		}

		_, err := endpoint(ctx, event)
		return err
	}
}

func StatisticsHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		ctx := context.Background()

		resp, err := endpoint(ctx, nil)
		if err != nil {
			r.Error("417", err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func CheckHealthHandler() micro.HandlerFunc {
	return func(r micro.Request) {
		r.RespondJSON(map[string]string{"status": "ok"})
	}
}
