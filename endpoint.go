package shop

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"

	"github.com/miravpn/shop/payment"
	"github.com/miravpn/shop/user"
)

type EndpointSet struct {
	RegisterUser      endpoint.Endpoint
	User              endpoint.Endpoint
	SubscriptionKey   endpoint.Endpoint
	ClientData        endpoint.Endpoint
	ActivatePromocode endpoint.Endpoint
	CreatePromocode   endpoint.Endpoint
	DeletePromocode   endpoint.Endpoint
	Promocodes        endpoint.Endpoint
	AddServer         endpoint.Endpoint
	DeleteServer      endpoint.Endpoint
	Servers           endpoint.Endpoint
	PingServer        endpoint.Endpoint
	Statistics        endpoint.Endpoint
	Maintenance       endpoint.Endpoint
}

type RegisterUserRequest struct {
	TelegramID int64
	FirstName  string
	Username   string
}

func RegisterUserEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(RegisterUserRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		u, err := svc.RegisterUser(ctx, req.TelegramID, req.FirstName, req.Username)
		if err != nil {
			return nil, err
		}

		return u, nil
	}
}

func UserEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		telegramID, ok := request.(int64)
		if !ok {
			return nil, errors.New("invalid request")
		}

		u, err := svc.User(telegramID)
		if err != nil {
			return nil, err
		}

		return u, nil
	}
}

func SubscriptionKeyEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		telegramID, ok := request.(int64)
		if !ok {
			return nil, errors.New("invalid request")
		}

		key, err := svc.SubscriptionKey(telegramID)
		if err != nil {
			return nil, err
		}

		return key, nil
	}
}

func ClientDataEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		telegramID, ok := request.(int64)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := svc.ClientData(ctx, telegramID)
		if err != nil {
			return nil, err
		}

		return data, nil
	}
}

type ActivatePromocodeRequest struct {
	TelegramID int64
	Code       string
}

func ActivatePromocodeEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(ActivatePromocodeRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		p, err := svc.ActivatePromocode(ctx, req.TelegramID, req.Code)
		if err != nil {
			return nil, err
		}

		return p, nil
	}
}

func CreatePromocodeEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		duration, ok := request.(int)
		if !ok {
			return nil, errors.New("invalid request")
		}

		p, err := svc.CreatePromocode(duration)
		if err != nil {
			return nil, err
		}

		return p, nil
	}
}

func DeletePromocodeEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		code, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request")
		}

		if err := svc.DeletePromocode(code); err != nil {
			return nil, err
		}

		return nil, nil
	}
}

func PromocodesEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		promocodes, err := svc.Promocodes()
		if err != nil {
			return nil, err
		}

		return promocodes, nil
	}
}

type AddServerRequest struct {
	Name         string `json:"name"`
	Host         string `json:"host"`
	Subscription string `json:"subscription"`
	MaxClients   int    `json:"max_clients"`
}

func AddServerEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(AddServerRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		s, err := svc.AddServer(ctx, req.Name, req.Host, req.Subscription, req.MaxClients)
		if err != nil {
			return nil, err
		}

		return s, nil
	}
}

func DeleteServerEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		name, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request")
		}

		if err := svc.DeleteServer(name); err != nil {
			return nil, err
		}

		return nil, nil
	}
}

func ServersEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		servers, err := svc.Servers()
		if err != nil {
			return nil, err
		}

		return servers, nil
	}
}

func PingServerEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		name, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request")
		}

		latency, err := svc.PingServer(ctx, name)
		if err != nil {
			return nil, err
		}

		return latency, nil
	}
}

func StatisticsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		stats, err := svc.Statistics(ctx)
		if err != nil {
			return nil, err
		}

		return stats, nil
	}
}

func MaintenanceEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		active, ok := request.(bool)
		if !ok {
			return nil, errors.New("invalid request")
		}

		svc.SetMaintenance(active)
		return svc.Maintenance(), nil
	}
}

func EventEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		handler, err := svc.Handler()
		if err != nil {
			return nil, err
		}

		switch e := request.(type) {
		case *user.UserRegisteredEvent:
			err = handler.UserRegisteredHandler(e)
		case *payment.TransactionCompletedEvent:
			err = handler.TransactionCompletedHandler(e)
		case *payment.TransactionCanceledEvent:
			err = handler.TransactionCanceledHandler(e)
		default:
			err = errors.New("invalid request")
		}

		return nil, err
	}
}
