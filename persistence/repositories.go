package persistence

import (
	"errors"

	"github.com/miravpn/shop/conf"
	"github.com/miravpn/shop/payment"
	"github.com/miravpn/shop/persistence/db"
	"github.com/miravpn/shop/persistence/inmem"
	"github.com/miravpn/shop/persistence/kv"
	"github.com/miravpn/shop/promocode"
	"github.com/miravpn/shop/server"
	"github.com/miravpn/shop/session"
	"github.com/miravpn/shop/user"
)

func NewUserRepository(cfg conf.Persistence) (user.Repository, error) {
	switch cfg.Driver {
	case conf.SQLite:
		return db.NewUserRepository(cfg)
	case conf.InMem:
		return inmem.NewUserRepository()
	default:
		return nil, errors.New("driver not supported")
	}
}

func NewPromocodeRepository(cfg conf.Persistence) (promocode.Repository, error) {
	switch cfg.Driver {
	case conf.SQLite:
		return db.NewPromocodeRepository(cfg)
	case conf.InMem:
		return inmem.NewPromocodeRepository()
	default:
		return nil, errors.New("driver not supported")
	}
}

func NewServerRepository(cfg conf.Persistence) (server.Repository, error) {
	switch cfg.Driver {
	case conf.SQLite:
		return db.NewServerRepository(cfg)
	case conf.InMem:
		return inmem.NewServerRepository()
	default:
		return nil, errors.New("driver not supported")
	}
}

func NewTransactionRepository(cfg conf.Persistence) (payment.Repository, error) {
	switch cfg.Driver {
	case conf.SQLite:
		return db.NewTransactionRepository(cfg)
	case conf.InMem:
		return inmem.NewTransactionRepository()
	default:
		return nil, errors.New("driver not supported")
	}
}

func NewSessionStore(cfg conf.Sessions) (session.Store, error) {
	switch cfg.Driver {
	case conf.BadgerDB:
		return kv.NewSessionStore(cfg)
	case conf.SessionInMem:
		return inmem.NewSessionStore(cfg.TTL)
	default:
		return nil, errors.New("driver not supported")
	}
}
