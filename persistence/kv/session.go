// Package kv keeps bot dialog state in BadgerDB. Entries carry a TTL so
// abandoned dialogs evaporate without a cleanup job.
package kv

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/miravpn/shop/conf"
	"github.com/miravpn/shop/session"
)

func NewSessionStore(cfg conf.Sessions) (session.Store, error) {
	opts := badger.DefaultOptions(cfg.Host + "/sessions")
	opts = opts.WithLogger(nil)

	if cfg.InMem {
		opts = opts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	store := new(sessionStore)
	store.db = db
	store.ttl = cfg.TTL
	return store, nil
}

type sessionStore struct {
	db  *badger.DB
	ttl time.Duration
}

func (store *sessionStore) Set(telegramID int64, state session.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	return store.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(sessionKey(telegramID), data)
		if ttl := store.ttl; ttl > 0 {
			entry = entry.WithTTL(ttl)
		}

		return txn.SetEntry(entry)
	})
}

func (store *sessionStore) Get(telegramID int64) (*session.State, error) {
	var state *session.State

	err := store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(telegramID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return session.ErrSessionNotFound
			}

			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &state)
		})
	})

	if err != nil {
		return nil, err
	}

	return state, nil
}

func (store *sessionStore) Clear(telegramID int64) error {
	return store.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(sessionKey(telegramID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}

		return err
	})
}

func (store *sessionStore) Close() error {
	return store.db.Close()
}

func sessionKey(telegramID int64) []byte {
	return []byte("sessions:" + strconv.FormatInt(telegramID, 10))
}
