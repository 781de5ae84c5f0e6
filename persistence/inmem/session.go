package inmem

import (
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/miravpn/shop/session"
)

func NewSessionStore(ttl time.Duration) (session.Store, error) {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	store := new(sessionStore)
	store.cache = cache.New(ttl, 2*ttl)
	return store, nil
}

type sessionStore struct {
	cache *cache.Cache
}

func (store *sessionStore) Set(telegramID int64, state session.State) error {
	store.cache.SetDefault(sessionKey(telegramID), state)
	return nil
}

func (store *sessionStore) Get(telegramID int64) (*session.State, error) {
	v, ok := store.cache.Get(sessionKey(telegramID))
	if !ok {
		return nil, session.ErrSessionNotFound
	}

	state, ok := v.(session.State)
	if !ok {
		return nil, session.ErrSessionNotFound
	}

	return &state, nil
}

func (store *sessionStore) Clear(telegramID int64) error {
	store.cache.Delete(sessionKey(telegramID))
	return nil
}

func (store *sessionStore) Close() error {
	store.cache.Flush()
	return nil
}

func sessionKey(telegramID int64) string {
	return strconv.FormatInt(telegramID, 10)
}
