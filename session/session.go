// Package session keeps short-lived dialog state for bot conversations,
// like "waiting for a promocode" or a notification draft. State expires on
// its own; losing it only resets the dialog.
package session

import (
	"errors"
)

var (
	ErrSessionNotFound = errors.New("session not found")
)

type State struct {
	Name string            `json:"name"`
	Data map[string]string `json:"data,omitempty"`
}

func (s State) Value(key string) string {
	if s.Data == nil {
		return ""
	}

	return s.Data[key]
}

func (s *State) SetValue(key string, value string) {
	if s.Data == nil {
		s.Data = make(map[string]string)
	}

	s.Data[key] = value
}

type Store interface {
	Set(telegramID int64, state State) error
	Get(telegramID int64) (*State, error)
	Clear(telegramID int64) error

	Close() error
}
