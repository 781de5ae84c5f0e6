package user

import (
	"time"
)

type EventName int

const (
	UserRegistered EventName = iota
	UnknownEvent   EventName = -1
)

func ParseEventName(name string) EventName {
	switch name {
	case "user_registered":
		return UserRegistered
	default:
		return UnknownEvent
	}
}

func (name EventName) String() string {
	switch name {
	case UserRegistered:
		return "user_registered"
	default:
		return "unknown"
	}
}

type UserRegisteredEvent struct {
	UserID     UserID    `json:"user_id"`
	User       User      `json:"user"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewUserRegisteredEvent(u *User) *UserRegisteredEvent {
	return &UserRegisteredEvent{
		UserID:     u.ID,
		User:       *u,
		OccurredAt: time.Now(),
	}
}

func (e *UserRegisteredEvent) EventName() string {
	return UserRegistered.String()
}

func (e *UserRegisteredEvent) Topic() string {
	return "shop.users." + e.UserID.String() + ".registered"
}
