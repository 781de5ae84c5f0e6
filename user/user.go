package user

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/miravpn/shop/events"
)

var (
	ErrUserNotFound = errors.New("user not found")
)

type UserID ulid.ULID // AggregateRoot

func MakeID() UserID {
	return UserID(ulid.Make())
}

func ParseID(id string) (UserID, error) {
	userID, err := ulid.Parse(id)
	if err != nil {
		return UserID{}, err
	}
	return UserID(userID), nil
}

func (id UserID) Bytes() []byte {
	return id[:]
}

func (id UserID) String() string {
	return ulid.ULID(id).String()
}

func (id UserID) Time() time.Time {
	ms := ulid.ULID(id).Time()
	return ulid.Time(ms)
}

func (id *UserID) MarshalJSON() ([]byte, error) {
	jsonStr := `"` + id.String() + `"`
	return []byte(jsonStr), nil
}

func (id *UserID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	userID, err := ParseID(s)
	if err != nil {
		return err
	}

	*id = userID
	return nil
}

// User is a Telegram user known to the shop. VPNID identifies the user's
// client on the panel side; the panel requires it to be a UUID.
type User struct {
	ID         UserID    `json:"id"`
	TelegramID int64     `json:"telegram_id"`
	FirstName  string    `json:"first_name"`
	Username   string    `json:"username"`
	VPNID      string    `json:"vpn_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	events.EventStore `json:"-"`
}

func NewUser(telegramID int64, firstName string, username string) *User {
	id := MakeID()

	u := &User{
		ID:         id,
		TelegramID: telegramID,
		FirstName:  firstName,
		Username:   username,
		VPNID:      uuid.NewString(),
		CreatedAt:  id.Time(),

		EventStore: events.NewEventStore(),
	}

	return u
}

func (u *User) Register() {
	u.UpdatedAt = time.Now()

	e := NewUserRegisteredEvent(u)
	u.AddEvent(e)
}

// Rename updates the Telegram profile fields when they drift from what the
// webhook reports.
func (u *User) Rename(firstName string, username string) bool {
	if u.FirstName == firstName && u.Username == username {
		return false
	}

	u.FirstName = firstName
	u.Username = username
	u.UpdatedAt = time.Now()
	return true
}
