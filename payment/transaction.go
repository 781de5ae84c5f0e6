package payment

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/miravpn/shop/events"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
)

type Status int

const (
	Pending Status = iota
	Completed
	Canceled
	Refunded
)

func ParseStatus(status string) (Status, error) {
	switch strings.ToLower(status) {
	case "pending":
		return Pending, nil
	case "completed":
		return Completed, nil
	case "canceled":
		return Canceled, nil
	case "refunded":
		return Refunded, nil
	default:
		return -1, errors.New("invalid status")
	}
}

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Completed:
		return "completed"
	case Canceled:
		return "canceled"
	case Refunded:
		return "refunded"
	default:
		return "unknown"
	}
}

func (s *Status) MarshalJSON() ([]byte, error) {
	jsonStr := `"` + s.String() + `"`
	return []byte(jsonStr), nil
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	status, err := ParseStatus(raw)
	if err != nil {
		return err
	}

	*s = status
	return nil
}

type TransactionID ulid.ULID

func MakeTransactionID() TransactionID {
	return TransactionID(ulid.Make())
}

func ParseTransactionID(id string) (TransactionID, error) {
	tid, err := ulid.Parse(id)
	if err != nil {
		return TransactionID{}, err
	}
	return TransactionID(tid), nil
}

func (id TransactionID) String() string {
	return ulid.ULID(id).String()
}

func (id TransactionID) Time() time.Time {
	ms := ulid.ULID(id).Time()
	return ulid.Time(ms)
}

func (id *TransactionID) MarshalJSON() ([]byte, error) {
	jsonStr := `"` + id.String() + `"`
	return []byte(jsonStr), nil
}

func (id *TransactionID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	tid, err := ParseTransactionID(s)
	if err != nil {
		return err
	}

	*id = tid
	return nil
}

// Transaction records one gateway payment. Subscription holds the packed
// SubscriptionData the purchase was made for, so the completed event alone
// is enough to provision.
type Transaction struct {
	ID           TransactionID `json:"id"`
	TelegramID   int64         `json:"telegram_id"`
	PaymentID    string        `json:"payment_id"`
	Gateway      string        `json:"gateway"`
	Subscription string        `json:"subscription"`
	Status       Status        `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`

	events.EventStore `json:"-"`
}

func NewTransaction(telegramID int64, paymentID string, gateway string, subscription string) *Transaction {
	id := MakeTransactionID()

	return &Transaction{
		ID:           id,
		TelegramID:   telegramID,
		PaymentID:    paymentID,
		Gateway:      gateway,
		Subscription: subscription,
		Status:       Pending,
		CreatedAt:    id.Time(),

		EventStore: events.NewEventStore(),
	}
}

func (t *Transaction) Complete() {
	t.Status = Completed
	t.UpdatedAt = time.Now()

	e := NewTransactionCompletedEvent(t)
	t.AddEvent(e)
}

func (t *Transaction) Cancel() {
	t.Status = Canceled
	t.UpdatedAt = time.Now()

	e := NewTransactionCanceledEvent(t)
	t.AddEvent(e)
}

type Repository interface {
	// Command

	Store(t *Transaction) error

	// Query

	Find(id TransactionID) (*Transaction, error)
	FindByPaymentID(paymentID string) (*Transaction, error)
	ListByTelegramID(telegramID int64) ([]*Transaction, error)
	CountByStatus(status Status) (int64, error)

	Close() error
}
