package payment

import (
	"time"
)

type EventName int

const (
	TransactionCompleted EventName = iota
	TransactionCanceled
	UnknownEvent EventName = -1
)

func ParseEventName(name string) EventName {
	switch name {
	case "transaction_completed":
		return TransactionCompleted
	case "transaction_canceled":
		return TransactionCanceled
	default:
		return UnknownEvent
	}
}

func (name EventName) String() string {
	switch name {
	case TransactionCompleted:
		return "transaction_completed"
	case TransactionCanceled:
		return "transaction_canceled"
	default:
		return "unknown"
	}
}

type TransactionCompletedEvent struct {
	TransactionID TransactionID `json:"transaction_id"`
	Transaction   Transaction   `json:"transaction"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

func NewTransactionCompletedEvent(t *Transaction) *TransactionCompletedEvent {
	return &TransactionCompletedEvent{
		TransactionID: t.ID,
		Transaction:   *t,
		OccurredAt:    time.Now(),
	}
}

func (e *TransactionCompletedEvent) EventName() string {
	return TransactionCompleted.String()
}

func (e *TransactionCompletedEvent) Topic() string {
	return "shop.payments." + e.TransactionID.String() + ".completed"
}

type TransactionCanceledEvent struct {
	TransactionID TransactionID `json:"transaction_id"`
	Transaction   Transaction   `json:"transaction"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

func NewTransactionCanceledEvent(t *Transaction) *TransactionCanceledEvent {
	return &TransactionCanceledEvent{
		TransactionID: t.ID,
		Transaction:   *t,
		OccurredAt:    time.Now(),
	}
}

func (e *TransactionCanceledEvent) EventName() string {
	return TransactionCanceled.String()
}

func (e *TransactionCanceledEvent) Topic() string {
	return "shop.payments." + e.TransactionID.String() + ".canceled"
}
