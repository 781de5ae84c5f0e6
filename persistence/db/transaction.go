package db

import (
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/miravpn/shop/conf"
	"github.com/miravpn/shop/events"
	"github.com/miravpn/shop/payment"
)

func NewTransactionRepository(cfg conf.Persistence) (payment.Repository, error) {
	filename := cfg.File()
	if cfg.InMem {
		filename = "file::memory:?cache=shared"
	}

	db, err := gorm.Open(sqlite.Open(filename), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	db.AutoMigrate(
		&Transaction{},
	)

	repo := new(transactionRepository)
	repo.db = db
	return repo, nil
}

type Transaction struct {
	ID           string `gorm:"primaryKey"`
	TelegramID   int64  `gorm:"index"`
	PaymentID    string `gorm:"uniqueIndex"`
	Gateway      string
	Subscription string
	Status       string `gorm:"index"`
	DataModel
}

func NewTransaction(t *payment.Transaction) *Transaction {
	return &Transaction{
		ID:           t.ID.String(),
		TelegramID:   t.TelegramID,
		PaymentID:    t.PaymentID,
		Gateway:      t.Gateway,
		Subscription: t.Subscription,
		Status:       t.Status.String(),
		DataModel: DataModel{
			CreatedAt: t.CreatedAt,
			UpdatedAt: t.UpdatedAt,
		},
	}
}

func (t *Transaction) reconstitute() (*payment.Transaction, error) {
	id, err := payment.ParseTransactionID(t.ID)
	if err != nil {
		return nil, err
	}

	status, err := payment.ParseStatus(t.Status)
	if err != nil {
		return nil, err
	}

	return &payment.Transaction{
		ID:           id,
		TelegramID:   t.TelegramID,
		PaymentID:    t.PaymentID,
		Gateway:      t.Gateway,
		Subscription: t.Subscription,
		Status:       status,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,

		EventStore: events.NewEventStore(),
	}, nil
}

type transactionRepository struct {
	db *gorm.DB
}

func (repo *transactionRepository) Store(t *payment.Transaction) error {
	transaction := NewTransaction(t)

	return repo.db.Save(transaction).Error
}

func (repo *transactionRepository) Find(id payment.TransactionID) (*payment.Transaction, error) {
	var t *Transaction

	result := repo.db.Take(&t, "id = ?", id.String())
	if err := result.Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payment.ErrTransactionNotFound
		}

		return nil, err
	}

	return t.reconstitute()
}

func (repo *transactionRepository) FindByPaymentID(paymentID string) (*payment.Transaction, error) {
	var t *Transaction

	result := repo.db.Take(&t, "payment_id = ?", paymentID)
	if err := result.Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payment.ErrTransactionNotFound
		}

		return nil, err
	}

	return t.reconstitute()
}

func (repo *transactionRepository) ListByTelegramID(telegramID int64) ([]*payment.Transaction, error) {
	var transactions []*Transaction

	result := repo.db.
		Order("created_at DESC").
		Find(&transactions, "telegram_id = ?", telegramID)

	if err := result.Error; err != nil {
		return nil, err
	}

	results := make([]*payment.Transaction, 0)
	for _, t := range transactions {
		transaction, err := t.reconstitute()
		if err != nil {
			return nil, err
		}

		results = append(results, transaction)
	}

	return results, nil
}

func (repo *transactionRepository) CountByStatus(status payment.Status) (int64, error) {
	var count int64

	result := repo.db.Model(&Transaction{}).
		Where("status = ?", status.String()).
		Count(&count)

	if err := result.Error; err != nil {
		return 0, err
	}

	return count, nil
}

func (repo *transactionRepository) Close() error {
	return nil
}
