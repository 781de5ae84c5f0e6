package db

import (
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/miravpn/shop/conf"
	"github.com/miravpn/shop/events"
	"github.com/miravpn/shop/user"
)

func NewUserRepository(cfg conf.Persistence) (user.Repository, error) {
	filename := cfg.File()
	if cfg.InMem {
		filename = "file::memory:?cache=shared"
	}

	db, err := gorm.Open(sqlite.Open(filename), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	db.AutoMigrate(
		&User{},
	)

	repo := new(userRepository)
	repo.db = db
	return repo, nil
}

type User struct {
	ID         string `gorm:"primaryKey"`
	TelegramID int64  `gorm:"uniqueIndex"`
	FirstName  string
	Username   string
	VPNID      string `gorm:"uniqueIndex"`
	DataModel
}

func NewUser(u *user.User) *User {
	return &User{
		ID:         u.ID.String(),
		TelegramID: u.TelegramID,
		FirstName:  u.FirstName,
		Username:   u.Username,
		VPNID:      u.VPNID,
		DataModel: DataModel{
			CreatedAt: u.CreatedAt,
			UpdatedAt: u.UpdatedAt,
		},
	}
}

func (u *User) reconstitute() *user.User {
	id, _ := user.ParseID(u.ID)

	return &user.User{
		ID:         id,
		TelegramID: u.TelegramID,
		FirstName:  u.FirstName,
		Username:   u.Username,
		VPNID:      u.VPNID,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,

		EventStore: events.NewEventStore(),
	}
}

type userRepository struct {
	db *gorm.DB
}

func (repo *userRepository) Store(u *user.User) error {
	user := NewUser(u) // convert Domain to Data model

	return repo.db.Save(user).Error
}

func (repo *userRepository) ListAll() ([]*user.User, error) {
	var users []*User

	result := repo.db.Find(&users)
	if err := result.Error; err != nil {
		return nil, err
	}

	results := make([]*user.User, 0)
	for _, u := range users {
		results = append(results, u.reconstitute())
	}

	return results, nil
}

func (repo *userRepository) Count() (int64, error) {
	var count int64

	result := repo.db.Model(&User{}).Count(&count)
	if err := result.Error; err != nil {
		return 0, err
	}

	return count, nil
}

func (repo *userRepository) Find(id user.UserID) (*user.User, error) {
	var u *User

	result := repo.db.Take(&u, "id = ?", id.String())
	if err := result.Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}

		return nil, err
	}

	return u.reconstitute(), nil
}

func (repo *userRepository) FindByTelegramID(telegramID int64) (*user.User, error) {
	var u *User

	result := repo.db.Take(&u, "telegram_id = ?", telegramID)
	if err := result.Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}

		return nil, err
	}

	return u.reconstitute(), nil
}

func (repo *userRepository) FindByVPNID(vpnID string) (*user.User, error) {
	var u *User

	result := repo.db.Take(&u, "vpn_id = ?", vpnID)
	if err := result.Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}

		return nil, err
	}

	return u.reconstitute(), nil
}

func (repo *userRepository) Close() error {
	return nil
}
