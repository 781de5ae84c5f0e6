package user

type Repository interface {
	// Command

	Store(u *User) error

	// Query

	ListAll() ([]*User, error)
	Count() (int64, error)
	Find(id UserID) (*User, error)
	FindByTelegramID(telegramID int64) (*User, error)
	FindByVPNID(vpnID string) (*User, error)

	Close() error
}
