package promocode

import (
	"crypto/rand"
	"errors"
	"time"
)

var (
	ErrPromocodeNotFound  = errors.New("promocode not found")
	ErrPromocodeActivated = errors.New("promocode already activated")
)

// Ambiguous characters (0/O, 1/I) are excluded so codes survive being typed
// from a phone screen.
const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const codeLength = 8

// Promocode grants a subscription period once. Activation is one-shot and
// can be rolled back if provisioning on the panel fails afterwards.
type Promocode struct {
	Code        string    `json:"code"`
	Duration    int       `json:"duration"` // days
	Activated   bool      `json:"activated"`
	ActivatedBy int64     `json:"activated_by,omitempty"` // telegram id
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func New(duration int) *Promocode {
	now := time.Now()

	return &Promocode{
		Code:      generateCode(),
		Duration:  duration,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (p *Promocode) Activate(telegramID int64) error {
	if p.Activated {
		return ErrPromocodeActivated
	}

	p.Activated = true
	p.ActivatedBy = telegramID
	p.UpdatedAt = time.Now()
	return nil
}

// Deactivate rolls an activation back after a failed provisioning, making
// the code usable again.
func (p *Promocode) Deactivate() {
	p.Activated = false
	p.ActivatedBy = 0
	p.UpdatedAt = time.Now()
}

func generateCode() string {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		panic(err.Error())
	}

	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}

	return string(buf)
}

type Repository interface {
	// Command

	Store(p *Promocode) error
	Delete(code string) error

	// Query

	ListAll() ([]*Promocode, error)
	CountActivated() (int64, error)
	Find(code string) (*Promocode, error)

	Close() error
}
