package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"
)

var (
	ErrServerNotFound = errors.New("server not found")
	ErrServerExists   = errors.New("server already exists")
	ErrInvalidHost    = errors.New("invalid host")
	ErrPingFailed     = errors.New("ping failed")
)

// Server is a panel node clients can be placed on.
type Server struct {
	Name           string    `json:"name"`
	Host           string    `json:"host"`
	Subscription   string    `json:"subscription"`
	MaxClients     int       `json:"max_clients"`
	CurrentClients int       `json:"current_clients"`
	Location       string    `json:"location,omitempty"`
	Online         bool      `json:"online"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func New(name string, host string, subscription string, maxClients int) (*Server, error) {
	if !ValidHost(host) {
		return nil, ErrInvalidHost
	}

	now := time.Now()

	return &Server{
		Name:         name,
		Host:         host,
		Subscription: subscription,
		MaxClients:   maxClients,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *Server) Full() bool {
	return s.CurrentClients >= s.MaxClients
}

// ValidHost accepts an absolute URL or a bare IP address.
func ValidHost(host string) bool {
	if u, err := url.Parse(host); err == nil && u.Scheme != "" && u.Host != "" {
		return true
	}

	return net.ParseIP(host) != nil
}

// Ping measures HTTP reachability of a host.
func Ping(ctx context.Context, host string, timeout time.Duration) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host, nil)
	if err != nil {
		return 0, err
	}

	start := time.Now()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, ErrPingFailed
	}

	return time.Since(start), nil
}

type Repository interface {
	// Command

	Store(s *Server) error
	Delete(name string) error

	// Query

	ListAll() ([]*Server, error)
	Find(name string) (*Server, error)

	Close() error
}
