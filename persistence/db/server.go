package db

import (
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/miravpn/shop/conf"
	"github.com/miravpn/shop/server"
)

func NewServerRepository(cfg conf.Persistence) (server.Repository, error) {
	filename := cfg.File()
	if cfg.InMem {
		filename = "file::memory:?cache=shared"
	}

	db, err := gorm.Open(sqlite.Open(filename), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	db.AutoMigrate(
		&Server{},
	)

	repo := new(serverRepository)
	repo.db = db
	return repo, nil
}

type Server struct {
	Name           string `gorm:"primaryKey"`
	Host           string
	Subscription   string
	MaxClients     int
	CurrentClients int
	Location       string
	Online         bool
	DataModel
}

func NewServer(s *server.Server) *Server {
	return &Server{
		Name:           s.Name,
		Host:           s.Host,
		Subscription:   s.Subscription,
		MaxClients:     s.MaxClients,
		CurrentClients: s.CurrentClients,
		Location:       s.Location,
		Online:         s.Online,
		DataModel: DataModel{
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		},
	}
}

func (s *Server) reconstitute() *server.Server {
	return &server.Server{
		Name:           s.Name,
		Host:           s.Host,
		Subscription:   s.Subscription,
		MaxClients:     s.MaxClients,
		CurrentClients: s.CurrentClients,
		Location:       s.Location,
		Online:         s.Online,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

type serverRepository struct {
	db *gorm.DB
}

func (repo *serverRepository) Store(s *server.Server) error {
	srv := NewServer(s)

	return repo.db.Save(srv).Error
}

func (repo *serverRepository) Delete(name string) error {
	result := repo.db.Delete(&Server{}, "name = ?", name)
	if err := result.Error; err != nil {
		return err
	}

	if result.RowsAffected == 0 {
		return server.ErrServerNotFound
	}

	return nil
}

func (repo *serverRepository) ListAll() ([]*server.Server, error) {
	var servers []*Server

	result := repo.db.Find(&servers)
	if err := result.Error; err != nil {
		return nil, err
	}

	results := make([]*server.Server, 0)
	for _, s := range servers {
		results = append(results, s.reconstitute())
	}

	return results, nil
}

func (repo *serverRepository) Find(name string) (*server.Server, error) {
	var s *Server

	result := repo.db.Take(&s, "name = ?", name)
	if err := result.Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, server.ErrServerNotFound
		}

		return nil, err
	}

	return s.reconstitute(), nil
}

func (repo *serverRepository) Close() error {
	return nil
}
