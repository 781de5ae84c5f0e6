package db

import (
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/miravpn/shop/conf"
	"github.com/miravpn/shop/promocode"
)

func NewPromocodeRepository(cfg conf.Persistence) (promocode.Repository, error) {
	filename := cfg.File()
	if cfg.InMem {
		filename = "file::memory:?cache=shared"
	}

	db, err := gorm.Open(sqlite.Open(filename), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	db.AutoMigrate(
		&Promocode{},
	)

	repo := new(promocodeRepository)
	repo.db = db
	return repo, nil
}

type Promocode struct {
	Code        string `gorm:"primaryKey"`
	Duration    int
	Activated   bool
	ActivatedBy int64
	DataModel
}

func NewPromocode(p *promocode.Promocode) *Promocode {
	return &Promocode{
		Code:        p.Code,
		Duration:    p.Duration,
		Activated:   p.Activated,
		ActivatedBy: p.ActivatedBy,
		DataModel: DataModel{
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		},
	}
}

func (p *Promocode) reconstitute() *promocode.Promocode {
	return &promocode.Promocode{
		Code:        p.Code,
		Duration:    p.Duration,
		Activated:   p.Activated,
		ActivatedBy: p.ActivatedBy,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type promocodeRepository struct {
	db *gorm.DB
}

func (repo *promocodeRepository) Store(p *promocode.Promocode) error {
	code := NewPromocode(p)

	return repo.db.Save(code).Error
}

func (repo *promocodeRepository) Delete(code string) error {
	result := repo.db.Delete(&Promocode{}, "code = ?", code)
	if err := result.Error; err != nil {
		return err
	}

	if result.RowsAffected == 0 {
		return promocode.ErrPromocodeNotFound
	}

	return nil
}

func (repo *promocodeRepository) ListAll() ([]*promocode.Promocode, error) {
	var codes []*Promocode

	result := repo.db.Find(&codes)
	if err := result.Error; err != nil {
		return nil, err
	}

	results := make([]*promocode.Promocode, 0)
	for _, p := range codes {
		results = append(results, p.reconstitute())
	}

	return results, nil
}

func (repo *promocodeRepository) CountActivated() (int64, error) {
	var count int64

	result := repo.db.Model(&Promocode{}).
		Where("activated = ?", true).
		Count(&count)

	if err := result.Error; err != nil {
		return 0, err
	}

	return count, nil
}

func (repo *promocodeRepository) Find(code string) (*promocode.Promocode, error) {
	var p *Promocode

	result := repo.db.Take(&p, "code = ?", code)
	if err := result.Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, promocode.ErrPromocodeNotFound
		}

		return nil, err
	}

	return p.reconstitute(), nil
}

func (repo *promocodeRepository) Close() error {
	return nil
}
