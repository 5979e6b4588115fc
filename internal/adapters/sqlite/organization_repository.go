package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/regulumai/regulum/internal/adapters/sqlite/gormsqlite"
	"github.com/regulumai/regulum/internal/core/domain"
)

type organizationModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Industry  string    `gorm:"column:industry"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (organizationModel) TableName() string {
	return "organizations"
}

type OrganizationRepository struct {
	db *gormsqlite.DB
}

func NewOrganizationRepository(db *gormsqlite.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) FindByID(ctx context.Context, id string) (domain.Organization, error) {
	var model organizationModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("id = ?", id).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Organization{}, domain.ErrNotFound
		}
		return domain.Organization{}, fmt.Errorf("find organization: %w", err)
	}
	return toOrganizationDomain(model), nil
}

func (r *OrganizationRepository) FindByName(ctx context.Context, name string) (domain.Organization, error) {
	var model organizationModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("name = ?", name).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Organization{}, domain.ErrNotFound
		}
		return domain.Organization{}, fmt.Errorf("find organization by name: %w", err)
	}
	return toOrganizationDomain(model), nil
}

func (r *OrganizationRepository) Create(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	model := organizationModel{
		ID:        org.ID,
		Name:      org.Name,
		Industry:  org.Industry,
		CreatedAt: org.CreatedAt,
	}
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.Organization{}, fmt.Errorf("create organization: %w", err)
	}
	return toOrganizationDomain(model), nil
}

func toOrganizationDomain(model organizationModel) domain.Organization {
	return domain.Organization{
		ID:        model.ID,
		Name:      model.Name,
		Industry:  model.Industry,
		CreatedAt: model.CreatedAt,
	}
}
