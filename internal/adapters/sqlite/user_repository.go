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

type userModel struct {
	ID             string    `gorm:"column:id;primaryKey"`
	Email          string    `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash   string    `gorm:"column:password_hash;not null"`
	Name           string    `gorm:"column:name;not null"`
	Role           string    `gorm:"column:role;not null"`
	OrganizationID *string   `gorm:"column:organization_id"`
	CreatedAt      time.Time `gorm:"column:created_at;not null"`
}

func (userModel) TableName() string {
	return "users"
}

type UserRepository struct {
	db *gormsqlite.DB
}

func NewUserRepository(db *gormsqlite.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts the user, rejecting a duplicate email with
// domain.ErrEmailTaken. The existence probe and the insert run in one write
// transaction, so the unique index never fires under normal operation.
func (r *UserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	model := toUserModel(user)
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var count int64
		if err := tx.Model(&userModel{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrEmailTaken
		}
		return tx.Create(&model).Error
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return toUserDomain(model), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	var model userModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("email = ?", email).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return toUserDomain(model), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (domain.User, error) {
	var model userModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("id = ?", id).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return toUserDomain(model), nil
}

func (r *UserRepository) UpdateName(ctx context.Context, id, name string) (domain.User, error) {
	var model userModel
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Model(&userModel{}).Where("id = ?", id).Update("name", name)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("id = ?", id).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("update user name: %w", err)
	}
	return toUserDomain(model), nil
}

func toUserModel(user domain.User) userModel {
	return userModel{
		ID:             user.ID,
		Email:          user.Email,
		PasswordHash:   user.PasswordHash,
		Name:           user.Name,
		Role:           user.Role,
		OrganizationID: optional(user.OrganizationID),
		CreatedAt:      user.CreatedAt,
	}
}

func toUserDomain(model userModel) domain.User {
	return domain.User{
		ID:             model.ID,
		Email:          model.Email,
		PasswordHash:   model.PasswordHash,
		Name:           model.Name,
		Role:           model.Role,
		OrganizationID: deref(model.OrganizationID),
		CreatedAt:      model.CreatedAt,
	}
}

// optional maps an empty string to NULL so foreign keys stay satisfiable.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
