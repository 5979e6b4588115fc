package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/regulumai/regulum/internal/adapters/sqlite/gormsqlite"
	"github.com/regulumai/regulum/internal/core/domain"
)

type checkModel struct {
	ID             string    `gorm:"column:id;primaryKey"`
	Title          string    `gorm:"column:title;not null"`
	Description    string    `gorm:"column:description"`
	DocumentText   string    `gorm:"column:document_text"`
	Status         string    `gorm:"column:status;not null"`
	RiskLevel      string    `gorm:"column:risk_level"`
	Result         string    `gorm:"column:result"`
	AIAnalysis     string    `gorm:"column:ai_analysis"`
	UserID         string    `gorm:"column:user_id;not null;index"`
	OrganizationID *string   `gorm:"column:organization_id"`
	CreatedAt      time.Time `gorm:"column:created_at;not null"`
	UpdatedAt      time.Time `gorm:"column:updated_at;not null"`
}

func (checkModel) TableName() string {
	return "compliance_checks"
}

type CheckRepository struct {
	db *gormsqlite.DB
}

func NewCheckRepository(db *gormsqlite.DB) *CheckRepository {
	return &CheckRepository{db: db}
}

func (r *CheckRepository) Create(ctx context.Context, check domain.ComplianceCheck) (domain.ComplianceCheck, error) {
	model := toCheckModel(check)
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.ComplianceCheck{}, fmt.Errorf("create check: %w", err)
	}
	return toCheckDomain(model), nil
}

// FindOwned scopes the lookup by owner so a foreign check and a missing check
// are indistinguishable to the caller.
func (r *CheckRepository) FindOwned(ctx context.Context, id, userID string) (domain.ComplianceCheck, error) {
	var model checkModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("id = ? AND user_id = ?", id, userID).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ComplianceCheck{}, domain.ErrNotFound
		}
		return domain.ComplianceCheck{}, fmt.Errorf("find check: %w", err)
	}
	return toCheckDomain(model), nil
}

func (r *CheckRepository) ListOwned(ctx context.Context, userID string) ([]domain.ComplianceCheck, error) {
	var models []checkModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("user_id = ?", userID).Order("created_at DESC").Find(&models).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}

	checks := make([]domain.ComplianceCheck, 0, len(models))
	for _, model := range models {
		checks = append(checks, toCheckDomain(model))
	}
	return checks, nil
}

func (r *CheckRepository) UpdateStatus(ctx context.Context, id string, status domain.CheckStatus) error {
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Model(&checkModel{}).Where("id = ?", id).Updates(map[string]any{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("update check status: %w", err)
	}
	return nil
}

// SaveResult persists the analysis outcome in one write and returns the
// updated row. Last write wins when analyses race.
func (r *CheckRepository) SaveResult(ctx context.Context, id string, status domain.CheckStatus, riskLevel domain.RiskLevel, result json.RawMessage, aiAnalysis string) (domain.ComplianceCheck, error) {
	var model checkModel
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Model(&checkModel{}).Where("id = ?", id).Updates(map[string]any{
			"status":      string(status),
			"risk_level":  string(riskLevel),
			"result":      string(result),
			"ai_analysis": aiAnalysis,
			"updated_at":  time.Now().UTC(),
		})
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
			return domain.ComplianceCheck{}, domain.ErrNotFound
		}
		return domain.ComplianceCheck{}, fmt.Errorf("save check result: %w", err)
	}
	return toCheckDomain(model), nil
}

func (r *CheckRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("id = ?", id).Delete(&checkModel{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete check: %w", err)
	}
	return nil
}

func toCheckModel(check domain.ComplianceCheck) checkModel {
	return checkModel{
		ID:             check.ID,
		Title:          check.Title,
		Description:    check.Description,
		DocumentText:   check.DocumentText,
		Status:         string(check.Status),
		RiskLevel:      string(check.RiskLevel),
		Result:         string(check.Result),
		AIAnalysis:     check.AIAnalysis,
		UserID:         check.UserID,
		OrganizationID: optional(check.OrganizationID),
		CreatedAt:      check.CreatedAt,
		UpdatedAt:      check.UpdatedAt,
	}
}

func toCheckDomain(model checkModel) domain.ComplianceCheck {
	check := domain.ComplianceCheck{
		ID:             model.ID,
		Title:          model.Title,
		Description:    model.Description,
		DocumentText:   model.DocumentText,
		Status:         domain.CheckStatus(model.Status),
		RiskLevel:      domain.RiskLevel(model.RiskLevel),
		AIAnalysis:     model.AIAnalysis,
		UserID:         model.UserID,
		OrganizationID: deref(model.OrganizationID),
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
	if model.Result != "" {
		check.Result = json.RawMessage(model.Result)
	}
	return check
}
