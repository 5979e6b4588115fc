package sqlite

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/regulumai/regulum/internal/adapters/sqlite/gormsqlite"
	"github.com/regulumai/regulum/internal/core/domain"
)

type ruleModel struct {
	ID             string    `gorm:"column:id;primaryKey"`
	Regulation     string    `gorm:"column:regulation;not null"`
	Name           string    `gorm:"column:name;not null"`
	Description    string    `gorm:"column:description"`
	IsActive       bool      `gorm:"column:is_active;not null"`
	OrganizationID string    `gorm:"column:organization_id;not null;index"`
	CreatedAt      time.Time `gorm:"column:created_at;not null"`
}

func (ruleModel) TableName() string {
	return "compliance_rules"
}

type RuleRepository struct {
	db *gormsqlite.DB
}

func NewRuleRepository(db *gormsqlite.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) ListActive(ctx context.Context, organizationID string) ([]domain.ComplianceRule, error) {
	var models []ruleModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.
			Where("is_active = ? AND organization_id = ?", true, organizationID).
			Order("regulation ASC, name ASC").
			Find(&models).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}

	rules := make([]domain.ComplianceRule, 0, len(models))
	for _, model := range models {
		rules = append(rules, toRuleDomain(model))
	}
	return rules, nil
}

// Upsert inserts the rule or refreshes an existing one with the same
// regulation and name within the organization. Used by startup seeding, so
// re-running the server with the same rules file is idempotent.
func (r *RuleRepository) Upsert(ctx context.Context, rule domain.ComplianceRule) error {
	model := ruleModel{
		ID:             rule.ID,
		Regulation:     rule.Regulation,
		Name:           rule.Name,
		Description:    rule.Description,
		IsActive:       rule.IsActive,
		OrganizationID: rule.OrganizationID,
		CreatedAt:      rule.CreatedAt,
	}
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "organization_id"},
				{Name: "regulation"},
				{Name: "name"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"description", "is_active"}),
		}).Create(&model).Error
	})
	if err != nil {
		return fmt.Errorf("upsert rule: %w", err)
	}
	return nil
}

func toRuleDomain(model ruleModel) domain.ComplianceRule {
	return domain.ComplianceRule{
		ID:             model.ID,
		Regulation:     model.Regulation,
		Name:           model.Name,
		Description:    model.Description,
		IsActive:       model.IsActive,
		OrganizationID: model.OrganizationID,
		CreatedAt:      model.CreatedAt,
	}
}
