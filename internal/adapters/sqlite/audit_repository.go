package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/regulumai/regulum/internal/adapters/sqlite/gormsqlite"
	"github.com/regulumai/regulum/internal/core/domain"
)

type auditModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Action    string    `gorm:"column:action;not null"`
	Details   string    `gorm:"column:details;not null"`
	UserID    string    `gorm:"column:user_id;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (auditModel) TableName() string {
	return "audit_logs"
}

// AuditRepository only appends; the trail has no update or delete path.
type AuditRepository struct {
	db *gormsqlite.DB
}

func NewAuditRepository(db *gormsqlite.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	model := auditModel{
		ID:        entry.ID,
		Action:    entry.Action,
		Details:   string(entry.Details),
		UserID:    entry.UserID,
		CreatedAt: entry.CreatedAt,
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
