package ports

import (
	"context"
	"encoding/json"

	"github.com/regulumai/regulum/internal/core/domain"
)

type CheckRepository interface {
	Create(ctx context.Context, check domain.ComplianceCheck) (domain.ComplianceCheck, error)
	// FindOwned returns domain.ErrNotFound both when the check is absent and
	// when it belongs to another user.
	FindOwned(ctx context.Context, id, userID string) (domain.ComplianceCheck, error)
	ListOwned(ctx context.Context, userID string) ([]domain.ComplianceCheck, error)
	UpdateStatus(ctx context.Context, id string, status domain.CheckStatus) error
	SaveResult(ctx context.Context, id string, status domain.CheckStatus, riskLevel domain.RiskLevel, result json.RawMessage, aiAnalysis string) (domain.ComplianceCheck, error)
	Delete(ctx context.Context, id string) error
}

type RuleRepository interface {
	ListActive(ctx context.Context, organizationID string) ([]domain.ComplianceRule, error)
	Upsert(ctx context.Context, rule domain.ComplianceRule) error
}
