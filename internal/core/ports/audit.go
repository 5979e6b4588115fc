package ports

import (
	"context"

	"github.com/regulumai/regulum/internal/core/domain"
)

type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
}
