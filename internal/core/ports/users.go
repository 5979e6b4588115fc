package ports

import (
	"context"

	"github.com/regulumai/regulum/internal/core/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByID(ctx context.Context, id string) (domain.User, error)
	UpdateName(ctx context.Context, id, name string) (domain.User, error)
}

type OrganizationRepository interface {
	FindByID(ctx context.Context, id string) (domain.Organization, error)
	FindByName(ctx context.Context, name string) (domain.Organization, error)
	Create(ctx context.Context, org domain.Organization) (domain.Organization, error)
}
