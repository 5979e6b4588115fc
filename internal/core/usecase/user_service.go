package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/regulumai/regulum/internal/core/domain"
	"github.com/regulumai/regulum/internal/core/ports"
)

type UserService struct {
	users ports.UserRepository
	orgs  ports.OrganizationRepository
}

func NewUserService(users ports.UserRepository, orgs ports.OrganizationRepository) *UserService {
	return &UserService{users: users, orgs: orgs}
}

// Profile returns the user together with their organization. The organization
// pointer is nil when the user has none assigned.
func (s *UserService) Profile(ctx context.Context, userID string) (domain.User, *domain.Organization, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.User{}, nil, err
	}

	if user.OrganizationID == "" {
		return user, nil, nil
	}

	org, err := s.orgs.FindByID(ctx, user.OrganizationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return user, nil, nil
		}
		return domain.User{}, nil, err
	}
	return user, &org, nil
}

// UpdateName renames the user. An empty name is a no-op returning the current
// record, matching the optional-field PATCH semantics.
func (s *UserService) UpdateName(ctx context.Context, userID, name string) (domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return s.users.FindByID(ctx, userID)
	}
	return s.users.UpdateName(ctx, userID, name)
}
