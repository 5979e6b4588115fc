package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/regulumai/regulum/internal/core/domain"
	"github.com/regulumai/regulum/internal/core/ports"
)

const (
	TokenTTL   = 7 * 24 * time.Hour
	bcryptCost = 12
)

type AuthService struct {
	users        ports.UserRepository
	secret       []byte
	defaultOrgID string
}

// NewAuthService builds the auth service. defaultOrgID, when non-empty, is
// assigned to every newly registered user so their checks get rule scoping.
func NewAuthService(users ports.UserRepository, secret string, defaultOrgID string) *AuthService {
	return &AuthService{users: users, secret: []byte(secret), defaultOrgID: defaultOrgID}
}

func (s *AuthService) Register(ctx context.Context, email, password, name string) (domain.User, string, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return domain.User{}, "", domain.NewValidationError("Email, password, and name are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, domain.User{
		ID:             uuid.NewString(),
		Email:          email,
		PasswordHash:   string(hash),
		Name:           name,
		Role:           domain.DefaultRole,
		OrganizationID: s.defaultOrgID,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return domain.User{}, "", err
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.User{}, "", domain.NewValidationError("Email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, "", domain.ErrInvalidCredentials
		}
		return domain.User{}, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// VerifyToken checks the bearer token signature and expiry and returns the
// user id it carries. Any failure maps to domain.ErrUnauthorized.
func (s *AuthService) VerifyToken(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", domain.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", domain.ErrUnauthorized
	}
	userID, ok := claims["uid"].(string)
	if !ok || userID == "" {
		return "", domain.ErrUnauthorized
	}
	return userID, nil
}

func (s *AuthService) issueToken(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid": userID,
		"exp": time.Now().Add(TokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
