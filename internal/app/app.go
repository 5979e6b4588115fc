package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/regulumai/regulum/internal/adapters/anthropic"
	"github.com/regulumai/regulum/internal/adapters/httpapi"
	sqliteadapter "github.com/regulumai/regulum/internal/adapters/sqlite"
	"github.com/regulumai/regulum/internal/adapters/sqlite/gormsqlite"
	"github.com/regulumai/regulum/internal/core/domain"
	"github.com/regulumai/regulum/internal/core/ports"
	"github.com/regulumai/regulum/internal/core/usecase"
	"github.com/regulumai/regulum/migrations"
)

type Config struct {
	Addr                 string
	DBPath               string
	JWTSecret            string
	ClientURL            string
	AnthropicAPIKey      string
	AnthropicBaseURL     string
	AnthropicModel       string
	BootstrapOrgName     string
	BootstrapOrgIndustry string
	BootstrapRulesPath   string
}

func NewServer(ctx context.Context, cfg Config) (*http.Server, io.Closer, error) {
	if cfg.JWTSecret == "" {
		return nil, nil, errors.New("jwt secret is required")
	}

	db, err := gormsqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}

	writeSQLDB, err := db.WriteSQLDB()
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("resolve writer sql db: %w", err)
	}

	migrateCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := migrations.Up(migrateCtx, writeSQLDB); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	userRepo := sqliteadapter.NewUserRepository(db)
	orgRepo := sqliteadapter.NewOrganizationRepository(db)
	checkRepo := sqliteadapter.NewCheckRepository(db)
	ruleRepo := sqliteadapter.NewRuleRepository(db)
	auditRepo := sqliteadapter.NewAuditRepository(db)

	defaultOrgID, err := bootstrap(ctx, cfg, orgRepo, ruleRepo)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	analyzer := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL, cfg.AnthropicModel)

	authService := usecase.NewAuthService(userRepo, cfg.JWTSecret, defaultOrgID)
	userService := usecase.NewUserService(userRepo, orgRepo)
	complianceService := usecase.NewComplianceService(checkRepo, ruleRepo, userRepo, auditRepo, analyzer)

	handler := httpapi.NewHandler(authService, userService, complianceService, cfg.ClientURL)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return server, db, nil
}

// bootstrap ensures the configured default organization exists and seeds its
// compliance rules from the rules file. Both steps are idempotent so the
// server can restart with the same flags. Returns the default organization id
// ("" when none is configured).
func bootstrap(ctx context.Context, cfg Config, orgs ports.OrganizationRepository, rules ports.RuleRepository) (string, error) {
	if cfg.BootstrapOrgName == "" {
		return "", nil
	}

	bootstrapCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	org, err := orgs.FindByName(bootstrapCtx, cfg.BootstrapOrgName)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("bootstrap organization: %w", err)
		}
		org, err = orgs.Create(bootstrapCtx, domain.Organization{
			ID:        uuid.NewString(),
			Name:      cfg.BootstrapOrgName,
			Industry:  cfg.BootstrapOrgIndustry,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return "", fmt.Errorf("bootstrap organization: %w", err)
		}
	}

	if cfg.BootstrapRulesPath != "" {
		if err := seedRules(bootstrapCtx, cfg.BootstrapRulesPath, org.ID, rules); err != nil {
			return "", err
		}
	}
	return org.ID, nil
}

type ruleSeed struct {
	Regulation  string `json:"regulation"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"isActive"`
}

func seedRules(ctx context.Context, path, organizationID string, rules ports.RuleRepository) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rules file: %w", err)
	}

	var seeds []ruleSeed
	if err := json.Unmarshal(data, &seeds); err != nil {
		return fmt.Errorf("parse rules file: %w", err)
	}

	for _, seed := range seeds {
		if seed.Regulation == "" || seed.Name == "" {
			return fmt.Errorf("rules file: regulation and name are required, got %+v", seed)
		}
		active := true
		if seed.IsActive != nil {
			active = *seed.IsActive
		}
		err := rules.Upsert(ctx, domain.ComplianceRule{
			ID:             uuid.NewString(),
			Regulation:     seed.Regulation,
			Name:           seed.Name,
			Description:    seed.Description,
			IsActive:       active,
			OrganizationID: organizationID,
			CreatedAt:      time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("seed rule %s/%s: %w", seed.Regulation, seed.Name, err)
		}
	}
	return nil
}
