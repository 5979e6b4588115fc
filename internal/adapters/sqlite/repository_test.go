package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/regulumai/regulum/internal/adapters/sqlite/gormsqlite"
	"github.com/regulumai/regulum/internal/core/domain"
	"github.com/regulumai/regulum/migrations"
)

func openTestDB(t *testing.T) *gormsqlite.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.sqlite")
	db, err := gormsqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	sqlDB, err := db.WriteSQLDB()
	if err != nil {
		t.Fatalf("writer sql db: %v", err)
	}
	if err := migrations.Up(context.Background(), sqlDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedOrg(t *testing.T, db *gormsqlite.DB) domain.Organization {
	t.Helper()
	org, err := NewOrganizationRepository(db).Create(context.Background(), domain.Organization{
		ID:        uuid.NewString(),
		Name:      "Acme",
		Industry:  "Finance",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed org: %v", err)
	}
	return org
}

func seedUser(t *testing.T, db *gormsqlite.DB, email, orgID string) domain.User {
	t.Helper()
	user, err := NewUserRepository(db).Create(context.Background(), domain.User{
		ID:             uuid.NewString(),
		Email:          email,
		PasswordHash:   "hash",
		Name:           "Alice",
		Role:           domain.DefaultRole,
		OrganizationID: orgID,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return user
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first := seedUser(t, db, "a@example.com", "")

	_, err := repo.Create(ctx, domain.User{
		ID: uuid.NewString(), Email: "a@example.com", PasswordHash: "other",
		Name: "Bob", Role: domain.DefaultRole, CreatedAt: time.Now().UTC(),
	})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}

	// first registration untouched
	got, err := repo.FindByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if got.ID != first.ID || got.Name != "Alice" || got.PasswordHash != "hash" {
		t.Fatalf("first user altered: %+v", got)
	}
}

func TestUserRepositoryUpdateName(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "a@example.com", "")

	updated, err := repo.UpdateName(ctx, user.ID, "Renamed")
	if err != nil {
		t.Fatalf("update name: %v", err)
	}
	if updated.Name != "Renamed" {
		t.Fatalf("expected renamed user, got %+v", updated)
	}

	if _, err := repo.UpdateName(ctx, "ghost", "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for missing user, got %v", err)
	}
}

func TestCheckRepositoryOwnershipAndOrder(t *testing.T) {
	db := openTestDB(t)
	repo := NewCheckRepository(db)
	ctx := context.Background()

	org := seedOrg(t, db)
	owner := seedUser(t, db, "owner@example.com", org.ID)
	other := seedUser(t, db, "other@example.com", org.ID)

	base := time.Now().UTC().Add(-time.Hour)
	var ids []string
	for i := 0; i < 3; i++ {
		check, err := repo.Create(ctx, domain.ComplianceCheck{
			ID:             uuid.NewString(),
			Title:          "Check",
			Status:         domain.StatusPending,
			UserID:         owner.ID,
			OrganizationID: org.ID,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
			UpdatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("create check %d: %v", i, err)
		}
		ids = append(ids, check.ID)
	}

	listed, err := repo.ListOwned(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 checks, got %d", len(listed))
	}
	// newest first
	if listed[0].ID != ids[2] || listed[2].ID != ids[0] {
		t.Fatalf("unexpected order: %s, %s, %s", listed[0].ID, listed[1].ID, listed[2].ID)
	}

	if _, err := repo.FindOwned(ctx, ids[0], other.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign lookup: expected not found, got %v", err)
	}

	foreign, err := repo.ListOwned(ctx, other.ID)
	if err != nil {
		t.Fatalf("list foreign: %v", err)
	}
	if len(foreign) != 0 {
		t.Fatalf("expected no foreign checks, got %d", len(foreign))
	}
}

func TestCheckRepositoryAnalysisLifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewCheckRepository(db)
	ctx := context.Background()

	org := seedOrg(t, db)
	user := seedUser(t, db, "a@example.com", org.ID)

	now := time.Now().UTC()
	check, err := repo.Create(ctx, domain.ComplianceCheck{
		ID:             uuid.NewString(),
		Title:          "Q1 Review",
		DocumentText:   "doc",
		Status:         domain.StatusPending,
		UserID:         user.ID,
		OrganizationID: org.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.UpdateStatus(ctx, check.ID, domain.StatusInProgress); err != nil {
		t.Fatalf("update status: %v", err)
	}
	mid, err := repo.FindOwned(ctx, check.ID, user.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if mid.Status != domain.StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", mid.Status)
	}

	result := json.RawMessage(`{"summary":"fine","riskLevel":"LOW","findings":[],"overallCompliant":true}`)
	final, err := repo.SaveResult(ctx, check.ID, domain.StatusCompliant, domain.RiskLow, result, "fine")
	if err != nil {
		t.Fatalf("save result: %v", err)
	}
	if final.Status != domain.StatusCompliant || final.RiskLevel != domain.RiskLow {
		t.Fatalf("unexpected final check: %+v", final)
	}
	if string(final.Result) != string(result) {
		t.Fatalf("result not persisted: %s", final.Result)
	}
	if final.AIAnalysis != "fine" {
		t.Fatalf("summary not persisted: %s", final.AIAnalysis)
	}

	if err := repo.Delete(ctx, check.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindOwned(ctx, check.ID, user.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestRuleRepositoryUpsertAndScope(t *testing.T) {
	db := openTestDB(t)
	repo := NewRuleRepository(db)
	ctx := context.Background()

	orgA := seedOrg(t, db)
	orgB, err := NewOrganizationRepository(db).Create(ctx, domain.Organization{
		ID: uuid.NewString(), Name: "Beta", CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create second org: %v", err)
	}

	seed := func(org, regulation, name, desc string, active bool) {
		t.Helper()
		err := repo.Upsert(ctx, domain.ComplianceRule{
			ID: uuid.NewString(), Regulation: regulation, Name: name, Description: desc,
			IsActive: active, OrganizationID: org, CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("upsert %s/%s: %v", regulation, name, err)
		}
	}

	seed(orgA.ID, "GDPR", "Consent", "must log consent", true)
	seed(orgA.ID, "GDPR", "Retention", "old rule text", false)
	seed(orgB.ID, "SOX", "Controls", "other org", true)

	// re-upsert refreshes description instead of duplicating
	seed(orgA.ID, "GDPR", "Consent", "must log consent explicitly", true)

	rules, err := repo.ListActive(ctx, orgA.ID)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 active rule, got %d", len(rules))
	}
	if rules[0].Description != "must log consent explicitly" {
		t.Fatalf("upsert did not refresh description: %s", rules[0].Description)
	}
	if rules[0].Describe() != "[GDPR] Consent: must log consent explicitly" {
		t.Fatalf("unexpected description format: %s", rules[0].Describe())
	}
}

func TestAuditRepositoryAppend(t *testing.T) {
	db := openTestDB(t)
	repo := NewAuditRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "a@example.com", "")

	err := repo.Append(ctx, domain.AuditEntry{
		ID:        uuid.NewString(),
		Action:    domain.AuditAnalysisCompleted,
		Details:   json.RawMessage(`{"checkId":"c1","riskLevel":"HIGH","compliant":false}`),
		UserID:    user.ID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	var count int64
	err = db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Table("audit_logs").Where("user_id = ? AND action = ?", user.ID, domain.AuditAnalysisCompleted).Count(&count).Error
	})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 audit row, got %d", count)
	}
}
