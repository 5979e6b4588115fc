package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/regulumai/regulum/internal/core/domain"
	"github.com/regulumai/regulum/internal/core/ports"
)

// ComplianceService runs the check lifecycle: create, list, get, analyze and
// delete, writing an audit entry for every state-changing operation.
type ComplianceService struct {
	checks   ports.CheckRepository
	rules    ports.RuleRepository
	users    ports.UserRepository
	audit    ports.AuditRepository
	analyzer ports.DocumentAnalyzer
}

func NewComplianceService(
	checks ports.CheckRepository,
	rules ports.RuleRepository,
	users ports.UserRepository,
	audit ports.AuditRepository,
	analyzer ports.DocumentAnalyzer,
) *ComplianceService {
	return &ComplianceService{checks: checks, rules: rules, users: users, audit: audit, analyzer: analyzer}
}

func (s *ComplianceService) Create(ctx context.Context, userID, title, description, documentText string) (domain.ComplianceCheck, error) {
	if strings.TrimSpace(title) == "" {
		return domain.ComplianceCheck{}, domain.NewValidationError("Title is required")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.ComplianceCheck{}, fmt.Errorf("load check owner: %w", err)
	}

	now := time.Now().UTC()
	check, err := s.checks.Create(ctx, domain.ComplianceCheck{
		ID:             uuid.NewString(),
		Title:          title,
		Description:    description,
		DocumentText:   documentText,
		Status:         domain.StatusPending,
		UserID:         userID,
		OrganizationID: user.OrganizationID,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return domain.ComplianceCheck{}, err
	}

	s.appendAudit(ctx, userID, domain.AuditCheckCreated, map[string]any{
		"checkId": check.ID,
		"title":   check.Title,
	})
	return check, nil
}

func (s *ComplianceService) List(ctx context.Context, userID string) ([]domain.ComplianceCheck, error) {
	return s.checks.ListOwned(ctx, userID)
}

func (s *ComplianceService) Get(ctx context.Context, userID, id string) (domain.ComplianceCheck, error) {
	return s.checks.FindOwned(ctx, id, userID)
}

// Analyze runs the five-step pipeline: load the check, mark it IN_PROGRESS,
// gather the organization's active rules, call the analyzer and persist the
// outcome. The IN_PROGRESS write is not guarded by a lock; two concurrent
// invocations may both reach the analyzer and the last result wins. A failure
// after the IN_PROGRESS write leaves the check there until analyze is
// re-invoked.
func (s *ComplianceService) Analyze(ctx context.Context, userID, id string) (domain.ComplianceCheck, error) {
	check, err := s.checks.FindOwned(ctx, id, userID)
	if err != nil {
		return domain.ComplianceCheck{}, err
	}

	if strings.TrimSpace(check.DocumentText) == "" {
		return domain.ComplianceCheck{}, domain.NewValidationError("No document text to analyze")
	}

	if err := s.checks.UpdateStatus(ctx, check.ID, domain.StatusInProgress); err != nil {
		return domain.ComplianceCheck{}, err
	}

	var descriptions []string
	if check.OrganizationID != "" {
		rules, err := s.rules.ListActive(ctx, check.OrganizationID)
		if err != nil {
			return domain.ComplianceCheck{}, err
		}
		for _, rule := range rules {
			descriptions = append(descriptions, rule.Describe())
		}
	}

	analysis, err := s.analyzer.Analyze(ctx, check.DocumentText, descriptions)
	if err != nil {
		return domain.ComplianceCheck{}, err
	}

	result, err := json.Marshal(analysis)
	if err != nil {
		return domain.ComplianceCheck{}, fmt.Errorf("encode analysis result: %w", err)
	}

	status := domain.StatusNonCompliant
	if analysis.OverallCompliant {
		status = domain.StatusCompliant
	}

	updated, err := s.checks.SaveResult(ctx, check.ID, status, analysis.RiskLevel, result, analysis.Summary)
	if err != nil {
		return domain.ComplianceCheck{}, err
	}

	s.appendAudit(ctx, userID, domain.AuditAnalysisCompleted, map[string]any{
		"checkId":   check.ID,
		"riskLevel": analysis.RiskLevel,
		"compliant": analysis.OverallCompliant,
	})
	return updated, nil
}

func (s *ComplianceService) Delete(ctx context.Context, userID, id string) error {
	check, err := s.checks.FindOwned(ctx, id, userID)
	if err != nil {
		return err
	}

	if err := s.checks.Delete(ctx, check.ID); err != nil {
		return err
	}

	s.appendAudit(ctx, userID, domain.AuditCheckDeleted, map[string]any{
		"checkId": check.ID,
		"title":   check.Title,
	})
	return nil
}

// appendAudit writes the trail entry best-effort; a failed audit write is
// logged but does not fail the operation it records.
func (s *ComplianceService) appendAudit(ctx context.Context, userID, action string, details map[string]any) {
	encoded, err := json.Marshal(details)
	if err != nil {
		log.Printf("encode audit details for %s: %v", action, err)
		return
	}
	err = s.audit.Append(ctx, domain.AuditEntry{
		ID:        uuid.NewString(),
		Action:    action,
		Details:   encoded,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("append audit entry %s: %v", action, err)
	}
}
