package domain

import (
	"fmt"
	"time"
)

// ComplianceRule is an organization-scoped policy statement that documents
// are checked against. Rules are read-only in the analysis flow; they are
// seeded at startup or managed out of band.
type ComplianceRule struct {
	ID             string
	Regulation     string
	Name           string
	Description    string
	IsActive       bool
	OrganizationID string
	CreatedAt      time.Time
}

// Describe renders the rule the way the analyzer prompt expects it.
func (r ComplianceRule) Describe() string {
	return fmt.Sprintf("[%s] %s: %s", r.Regulation, r.Name, r.Description)
}
