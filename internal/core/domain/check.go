package domain

import (
	"encoding/json"
	"time"
)

type CheckStatus string

const (
	StatusPending      CheckStatus = "PENDING"
	StatusInProgress   CheckStatus = "IN_PROGRESS"
	StatusCompliant    CheckStatus = "COMPLIANT"
	StatusNonCompliant CheckStatus = "NON_COMPLIANT"
	// StatusNeedsReview is part of the lifecycle vocabulary but no current
	// code path produces it.
	StatusNeedsReview CheckStatus = "NEEDS_REVIEW"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// ComplianceCheck is a user-submitted document plus its analysis lifecycle
// record. Status moves PENDING -> IN_PROGRESS -> {COMPLIANT, NON_COMPLIANT}.
// RiskLevel, Result and AIAnalysis stay empty until an analysis completes.
type ComplianceCheck struct {
	ID             string
	Title          string
	Description    string
	DocumentText   string
	Status         CheckStatus
	RiskLevel      RiskLevel
	Result         json.RawMessage
	AIAnalysis     string
	UserID         string
	OrganizationID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
