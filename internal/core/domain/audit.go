package domain

import (
	"encoding/json"
	"time"
)

const (
	AuditCheckCreated      = "COMPLIANCE_CHECK_CREATED"
	AuditCheckDeleted      = "COMPLIANCE_CHECK_DELETED"
	AuditAnalysisCompleted = "AI_ANALYSIS_COMPLETED"
)

// AuditEntry is an append-only record of a state-changing action. Entries are
// never mutated or deleted.
type AuditEntry struct {
	ID        string
	Action    string
	Details   json.RawMessage
	UserID    string
	CreatedAt time.Time
}
