package ports

import (
	"context"

	"github.com/regulumai/regulum/internal/core/domain"
)

// DocumentAnalyzer assesses a document against a set of rule descriptions.
// Implementations must not fail on an unparseable model reply; they degrade
// to domain.DegradedAnalysis instead. Transport failures are real errors.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, documentText string, ruleDescriptions []string) (domain.Analysis, error)
}
