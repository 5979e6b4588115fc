package domain

// Finding is a single issue raised by the document analysis.
type Finding struct {
	Issue          string `json:"issue"`
	Severity       string `json:"severity"`
	Recommendation string `json:"recommendation"`
}

// Analysis is the structured outcome of a document analysis. When the model
// reply cannot be parsed into this shape the analyzer returns a degraded
// result instead of an error: Summary holds the raw reply text, RiskLevel is
// MEDIUM, Findings is empty, OverallCompliant is false and Degraded is true.
type Analysis struct {
	Summary          string    `json:"summary"`
	RiskLevel        RiskLevel `json:"riskLevel"`
	Findings         []Finding `json:"findings"`
	OverallCompliant bool      `json:"overallCompliant"`
	Degraded         bool      `json:"degraded,omitempty"`
}

// DegradedAnalysis wraps an unparseable model reply as a low-fidelity result.
func DegradedAnalysis(raw string) Analysis {
	return Analysis{
		Summary:          raw,
		RiskLevel:        RiskMedium,
		Findings:         []Finding{},
		OverallCompliant: false,
		Degraded:         true,
	}
}
