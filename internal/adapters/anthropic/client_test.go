package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/regulumai/regulum/internal/core/domain"
)

func newTestServer(t *testing.T, replyText string, capture *messageRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("Anthropic-Version") == "" {
			t.Errorf("missing version header")
		}
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"type": "text", "text": replyText}},
		})
	}))
}

func TestAnalyzeParsesStructuredReply(t *testing.T) {
	reply := `{
		"summary": "document violates consent logging",
		"riskLevel": "HIGH",
		"findings": [{"issue": "no consent log", "severity": "HIGH", "recommendation": "log consent"}],
		"overallCompliant": false
	}`
	var captured messageRequest
	srv := newTestServer(t, reply, &captured)
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "")
	analysis, err := c.Analyze(context.Background(), "We process EU personal data.", []string{"[GDPR] Consent: must log consent"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if analysis.Degraded {
		t.Fatal("expected structured result, got degraded")
	}
	if analysis.RiskLevel != domain.RiskHigh || analysis.OverallCompliant {
		t.Fatalf("unexpected analysis: %+v", analysis)
	}
	if len(analysis.Findings) != 1 || analysis.Findings[0].Issue != "no consent log" {
		t.Fatalf("unexpected findings: %+v", analysis.Findings)
	}

	if captured.Model != defaultModel || captured.MaxTokens != maxTokens {
		t.Fatalf("unexpected request: model=%s max_tokens=%d", captured.Model, captured.MaxTokens)
	}
	if len(captured.Messages) != 1 {
		t.Fatalf("expected one message, got %d", len(captured.Messages))
	}
	prompt := captured.Messages[0].Content
	if !strings.Contains(prompt, "We process EU personal data.") {
		t.Fatalf("prompt missing document text: %s", prompt)
	}
	if !strings.Contains(prompt, "1. [GDPR] Consent: must log consent") {
		t.Fatalf("prompt missing numbered rule: %s", prompt)
	}
}

func TestAnalyzeOmitsRulesSectionWithoutRules(t *testing.T) {
	var captured messageRequest
	srv := newTestServer(t, `{"summary":"ok","riskLevel":"LOW","findings":[],"overallCompliant":true}`, &captured)
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "")
	if _, err := c.Analyze(context.Background(), "doc", nil); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if strings.Contains(captured.Messages[0].Content, "Applicable compliance rules") {
		t.Fatalf("rules section present without rules: %s", captured.Messages[0].Content)
	}
}

func TestAnalyzeDegradesOnNonJSONReply(t *testing.T) {
	raw := "I could not produce JSON, but the document looks risky."
	srv := newTestServer(t, raw, nil)
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "")
	analysis, err := c.Analyze(context.Background(), "doc", nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if !analysis.Degraded {
		t.Fatal("expected degraded result")
	}
	if analysis.Summary != raw {
		t.Fatalf("expected raw text verbatim, got %q", analysis.Summary)
	}
	if analysis.RiskLevel != domain.RiskMedium {
		t.Fatalf("expected MEDIUM, got %s", analysis.RiskLevel)
	}
	if analysis.OverallCompliant {
		t.Fatal("expected non-compliant default")
	}
	if len(analysis.Findings) != 0 {
		t.Fatalf("expected no findings, got %+v", analysis.Findings)
	}
}

func TestAnalyzeDegradesOnWrongShape(t *testing.T) {
	raw := `{"summary": "only a summary"}`
	srv := newTestServer(t, raw, nil)
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "")
	analysis, err := c.Analyze(context.Background(), "doc", nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !analysis.Degraded {
		t.Fatal("expected degraded result for schema-violating reply")
	}
	if analysis.Summary != raw {
		t.Fatalf("expected raw reply verbatim, got %q", analysis.Summary)
	}
}

func TestAnalyzeAPIErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"type":"overloaded_error"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "")
	if _, err := c.Analyze(context.Background(), "doc", nil); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
