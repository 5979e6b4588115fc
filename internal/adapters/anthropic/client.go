package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	santhosh "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/regulumai/regulum/internal/core/domain"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	defaultModel   = "claude-sonnet-4-5-20250929"
	defaultTimeout = 60 * time.Second
	apiVersion     = "2023-06-01"
	maxTokens      = 2048
)

// resultSchema pins the shape the model is asked to produce. A reply that is
// valid JSON but the wrong shape is treated the same as a non-JSON reply.
var resultSchema = santhosh.MustCompileString("analysis.json", `{
	"type": "object",
	"required": ["summary", "riskLevel", "findings", "overallCompliant"],
	"properties": {
		"summary": {"type": "string"},
		"riskLevel": {"enum": ["LOW", "MEDIUM", "HIGH", "CRITICAL"]},
		"findings": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["issue", "severity", "recommendation"],
				"properties": {
					"issue": {"type": "string"},
					"severity": {"type": "string"},
					"recommendation": {"type": "string"}
				}
			}
		},
		"overallCompliant": {"type": "boolean"}
	}
}`)

// Client calls the Anthropic Messages API. It never fails on an unparseable
// model reply; callers get a degraded result instead. Transport and API
// errors are returned as errors.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewClient(apiKey, baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *Client) Analyze(ctx context.Context, documentText string, ruleDescriptions []string) (domain.Analysis, error) {
	payload, err := json.Marshal(messageRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []message{
			{Role: "user", Content: buildPrompt(documentText, ruleDescriptions)},
		},
	})
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Anthropic-Version", apiVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("call model api: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.Analysis{}, fmt.Errorf("model api returned status %d", resp.StatusCode)
	}

	var decoded messageResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil {
		return domain.Analysis{}, fmt.Errorf("decode api response: %w", err)
	}

	return parseAnalysis(replyText(decoded)), nil
}

func buildPrompt(documentText string, ruleDescriptions []string) string {
	var rulesContext string
	if len(ruleDescriptions) > 0 {
		var b strings.Builder
		b.WriteString("\n\nApplicable compliance rules:\n")
		for i, rule := range ruleDescriptions {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "%d. %s", i+1, rule)
		}
		rulesContext = b.String()
	}

	return fmt.Sprintf(`You are a regulatory compliance analyst. Analyze the following document for compliance issues and provide your assessment in JSON format.

Document:
%s
%s

Respond with a JSON object containing:
- "summary": A brief summary of the compliance analysis
- "riskLevel": One of "LOW", "MEDIUM", "HIGH", or "CRITICAL"
- "findings": An array of objects with "issue", "severity", and "recommendation" fields
- "overallCompliant": boolean indicating overall compliance status

Return only valid JSON, no additional text.`, documentText, rulesContext)
}

func replyText(resp messageResponse) string {
	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text
		}
	}
	return ""
}

// parseAnalysis accepts the reply as structured output when it is valid JSON
// of the expected shape, and otherwise degrades to a result carrying the raw
// text. Parse failure is a quality problem, not an error.
func parseAnalysis(text string) domain.Analysis {
	var shape any
	if err := json.Unmarshal([]byte(text), &shape); err != nil {
		return domain.DegradedAnalysis(text)
	}
	if err := resultSchema.Validate(shape); err != nil {
		return domain.DegradedAnalysis(text)
	}

	var analysis domain.Analysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return domain.DegradedAnalysis(text)
	}
	if analysis.Findings == nil {
		analysis.Findings = []domain.Finding{}
	}
	return analysis
}
