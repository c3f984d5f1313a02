package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultDeployment = "gpt-4o-mini"
	defaultAPIVersion = "2024-02-15-preview"
	defaultTimeout    = 30 * time.Second

	maxResponseBytes = 8 << 20
)

const systemPrompt = "You are a Kubernetes expert providing cluster health analysis. Always respond with valid JSON."

const promptTemplate = `You are an expert Kubernetes cluster administrator. Analyze this cluster health data and provide:

1. Overall Health Score (0-100)
2. Top Issues Detected (with severity: Critical/Warning/Info)
3. Predicted Problems (in next 24-48 hours)
4. Actionable Recommendations (specific kubectl commands)

Cluster Data:
%s

Provide your analysis in JSON format:
{
  "health_score": <integer 0-100>,
  "summary": "<brief overall assessment>",
  "issues": [
    {"severity": "<Critical|Warning|Info>", "title": "<issue>", "description": "<details>"}
  ],
  "predictions": [
    {"timeframe": "<when>", "issue": "<what>", "probability": "<likelihood>"}
  ],
  "recommendations": [
    {"priority": "<High|Medium|Low>", "action": "<what to do>", "command": "<kubectl command>"}
  ]
}`

// ClientConfig carries the remote analyzer endpoint settings.
type ClientConfig struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
	Timeout    time.Duration
}

// Client calls the remote analysis endpoint and classifies the outcome.
// It performs exactly one request per Analyze call; retry policy, if any,
// belongs to the caller.
type Client struct {
	http       *http.Client
	endpoint   string
	apiKey     string
	deployment string
	apiVersion string
	logger     *slog.Logger
}

// NewClient returns a configured Client. Zero config fields fall back to
// the documented defaults.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if cfg.Deployment == "" {
		cfg.Deployment = defaultDeployment
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		deployment: cfg.Deployment,
		apiVersion: cfg.APIVersion,
		logger:     logger,
	}
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// wireAnalysis mirrors the required response schema on the wire. Pointer and
// RawMessage fields let validation distinguish a missing key from a zero value.
type wireAnalysis struct {
	HealthScore     *int                 `json:"health_score"`
	Summary         *string              `json:"summary"`
	Issues          []wireIssue          `json:"issues"`
	Predictions     []wirePrediction     `json:"predictions"`
	Recommendations []wireRecommendation `json:"recommendations"`
}

type wireIssue struct {
	Severity    string `json:"severity"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type wirePrediction struct {
	Timeframe   string      `json:"timeframe"`
	Issue       string      `json:"issue"`
	Probability looseString `json:"probability"`
}

type wireRecommendation struct {
	Priority string `json:"priority"`
	Action   string `json:"action"`
	Command  string `json:"command"`
}

// looseString accepts a JSON string or number. Remote analyzers report
// probabilities either as a qualitative bucket ("high") or a numeric value.
type looseString string

func (l *looseString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = looseString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("probability must be a string or number")
	}
	*l = looseString(n.String())
	return nil
}

// Analyze sends the Context to the remote endpoint and classifies the result.
// Network failures, timeouts, and non-2xx statuses yield Unreachable; a 2xx
// response that does not carry a fully valid analysis yields SchemaInvalid.
func (c *Client) Analyze(ctx context.Context, ec Context) Outcome {
	if c.endpoint == "" || c.apiKey == "" {
		return Outcome{Kind: OutcomeUnreachable, Err: errors.New("remote analyzer not configured")}
	}

	body, err := json.Marshal(chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(promptTemplate, ec.Text)},
		},
		Temperature: 0.3,
		MaxTokens:   2000,
		TopP:        0.95,
	})
	if err != nil {
		return Outcome{Kind: OutcomeUnreachable, Err: fmt.Errorf("marshal request: %w", err)}
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s", c.endpoint, c.deployment, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Outcome{Kind: OutcomeUnreachable, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Outcome{Kind: OutcomeUnreachable, Err: fmt.Errorf("call analyzer: %w", err)}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Outcome{Kind: OutcomeUnreachable, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Outcome{Kind: OutcomeUnreachable, Err: fmt.Errorf("analyzer returned status %d", resp.StatusCode)}
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Outcome{Kind: OutcomeSchemaInvalid, RawBody: string(raw), Violation: fmt.Sprintf("response body is not valid JSON: %v", err)}
	}
	if len(decoded.Choices) == 0 || strings.TrimSpace(decoded.Choices[0].Message.Content) == "" {
		return Outcome{Kind: OutcomeSchemaInvalid, RawBody: string(raw), Violation: "response carries no analysis content"}
	}

	content := extractJSON(decoded.Choices[0].Message.Content)
	analysis, violation := parseAnalysis(content)
	if violation != "" {
		return Outcome{Kind: OutcomeSchemaInvalid, RawBody: content, Violation: violation}
	}
	c.logger.Debug("remote analysis accepted", slog.Int("healthScore", analysis.HealthScore))
	return Outcome{Kind: OutcomeSuccess, Analysis: analysis}
}

// extractJSON strips markdown code fences and any prose around the outermost
// JSON object, a common shape of model output.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// parseAnalysis decodes and fully validates an analysis document. The empty
// violation string means the analysis is trustworthy in its entirety.
func parseAnalysis(content string) (RemoteAnalysis, string) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &keys); err != nil {
		return RemoteAnalysis{}, fmt.Sprintf("analysis is not a JSON object: %v", err)
	}
	for _, required := range []string{"health_score", "summary", "issues", "predictions", "recommendations"} {
		if _, ok := keys[required]; !ok {
			return RemoteAnalysis{}, fmt.Sprintf("missing required field %q", required)
		}
	}

	var wire wireAnalysis
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		return RemoteAnalysis{}, fmt.Sprintf("analysis has wrong field types: %v", err)
	}
	if wire.HealthScore == nil || wire.Summary == nil {
		return RemoteAnalysis{}, "health_score and summary must not be null"
	}
	if *wire.HealthScore < 0 || *wire.HealthScore > 100 {
		return RemoteAnalysis{}, fmt.Sprintf("health_score %d outside range [0,100]", *wire.HealthScore)
	}
	if strings.TrimSpace(*wire.Summary) == "" {
		return RemoteAnalysis{}, "summary is empty"
	}

	analysis := RemoteAnalysis{
		HealthScore:     *wire.HealthScore,
		Summary:         strings.TrimSpace(*wire.Summary),
		Issues:          make([]Issue, 0, len(wire.Issues)),
		Predictions:     make([]Prediction, 0, len(wire.Predictions)),
		Recommendations: make([]Recommendation, 0, len(wire.Recommendations)),
	}

	for i, issue := range wire.Issues {
		severity, ok := canonSeverity(issue.Severity)
		if !ok {
			return RemoteAnalysis{}, fmt.Sprintf("issues[%d].severity %q is not one of Critical/Warning/Info", i, issue.Severity)
		}
		if strings.TrimSpace(issue.Title) == "" {
			return RemoteAnalysis{}, fmt.Sprintf("issues[%d].title is empty", i)
		}
		analysis.Issues = append(analysis.Issues, Issue{Severity: severity, Title: issue.Title, Description: issue.Description})
	}
	for i, pred := range wire.Predictions {
		if strings.TrimSpace(pred.Timeframe) == "" || strings.TrimSpace(pred.Issue) == "" {
			return RemoteAnalysis{}, fmt.Sprintf("predictions[%d] must carry timeframe and issue", i)
		}
		analysis.Predictions = append(analysis.Predictions, Prediction{Timeframe: pred.Timeframe, Issue: pred.Issue, Probability: string(pred.Probability)})
	}
	for i, rec := range wire.Recommendations {
		priority, ok := canonPriority(rec.Priority)
		if !ok {
			return RemoteAnalysis{}, fmt.Sprintf("recommendations[%d].priority %q is not one of High/Medium/Low", i, rec.Priority)
		}
		if strings.TrimSpace(rec.Action) == "" {
			return RemoteAnalysis{}, fmt.Sprintf("recommendations[%d].action is empty", i)
		}
		analysis.Recommendations = append(analysis.Recommendations, Recommendation{Priority: priority, Action: rec.Action, Command: rec.Command})
	}
	return analysis, ""
}

func canonSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SeverityCritical, true
	case "warning":
		return SeverityWarning, true
	case "info":
		return SeverityInfo, true
	default:
		return "", false
	}
}

func canonPriority(s string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh, true
	case "medium":
		return PriorityMedium, true
	case "low":
		return PriorityLow, true
	default:
		return "", false
	}
}
