// Package openai generates the AI safety narrative with the OpenAI chat
// completions API.
package openai

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

	"github.com/couchcryptid/marine-report-insights/internal/domain"
	"github.com/couchcryptid/marine-report-insights/internal/observability"
	"github.com/jonboulle/clockwork"
)

const (
	defaultEndpoint = "https://api.openai.com/v1/chat/completions"
	providerName    = "openai"
)

var errEmptyCompletion = errors.New("completion has no content")

// Generator implements domain.ReportNarrator.
type Generator struct {
	apiKey     string
	models     []string
	httpClient *http.Client
	endpoint   string
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewGenerator creates a narrator that tries models in order. An empty
// apiKey disables it.
func NewGenerator(apiKey string, models []string, timeout time.Duration, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Generator {
	var ordered []string
	for _, m := range models {
		if m = strings.TrimSpace(m); m != "" {
			ordered = append(ordered, m)
		}
	}
	return &Generator{
		apiKey:     apiKey,
		models:     ordered,
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   defaultEndpoint,
		clock:      clock,
		metrics:    metrics,
		logger:     logger,
	}
}

// GenerateSafetyReport asks each model in turn for a JSON narrative and
// returns the first one that parses. It returns nil when no key is set or
// every model fails.
func (g *Generator) GenerateSafetyReport(ctx context.Context, report domain.ReportPayload, weather *domain.MarineWeather, warnings []domain.WeatherWarning, stations []domain.CoastGuardStation) (*domain.AISafetyReport, error) {
	if g.apiKey == "" || len(g.models) == 0 {
		g.metrics.AIReports.WithLabelValues(observability.OutcomeSkipped).Inc()
		return nil, nil
	}

	prompt := buildPrompt(report, weather, warnings, stations)
	for _, model := range g.models {
		start := g.clock.Now()
		out, err := g.complete(ctx, model, prompt)
		g.metrics.UpstreamDuration.WithLabelValues(providerName).Observe(g.clock.Since(start).Seconds())
		if err == nil {
			g.metrics.UpstreamRequests.WithLabelValues(providerName, observability.OutcomeSuccess).Inc()
			g.metrics.AIReports.WithLabelValues(observability.OutcomeSuccess).Inc()
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.metrics.UpstreamRequests.WithLabelValues(providerName, observability.OutcomeError).Inc()
		g.logger.Warn("ai safety report failed", "model", model, "error", err)
	}

	g.metrics.AIReports.WithLabelValues(observability.OutcomeError).Inc()
	return nil, nil
}

func (g *Generator) complete(ctx context.Context, model, prompt string) (*domain.AISafetyReport, error) {
	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
		Temperature:    0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai API error: status %d: %s", resp.StatusCode, msg)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, errEmptyCompletion
	}
	content := strings.TrimSpace(chat.Choices[0].Message.Content)
	if content == "" {
		return nil, errEmptyCompletion
	}
	return parseReport(content)
}

// parseReport decodes the model's JSON answer. Markdown code fences around
// the object are tolerated.
func parseReport(content string) (*domain.AISafetyReport, error) {
	var raw struct {
		Summary         string   `json:"summary"`
		RiskLevel       string   `json:"riskLevel"`
		RiskFactors     []string `json:"riskFactors"`
		Recommendations []string `json:"recommendations"`
		WeatherAnalysis string   `json:"weatherAnalysis"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &raw); err != nil {
		return nil, fmt.Errorf("parse completion content: %w", err)
	}
	if strings.TrimSpace(raw.Summary) == "" {
		return nil, errors.New("completion content has no summary")
	}

	out := &domain.AISafetyReport{
		Summary:         strings.TrimSpace(raw.Summary),
		RiskLevel:       riskLevel(raw.RiskLevel),
		RiskFactors:     nonEmpty(raw.RiskFactors),
		Recommendations: nonEmpty(raw.Recommendations),
		WeatherAnalysis: strings.TrimSpace(raw.WeatherAnalysis),
	}
	return out, nil
}

func riskLevel(s string) domain.AIRiskLevel {
	switch lvl := domain.AIRiskLevel(strings.ToUpper(strings.TrimSpace(s))); lvl {
	case domain.AIRiskLow, domain.AIRiskMedium, domain.AIRiskHigh:
		return lvl
	default:
		return domain.AIRiskMedium
	}
}

func nonEmpty(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func extractJSON(s string) string {
	if start := strings.Index(s, "```"); start != -1 {
		rest := s[start+3:]
		if end := strings.Index(rest, "```"); end != -1 {
			block := strings.TrimSpace(rest[:end])
			block = strings.TrimPrefix(block, "json")
			return strings.TrimSpace(block)
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

// OpenAI API request and response types.

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    float64         `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
