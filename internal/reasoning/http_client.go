// Package reasoning – HTTP adapter.
//
// HTTPClient speaks the messages API of the reasoning service: a single
// POST per stage, no streaming, no retries. Failed or malformed calls fail
// the pipeline stage that issued them; the scheduler will get another
// chance on the next batch window.
package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vibedeux/go-room-backend/internal/domain"
)

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// Token budgets per stage. The builder emits whole files and needs headroom.
const (
	analyzeMaxTokens = 4096
	planMaxTokens    = 4096
	buildMaxTokens   = 8192
)

const apiVersion = "2023-06-01"

// Config carries the connection settings for the reasoning service.
type Config struct {
	// BaseURL is the service root, e.g. "https://api.anthropic.com".
	BaseURL string
	// APIKey is sent as the x-api-key header.
	APIKey string
	// Model is the model identifier for every request.
	Model string
}

// HTTPClient implements Client over the service's messages endpoint.
type HTTPClient struct {
	cfg  Config
	http *http.Client
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.http = hc
	}
}

// NewHTTPClient creates a client for the reasoning service. Generation
// calls are slow; the default timeout is generous.
func NewHTTPClient(cfg Config, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		cfg: cfg,
		http: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze implements Client.
func (c *HTTPClient) Analyze(ctx context.Context, events []domain.PromptEvent, currentSpec *domain.SpecContent) (*AnalysisOutcome, error) {
	tr := otel.Tracer("reasoning/HTTPClient")
	ctx, span := tr.Start(ctx, "Analyze")
	span.SetAttributes(attribute.Int("events", len(events)))
	defer span.End()

	answer, thinking, err := c.complete(ctx, analyzerPrompt(events, currentSpec), analyzeMaxTokens)
	if err != nil {
		return nil, err
	}
	result, err := decodeAnalysis(answer, events)
	if err != nil {
		return nil, err
	}
	return &AnalysisOutcome{Result: result, Thinking: thinking, Answer: answer}, nil
}

// Plan implements Client.
func (c *HTTPClient) Plan(ctx context.Context, req PlanRequest) (*domain.SpecContent, error) {
	tr := otel.Tracer("reasoning/HTTPClient")
	ctx, span := tr.Start(ctx, "Plan")
	span.SetAttributes(attribute.Int("events", len(req.Events)))
	defer span.End()

	answer, _, err := c.complete(ctx, plannerPrompt(req), planMaxTokens)
	if err != nil {
		return nil, err
	}
	return decodeSpec(answer)
}

// Build implements Client.
func (c *HTTPClient) Build(ctx context.Context, spec domain.SpecContent, current string) (*domain.PatchSet, error) {
	tr := otel.Tracer("reasoning/HTTPClient")
	ctx, span := tr.Start(ctx, "Build")
	defer span.End()

	answer, _, err := c.complete(ctx, builderPrompt(spec, current), buildMaxTokens)
	if err != nil {
		return nil, err
	}
	return decodePatch(answer)
}

// Wire envelopes for the messages endpoint.

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type contentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`
}

type messageResponse struct {
	Content []contentBlock `json:"content"`
}

// complete sends one user prompt and returns the concatenated text blocks
// of the answer plus any thinking trace the service exposed.
func (c *HTTPClient) complete(ctx context.Context, prompt string, maxTokens int) (answer, thinking string, err error) {
	body, err := json.Marshal(messageRequest{
		Model:     c.cfg.Model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", "", fmt.Errorf("reasoning: marshal request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("reasoning: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("reasoning: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("reasoning: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("reasoning: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var mr messageResponse
	if err := json.Unmarshal(respBody, &mr); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var text, trace strings.Builder
	for _, block := range mr.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "thinking":
			trace.WriteString(block.Thinking)
		}
	}
	if text.Len() == 0 {
		return "", "", fmt.Errorf("%w: no text content in answer", ErrMalformedResponse)
	}
	return text.String(), trace.String(), nil
}
