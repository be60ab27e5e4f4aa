// Package ai wraps the text-completion capability behind a small interface
// so classification and code generation stay provider-agnostic.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/S3ph1r/warroom-ingest/internal/logging"
)

// Completer is a single prompt→text round trip. Implementations must honor
// the context deadline and surface transport errors; callers treat any error
// as a fail-safe classification/generation failure.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config carries the completion provider settings.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GeminiCompleter backs Completer with the Gemini API.
type GeminiCompleter struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	log     logging.Logger
}

// NewGeminiCompleter creates a Gemini-backed completer. Returns an error
// when the API key is missing so the engine can degrade to registry-only
// mode instead of failing per-document.
func NewGeminiCompleter(ctx context.Context, cfg Config, log logging.Logger) (*GeminiCompleter, error) {
	if log == nil {
		log = logging.GetLogger()
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing API key")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiCompleter{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		log:     log,
	}, nil
}

// Complete sends the prompt and returns the concatenated text parts of the
// first candidate.
func (c *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := c.client.GenerativeModel(c.model)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty completion response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("completion response contained no text")
	}
	return sb.String(), nil
}

// Close releases the underlying client.
func (c *GeminiCompleter) Close() error {
	return c.client.Close()
}
