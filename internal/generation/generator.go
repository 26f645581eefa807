// Package generation invokes the generative model that writes grounded answers.
package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bull/legal-rag/internal/provider"
)

const (
	// DefaultModel is the generative model used when none is configured.
	DefaultModel = "gemini-1.5-flash"

	// DefaultTemperature keeps answers close to the supplied context.
	DefaultTemperature = 0.1

	// DefaultMaxPromptTokens bounds the prompt size sent to the model.
	DefaultMaxPromptTokens = 32000
)

// Completer is the provider call the generator delegates to.
type Completer interface {
	Complete(ctx context.Context, model, prompt string, temperature float64) (string, error)
}

// Config controls model selection and request shaping.
type Config struct {
	Model             string
	Temperature       float64
	MaxPromptTokens   int
	RequestsPerSecond float64 // <= 0 disables pacing
}

// Generator produces completions for fully assembled prompts.
// It is safe for concurrent use.
type Generator struct {
	backend     Completer
	model       string
	temperature float64
	maxTokens   int
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// NewGenerator creates a Generator. A zero Temperature is honoured as-is;
// callers wanting the default should set DefaultTemperature explicitly.
func NewGenerator(backend Completer, cfg Config, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxPromptTokens <= 0 {
		cfg.MaxPromptTokens = DefaultMaxPromptTokens
	}

	limit := rate.Inf
	burst := 0
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = 1
	}

	return &Generator{
		backend:     backend,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxPromptTokens,
		limiter:     rate.NewLimiter(limit, burst),
		logger:      logger,
	}
}

// Model returns the generative model name.
func (g *Generator) Model() string { return g.model }

// Generate sends prompt to the model and returns its trimmed output.
// An empty completion is reported as a provider error.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if estimateTokens(prompt) > g.maxTokens {
		return "", fmt.Errorf("%w: prompt of ~%d tokens exceeds limit of %d",
			provider.ErrProvider, estimateTokens(prompt), g.maxTokens)
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait for rate limiter: %w", err)
	}

	start := time.Now()
	out, err := g.backend.Complete(ctx, g.model, prompt, g.temperature)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: empty completion", provider.ErrProvider)
	}

	g.logger.Debug("completion generated",
		"model", g.model,
		"prompt_chars", len(prompt),
		"answer_chars", len(out),
		"duration", time.Since(start))
	return out, nil
}

// estimateTokens uses the rough estimate of 4 characters per token.
func estimateTokens(s string) int {
	return len(s) / 4
}
