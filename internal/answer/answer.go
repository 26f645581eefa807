// Package answer answers questions from retrieved passages of the indexed corpus.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bull/legal-rag/internal/document"
	"github.com/bull/legal-rag/internal/metrics"
	"github.com/bull/legal-rag/internal/storage"
)

// DefaultTopK is the number of passages retrieved per question.
const DefaultTopK = 5

// Embedder embeds a question.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator produces an answer from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Citation is a distinct source/page pair that supported an answer.
type Citation struct {
	SourceID string
	Page     int // 0 when unknown
}

func (c Citation) String() string {
	return fmt.Sprintf("%s (page %s)", c.SourceID, document.PageLabel(c.Page))
}

// Answer is the result of an answering call.
// Citations are derived from Passages, never from Text.
type Answer struct {
	Text      string
	Citations []Citation
	Passages  []storage.RetrievedChunk
	Refused   bool // Text contains FallbackAnswer
}

// Config selects the collection and retrieval depth.
type Config struct {
	Collection string
	TopK       int
}

// Answerer runs retrieval-augmented answering. It holds no per-request state
// and is safe for concurrent use.
type Answerer struct {
	embedder  Embedder
	index     storage.Index
	generator Generator
	cfg       Config
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewAnswerer validates its dependencies and creates an Answerer.
// metrics and logger may be nil.
func NewAnswerer(embedder Embedder, index storage.Index, generator Generator, cfg Config, m *metrics.Metrics, logger *slog.Logger) (*Answerer, error) {
	if embedder == nil {
		return nil, errors.New("answer: embedder is required")
	}
	if index == nil {
		return nil, errors.New("answer: index is required")
	}
	if generator == nil {
		return nil, errors.New("answer: generator is required")
	}
	if cfg.Collection == "" {
		return nil, errors.New("answer: collection is required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Answerer{
		embedder:  embedder,
		index:     index,
		generator: generator,
		cfg:       cfg,
		metrics:   m,
		logger:    logger,
	}, nil
}

// TopK returns the configured retrieval depth.
func (a *Answerer) TopK() int { return a.cfg.TopK }

// Answer retrieves the top passages for question and asks the model to answer from them.
// With no passages the fallback answer is returned without calling the model.
// A failed index query is not treated as "no passages": it returns a *QueryError
// with Stage StageRetrieval, so an unreachable index is never reported as a refusal.
func (a *Answerer) Answer(ctx context.Context, question string) (*Answer, error) {
	start := time.Now()

	passages, err := a.Retrieve(ctx, question, a.cfg.TopK)
	if err != nil {
		a.metrics.AnswerServed(metrics.OutcomeError)
		return nil, err
	}

	if len(passages) == 0 {
		a.logger.Info("No passages retrieved, returning fallback answer")
		a.metrics.AnswerServed(metrics.OutcomeNoContext)
		return &Answer{
			Text:      FallbackAnswer,
			Citations: []Citation{},
			Passages:  passages,
			Refused:   true,
		}, nil
	}

	genStart := time.Now()
	text, err := a.generator.Generate(ctx, BuildPrompt(strings.TrimSpace(question), passages))
	if err != nil {
		a.metrics.AnswerServed(metrics.OutcomeError)
		a.logger.Error("Generation failed", "error", err)
		return nil, &QueryError{Stage: StageGeneration, Err: err}
	}
	a.metrics.ObserveStage(string(StageGeneration), time.Since(genStart))

	ans := &Answer{
		Text:      text,
		Citations: Citations(passages),
		Passages:  passages,
		Refused:   strings.Contains(text, FallbackAnswer),
	}
	if ans.Refused {
		a.metrics.AnswerServed(metrics.OutcomeRefused)
	} else {
		a.metrics.AnswerServed(metrics.OutcomeAnswered)
	}

	a.logger.Info("Answered question",
		"passages", len(passages),
		"citations", len(ans.Citations),
		"refused", ans.Refused,
		"duration", time.Since(start))
	return ans, nil
}

// Retrieve embeds question and returns up to k ranked passages. k <= 0 uses the configured TopK.
func (a *Answerer) Retrieve(ctx context.Context, question string, k int) ([]storage.RetrievedChunk, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if k <= 0 {
		k = a.cfg.TopK
	}

	stageStart := time.Now()
	vector, err := a.embedder.EmbedQuery(ctx, question)
	if err != nil {
		a.logger.Error("Question embedding failed", "error", err)
		return nil, &QueryError{Stage: StageEmbedding, Err: err}
	}
	a.metrics.ObserveStage(string(StageEmbedding), time.Since(stageStart))

	stageStart = time.Now()
	passages, err := a.index.Query(ctx, a.cfg.Collection, vector, k)
	if err != nil {
		a.logger.Error("Index query failed", "collection", a.cfg.Collection, "error", err)
		return nil, &QueryError{Stage: StageRetrieval, Err: err}
	}
	a.metrics.ObserveStage(string(StageRetrieval), time.Since(stageStart))

	a.logger.Debug("Retrieved passages", "k", k, "count", len(passages))
	return passages, nil
}

// Citations returns the distinct source/page pairs of passages in first-occurrence order.
func Citations(passages []storage.RetrievedChunk) []Citation {
	seen := make(map[Citation]struct{}, len(passages))
	citations := make([]Citation, 0, len(passages))
	for _, p := range passages {
		c := Citation{SourceID: p.Metadata.SourceID, Page: p.Metadata.Page}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		citations = append(citations, c)
	}
	return citations
}
