// Package embedding converts chunk and query text into vectors.
package embedding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/bull/legal-rag/internal/provider"
)

const (
	// DefaultModel is the embedding model served by the Gemini OpenAI-compatible endpoint.
	DefaultModel = "text-embedding-004"

	// DefaultDimension is the vector size produced by DefaultModel.
	DefaultDimension = 768

	// DefaultBatchSize keeps individual requests well under provider input limits.
	DefaultBatchSize = 64

	// DefaultConcurrency is the number of batch requests allowed in flight.
	DefaultConcurrency = 4
)

// Backend is the provider call the embedder delegates to.
type Backend interface {
	CreateEmbeddings(ctx context.Context, model string, texts []string) ([]provider.IndexedVector, error)
}

// Config controls model selection and request shaping.
type Config struct {
	Model             string
	Dimension         int
	BatchSize         int
	Concurrency       int
	RequestsPerSecond float64 // <= 0 disables pacing
}

// Embedder generates embeddings with a single model for both documents and queries,
// so every vector it returns is comparable under the same metric.
// It never retries; failures surface as provider.ErrProvider for the caller to handle.
// An Embedder is safe for concurrent use.
type Embedder struct {
	backend     Backend
	model       string
	dimension   int
	batchSize   int
	concurrency int
	limiter     *rate.Limiter
}

// NewEmbedder creates an Embedder. Zero config fields take package defaults.
func NewEmbedder(backend Backend, cfg Config) *Embedder {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}

	limit := rate.Inf
	burst := 0
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = max(1, cfg.Concurrency)
	}

	return &Embedder{
		backend:     backend,
		model:       cfg.Model,
		dimension:   cfg.Dimension,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		limiter:     rate.NewLimiter(limit, burst),
	}
}

// Model returns the embedding model name.
func (e *Embedder) Model() string { return e.model }

// Dimension returns the configured vector size.
func (e *Embedder) Dimension() int { return e.dimension }

// EmbedDocuments embeds texts in batches and returns one vector per text, in input order.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	if len(texts) == 0 {
		return vectors, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))
		g.Go(func() error {
			batch, err := e.embedBatch(gctx, texts[i:end])
			if err != nil {
				return fmt.Errorf("batch %d-%d: %w", i, end, err)
			}
			copy(vectors[i:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// EmbedQuery embeds a single question.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Verify embeds a probe through both the document and the query path and checks
// that the provider returns vectors of the configured dimension for each.
// Run it once at startup.
func (e *Embedder) Verify(ctx context.Context) error {
	const probe = "Section 34 of the Arbitration and Conciliation Act"

	docs, err := e.EmbedDocuments(ctx, []string{probe})
	if err != nil {
		return fmt.Errorf("verify document embedding: %w", err)
	}
	query, err := e.EmbedQuery(ctx, probe)
	if err != nil {
		return fmt.Errorf("verify query embedding: %w", err)
	}
	if len(docs[0]) != len(query) {
		return fmt.Errorf("%w: document vectors have %d dimensions, query vectors %d",
			provider.ErrProvider, len(docs[0]), len(query))
	}
	return nil
}

// embedBatch performs one paced provider call and validates its response.
func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	resp, err := e.backend.CreateEmbeddings(ctx, e.model, texts)
	if err != nil {
		return nil, err
	}

	if len(resp) != len(texts) {
		return nil, fmt.Errorf("%w: malformed response: %d vectors for %d inputs",
			provider.ErrProvider, len(resp), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, v := range resp {
		if v.Index < 0 || v.Index >= len(texts) || out[v.Index] != nil {
			return nil, fmt.Errorf("%w: malformed response: bad index %d", provider.ErrProvider, v.Index)
		}
		if len(v.Vector) != e.dimension {
			return nil, fmt.Errorf("%w: malformed response: vector has %d dimensions, expected %d",
				provider.ErrProvider, len(v.Vector), e.dimension)
		}
		out[v.Index] = v.Vector
	}
	return out, nil
}
