// Package app assembles the long-lived components shared by the CLI and the server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bull/legal-rag/internal/answer"
	"github.com/bull/legal-rag/internal/chunker"
	"github.com/bull/legal-rag/internal/config"
	"github.com/bull/legal-rag/internal/document"
	"github.com/bull/legal-rag/internal/embedding"
	"github.com/bull/legal-rag/internal/generation"
	"github.com/bull/legal-rag/internal/github"
	"github.com/bull/legal-rag/internal/indexer"
	"github.com/bull/legal-rag/internal/metrics"
	"github.com/bull/legal-rag/internal/provider"
	"github.com/bull/legal-rag/internal/storage"
)

// Resources holds the components built once per process.
type Resources struct {
	Config    *config.Config
	Embedder  *embedding.Embedder
	Generator *generation.Generator
	Index     storage.Index
	Splitter  *chunker.Splitter
	Answerer  *answer.Answerer
	Metrics   *metrics.Metrics

	// Models lists the provider's models. Nil when built from test backends.
	Models func(ctx context.Context) ([]string, error)

	logger *slog.Logger
}

// Backends are the provider calls the resources delegate to.
type Backends struct {
	Embeddings embedding.Backend
	Completion generation.Completer
}

// New connects to the model provider and the vector index described by cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Resources, error) {
	embedClient, err := provider.NewClient(provider.Config{APIKey: cfg.EmbeddingKey(), BaseURL: cfg.Provider.BaseURL})
	if err != nil {
		return nil, fmt.Errorf("%w: embedding provider: %v", config.ErrConfiguration, err)
	}
	genClient, err := provider.NewClient(provider.Config{APIKey: cfg.GenerationKey(), BaseURL: cfg.Provider.BaseURL})
	if err != nil {
		return nil, fmt.Errorf("%w: generation provider: %v", config.ErrConfiguration, err)
	}

	index, err := OpenIndex(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	r, err := NewWithBackends(cfg, Backends{Embeddings: embedClient, Completion: genClient}, index, logger)
	if err != nil {
		index.Close()
		return nil, err
	}
	r.Models = genClient.ListModels
	return r, nil
}

// OpenIndex opens the vector index selected by cfg.Index.Backend.
func OpenIndex(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Index, error) {
	switch cfg.Index.Backend {
	case config.BackendMemory:
		return storage.NewMemoryIndex(), nil
	case config.BackendQdrant:
		index, err := storage.NewQdrantIndex(ctx, cfg.Index.URL, cfg.Index.APIKey,
			storage.WithUpsertBatchSize(cfg.Embedding.BatchSize),
			storage.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
		}
		return index, nil
	default:
		return nil, fmt.Errorf("%w: unknown vector backend %q", config.ErrConfiguration, cfg.Index.Backend)
	}
}

// NewWithBackends builds the resources on top of already constructed provider
// backends and index.
func NewWithBackends(cfg *config.Config, b Backends, index storage.Index, logger *slog.Logger) (*Resources, error) {
	if logger == nil {
		logger = slog.Default()
	}

	splitter, err := chunker.New(
		chunker.WithChunkSize(cfg.Chunking.Size),
		chunker.WithOverlap(cfg.Chunking.Overlap),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}

	m := metrics.New()

	embedder := embedding.NewEmbedder(b.Embeddings, embedding.Config{
		Model:             cfg.Embedding.Model,
		Dimension:         cfg.Embedding.Dimension,
		BatchSize:         cfg.Embedding.BatchSize,
		Concurrency:       cfg.Embedding.Concurrency,
		RequestsPerSecond: cfg.Provider.RequestsPerSecond,
	})
	generator := generation.NewGenerator(b.Completion, generation.Config{
		Model:             cfg.Generation.Model,
		Temperature:       cfg.Generation.Temperature,
		RequestsPerSecond: cfg.Provider.RequestsPerSecond,
	}, logger)

	answerer, err := answer.NewAnswerer(embedder, index, generator, answer.Config{
		Collection: cfg.Index.Collection,
		TopK:       cfg.Index.TopK,
	}, m, logger)
	if err != nil {
		return nil, err
	}

	return &Resources{
		Config:    cfg,
		Embedder:  embedder,
		Generator: generator,
		Index:     index,
		Splitter:  splitter,
		Answerer:  answerer,
		Metrics:   m,
		logger:    logger,
	}, nil
}

// Source returns the configured document source: the GitHub directory when
// one is set, otherwise the local data directory.
func (r *Resources) Source() (document.Source, error) {
	src := r.Config.Source
	if src.GitHub == "" {
		return document.NewDirectoryLoader(src.DataDir, nil, r.Config.Embedding.Concurrency, r.logger), nil
	}

	loc, err := github.ParseLocation(src.GitHub)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}
	client, err := github.NewClient(src.GitHubToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}
	return github.NewSource(client, loc, nil, r.logger), nil
}

// Pipeline creates an ingestion pipeline reading from source.
func (r *Resources) Pipeline(source document.Source) *indexer.Pipeline {
	return indexer.NewPipeline(source, r.Splitter, r.Embedder, r.Index, indexer.Config{
		Collection:  r.Config.Index.Collection,
		BatchSize:   r.Config.Embedding.BatchSize,
		Concurrency: r.Config.Embedding.Concurrency,
	}, r.Metrics, r.logger)
}

// Bootstrap runs a full ingestion when the index does not outlive the process.
// It is a no-op for the qdrant backend and returns a nil result.
func (r *Resources) Bootstrap(ctx context.Context) (*indexer.IndexResult, error) {
	if r.Config.Index.Backend != config.BackendMemory {
		return nil, nil
	}
	source, err := r.Source()
	if err != nil {
		return nil, err
	}
	r.logger.Info("in-memory index selected; ingesting corpus", "collection", r.Config.Index.Collection)
	return r.Pipeline(source).Run(ctx)
}

// Verify checks that the embedding model produces vectors of the configured
// dimension and that an existing collection was built with the same dimension.
// A collection that does not exist yet is not an error.
func (r *Resources) Verify(ctx context.Context) error {
	if err := r.Embedder.Verify(ctx); err != nil {
		return err
	}

	info, err := r.Index.Info(ctx, r.Config.Index.Collection)
	if errors.Is(err, storage.ErrCollectionNotFound) {
		r.logger.Warn("collection does not exist yet; run ingestion before asking questions",
			"collection", r.Config.Index.Collection)
		return nil
	}
	if err != nil {
		return err
	}
	if info.Dimension != r.Embedder.Dimension() {
		return fmt.Errorf("%w: collection %q has %d dimensions but %s produces %d",
			storage.ErrDimensionMismatch, info.Name, info.Dimension, r.Embedder.Model(), r.Embedder.Dimension())
	}
	return nil
}

// Close releases the index connection.
func (r *Resources) Close() error {
	return r.Index.Close()
}
