// Package indexer rebuilds the vector index from a document source.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bull/legal-rag/internal/chunker"
	"github.com/bull/legal-rag/internal/document"
	"github.com/bull/legal-rag/internal/metrics"
	"github.com/bull/legal-rag/internal/storage"
)

// State is a stage of an ingestion run.
type State string

const (
	StateIdle      State = "idle"
	StateLoading   State = "loading"
	StateChunking  State = "chunking"
	StateEmbedding State = "embedding"
	StateUpserting State = "upserting"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

const (
	DefaultBatchSize   = 64
	DefaultConcurrency = 4
)

// recordNamespace scopes the name-based UUIDs given to chunk records.
var recordNamespace = uuid.MustParse("5b0c8f3e-2d47-4a8e-9c61-7f3a1e9d2b54")

// Embedder embeds chunk texts.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Config controls the target collection and batching.
type Config struct {
	Collection  string
	BatchSize   int // Records per upsert call
	Concurrency int // Upsert calls in flight
}

// IndexResult contains statistics about a completed ingestion run.
type IndexResult struct {
	Documents      int
	EmptyDocuments int
	Chunks         int
	Committed      int
	Collection     string
	Duration       time.Duration
}

// Pipeline orchestrates a full rebuild: load, chunk, embed, recreate the collection, upsert.
// Only one run may be active at a time.
type Pipeline struct {
	source   document.Source
	splitter *chunker.Splitter
	embedder Embedder
	index    storage.Index
	cfg      Config
	metrics  *metrics.Metrics
	logger   *slog.Logger

	running atomic.Bool
	mu      sync.RWMutex
	state   State
}

// NewPipeline creates an ingestion pipeline. metrics and logger may be nil.
func NewPipeline(
	source document.Source,
	splitter *chunker.Splitter,
	embedder Embedder,
	index storage.Index,
	cfg Config,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Pipeline{
		source:   source,
		splitter: splitter,
		embedder: embedder,
		index:    index,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
		state:    StateIdle,
	}
}

// State returns the current stage. It is safe to call while Run is active.
func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Run replaces the contents of the collection with the chunks of every loaded document.
// Chunks are embedded and upserted one batch of cfg.BatchSize at a time, with at most
// cfg.Concurrency batches in flight, so only those batches' vectors are held in memory.
// The collection is recreated only after the first batch has been embedded: failures
// while loading, chunking or embedding that batch leave the existing collection untouched.
// On failure the error is an *IngestError.
func (p *Pipeline) Run(ctx context.Context) (*IndexResult, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer p.running.Store(false)

	start := time.Now()
	result := &IndexResult{Collection: p.cfg.Collection}
	p.logger.Info("Starting ingestion",
		"collection", p.cfg.Collection,
		"chunk_size", p.splitter.ChunkSize(),
		"overlap", p.splitter.Overlap(),
		"batch_size", p.cfg.BatchSize)

	// 1. Load
	p.enter(StateLoading)
	stageStart := time.Now()
	docs, err := p.source.Load(ctx)
	if err != nil {
		return nil, p.fail(StateLoading, 0, fmt.Errorf("load documents: %w", err))
	}
	p.metrics.ObserveStage(string(StateLoading), time.Since(stageStart))
	result.Documents = len(docs)
	p.logger.Info("Loaded documents", "count", len(docs))

	// 2. Chunk
	p.enter(StateChunking)
	for _, doc := range docs {
		if doc.Text == "" {
			result.EmptyDocuments++
			p.logger.Warn("Document has no text, skipping", "source", doc.SourceID)
		}
	}
	chunks := p.splitter.Split(docs)
	if len(chunks) == 0 {
		return nil, p.fail(StateChunking, 0, document.ErrEmptyCorpus)
	}
	result.Chunks = len(chunks)
	p.logger.Info("Chunked documents", "chunks", len(chunks))

	// 3. Embed the first batch before touching the collection
	p.enter(StateEmbedding)
	stageStart = time.Now()
	first := chunks[:min(p.cfg.BatchSize, len(chunks))]
	firstVectors, err := p.embed(ctx, first)
	if err != nil {
		return nil, p.fail(StateEmbedding, 0, fmt.Errorf("embed batch 0-%d: %w", len(first), err))
	}
	p.metrics.ObserveStage(string(StateEmbedding), time.Since(stageStart))

	// 4. Recreate, then embed and upsert the remaining batches
	p.enter(StateUpserting)
	stageStart = time.Now()
	if err := p.index.EnsureCollection(ctx, p.cfg.Collection, p.embedder.Dimension(), true); err != nil {
		return nil, p.fail(StateUpserting, 0, fmt.Errorf("recreate collection: %w", err))
	}

	committed, err := p.ingestBatches(ctx, chunks, firstVectors)
	result.Committed = committed
	if err != nil {
		stage := StateUpserting
		var se *stageError
		if errors.As(err, &se) {
			stage = se.stage
		}
		return nil, p.fail(stage, committed, err)
	}

	count, err := p.index.Count(ctx, p.cfg.Collection)
	if err != nil {
		return nil, p.fail(StateUpserting, committed, fmt.Errorf("count records: %w", err))
	}
	if count != uint64(len(chunks)) {
		return nil, p.fail(StateUpserting, committed,
			fmt.Errorf("%w: %d records, %d chunks", ErrCountMismatch, count, len(chunks)))
	}
	p.metrics.ObserveStage(string(StateUpserting), time.Since(stageStart))

	p.enter(StateDone)
	p.metrics.IngestionFinished(string(StateDone))
	result.Duration = time.Since(start)
	p.logger.Info("Ingestion complete",
		"documents", result.Documents,
		"empty_documents", result.EmptyDocuments,
		"chunks", result.Chunks,
		"duration", result.Duration,
	)
	return result, nil
}

// stageError tags a batch failure with the stage it happened in.
type stageError struct {
	stage State
	err   error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

// ingestBatches embeds and upserts chunks in batches of cfg.BatchSize with at most
// cfg.Concurrency batches in flight, returning how many records were committed.
// firstVectors are the already computed vectors of the first batch.
func (p *Pipeline) ingestBatches(ctx context.Context, chunks []chunker.Chunk, firstVectors [][]float32) (int, error) {
	var committed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i := 0; i < len(chunks); i += p.cfg.BatchSize {
		end := min(i+p.cfg.BatchSize, len(chunks))
		g.Go(func() error {
			batch := chunks[i:end]
			vectors := firstVectors
			if i > 0 {
				var err error
				vectors, err = p.embed(gctx, batch)
				if err != nil {
					return &stageError{StateEmbedding, fmt.Errorf("embed batch %d-%d: %w", i, end, err)}
				}
			}

			n, err := p.index.Upsert(gctx, p.cfg.Collection, buildRecords(batch, vectors, i))
			committed.Add(int64(n))
			p.metrics.ChunksCommitted(n)
			if err != nil {
				return &stageError{StateUpserting, fmt.Errorf("upsert batch %d-%d: %w", i, end, err)}
			}
			p.logger.Debug("Upserted batch", "from", i, "to", end)
			return nil
		})
	}
	err := g.Wait()
	return int(committed.Load()), err
}

func (p *Pipeline) embed(ctx context.Context, batch []chunker.Chunk) ([][]float32, error) {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(batch) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
	}
	return vectors, nil
}

func (p *Pipeline) enter(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	p.logger.Info("Ingestion stage", "stage", string(s))
}

func (p *Pipeline) fail(stage State, committed int, err error) error {
	p.mu.Lock()
	p.state = StateFailed
	p.mu.Unlock()

	p.metrics.IngestionFinished(string(StateFailed))
	p.logger.Error("Ingestion failed", "stage", string(stage), "committed", committed, "error", err)
	return &IngestError{Stage: stage, Committed: committed, Err: err}
}

// buildRecords pairs a batch of chunks with their vectors. offset is the
// position of the batch's first chunk, so Seq follows overall chunk order.
func buildRecords(chunks []chunker.Chunk, vectors [][]float32, offset int) []storage.Record {
	records := make([]storage.Record, len(chunks))
	for i, c := range chunks {
		records[i] = storage.Record{
			ID:     RecordID(c.SourceID, c.StartIndex),
			Vector: vectors[i],
			Text:   c.Text,
			Metadata: storage.Metadata{
				SourceID:   c.SourceID,
				Page:       c.Page,
				StartIndex: c.StartIndex,
			},
			Seq: offset + i,
		}
	}
	return records
}

// RecordID derives a stable UUID from a chunk's position in its source.
func RecordID(sourceID string, startIndex int) string {
	return uuid.NewSHA1(recordNamespace, []byte(sourceID+"#"+strconv.Itoa(startIndex))).String()
}
