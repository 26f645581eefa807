package storage

import "context"

// VectorName is the named vector that holds chunk embeddings.
const VectorName = "content"

// DefaultUpsertBatchSize bounds the number of points per upsert request.
const DefaultUpsertBatchSize = 100

// Payload keys.
const (
	fieldText       = "text"
	fieldSourceID   = "source_id"
	fieldPage       = "page"
	fieldStartIndex = "start_index"
	fieldSeq        = "seq"
)

// Metadata locates a chunk within its source document.
type Metadata struct {
	SourceID   string
	Page       int // 0 when the source has no pagination
	StartIndex int // Character offset of the chunk within the document text
}

// Record is one embedded chunk stored in a collection.
type Record struct {
	ID       string // UUID
	Vector   []float32
	Text     string
	Metadata Metadata
	Seq      int // Position in ingestion order, used to break score ties
}

// RetrievedChunk is a record returned by a query. Vector is not populated.
// Score is cosine similarity: higher means closer.
type RetrievedChunk struct {
	Record
	Rank  int // 0-based position in the result list
	Score float64
}

// CollectionInfo describes a collection.
type CollectionInfo struct {
	Name        string
	Dimension   int
	PointsCount uint64
}

// Index is the vector store used by ingestion and answering.
// Query results are ordered by descending cosine similarity, ties by ascending Seq.
// Implementations are safe for concurrent use.
type Index interface {
	// EnsureCollection creates the collection if missing. With recreate set, any
	// existing collection is dropped first and all of its records are lost.
	EnsureCollection(ctx context.Context, name string, dimension int, recreate bool) error

	// Upsert writes records, overwriting any with the same ID, and returns how many
	// were committed before an error. Batches already committed stay committed.
	Upsert(ctx context.Context, collection string, records []Record) (int, error)

	// Query returns up to k records nearest to vector.
	Query(ctx context.Context, collection string, vector []float32, k int) ([]RetrievedChunk, error)

	// Count returns the exact number of records in the collection.
	Count(ctx context.Context, collection string) (uint64, error)

	Info(ctx context.Context, collection string) (*CollectionInfo, error)
	Health(ctx context.Context) error
	Close() error
}
