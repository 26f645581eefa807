//go:build integration

package storage

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestIndex connects to the Qdrant named by QDRANT_URL (default localhost)
// and creates a fresh collection. Skips the test if Qdrant is not running.
func setupTestIndex(t *testing.T, dimension int) (*QdrantIndex, string) {
	t.Helper()

	url := os.Getenv("QDRANT_URL")
	if url == "" {
		url = "http://localhost:6334"
	}
	index, err := NewQdrantIndex(context.Background(), url, os.Getenv("QDRANT_API_KEY"), WithUpsertBatchSize(2))
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	name := "test_" + uuid.NewString()
	require.NoError(t, index.EnsureCollection(context.Background(), name, dimension, true))
	t.Cleanup(func() {
		_ = index.client.DeleteCollection(context.Background(), name)
		index.Close()
	})
	return index, name
}

func testRecord(seq int, sourceID string, page int, vector ...float32) Record {
	return Record{
		ID:       uuid.NewString(),
		Vector:   vector,
		Text:     "chunk text",
		Metadata: Metadata{SourceID: sourceID, Page: page, StartIndex: seq * 10},
		Seq:      seq,
	}
}

func TestQdrantRoundTrip(t *testing.T) {
	index, name := setupTestIndex(t, 3)
	ctx := context.Background()

	records := []Record{
		testRecord(0, "a.pdf", 1, 1, 0, 0),
		testRecord(1, "a.pdf", 2, 0, 1, 0),
		testRecord(2, "b.txt", 0, 0, 0, 1),
	}
	n, err := index.Upsert(ctx, name, records)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	count, err := index.Count(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	results, err := index.Query(ctx, name, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, records[0].ID, results[0].ID)
	assert.Equal(t, 0, results[0].Rank)
	assert.Equal(t, "a.pdf", results[0].Metadata.SourceID)
	assert.Equal(t, 1, results[0].Metadata.Page)
	assert.Equal(t, "chunk text", results[0].Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
}

func TestQdrantUpsertOverwrites(t *testing.T) {
	index, name := setupTestIndex(t, 3)
	ctx := context.Background()

	r := testRecord(0, "a.pdf", 1, 1, 0, 0)
	_, err := index.Upsert(ctx, name, []Record{r})
	require.NoError(t, err)
	_, err = index.Upsert(ctx, name, []Record{r})
	require.NoError(t, err)

	count, err := index.Count(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestQdrantRecreate(t *testing.T) {
	index, name := setupTestIndex(t, 3)
	ctx := context.Background()

	_, err := index.Upsert(ctx, name, []Record{testRecord(0, "a.pdf", 1, 1, 0, 0)})
	require.NoError(t, err)

	require.NoError(t, index.EnsureCollection(ctx, name, 3, true))
	count, err := index.Count(ctx, name)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestQdrantDimensionValidation(t *testing.T) {
	index, name := setupTestIndex(t, 3)
	ctx := context.Background()

	_, err := index.Upsert(ctx, name, []Record{testRecord(0, "a.pdf", 1, 1, 0)})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = index.Query(ctx, name, []float32{1, 0, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	err = index.EnsureCollection(ctx, name, 4, false)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestQdrantCollectionNotFound(t *testing.T) {
	index, _ := setupTestIndex(t, 3)

	_, err := index.Info(context.Background(), "missing_"+uuid.NewString())
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestQdrantInfo(t *testing.T) {
	index, name := setupTestIndex(t, 3)

	info, err := index.Info(context.Background(), name)
	require.NoError(t, err)
	assert.Equal(t, name, info.Name)
	assert.Equal(t, 3, info.Dimension)
}
