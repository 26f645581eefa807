package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id string, seq int, vector ...float32) Record {
	return Record{
		ID:       id,
		Vector:   vector,
		Text:     "text " + id,
		Metadata: Metadata{SourceID: "doc-" + id, Page: 1},
		Seq:      seq,
	}
}

func setupMemory(t *testing.T) *MemoryIndex {
	t.Helper()
	m := NewMemoryIndex()
	require.NoError(t, m.EnsureCollection(context.Background(), "judgements", 3, false))
	return m
}

func TestMemoryIndex_QueryOrdersBySimilarity(t *testing.T) {
	m := setupMemory(t)
	ctx := context.Background()

	n, err := m.Upsert(ctx, "judgements", []Record{
		record("far", 0, 0, 0, 1),
		record("near", 1, 1, 0, 0),
		record("mid", 2, 1, 1, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	results, err := m.Query(ctx, "judgements", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "near", results[0].ID)
	assert.Equal(t, 0, results[0].Rank)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "mid", results[1].ID)
	assert.Equal(t, 1, results[1].Rank)
	assert.Nil(t, results[0].Vector)
	assert.Equal(t, "doc-near", results[0].Metadata.SourceID)
}

func TestMemoryIndex_TiesBrokenByInsertionOrder(t *testing.T) {
	m := setupMemory(t)
	ctx := context.Background()

	_, err := m.Upsert(ctx, "judgements", []Record{
		record("c", 2, 1, 0, 0),
		record("a", 0, 1, 0, 0),
		record("b", 1, 1, 0, 0),
	})
	require.NoError(t, err)

	for range 5 {
		results, err := m.Query(ctx, "judgements", []float32{1, 0, 0}, 3)
		require.NoError(t, err)
		ids := []string{results[0].ID, results[1].ID, results[2].ID}
		assert.Equal(t, []string{"a", "b", "c"}, ids)
	}
}

func TestMemoryIndex_UpsertOverwritesByID(t *testing.T) {
	m := setupMemory(t)
	ctx := context.Background()

	_, err := m.Upsert(ctx, "judgements", []Record{record("a", 0, 1, 0, 0)})
	require.NoError(t, err)
	updated := record("a", 0, 0, 1, 0)
	updated.Text = "updated"
	_, err = m.Upsert(ctx, "judgements", []Record{updated})
	require.NoError(t, err)

	count, err := m.Count(ctx, "judgements")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	results, err := m.Query(ctx, "judgements", []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, "updated", results[0].Text)
}

func TestMemoryIndex_Recreate(t *testing.T) {
	m := setupMemory(t)
	ctx := context.Background()

	_, err := m.Upsert(ctx, "judgements", []Record{record("a", 0, 1, 0, 0)})
	require.NoError(t, err)

	require.NoError(t, m.EnsureCollection(ctx, "judgements", 3, false))
	count, _ := m.Count(ctx, "judgements")
	assert.Equal(t, uint64(1), count, "ensure without recreate keeps records")

	require.NoError(t, m.EnsureCollection(ctx, "judgements", 3, true))
	count, _ = m.Count(ctx, "judgements")
	assert.Zero(t, count)
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	m := setupMemory(t)
	ctx := context.Background()

	_, err := m.Upsert(ctx, "judgements", []Record{record("a", 0, 1, 0)})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = m.Query(ctx, "judgements", []float32{1, 0}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	err = m.EnsureCollection(ctx, "judgements", 4, false)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMemoryIndex_CollectionNotFound(t *testing.T) {
	m := NewMemoryIndex()
	ctx := context.Background()

	_, err := m.Query(ctx, "missing", []float32{1}, 1)
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	_, err = m.Count(ctx, "missing")
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	_, err = m.Info(ctx, "missing")
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestMemoryIndex_QueryEdgeCases(t *testing.T) {
	m := setupMemory(t)
	ctx := context.Background()

	results, err := m.Query(ctx, "judgements", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = m.Upsert(ctx, "judgements", []Record{record("a", 0, 1, 0, 0)})
	require.NoError(t, err)

	results, err = m.Query(ctx, "judgements", []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = m.Query(ctx, "judgements", []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestMemoryIndex_Info(t *testing.T) {
	m := setupMemory(t)
	ctx := context.Background()
	_, err := m.Upsert(ctx, "judgements", []Record{record("a", 0, 1, 0, 0), record("b", 1, 0, 1, 0)})
	require.NoError(t, err)

	info, err := m.Info(ctx, "judgements")
	require.NoError(t, err)
	assert.Equal(t, &CollectionInfo{Name: "judgements", Dimension: 3, PointsCount: 2}, info)
	assert.NoError(t, m.Health(ctx))
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{2, 0}, []float32{5, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, cosine([]float32{0, 0}, []float32{1, 0}))
}
