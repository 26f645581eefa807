package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serverDims stands in for the collection sizes held by the server.
type serverDims struct {
	dims    map[string]int
	fetches int
}

func (s *serverDims) fetch(_ context.Context, collection string) (int, error) {
	s.fetches++
	dim, ok := s.dims[collection]
	if !ok {
		return 0, ErrCollectionNotFound
	}
	return dim, nil
}

func TestDimCache_CachesLookups(t *testing.T) {
	server := &serverDims{dims: map[string]int{"judgements": 768}}
	c := newDimCache(server.fetch)
	ctx := context.Background()

	require.NoError(t, c.check(ctx, "judgements", 768, "query"))
	require.NoError(t, c.check(ctx, "judgements", 768, "query"))
	assert.Equal(t, 1, server.fetches)
}

func TestDimCache_RefreshesAfterExternalRecreate(t *testing.T) {
	server := &serverDims{dims: map[string]int{"judgements": 768}}
	c := newDimCache(server.fetch)
	ctx := context.Background()

	require.NoError(t, c.check(ctx, "judgements", 768, "query"))

	// Another process rebuilds the collection with a different model.
	server.dims["judgements"] = 1536

	require.NoError(t, c.check(ctx, "judgements", 1536, "query"))
	assert.Equal(t, 2, server.fetches)
	require.NoError(t, c.check(ctx, "judgements", 1536, "query"))
	assert.Equal(t, 2, server.fetches)
}

func TestDimCache_MismatchConfirmedOnce(t *testing.T) {
	server := &serverDims{dims: map[string]int{"judgements": 768}}
	c := newDimCache(server.fetch)
	ctx := context.Background()

	require.NoError(t, c.check(ctx, "judgements", 768, "query"))

	err := c.check(ctx, "judgements", 3, "query")
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Contains(t, err.Error(), "query has 3 dimensions, expected 768")
	assert.Equal(t, 2, server.fetches)
}

func TestDimCache_UncachedMismatchFetchesOnce(t *testing.T) {
	server := &serverDims{dims: map[string]int{"judgements": 768}}
	c := newDimCache(server.fetch)

	err := c.check(context.Background(), "judgements", 3, "record")
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 1, server.fetches)
}

func TestDimCache_MissingCollection(t *testing.T) {
	c := newDimCache((&serverDims{dims: map[string]int{}}).fetch)

	err := c.check(context.Background(), "judgements", 768, "query")
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}
