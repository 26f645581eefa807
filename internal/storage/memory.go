package storage

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// MemoryIndex is an in-process Index using brute-force cosine similarity.
// Contents are lost when the process exits.
type MemoryIndex struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	dimension int
	records   map[string]Record
}

// NewMemoryIndex creates an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{collections: make(map[string]*memoryCollection)}
}

func (m *MemoryIndex) EnsureCollection(_ context.Context, name string, dimension int, recreate bool) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", ErrDimensionMismatch, dimension)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.collections[name]; ok && !recreate {
		if c.dimension != dimension {
			return fmt.Errorf("%w: collection %q has %d dimensions, expected %d",
				ErrDimensionMismatch, name, c.dimension, dimension)
		}
		return nil
	}
	m.collections[name] = &memoryCollection{
		dimension: dimension,
		records:   make(map[string]Record),
	}
	return nil
}

func (m *MemoryIndex) Upsert(_ context.Context, collection string, records []Record) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.collection(collection)
	if err != nil {
		return 0, err
	}
	for i, r := range records {
		if len(r.Vector) != c.dimension {
			return 0, fmt.Errorf("%w: record %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(r.Vector), c.dimension)
		}
	}
	for _, r := range records {
		r.Vector = append([]float32(nil), r.Vector...)
		c.records[r.ID] = r
	}
	return len(records), nil
}

func (m *MemoryIndex) Query(_ context.Context, collection string, vector []float32, k int) ([]RetrievedChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, err := m.collection(collection)
	if err != nil {
		return nil, err
	}
	if len(vector) != c.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), c.dimension)
	}
	if k <= 0 {
		return []RetrievedChunk{}, nil
	}

	results := make([]RetrievedChunk, 0, len(c.records))
	for _, r := range c.records {
		hit := r
		hit.Vector = nil
		results = append(results, RetrievedChunk{Record: hit, Score: cosine(vector, r.Vector)})
	}
	rank(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (m *MemoryIndex) Count(_ context.Context, collection string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, err := m.collection(collection)
	if err != nil {
		return 0, err
	}
	return uint64(len(c.records)), nil
}

func (m *MemoryIndex) Info(_ context.Context, collection string) (*CollectionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, err := m.collection(collection)
	if err != nil {
		return nil, err
	}
	return &CollectionInfo{
		Name:        collection,
		Dimension:   c.dimension,
		PointsCount: uint64(len(c.records)),
	}, nil
}

func (m *MemoryIndex) Health(context.Context) error { return nil }

func (m *MemoryIndex) Close() error { return nil }

// collection must be called with m.mu held.
func (m *MemoryIndex) collection(name string) (*memoryCollection, error) {
	c, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return c, nil
}

// cosine returns the cosine similarity of a and b, or 0 if either is a zero vector.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var _ Index = (*MemoryIndex)(nil)
