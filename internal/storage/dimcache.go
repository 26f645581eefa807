package storage

import (
	"context"
	"fmt"
	"sync"
)

// dimCache remembers the vector size of each collection. Another process may
// recreate a collection with a different size, so a mismatch against a cached
// entry is confirmed with a fresh lookup before it is reported.
type dimCache struct {
	mu    sync.RWMutex
	dims  map[string]int
	fetch func(ctx context.Context, collection string) (int, error)
}

func newDimCache(fetch func(ctx context.Context, collection string) (int, error)) *dimCache {
	return &dimCache{dims: make(map[string]int), fetch: fetch}
}

// get returns the vector size of collection and whether it came from the cache.
func (c *dimCache) get(ctx context.Context, collection string) (int, bool, error) {
	c.mu.RLock()
	dim, ok := c.dims[collection]
	c.mu.RUnlock()
	if ok {
		return dim, true, nil
	}

	dim, err := c.fetch(ctx, collection)
	if err != nil {
		return 0, false, err
	}
	c.remember(collection, dim)
	return dim, false, nil
}

// check fails with ErrDimensionMismatch unless collection holds vectors of size got.
// what names the checked vector in the error message.
func (c *dimCache) check(ctx context.Context, collection string, got int, what string) error {
	dim, cached, err := c.get(ctx, collection)
	if err != nil {
		return err
	}
	if got == dim {
		return nil
	}
	if cached {
		c.forget(collection)
		if dim, _, err = c.get(ctx, collection); err != nil {
			return err
		}
		if got == dim {
			return nil
		}
	}
	return fmt.Errorf("%w: %s has %d dimensions, expected %d",
		ErrDimensionMismatch, what, got, dim)
}

func (c *dimCache) remember(collection string, dim int) {
	c.mu.Lock()
	c.dims[collection] = dim
	c.mu.Unlock()
}

func (c *dimCache) forget(collection string) {
	c.mu.Lock()
	delete(c.dims, collection)
	c.mu.Unlock()
}
