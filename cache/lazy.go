package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sagarc03/runstore"
)

// ErrNotMaterialized is returned by Set when the cache has not been read yet.
var ErrNotMaterialized = fmt.Errorf("cache not materialized: %w", runstore.ErrContractViolation)

// Producer fetches every object backing a cache.
type Producer[V any] func(ctx context.Context) ([]V, error)

// Lazy is a memoized key/value view over the objects returned by a Producer.
// It is safe for concurrent use.
type Lazy[K comparable, V any] struct {
	mu           sync.RWMutex
	data         map[K]V
	materialized bool

	produce Producer[V]
	key     func(V) K
}

// NewLazy returns an empty, un-materialized cache.
func NewLazy[K comparable, V any](produce Producer[V], key func(V) K) *Lazy[K, V] {
	return &Lazy[K, V]{
		data:    make(map[K]V),
		produce: produce,
		key:     key,
	}
}

// materialize runs the producer if needed and returns with the read lock held.
func (c *Lazy[K, V]) materialize(ctx context.Context) error {
	c.mu.RLock()
	if c.materialized {
		return nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	if !c.materialized {
		objs, err := c.produce(ctx)
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("materialize cache: %w", err)
		}

		data := make(map[K]V, len(objs))
		for _, obj := range objs {
			data[c.key(obj)] = obj
		}
		c.data = data
		c.materialized = true
	}
	c.mu.Unlock()

	// Clear may run between Unlock and RLock; materialize again in that case.
	return c.materialize(ctx)
}

// Keys materializes the cache if needed and returns every key in no particular order.
func (c *Lazy[K, V]) Keys(ctx context.Context) ([]K, error) {
	if err := c.materialize(ctx); err != nil {
		return nil, err
	}
	defer c.mu.RUnlock()

	keys := make([]K, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	return keys, nil
}

// Values materializes the cache if needed and returns every value in no particular order.
func (c *Lazy[K, V]) Values(ctx context.Context) ([]V, error) {
	if err := c.materialize(ctx); err != nil {
		return nil, err
	}
	defer c.mu.RUnlock()

	values := make([]V, 0, len(c.data))
	for _, v := range c.data {
		values = append(values, v)
	}
	return values, nil
}

// Get materializes the cache if needed and returns the value stored under key,
// or the zero value of V when key is absent. The error is non-nil only when
// materialization fails.
func (c *Lazy[K, V]) Get(ctx context.Context, key K) (V, error) {
	v, _, err := c.Lookup(ctx, key)
	return v, err
}

// Lookup is Get with an explicit presence flag.
func (c *Lazy[K, V]) Lookup(ctx context.Context, key K) (V, bool, error) {
	if err := c.materialize(ctx); err != nil {
		var zero V
		return zero, false, err
	}
	defer c.mu.RUnlock()

	v, ok := c.data[key]
	return v, ok, nil
}

// Set inserts or overwrites the value under key. The cache must already be
// materialized; otherwise Set returns ErrNotMaterialized and stores nothing.
func (c *Lazy[K, V]) Set(key K, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.materialized {
		return ErrNotMaterialized
	}
	c.data[key] = value
	return nil
}

// Delete removes key from a materialized cache. It is a no-op on an
// un-materialized cache because the next materialization refetches anyway.
func (c *Lazy[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
}

// Clear drops all data and marks the cache un-materialized. The next read runs
// the producer again.
func (c *Lazy[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[K]V)
	c.materialized = false
}

// Materialized reports whether the backing data has been fetched.
func (c *Lazy[K, V]) Materialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.materialized
}

// Len returns the number of entries without materializing.
func (c *Lazy[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// IsNotMaterialized reports whether err came from Set on an unread cache.
func IsNotMaterialized(err error) bool {
	return errors.Is(err, ErrNotMaterialized)
}
