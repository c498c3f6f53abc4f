// Package cache provides the bounded, concurrent-safe caches the pipeline
// keeps per run: hash, metadata, and content, each capped at a fixed entry
// count with single-flight discipline so a cache miss under concurrent
// workers computes once instead of once per worker.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultCapacity is the per-cache entry cap; eviction beyond it is
// delegated entirely to golang-lru/v2's least-recently-used policy.
const DefaultCapacity = 10000

// Cache is a bounded, keyed cache with single-flight-guarded misses: at
// most one computation of a given key runs concurrently, and every other
// caller waiting on the same key observes its result.
type Cache[V any] struct {
	lru   *lru.Cache[string, V]
	group singleflight.Group
}

// New builds a Cache capped at capacity entries. capacity <= 0 uses
// DefaultCapacity.
func New[V any](capacity int) (*Cache[V], error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l, err := lru.New[string, V](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache[V]{lru: l}, nil
}

// GetOrCompute returns the cached value for key, computing it via compute
// on a miss. Concurrent callers racing on the same key share one
// computation.
func (c *Cache[V]) GetOrCompute(key string, compute func() (V, error)) (V, error) {
	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.lru.Get(key); ok {
			return v, nil
		}
		computed, err := compute()
		if err != nil {
			return computed, err
		}
		c.lru.Add(key, computed)
		return computed, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Invalidate removes key from the cache, used when a resource's identity
// changes underneath it (a move/rename produces a new resource handle).
func (c *Cache[V]) Invalidate(key string) {
	c.lru.Remove(key)
}

// Len reports the current entry count.
func (c *Cache[V]) Len() int {
	return c.lru.Len()
}
