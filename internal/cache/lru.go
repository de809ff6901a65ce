package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/onnwee/fmmtree/backend/internal/fmm"
)

// LRUCache is a size-bounded tree cache implementation using ristretto.
type LRUCache struct {
	cache      *ristretto.Cache
	defaultTTL time.Duration
}

// cacheItem wraps the tree with expiration time.
type cacheItem struct {
	tree      *fmm.Tree
	expiresAt time.Time
}

// NewLRU creates a new LRU cache with the given configuration.
// maxSizeMB is the maximum approximate size of the cached trees in megabytes.
// maxEntries is the expected maximum number of entries in the cache.
// defaultTTL is the default time-to-live for cache entries.
func NewLRU(maxSizeMB int64, maxEntries int64, defaultTTL time.Duration) (*LRUCache, error) {
	// NumCounters should be ~10x the number of entries for optimal performance
	numCounters := maxEntries * 10
	if numCounters < 1000 {
		numCounters = 1000
	}

	config := &ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     maxSizeMB * 1024 * 1024, // Convert MB to bytes
		BufferItems: 64,                      // Number of keys per Get buffer
		Metrics:     true,
	}

	cache, err := ristretto.NewCache(config)
	if err != nil {
		return nil, err
	}

	return &LRUCache{
		cache:      cache,
		defaultTTL: defaultTTL,
	}, nil
}

// Get retrieves a tree from the cache by key.
func (c *LRUCache) Get(key uint64) (*fmm.Tree, bool) {
	val, found := c.cache.Get(key)
	if !found {
		return nil, false
	}

	item, ok := val.(*cacheItem)
	if !ok {
		c.cache.Del(key)
		return nil, false
	}

	if time.Now().After(item.expiresAt) {
		c.cache.Del(key)
		return nil, false
	}

	return item.tree, true
}

// Set stores a tree in the cache with the given key and TTL.
func (c *LRUCache) Set(key uint64, tree *fmm.Tree, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	item := &cacheItem{
		tree:      tree,
		expiresAt: time.Now().Add(ttl),
	}

	// Set returns false when the item is rejected by the admission policy;
	// the next miss simply rebuilds.
	_ = c.cache.SetWithTTL(key, item, Cost(tree), ttl)

	// Wait for value to pass through buffers (recommended by ristretto docs)
	c.cache.Wait()
}

// Delete removes a tree from the cache.
func (c *LRUCache) Delete(key uint64) {
	c.cache.Del(key)
}

// Clear removes all trees from the cache.
func (c *LRUCache) Clear() {
	c.cache.Clear()
}

// Stats returns cache statistics.
func (c *LRUCache) Stats() Stats {
	metrics := c.cache.Metrics

	return Stats{
		Hits:      metrics.Hits(),
		Misses:    metrics.Misses(),
		KeysAdded: metrics.KeysAdded(),
		Evictions: metrics.KeysEvicted(),
		Cost:      int64(metrics.CostAdded() - metrics.CostEvicted()), // Approximate current size
		Items:     int64(metrics.KeysAdded() - metrics.KeysEvicted()),
	}
}

// Close closes the cache and releases resources.
func (c *LRUCache) Close() {
	c.cache.Close()
}
