package cache

import (
	"time"

	"github.com/onnwee/fmmtree/backend/internal/fmm"
)

// Cache stores built trees by fingerprint. Trees are read-only after
// Build, so one cached tree may be handed to many callers.
type Cache interface {
	// Get retrieves a tree by key.
	// Returns the tree and true if found and not expired, otherwise nil and false.
	Get(key uint64) (*fmm.Tree, bool)

	// Set stores a tree under key with the given TTL.
	// TTL of 0 means use the default cache TTL.
	Set(key uint64, tree *fmm.Tree, ttl time.Duration)

	// Delete removes a tree from the cache.
	Delete(key uint64)

	// Clear removes all trees from the cache.
	Clear()

	// Stats returns cache statistics.
	Stats() Stats
}

// Stats represents cache statistics.
type Stats struct {
	Hits      uint64 `json:"hits"`      // Total cache hits
	Misses    uint64 `json:"misses"`    // Total cache misses
	KeysAdded uint64 `json:"keysAdded"` // Total keys added
	Evictions uint64 `json:"evictions"` // Total evictions
	Cost      int64  `json:"cost"`      // Approximate size in bytes
	Items     int64  `json:"items"`     // Current number of items
}

// Cost estimates the memory held by a tree in bytes.
func Cost(t *fmm.Tree) int64 {
	const nodeOverhead = 96
	dim := int64(t.Dimension())
	sources := int64(t.Len()) * (dim + 2) * 8
	nodes := int64(t.Stats().Nodes) * (dim*8 + nodeOverhead)
	return sources + nodes
}
