package cache

import (
	"sync"
	"time"

	"github.com/onnwee/fmmtree/backend/internal/fmm"
)

// MockCache is a simple in-memory cache for testing that implements the Cache interface.
type MockCache struct {
	mu     sync.Mutex
	data   map[uint64]*fmm.Tree
	hits   uint64
	misses uint64
}

// NewMockCache creates a new mock cache for testing.
func NewMockCache() *MockCache {
	return &MockCache{
		data: make(map[uint64]*fmm.Tree),
	}
}

func (m *MockCache) Get(key uint64) (*fmm.Tree, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, found := m.data[key]
	if found {
		m.hits++
	} else {
		m.misses++
	}
	return val, found
}

func (m *MockCache) Set(key uint64, tree *fmm.Tree, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = tree
}

func (m *MockCache) Delete(key uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

func (m *MockCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[uint64]*fmm.Tree)
}

func (m *MockCache) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Hits:   m.hits,
		Misses: m.misses,
		Items:  int64(len(m.data)),
	}
}
