package contextcache

import (
	"context"
	"sync"

	"github.com/codesense-ai/brd-verifier/internal/types"
)

// MemoryStore is a map+mutex cache.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*types.AggregatedContext
}

// NewMemoryStore builds an empty in-memory cache.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*types.AggregatedContext)}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (*types.AggregatedContext, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ac, ok := m.items[key]
	return ac, ok
}

func (m *MemoryStore) Put(ctx context.Context, key string, ac *types.AggregatedContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = ac
	return nil
}

func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
