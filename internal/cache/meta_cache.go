package cache

import "context"

// MemoryCache is an in-process byte cache for table column metadata. Stored
// and returned slices are copies.
type MemoryCache struct {
	lru *LRU[[]byte]
}

// NewMemoryCache returns a cache holding at most capacity entries.
func NewMemoryCache(capacity int) *MemoryCache {
	return &MemoryCache{lru: NewLRU[[]byte](capacity, nil)}
}

// Get returns the bytes stored under key.
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	v, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Write stores value under key, replacing any previous value.
func (m *MemoryCache) Write(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.lru.Set(key, append([]byte(nil), value...))
	return nil
}

// Delete forgets key.
func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}

// Stats returns cache metrics.
func (m *MemoryCache) Stats() Stats {
	return m.lru.Stats()
}
