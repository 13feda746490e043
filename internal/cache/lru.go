// Package cache provides the bounded LRU caches shared by every model opened
// on the same database: prepared statements and table column metadata.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// LRU is a string-keyed least-recently-used cache safe for concurrent use.
// onEvict, when set, is called outside the lock for every entry that leaves
// the cache through eviction, Remove or Clear.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List
	onEvict  func(key string, value V)

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type entry[V any] struct {
	key   string
	value V
}

// NewLRU returns a cache holding at most capacity entries. A non-positive
// capacity is replaced by DefaultCapacity.
func NewLRU[V any](capacity int, onEvict func(key string, value V)) *LRU[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &LRU[V]{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
		onEvict:  onEvict,
	}
}

// DefaultCapacity is used when a cache is created without a positive capacity.
const DefaultCapacity = 1000

// Get returns the value stored under key and marks it most recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.order.MoveToFront(elem)
	c.hits.Add(1)
	return elem.Value.(*entry[V]).value, true
}

// Add stores value under key unless the key is already present. When it is,
// the existing value is returned with loaded set and value is not stored.
func (c *LRU[V]) Add(key string, value V) (actual V, loaded bool) {
	c.mu.Lock()
	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		c.mu.Unlock()
		return elem.Value.(*entry[V]).value, true
	}

	var evicted []*entry[V]
	for c.order.Len() >= c.capacity {
		evicted = append(evicted, c.removeElement(c.order.Back()))
		c.evictions.Add(1)
	}
	c.items[key] = c.order.PushFront(&entry[V]{key: key, value: value})
	c.mu.Unlock()

	c.notify(evicted)
	return value, false
}

// Set stores value under key, replacing (and evicting) any previous value.
func (c *LRU[V]) Set(key string, value V) {
	c.mu.Lock()
	var evicted []*entry[V]
	if elem, ok := c.items[key]; ok {
		evicted = append(evicted, c.removeElement(elem))
	}
	for c.order.Len() >= c.capacity {
		evicted = append(evicted, c.removeElement(c.order.Back()))
		c.evictions.Add(1)
	}
	c.items[key] = c.order.PushFront(&entry[V]{key: key, value: value})
	c.mu.Unlock()

	c.notify(evicted)
}

// Remove drops key from the cache. It reports whether the key was present.
func (c *LRU[V]) Remove(key string) bool {
	c.mu.Lock()
	elem, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return false
	}
	e := c.removeElement(elem)
	c.mu.Unlock()

	c.notify([]*entry[V]{e})
	return true
}

// Clear drops every entry.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	evicted := make([]*entry[V], 0, c.order.Len())
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		evicted = append(evicted, elem.Value.(*entry[V]))
	}
	c.items = make(map[string]*list.Element, c.capacity)
	c.order.Init()
	c.mu.Unlock()

	c.notify(evicted)
}

// Len returns the number of cached entries.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats holds cache metrics.
type Stats struct {
	Size      int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	HitRate   float64
}

// Stats returns a snapshot of the cache metrics.
func (c *LRU[V]) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	s := Stats{
		Size:      c.Len(),
		Capacity:  c.capacity,
		Hits:      hits,
		Misses:    misses,
		Evictions: c.evictions.Load(),
	}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}

// removeElement must be called with the lock held.
func (c *LRU[V]) removeElement(elem *list.Element) *entry[V] {
	c.order.Remove(elem)
	e := elem.Value.(*entry[V])
	delete(c.items, e.key)
	return e
}

func (c *LRU[V]) notify(evicted []*entry[V]) {
	if c.onEvict == nil {
		return
	}
	for _, e := range evicted {
		c.onEvict(e.key, e.value)
	}
}
