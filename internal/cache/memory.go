// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryLRU is a bounded in-memory cache with per-entry TTL. When full, an
// insert evicts the least recently accessed entry; both Get and Put count as
// access. It is independent of any durable Store.
type MemoryLRU[V any] struct {
	mu    sync.Mutex
	items *lru.Cache[string, memoryEntry[V]]
	ttl   time.Duration
	now   func() time.Time
}

type memoryEntry[V any] struct {
	value     V
	createdAt time.Time
}

// NewMemoryLRU returns a cache holding at most size entries. A non-positive
// ttl disables expiry.
func NewMemoryLRU[V any](size int, ttl time.Duration, opts ...Option) (*MemoryLRU[V], error) {
	items, err := lru.New[string, memoryEntry[V]](size)
	if err != nil {
		return nil, fmt.Errorf("creating memory cache: %w", err)
	}
	o := buildOptions(opts)
	return &MemoryLRU[V]{items: items, ttl: ttl, now: o.now}, nil
}

// Get returns the value for key and refreshes its recency. Expired entries
// are removed and reported as misses.
func (m *MemoryLRU[V]) Get(key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	e, ok := m.items.Get(key)
	if !ok {
		return zero, false
	}
	if m.ttl > 0 && m.now().Sub(e.createdAt) > m.ttl {
		m.items.Remove(key)
		return zero, false
	}
	return e.value, true
}

// Put stores value under key, evicting the least recently used entry when
// the cache is full.
func (m *MemoryLRU[V]) Put(key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items.Add(key, memoryEntry[V]{value: value, createdAt: m.now()})
}

// Remove deletes key.
func (m *MemoryLRU[V]) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items.Remove(key)
}

// Len returns the number of entries, including expired ones not yet purged.
func (m *MemoryLRU[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items.Len()
}

// Purge removes every entry.
func (m *MemoryLRU[V]) Purge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items.Purge()
}
