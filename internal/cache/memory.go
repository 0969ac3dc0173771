// Package cache provides the in-process ResultCache: a mutex-guarded
// key -> (payload, created_at) table with a fixed time-to-live.
package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is the lifetime of a cached result.
const DefaultTTL = time.Hour

type entry struct {
	value     []byte
	createdAt time.Time
}

// Memory is a concurrency-safe TTL cache. Expired entries are treated as
// absent but are not evicted; they are replaced by the next Put for the same
// key, so the table grows with the number of distinct keys.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time

	// OnLookup is called after every Get (optional, for metrics).
	OnLookup func(hit bool)
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithClock replaces the wall clock used for TTL checks.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// NewMemory creates an empty cache. A non-positive ttl selects DefaultTTL.
func NewMemory(ttl time.Duration, opts ...MemoryOption) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Memory{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the payload stored under key if now - created_at < TTL.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	hit := ok && m.now().Sub(e.createdAt) < m.ttl
	if m.OnLookup != nil {
		m.OnLookup(hit)
	}
	if !hit {
		return nil, false
	}
	return e.value, true
}

// Put stores a private copy of value under key, replacing any existing entry.
func (m *Memory) Put(_ context.Context, key string, value []byte) {
	v := make([]byte, len(value))
	copy(v, value)

	m.mu.Lock()
	m.entries[key] = entry{value: v, createdAt: m.now()}
	m.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// TTL returns the configured time-to-live.
func (m *Memory) TTL() time.Duration { return m.ttl }
