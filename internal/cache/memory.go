package cache

import (
	"context"
	"sync"
	"time"
)

// Compile-time check: Memory implements ResponseCache.
var _ ResponseCache = (*Memory)(nil)

type entry struct {
	response  string
	createdAt time.Time
}

// Memory is an in-process response cache with lazy TTL expiry and
// insertion-order (FIFO) eviction once maxEntries is exceeded. A re-set key
// moves to the most-recent insertion position and its age resets.
// Safe for concurrent use.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]entry
	order      []string // insertion order, oldest first
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewMemory creates a memory cache with the given TTL and capacity.
func NewMemory(ttl time.Duration, maxEntries int) *Memory {
	return &Memory{
		entries:    make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Test seam.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// Get returns the cached response. An expired entry found here is deleted
// on the spot; there is no background sweeper.
func (m *Memory) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return "", false
	}
	if m.now().Sub(e.createdAt) >= m.ttl {
		delete(m.entries, key)
		m.removeFromOrder(key)
		return "", false
	}
	return e.response, true
}

// Set inserts or overwrites key. When the entry count exceeds the capacity,
// exactly one entry is evicted: the earliest-inserted among those still held.
func (m *Memory) Set(_ context.Context, key, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; exists {
		m.removeFromOrder(key)
	}
	m.entries[key] = entry{response: response, createdAt: m.now()}
	m.order = append(m.order, key)

	if len(m.entries) > m.maxEntries {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}
}

// Len returns the current entry count.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) removeFromOrder(key string) {
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}
