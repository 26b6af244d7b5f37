package kvstore

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local Store. Expired entries are dropped lazily on read.
type Memory struct {
	mu     sync.RWMutex
	groups map[string]map[string]memoryEntry
	now    Clock
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero = never
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithMemoryClock sets the clock used for expiry.
func WithMemoryClock(now Clock) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		groups: make(map[string]map[string]memoryEntry),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the value for key in group, or a miss if absent or expired.
func (m *Memory) Get(_ context.Context, group, key string) ([]byte, bool, error) {
	if err := validate(group, key); err != nil {
		return nil, false, err
	}

	m.mu.RLock()
	entry, ok := m.groups[group][key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		m.mu.Lock()
		if cur, ok := m.groups[group][key]; ok && cur.expiresAt.Equal(entry.expiresAt) {
			delete(m.groups[group], key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}

	return append([]byte(nil), entry.value...), true, nil
}

// Set stores value under key in group. ttl <= 0 never expires.
func (m *Memory) Set(_ context.Context, group, key string, value []byte, ttl time.Duration) error {
	if err := validate(group, key); err != nil {
		return err
	}

	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	g, ok := m.groups[group]
	if !ok {
		g = make(map[string]memoryEntry)
		m.groups[group] = g
	}
	g[key] = entry
	m.mu.Unlock()

	return nil
}

// Delete removes key from group. Idempotent.
func (m *Memory) Delete(_ context.Context, group, key string) error {
	m.mu.Lock()
	delete(m.groups[group], key)
	m.mu.Unlock()
	return nil
}

// DeleteGroup removes every key in group.
func (m *Memory) DeleteGroup(_ context.Context, group string) error {
	m.mu.Lock()
	delete(m.groups, group)
	m.mu.Unlock()
	return nil
}

// Len returns the number of live and not-yet-collected entries in group.
func (m *Memory) Len(group string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.groups[group])
}

var (
	_ Store        = (*Memory)(nil)
	_ GroupDeleter = (*Memory)(nil)
)
