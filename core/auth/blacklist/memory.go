package blacklist

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Cache for tests and single-node deployments.
// Expired entries are dropped lazily on access.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]time.Time // hash -> deadline
	now     func() time.Time
}

// NewMemory creates an in-memory cache, for tests and single-node use.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *Memory) Add(_ context.Context, hash string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[hash] = m.now().Add(ttl)
	return nil
}

func (m *Memory) Contains(_ context.Context, hash string) (bool, error) {
	m.mu.RLock()
	deadline, ok := m.entries[hash]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}

	if !deadline.After(m.now()) {
		m.mu.Lock()
		delete(m.entries, hash)
		m.mu.Unlock()
		return false, nil
	}
	return true, nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	for hash, deadline := range m.entries {
		if !deadline.After(now) {
			delete(m.entries, hash)
		}
	}
	return len(m.entries)
}

// interface compliance
var _ Cache = (*Memory)(nil)
