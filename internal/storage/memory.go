package storage

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// Memory is a process-local Driver. Values vanish on restart.
type Memory struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	ttl       time.Duration
	lastSweep time.Time
}

// NewMemory creates a Memory driver. A ttl of zero keeps entries forever.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries:   make(map[string]memoryEntry),
		ttl:       ttl,
		lastSweep: time.Now(),
	}
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func memoryKey(browserID, key string) string {
	return browserID + "\x00" + key
}

func (m *Memory) Get(_ context.Context, browserID, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := memoryKey(browserID, key)
	entry, ok := m.entries[k]
	if !ok {
		return "", ErrNotFound
	}
	if entry.expired(time.Now()) {
		delete(m.entries, k)
		return "", ErrNotFound
	}

	return entry.value, nil
}

func (m *Memory) Set(_ context.Context, browserID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.sweep(now)

	entry := memoryEntry{value: value}
	if m.ttl > 0 {
		entry.expiresAt = now.Add(m.ttl)
	}
	m.entries[memoryKey(browserID, key)] = entry

	return nil
}

func (m *Memory) Remove(_ context.Context, browserID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, memoryKey(browserID, key))
	return nil
}

// sweep drops expired entries of browsers that never came back. It runs at
// most once per ttl; callers hold mu.
func (m *Memory) sweep(now time.Time) {
	if m.ttl <= 0 || now.Sub(m.lastSweep) < m.ttl {
		return
	}

	for k, entry := range m.entries {
		if entry.expired(now) {
			delete(m.entries, k)
		}
	}
	m.lastSweep = now
}
