package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryEntry struct {
	value    json.RawMessage
	storedAt time.Time
}

// Memory implements Database in process memory. It backs tests and the
// "memory" storage provider for running without Firestore access.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry

	// Now is the clock used to stamp entries, overridable in tests.
	Now func() time.Time
}

var _ Database = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		Now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (json.RawMessage, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, time.Time{}, ErrNotFound
	}
	return e.value, e.storedAt, nil
}

func (m *Memory) Put(_ context.Context, key string, value json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// copy so the caller can't mutate the stored payload
	v := make(json.RawMessage, len(value))
	copy(v, value)
	m.entries[key] = memoryEntry{value: v, storedAt: m.Now()}
	return nil
}

func (m *Memory) Purge(_ context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int
	for key, e := range m.entries {
		if e.storedAt.Before(olderThan) {
			delete(m.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

func (m *Memory) Close() error {
	return nil
}
