package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	members   map[string]struct{}
	expiresAt time.Time // zero = never
}

// MemoryStore is an in-process Store. Used in dev mode and tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry), now: time.Now}
}

// get returns the live entry at key, dropping it if expired. Caller holds mu.
func (m *MemoryStore) get(key string) *memoryEntry {
	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil
	}
	return e
}

func (m *MemoryStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

// GetJSON implements Store.
func (m *MemoryStore) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	e := m.get(key)
	var data []byte
	if e != nil {
		data = e.data
	}
	m.mu.Unlock()

	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// SetJSON implements Store.
func (m *MemoryStore) SetJSON(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = &memoryEntry{data: data, expiresAt: m.expiry(ttl)}
	return nil
}

// AddMember implements Store.
func (m *MemoryStore) AddMember(_ context.Context, key, member string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.get(key)
	if e == nil {
		e = &memoryEntry{members: make(map[string]struct{})}
		m.entries[key] = e
	}
	if e.members == nil {
		return false, fmt.Errorf("key %s does not hold a set", key)
	}

	e.expiresAt = m.expiry(ttl)
	if _, ok := e.members[member]; ok {
		return false, nil
	}
	e.members[member] = struct{}{}
	return true, nil
}

// Incr implements Store.
func (m *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	e := m.get(key)
	if e != nil {
		if e.members != nil {
			return 0, fmt.Errorf("key %s holds a set", key)
		}
		v, err := strconv.ParseInt(string(e.data), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("key %s is not an integer: %w", key, err)
		}
		n = v
	}
	n++

	expires := time.Time{}
	if e != nil {
		expires = e.expiresAt
	}
	m.entries[key] = &memoryEntry{data: []byte(strconv.FormatInt(n, 10)), expiresAt: expires}
	return n, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}
