package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store holds opaque values under string keys
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type memoryEntry struct {
	value   []byte
	expires time.Time // zero means never
}

// MemoryStore is an in-process Store, safe for concurrent use
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get returns a copy of the value, or ErrMiss
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrMiss
	}
	if m.expired(entry) {
		m.mu.Lock()
		// a Set may have replaced the entry since the read lock was dropped
		if current, ok := m.entries[key]; ok && m.expired(current) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, ErrMiss
	}
	return append([]byte(nil), entry.value...), nil
}

func (m *MemoryStore) expired(e memoryEntry) bool {
	return !e.expires.IsZero() && !m.now().Before(e.expires)
}

// Set stores a copy of value. A ttl <= 0 never expires.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expires = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

// Delete removes key
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired ones included
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close drops every entry
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}

// NopStore never stores anything
type NopStore struct{}

func (NopStore) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }

func (NopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NopStore) Delete(context.Context, string) error { return nil }

func (NopStore) Close() error { return nil }

// Backend names accepted by New
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// New builds the store for a backend name
func New(ctx context.Context, backend string, redisOpts RedisOptions) (Store, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendNone:
		return NopStore{}, nil
	case BackendRedis:
		return NewRedisStore(ctx, redisOpts)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
