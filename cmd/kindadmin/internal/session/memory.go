package session

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore keeps sessions in an expirable LRU. Entries expire ttl after
// their last write or Touch; the least recently used session is evicted once
// size is reached.
type MemoryStore struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, map[string]string]
}

// NewMemoryStore creates a store holding at most size sessions.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: expirable.NewLRU[string, map[string]string](size, nil, ttl),
	}
}

func (m *MemoryStore) Get(_ context.Context, sessionID, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	values, ok := m.cache.Get(sessionID)
	if !ok {
		return "", false, nil
	}
	value, ok := values[key]
	return value, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, sessionID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	values, ok := m.cache.Peek(sessionID)
	next := make(map[string]string, len(values)+1)
	if ok {
		for k, v := range values {
			next[k] = v
		}
	}
	next[key] = value
	m.cache.Add(sessionID, next)
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, sessionID string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	values, ok := m.cache.Peek(sessionID)
	if !ok {
		return nil
	}
	next := make(map[string]string, len(values))
	for k, v := range values {
		next[k] = v
	}
	for _, key := range keys {
		delete(next, key)
	}
	if len(next) == 0 {
		m.cache.Remove(sessionID)
		return nil
	}
	m.cache.Add(sessionID, next)
	return nil
}

// Touch restarts the idle TTL of sessionID. Re-adding is what resets the
// expiry in expirable.LRU; Get leaves it alone.
func (m *MemoryStore) Touch(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if values, ok := m.cache.Peek(sessionID); ok {
		m.cache.Add(sessionID, values)
	}
	return nil
}

func (m *MemoryStore) Sessions(_ context.Context) ([]string, error) {
	return m.cache.Keys(), nil
}

// Len reports the number of live sessions.
func (m *MemoryStore) Len() int {
	return m.cache.Len()
}
