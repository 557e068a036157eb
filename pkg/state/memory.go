package state

import (
	"context"
	"path/filepath"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	items     map[string]*memoryItem
	mu        sync.RWMutex
	closed    bool
	cleanupCh chan struct{}
	done      chan struct{}
	now       func() time.Time
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

func (it *memoryItem) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && now.After(it.expiresAt)
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	cleanupInterval time.Duration
	now             func() time.Time
}

// WithCleanupInterval sets how often expired items are purged.
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(c *memoryConfig) {
		if d > 0 {
			c.cleanupInterval = d
		}
	}
}

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *memoryConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// NewMemoryStore creates a new in-memory store. Close stops its cleanup
// goroutine.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	cfg := memoryConfig{
		cleanupInterval: time.Minute,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ms := &MemoryStore{
		items:     make(map[string]*memoryItem),
		cleanupCh: make(chan struct{}),
		done:      make(chan struct{}),
		now:       cfg.now,
	}

	go ms.cleanupLoop(cfg.cleanupInterval)

	return ms
}

// Get retrieves a value.
func (ms *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return nil, ErrStoreClosed
	}

	item, ok := ms.items[key]
	if !ok || item.expired(ms.now()) {
		return nil, ErrKeyNotFound
	}

	result := make([]byte, len(item.value))
	copy(result, item.value)
	return result, nil
}

// Set stores a value.
func (ms *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return ErrStoreClosed
	}

	item := &memoryItem{value: make([]byte, len(value))}
	copy(item.value, value)
	if ttl > 0 {
		item.expiresAt = ms.now().Add(ttl)
	}

	ms.items[key] = item
	return nil
}

// Delete removes a key.
func (ms *MemoryStore) Delete(ctx context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return ErrStoreClosed
	}

	delete(ms.items, key)
	return nil
}

// Exists checks if a key exists.
func (ms *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return false, ErrStoreClosed
	}

	item, ok := ms.items[key]
	return ok && !item.expired(ms.now()), nil
}

// Keys returns keys matching a glob pattern.
func (ms *MemoryStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return nil, ErrStoreClosed
	}

	var keys []string
	now := ms.now()
	for key, item := range ms.items {
		if item.expired(now) {
			continue
		}
		if matched, err := filepath.Match(pattern, key); err == nil && matched {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

// Close closes the store and waits for the cleanup goroutine to exit.
func (ms *MemoryStore) Close() error {
	ms.mu.Lock()
	if ms.closed {
		ms.mu.Unlock()
		return nil
	}
	ms.closed = true
	close(ms.cleanupCh)
	ms.mu.Unlock()

	<-ms.done
	return nil
}

func (ms *MemoryStore) cleanupLoop(interval time.Duration) {
	defer close(ms.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.cleanup()
		case <-ms.cleanupCh:
			return
		}
	}
}

func (ms *MemoryStore) cleanup() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	for key, item := range ms.items {
		if item.expired(now) {
			delete(ms.items, key)
		}
	}
}

// Len returns the number of items in the store, expired or not.
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.items)
}

// MemoryStoreStats contains memory store statistics.
type MemoryStoreStats struct {
	ItemCount    int   `json:"items"`
	ExpiredCount int   `json:"expired"`
	TotalSize    int64 `json:"bytes"`
}

// Stats returns store statistics.
func (ms *MemoryStore) Stats() MemoryStoreStats {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	stats := MemoryStoreStats{ItemCount: len(ms.items)}
	now := ms.now()
	for _, item := range ms.items {
		stats.TotalSize += int64(len(item.value))
		if item.expired(now) {
			stats.ExpiredCount++
		}
	}
	return stats
}
