package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory cache backend.
type MemoryStore struct {
	entries map[string]*Entry
	mu      sync.RWMutex
	config  Config
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewMemoryStore creates an in-memory cache with automatic cleanup.
func NewMemoryStore(config Config) *MemoryStore {
	config = applyDefaults(config)

	ms := &MemoryStore{
		entries: make(map[string]*Entry),
		config:  config,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	go ms.cleanup()

	return ms
}

// Get retrieves an entry from the cache.
// Returns nil if the entry doesn't exist or is past its stale window.
func (ms *MemoryStore) Get(ctx context.Context, key string) (*Entry, error) {
	ms.mu.RLock()
	entry, exists := ms.entries[key]
	ms.mu.RUnlock()

	if !exists {
		return nil, nil
	}

	if entry.IsTooOld() {
		ms.mu.Lock()
		delete(ms.entries, key)
		ms.mu.Unlock()
		return nil, nil
	}

	return entry, nil
}

// Set stores an entry in the cache.
func (ms *MemoryStore) Set(ctx context.Context, entry *Entry) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if entry.TTL == 0 {
		entry.TTL = ms.config.TTL
	}
	if entry.StaleTime == 0 {
		entry.StaleTime = ms.config.StaleTime
	}

	entryCopy := &Entry{
		Key:          entry.Key,
		Body:         make([]byte, len(entry.Body)),
		ETag:         entry.ETag,
		LastModified: entry.LastModified,
		StoredAt:     entry.StoredAt,
		TTL:          entry.TTL,
		StaleTime:    entry.StaleTime,
	}
	copy(entryCopy.Body, entry.Body)

	ms.entries[entry.Key] = entryCopy
	return nil
}

// Delete removes an entry from the cache.
func (ms *MemoryStore) Delete(ctx context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.entries, key)
	return nil
}

// Close stops the cleanup goroutine.
func (ms *MemoryStore) Close() error {
	close(ms.stopCh)
	<-ms.doneCh
	return nil
}

// cleanup periodically removes expired entries.
func (ms *MemoryStore) cleanup() {
	ticker := time.NewTicker(ms.config.CleanupInterval)
	defer ticker.Stop()
	defer close(ms.doneCh)

	for {
		select {
		case <-ticker.C:
			ms.removeExpired()
		case <-ms.stopCh:
			return
		}
	}
}

func (ms *MemoryStore) removeExpired() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for key, entry := range ms.entries {
		if entry.IsTooOld() {
			delete(ms.entries, key)
		}
	}
}
