package cache

import (
	"context"
	"time"
)

// Entry is a cached registry document.
type Entry struct {
	Key          string
	Body         []byte
	ETag         string
	LastModified string
	StoredAt     time.Time
	TTL          time.Duration
	StaleTime    time.Duration
}

// IsFresh returns true if the entry is still within its TTL.
func (e *Entry) IsFresh() bool {
	return time.Since(e.StoredAt) < e.TTL
}

// IsStale returns true if the entry is past TTL but still within its stale window.
func (e *Entry) IsStale() bool {
	age := time.Since(e.StoredAt)
	return age >= e.TTL && age < (e.TTL+e.StaleTime)
}

// IsTooOld returns true if the entry is past both TTL and stale window.
func (e *Entry) IsTooOld() bool {
	return time.Since(e.StoredAt) >= (e.TTL + e.StaleTime)
}

// WithUpdatedTimestamp returns a copy of the entry with StoredAt set to now.
// Used after a conditional request confirms the cached body is still current.
func (e *Entry) WithUpdatedTimestamp() *Entry {
	updated := *e
	updated.StoredAt = time.Now()
	return &updated
}

// Store is the interface implemented by cache backends.
type Store interface {
	// Get retrieves an entry, returning (nil, nil) when the key is absent
	// or the entry is past its stale window.
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Config holds cache configuration shared by backends.
type Config struct {
	TTL             time.Duration
	StaleTime       time.Duration
	CleanupInterval time.Duration
}

// DefaultConfig returns a cache config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		TTL:             15 * time.Minute,
		StaleTime:       6 * time.Hour,
		CleanupInterval: 5 * time.Minute,
	}
}

// applyDefaults returns a Config with defaults applied for zero-valued fields.
func applyDefaults(config Config) Config {
	defaults := DefaultConfig()

	if config.TTL == 0 {
		config.TTL = defaults.TTL
	}
	if config.StaleTime == 0 {
		config.StaleTime = defaults.StaleTime
	}
	if config.CleanupInterval == 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	return config
}
