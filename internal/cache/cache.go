// Package cache provides caching for resolved slot trees, with in-memory and
// Redis backends behind one interface.
package cache

import (
	"context"
	"time"
)

// Cacher is the interface all cache backends implement. Values are []byte so
// memory and Redis backends behave identically. Implementations must be
// thread-safe.
type Cacher interface {
	// Get retrieves a value. Returns ErrCacheMiss if absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. TTL 0 uses the default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// DeleteByPrefix removes every key with the given prefix.
	DeleteByPrefix(ctx context.Context, prefix string) error

	// Clear removes all entries.
	Clear(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Stats holds hit/miss counters for a cache backend.
type Stats struct {
	Hits    int64
	Misses  int64
	Sets    int64
	Items   int
	HitRate float64
}

// StatsProvider is an optional interface for backends that track statistics.
type StatsProvider interface {
	Stats() Stats
	ResetStats()
}

// Error is the error type for cache operations.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found or has expired.
	ErrCacheMiss Error = "cache miss"

	// ErrCacheClosed indicates the cache has been closed.
	ErrCacheClosed Error = "cache closed"
)
