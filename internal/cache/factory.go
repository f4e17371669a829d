package cache

import (
	"log/slog"
	"time"
)

// Config holds configuration for cache creation.
type Config struct {
	// Type is the cache backend type: "memory" or "redis"
	Type string

	// RedisURL is the Redis connection URL (only for redis type)
	RedisURL string

	// Prefix is the key prefix for Redis (only for redis type)
	Prefix string

	// DefaultTTL is the default TTL for cache entries
	DefaultTTL time.Duration

	// CleanupInterval is the expired-entry cleanup interval for the memory
	// backend
	CleanupInterval time.Duration

	// FallbackToMemory falls back to the memory backend when Redis is
	// configured but unreachable
	FallbackToMemory bool
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		Type:            "memory",
		DefaultTTL:      time.Hour,
		CleanupInterval: time.Minute,
	}
}

// New creates a cache backend based on the provided configuration.
func New(cfg Config) (Cacher, error) {
	if cfg.Type == "redis" && cfg.RedisURL != "" {
		redisCache, err := NewRedisCache(RedisCacheOptions{
			URL:        cfg.RedisURL,
			Prefix:     cfg.Prefix,
			DefaultTTL: cfg.DefaultTTL,
		})
		if err == nil {
			return redisCache, nil
		}
		if !cfg.FallbackToMemory {
			return nil, err
		}
		slog.Warn("redis unavailable, falling back to memory cache", "error", err)
	}

	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		CleanupInterval: cfg.CleanupInterval,
	}), nil
}
