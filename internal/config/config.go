// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"COMPOSER_DB_PATH" envDefault:"./data/composer.db"`
	ServerHost string `env:"COMPOSER_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"COMPOSER_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"COMPOSER_ENV" envDefault:"development"`
	LogLevel   string `env:"COMPOSER_LOG_LEVEL" envDefault:"info"`

	// APIToken guards the editorial endpoints. Read-only resolution stays
	// public; everything that mutates configurations requires it.
	APIToken string `env:"COMPOSER_API_TOKEN,required"`

	// Cache configuration
	RedisURL    string `env:"COMPOSER_REDIS_URL"`                          // Optional Redis URL for distributed caching
	CachePrefix string `env:"COMPOSER_CACHE_PREFIX" envDefault:"composer:"` // Redis key prefix
	CacheTTL    int    `env:"COMPOSER_CACHE_TTL" envDefault:"3600"`        // Resolved-tree TTL in seconds

	// Rate limiting for unauthenticated resolution traffic
	RateLimitRPS   float64 `env:"COMPOSER_RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst int     `env:"COMPOSER_RATE_LIMIT_BURST" envDefault:"100"`

	// Scheduler configuration
	SchedulerEnabled bool `env:"COMPOSER_SCHEDULER_ENABLED" envDefault:"true"`
}

// MinAPITokenLength is the minimum required length for the API token.
const MinAPITokenLength = 16

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.APIToken) < MinAPITokenLength {
		return nil, fmt.Errorf("COMPOSER_API_TOKEN must be at least %d bytes long, got %d bytes; "+
			"generate a token with: openssl rand -base64 24",
			MinAPITokenLength, len(cfg.APIToken))
	}

	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("COMPOSER_CACHE_TTL must be positive, got %d", cfg.CacheTTL)
	}

	return cfg, nil
}
