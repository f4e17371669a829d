// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"os"
	"testing"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	// Clear environment and set only required var
	os.Clearenv()
	setEnv(t, "COMPOSER_API_TOKEN", "test-token-32-bytes-long-enough!")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "./data/composer.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "./data/composer.db")
	}
	if cfg.ServerHost != "localhost" {
		t.Errorf("ServerHost = %q, want %q", cfg.ServerHost, "localhost")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 8080)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want %q", cfg.Env, "development")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.CacheTTL != 3600 {
		t.Errorf("CacheTTL = %d, want 3600", cfg.CacheTTL)
	}
	if !cfg.SchedulerEnabled {
		t.Error("SchedulerEnabled should default to true")
	}
	if cfg.UseRedisCache() {
		t.Error("UseRedisCache should be false without a Redis URL")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	setEnv(t, "COMPOSER_API_TOKEN", "custom-token-32-bytes-long-here!")
	setEnv(t, "COMPOSER_DB_PATH", "/custom/path.db")
	setEnv(t, "COMPOSER_SERVER_HOST", "0.0.0.0")
	setEnv(t, "COMPOSER_SERVER_PORT", "3000")
	setEnv(t, "COMPOSER_ENV", "production")
	setEnv(t, "COMPOSER_REDIS_URL", "redis://localhost:6379/0")
	setEnv(t, "COMPOSER_SCHEDULER_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "/custom/path.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/custom/path.db")
	}
	if cfg.ServerAddr() != "0.0.0.0:3000" {
		t.Errorf("ServerAddr() = %q, want %q", cfg.ServerAddr(), "0.0.0.0:3000")
	}
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment should be false in production")
	}
	if !cfg.UseRedisCache() {
		t.Error("UseRedisCache should be true with a Redis URL")
	}
	if cfg.SchedulerEnabled {
		t.Error("SchedulerEnabled = true, want false")
	}
}

func TestLoad_MissingToken(t *testing.T) {
	os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail without COMPOSER_API_TOKEN")
	}
}

func TestLoad_ShortToken(t *testing.T) {
	os.Clearenv()
	setEnv(t, "COMPOSER_API_TOKEN", "too-short")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject a token shorter than the minimum")
	}
}

func TestLoad_InvalidCacheTTL(t *testing.T) {
	os.Clearenv()
	setEnv(t, "COMPOSER_API_TOKEN", "test-token-32-bytes-long-enough!")
	setEnv(t, "COMPOSER_CACHE_TTL", "0")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject a non-positive cache TTL")
	}
}
