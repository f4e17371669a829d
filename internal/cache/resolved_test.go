// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"testing"
	"time"
)

func TestResolvedCacheRoundTrip(t *testing.T) {
	backend := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour})
	defer func() { _ = backend.Close() }()
	rc := NewResolvedCache(backend, time.Hour)
	ctx := context.Background()

	if err := rc.Set(ctx, "acme", "cart", "published", "fp1", []byte(`{"root_id":"root"}`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := rc.Get(ctx, "acme", "cart", "published", "fp1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `{"root_id":"root"}` {
		t.Errorf("got %s", got)
	}

	// Different fingerprint is a distinct entry.
	if _, err := rc.Get(ctx, "acme", "cart", "published", "fp2"); err != ErrCacheMiss {
		t.Errorf("expected ErrCacheMiss for another fingerprint, got %v", err)
	}
}

func TestResolvedCacheInvalidatePage(t *testing.T) {
	backend := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour})
	defer func() { _ = backend.Close() }()
	rc := NewResolvedCache(backend, time.Hour)
	ctx := context.Background()

	rc.Set(ctx, "acme", "cart", "published", "fp1", []byte("a"))
	rc.Set(ctx, "acme", "cart", "default", "fp2", []byte("b"))
	rc.Set(ctx, "acme", "checkout", "published", "fp1", []byte("c"))
	rc.Set(ctx, "globex", "cart", "published", "fp1", []byte("d"))

	rc.InvalidatePage("acme", "cart")

	if _, err := rc.Get(ctx, "acme", "cart", "published", "fp1"); err != ErrCacheMiss {
		t.Error("published entry survived invalidation")
	}
	if _, err := rc.Get(ctx, "acme", "cart", "default", "fp2"); err != ErrCacheMiss {
		t.Error("default entry survived invalidation")
	}
	// Other pages and tenants are untouched.
	if _, err := rc.Get(ctx, "acme", "checkout", "published", "fp1"); err != nil {
		t.Error("another page type was invalidated")
	}
	if _, err := rc.Get(ctx, "globex", "cart", "published", "fp1"); err != nil {
		t.Error("another tenant was invalidated")
	}
}

func TestResolvedCacheStats(t *testing.T) {
	backend := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour})
	defer func() { _ = backend.Close() }()
	rc := NewResolvedCache(backend, time.Hour)

	if _, ok := rc.Stats(); !ok {
		t.Error("memory backend should report stats")
	}
}
