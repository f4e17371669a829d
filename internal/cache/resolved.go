// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"time"
)

// ResolvedCache stores serialized resolved slot trees keyed by
// (tenant, page type, status, override fingerprint). Invalidation is
// explicit: the publish coordinator drops every entry for the affected key
// on each successful publish. TTLs exist for performance hygiene only, never
// for correctness.
type ResolvedCache struct {
	backend Cacher
	ttl     time.Duration
}

// NewResolvedCache creates a resolved-tree cache on the given backend.
func NewResolvedCache(backend Cacher, ttl time.Duration) *ResolvedCache {
	return &ResolvedCache{backend: backend, ttl: ttl}
}

// key builds the cache key. The fingerprint already encodes the override
// layers and resolve context.
func (c *ResolvedCache) key(tenantID, pageType, status, fingerprint string) string {
	return "resolved:" + tenantID + ":" + pageType + ":" + status + ":" + fingerprint
}

// Get returns a cached resolved tree, or ErrCacheMiss.
func (c *ResolvedCache) Get(ctx context.Context, tenantID, pageType, status, fingerprint string) ([]byte, error) {
	return c.backend.Get(ctx, c.key(tenantID, pageType, status, fingerprint))
}

// Set stores a resolved tree.
func (c *ResolvedCache) Set(ctx context.Context, tenantID, pageType, status, fingerprint string, tree []byte) error {
	return c.backend.Set(ctx, c.key(tenantID, pageType, status, fingerprint), tree, c.ttl)
}

// InvalidatePage drops every cached resolution for a (tenant, page type)
// key, across all statuses and fingerprints.
func (c *ResolvedCache) InvalidatePage(tenantID, pageType string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = c.backend.DeleteByPrefix(ctx, "resolved:"+tenantID+":"+pageType+":")
}

// Stats returns backend statistics when the backend tracks them.
func (c *ResolvedCache) Stats() (Stats, bool) {
	if sp, ok := c.backend.(StatsProvider); ok {
		return sp.Stats(), true
	}
	return Stats{}, false
}
