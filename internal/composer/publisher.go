// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

package composer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/assaka/daino-composer/internal/model"
	"github.com/assaka/daino-composer/internal/store"
)

// InvalidateFunc is called after every successful publish so caches can drop
// stale resolved trees for the affected key.
type InvalidateFunc func(tenantID, pageType string)

// Publisher atomically promotes configurations to acceptance or published.
// Publishes for the same (tenant, page type) key are single-writer; different
// keys proceed independently.
type Publisher struct {
	db      *sql.DB
	queries *store.Queries

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	hooksMu sync.RWMutex
	hooks   []InvalidateFunc
}

// NewPublisher creates a publish coordinator on the given database.
func NewPublisher(db *sql.DB) *Publisher {
	return &Publisher{
		db:      db,
		queries: store.New(db),
		locks:   make(map[string]*sync.Mutex),
	}
}

// OnPublish registers a hook fired after every successful publish.
func (p *Publisher) OnPublish(fn InvalidateFunc) {
	p.hooksMu.Lock()
	p.hooks = append(p.hooks, fn)
	p.hooksMu.Unlock()
}

// keyLock returns the single-writer lock for a (tenant, page type) key.
func (p *Publisher) keyLock(tenantID, pageType string) *sync.Mutex {
	key := tenantID + "\x00" + pageType
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[key] = lock
	}
	return lock
}

// Publish promotes a configuration to the target status (acceptance or
// published). The transition check, tree validation, promotion stamp and
// demotion of the prior published row happen in one transaction; the single
// published row invariant holds before and after. A publish already in
// flight for the same key fails fast with ConflictError, which is safe to
// retry.
func (p *Publisher) Publish(ctx context.Context, configurationID, target, actor string) (*model.Configuration, error) {
	if target != model.StatusAcceptance && target != model.StatusPublished {
		return nil, &InvalidTransitionError{ConfigurationID: configurationID, From: "?", To: target}
	}

	cfg, err := p.queries.GetConfigurationByID(ctx, configurationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{ConfigurationID: configurationID}
		}
		return nil, fmt.Errorf("loading configuration %s: %w", configurationID, err)
	}

	lock := p.keyLock(cfg.TenantID, cfg.PageType)
	if !lock.TryLock() {
		return nil, &ConflictError{TenantID: cfg.TenantID, PageType: cfg.PageType, Op: "publish"}
	}
	defer lock.Unlock()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning publish transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	qtx := p.queries.WithTx(tx)

	// Re-read inside the transaction; the row may have moved since the
	// unlocked read above.
	cfg, err = qtx.GetConfigurationByID(ctx, configurationID)
	if err != nil {
		return nil, fmt.Errorf("loading configuration %s: %w", configurationID, err)
	}

	if err := checkTransition(cfg.ID, cfg.Status, target); err != nil {
		return nil, err
	}
	if err := ValidateTree(cfg.RootID, cfg.Slots); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	stamp := store.PromoteConfigurationParams{
		ID:          cfg.ID,
		PublishedAt: now,
		PublishedBy: actor,
	}

	switch target {
	case model.StatusPublished:
		if err := qtx.DemotePublished(ctx, store.DemotePublishedParams{
			TenantID:  cfg.TenantID,
			PageType:  cfg.PageType,
			ExcludeID: cfg.ID,
			UpdatedAt: now,
		}); err != nil {
			return nil, fmt.Errorf("demoting published configuration: %w", err)
		}
		if err := qtx.PromoteToPublished(ctx, stamp); err != nil {
			return nil, fmt.Errorf("promoting configuration: %w", err)
		}
	case model.StatusAcceptance:
		if err := qtx.PromoteToAcceptance(ctx, stamp); err != nil {
			return nil, fmt.Errorf("promoting configuration: %w", err)
		}
	}

	// The promoted version is no longer an edit in progress on its parent.
	if cfg.ParentVersionID.Valid && target == model.StatusPublished {
		if err := qtx.SetCurrentEdit(ctx, store.SetCurrentEditParams{
			ID:            cfg.ParentVersionID.String,
			CurrentEditID: sql.NullString{},
			UpdatedAt:     now,
		}); err != nil {
			return nil, fmt.Errorf("clearing parent edit pointer: %w", err)
		}
	}

	promoted, err := qtx.GetConfigurationByID(ctx, cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("re-reading configuration %s: %w", cfg.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing publish: %w", err)
	}

	slog.Info("configuration published",
		"category", "publish",
		"configuration_id", promoted.ID,
		"tenant_id", promoted.TenantID,
		"page_type", promoted.PageType,
		"status", promoted.Status,
		"version", promoted.VersionNumber,
		"actor", actor,
	)

	p.hooksMu.RLock()
	hooks := p.hooks
	p.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(promoted.TenantID, promoted.PageType)
	}

	return promoted, nil
}
