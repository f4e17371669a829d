// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

package composer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/assaka/daino-composer/internal/cache"
	"github.com/assaka/daino-composer/internal/model"
	"github.com/assaka/daino-composer/internal/store"
)

// Service ties the configuration store, the publish coordinator, the
// resolution engine and the default provider together behind one API.
type Service struct {
	db        *sql.DB
	queries   *store.Queries
	publisher *Publisher
	defaults  DefaultProvider
	resolved  *cache.ResolvedCache
}

// NewService creates the composer service. The resolved cache may be nil to
// disable resolution caching; when present, it is invalidated on every
// successful publish.
func NewService(db *sql.DB, publisher *Publisher, defaults DefaultProvider, resolved *cache.ResolvedCache) *Service {
	s := &Service{
		db:        db,
		queries:   store.New(db),
		publisher: publisher,
		defaults:  defaults,
		resolved:  resolved,
	}
	if resolved != nil {
		publisher.OnPublish(resolved.InvalidatePage)
	}
	return s
}

// Publisher exposes the publish coordinator for transports and the scheduler.
func (s *Service) Publisher() *Publisher {
	return s.publisher
}

// getByStatus fetches one lifecycle row, mapping sql.ErrNoRows to the
// taxonomy.
func (s *Service) getByStatus(ctx context.Context, tenantID, pageType, status string) (*model.Configuration, error) {
	cfg, err := s.queries.GetConfigurationByStatus(ctx, store.GetConfigurationByStatusParams{
		TenantID: tenantID,
		PageType: pageType,
		Status:   status,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{TenantID: tenantID, PageType: pageType, Status: status}
		}
		return nil, fmt.Errorf("loading %s configuration: %w", status, err)
	}
	return cfg, nil
}

// GetDraft returns the current editable draft for a key.
func (s *Service) GetDraft(ctx context.Context, tenantID, pageType string) (*model.Configuration, error) {
	return s.getByStatus(ctx, tenantID, pageType, model.StatusDraft)
}

// GetAcceptance returns the current staging version for a key.
func (s *Service) GetAcceptance(ctx context.Context, tenantID, pageType string) (*model.Configuration, error) {
	return s.getByStatus(ctx, tenantID, pageType, model.StatusAcceptance)
}

// GetPublished returns the live version for a key.
func (s *Service) GetPublished(ctx context.Context, tenantID, pageType string) (*model.Configuration, error) {
	return s.getByStatus(ctx, tenantID, pageType, model.StatusPublished)
}

// GetByID returns a configuration by id.
func (s *Service) GetByID(ctx context.Context, id string) (*model.Configuration, error) {
	cfg, err := s.queries.GetConfigurationByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{ConfigurationID: id}
		}
		return nil, fmt.Errorf("loading configuration %s: %w", id, err)
	}
	return cfg, nil
}

// GetDefault returns the built-in fallback configuration for a page type.
func (s *Service) GetDefault(pageType string) (*model.Configuration, error) {
	return s.defaults.GetDefault(pageType)
}

// CreateDraft forks a new draft for a key. The base is, in order: the
// explicit base (rollback fork from a history entry), the current published
// version, or the default provider's tree. Fails with ConflictError when a
// draft already exists unless resume is set, in which case the existing
// draft is returned untouched.
func (s *Service) CreateDraft(ctx context.Context, tenantID, pageType string, base *model.Configuration, resume bool) (*model.Configuration, error) {
	existing, err := s.GetDraft(ctx, tenantID, pageType)
	if err == nil {
		if resume {
			return existing, nil
		}
		return nil, &ConflictError{TenantID: tenantID, PageType: pageType, Op: "create draft"}
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		return nil, err
	}

	if base == nil {
		base, err = s.GetPublished(ctx, tenantID, pageType)
		if err != nil {
			if !errors.As(err, &nf) {
				return nil, err
			}
			// No stored configuration at all: fork from the built-in
			// default, called exactly once.
			base, err = s.defaults.GetDefault(pageType)
			if err != nil {
				return nil, fmt.Errorf("loading default configuration for %s: %w", pageType, err)
			}
		}
	}

	version, err := s.queries.NextVersionNumber(ctx, store.NextVersionNumberParams{
		TenantID: tenantID,
		PageType: pageType,
	})
	if err != nil {
		return nil, fmt.Errorf("allocating version number: %w", err)
	}

	now := time.Now().UTC()
	draft := &model.Configuration{
		ID:            uuid.NewString(),
		TenantID:      tenantID,
		PageType:      pageType,
		RootID:        base.RootID,
		Slots:         base.CloneSlots(),
		Status:        model.StatusDraft,
		VersionNumber: version,
		SchemaVersion: model.SchemaVersion,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	// Defaults carry version number 0 and live outside the stored lineage;
	// a draft forked from one is the lineage's first version.
	if base.VersionNumber > 0 {
		draft.ParentVersionID = sql.NullString{String: base.ID, Valid: true}
	}

	if err := s.queries.CreateConfiguration(ctx, draft); err != nil {
		return nil, fmt.Errorf("creating draft: %w", err)
	}

	if draft.ParentVersionID.Valid {
		if err := s.queries.SetCurrentEdit(ctx, store.SetCurrentEditParams{
			ID:            draft.ParentVersionID.String,
			CurrentEditID: sql.NullString{String: draft.ID, Valid: true},
			UpdatedAt:     now,
		}); err != nil {
			return nil, fmt.Errorf("pointing parent at draft: %w", err)
		}
	}

	slog.Info("draft created",
		"category", "draft",
		"configuration_id", draft.ID,
		"tenant_id", tenantID,
		"page_type", pageType,
		"version", draft.VersionNumber,
	)
	return draft, nil
}

// SaveDraft applies a structural mutation to a draft. The expectedUpdatedAt
// token carries optimistic concurrency: when it no longer matches the stored
// row, the save fails with StaleWriteError and nothing is written. A zero
// token skips the precondition (last write wins).
func (s *Service) SaveDraft(ctx context.Context, configurationID string, mutation DraftMutation, expectedUpdatedAt time.Time) (*model.Configuration, error) {
	cfg, err := s.GetByID(ctx, configurationID)
	if err != nil {
		return nil, err
	}
	if cfg.Status != model.StatusDraft {
		return nil, &InvalidStateError{ConfigurationID: cfg.ID, Status: cfg.Status, Want: model.StatusDraft}
	}

	newSlots, err := mutation.apply(cfg.RootID, cfg.Slots)
	if err != nil {
		return nil, err
	}
	if err := ValidateTree(cfg.RootID, newSlots); err != nil {
		return nil, err
	}

	expected := expectedUpdatedAt
	if expected.IsZero() {
		expected = cfg.UpdatedAt
	}

	now := time.Now().UTC()
	rows, err := s.queries.UpdateConfigurationSlots(ctx, store.UpdateConfigurationSlotsParams{
		ID:                cfg.ID,
		RootID:            cfg.RootID,
		Slots:             newSlots,
		UpdatedAt:         now,
		ExpectedUpdatedAt: expected,
	})
	if err != nil {
		return nil, fmt.Errorf("saving draft: %w", err)
	}
	if rows == 0 {
		current, readErr := s.GetByID(ctx, cfg.ID)
		if readErr != nil {
			return nil, readErr
		}
		return nil, &StaleWriteError{
			ConfigurationID: cfg.ID,
			Expected:        expected,
			Current:         current.UpdatedAt,
		}
	}

	return s.GetByID(ctx, cfg.ID)
}

// Publish promotes a configuration to acceptance or published through the
// coordinator.
func (s *Service) Publish(ctx context.Context, configurationID, target, actor string) (*model.Configuration, error) {
	return s.publisher.Publish(ctx, configurationID, target, actor)
}

// SchedulePublish stores a deferred publish time on a draft or acceptance
// version; the scheduler promotes it once the time passes.
func (s *Service) SchedulePublish(ctx context.Context, configurationID string, at time.Time) (*model.Configuration, error) {
	cfg, err := s.GetByID(ctx, configurationID)
	if err != nil {
		return nil, err
	}
	if cfg.Status != model.StatusDraft && cfg.Status != model.StatusAcceptance {
		return nil, &InvalidStateError{ConfigurationID: cfg.ID, Status: cfg.Status, Want: model.StatusDraft}
	}

	if err := s.queries.SetScheduledAt(ctx, store.SetScheduledAtParams{
		ID:          cfg.ID,
		ScheduledAt: sql.NullTime{Time: at.UTC(), Valid: true},
		UpdatedAt:   time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("scheduling publish: %w", err)
	}
	return s.GetByID(ctx, cfg.ID)
}

// Revert discards a draft. The draft flips to reverted and stays in history;
// its parent's edit pointer is cleared and the parent's content is never
// touched. The lineage's first draft (no parent) cannot be reverted.
func (s *Service) Revert(ctx context.Context, configurationID string) (*model.Configuration, error) {
	cfg, err := s.GetByID(ctx, configurationID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(cfg.ID, cfg.Status, model.StatusReverted); err != nil {
		return nil, err
	}
	if !cfg.ParentVersionID.Valid {
		return nil, &InvalidTransitionError{ConfigurationID: cfg.ID, From: cfg.Status, To: model.StatusReverted}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning revert transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	qtx := s.queries.WithTx(tx)

	now := time.Now().UTC()
	if err := qtx.SetStatus(ctx, store.SetStatusParams{
		ID:        cfg.ID,
		Status:    model.StatusReverted,
		UpdatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("reverting draft: %w", err)
	}
	if err := qtx.SetCurrentEdit(ctx, store.SetCurrentEditParams{
		ID:            cfg.ParentVersionID.String,
		CurrentEditID: sql.NullString{},
		UpdatedAt:     now,
	}); err != nil {
		return nil, fmt.Errorf("clearing parent edit pointer: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing revert: %w", err)
	}

	slog.Info("draft reverted",
		"category", "draft",
		"configuration_id", cfg.ID,
		"tenant_id", cfg.TenantID,
		"page_type", cfg.PageType,
	)
	return s.GetByID(ctx, cfg.ID)
}

// ReturnToEditing moves an acceptance version back to draft. The pin check
// on acceptance consumers is best-effort: this deployment tracks none.
func (s *Service) ReturnToEditing(ctx context.Context, configurationID string) (*model.Configuration, error) {
	cfg, err := s.GetByID(ctx, configurationID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(cfg.ID, cfg.Status, model.StatusDraft); err != nil {
		return nil, err
	}

	if err := s.queries.SetStatus(ctx, store.SetStatusParams{
		ID:        cfg.ID,
		Status:    model.StatusDraft,
		UpdatedAt: time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("returning to editing: %w", err)
	}
	return s.GetByID(ctx, cfg.ID)
}

// ListHistory returns lineage metadata newest-first plus the total count.
func (s *Service) ListHistory(ctx context.Context, tenantID, pageType string, limit, offset int64) ([]store.HistoryEntry, int64, error) {
	entries, err := s.queries.ListConfigurationHistory(ctx, store.ListConfigurationHistoryParams{
		TenantID: tenantID,
		PageType: pageType,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("listing history: %w", err)
	}
	total, err := s.queries.CountConfigurationHistory(ctx, store.CountConfigurationHistoryParams{
		TenantID: tenantID,
		PageType: pageType,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("counting history: %w", err)
	}
	return entries, total, nil
}

// ResolvePage resolves the current tree for a key. Preview resolves the
// draft; otherwise the published version is used, falling back to the
// default provider when nothing is stored. Published and default resolutions
// are cached by override fingerprint; draft previews are always resolved
// fresh.
func (s *Service) ResolvePage(ctx context.Context, tenantID, pageType string, preview bool, layers []model.OverrideLayer, rctx ResolveContext) (*ResolvedSlotTree, error) {
	if preview {
		cfg, err := s.GetDraft(ctx, tenantID, pageType)
		if err != nil {
			return nil, err
		}
		return Resolve(cfg, layers, rctx)
	}

	cfg, err := s.GetPublished(ctx, tenantID, pageType)
	statusKey := model.StatusPublished
	if err != nil {
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
		cfg, err = s.defaults.GetDefault(pageType)
		if err != nil {
			return nil, fmt.Errorf("loading default configuration for %s: %w", pageType, err)
		}
		statusKey = "default"
	}

	fingerprint := Fingerprint(layers, rctx)
	if s.resolved != nil {
		if raw, err := s.resolved.Get(ctx, tenantID, pageType, statusKey, fingerprint); err == nil {
			var tree ResolvedSlotTree
			if err := json.Unmarshal(raw, &tree); err == nil {
				return &tree, nil
			}
			// Undecodable entries are dropped and resolved fresh.
			s.resolved.InvalidatePage(tenantID, pageType)
		}
	}

	tree, err := Resolve(cfg, layers, rctx)
	if err != nil {
		return nil, err
	}

	if s.resolved != nil {
		if raw, err := json.Marshal(tree); err == nil {
			_ = s.resolved.Set(ctx, tenantID, pageType, statusKey, fingerprint, raw)
		}
	}
	return tree, nil
}
