// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/assaka/daino-composer/internal/composer"
	"github.com/assaka/daino-composer/internal/middleware"
	"github.com/assaka/daino-composer/internal/model"
	"github.com/assaka/daino-composer/internal/store"
)

// ConfigurationResponse represents a configuration in API responses.
type ConfigurationResponse struct {
	ID              string                    `json:"id"`
	TenantID        string                    `json:"tenant_id"`
	PageType        string                    `json:"page_type"`
	RootID          string                    `json:"root_id"`
	Slots           map[string]model.SlotNode `json:"slots"`
	Status          string                    `json:"status"`
	VersionNumber   int64                     `json:"version_number"`
	ParentVersionID *string                   `json:"parent_version_id,omitempty"`
	CurrentEditID   *string                   `json:"current_edit_id,omitempty"`
	SchemaVersion   string                    `json:"schema_version"`
	PublishedAt     *time.Time                `json:"published_at,omitempty"`
	PublishedBy     *string                   `json:"published_by,omitempty"`
	ScheduledAt     *time.Time                `json:"scheduled_at,omitempty"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
}

// HistoryEntryResponse represents one lineage entry in history listings.
type HistoryEntryResponse struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	VersionNumber   int64      `json:"version_number"`
	ParentVersionID *string    `json:"parent_version_id,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	PublishedBy     *string    `json:"published_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateDraftRequest represents the request body for creating a draft.
type CreateDraftRequest struct {
	// BaseVersionID forks the draft from a specific historical version
	// (rollback). Empty means fork from the published version, or the
	// default when nothing is published.
	BaseVersionID string `json:"base_version_id,omitempty"`

	// Resume returns the existing draft instead of failing when one exists.
	Resume bool `json:"resume,omitempty"`
}

// SaveDraftRequest represents the request body for saving draft edits.
type SaveDraftRequest struct {
	Mutation composer.DraftMutation `json:"mutation"`

	// ExpectedUpdatedAt carries the optimistic concurrency token from the
	// last read. Omitting it means last write wins.
	ExpectedUpdatedAt *time.Time `json:"expected_updated_at,omitempty"`
}

// PublishRequest represents the request body for publishing.
type PublishRequest struct {
	// Target is "acceptance" or "published".
	Target string `json:"target"`

	// ScheduledAt defers the publish instead of running it now.
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// ResolveRequest represents the request body for page resolution.
type ResolveRequest struct {
	Preview   bool                  `json:"preview,omitempty"`
	ViewMode  string                `json:"view_mode,omitempty"`
	VariantID string                `json:"variant_id,omitempty"`
	Layers    []model.OverrideLayer `json:"layers,omitempty"`
}

// configurationToResponse converts a model.Configuration to its API shape.
func configurationToResponse(c *model.Configuration) ConfigurationResponse {
	resp := ConfigurationResponse{
		ID:            c.ID,
		TenantID:      c.TenantID,
		PageType:      c.PageType,
		RootID:        c.RootID,
		Slots:         c.Slots,
		Status:        c.Status,
		VersionNumber: c.VersionNumber,
		SchemaVersion: c.SchemaVersion,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if c.ParentVersionID.Valid {
		resp.ParentVersionID = &c.ParentVersionID.String
	}
	if c.CurrentEditID.Valid {
		resp.CurrentEditID = &c.CurrentEditID.String
	}
	if c.PublishedAt.Valid {
		resp.PublishedAt = &c.PublishedAt.Time
	}
	if c.PublishedBy.Valid {
		resp.PublishedBy = &c.PublishedBy.String
	}
	if c.ScheduledAt.Valid {
		resp.ScheduledAt = &c.ScheduledAt.Time
	}
	return resp
}

// historyEntryToResponse converts a store.HistoryEntry to its API shape.
func historyEntryToResponse(e store.HistoryEntry) HistoryEntryResponse {
	resp := HistoryEntryResponse{
		ID:            e.ID,
		Status:        e.Status,
		VersionNumber: e.VersionNumber,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
	if e.ParentVersionID.Valid {
		resp.ParentVersionID = &e.ParentVersionID.String
	}
	if e.PublishedAt.Valid {
		resp.PublishedAt = &e.PublishedAt.Time
	}
	if e.PublishedBy.Valid {
		resp.PublishedBy = &e.PublishedBy.String
	}
	return resp
}

// pageKey pulls the tenant and page type URL params, validating the page
// type. Returns false when a response has already been written.
func pageKey(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	tenantID := chi.URLParam(r, "tenantID")
	pageType := chi.URLParam(r, "pageType")
	if tenantID == "" {
		WriteBadRequest(w, "Missing tenant ID", nil)
		return "", "", false
	}
	if !model.IsKnownPageType(pageType) {
		WriteBadRequest(w, "Unknown page type: "+pageType, nil)
		return "", "", false
	}
	return tenantID, pageType, true
}

// GetConfiguration handles GET /api/v1/configurations/{tenantID}/{pageType}/{status}
func (h *Handler) GetConfiguration(w http.ResponseWriter, r *http.Request) {
	tenantID, pageType, ok := pageKey(w, r)
	if !ok {
		return
	}

	var (
		cfg *model.Configuration
		err error
	)
	switch status := chi.URLParam(r, "status"); status {
	case model.StatusDraft:
		cfg, err = h.svc.GetDraft(r.Context(), tenantID, pageType)
	case model.StatusAcceptance:
		cfg, err = h.svc.GetAcceptance(r.Context(), tenantID, pageType)
	case model.StatusPublished:
		cfg, err = h.svc.GetPublished(r.Context(), tenantID, pageType)
	default:
		WriteBadRequest(w, "Unknown status: "+status, nil)
		return
	}
	if err != nil {
		writeComposerError(w, err)
		return
	}

	WriteSuccess(w, configurationToResponse(cfg), nil)
}

// CreateDraft handles POST /api/v1/configurations/{tenantID}/{pageType}/draft
func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	tenantID, pageType, ok := pageKey(w, r)
	if !ok {
		return
	}

	var req CreateDraftRequest
	if r.ContentLength > 0 && !decodeJSONBody(w, r, &req) {
		return
	}

	var base *model.Configuration
	if req.BaseVersionID != "" {
		var err error
		base, err = h.svc.GetByID(r.Context(), req.BaseVersionID)
		if err != nil {
			writeComposerError(w, err)
			return
		}
		if base.TenantID != tenantID || base.PageType != pageType {
			WriteBadRequest(w, "Base version belongs to a different page", nil)
			return
		}
	}

	if req.Resume {
		if existing, err := h.svc.GetDraft(r.Context(), tenantID, pageType); err == nil {
			WriteSuccess(w, configurationToResponse(existing), nil)
			return
		}
	}

	draft, err := h.svc.CreateDraft(r.Context(), tenantID, pageType, base, req.Resume)
	if err != nil {
		writeComposerError(w, err)
		return
	}
	WriteCreated(w, configurationToResponse(draft))
}

// SaveDraft handles PUT /api/v1/configurations/{id}
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req SaveDraftRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Mutation.IsZero() {
		WriteBadRequest(w, "Mutation carries no changes", nil)
		return
	}

	var expected time.Time
	if req.ExpectedUpdatedAt != nil {
		expected = *req.ExpectedUpdatedAt
	}

	cfg, err := h.svc.SaveDraft(r.Context(), id, req.Mutation, expected)
	if err != nil {
		writeComposerError(w, err)
		return
	}

	WriteSuccess(w, configurationToResponse(cfg), nil)
}

// Publish handles POST /api/v1/configurations/{id}/publish
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req PublishRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Target == "" {
		req.Target = model.StatusPublished
	}
	if req.Target != model.StatusPublished && req.Target != model.StatusAcceptance {
		WriteBadRequest(w, "Target must be \"published\" or \"acceptance\"", nil)
		return
	}

	if req.ScheduledAt != nil {
		if req.Target != model.StatusPublished {
			WriteBadRequest(w, "Only publishes to \"published\" can be scheduled", nil)
			return
		}
		cfg, err := h.svc.SchedulePublish(r.Context(), id, *req.ScheduledAt)
		if err != nil {
			writeComposerError(w, err)
			return
		}
		WriteSuccess(w, configurationToResponse(cfg), nil)
		return
	}

	cfg, err := h.svc.Publish(r.Context(), id, req.Target, middleware.GetActor(r))
	if err != nil {
		writeComposerError(w, err)
		return
	}

	WriteSuccess(w, configurationToResponse(cfg), nil)
}

// Revert handles POST /api/v1/configurations/{id}/revert
func (h *Handler) Revert(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.svc.Revert(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeComposerError(w, err)
		return
	}
	WriteSuccess(w, configurationToResponse(cfg), nil)
}

// ReturnToEditing handles POST /api/v1/configurations/{id}/return
func (h *Handler) ReturnToEditing(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.svc.ReturnToEditing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeComposerError(w, err)
		return
	}
	WriteSuccess(w, configurationToResponse(cfg), nil)
}

// History handles GET /api/v1/configurations/{tenantID}/{pageType}/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	tenantID, pageType, ok := pageKey(w, r)
	if !ok {
		return
	}

	page := parsePageParam(r)
	perPage := parsePerPageParam(r, 20, 100)
	offset := (page - 1) * perPage

	entries, total, err := h.svc.ListHistory(r.Context(), tenantID, pageType, int64(perPage), int64(offset))
	if err != nil {
		writeComposerError(w, err)
		return
	}

	items := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, historyEntryToResponse(e))
	}

	pages := int(total) / perPage
	if int(total)%perPage != 0 {
		pages++
	}
	WriteSuccess(w, items, &Meta{
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   pages,
	})
}

// GetDefault handles GET /api/v1/defaults/{pageType}
func (h *Handler) GetDefault(w http.ResponseWriter, r *http.Request) {
	pageType := chi.URLParam(r, "pageType")
	if !model.IsKnownPageType(pageType) {
		WriteBadRequest(w, "Unknown page type: "+pageType, nil)
		return
	}

	cfg, err := h.svc.GetDefault(pageType)
	if err != nil {
		writeComposerError(w, err)
		return
	}
	WriteSuccess(w, configurationToResponse(cfg), nil)
}

// Resolve handles POST /api/v1/resolve/{tenantID}/{pageType}
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	tenantID, pageType, ok := pageKey(w, r)
	if !ok {
		return
	}

	var req ResolveRequest
	if r.ContentLength > 0 && !decodeJSONBody(w, r, &req) {
		return
	}

	tree, err := h.svc.ResolvePage(r.Context(), tenantID, pageType, req.Preview,
		req.Layers, composer.ResolveContext{
			ViewMode:  req.ViewMode,
			VariantID: req.VariantID,
		})
	if err != nil {
		writeComposerError(w, err)
		return
	}

	WriteSuccess(w, tree, nil)
}

// Routes mounts the API routes. The editorial surface sits behind token
// auth; resolution and status stay public behind the caller-supplied
// rate-limit middleware.
func (h *Handler) Routes(authToken string, public ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		for _, mw := range public {
			r.Use(mw)
		}
		r.Get("/status", h.Status)
		r.Post("/resolve/{tenantID}/{pageType}", h.Resolve)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.TokenAuth(authToken))

		r.Route("/configurations", func(r chi.Router) {
			r.Get("/{tenantID}/{pageType}/history", h.History)
			r.Get("/{tenantID}/{pageType}/{status}", h.GetConfiguration)
			r.Post("/{tenantID}/{pageType}/draft", h.CreateDraft)

			r.Put("/{id}", h.SaveDraft)
			r.Post("/{id}/publish", h.Publish)
			r.Post("/{id}/revert", h.Revert)
			r.Post("/{id}/return", h.ReturnToEditing)
		})

		r.Get("/defaults/{pageType}", h.GetDefault)
	})

	return r
}
