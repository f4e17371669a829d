// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/assaka/daino-composer/internal/cache"
	"github.com/assaka/daino-composer/internal/composer"
	"github.com/assaka/daino-composer/internal/model"
	"github.com/assaka/daino-composer/internal/store"
)

// testDB creates an in-memory SQLite database with the configurations schema.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE configurations (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			page_type TEXT NOT NULL,
			root_id TEXT NOT NULL,
			slots TEXT NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'draft',
			version_number INTEGER NOT NULL,
			parent_version_id TEXT,
			current_edit_id TEXT,
			schema_version TEXT NOT NULL DEFAULT '1.0',
			published_at DATETIME,
			published_by TEXT,
			acceptance_published_at DATETIME,
			acceptance_published_by TEXT,
			scheduled_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE UNIQUE INDEX idx_configurations_lineage
			ON configurations(tenant_id, page_type, version_number);
		CREATE UNIQUE INDEX idx_configurations_published
			ON configurations(tenant_id, page_type) WHERE status = 'published';

		CREATE TABLE events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			level TEXT NOT NULL,
			category TEXT NOT NULL,
			message TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// fixedDefaults serves one static tree for every page type.
type fixedDefaults struct{}

func (fixedDefaults) GetDefault(pageType string) (*model.Configuration, error) {
	return &model.Configuration{
		ID:       "default-" + pageType,
		PageType: pageType,
		RootID:   "root",
		Slots: map[string]model.SlotNode{
			"root":  {ID: "root", Kind: model.SlotKindContainer, Children: []string{"title"}},
			"title": {ID: "title", Kind: model.SlotKindText, Content: "<h1>Welcome</h1>"},
		},
		Status:        model.StatusPublished,
		VersionNumber: 0,
		SchemaVersion: model.SchemaVersion,
	}, nil
}

// testSetup creates a database and an API handler wired to a full service.
func testSetup(t *testing.T) (*sql.DB, *Handler) {
	t.Helper()
	db := testDB(t)

	backend := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = backend.Close() })

	svc := composer.NewService(db, composer.NewPublisher(db), fixedDefaults{},
		cache.NewResolvedCache(backend, time.Minute))
	return db, NewHandler(svc)
}

// createTestConfiguration inserts a configuration row.
func createTestConfiguration(t *testing.T, db *sql.DB, tenantID, pageType, status string, version int64) *model.Configuration {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	cfg := &model.Configuration{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		PageType: pageType,
		RootID:   "root",
		Slots: map[string]model.SlotNode{
			"root":  {ID: "root", Kind: model.SlotKindContainer, Children: []string{"title"}},
			"title": {ID: "title", Kind: model.SlotKindText, Content: "<h1>Stored</h1>"},
		},
		Status:        status,
		VersionNumber: version,
		SchemaVersion: model.SchemaVersion,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := store.New(db).CreateConfiguration(context.Background(), cfg); err != nil {
		t.Fatalf("failed to create test configuration: %v", err)
	}
	return cfg
}

// requestWithURLParams adds chi URL parameters to a request.
func requestWithURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// newJSONRequest creates an HTTP request with JSON body and optional URL params.
func newJSONRequest(t *testing.T, method, path string, body string, params map[string]string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if len(params) > 0 {
		req = requestWithURLParams(req, params)
	}
	return req
}

// newGetRequest creates an HTTP GET request with optional URL params.
func newGetRequest(t *testing.T, path string, params map[string]string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if len(params) > 0 {
		req = requestWithURLParams(req, params)
	}
	return req
}

// dataResponse is a generic wrapper for API responses with a "data" field.
type dataResponse[T any] struct {
	Data T `json:"data"`
}

// listResponse is a generic wrapper for API list responses with data and meta.
type listResponse[T any] struct {
	Data []T   `json:"data"`
	Meta *Meta `json:"meta"`
}

// unmarshalData unmarshals a JSON response body into the specified type.
func unmarshalData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp dataResponse[T]
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp.Data
}

// unmarshalList unmarshals a JSON list response body into the specified type.
func unmarshalList[T any](t *testing.T, w *httptest.ResponseRecorder) ([]T, *Meta) {
	t.Helper()
	var resp listResponse[T]
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp.Data, resp.Meta
}

// unmarshalError unmarshals a JSON error response body.
func unmarshalError(t *testing.T, w *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v", err)
	}
	return resp.Error
}

// executeHandler executes a handler and returns the response recorder.
func executeHandler(t *testing.T, handler func(http.ResponseWriter, *http.Request), req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}
