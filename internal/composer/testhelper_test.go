// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

package composer

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

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
	// A single connection keeps every query on the same in-memory database.
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

// testSlots returns a small valid tree: root -> (title, body -> note).
func testSlots() (string, map[string]model.SlotNode) {
	return "root", map[string]model.SlotNode{
		"root": {
			ID:       "root",
			Kind:     model.SlotKindContainer,
			Children: []string{"title", "body"},
		},
		"title": {
			ID:      "title",
			Kind:    model.SlotKindText,
			Content: "<h1>Your cart</h1>",
		},
		"body": {
			ID:        "body",
			Kind:      model.SlotKindContainer,
			ClassName: "cart-body",
			Children:  []string{"note"},
		},
		"note": {
			ID:             "note",
			Kind:           model.SlotKindText,
			Content:        "<p>Free shipping over 50 EUR</p>",
			StyleOverrides: map[string]string{"color": "black"},
		},
	}
}

// seedConfiguration inserts a configuration row and returns it as stored.
func seedConfiguration(t *testing.T, db *sql.DB, tenantID, pageType, status string, version int64, parentID string) *model.Configuration {
	t.Helper()

	rootID, slots := testSlots()
	now := time.Now().UTC().Truncate(time.Millisecond)
	cfg := &model.Configuration{
		ID:            uuid.NewString(),
		TenantID:      tenantID,
		PageType:      pageType,
		RootID:        rootID,
		Slots:         slots,
		Status:        status,
		VersionNumber: version,
		SchemaVersion: model.SchemaVersion,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if parentID != "" {
		cfg.ParentVersionID = sql.NullString{String: parentID, Valid: true}
	}

	if err := store.New(db).CreateConfiguration(context.Background(), cfg); err != nil {
		t.Fatalf("failed to seed configuration: %v", err)
	}
	return cfg
}

// staticDefaults is a DefaultProvider with one fixed tree per call, counting
// invocations.
type staticDefaults struct {
	calls int
}

func (d *staticDefaults) GetDefault(pageType string) (*model.Configuration, error) {
	d.calls++
	rootID, slots := testSlots()
	return &model.Configuration{
		ID:            "default-" + pageType,
		PageType:      pageType,
		RootID:        rootID,
		Slots:         slots,
		Status:        model.StatusPublished,
		VersionNumber: 0,
		SchemaVersion: model.SchemaVersion,
	}, nil
}
