package logging

import (
	"database/sql"
	"log/slog"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/assaka/daino-composer/internal/model"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
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

type eventRow struct {
	Level    string
	Category string
	Message  string
	Metadata string
}

func loadEvents(t *testing.T, db *sql.DB) []eventRow {
	t.Helper()
	rows, err := db.Query(`SELECT level, category, message, metadata FROM events ORDER BY id`)
	if err != nil {
		t.Fatalf("querying events: %v", err)
	}
	defer rows.Close()

	var events []eventRow
	for rows.Next() {
		var e eventRow
		if err := rows.Scan(&e.Level, &e.Category, &e.Message, &e.Metadata); err != nil {
			t.Fatalf("scanning event: %v", err)
		}
		events = append(events, e)
	}
	return events
}

func testLogger(db *sql.DB) *slog.Logger {
	inner := slog.NewTextHandler(&strings.Builder{}, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewEventLogHandler(inner, db))
}

func TestHandlerWritesWarnAndAbove(t *testing.T) {
	db := testDB(t)
	logger := testLogger(db)

	logger.Info("routine startup message")
	logger.Warn("publish failed", "category", model.EventCategoryPublish, "tenant_id", "acme")
	logger.Error("cache backend unreachable", "category", model.EventCategoryCache)

	events := loadEvents(t, db)
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2 (info must not be persisted)", len(events))
	}
	if events[0].Level != model.EventLevelWarning || events[0].Category != model.EventCategoryPublish {
		t.Errorf("first event = %+v", events[0])
	}
	if events[1].Level != model.EventLevelError || events[1].Category != model.EventCategoryCache {
		t.Errorf("second event = %+v", events[1])
	}
}

func TestHandlerInfersCategoryFromMessage(t *testing.T) {
	db := testDB(t)
	logger := testLogger(db)

	logger.Warn("failed to demote prior version")
	logger.Warn("draft save rejected")
	logger.Warn("override layer malformed")
	logger.Warn("disk almost full")

	events := loadEvents(t, db)
	if len(events) != 4 {
		t.Fatalf("events = %d, want 4", len(events))
	}
	want := []string{
		model.EventCategoryPublish,
		model.EventCategoryDraft,
		model.EventCategoryResolve,
		model.EventCategorySystem,
	}
	for i, w := range want {
		if events[i].Category != w {
			t.Errorf("event %d category = %s, want %s", i, events[i].Category, w)
		}
	}
}

func TestHandlerCollectsMetadata(t *testing.T) {
	db := testDB(t)
	logger := testLogger(db)

	logger.Warn("publish failed", "category", model.EventCategoryPublish,
		"tenant_id", "acme", "page_type", "cart")

	events := loadEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	meta := events[0].Metadata
	if !strings.Contains(meta, `"tenant_id":"acme"`) || !strings.Contains(meta, `"page_type":"cart"`) {
		t.Errorf("metadata = %s", meta)
	}
	// The category attribute lives in its own column, not the metadata blob.
	if strings.Contains(meta, "category") {
		t.Errorf("category leaked into metadata: %s", meta)
	}
}

func TestHandlerLevelOverride(t *testing.T) {
	db := testDB(t)
	inner := slog.NewTextHandler(&strings.Builder{}, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewEventLogHandlerWithLevel(inner, db, slog.LevelInfo))

	logger.Info("scheduler started")

	events := loadEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1 with an info-level handler", len(events))
	}
	if events[0].Level != model.EventLevelInfo {
		t.Errorf("level = %s, want info", events[0].Level)
	}
}
