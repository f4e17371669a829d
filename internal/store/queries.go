// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/assaka/daino-composer/internal/model"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so queries can run inside or
// outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds the prepared query set against a database or transaction.
type Queries struct {
	db DBTX
}

// New creates a Queries instance bound to the given database.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries instance bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const configurationColumns = `id, tenant_id, page_type, root_id, slots, status,
	version_number, parent_version_id, current_edit_id, schema_version,
	published_at, published_by, acceptance_published_at, acceptance_published_by,
	scheduled_at, created_at, updated_at`

// scanConfiguration scans one configuration row, decoding the slots JSON.
func scanConfiguration(row *sql.Row) (*model.Configuration, error) {
	var c model.Configuration
	var slotsJSON string

	err := row.Scan(
		&c.ID, &c.TenantID, &c.PageType, &c.RootID, &slotsJSON, &c.Status,
		&c.VersionNumber, &c.ParentVersionID, &c.CurrentEditID, &c.SchemaVersion,
		&c.PublishedAt, &c.PublishedBy, &c.AcceptancePublishedAt, &c.AcceptancePublishedBy,
		&c.ScheduledAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(slotsJSON), &c.Slots); err != nil {
		return nil, fmt.Errorf("decoding slots for configuration %s: %w", c.ID, err)
	}
	return &c, nil
}

// GetConfigurationByID fetches a configuration by its id.
func (q *Queries) GetConfigurationByID(ctx context.Context, id string) (*model.Configuration, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+configurationColumns+` FROM configurations WHERE id = ?`, id)
	return scanConfiguration(row)
}

// GetConfigurationByStatusParams identifies the current version of one status
// within a (tenant, page type) lineage.
type GetConfigurationByStatusParams struct {
	TenantID string
	PageType string
	Status   string
}

// GetConfigurationByStatus fetches the single configuration with the given
// status for a (tenant, page type) pair. For draft, acceptance and published
// there is at most one such row at any time.
func (q *Queries) GetConfigurationByStatus(ctx context.Context, arg GetConfigurationByStatusParams) (*model.Configuration, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+configurationColumns+` FROM configurations
		 WHERE tenant_id = ? AND page_type = ? AND status = ?
		 ORDER BY version_number DESC LIMIT 1`,
		arg.TenantID, arg.PageType, arg.Status)
	return scanConfiguration(row)
}

// CreateConfiguration inserts a new configuration row.
func (q *Queries) CreateConfiguration(ctx context.Context, c *model.Configuration) error {
	slotsJSON, err := json.Marshal(c.Slots)
	if err != nil {
		return fmt.Errorf("encoding slots: %w", err)
	}

	_, err = q.db.ExecContext(ctx,
		`INSERT INTO configurations (`+configurationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.TenantID, c.PageType, c.RootID, string(slotsJSON), c.Status,
		c.VersionNumber, c.ParentVersionID, c.CurrentEditID, c.SchemaVersion,
		c.PublishedAt, c.PublishedBy, c.AcceptancePublishedAt, c.AcceptancePublishedBy,
		c.ScheduledAt, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

// UpdateConfigurationSlotsParams carries a guarded slot tree update. The
// write only lands if the row is still a draft and its updated_at matches the
// token the caller last read (optimistic concurrency).
type UpdateConfigurationSlotsParams struct {
	ID                string
	RootID            string
	Slots             map[string]model.SlotNode
	UpdatedAt         time.Time
	ExpectedUpdatedAt time.Time
}

// UpdateConfigurationSlots writes a new slot tree to a draft row. Returns the
// number of rows affected; zero means the precondition failed.
func (q *Queries) UpdateConfigurationSlots(ctx context.Context, arg UpdateConfigurationSlotsParams) (int64, error) {
	slotsJSON, err := json.Marshal(arg.Slots)
	if err != nil {
		return 0, fmt.Errorf("encoding slots: %w", err)
	}

	res, err := q.db.ExecContext(ctx,
		`UPDATE configurations SET root_id = ?, slots = ?, updated_at = ?
		 WHERE id = ? AND status = 'draft' AND updated_at = ?`,
		arg.RootID, string(slotsJSON), arg.UpdatedAt, arg.ID, arg.ExpectedUpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PromoteConfigurationParams stamps a lifecycle promotion.
type PromoteConfigurationParams struct {
	ID          string
	Status      string
	PublishedAt time.Time
	PublishedBy string
}

// PromoteToPublished marks a configuration published and stamps the
// production publish fields.
func (q *Queries) PromoteToPublished(ctx context.Context, arg PromoteConfigurationParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE configurations
		 SET status = 'published', published_at = ?, published_by = ?, scheduled_at = NULL, updated_at = ?
		 WHERE id = ?`,
		arg.PublishedAt, arg.PublishedBy, arg.PublishedAt, arg.ID)
	return err
}

// PromoteToAcceptance marks a configuration as the acceptance (staging)
// version and stamps the acceptance publish fields.
func (q *Queries) PromoteToAcceptance(ctx context.Context, arg PromoteConfigurationParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE configurations
		 SET status = 'acceptance', acceptance_published_at = ?, acceptance_published_by = ?, updated_at = ?
		 WHERE id = ?`,
		arg.PublishedAt, arg.PublishedBy, arg.PublishedAt, arg.ID)
	return err
}

// DemotePublishedParams demotes the currently published row of a lineage,
// excluding the row being promoted.
type DemotePublishedParams struct {
	TenantID  string
	PageType  string
	ExcludeID string
	UpdatedAt time.Time
}

// DemotePublished archives any published configuration for the key other
// than the one being promoted. Archived rows keep their version number and
// remain visible in history.
func (q *Queries) DemotePublished(ctx context.Context, arg DemotePublishedParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE configurations SET status = 'archived', updated_at = ?
		 WHERE tenant_id = ? AND page_type = ? AND status = 'published' AND id != ?`,
		arg.UpdatedAt, arg.TenantID, arg.PageType, arg.ExcludeID)
	return err
}

// SetStatusParams updates the lifecycle status of one row.
type SetStatusParams struct {
	ID        string
	Status    string
	UpdatedAt time.Time
}

// SetStatus updates a configuration's status without stamping publish fields.
// Used for acceptance -> draft returns and draft -> reverted discards.
func (q *Queries) SetStatus(ctx context.Context, arg SetStatusParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE configurations SET status = ?, updated_at = ? WHERE id = ?`,
		arg.Status, arg.UpdatedAt, arg.ID)
	return err
}

// SetCurrentEditParams points a version at the draft edited on top of it.
type SetCurrentEditParams struct {
	ID            string
	CurrentEditID sql.NullString
	UpdatedAt     time.Time
}

// SetCurrentEdit sets or clears the current_edit_id forward pointer. Only the
// pointer and timestamp change; the parent's content is never touched.
func (q *Queries) SetCurrentEdit(ctx context.Context, arg SetCurrentEditParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE configurations SET current_edit_id = ?, updated_at = ? WHERE id = ?`,
		arg.CurrentEditID, arg.UpdatedAt, arg.ID)
	return err
}

// SetScheduledAtParams schedules or unschedules a deferred publish.
type SetScheduledAtParams struct {
	ID          string
	ScheduledAt sql.NullTime
	UpdatedAt   time.Time
}

// SetScheduledAt stores the deferred publish time for a configuration.
func (q *Queries) SetScheduledAt(ctx context.Context, arg SetScheduledAtParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE configurations SET scheduled_at = ?, updated_at = ? WHERE id = ?`,
		arg.ScheduledAt, arg.UpdatedAt, arg.ID)
	return err
}

// NextVersionNumberParams identifies a lineage.
type NextVersionNumberParams struct {
	TenantID string
	PageType string
}

// NextVersionNumber returns the next version number for a lineage. Version
// numbers strictly increase and are never reused, so this is MAX+1 over all
// rows including reverted and archived ones.
func (q *Queries) NextVersionNumber(ctx context.Context, arg NextVersionNumberParams) (int64, error) {
	var next int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version_number), 0) + 1 FROM configurations
		 WHERE tenant_id = ? AND page_type = ?`,
		arg.TenantID, arg.PageType).Scan(&next)
	return next, err
}

// HistoryEntry is configuration metadata without the slot tree, for the
// audit/rollback listing.
type HistoryEntry struct {
	ID              string         `json:"id"`
	Status          string         `json:"status"`
	VersionNumber   int64          `json:"version_number"`
	ParentVersionID sql.NullString `json:"parent_version_id"`
	PublishedAt     sql.NullTime   `json:"published_at"`
	PublishedBy     sql.NullString `json:"published_by"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ListConfigurationHistoryParams pages through a lineage's history.
type ListConfigurationHistoryParams struct {
	TenantID string
	PageType string
	Limit    int64
	Offset   int64
}

// ListConfigurationHistory returns lineage metadata ordered by version number
// descending. The slots column is deliberately not selected.
func (q *Queries) ListConfigurationHistory(ctx context.Context, arg ListConfigurationHistoryParams) ([]HistoryEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, status, version_number, parent_version_id,
		        published_at, published_by, created_at, updated_at
		 FROM configurations
		 WHERE tenant_id = ? AND page_type = ?
		 ORDER BY version_number DESC
		 LIMIT ? OFFSET ?`,
		arg.TenantID, arg.PageType, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(
			&e.ID, &e.Status, &e.VersionNumber, &e.ParentVersionID,
			&e.PublishedAt, &e.PublishedBy, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountConfigurationHistoryParams identifies a lineage.
type CountConfigurationHistoryParams struct {
	TenantID string
	PageType string
}

// CountConfigurationHistory counts all versions in a lineage.
func (q *Queries) CountConfigurationHistory(ctx context.Context, arg CountConfigurationHistoryParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM configurations WHERE tenant_id = ? AND page_type = ?`,
		arg.TenantID, arg.PageType).Scan(&count)
	return count, err
}

// ListDueScheduledConfigurations returns draft and acceptance configurations
// whose scheduled publish time has passed.
func (q *Queries) ListDueScheduledConfigurations(ctx context.Context, now time.Time) ([]*model.Configuration, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+configurationColumns+` FROM configurations
		 WHERE scheduled_at IS NOT NULL AND scheduled_at <= ?
		   AND status IN ('draft', 'acceptance')
		 ORDER BY scheduled_at`,
		now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*model.Configuration
	for rows.Next() {
		var c model.Configuration
		var slotsJSON string
		if err := rows.Scan(
			&c.ID, &c.TenantID, &c.PageType, &c.RootID, &slotsJSON, &c.Status,
			&c.VersionNumber, &c.ParentVersionID, &c.CurrentEditID, &c.SchemaVersion,
			&c.PublishedAt, &c.PublishedBy, &c.AcceptancePublishedAt, &c.AcceptancePublishedBy,
			&c.ScheduledAt, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(slotsJSON), &c.Slots); err != nil {
			return nil, fmt.Errorf("decoding slots for configuration %s: %w", c.ID, err)
		}
		configs = append(configs, &c)
	}
	return configs, rows.Err()
}

// CreateEventParams is one audit log entry.
type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	Metadata  string
	CreatedAt time.Time
}

// CreateEvent writes an audit log entry.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO events (level, category, message, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		arg.Level, arg.Category, arg.Message, arg.Metadata, arg.CreatedAt)
	return err
}

// CountPublishedParams identifies a lineage.
type CountPublishedParams struct {
	TenantID string
	PageType string
}

// CountPublished counts published rows for a key. Used by tests to assert
// the single-published invariant.
func (q *Queries) CountPublished(ctx context.Context, arg CountPublishedParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM configurations
		 WHERE tenant_id = ? AND page_type = ? AND status = 'published'`,
		arg.TenantID, arg.PageType).Scan(&count)
	return count, err
}
