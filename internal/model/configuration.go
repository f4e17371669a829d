// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Configuration statuses
const (
	StatusDraft      = "draft"
	StatusAcceptance = "acceptance"
	StatusPublished  = "published"
	StatusReverted   = "reverted"

	// StatusArchived is the historical state a published configuration takes
	// when a newer version is published over it. Archived rows stay queryable
	// through the history listing but never satisfy a published lookup.
	StatusArchived = "archived"
)

// Page types composable in the editor.
const (
	PageTypeCart     = "cart"
	PageTypeCheckout = "checkout"
	PageTypeHeader   = "header"
	PageTypeLogin    = "login"
	PageTypeAccount  = "account"
	PageTypeSuccess  = "success"
	PageTypeCategory = "category"
)

// SchemaVersion is stamped on every configuration written by this build so
// the slot tree shape can be migrated forward later.
const SchemaVersion = "1.0"

// Configuration is one versioned slot tree for a (tenant, page type) pair.
type Configuration struct {
	ID              string              `json:"id"`
	TenantID        string              `json:"tenant_id"`
	PageType        string              `json:"page_type"`
	RootID          string              `json:"root_id"`
	Slots           map[string]SlotNode `json:"slots"`
	Status          string              `json:"status"`
	VersionNumber   int64               `json:"version_number"`
	ParentVersionID sql.NullString      `json:"parent_version_id,omitempty"`
	CurrentEditID   sql.NullString      `json:"current_edit_id,omitempty"`
	SchemaVersion   string              `json:"schema_version"`

	PublishedAt sql.NullTime   `json:"published_at,omitempty"`
	PublishedBy sql.NullString `json:"published_by,omitempty"`

	AcceptancePublishedAt sql.NullTime   `json:"acceptance_published_at,omitempty"`
	AcceptancePublishedBy sql.NullString `json:"acceptance_published_by,omitempty"`

	// ScheduledAt, when set on a draft or acceptance version, asks the
	// scheduler to publish it once the time has passed.
	ScheduledAt sql.NullTime `json:"scheduled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsDraft returns true if the configuration is an editable draft.
func (c *Configuration) IsDraft() bool {
	return c.Status == StatusDraft
}

// IsPublished returns true if the configuration is the live version.
func (c *Configuration) IsPublished() bool {
	return c.Status == StatusPublished
}

// CloneSlots returns a deep copy of the slot map.
func (c *Configuration) CloneSlots() map[string]SlotNode {
	out := make(map[string]SlotNode, len(c.Slots))
	for id, n := range c.Slots {
		out[id] = n.Clone()
	}
	return out
}

// KnownPageTypes lists every composable page type.
func KnownPageTypes() []string {
	return []string{
		PageTypeCart,
		PageTypeCheckout,
		PageTypeHeader,
		PageTypeLogin,
		PageTypeAccount,
		PageTypeSuccess,
		PageTypeCategory,
	}
}

// IsKnownPageType reports whether pageType is composable.
func IsKnownPageType(pageType string) bool {
	for _, pt := range KnownPageTypes() {
		if pt == pageType {
			return true
		}
	}
	return false
}
