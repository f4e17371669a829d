// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

// Package composer implements the configuration lifecycle, the publish
// coordinator and the override resolution engine for composed storefront
// pages.
package composer

import (
	"fmt"
	"strings"
	"time"
)

// NotFoundError reports that no configuration exists for the requested key
// and status. Callers fall back to the default configuration provider.
type NotFoundError struct {
	TenantID        string
	PageType        string
	Status          string
	ConfigurationID string
}

func (e *NotFoundError) Error() string {
	if e.ConfigurationID != "" {
		return fmt.Sprintf("configuration %s not found", e.ConfigurationID)
	}
	return fmt.Sprintf("no %s configuration for tenant %q page type %q",
		e.Status, e.TenantID, e.PageType)
}

// ValidationError reports a malformed slot tree. It lists the offending node
// ids per problem class; the caller must fix the input before retrying.
type ValidationError struct {
	Missing     []string // child references that resolve to no node
	MultiParent []string // ids appearing as a child of more than one parent
	Cyclic      []string // ids participating in a children cycle
	Orphaned    []string // ids unreachable from the root
	Reason      string   // problems not attributable to specific nodes
}

func (e *ValidationError) Error() string {
	var parts []string
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing nodes: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.MultiParent) > 0 {
		parts = append(parts, fmt.Sprintf("multiple parents: %s", strings.Join(e.MultiParent, ", ")))
	}
	if len(e.Cyclic) > 0 {
		parts = append(parts, fmt.Sprintf("cyclic references: %s", strings.Join(e.Cyclic, ", ")))
	}
	if len(e.Orphaned) > 0 {
		parts = append(parts, fmt.Sprintf("orphaned nodes: %s", strings.Join(e.Orphaned, ", ")))
	}
	return "invalid slot tree: " + strings.Join(parts, "; ")
}

// NodeIDs returns every offending node id across all problem classes.
func (e *ValidationError) NodeIDs() []string {
	var ids []string
	ids = append(ids, e.Missing...)
	ids = append(ids, e.MultiParent...)
	ids = append(ids, e.Cyclic...)
	ids = append(ids, e.Orphaned...)
	return ids
}

// InvalidTransitionError reports an illegal lifecycle move. It is a
// programming error in the caller and is never retried.
type InvalidTransitionError struct {
	ConfigurationID string
	From            string
	To              string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("configuration %s: illegal transition %s -> %s",
		e.ConfigurationID, e.From, e.To)
}

// InvalidStateError reports an operation targeting a configuration in the
// wrong lifecycle state, such as saving edits to a published version.
type InvalidStateError struct {
	ConfigurationID string
	Status          string
	Want            string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("configuration %s is %s, want %s",
		e.ConfigurationID, e.Status, e.Want)
}

// ConflictError reports a concurrent publish or edit collision. It is safe
// to retry after re-reading state.
type ConflictError struct {
	TenantID string
	PageType string
	Op       string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict for tenant %q page type %q", e.Op, e.TenantID, e.PageType)
}

// StaleWriteError reports an optimistic-concurrency violation: the stored
// version advanced since the caller last read it. The caller must re-fetch
// and reapply.
type StaleWriteError struct {
	ConfigurationID string
	Expected        time.Time
	Current         time.Time
}

func (e *StaleWriteError) Error() string {
	return fmt.Sprintf("configuration %s changed since read (expected %s, current %s)",
		e.ConfigurationID, e.Expected.UTC().Format(time.RFC3339Nano), e.Current.UTC().Format(time.RFC3339Nano))
}

// UnknownSlotError reports an override layer patching node ids that do not
// exist in the tree being resolved. Overrides can only modify existing
// structure; structural additions go through the draft mutation path.
type UnknownSlotError struct {
	Scope   string
	NodeIDs []string
}

func (e *UnknownSlotError) Error() string {
	return fmt.Sprintf("%s override references unknown slots: %s",
		e.Scope, strings.Join(e.NodeIDs, ", "))
}
