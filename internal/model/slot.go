// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the slot tree and configuration types shared by the
// store, the resolver and the HTTP layer.
package model

// Slot kinds
const (
	SlotKindContainer = "container"
	SlotKindComponent = "component"
	SlotKindText      = "text"
	SlotKindImage     = "image"

	// SlotKindBlockPosition marks a content-block injection point. Injected
	// nodes are appended as children of the marker; the marker itself is
	// never overwritten.
	SlotKindBlockPosition = "block-position"
)

// SlotLayout holds per-breakpoint sizing and ordering hints for a slot.
type SlotLayout struct {
	ColSpan int `json:"col_span,omitempty"`
	RowSpan int `json:"row_span,omitempty"`
	Order   int `json:"order,omitempty"`
}

// SlotNode is a node in a page composition tree. Nodes live in a flat
// id-keyed map on the Configuration; Children holds child ids in render
// order.
type SlotNode struct {
	ID             string                `json:"id"`
	Kind           string                `json:"kind"`
	Content        string                `json:"content,omitempty"`
	StyleOverrides map[string]string     `json:"style_overrides,omitempty"`
	ClassName      string                `json:"class_name,omitempty"`
	Metadata       map[string]string     `json:"metadata,omitempty"`
	Layout         map[string]SlotLayout `json:"layout,omitempty"`
	Children       []string              `json:"children,omitempty"`
}

// Clone returns a deep copy of the node. The resolver works on copies so
// callers' inputs are never mutated.
func (n SlotNode) Clone() SlotNode {
	out := n
	if n.StyleOverrides != nil {
		out.StyleOverrides = make(map[string]string, len(n.StyleOverrides))
		for k, v := range n.StyleOverrides {
			out.StyleOverrides[k] = v
		}
	}
	if n.Metadata != nil {
		out.Metadata = make(map[string]string, len(n.Metadata))
		for k, v := range n.Metadata {
			out.Metadata[k] = v
		}
	}
	if n.Layout != nil {
		out.Layout = make(map[string]SlotLayout, len(n.Layout))
		for k, v := range n.Layout {
			out.Layout[k] = v
		}
	}
	if n.Children != nil {
		out.Children = make([]string, len(n.Children))
		copy(out.Children, n.Children)
	}
	return out
}

// SlotPatch is a partial SlotNode used by override layers and draft field
// edits. Nil pointer fields leave the target field untouched; maps are merged
// key by key; Children replaces the child list wholesale when present.
type SlotPatch struct {
	Content        *string               `json:"content,omitempty"`
	StyleOverrides map[string]string     `json:"style_overrides,omitempty"`
	ClassName      *string               `json:"class_name,omitempty"`
	Metadata       map[string]string     `json:"metadata,omitempty"`
	Layout         map[string]SlotLayout `json:"layout,omitempty"`
	Children       *[]string             `json:"children,omitempty"`
}

// IsZero reports whether the patch carries no changes.
func (p SlotPatch) IsZero() bool {
	return p.Content == nil && p.StyleOverrides == nil && p.ClassName == nil &&
		p.Metadata == nil && p.Layout == nil && p.Children == nil
}

// Apply merges the patch into the node field by field. A patch supplying only
// Content must not clear StyleOverrides, so maps are copied forward before
// patch keys are written over them.
func (p SlotPatch) Apply(n SlotNode) SlotNode {
	out := n.Clone()
	if p.Content != nil {
		out.Content = *p.Content
	}
	if p.ClassName != nil {
		out.ClassName = *p.ClassName
	}
	if p.StyleOverrides != nil {
		if out.StyleOverrides == nil {
			out.StyleOverrides = make(map[string]string, len(p.StyleOverrides))
		}
		for k, v := range p.StyleOverrides {
			out.StyleOverrides[k] = v
		}
	}
	if p.Metadata != nil {
		if out.Metadata == nil {
			out.Metadata = make(map[string]string, len(p.Metadata))
		}
		for k, v := range p.Metadata {
			out.Metadata[k] = v
		}
	}
	if p.Layout != nil {
		if out.Layout == nil {
			out.Layout = make(map[string]SlotLayout, len(p.Layout))
		}
		for k, v := range p.Layout {
			out.Layout[k] = v
		}
	}
	if p.Children != nil {
		out.Children = make([]string, len(*p.Children))
		copy(out.Children, *p.Children)
	}
	return out
}

// Override layer scopes, in ascending precedence order below the experiment
// layer: view-mode < content-block < experiment-variant.
const (
	ScopeViewMode          = "view-mode"
	ScopeContentBlock      = "content-block"
	ScopeExperimentVariant = "experiment-variant"
)

// OverrideLayer is a transient set of field-level patches applied at
// resolution time. It is owned by the caller and never persisted with the
// base configuration.
type OverrideLayer struct {
	Scope   string               `json:"scope"`
	Patches map[string]SlotPatch `json:"patches,omitempty"`

	// Blocks maps a block-position marker id to the externally owned nodes
	// to append there. Only meaningful for ScopeContentBlock layers.
	Blocks map[string][]SlotNode `json:"blocks,omitempty"`
}
