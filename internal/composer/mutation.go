// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

package composer

import (
	"fmt"

	"github.com/microcosm-cc/bluemonday"

	"github.com/assaka/daino-composer/internal/model"
)

// htmlSanitizer strips scripts and event handlers from slot content before
// it is persisted. Slot content is operator-authored HTML, so the UGC policy
// applies.
var htmlSanitizer = bluemonday.UGCPolicy()

// AddSlot inserts a new node under a parent. Position -1 appends.
type AddSlot struct {
	Node     model.SlotNode `json:"node"`
	ParentID string         `json:"parent_id"`
	Position int            `json:"position"`
}

// ReorderSlot replaces a parent's child order. The new list must be a
// permutation of the current one; adding or removing children goes through
// Add/Remove.
type ReorderSlot struct {
	ParentID string   `json:"parent_id"`
	Children []string `json:"children"`
}

// DraftMutation is one structural edit batch against a draft's slot tree.
type DraftMutation struct {
	Add     []AddSlot                  `json:"add,omitempty"`
	Remove  []string                   `json:"remove,omitempty"`
	Reorder []ReorderSlot              `json:"reorder,omitempty"`
	Patch   map[string]model.SlotPatch `json:"patch,omitempty"`
}

// IsZero reports whether the mutation carries no changes.
func (m DraftMutation) IsZero() bool {
	return len(m.Add) == 0 && len(m.Remove) == 0 && len(m.Reorder) == 0 && len(m.Patch) == 0
}

// apply runs the mutation against a copy of the tree and returns the new
// slot map. The input map is never modified; the caller re-validates the
// result before committing.
func (m DraftMutation) apply(rootID string, base map[string]model.SlotNode) (map[string]model.SlotNode, error) {
	slots := make(map[string]model.SlotNode, len(base))
	for id, n := range base {
		slots[id] = n.Clone()
	}

	for _, add := range m.Add {
		if add.Node.ID == "" {
			return nil, &ValidationError{Reason: "added slot has no id"}
		}
		if _, exists := slots[add.Node.ID]; exists {
			return nil, &ValidationError{Reason: fmt.Sprintf("slot %q already exists", add.Node.ID)}
		}
		parent, ok := slots[add.ParentID]
		if !ok {
			return nil, &ValidationError{Missing: []string{add.ParentID}}
		}

		node := add.Node.Clone()
		node.Content = htmlSanitizer.Sanitize(node.Content)
		slots[node.ID] = node

		pos := add.Position
		if pos < 0 || pos > len(parent.Children) {
			pos = len(parent.Children)
		}
		children := make([]string, 0, len(parent.Children)+1)
		children = append(children, parent.Children[:pos]...)
		children = append(children, node.ID)
		children = append(children, parent.Children[pos:]...)
		parent.Children = children
		slots[add.ParentID] = parent
	}

	for _, id := range m.Remove {
		if id == rootID {
			return nil, &ValidationError{Reason: "cannot remove the root slot"}
		}
		if _, ok := slots[id]; !ok {
			return nil, &ValidationError{Missing: []string{id}}
		}
		removeSubtree(slots, id)
		for parentID, parent := range slots {
			children := parent.Children[:0:0]
			for _, childID := range parent.Children {
				if childID != id {
					children = append(children, childID)
				}
			}
			if len(children) != len(parent.Children) {
				parent.Children = children
				slots[parentID] = parent
			}
		}
	}

	for _, reorder := range m.Reorder {
		parent, ok := slots[reorder.ParentID]
		if !ok {
			return nil, &ValidationError{Missing: []string{reorder.ParentID}}
		}
		if !samePermutation(parent.Children, reorder.Children) {
			return nil, &ValidationError{Reason: fmt.Sprintf(
				"reorder of %q is not a permutation of its children", reorder.ParentID)}
		}
		parent.Children = append([]string(nil), reorder.Children...)
		slots[reorder.ParentID] = parent
	}

	for id, patch := range m.Patch {
		node, ok := slots[id]
		if !ok {
			return nil, &ValidationError{Missing: []string{id}}
		}
		if patch.Content != nil {
			sanitized := htmlSanitizer.Sanitize(*patch.Content)
			patch.Content = &sanitized
		}
		slots[id] = patch.Apply(node)
	}

	return slots, nil
}

// removeSubtree deletes a node and every node only reachable through it.
func removeSubtree(slots map[string]model.SlotNode, id string) {
	node, ok := slots[id]
	if !ok {
		return
	}
	delete(slots, id)
	for _, childID := range node.Children {
		removeSubtree(slots, childID)
	}
}

// samePermutation reports whether b contains exactly the elements of a.
func samePermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		seen[id]--
		if seen[id] < 0 {
			return false
		}
	}
	return true
}
