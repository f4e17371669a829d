// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

package composer

import (
	"sort"

	"github.com/assaka/daino-composer/internal/model"
)

// ValidateTree checks the structural invariants of a slot tree: the root
// exists, every child reference resolves, no node has more than one parent,
// there are no cycles and every node is reachable from the root. Returns a
// ValidationError listing offending node ids, or nil.
func ValidateTree(rootID string, slots map[string]model.SlotNode) error {
	verr := &ValidationError{}

	if rootID == "" {
		verr.Reason = "root id is empty"
		return verr
	}
	if _, ok := slots[rootID]; !ok {
		verr.Missing = []string{rootID}
		return verr
	}

	// Child references must resolve; an id may be a child of one parent only.
	missing := make(map[string]bool)
	parentCount := make(map[string]int)
	for _, node := range slots {
		for _, childID := range node.Children {
			if _, ok := slots[childID]; !ok {
				missing[childID] = true
				continue
			}
			parentCount[childID]++
		}
	}
	for id, count := range parentCount {
		if count > 1 {
			verr.MultiParent = append(verr.MultiParent, id)
		}
	}
	if parentCount[rootID] > 0 {
		// The root can never be someone's child.
		verr.Cyclic = append(verr.Cyclic, rootID)
	}
	for id := range missing {
		verr.Missing = append(verr.Missing, id)
	}

	// Cycle detection and reachability via a colored DFS from the root.
	const (
		white = 0 // unvisited
		grey  = 1 // on the current path
		black = 2 // done
	)
	color := make(map[string]int, len(slots))
	cyclic := make(map[string]bool)

	var visit func(id string)
	visit = func(id string) {
		color[id] = grey
		for _, childID := range slots[id].Children {
			if _, ok := slots[childID]; !ok {
				continue
			}
			switch color[childID] {
			case white:
				visit(childID)
			case grey:
				cyclic[childID] = true
			}
		}
		color[id] = black
	}
	visit(rootID)

	for id := range cyclic {
		if id != rootID {
			verr.Cyclic = append(verr.Cyclic, id)
		}
	}
	for id := range slots {
		if color[id] == white {
			verr.Orphaned = append(verr.Orphaned, id)
		}
	}

	sort.Strings(verr.Missing)
	sort.Strings(verr.MultiParent)
	sort.Strings(verr.Cyclic)
	sort.Strings(verr.Orphaned)

	if len(verr.Missing) > 0 || len(verr.MultiParent) > 0 ||
		len(verr.Cyclic) > 0 || len(verr.Orphaned) > 0 {
		return verr
	}
	return nil
}
