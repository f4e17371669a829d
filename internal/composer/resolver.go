// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

package composer

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/yuin/goldmark"

	"github.com/assaka/daino-composer/internal/model"
)

// markdown converts content-block bodies authored in markdown. Conversion is
// a pure text transform, so resolution stays deterministic.
var markdown = goldmark.New()

// scopeRank orders override layers by precedence. Later ranks win per field.
var scopeRank = map[string]int{
	model.ScopeViewMode:          1,
	model.ScopeContentBlock:      2,
	model.ScopeExperimentVariant: 3,
}

// ResolveContext carries the request-time inputs that shape resolution
// besides the override layers themselves.
type ResolveContext struct {
	// ViewMode selects which layout breakpoint is active (e.g. "desktop",
	// "mobile"). Copied onto the resolved tree for the rendering layer.
	ViewMode string `json:"view_mode,omitempty"`

	// VariantID identifies the experiment assignment the caller resolved
	// for, recorded for measurement attribution.
	VariantID string `json:"variant_id,omitempty"`
}

// ResolvedSlotTree is the final merged tree handed to the rendering layer.
type ResolvedSlotTree struct {
	RootID    string                    `json:"root_id"`
	ViewMode  string                    `json:"view_mode,omitempty"`
	VariantID string                    `json:"variant_id,omitempty"`
	Slots     map[string]model.SlotNode `json:"slots"`
}

// Flatten returns the tree's nodes in render order (pre-order, children in
// their stored order).
func (t *ResolvedSlotTree) Flatten() []model.SlotNode {
	var out []model.SlotNode
	var walk func(id string)
	walk = func(id string) {
		node, ok := t.Slots[id]
		if !ok {
			return
		}
		out = append(out, node)
		for _, childID := range node.Children {
			walk(childID)
		}
	}
	walk(t.RootID)
	return out
}

// Resolve merges a base configuration with the supplied override layers into
// one renderable tree. Layers apply in ascending scope precedence (view-mode,
// content-block, experiment-variant); within the same scope, caller order is
// preserved. Fields merge shallowly per node; style overrides and layout
// merge key by key; children are only replaced when a patch supplies a new
// list wholesale.
//
// Resolve is a pure function of its inputs: it never mutates cfg or layers,
// performs no I/O and holds no hidden state. Patches referencing slots absent
// from the tree fail with UnknownSlotError before any output is produced.
func Resolve(cfg *model.Configuration, layers []model.OverrideLayer, rctx ResolveContext) (*ResolvedSlotTree, error) {
	ordered, err := orderLayers(layers)
	if err != nil {
		return nil, err
	}

	// Validate every layer up front against the slot ids it will see at its
	// turn, so resolution is all-or-nothing.
	if err := checkLayerTargets(cfg, ordered); err != nil {
		return nil, err
	}

	slots := cfg.CloneSlots()
	for _, layer := range ordered {
		if layer.Scope == model.ScopeContentBlock {
			if err := injectBlocks(slots, layer); err != nil {
				return nil, err
			}
		}
		for _, id := range sortedPatchIDs(layer.Patches) {
			slots[id] = layer.Patches[id].Apply(slots[id])
		}
	}

	return &ResolvedSlotTree{
		RootID:    cfg.RootID,
		ViewMode:  rctx.ViewMode,
		VariantID: rctx.VariantID,
		Slots:     slots,
	}, nil
}

// orderLayers stable-sorts layers by scope precedence and rejects unknown
// scopes.
func orderLayers(layers []model.OverrideLayer) ([]model.OverrideLayer, error) {
	for _, layer := range layers {
		if _, ok := scopeRank[layer.Scope]; !ok {
			return nil, &ValidationError{Reason: fmt.Sprintf("unknown override scope %q", layer.Scope)}
		}
	}
	ordered := make([]model.OverrideLayer, len(layers))
	copy(ordered, layers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return scopeRank[ordered[i].Scope] < scopeRank[ordered[j].Scope]
	})
	return ordered, nil
}

// checkLayerTargets verifies that every patched id and every block marker
// exists at the point its layer applies. Ids injected by an earlier
// content-block layer are legal targets for later layers.
func checkLayerTargets(cfg *model.Configuration, ordered []model.OverrideLayer) error {
	known := make(map[string]bool, len(cfg.Slots))
	for id := range cfg.Slots {
		known[id] = true
	}

	for _, layer := range ordered {
		var unknown []string
		for id := range layer.Patches {
			if !known[id] {
				unknown = append(unknown, id)
			}
		}
		if layer.Scope == model.ScopeContentBlock {
			for markerID, nodes := range layer.Blocks {
				if !known[markerID] || cfg.Slots[markerID].Kind != model.SlotKindBlockPosition {
					unknown = append(unknown, markerID)
					continue
				}
				for _, node := range nodes {
					if known[node.ID] {
						return &ValidationError{
							Reason:      "injected block collides with an existing slot",
							MultiParent: []string{node.ID},
						}
					}
					known[node.ID] = true
				}
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			return &UnknownSlotError{Scope: layer.Scope, NodeIDs: unknown}
		}
	}
	return nil
}

// injectBlocks appends externally owned nodes at their block-position
// markers. The marker keeps its own fields; injected nodes become its
// trailing children. Markdown-authored blocks are converted to HTML here.
func injectBlocks(slots map[string]model.SlotNode, layer model.OverrideLayer) error {
	for _, markerID := range sortedBlockIDs(layer.Blocks) {
		marker := slots[markerID]
		for _, node := range layer.Blocks[markerID] {
			injected := node.Clone()
			if injected.Metadata["format"] == "markdown" {
				var buf bytes.Buffer
				if err := markdown.Convert([]byte(injected.Content), &buf); err != nil {
					return fmt.Errorf("converting block %s markdown: %w", injected.ID, err)
				}
				injected.Content = buf.String()
				injected.Metadata["format"] = "html"
			}
			slots[injected.ID] = injected
			marker.Children = append(marker.Children, injected.ID)
		}
		slots[markerID] = marker
	}
	return nil
}

// sortedPatchIDs returns patch target ids in lexical order so map iteration
// never introduces nondeterminism.
func sortedPatchIDs(patches map[string]model.SlotPatch) []string {
	ids := make([]string, 0, len(patches))
	for id := range patches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedBlockIDs(blocks map[string][]model.SlotNode) []string {
	ids := make([]string, 0, len(blocks))
	for id := range blocks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Fingerprint derives a stable digest of the override layers and resolve
// context, for resolved-tree cache keys. Identical inputs always produce the
// same digest; JSON map keys serialize sorted, so the encoding is canonical.
func Fingerprint(layers []model.OverrideLayer, rctx ResolveContext) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	_ = enc.Encode(rctx)
	for _, layer := range layers {
		_ = enc.Encode(layer)
	}
	return hex.EncodeToString(h.Sum(nil))
}
