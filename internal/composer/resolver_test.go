// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

package composer

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/assaka/daino-composer/internal/model"
)

func strptr(s string) *string { return &s }

func testConfiguration() *model.Configuration {
	rootID, slots := testSlots()
	return &model.Configuration{
		ID:            "cfg-1",
		TenantID:      "acme",
		PageType:      model.PageTypeCart,
		RootID:        rootID,
		Slots:         slots,
		Status:        model.StatusPublished,
		VersionNumber: 1,
		SchemaVersion: model.SchemaVersion,
	}
}

// Layers arrive out of order; precedence must still be view-mode <
// content-block < experiment-variant, with per-field merge.
func TestResolvePrecedence(t *testing.T) {
	cfg := testConfiguration()
	layers := []model.OverrideLayer{
		{
			Scope: model.ScopeExperimentVariant,
			Patches: map[string]model.SlotPatch{
				"title": {Content: strptr("<h1>Variant B</h1>")},
			},
		},
		{
			Scope: model.ScopeViewMode,
			Patches: map[string]model.SlotPatch{
				"title": {Content: strptr("<h1>Mobile title</h1>")},
				"note":  {StyleOverrides: map[string]string{"color": "blue"}},
			},
		},
	}

	tree, err := Resolve(cfg, layers, ResolveContext{ViewMode: "mobile", VariantID: "b"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// The experiment layer wins the title field.
	if got := tree.Slots["title"].Content; got != "<h1>Variant B</h1>" {
		t.Errorf("title content = %q, want variant content", got)
	}
	// The view-mode style override survives: nothing later touched it.
	if got := tree.Slots["note"].StyleOverrides["color"]; got != "blue" {
		t.Errorf("note color = %q, want blue", got)
	}
	if tree.ViewMode != "mobile" || tree.VariantID != "b" {
		t.Errorf("context not carried: view_mode=%q variant=%q", tree.ViewMode, tree.VariantID)
	}
}

func TestResolveNoLayers(t *testing.T) {
	cfg := testConfiguration()
	tree, err := Resolve(cfg, nil, ResolveContext{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !reflect.DeepEqual(tree.Slots, cfg.Slots) {
		t.Error("resolution without layers must return the base tree unchanged")
	}
}

func TestResolveDeterministic(t *testing.T) {
	cfg := testConfiguration()
	layers := []model.OverrideLayer{
		{
			Scope: model.ScopeViewMode,
			Patches: map[string]model.SlotPatch{
				"title": {ClassName: strptr("big")},
				"note":  {StyleOverrides: map[string]string{"color": "red"}},
				"body":  {ClassName: strptr("narrow")},
			},
		},
	}

	first, err := Resolve(cfg, layers, ResolveContext{ViewMode: "desktop"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	a, _ := json.Marshal(first)

	for i := 0; i < 10; i++ {
		next, err := Resolve(cfg, layers, ResolveContext{ViewMode: "desktop"})
		if err != nil {
			t.Fatalf("Resolve failed on run %d: %v", i, err)
		}
		b, _ := json.Marshal(next)
		if string(a) != string(b) {
			t.Fatalf("resolution differs across runs:\n%s\n%s", a, b)
		}
	}
}

func TestResolvePurity(t *testing.T) {
	cfg := testConfiguration()
	before, _ := json.Marshal(cfg.Slots)

	layers := []model.OverrideLayer{
		{
			Scope: model.ScopeViewMode,
			Patches: map[string]model.SlotPatch{
				"note": {
					Content:        strptr("<p>changed</p>"),
					StyleOverrides: map[string]string{"color": "green"},
				},
			},
		},
	}
	if _, err := Resolve(cfg, layers, ResolveContext{}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	after, _ := json.Marshal(cfg.Slots)
	if string(before) != string(after) {
		t.Error("Resolve mutated its input configuration")
	}
}

func TestResolveUnknownSlotAllOrNothing(t *testing.T) {
	cfg := testConfiguration()
	layers := []model.OverrideLayer{
		{
			Scope: model.ScopeViewMode,
			Patches: map[string]model.SlotPatch{
				"title":   {Content: strptr("<h1>ok</h1>")},
				"phantom": {Content: strptr("<p>nope</p>")},
			},
		},
	}

	_, err := Resolve(cfg, layers, ResolveContext{})
	var unknown *UnknownSlotError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownSlotError, got %v", err)
	}
	if unknown.Scope != model.ScopeViewMode {
		t.Errorf("scope = %q, want view-mode", unknown.Scope)
	}
	if len(unknown.NodeIDs) != 1 || unknown.NodeIDs[0] != "phantom" {
		t.Errorf("node ids = %v, want [phantom]", unknown.NodeIDs)
	}
	// The valid part of the layer must not have been applied anywhere the
	// caller can see.
	if cfg.Slots["title"].Content != "<h1>Your cart</h1>" {
		t.Error("partial layer application leaked into the input")
	}
}

func TestResolveUnknownScope(t *testing.T) {
	cfg := testConfiguration()
	layers := []model.OverrideLayer{{Scope: "season"}}
	_, err := Resolve(cfg, layers, ResolveContext{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func blockConfiguration() *model.Configuration {
	return &model.Configuration{
		ID:       "cfg-2",
		TenantID: "acme",
		PageType: model.PageTypeSuccess,
		RootID:   "root",
		Slots: map[string]model.SlotNode{
			"root":   {ID: "root", Kind: model.SlotKindContainer, Children: []string{"hero", "blocks"}},
			"hero":   {ID: "hero", Kind: model.SlotKindText, Content: "Welcome to the summer sale"},
			"blocks": {ID: "blocks", Kind: model.SlotKindBlockPosition, Metadata: map[string]string{"position": "footer"}},
		},
		Status:        model.StatusPublished,
		VersionNumber: 1,
		SchemaVersion: model.SchemaVersion,
	}
}

func TestResolveInjectsBlocks(t *testing.T) {
	cfg := blockConfiguration()
	layers := []model.OverrideLayer{
		{
			Scope: model.ScopeContentBlock,
			Blocks: map[string][]model.SlotNode{
				"blocks": {
					{ID: "promo", Kind: model.SlotKindText, Content: "Get 20% off today"},
					{ID: "banner", Kind: model.SlotKindText, Content: "Free returns"},
				},
			},
		},
	}

	tree, err := Resolve(cfg, layers, ResolveContext{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	marker := tree.Slots["blocks"]
	if !reflect.DeepEqual(marker.Children, []string{"promo", "banner"}) {
		t.Errorf("marker children = %v, want [promo banner]", marker.Children)
	}
	if _, ok := tree.Slots["promo"]; !ok {
		t.Error("injected block promo missing from tree")
	}
	// The marker keeps its own fields.
	if marker.Metadata["position"] != "footer" {
		t.Error("marker metadata lost during injection")
	}
}

func TestResolveConvertsMarkdownBlocks(t *testing.T) {
	cfg := blockConfiguration()
	layers := []model.OverrideLayer{
		{
			Scope: model.ScopeContentBlock,
			Blocks: map[string][]model.SlotNode{
				"blocks": {
					{
						ID:       "promo",
						Kind:     model.SlotKindText,
						Content:  "**20% off** today",
						Metadata: map[string]string{"format": "markdown"},
					},
				},
			},
		},
	}

	tree, err := Resolve(cfg, layers, ResolveContext{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	promo := tree.Slots["promo"]
	if !strings.Contains(promo.Content, "<strong>20% off</strong>") {
		t.Errorf("markdown not converted: %q", promo.Content)
	}
	if promo.Metadata["format"] != "html" {
		t.Errorf("format = %q, want html", promo.Metadata["format"])
	}
	// The caller's layer must keep its original markdown.
	if layers[0].Blocks["blocks"][0].Content != "**20% off** today" {
		t.Error("Resolve mutated the caller's block content")
	}
}

func TestResolveBlockTargetMustBeMarker(t *testing.T) {
	cfg := blockConfiguration()
	layers := []model.OverrideLayer{
		{
			Scope: model.ScopeContentBlock,
			Blocks: map[string][]model.SlotNode{
				"hero": {{ID: "promo", Kind: model.SlotKindText}},
			},
		},
	}
	_, err := Resolve(cfg, layers, ResolveContext{})
	var unknown *UnknownSlotError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownSlotError, got %v", err)
	}
}

func TestResolveBlockCollision(t *testing.T) {
	cfg := blockConfiguration()
	layers := []model.OverrideLayer{
		{
			Scope: model.ScopeContentBlock,
			Blocks: map[string][]model.SlotNode{
				"blocks": {{ID: "hero", Kind: model.SlotKindText}},
			},
		},
	}
	_, err := Resolve(cfg, layers, ResolveContext{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

// A variant layer may patch a node injected by the content-block layer, since
// injection applies first.
func TestResolveVariantPatchesInjectedBlock(t *testing.T) {
	cfg := blockConfiguration()
	layers := []model.OverrideLayer{
		{
			Scope: model.ScopeExperimentVariant,
			Patches: map[string]model.SlotPatch{
				"promo": {ClassName: strptr("promo-b")},
			},
		},
		{
			Scope: model.ScopeContentBlock,
			Blocks: map[string][]model.SlotNode{
				"blocks": {{ID: "promo", Kind: model.SlotKindText, Content: "Get 20% off today"}},
			},
		},
	}

	tree, err := Resolve(cfg, layers, ResolveContext{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if tree.Slots["promo"].ClassName != "promo-b" {
		t.Errorf("injected block not patched by variant layer: %+v", tree.Slots["promo"])
	}
}

func TestFlattenRenderOrder(t *testing.T) {
	cfg := testConfiguration()
	tree, err := Resolve(cfg, nil, ResolveContext{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	var ids []string
	for _, n := range tree.Flatten() {
		ids = append(ids, n.ID)
	}
	want := []string{"root", "title", "body", "note"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("render order = %v, want %v", ids, want)
	}
}

func TestFingerprint(t *testing.T) {
	layers := []model.OverrideLayer{
		{
			Scope:   model.ScopeViewMode,
			Patches: map[string]model.SlotPatch{"title": {Content: strptr("a")}},
		},
	}

	a := Fingerprint(layers, ResolveContext{ViewMode: "mobile"})
	b := Fingerprint(layers, ResolveContext{ViewMode: "mobile"})
	if a != b {
		t.Error("identical inputs produced different fingerprints")
	}

	c := Fingerprint(layers, ResolveContext{ViewMode: "desktop"})
	if a == c {
		t.Error("different contexts produced the same fingerprint")
	}

	d := Fingerprint(nil, ResolveContext{ViewMode: "mobile"})
	if a == d {
		t.Error("different layers produced the same fingerprint")
	}
}

func TestResolveGolden(t *testing.T) {
	cfg := blockConfiguration()
	layers := []model.OverrideLayer{
		{
			Scope: model.ScopeViewMode,
			Patches: map[string]model.SlotPatch{
				"hero": {ClassName: strptr("hero-mobile")},
			},
		},
		{
			Scope: model.ScopeContentBlock,
			Blocks: map[string][]model.SlotNode{
				"blocks": {{ID: "promo", Kind: model.SlotKindText, Content: "Get 20% off today"}},
			},
		},
	}

	tree, err := Resolve(cfg, layers, ResolveContext{ViewMode: "mobile", VariantID: "b"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		t.Fatalf("marshaling tree: %v", err)
	}

	g := goldie.New(t)
	g.Assert(t, "resolved_tree", data)
}
