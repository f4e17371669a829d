// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

package defaults

import (
	"testing"

	"github.com/assaka/daino-composer/internal/composer"
	"github.com/assaka/daino-composer/internal/model"
)

func TestEveryPageTypeHasValidDefault(t *testing.T) {
	p := NewProvider()

	for _, pt := range model.KnownPageTypes() {
		cfg, err := p.GetDefault(pt)
		if err != nil {
			t.Fatalf("GetDefault(%s) failed: %v", pt, err)
		}
		if cfg.VersionNumber != 0 {
			t.Errorf("%s: version = %d, want 0", pt, cfg.VersionNumber)
		}
		if cfg.Status != model.StatusPublished {
			t.Errorf("%s: status = %s, want published", pt, cfg.Status)
		}
		if cfg.ParentVersionID.Valid {
			t.Errorf("%s: defaults never have a parent", pt)
		}
		if err := composer.ValidateTree(cfg.RootID, cfg.Slots); err != nil {
			t.Errorf("%s: invalid default tree: %v", pt, err)
		}
	}
}

func TestDefaultsCarryBlockPositions(t *testing.T) {
	p := NewProvider()

	// Every page carries at least the footer marker so content blocks always
	// have somewhere to land.
	for _, pt := range model.KnownPageTypes() {
		cfg, err := p.GetDefault(pt)
		if err != nil {
			t.Fatalf("GetDefault(%s) failed: %v", pt, err)
		}
		found := false
		for _, node := range cfg.Slots {
			if node.Kind == model.SlotKindBlockPosition {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("%s: no block-position slot in default tree", pt)
		}
	}
}

func TestGetDefaultReturnsIndependentCopies(t *testing.T) {
	p := NewProvider()

	first, err := p.GetDefault(model.PageTypeCart)
	if err != nil {
		t.Fatalf("GetDefault failed: %v", err)
	}

	node := first.Slots["cart-title"]
	node.Content = "<h1>Mutated</h1>"
	first.Slots["cart-title"] = node

	second, err := p.GetDefault(model.PageTypeCart)
	if err != nil {
		t.Fatalf("GetDefault failed: %v", err)
	}
	if second.Slots["cart-title"].Content == "<h1>Mutated</h1>" {
		t.Error("mutation of one copy leaked into the provider")
	}
}

func TestGetDefaultUnknownPageType(t *testing.T) {
	p := NewProvider()
	if _, err := p.GetDefault("blog"); err == nil {
		t.Fatal("expected an error for an unknown page type")
	}
}
