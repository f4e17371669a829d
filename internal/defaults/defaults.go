// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

// Package defaults ships the built-in fallback page trees. Every composable
// page type resolves to one of these until a tenant publishes its own
// configuration.
package defaults

import (
	"fmt"
	"time"

	"github.com/assaka/daino-composer/internal/model"
)

// Provider serves the built-in page trees. Trees are built once at startup
// and deep-copied on every call so callers can mutate their copy freely.
type Provider struct {
	trees map[string]*model.Configuration
}

// NewProvider builds the provider with a tree for every known page type.
func NewProvider() *Provider {
	p := &Provider{trees: make(map[string]*model.Configuration)}
	for _, pt := range model.KnownPageTypes() {
		p.trees[pt] = buildDefault(pt)
	}
	return p
}

// GetDefault returns the fallback configuration for a page type. The result
// carries status published and version number 0; forking it starts a new
// lineage rather than extending one.
func (p *Provider) GetDefault(pageType string) (*model.Configuration, error) {
	cfg, ok := p.trees[pageType]
	if !ok {
		return nil, fmt.Errorf("no default configuration for page type %q", pageType)
	}
	out := *cfg
	out.Slots = cfg.CloneSlots()
	return &out, nil
}

func buildDefault(pageType string) *model.Configuration {
	root := "root"
	slots := map[string]model.SlotNode{
		root: {
			ID:       root,
			Kind:     model.SlotKindContainer,
			Children: []string{"header-bar", "main", "blocks-footer"},
		},
		"header-bar": {
			ID:        "header-bar",
			Kind:      model.SlotKindComponent,
			ClassName: "page-header",
			Metadata:  map[string]string{"component": "HeaderBar"},
		},
		"main": {
			ID:        "main",
			Kind:      model.SlotKindContainer,
			ClassName: "page-main",
			Children:  mainChildren(pageType, slotsFor(pageType)),
		},
		"blocks-footer": {
			ID:   "blocks-footer",
			Kind: model.SlotKindBlockPosition,
			Metadata: map[string]string{
				"position": "footer",
			},
		},
	}
	for id, node := range slotsFor(pageType) {
		slots[id] = node
	}

	return &model.Configuration{
		ID:            "default-" + pageType,
		PageType:      pageType,
		RootID:        root,
		Slots:         slots,
		Status:        model.StatusPublished,
		VersionNumber: 0,
		SchemaVersion: model.SchemaVersion,
		CreatedAt:     time.Time{},
		UpdatedAt:     time.Time{},
	}
}

func mainChildren(pageType string, extra map[string]model.SlotNode) []string {
	order := childOrder(pageType)
	children := make([]string, 0, len(order))
	for _, id := range order {
		if _, ok := extra[id]; ok {
			children = append(children, id)
		}
	}
	return children
}

func childOrder(pageType string) []string {
	switch pageType {
	case model.PageTypeCart:
		return []string{"cart-title", "cart-items", "blocks-cart", "cart-summary"}
	case model.PageTypeCheckout:
		return []string{"checkout-title", "checkout-steps", "checkout-payment", "checkout-summary"}
	case model.PageTypeHeader:
		return []string{"header-logo", "header-nav", "header-search", "header-minicart"}
	case model.PageTypeLogin:
		return []string{"login-title", "login-form", "login-register-hint"}
	case model.PageTypeAccount:
		return []string{"account-title", "account-nav", "account-orders"}
	case model.PageTypeSuccess:
		return []string{"success-title", "success-message", "blocks-success"}
	case model.PageTypeCategory:
		return []string{"category-title", "category-filters", "category-grid", "category-pagination"}
	}
	return nil
}

func slotsFor(pageType string) map[string]model.SlotNode {
	switch pageType {
	case model.PageTypeCart:
		return map[string]model.SlotNode{
			"cart-title": {
				ID:      "cart-title",
				Kind:    model.SlotKindText,
				Content: "<h1>Your cart</h1>",
			},
			"cart-items": {
				ID:       "cart-items",
				Kind:     model.SlotKindComponent,
				Metadata: map[string]string{"component": "CartItemList"},
				Layout:   map[string]model.SlotLayout{"desktop": {ColSpan: 8}},
			},
			"blocks-cart": {
				ID:       "blocks-cart",
				Kind:     model.SlotKindBlockPosition,
				Metadata: map[string]string{"position": "cart-below-items"},
			},
			"cart-summary": {
				ID:       "cart-summary",
				Kind:     model.SlotKindComponent,
				Metadata: map[string]string{"component": "CartSummary"},
				Layout:   map[string]model.SlotLayout{"desktop": {ColSpan: 4}},
			},
		}
	case model.PageTypeCheckout:
		return map[string]model.SlotNode{
			"checkout-title": {
				ID:      "checkout-title",
				Kind:    model.SlotKindText,
				Content: "<h1>Checkout</h1>",
			},
			"checkout-steps": {
				ID:       "checkout-steps",
				Kind:     model.SlotKindComponent,
				Metadata: map[string]string{"component": "CheckoutSteps"},
				Layout:   map[string]model.SlotLayout{"desktop": {ColSpan: 8}},
			},
			"checkout-payment": {
				ID:       "checkout-payment",
				Kind:     model.SlotKindComponent,
				Metadata: map[string]string{"component": "PaymentMethods"},
				Layout:   map[string]model.SlotLayout{"desktop": {ColSpan: 8}},
			},
			"checkout-summary": {
				ID:       "checkout-summary",
				Kind:     model.SlotKindComponent,
				Metadata: map[string]string{"component": "OrderSummary"},
				Layout:   map[string]model.SlotLayout{"desktop": {ColSpan: 4}},
			},
		}
	case model.PageTypeHeader:
		return map[string]model.SlotNode{
			"header-logo": {
				ID:       "header-logo",
				Kind:     model.SlotKindImage,
				Metadata: map[string]string{"alt": "Store logo"},
			},
			"header-nav": {
				ID:       "header-nav",
				Kind:     model.SlotKindComponent,
				Metadata: map[string]string{"component": "CategoryNav"},
			},
			"header-search": {
				ID:       "header-search",
				Kind:     model.SlotKindComponent,
				Metadata: map[string]string{"component": "SearchBox"},
			},
			"header-minicart": {
				ID:       "header-minicart",
				Kind:     model.SlotKindComponent,
				Metadata: map[string]string{"component": "MiniCart"},
			},
		}
	case model.PageTypeLogin:
		return map[string]model.SlotNode{
			"login-title": {
				ID:      "login-title",
				Kind:    model.SlotKindText,
				Content: "<h1>Sign in</h1>",
			},
			"login-form": {
				ID:       "login-form",
				Kind:     model.SlotKindComponent,
				Metadata: map[string]string{"component": "LoginForm"},
			},
			"login-register-hint": {
				ID:      "login-register-hint",
				Kind:    model.SlotKindText,
				Content: "<p>New here? Create an account during checkout.</p>",
			},
		}
	case model.PageTypeAccount:
		return map[string]model.SlotNode{
			"account-title": {
				ID:      "account-title",
				Kind:    model.SlotKindText,
				Content: "<h1>My account</h1>",
			},
			"account-nav": {
				ID:       "account-nav",
				Kind:     model.SlotKindComponent,
				Metadata: map[string]string{"component": "AccountNav"},
				Layout:   map[string]model.SlotLayout{"desktop": {ColSpan: 3}},
			},
			"account-orders": {
				ID:       "account-orders",
				Kind:     model.SlotKindComponent,
				Metadata: map[string]string{"component": "OrderHistory"},
				Layout:   map[string]model.SlotLayout{"desktop": {ColSpan: 9}},
			},
		}
	case model.PageTypeSuccess:
		return map[string]model.SlotNode{
			"success-title": {
				ID:      "success-title",
				Kind:    model.SlotKindText,
				Content: "<h1>Thank you for your order</h1>",
			},
			"success-message": {
				ID:      "success-message",
				Kind:    model.SlotKindText,
				Content: "<p>A confirmation email is on its way.</p>",
			},
			"blocks-success": {
				ID:       "blocks-success",
				Kind:     model.SlotKindBlockPosition,
				Metadata: map[string]string{"position": "success-below-message"},
			},
		}
	case model.PageTypeCategory:
		return map[string]model.SlotNode{
			"category-title": {
				ID:      "category-title",
				Kind:    model.SlotKindText,
				Content: "<h1>Products</h1>",
			},
			"category-filters": {
				ID:       "category-filters",
				Kind:     model.SlotKindComponent,
				Metadata: map[string]string{"component": "LayeredNav"},
				Layout:   map[string]model.SlotLayout{"desktop": {ColSpan: 3}},
			},
			"category-grid": {
				ID:       "category-grid",
				Kind:     model.SlotKindComponent,
				Metadata: map[string]string{"component": "ProductGrid"},
				Layout:   map[string]model.SlotLayout{"desktop": {ColSpan: 9}},
			},
			"category-pagination": {
				ID:       "category-pagination",
				Kind:     model.SlotKindComponent,
				Metadata: map[string]string{"component": "Pagination"},
			},
		}
	}
	return nil
}
