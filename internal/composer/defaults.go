// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

package composer

import "github.com/assaka/daino-composer/internal/model"

// DefaultProvider supplies the built-in fallback configuration for a page
// type when no stored configuration exists. Implementations return a
// structurally valid tree with status published and version number 0; the
// engine never hardcodes page templates itself.
type DefaultProvider interface {
	GetDefault(pageType string) (*model.Configuration, error)
}
