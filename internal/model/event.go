// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryPublish = "publish"
	EventCategoryDraft   = "draft"
	EventCategoryResolve = "resolve"
	EventCategoryCache   = "cache"
	EventCategorySystem  = "system"
)
