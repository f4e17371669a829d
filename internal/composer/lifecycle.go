// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

package composer

import "github.com/assaka/daino-composer/internal/model"

// transitions is the legal lifecycle move table. Demotion of a published row
// to archived is coordinator-internal and deliberately absent: callers can
// never request it directly.
var transitions = map[string]map[string]bool{
	model.StatusDraft: {
		model.StatusAcceptance: true, // publish to staging
		model.StatusPublished:  true, // publish directly
		model.StatusReverted:   true, // discard draft
	},
	model.StatusAcceptance: {
		model.StatusPublished: true, // publish to production
		model.StatusDraft:     true, // return to editing
	},
}

// CanTransition reports whether moving a configuration from one status to
// another is legal.
func CanTransition(from, to string) bool {
	return transitions[from][to]
}

// checkTransition returns an InvalidTransitionError if the move is illegal.
func checkTransition(configurationID, from, to string) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{
			ConfigurationID: configurationID,
			From:            from,
			To:              to,
		}
	}
	return nil
}
