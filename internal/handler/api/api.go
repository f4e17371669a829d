// Copyright (c) 2025-2026 Assaka OÜ
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides REST API handlers for the page composer.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/assaka/daino-composer/internal/composer"
)

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	svc *composer.Service
}

// NewHandler creates a new API handler.
func NewHandler(svc *composer.Service) *Handler {
	return &Handler{svc: svc}
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data,omitempty"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination and other metadata.
type Meta struct {
	Total   int64 `json:"total,omitempty"`
	Page    int   `json:"page,omitempty"`
	PerPage int   `json:"per_page,omitempty"`
	Pages   int   `json:"pages,omitempty"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// writeComposerError maps the error taxonomy onto HTTP statuses. Structural
// problems are 422, coordination problems 409, missing things 404; anything
// unrecognized is logged and reported as 500.
func writeComposerError(w http.ResponseWriter, err error) {
	var (
		notFound    *composer.NotFoundError
		validation  *composer.ValidationError
		unknownSlot *composer.UnknownSlotError
		conflict    *composer.ConflictError
		transition  *composer.InvalidTransitionError
		state       *composer.InvalidStateError
		stale       *composer.StaleWriteError
	)

	switch {
	case errors.As(err, &notFound):
		WriteNotFound(w, notFound.Error())
	case errors.As(err, &validation):
		details := map[string]string{}
		if ids := validation.NodeIDs(); len(ids) > 0 {
			details["nodes"] = strings.Join(ids, ", ")
		}
		WriteError(w, http.StatusUnprocessableEntity, "validation_error", validation.Error(), details)
	case errors.As(err, &unknownSlot):
		WriteError(w, http.StatusUnprocessableEntity, "unknown_slot", unknownSlot.Error(), map[string]string{
			"scope": unknownSlot.Scope,
			"nodes": strings.Join(unknownSlot.NodeIDs, ", "),
		})
	case errors.As(err, &conflict):
		WriteError(w, http.StatusConflict, "conflict", conflict.Error(), nil)
	case errors.As(err, &transition):
		WriteError(w, http.StatusConflict, "invalid_transition", transition.Error(), nil)
	case errors.As(err, &state):
		WriteError(w, http.StatusConflict, "invalid_state", state.Error(), nil)
	case errors.As(err, &stale):
		WriteError(w, http.StatusConflict, "stale_write", stale.Error(), nil)
	default:
		slog.Error("unhandled API error", "error", err)
		WriteInternalError(w, "Internal error")
	}
}

// decodeJSONBody decodes a request body, rejecting unknown fields. Returns
// false when a response has already been written.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteBadRequest(w, "Invalid JSON body: "+err.Error(), nil)
		return false
	}
	return true
}

// parsePageParam parses the "page" query parameter, defaulting to 1.
func parsePageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// parsePerPageParam parses the "per_page" query parameter with a default and cap.
func parsePerPageParam(r *http.Request, def, max int) int {
	perPage, err := strconv.Atoi(r.URL.Query().Get("per_page"))
	if err != nil || perPage < 1 {
		return def
	}
	if perPage > max {
		return max
	}
	return perPage
}

// StatusResponse contains API status information.
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Status returns the API status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, StatusResponse{
		Status:  "ok",
		Version: "v1",
	}, nil)
}
