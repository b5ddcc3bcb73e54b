// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler implements the JSON API of the site CMS.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/olegiv/sitecms-go/internal/auth"
	"github.com/olegiv/sitecms-go/internal/cms"
	"github.com/olegiv/sitecms-go/internal/middleware"
	"github.com/olegiv/sitecms-go/internal/util"
)

// maxBodySize caps JSON request bodies.
const maxBodySize = 1 << 20

// Generic client-facing messages.
const (
	msgInternalError    = "Internal server error"
	msgInvalidJSON      = "Invalid JSON body"
	msgNotFound         = "Not found"
	msgMethodNotAllowed = "Method not allowed"
)

// writeJSON writes data with ok:true merged in.
func writeJSON(w http.ResponseWriter, status int, data map[string]any) {
	if data == nil {
		data = make(map[string]any)
	}
	data["ok"] = true
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeJSONError writes {ok:false,error:message}.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":    false,
		"error": message,
	})
}

// logAndInternalError logs an error and writes a 500 response without details.
func logAndInternalError(w http.ResponseWriter, logMsg string, args ...any) {
	slog.Error(logMsg, args...)
	writeJSONError(w, http.StatusInternalServerError, msgInternalError)
}

// readBody reads a size-limited request body. It writes a 400 and returns
// false when the body is too large or unreadable.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return nil, false
		}
		writeJSONError(w, http.StatusBadRequest, msgInvalidJSON)
		return nil, false
	}
	return body, true
}

// decodeJSON reads the body into dst, answering 400 on malformed input.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, ok := readBody(w, r)
	if !ok {
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, msgInvalidJSON)
		return false
	}
	return true
}

// actorFromRequest returns the audit identity of the signed-in admin.
func actorFromRequest(r *http.Request) (cms.Actor, auth.SessionClaims) {
	claims, _ := middleware.SessionFromContext(r.Context())
	return cms.Actor{UserID: claims.UserID, Username: claims.Username, Role: claims.Role}, claims
}

// userIDPtr returns the session user id for event log entries.
func userIDPtr(r *http.Request) *int64 {
	claims, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		return nil
	}
	id := claims.UserID
	return &id
}

// queryInt parses an integer query parameter, returning 0 when absent or invalid.
func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

// queryLimit reads ?limit= clamped to [1, maxLimit] with def for absent values.
func queryLimit(r *http.Request, def, maxLimit int) int {
	return util.ClampInt(queryInt(r, "limit"), def, 1, maxLimit)
}
