// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"

	"github.com/olegiv/sitecms-go/internal/analytics"
	"github.com/olegiv/sitecms-go/internal/util"
)

// AnalyticsHandler records page views and serves the dashboard.
type AnalyticsHandler struct {
	tracker  *analytics.Tracker
	reporter *analytics.Reporter
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(tracker *analytics.Tracker, reporter *analytics.Reporter) *AnalyticsHandler {
	return &AnalyticsHandler{tracker: tracker, reporter: reporter}
}

type trackRequest struct {
	Path     string `json:"path"`
	Referrer string `json:"referrer"`
}

// Track handles the POST /api/track beacon.
func (h *AnalyticsHandler) Track(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	_, err := h.tracker.Track(r.Context(), analytics.Hit{
		Path:      req.Path,
		Referrer:  req.Referrer,
		IP:        util.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if errors.Is(err, analytics.ErrInvalidPath) {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		logAndInternalError(w, "page view not recorded", "error", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summary handles GET /api/admin/analytics[?days=].
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s := h.reporter.Summary(r.Context(), queryInt(r, "days"))
	writeJSON(w, http.StatusOK, map[string]any{"summary": s})
}
