// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/sitecms-go/internal/version"
)

const healthPingTimeout = 2 * time.Second

// HealthHandler reports liveness and database reachability.
type HealthHandler struct {
	db        *sql.DB
	version   version.Info
	startedAt time.Time
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db *sql.DB, info version.Info) *HealthHandler {
	return &HealthHandler{db: db, version: info, startedAt: time.Now()}
}

// Health handles GET /api/health. It always answers 200; a failed database
// ping reports status "degraded".
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	status := "ok"
	if err := h.db.PingContext(ctx); err != nil {
		slog.Warn("health check: database unreachable", "error", err)
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": h.version.Label(),
		"uptime":  int64(time.Since(h.startedAt).Seconds()),
	})
}
