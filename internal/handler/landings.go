// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tidwall/gjson"

	"github.com/olegiv/sitecms-go/internal/cms"
	"github.com/olegiv/sitecms-go/internal/model"
	"github.com/olegiv/sitecms-go/internal/service"
	"github.com/olegiv/sitecms-go/internal/util"
)

// LandingsHandler serves campaign landing pages.
type LandingsHandler struct {
	store  *cms.Store[cms.Landings]
	events *service.EventService
}

// NewLandingsHandler creates a new LandingsHandler.
func NewLandingsHandler(landings *cms.Store[cms.Landings], events *service.EventService) *LandingsHandler {
	return &LandingsHandler{store: landings, events: events}
}

// Public handles GET /api/landings/{slug}.
func (h *LandingsHandler) Public(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if !util.IsValidSlug(slug) {
		writeJSONError(w, http.StatusNotFound, msgNotFound)
		return
	}

	snap, err := h.store.Read(r.Context())
	if err != nil {
		logAndInternalError(w, "landings read failed", "error", err)
		return
	}
	page, ok := snap.Data.Published(slug)
	if !ok {
		writeJSONError(w, http.StatusNotFound, msgNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"landing": page})
}

// Get handles GET /api/admin/landings.
func (h *LandingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Read(r.Context())
	if err != nil {
		logAndInternalError(w, "landings read failed", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":      snap.Data,
		"updatedAt": snap.UpdatedAt,
	})
}

// Put handles PUT /api/admin/landings, replacing the whole document.
func (h *LandingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		writeJSONError(w, http.StatusBadRequest, "Body must be a JSON object")
		return
	}
	raw, _ := documentFromBody(body)

	actor, _ := actorFromRequest(r)
	res, err := h.store.Write(r.Context(), raw, actor, "")
	if err != nil {
		logAndInternalError(w, "landings write failed", "error", err, "user_id", actor.UserID)
		return
	}
	if len(res.Changed) > 0 {
		_ = h.events.LogCampaignEvent(r.Context(), model.EventLevelInfo, "Landing pages updated", userIDPtr(r),
			util.ClientIP(r), r.URL.Path, map[string]any{"pages": len(res.Data.Pages)})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":      res.Data,
		"changed":   res.Changed,
		"updatedAt": res.UpdatedAt,
	})
}
