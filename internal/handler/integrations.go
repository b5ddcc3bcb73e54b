// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/olegiv/sitecms-go/internal/integrations"
	"github.com/olegiv/sitecms-go/internal/model"
	"github.com/olegiv/sitecms-go/internal/service"
	"github.com/olegiv/sitecms-go/internal/util"
)

// IntegrationsHandler reads, writes and tests provider settings.
type IntegrationsHandler struct {
	service *integrations.Service
	events  *service.EventService
}

// NewIntegrationsHandler creates a new IntegrationsHandler.
func NewIntegrationsHandler(svc *integrations.Service, events *service.EventService) *IntegrationsHandler {
	return &IntegrationsHandler{service: svc, events: events}
}

func viewResponse(v integrations.View) map[string]any {
	return map[string]any{
		"integrations": v.Integrations,
		"envOverrides": v.EnvOverrides,
		"updatedAt":    v.UpdatedAt,
	}
}

// Get handles GET /api/integrations.
func (h *IntegrationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.View(r.Context())
	if err != nil {
		logAndInternalError(w, "integrations read failed", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, viewResponse(view))
}

// Put handles PUT /api/integrations. The body is the integrations document,
// optionally wrapped as {integrations: {...}}.
func (h *IntegrationsHandler) Put(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		writeJSONError(w, http.StatusBadRequest, "Body must be a JSON object")
		return
	}
	if wrapped := gjson.GetBytes(body, "integrations"); wrapped.IsObject() {
		body = []byte(wrapped.Raw)
	}

	actor, _ := actorFromRequest(r)
	view, changed, err := h.service.Update(r.Context(), body, actor)
	if err != nil {
		logAndInternalError(w, "integrations write failed", "error", err, "user_id", actor.UserID)
		return
	}

	if len(changed) > 0 {
		_ = h.events.LogIntegrationsEvent(r.Context(), model.EventLevelInfo, "Integrations updated", userIDPtr(r),
			util.ClientIP(r), r.URL.Path, map[string]any{"slots": changed})
	}

	resp := viewResponse(view)
	resp["changed"] = changed
	writeJSON(w, http.StatusOK, resp)
}

type integrationTestRequest struct {
	Provider string `json:"provider"`
}

// Test handles POST /api/admin/integrations/test {provider}.
func (h *IntegrationsHandler) Test(w http.ResponseWriter, r *http.Request) {
	var req integrationTestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.Test(r.Context(), req.Provider)
	if errors.Is(err, integrations.ErrUnknownSlot) {
		writeJSONError(w, http.StatusBadRequest, "provider must be one of gemini, openai, smtp, r2")
		return
	}
	if err != nil {
		logAndInternalError(w, "integration test failed", "error", err, "provider", req.Provider)
		return
	}

	if res.Status != integrations.StatusConfigured {
		_ = h.events.LogIntegrationsEvent(r.Context(), model.EventLevelWarning, "Integration test failed", userIDPtr(r),
			util.ClientIP(r), r.URL.Path, map[string]any{"provider": res.Provider, "message": res.Message})
	}

	_, overrides, err := h.service.Effective(r.Context())
	if err != nil {
		logAndInternalError(w, "integrations read failed", "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"provider":     res.Provider,
		"status":       res.Status,
		"message":      res.Message,
		"envOverrides": overrides,
	})
}
