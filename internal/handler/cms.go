// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/olegiv/sitecms-go/internal/cms"
	"github.com/olegiv/sitecms-go/internal/middleware"
	"github.com/olegiv/sitecms-go/internal/model"
	"github.com/olegiv/sitecms-go/internal/service"
	"github.com/olegiv/sitecms-go/internal/store"
	"github.com/olegiv/sitecms-go/internal/util"
)

// CMSHandler serves the main site content document.
type CMSHandler struct {
	store  *cms.Store[cms.Document]
	events *service.EventService
}

// NewCMSHandler creates a new CMSHandler.
func NewCMSHandler(docs *cms.Store[cms.Document], events *service.EventService) *CMSHandler {
	return &CMSHandler{store: docs, events: events}
}

type versionView struct {
	ID        int64           `json:"id"`
	Section   string          `json:"section"`
	Data      json.RawMessage `json:"data"`
	CreatedBy string          `json:"createdBy"`
	Note      string          `json:"note"`
	CreatedAt time.Time       `json:"createdAt"`
}

type auditView struct {
	ID        int64           `json:"id"`
	Action    string          `json:"action"`
	Section   string          `json:"section,omitempty"`
	Actor     string          `json:"actor"`
	ActorRole string          `json:"actorRole"`
	Metadata  json.RawMessage `json:"metadata"`
	CreatedAt time.Time       `json:"createdAt"`
}

func newVersionViews(rows []store.CmsSnapshotVersion) []versionView {
	out := make([]versionView, 0, len(rows))
	for _, v := range rows {
		out = append(out, versionView{
			ID:        v.ID,
			Section:   v.Section,
			Data:      rawJSON(v.Data),
			CreatedBy: v.CreatedByUsername,
			Note:      v.Note,
			CreatedAt: v.CreatedAt,
		})
	}
	return out
}

func newAuditViews(rows []store.AdminAuditLog) []auditView {
	out := make([]auditView, 0, len(rows))
	for _, a := range rows {
		out = append(out, auditView{
			ID:        a.ID,
			Action:    a.Action,
			Section:   a.Section.String,
			Actor:     a.ActorUsername,
			ActorRole: a.ActorRole,
			Metadata:  rawJSON(a.Metadata),
			CreatedAt: a.CreatedAt,
		})
	}
	return out
}

// rawJSON passes stored JSON through, substituting null for invalid text.
func rawJSON(s string) json.RawMessage {
	if !gjson.Valid(s) {
		return json.RawMessage("null")
	}
	return json.RawMessage(s)
}

// requireRole writes 401/403 unless the request session has at least minRole.
// It serves routes whose guard depends on query parameters.
func requireRole(w http.ResponseWriter, r *http.Request, minRole string) bool {
	claims, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, middleware.MsgUnauthorized)
		return false
	}
	if !model.RoleAtLeast(claims.Role, minRole) {
		writeJSONError(w, http.StatusForbidden, middleware.MsgForbidden)
		return false
	}
	return true
}

// Get handles GET /api/cms. With ?history=1 it returns version and audit
// history instead, which requires an editor session.
func (h *CMSHandler) Get(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.Query().Get("history"); q == "1" || q == "true" {
		h.history(w, r)
		return
	}

	snap, err := h.store.Read(r.Context())
	if err != nil {
		logAndInternalError(w, "cms read failed", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":      snap.Data,
		"updatedAt": snap.UpdatedAt,
	})
}

func (h *CMSHandler) history(w http.ResponseWriter, r *http.Request) {
	if !requireRole(w, r, model.RoleEditor) {
		return
	}

	hist, err := h.store.History(r.Context(), r.URL.Query().Get("section"), queryInt(r, "limit"))
	if errors.Is(err, cms.ErrInvalidSection) {
		writeJSONError(w, http.StatusBadRequest, "Unknown section")
		return
	}
	if err != nil {
		logAndInternalError(w, "cms history failed", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"versions": newVersionViews(hist.Versions),
		"audit":    newAuditViews(hist.Audit),
	})
}

// documentFromBody accepts either {data: {...}, note} or the bare document.
func documentFromBody(body []byte) (raw []byte, note string) {
	if data := gjson.GetBytes(body, "data"); data.IsObject() {
		return []byte(data.Raw), gjson.GetBytes(body, "note").String()
	}
	return body, ""
}

// Put handles PUT /api/cms.
func (h *CMSHandler) Put(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		writeJSONError(w, http.StatusBadRequest, "Body must be a JSON object")
		return
	}
	raw, note := documentFromBody(body)
	note = cms.CleanText(note, 200)

	actor, _ := actorFromRequest(r)
	res, err := h.store.Write(r.Context(), raw, actor, note)
	if err != nil {
		logAndInternalError(w, "cms write failed", "error", err, "user_id", actor.UserID)
		return
	}

	if len(res.Changed) > 0 {
		_ = h.events.LogCMSEvent(r.Context(), model.EventLevelInfo, "Content updated", userIDPtr(r),
			util.ClientIP(r), r.URL.Path, map[string]any{"sections": res.Changed})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":      res.Data,
		"changed":   res.Changed,
		"updatedAt": res.UpdatedAt,
	})
}

type cmsActionRequest struct {
	Action    string `json:"action"`
	VersionID int64  `json:"versionId"`
}

// Post handles POST /api/cms {action:"rollback", versionId}.
func (h *CMSHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req cmsActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Action != "rollback" {
		writeJSONError(w, http.StatusBadRequest, "Unsupported action")
		return
	}
	if req.VersionID <= 0 {
		writeJSONError(w, http.StatusBadRequest, "versionId is required")
		return
	}

	actor, _ := actorFromRequest(r)
	res, err := h.store.Rollback(r.Context(), req.VersionID, actor)
	switch {
	case errors.Is(err, cms.ErrVersionNotFound):
		writeJSONError(w, http.StatusNotFound, "Version not found")
		return
	case errors.Is(err, cms.ErrInvalidSection):
		writeJSONError(w, http.StatusBadRequest, "Version refers to an unknown section")
		return
	case err != nil:
		logAndInternalError(w, "cms rollback failed", "error", err, "version_id", req.VersionID)
		return
	}

	_ = h.events.LogCMSEvent(r.Context(), model.EventLevelInfo, "Content rolled back", userIDPtr(r),
		util.ClientIP(r), r.URL.Path, map[string]any{"section": res.Section, "versionId": res.VersionID})

	writeJSON(w, http.StatusOK, map[string]any{
		"data":      res.Data,
		"section":   res.Section,
		"versionId": res.VersionID,
		"updatedAt": res.UpdatedAt,
	})
}
