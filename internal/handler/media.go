// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/olegiv/sitecms-go/internal/imaging"
	"github.com/olegiv/sitecms-go/internal/integrations"
	"github.com/olegiv/sitecms-go/internal/model"
	"github.com/olegiv/sitecms-go/internal/service"
	"github.com/olegiv/sitecms-go/internal/storage"
	"github.com/olegiv/sitecms-go/internal/util"
)

// multipartSlack covers form boundaries and headers around the file part.
const multipartSlack = 64 << 10

// MediaHandler normalises uploaded images and stores them in R2.
type MediaHandler struct {
	integrations *integrations.Service
	events       *service.EventService
	uploader     func(storage.R2Config) (storage.Uploader, error)
	now          func() time.Time
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(svc *integrations.Service, events *service.EventService) *MediaHandler {
	return &MediaHandler{
		integrations: svc,
		events:       events,
		uploader: func(cfg storage.R2Config) (storage.Uploader, error) {
			return storage.NewR2(cfg)
		},
		now: time.Now,
	}
}

// Upload handles POST /api/admin/media with a multipart "file" field.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+multipartSlack)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "File exceeds 20 MB")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "A file field is required")
		return
	}
	defer func() { _ = file.Close() }()
	if header.Size > imaging.MaxUploadSize {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "File exceeds 20 MB")
		return
	}

	ctx := r.Context()
	eff, _, err := h.integrations.Effective(ctx)
	if err != nil {
		logAndInternalError(w, "integrations read failed", "error", err)
		return
	}
	cfg := integrations.StorageConfig(eff)
	if !cfg.IsConfigured() {
		writeJSONError(w, http.StatusBadRequest, "Object storage is not configured")
		return
	}

	img, err := imaging.Normalize(file)
	if errors.Is(err, imaging.ErrUnsupportedFormat) {
		writeJSONError(w, http.StatusBadRequest, "File must be a JPEG, PNG, GIF or WebP image")
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Image could not be processed")
		return
	}

	up, err := h.uploader(cfg)
	if err != nil {
		logAndInternalError(w, "storage client failed", "error", err)
		return
	}
	obj, err := up.Put(ctx, storage.ObjectKey(h.now(), img.Ext), bytes.NewReader(img.Data), int64(len(img.Data)), img.ContentType)
	if err != nil {
		_ = h.events.LogIntegrationsEvent(ctx, model.EventLevelError, "Media upload failed", userIDPtr(r),
			util.ClientIP(r), r.URL.Path, map[string]any{"error": err.Error()})
		writeJSONError(w, http.StatusBadGateway, "Upload to object storage failed")
		return
	}

	_ = h.events.LogCMSEvent(ctx, model.EventLevelInfo, "Media uploaded", userIDPtr(r), util.ClientIP(r), r.URL.Path,
		map[string]any{"key": obj.Key, "size": len(img.Data), "original": header.Filename})

	writeJSON(w, http.StatusOK, map[string]any{
		"key":         obj.Key,
		"url":         obj.URL,
		"width":       img.Width,
		"height":      img.Height,
		"contentType": img.ContentType,
	})
}
