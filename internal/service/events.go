// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service holds admin identity and event-log business logic.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/olegiv/sitecms-go/internal/model"
	"github.com/olegiv/sitecms-go/internal/store"
)

// EventService provides event logging functionality.
type EventService struct {
	queries *store.Queries
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{
		queries: store.New(db),
	}
}

// LogEvent creates a new event log entry.
func (s *EventService) LogEvent(ctx context.Context, level, category, message string, userID *int64, ipAddress, requestURL string, metadata map[string]any) error {
	var nullUserID sql.NullInt64
	if userID != nil && *userID > 0 {
		nullUserID = sql.NullInt64{Int64: *userID, Valid: true}
	}

	metadataJSON := "{}"
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(b)
		}
	}

	_, err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:      level,
		Category:   category,
		Message:    message,
		UserID:     nullUserID,
		Metadata:   metadataJSON,
		IpAddress:  ipAddress,
		RequestUrl: requestURL,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		// Not logged at WARN: the event log handler would try to write it again.
		slog.Info("failed to write event", "error", err, "message", message)
		return err
	}
	return nil
}

// LogAuthEvent logs an authentication-related event.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message string, userID *int64, ipAddress, requestURL string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryAuth, message, userID, ipAddress, requestURL, metadata)
}

// LogCMSEvent logs a content change.
func (s *EventService) LogCMSEvent(ctx context.Context, level, message string, userID *int64, ipAddress, requestURL string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryCMS, message, userID, ipAddress, requestURL, metadata)
}

// LogIntegrationsEvent logs an integration settings change or connection test.
func (s *EventService) LogIntegrationsEvent(ctx context.Context, level, message string, userID *int64, ipAddress, requestURL string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryIntegrations, message, userID, ipAddress, requestURL, metadata)
}

// LogCampaignEvent logs a campaign lifecycle event.
func (s *EventService) LogCampaignEvent(ctx context.Context, level, message string, userID *int64, ipAddress, requestURL string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryCampaign, message, userID, ipAddress, requestURL, metadata)
}

// LogUserEvent logs a user-related event.
func (s *EventService) LogUserEvent(ctx context.Context, level, message string, userID *int64, ipAddress, requestURL string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryUser, message, userID, ipAddress, requestURL, metadata)
}

// LogSecurityEvent logs a security-related event such as a lockout.
func (s *EventService) LogSecurityEvent(ctx context.Context, level, message string, userID *int64, ipAddress, requestURL string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategorySecurity, message, userID, ipAddress, requestURL, metadata)
}

// ListEvents returns the newest events, optionally filtered by category.
func (s *EventService) ListEvents(ctx context.Context, category string, limit int64) ([]store.Event, error) {
	return s.queries.ListEvents(ctx, store.ListEventsParams{Category: category, Limit: limit})
}

// DeleteOldEvents removes events older than the specified duration.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().UTC().Add(-olderThan)
	return s.queries.DeleteOldEvents(ctx, cutoff)
}
