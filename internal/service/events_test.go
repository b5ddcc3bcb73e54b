// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"testing"
	"time"

	"github.com/olegiv/sitecms-go/internal/model"
	"github.com/olegiv/sitecms-go/internal/testutil"
)

func TestLogEvent(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	svc := NewEventService(db)
	ctx := context.Background()

	err := svc.LogEvent(ctx, model.EventLevelInfo, model.EventCategoryCMS, "Test message", nil, "192.168.1.100", "/api/cms", map[string]any{
		"key": "value",
	})
	if err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	events, err := svc.ListEvents(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("event count = %d, want 1", len(events))
	}

	ev := events[0]
	if ev.Level != model.EventLevelInfo {
		t.Errorf("level = %q, want %q", ev.Level, model.EventLevelInfo)
	}
	if ev.Category != model.EventCategoryCMS {
		t.Errorf("category = %q, want %q", ev.Category, model.EventCategoryCMS)
	}
	if ev.UserID.Valid {
		t.Error("user_id should be NULL")
	}
	if ev.IpAddress != "192.168.1.100" {
		t.Errorf("ip_address = %q, want %q", ev.IpAddress, "192.168.1.100")
	}
	if ev.RequestUrl != "/api/cms" {
		t.Errorf("request_url = %q, want %q", ev.RequestUrl, "/api/cms")
	}
	if ev.Metadata != `{"key":"value"}` {
		t.Errorf("metadata = %q, want %q", ev.Metadata, `{"key":"value"}`)
	}
}

func TestLogCategoryHelpers(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	svc := NewEventService(db)
	ctx := context.Background()

	tests := []struct {
		name     string
		log      func() error
		category string
	}{
		{"auth", func() error { return svc.LogAuthEvent(ctx, model.EventLevelInfo, "m", nil, "", "", nil) }, model.EventCategoryAuth},
		{"cms", func() error { return svc.LogCMSEvent(ctx, model.EventLevelInfo, "m", nil, "", "", nil) }, model.EventCategoryCMS},
		{"integrations", func() error { return svc.LogIntegrationsEvent(ctx, model.EventLevelInfo, "m", nil, "", "", nil) }, model.EventCategoryIntegrations},
		{"campaign", func() error { return svc.LogCampaignEvent(ctx, model.EventLevelInfo, "m", nil, "", "", nil) }, model.EventCategoryCampaign},
		{"user", func() error { return svc.LogUserEvent(ctx, model.EventLevelInfo, "m", nil, "", "", nil) }, model.EventCategoryUser},
		{"security", func() error { return svc.LogSecurityEvent(ctx, model.EventLevelWarning, "m", nil, "", "", nil) }, model.EventCategorySecurity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.log(); err != nil {
				t.Fatalf("log: %v", err)
			}
			events, err := svc.ListEvents(ctx, tt.category, 10)
			if err != nil {
				t.Fatalf("ListEvents: %v", err)
			}
			if len(events) != 1 {
				t.Errorf("events in %q = %d, want 1", tt.category, len(events))
			}
		})
	}
}

func TestDeleteOldEvents(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	svc := NewEventService(db)
	ctx := context.Background()

	if err := svc.LogEvent(ctx, model.EventLevelInfo, model.EventCategorySystem, "fresh", nil, "", "", nil); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	if err := svc.DeleteOldEvents(ctx, time.Hour); err != nil {
		t.Fatalf("DeleteOldEvents: %v", err)
	}

	events, err := svc.ListEvents(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("fresh event deleted; count = %d", len(events))
	}
}
