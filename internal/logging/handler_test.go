package logging

import (
	"context"
	"log/slog"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/olegiv/sitecms-go/internal/model"
	"github.com/olegiv/sitecms-go/internal/store"
	"github.com/olegiv/sitecms-go/internal/testutil"
)

// discardHandler is a slog.Handler that discards all logs.
type discardHandler struct{}

func (h discardHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h discardHandler) WithGroup(string) slog.Handler             { return h }

func listEvents(t *testing.T, q *store.Queries) []store.Event {
	t.Helper()
	events, err := q.ListEvents(context.Background(), store.ListEventsParams{Limit: 10})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	return events
}

func TestEventLogHandler_Levels(t *testing.T) {
	tests := []struct {
		name      string
		log       func(l *slog.Logger)
		wantCount int
		wantLevel string
	}{
		{"error captured", func(l *slog.Logger) { l.Error("database connection failed", "host", "localhost") }, 1, model.EventLevelError},
		{"warn captured", func(l *slog.Logger) { l.Warn("slow query detected", "duration_ms", 5000) }, 1, model.EventLevelWarning},
		{"info ignored", func(l *slog.Logger) { l.Info("server started", "port", 8080) }, 0, ""},
		{"debug ignored", func(l *slog.Logger) { l.Debug("processing request") }, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, cleanup := testutil.TestDB(t)
			defer cleanup()

			tt.log(slog.New(NewEventLogHandler(discardHandler{}, db)))

			events := listEvents(t, store.New(db))
			if len(events) != tt.wantCount {
				t.Fatalf("expected %d events, got %d", tt.wantCount, len(events))
			}
			if tt.wantCount > 0 && events[0].Level != tt.wantLevel {
				t.Errorf("Level = %q, want %q", events[0].Level, tt.wantLevel)
			}
		})
	}
}

func TestEventLogHandler_CustomLevel(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	logger := slog.New(NewEventLogHandlerWithLevel(discardHandler{}, db, slog.LevelInfo))
	logger.Info("server started", "port", 8080)

	if events := listEvents(t, store.New(db)); len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
}

func TestEventLogHandler_CategoryAndMetadata(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	logger := slog.New(NewEventLogHandler(discardHandler{}, db)).With("request_id", "req-1")
	logger.Warn("rate limit exceeded", "category", model.EventCategorySecurity, "ip", "203.0.113.9", "user.agent", "curl")

	events := listEvents(t, store.New(db))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Category != model.EventCategorySecurity {
		t.Errorf("Category = %q, want %q", ev.Category, model.EventCategorySecurity)
	}

	meta := gjson.Parse(ev.Metadata)
	if got := meta.Get("ip").String(); got != "203.0.113.9" {
		t.Errorf("metadata ip = %q", got)
	}
	if got := meta.Get("request_id").String(); got != "req-1" {
		t.Errorf("metadata request_id = %q, want attribute from With()", got)
	}
	if got := meta.Get(`user\.agent`).String(); got != "curl" {
		t.Errorf("metadata user.agent = %q", got)
	}
	if meta.Get("category").Exists() {
		t.Error("category should not be duplicated into metadata")
	}
}

func TestCategoryInference(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"login failed", model.EventCategoryAuth},
		{"cms rollback failed", model.EventCategoryCMS},
		{"smtp dial failed", model.EventCategoryIntegrations},
		{"campaign send failed", model.EventCategoryCampaign},
		{"disk almost full", model.EventCategorySystem},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := category(tt.msg, nil); got != tt.want {
				t.Errorf("category(%q) = %q, want %q", tt.msg, got, tt.want)
			}
		})
	}
}
