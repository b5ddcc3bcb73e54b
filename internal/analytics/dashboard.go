// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package analytics

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/olegiv/sitecms-go/internal/store"
	"github.com/olegiv/sitecms-go/internal/util"
)

// Dashboard window limits, in days.
const (
	DefaultDays = 30
	MaxDays     = 365
	topLimit    = 10
)

// Summary is the analytics dashboard. Any aggregate that failed to load is
// zero or empty.
type Summary struct {
	Days         int                `json:"days"`
	Since        time.Time          `json:"since"`
	Views        int64              `json:"views"`
	Visitors     int64              `json:"visitors"`
	Leads        int64              `json:"leads"`
	Subscribers  int64              `json:"subscribers"`
	TopPages     []store.LabelCount `json:"topPages"`
	TopReferrers []store.LabelCount `json:"topReferrers"`
	Devices      []store.LabelCount `json:"devices"`
	Countries    []store.LabelCount `json:"countries"`
	Daily        []store.LabelCount `json:"daily"`
}

// Reporter builds dashboard summaries.
type Reporter struct {
	queries *store.Queries
	now     func() time.Time
}

// NewReporter creates a Reporter.
func NewReporter(db *sql.DB) *Reporter {
	return &Reporter{
		queries: store.New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Summary runs every aggregate for the last days days in parallel. days is
// clamped to 1..MaxDays; 0 selects DefaultDays.
func (r *Reporter) Summary(ctx context.Context, days int) Summary {
	days = util.ClampInt(days, DefaultDays, 1, MaxDays)
	since := r.now().AddDate(0, 0, -days)
	agg := store.PageViewAggregateParams{Since: since, Limit: topLimit}

	s := Summary{
		Days:         days,
		Since:        since,
		TopPages:     []store.LabelCount{},
		TopReferrers: []store.LabelCount{},
		Devices:      []store.LabelCount{},
		Countries:    []store.LabelCount{},
		Daily:        []store.LabelCount{},
	}

	// Every task writes its own field and swallows its error.
	var g errgroup.Group
	count := func(name string, dst *int64, fn func() (int64, error)) {
		g.Go(func() error {
			v, err := fn()
			if err != nil {
				slog.Warn("analytics aggregate failed", "aggregate", name, "error", err)
				return nil
			}
			*dst = v
			return nil
		})
	}
	list := func(name string, dst *[]store.LabelCount, fn func(context.Context, store.PageViewAggregateParams) ([]store.LabelCount, error), p store.PageViewAggregateParams) {
		g.Go(func() error {
			v, err := fn(ctx, p)
			if err != nil {
				slog.Warn("analytics aggregate failed", "aggregate", name, "error", err)
				return nil
			}
			*dst = v
			return nil
		})
	}

	count("views", &s.Views, func() (int64, error) { return r.queries.CountPageViewsSince(ctx, since) })
	count("visitors", &s.Visitors, func() (int64, error) { return r.queries.CountUniqueVisitorsSince(ctx, since) })
	count("leads", &s.Leads, func() (int64, error) { return r.queries.CountLeadsSince(ctx, since) })
	count("subscribers", &s.Subscribers, func() (int64, error) { return r.queries.CountActiveSubscribers(ctx) })
	list("top_pages", &s.TopPages, r.queries.TopPaths, agg)
	list("top_referrers", &s.TopReferrers, r.queries.TopReferrers, agg)
	list("devices", &s.Devices, r.queries.DeviceBreakdown, agg)
	list("countries", &s.Countries, r.queries.CountryBreakdown, agg)
	list("daily", &s.Daily, r.queries.DailyViews, store.PageViewAggregateParams{Since: since, Limit: int64(days) + 1})

	_ = g.Wait()
	return s
}
