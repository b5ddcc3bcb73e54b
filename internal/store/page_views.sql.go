package store

import (
	"context"
	"time"
)

const createPageView = `-- name: CreatePageView :exec
INSERT INTO page_views (path, referrer_domain, visitor_hash, device_type, browser, os, country_code, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

type CreatePageViewParams struct {
	Path           string    `json:"path"`
	ReferrerDomain string    `json:"referrer_domain"`
	VisitorHash    string    `json:"visitor_hash"`
	DeviceType     string    `json:"device_type"`
	Browser        string    `json:"browser"`
	Os             string    `json:"os"`
	CountryCode    string    `json:"country_code"`
	CreatedAt      time.Time `json:"created_at"`
}

func (q *Queries) CreatePageView(ctx context.Context, arg CreatePageViewParams) error {
	_, err := q.db.ExecContext(ctx, createPageView,
		arg.Path,
		arg.ReferrerDomain,
		arg.VisitorHash,
		arg.DeviceType,
		arg.Browser,
		arg.Os,
		arg.CountryCode,
		arg.CreatedAt,
	)
	return err
}

const countPageViewsSince = `-- name: CountPageViewsSince :one
SELECT COUNT(*) FROM page_views WHERE created_at >= ?
`

func (q *Queries) CountPageViewsSince(ctx context.Context, since time.Time) (int64, error) {
	row := q.db.QueryRowContext(ctx, countPageViewsSince, since)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countUniqueVisitorsSince = `-- name: CountUniqueVisitorsSince :one
SELECT COUNT(DISTINCT visitor_hash) FROM page_views WHERE created_at >= ?
`

func (q *Queries) CountUniqueVisitorsSince(ctx context.Context, since time.Time) (int64, error) {
	row := q.db.QueryRowContext(ctx, countUniqueVisitorsSince, since)
	var count int64
	err := row.Scan(&count)
	return count, err
}

// LabelCount is one row of a grouped count.
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

func (q *Queries) listLabelCounts(ctx context.Context, query string, args ...interface{}) ([]LabelCount, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := []LabelCount{}
	for rows.Next() {
		var i LabelCount
		if err := rows.Scan(&i.Label, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type PageViewAggregateParams struct {
	Since time.Time `json:"since"`
	Limit int64     `json:"limit"`
}

const topPaths = `-- name: TopPaths :many
SELECT path, COUNT(*) AS views FROM page_views
WHERE created_at >= ?
GROUP BY path ORDER BY views DESC, path LIMIT ?
`

func (q *Queries) TopPaths(ctx context.Context, arg PageViewAggregateParams) ([]LabelCount, error) {
	return q.listLabelCounts(ctx, topPaths, arg.Since, arg.Limit)
}

const topReferrers = `-- name: TopReferrers :many
SELECT referrer_domain, COUNT(*) AS views FROM page_views
WHERE created_at >= ? AND referrer_domain != ''
GROUP BY referrer_domain ORDER BY views DESC, referrer_domain LIMIT ?
`

func (q *Queries) TopReferrers(ctx context.Context, arg PageViewAggregateParams) ([]LabelCount, error) {
	return q.listLabelCounts(ctx, topReferrers, arg.Since, arg.Limit)
}

const deviceBreakdown = `-- name: DeviceBreakdown :many
SELECT device_type, COUNT(*) AS views FROM page_views
WHERE created_at >= ?
GROUP BY device_type ORDER BY views DESC, device_type LIMIT ?
`

func (q *Queries) DeviceBreakdown(ctx context.Context, arg PageViewAggregateParams) ([]LabelCount, error) {
	return q.listLabelCounts(ctx, deviceBreakdown, arg.Since, arg.Limit)
}

const countryBreakdown = `-- name: CountryBreakdown :many
SELECT country_code, COUNT(*) AS views FROM page_views
WHERE created_at >= ? AND country_code != ''
GROUP BY country_code ORDER BY views DESC, country_code LIMIT ?
`

func (q *Queries) CountryBreakdown(ctx context.Context, arg PageViewAggregateParams) ([]LabelCount, error) {
	return q.listLabelCounts(ctx, countryBreakdown, arg.Since, arg.Limit)
}

const dailyViews = `-- name: DailyViews :many
SELECT substr(created_at, 1, 10) AS day, COUNT(*) AS views FROM page_views
WHERE created_at >= ?
GROUP BY day ORDER BY day LIMIT ?
`

func (q *Queries) DailyViews(ctx context.Context, arg PageViewAggregateParams) ([]LabelCount, error) {
	return q.listLabelCounts(ctx, dailyViews, arg.Since, arg.Limit)
}
