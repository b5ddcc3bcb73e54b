// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package analytics records anonymous page views and summarises them for
// the admin dashboard.
package analytics

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mileusna/useragent"

	"github.com/olegiv/sitecms-go/internal/geoip"
	"github.com/olegiv/sitecms-go/internal/store"
)

// MaxPathLength bounds a tracked path.
const MaxPathLength = 512

// Device types.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
)

// ErrInvalidPath is returned for paths that are not site-relative.
var ErrInvalidPath = errors.New("path must start with /")

// Hit is one beacon request.
type Hit struct {
	Path      string
	Referrer  string
	IP        string
	UserAgent string
}

// Tracker stores page views. Visitors are identified only by a hash that
// changes every day.
type Tracker struct {
	queries *store.Queries
	geo     *geoip.Lookup
	salt    string
	now     func() time.Time
}

// NewTracker creates a Tracker. geo may be nil.
func NewTracker(db *sql.DB, geo *geoip.Lookup, salt string) *Tracker {
	return &Tracker{
		queries: store.New(db),
		geo:     geo,
		salt:    salt,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Track records hit. Bots are skipped and reported with recorded=false.
func (t *Tracker) Track(ctx context.Context, hit Hit) (recorded bool, err error) {
	path, err := NormalizePath(hit.Path)
	if err != nil {
		return false, err
	}

	ua := parseUserAgent(hit.UserAgent)
	if ua.DeviceType == DeviceBot {
		return false, nil
	}

	now := t.now()
	if err := t.queries.CreatePageView(ctx, store.CreatePageViewParams{
		Path:           path,
		ReferrerDomain: ReferrerDomain(hit.Referrer),
		VisitorHash:    VisitorHash(t.salt, now, hit.IP, hit.UserAgent),
		DeviceType:     ua.DeviceType,
		Browser:        ua.Browser,
		Os:             ua.OS,
		CountryCode:    t.geo.Country(hit.IP),
		CreatedAt:      now,
	}); err != nil {
		return false, fmt.Errorf("recording page view: %w", err)
	}
	return true, nil
}

// NormalizePath drops the query and fragment of a site-relative path.
func NormalizePath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
		return "", ErrInvalidPath
	}
	if len(p) > MaxPathLength {
		p = p[:MaxPathLength]
	}
	return p, nil
}

// VisitorHash derives a visitor id that rotates at midnight UTC, so
// visitors cannot be followed across days.
func VisitorHash(salt string, day time.Time, ip, userAgent string) string {
	h := sha256.New()
	for _, part := range []string{salt, day.UTC().Format("2006-01-02"), ip, userAgent} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ReferrerDomain returns the host of a referrer URL without its port.
func ReferrerDomain(referrer string) string {
	if referrer == "" {
		return ""
	}
	u, err := url.Parse(referrer)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
}

type parsedUA struct {
	Browser    string
	OS         string
	DeviceType string
}

func parseUserAgent(s string) parsedUA {
	ua := useragent.Parse(s)

	res := parsedUA{Browser: ua.Name, OS: ua.OS}
	if res.Browser == "" {
		res.Browser = "Unknown"
	}
	if res.OS == "" {
		res.OS = "Unknown"
	}

	switch {
	case ua.Bot:
		res.DeviceType = DeviceBot
	case ua.Tablet:
		res.DeviceType = DeviceTablet
	case ua.Mobile:
		res.DeviceType = DeviceMobile
	default:
		res.DeviceType = DeviceDesktop
	}
	return res
}
