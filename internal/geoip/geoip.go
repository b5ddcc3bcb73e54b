// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package geoip maps visitor IPs to ISO country codes with a MaxMind
// country database.
package geoip

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/oschwald/maxminddb-golang"

	"github.com/olegiv/sitecms-go/internal/util"
)

// CountryLocal is reported for loopback and private addresses.
const CountryLocal = "LOCAL"

// Lookup resolves countries. A nil or disabled Lookup reports no country
// for public addresses, so analytics keep working without a database.
type Lookup struct {
	mu      sync.RWMutex
	db      *maxminddb.Reader
	path    string
	modTime time.Time
}

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// Open loads the database at path. An empty path returns a disabled Lookup.
func Open(path string) (*Lookup, error) {
	g := &Lookup{path: path}
	if path == "" {
		return g, nil
	}
	if err := g.load(); err != nil {
		return g, err
	}
	return g, nil
}

// load opens the database unless the file is unchanged. Caller holds mu or
// owns g exclusively.
func (g *Lookup) load() error {
	info, err := os.Stat(g.path)
	if err != nil {
		return fmt.Errorf("geoip database: %w", err)
	}
	if g.db != nil && info.ModTime().Equal(g.modTime) {
		return nil
	}

	db, err := maxminddb.Open(g.path)
	if err != nil {
		return fmt.Errorf("opening geoip database: %w", err)
	}
	if g.db != nil {
		_ = g.db.Close()
	}
	g.db = db
	g.modTime = info.ModTime()
	return nil
}

// Reload reopens the database if the file changed on disk.
func (g *Lookup) Reload() error {
	if g == nil || g.path == "" {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.load()
}

// Enabled reports whether a database is loaded.
func (g *Lookup) Enabled() bool {
	if g == nil {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.db != nil
}

// Country returns the ISO code for ip, CountryLocal for private and
// loopback addresses, or "" when unknown.
func (g *Lookup) Country(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}
	if parsed.IsLoopback() || util.IsPrivateIP(parsed) {
		return CountryLocal
	}
	if g == nil {
		return ""
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.db == nil {
		return ""
	}

	var rec countryRecord
	if err := g.db.Lookup(parsed, &rec); err != nil {
		return ""
	}
	return rec.Country.ISOCode
}

// Close releases the database.
func (g *Lookup) Close() error {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.db == nil {
		return nil
	}
	err := g.db.Close()
	g.db = nil
	return err
}
