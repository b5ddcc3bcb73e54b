// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"filippo.io/csrf/gorilla"

	"github.com/olegiv/sitecms-go/internal/model"
)

// CSRFConfig holds configuration for cross-origin request protection.
// filippo.io/csrf/gorilla checks Fetch metadata headers, so there is no
// token cookie to configure.
type CSRFConfig struct {
	// AuthKey is kept for API compatibility with gorilla/csrf.
	AuthKey []byte

	// ErrorHandler is called when validation fails.
	ErrorHandler http.Handler

	// TrustedOrigins lists host[:port] values allowed to make cross-origin
	// requests, such as a separately hosted admin SPA.
	TrustedOrigins []string
}

// DefaultCSRFConfig returns a CSRFConfig trusting the given origins. In
// development the Vite dev server origins are trusted as well.
func DefaultCSRFConfig(authKey []byte, trusted []string, isDev bool) CSRFConfig {
	cfg := CSRFConfig{AuthKey: authKey}
	for _, origin := range trusted {
		if host := originHost(origin); host != "" {
			cfg.TrustedOrigins = append(cfg.TrustedOrigins, host)
		}
	}
	if isDev {
		cfg.TrustedOrigins = append(cfg.TrustedOrigins,
			"localhost:5173",
			"127.0.0.1:5173",
		)
	}
	return cfg
}

// originHost reduces "https://example.com:8443/" to "example.com:8443".
// The csrf library expects host-only values.
func originHost(origin string) string {
	origin = strings.TrimSpace(origin)
	if i := strings.Index(origin, "://"); i >= 0 {
		origin = origin[i+3:]
	}
	return strings.TrimRight(origin, "/")
}

// CSRF returns a middleware that rejects cross-origin unsafe requests.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	var opts []csrf.Option

	if cfg.ErrorHandler != nil {
		opts = append(opts, csrf.ErrorHandler(cfg.ErrorHandler))
	} else {
		opts = append(opts, csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler)))
	}

	if len(cfg.TrustedOrigins) > 0 {
		opts = append(opts, csrf.TrustedOrigins(cfg.TrustedOrigins))
	}

	return csrf.Protect(cfg.AuthKey, opts...)
}

func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	reasonStr := "unknown"
	if reason := csrf.FailureReason(r); reason != nil {
		reasonStr = reason.Error()
	}
	slog.Warn("CSRF validation failed",
		"category", model.EventCategorySecurity,
		"reason", reasonStr,
		"method", r.Method,
		"path", r.URL.Path,
		"origin", r.Header.Get("Origin"),
		"sec_fetch_site", r.Header.Get("Sec-Fetch-Site"),
	)
	writeError(w, http.StatusForbidden, MsgForbidden)
}

// SkipCSRF marks requests to the given paths as exempt. It must run before CSRF.
// Public beacon and form endpoints carry no session and are posted cross-site.
func SkipCSRF(paths ...string) func(http.Handler) http.Handler {
	skipPaths := make(map[string]bool, len(paths))
	for _, p := range paths {
		skipPaths[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipPaths[r.URL.Path] {
				r = csrf.UnsafeSkipCheck(r)
			}
			next.ServeHTTP(w, r)
		})
	}
}
