// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for the site CMS API.
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/olegiv/sitecms-go/internal/auth"
	"github.com/olegiv/sitecms-go/internal/model"
)

// ContextKey is a type for context keys used by this package.
type ContextKey string

// ContextKeySession is the context key for the verified session claims.
const ContextKeySession ContextKey = "session"

// Error messages shared by the guards below.
const (
	MsgUnauthorized    = "Unauthorized"
	MsgForbidden       = "Forbidden"
	MsgTooManyRequests = "Too many requests"
)

// WithSession returns a copy of ctx carrying claims.
func WithSession(ctx context.Context, claims auth.SessionClaims) context.Context {
	return context.WithValue(ctx, ContextKeySession, claims)
}

// SessionFromContext retrieves the verified session, if any.
func SessionFromContext(ctx context.Context) (auth.SessionClaims, bool) {
	claims, ok := ctx.Value(ContextKeySession).(auth.SessionClaims)
	return claims, ok
}

// LoadSession verifies the session cookie and stores its claims in the
// request context. A missing or invalid cookie is not an error here.
func LoadSession(codec *auth.TokenCodec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := codec.Verify(token)
			if err != nil {
				slog.Debug("session cookie rejected", "error", err, "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), claims)))
		})
	}
}

// RequireSession answers 401 unless LoadSession found a valid session.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, MsgUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole answers 401 without a session and 403 when the session role
// ranks below minRole.
func RequireRole(minRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := SessionFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, MsgUnauthorized)
				return
			}
			if !model.RoleAtLeast(claims.Role, minRole) {
				slog.Warn("access denied",
					"category", model.EventCategorySecurity,
					"user_id", claims.UserID,
					"role", claims.Role,
					"required", minRole,
					"path", r.URL.Path,
				)
				writeError(w, http.StatusForbidden, MsgForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": msg})
}
