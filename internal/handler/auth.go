// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/olegiv/sitecms-go/internal/auth"
	"github.com/olegiv/sitecms-go/internal/middleware"
	"github.com/olegiv/sitecms-go/internal/model"
	"github.com/olegiv/sitecms-go/internal/service"
	"github.com/olegiv/sitecms-go/internal/util"
)

// AuthHandler handles login, logout and session introspection.
type AuthHandler struct {
	creds        *service.CredentialStore
	codec        *auth.TokenCodec
	protection   *middleware.LoginProtection
	events       *service.EventService
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(creds *service.CredentialStore, codec *auth.TokenCodec, protection *middleware.LoginProtection, events *service.EventService, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		creds:        creds,
		codec:        codec,
		protection:   protection,
		events:       events,
		secureCookie: secureCookie,
	}
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

func (req loginRequest) identifier() string {
	switch {
	case req.Identifier != "":
		return req.Identifier
	case req.Username != "":
		return req.Username
	default:
		return req.Email
	}
}

func sessionUser(id auth.Identity) map[string]any {
	return map[string]any{
		"id":          id.UserID,
		"username":    id.Username,
		"displayName": id.DisplayName,
		"role":        id.Role,
	}
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	identifier := service.NormalizeIdentifier(req.identifier())
	if identifier == "" || req.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "identifier and password are required")
		return
	}

	ctx := r.Context()
	ip := util.ClientIP(r)

	if locked := h.protection.LockedFor(ctx, identifier); locked > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(locked.Seconds()))))
		writeJSONError(w, http.StatusTooManyRequests, "Too many failed attempts")
		return
	}

	user, err := h.creds.Authenticate(ctx, identifier, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		lockout := h.protection.RecordFailedAttempt(ctx, identifier, ip)
		_ = h.events.LogAuthEvent(ctx, model.EventLevelWarning, "Login failed", nil, ip, r.URL.Path,
			map[string]any{"identifier": identifier})
		if lockout > 0 {
			_ = h.events.LogSecurityEvent(ctx, model.EventLevelWarning, "Account locked", nil, ip, r.URL.Path,
				map[string]any{"identifier": identifier, "lockout": lockout.String()})
		}
		writeJSONError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		logAndInternalError(w, "login lookup failed", "error", err)
		return
	}

	h.protection.RecordSuccessfulLogin(ctx, identifier)
	h.creds.TouchLastLogin(ctx, user.ID)

	token, claims, err := h.codec.Issue(auth.Identity{
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Role:        user.Role,
	})
	if err != nil {
		logAndInternalError(w, "issuing session token failed", "error", err, "user_id", user.ID)
		return
	}
	auth.SetSessionCookie(w, token, h.codec.TTL(), h.secureCookie)

	userID := user.ID
	_ = h.events.LogAuthEvent(ctx, model.EventLevelInfo, "Login successful", &userID, ip, r.URL.Path,
		map[string]any{"username": user.Username})

	writeJSON(w, http.StatusOK, map[string]any{
		"user":      sessionUser(claims.Identity),
		"expiresAt": claims.Expires().UTC().Format(time.RFC3339),
	})
}

// Logout handles POST /api/logout. Sessions are stateless, so clearing the
// cookie is all there is to do.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := middleware.SessionFromContext(r.Context()); ok {
		userID := claims.UserID
		_ = h.events.LogAuthEvent(r.Context(), model.EventLevelInfo, "Logout", &userID, util.ClientIP(r), r.URL.Path, nil)
	}
	auth.ClearSessionCookie(w, h.secureCookie)
	writeJSON(w, http.StatusOK, nil)
}

// Session handles GET /api/session. It never fails on a missing session.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          sessionUser(claims.Identity),
		"expiresAt":     claims.Expires().UTC().Format(time.RFC3339),
	})
}
