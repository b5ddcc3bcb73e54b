// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/olegiv/sitecms-go/internal/model"
	"github.com/olegiv/sitecms-go/internal/service"
	"github.com/olegiv/sitecms-go/internal/store"
	"github.com/olegiv/sitecms-go/internal/util"
)

// UsersHandler lists and creates admin users.
type UsersHandler struct {
	creds  *service.CredentialStore
	events *service.EventService
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(creds *service.CredentialStore, events *service.EventService) *UsersHandler {
	return &UsersHandler{creds: creds, events: events}
}

type userView struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email,omitempty"`
	DisplayName string     `json:"displayName"`
	Role        string     `json:"role"`
	Active      bool       `json:"active"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func newUserView(u store.AdminUser) userView {
	v := userView{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email.String,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		Active:      u.Active,
		CreatedAt:   u.CreatedAt,
	}
	if u.LastLoginAt.Valid {
		t := u.LastLoginAt.Time
		v.LastLoginAt = &t
	}
	return v
}

// List handles GET /api/admin/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.creds.ListUsers(r.Context())
	if err != nil {
		logAndInternalError(w, "users list failed", "error", err)
		return
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, newUserView(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

type createUserRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	Password    string `json:"password"`
}

// Create handles POST /api/admin/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	actor, _ := actorFromRequest(r)
	user, err := h.creds.CreateUser(r.Context(), service.NewAdminUser{
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Role:        req.Role,
		Password:    req.Password,
		CreatedBy:   actor,
	})
	switch {
	case errors.Is(err, service.ErrUserExists):
		writeJSONError(w, http.StatusConflict, "User already exists")
		return
	case errors.Is(err, service.ErrInvalidUsername),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrWeakPassword):
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		logAndInternalError(w, "user create failed", "error", err)
		return
	}

	_ = h.events.LogUserEvent(r.Context(), model.EventLevelInfo, "Admin user created", userIDPtr(r),
		util.ClientIP(r), r.URL.Path, map[string]any{"username": user.Username, "role": user.Role})

	writeJSON(w, http.StatusCreated, map[string]any{"user": newUserView(user)})
}
