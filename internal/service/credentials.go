// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/sjson"

	"github.com/olegiv/sitecms-go/internal/auth"
	"github.com/olegiv/sitecms-go/internal/cms"
	"github.com/olegiv/sitecms-go/internal/model"
	"github.com/olegiv/sitecms-go/internal/store"
	"github.com/olegiv/sitecms-go/internal/util"
)

// Credential errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("username or email already in use")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidUsername    = errors.New("username is required")
)

// MinPasswordLength is the shortest password accepted for new admin users.
const MinPasswordLength = 8

// BootstrapAdmin is the identity created when no active admin exists.
type BootstrapAdmin struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// CredentialStore owns admin identities and password verification.
type CredentialStore struct {
	db        *sql.DB
	queries   *store.Queries
	bootstrap BootstrapAdmin
	now       func() time.Time
}

// NewCredentialStore creates a CredentialStore.
func NewCredentialStore(db *sql.DB, bootstrap BootstrapAdmin) *CredentialStore {
	return &CredentialStore{
		db:        db,
		queries:   store.New(db),
		bootstrap: bootstrap,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// NormalizeIdentifier trims and lowercases a username or email.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// EnsureBootstrapAdmin creates the bootstrap SUPERADMIN when there are no
// active admin users. It is a no-op otherwise and safe to call concurrently.
func (s *CredentialStore) EnsureBootstrapAdmin(ctx context.Context) (bool, error) {
	count, err := s.queries.CountActiveAdminUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("counting admin users: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	hash, err := auth.HashPassword(s.bootstrap.Password)
	if err != nil {
		return false, fmt.Errorf("hashing password: %w", err)
	}

	now := s.now()
	params := store.CreateAdminUserParams{
		Username:     NormalizeIdentifier(s.bootstrap.Username),
		DisplayName:  s.bootstrap.DisplayName,
		Role:         model.RoleSuperAdmin,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if email := NormalizeIdentifier(s.bootstrap.Email); email != "" {
		params.Email = sql.NullString{String: email, Valid: true}
	}

	// The unique username guards against a concurrent bootstrap.
	inserted, err := s.queries.InsertAdminUserIfAbsent(ctx, params)
	if err != nil {
		return false, fmt.Errorf("creating bootstrap admin: %w", err)
	}
	if inserted == 0 {
		slog.Info("bootstrap admin already present", "username", params.Username)
		return false, nil
	}

	slog.Info("created bootstrap admin user", "username", params.Username, "role", params.Role)
	return true, nil
}

// Authenticate verifies an identifier/password pair against active users.
// Legacy hashes are upgraded in place after a successful match.
func (s *CredentialStore) Authenticate(ctx context.Context, identifier, password string) (store.AdminUser, error) {
	id := NormalizeIdentifier(identifier)
	if id == "" || password == "" {
		return store.AdminUser{}, ErrInvalidCredentials
	}

	user, err := s.queries.GetActiveAdminUserByIdentifier(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.AdminUser{}, ErrInvalidCredentials
	}
	if err != nil {
		return store.AdminUser{}, fmt.Errorf("looking up admin user: %w", err)
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		return store.AdminUser{}, ErrInvalidCredentials
	}

	if auth.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.ID, password)
	}
	return user, nil
}

func (s *CredentialStore) rehash(ctx context.Context, userID int64, password string) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		slog.Error("failed to rehash password", "error", err, "user_id", userID)
		return
	}
	if err := s.queries.UpdateAdminUserPassword(ctx, store.UpdateAdminUserPasswordParams{
		PasswordHash: hash,
		UpdatedAt:    s.now(),
		ID:           userID,
	}); err != nil {
		slog.Error("failed to store rehashed password", "error", err, "user_id", userID)
		return
	}
	slog.Info("password hash upgraded", "user_id", userID)
}

// TouchLastLogin records a successful login. Failures are logged, not returned,
// so they never block issuing a session.
func (s *CredentialStore) TouchLastLogin(ctx context.Context, userID int64) {
	now := s.now()
	if err := s.queries.UpdateAdminUserLastLogin(ctx, store.UpdateAdminUserLastLoginParams{
		LastLoginAt: sql.NullTime{Time: now, Valid: true},
		UpdatedAt:   now,
		ID:          userID,
	}); err != nil {
		slog.Error("failed to update last login", "error", err, "user_id", userID)
	}
}

// NewAdminUser holds the fields for CreateUser.
type NewAdminUser struct {
	Username    string
	Email       string
	DisplayName string
	Role        string
	Password    string
	// CreatedBy is recorded in the USER_CREATE audit row.
	CreatedBy cms.Actor
}

// CreateUser adds an active admin user and audits the creation.
func (s *CredentialStore) CreateUser(ctx context.Context, in NewAdminUser) (store.AdminUser, error) {
	username := NormalizeIdentifier(in.Username)
	if username == "" {
		return store.AdminUser{}, ErrInvalidUsername
	}
	if !model.ValidRole(in.Role) {
		return store.AdminUser{}, ErrInvalidRole
	}
	if len(in.Password) < MinPasswordLength {
		return store.AdminUser{}, ErrWeakPassword
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return store.AdminUser{}, fmt.Errorf("hashing password: %w", err)
	}

	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = username
	}

	now := s.now()
	params := store.CreateAdminUserParams{
		Username:     username,
		DisplayName:  displayName,
		Role:         in.Role,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if email := NormalizeIdentifier(in.Email); email != "" {
		params.Email = sql.NullString{String: email, Valid: true}
	}

	var user store.AdminUser
	err = store.ExecTx(ctx, s.db, func(q *store.Queries) error {
		inserted, err := q.InsertAdminUserIfAbsent(ctx, params)
		if err != nil {
			return fmt.Errorf("creating admin user: %w", err)
		}
		if inserted == 0 {
			return ErrUserExists
		}
		user, err = q.GetActiveAdminUserByIdentifier(ctx, username)
		if err != nil {
			return fmt.Errorf("loading created user: %w", err)
		}

		meta, _ := sjson.Set(`{}`, "username", user.Username)
		meta, _ = sjson.Set(meta, "role", user.Role)
		_, err = q.CreateAuditLog(ctx, store.CreateAuditLogParams{
			ActorUserID:   util.NullInt64FromID(in.CreatedBy.UserID),
			ActorUsername: in.CreatedBy.Username,
			ActorRole:     in.CreatedBy.Role,
			Action:        model.AuditUserCreate,
			Resource:      model.ResourceAdminUser,
			ResourceID:    strconv.FormatInt(user.ID, 10),
			Metadata:      meta,
			CreatedAt:     now,
		})
		return err
	})
	if err != nil {
		return store.AdminUser{}, err
	}
	return user, nil
}

// ListUsers returns every admin user.
func (s *CredentialStore) ListUsers(ctx context.Context) ([]store.AdminUser, error) {
	return s.queries.ListAdminUsers(ctx)
}
