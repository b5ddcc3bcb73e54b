// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/sitecms-go/internal/auth"
	"github.com/olegiv/sitecms-go/internal/cms"
	"github.com/olegiv/sitecms-go/internal/model"
	"github.com/olegiv/sitecms-go/internal/store"
	"github.com/olegiv/sitecms-go/internal/testutil"
)

func defaultBootstrap() BootstrapAdmin {
	return BootstrapAdmin{Username: "Admin", Email: "Admin@Example.com", Password: "admin123", DisplayName: "Administrator"}
}

func TestEnsureBootstrapAdmin_CreatesOnce(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := NewCredentialStore(db, defaultBootstrap())

	created, err := s.EnsureBootstrapAdmin(ctx)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.EnsureBootstrapAdmin(ctx)
	require.NoError(t, err)
	assert.False(t, created)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "admin", users[0].Username)
	assert.Equal(t, "admin@example.com", users[0].Email.String)
	assert.Equal(t, model.RoleSuperAdmin, users[0].Role)
	assert.True(t, strings.HasPrefix(users[0].PasswordHash, "scrypt$"))
}

func TestEnsureBootstrapAdmin_NoopWhenUserExists(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	testutil.CreateAdmin(t, db, "someone", model.RoleEditor, "password1")

	s := NewCredentialStore(db, defaultBootstrap())
	created, err := s.EnsureBootstrapAdmin(context.Background())
	require.NoError(t, err)
	assert.False(t, created)

	users, err := s.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestEnsureBootstrapAdmin_Concurrent(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	s := NewCredentialStore(db, defaultBootstrap())

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.EnsureBootstrapAdmin(context.Background()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("EnsureBootstrapAdmin: %v", err)
	}

	count, err := store.New(db).CountActiveAdminUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAuthenticate(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := NewCredentialStore(db, defaultBootstrap())
	_, err := s.EnsureBootstrapAdmin(ctx)
	require.NoError(t, err)

	tests := []struct {
		name       string
		identifier string
		password   string
		wantErr    error
	}{
		{"username", "admin", "admin123", nil},
		{"username mixed case and spaces", "  ADMIN ", "admin123", nil},
		{"email", "admin@example.com", "admin123", nil},
		{"email mixed case", "Admin@EXAMPLE.com", "admin123", nil},
		{"wrong password", "admin", "admin124", ErrInvalidCredentials},
		{"unknown user", "root", "admin123", ErrInvalidCredentials},
		{"empty identifier", "", "admin123", ErrInvalidCredentials},
		{"empty password", "admin", "", ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := s.Authenticate(ctx, tt.identifier, tt.password)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "error = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "admin", user.Username)
		})
	}
}

func TestAuthenticate_UpgradesLegacyHash(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	ctx := context.Background()
	q := store.New(db)
	now := time.Now().UTC()
	user, err := q.CreateAdminUser(ctx, store.CreateAdminUserParams{
		Username:     "legacy",
		DisplayName:  "Legacy",
		Role:         model.RoleAdmin,
		PasswordHash: "$argon2id$v=19$m=65536,t=1,p=4$mucMvOaS6lZ2LWNS1OEFKw$UYEWv8cvCOO6l2zGeqv3JPVe1nyy0x9GXBfYEuDM544",
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)

	s := NewCredentialStore(db, defaultBootstrap())
	_, err = s.Authenticate(ctx, "legacy", "changeme")
	require.NoError(t, err)

	updated, err := q.GetAdminUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, auth.NeedsRehash(updated.PasswordHash))
	assert.True(t, auth.VerifyPassword("changeme", updated.PasswordHash))
}

func TestTouchLastLogin(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	user := testutil.CreateAdmin(t, db, "editor", model.RoleEditor, "password1")
	s := NewCredentialStore(db, defaultBootstrap())
	s.TouchLastLogin(context.Background(), user.ID)

	found, err := store.New(db).GetAdminUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, found.LastLoginAt.Valid)
}

func TestCreateUser(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := NewCredentialStore(db, defaultBootstrap())

	user, err := s.CreateUser(ctx, NewAdminUser{Username: " Writer ", Email: "W@Example.com", Role: model.RoleEditor, Password: "longenough"})
	require.NoError(t, err)
	assert.Equal(t, "writer", user.Username)
	assert.Equal(t, "w@example.com", user.Email.String)
	assert.Equal(t, "writer", user.DisplayName)

	_, err = s.CreateUser(ctx, NewAdminUser{Username: "writer", Role: model.RoleEditor, Password: "longenough"})
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = s.CreateUser(ctx, NewAdminUser{Username: "x", Role: "OWNER", Password: "longenough"})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = s.CreateUser(ctx, NewAdminUser{Username: "x", Role: model.RoleEditor, Password: "short"})
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = s.CreateUser(ctx, NewAdminUser{Username: "  ", Role: model.RoleEditor, Password: "longenough"})
	assert.ErrorIs(t, err, ErrInvalidUsername)
}

func TestCreateUser_Audited(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := NewCredentialStore(db, defaultBootstrap())

	actor := cms.Actor{Username: "root", Role: model.RoleSuperAdmin}
	user, err := s.CreateUser(ctx, NewAdminUser{Username: "analyst", Role: model.RoleAnalyst, Password: "longenough", CreatedBy: actor})
	require.NoError(t, err)

	logs, err := store.New(db).ListAuditLogs(ctx, store.ListAuditLogsParams{
		Resource:   model.ResourceAdminUser,
		ResourceID: strconv.FormatInt(user.ID, 10),
		Limit:      10,
	})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.AuditUserCreate, logs[0].Action)
	assert.Equal(t, "root", logs[0].ActorUsername)
	assert.False(t, logs[0].ActorUserID.Valid)
	assert.NotContains(t, logs[0].Metadata, "longenough")

	// A rejected duplicate leaves no audit row behind.
	_, err = s.CreateUser(ctx, NewAdminUser{Username: "analyst", Role: model.RoleAnalyst, Password: "longenough", CreatedBy: actor})
	require.ErrorIs(t, err, ErrUserExists)
	count, err := store.New(db).CountAuditLogs(ctx, store.CountAuditLogsParams{
		Resource:   model.ResourceAdminUser,
		ResourceID: strconv.FormatInt(user.ID, 10),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
