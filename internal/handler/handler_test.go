// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/olegiv/sitecms-go/internal/analytics"
	"github.com/olegiv/sitecms-go/internal/auth"
	"github.com/olegiv/sitecms-go/internal/campaign"
	"github.com/olegiv/sitecms-go/internal/cms"
	"github.com/olegiv/sitecms-go/internal/config"
	"github.com/olegiv/sitecms-go/internal/integrations"
	"github.com/olegiv/sitecms-go/internal/middleware"
	"github.com/olegiv/sitecms-go/internal/model"
	"github.com/olegiv/sitecms-go/internal/service"
	"github.com/olegiv/sitecms-go/internal/testutil"
	"github.com/olegiv/sitecms-go/internal/version"
)

const testPassword = "correct-horse-battery"

type testEnv struct {
	t        *testing.T
	db       *sql.DB
	deps     Deps
	handlers *Handlers
	router   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	cfg := &config.Config{
		Env:            "test",
		SessionKey:     "handler-test-session-secret-0123456789",
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		AdminUsername:  "admin",
		AdminPassword:  config.DefaultAdminPassword,
	}
	secret, _ := cfg.SessionSecret()
	codec, err := auth.NewTokenCodec(auth.TokenCodecConfig{Secret: []byte(secret), TTL: time.Hour})
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}

	protection := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit: 1000,
		IPBurst:     1000,
		Lockout:     middleware.DefaultLockoutPolicy(),
	}, middleware.NewMemoryAttemptStore(middleware.DefaultLockoutPolicy()))

	deps := Deps{
		DB:      db,
		Config:  cfg,
		Version: version.Info{Version: "v1.2.3"},
		Codec:   codec,
		Credentials: service.NewCredentialStore(db, service.BootstrapAdmin{
			Username:    cfg.AdminUsername,
			Password:    cfg.AdminPassword,
			DisplayName: "Administrator",
		}),
		Events:       service.NewEventService(db),
		Leads:        service.NewLeadService(db),
		Documents:    cms.NewStore(db, cms.Main),
		Landings:     cms.NewStore(db, cms.LandingsKind),
		Integrations: integrations.NewService(db, integrations.Environment{}),
		Campaigns:    campaign.NewService(db),
		Tracker:      analytics.NewTracker(db, nil, "test-salt"),
		Reporter:     analytics.NewReporter(db),
		Protection:   protection,
	}

	env := &testEnv{t: t, db: db, deps: deps, handlers: NewHandlers(deps)}
	env.router = env.handlers.Routes(deps)
	return env
}

// login creates a user with role and returns a cookie for it.
func (e *testEnv) login(username, role string) *http.Cookie {
	e.t.Helper()
	user := testutil.CreateAdmin(e.t, e.db, username, role, testPassword)
	token, _, err := e.deps.Codec.Issue(auth.Identity{
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Role:        user.Role,
	})
	if err != nil {
		e.t.Fatalf("Issue: %v", err)
	}
	return &http.Cookie{Name: auth.SessionCookieName, Value: token}
}

func (e *testEnv) do(method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			e.t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, want, rec.Body.String())
	}
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.deps.Credentials.EnsureBootstrapAdmin(context.Background())
	if err != nil || !created {
		t.Fatalf("EnsureBootstrapAdmin = %v, %v", created, err)
	}

	rec := env.do(http.MethodPost, "/api/login", map[string]string{
		"identifier": "Admin",
		"password":   config.DefaultAdminPassword,
	}, nil)
	expectStatus(t, rec, http.StatusOK)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" {
		t.Fatal("login did not set the session cookie")
	}
	body := decodeBody(t, rec)
	user := body["user"].(map[string]any)
	if user["role"] != model.RoleSuperAdmin {
		t.Errorf("role = %v, want %s", user["role"], model.RoleSuperAdmin)
	}

	rec = env.do(http.MethodGet, "/api/session", nil, cookie)
	expectStatus(t, rec, http.StatusOK)
	body = decodeBody(t, rec)
	if body["authenticated"] != true {
		t.Errorf("authenticated = %v", body["authenticated"])
	}

	rec = env.do(http.MethodPost, "/api/logout", nil, cookie)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Header().Get("Set-Cookie"), "Max-Age=0") {
		t.Errorf("logout Set-Cookie = %q", rec.Header().Get("Set-Cookie"))
	}
}

func TestLogin_Rejections(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateAdmin(t, env.db, "editor", model.RoleEditor, testPassword)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"missing password", map[string]string{"identifier": "editor"}, http.StatusBadRequest},
		{"missing identifier", map[string]string{"password": testPassword}, http.StatusBadRequest},
		{"malformed", "{", http.StatusBadRequest},
		{"wrong password", map[string]string{"username": "editor", "password": "nope-nope"}, http.StatusUnauthorized},
		{"unknown user", map[string]string{"identifier": "ghost", "password": testPassword}, http.StatusUnauthorized},
		{"username alias", map[string]string{"username": "editor", "password": testPassword}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/api/login", tt.body, nil)
			expectStatus(t, rec, tt.want)
		})
	}
}

func TestLogin_Lockout(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateAdmin(t, env.db, "editor", model.RoleEditor, testPassword)

	bad := map[string]string{"identifier": "editor", "password": "wrong-password"}
	for i := 0; i < middleware.DefaultLockoutPolicy().MaxFailures; i++ {
		rec := env.do(http.MethodPost, "/api/login", bad, nil)
		expectStatus(t, rec, http.StatusUnauthorized)
	}

	// Locked even with the right password.
	rec := env.do(http.MethodPost, "/api/login", map[string]string{"identifier": "EDITOR", "password": testPassword}, nil)
	expectStatus(t, rec, http.StatusTooManyRequests)
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if got := decodeBody(t, rec)["error"]; got != "Too many failed attempts" {
		t.Errorf("error = %v", got)
	}
}

func TestRoleGuards(t *testing.T) {
	env := newTestEnv(t)
	analyst := env.login("ana", model.RoleAnalyst)
	editor := env.login("ed", model.RoleEditor)
	admin := env.login("adm", model.RoleAdmin)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		cookie *http.Cookie
		want   int
	}{
		{"leads without session", http.MethodGet, "/api/admin/leads", nil, nil, http.StatusUnauthorized},
		{"cms put without session", http.MethodPut, "/api/cms", map[string]any{}, nil, http.StatusUnauthorized},
		{"analyst reads leads", http.MethodGet, "/api/admin/leads", nil, analyst, http.StatusOK},
		{"analyst reads analytics", http.MethodGet, "/api/admin/analytics", nil, analyst, http.StatusOK},
		{"analyst writes cms", http.MethodPut, "/api/cms", map[string]any{}, analyst, http.StatusForbidden},
		{"analyst reads history", http.MethodGet, "/api/cms?history=1", nil, analyst, http.StatusForbidden},
		{"editor reads integrations", http.MethodGet, "/api/integrations", nil, editor, http.StatusForbidden},
		{"editor lists users", http.MethodGet, "/api/admin/users", nil, editor, http.StatusForbidden},
		{"editor lists campaigns", http.MethodGet, "/api/admin/campaigns", nil, editor, http.StatusOK},
		{"admin reads integrations", http.MethodGet, "/api/integrations", nil, admin, http.StatusOK},
		{"admin lists events", http.MethodGet, "/api/admin/events", nil, admin, http.StatusOK},
		{"admin creates user", http.MethodPost, "/api/admin/users", map[string]any{}, admin, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, tt.body, tt.cookie)
			expectStatus(t, rec, tt.want)
			if tt.want >= 400 {
				if body := decodeBody(t, rec); body["ok"] != false {
					t.Errorf("ok = %v in error response", body["ok"])
				}
			}
		})
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/nope", nil, nil)
	expectStatus(t, rec, http.StatusNotFound)
	if got := decodeBody(t, rec)["error"]; got != msgNotFound {
		t.Errorf("error = %v", got)
	}

	rec = env.do(http.MethodDelete, "/api/cms", nil, nil)
	expectStatus(t, rec, http.StatusMethodNotAllowed)
	if got := decodeBody(t, rec)["error"]; got != msgMethodNotAllowed {
		t.Errorf("error = %v", got)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/health", nil, nil)
	expectStatus(t, rec, http.StatusOK)
	body := decodeBody(t, rec)
	if body["status"] != "ok" || body["version"] != "v1.2.3" {
		t.Errorf("body = %v", body)
	}

	_ = env.db.Close()
	rec = env.do(http.MethodGet, "/api/health", nil, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody(t, rec)["status"]; got != "degraded" {
		t.Errorf("status after close = %v", got)
	}
}

func TestHealth_ReportsBuildVersion(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	tests := []struct {
		info version.Info
		want string
	}{
		{version.Info{Version: "v2.0.1", GitCommit: "abc1234"}, "v2.0.1"},
		{version.Info{}, "dev"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(db, tt.info).Health(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
			expectStatus(t, rec, http.StatusOK)
			if got := decodeBody(t, rec)["version"]; got != tt.want {
				t.Errorf("version = %v, want %q", got, tt.want)
			}
		})
	}
}

func TestCrossSiteWriteRejected(t *testing.T) {
	env := newTestEnv(t)
	editor := env.login("ed", model.RoleEditor)

	req := httptest.NewRequest(http.MethodPut, "/api/cms", strings.NewReader(`{}`))
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.AddCookie(editor)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusForbidden)

	// The beacon is exempt.
	req = httptest.NewRequest(http.MethodPost, "/api/track", strings.NewReader(`{"path":"/"}`))
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusNoContent)
}

func TestSecurityHeadersOnAPI(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/cms", nil, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
}
