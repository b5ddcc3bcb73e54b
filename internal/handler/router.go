// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/sitecms-go/internal/analytics"
	"github.com/olegiv/sitecms-go/internal/auth"
	"github.com/olegiv/sitecms-go/internal/campaign"
	"github.com/olegiv/sitecms-go/internal/cms"
	"github.com/olegiv/sitecms-go/internal/config"
	"github.com/olegiv/sitecms-go/internal/integrations"
	"github.com/olegiv/sitecms-go/internal/middleware"
	"github.com/olegiv/sitecms-go/internal/model"
	"github.com/olegiv/sitecms-go/internal/service"
	"github.com/olegiv/sitecms-go/internal/version"
)

// Route paths.
const (
	RouteAPI         = "/api"
	RouteHealth      = "/health"
	RouteLogin       = "/login"
	RouteLogout      = "/logout"
	RouteSession     = "/session"
	RouteCMS         = "/cms"
	RouteIntegr      = "/integrations"
	RouteTrack       = "/track"
	RouteContact     = "/contact"
	RouteSubscribe   = "/subscribe"
	RouteUnsubscribe = "/unsubscribe"
	RouteLandingSlug = "/landings/{slug}"
	RouteAdmin       = "/admin"
)

// requestTimeout bounds ordinary API requests. AI generation, uploads and
// campaign sends run without it.
const requestTimeout = 30 * time.Second

// Deps carries everything the router wires into handlers.
type Deps struct {
	DB           *sql.DB
	Config       *config.Config
	Version      version.Info
	Codec        *auth.TokenCodec
	Credentials  *service.CredentialStore
	Events       *service.EventService
	Leads        *service.LeadService
	Documents    *cms.Store[cms.Document]
	Landings     *cms.Store[cms.Landings]
	Integrations *integrations.Service
	Campaigns    *campaign.Service
	Tracker      *analytics.Tracker
	Reporter     *analytics.Reporter
	Protection   *middleware.LoginProtection
}

// Handlers groups the API handlers. NewHandlers builds the production set;
// tests may swap collaborators before calling Routes.
type Handlers struct {
	Auth         *AuthHandler
	CMS          *CMSHandler
	Integrations *IntegrationsHandler
	AI           *AIHandler
	Landings     *LandingsHandler
	Campaigns    *CampaignsHandler
	Leads        *LeadsHandler
	Analytics    *AnalyticsHandler
	Media        *MediaHandler
	Users        *UsersHandler
	Events       *EventsHandler
	Health       *HealthHandler
}

// NewHandlers builds every handler from d.
func NewHandlers(d Deps) *Handlers {
	return &Handlers{
		Auth:         NewAuthHandler(d.Credentials, d.Codec, d.Protection, d.Events, d.Config.IsProduction()),
		CMS:          NewCMSHandler(d.Documents, d.Events),
		Integrations: NewIntegrationsHandler(d.Integrations, d.Events),
		AI:           NewAIHandler(d.Documents, d.Integrations, d.Events),
		Landings:     NewLandingsHandler(d.Landings, d.Events),
		Campaigns:    NewCampaignsHandler(d.Campaigns, d.Integrations, d.Events),
		Leads:        NewLeadsHandler(d.Leads, d.Documents, d.Integrations, d.Events, d.Config.ContactNotifyEmail),
		Analytics:    NewAnalyticsHandler(d.Tracker, d.Reporter),
		Media:        NewMediaHandler(d.Integrations, d.Events),
		Users:        NewUsersHandler(d.Credentials, d.Events),
		Events:       NewEventsHandler(d.Events),
		Health:       NewHealthHandler(d.DB, d.Version),
	}
}

// NewRouter builds the HTTP handler for the whole application.
func NewRouter(d Deps) http.Handler {
	return NewHandlers(d).Routes(d)
}

// Routes mounts h on a new chi router.
func (h *Handlers) Routes(d Deps) http.Handler {
	cfg := d.Config
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))

	// Sub-routers inherit both. Non-API paths fall through to the SPA.
	r.NotFound(notFound(cfg.StaticDir))
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	})

	secret, _ := cfg.SessionSecret()
	csrfMiddleware := middleware.CSRF(middleware.DefaultCSRFConfig([]byte(secret), cfg.TrustedOrigins, cfg.IsDevelopment()))
	publicLimiter := middleware.NewIPRateLimiter("public", cfg.RateLimitRPS, cfg.RateLimitBurst)
	timeout := middleware.Timeout(requestTimeout)

	r.Route(RouteAPI, func(r chi.Router) {
		r.Use(middleware.SkipCSRF(RouteAPI+RouteTrack, RouteAPI+RouteContact, RouteAPI+RouteSubscribe))
		r.Use(csrfMiddleware)
		r.Use(middleware.LoadSession(d.Codec))

		r.Group(func(r chi.Router) {
			r.Use(timeout)

			r.Get(RouteHealth, h.Health.Health)

			// Public beacon and forms
			r.Group(func(r chi.Router) {
				r.Use(publicLimiter.Middleware)
				r.Post(RouteTrack, h.Analytics.Track)
				r.Post(RouteContact, h.Leads.Contact)
				r.Post(RouteSubscribe, h.Campaigns.Subscribe)
				r.Get(RouteUnsubscribe, h.Campaigns.Unsubscribe)
				r.Get(RouteLandingSlug, h.Landings.Public)
			})

			r.With(d.Protection.IPLimiter().Middleware).Post(RouteLogin, h.Auth.Login)
			r.Post(RouteLogout, h.Auth.Logout)
			r.Get(RouteSession, h.Auth.Session)

			// GET is public; ?history=1 checks the role itself.
			r.Get(RouteCMS, h.CMS.Get)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(model.RoleEditor))
				r.Put(RouteCMS, h.CMS.Put)
				r.Post(RouteCMS, h.CMS.Post)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(model.RoleAdmin))
				r.Get(RouteIntegr, h.Integrations.Get)
				r.Put(RouteIntegr, h.Integrations.Put)
			})
		})

		r.Route(RouteAdmin, func(r chi.Router) {
			r.Use(middleware.RequireSession)
			h.adminRoutes(r, timeout)
		})
	})

	return r
}

func (h *Handlers) adminRoutes(r chi.Router, timeout func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(timeout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleAnalyst))
			r.Get("/analytics", h.Analytics.Summary)
			r.Get("/leads", h.Leads.List)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleEditor))
			r.Get("/landings", h.Landings.Get)
			r.Put("/landings", h.Landings.Put)
			r.Get("/subscribers", h.Campaigns.Subscribers)
			r.Get("/campaigns", h.Campaigns.List)
			r.Post("/campaigns", h.Campaigns.Create)
			r.Get("/campaigns/{id}", h.Campaigns.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleAdmin))
			r.Post("/integrations/test", h.Integrations.Test)
			r.Get("/users", h.Users.List)
			r.Get("/events", h.Events.List)
		})

		r.With(middleware.RequireRole(model.RoleSuperAdmin)).Post("/users", h.Users.Create)
	})

	// Long-running
	r.With(middleware.RequireRole(model.RoleEditor)).Post("/ai/generate", h.AI.Generate)
	r.With(middleware.RequireRole(model.RoleEditor)).Post("/media", h.Media.Upload)
	r.With(middleware.RequireRole(model.RoleAdmin)).Post("/campaigns/{id}/send", h.Campaigns.Send)
}

// notFound answers unknown API paths with JSON and hands everything else to
// the SPA when one is configured.
func notFound(staticDir string) http.HandlerFunc {
	var spa http.Handler
	if staticDir != "" {
		spa = NewSPAHandler(staticDir)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if spa != nil && !strings.HasPrefix(r.URL.Path, RouteAPI+"/") && r.URL.Path != RouteAPI {
			spa.ServeHTTP(w, r)
			return
		}
		writeJSONError(w, http.StatusNotFound, msgNotFound)
	}
}
