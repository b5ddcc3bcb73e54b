// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/olegiv/sitecms-go/internal/analytics"
	"github.com/olegiv/sitecms-go/internal/auth"
	"github.com/olegiv/sitecms-go/internal/campaign"
	"github.com/olegiv/sitecms-go/internal/cms"
	"github.com/olegiv/sitecms-go/internal/config"
	"github.com/olegiv/sitecms-go/internal/geoip"
	"github.com/olegiv/sitecms-go/internal/handler"
	"github.com/olegiv/sitecms-go/internal/integrations"
	"github.com/olegiv/sitecms-go/internal/logging"
	"github.com/olegiv/sitecms-go/internal/middleware"
	"github.com/olegiv/sitecms-go/internal/service"
	"github.com/olegiv/sitecms-go/internal/store"
	"github.com/olegiv/sitecms-go/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// eventRetention is how long event log rows are kept.
const eventRetention = 90 * 24 * time.Hour

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "sitecms - marketing site content API\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_SESSION_SECRET   Session signing key (required in production, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_DB_PATH          SQLite database path (default: ./data/sitecms.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_SERVER_PORT      Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_ENV              Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_STATIC_DIR       Built admin/site bundle to serve (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_REDIS_URL        Redis URL for login lockouts (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_GEOIP_DB_PATH    GeoLite2-Country database (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Println(buildInfo())
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func buildInfo() version.Info {
	return version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func run() error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	versionInfo := buildInfo()

	logLevel := parseLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// WARN and ERROR records also go to the event log table.
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(logging.NewEventLogHandler(textHandler, db)))
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx := context.Background()

	events := service.NewEventService(db)
	if err := events.DeleteOldEvents(ctx, eventRetention); err != nil {
		slog.Error("failed to prune event log", "error", err)
	}

	creds := service.NewCredentialStore(db, service.BootstrapAdmin{
		Username:    cfg.AdminUsername,
		Email:       cfg.AdminEmail,
		Password:    cfg.AdminPassword,
		DisplayName: cfg.AdminDisplayName,
	})
	if created, err := creds.EnsureBootstrapAdmin(ctx); err != nil {
		return fmt.Errorf("bootstrapping admin: %w", err)
	} else if created && cfg.AdminPassword == config.DefaultAdminPassword {
		slog.Warn("bootstrap admin uses the default password; change it before exposing the server",
			"username", cfg.AdminUsername)
	}

	secret, source := cfg.SessionSecret()
	slog.Info("session secret resolved", "source", string(source))
	codec, err := auth.NewTokenCodec(auth.TokenCodecConfig{Secret: []byte(secret)})
	if err != nil {
		return fmt.Errorf("creating token codec: %w", err)
	}

	policy := middleware.DefaultLockoutPolicy()
	var attempts middleware.AttemptStore = middleware.NewMemoryAttemptStore(policy)
	if cfg.UseRedis() {
		redisStore, err := middleware.NewRedisAttemptStore(cfg.RedisURL, policy)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer func() { _ = redisStore.Close() }()
		attempts = redisStore
		slog.Info("login lockouts backed by redis")
	}

	var geo *geoip.Lookup
	if cfg.GeoIPEnabled() {
		geo, err = geoip.Open(cfg.GeoIPDBPath)
		if err != nil {
			slog.Warn("geoip disabled", "path", cfg.GeoIPDBPath, "error", err)
			geo = nil
		} else {
			defer func() { _ = geo.Close() }()
			slog.Info("geoip enabled", "path", cfg.GeoIPDBPath)
		}
	}

	router := handler.NewRouter(handler.Deps{
		DB:           db,
		Config:       cfg,
		Version:      versionInfo,
		Codec:        codec,
		Credentials:  creds,
		Events:       events,
		Leads:        service.NewLeadService(db),
		Documents:    cms.NewStore(db, cms.Main),
		Landings:     cms.NewStore(db, cms.LandingsKind),
		Integrations: integrations.NewService(db, integrations.EnvironmentFromConfig(cfg)),
		Campaigns:    campaign.NewService(db),
		Tracker:      analytics.NewTracker(db, geo, cfg.HashSalt()),
		Reporter:     analytics.NewReporter(db),
		Protection:   middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig(), attempts),
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       30 * time.Second, // uploads
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Minute, // campaign sends run inline
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.Label())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
