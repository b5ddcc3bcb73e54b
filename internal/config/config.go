// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// DevSessionSecret signs session tokens when no secret is configured.
// It is public knowledge and is rejected in production.
const DevSessionSecret = "sitecms-insecure-development-session-secret"

// DefaultAdminPassword is the bootstrap password used when SITECMS_ADMIN_PASSWORD is unset.
const DefaultAdminPassword = "admin123"

// MinSessionSecretLength is the minimum required length for the session secret in production.
const MinSessionSecretLength = 32

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
	DevSessionSecret,
}

// SecretSource names the variable a session secret was resolved from.
type SecretSource string

const (
	SecretFromSession SecretSource = "SITECMS_SESSION_SECRET"
	SecretFromApp     SecretSource = "SITECMS_APP_SECRET"
	SecretFromAuth    SecretSource = "SITECMS_AUTH_SECRET"
	SecretFromDevOnly SecretSource = "development fallback"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"SITECMS_DB_PATH" envDefault:"./data/sitecms.db"`
	ServerHost string `env:"SITECMS_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"SITECMS_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"SITECMS_ENV" envDefault:"development"`
	LogLevel   string `env:"SITECMS_LOG_LEVEL" envDefault:"info"`
	StaticDir  string `env:"SITECMS_STATIC_DIR"` // Built React bundle, optional

	// Secrets, in session-secret resolution order
	SessionKey string `env:"SITECMS_SESSION_SECRET"`
	AppSecret  string `env:"SITECMS_APP_SECRET"`
	AuthSecret string `env:"SITECMS_AUTH_SECRET"`

	// Bootstrap admin
	AdminUsername    string `env:"SITECMS_ADMIN_USERNAME" envDefault:"admin"`
	AdminEmail       string `env:"SITECMS_ADMIN_EMAIL"`
	AdminPassword    string `env:"SITECMS_ADMIN_PASSWORD" envDefault:"admin123"`
	AdminDisplayName string `env:"SITECMS_ADMIN_NAME" envDefault:"Administrator"`

	RedisURL       string   `env:"SITECMS_REDIS_URL"`    // Optional, backs login lockouts
	GeoIPDBPath    string   `env:"SITECMS_GEOIP_DB_PATH"` // Path to GeoLite2-Country.mmdb file
	TrustedOrigins []string `env:"SITECMS_TRUSTED_ORIGINS" envSeparator:","`

	RateLimitRPS   float64 `env:"SITECMS_RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int     `env:"SITECMS_RATE_LIMIT_BURST" envDefault:"30"`

	// Server-side AI credentials override stored integration settings
	GeminiAPIKey string `env:"SITECMS_GEMINI_API_KEY"`
	GeminiModel  string `env:"SITECMS_GEMINI_MODEL"`
	OpenAIAPIKey string `env:"SITECMS_OPENAI_API_KEY"`
	OpenAIModel  string `env:"SITECMS_OPENAI_MODEL"`

	ContactNotifyEmail string `env:"SITECMS_CONTACT_NOTIFY_EMAIL"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction reports whether cookies must be marked Secure and secrets enforced.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedis returns true if Redis-backed login lockouts are configured.
func (c Config) UseRedis() bool {
	return c.RedisURL != ""
}

// GeoIPEnabled returns true if GeoIP database is configured.
func (c Config) GeoIPEnabled() bool {
	return c.GeoIPDBPath != ""
}

// SessionSecret resolves the key used to sign session tokens.
func (c Config) SessionSecret() (string, SecretSource) {
	switch {
	case c.SessionKey != "":
		return c.SessionKey, SecretFromSession
	case c.AppSecret != "":
		return c.AppSecret, SecretFromApp
	case c.AuthSecret != "":
		return c.AuthSecret, SecretFromAuth
	default:
		return DevSessionSecret, SecretFromDevOnly
	}
}

// HashSalt returns the secret mixed into visitor hashes.
func (c Config) HashSalt() string {
	if c.AppSecret != "" {
		return c.AppSecret
	}
	secret, _ := c.SessionSecret()
	return secret
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.AdminUsername = strings.ToLower(strings.TrimSpace(cfg.AdminUsername))
	cfg.AdminEmail = strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if cfg.AdminUsername == "" {
		return nil, errors.New("SITECMS_ADMIN_USERNAME must not be empty")
	}

	secret, source := cfg.SessionSecret()
	if !cfg.IsProduction() {
		if source == SecretFromDevOnly {
			slog.Warn("no session secret configured; using the insecure development fallback")
		}
		return cfg, nil
	}

	if source == SecretFromDevOnly {
		return nil, errors.New("a session secret is required in production; " +
			"set SITECMS_SESSION_SECRET (generate one with: openssl rand -base64 32)")
	}
	if len(secret) < MinSessionSecretLength {
		return nil, fmt.Errorf("%s must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			source, MinSessionSecretLength, len(secret))
	}
	for _, weak := range knownWeakSecrets {
		if secret == weak {
			return nil, fmt.Errorf("%s is a known default value and must not be used", source)
		}
	}
	if !hasMinimumEntropy(secret) {
		slog.Warn("session secret has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}
	if cfg.AdminPassword == DefaultAdminPassword {
		return nil, errors.New("SITECMS_ADMIN_PASSWORD must be changed from its default in production")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
