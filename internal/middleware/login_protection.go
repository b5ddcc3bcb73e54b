// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/sitecms-go/internal/model"
)

// LoginProtectionConfig holds configuration for login protection.
type LoginProtectionConfig struct {
	// IPRateLimit is login attempts per second allowed per IP.
	IPRateLimit float64
	// IPBurst is the burst size for per-IP rate limiting.
	IPBurst int
	// Lockout configures account lockouts.
	Lockout LockoutPolicy
}

// DefaultLoginProtectionConfig returns sensible defaults: 1 attempt every
// 2 seconds per IP with a burst of 5, plus DefaultLockoutPolicy.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit: 0.5,
		IPBurst:     5,
		Lockout:     DefaultLockoutPolicy(),
	}
}

// LoginProtection combines per-IP throttling with per-account lockouts.
// Store errors are logged and treated as "not locked" so a broken Redis
// never blocks every login.
type LoginProtection struct {
	ipLimiter *IPRateLimiter
	attempts  AttemptStore
}

// NewLoginProtection creates login protection over the given attempt store.
func NewLoginProtection(cfg LoginProtectionConfig, attempts AttemptStore) *LoginProtection {
	return &LoginProtection{
		ipLimiter: NewIPRateLimiter("login", cfg.IPRateLimit, cfg.IPBurst),
		attempts:  attempts,
	}
}

// IPLimiter returns the per-IP limiter guarding the login route.
func (lp *LoginProtection) IPLimiter() *IPRateLimiter {
	return lp.ipLimiter
}

func accountKey(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// LockedFor returns the remaining lockout for identifier.
func (lp *LoginProtection) LockedFor(ctx context.Context, identifier string) time.Duration {
	d, err := lp.attempts.LockedFor(ctx, accountKey(identifier))
	if err != nil {
		slog.Error("login lockout lookup failed", "error", err)
		return 0
	}
	return d
}

// RecordFailedAttempt counts a failed login and returns the lockout it
// triggered, or zero.
func (lp *LoginProtection) RecordFailedAttempt(ctx context.Context, identifier, ip string) time.Duration {
	key := accountKey(identifier)
	d, err := lp.attempts.RecordFailure(ctx, key)
	if err != nil {
		slog.Error("recording failed login failed", "error", err)
		return 0
	}
	if d > 0 {
		slog.Warn("account locked after failed login attempts",
			"category", model.EventCategorySecurity,
			"identifier", key,
			"ip", ip,
			"lockout", d.String(),
		)
	}
	return d
}

// RecordSuccessfulLogin clears failures for identifier.
func (lp *LoginProtection) RecordSuccessfulLogin(ctx context.Context, identifier string) {
	if err := lp.attempts.Reset(ctx, accountKey(identifier)); err != nil {
		slog.Error("clearing login failures failed", "error", err)
	}
}
