// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/olegiv/sitecms-go/internal/model"
	"github.com/olegiv/sitecms-go/internal/util"
)

// maxLimiterEntries bounds the number of tracked keys before the cache resets.
const maxLimiterEntries = 10000

// limiterCache hands out one token bucket per key.
type limiterCache[K comparable] struct {
	mu       sync.RWMutex
	limiters map[K]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newLimiterCache[K comparable](rps float64, burst int) *limiterCache[K] {
	return &limiterCache[K]{
		limiters: make(map[K]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

func (c *limiterCache[K]) get(key K) *rate.Limiter {
	c.mu.RLock()
	limiter, ok := c.limiters[key]
	c.mu.RUnlock()
	if ok {
		return limiter
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if limiter, ok := c.limiters[key]; ok {
		return limiter
	}
	c.clearIfExceeds(maxLimiterEntries)
	limiter = rate.NewLimiter(c.rate, c.burst)
	c.limiters[key] = limiter
	return limiter
}

// clearIfExceeds drops every bucket once the map grows past limit.
// Callers must hold the write lock.
func (c *limiterCache[K]) clearIfExceeds(limit int) {
	if len(c.limiters) >= limit {
		c.limiters = make(map[K]*rate.Limiter)
	}
}

func (c *limiterCache[K]) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.limiters)
}

// IPRateLimiter throttles requests per client IP.
type IPRateLimiter struct {
	limiters *limiterCache[string]
	name     string
}

// NewIPRateLimiter creates a limiter allowing rps requests per second per IP
// with the given burst. name labels log records.
func NewIPRateLimiter(name string, rps float64, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: newLimiterCache[string](rps, burst),
		name:     name,
	}
}

// Allow reports whether a request from ip may proceed.
func (l *IPRateLimiter) Allow(ip string) bool {
	return l.limiters.get(ip).Allow()
}

// Middleware answers 429 once a client exhausts its bucket.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := util.ClientIP(r)
		if !l.Allow(ip) {
			slog.Warn("rate limit exceeded",
				"category", model.EventCategorySecurity,
				"limiter", l.name,
				"ip", ip,
				"path", r.URL.Path,
			)
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, MsgTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
