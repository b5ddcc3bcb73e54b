// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"sync"
	"time"
)

// LockoutPolicy controls when repeated login failures lock an account.
type LockoutPolicy struct {
	MaxFailures int           // failures within Window that trigger a lockout
	Window      time.Duration // failures older than this are forgotten
	BaseLockout time.Duration // first lockout duration
	MaxLockout  time.Duration // cap for the doubling lockout
	// Memory is how long previous lockouts keep counting towards backoff.
	Memory time.Duration
}

// DefaultLockoutPolicy locks an account after 5 failures in 15 minutes, for
// 1 minute at first and doubling up to 1 hour.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		MaxFailures: 5,
		Window:      15 * time.Minute,
		BaseLockout: time.Minute,
		MaxLockout:  time.Hour,
		Memory:      24 * time.Hour,
	}
}

// lockoutFor returns the duration of the n-th consecutive lockout (n >= 1).
func (p LockoutPolicy) lockoutFor(n int) time.Duration {
	d := p.BaseLockout
	for i := 1; i < n; i++ {
		d *= 2
		if d >= p.MaxLockout {
			return p.MaxLockout
		}
	}
	if d > p.MaxLockout {
		return p.MaxLockout
	}
	return d
}

// AttemptStore keeps failed login counters and lockouts per account key.
type AttemptStore interface {
	// LockedFor returns the remaining lockout, or zero when the key is not locked.
	LockedFor(ctx context.Context, key string) (time.Duration, error)
	// RecordFailure counts a failure and returns the lockout it triggered, if any.
	RecordFailure(ctx context.Context, key string) (time.Duration, error)
	// Reset forgets all failures and lockouts for key.
	Reset(ctx context.Context, key string) error
}

// memoryPruneThreshold is the entry count above which stale entries are pruned.
const memoryPruneThreshold = 10000

type attemptEntry struct {
	failures     int
	firstFailure time.Time
	lockedUntil  time.Time
	lockouts     int
	lastLockout  time.Time
}

// MemoryAttemptStore is a process-local AttemptStore.
type MemoryAttemptStore struct {
	mu      sync.Mutex
	entries map[string]*attemptEntry
	policy  LockoutPolicy
	now     func() time.Time
}

// NewMemoryAttemptStore creates an in-memory AttemptStore.
func NewMemoryAttemptStore(policy LockoutPolicy) *MemoryAttemptStore {
	return &MemoryAttemptStore{
		entries: make(map[string]*attemptEntry),
		policy:  policy,
		now:     time.Now,
	}
}

// LockedFor implements AttemptStore.
func (s *MemoryAttemptStore) LockedFor(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return 0, nil
	}
	if remaining := e.lockedUntil.Sub(s.now()); remaining > 0 {
		return remaining, nil
	}
	return 0, nil
}

// RecordFailure implements AttemptStore.
func (s *MemoryAttemptStore) RecordFailure(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if len(s.entries) >= memoryPruneThreshold {
		s.prune(now)
	}

	e, ok := s.entries[key]
	if !ok {
		e = &attemptEntry{}
		s.entries[key] = e
	}
	if e.failures == 0 || now.Sub(e.firstFailure) > s.policy.Window {
		e.failures = 0
		e.firstFailure = now
	}
	e.failures++
	if e.failures < s.policy.MaxFailures {
		return 0, nil
	}

	if now.Sub(e.lastLockout) > s.policy.Memory {
		e.lockouts = 0
	}
	e.lockouts++
	e.lastLockout = now
	e.failures = 0

	d := s.policy.lockoutFor(e.lockouts)
	e.lockedUntil = now.Add(d)
	return d, nil
}

// Reset implements AttemptStore.
func (s *MemoryAttemptStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// prune drops entries with no active lockout, no live failure window and no
// remembered lockouts. Callers must hold the lock.
func (s *MemoryAttemptStore) prune(now time.Time) {
	for key, e := range s.entries {
		if now.Before(e.lockedUntil) {
			continue
		}
		if e.failures > 0 && now.Sub(e.firstFailure) <= s.policy.Window {
			continue
		}
		if e.lockouts > 0 && now.Sub(e.lastLockout) <= s.policy.Memory {
			continue
		}
		delete(s.entries, key)
	}
}
