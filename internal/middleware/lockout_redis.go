// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces every key written by RedisAttemptStore.
const redisKeyPrefix = "sitecms:login:"

// RedisAttemptStore shares login lockouts between instances through Redis.
type RedisAttemptStore struct {
	client *redis.Client
	policy LockoutPolicy
}

// NewRedisAttemptStore connects to url and verifies the connection.
func NewRedisAttemptStore(url string, policy LockoutPolicy) (*RedisAttemptStore, error) {
	if url == "" {
		return nil, errors.New("redis URL is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedisAttemptStoreWithClient(client, policy), nil
}

// NewRedisAttemptStoreWithClient wraps an existing client.
func NewRedisAttemptStoreWithClient(client *redis.Client, policy LockoutPolicy) *RedisAttemptStore {
	return &RedisAttemptStore{client: client, policy: policy}
}

func failuresKey(key string) string { return redisKeyPrefix + "fail:" + key }
func lockKey(key string) string     { return redisKeyPrefix + "lock:" + key }
func lockoutsKey(key string) string { return redisKeyPrefix + "lockouts:" + key }

// LockedFor implements AttemptStore.
func (s *RedisAttemptStore) LockedFor(ctx context.Context, key string) (time.Duration, error) {
	// PTTL reports -2 for a missing key and -1 for a key without expiry.
	ttl, err := s.client.PTTL(ctx, lockKey(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("reading lockout: %w", err)
	}
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

// RecordFailure implements AttemptStore.
func (s *RedisAttemptStore) RecordFailure(ctx context.Context, key string) (time.Duration, error) {
	fk := failuresKey(key)
	failures, err := s.client.Incr(ctx, fk).Result()
	if err != nil {
		return 0, fmt.Errorf("counting failure: %w", err)
	}
	if failures == 1 {
		if err := s.client.PExpire(ctx, fk, s.policy.Window).Err(); err != nil {
			return 0, fmt.Errorf("setting failure window: %w", err)
		}
	}
	if failures < int64(s.policy.MaxFailures) {
		return 0, nil
	}

	var lockouts *redis.IntCmd
	if _, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lockouts = pipe.Incr(ctx, lockoutsKey(key))
		pipe.PExpire(ctx, lockoutsKey(key), s.policy.Memory)
		pipe.Del(ctx, fk)
		return nil
	}); err != nil {
		return 0, fmt.Errorf("recording lockout: %w", err)
	}

	d := s.policy.lockoutFor(int(lockouts.Val()))
	if err := s.client.Set(ctx, lockKey(key), "1", d).Err(); err != nil {
		return 0, fmt.Errorf("setting lockout: %w", err)
	}
	return d, nil
}

// Reset implements AttemptStore.
func (s *RedisAttemptStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, failuresKey(key), lockoutsKey(key), lockKey(key)).Err(); err != nil {
		return fmt.Errorf("resetting login failures: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisAttemptStore) Close() error {
	return s.client.Close()
}
