// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix is prepended to attempt keys stored in Redis.
const DefaultRedisPrefix = "urfield:login:"

// RedisAttemptStore shares login attempts between instances through Redis.
type RedisAttemptStore struct {
	client *redis.Client
	prefix string
}

// NewRedisAttemptStore connects to the Redis server at url and checks the
// connection.
func NewRedisAttemptStore(ctx context.Context, url, prefix string) (*RedisAttemptStore, error) {
	if url == "" {
		return nil, errors.New("redis URL is required")
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisAttemptStore{client: client, prefix: prefix}, nil
}

// Get implements AttemptStore.
func (s *RedisAttemptStore) Get(ctx context.Context, key string) (Attempt, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Attempt{}, false, nil
	}
	if err != nil {
		return Attempt{}, false, err
	}

	var a Attempt
	if err := json.Unmarshal(data, &a); err != nil {
		return Attempt{}, false, err
	}
	return a, true, nil
}

// Put implements AttemptStore.
func (s *RedisAttemptStore) Put(ctx context.Context, key string, a Attempt, ttl time.Duration) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+key, data, ttl).Err()
}

// Delete implements AttemptStore.
func (s *RedisAttemptStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// Close closes the Redis connection.
func (s *RedisAttemptStore) Close() error {
	return s.client.Close()
}
