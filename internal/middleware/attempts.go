// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"sync"
	"time"
)

// Attempt tracks failed login attempts for an account.
type Attempt struct {
	Count       int       `json:"count"`
	FirstFailed time.Time `json:"first_failed"`
	LockedUntil time.Time `json:"locked_until"`
	// Lockouts counts how often the account was locked, for exponential backoff.
	Lockouts int `json:"lockouts"`
}

// AttemptStore persists login attempts by account key.
type AttemptStore interface {
	// Get returns the attempt for key. ok is false when none is stored.
	Get(ctx context.Context, key string) (a Attempt, ok bool, err error)
	// Put stores a for key and forgets it after ttl.
	Put(ctx context.Context, key string, a Attempt, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// MemoryAttemptStore keeps attempts in process memory.
type MemoryAttemptStore struct {
	mu      sync.Mutex
	entries map[string]memoryAttempt
}

type memoryAttempt struct {
	attempt   Attempt
	expiresAt time.Time
}

// NewMemoryAttemptStore creates an empty in-memory store.
func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{entries: make(map[string]memoryAttempt)}
}

// Get implements AttemptStore.
func (s *MemoryAttemptStore) Get(_ context.Context, key string) (Attempt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return Attempt{}, false, nil
	}
	return e.attempt, true, nil
}

// Put implements AttemptStore.
func (s *MemoryAttemptStore) Put(_ context.Context, key string, a Attempt, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryAttempt{attempt: a, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Delete implements AttemptStore.
func (s *MemoryAttemptStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Prune removes expired entries and returns how many were removed.
func (s *MemoryAttemptStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}
