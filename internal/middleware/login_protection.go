// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// maxLockoutDuration caps the exponential lockout backoff.
const maxLockoutDuration = 24 * time.Hour

// LoginProtection provides combined IP rate limiting and account lockout protection.
type LoginProtection struct {
	// IP-based rate limiting
	ipLimiters *limiterCache[string]

	// Account-based lockout tracking
	attempts AttemptStore
	// attemptsMu serializes read-modify-write cycles of this process.
	attemptsMu sync.Mutex

	maxFailedAttempts int
	lockoutDuration   time.Duration
	attemptWindow     time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// LoginProtectionConfig holds configuration for login protection.
type LoginProtectionConfig struct {
	// IPRateLimit is requests per second per IP (default: 0.5 = 1 request per 2 seconds)
	IPRateLimit float64
	// IPBurst is the maximum burst size for IP rate limiting (default: 5)
	IPBurst int
	// MaxFailedAttempts before account lockout (default: 5)
	MaxFailedAttempts int
	// LockoutDuration is base lockout time, doubles with each lockout (default: 15 minutes)
	LockoutDuration time.Duration
	// AttemptWindow is the time window for counting failed attempts (default: 15 minutes)
	AttemptWindow time.Duration
	// Store keeps the attempts. Defaults to a MemoryAttemptStore.
	Store AttemptStore
}

// DefaultLoginProtectionConfig returns sensible defaults.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       0.5,
		IPBurst:           5,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
	}
}

// NewLoginProtection creates a new login protection instance and starts
// its cleanup loop. Call Close to stop it.
func NewLoginProtection(cfg LoginProtectionConfig) *LoginProtection {
	def := DefaultLoginProtectionConfig()
	if cfg.IPRateLimit <= 0 {
		cfg.IPRateLimit = def.IPRateLimit
	}
	if cfg.IPBurst <= 0 {
		cfg.IPBurst = def.IPBurst
	}
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = def.MaxFailedAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = def.AttemptWindow
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryAttemptStore()
	}

	lp := &LoginProtection{
		ipLimiters:        newLimiterCache[string](cfg.IPRateLimit, cfg.IPBurst),
		attempts:          cfg.Store,
		maxFailedAttempts: cfg.MaxFailedAttempts,
		lockoutDuration:   cfg.LockoutDuration,
		attemptWindow:     cfg.AttemptWindow,
		stop:              make(chan struct{}),
	}

	go lp.cleanup()

	return lp
}

// Close stops the cleanup loop.
func (lp *LoginProtection) Close() {
	lp.stopOnce.Do(func() { close(lp.stop) })
}

// CheckIPRateLimit checks if the IP is rate limited.
// Returns true if the request should be allowed.
func (lp *LoginProtection) CheckIPRateLimit(ip string) bool {
	return lp.ipLimiters.get(ip).Allow()
}

// IsAccountLocked checks if an account is currently locked.
// Returns (locked, remainingTime). Store errors leave the account unlocked.
func (lp *LoginProtection) IsAccountLocked(ctx context.Context, loginName string) (bool, time.Duration) {
	attempt, ok, err := lp.attempts.Get(ctx, loginName)
	if err != nil {
		slog.Error("failed to read login attempts", "login_name", loginName, "error", err)
		return false, 0
	}
	if !ok {
		return false, 0
	}

	if remaining := time.Until(attempt.LockedUntil); remaining > 0 {
		return true, remaining
	}
	return false, 0
}

// RecordFailedAttempt records a failed login attempt.
// Returns (locked, lockDuration) if the account is now locked.
func (lp *LoginProtection) RecordFailedAttempt(ctx context.Context, loginName string) (bool, time.Duration) {
	lp.attemptsMu.Lock()
	defer lp.attemptsMu.Unlock()

	now := time.Now()
	attempt, exists, err := lp.attempts.Get(ctx, loginName)
	if err != nil {
		slog.Error("failed to read login attempts", "login_name", loginName, "error", err)
		return false, 0
	}

	switch {
	case !exists:
		attempt = Attempt{Count: 1, FirstFailed: now}
	case now.Sub(attempt.FirstFailed) > lp.attemptWindow:
		// The attempt window has passed, start counting again.
		attempt.Count = 1
		attempt.FirstFailed = now
	default:
		attempt.Count++
	}
	slog.Debug("login attempt recorded", "login_name", loginName, "count", attempt.Count)

	var lockDuration time.Duration
	if attempt.Count >= lp.maxFailedAttempts {
		lockDuration = lp.lockoutDuration
		for i := 0; i < attempt.Lockouts; i++ {
			lockDuration *= 2
			if lockDuration > maxLockoutDuration {
				lockDuration = maxLockoutDuration
				break
			}
		}

		attempt.LockedUntil = now.Add(lockDuration)
		attempt.Lockouts++
		attempt.Count = 0

		slog.Warn("account locked due to failed attempts",
			"login_name", loginName,
			"lockouts", attempt.Lockouts,
			"duration", lockDuration,
		)
	}

	// Keep the record long enough for the backoff to grow across lockouts.
	ttl := lp.attemptWindow + lockDuration + lp.lockoutDuration
	if err := lp.attempts.Put(ctx, loginName, attempt, ttl); err != nil {
		slog.Error("failed to store login attempts", "login_name", loginName, "error", err)
	}

	return lockDuration > 0, lockDuration
}

// RecordSuccessfulLogin clears failed attempt tracking for an account.
func (lp *LoginProtection) RecordSuccessfulLogin(ctx context.Context, loginName string) {
	lp.attemptsMu.Lock()
	defer lp.attemptsMu.Unlock()

	if err := lp.attempts.Delete(ctx, loginName); err != nil {
		slog.Error("failed to clear login attempts", "login_name", loginName, "error", err)
		return
	}
	slog.Debug("login attempts cleared", "login_name", loginName)
}

// GetRemainingAttempts returns the number of remaining attempts before lockout.
func (lp *LoginProtection) GetRemainingAttempts(ctx context.Context, loginName string) int {
	attempt, exists, err := lp.attempts.Get(ctx, loginName)
	if err != nil || !exists {
		return lp.maxFailedAttempts
	}

	if time.Since(attempt.FirstFailed) > lp.attemptWindow {
		return lp.maxFailedAttempts
	}

	remaining := lp.maxFailedAttempts - attempt.Count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// cleanup periodically removes stale entries.
func (lp *LoginProtection) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-lp.stop:
			return
		case <-ticker.C:
			lp.cleanupStaleEntries()
		}
	}
}

func (lp *LoginProtection) cleanupStaleEntries() {
	if lp.ipLimiters.clearIfExceeds(10000) {
		slog.Info("cleared IP rate limiters due to size")
	}

	// Redis expires its own keys.
	if mem, ok := lp.attempts.(*MemoryAttemptStore); ok {
		if n := mem.Prune(); n > 0 {
			slog.Debug("pruned login attempts", "count", n)
		}
	}
}

// Middleware returns HTTP middleware for IP rate limiting on login.
// This should be applied to the login POST route.
func (lp *LoginProtection) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ip := ClientIP(r)

			if !lp.CheckIPRateLimit(ip) {
				slog.Warn("login rate limit exceeded", "ip", ip)
				WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many login attempts. Please wait a moment and try again.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
