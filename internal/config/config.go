// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/olegiv/urfield-go/internal/scheduler"
)

// Content backends.
const (
	BackendLocal  = "local"
	BackendSanity = "sanity"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"URFIELD_DB_PATH" envDefault:"./data/urfield.db"`
	SessionSecret string `env:"URFIELD_SESSION_SECRET,required"`
	ServerHost    string `env:"URFIELD_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"URFIELD_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"URFIELD_ENV" envDefault:"development"`
	LogLevel      string `env:"URFIELD_LOG_LEVEL" envDefault:"info"`
	DoSeed        bool   `env:"URFIELD_DO_SEED" envDefault:"false"` // Seed a year and admin into an empty local store

	// Content backend
	CMSBackend       string `env:"URFIELD_CMS_BACKEND" envDefault:"local"`
	SanityProjectID  string `env:"URFIELD_SANITY_PROJECT_ID"`
	SanityDataset    string `env:"URFIELD_SANITY_DATASET" envDefault:"production"`
	SanityAPIVersion string `env:"URFIELD_SANITY_API_VERSION" envDefault:"2024-01-01"`
	SanityToken      string `env:"URFIELD_SANITY_TOKEN"`

	// Local assets
	UploadsDir  string `env:"URFIELD_UPLOADS_DIR" envDefault:"./uploads"`
	PublicURL   string `env:"URFIELD_PUBLIC_URL"` // Prefix of local asset URLs
	MaxUploadMB int    `env:"URFIELD_MAX_UPLOAD_MB" envDefault:"20"`

	// Parallel asset uploads of one article submission
	UploadConcurrency int `env:"URFIELD_UPLOAD_CONCURRENCY" envDefault:"4"`

	// Cross-origin front ends allowed to post (host[:port] values)
	TrustedOrigins []string `env:"URFIELD_TRUSTED_ORIGINS" envSeparator:","`

	// Optional Redis URL shared by instances for login lockouts
	RedisURL string `env:"URFIELD_REDIS_URL"`

	// Scheduled jobs
	DigestSchedule     string `env:"URFIELD_DIGEST_SCHEDULE" envDefault:"0 8 * * *"`
	EventRetentionDays int    `env:"URFIELD_EVENT_RETENTION_DAYS" envDefault:"90"`

	// Author import
	ImportPasswordHash string `env:"URFIELD_IMPORT_PASSWORD_HASH"`
	DefaultPicture     string `env:"URFIELD_DEFAULT_PICTURE"` // Path to a local image file
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseSanity returns true if content is stored in Sanity.
func (c Config) UseSanity() bool {
	return c.CMSBackend == BackendSanity
}

// UseRedis returns true if login attempts are shared through Redis.
func (c Config) UseRedis() bool {
	return c.RedisURL != ""
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// EventRetention returns how long event log entries are kept.
func (c Config) EventRetention() time.Duration {
	return time.Duration(c.EventRetentionDays) * 24 * time.Hour
}

// LogLevelValue parses LogLevel, defaulting to info.
func (c Config) LogLevelValue() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// MinSessionSecretLength is the minimum required length for the session secret.
// AES-256 requires 32 bytes minimum for secure encryption.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validateSecret(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validateSecret() error {
	if len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("URFIELD_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(c.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if c.SessionSecret == weak {
			return errors.New("URFIELD_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if !hasMinimumEntropy(c.SessionSecret) {
		slog.Warn("URFIELD_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}
	return nil
}

func (c *Config) validate() error {
	switch c.CMSBackend {
	case BackendLocal:
	case BackendSanity:
		if c.SanityProjectID == "" {
			return errors.New("URFIELD_SANITY_PROJECT_ID is required for the sanity backend")
		}
		if c.SanityDataset == "" {
			return errors.New("URFIELD_SANITY_DATASET is required for the sanity backend")
		}
		if c.SanityToken == "" {
			slog.Warn("URFIELD_SANITY_TOKEN is not set; writes to Sanity will be rejected")
		}
	default:
		return fmt.Errorf("URFIELD_CMS_BACKEND must be %q or %q, got %q", BackendLocal, BackendSanity, c.CMSBackend)
	}

	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("URFIELD_MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	if c.UploadConcurrency <= 0 {
		return fmt.Errorf("URFIELD_UPLOAD_CONCURRENCY must be positive, got %d", c.UploadConcurrency)
	}
	if c.EventRetentionDays <= 0 {
		return fmt.Errorf("URFIELD_EVENT_RETENTION_DAYS must be positive, got %d", c.EventRetentionDays)
	}
	if err := scheduler.ValidateSchedule(c.DigestSchedule); err != nil {
		return fmt.Errorf("URFIELD_DIGEST_SCHEDULE: %w", err)
	}

	for i, origin := range c.TrustedOrigins {
		c.TrustedOrigins[i] = strings.TrimSpace(origin)
	}
	return nil
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
