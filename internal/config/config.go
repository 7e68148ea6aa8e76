// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"ANOTAI_DB_PATH" envDefault:"./data/anotai.db"`
	SessionSecret string `env:"ANOTAI_SESSION_SECRET,required"`
	ServerHost    string `env:"ANOTAI_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"ANOTAI_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"ANOTAI_ENV" envDefault:"development"`
	LogLevel      string `env:"ANOTAI_LOG_LEVEL" envDefault:"info"`

	// PrimaryAdminEmail is always granted admin role on signup and login.
	PrimaryAdminEmail string `env:"ANOTAI_PRIMARY_ADMIN_EMAIL"`

	// reCAPTCHA v3 configuration
	RecaptchaSiteKey   string  `env:"ANOTAI_RECAPTCHA_SITE_KEY"`
	RecaptchaSecretKey string  `env:"ANOTAI_RECAPTCHA_SECRET_KEY"`
	RecaptchaMinScore  float64 `env:"ANOTAI_RECAPTCHA_MIN_SCORE" envDefault:"0.5"`

	// Cache configuration
	RedisURL    string `env:"ANOTAI_REDIS_URL"`                      // Optional Redis URL for distributed caching
	CachePrefix string `env:"ANOTAI_CACHE_PREFIX" envDefault:"anotai:"` // Redis key prefix
	CacheTTL    int    `env:"ANOTAI_CACHE_TTL" envDefault:"300"`     // Settings cache TTL in seconds

	// PrunePadsAfterDays controls when empty anonymous pads are removed.
	// Zero disables the prune job.
	PrunePadsAfterDays int `env:"ANOTAI_PRUNE_PADS_AFTER_DAYS" envDefault:"30"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if the application is running in production mode.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// CaptchaConfigured returns true if both reCAPTCHA keys are set.
func (c Config) CaptchaConfigured() bool {
	return strings.TrimSpace(c.RecaptchaSiteKey) != "" && strings.TrimSpace(c.RecaptchaSecretKey) != ""
}

// CaptchaRequired returns true when captcha tokens must actually be
// verified: production with both keys configured.
func (c Config) CaptchaRequired() bool {
	return c.IsProduction() && c.CaptchaConfigured()
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("ANOTAI_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("ANOTAI_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("ANOTAI_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
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
