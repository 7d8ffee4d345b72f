// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration.
type Config struct {
	DiscordToken     string        `env:"DISCORD_BOT_TOKEN"`
	RegisterCommands bool          `env:"REGISTER_COMMANDS" envDefault:"true"`
	WebhookURL       string        `env:"WEBHOOK_URL"`
	WebhookTimeout   time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"10s"`
	Port             string        `env:"PORT" envDefault:"8080"`
	DBPath           string        `env:"DB_PATH" envDefault:"./data/verifications.db"`
	AdminToken       string        `env:"ADMIN_TOKEN"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"0s"`
	SweepInterval    time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"5m"`
	LocaleFile       string        `env:"LOCALE_FILE"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	OTelEndpoint     string        `env:"OTEL_ENDPOINT"`

	Locale Locale `env:"-"`
}

// Load reads configuration from environment variables and the optional locale file.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	locale, err := LoadLocale(cfg.LocaleFile)
	if err != nil {
		return nil, fmt.Errorf("load locale: %w", err)
	}
	cfg.Locale = locale

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_BOT_TOKEN cannot be empty")
	}
	if c.Port == "" {
		return errors.New("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH cannot be empty")
	}
	if c.WebhookURL != "" {
		u, err := url.Parse(c.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("WEBHOOK_URL must be an absolute http(s) URL")
		}
	}
	if c.WebhookTimeout <= 0 {
		return errors.New("WEBHOOK_TIMEOUT must be > 0")
	}
	if c.SessionTTL < 0 {
		return errors.New("SESSION_TTL cannot be negative")
	}
	return c.Locale.Validate()
}

// WebhookEnabled reports whether completed answers are forwarded to the CRM.
func (c *Config) WebhookEnabled() bool {
	return c.WebhookURL != ""
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
