// Package config loads agencyd's process configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the server's runtime configuration.
type Config struct {
	Addr       string `env:"AGENCYD_ADDR" envDefault:":8080"`
	DBPath     string `env:"AGENCYD_DB_PATH" envDefault:"data/league.db"`
	PolicyFile string `env:"AGENCYD_POLICY_FILE"`
	AdminKey   string `env:"AGENCYD_ADMIN_KEY"`
	LogLevel   string `env:"AGENCYD_LOG_LEVEL" envDefault:"info"`

	CORSOrigins []string `env:"AGENCYD_CORS_ORIGINS" envSeparator:","`

	// Course calendar.
	CourseStart  time.Time     `env:"AGENCYD_COURSE_START"`
	WeekLength   time.Duration `env:"AGENCYD_WEEK_LENGTH" envDefault:"168h"`
	SettleEvery  time.Duration `env:"AGENCYD_SETTLE_POLL" envDefault:"1m"`
	AutoSettle   bool          `env:"AGENCYD_AUTO_SETTLE" envDefault:"true"`
	SettleClass  string        `env:"AGENCYD_SETTLE_CLASS"`
	CovertLimit  int           `env:"AGENCYD_COVERT_LIMIT" envDefault:"20"`
	CovertWindow time.Duration `env:"AGENCYD_COVERT_WINDOW" envDefault:"1h"`

	SeedDemo bool  `env:"AGENCYD_SEED_DEMO" envDefault:"false"`
	Seed     int64 `env:"AGENCYD_SEED" envDefault:"0"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.WeekLength <= 0 {
		return cfg, fmt.Errorf("AGENCYD_WEEK_LENGTH must be positive, got %s", cfg.WeekLength)
	}
	if _, err := cfg.SlogLevel(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SlogLevel converts LogLevel to a slog.Level.
func (c Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown AGENCYD_LOG_LEVEL %q", c.LogLevel)
	}
}

// Start returns the course start, defaulting to now when unset.
func (c Config) Start(now time.Time) time.Time {
	if c.CourseStart.IsZero() {
		return now
	}
	return c.CourseStart
}
