package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "data/league.db", cfg.DBPath)
	assert.Equal(t, 168*time.Hour, cfg.WeekLength)
	assert.True(t, cfg.AutoSettle)
	assert.False(t, cfg.SeedDemo)
	assert.Equal(t, 20, cfg.CovertLimit)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("AGENCYD_ADDR", ":9000")
	t.Setenv("AGENCYD_COURSE_START", "2026-09-07T08:00:00Z")
	t.Setenv("AGENCYD_WEEK_LENGTH", "10m")
	t.Setenv("AGENCYD_CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("AGENCYD_SEED_DEMO", "true")
	t.Setenv("AGENCYD_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, time.Date(2026, 9, 7, 8, 0, 0, 0, time.UTC), cfg.CourseStart.UTC())
	assert.Equal(t, 10*time.Minute, cfg.WeekLength)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.SeedDemo)

	lvl, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}

func TestLoadErrors(t *testing.T) {
	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("AGENCYD_WEEK_LENGTH", "soon")
		_, err := Load()
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "parse env:"))
	})
	t.Run("zero week", func(t *testing.T) {
		t.Setenv("AGENCYD_WEEK_LENGTH", "0s")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("bad level", func(t *testing.T) {
		t.Setenv("AGENCYD_LOG_LEVEL", "loud")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestStartDefaultsToNow(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, now, Config{}.Start(now))
}
