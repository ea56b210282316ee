package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ironquest_test")
	t.Setenv("WEEKLY_RESET_DAY", "")
	t.Setenv("WEEKLY_RESET_TZ", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/ironquest_test", cfg.DatabaseURL)
	assert.Equal(t, time.Sunday, cfg.ResetWeekday)
	assert.Equal(t, 23, cfg.ResetHour)
	assert.Equal(t, 59, cfg.ResetMinute)
	assert.Equal(t, time.UTC, cfg.ResetLocation)
	assert.Equal(t, 1000, cfg.ResetChunkSize)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("WEEKLY_RESET_DAY", "Mon")
	t.Setenv("WEEKLY_RESET_HOUR", "6")
	t.Setenv("WEEKLY_RESET_TZ", "America/New_York")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("LOG_COMPRESS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.Monday, cfg.ResetWeekday)
	assert.Equal(t, 6, cfg.ResetHour)
	assert.Equal(t, "America/New_York", cfg.ResetLocation.String())
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.True(t, cfg.LogCompress)
}

func TestLoadRejectsUnknownWeekday(t *testing.T) {
	t.Setenv("WEEKLY_RESET_DAY", "someday")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Config{JWTSecret: "short", ResetHour: 23, ResetMinute: 59}
	assert.Error(t, cfg.Validate())

	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.Validate())

	cfg.ResetHour = 24
	assert.Error(t, cfg.Validate())
}
