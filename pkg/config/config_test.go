package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://econdata:pw@localhost:5432/econdata?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 10, cfg.Database.MaxConns)
	assert.Equal(t, time.Hour, cfg.Database.MaxConnLifetime)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "https://api.ons.gov.uk", cfg.ONS.BaseURL)
	assert.Equal(t, "GBR", cfg.OECD.DefaultLocation)
	assert.Equal(t, 24, cfg.Pack.LookbackPeriods)
	assert.Equal(t, 4, cfg.Pack.Workers)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/econdata")
	t.Setenv("ENV", "sandbox")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENV")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/econdata")
	t.Setenv("PORT", "9000")
	t.Setenv("PACK_LOOKBACK_PERIODS", "36")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 36, cfg.Pack.LookbackPeriods)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoad_InvalidLookback(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/econdata")
	t.Setenv("PACK_LOOKBACK_PERIODS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PACK_LOOKBACK_PERIODS")
}
