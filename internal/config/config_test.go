package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rugscope/market-analyzer/internal/datasource"
)

var keys = []string{
	"PORT", "DATABASE_URL", "REDIS_URL", "REDIS_CACHE_TTL", "RUGSCOPE_STORE_FILE",
	"RUGSCOPE_API_BASE", "RUGSCOPE_API_TIMEOUT", "RUGSCOPE_RATE_RPS",
	"RUGSCOPE_RATE_BURST", "RUGSCOPE_HOLDER_LIMIT", "LOG_LEVEL",
}

// clearEnv unsets every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, datasource.DefaultBaseURL, cfg.APIBase)
	assert.Equal(t, datasource.DefaultTimeout, cfg.APITimeout)
	assert.Equal(t, 30*time.Second, cfg.RedisCacheTTL)
	assert.Equal(t, 100, cfg.HolderLimit)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("RUGSCOPE_API_BASE", "http://localhost:3000/api/v1/")
	t.Setenv("RUGSCOPE_API_TIMEOUT", "5")
	t.Setenv("REDIS_CACHE_TTL", "2m")
	t.Setenv("RUGSCOPE_RATE_RPS", "0.5")
	t.Setenv("RUGSCOPE_HOLDER_LIMIT", "50")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://localhost:3000/api/v1", cfg.APIBase)
	assert.Equal(t, 5*time.Second, cfg.APITimeout)
	assert.Equal(t, 2*time.Minute, cfg.RedisCacheTTL)
	assert.Equal(t, 50, cfg.HolderLimit)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)

	opts := cfg.DataSourceOptions()
	assert.InDelta(t, 0.5, opts.RatePerSecond, 1e-12)
	assert.Equal(t, 50, opts.HolderLimit)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=7000\nRUGSCOPE_RATE_BURST=9\n"), 0o600))
	t.Setenv("RUGSCOPE_RATE_BURST", "3")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, 3, cfg.RateBurst, "environment wins over .env")
}

func TestLoad_InvalidHolderLimit(t *testing.T) {
	clearEnv(t)
	t.Setenv("RUGSCOPE_HOLDER_LIMIT", "-1")
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
