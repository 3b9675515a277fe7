package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.Equal(t, int64(0), cfg.Seed)
	assert.Equal(t, 0.1, cfg.NoiseLevel)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	// Clear relevant env vars
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, "0.0.0.0", cfg.HTTPHost)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	// Set environment variables
	os.Setenv("NEUROSIM_DATA_DIR", "/tmp/test-neurosim")
	os.Setenv("NEUROSIM_CACHE_MAX_ITEMS", "500")
	os.Setenv("NEUROSIM_CACHE_TTL", "12h")
	os.Setenv("NEUROSIM_SEED", "42")
	os.Setenv("NEUROSIM_NOISE_LEVEL", "0.25")
	os.Setenv("NEUROSIM_HTTP_PORT", "9090")
	os.Setenv("NEUROSIM_LOG_LEVEL", "debug")

	defer clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-neurosim", cfg.DataDir)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 0.25, cfg.NoiseLevel)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadLiteConfig_RejectsInvalidValues(t *testing.T) {
	clearEnvVars(t)

	os.Setenv("NEUROSIM_CACHE_MAX_ITEMS", "not-a-number")
	os.Setenv("NEUROSIM_NOISE_LEVEL", "1.7")
	os.Setenv("NEUROSIM_HTTP_PORT", "-1")

	defer clearEnvVars(t)

	cfg := LoadLiteConfig()

	// Unparseable or out-of-range values fall back to the defaults.
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 0.1, cfg.NoiseLevel)
	assert.Equal(t, 8080, cfg.HTTPPort)
}

func TestLiteConfig_SequenceDBPath(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.neurosim"}

	path := cfg.SequenceDBPath()

	assert.Equal(t, "/home/user/.neurosim/sequences.db", path)
}

func TestLiteConfig_EventDBPath(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.neurosim"}

	path := cfg.EventDBPath()

	assert.Equal(t, "/home/user/.neurosim/events.db", path)
}

func TestLiteConfig_ExportDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.neurosim"}

	path := cfg.ExportDir()

	assert.Equal(t, "/home/user/.neurosim/exports", path)
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	cfg := &LiteConfig{DataDir: filepath.Join(tmpDir, "neurosim")}

	err = cfg.EnsureDataDir()
	require.NoError(t, err)

	// Verify directories exist
	_, err = os.Stat(cfg.DataDir)
	assert.NoError(t, err)

	_, err = os.Stat(cfg.ExportDir())
	assert.NoError(t, err)
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"NEUROSIM_DATA_DIR",
		"NEUROSIM_CACHE_MAX_ITEMS",
		"NEUROSIM_CACHE_TTL",
		"NEUROSIM_SEED",
		"NEUROSIM_NOISE_LEVEL",
		"NEUROSIM_HTTP_HOST",
		"NEUROSIM_HTTP_PORT",
		"NEUROSIM_LOG_LEVEL",
		"NEUROSIM_LOG_FORMAT",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}
