// Package config provides configuration management for the simulation server.
// This file contains the lightweight configuration for standalone operation.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external databases and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for SQLite databases and exports

	// Analysis cache settings
	CacheMaxItems int           // Maximum cached pattern analyses
	CacheTTL      time.Duration // Cached analysis lifetime

	// Simulation settings
	Seed       int64   // Random seed; 0 seeds from the wall clock
	NoiseLevel float64 // Default noise level for generated series

	// HTTP settings
	HTTPHost string
	HTTPPort int

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".neurosim")

	return &LiteConfig{
		DataDir:       dataDir,
		CacheMaxItems: 1000,
		CacheTTL:      15 * time.Minute,
		Seed:          0,
		NoiseLevel:    0.1,
		HTTPHost:      "0.0.0.0",
		HTTPPort:      8080,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	// Data directory
	if v := os.Getenv("NEUROSIM_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// Cache settings
	if v := os.Getenv("NEUROSIM_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("NEUROSIM_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	// Simulation settings
	if v := os.Getenv("NEUROSIM_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Seed = n
		}
	}
	if v := os.Getenv("NEUROSIM_NOISE_LEVEL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			cfg.NoiseLevel = f
		}
	}

	// HTTP settings
	if v := os.Getenv("NEUROSIM_HTTP_HOST"); v != "" {
		cfg.HTTPHost = v
	}
	if v := os.Getenv("NEUROSIM_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	// Logging
	if v := os.Getenv("NEUROSIM_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("NEUROSIM_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// SequenceDBPath returns the path to the sequence SQLite database.
func (c *LiteConfig) SequenceDBPath() string {
	return filepath.Join(c.DataDir, "sequences.db")
}

// EventDBPath returns the path to the event SQLite database.
func (c *LiteConfig) EventDBPath() string {
	return filepath.Join(c.DataDir, "events.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}
