// Package setup provides first-run utilities for the lite simulation server:
// data directory initialization, status reporting and configuration checks.
package setup

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/neurosim-server/internal/audit"
	"github.com/neurosim-server/internal/config"
	"github.com/neurosim-server/internal/repository"
)

// Status describes the on-disk state of a lite server installation.
type Status struct {
	DataDir         string
	DataDirExists   bool
	SequenceDB      string
	SequenceDBSize  int64
	EventDB         string
	EventDBSize     int64
	ExportDir       string
	ExportDirExists bool

	// EnvOverrides lists the NEUROSIM_* variables currently set in the
	// environment, in sorted order.
	EnvOverrides []string

	Issues []string
}

// GetStatus inspects the data directory and databases for the given
// configuration.
func GetStatus(cfg *config.LiteConfig) *Status {
	if cfg == nil {
		cfg = config.DefaultLiteConfig()
	}

	status := &Status{
		DataDir:    cfg.DataDir,
		SequenceDB: cfg.SequenceDBPath(),
		EventDB:    cfg.EventDBPath(),
		ExportDir:  cfg.ExportDir(),
		Issues:     []string{},
	}

	if info, err := os.Stat(cfg.DataDir); err == nil && info.IsDir() {
		status.DataDirExists = true
	} else {
		status.Issues = append(status.Issues,
			fmt.Sprintf("Data directory will be created on first run: %s", cfg.DataDir))
	}

	if info, err := os.Stat(status.SequenceDB); err == nil {
		status.SequenceDBSize = info.Size()
	}
	if info, err := os.Stat(status.EventDB); err == nil {
		status.EventDBSize = info.Size()
	}
	if info, err := os.Stat(status.ExportDir); err == nil && info.IsDir() {
		status.ExportDirExists = true
	}

	for _, entry := range os.Environ() {
		if strings.HasPrefix(entry, "NEUROSIM_") {
			status.EnvOverrides = append(status.EnvOverrides, entry)
		}
	}
	sort.Strings(status.EnvOverrides)

	return status
}

// Validate checks the raw environment for values the loader would silently
// reject, then verifies the effective configuration is usable. The boolean is
// false only for hard errors; warnings alone still validate.
func Validate(cfg *config.LiteConfig) (bool, []string) {
	var issues []string
	hardError := false

	checkNumeric := func(name string, parse func(string) error) {
		raw := os.Getenv(name)
		if raw == "" {
			return
		}
		if err := parse(raw); err != nil {
			issues = append(issues,
				fmt.Sprintf("%s=%q is invalid and will be ignored: %v", name, raw, err))
		}
	}

	checkNumeric("NEUROSIM_CACHE_MAX_ITEMS", func(raw string) error {
		_, err := strconv.Atoi(raw)
		return err
	})
	checkNumeric("NEUROSIM_SEED", func(raw string) error {
		_, err := strconv.ParseInt(raw, 10, 64)
		return err
	})
	checkNumeric("NEUROSIM_HTTP_PORT", func(raw string) error {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		if port <= 0 || port > 65535 {
			return fmt.Errorf("port out of range")
		}
		return nil
	})
	checkNumeric("NEUROSIM_NOISE_LEVEL", func(raw string) error {
		noise, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		if noise < 0 || noise > 1 {
			return fmt.Errorf("noise level must be in [0,1]")
		}
		return nil
	})
	checkNumeric("NEUROSIM_CACHE_TTL", func(raw string) error {
		_, err := time.ParseDuration(raw)
		return err
	})

	if cfg == nil {
		cfg = config.LoadLiteConfig()
	}

	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		issues = append(issues, fmt.Sprintf("Effective HTTP port is invalid: %d", cfg.HTTPPort))
		hardError = true
	}

	if _, err := os.Stat(cfg.DataDir); os.IsNotExist(err) {
		issues = append(issues,
			fmt.Sprintf("Data directory will be created on first run: %s", cfg.DataDir))
	} else if err != nil {
		issues = append(issues, fmt.Sprintf("Cannot access data directory %s: %v", cfg.DataDir, err))
		hardError = true
	}

	return !hardError, issues
}

// InitDataDir creates the data directory tree and both SQLite databases so
// the first server start does no schema work.
func InitDataDir(cfg *config.LiteConfig) error {
	if cfg == nil {
		cfg = config.LoadLiteConfig()
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	sequences, err := repository.NewSQLiteSequenceRepository(cfg.SequenceDBPath())
	if err != nil {
		return fmt.Errorf("initializing sequence database: %w", err)
	}
	if err := sequences.Close(); err != nil {
		return fmt.Errorf("closing sequence database: %w", err)
	}

	events, err := audit.NewSQLiteStore(cfg.EventDBPath())
	if err != nil {
		return fmt.Errorf("initializing event database: %w", err)
	}
	if err := events.Close(); err != nil {
		return fmt.Errorf("closing event database: %w", err)
	}

	return nil
}
