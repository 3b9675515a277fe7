// Package main provides the lightweight entry point for the simulation
// server. This version requires no external services: sequences and events
// live in SQLite and predictions stay unblended.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/neurosim-server/internal/api"
	"github.com/neurosim-server/internal/audit"
	"github.com/neurosim-server/internal/cache"
	"github.com/neurosim-server/internal/config"
	"github.com/neurosim-server/internal/domain"
	"github.com/neurosim-server/internal/repository"
	"github.com/neurosim-server/internal/service"
	"github.com/neurosim-server/internal/setup"
	"github.com/neurosim-server/pkg/neuroviz"
)

func main() {
	// Check for setup subcommand
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		cli := setup.NewCLI(config.LoadLiteConfig())
		if err := cli.Run(os.Args[2:]); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		return
	}

	// Load lightweight configuration
	cfg := config.LoadLiteConfig()
	logger := newLogger(cfg)

	logger.WithFields(logrus.Fields{
		"data_dir": cfg.DataDir,
		"host":     cfg.HTTPHost,
		"port":     cfg.HTTPPort,
	}).Info("Starting simulation server (lite)")

	if err := cfg.EnsureDataDir(); err != nil {
		logger.WithError(err).Fatal("Failed to create data directory")
	}

	sequences, err := repository.NewSQLiteSequenceRepository(cfg.SequenceDBPath())
	if err != nil {
		logger.WithError(err).Fatal("Failed to open sequence database")
	}
	defer sequences.Close()

	events, err := audit.NewSQLiteStore(cfg.EventDBPath())
	if err != nil {
		logger.WithError(err).Fatal("Failed to open event database")
	}
	defer events.Close()

	receptors := service.DefaultReceptorMap()
	temporal, err := service.NewTemporalService(service.TemporalServiceConfig{
		Receptors:  receptors,
		Sequences:  sequences,
		Events:     events,
		Visualizer: neuroviz.New(neuroviz.WithConnectivity(receptors.ConnectivityMatrix())),
		Analyses:   cache.NewAnalysisCache(cfg.CacheMaxItems, cfg.CacheTTL, logger),
		Simulation: domain.SimulationConfig{
			Seed:              cfg.Seed,
			DefaultNoiseLevel: cfg.NoiseLevel,
		},
		Logger: logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create temporal service")
	}

	server := api.NewServer(liteConfigManager(cfg), temporal, logger)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Simulation server (lite) stopped")
}

// liteConfigManager adapts the environment-derived lite settings into the
// config interface the HTTP server expects.
func liteConfigManager(cfg *config.LiteConfig) domain.ConfigManager {
	return config.NewStatic(domain.Config{
		Server: domain.ServerConfig{
			Host:         cfg.HTTPHost,
			Port:         cfg.HTTPPort,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Simulation: domain.SimulationConfig{
			Seed:              cfg.Seed,
			DefaultNoiseLevel: cfg.NoiseLevel,
		},
		Logging: domain.LoggingConfig{
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
		},
	}, "")
}

func newLogger(cfg *config.LiteConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.LogFormat == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}
