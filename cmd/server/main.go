package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/neurosim-server/internal/api"
	"github.com/neurosim-server/internal/audit"
	"github.com/neurosim-server/internal/cache"
	"github.com/neurosim-server/internal/config"
	"github.com/neurosim-server/internal/database"
	"github.com/neurosim-server/internal/domain"
	"github.com/neurosim-server/internal/repository"
	"github.com/neurosim-server/internal/service"
	"github.com/neurosim-server/pkg/external"
	"github.com/neurosim-server/pkg/neuroviz"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbConfig := database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		Database:    cfg.Database.Database,
		Username:    cfg.Database.Username,
		Password:    cfg.Database.Password,
		MaxConns:    int32(cfg.Database.MaxOpenConns),
		MinConns:    int32(cfg.Database.MaxIdleConns),
		MaxConnLife: cfg.Database.ConnMaxLifetime,
		SSLMode:     cfg.Database.SSLMode,
	}

	// Apply schema migrations before anything touches the pool
	runner, err := database.NewMigrationRunner(dbConfig.URL(), cfg.Database.MigrationsPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create migration runner")
	}
	if err := runner.Up(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to apply migrations")
	}
	if err := runner.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close migration runner")
	}

	db, err := database.NewConnection(ctx, dbConfig, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	sequences := repository.NewPostgresSequenceRepository(db.Pool, logger)

	events, err := audit.NewPostgresStoreFromURL(dbConfig.URL())
	if err != nil {
		logger.WithError(err).Fatal("Failed to open event store")
	}
	defer events.Close()

	receptors := service.DefaultReceptorMap()
	temporal, err := service.NewTemporalService(service.TemporalServiceConfig{
		Receptors:  receptors,
		Sequences:  sequences,
		Events:     events,
		Predictor:  buildPredictor(cfg, logger),
		Visualizer: neuroviz.New(neuroviz.WithConnectivity(receptors.ConnectivityMatrix())),
		Analyses:   cache.NewAnalysisCache(0, 0, logger),
		Simulation: cfg.Simulation,
		Logger:     logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create temporal service")
	}

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting neurotransmitter simulation server")

	// Create server
	server := api.NewServer(configManager, temporal, logger)

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

	logger.Info("Server stopped")
}

// buildPredictor assembles the optional treatment-response predictor stack:
// HTTP client, circuit breaker, then the two-tier prediction cache. An empty
// base URL disables the predictor and simulations run unblended.
func buildPredictor(cfg *domain.Config, logger *logrus.Logger) domain.TreatmentResponsePredictor {
	if cfg.Predictor.BaseURL == "" {
		logger.Info("Treatment predictor disabled, simulations run unblended")
		return nil
	}

	client := external.NewPredictorClient(cfg.Predictor)
	resilient := external.NewResilientPredictor(client, logger)

	var redisCache *external.CacheClient
	if cfg.Cache.RedisURL != "" {
		cacheClient, err := external.NewCacheClient(cfg.Cache)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, predictions cached in memory only")
		} else {
			redisCache = cacheClient
		}
	}

	cached, err := external.NewCachedPredictor(resilient, external.CachedPredictorConfig{
		MaxMemorySize: cfg.Predictor.CacheSize,
	}, redisCache, logger)
	if err != nil {
		logger.WithError(err).Warn("Prediction cache unavailable, using direct predictor")
		return resilient
	}

	logger.WithFields(logrus.Fields{
		"base_url":   cfg.Predictor.BaseURL,
		"redis_tier": redisCache != nil,
	}).Info("Treatment predictor enabled")

	return cached
}

// newLogger configures the process logger from the logging section.
func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	switch cfg.Output {
	case "stderr":
		logger.SetOutput(os.Stderr)
	case "file":
		if cfg.Filename == "" {
			break
		}
		file, err := os.OpenFile(cfg.Filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.WithError(err).Warn("Could not open log file, using stdout")
			break
		}
		logger.SetOutput(file)
	}

	return logger
}
