package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/neurosim-server/internal/domain"
	"github.com/neurosim-server/internal/middleware"
	"github.com/neurosim-server/internal/service"
)

// Server is the HTTP front of the simulation engine. It exposes the
// temporal operations as a versioned REST surface plus a websocket
// stream for cascade playback.
type Server struct {
	configManager domain.ConfigManager
	temporal      *service.TemporalService
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance around the temporal service.
func NewServer(configManager domain.ConfigManager, temporal *service.TemporalService, logger *logrus.Logger) *Server {
	cfg := configManager.GetConfig()

	if logger == nil {
		logger = logrus.New()
	}

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.AuditLogger())
	router.Use(corsMiddleware())
	if cfg.Server.WriteTimeout > 0 {
		router.Use(middleware.RequestTimeout(cfg.Server.WriteTimeout))
	}

	server := &Server{
		configManager: configManager,
		temporal:      temporal,
		logger:        logger,
		router:        router,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Router exposes the configured handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.handleHealth)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/sequences", s.handleGenerateSequence)
		v1.GET("/sequences/:id", s.handleGetSequence)
		v1.GET("/patients/:id/sequences", s.handleListSequences)
		v1.GET("/patients/:id/analysis", s.handleAnalyzeLevels)
		v1.GET("/patients/:id/events", s.handleListEvents)
		v1.POST("/treatments/simulate", s.handleSimulateTreatment)
		v1.GET("/visualizations/sequences/:id", s.handleSequenceVisualization)
		v1.GET("/visualizations/cascade", s.handleCascadeVisualization)
		v1.GET("/visualizations/cascade/stream", s.handleCascadeStream)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "neurosim-server",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	})
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Correlation-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Correlation-ID")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
