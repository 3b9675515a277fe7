package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/neurosim-server/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	// Set configuration file name and paths
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/neurosim-server/")

	// Set environment variable prefix and enable automatic env binding
	viper.SetEnvPrefix("NEUROSIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	m.setDefaults()

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	// Unmarshal configuration into struct
	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.tls_enabled", false)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.database", "neurosim")
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("database.migrations_path", "./migrations")

	// Cache defaults
	viper.SetDefault("cache.redis_url", "redis://localhost:6379")
	viper.SetDefault("cache.default_ttl", "24h")
	viper.SetDefault("cache.max_retries", 3)
	viper.SetDefault("cache.pool_size", 10)
	viper.SetDefault("cache.pool_timeout", "4s")

	// Predictor defaults. An empty base URL leaves the predictor disabled.
	viper.SetDefault("predictor.base_url", "")
	viper.SetDefault("predictor.timeout", "30s")
	viper.SetDefault("predictor.rate_limit", 10)
	viper.SetDefault("predictor.rate_burst", 1)
	viper.SetDefault("predictor.cache_size", 1000)
	viper.SetDefault("predictor.retry_count", 3)

	// Simulation defaults
	viper.SetDefault("simulation.seed", 0)
	viper.SetDefault("simulation.default_noise_level", 0.1)
	viper.SetDefault("simulation.default_range_days", 30)
	viper.SetDefault("simulation.default_step_hours", 6)
	viper.SetDefault("simulation.default_simulation_days", 14)
	viper.SetDefault("simulation.cascade_max_depth", 3)
	viper.SetDefault("simulation.accumulate_revisits", false)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
	viper.SetDefault("logging.compress", true)
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetPredictorConfig returns the treatment-response predictor configuration
func (m *Manager) GetPredictorConfig() *domain.PredictorConfig {
	return &m.config.Predictor
}

// GetSimulationConfig returns the simulation engine configuration
func (m *Manager) GetSimulationConfig() *domain.SimulationConfig {
	return &m.config.Simulation
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	// Validate database configuration
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if config.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if config.Database.Username == "" {
		return fmt.Errorf("database username is required")
	}

	// Validate cache configuration
	if config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required")
	}

	// Validate simulation configuration
	sim := config.Simulation
	if sim.DefaultNoiseLevel < 0 || sim.DefaultNoiseLevel > 1 {
		return fmt.Errorf("default noise level must be within [0, 1], got %f", sim.DefaultNoiseLevel)
	}
	if sim.DefaultStepHours < 1 || sim.DefaultStepHours > 24 {
		return fmt.Errorf("default step hours must be within [1, 24], got %d", sim.DefaultStepHours)
	}
	if sim.DefaultRangeDays <= 0 {
		return fmt.Errorf("default range days must be positive, got %d", sim.DefaultRangeDays)
	}
	if sim.DefaultSimDays <= 0 {
		return fmt.Errorf("default simulation days must be positive, got %d", sim.DefaultSimDays)
	}
	if sim.CascadeMaxDepth < 0 {
		return fmt.Errorf("cascade max depth cannot be negative, got %d", sim.CascadeMaxDepth)
	}

	// Validate predictor configuration when enabled
	if config.Predictor.BaseURL != "" {
		if config.Predictor.RateLimit < 0 {
			return fmt.Errorf("predictor rate limit cannot be negative, got %d", config.Predictor.RateLimit)
		}
		if config.Predictor.RetryCount < 0 {
			return fmt.Errorf("predictor retry count cannot be negative, got %d", config.Predictor.RetryCount)
		}
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.config.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

// GetRedisConnectionString returns the Redis connection string
func (m *Manager) GetRedisConnectionString() string {
	return m.config.Cache.RedisURL
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(viper.GetString("environment")) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(viper.GetString("environment"))
	return env == "development" || env == "dev" || env == ""
}
