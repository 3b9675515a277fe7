package config

import (
	"fmt"

	"github.com/neurosim-server/internal/domain"
)

// Static is a ConfigManager over a fixed configuration snapshot. The lite
// server assembles one from its environment-derived settings; tests build one
// inline. Reload is a no-op because there is no backing file to re-read.
type Static struct {
	config      domain.Config
	environment string
}

// NewStatic wraps a configuration snapshot. Environment defaults to
// "development".
func NewStatic(cfg domain.Config, environment string) *Static {
	if environment == "" {
		environment = "development"
	}
	return &Static{config: cfg, environment: environment}
}

func (s *Static) GetConfig() *domain.Config                     { return &s.config }
func (s *Static) GetServerConfig() *domain.ServerConfig         { return &s.config.Server }
func (s *Static) GetDatabaseConfig() *domain.DatabaseConfig     { return &s.config.Database }
func (s *Static) GetPredictorConfig() *domain.PredictorConfig   { return &s.config.Predictor }
func (s *Static) GetSimulationConfig() *domain.SimulationConfig { return &s.config.Simulation }

func (s *Static) Reload() error { return nil }

func (s *Static) Validate() error {
	if s.config.Server.Port <= 0 || s.config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", s.config.Server.Port)
	}
	return nil
}

func (s *Static) GetDatabaseConnectionString() string {
	db := s.config.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

func (s *Static) GetRedisConnectionString() string {
	return s.config.Cache.RedisURL
}

func (s *Static) IsProduction() bool  { return s.environment == "production" }
func (s *Static) IsDevelopment() bool { return s.environment == "development" }
