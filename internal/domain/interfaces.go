package domain

import (
	"context"
	"time"
)

// SequenceRepository defines the interface for temporal sequence persistence.
//
// GetByID fails with ErrNotFound for unknown ids. The query-style lookups
// (GetLatestByFeature, GetByTimeRange) return (nil, nil) when no sequence
// matches: absence there is a normal outcome, not a failure.
type SequenceRepository interface {
	Save(ctx context.Context, sequence *TemporalSequence) error
	GetByID(ctx context.Context, id string) (*TemporalSequence, error)
	GetLatestByFeature(ctx context.Context, patientID, feature string) (*TemporalSequence, error)
	GetByTimeRange(ctx context.Context, patientID string, nt Neurotransmitter, region BrainRegion, start, end time.Time) (*TemporalSequence, error)
	ListByPatient(ctx context.Context, patientID string, limit int) ([]*TemporalSequence, error)
}

// PredictionRequest carries the inputs for an external treatment-response
// prediction.
type PredictionRequest struct {
	PatientID        string             `json:"patient_id"`
	Region           BrainRegion        `json:"region"`
	Neurotransmitter Neurotransmitter   `json:"neurotransmitter"`
	TreatmentEffect  float64            `json:"treatment_effect"`
	Baselines        map[string]float64 `json:"baseline_data,omitempty"`
}

// TreatmentResponsePredictor is the optional external ML collaborator. A nil
// predictor is legal; the simulator then runs unblended.
type TreatmentResponsePredictor interface {
	PredictTreatmentResponse(ctx context.Context, req *PredictionRequest) (*TreatmentPrediction, error)
}

// VisualizationPreprocessor turns engine output into client-ready geometry.
// The engine treats it as opaque; implementations own the coordinate atlas
// and any mesh mapping.
type VisualizationPreprocessor interface {
	PrecomputeSequenceVisualization(sequence *TemporalSequence, focusFeatures []string) (*SequenceVisualization, error)
	PrecomputeCascadeGeometry(result *CascadeResult, timeSteps int) (*CascadeVisualization, error)

	// RegionCoordinate returns the canonical 3D position for a region.
	RegionCoordinate(region BrainRegion) (Coordinate3D, bool)

	// NearestRegion maps an arbitrary coordinate back onto a named region.
	// The match fails when no region lies within the matching threshold.
	NearestRegion(coord Coordinate3D) (BrainRegion, float64, bool)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	GetPredictorConfig() *PredictorConfig
	GetSimulationConfig() *SimulationConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
