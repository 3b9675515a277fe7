package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/neurosim-server/internal/audit"
	"github.com/neurosim-server/internal/cache"
	"github.com/neurosim-server/internal/domain"
)

// Fallback operation defaults, used when the simulation config leaves a knob
// unset.
const (
	fallbackRangeDays    = 30
	fallbackStepHours    = 6
	fallbackSimDays      = 14
	fallbackNoiseLevel   = 0.1
	fallbackCascadeDepth = 3
	fallbackTimeSteps    = 10
)

// TemporalServiceConfig wires the orchestrator's collaborators. Sequences is
// required. Events, Predictor and Analyses are optional: a nil event store
// skips audit recording, a nil predictor runs simulations unblended, and a
// nil cache disables analysis memoization. A nil Visualizer disables the two
// visualization operations.
type TemporalServiceConfig struct {
	Receptors  *ReceptorMap
	Baselines  *BaselineStore
	Sequences  domain.SequenceRepository
	Events     audit.Store
	Predictor  domain.TreatmentResponsePredictor
	Visualizer domain.VisualizationPreprocessor
	Analyses   *cache.AnalysisCache
	Simulation domain.SimulationConfig
	Logger     *logrus.Logger
}

// TemporalService orchestrates the neurotransmitter dynamics engine behind
// the exposed operations: sequence generation, level analysis, treatment
// simulation and visualization preparation.
type TemporalService struct {
	logger     *logrus.Logger
	receptors  *ReceptorMap
	baselines  *BaselineStore
	generator  *SequenceGenerator
	cascade    *CascadeEngine
	analyzer   *PatternAnalyzer
	simulator  *TreatmentSimulator
	sequences  domain.SequenceRepository
	events     audit.Store
	predictor  domain.TreatmentResponsePredictor
	visualizer domain.VisualizationPreprocessor
	analyses   *cache.AnalysisCache
	defaults   domain.SimulationConfig
}

// NewTemporalService creates the orchestrator and its engine components.
func NewTemporalService(cfg TemporalServiceConfig) (*TemporalService, error) {
	if cfg.Sequences == nil {
		return nil, fmt.Errorf("temporal service: sequence repository is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}

	receptors := cfg.Receptors
	if receptors == nil {
		receptors = DefaultReceptorMap()
	}

	baselines := cfg.Baselines
	if baselines == nil {
		baselines = NewBaselineStore(receptors)
	}

	defaults := cfg.Simulation
	if defaults.DefaultRangeDays <= 0 {
		defaults.DefaultRangeDays = fallbackRangeDays
	}
	if defaults.DefaultStepHours <= 0 {
		defaults.DefaultStepHours = fallbackStepHours
	}
	if defaults.DefaultSimDays <= 0 {
		defaults.DefaultSimDays = fallbackSimDays
	}
	if defaults.DefaultNoiseLevel <= 0 {
		defaults.DefaultNoiseLevel = fallbackNoiseLevel
	}
	if defaults.CascadeMaxDepth <= 0 {
		defaults.CascadeMaxDepth = fallbackCascadeDepth
	}

	var generatorOpts []GeneratorOption
	if defaults.Seed != 0 {
		generatorOpts = append(generatorOpts, WithRandSource(rand.NewSource(defaults.Seed)))
	}
	generator := NewSequenceGenerator(receptors, baselines, logger, generatorOpts...)

	var cascadeOpts []CascadeOption
	if defaults.AccumulateRevisits {
		cascadeOpts = append(cascadeOpts, WithRevisitAccumulation())
	}
	cascade := NewCascadeEngine(receptors, logger, cascadeOpts...)

	analyzer := NewPatternAnalyzer(logger)
	simulator := NewTreatmentSimulator(receptors, baselines, generator, cascade, logger)

	return &TemporalService{
		logger:     logger,
		receptors:  receptors,
		baselines:  baselines,
		generator:  generator,
		cascade:    cascade,
		analyzer:   analyzer,
		simulator:  simulator,
		sequences:  cfg.Sequences,
		events:     cfg.Events,
		predictor:  cfg.Predictor,
		visualizer: cfg.Visualizer,
		analyses:   cfg.Analyses,
		defaults:   defaults,
	}, nil
}

// Receptors exposes the receptor atlas for read-only inspection.
func (s *TemporalService) Receptors() *ReceptorMap {
	return s.receptors
}

// Baselines exposes the resting baseline store.
func (s *TemporalService) Baselines() *BaselineStore {
	return s.baselines
}

// GenerateSeriesRequest describes a historical series generation request.
// Zero values select the configured defaults.
type GenerateSeriesRequest struct {
	PatientID        string
	Region           domain.BrainRegion
	Neurotransmitter domain.Neurotransmitter
	TimeRangeDays    int
	TimeStepHours    int
	NoiseLevel       *float64
}

// GenerateTimeSeries synthesizes and persists a concentration series covering
// the trailing time range, sampled at the step interval. The saved sequence
// is returned; an audit event is recorded best-effort.
func (s *TemporalService) GenerateTimeSeries(ctx context.Context, req GenerateSeriesRequest) (*domain.TemporalSequence, error) {
	rangeDays := req.TimeRangeDays
	if rangeDays <= 0 {
		rangeDays = s.defaults.DefaultRangeDays
	}
	stepHours := req.TimeStepHours
	if stepHours <= 0 {
		stepHours = s.defaults.DefaultStepHours
	}
	noise := s.defaults.DefaultNoiseLevel
	if req.NoiseLevel != nil {
		noise = *req.NoiseLevel
	}

	now := time.Now().UTC()
	sequence, err := s.generator.Generate(GenerateParams{
		PatientID:        req.PatientID,
		Region:           req.Region,
		Neurotransmitter: req.Neurotransmitter,
		Timestamps:       trailingTimestamps(now, rangeDays, stepHours),
		NoiseLevel:       noise,
		Metadata: map[string]interface{}{
			"time_range_days": rangeDays,
			"time_step_hours": stepHours,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := s.sequences.Save(ctx, sequence); err != nil {
		return nil, fmt.Errorf("save generated sequence: %w", err)
	}

	s.invalidateAnalyses(req.PatientID)
	s.recordEvent(ctx, &domain.TemporalEvent{
		PatientID: req.PatientID,
		Type:      domain.EventSequenceGenerated,
		Timestamp: now,
		Metadata: map[string]interface{}{
			"sequence_id":      sequence.ID,
			"region":           req.Region.String(),
			"neurotransmitter": req.Neurotransmitter.String(),
			"time_range_days":  rangeDays,
			"time_step_hours":  stepHours,
		},
	})

	s.logger.WithFields(logrus.Fields{
		"sequence_id": sequence.ID,
		"patient_id":  req.PatientID,
		"points":      len(sequence.Timestamps),
	}).Info("Generated time series")

	return sequence, nil
}

// AnalyzeLevels analyzes the most recent stored sequence carrying the
// neurotransmitter as a feature. It returns (nil, nil) when the patient has
// no matching sequence: absence of history is a normal outcome.
func (s *TemporalService) AnalyzeLevels(ctx context.Context, patientID string, region domain.BrainRegion, nt domain.Neurotransmitter) (*domain.PatternAnalysis, error) {
	if !region.IsValid() {
		return nil, fmt.Errorf("analyze levels: %w: %s", domain.ErrInvalidRegion, region)
	}
	if !nt.IsValid() {
		return nil, fmt.Errorf("analyze levels: %w: %s", domain.ErrInvalidNeurotransmitter, nt)
	}
	if patientID == "" {
		return nil, fmt.Errorf("analyze levels: %w", domain.NewValidationError("patient_id", "is required", patientID))
	}

	if s.analyses != nil {
		if cached := s.analyses.Get(patientID, region, nt); cached != nil {
			s.logger.WithFields(logrus.Fields{
				"patient_id":       patientID,
				"region":           region.String(),
				"neurotransmitter": nt.String(),
			}).Debug("Analysis served from cache")
			return cached, nil
		}
	}

	sequence, err := s.sequences.GetLatestByFeature(ctx, patientID, nt.String())
	if err != nil {
		return nil, fmt.Errorf("analyze levels: %w", err)
	}
	if sequence == nil {
		s.logger.WithFields(logrus.Fields{
			"patient_id":       patientID,
			"neurotransmitter": nt.String(),
		}).Debug("No sequence history to analyze")
		return nil, nil
	}

	analysis, err := s.analyzer.Analyze(sequence)
	if err != nil {
		return nil, fmt.Errorf("analyze levels: %w", err)
	}

	if s.analyses != nil {
		s.analyses.Put(patientID, region, nt, analysis)
	}

	return analysis, nil
}

// SimulateTreatmentRequest describes a treatment simulation request. Zero
// values select the configured defaults.
type SimulateTreatmentRequest struct {
	PatientID              string
	Medication             string
	Region                 domain.BrainRegion
	TargetNeurotransmitter domain.Neurotransmitter
	EffectMagnitude        float64
	SimulationDays         int
	TimeStepHours          int
	NoiseLevel             *float64
}

// SimulateTreatment runs the full treatment pipeline: optional external
// response blending, direct effect weighting, cascade propagation and a
// projected sequence per affected neurotransmitter. All sequences are saved
// and a medication_effect event is recorded best-effort.
func (s *TemporalService) SimulateTreatment(ctx context.Context, req SimulateTreatmentRequest) (*SimulationOutcome, error) {
	simDays := req.SimulationDays
	if simDays <= 0 {
		simDays = s.defaults.DefaultSimDays
	}
	stepHours := req.TimeStepHours
	if stepHours <= 0 {
		stepHours = s.defaults.DefaultStepHours
	}
	noise := s.defaults.DefaultNoiseLevel
	if req.NoiseLevel != nil {
		noise = *req.NoiseLevel
	}

	prediction := s.fetchPrediction(ctx, req)

	now := time.Now().UTC()
	outcome, err := s.simulator.Simulate(SimulateParams{
		PatientID:              req.PatientID,
		Medication:             req.Medication,
		Region:                 req.Region,
		TargetNeurotransmitter: req.TargetNeurotransmitter,
		EffectMagnitude:        req.EffectMagnitude,
		Timestamps:             projectedTimestamps(now, simDays, stepHours),
		NoiseLevel:             noise,
		Prediction:             prediction,
	})
	if err != nil {
		return nil, err
	}

	for nt, sequence := range outcome.Sequences {
		if err := s.sequences.Save(ctx, sequence); err != nil {
			return nil, fmt.Errorf("save simulated sequence for %s: %w", nt, err)
		}
	}

	s.invalidateAnalyses(req.PatientID)
	s.recordEvent(ctx, outcome.Event)

	s.logger.WithFields(logrus.Fields{
		"patient_id": req.PatientID,
		"medication": req.Medication,
		"primary":    outcome.Primary.String(),
		"sequences":  len(outcome.Sequences),
		"blended":    outcome.Blended,
	}).Info("Simulated treatment")

	return outcome, nil
}

// GetVisualization prepares a stored sequence for client-side rendering,
// optionally narrowed to a feature subset.
func (s *TemporalService) GetVisualization(ctx context.Context, sequenceID string, focusFeatures []string) (*domain.SequenceVisualization, error) {
	if s.visualizer == nil {
		return nil, fmt.Errorf("get visualization: preprocessor not configured")
	}

	sequence, err := s.sequences.GetByID(ctx, sequenceID)
	if err != nil {
		return nil, fmt.Errorf("get visualization: %w", err)
	}

	viz, err := s.visualizer.PrecomputeSequenceVisualization(sequence, focusFeatures)
	if err != nil {
		return nil, fmt.Errorf("get visualization: %w", err)
	}
	return viz, nil
}

// GetCascadeVisualization runs a unit-magnitude cascade from the start region
// and stages it into renderable frames.
func (s *TemporalService) GetCascadeVisualization(ctx context.Context, patientID string, startRegion domain.BrainRegion, nt domain.Neurotransmitter, timeSteps int) (*domain.CascadeVisualization, error) {
	if s.visualizer == nil {
		return nil, fmt.Errorf("get cascade visualization: preprocessor not configured")
	}
	if timeSteps <= 0 {
		timeSteps = fallbackTimeSteps
	}

	result, err := s.cascade.Propagate(startRegion, nt, 1.0, s.defaults.CascadeMaxDepth)
	if err != nil {
		return nil, fmt.Errorf("get cascade visualization: %w", err)
	}

	viz, err := s.visualizer.PrecomputeCascadeGeometry(result, timeSteps)
	if err != nil {
		return nil, fmt.Errorf("get cascade visualization: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"patient_id":   patientID,
		"start_region": startRegion.String(),
		"regions":      len(viz.Nodes),
		"time_steps":   timeSteps,
	}).Debug("Prepared cascade visualization")

	return viz, nil
}

// GetSequence loads a stored sequence by identifier.
func (s *TemporalService) GetSequence(ctx context.Context, sequenceID string) (*domain.TemporalSequence, error) {
	if sequenceID == "" {
		return nil, fmt.Errorf("get sequence: %w", domain.NewValidationError("sequence_id", "is required", sequenceID))
	}
	return s.sequences.GetByID(ctx, sequenceID)
}

// ListSequences returns a patient's stored sequences, newest first.
func (s *TemporalService) ListSequences(ctx context.Context, patientID string, limit int) ([]*domain.TemporalSequence, error) {
	if patientID == "" {
		return nil, fmt.Errorf("list sequences: %w", domain.NewValidationError("patient_id", "is required", patientID))
	}
	return s.sequences.ListByPatient(ctx, patientID, limit)
}

// ListEvents returns a patient's recorded events, newest first. Without an
// event store it returns an empty list.
func (s *TemporalService) ListEvents(ctx context.Context, patientID string, limit, offset int) ([]*domain.TemporalEvent, error) {
	if s.events == nil {
		return nil, nil
	}
	return s.events.ListByPatient(ctx, patientID, limit, offset)
}

// fetchPrediction asks the external predictor for a response estimate. Any
// failure degrades to an unblended simulation.
func (s *TemporalService) fetchPrediction(ctx context.Context, req SimulateTreatmentRequest) *domain.TreatmentPrediction {
	if s.predictor == nil {
		return nil
	}

	target := req.TargetNeurotransmitter
	if target == "" {
		target = domain.Serotonin
	}

	baselineData := make(map[string]float64)
	for _, candidate := range domain.AllNeurotransmitters() {
		baselineData[candidate.String()] = s.baselines.Baseline(req.Region, candidate)
	}

	prediction, err := s.predictor.PredictTreatmentResponse(ctx, &domain.PredictionRequest{
		PatientID:        req.PatientID,
		Region:           req.Region,
		Neurotransmitter: target,
		TreatmentEffect:  req.EffectMagnitude,
		Baselines:        baselineData,
	})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"patient_id": req.PatientID,
			"medication": req.Medication,
		}).Warn("Treatment response prediction unavailable, running unblended")
		return nil
	}
	return prediction
}

// recordEvent appends an audit event when a store is configured. Failures are
// logged and swallowed: the audit trail never blocks the primary operation.
func (s *TemporalService) recordEvent(ctx context.Context, event *domain.TemporalEvent) {
	if s.events == nil || event == nil {
		return
	}
	if err := s.events.Save(ctx, event); err != nil {
		s.logger.WithError(err).WithField("event_type", event.Type).Warn("Failed to record temporal event")
	}
}

func (s *TemporalService) invalidateAnalyses(patientID string) {
	if s.analyses == nil {
		return
	}
	s.analyses.InvalidatePatient(patientID)
}

// trailingTimestamps samples the window ending now, inclusive of both ends.
func trailingTimestamps(now time.Time, rangeDays, stepHours int) []time.Time {
	step := time.Duration(stepHours) * time.Hour
	count := rangeDays*24/stepHours + 1
	start := now.Add(-time.Duration(rangeDays) * 24 * time.Hour)

	timestamps := make([]time.Time, count)
	for i := range timestamps {
		timestamps[i] = start.Add(time.Duration(i) * step)
	}
	return timestamps
}

// projectedTimestamps samples the window starting now, inclusive of both
// ends.
func projectedTimestamps(now time.Time, days, stepHours int) []time.Time {
	step := time.Duration(stepHours) * time.Hour
	count := days*24/stepHours + 1

	timestamps := make([]time.Time, count)
	for i := range timestamps {
		timestamps[i] = now.Add(time.Duration(i) * step)
	}
	return timestamps
}
