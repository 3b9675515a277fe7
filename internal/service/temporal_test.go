package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurosim-server/internal/audit"
	"github.com/neurosim-server/internal/cache"
	"github.com/neurosim-server/internal/domain"
	"github.com/neurosim-server/internal/repository"
	"github.com/neurosim-server/pkg/neuroviz"
)

type serviceFixture struct {
	service *TemporalService
	repo    *repository.MemorySequenceRepository
	events  *audit.MemoryStore
}

func newServiceFixture(t *testing.T, mutate func(*TemporalServiceConfig)) *serviceFixture {
	t.Helper()

	receptors := DefaultReceptorMap()
	repo := repository.NewMemorySequenceRepository()
	events := audit.NewMemoryStore()

	cfg := TemporalServiceConfig{
		Receptors:  receptors,
		Sequences:  repo,
		Events:     events,
		Visualizer: neuroviz.New(neuroviz.WithConnectivity(receptors.ConnectivityMatrix())),
		Analyses:   cache.NewAnalysisCache(0, 0, newTestLogger()),
		Logger:     newTestLogger(),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	service, err := NewTemporalService(cfg)
	require.NoError(t, err)

	return &serviceFixture{service: service, repo: repo, events: events}
}

func zeroNoise() *float64 {
	noise := 0.0
	return &noise
}

func TestNewTemporalService_RequiresRepository(t *testing.T) {
	// Act
	_, err := NewTemporalService(TemporalServiceConfig{})

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sequence repository")
}

func TestTemporalService_GenerateTimeSeries(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()

	// Act
	sequence, err := f.service.GenerateTimeSeries(ctx, GenerateSeriesRequest{
		PatientID:        "patient-001",
		Region:           domain.PrefrontalCortex,
		Neurotransmitter: domain.Serotonin,
		TimeRangeDays:    2,
		TimeStepHours:    6,
		NoiseLevel:       zeroNoise(),
	})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, sequence)
	assert.NotEmpty(t, sequence.ID)
	assert.Len(t, sequence.Timestamps, 2*24/6+1)
	assert.Equal(t, 2, sequence.Metadata["time_range_days"])

	// Zero noise starts exactly at the resting baseline.
	primary, ok := sequence.FeatureColumn(domain.Serotonin.String())
	require.True(t, ok)
	assert.Equal(t, f.service.Baselines().Baseline(domain.PrefrontalCortex, domain.Serotonin), primary[0])
	for _, row := range sequence.Values {
		for _, v := range row {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}

	// The sequence is persisted and the generation is audited.
	stored, err := f.repo.GetByID(ctx, sequence.ID)
	require.NoError(t, err)
	assert.Equal(t, sequence.ID, stored.ID)

	recorded, err := f.events.ListByPatient(ctx, "patient-001", 10, 0)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, domain.EventSequenceGenerated, recorded[0].Type)
	assert.Equal(t, sequence.ID, recorded[0].Metadata["sequence_id"])
}

func TestTemporalService_GenerateTimeSeries_Defaults(t *testing.T) {
	f := newServiceFixture(t, nil)

	// Act: zero values select 30 days at 6 hour steps.
	sequence, err := f.service.GenerateTimeSeries(context.Background(), GenerateSeriesRequest{
		PatientID:        "patient-001",
		Region:           domain.Amygdala,
		Neurotransmitter: domain.Dopamine,
	})

	// Assert
	require.NoError(t, err)
	assert.Len(t, sequence.Timestamps, 30*24/6+1)
	assert.Equal(t, 30, sequence.Metadata["time_range_days"])
	assert.Equal(t, 6, sequence.Metadata["time_step_hours"])
}

func TestTemporalService_GenerateTimeSeries_InvalidRegion(t *testing.T) {
	f := newServiceFixture(t, nil)

	// Act
	_, err := f.service.GenerateTimeSeries(context.Background(), GenerateSeriesRequest{
		PatientID:        "patient-001",
		Region:           domain.BrainRegion("cerebellum"),
		Neurotransmitter: domain.Serotonin,
	})

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidRegion)
	assert.Equal(t, 0, f.repo.Len())
}

func TestTemporalService_AnalyzeLevels_NoHistory(t *testing.T) {
	f := newServiceFixture(t, nil)

	// Act
	analysis, err := f.service.AnalyzeLevels(context.Background(), "ghost", domain.PrefrontalCortex, domain.Serotonin)

	// Assert: absence of history is a normal outcome, not a failure.
	require.NoError(t, err)
	assert.Nil(t, analysis)
}

func TestTemporalService_AnalyzeLevels(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()

	_, err := f.service.GenerateTimeSeries(ctx, GenerateSeriesRequest{
		PatientID:        "patient-002",
		Region:           domain.PrefrontalCortex,
		Neurotransmitter: domain.Serotonin,
		TimeRangeDays:    2,
		TimeStepHours:    6,
		NoiseLevel:       zeroNoise(),
	})
	require.NoError(t, err)

	// Act
	analysis, err := f.service.AnalyzeLevels(ctx, "patient-002", domain.PrefrontalCortex, domain.Serotonin)

	// Assert: a zero-noise series holds its baseline, so the trend is stable.
	require.NoError(t, err)
	require.NotNil(t, analysis)
	assert.Equal(t, "patient-002", analysis.PatientID)
	trend, ok := analysis.Trends[domain.Serotonin.String()]
	require.True(t, ok)
	assert.Equal(t, domain.TrendStable, trend.Direction)
	assert.Equal(t, domain.PatternDirectional, analysis.Pattern)
}

func TestTemporalService_AnalyzeLevels_Cached(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()

	_, err := f.service.GenerateTimeSeries(ctx, GenerateSeriesRequest{
		PatientID:        "patient-003",
		Region:           domain.PrefrontalCortex,
		Neurotransmitter: domain.Serotonin,
		NoiseLevel:       zeroNoise(),
	})
	require.NoError(t, err)

	// Act
	first, err := f.service.AnalyzeLevels(ctx, "patient-003", domain.PrefrontalCortex, domain.Serotonin)
	require.NoError(t, err)
	second, err := f.service.AnalyzeLevels(ctx, "patient-003", domain.PrefrontalCortex, domain.Serotonin)
	require.NoError(t, err)

	// Assert: the second call is served from the cache.
	assert.Same(t, first, second)

	// A new sequence for the patient invalidates the cached analysis.
	_, err = f.service.GenerateTimeSeries(ctx, GenerateSeriesRequest{
		PatientID:        "patient-003",
		Region:           domain.PrefrontalCortex,
		Neurotransmitter: domain.Serotonin,
		NoiseLevel:       zeroNoise(),
	})
	require.NoError(t, err)

	third, err := f.service.AnalyzeLevels(ctx, "patient-003", domain.PrefrontalCortex, domain.Serotonin)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestTemporalService_AnalyzeLevels_Validation(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()

	_, err := f.service.AnalyzeLevels(ctx, "p", domain.BrainRegion("cerebellum"), domain.Serotonin)
	assert.ErrorIs(t, err, domain.ErrInvalidRegion)

	_, err = f.service.AnalyzeLevels(ctx, "p", domain.PrefrontalCortex, domain.Neurotransmitter("histamine"))
	assert.ErrorIs(t, err, domain.ErrInvalidNeurotransmitter)

	_, err = f.service.AnalyzeLevels(ctx, "", domain.PrefrontalCortex, domain.Serotonin)
	assert.Error(t, err)
}

func TestTemporalService_SimulateTreatment(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()

	// Act
	outcome, err := f.service.SimulateTreatment(ctx, SimulateTreatmentRequest{
		PatientID:       "patient-004",
		Medication:      "fluoxetine",
		Region:          domain.Amygdala,
		EffectMagnitude: 1.0,
		SimulationDays:  2,
		TimeStepHours:   6,
		NoiseLevel:      zeroNoise(),
	})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, domain.Serotonin, outcome.Primary)
	assert.False(t, outcome.Blended)
	assert.Equal(t, 1.0, outcome.AdjustedMagnitude)

	// Every affected system's sequence is persisted.
	require.NotEmpty(t, outcome.Sequences)
	for nt, sequence := range outcome.Sequences {
		assert.Len(t, sequence.Timestamps, 2*24/6+1)
		stored, err := f.repo.GetByID(ctx, sequence.ID)
		require.NoError(t, err, "sequence for %s not stored", nt)
		assert.Equal(t, sequence.ID, stored.ID)
	}

	// The medication effect is audited.
	recorded, err := f.events.ListByPatient(ctx, "patient-004", 10, 0)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, domain.EventMedicationEffect, recorded[0].Type)
	assert.Equal(t, "fluoxetine", recorded[0].Metadata["medication"])
}

type fakePredictor struct {
	prediction *domain.TreatmentPrediction
	err        error
	calls      int
}

func (f *fakePredictor) PredictTreatmentResponse(_ context.Context, _ *domain.PredictionRequest) (*domain.TreatmentPrediction, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.prediction, nil
}

func TestTemporalService_SimulateTreatment_Blended(t *testing.T) {
	predictor := &fakePredictor{
		prediction: &domain.TreatmentPrediction{PredictedResponse: 0.9, Confidence: 0.7},
	}
	f := newServiceFixture(t, func(cfg *TemporalServiceConfig) {
		cfg.Predictor = predictor
	})

	// Act
	outcome, err := f.service.SimulateTreatment(context.Background(), SimulateTreatmentRequest{
		PatientID:       "patient-005",
		Medication:      "fluoxetine",
		Region:          domain.Amygdala,
		EffectMagnitude: 0.5,
		SimulationDays:  1,
		NoiseLevel:      zeroNoise(),
	})

	// Assert: 0.5×0.3 + 0.9×0.7 = 0.78.
	require.NoError(t, err)
	assert.Equal(t, 1, predictor.calls)
	assert.True(t, outcome.Blended)
	assert.Equal(t, 0.5, outcome.RawMagnitude)
	assert.InDelta(t, 0.78, outcome.AdjustedMagnitude, 1e-12)
}

func TestTemporalService_SimulateTreatment_PredictorFailure(t *testing.T) {
	predictor := &fakePredictor{err: errors.New("predictor offline")}
	f := newServiceFixture(t, func(cfg *TemporalServiceConfig) {
		cfg.Predictor = predictor
	})

	// Act
	outcome, err := f.service.SimulateTreatment(context.Background(), SimulateTreatmentRequest{
		PatientID:       "patient-006",
		Medication:      "fluoxetine",
		Region:          domain.Amygdala,
		EffectMagnitude: 0.5,
		SimulationDays:  1,
		NoiseLevel:      zeroNoise(),
	})

	// Assert: prediction failures degrade to an unblended run.
	require.NoError(t, err)
	assert.Equal(t, 1, predictor.calls)
	assert.False(t, outcome.Blended)
	assert.Equal(t, 0.5, outcome.AdjustedMagnitude)
}

func TestTemporalService_GetVisualization(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()

	sequence, err := f.service.GenerateTimeSeries(ctx, GenerateSeriesRequest{
		PatientID:        "patient-007",
		Region:           domain.PrefrontalCortex,
		Neurotransmitter: domain.Serotonin,
		TimeRangeDays:    2,
		NoiseLevel:       zeroNoise(),
	})
	require.NoError(t, err)

	// Act
	viz, err := f.service.GetVisualization(ctx, sequence.ID, nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, sequence.ID, viz.SequenceID)
	assert.NotEmpty(t, viz.Series)
	assert.Equal(t, sequence.Features[0], viz.Series[0].Feature)

	// Unknown sequences carry the not-found kind.
	_, err = f.service.GetVisualization(ctx, "missing", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTemporalService_GetVisualization_NoPreprocessor(t *testing.T) {
	f := newServiceFixture(t, func(cfg *TemporalServiceConfig) {
		cfg.Visualizer = nil
	})

	// Act
	_, err := f.service.GetVisualization(context.Background(), "any", nil)

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preprocessor not configured")
}

func TestTemporalService_GetCascadeVisualization(t *testing.T) {
	f := newServiceFixture(t, nil)

	// Act
	viz, err := f.service.GetCascadeVisualization(context.Background(), "patient-008",
		domain.RapheNuclei, domain.Serotonin, 5)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.RapheNuclei, viz.StartRegion)
	assert.Len(t, viz.TimeSteps, 5)
	require.NotEmpty(t, f.service.Receptors().Connections(domain.RapheNuclei))
	assert.NotEmpty(t, viz.Connections)
	require.True(t, len(viz.Nodes) >= 2)

	var foundStart bool
	for _, node := range viz.Nodes {
		if node.Region == domain.RapheNuclei {
			foundStart = true
			assert.Equal(t, 0, node.Depth)
		}
	}
	assert.True(t, foundStart)
}

func TestTemporalService_GetCascadeVisualization_DefaultSteps(t *testing.T) {
	f := newServiceFixture(t, nil)

	// Act
	viz, err := f.service.GetCascadeVisualization(context.Background(), "patient-008",
		domain.RapheNuclei, domain.Serotonin, 0)

	// Assert
	require.NoError(t, err)
	assert.Len(t, viz.TimeSteps, 10)
}

func TestTemporalService_EventStoreAbsent(t *testing.T) {
	f := newServiceFixture(t, func(cfg *TemporalServiceConfig) {
		cfg.Events = nil
	})
	ctx := context.Background()

	// Act: generation works without an audit trail.
	sequence, err := f.service.GenerateTimeSeries(ctx, GenerateSeriesRequest{
		PatientID:        "patient-009",
		Region:           domain.PrefrontalCortex,
		Neurotransmitter: domain.Serotonin,
		NoiseLevel:       zeroNoise(),
	})

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, sequence.ID)

	events, err := f.service.ListEvents(ctx, "patient-009", 10, 0)
	require.NoError(t, err)
	assert.Nil(t, events)
}

type failingEvents struct {
	audit.Store
}

func (failingEvents) Save(context.Context, *domain.TemporalEvent) error {
	return errors.New("event store unavailable")
}

func TestTemporalService_EventStoreFailure(t *testing.T) {
	f := newServiceFixture(t, func(cfg *TemporalServiceConfig) {
		cfg.Events = failingEvents{}
	})

	// Act: audit failures never block the primary operation.
	sequence, err := f.service.GenerateTimeSeries(context.Background(), GenerateSeriesRequest{
		PatientID:        "patient-010",
		Region:           domain.PrefrontalCortex,
		Neurotransmitter: domain.Serotonin,
		NoiseLevel:       zeroNoise(),
	})

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, sequence.ID)
}
