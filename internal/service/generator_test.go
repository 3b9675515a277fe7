package service

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurosim-server/internal/domain"
)

func makeTimestamps(n int) []time.Time {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ts := make([]time.Time, n)
	for i := range ts {
		ts[i] = start.Add(time.Duration(i) * 6 * time.Hour)
	}
	return ts
}

func newTestGenerator(baselines *BaselineStore, opts ...GeneratorOption) *SequenceGenerator {
	receptors := DefaultReceptorMap()
	if baselines == nil {
		baselines = NewBaselineStore(receptors)
	}
	return NewSequenceGenerator(receptors, baselines, newTestLogger(), opts...)
}

func TestSequenceGenerator_Validation(t *testing.T) {
	g := newTestGenerator(nil)

	tests := []struct {
		name    string
		params  GenerateParams
		wantErr error
	}{
		{
			name: "invalid region",
			params: GenerateParams{
				PatientID:        "p1",
				Region:           domain.BrainRegion("cerebellum"),
				Neurotransmitter: domain.Serotonin,
				Timestamps:       makeTimestamps(3),
			},
			wantErr: domain.ErrInvalidRegion,
		},
		{
			name: "invalid neurotransmitter",
			params: GenerateParams{
				PatientID:        "p1",
				Region:           domain.Amygdala,
				Neurotransmitter: domain.Neurotransmitter("histamine"),
				Timestamps:       makeTimestamps(3),
			},
			wantErr: domain.ErrInvalidNeurotransmitter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Generate(tt.params)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr))
		})
	}

	t.Run("missing patient", func(t *testing.T) {
		_, err := g.Generate(GenerateParams{
			Region:           domain.Amygdala,
			Neurotransmitter: domain.Serotonin,
			Timestamps:       makeTimestamps(3),
		})
		assert.Error(t, err)
	})

	t.Run("no timestamps", func(t *testing.T) {
		_, err := g.Generate(GenerateParams{
			PatientID:        "p1",
			Region:           domain.Amygdala,
			Neurotransmitter: domain.Serotonin,
		})
		assert.Error(t, err)
	})

	t.Run("negative noise", func(t *testing.T) {
		_, err := g.Generate(GenerateParams{
			PatientID:        "p1",
			Region:           domain.Amygdala,
			Neurotransmitter: domain.Serotonin,
			Timestamps:       makeTimestamps(3),
			NoiseLevel:       -0.1,
		})
		assert.Error(t, err)
	})
}

func TestSequenceGenerator_ValuesBounded(t *testing.T) {
	g := newTestGenerator(nil)

	// Noise far above the usable range still cannot push values out of
	// bounds.
	seq, err := g.Generate(GenerateParams{
		PatientID:        "p1",
		Region:           domain.PrefrontalCortex,
		Neurotransmitter: domain.Serotonin,
		Timestamps:       makeTimestamps(200),
		NoiseLevel:       3.0,
	})
	require.NoError(t, err)

	for t0, row := range seq.Values {
		for f, v := range row {
			assert.GreaterOrEqual(t, v, 0.0, "value[%d][%d]", t0, f)
			assert.LessOrEqual(t, v, 1.0, "value[%d][%d]", t0, f)
		}
	}
}

func TestSequenceGenerator_ZeroNoiseDeterministic(t *testing.T) {
	g := newTestGenerator(nil)

	params := GenerateParams{
		PatientID:        "p1",
		Region:           domain.Hippocampus,
		Neurotransmitter: domain.Serotonin,
		Timestamps:       makeTimestamps(10),
		NoiseLevel:       0,
	}

	first, err := g.Generate(params)
	require.NoError(t, err)
	second, err := g.Generate(params)
	require.NoError(t, err)

	// The first sample sits exactly on the resting baseline.
	baseline := NewBaselineStore(DefaultReceptorMap()).Baseline(domain.Hippocampus, domain.Serotonin)
	assert.Equal(t, baseline, first.Values[0][0])

	// Zero noise means the whole matrix is reproducible.
	assert.Equal(t, first.Values, second.Values)
	assert.Equal(t, first.Features, second.Features)
}

func TestSequenceGenerator_ZeroNoiseHoldsBaseline(t *testing.T) {
	baselines := NewBaselineStoreFromValues(map[domain.BrainRegion]map[domain.Neurotransmitter]float64{
		domain.Hippocampus: {domain.Serotonin: 0.5},
	})
	g := newTestGenerator(baselines)

	seq, err := g.Generate(GenerateParams{
		PatientID:        "p1",
		Region:           domain.Hippocampus,
		Neurotransmitter: domain.Serotonin,
		Timestamps:       makeTimestamps(5),
		NoiseLevel:       0,
	})
	require.NoError(t, err)

	// Starting on the attractor with no noise, the walk never leaves it.
	for i := 0; i < 5; i++ {
		assert.InDelta(t, 0.5, seq.Values[i][0], 1e-12, "step %d", i)
	}
}

func TestSequenceGenerator_ConvergesWithoutOvershoot(t *testing.T) {
	baselines := NewBaselineStoreFromValues(map[domain.BrainRegion]map[domain.Neurotransmitter]float64{
		domain.Hippocampus: {domain.Serotonin: 0.7},
	})
	g := newTestGenerator(baselines)

	target := 0.5
	seq, err := g.Generate(GenerateParams{
		PatientID:        "p1",
		Region:           domain.Hippocampus,
		Neurotransmitter: domain.Serotonin,
		Timestamps:       makeTimestamps(20),
		NoiseLevel:       0,
		TargetLevel:      &target,
	})
	require.NoError(t, err)

	primary, ok := seq.FeatureColumn(domain.Serotonin.String())
	require.True(t, ok)

	assert.InDelta(t, 0.7, primary[0], 1e-12)
	for i := 1; i < len(primary); i++ {
		assert.Less(t, primary[i], primary[i-1], "step %d should keep descending", i)
		assert.GreaterOrEqual(t, primary[i], target, "step %d overshot the attractor", i)
	}
	assert.InDelta(t, target, primary[len(primary)-1], 0.001)
}

func TestSequenceGenerator_SecondaryFeatures(t *testing.T) {
	g := newTestGenerator(nil)
	receptors := DefaultReceptorMap()
	baselines := NewBaselineStore(receptors)

	seq, err := g.Generate(GenerateParams{
		PatientID:        "p1",
		Region:           domain.PrefrontalCortex,
		Neurotransmitter: domain.Dopamine,
		Timestamps:       makeTimestamps(8),
		NoiseLevel:       0,
	})
	require.NoError(t, err)

	require.NotEmpty(t, seq.Features)
	assert.Equal(t, domain.Dopamine.String(), seq.Features[0], "primary feature leads")

	// Every secondary has receptor presence at the region, in canonical
	// order after the primary.
	for _, feature := range seq.Features[1:] {
		nt := domain.Neurotransmitter(feature)
		assert.True(t, receptors.HasReceptors(domain.PrefrontalCortex, nt), "feature %s has no receptors", feature)
		assert.NotEqual(t, seq.Features[0], feature)
	}

	// With zero noise the primary holds its baseline, so each secondary
	// holds its dampened baseline.
	for col, feature := range seq.Features[1:] {
		nt := domain.Neurotransmitter(feature)
		want := baselines.Baseline(domain.PrefrontalCortex, nt) * secondaryBaselineWeight
		for step := 0; step < 8; step++ {
			assert.InDelta(t, clamp01(want), seq.Values[step][col+1], 1e-12,
				"feature %s step %d", feature, step)
		}
	}
}

func TestSequenceGenerator_SecondaryTracksPrimary(t *testing.T) {
	baselines := NewBaselineStoreFromValues(map[domain.BrainRegion]map[domain.Neurotransmitter]float64{
		domain.PrefrontalCortex: {domain.Serotonin: 0.7},
	})
	g := newTestGenerator(baselines)
	receptors := DefaultReceptorMap()

	// Dragging the primary downward moves positively correlated secondaries
	// with it.
	target := 0.3
	seq, err := g.Generate(GenerateParams{
		PatientID:        "p1",
		Region:           domain.PrefrontalCortex,
		Neurotransmitter: domain.Serotonin,
		Timestamps:       makeTimestamps(12),
		NoiseLevel:       0,
		TargetLevel:      &target,
	})
	require.NoError(t, err)
	require.Greater(t, len(seq.Features), 1)

	secondary := domain.Neurotransmitter(seq.Features[1])
	correlation := receptors.Affinity(secondary, domain.PrefrontalCortex) * affinityCorrelationScale
	require.Greater(t, correlation, 0.0)

	col, ok := seq.FeatureColumn(seq.Features[1])
	require.True(t, ok)
	assert.Greater(t, col[0], col[len(col)-1], "secondary should fall with the primary")
}

func TestSequenceGenerator_SeededReproducibility(t *testing.T) {
	params := GenerateParams{
		PatientID:        "p1",
		Region:           domain.Striatum,
		Neurotransmitter: domain.GABA,
		Timestamps:       makeTimestamps(30),
		NoiseLevel:       0.2,
	}

	a, err := newTestGenerator(nil, WithRandSource(rand.NewSource(42))).Generate(params)
	require.NoError(t, err)
	b, err := newTestGenerator(nil, WithRandSource(rand.NewSource(42))).Generate(params)
	require.NoError(t, err)

	assert.Equal(t, a.Values, b.Values)
}

func TestSequenceGenerator_Metadata(t *testing.T) {
	g := newTestGenerator(nil)

	target := 0.8
	seq, err := g.Generate(GenerateParams{
		PatientID:        "p1",
		Region:           domain.Amygdala,
		Neurotransmitter: domain.Serotonin,
		Timestamps:       makeTimestamps(4),
		NoiseLevel:       0.1,
		TargetLevel:      &target,
		Metadata:         map[string]interface{}{"medication": "sertraline"},
	})
	require.NoError(t, err)

	assert.Equal(t, 0.1, seq.Metadata["noise_level"])
	assert.Equal(t, 0.4, seq.Metadata["baseline"])
	assert.Equal(t, 0.8, seq.Metadata["target_level"])
	assert.Equal(t, "sertraline", seq.Metadata["medication"])
	assert.NotEmpty(t, seq.ID)
	assert.Equal(t, domain.Amygdala, seq.Region)
	assert.Equal(t, domain.Serotonin, seq.Neurotransmitter)
}
