package service

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/neurosim-server/internal/domain"
)

// Sequence synthesis constants. The walk reverts 30% of the way to baseline
// each step; secondary features orbit a dampened baseline and co-move with
// the primary series in proportion to shared receptor affinity.
const (
	meanReversionRate        = 0.3
	secondaryBaselineWeight  = 0.7
	affinityCorrelationScale = 0.8
)

// clamp01 bounds a concentration value to the normalized [0,1] range.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// GenerateParams describes one sequence synthesis request.
type GenerateParams struct {
	PatientID        string
	Region           domain.BrainRegion
	Neurotransmitter domain.Neurotransmitter
	Timestamps       []time.Time
	NoiseLevel       float64

	// TargetLevel redirects the walk's attractor away from the resting
	// baseline, used to model drift toward a treated concentration. The
	// series still starts at the resting baseline. Nil means the attractor
	// is the baseline itself.
	TargetLevel *float64

	// Metadata is merged into the sequence metadata before validation.
	Metadata map[string]interface{}
}

// SequenceGenerator synthesizes multi-feature concentration series as
// mean-reverting random walks. A single generator may serve concurrent
// requests; draws from the shared random source are serialized internally.
type SequenceGenerator struct {
	logger    *logrus.Logger
	receptors *ReceptorMap
	baselines *BaselineStore

	mu  sync.Mutex
	rng *rand.Rand
}

// GeneratorOption customizes a SequenceGenerator.
type GeneratorOption func(*SequenceGenerator)

// WithRandSource replaces the default time-seeded random source, giving
// deterministic noise in tests and replayable simulations.
func WithRandSource(src rand.Source) GeneratorOption {
	return func(g *SequenceGenerator) {
		g.rng = rand.New(src)
	}
}

// NewSequenceGenerator creates a sequence generator.
func NewSequenceGenerator(receptors *ReceptorMap, baselines *BaselineStore, logger *logrus.Logger, opts ...GeneratorOption) *SequenceGenerator {
	g := &SequenceGenerator{
		logger:    logger,
		receptors: receptors,
		baselines: baselines,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Generate synthesizes a temporal sequence for the target neurotransmitter at
// a region. The primary feature follows a mean-reverting walk starting at the
// resting baseline; every other neurotransmitter with receptor presence at
// the region becomes a secondary feature co-moving with the primary in
// proportion to its receptor affinity. All values are clamped to [0,1].
//
// With NoiseLevel of zero the output is fully deterministic and the primary
// series starts exactly at the baseline.
func (g *SequenceGenerator) Generate(params GenerateParams) (*domain.TemporalSequence, error) {
	if !params.Region.IsValid() {
		return nil, fmt.Errorf("generate sequence: %w: %s", domain.ErrInvalidRegion, params.Region)
	}

	if !params.Neurotransmitter.IsValid() {
		return nil, fmt.Errorf("generate sequence: %w: %s", domain.ErrInvalidNeurotransmitter, params.Neurotransmitter)
	}

	if params.PatientID == "" {
		return nil, fmt.Errorf("generate sequence: %w", domain.NewValidationError("patient_id", "is required", params.PatientID))
	}

	if len(params.Timestamps) == 0 {
		return nil, fmt.Errorf("generate sequence: %w", domain.NewValidationError("timestamps", "at least one timestamp is required", len(params.Timestamps)))
	}

	if params.NoiseLevel < 0 {
		return nil, fmt.Errorf("generate sequence: %w", domain.NewValidationError("noise_level", "must be non-negative", params.NoiseLevel))
	}

	primary := params.Neurotransmitter
	region := params.Region
	baseline := g.baselines.Baseline(region, primary)

	target := baseline
	if params.TargetLevel != nil {
		target = clamp01(*params.TargetLevel)
	}

	secondaries := g.secondaryFeatures(region, primary)
	features := make([]string, 0, 1+len(secondaries))
	features = append(features, primary.String())
	for _, nt := range secondaries {
		features = append(features, nt.String())
	}

	n := len(params.Timestamps)

	g.mu.Lock()
	primarySeries := g.walkPrimary(n, baseline, target, params.NoiseLevel)

	values := make([][]float64, n)
	for t := 0; t < n; t++ {
		row := make([]float64, len(features))
		row[0] = primarySeries[t]
		values[t] = row
	}

	for col, nt := range secondaries {
		otherBaseline := g.baselines.Baseline(region, nt)
		correlation := g.receptors.Affinity(nt, region) * affinityCorrelationScale

		for t := 0; t < n; t++ {
			v := otherBaseline*secondaryBaselineWeight +
				correlation*(primarySeries[t]-baseline) +
				g.noise(params.NoiseLevel)
			values[t][col+1] = clamp01(v)
		}
	}
	g.mu.Unlock()

	now := time.Now().UTC()
	metadata := map[string]interface{}{
		"noise_level": params.NoiseLevel,
		"baseline":    baseline,
	}
	if params.TargetLevel != nil {
		metadata["target_level"] = target
	}
	for k, v := range params.Metadata {
		metadata[k] = v
	}

	sequence := &domain.TemporalSequence{
		ID:               uuid.New().String(),
		PatientID:        params.PatientID,
		Timestamps:       params.Timestamps,
		Features:         features,
		Values:           values,
		Region:           region,
		Neurotransmitter: primary,
		Metadata:         metadata,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := sequence.Validate(); err != nil {
		return nil, fmt.Errorf("generate sequence: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"sequence_id":      sequence.ID,
		"patient_id":       params.PatientID,
		"region":           region.String(),
		"neurotransmitter": primary.String(),
		"points":           n,
		"features":         len(features),
		"noise_level":      params.NoiseLevel,
	}).Debug("Generated temporal sequence")

	return sequence, nil
}

// walkPrimary produces the primary feature column. Callers must hold g.mu.
func (g *SequenceGenerator) walkPrimary(n int, baseline, target, noiseLevel float64) []float64 {
	series := make([]float64, n)
	series[0] = clamp01(baseline + g.noise(noiseLevel))

	for t := 1; t < n; t++ {
		prev := series[t-1]
		v := prev + (target-prev)*meanReversionRate + g.noise(noiseLevel)
		series[t] = clamp01(v)
	}

	return series
}

// noise draws one uniform(-0.5, 0.5) sample scaled by the noise level.
// Callers must hold g.mu. A zero noise level draws nothing, keeping the
// zero-noise path byte-for-byte reproducible regardless of source state.
func (g *SequenceGenerator) noise(noiseLevel float64) float64 {
	if noiseLevel == 0 {
		return 0
	}
	return (g.rng.Float64() - 0.5) * noiseLevel
}

// secondaryFeatures lists every other neurotransmitter with receptor presence
// at the region, in canonical order.
func (g *SequenceGenerator) secondaryFeatures(region domain.BrainRegion, primary domain.Neurotransmitter) []domain.Neurotransmitter {
	var out []domain.Neurotransmitter
	for _, nt := range domain.AllNeurotransmitters() {
		if nt == primary {
			continue
		}
		if g.receptors.HasReceptors(region, nt) {
			out = append(out, nt)
		}
	}
	return out
}
