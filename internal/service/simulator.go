package service

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/neurosim-server/internal/domain"
)

// Treatment effect constants. A direct effect scales with receptor affinity
// around a 0.5 floor, cascades only fire above the noise threshold, and an
// external prediction blends in at its stated confidence (0.7 when the
// predictor does not report one).
const (
	treatmentBaseScale          = 0.5
	treatmentAffinityScale      = 0.2
	cascadeEffectThreshold      = 0.1
	treatmentCascadeDepth       = 2
	defaultPredictionConfidence = 0.7
)

// SimulateParams describes one treatment simulation request.
type SimulateParams struct {
	PatientID  string
	Medication string
	Region     domain.BrainRegion

	// TargetNeurotransmitter may be empty when the medication resolves to a
	// known class profile; the primary effect is then the neurotransmitter
	// with the largest absolute weighted effect.
	TargetNeurotransmitter domain.Neurotransmitter

	EffectMagnitude float64
	Timestamps      []time.Time
	NoiseLevel      float64

	// Prediction is the optional external ML response. Nil runs the
	// simulation unblended.
	Prediction *domain.TreatmentPrediction
}

// SimulationOutcome is the complete result of one treatment simulation.
type SimulationOutcome struct {
	// Sequences holds one generated series per affected neurotransmitter.
	Sequences map[domain.Neurotransmitter]*domain.TemporalSequence

	// Primary is the neurotransmitter carrying the medication metadata tags.
	Primary domain.Neurotransmitter

	// DirectEffects are the affinity-scaled per-neurotransmitter effects at
	// the treated region, before cascading.
	DirectEffects map[domain.Neurotransmitter]float64

	// RegionalEffects merges every cascade run additively: unlike revisits
	// inside a single cascade, effects from separate cascades always sum.
	RegionalEffects map[domain.BrainRegion]map[domain.Neurotransmitter]float64

	RawMagnitude      float64
	AdjustedMagnitude float64
	Blended           bool

	// Event is the audit record for this run; the caller persists it.
	Event *domain.TemporalEvent
}

// TreatmentSimulator orchestrates baselines, cascades and sequence synthesis
// to model a medication's multi-region effect.
type TreatmentSimulator struct {
	logger      *logrus.Logger
	receptors   *ReceptorMap
	baselines   *BaselineStore
	generator   *SequenceGenerator
	cascade     *CascadeEngine
	medications *MedicationRegistry
}

// NewTreatmentSimulator creates a treatment simulator with the built-in
// medication registry.
func NewTreatmentSimulator(
	receptors *ReceptorMap,
	baselines *BaselineStore,
	generator *SequenceGenerator,
	cascade *CascadeEngine,
	logger *logrus.Logger,
) *TreatmentSimulator {
	return &TreatmentSimulator{
		logger:      logger,
		receptors:   receptors,
		baselines:   baselines,
		generator:   generator,
		cascade:     cascade,
		medications: NewMedicationRegistry(),
	}
}

// Simulate models a treatment applied at a region.
//
// The raw effect magnitude is first blended with the external prediction when
// one is supplied; the blended magnitude drives everything downstream. Each
// affected neurotransmitter receives a direct effect scaled by its receptor
// affinity at the region; effects above the cascade threshold propagate two
// hops outward, and the per-region results of all cascades merge additively.
// Every affected neurotransmitter then gets a synthesized sequence drifting
// toward its shifted concentration, with the primary one tagged with the
// medication metadata. One medication_effect audit event is emitted per run.
func (s *TreatmentSimulator) Simulate(params SimulateParams) (*SimulationOutcome, error) {
	if !params.Region.IsValid() {
		return nil, fmt.Errorf("simulate treatment: %w: %s", domain.ErrInvalidRegion, params.Region)
	}

	if params.TargetNeurotransmitter != "" && !params.TargetNeurotransmitter.IsValid() {
		return nil, fmt.Errorf("simulate treatment: %w: %s", domain.ErrInvalidNeurotransmitter, params.TargetNeurotransmitter)
	}

	if params.PatientID == "" {
		return nil, fmt.Errorf("simulate treatment: %w", domain.NewValidationError("patient_id", "is required", params.PatientID))
	}

	if len(params.Timestamps) == 0 {
		return nil, fmt.Errorf("simulate treatment: %w", domain.NewValidationError("timestamps", "at least one timestamp is required", len(params.Timestamps)))
	}

	weights := s.medications.AffectedWeights(params.Medication, params.TargetNeurotransmitter)
	if len(weights) == 0 {
		return nil, fmt.Errorf("simulate treatment: %w",
			domain.NewValidationError("target_neurotransmitter", "required for unrecognized medication", params.Medication))
	}

	adjusted := params.EffectMagnitude
	blended := false
	if params.Prediction != nil {
		confidence := params.Prediction.Confidence
		if confidence <= 0 {
			confidence = defaultPredictionConfidence
		}
		adjusted = params.EffectMagnitude*(1-confidence) + params.Prediction.PredictedResponse*confidence
		blended = true
	}

	directEffects := make(map[domain.Neurotransmitter]float64, len(weights))
	for _, nt := range domain.AllNeurotransmitters() {
		weight, ok := weights[nt]
		if !ok {
			continue
		}
		affinity := s.receptors.Affinity(nt, params.Region)
		directEffects[nt] = adjusted * weight * (treatmentBaseScale + treatmentAffinityScale*affinity)
	}

	regional := make(map[domain.BrainRegion]map[domain.Neurotransmitter]float64)
	for _, nt := range domain.AllNeurotransmitters() {
		effect, ok := directEffects[nt]
		if !ok || math.Abs(effect) <= cascadeEffectThreshold {
			continue
		}

		result, err := s.cascade.Propagate(params.Region, nt, effect, treatmentCascadeDepth)
		if err != nil {
			return nil, fmt.Errorf("simulate treatment: cascade for %s: %w", nt, err)
		}

		for region, byNT := range result.Effects {
			if regional[region] == nil {
				regional[region] = make(map[domain.Neurotransmitter]float64)
			}
			for cascadeNT, cascadeEffect := range byNT {
				regional[region][cascadeNT] += cascadeEffect
			}
		}
	}

	primary := s.primaryEffect(params.TargetNeurotransmitter, directEffects)

	sequences := make(map[domain.Neurotransmitter]*domain.TemporalSequence, len(directEffects))
	for _, nt := range domain.AllNeurotransmitters() {
		direct, ok := directEffects[nt]
		if !ok {
			continue
		}

		baseline := s.baselines.Baseline(params.Region, nt)
		shifted := clamp01(baseline + direct)

		metadata := map[string]interface{}{
			"medication":    params.Medication,
			"direct_effect": direct,
		}
		if nt == primary {
			metadata["primary_effect"] = true
			metadata["effect_magnitude"] = params.EffectMagnitude
			metadata["adjusted_magnitude"] = adjusted
		}

		sequence, err := s.generator.Generate(GenerateParams{
			PatientID:        params.PatientID,
			Region:           params.Region,
			Neurotransmitter: nt,
			Timestamps:       params.Timestamps,
			NoiseLevel:       params.NoiseLevel,
			TargetLevel:      &shifted,
			Metadata:         metadata,
		})
		if err != nil {
			return nil, fmt.Errorf("simulate treatment: sequence for %s: %w", nt, err)
		}

		sequences[nt] = sequence
	}

	now := time.Now().UTC()
	event := &domain.TemporalEvent{
		ID:        uuid.New().String(),
		PatientID: params.PatientID,
		Type:      domain.EventMedicationEffect,
		Timestamp: now,
		Metadata: map[string]interface{}{
			"medication":         params.Medication,
			"region":             params.Region.String(),
			"primary":            primary.String(),
			"effect_magnitude":   params.EffectMagnitude,
			"adjusted_magnitude": adjusted,
			"blended":            blended,
			"affected_count":     len(directEffects),
			"cascade_regions":    len(regional),
		},
		CreatedAt: now,
	}

	s.logger.WithFields(logrus.Fields{
		"patient_id":         params.PatientID,
		"medication":         params.Medication,
		"region":             params.Region.String(),
		"primary":            primary.String(),
		"effect_magnitude":   params.EffectMagnitude,
		"adjusted_magnitude": adjusted,
		"blended":            blended,
		"affected":           len(directEffects),
	}).Info("Treatment simulation complete")

	return &SimulationOutcome{
		Sequences:         sequences,
		Primary:           primary,
		DirectEffects:     directEffects,
		RegionalEffects:   regional,
		RawMagnitude:      params.EffectMagnitude,
		AdjustedMagnitude: adjusted,
		Blended:           blended,
		Event:             event,
	}, nil
}

// primaryEffect picks the neurotransmitter whose sequence carries the
// medication tags: the explicit target when given, otherwise the largest
// absolute weighted effect.
func (s *TreatmentSimulator) primaryEffect(target domain.Neurotransmitter, direct map[domain.Neurotransmitter]float64) domain.Neurotransmitter {
	if target != "" {
		return target
	}

	var primary domain.Neurotransmitter
	best := -1.0
	for _, nt := range domain.AllNeurotransmitters() {
		effect, ok := direct[nt]
		if !ok {
			continue
		}
		if abs := math.Abs(effect); abs > best {
			best = abs
			primary = nt
		}
	}

	return primary
}
