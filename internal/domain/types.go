// Package domain contains core business entities and types for temporal
// neurotransmitter dynamics modeling: brain regions, neurotransmitter systems,
// receptor profiles and the derived simulation records.
//
// The regional and receptor taxonomy follows the conventional monoamine /
// amino-acid / cholinergic system grouping used in psychopharmacology
// references (e.g. Stahl, Essential Psychopharmacology, 5th ed.).
package domain

import (
	"errors"
	"fmt"
)

// BrainRegion identifies a simulated anatomical region. The set is closed:
// every region participating in baseline seeding, receptor lookup and cascade
// connectivity must be listed here.
type BrainRegion string

const (
	PrefrontalCortex     BrainRegion = "prefrontal_cortex"
	AnteriorCingulate    BrainRegion = "anterior_cingulate"
	Amygdala             BrainRegion = "amygdala"
	Hippocampus          BrainRegion = "hippocampus"
	Hypothalamus         BrainRegion = "hypothalamus"
	Thalamus             BrainRegion = "thalamus"
	Striatum             BrainRegion = "striatum"
	NucleusAccumbens     BrainRegion = "nucleus_accumbens"
	RapheNuclei          BrainRegion = "raphe_nuclei"
	VentralTegmentalArea BrainRegion = "ventral_tegmental_area"
	LocusCoeruleus       BrainRegion = "locus_coeruleus"
	SubstantiaNigra      BrainRegion = "substantia_nigra"
	BasalForebrain       BrainRegion = "basal_forebrain"
)

// Neurotransmitter identifies a simulated neurotransmitter system.
type Neurotransmitter string

const (
	Serotonin      Neurotransmitter = "serotonin"
	Dopamine       Neurotransmitter = "dopamine"
	Norepinephrine Neurotransmitter = "norepinephrine"
	GABA           Neurotransmitter = "gaba"
	Glutamate      Neurotransmitter = "glutamate"
	Acetylcholine  Neurotransmitter = "acetylcholine"
)

// ReceptorType encodes the postsynaptic polarity of a receptor population.
type ReceptorType string

const (
	ReceptorExcitatory ReceptorType = "excitatory"
	ReceptorInhibitory ReceptorType = "inhibitory"
	ReceptorModulatory ReceptorType = "modulatory"
)

// TrendDirection classifies the least-squares trend of a feature series.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// PatternShape classifies the overall movement of a series.
type PatternShape string

const (
	PatternOscillatory PatternShape = "oscillatory"
	PatternDirectional PatternShape = "directional"
)

// EventType identifies an audit event emitted by the engine.
type EventType string

const (
	EventMedicationEffect  EventType = "medication_effect"
	EventSequenceGenerated EventType = "sequence_generated"
)

// Validation errors for simulation data integrity.
var (
	ErrNotFound                = errors.New("not found")
	ErrInvalidRegion           = errors.New("invalid brain region")
	ErrInvalidNeurotransmitter = errors.New("invalid neurotransmitter")
	ErrInvalidReceptorType     = errors.New("invalid receptor type")
)

// AllBrainRegions returns every known region in a fixed order.
func AllBrainRegions() []BrainRegion {
	return []BrainRegion{
		PrefrontalCortex,
		AnteriorCingulate,
		Amygdala,
		Hippocampus,
		Hypothalamus,
		Thalamus,
		Striatum,
		NucleusAccumbens,
		RapheNuclei,
		VentralTegmentalArea,
		LocusCoeruleus,
		SubstantiaNigra,
		BasalForebrain,
	}
}

// AllNeurotransmitters returns every known neurotransmitter in a fixed order.
// The order is load-bearing: secondary sequence features and cascade candidate
// expansion iterate in this order so runs are reproducible.
func AllNeurotransmitters() []Neurotransmitter {
	return []Neurotransmitter{
		Serotonin,
		Dopamine,
		Norepinephrine,
		GABA,
		Glutamate,
		Acetylcholine,
	}
}

// IsValid reports whether the region belongs to the closed simulation set.
func (r BrainRegion) IsValid() bool {
	switch r {
	case PrefrontalCortex, AnteriorCingulate, Amygdala, Hippocampus,
		Hypothalamus, Thalamus, Striatum, NucleusAccumbens, RapheNuclei,
		VentralTegmentalArea, LocusCoeruleus, SubstantiaNigra, BasalForebrain:
		return true
	default:
		return false
	}
}

// String returns the wire representation of the region.
func (r BrainRegion) String() string {
	return string(r)
}

// IsValid reports whether the neurotransmitter belongs to the closed set.
func (n Neurotransmitter) IsValid() bool {
	switch n {
	case Serotonin, Dopamine, Norepinephrine, GABA, Glutamate, Acetylcholine:
		return true
	default:
		return false
	}
}

// String returns the wire representation of the neurotransmitter.
func (n Neurotransmitter) String() string {
	return string(n)
}

// IsValid validates the receptor polarity.
func (t ReceptorType) IsValid() bool {
	switch t {
	case ReceptorExcitatory, ReceptorInhibitory, ReceptorModulatory:
		return true
	default:
		return false
	}
}

func (t ReceptorType) String() string {
	return string(t)
}

// IsValid validates the trend direction.
func (d TrendDirection) IsValid() bool {
	switch d {
	case TrendIncreasing, TrendDecreasing, TrendStable:
		return true
	default:
		return false
	}
}

// IsValid validates the event type.
func (e EventType) IsValid() bool {
	switch e {
	case EventMedicationEffect, EventSequenceGenerated:
		return true
	default:
		return false
	}
}

// ReceptorProfile describes one receptor population at a region. Density and
// sensitivity are normalized to [0,1]; multiple profiles may exist for the
// same (region, neurotransmitter) pair, one per receptor subtype. Profiles
// are immutable once registered with the receptor map.
type ReceptorProfile struct {
	Region           BrainRegion      `json:"region"`
	Neurotransmitter Neurotransmitter `json:"neurotransmitter"`
	Receptor         string           `json:"receptor"` // subtype label, e.g. "5-HT1A"
	Type             ReceptorType     `json:"type"`
	Density          float64          `json:"density"`
	Sensitivity      float64          `json:"sensitivity"`
}

// Validate ensures the profile is usable for affinity computation.
func (p *ReceptorProfile) Validate() error {
	if !p.Region.IsValid() {
		return fmt.Errorf("receptor profile validation: %w", ErrInvalidRegion)
	}

	if !p.Neurotransmitter.IsValid() {
		return fmt.Errorf("receptor profile validation: %w", ErrInvalidNeurotransmitter)
	}

	if !p.Type.IsValid() {
		return fmt.Errorf("receptor profile validation: %w", ErrInvalidReceptorType)
	}

	if p.Density < 0 || p.Density > 1 {
		return fmt.Errorf("receptor profile validation: density %.3f outside [0,1]", p.Density)
	}

	if p.Sensitivity < 0 || p.Sensitivity > 1 {
		return fmt.Errorf("receptor profile validation: sensitivity %.3f outside [0,1]", p.Sensitivity)
	}

	return nil
}

// Affinity is the contribution of this profile to the aggregate affinity
// score: receptor density weighted by sensitivity.
func (p *ReceptorProfile) Affinity() float64 {
	return p.Density * p.Sensitivity
}

// IsInhibitory reports whether this receptor population flips the sign of an
// incoming effect during cascade propagation.
func (p *ReceptorProfile) IsInhibitory() bool {
	return p.Type == ReceptorInhibitory
}
