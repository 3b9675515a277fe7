package service

import (
	"github.com/neurosim-server/internal/domain"
)

// Resting concentration priors. Deliberately coarse: production sites idle
// higher than receiving regions, nothing further is calibrated.
const (
	productionSiteBaseline = 0.6
	defaultBaseline        = 0.4
)

type baselineKey struct {
	region domain.BrainRegion
	nt     domain.Neurotransmitter
}

// BaselineStore holds the resting concentration for every
// (region, neurotransmitter) pair. It is seeded once at construction and
// read-only afterwards, so it is safe to share across concurrent requests.
type BaselineStore struct {
	values map[baselineKey]float64
}

// NewBaselineStore seeds baselines for the full region × neurotransmitter
// grid from the production-site registry.
func NewBaselineStore(receptors *ReceptorMap) *BaselineStore {
	store := &BaselineStore{
		values: make(map[baselineKey]float64, len(domain.AllBrainRegions())*len(domain.AllNeurotransmitters())),
	}

	for _, region := range domain.AllBrainRegions() {
		for _, nt := range domain.AllNeurotransmitters() {
			baseline := defaultBaseline
			if receptors.IsProductionSite(region, nt) {
				baseline = productionSiteBaseline
			}
			store.values[baselineKey{region: region, nt: nt}] = baseline
		}
	}

	return store
}

// NewBaselineStoreFromValues builds a store with explicit resting levels,
// used for calibration overrides and in tests. Pairs not present fall back to
// the default baseline on lookup.
func NewBaselineStoreFromValues(values map[domain.BrainRegion]map[domain.Neurotransmitter]float64) *BaselineStore {
	store := &BaselineStore{values: make(map[baselineKey]float64)}

	for region, byNT := range values {
		for nt, baseline := range byNT {
			store.values[baselineKey{region: region, nt: nt}] = baseline
		}
	}

	return store
}

// Baseline returns the resting concentration for a pair.
func (s *BaselineStore) Baseline(region domain.BrainRegion, nt domain.Neurotransmitter) float64 {
	if v, ok := s.values[baselineKey{region: region, nt: nt}]; ok {
		return v
	}
	return defaultBaseline
}
