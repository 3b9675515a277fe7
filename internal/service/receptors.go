package service

import (
	"fmt"
	"sort"

	"github.com/neurosim-server/internal/domain"
)

// Connection is one outgoing projection from a region.
type Connection struct {
	Target   domain.BrainRegion
	Strength float64
}

// ReceptorMap holds the receptor profiles, region connectivity and
// production-site registry the engine computes against. It is immutable after
// construction, so a single instance is safe to share across requests.
type ReceptorMap struct {
	profiles     map[domain.BrainRegion]map[domain.Neurotransmitter][]domain.ReceptorProfile
	connectivity map[domain.BrainRegion][]Connection
	production   map[domain.Neurotransmitter]map[domain.BrainRegion]bool
}

// NewReceptorMap builds a receptor map from explicit data. Profiles failing
// validation are rejected so invalid densities can never reach the affinity
// computation.
func NewReceptorMap(
	profiles []domain.ReceptorProfile,
	connectivity map[domain.BrainRegion]map[domain.BrainRegion]float64,
	productionSites map[domain.Neurotransmitter][]domain.BrainRegion,
) (*ReceptorMap, error) {
	m := &ReceptorMap{
		profiles:     make(map[domain.BrainRegion]map[domain.Neurotransmitter][]domain.ReceptorProfile),
		connectivity: make(map[domain.BrainRegion][]Connection),
		production:   make(map[domain.Neurotransmitter]map[domain.BrainRegion]bool),
	}

	for i := range profiles {
		p := profiles[i]
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("receptor map: profile %d: %w", i, err)
		}

		if m.profiles[p.Region] == nil {
			m.profiles[p.Region] = make(map[domain.Neurotransmitter][]domain.ReceptorProfile)
		}
		m.profiles[p.Region][p.Neurotransmitter] = append(m.profiles[p.Region][p.Neurotransmitter], p)
	}

	for source, targets := range connectivity {
		if !source.IsValid() {
			return nil, fmt.Errorf("receptor map: %w: %s", domain.ErrInvalidRegion, source)
		}

		conns := make([]Connection, 0, len(targets))
		for target, strength := range targets {
			if !target.IsValid() {
				return nil, fmt.Errorf("receptor map: %w: %s", domain.ErrInvalidRegion, target)
			}
			if strength < 0 || strength > 1 {
				return nil, fmt.Errorf("receptor map: connection %s->%s strength %.3f outside [0,1]",
					source, target, strength)
			}
			conns = append(conns, Connection{Target: target, Strength: strength})
		}

		// Strongest projections first; ties broken by region name so
		// propagation order is fully deterministic.
		sort.Slice(conns, func(i, j int) bool {
			if conns[i].Strength != conns[j].Strength {
				return conns[i].Strength > conns[j].Strength
			}
			return conns[i].Target < conns[j].Target
		})
		m.connectivity[source] = conns
	}

	for nt, regions := range productionSites {
		if !nt.IsValid() {
			return nil, fmt.Errorf("receptor map: %w: %s", domain.ErrInvalidNeurotransmitter, nt)
		}
		m.production[nt] = make(map[domain.BrainRegion]bool, len(regions))
		for _, region := range regions {
			if !region.IsValid() {
				return nil, fmt.Errorf("receptor map: %w: %s", domain.ErrInvalidRegion, region)
			}
			m.production[nt][region] = true
		}
	}

	return m, nil
}

// DefaultReceptorMap builds the map from the built-in atlas.
func DefaultReceptorMap() *ReceptorMap {
	m, err := NewReceptorMap(defaultReceptorProfiles(), defaultConnectivity(), defaultProductionSites())
	if err != nil {
		// The built-in atlas is validated by tests; a bad entry is a
		// programming error, not a runtime condition.
		panic(fmt.Sprintf("default receptor atlas invalid: %v", err))
	}
	return m
}

// Affinity is the aggregate receptor affinity of a neurotransmitter at a
// region: the mean of density×sensitivity over all matching profiles. A
// region with no matching receptors has affinity 0, which is a normal state
// rather than an error.
func (m *ReceptorMap) Affinity(nt domain.Neurotransmitter, region domain.BrainRegion) float64 {
	matching := m.Profiles(region, nt)
	if len(matching) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, p := range matching {
		sum += p.Affinity()
	}
	return sum / float64(len(matching))
}

// Profiles returns the receptor profiles for a (region, nt) pair. The
// returned slice is shared; callers must not mutate it.
func (m *ReceptorMap) Profiles(region domain.BrainRegion, nt domain.Neurotransmitter) []domain.ReceptorProfile {
	if byNT, ok := m.profiles[region]; ok {
		return byNT[nt]
	}
	return nil
}

// HasReceptors reports whether any receptor profile exists for the pair.
func (m *ReceptorMap) HasReceptors(region domain.BrainRegion, nt domain.Neurotransmitter) bool {
	return len(m.Profiles(region, nt)) > 0
}

// HasInhibitory reports whether any matching profile at the region is
// inhibitory, which flips the sign of a propagating effect.
func (m *ReceptorMap) HasInhibitory(region domain.BrainRegion, nt domain.Neurotransmitter) bool {
	for _, p := range m.Profiles(region, nt) {
		if p.IsInhibitory() {
			return true
		}
	}
	return false
}

// Connections returns the outgoing projections of a region, strongest first.
// The returned slice is shared; callers must not mutate it.
func (m *ReceptorMap) Connections(region domain.BrainRegion) []Connection {
	return m.connectivity[region]
}

// ConnectionStrength returns the directed projection strength between two
// regions, 0 when no projection exists.
func (m *ReceptorMap) ConnectionStrength(from, to domain.BrainRegion) float64 {
	for _, conn := range m.connectivity[from] {
		if conn.Target == to {
			return conn.Strength
		}
	}
	return 0.0
}

// ConnectivityMatrix exports the connectivity as a nested map copy. The
// visualization preprocessor takes this form at construction.
func (m *ReceptorMap) ConnectivityMatrix() map[domain.BrainRegion]map[domain.BrainRegion]float64 {
	matrix := make(map[domain.BrainRegion]map[domain.BrainRegion]float64, len(m.connectivity))
	for source, conns := range m.connectivity {
		targets := make(map[domain.BrainRegion]float64, len(conns))
		for _, conn := range conns {
			targets[conn.Target] = conn.Strength
		}
		matrix[source] = targets
	}
	return matrix
}

// IsProductionSite reports whether the region synthesizes the
// neurotransmitter.
func (m *ReceptorMap) IsProductionSite(region domain.BrainRegion, nt domain.Neurotransmitter) bool {
	return m.production[nt][region]
}

// ActiveNeurotransmitters returns the neurotransmitters with receptor
// presence at a region, in the canonical enum order.
func (m *ReceptorMap) ActiveNeurotransmitters(region domain.BrainRegion) []domain.Neurotransmitter {
	var active []domain.Neurotransmitter
	for _, nt := range domain.AllNeurotransmitters() {
		if m.HasReceptors(region, nt) {
			active = append(active, nt)
		}
	}
	return active
}
