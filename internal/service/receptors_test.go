package service

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurosim-server/internal/domain"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress logs during testing
	return logger
}

func TestDefaultReceptorMap(t *testing.T) {
	m := DefaultReceptorMap()
	require.NotNil(t, m)

	// Every region carries at least one receptor population.
	for _, region := range domain.AllBrainRegions() {
		assert.NotEmpty(t, m.ActiveNeurotransmitters(region), "region %s has no receptors", region)
	}

	// Canonical production sites.
	assert.True(t, m.IsProductionSite(domain.RapheNuclei, domain.Serotonin))
	assert.True(t, m.IsProductionSite(domain.VentralTegmentalArea, domain.Dopamine))
	assert.True(t, m.IsProductionSite(domain.LocusCoeruleus, domain.Norepinephrine))
	assert.False(t, m.IsProductionSite(domain.PrefrontalCortex, domain.Serotonin))

	// Serotonergic projections land on the cortex.
	assert.Greater(t, m.Affinity(domain.Serotonin, domain.PrefrontalCortex), 0.0)
	assert.Greater(t, m.ConnectionStrength(domain.RapheNuclei, domain.PrefrontalCortex), 0.0)
}

func TestDefaultReceptorMap_ConnectionsSorted(t *testing.T) {
	m := DefaultReceptorMap()

	for _, region := range domain.AllBrainRegions() {
		conns := m.Connections(region)
		for i := 1; i < len(conns); i++ {
			prev, cur := conns[i-1], conns[i]
			if prev.Strength == cur.Strength {
				assert.Less(t, prev.Target, cur.Target, "tie at %s not broken by name", region)
			} else {
				assert.Greater(t, prev.Strength, cur.Strength, "connections of %s not sorted", region)
			}
		}
		for _, c := range conns {
			assert.GreaterOrEqual(t, c.Strength, 0.0)
			assert.LessOrEqual(t, c.Strength, 1.0)
		}
	}
}

func TestNewReceptorMap_Validation(t *testing.T) {
	valid := domain.ReceptorProfile{
		Region:           domain.Amygdala,
		Neurotransmitter: domain.Serotonin,
		Receptor:         "5-HT2A",
		Type:             domain.ReceptorExcitatory,
		Density:          0.5,
		Sensitivity:      0.5,
	}

	tests := []struct {
		name         string
		profiles     []domain.ReceptorProfile
		connectivity map[domain.BrainRegion]map[domain.BrainRegion]float64
		production   map[domain.Neurotransmitter][]domain.BrainRegion
		wantErr      bool
	}{
		{
			name:     "valid minimal map",
			profiles: []domain.ReceptorProfile{valid},
			wantErr:  false,
		},
		{
			name: "density above range",
			profiles: []domain.ReceptorProfile{{
				Region:           domain.Amygdala,
				Neurotransmitter: domain.Serotonin,
				Receptor:         "5-HT2A",
				Type:             domain.ReceptorExcitatory,
				Density:          1.5,
				Sensitivity:      0.5,
			}},
			wantErr: true,
		},
		{
			name:     "connection strength above range",
			profiles: []domain.ReceptorProfile{valid},
			connectivity: map[domain.BrainRegion]map[domain.BrainRegion]float64{
				domain.Amygdala: {domain.Hippocampus: 1.2},
			},
			wantErr: true,
		},
		{
			name:     "unknown connectivity region",
			profiles: []domain.ReceptorProfile{valid},
			connectivity: map[domain.BrainRegion]map[domain.BrainRegion]float64{
				domain.BrainRegion("cerebellum"): {domain.Amygdala: 0.5},
			},
			wantErr: true,
		},
		{
			name:     "unknown production neurotransmitter",
			profiles: []domain.ReceptorProfile{valid},
			production: map[domain.Neurotransmitter][]domain.BrainRegion{
				domain.Neurotransmitter("histamine"): {domain.Amygdala},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewReceptorMap(tt.profiles, tt.connectivity, tt.production)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, m)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, m)
		})
	}
}

func TestReceptorMap_Affinity(t *testing.T) {
	profiles := []domain.ReceptorProfile{
		{
			Region:           domain.PrefrontalCortex,
			Neurotransmitter: domain.Serotonin,
			Receptor:         "5-HT1A",
			Type:             domain.ReceptorInhibitory,
			Density:          0.8,
			Sensitivity:      0.5,
		},
		{
			Region:           domain.PrefrontalCortex,
			Neurotransmitter: domain.Serotonin,
			Receptor:         "5-HT2A",
			Type:             domain.ReceptorExcitatory,
			Density:          0.6,
			Sensitivity:      0.5,
		},
	}

	m, err := NewReceptorMap(profiles, nil, nil)
	require.NoError(t, err)

	// Mean of 0.8*0.5 and 0.6*0.5.
	assert.InDelta(t, 0.35, m.Affinity(domain.Serotonin, domain.PrefrontalCortex), 1e-12)

	// No receptors is affinity zero, not an error.
	assert.Equal(t, 0.0, m.Affinity(domain.Dopamine, domain.PrefrontalCortex))
	assert.Equal(t, 0.0, m.Affinity(domain.Serotonin, domain.Amygdala))
}

func TestReceptorMap_HasInhibitory(t *testing.T) {
	profiles := []domain.ReceptorProfile{
		{
			Region:           domain.Amygdala,
			Neurotransmitter: domain.GABA,
			Receptor:         "GABA-A",
			Type:             domain.ReceptorInhibitory,
			Density:          0.7,
			Sensitivity:      0.8,
		},
		{
			Region:           domain.Amygdala,
			Neurotransmitter: domain.Glutamate,
			Receptor:         "NMDA",
			Type:             domain.ReceptorExcitatory,
			Density:          0.7,
			Sensitivity:      0.8,
		},
	}

	m, err := NewReceptorMap(profiles, nil, nil)
	require.NoError(t, err)

	assert.True(t, m.HasInhibitory(domain.Amygdala, domain.GABA))
	assert.False(t, m.HasInhibitory(domain.Amygdala, domain.Glutamate))
	assert.False(t, m.HasInhibitory(domain.Amygdala, domain.Serotonin))
}

func TestReceptorMap_ActiveNeurotransmitters(t *testing.T) {
	profiles := []domain.ReceptorProfile{
		{
			Region:           domain.Striatum,
			Neurotransmitter: domain.GABA,
			Receptor:         "GABA-A",
			Type:             domain.ReceptorInhibitory,
			Density:          0.7,
			Sensitivity:      0.8,
		},
		{
			Region:           domain.Striatum,
			Neurotransmitter: domain.Dopamine,
			Receptor:         "D2",
			Type:             domain.ReceptorInhibitory,
			Density:          0.9,
			Sensitivity:      0.8,
		},
	}

	m, err := NewReceptorMap(profiles, nil, nil)
	require.NoError(t, err)

	// Canonical enum order, not insertion order.
	active := m.ActiveNeurotransmitters(domain.Striatum)
	assert.Equal(t, []domain.Neurotransmitter{domain.Dopamine, domain.GABA}, active)
}
