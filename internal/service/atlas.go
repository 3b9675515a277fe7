package service

import (
	"github.com/neurosim-server/internal/domain"
)

// Default receptor atlas for the simulation. Densities and sensitivities are
// coarse literature-informed priors on a [0,1] scale, not clinically
// calibrated values; they exist to give the affinity and cascade heuristics a
// realistic shape.

func defaultReceptorProfiles() []domain.ReceptorProfile {
	return []domain.ReceptorProfile{
		// Prefrontal cortex: dense monoamine and glutamatergic innervation.
		{Region: domain.PrefrontalCortex, Neurotransmitter: domain.Serotonin, Receptor: "5-HT1A", Type: domain.ReceptorInhibitory, Density: 0.70, Sensitivity: 0.80},
		{Region: domain.PrefrontalCortex, Neurotransmitter: domain.Serotonin, Receptor: "5-HT2A", Type: domain.ReceptorExcitatory, Density: 0.65, Sensitivity: 0.70},
		{Region: domain.PrefrontalCortex, Neurotransmitter: domain.Dopamine, Receptor: "D1", Type: domain.ReceptorExcitatory, Density: 0.60, Sensitivity: 0.75},
		{Region: domain.PrefrontalCortex, Neurotransmitter: domain.Dopamine, Receptor: "D2", Type: domain.ReceptorInhibitory, Density: 0.40, Sensitivity: 0.60},
		{Region: domain.PrefrontalCortex, Neurotransmitter: domain.Norepinephrine, Receptor: "alpha-2A", Type: domain.ReceptorInhibitory, Density: 0.55, Sensitivity: 0.70},
		{Region: domain.PrefrontalCortex, Neurotransmitter: domain.GABA, Receptor: "GABA-A", Type: domain.ReceptorInhibitory, Density: 0.80, Sensitivity: 0.75},
		{Region: domain.PrefrontalCortex, Neurotransmitter: domain.Glutamate, Receptor: "NMDA", Type: domain.ReceptorExcitatory, Density: 0.85, Sensitivity: 0.80},
		{Region: domain.PrefrontalCortex, Neurotransmitter: domain.Acetylcholine, Receptor: "M1", Type: domain.ReceptorExcitatory, Density: 0.50, Sensitivity: 0.65},

		// Anterior cingulate.
		{Region: domain.AnteriorCingulate, Neurotransmitter: domain.Serotonin, Receptor: "5-HT1A", Type: domain.ReceptorInhibitory, Density: 0.60, Sensitivity: 0.70},
		{Region: domain.AnteriorCingulate, Neurotransmitter: domain.Dopamine, Receptor: "D1", Type: domain.ReceptorExcitatory, Density: 0.50, Sensitivity: 0.65},
		{Region: domain.AnteriorCingulate, Neurotransmitter: domain.Glutamate, Receptor: "AMPA", Type: domain.ReceptorExcitatory, Density: 0.75, Sensitivity: 0.70},
		{Region: domain.AnteriorCingulate, Neurotransmitter: domain.GABA, Receptor: "GABA-A", Type: domain.ReceptorInhibitory, Density: 0.70, Sensitivity: 0.70},

		// Amygdala: fear circuitry, strongly serotonergic and GABAergic.
		{Region: domain.Amygdala, Neurotransmitter: domain.Serotonin, Receptor: "5-HT2A", Type: domain.ReceptorExcitatory, Density: 0.60, Sensitivity: 0.75},
		{Region: domain.Amygdala, Neurotransmitter: domain.Serotonin, Receptor: "5-HT1A", Type: domain.ReceptorInhibitory, Density: 0.50, Sensitivity: 0.65},
		{Region: domain.Amygdala, Neurotransmitter: domain.Norepinephrine, Receptor: "beta-1", Type: domain.ReceptorExcitatory, Density: 0.65, Sensitivity: 0.80},
		{Region: domain.Amygdala, Neurotransmitter: domain.GABA, Receptor: "GABA-A", Type: domain.ReceptorInhibitory, Density: 0.85, Sensitivity: 0.80},
		{Region: domain.Amygdala, Neurotransmitter: domain.Glutamate, Receptor: "NMDA", Type: domain.ReceptorExcitatory, Density: 0.70, Sensitivity: 0.75},
		{Region: domain.Amygdala, Neurotransmitter: domain.Dopamine, Receptor: "D2", Type: domain.ReceptorInhibitory, Density: 0.35, Sensitivity: 0.55},

		// Hippocampus.
		{Region: domain.Hippocampus, Neurotransmitter: domain.Serotonin, Receptor: "5-HT1A", Type: domain.ReceptorInhibitory, Density: 0.75, Sensitivity: 0.80},
		{Region: domain.Hippocampus, Neurotransmitter: domain.Glutamate, Receptor: "NMDA", Type: domain.ReceptorExcitatory, Density: 0.90, Sensitivity: 0.85},
		{Region: domain.Hippocampus, Neurotransmitter: domain.Glutamate, Receptor: "AMPA", Type: domain.ReceptorExcitatory, Density: 0.85, Sensitivity: 0.80},
		{Region: domain.Hippocampus, Neurotransmitter: domain.GABA, Receptor: "GABA-A", Type: domain.ReceptorInhibitory, Density: 0.75, Sensitivity: 0.75},
		{Region: domain.Hippocampus, Neurotransmitter: domain.Acetylcholine, Receptor: "M1", Type: domain.ReceptorExcitatory, Density: 0.70, Sensitivity: 0.75},
		{Region: domain.Hippocampus, Neurotransmitter: domain.Norepinephrine, Receptor: "beta-1", Type: domain.ReceptorExcitatory, Density: 0.50, Sensitivity: 0.60},

		// Hypothalamus.
		{Region: domain.Hypothalamus, Neurotransmitter: domain.Serotonin, Receptor: "5-HT2C", Type: domain.ReceptorExcitatory, Density: 0.55, Sensitivity: 0.65},
		{Region: domain.Hypothalamus, Neurotransmitter: domain.Norepinephrine, Receptor: "alpha-1", Type: domain.ReceptorExcitatory, Density: 0.60, Sensitivity: 0.70},
		{Region: domain.Hypothalamus, Neurotransmitter: domain.GABA, Receptor: "GABA-B", Type: domain.ReceptorInhibitory, Density: 0.65, Sensitivity: 0.70},
		{Region: domain.Hypothalamus, Neurotransmitter: domain.Glutamate, Receptor: "NMDA", Type: domain.ReceptorExcitatory, Density: 0.60, Sensitivity: 0.65},

		// Thalamus: relay station, glutamate/GABA dominated.
		{Region: domain.Thalamus, Neurotransmitter: domain.Glutamate, Receptor: "AMPA", Type: domain.ReceptorExcitatory, Density: 0.80, Sensitivity: 0.75},
		{Region: domain.Thalamus, Neurotransmitter: domain.GABA, Receptor: "GABA-A", Type: domain.ReceptorInhibitory, Density: 0.80, Sensitivity: 0.80},
		{Region: domain.Thalamus, Neurotransmitter: domain.Acetylcholine, Receptor: "nicotinic", Type: domain.ReceptorExcitatory, Density: 0.55, Sensitivity: 0.65},
		{Region: domain.Thalamus, Neurotransmitter: domain.Norepinephrine, Receptor: "alpha-1", Type: domain.ReceptorExcitatory, Density: 0.45, Sensitivity: 0.55},

		// Striatum: dopaminergic target, GABAergic projection neurons.
		{Region: domain.Striatum, Neurotransmitter: domain.Dopamine, Receptor: "D1", Type: domain.ReceptorExcitatory, Density: 0.85, Sensitivity: 0.85},
		{Region: domain.Striatum, Neurotransmitter: domain.Dopamine, Receptor: "D2", Type: domain.ReceptorInhibitory, Density: 0.80, Sensitivity: 0.80},
		{Region: domain.Striatum, Neurotransmitter: domain.Glutamate, Receptor: "NMDA", Type: domain.ReceptorExcitatory, Density: 0.75, Sensitivity: 0.70},
		{Region: domain.Striatum, Neurotransmitter: domain.GABA, Receptor: "GABA-A", Type: domain.ReceptorInhibitory, Density: 0.80, Sensitivity: 0.75},
		{Region: domain.Striatum, Neurotransmitter: domain.Acetylcholine, Receptor: "M4", Type: domain.ReceptorInhibitory, Density: 0.60, Sensitivity: 0.65},

		// Nucleus accumbens: reward pathway terminus.
		{Region: domain.NucleusAccumbens, Neurotransmitter: domain.Dopamine, Receptor: "D1", Type: domain.ReceptorExcitatory, Density: 0.90, Sensitivity: 0.85},
		{Region: domain.NucleusAccumbens, Neurotransmitter: domain.Dopamine, Receptor: "D2", Type: domain.ReceptorInhibitory, Density: 0.75, Sensitivity: 0.75},
		{Region: domain.NucleusAccumbens, Neurotransmitter: domain.Serotonin, Receptor: "5-HT1B", Type: domain.ReceptorInhibitory, Density: 0.45, Sensitivity: 0.60},
		{Region: domain.NucleusAccumbens, Neurotransmitter: domain.GABA, Receptor: "GABA-A", Type: domain.ReceptorInhibitory, Density: 0.75, Sensitivity: 0.70},
		{Region: domain.NucleusAccumbens, Neurotransmitter: domain.Glutamate, Receptor: "AMPA", Type: domain.ReceptorExcitatory, Density: 0.65, Sensitivity: 0.70},

		// Raphe nuclei: serotonin production site with autoreceptors.
		{Region: domain.RapheNuclei, Neurotransmitter: domain.Serotonin, Receptor: "5-HT1A-auto", Type: domain.ReceptorInhibitory, Density: 0.85, Sensitivity: 0.90},
		{Region: domain.RapheNuclei, Neurotransmitter: domain.Norepinephrine, Receptor: "alpha-1", Type: domain.ReceptorExcitatory, Density: 0.50, Sensitivity: 0.60},
		{Region: domain.RapheNuclei, Neurotransmitter: domain.GABA, Receptor: "GABA-A", Type: domain.ReceptorInhibitory, Density: 0.60, Sensitivity: 0.65},

		// Ventral tegmental area: dopamine production site.
		{Region: domain.VentralTegmentalArea, Neurotransmitter: domain.Dopamine, Receptor: "D2-auto", Type: domain.ReceptorInhibitory, Density: 0.80, Sensitivity: 0.85},
		{Region: domain.VentralTegmentalArea, Neurotransmitter: domain.GABA, Receptor: "GABA-A", Type: domain.ReceptorInhibitory, Density: 0.70, Sensitivity: 0.70},
		{Region: domain.VentralTegmentalArea, Neurotransmitter: domain.Glutamate, Receptor: "NMDA", Type: domain.ReceptorExcitatory, Density: 0.60, Sensitivity: 0.65},
		{Region: domain.VentralTegmentalArea, Neurotransmitter: domain.Acetylcholine, Receptor: "nicotinic", Type: domain.ReceptorExcitatory, Density: 0.55, Sensitivity: 0.70},

		// Locus coeruleus: norepinephrine production site.
		{Region: domain.LocusCoeruleus, Neurotransmitter: domain.Norepinephrine, Receptor: "alpha-2-auto", Type: domain.ReceptorInhibitory, Density: 0.85, Sensitivity: 0.85},
		{Region: domain.LocusCoeruleus, Neurotransmitter: domain.Serotonin, Receptor: "5-HT1A", Type: domain.ReceptorInhibitory, Density: 0.45, Sensitivity: 0.55},
		{Region: domain.LocusCoeruleus, Neurotransmitter: domain.Glutamate, Receptor: "NMDA", Type: domain.ReceptorExcitatory, Density: 0.55, Sensitivity: 0.60},

		// Substantia nigra: nigrostriatal dopamine source.
		{Region: domain.SubstantiaNigra, Neurotransmitter: domain.Dopamine, Receptor: "D2-auto", Type: domain.ReceptorInhibitory, Density: 0.80, Sensitivity: 0.80},
		{Region: domain.SubstantiaNigra, Neurotransmitter: domain.GABA, Receptor: "GABA-A", Type: domain.ReceptorInhibitory, Density: 0.75, Sensitivity: 0.70},
		{Region: domain.SubstantiaNigra, Neurotransmitter: domain.Glutamate, Receptor: "NMDA", Type: domain.ReceptorExcitatory, Density: 0.55, Sensitivity: 0.60},

		// Basal forebrain: acetylcholine production site.
		{Region: domain.BasalForebrain, Neurotransmitter: domain.Acetylcholine, Receptor: "M2-auto", Type: domain.ReceptorInhibitory, Density: 0.75, Sensitivity: 0.80},
		{Region: domain.BasalForebrain, Neurotransmitter: domain.GABA, Receptor: "GABA-A", Type: domain.ReceptorInhibitory, Density: 0.65, Sensitivity: 0.65},
		{Region: domain.BasalForebrain, Neurotransmitter: domain.Glutamate, Receptor: "AMPA", Type: domain.ReceptorExcitatory, Density: 0.60, Sensitivity: 0.65},
	}
}

// defaultConnectivity returns directed region-to-region projection strengths
// on a [0,1] scale, loosely following the major monoamine projection pathways
// and cortico-limbic loops.
func defaultConnectivity() map[domain.BrainRegion]map[domain.BrainRegion]float64 {
	return map[domain.BrainRegion]map[domain.BrainRegion]float64{
		domain.RapheNuclei: {
			domain.PrefrontalCortex: 0.70,
			domain.Hippocampus:      0.65,
			domain.Amygdala:         0.60,
			domain.Hypothalamus:     0.50,
			domain.Striatum:         0.45,
		},
		domain.VentralTegmentalArea: {
			domain.NucleusAccumbens: 0.85,
			domain.PrefrontalCortex: 0.70,
			domain.Amygdala:         0.55,
			domain.Hippocampus:      0.40,
		},
		domain.SubstantiaNigra: {
			domain.Striatum: 0.85,
			domain.Thalamus: 0.50,
		},
		domain.LocusCoeruleus: {
			domain.PrefrontalCortex: 0.70,
			domain.Amygdala:         0.65,
			domain.Hippocampus:      0.60,
			domain.Thalamus:         0.50,
			domain.Hypothalamus:     0.45,
		},
		domain.BasalForebrain: {
			domain.Hippocampus:      0.70,
			domain.PrefrontalCortex: 0.65,
			domain.Amygdala:         0.50,
		},
		domain.PrefrontalCortex: {
			domain.AnteriorCingulate: 0.70,
			domain.Amygdala:          0.60,
			domain.Striatum:          0.55,
			domain.NucleusAccumbens:  0.50,
			domain.Hypothalamus:      0.40,
		},
		domain.AnteriorCingulate: {
			domain.PrefrontalCortex: 0.65,
			domain.Amygdala:         0.55,
			domain.Striatum:         0.40,
		},
		domain.Amygdala: {
			domain.Hypothalamus:     0.65,
			domain.Hippocampus:      0.55,
			domain.PrefrontalCortex: 0.50,
			domain.LocusCoeruleus:   0.40,
		},
		domain.Hippocampus: {
			domain.PrefrontalCortex: 0.60,
			domain.Amygdala:         0.50,
			domain.Hypothalamus:     0.45,
			domain.NucleusAccumbens: 0.40,
		},
		domain.Hypothalamus: {
			domain.Thalamus:       0.40,
			domain.RapheNuclei:    0.35,
			domain.LocusCoeruleus: 0.35,
		},
		domain.Thalamus: {
			domain.PrefrontalCortex:  0.75,
			domain.AnteriorCingulate: 0.55,
			domain.Striatum:          0.50,
			domain.Amygdala:          0.45,
		},
		domain.Striatum: {
			domain.Thalamus:        0.60,
			domain.SubstantiaNigra: 0.40,
		},
		domain.NucleusAccumbens: {
			domain.VentralTegmentalArea: 0.45,
			domain.PrefrontalCortex:     0.45,
			domain.Hypothalamus:         0.40,
		},
	}
}

// defaultProductionSites maps each neurotransmitter to the regions that
// synthesize it. Production sites receive the elevated resting baseline.
func defaultProductionSites() map[domain.Neurotransmitter][]domain.BrainRegion {
	return map[domain.Neurotransmitter][]domain.BrainRegion{
		domain.Serotonin:      {domain.RapheNuclei},
		domain.Dopamine:       {domain.VentralTegmentalArea, domain.SubstantiaNigra},
		domain.Norepinephrine: {domain.LocusCoeruleus},
		domain.Acetylcholine:  {domain.BasalForebrain},
		domain.GABA:           {domain.Striatum, domain.NucleusAccumbens},
		domain.Glutamate:      {domain.PrefrontalCortex, domain.Hippocampus, domain.Thalamus},
	}
}
