package service

import (
	"strings"

	"github.com/neurosim-server/internal/domain"
)

// MedicationRegistry maps medication names and classes to the
// neurotransmitter systems they act on, with relative weights. Weights are
// positive; the sign of an effect comes from the caller's effect magnitude.
type MedicationRegistry struct {
	classes map[string]map[domain.Neurotransmitter]float64
	aliases map[string]string
}

// NewMedicationRegistry builds the registry with the built-in medication
// class profiles.
func NewMedicationRegistry() *MedicationRegistry {
	return &MedicationRegistry{
		classes: map[string]map[domain.Neurotransmitter]float64{
			"ssri": {
				domain.Serotonin: 1.0,
			},
			"snri": {
				domain.Serotonin:      1.0,
				domain.Norepinephrine: 0.6,
			},
			"ndri": {
				domain.Dopamine:       0.8,
				domain.Norepinephrine: 0.7,
			},
			"maoi": {
				domain.Serotonin:      0.9,
				domain.Dopamine:       0.7,
				domain.Norepinephrine: 0.7,
			},
			"benzodiazepine": {
				domain.GABA: 1.0,
			},
			"atypical_antipsychotic": {
				domain.Dopamine:  1.0,
				domain.Serotonin: 0.6,
			},
			"stimulant": {
				domain.Dopamine:       1.0,
				domain.Norepinephrine: 0.8,
			},
		},
		aliases: map[string]string{
			"fluoxetine":      "ssri",
			"sertraline":      "ssri",
			"escitalopram":    "ssri",
			"paroxetine":      "ssri",
			"citalopram":      "ssri",
			"venlafaxine":     "snri",
			"duloxetine":      "snri",
			"bupropion":       "ndri",
			"phenelzine":      "maoi",
			"tranylcypromine": "maoi",
			"diazepam":        "benzodiazepine",
			"lorazepam":       "benzodiazepine",
			"clonazepam":      "benzodiazepine",
			"alprazolam":      "benzodiazepine",
			"risperidone":     "atypical_antipsychotic",
			"quetiapine":      "atypical_antipsychotic",
			"olanzapine":      "atypical_antipsychotic",
			"aripiprazole":    "atypical_antipsychotic",
			"methylphenidate": "stimulant",
			"amphetamine":     "stimulant",
		},
	}
}

// Class resolves a medication name to its registered class, if any.
func (r *MedicationRegistry) Class(medication string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(medication))
	if name == "" {
		return "", false
	}

	if _, ok := r.classes[name]; ok {
		return name, true
	}

	if class, ok := r.aliases[name]; ok {
		return class, true
	}

	return "", false
}

// AffectedWeights returns the neurotransmitter weight set for a medication.
// Unknown medications fall back to the explicit target at full weight. When a
// class profile is found and an explicit target is given but absent from the
// profile, the target is added at full weight: the prescriber's stated target
// always participates in the simulation.
func (r *MedicationRegistry) AffectedWeights(medication string, target domain.Neurotransmitter) map[domain.Neurotransmitter]float64 {
	weights := make(map[domain.Neurotransmitter]float64)

	if class, ok := r.Class(medication); ok {
		for nt, w := range r.classes[class] {
			weights[nt] = w
		}
	}

	if len(weights) == 0 {
		if target.IsValid() {
			weights[target] = 1.0
		}
		return weights
	}

	if target.IsValid() {
		if _, ok := weights[target]; !ok {
			weights[target] = 1.0
		}
	}

	return weights
}
