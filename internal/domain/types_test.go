package domain

import (
	"errors"
	"testing"
	"time"
)

func TestBrainRegionConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    BrainRegion
		expected string
	}{
		{"Prefrontal cortex", PrefrontalCortex, "prefrontal_cortex"},
		{"Anterior cingulate", AnteriorCingulate, "anterior_cingulate"},
		{"Amygdala", Amygdala, "amygdala"},
		{"Hippocampus", Hippocampus, "hippocampus"},
		{"Raphe nuclei", RapheNuclei, "raphe_nuclei"},
		{"Ventral tegmental area", VentralTegmentalArea, "ventral_tegmental_area"},
		{"Locus coeruleus", LocusCoeruleus, "locus_coeruleus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.value) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, string(tt.value))
			}

			if !tt.value.IsValid() {
				t.Errorf("Expected %s to be valid", tt.value)
			}
		})
	}
}

func TestBrainRegionIsValid(t *testing.T) {
	if BrainRegion("cerebellum").IsValid() {
		t.Error("Expected unknown region to be invalid")
	}

	for _, region := range AllBrainRegions() {
		if !region.IsValid() {
			t.Errorf("Expected registered region %s to be valid", region)
		}
	}
}

func TestNeurotransmitterConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    Neurotransmitter
		expected string
	}{
		{"Serotonin", Serotonin, "serotonin"},
		{"Dopamine", Dopamine, "dopamine"},
		{"Norepinephrine", Norepinephrine, "norepinephrine"},
		{"GABA", GABA, "gaba"},
		{"Glutamate", Glutamate, "glutamate"},
		{"Acetylcholine", Acetylcholine, "acetylcholine"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.value) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, string(tt.value))
			}

			if !tt.value.IsValid() {
				t.Errorf("Expected %s to be valid", tt.value)
			}
		})
	}

	if Neurotransmitter("histamine").IsValid() {
		t.Error("Expected unknown neurotransmitter to be invalid")
	}

	if len(AllNeurotransmitters()) != 6 {
		t.Errorf("Expected 6 neurotransmitters, got %d", len(AllNeurotransmitters()))
	}
}

func TestReceptorTypeIsValid(t *testing.T) {
	valid := []ReceptorType{ReceptorExcitatory, ReceptorInhibitory, ReceptorModulatory}
	for _, rt := range valid {
		if !rt.IsValid() {
			t.Errorf("Expected %s to be valid", rt)
		}
	}

	if ReceptorType("ionotropic").IsValid() {
		t.Error("Expected unknown receptor type to be invalid")
	}
}

func TestReceptorProfileValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile ReceptorProfile
		wantErr error
	}{
		{
			name: "valid profile",
			profile: ReceptorProfile{
				Region:           PrefrontalCortex,
				Neurotransmitter: Serotonin,
				Receptor:         "5-HT1A",
				Type:             ReceptorInhibitory,
				Density:          0.7,
				Sensitivity:      0.8,
			},
		},
		{
			name: "invalid region",
			profile: ReceptorProfile{
				Region:           BrainRegion("pineal"),
				Neurotransmitter: Serotonin,
				Type:             ReceptorInhibitory,
				Density:          0.5,
				Sensitivity:      0.5,
			},
			wantErr: ErrInvalidRegion,
		},
		{
			name: "invalid neurotransmitter",
			profile: ReceptorProfile{
				Region:           Amygdala,
				Neurotransmitter: Neurotransmitter("orexin"),
				Type:             ReceptorExcitatory,
				Density:          0.5,
				Sensitivity:      0.5,
			},
			wantErr: ErrInvalidNeurotransmitter,
		},
		{
			name: "invalid receptor type",
			profile: ReceptorProfile{
				Region:           Amygdala,
				Neurotransmitter: GABA,
				Type:             ReceptorType("metabotropic"),
				Density:          0.5,
				Sensitivity:      0.5,
			},
			wantErr: ErrInvalidReceptorType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("density out of range", func(t *testing.T) {
		p := ReceptorProfile{
			Region:           Amygdala,
			Neurotransmitter: GABA,
			Type:             ReceptorInhibitory,
			Density:          1.2,
			Sensitivity:      0.5,
		}
		if p.Validate() == nil {
			t.Error("Expected error for density > 1")
		}
	})
}

func TestReceptorProfileAffinity(t *testing.T) {
	p := ReceptorProfile{Density: 0.8, Sensitivity: 0.5}

	if got := p.Affinity(); got != 0.4 {
		t.Errorf("Expected affinity 0.4, got %f", got)
	}
}

func TestTemporalSequenceValidate(t *testing.T) {
	now := time.Now()

	valid := &TemporalSequence{
		ID:         "seq-1",
		PatientID:  "patient-1",
		Timestamps: []time.Time{now, now.Add(6 * time.Hour)},
		Features:   []string{"serotonin", "dopamine"},
		Values:     [][]float64{{0.5, 0.4}, {0.55, 0.42}},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid sequence, got %v", err)
	}

	t.Run("row length mismatch", func(t *testing.T) {
		bad := &TemporalSequence{
			ID:         "seq-2",
			PatientID:  "patient-1",
			Timestamps: []time.Time{now},
			Features:   []string{"serotonin", "dopamine"},
			Values:     [][]float64{{0.5}},
		}
		if bad.Validate() == nil {
			t.Error("Expected error for short value row")
		}
	})

	t.Run("timestamp count mismatch", func(t *testing.T) {
		bad := &TemporalSequence{
			ID:         "seq-3",
			PatientID:  "patient-1",
			Timestamps: []time.Time{now, now.Add(time.Hour)},
			Features:   []string{"serotonin"},
			Values:     [][]float64{{0.5}},
		}
		if bad.Validate() == nil {
			t.Error("Expected error for timestamp/value count mismatch")
		}
	})

	t.Run("missing patient", func(t *testing.T) {
		bad := &TemporalSequence{ID: "seq-4"}
		if bad.Validate() == nil {
			t.Error("Expected error for missing patient ID")
		}
	})
}

func TestTemporalSequenceFeatureLookup(t *testing.T) {
	seq := &TemporalSequence{
		ID:         "seq-1",
		PatientID:  "patient-1",
		Timestamps: []time.Time{time.Now(), time.Now().Add(time.Hour)},
		Features:   []string{"serotonin", "dopamine"},
		Values:     [][]float64{{0.5, 0.4}, {0.6, 0.45}},
	}

	if idx := seq.FeatureIndex("dopamine"); idx != 1 {
		t.Errorf("Expected index 1, got %d", idx)
	}

	// A missing feature is a legal lookup, never an error.
	if idx := seq.FeatureIndex("gaba"); idx != -1 {
		t.Errorf("Expected index -1 for missing feature, got %d", idx)
	}

	column, ok := seq.FeatureColumn("serotonin")
	if !ok {
		t.Fatal("Expected serotonin column to exist")
	}
	if len(column) != 2 || column[0] != 0.5 || column[1] != 0.6 {
		t.Errorf("Unexpected column values: %v", column)
	}

	if _, ok := seq.FeatureColumn("gaba"); ok {
		t.Error("Expected missing feature column lookup to report absence")
	}

	if v := seq.ValueAt(0, "gaba"); v != 0.0 {
		t.Errorf("Expected 0.0 for missing feature, got %f", v)
	}

	if v := seq.ValueAt(1, "dopamine"); v != 0.45 {
		t.Errorf("Expected 0.45, got %f", v)
	}
}

func TestCascadeResultRecord(t *testing.T) {
	result := NewCascadeResult(Amygdala, Serotonin, 1.0, 3)

	result.Record(Amygdala, Serotonin, 1.0, 0, false)
	result.Record(PrefrontalCortex, Serotonin, 0.4, 1, false)

	// First-visit-wins: a revisit must not change the stored effect.
	result.Record(PrefrontalCortex, Serotonin, 0.2, 2, false)

	if got := result.Effect(PrefrontalCortex, Serotonin); got != 0.4 {
		t.Errorf("Expected first-visit effect 0.4, got %f", got)
	}

	if depth := result.Depths[PrefrontalCortex][Serotonin]; depth != 1 {
		t.Errorf("Expected first-visit depth 1, got %d", depth)
	}

	if result.KeyCount() != 2 {
		t.Errorf("Expected 2 keys, got %d", result.KeyCount())
	}

	if result.Effect(Thalamus, Dopamine) != 0.0 {
		t.Error("Expected 0.0 for unreached key")
	}
}

func TestCascadeResultAccumulate(t *testing.T) {
	result := NewCascadeResult(Amygdala, Serotonin, 1.0, 3)

	result.Record(PrefrontalCortex, Serotonin, 0.4, 1, true)
	result.Record(PrefrontalCortex, Serotonin, 0.2, 2, true)

	if got := result.Effect(PrefrontalCortex, Serotonin); got != 0.6000000000000001 && got != 0.6 {
		t.Errorf("Expected summed effect 0.6, got %f", got)
	}

	// Depth always reflects the first visit, even when accumulating.
	if depth := result.Depths[PrefrontalCortex][Serotonin]; depth != 1 {
		t.Errorf("Expected depth 1, got %d", depth)
	}
}

func TestTemporalEventValidate(t *testing.T) {
	valid := &TemporalEvent{
		PatientID: "patient-1",
		Type:      EventMedicationEffect,
		Timestamp: time.Now(),
	}

	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid event, got %v", err)
	}

	bad := &TemporalEvent{PatientID: "patient-1", Type: EventType("admission")}
	if bad.Validate() == nil {
		t.Error("Expected error for unknown event type")
	}
}

func TestCoordinateDistance(t *testing.T) {
	a := Coordinate3D{X: 0, Y: 0, Z: 0}
	b := Coordinate3D{X: 3, Y: 4, Z: 0}

	if got := a.DistanceTo(b); got != 5.0 {
		t.Errorf("Expected distance 5.0, got %f", got)
	}
}
