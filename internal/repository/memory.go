package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/neurosim-server/internal/domain"
)

// MemorySequenceRepository is an in-memory implementation of
// domain.SequenceRepository. It keeps insertion order so "latest" lookups
// stay deterministic even when several sequences share a creation timestamp.
type MemorySequenceRepository struct {
	mu        sync.RWMutex
	sequences map[string]*domain.TemporalSequence
	order     []string
}

// NewMemorySequenceRepository creates an empty in-memory repository.
func NewMemorySequenceRepository() *MemorySequenceRepository {
	return &MemorySequenceRepository{
		sequences: make(map[string]*domain.TemporalSequence),
	}
}

// Save stores a copy of the sequence so later mutations by the caller do not
// leak into the repository.
func (r *MemorySequenceRepository) Save(_ context.Context, sequence *domain.TemporalSequence) error {
	if err := sequence.Validate(); err != nil {
		return fmt.Errorf("saving sequence: %w", err)
	}

	if sequence.CreatedAt.IsZero() {
		sequence.CreatedAt = time.Now().UTC()
	}
	if sequence.UpdatedAt.IsZero() {
		sequence.UpdatedAt = sequence.CreatedAt
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sequences[sequence.ID]; !exists {
		r.order = append(r.order, sequence.ID)
	}
	r.sequences[sequence.ID] = cloneSequence(sequence)

	return nil
}

// GetByID retrieves a sequence by its ID.
func (r *MemorySequenceRepository) GetByID(_ context.Context, id string) (*domain.TemporalSequence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sequence, ok := r.sequences[id]
	if !ok {
		return nil, fmt.Errorf("sequence not found: %w", domain.ErrNotFound)
	}

	return cloneSequence(sequence), nil
}

// GetLatestByFeature returns the most recently saved sequence for the patient
// that carries the named feature, or (nil, nil) when none does.
func (r *MemorySequenceRepository) GetLatestByFeature(_ context.Context, patientID, feature string) (*domain.TemporalSequence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.order) - 1; i >= 0; i-- {
		sequence := r.sequences[r.order[i]]
		if sequence.PatientID != patientID {
			continue
		}
		if sequence.FeatureIndex(feature) >= 0 {
			return cloneSequence(sequence), nil
		}
	}

	return nil, nil
}

// GetByTimeRange returns the most recently saved sequence for the patient,
// transmitter and region whose sampled window overlaps [start, end], or
// (nil, nil) when none does.
func (r *MemorySequenceRepository) GetByTimeRange(_ context.Context, patientID string, nt domain.Neurotransmitter, region domain.BrainRegion, start, end time.Time) (*domain.TemporalSequence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.order) - 1; i >= 0; i-- {
		sequence := r.sequences[r.order[i]]
		if sequence.PatientID != patientID || sequence.Neurotransmitter != nt || sequence.Region != region {
			continue
		}
		n := len(sequence.Timestamps)
		if n == 0 {
			continue
		}
		if !sequence.Timestamps[0].After(end) && !sequence.Timestamps[n-1].Before(start) {
			return cloneSequence(sequence), nil
		}
	}

	return nil, nil
}

// ListByPatient returns a patient's sequences, newest saved first.
func (r *MemorySequenceRepository) ListByPatient(_ context.Context, patientID string, limit int) ([]*domain.TemporalSequence, error) {
	if limit <= 0 {
		limit = 100
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var sequences []*domain.TemporalSequence
	for i := len(r.order) - 1; i >= 0 && len(sequences) < limit; i-- {
		sequence := r.sequences[r.order[i]]
		if sequence.PatientID != patientID {
			continue
		}
		sequences = append(sequences, cloneSequence(sequence))
	}

	return sequences, nil
}

// Len reports the number of stored sequences.
func (r *MemorySequenceRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sequences)
}

func cloneSequence(sequence *domain.TemporalSequence) *domain.TemporalSequence {
	clone := *sequence

	clone.Timestamps = append([]time.Time(nil), sequence.Timestamps...)
	clone.Features = append([]string(nil), sequence.Features...)

	clone.Values = make([][]float64, len(sequence.Values))
	for i, row := range sequence.Values {
		clone.Values[i] = append([]float64(nil), row...)
	}

	if sequence.Metadata != nil {
		clone.Metadata = make(map[string]interface{}, len(sequence.Metadata))
		for k, v := range sequence.Metadata {
			clone.Metadata[k] = v
		}
	}

	return &clone
}
