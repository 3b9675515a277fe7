package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/neurosim-server/internal/domain"
)

// MemoryStore implements Store in process memory. Events are lost on
// shutdown; it backs tests and ephemeral single-run simulations.
type MemoryStore struct {
	mu     sync.RWMutex
	events []*domain.TemporalEvent
}

// NewMemoryStore creates an empty in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save appends one event to the trail.
func (s *MemoryStore) Save(ctx context.Context, event *domain.TemporalEvent) error {
	if event == nil {
		return fmt.Errorf("event is nil")
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if err := event.Validate(); err != nil {
		return err
	}

	clone := *event

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, &clone)
	return nil
}

// ListByPatient returns a patient's events, newest first.
func (s *MemoryStore) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*domain.TemporalEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	s.mu.RLock()
	var matched []*domain.TemporalEvent
	for _, event := range s.events {
		if event.PatientID == patientID {
			matched = append(matched, event)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*domain.TemporalEvent, len(matched))
	for i, event := range matched {
		clone := *event
		out[i] = &clone
	}
	return out, nil
}

// CountByType returns per-type event counts across all patients.
func (s *MemoryStore) CountByType(ctx context.Context) (map[domain.EventType]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.EventType]int64)
	for _, event := range s.events {
		counts[event.Type]++
	}
	return counts, nil
}

// Count returns the total number of stored events.
func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.events)), nil
}

// DeleteOlderThan removes events recorded before the cutoff.
func (s *MemoryStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var deleted int64
	for _, event := range s.events {
		if event.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, event)
	}
	s.events = kept
	return deleted, nil
}

// ExportJSON exports all events to a JSON writer.
func (s *MemoryStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	s.mu.RLock()
	events := make([]*domain.TemporalEvent, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})

	export := EventExport{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Count:      len(events),
		Events:     events,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
