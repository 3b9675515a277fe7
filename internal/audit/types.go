// Package audit provides persistence for temporal audit events: the
// append-only trail of simulation activity (sequence generation, medication
// effects) attached to each patient.
//
// Event recording is best-effort: callers that have no store configured
// simply skip recording, and a failed write never fails the primary
// operation.
package audit

import (
	"context"
	"io"
	"time"

	"github.com/neurosim-server/internal/domain"
)

// Store defines the interface for audit event storage operations.
type Store interface {
	// Save appends one event. Events are immutable once written; Save
	// assigns CreatedAt when unset.
	Save(ctx context.Context, event *domain.TemporalEvent) error

	// ListByPatient returns a patient's events, newest first.
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*domain.TemporalEvent, error)

	// CountByType returns per-type event counts across all patients.
	CountByType(ctx context.Context) (map[domain.EventType]int64, error)

	// Count returns the total number of stored events.
	Count(ctx context.Context) (int64, error)

	// DeleteOlderThan removes events recorded before the cutoff, returning
	// the number deleted. Used by retention cleanup.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// ExportJSON exports all events to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// Close closes the store and releases resources.
	Close() error
}

// EventExport represents the JSON export format.
type EventExport struct {
	Version    string                  `json:"version"`
	ExportedAt time.Time               `json:"exported_at"`
	Count      int                     `json:"count"`
	Events     []*domain.TemporalEvent `json:"events"`
}
