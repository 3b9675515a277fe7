package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/neurosim-server/internal/domain"
)

// PostgresStore implements Store using PostgreSQL, for deployments where the
// audit trail must be shared across server instances.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store around an existing database connection.
// The caller retains ownership of the connection pool.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.createSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return store, nil
}

// NewPostgresStoreFromURL opens a new connection pool from a database URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresStore) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_patient ON events(patient_id);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
	CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Save appends one event to the trail.
func (s *PostgresStore) Save(ctx context.Context, event *domain.TemporalEvent) error {
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

	var metadataJSON []byte
	if event.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, patient_id, event_type, timestamp, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID,
		event.PatientID,
		string(event.Type),
		event.Timestamp,
		nullableJSON(metadataJSON),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}

	return nil
}

func nullableJSON(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}

// ListByPatient returns a patient's events, newest first.
func (s *PostgresStore) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*domain.TemporalEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, event_type, timestamp, metadata, created_at
		FROM events
		WHERE patient_id = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3`,
		patientID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*domain.TemporalEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// CountByType returns per-type event counts across all patients.
func (s *PostgresStore) CountByType(ctx context.Context) (map[domain.EventType]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_type, COUNT(*)
		FROM events
		GROUP BY event_type`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count events by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.EventType]int64)
	for rows.Next() {
		var eventType string
		var count int64
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[domain.EventType(eventType)] = count
	}

	return counts, rows.Err()
}

// Count returns the total number of stored events.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes events recorded before the cutoff.
func (s *PostgresStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM events WHERE created_at < $1", cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return deleted, nil
}

// ExportJSON exports all events to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, event_type, timestamp, metadata, created_at
		FROM events
		ORDER BY created_at ASC
		LIMIT $1`,
		maxExportLimit,
	)
	if err != nil {
		return fmt.Errorf("failed to query events for export: %w", err)
	}
	defer rows.Close()

	var events []*domain.TemporalEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return err
	}

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

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
