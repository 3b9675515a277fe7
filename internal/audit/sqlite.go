package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/neurosim-server/internal/domain"
)

const maxExportLimit = 1000000

// SQLiteStore implements Store using a local SQLite database. It is the
// zero-infrastructure backend used by the lite server.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite-backed audit store at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL keeps readers from blocking the writer during long exports.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	store := &SQLiteStore{db: db, path: dbPath}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		metadata TEXT,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_patient ON events(patient_id);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
	CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(s scanner) (*domain.TemporalEvent, error) {
	var event domain.TemporalEvent
	var eventType string
	var metadataJSON sql.NullString

	err := s.Scan(
		&event.ID,
		&event.PatientID,
		&eventType,
		&event.Timestamp,
		&metadataJSON,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	event.Type = domain.EventType(eventType)

	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &event.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &event, nil
}

// Save appends one event to the trail.
func (s *SQLiteStore) Save(ctx context.Context, event *domain.TemporalEvent) error {
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
		VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.PatientID,
		string(event.Type),
		event.Timestamp,
		string(metadataJSON),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}

	return nil
}

// ListByPatient returns a patient's events, newest first.
func (s *SQLiteStore) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*domain.TemporalEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, event_type, timestamp, metadata, created_at
		FROM events
		WHERE patient_id = ?
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?`,
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
func (s *SQLiteStore) CountByType(ctx context.Context) (map[domain.EventType]int64, error) {
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
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes events recorded before the cutoff.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM events WHERE created_at < ?", cutoff,
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
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, event_type, timestamp, metadata, created_at
		FROM events
		ORDER BY created_at ASC
		LIMIT ?`,
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
