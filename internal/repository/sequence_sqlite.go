package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/neurosim-server/internal/domain"
)

// SQLiteSequenceRepository implements domain.SequenceRepository on a local
// SQLite database. It is the zero-infrastructure backend used by the lite
// server; the matrix payloads are stored as JSON text.
type SQLiteSequenceRepository struct {
	db   *sql.DB
	path string
}

// NewSQLiteSequenceRepository creates a new SQLite-backed sequence repository
// at the given path.
func NewSQLiteSequenceRepository(dbPath string) (*SQLiteSequenceRepository, error) {
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

	// WAL keeps readers from blocking the writer while simulations persist
	// several sequences in a row.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	repo := &SQLiteSequenceRepository{db: db, path: dbPath}
	if err := repo.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return repo, nil
}

func (r *SQLiteSequenceRepository) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sequences (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		region TEXT NOT NULL DEFAULT '',
		neurotransmitter TEXT NOT NULL DEFAULT '',
		timestamps TEXT NOT NULL,
		features TEXT NOT NULL,
		value_matrix TEXT NOT NULL,
		metadata TEXT,
		start_time TIMESTAMP,
		end_time TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sequences_patient ON sequences(patient_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_sequences_lookup ON sequences(patient_id, neurotransmitter, region);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Save inserts a new sequence. Sequences are immutable once stored.
func (r *SQLiteSequenceRepository) Save(ctx context.Context, sequence *domain.TemporalSequence) error {
	if err := sequence.Validate(); err != nil {
		return fmt.Errorf("saving sequence: %w", err)
	}

	if sequence.CreatedAt.IsZero() {
		sequence.CreatedAt = time.Now().UTC()
	}
	if sequence.UpdatedAt.IsZero() {
		sequence.UpdatedAt = sequence.CreatedAt
	}

	timestampsJSON, err := json.Marshal(sequence.Timestamps)
	if err != nil {
		return fmt.Errorf("marshaling timestamps: %w", err)
	}

	featuresJSON, err := json.Marshal(sequence.Features)
	if err != nil {
		return fmt.Errorf("marshaling features: %w", err)
	}

	valuesJSON, err := json.Marshal(sequence.Values)
	if err != nil {
		return fmt.Errorf("marshaling values: %w", err)
	}

	var metadataJSON interface{}
	if len(sequence.Metadata) > 0 {
		data, err := json.Marshal(sequence.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata: %w", err)
		}
		metadataJSON = string(data)
	}

	var startTime, endTime interface{}
	if n := len(sequence.Timestamps); n > 0 {
		startTime = sequence.Timestamps[0]
		endTime = sequence.Timestamps[n-1]
	}

	query := `
	INSERT INTO sequences (
		id, patient_id, region, neurotransmitter, timestamps, features,
		value_matrix, metadata, start_time, end_time, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		sequence.ID,
		sequence.PatientID,
		string(sequence.Region),
		string(sequence.Neurotransmitter),
		string(timestampsJSON),
		string(featuresJSON),
		string(valuesJSON),
		metadataJSON,
		startTime,
		endTime,
		sequence.CreatedAt,
		sequence.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving sequence: %w", err)
	}

	return nil
}

// GetByID retrieves a sequence by its ID.
func (r *SQLiteSequenceRepository) GetByID(ctx context.Context, id string) (*domain.TemporalSequence, error) {
	query := `
	SELECT ` + sequenceColumns + `
	FROM sequences
	WHERE id = ?`

	sequence, err := scanSequenceRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("sequence not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting sequence by ID: %w", err)
	}

	return sequence, nil
}

// GetLatestByFeature finds the most recent sequence for a patient that
// carries the named feature column. The feature list lives inside a JSON
// payload, so rows are walked newest first and decoded until one matches.
// A miss returns (nil, nil).
func (r *SQLiteSequenceRepository) GetLatestByFeature(ctx context.Context, patientID, feature string) (*domain.TemporalSequence, error) {
	query := `
	SELECT ` + sequenceColumns + `
	FROM sequences
	WHERE patient_id = ?
	ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("getting latest sequence by feature: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		sequence, err := scanSequenceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sequence row: %w", err)
		}
		if sequence.FeatureIndex(feature) >= 0 {
			return sequence, nil
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sequence rows: %w", err)
	}

	return nil, nil
}

// GetByTimeRange finds the most recent sequence for the patient, transmitter
// and region whose sampled window overlaps [start, end]. A miss returns
// (nil, nil).
func (r *SQLiteSequenceRepository) GetByTimeRange(ctx context.Context, patientID string, nt domain.Neurotransmitter, region domain.BrainRegion, start, end time.Time) (*domain.TemporalSequence, error) {
	query := `
	SELECT ` + sequenceColumns + `
	FROM sequences
	WHERE patient_id = ? AND neurotransmitter = ? AND region = ?
	  AND start_time <= ? AND end_time >= ?
	ORDER BY created_at DESC
	LIMIT 1`

	sequence, err := scanSequenceRow(r.db.QueryRowContext(ctx, query,
		patientID, string(nt), string(region), end, start))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("getting sequence by time range: %w", err)
	}

	return sequence, nil
}

// ListByPatient returns a patient's sequences, newest first.
func (r *SQLiteSequenceRepository) ListByPatient(ctx context.Context, patientID string, limit int) ([]*domain.TemporalSequence, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
	SELECT ` + sequenceColumns + `
	FROM sequences
	WHERE patient_id = ?
	ORDER BY created_at DESC
	LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sequences by patient: %w", err)
	}
	defer rows.Close()

	var sequences []*domain.TemporalSequence
	for rows.Next() {
		sequence, err := scanSequenceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sequence row: %w", err)
		}
		sequences = append(sequences, sequence)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sequence rows: %w", err)
	}

	return sequences, nil
}

// Close closes the underlying database connection.
func (r *SQLiteSequenceRepository) Close() error {
	return r.db.Close()
}

func scanSequenceRow(s scanner) (*domain.TemporalSequence, error) {
	var sequence domain.TemporalSequence
	var region, nt, timestampsJSON, featuresJSON, valuesJSON string
	var metadataJSON sql.NullString

	err := s.Scan(
		&sequence.ID,
		&sequence.PatientID,
		&region,
		&nt,
		&timestampsJSON,
		&featuresJSON,
		&valuesJSON,
		&metadataJSON,
		&sequence.CreatedAt,
		&sequence.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sequence.Region = domain.BrainRegion(region)
	sequence.Neurotransmitter = domain.Neurotransmitter(nt)

	if err := json.Unmarshal([]byte(timestampsJSON), &sequence.Timestamps); err != nil {
		return nil, fmt.Errorf("unmarshaling timestamps: %w", err)
	}

	if err := json.Unmarshal([]byte(featuresJSON), &sequence.Features); err != nil {
		return nil, fmt.Errorf("unmarshaling features: %w", err)
	}

	if err := json.Unmarshal([]byte(valuesJSON), &sequence.Values); err != nil {
		return nil, fmt.Errorf("unmarshaling values: %w", err)
	}

	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &sequence.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &sequence, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}
