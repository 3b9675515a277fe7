package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/neurosim-server/internal/domain"
)

const sequenceColumns = `id, patient_id, region, neurotransmitter, timestamps, features, value_matrix, metadata, created_at, updated_at`

// PostgresSequenceRepository persists temporal sequences in PostgreSQL. The
// timestamp vector, feature list and value matrix are stored as JSONB; the
// sampled window is denormalized into start_time/end_time for range lookups.
type PostgresSequenceRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPostgresSequenceRepository creates a new sequence repository backed by a
// pgx connection pool.
func NewPostgresSequenceRepository(db *pgxpool.Pool, logger *logrus.Logger) *PostgresSequenceRepository {
	return &PostgresSequenceRepository{
		db:  db,
		log: logger,
	}
}

// Save inserts a new sequence. Sequences are immutable once stored, so there
// is no update path.
func (r *PostgresSequenceRepository) Save(ctx context.Context, sequence *domain.TemporalSequence) error {
	if err := sequence.Validate(); err != nil {
		return fmt.Errorf("saving sequence: %w", err)
	}

	if sequence.CreatedAt.IsZero() {
		sequence.CreatedAt = time.Now().UTC()
	}
	if sequence.UpdatedAt.IsZero() {
		sequence.UpdatedAt = sequence.CreatedAt
	}

	// Marshal JSONB fields
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

	var metadataJSON []byte
	if len(sequence.Metadata) > 0 {
		metadataJSON, err = json.Marshal(sequence.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata: %w", err)
		}
	}

	var startTime, endTime *time.Time
	if n := len(sequence.Timestamps); n > 0 {
		startTime = &sequence.Timestamps[0]
		endTime = &sequence.Timestamps[n-1]
	}

	query := `
		INSERT INTO sequences (
			id, patient_id, region, neurotransmitter, timestamps, features,
			value_matrix, metadata, start_time, end_time, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)`

	_, err = r.db.Exec(ctx, query,
		sequence.ID,
		sequence.PatientID,
		sequence.Region,
		sequence.Neurotransmitter,
		timestampsJSON,
		featuresJSON,
		valuesJSON,
		metadataJSON,
		startTime,
		endTime,
		sequence.CreatedAt,
		sequence.UpdatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"sequence_id": sequence.ID,
			"patient_id":  sequence.PatientID,
			"error":       err,
		}).Error("Failed to save sequence")
		return fmt.Errorf("saving sequence: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"sequence_id": sequence.ID,
		"patient_id":  sequence.PatientID,
		"features":    len(sequence.Features),
		"points":      len(sequence.Timestamps),
	}).Info("Sequence saved successfully")

	return nil
}

// GetByID retrieves a sequence by its ID.
func (r *PostgresSequenceRepository) GetByID(ctx context.Context, id string) (*domain.TemporalSequence, error) {
	query := `
		SELECT ` + sequenceColumns + `
		FROM sequences
		WHERE id = $1`

	sequence, err := scanSequence(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("sequence not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"sequence_id": id,
			"error":       err,
		}).Error("Failed to get sequence by ID")
		return nil, fmt.Errorf("getting sequence by ID: %w", err)
	}

	return sequence, nil
}

// GetLatestByFeature finds the most recent sequence for a patient that
// carries the named feature column. A miss returns (nil, nil): an empty
// history is a normal outcome, not a failure.
func (r *PostgresSequenceRepository) GetLatestByFeature(ctx context.Context, patientID, feature string) (*domain.TemporalSequence, error) {
	// The JSONB ? operator tests top-level array membership.
	query := `
		SELECT ` + sequenceColumns + `
		FROM sequences
		WHERE patient_id = $1 AND features ? $2
		ORDER BY created_at DESC
		LIMIT 1`

	sequence, err := scanSequence(r.db.QueryRow(ctx, query, patientID, feature))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"feature":    feature,
			"error":      err,
		}).Error("Failed to get latest sequence by feature")
		return nil, fmt.Errorf("getting latest sequence by feature: %w", err)
	}

	return sequence, nil
}

// GetByTimeRange finds the most recent sequence for the patient, transmitter
// and region whose sampled window overlaps [start, end]. A miss returns
// (nil, nil).
func (r *PostgresSequenceRepository) GetByTimeRange(ctx context.Context, patientID string, nt domain.Neurotransmitter, region domain.BrainRegion, start, end time.Time) (*domain.TemporalSequence, error) {
	query := `
		SELECT ` + sequenceColumns + `
		FROM sequences
		WHERE patient_id = $1 AND neurotransmitter = $2 AND region = $3
		  AND start_time <= $4 AND end_time >= $5
		ORDER BY created_at DESC
		LIMIT 1`

	sequence, err := scanSequence(r.db.QueryRow(ctx, query, patientID, nt, region, end, start))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.log.WithFields(logrus.Fields{
			"patient_id":       patientID,
			"neurotransmitter": nt,
			"region":           region,
			"error":            err,
		}).Error("Failed to get sequence by time range")
		return nil, fmt.Errorf("getting sequence by time range: %w", err)
	}

	return sequence, nil
}

// ListByPatient returns a patient's sequences, newest first.
func (r *PostgresSequenceRepository) ListByPatient(ctx context.Context, patientID string, limit int) ([]*domain.TemporalSequence, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + sequenceColumns + `
		FROM sequences
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, patientID, limit)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"error":      err,
		}).Error("Failed to list sequences by patient")
		return nil, fmt.Errorf("listing sequences by patient: %w", err)
	}
	defer rows.Close()

	var sequences []*domain.TemporalSequence
	for rows.Next() {
		sequence, err := scanSequence(rows)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"patient_id": patientID,
				"error":      err,
			}).Error("Failed to scan sequence row")
			return nil, fmt.Errorf("scanning sequence row: %w", err)
		}
		sequences = append(sequences, sequence)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sequence rows: %w", err)
	}

	return sequences, nil
}

func scanSequence(row pgx.Row) (*domain.TemporalSequence, error) {
	var sequence domain.TemporalSequence
	var timestampsJSON, featuresJSON, valuesJSON, metadataJSON []byte

	err := row.Scan(
		&sequence.ID,
		&sequence.PatientID,
		&sequence.Region,
		&sequence.Neurotransmitter,
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

	// Unmarshal JSONB fields
	if err := json.Unmarshal(timestampsJSON, &sequence.Timestamps); err != nil {
		return nil, fmt.Errorf("unmarshaling timestamps: %w", err)
	}

	if err := json.Unmarshal(featuresJSON, &sequence.Features); err != nil {
		return nil, fmt.Errorf("unmarshaling features: %w", err)
	}

	if err := json.Unmarshal(valuesJSON, &sequence.Values); err != nil {
		return nil, fmt.Errorf("unmarshaling values: %w", err)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &sequence.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &sequence, nil
}
