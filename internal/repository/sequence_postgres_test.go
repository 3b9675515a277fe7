package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/neurosim-server/internal/database"
	"github.com/neurosim-server/internal/domain"
)

// generateTestPassword creates a secure random password for test databases
func generateTestPassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a default test password if random generation fails
		return "test_fallback_password_123"
	}
	return "test_" + hex.EncodeToString(bytes)
}

func setupTestDB(t *testing.T) (*database.DB, func()) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()

	// Generate secure random password for test database
	testPassword := generateTestPassword()

	// Start PostgreSQL container
	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	// Get connection details
	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	// Create database connection
	config := database.Config{
		Host:        host,
		Port:        port.Int(),
		Database:    "testdb",
		Username:    "testuser",
		Password:    testPassword,
		MaxConns:    10,
		MinConns:    2,
		MaxConnLife: time.Hour,
		MaxConnIdle: time.Minute * 30,
		SSLMode:     "disable",
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	db, err := database.NewConnection(ctx, config, logger)
	if err != nil {
		t.Fatalf("Failed to create database connection: %v", err)
	}

	// Run migrations
	migrationRunner, err := database.NewMigrationRunner(config.URL(), "../../migrations", logger)
	if err != nil {
		t.Fatalf("Failed to create migration runner: %v", err)
	}

	if err := migrationRunner.Up(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		migrationRunner.Close()
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}

	return db, cleanup
}

func testSequence(patientID string) *domain.TemporalSequence {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return &domain.TemporalSequence{
		ID:        uuid.New().String(),
		PatientID: patientID,
		Timestamps: []time.Time{
			base,
			base.Add(6 * time.Hour),
			base.Add(12 * time.Hour),
		},
		Features: []string{"serotonin", "dopamine"},
		Values: [][]float64{
			{0.4, 0.5},
			{0.45, 0.52},
			{0.5, 0.55},
		},
		Region:           domain.PrefrontalCortex,
		Neurotransmitter: domain.Serotonin,
		Metadata: map[string]interface{}{
			"noise_level": 0.1,
		},
	}
}

func TestPostgresSequenceRepository_SaveAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewPostgresSequenceRepository(db.Pool, logger)

	sequence := testSequence("patient-001")

	ctx := context.Background()
	if err := repo.Save(ctx, sequence); err != nil {
		t.Fatalf("Failed to save sequence: %v", err)
	}

	retrieved, err := repo.GetByID(ctx, sequence.ID)
	if err != nil {
		t.Fatalf("Failed to retrieve sequence: %v", err)
	}

	if retrieved.ID != sequence.ID {
		t.Errorf("Expected ID %s, got %s", sequence.ID, retrieved.ID)
	}
	if retrieved.PatientID != "patient-001" {
		t.Errorf("Expected patient patient-001, got %s", retrieved.PatientID)
	}
	if len(retrieved.Features) != 2 || retrieved.Features[0] != "serotonin" {
		t.Errorf("Features did not round-trip: %v", retrieved.Features)
	}
	if len(retrieved.Values) != 3 || retrieved.Values[2][1] != 0.55 {
		t.Errorf("Values did not round-trip: %v", retrieved.Values)
	}
	if retrieved.Region != domain.PrefrontalCortex {
		t.Errorf("Expected region prefrontal_cortex, got %s", retrieved.Region)
	}
	if !retrieved.Timestamps[1].Equal(sequence.Timestamps[1]) {
		t.Errorf("Timestamps did not round-trip: %v", retrieved.Timestamps)
	}
	if retrieved.Metadata["noise_level"] != 0.1 {
		t.Errorf("Metadata did not round-trip: %v", retrieved.Metadata)
	}
}

func TestPostgresSequenceRepository_GetByID_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewPostgresSequenceRepository(db.Pool, logger)

	_, err := repo.GetByID(context.Background(), uuid.New().String())
	if err == nil {
		t.Fatal("Expected error for unknown sequence ID, got nil")
	}
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestPostgresSequenceRepository_GetLatestByFeature(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewPostgresSequenceRepository(db.Pool, logger)

	ctx := context.Background()

	older := testSequence("patient-002")
	older.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	if err := repo.Save(ctx, older); err != nil {
		t.Fatalf("Failed to save older sequence: %v", err)
	}

	newer := testSequence("patient-002")
	newer.CreatedAt = time.Now().UTC().Add(-1 * time.Hour)
	if err := repo.Save(ctx, newer); err != nil {
		t.Fatalf("Failed to save newer sequence: %v", err)
	}

	latest, err := repo.GetLatestByFeature(ctx, "patient-002", "serotonin")
	if err != nil {
		t.Fatalf("Failed to get latest sequence by feature: %v", err)
	}
	if latest == nil {
		t.Fatal("Expected a sequence, got nil")
	}
	if latest.ID != newer.ID {
		t.Errorf("Expected newest sequence %s, got %s", newer.ID, latest.ID)
	}

	// A feature no sequence carries is a miss, not an error.
	missing, err := repo.GetLatestByFeature(ctx, "patient-002", "histamine")
	if err != nil {
		t.Fatalf("Unexpected error for missing feature: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil sequence for missing feature, got %v", missing.ID)
	}
}

func TestPostgresSequenceRepository_GetByTimeRange(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewPostgresSequenceRepository(db.Pool, logger)

	ctx := context.Background()
	sequence := testSequence("patient-003")
	if err := repo.Save(ctx, sequence); err != nil {
		t.Fatalf("Failed to save sequence: %v", err)
	}

	// Window overlapping the sampled interval.
	start := sequence.Timestamps[0].Add(-1 * time.Hour)
	end := sequence.Timestamps[0].Add(1 * time.Hour)
	found, err := repo.GetByTimeRange(ctx, "patient-003", domain.Serotonin, domain.PrefrontalCortex, start, end)
	if err != nil {
		t.Fatalf("Failed to get sequence by time range: %v", err)
	}
	if found == nil || found.ID != sequence.ID {
		t.Fatalf("Expected sequence %s in range, got %v", sequence.ID, found)
	}

	// Window entirely after the sampled interval.
	start = sequence.Timestamps[2].Add(24 * time.Hour)
	end = start.Add(6 * time.Hour)
	found, err = repo.GetByTimeRange(ctx, "patient-003", domain.Serotonin, domain.PrefrontalCortex, start, end)
	if err != nil {
		t.Fatalf("Unexpected error for non-overlapping range: %v", err)
	}
	if found != nil {
		t.Errorf("Expected nil sequence outside range, got %v", found.ID)
	}
}

func TestPostgresSequenceRepository_ListByPatient(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewPostgresSequenceRepository(db.Pool, logger)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		sequence := testSequence("patient-004")
		sequence.CreatedAt = time.Now().UTC().Add(time.Duration(-i) * time.Hour)
		if err := repo.Save(ctx, sequence); err != nil {
			t.Fatalf("Failed to save sequence %d: %v", i, err)
		}
	}
	other := testSequence("patient-005")
	if err := repo.Save(ctx, other); err != nil {
		t.Fatalf("Failed to save other patient's sequence: %v", err)
	}

	sequences, err := repo.ListByPatient(ctx, "patient-004", 10)
	if err != nil {
		t.Fatalf("Failed to list sequences: %v", err)
	}
	if len(sequences) != 3 {
		t.Fatalf("Expected 3 sequences, got %d", len(sequences))
	}
	for i := 1; i < len(sequences); i++ {
		if sequences[i].CreatedAt.After(sequences[i-1].CreatedAt) {
			t.Error("Expected sequences ordered newest first")
		}
	}

	limited, err := repo.ListByPatient(ctx, "patient-004", 2)
	if err != nil {
		t.Fatalf("Failed to list sequences with limit: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected 2 sequences with limit, got %d", len(limited))
	}
}
