package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ascvd-risk-mcp-server/internal/database"
	"github.com/ascvd-risk-mcp-server/internal/domain"
)

// generateTestPassword creates a random password for test databases
func generateTestPassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "test_fallback_password_123"
	}
	return "test_" + hex.EncodeToString(bytes)
}

func setupTestDB(t *testing.T) (*database.DB, func()) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	testPassword := generateTestPassword()

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

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	config := domain.RemoteConfig{
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

	migrationRunner, err := database.NewMigrationRunnerFromURL(database.ConnectionString(config), logger)
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

func testAssessment(owner string, tier domain.RiskTier, created time.Time) *domain.AssessmentRecord {
	return &domain.AssessmentRecord{
		ID:      uuid.NewString(),
		OwnerID: owner,
		Input: domain.ClinicalInput{
			Age: 58, Gender: domain.MALE, Smoking: true, Hypertension: true,
			SBP: 146, TC: 5.6, LDL: 3.6, HDL: 0.95,
		},
		Result: domain.ClassificationResult{
			Tier:   tier,
			Reason: "Hypertension with elevated cholesterol (LDL-C ≥ 3.4 mmol/L or TC ≥ 5.2 mmol/L)",
		},
		CreatedAt: created.UTC().Truncate(time.Microsecond),
	}
}

func TestAssessmentRepository_UpsertAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewAssessmentRepository(db.Pool, logger)
	ctx := context.Background()

	record := testAssessment("device-1", domain.HIGH, time.Now())
	require.NoError(t, repo.Upsert(ctx, record))

	got, err := repo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, record.OwnerID, got.OwnerID)
	assert.Equal(t, record.Input, got.Input)
	assert.Equal(t, record.Result, got.Result)
	assert.True(t, record.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, got.Synced)

	// upserting again updates in place
	record.Result.Tier = domain.MODERATE
	require.NoError(t, repo.Upsert(ctx, record))
	got, err = repo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MODERATE, got.Result.Tier)
}

func TestAssessmentRepository_GetByID_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	repo := NewAssessmentRepository(db.Pool, logger)

	_, err := repo.GetByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAssessmentRepository_BatchAndList(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewAssessmentRepository(db.Pool, logger)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	records := []*domain.AssessmentRecord{
		testAssessment("device-1", domain.LOW, base),
		testAssessment("device-1", domain.HIGH, base.Add(time.Minute)),
		testAssessment("device-1", domain.HIGH, base.Add(2*time.Minute)),
		testAssessment("device-2", domain.VERY_HIGH, base),
	}
	require.NoError(t, repo.UpsertBatch(ctx, records))
	require.NoError(t, repo.UpsertBatch(ctx, nil))

	list, err := repo.ListByOwner(ctx, "device-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, records[2].ID, list[0].ID, "most recent first")
	assert.Equal(t, records[0].ID, list[2].ID)

	page, err := repo.ListByOwner(ctx, "device-1", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, records[1].ID, page[0].ID)

	empty, err := repo.ListByOwner(ctx, "nobody", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	counts, err := repo.CountByTier(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.LOW])
	assert.Equal(t, int64(2), counts[domain.HIGH])
	assert.Equal(t, int64(1), counts[domain.VERY_HIGH])
}
