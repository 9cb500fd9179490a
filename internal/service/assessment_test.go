package service

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ascvd-risk-mcp-server/internal/cache"
	"github.com/ascvd-risk-mcp-server/internal/domain"
	"github.com/ascvd-risk-mcp-server/internal/history"
	"github.com/ascvd-risk-mcp-server/internal/identity"
)

// failingStore rejects every save; other methods are not used by these tests
type failingStore struct {
	history.Store
}

func (failingStore) Save(context.Context, *history.Record) error {
	return errors.New("disk full")
}

func newTestService(t *testing.T, resultCache cache.Cache) (*AssessmentService, history.Store) {
	t.Helper()

	store, err := history.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"), history.Options{
		Identity: identity.Static("device-test"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger, _ := logrustest.NewNullLogger()
	return NewAssessmentService(logger, store, resultCache, time.Minute), store
}

func TestBuildEvaluation(t *testing.T) {
	eval := BuildEvaluation(scenarioB())

	assert.Equal(t, scenarioB(), eval.Input)
	assert.Equal(t, domain.HIGH, eval.Classification.Tier)
	assert.Equal(t, domain.HIGH.Info(), eval.TierInfo)
	assert.Contains(t, eval.Recommendation.Target, "1.8 mmol/L")
	assert.NotNil(t, eval.Projections)
}

func TestAssessmentService_Evaluate_UsesCache(t *testing.T) {
	memory := cache.NewMemoryCache(10, time.Minute)
	tiered := cache.NewTieredCache(memory, nil, nil)
	svc, store := newTestService(t, tiered)
	ctx := context.Background()

	first := svc.Evaluate(ctx, scenarioC())
	second := svc.Evaluate(ctx, scenarioC())

	assert.Equal(t, first, second)
	assert.NotNil(t, second.Projections)
	assert.Equal(t, int64(1), tiered.Stats().Hits)
	assert.Equal(t, int64(1), tiered.Stats().Misses)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "evaluate must not persist")
}

func TestAssessmentService_Evaluate_CorruptCacheEntry(t *testing.T) {
	memory := cache.NewMemoryCache(10, time.Minute)
	svc, _ := newTestService(t, memory)
	ctx := context.Background()

	key, err := cache.Fingerprint(evaluationCacheNamespace, scenarioA())
	require.NoError(t, err)
	require.NoError(t, memory.Set(ctx, key, []byte("{broken"), 0))

	eval := svc.Evaluate(ctx, scenarioA())
	assert.Equal(t, domain.VERY_HIGH, eval.Classification.Tier)
}

func TestAssessmentService_Assess(t *testing.T) {
	svc, store := newTestService(t, nil)
	ctx := context.Background()

	assessment, err := svc.Assess(ctx, scenarioA())

	require.NoError(t, err)
	assert.True(t, assessment.Saved)
	assert.NotEmpty(t, assessment.RecordID)
	assert.Equal(t, domain.VERY_HIGH, assessment.Classification.Tier)

	record, err := store.Get(ctx, assessment.RecordID)
	require.NoError(t, err)
	assert.Equal(t, scenarioA(), record.Input)
	assert.Equal(t, assessment.Classification, record.Result)
	assert.Equal(t, "device-test", record.OwnerID)
	assert.False(t, record.Synced)
}

func TestAssessmentService_Assess_PersistenceFailure(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	svc := NewAssessmentService(logger, failingStore{}, nil, 0)

	assessment, err := svc.Assess(context.Background(), scenarioB())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Contains(t, err.Error(), "disk full")

	require.NotNil(t, assessment, "the computed result survives a failed save")
	assert.False(t, assessment.Saved)
	assert.Empty(t, assessment.RecordID)
	assert.Equal(t, domain.HIGH, assessment.Classification.Tier)
	assert.Equal(t, "Failed to save assessment", hook.LastEntry().Message)
}

func TestAssessmentService_HistoryAndClear(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	for _, input := range []domain.ClinicalInput{scenarioA(), scenarioB(), scenarioC()} {
		_, err := svc.Assess(ctx, input)
		require.NoError(t, err)
	}

	records, err := svc.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, domain.LOW, records[0].Result.Tier, "most recent first")
	assert.Equal(t, domain.VERY_HIGH, records[2].Result.Tier)

	require.NoError(t, svc.ClearHistory(ctx))
	records, err = svc.History(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAssessmentService_Replay(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	saved, err := svc.Assess(ctx, scenarioB())
	require.NoError(t, err)

	replayed, err := svc.Replay(ctx, saved.RecordID)
	require.NoError(t, err)
	assert.Equal(t, saved.RecordID, replayed.RecordID)
	assert.Equal(t, saved.Evaluation, replayed.Evaluation)

	_, err = svc.Replay(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAssessmentService_ExportImport(t *testing.T) {
	source, _ := newTestService(t, nil)
	target, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := source.Assess(ctx, scenarioA())
	require.NoError(t, err)
	_, err = source.Assess(ctx, scenarioC())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, source.ExportHistory(ctx, &buf))

	imported, skipped, err := target.ImportHistory(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, imported)
	assert.Zero(t, skipped)

	records, err := target.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.LOW, records[0].Result.Tier)
}
