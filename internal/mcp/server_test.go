package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ascvd-risk-mcp-server/internal/cache"
	"github.com/ascvd-risk-mcp-server/internal/config"
	"github.com/ascvd-risk-mcp-server/internal/domain"
	"github.com/ascvd-risk-mcp-server/internal/history"
	"github.com/ascvd-risk-mcp-server/internal/identity"
	"github.com/ascvd-risk-mcp-server/internal/service"
)

// brokenStore fails every save
type brokenStore struct {
	history.Store
}

func (brokenStore) Save(context.Context, *history.Record) error {
	return errors.New("read-only filesystem")
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store, err := history.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"), history.Options{
		Identity: identity.Static("device-mcp"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return newServerWithStore(t, store)
}

func newServerWithStore(t *testing.T, store history.Store) *Server {
	t.Helper()

	logger, _ := logrustest.NewNullLogger()
	svc := service.NewAssessmentService(logger, store, cache.NewMemoryCache(10, time.Minute), time.Minute)
	return NewServer(ServerInfo{Name: "test", Version: "v0.0.0"}, svc, logger)
}

// decodeResult unmarshals the single JSON text block of a tool result
func decodeResult(t *testing.T, result *mcp.CallToolResult, v interface{}) {
	t.Helper()

	require.NotNil(t, result)
	require.False(t, result.IsError, "unexpected tool error")
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(text.Text), v))
}

func errorText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	require.NotNil(t, result)
	require.True(t, result.IsError)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func veryHighParams() RiskInputParams {
	return RiskInputParams{
		Age: 66, Gender: "Male", HasASCVD: true,
		SBP: 135, TC: 5.2, LDL: 3.1, HDL: 1.0,
	}
}

func TestNewServer(t *testing.T) {
	server := newTestServer(t)

	assert.NotNil(t, server.mcpServer)
	assert.NotNil(t, server.service)
	assert.NotNil(t, server.logger)
}

func TestClassifyRisk(t *testing.T) {
	server := newTestServer(t)

	result, _, err := server.handleClassifyRisk(context.Background(), nil, veryHighParams())
	require.NoError(t, err)

	var resp ClassifyResult
	decodeResult(t, result, &resp)
	assert.Equal(t, domain.VERY_HIGH, resp.Classification.Tier)
	assert.Equal(t, "ascvd_history", resp.Rule.ID)
	assert.Equal(t, "Very high risk", resp.TierInfo.Label)
}

func TestClassifyRisk_InvalidInput(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name   string
		params RiskInputParams
	}{
		{"too young", RiskInputParams{Age: 10, SBP: 120, TC: 4, LDL: 2, HDL: 1.2}},
		{"unknown gender", RiskInputParams{Age: 40, Gender: "x", SBP: 120, TC: 4, LDL: 2, HDL: 1.2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _, err := server.handleClassifyRisk(context.Background(), nil, tt.params)
			require.NoError(t, err)
			assert.Contains(t, errorText(t, result), "Invalid clinical input")
		})
	}
}

func TestRecommendTreatment(t *testing.T) {
	server := newTestServer(t)
	ldl := 2.9

	result, _, err := server.handleRecommendTreatment(context.Background(), nil, RecommendParams{Tier: "moderate", LDL: &ldl})
	require.NoError(t, err)

	var rec domain.RecommendationResult
	decodeResult(t, result, &rec)
	assert.Equal(t, "LDL-C <2.6 mmol/L", rec.Target)
	assert.Len(t, rec.Advice, 3)

	result, _, err = server.handleRecommendTreatment(context.Background(), nil, RecommendParams{Tier: "SEVERE"})
	require.NoError(t, err)
	assert.Contains(t, errorText(t, result), "Invalid tier")
}

func TestSimulateInterventions(t *testing.T) {
	server := newTestServer(t)

	params := RiskInputParams{
		Age: 50, Gender: "male", Smoking: true,
		SBP: 135, TC: 4.5, LDL: 2.0, HDL: 0.9,
	}
	result, _, err := server.handleSimulateInterventions(context.Background(), nil, params)
	require.NoError(t, err)

	var resp SimulateResult
	decodeResult(t, result, &resp)
	assert.Equal(t, domain.HIGH, resp.BeforeTier)
	require.Len(t, resp.Projections, 1)
	assert.Equal(t, domain.INTERVENTION_SMOKING, resp.Projections[0].Type)
	assert.Equal(t, domain.MODERATE, resp.Projections[0].AfterTier)
}

func TestAssessRisk_AndHistory(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	result, _, err := server.handleAssessRisk(ctx, nil, veryHighParams())
	require.NoError(t, err)

	var assessed AssessResult
	decodeResult(t, result, &assessed)
	require.NotNil(t, assessed.Assessment)
	assert.True(t, assessed.Saved)
	assert.Empty(t, assessed.Warning)
	assert.Equal(t, domain.VERY_HIGH, assessed.Classification.Tier)

	result, _, err = server.handleGetHistory(ctx, nil, HistoryParams{})
	require.NoError(t, err)

	var hist HistoryResult
	decodeResult(t, result, &hist)
	require.Equal(t, 1, hist.Count)
	assert.Equal(t, assessed.RecordID, hist.Assessments[0].ID)
	assert.Equal(t, "device-mcp", hist.Assessments[0].OwnerID)

	result, _, err = server.handleGetHistory(ctx, nil, HistoryParams{Limit: -1})
	require.NoError(t, err)
	assert.Contains(t, errorText(t, result), "limit")
}

func TestAssessRisk_PersistenceFailureKeepsResult(t *testing.T) {
	server := newServerWithStore(t, brokenStore{})

	result, _, err := server.handleAssessRisk(context.Background(), nil, veryHighParams())
	require.NoError(t, err)

	var assessed AssessResult
	decodeResult(t, result, &assessed)
	require.NotNil(t, assessed.Assessment)
	assert.False(t, assessed.Saved)
	assert.Equal(t, domain.VERY_HIGH, assessed.Classification.Tier)
	assert.Contains(t, assessed.Warning, "read-only filesystem")
}

func TestClearHistory(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	_, _, err := server.handleAssessRisk(ctx, nil, veryHighParams())
	require.NoError(t, err)

	result, _, err := server.handleClearHistory(ctx, nil, ClearHistoryParams{})
	require.NoError(t, err)
	assert.Contains(t, errorText(t, result), "Confirmation required")

	result, _, err = server.handleClearHistory(ctx, nil, ClearHistoryParams{Confirm: true})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	result, _, err = server.handleGetHistory(ctx, nil, HistoryParams{})
	require.NoError(t, err)
	var hist HistoryResult
	decodeResult(t, result, &hist)
	assert.Zero(t, hist.Count)
}

func TestListRules(t *testing.T) {
	server := newTestServer(t)

	result, _, err := server.handleListRules(context.Background(), nil, ListRulesParams{})
	require.NoError(t, err)

	var resp struct {
		Rules []service.RuleDescriptor `json:"rules"`
	}
	decodeResult(t, result, &resp)
	assert.Equal(t, service.Rules(), resp.Rules)
}

func TestNewLiteServer(t *testing.T) {
	cfg := config.DefaultLiteConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.HistoryLimit = 2

	logger, _ := logrustest.NewNullLogger()
	server, err := NewLiteServer(cfg, WithLogger(logger))
	require.NoError(t, err)
	defer server.Close()

	assert.FileExists(t, cfg.HistoryDBPath())
	assert.DirExists(t, cfg.ExportDir())
	require.NotNil(t, server.GetCache())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _, err := server.handleAssessRisk(ctx, nil, veryHighParams())
		require.NoError(t, err)
	}

	count, err := server.GetHistoryStore().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "history limit applies")
	assert.Equal(t, int64(2), server.GetCache().Stats().Hits, "repeat inputs are served from cache")

	// the device identity was created on first save
	assert.FileExists(t, filepath.Join(cfg.DataDir, "device_id"))
}

func TestNewLiteServer_UnreachableRedis(t *testing.T) {
	cfg := config.DefaultLiteConfig()
	cfg.DataDir = t.TempDir()
	cfg.RedisURL = "redis://127.0.0.1:1/0"

	logger, hook := logrustest.NewNullLogger()
	server, err := NewLiteServer(cfg, WithLogger(logger))
	require.NoError(t, err)
	defer server.Close()

	assert.Nil(t, server.redis)
	found := false
	for _, entry := range hook.AllEntries() {
		if entry.Message == "Redis unavailable, using memory cache only" {
			found = true
		}
	}
	assert.True(t, found)
}
