package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-reliability/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-reliability/pkg/models"
	"github.com/ekaya-inc/ekaya-reliability/pkg/services"
)

// mockReliabilityService implements services.ReliabilityService for tool tests.
type mockReliabilityService struct {
	provisional *services.ProvisionalScore
	entry       *models.ReliabilityLogEntry
	entries     []*models.ReliabilityLogEntry
	verify      *services.ChecksumVerification
	stats       map[string]models.FieldStat
	err         error

	lastModel  string
	lastFK     string
	lastData   map[string]json.RawMessage
	lastRecord *services.RecordScoreChangeRequest
	lastCtx    context.Context
	lastLimit  int
}

func (m *mockReliabilityService) ComputeProvisionalScore(ctx context.Context, model string, data map[string]json.RawMessage) (*services.ProvisionalScore, error) {
	m.lastModel = model
	m.lastData = data
	return m.provisional, m.err
}

func (m *mockReliabilityService) RecordScoreChange(ctx context.Context, req *services.RecordScoreChangeRequest) (*models.ReliabilityLogEntry, error) {
	m.lastRecord = req
	m.lastCtx = ctx
	return m.entry, m.err
}

func (m *mockReliabilityService) Recalculate(ctx context.Context, model, fk string) (*models.ReliabilityLogEntry, error) {
	return m.entry, m.err
}

func (m *mockReliabilityService) ComputeChecksum(entry *models.ReliabilityLogEntry) (string, error) {
	return "", nil
}

func (m *mockReliabilityService) VerifyChecksum(ctx context.Context, model, fk, logID string) (*services.ChecksumVerification, error) {
	m.lastModel, m.lastFK = model, fk
	return m.verify, m.err
}

func (m *mockReliabilityService) BulkVerify(ctx context.Context, model, fk string, limit int) (*services.BulkVerification, error) {
	return nil, m.err
}

func (m *mockReliabilityService) GetFieldStats(ctx context.Context, model string) (map[string]models.FieldStat, error) {
	m.lastModel = model
	return m.stats, m.err
}

func (m *mockReliabilityService) GetHistory(ctx context.Context, model, fk string, limit int) ([]*models.ReliabilityLogEntry, error) {
	m.lastModel, m.lastFK, m.lastLimit = model, fk, limit
	return m.entries, m.err
}

func (m *mockReliabilityService) GetTrends(ctx context.Context, model string, days int) (*services.ScoreTrends, error) {
	return nil, m.err
}

func (m *mockReliabilityService) FieldImportance(ctx context.Context, model, fk string) ([]services.FieldImportance, error) {
	return nil, m.err
}

func (m *mockReliabilityService) ListSummaries(ctx context.Context, model string, limit, offset int) ([]*models.ReliabilitySummary, error) {
	return nil, m.err
}

func newReliabilityToolServer(svc services.ReliabilityService) *server.MCPServer {
	s := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterReliabilityTools(s, &ReliabilityToolDeps{ReliabilityService: svc, Logger: zap.NewNop()})
	return s
}

func sampleEntry() *models.ReliabilityLogEntry {
	from := 0.5
	svc := MCPActorService
	return &models.ReliabilityLogEntry{
		ID:             uuid.MustParse("0195f3a0-0000-7000-8000-000000000001"),
		Model:          "Products",
		ForeignKey:     "sku-1",
		FromTotalScore: &from,
		ToTotalScore:   80,
		ToFieldScores:  json.RawMessage(`{"title":{"max_score":1,"notes":null,"score":1,"weight":1}}`),
		Source:         models.SourceAI,
		ActorService:   &svc,
		ChecksumSHA256: "abc",
		CreatedAt:      time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestRegisterReliabilityTools_Listed(t *testing.T) {
	names := listTools(t, newReliabilityToolServer(&mockReliabilityService{}))

	assert.ElementsMatch(t, []string{
		"score_content",
		"record_score_change",
		"verify_log_checksum",
		"get_field_stats",
		"get_score_history",
	}, names)
}

func TestScoreContentTool(t *testing.T) {
	svc := &mockReliabilityService{provisional: &services.ProvisionalScore{
		Model:             "Products",
		TotalScore:        72.5,
		SuggestionsStatus: services.SuggestionsDisabled,
	}}
	s := newReliabilityToolServer(svc)

	result := callTool(t, s, "score_content", map[string]any{
		"model": " Products ",
		"data":  map[string]any{"title": "Desk lamp", "price": 19.5},
	})
	require.False(t, result.IsError, result.Text)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Text), &got))
	assert.Equal(t, 72.5, got["total_score"])
	assert.Equal(t, "Products", svc.lastModel)
	assert.JSONEq(t, `"Desk lamp"`, string(svc.lastData["title"]))
	assert.JSONEq(t, `19.5`, string(svc.lastData["price"]))
}

func TestScoreContentTool_InvalidParameters(t *testing.T) {
	s := newReliabilityToolServer(&mockReliabilityService{})

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing model", map[string]any{"data": map[string]any{"a": 1}}},
		{"blank model", map[string]any{"model": " ", "data": map[string]any{"a": 1}}},
		{"missing data", map[string]any{"model": "Products"}},
		{"data not an object", map[string]any{"model": "Products", "data": []any{1, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, s, "score_content", tt.args)
			require.True(t, result.IsError)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(result.Text), &resp))
			assert.Equal(t, "invalid_parameters", resp.Code)
		})
	}
}

func TestRecordScoreChangeTool(t *testing.T) {
	svc := &mockReliabilityService{entry: sampleEntry()}
	s := newReliabilityToolServer(svc)

	result := callTool(t, s, "record_score_change", map[string]any{
		"model":       "Products",
		"foreign_key": "sku-1",
		"fields": []any{
			map[string]any{"field": "title", "score": 1, "weight": 1},
			map[string]any{"field": "price", "score": 3, "weight": 2, "max_score": 5, "notes": "estimated"},
		},
		"message": "bulk review",
	})
	require.False(t, result.IsError, result.Text)

	req := svc.lastRecord
	require.NotNil(t, req)
	assert.Equal(t, "Products", req.Model)
	assert.Equal(t, "sku-1", req.ForeignKey)
	require.Len(t, req.Fields, 2)
	assert.Equal(t, 1.0, req.Fields[0].MaxScore)
	assert.Equal(t, 5.0, req.Fields[1].MaxScore)
	require.NotNil(t, req.Fields[1].Notes)
	assert.Equal(t, "estimated", *req.Fields[1].Notes)
	assert.Empty(t, req.Source)
	assert.True(t, req.Actor.IsSystem())
	require.NotNil(t, req.Message)
	assert.Equal(t, "bulk review", *req.Message)

	prov, ok := models.GetProvenance(svc.lastCtx)
	require.True(t, ok)
	assert.Equal(t, models.SourceAI, prov.Source)
	assert.Equal(t, MCPActorService, prov.Actor.Label())

	var view services.LogEntryView
	require.NoError(t, json.Unmarshal([]byte(result.Text), &view))
	assert.Equal(t, models.ChangeImprovement, view.ChangeType)
	assert.Equal(t, "sku-1", view.ForeignKey)
}

func TestRecordScoreChangeTool_ExplicitProvenance(t *testing.T) {
	svc := &mockReliabilityService{entry: sampleEntry()}
	s := newReliabilityToolServer(svc)

	result := callTool(t, s, "record_score_change", map[string]any{
		"model":         "Products",
		"foreign_key":   "sku-1",
		"data":          map[string]any{"title": "Lamp"},
		"source":        "admin",
		"actor_user_id": "u-42",
	})
	require.False(t, result.IsError, result.Text)

	req := svc.lastRecord
	assert.Equal(t, models.SourceAdmin, req.Source)
	require.NotNil(t, req.Actor.UserID)
	assert.Equal(t, "u-42", *req.Actor.UserID)
	assert.Nil(t, req.Actor.Service)
	assert.Empty(t, req.Fields)
	assert.Contains(t, req.Data, "title")
}

func TestRecordScoreChangeTool_Errors(t *testing.T) {
	t.Run("missing foreign key", func(t *testing.T) {
		result := callTool(t, newReliabilityToolServer(&mockReliabilityService{}), "record_score_change",
			map[string]any{"model": "Products"})
		require.True(t, result.IsError)
		assert.Contains(t, result.Text, "invalid_parameters")
	})

	t.Run("malformed fields", func(t *testing.T) {
		result := callTool(t, newReliabilityToolServer(&mockReliabilityService{}), "record_score_change",
			map[string]any{"model": "Products", "foreign_key": "sku-1", "fields": "title=1"})
		require.True(t, result.IsError)
		assert.Contains(t, result.Text, "wrong shape")
	})

	t.Run("validation error is in-band", func(t *testing.T) {
		svc := &mockReliabilityService{err: apperrors.NewValidationError("fields", "score must be between 0 and max_score")}
		result := callTool(t, newReliabilityToolServer(svc), "record_score_change",
			map[string]any{"model": "Products", "foreign_key": "sku-1"})
		require.True(t, result.IsError)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal([]byte(result.Text), &resp))
		assert.Equal(t, "validation_error", resp.Code)
		assert.Contains(t, resp.Message, "max_score")
	})

	t.Run("system failure is a protocol error", func(t *testing.T) {
		svc := &mockReliabilityService{err: errors.New("database unavailable")}
		result := callTool(t, newReliabilityToolServer(svc), "record_score_change",
			map[string]any{"model": "Products", "foreign_key": "sku-1"})
		assert.Contains(t, result.ProtocolError, "database unavailable")
	})
}

func TestVerifyLogChecksumTool(t *testing.T) {
	logID := uuid.MustParse("0195f3a0-0000-7000-8000-000000000001")
	svc := &mockReliabilityService{verify: &services.ChecksumVerification{
		LogID:            logID,
		Valid:            false,
		StoredChecksum:   "aaa",
		ComputedChecksum: "bbb",
	}}
	s := newReliabilityToolServer(svc)

	result := callTool(t, s, "verify_log_checksum", map[string]any{
		"model":       "Products",
		"foreign_key": "sku-1",
		"log_id":      logID.String(),
	})
	require.False(t, result.IsError, result.Text)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Text), &got))
	assert.Equal(t, false, got["checksum_valid"])
	assert.Equal(t, "bbb", got["computed_checksum"])
	assert.Equal(t, "sku-1", svc.lastFK)
}

func TestVerifyLogChecksumTool_NotFound(t *testing.T) {
	svc := &mockReliabilityService{err: apperrors.ErrNotFound}
	result := callTool(t, newReliabilityToolServer(svc), "verify_log_checksum", map[string]any{
		"model":       "Products",
		"foreign_key": "sku-1",
		"log_id":      uuid.NewString(),
	})
	require.True(t, result.IsError)
	assert.Contains(t, result.Text, "not_found")
}

func TestGetFieldStatsTool(t *testing.T) {
	svc := &mockReliabilityService{stats: map[string]models.FieldStat{
		"title": {Count: 3, AvgScore: 0.8, MinScore: 0.5, MaxScore: 1, AvgWeight: 1},
	}}
	result := callTool(t, newReliabilityToolServer(svc), "get_field_stats", map[string]any{"model": "Products"})
	require.False(t, result.IsError, result.Text)

	var got fieldStatsResult
	require.NoError(t, json.Unmarshal([]byte(result.Text), &got))
	assert.Equal(t, "Products", got.Model)
	assert.Equal(t, 3, got.Stats["title"].Count)
	assert.Equal(t, 0.8, got.Stats["title"].AvgScore)
}

func TestGetFieldStatsTool_ReturnsNormalizedModel(t *testing.T) {
	svc := &mockReliabilityService{stats: map[string]models.FieldStat{}}
	result := callTool(t, newReliabilityToolServer(svc), "get_field_stats", map[string]any{"model": "product-variant"})
	require.False(t, result.IsError, result.Text)

	var got fieldStatsResult
	require.NoError(t, json.Unmarshal([]byte(result.Text), &got))
	assert.Equal(t, "ProductVariants", got.Model)
	assert.Equal(t, "product-variant", svc.lastModel)
}

func TestGetScoreHistoryTool(t *testing.T) {
	svc := &mockReliabilityService{entries: []*models.ReliabilityLogEntry{sampleEntry()}}
	s := newReliabilityToolServer(svc)

	result := callTool(t, s, "get_score_history", map[string]any{
		"model":       "Products",
		"foreign_key": "sku-1",
		"limit":       5,
	})
	require.False(t, result.IsError, result.Text)
	assert.Equal(t, 5, svc.lastLimit)

	var got historyResult
	require.NoError(t, json.Unmarshal([]byte(result.Text), &got))
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "sku-1", got.ForeignKey)
	assert.Equal(t, MCPActorService, got.Entries[0].ActorLabel)

	callTool(t, s, "get_score_history", map[string]any{"model": "Products", "foreign_key": "sku-1"})
	assert.Equal(t, 0, svc.lastLimit, "absent limit is left to the service default")
}
