//go:build integration

package repositories

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-reliability/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-reliability/pkg/database"
	"github.com/ekaya-inc/ekaya-reliability/pkg/models"
	"github.com/ekaya-inc/ekaya-reliability/pkg/testhelpers"
)

// reliabilityTestContext holds test dependencies for the reliability repositories.
// Each test uses its own model name so the shared database never needs cleanup.
type reliabilityTestContext struct {
	t         *testing.T
	db        *database.DB
	fields    FieldScoreRepository
	summaries SummaryRepository
	logs      ReliabilityLogRepository
	model     string
}

func setupReliabilityTest(t *testing.T) *reliabilityTestContext {
	db := testhelpers.GetTestDB(t).DB
	return &reliabilityTestContext{
		t:         t,
		db:        db,
		fields:    NewFieldScoreRepository(db),
		summaries: NewSummaryRepository(db),
		logs:      NewReliabilityLogRepository(db),
		model:     "Test" + uuid.NewString()[:8],
	}
}

func (tc *reliabilityTestContext) record(fk, field string, score, weight float64) models.FieldScoreRecord {
	return models.FieldScoreRecord{
		Model: tc.model, ForeignKey: fk, Field: field,
		Score: score, Weight: weight, MaxScore: 1,
	}
}

func (tc *reliabilityTestContext) logEntry(fk string, from *float64, to float64, created time.Time) *models.ReliabilityLogEntry {
	return &models.ReliabilityLogEntry{
		Model:          tc.model,
		ForeignKey:     fk,
		FromTotalScore: from,
		ToTotalScore:   to,
		ToFieldScores:  json.RawMessage(`{"title":{"max_score":1,"notes":null,"score":1,"weight":2}}`),
		Source:         models.SourceUser,
		ChecksumSHA256: "0000000000000000000000000000000000000000000000000000000000000000",
		CreatedAt:      created,
	}
}

func TestFieldScoreRepository_UpsertAndList(t *testing.T) {
	tc := setupReliabilityTest(t)
	ctx := context.Background()

	notes := "Complete and valid"
	first := tc.record("abc", "title", 1, 2)
	first.Notes = &notes
	require.NoError(t, tc.fields.UpsertAll(ctx, []models.FieldScoreRecord{
		first,
		tc.record("abc", "description", 0.4, 1),
	}))

	require.NoError(t, tc.fields.UpsertAll(ctx, []models.FieldScoreRecord{
		tc.record("abc", "description", 0.8, 1),
	}))

	got, err := tc.fields.ListByEntity(ctx, tc.model, "abc")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "description", got[0].Field)
	assert.Equal(t, 0.8, got[0].Score)
	assert.Equal(t, "title", got[1].Field)
	require.NotNil(t, got[1].Notes)
	assert.Equal(t, notes, *got[1].Notes)
}

func TestFieldScoreRepository_RejectsScoreAboveMax(t *testing.T) {
	tc := setupReliabilityTest(t)

	err := tc.fields.UpsertAll(context.Background(), []models.FieldScoreRecord{
		tc.record("abc", "title", 1.5, 1),
	})
	require.Error(t, err)
}

func TestFieldScoreRepository_FieldStats(t *testing.T) {
	tc := setupReliabilityTest(t)
	ctx := context.Background()

	require.NoError(t, tc.fields.UpsertAll(ctx, []models.FieldScoreRecord{
		tc.record("a", "title", 1, 0.2),
		tc.record("b", "title", 0.5, 0.2),
		tc.record("c", "title", 0.25, 0.2),
		tc.record("a", "price", 1, 0.15),
	}))

	stats, err := tc.fields.FieldStats(ctx, tc.model)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	title := stats["title"]
	assert.Equal(t, 3, title.Count)
	assert.Equal(t, 0.583, title.AvgScore)
	assert.Equal(t, 0.25, title.MinScore)
	assert.Equal(t, 1.0, title.MaxScore)
	assert.Equal(t, 0.2, title.AvgWeight)
}

func TestSummaryRepository_VersionedSave(t *testing.T) {
	tc := setupReliabilityTest(t)
	ctx := context.Background()

	_, err := tc.summaries.Get(ctx, tc.model, "abc")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	s := &models.ReliabilitySummary{
		Model: tc.model, ForeignKey: "abc", TotalScore: 80,
		LastSource: models.SourceUser, LastLogID: uuid.New(),
		SourceData: json.RawMessage(`{"title":"Widget"}`),
	}
	require.NoError(t, tc.summaries.Save(ctx, s, 0))
	assert.Equal(t, int64(1), s.Version)

	// A second insert for the same entity loses the race.
	dup := *s
	assert.ErrorIs(t, tc.summaries.Save(ctx, &dup, 0), apperrors.ErrConflict)

	s.TotalScore = 90
	s.SourceData = nil
	require.NoError(t, tc.summaries.Save(ctx, s, 1))
	assert.Equal(t, int64(2), s.Version)

	// Stale version.
	assert.ErrorIs(t, tc.summaries.Save(ctx, s, 1), apperrors.ErrConflict)

	got, err := tc.summaries.Get(ctx, tc.model, "abc")
	require.NoError(t, err)
	assert.Equal(t, 90.0, got.TotalScore)
	assert.Equal(t, int64(2), got.Version)
	assert.Empty(t, got.SourceData, "a save without source data clears the stored value")

	list, err := tc.summaries.List(ctx, tc.model, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestReliabilityLogRepository_AppendAndGet(t *testing.T) {
	tc := setupReliabilityTest(t)
	ctx := context.Background()

	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := tc.logEntry("abc", nil, 80, created)
	require.NoError(t, tc.logs.Append(ctx, entry))
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, uuid.Version(7), entry.ID.Version())

	got, err := tc.logs.GetByID(ctx, tc.model, "abc", entry.ID)
	require.NoError(t, err)
	assert.Nil(t, got.FromTotalScore)
	assert.Nil(t, got.FromFieldScores)
	assert.Equal(t, 80.0, got.ToTotalScore)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.JSONEq(t, string(entry.ToFieldScores), string(got.ToFieldScores))

	_, err = tc.logs.GetByID(ctx, tc.model, "other", entry.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReliabilityLogRepository_RequiresChecksum(t *testing.T) {
	tc := setupReliabilityTest(t)

	entry := tc.logEntry("abc", nil, 80, time.Now().UTC())
	entry.ChecksumSHA256 = ""
	require.Error(t, tc.logs.Append(context.Background(), entry))
}

func TestReliabilityLogRepository_HistoryAndTrends(t *testing.T) {
	tc := setupReliabilityTest(t)
	ctx := context.Background()

	day1 := time.Now().UTC().Add(-48 * time.Hour).Truncate(time.Second)
	day2 := day1.Add(24 * time.Hour)
	from := 60.0

	first := tc.logEntry("abc", nil, 60, day1)
	second := tc.logEntry("abc", &from, 80, day2)
	second.Source = models.SourceAI
	other := tc.logEntry("xyz", nil, 40, day2)
	for _, e := range []*models.ReliabilityLogEntry{first, second, other} {
		require.NoError(t, tc.logs.Append(ctx, e))
	}

	history, err := tc.logs.ListByEntity(ctx, tc.model, "abc", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)

	all, err := tc.logs.ListForVerification(ctx, tc.model, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	one, err := tc.logs.ListForVerification(ctx, tc.model, "xyz", 10)
	require.NoError(t, err)
	assert.Len(t, one, 1)

	trends, err := tc.logs.ScoreTrends(ctx, tc.model, day1.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, trends, 2)
	assert.Equal(t, day1.Format("2006-01-02"), trends[0].Day)
	assert.Equal(t, 60.0, trends[0].AvgScore)
	assert.Equal(t, 60.0, trends[1].AvgScore)
	assert.Equal(t, 2, trends[1].Count)

	counts, err := tc.logs.CountBySource(ctx, tc.model, day1.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, counts[models.SourceUser])
	assert.Equal(t, 1, counts[models.SourceAI])
}
