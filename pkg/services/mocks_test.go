package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-reliability/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-reliability/pkg/llm"
	"github.com/ekaya-inc/ekaya-reliability/pkg/models"
)

// ============================================================================
// In-memory store shared by the repository mocks
// ============================================================================

type mockStore struct {
	mu        sync.Mutex
	fields    map[string]map[string]models.FieldScoreRecord // entity -> field -> record
	summaries map[string]models.ReliabilitySummary
	logs      []models.ReliabilityLogEntry

	upsertErr error
	appendErr error
	saveErr   error
	statsErr  error
	statCalls int
}

func newMockStore() *mockStore {
	return &mockStore{
		fields:    make(map[string]map[string]models.FieldScoreRecord),
		summaries: make(map[string]models.ReliabilitySummary),
	}
}

func entityKey(model, fk string) string { return model + "/" + fk }

type storeSnapshot struct {
	fields    map[string]map[string]models.FieldScoreRecord
	summaries map[string]models.ReliabilitySummary
	logs      int
}

func (s *mockStore) snapshot() storeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields := make(map[string]map[string]models.FieldScoreRecord, len(s.fields))
	for k, v := range s.fields {
		inner := make(map[string]models.FieldScoreRecord, len(v))
		for f, r := range v {
			inner[f] = r
		}
		fields[k] = inner
	}
	summaries := make(map[string]models.ReliabilitySummary, len(s.summaries))
	for k, v := range s.summaries {
		summaries[k] = v
	}
	return storeSnapshot{fields: fields, summaries: summaries, logs: len(s.logs)}
}

func (s *mockStore) restore(snap storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields = snap.fields
	s.summaries = snap.summaries
	s.logs = s.logs[:snap.logs]
}

// mockTransactor serializes every transaction and rolls the store back when fn fails.
type mockTransactor struct {
	mu    sync.Mutex
	store *mockStore
	calls int
}

func (m *mockTransactor) InEntityTx(ctx context.Context, model, fk string, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	snap := m.store.snapshot()
	if err := fn(ctx); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

// ============================================================================
// Repository mocks
// ============================================================================

type mockFieldScoreRepo struct{ store *mockStore }

func (m *mockFieldScoreRepo) ListByEntity(ctx context.Context, model, fk string) ([]models.FieldScoreRecord, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var out []models.FieldScoreRecord
	for _, r := range m.store.fields[entityKey(model, fk)] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out, nil
}

func (m *mockFieldScoreRepo) UpsertAll(ctx context.Context, records []models.FieldScoreRecord) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if m.store.upsertErr != nil {
		return m.store.upsertErr
	}
	for _, r := range records {
		key := entityKey(r.Model, r.ForeignKey)
		if m.store.fields[key] == nil {
			m.store.fields[key] = make(map[string]models.FieldScoreRecord)
		}
		m.store.fields[key][r.Field] = r
	}
	return nil
}

func (m *mockFieldScoreRepo) FieldStats(ctx context.Context, model string) (map[string]models.FieldStat, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.statCalls++
	if m.store.statsErr != nil {
		return nil, m.store.statsErr
	}

	sums := make(map[string]*models.FieldStat)
	for key, fields := range m.store.fields {
		if len(key) <= len(model) || key[:len(model)+1] != model+"/" {
			continue
		}
		for name, r := range fields {
			st, ok := sums[name]
			if !ok {
				st = &models.FieldStat{MinScore: r.Score, MaxScore: r.Score}
				sums[name] = st
			}
			st.Count++
			st.AvgScore += r.Score
			st.AvgWeight += r.Weight
			if r.Score < st.MinScore {
				st.MinScore = r.Score
			}
			if r.Score > st.MaxScore {
				st.MaxScore = r.Score
			}
		}
	}

	out := make(map[string]models.FieldStat, len(sums))
	for name, st := range sums {
		st.AvgScore /= float64(st.Count)
		st.AvgWeight /= float64(st.Count)
		out[name] = *st
	}
	return out, nil
}

type mockSummaryRepo struct{ store *mockStore }

func (m *mockSummaryRepo) Get(ctx context.Context, model, fk string) (*models.ReliabilitySummary, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	s, ok := m.store.summaries[entityKey(model, fk)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &s, nil
}

func (m *mockSummaryRepo) Save(ctx context.Context, s *models.ReliabilitySummary, expectedVersion int64) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if m.store.saveErr != nil {
		return m.store.saveErr
	}
	key := entityKey(s.Model, s.ForeignKey)
	current, ok := m.store.summaries[key]
	switch {
	case !ok && expectedVersion != 0:
		return apperrors.ErrConflict
	case ok && current.Version != expectedVersion:
		return apperrors.ErrConflict
	}
	s.Version = expectedVersion + 1
	m.store.summaries[key] = *s
	return nil
}

func (m *mockSummaryRepo) List(ctx context.Context, model string, limit, offset int) ([]*models.ReliabilitySummary, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var out []*models.ReliabilitySummary
	for _, s := range m.store.summaries {
		if s.Model == model {
			s := s
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ForeignKey < out[j].ForeignKey })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type mockLogRepo struct{ store *mockStore }

func (m *mockLogRepo) Append(ctx context.Context, entry *models.ReliabilityLogEntry) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if m.store.appendErr != nil {
		return m.store.appendErr
	}
	if entry.ChecksumSHA256 == "" {
		return errors.New("checksum is required")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.Must(uuid.NewV7())
	}
	m.store.logs = append(m.store.logs, *entry)
	return nil
}

func (m *mockLogRepo) GetByID(ctx context.Context, model, fk string, id uuid.UUID) (*models.ReliabilityLogEntry, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, e := range m.store.logs {
		if e.ID == id && e.Model == model && e.ForeignKey == fk {
			e := e
			return &e, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// newestFirst returns matching entries in reverse append order.
func (m *mockLogRepo) newestFirst(match func(e *models.ReliabilityLogEntry) bool, limit int) []*models.ReliabilityLogEntry {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var out []*models.ReliabilityLogEntry
	for i := len(m.store.logs) - 1; i >= 0 && len(out) < limit; i-- {
		e := m.store.logs[i]
		if match(&e) {
			out = append(out, &e)
		}
	}
	return out
}

func (m *mockLogRepo) ListByEntity(ctx context.Context, model, fk string, limit int) ([]*models.ReliabilityLogEntry, error) {
	return m.newestFirst(func(e *models.ReliabilityLogEntry) bool {
		return e.Model == model && e.ForeignKey == fk
	}, limit), nil
}

func (m *mockLogRepo) ListForVerification(ctx context.Context, model, fk string, limit int) ([]*models.ReliabilityLogEntry, error) {
	return m.newestFirst(func(e *models.ReliabilityLogEntry) bool {
		return e.Model == model && (fk == "" || e.ForeignKey == fk)
	}, limit), nil
}

func (m *mockLogRepo) ScoreTrends(ctx context.Context, model string, since time.Time) ([]models.ScoreTrendPoint, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	byDay := make(map[string]*models.ScoreTrendPoint)
	var days []string
	for _, e := range m.store.logs {
		if e.Model != model || e.CreatedAt.Before(since) {
			continue
		}
		day := e.CreatedAt.UTC().Format("2006-01-02")
		p, ok := byDay[day]
		if !ok {
			p = &models.ScoreTrendPoint{Day: day}
			byDay[day] = p
			days = append(days, day)
		}
		p.AvgScore += e.ToTotalScore
		p.Count++
	}
	sort.Strings(days)
	out := make([]models.ScoreTrendPoint, 0, len(days))
	for _, d := range days {
		p := byDay[d]
		p.AvgScore /= float64(p.Count)
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockLogRepo) CountBySource(ctx context.Context, model string, since time.Time) (map[models.Source]int, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	out := make(map[models.Source]int)
	for _, e := range m.store.logs {
		if e.Model == model && !e.CreatedAt.Before(since) {
			out[e.Source]++
		}
	}
	return out, nil
}

// ============================================================================
// Suggestion mocks
// ============================================================================

type mockSuggestionService struct {
	result SuggestionResult
	calls  int
}

func (m *mockSuggestionService) Suggest(ctx context.Context, req *llm.SuggestionRequest) SuggestionResult {
	m.calls++
	return m.result
}

type mockSuggestionClient struct {
	suggestions []llm.Suggestion
	err         error
	delay       time.Duration
	calls       atomic.Int32
}

func (m *mockSuggestionClient) Suggest(ctx context.Context, req *llm.SuggestionRequest) ([]llm.Suggestion, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.suggestions, m.err
}

func (m *mockSuggestionClient) Provider() string { return "mock" }
func (m *mockSuggestionClient) GetModel() string { return "mock-model" }

type mockLimiter struct {
	acquire     bool
	costAllowed bool
	costErr     error
	recorded    float64
}

func (m *mockLimiter) TryAcquire(ctx context.Context, service string) bool { return m.acquire }

func (m *mockLimiter) DailyCostAllowed(ctx context.Context, service string) (bool, error) {
	return m.costAllowed, m.costErr
}

func (m *mockLimiter) RecordCost(ctx context.Context, service string, cost float64) error {
	m.recorded += cost
	return nil
}

type recordingObserver struct {
	mu       sync.Mutex
	changes  []models.ChangeType
	verified []bool
	outcomes []string
	computed int
}

func (o *recordingObserver) ScoreComputed(string, bool, float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.computed++
}

func (o *recordingObserver) ScoreChangeRecorded(_ string, c models.ChangeType) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.changes = append(o.changes, c)
}

func (o *recordingObserver) ChecksumVerified(valid bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.verified = append(o.verified, valid)
}

func (o *recordingObserver) SuggestionOutcome(status string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, status)
}
