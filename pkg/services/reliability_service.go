package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ekaya-inc/ekaya-reliability/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-reliability/pkg/crypto"
	"github.com/ekaya-inc/ekaya-reliability/pkg/llm"
	"github.com/ekaya-inc/ekaya-reliability/pkg/models"
	"github.com/ekaya-inc/ekaya-reliability/pkg/repositories"
	"github.com/ekaya-inc/ekaya-reliability/pkg/scoring"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 200
	DefaultVerifyLimit  = 100
	MaxVerifyLimit      = 1000
	DefaultTrendDays    = 30
	MaxTrendDays        = 365

	// importanceTopN is how many fields FieldImportance returns.
	importanceTopN = 3
	// verifyConcurrency bounds parallel checksum recomputation in BulkVerify.
	verifyConcurrency = 8
)

// EntityTransactor runs fn in a transaction that holds the write lock of one
// entity. *database.DB implements it.
type EntityTransactor interface {
	InEntityTx(ctx context.Context, model, foreignKey string, fn func(ctx context.Context) error) error
}

// ReliabilityService orchestrates scoring, change recording and verification.
type ReliabilityService interface {
	// ComputeProvisionalScore scores unsaved data. Nothing is written.
	ComputeProvisionalScore(ctx context.Context, model string, data map[string]json.RawMessage) (*ProvisionalScore, error)

	// RecordScoreChange merges new field scores into an entity, appends one
	// checksummed log entry and updates the entity summary, all or nothing.
	RecordScoreChange(ctx context.Context, req *RecordScoreChangeRequest) (*models.ReliabilityLogEntry, error)

	// Recalculate re-evaluates an entity from the source data stored with its summary.
	Recalculate(ctx context.Context, model, foreignKey string) (*models.ReliabilityLogEntry, error)

	// ComputeChecksum recomputes the checksum of entry from its columns.
	ComputeChecksum(entry *models.ReliabilityLogEntry) (string, error)

	// VerifyChecksum re-verifies one stored log entry.
	VerifyChecksum(ctx context.Context, model, foreignKey, logID string) (*ChecksumVerification, error)

	// BulkVerify re-verifies the newest entries of a model, or of one entity.
	BulkVerify(ctx context.Context, model, foreignKey string, limit int) (*BulkVerification, error)

	GetFieldStats(ctx context.Context, model string) (map[string]models.FieldStat, error)
	GetHistory(ctx context.Context, model, foreignKey string, limit int) ([]*models.ReliabilityLogEntry, error)
	GetTrends(ctx context.Context, model string, days int) (*ScoreTrends, error)

	// FieldImportance ranks the fields of an entity whose improvement would
	// raise its total the most, relative to the rest of the corpus.
	FieldImportance(ctx context.Context, model, foreignKey string) ([]FieldImportance, error)

	ListSummaries(ctx context.Context, model string, limit, offset int) ([]*models.ReliabilitySummary, error)
}

// RecordScoreChangeRequest describes one score change. Exactly one of Fields
// and Data is normally set; Data is evaluated with the model's profile.
type RecordScoreChangeRequest struct {
	Model      string
	ForeignKey string
	Fields     []models.FieldScoreRecord
	Data       map[string]json.RawMessage
	Source     models.Source // empty uses the context provenance, then "system"
	Actor      models.Actor
	Message    *string
}

// FieldBreakdown is one scored field of a provisional score.
type FieldBreakdown struct {
	Field            string                  `json:"field"`
	Score            float64                 `json:"score"`
	Weight           float64                 `json:"weight"`
	MaxScore         float64                 `json:"max_score"`
	Percentage       float64                 `json:"percentage"`
	Weighted         float64                 `json:"weighted"`
	PerformanceLevel models.PerformanceLevel `json:"performance_level"`
	Notes            *string                 `json:"notes"`
}

// ProvisionalScore is the result of scoring unsaved data.
type ProvisionalScore struct {
	Model               string                  `json:"model"`
	RequestID           string                  `json:"request_id"`
	Timestamp           time.Time               `json:"timestamp"`
	TotalScore          float64                 `json:"total_score"`
	CompletenessPercent float64                 `json:"completeness_percent"`
	PerformanceLevel    models.PerformanceLevel `json:"performance_level"`
	FieldBreakdown      []FieldBreakdown        `json:"field_breakdown"`
	Suggestions         []llm.Suggestion        `json:"suggestions,omitempty"`
	SuggestionsStatus   SuggestionStatus        `json:"suggestions_status"`
}

// ChecksumVerification is the outcome of re-verifying one log entry.
// A mismatch is reported through Valid, never as an error.
type ChecksumVerification struct {
	LogID            uuid.UUID `json:"log_id"`
	Valid            bool      `json:"checksum_valid"`
	StoredChecksum   string    `json:"stored_checksum"`
	ComputedChecksum string    `json:"computed_checksum"`
	VerifiedAt       time.Time `json:"verified_at"`
}

// VerificationFailure identifies an entry whose checksum did not match.
type VerificationFailure struct {
	LogID      uuid.UUID `json:"log_id"`
	ForeignKey string    `json:"foreign_key"`
}

// BulkVerification summarizes a BulkVerify run.
type BulkVerification struct {
	Model    string                `json:"model"`
	Checked  int                   `json:"checked"`
	Verified int                   `json:"verified"`
	Failed   int                   `json:"failed"`
	Failures []VerificationFailure `json:"failures"`
}

// ScoreTrends is the recent history of a model's recorded totals.
type ScoreTrends struct {
	Model    string                   `json:"model"`
	Days     int                      `json:"days"`
	Points   []models.ScoreTrendPoint `json:"points"`
	BySource map[models.Source]int    `json:"by_source"`
}

// FieldImportance scores how much improving one field would help.
type FieldImportance struct {
	Field        string  `json:"field"`
	Importance   float64 `json:"importance"`
	CurrentScore float64 `json:"current_score"`
	CorpusAvg    float64 `json:"corpus_avg"`
	Weight       float64 `json:"weight"`
}

type reliabilityService struct {
	tx          EntityTransactor
	fields      repositories.FieldScoreRepository
	summaries   repositories.SummaryRepository
	logs        repositories.ReliabilityLogRepository
	profiles    *scoring.Registry
	suggestions SuggestionService
	observer    Observer
	statsGroup  singleflight.Group
	now         func() time.Time
	logger      *zap.Logger
}

// NewReliabilityService creates a ReliabilityService. A nil suggestions service
// disables suggestions; a nil observer discards events.
func NewReliabilityService(
	tx EntityTransactor,
	fields repositories.FieldScoreRepository,
	summaries repositories.SummaryRepository,
	logs repositories.ReliabilityLogRepository,
	profiles *scoring.Registry,
	suggestions SuggestionService,
	observer Observer,
	logger *zap.Logger,
) ReliabilityService {
	if profiles == nil {
		profiles = scoring.DefaultRegistry()
	}
	if observer == nil {
		observer = NoopObserver{}
	}
	return &reliabilityService{
		tx:          tx,
		fields:      fields,
		summaries:   summaries,
		logs:        logs,
		profiles:    profiles,
		suggestions: suggestions,
		observer:    observer,
		now:         time.Now,
		logger:      logger.Named("reliability-service"),
	}
}

var _ ReliabilityService = (*reliabilityService)(nil)

// NewRequestID returns an id of the form req_YYYYMMDD_<8 hex>.
func NewRequestID(now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("req_%s_%s", now.UTC().Format("20060102"), id[:8])
}

func normalizeModel(model string) (string, error) {
	name := scoring.NormalizeModel(model)
	if name == "" {
		return "", apperrors.NewValidationError("model", "is required")
	}
	return name, nil
}

func requireForeignKey(fk string) (string, error) {
	fk = strings.TrimSpace(fk)
	if fk == "" {
		return "", apperrors.NewValidationError("foreign_key", "is required")
	}
	return fk, nil
}

// evaluate scores data with the model's profile, or field by field when the
// model has none. It also returns how many fields completeness is measured against.
func (s *reliabilityService) evaluate(model string, data map[string]json.RawMessage) ([]models.FieldScoreRecord, int) {
	if profile, ok := s.profiles.Lookup(model); ok {
		return profile.Evaluate(data), len(profile.Fields)
	}
	fields := scoring.EvaluateUnprofiled(data)
	return fields, len(fields)
}

func (s *reliabilityService) expectedFieldCount(model string, fields []models.FieldScoreRecord) int {
	if profile, ok := s.profiles.Lookup(model); ok {
		return len(profile.Fields)
	}
	return len(fields)
}

func (s *reliabilityService) ComputeProvisionalScore(ctx context.Context, model string, data map[string]json.RawMessage) (*ProvisionalScore, error) {
	name, err := normalizeModel(model)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, apperrors.NewValidationError("data", "is required")
	}

	now := s.now().UTC()
	fields, expected := s.evaluate(name, data)
	total := scoring.Round(scoring.Aggregate(fields), 3)

	result := &ProvisionalScore{
		Model:               name,
		RequestID:           NewRequestID(now),
		Timestamp:           now,
		TotalScore:          total,
		CompletenessPercent: scoring.Completeness(fields, expected),
		PerformanceLevel:    scoring.TotalLevel(total),
		FieldBreakdown:      breakdown(fields),
		SuggestionsStatus:   SuggestionsDisabled,
	}

	s.observer.ScoreComputed(name, true, total)

	if s.suggestions != nil {
		if needsSuggestions(fields) {
			sugg := s.suggestions.Suggest(ctx, &llm.SuggestionRequest{Model: name, Fields: fields, Data: data})
			result.Suggestions = sugg.Suggestions
			result.SuggestionsStatus = sugg.Status
		} else {
			result.SuggestionsStatus = SuggestionsOK
		}
	}

	return result, nil
}

func needsSuggestions(fields []models.FieldScoreRecord) bool {
	for i := range fields {
		if !fields[i].IsPerfect() {
			return true
		}
	}
	return false
}

func breakdown(fields []models.FieldScoreRecord) []FieldBreakdown {
	out := make([]FieldBreakdown, 0, len(fields))
	for i := range fields {
		f := &fields[i]
		out = append(out, FieldBreakdown{
			Field:            f.Field,
			Score:            f.Score,
			Weight:           f.Weight,
			MaxScore:         f.MaxScore,
			Percentage:       scoring.Round(f.Percentage(), 2),
			Weighted:         scoring.Round(f.WeightedContribution(), 3),
			PerformanceLevel: f.PerformanceLevel(),
			Notes:            f.Notes,
		})
	}
	return out
}

// resolveProvenance fills in source and actor from ctx when the request leaves them empty.
func resolveProvenance(ctx context.Context, source models.Source, actor models.Actor) (models.Source, models.Actor, error) {
	prov, hasProv := models.GetProvenance(ctx)

	if source == "" {
		source = models.SourceSystem
		if hasProv && prov.Source != "" {
			source = prov.Source
		}
	}
	if !source.IsValid() {
		return "", models.Actor{}, apperrors.NewValidationError("source", fmt.Sprintf("must be one of user, ai, admin, system (got %q)", source))
	}

	actor = actor.Normalize()
	if actor.IsSystem() && hasProv {
		actor = prov.Actor.Normalize()
	}
	if err := actor.Validate(); err != nil {
		return "", models.Actor{}, apperrors.NewValidationError("actor", err.Error())
	}
	return source, actor, nil
}

// prepareFields validates caller-supplied fields and stamps them with the entity.
func prepareFields(model, fk string, in []models.FieldScoreRecord) ([]models.FieldScoreRecord, error) {
	seen := make(map[string]bool, len(in))
	out := make([]models.FieldScoreRecord, 0, len(in))
	for _, f := range in {
		f.Field = strings.TrimSpace(f.Field)
		if err := f.Validate(); err != nil {
			return nil, apperrors.NewValidationError("fields", err.Error())
		}
		if seen[f.Field] {
			return nil, apperrors.NewValidationError("fields", fmt.Sprintf("duplicate field %q", f.Field))
		}
		seen[f.Field] = true

		f.Model = model
		f.ForeignKey = fk
		out = append(out, f)
	}
	return out, nil
}

func (s *reliabilityService) RecordScoreChange(ctx context.Context, req *RecordScoreChangeRequest) (*models.ReliabilityLogEntry, error) {
	model, err := normalizeModel(req.Model)
	if err != nil {
		return nil, err
	}
	fk, err := requireForeignKey(req.ForeignKey)
	if err != nil {
		return nil, err
	}
	source, actor, err := resolveProvenance(ctx, req.Source, req.Actor)
	if err != nil {
		return nil, err
	}

	var (
		updates    []models.FieldScoreRecord
		sourceData json.RawMessage
	)
	switch {
	case len(req.Fields) > 0:
		updates = req.Fields
	case len(req.Data) > 0:
		updates, _ = s.evaluate(model, req.Data)
		if sourceData, err = json.Marshal(req.Data); err != nil {
			return nil, fmt.Errorf("failed to encode source data: %w", err)
		}
	default:
		return nil, apperrors.NewValidationError("fields", "fields or data is required")
	}

	updates, err = prepareFields(model, fk, updates)
	if err != nil {
		return nil, err
	}

	var message *string
	if req.Message != nil && strings.TrimSpace(*req.Message) != "" {
		m := strings.TrimSpace(*req.Message)
		message = &m
	}

	var entry *models.ReliabilityLogEntry
	err = s.tx.InEntityTx(ctx, model, fk, func(ctx context.Context) error {
		var err error
		entry, err = s.recordLocked(ctx, model, fk, updates, sourceData, source, actor, message)
		return err
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrInvalidInput) {
			s.logger.Error("Failed to record score change",
				zap.String("model", model),
				zap.String("foreign_key", fk),
				zap.Error(err))
		}
		return nil, err
	}

	change := entry.Change()
	s.observer.ScoreChangeRecorded(model, change.Type)
	s.observer.ScoreComputed(model, false, entry.ToTotalScore)
	s.logger.Info("Recorded score change",
		zap.String("model", model),
		zap.String("foreign_key", fk),
		zap.String("log_id", entry.ID.String()),
		zap.String("change", string(change.Type)),
		zap.Float64("to_total_score", entry.ToTotalScore))

	return entry, nil
}

// recordLocked runs with the entity lock held and inside one transaction.
func (s *reliabilityService) recordLocked(
	ctx context.Context,
	model, fk string,
	updates []models.FieldScoreRecord,
	sourceData json.RawMessage,
	source models.Source,
	actor models.Actor,
	message *string,
) (*models.ReliabilityLogEntry, error) {
	current, err := s.fields.ListByEntity(ctx, model, fk)
	if err != nil {
		return nil, err
	}

	summary, err := s.summaries.Get(ctx, model, fk)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	merged := models.MergeFieldScores(current, updates)
	total := scoring.Round(scoring.Aggregate(merged), 3)

	var (
		fromTotal    *float64
		fromSnapshot json.RawMessage
	)
	switch {
	case summary != nil:
		v := summary.TotalScore
		fromTotal = &v
	case len(current) > 0:
		v := scoring.Round(scoring.Aggregate(current), 3)
		fromTotal = &v
	}
	if len(current) > 0 {
		if fromSnapshot, err = json.Marshal(models.SnapshotOf(current)); err != nil {
			return nil, fmt.Errorf("failed to encode previous field scores: %w", err)
		}
	}

	toSnapshot, err := json.Marshal(models.SnapshotOf(merged))
	if err != nil {
		return nil, fmt.Errorf("failed to encode field scores: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate log id: %w", err)
	}

	entry := &models.ReliabilityLogEntry{
		ID:              id,
		Model:           model,
		ForeignKey:      fk,
		FromTotalScore:  fromTotal,
		ToTotalScore:    total,
		FromFieldScores: fromSnapshot,
		ToFieldScores:   toSnapshot,
		Source:          source,
		ActorUserID:     actor.UserID,
		ActorService:    actor.Service,
		Message:         message,
		CreatedAt:       s.now().UTC().Truncate(time.Second),
	}

	if entry.ChecksumSHA256, err = crypto.ChecksumFor(entry); err != nil {
		return nil, fmt.Errorf("failed to compute checksum: %w", err)
	}

	if err := s.fields.UpsertAll(ctx, updates); err != nil {
		return nil, err
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		return nil, err
	}

	next := &models.ReliabilitySummary{
		Model:               model,
		ForeignKey:          fk,
		TotalScore:          total,
		CompletenessPercent: scoring.Completeness(merged, s.expectedFieldCount(model, merged)),
		SourceData:          sourceData,
		LastSource:          source,
		LastLogID:           entry.ID,
	}
	var expectedVersion int64
	if summary != nil {
		expectedVersion = summary.Version
	}
	if err := s.summaries.Save(ctx, next, expectedVersion); err != nil {
		return nil, fmt.Errorf("failed to save summary: %w", err)
	}

	return entry, nil
}

func (s *reliabilityService) Recalculate(ctx context.Context, model, foreignKey string) (*models.ReliabilityLogEntry, error) {
	name, err := normalizeModel(model)
	if err != nil {
		return nil, err
	}
	fk, err := requireForeignKey(foreignKey)
	if err != nil {
		return nil, err
	}

	summary, err := s.summaries.Get(ctx, name, fk)
	if err != nil {
		return nil, err
	}
	if len(summary.SourceData) == 0 || string(summary.SourceData) == "null" {
		return nil, apperrors.NewValidationError("source_data", "entity has no stored data to recalculate from")
	}

	var data map[string]json.RawMessage
	if err := json.Unmarshal(summary.SourceData, &data); err != nil {
		return nil, fmt.Errorf("failed to decode stored source data: %w", err)
	}

	msg := "Recalculated from stored data"
	return s.RecordScoreChange(ctx, &RecordScoreChangeRequest{
		Model:      name,
		ForeignKey: fk,
		Data:       data,
		Source:     models.SourceSystem,
		Message:    &msg,
	})
}

func (s *reliabilityService) ComputeChecksum(entry *models.ReliabilityLogEntry) (string, error) {
	return crypto.ChecksumFor(entry)
}

func (s *reliabilityService) VerifyChecksum(ctx context.Context, model, foreignKey, logID string) (*ChecksumVerification, error) {
	name, err := normalizeModel(model)
	if err != nil {
		return nil, err
	}
	fk, err := requireForeignKey(foreignKey)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(logID) == "" {
		return nil, apperrors.NewValidationError("log_id", "is required")
	}
	id, err := uuid.Parse(strings.TrimSpace(logID))
	if err != nil {
		return nil, apperrors.NewValidationError("log_id", "must be a UUID")
	}

	entry, err := s.logs.GetByID(ctx, name, fk, id)
	if err != nil {
		return nil, err
	}

	valid, computed := s.verifyEntry(entry)
	return &ChecksumVerification{
		LogID:            entry.ID,
		Valid:            valid,
		StoredChecksum:   entry.ChecksumSHA256,
		ComputedChecksum: computed,
		VerifiedAt:       s.now().UTC(),
	}, nil
}

// verifyEntry never fails: an entry whose snapshot can no longer be decoded,
// or that holds a non-finite score, has been altered and is reported as invalid.
func (s *reliabilityService) verifyEntry(entry *models.ReliabilityLogEntry) (bool, string) {
	valid, computed, err := crypto.VerifyEntry(entry)
	if err != nil {
		s.logger.Warn("Stored log entry cannot be canonicalized",
			zap.String("log_id", entry.ID.String()),
			zap.Error(err))
		valid = false
	}
	s.observer.ChecksumVerified(valid)
	return valid, computed
}

func (s *reliabilityService) BulkVerify(ctx context.Context, model, foreignKey string, limit int) (*BulkVerification, error) {
	name, err := normalizeModel(model)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit, DefaultVerifyLimit, MaxVerifyLimit)

	entries, err := s.logs.ListForVerification(ctx, name, strings.TrimSpace(foreignKey), limit)
	if err != nil {
		return nil, err
	}

	valid := make([]bool, len(entries))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(verifyConcurrency)
	for i, e := range entries {
		g.Go(func() error {
			valid[i], _ = s.verifyEntry(e)
			return nil
		})
	}
	_ = g.Wait()

	result := &BulkVerification{Model: name, Checked: len(entries), Failures: []VerificationFailure{}}
	for i, ok := range valid {
		if ok {
			result.Verified++
			continue
		}
		result.Failed++
		result.Failures = append(result.Failures, VerificationFailure{
			LogID:      entries[i].ID,
			ForeignKey: entries[i].ForeignKey,
		})
	}

	if result.Failed > 0 {
		s.logger.Warn("Checksum verification found mismatches",
			zap.String("model", name),
			zap.Int("checked", result.Checked),
			zap.Int("failed", result.Failed))
	}
	return result, nil
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// GetFieldStats coalesces concurrent requests for the same model into one query.
func (s *reliabilityService) GetFieldStats(ctx context.Context, model string) (map[string]models.FieldStat, error) {
	name, err := normalizeModel(model)
	if err != nil {
		return nil, err
	}

	v, err, _ := s.statsGroup.Do(name, func() (any, error) {
		return s.fields.FieldStats(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]models.FieldStat), nil
}

func (s *reliabilityService) GetHistory(ctx context.Context, model, foreignKey string, limit int) ([]*models.ReliabilityLogEntry, error) {
	name, err := normalizeModel(model)
	if err != nil {
		return nil, err
	}
	fk, err := requireForeignKey(foreignKey)
	if err != nil {
		return nil, err
	}
	return s.logs.ListByEntity(ctx, name, fk, clampLimit(limit, DefaultHistoryLimit, MaxHistoryLimit))
}

func (s *reliabilityService) GetTrends(ctx context.Context, model string, days int) (*ScoreTrends, error) {
	name, err := normalizeModel(model)
	if err != nil {
		return nil, err
	}
	days = clampLimit(days, DefaultTrendDays, MaxTrendDays)

	today := s.now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(days - 1))

	points, err := s.logs.ScoreTrends(ctx, name, since)
	if err != nil {
		return nil, err
	}
	bySource, err := s.logs.CountBySource(ctx, name, since)
	if err != nil {
		return nil, err
	}
	if points == nil {
		points = []models.ScoreTrendPoint{}
	}

	return &ScoreTrends{Model: name, Days: days, Points: points, BySource: bySource}, nil
}

func (s *reliabilityService) FieldImportance(ctx context.Context, model, foreignKey string) ([]FieldImportance, error) {
	name, err := normalizeModel(model)
	if err != nil {
		return nil, err
	}
	fk, err := requireForeignKey(foreignKey)
	if err != nil {
		return nil, err
	}

	current, err := s.fields.ListByEntity(ctx, name, fk)
	if err != nil {
		return nil, err
	}
	if len(current) == 0 {
		return nil, apperrors.ErrNotFound
	}

	stats, err := s.GetFieldStats(ctx, name)
	if err != nil {
		return nil, err
	}

	var ranked []FieldImportance
	for i := range current {
		f := &current[i]
		if f.MaxScore <= 0 {
			continue
		}
		curr := f.Score / f.MaxScore
		corpus := stats[f.Field].AvgScore / f.MaxScore
		importance := f.Weight * (1 - corpus) * (1 - curr)
		if importance <= 0 {
			continue
		}
		ranked = append(ranked, FieldImportance{
			Field:        f.Field,
			Importance:   scoring.Round(importance, 3),
			CurrentScore: f.Score,
			CorpusAvg:    stats[f.Field].AvgScore,
			Weight:       f.Weight,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Importance != ranked[j].Importance {
			return ranked[i].Importance > ranked[j].Importance
		}
		return ranked[i].Field < ranked[j].Field
	})
	if len(ranked) > importanceTopN {
		ranked = ranked[:importanceTopN]
	}
	if ranked == nil {
		ranked = []FieldImportance{}
	}
	return ranked, nil
}

func (s *reliabilityService) ListSummaries(ctx context.Context, model string, limit, offset int) ([]*models.ReliabilitySummary, error) {
	name, err := normalizeModel(model)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	return s.summaries.List(ctx, name, clampLimit(limit, DefaultVerifyLimit, MaxVerifyLimit), offset)
}
