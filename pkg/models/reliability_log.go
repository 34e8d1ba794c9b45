package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ReliabilityLogEntry is one immutable score transition of one entity.
// Stored in reliability_logs. Rows are never updated or deleted.
type ReliabilityLogEntry struct {
	ID              uuid.UUID       `json:"id"`
	Model           string          `json:"model"`
	ForeignKey      string          `json:"foreign_key"`
	FromTotalScore  *float64        `json:"from_total_score"` // nil for the first entry of an entity
	ToTotalScore    float64         `json:"to_total_score"`
	FromFieldScores json.RawMessage `json:"from_field_scores_json,omitempty"` // FieldScoreSet, nil for the first entry
	ToFieldScores   json.RawMessage `json:"to_field_scores_json"`             // FieldScoreSet
	Source          Source          `json:"source"`
	ActorUserID     *string         `json:"actor_user_id,omitempty"`
	ActorService    *string         `json:"actor_service,omitempty"`
	Message         *string         `json:"message,omitempty"`
	ChecksumSHA256  string          `json:"checksum_sha256"`
	CreatedAt       time.Time       `json:"created"`
}

// Actor returns who made the change.
func (e *ReliabilityLogEntry) Actor() Actor {
	return Actor{UserID: e.ActorUserID, Service: e.ActorService}
}

// Change classifies the transition recorded by this entry.
func (e *ReliabilityLogEntry) Change() Change {
	return Classify(e.FromTotalScore, e.ToTotalScore)
}

// Delta returns to - from, or nil for an initial entry.
func (e *ReliabilityLogEntry) Delta() *float64 {
	return e.Change().Delta
}

// DecodeFromFieldScores decodes the previous snapshot. Returns nil for an initial entry.
func (e *ReliabilityLogEntry) DecodeFromFieldScores() (FieldScoreSet, error) {
	return decodeFieldScoreSet(e.FromFieldScores)
}

// DecodeToFieldScores decodes the new snapshot.
func (e *ReliabilityLogEntry) DecodeToFieldScores() (FieldScoreSet, error) {
	return decodeFieldScoreSet(e.ToFieldScores)
}

func decodeFieldScoreSet(raw json.RawMessage) (FieldScoreSet, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var set FieldScoreSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, err
	}
	return set, nil
}

// ReliabilitySummary is the current total of one entity.
// Stored in reliability_summaries; Version increases by one on every recorded change.
type ReliabilitySummary struct {
	Model               string          `json:"model"`
	ForeignKey          string          `json:"foreign_key"`
	TotalScore          float64         `json:"total_score"`
	CompletenessPercent float64         `json:"completeness_percent"`
	SourceData          json.RawMessage `json:"source_data,omitempty"` // raw entity data when scores were evaluated from it
	LastSource          Source          `json:"last_source"`
	LastLogID           uuid.UUID       `json:"last_log_id"`
	Version             int64           `json:"version"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// FieldStat aggregates one field across every entity of a model.
type FieldStat struct {
	Count     int     `json:"count"`
	AvgScore  float64 `json:"avg_score"`
	MinScore  float64 `json:"min_score"`
	MaxScore  float64 `json:"max_score"`
	AvgWeight float64 `json:"avg_weight"`
}

// ScoreTrendPoint is the average recorded total for one day.
type ScoreTrendPoint struct {
	Day      string  `json:"day"` // YYYY-MM-DD, UTC
	AvgScore float64 `json:"avg_score"`
	Count    int     `json:"count"`
}
