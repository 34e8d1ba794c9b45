package models

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// DefaultLowThreshold is the score below which a field counts as low.
const DefaultLowThreshold = 0.5

// PerformanceLevel buckets a 0..1 score for display.
type PerformanceLevel string

const (
	PerformanceExcellent PerformanceLevel = "excellent"
	PerformanceGood      PerformanceLevel = "good"
	PerformanceFair      PerformanceLevel = "fair"
	PerformancePoor      PerformanceLevel = "poor"
	PerformanceMissing   PerformanceLevel = "missing"
)

// PerformanceLevelFor classifies a score that is already on the 0..1 scale.
// Callers holding a 0..100 total must divide by 100 first.
func PerformanceLevelFor(score float64) PerformanceLevel {
	switch {
	case score >= 0.90:
		return PerformanceExcellent
	case score >= 0.75:
		return PerformanceGood
	case score >= 0.50:
		return PerformanceFair
	case score > 0:
		return PerformancePoor
	default:
		return PerformanceMissing
	}
}

// Severity maps a performance level onto a UI status class.
func (l PerformanceLevel) Severity() string {
	switch l {
	case PerformanceExcellent, PerformanceGood:
		return "success"
	case PerformanceFair:
		return "warning"
	default:
		return "danger"
	}
}

// FieldScoreRecord is the current score of one field of one entity.
// Stored in reliability_field_scores, keyed by (model, foreign_key, field).
type FieldScoreRecord struct {
	Model      string    `json:"model"`
	ForeignKey string    `json:"foreign_key"`
	Field      string    `json:"field"`
	Score      float64   `json:"score"`     // 0..MaxScore, normally 0..1
	Weight     float64   `json:"weight"`    // >= 0
	MaxScore   float64   `json:"max_score"` // > 0
	Notes      *string   `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Validate checks the score, weight and ceiling invariants.
func (f *FieldScoreRecord) Validate() error {
	if strings.TrimSpace(f.Field) == "" {
		return fmt.Errorf("field name is required")
	}
	if !finite(f.Score) || !finite(f.Weight) || !finite(f.MaxScore) {
		return fmt.Errorf("field %q: score, weight and max_score must be finite numbers", f.Field)
	}
	if f.MaxScore <= 0 {
		return fmt.Errorf("field %q: max_score must be > 0", f.Field)
	}
	if f.Score < 0 || f.Score > f.MaxScore {
		return fmt.Errorf("field %q: score must be between 0 and max_score (%g)", f.Field, f.MaxScore)
	}
	if f.Weight < 0 {
		return fmt.Errorf("field %q: weight must be >= 0", f.Field)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Percentage returns score as a percentage of max_score, or 0 when max_score <= 0.
func (f *FieldScoreRecord) Percentage() float64 {
	if f.MaxScore <= 0 {
		return 0
	}
	return f.Score / f.MaxScore * 100
}

// WeightedContribution returns score × weight.
func (f *FieldScoreRecord) WeightedContribution() float64 {
	return f.Score * f.Weight
}

func (f *FieldScoreRecord) IsPerfect() bool {
	return f.Score >= f.MaxScore
}

func (f *FieldScoreRecord) IsMissing() bool {
	return f.Score <= 0
}

// IsLow compares the raw score, not the percentage, against threshold.
func (f *FieldScoreRecord) IsLow(threshold float64) bool {
	return f.Score < threshold
}

func (f *FieldScoreRecord) PerformanceLevel() PerformanceLevel {
	return PerformanceLevelFor(f.Score)
}

// FieldSnapshot is one field inside a stored field-score snapshot.
type FieldSnapshot struct {
	Score    float64 `json:"score"`
	Weight   float64 `json:"weight"`
	MaxScore float64 `json:"max_score"`
	Notes    *string `json:"notes"`
}

// FieldScoreSet is a snapshot of an entity's field scores keyed by field name.
// It is the shape persisted in the *_field_scores_json log columns.
type FieldScoreSet map[string]FieldSnapshot

// SnapshotOf builds a FieldScoreSet from records.
func SnapshotOf(records []FieldScoreRecord) FieldScoreSet {
	set := make(FieldScoreSet, len(records))
	for _, r := range records {
		set[r.Field] = FieldSnapshot{
			Score:    r.Score,
			Weight:   r.Weight,
			MaxScore: r.MaxScore,
			Notes:    r.Notes,
		}
	}
	return set
}

// Records expands the set into records for the given entity, sorted by field.
func (s FieldScoreSet) Records(model, foreignKey string) []FieldScoreRecord {
	out := make([]FieldScoreRecord, 0, len(s))
	for name, f := range s {
		out = append(out, FieldScoreRecord{
			Model:      model,
			ForeignKey: foreignKey,
			Field:      name,
			Score:      f.Score,
			Weight:     f.Weight,
			MaxScore:   f.MaxScore,
			Notes:      f.Notes,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// MergeFieldScores overlays updates onto current by field name.
// The result is sorted by field.
func MergeFieldScores(current, updates []FieldScoreRecord) []FieldScoreRecord {
	byField := make(map[string]FieldScoreRecord, len(current)+len(updates))
	for _, r := range current {
		byField[r.Field] = r
	}
	for _, r := range updates {
		if prev, ok := byField[r.Field]; ok {
			r.CreatedAt = prev.CreatedAt
		}
		byField[r.Field] = r
	}

	out := make([]FieldScoreRecord, 0, len(byField))
	for _, r := range byField {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}
