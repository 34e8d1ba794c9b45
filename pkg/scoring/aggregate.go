// Package scoring turns entity data into field scores and field scores into totals.
package scoring

import (
	"github.com/shopspring/decimal"

	"github.com/ekaya-inc/ekaya-reliability/pkg/models"
)

// Aggregate returns the weighted average of the fields as a 0..100 percentage:
// 100 × Σ(score_i × weight_i) / Σ(weight_i), with each score taken relative to
// its max_score. Returns 0 when the weights sum to 0. It has no side effects.
func Aggregate(fields []models.FieldScoreRecord) float64 {
	var weighted, totalWeight float64
	for i := range fields {
		f := &fields[i]
		if f.Weight <= 0 {
			continue
		}
		totalWeight += f.Weight
		if f.MaxScore > 0 {
			weighted += f.Score / f.MaxScore * f.Weight
		}
	}
	if totalWeight == 0 {
		return 0
	}
	return 100 * weighted / totalWeight
}

// Completeness returns the share of expected fields with a score above zero, as a
// 0..100 percentage rounded to two places. Returns 0 when expected is 0.
func Completeness(fields []models.FieldScoreRecord, expected int) float64 {
	if expected <= 0 {
		return 0
	}
	completed := 0
	for i := range fields {
		if !fields[i].IsMissing() {
			completed++
		}
	}
	return Round(float64(completed)/float64(expected)*100, 2)
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// TotalLevel classifies a 0..100 total by scaling it onto the 0..1 range first.
func TotalLevel(total float64) models.PerformanceLevel {
	return models.PerformanceLevelFor(total / 100)
}
