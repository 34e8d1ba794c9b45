package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/ekaya-reliability/pkg/models"
)

func TestAggregate_WeightedAverage(t *testing.T) {
	fields := []models.FieldScoreRecord{
		{Field: "title", Score: 1.0, Weight: 2, MaxScore: 1},
		{Field: "description", Score: 0.4, Weight: 1, MaxScore: 1},
	}

	assert.InDelta(t, 80.0, Aggregate(fields), 1e-9)
	assert.Equal(t, 80.0, Round(Aggregate(fields), 3))
}

func TestAggregate_EmptyAndZeroWeight(t *testing.T) {
	assert.Equal(t, 0.0, Aggregate(nil))
	assert.Equal(t, 0.0, Aggregate([]models.FieldScoreRecord{
		{Field: "title", Score: 1, Weight: 0, MaxScore: 1},
	}))
}

func TestAggregate_Bounds(t *testing.T) {
	cases := [][]models.FieldScoreRecord{
		{{Field: "a", Score: 1, Weight: 5, MaxScore: 1}, {Field: "b", Score: 1, Weight: 0.1, MaxScore: 1}},
		{{Field: "a", Score: 0, Weight: 5, MaxScore: 1}, {Field: "b", Score: 0, Weight: 3, MaxScore: 1}},
		{{Field: "a", Score: 10, Weight: 1, MaxScore: 10}, {Field: "b", Score: 2.5, Weight: 4, MaxScore: 5}},
		{{Field: "a", Score: 0.3, Weight: 0.2, MaxScore: 1}, {Field: "b", Score: 0.9, Weight: 0.8, MaxScore: 1}},
	}

	for _, fields := range cases {
		total := Aggregate(fields)
		assert.GreaterOrEqual(t, total, 0.0)
		assert.LessOrEqual(t, total, 100.0+1e-9)
	}

	assert.InDelta(t, 60.0, Aggregate(cases[2]), 1e-9)
}

func TestCompleteness(t *testing.T) {
	fields := []models.FieldScoreRecord{
		{Field: "a", Score: 1, MaxScore: 1},
		{Field: "b", Score: 0, MaxScore: 1},
		{Field: "c", Score: 0.2, MaxScore: 1},
	}

	assert.Equal(t, 66.67, Completeness(fields, 3))
	assert.Equal(t, 25.0, Completeness(fields[:1], 4))
	assert.Equal(t, 0.0, Completeness(fields, 0))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 79.333, Round(79.33333, 3))
	assert.Equal(t, 0.125, Round(0.1245, 3))
	assert.Equal(t, 2.0, Round(1.995, 2))
}

func TestTotalLevel(t *testing.T) {
	assert.Equal(t, models.PerformanceGood, TotalLevel(80))
	assert.Equal(t, models.PerformanceExcellent, TotalLevel(90))
	assert.Equal(t, models.PerformanceMissing, TotalLevel(0))
}
