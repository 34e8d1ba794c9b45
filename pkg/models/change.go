package models

import (
	"fmt"
	"math"
)

const (
	// ChangeEpsilon is the smallest delta that counts as a change.
	ChangeEpsilon = 0.01
	// DefaultSignificanceThreshold is the delta at which a change is significant.
	DefaultSignificanceThreshold = 0.10
)

// ChangeType classifies a score transition.
type ChangeType string

const (
	ChangeInitial     ChangeType = "initial"
	ChangeImprovement ChangeType = "improvement"
	ChangeDegradation ChangeType = "degradation"
	ChangeNone        ChangeType = "no_change"
)

// Change is the result of comparing a previous and new total score.
type Change struct {
	Type  ChangeType
	Delta *float64 // nil when there is no previous score
	From  *float64
	To    float64
}

// Classify compares from and to. A nil from is an initial score.
func Classify(from *float64, to float64) Change {
	if from == nil {
		return Change{Type: ChangeInitial, To: to}
	}

	delta := to - *from
	prev := *from
	c := Change{Delta: &delta, From: &prev, To: to}
	switch {
	case delta > ChangeEpsilon:
		c.Type = ChangeImprovement
	case delta < -ChangeEpsilon:
		c.Type = ChangeDegradation
	default:
		c.Type = ChangeNone
	}
	return c
}

// IsSignificant reports whether |delta| >= threshold.
func IsSignificant(delta, threshold float64) bool {
	return math.Abs(delta) >= threshold
}

// IsSignificant applies the default threshold. Initial scores are never significant.
func (c Change) IsSignificant() bool {
	if c.Delta == nil {
		return false
	}
	return IsSignificant(*c.Delta, DefaultSignificanceThreshold)
}

// Summary renders the change for people, e.g. "Improved: 62.00 → 74.50 (+12.50)".
func (c Change) Summary() string {
	switch c.Type {
	case ChangeInitial:
		return fmt.Sprintf("Initial score: %.2f", c.To)
	case ChangeImprovement:
		return fmt.Sprintf("Improved: %.2f → %.2f (+%.2f)", *c.From, c.To, *c.Delta)
	case ChangeDegradation:
		return fmt.Sprintf("Declined: %.2f → %.2f (%.2f)", *c.From, c.To, *c.Delta)
	default:
		return fmt.Sprintf("No change: %.2f", c.To)
	}
}
