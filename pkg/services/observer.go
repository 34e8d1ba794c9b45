package services

import "github.com/ekaya-inc/ekaya-reliability/pkg/models"

// Observer receives scoring events, typically to export them as metrics.
type Observer interface {
	ScoreComputed(model string, provisional bool, total float64)
	ScoreChangeRecorded(model string, change models.ChangeType)
	ChecksumVerified(valid bool)
	SuggestionOutcome(status string)
}

// NoopObserver discards every event.
type NoopObserver struct{}

func (NoopObserver) ScoreComputed(string, bool, float64)          {}
func (NoopObserver) ScoreChangeRecorded(string, models.ChangeType) {}
func (NoopObserver) ChecksumVerified(bool)                         {}
func (NoopObserver) SuggestionOutcome(string)                      {}
