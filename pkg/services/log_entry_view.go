package services

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-reliability/pkg/models"
)

// LogEntryView is a log entry as returned to callers, with its derived
// display values computed from the stored columns.
type LogEntryView struct {
	ID              uuid.UUID         `json:"id"`
	Model           string            `json:"model"`
	ForeignKey      string            `json:"foreign_key"`
	FromTotalScore  *float64          `json:"from_total_score"`
	ToTotalScore    float64           `json:"to_total_score"`
	FromFieldScores json.RawMessage   `json:"from_field_scores_json"`
	ToFieldScores   json.RawMessage   `json:"to_field_scores_json"`
	Source          models.Source     `json:"source"`
	ActorUserID     *string           `json:"actor_user_id"`
	ActorService    *string           `json:"actor_service"`
	Message         *string           `json:"message"`
	ChecksumSHA256  string            `json:"checksum_sha256"`
	Created         time.Time         `json:"created"`
	ChangeType      models.ChangeType `json:"change_type"`
	Delta           *float64          `json:"delta"`
	Summary         string            `json:"summary"`
	SourceLabel     string            `json:"source_label"`
	ActorLabel      string            `json:"actor_label"`
	IsSignificant   bool              `json:"is_significant"`
}

// NewLogEntryView derives the view of entry.
func NewLogEntryView(entry *models.ReliabilityLogEntry) LogEntryView {
	change := entry.Change()
	from := entry.FromFieldScores
	if len(from) == 0 {
		from = json.RawMessage("null")
	}
	return LogEntryView{
		ID:              entry.ID,
		Model:           entry.Model,
		ForeignKey:      entry.ForeignKey,
		FromTotalScore:  entry.FromTotalScore,
		ToTotalScore:    entry.ToTotalScore,
		FromFieldScores: from,
		ToFieldScores:   entry.ToFieldScores,
		Source:          entry.Source,
		ActorUserID:     entry.ActorUserID,
		ActorService:    entry.ActorService,
		Message:         entry.Message,
		ChecksumSHA256:  entry.ChecksumSHA256,
		Created:         entry.CreatedAt.UTC(),
		ChangeType:      change.Type,
		Delta:           change.Delta,
		Summary:         change.Summary(),
		SourceLabel:     entry.Source.Label(),
		ActorLabel:      entry.Actor().Label(),
		IsSignificant:   change.IsSignificant(),
	}
}

// NewLogEntryViews derives views for entries, preserving order.
func NewLogEntryViews(entries []*models.ReliabilityLogEntry) []LogEntryView {
	out := make([]LogEntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, NewLogEntryView(e))
	}
	return out
}
