package crypto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ekaya-inc/ekaya-reliability/pkg/models"
)

// CanonicalVersion names the payload layout below. Changing any rule here
// invalidates every stored checksum.
//
// Format v2:
//   - one JSON object, keys in byte order at every level, no insignificant
//     whitespace, no HTML escaping, no trailing newline
//   - score values (totals, score, weight, max_score) as the shortest plain
//     decimal literal that parses back to the same float64, e.g. 80 or 0.48453;
//     no exponent, no trailing zeros
//   - field snapshots as objects keyed by field name holding
//     {max_score, notes, score, weight}
//   - created as UTC RFC 3339 at second precision, e.g. 2026-01-02T03:04:05Z
//   - absent values as null
//
// NaN and infinite values cannot be canonicalized.
const CanonicalVersion = "v2"

// ErrNonFiniteScore is returned for NaN or infinite score values.
var ErrNonFiniteScore = errors.New("score is not a finite number")

// CanonicalPayload returns the bytes hashed for entry. Field snapshots are decoded
// first so storage-level re-serialization of the JSON columns never changes the result.
func CanonicalPayload(entry *models.ReliabilityLogEntry) ([]byte, error) {
	from, err := entry.DecodeFromFieldScores()
	if err != nil {
		return nil, fmt.Errorf("failed to decode from_field_scores: %w", err)
	}
	to, err := entry.DecodeToFieldScores()
	if err != nil {
		return nil, fmt.Errorf("failed to decode to_field_scores: %w", err)
	}

	fromTotal, err := exactOrNil(entry.FromTotalScore)
	if err != nil {
		return nil, fmt.Errorf("from_total_score: %w", err)
	}
	toTotal, err := exact(entry.ToTotalScore)
	if err != nil {
		return nil, fmt.Errorf("to_total_score: %w", err)
	}
	fromFields, err := canonicalFieldSet(from)
	if err != nil {
		return nil, fmt.Errorf("from_field_scores: %w", err)
	}
	toFields, err := canonicalFieldSet(to)
	if err != nil {
		return nil, fmt.Errorf("to_field_scores: %w", err)
	}

	payload := map[string]any{
		"model":             entry.Model,
		"foreign_key":       entry.ForeignKey,
		"from_total_score":  fromTotal,
		"to_total_score":    toTotal,
		"from_field_scores": fromFields,
		"to_field_scores":   toFields,
		"source":            string(entry.Source),
		"actor_user_id":     stringOrNil(entry.ActorUserID),
		"actor_service":     stringOrNil(entry.ActorService),
		"created":           CanonicalTime(entry.CreatedAt),
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("failed to encode canonical payload: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// CanonicalTime formats t the way it appears in the payload.
func CanonicalTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func canonicalFieldSet(set models.FieldScoreSet) (any, error) {
	if set == nil {
		return nil, nil
	}
	out := make(map[string]any, len(set))
	for name, f := range set {
		field := make(map[string]any, 4)
		for key, v := range map[string]float64{"max_score": f.MaxScore, "score": f.Score, "weight": f.Weight} {
			n, err := exact(v)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", name, key, err)
			}
			field[key] = n
		}
		field["notes"] = stringOrNil(f.Notes)
		out[name] = field
	}
	return out, nil
}

// exact renders v as the shortest decimal literal that round-trips to v.
func exact(v float64) (json.Number, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("%w: %v", ErrNonFiniteScore, v)
	}
	return json.Number(decimal.NewFromFloat(v).String()), nil
}

func exactOrNil(v *float64) (any, error) {
	if v == nil {
		return nil, nil
	}
	return exact(*v)
}

func stringOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
