package scoring

import (
	"encoding/json"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/ekaya-inc/ekaya-reliability/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-reliability/pkg/models"
)

// Rationale strings attached as field notes.
const (
	NoteEmpty       = "Field is empty or invalid"
	NoteComplete    = "Complete and valid"
	NotePartial     = "Partially complete - could be improved"
	NoteJSONFull    = "Comprehensive JSON specification provided"
	NoteKnownIssuer = "Recognized standard/organization"
)

// jsonFullKeyCount is the key count at which a JSON specification scores 1.0.
const jsonFullKeyCount = 5

var knownStandards = []string{
	"ANSI", "IEEE", "ISO", "IEC", "FCC", "UL", "CE", "ETL",
	"NEMA", "TIA", "EIA", "JEDEC", "USB-IF",
}

// Evaluate scores every field in the profile against data. Fields absent from data
// score 0. Results are sorted by field name and carry no model or foreign key.
func (p *Profile) Evaluate(data map[string]json.RawMessage) []models.FieldScoreRecord {
	out := make([]models.FieldScoreRecord, 0, len(p.Fields))
	for _, rule := range p.Fields {
		out = append(out, rule.score(data[rule.Name]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// EvaluateUnprofiled scores every supplied field at weight 1.0, choosing the
// evaluator from the field name. Used for models without a profile.
func EvaluateUnprofiled(data map[string]json.RawMessage) []models.FieldScoreRecord {
	out := make([]models.FieldScoreRecord, 0, len(data))
	for name, raw := range data {
		rule := FieldRule{Name: name, Weight: 1, MaxScore: 1, Kind: kindForFieldName(name)}
		out = append(out, rule.score(raw))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// kindForFieldName picks an evaluator for well-known field names.
func kindForFieldName(name string) EvaluatorKind {
	switch name {
	case "technical_specifications":
		return KindJSON
	case "testing_standard", "certifying_organization":
		return KindVerification
	case "numeric_rating", "performance_rating":
		return KindNumeric
	case "is_certified":
		return KindBoolean
	case "price":
		return KindPrice
	case "currency":
		return KindCurrency
	case "image":
		return KindImage
	default:
		return KindPresence
	}
}

func (r FieldRule) score(raw json.RawMessage) models.FieldScoreRecord {
	maxScore := r.MaxScore
	if maxScore <= 0 {
		maxScore = 1
	}

	var s float64
	if !jsonutil.IsBlank(raw) {
		s = r.evaluate(raw, jsonutil.FlexibleStringValue(raw))
	}
	s = Round(s, 3)

	note := r.note(s)
	return models.FieldScoreRecord{
		Field:    r.Name,
		Score:    s * maxScore,
		Weight:   r.Weight,
		MaxScore: maxScore,
		Notes:    &note,
	}
}

// evaluate returns a 0..1 score for a non-blank value.
func (r FieldRule) evaluate(raw json.RawMessage, value string) float64 {
	switch r.Kind {
	case KindText:
		return scoreTextLength(value, r.MinLength, r.GoodLength)
	case KindLength:
		return scoreTieredLength(value, r.MinLength, r.GoodLength, r.ExcellentLength)
	case KindPrice:
		return scorePrice(value, r.MinValue)
	case KindCurrency:
		return scoreCurrency(value, r.allowedOr(defaultCurrencies))
	case KindImage:
		return scoreImage(value, r.allowedOr(defaultImageExtensions))
	case KindJSON:
		return scoreJSONObject(raw)
	case KindVerification:
		return scoreVerification(value)
	case KindNumeric:
		return scoreNumeric(value)
	case KindBoolean:
		return scoreBoolean(value)
	default:
		return 1.0
	}
}

func (r FieldRule) allowedOr(fallback []string) []string {
	if len(r.Allowed) > 0 {
		return r.Allowed
	}
	return fallback
}

func (r FieldRule) note(score float64) string {
	switch {
	case score <= 0:
		return NoteEmpty
	case score >= 1:
		switch r.Kind {
		case KindJSON:
			return NoteJSONFull
		case KindVerification:
			return NoteKnownIssuer
		default:
			return NoteComplete
		}
	default:
		return NotePartial
	}
}

// scoreTextLength interpolates linearly from 0 at minLen to 1 at idealLen.
func scoreTextLength(value string, minLen, idealLen int) float64 {
	n := len([]rune(strings.TrimSpace(value)))
	if n < minLen {
		return 0
	}
	if n >= idealLen || idealLen <= minLen {
		return 1
	}
	return float64(n-minLen) / float64(idealLen-minLen)
}

// scoreTieredLength scores 0.5 at minLen rising to 0.75 at goodLen and 1.0 at
// excellentLen. Without an excellent tier, goodLen earns full marks.
func scoreTieredLength(value string, minLen, goodLen, excellentLen int) float64 {
	n := len([]rune(strings.TrimSpace(value)))
	switch {
	case n < minLen:
		return 0
	case excellentLen <= goodLen:
		if n >= goodLen || goodLen <= minLen {
			return 1
		}
		return 0.5 + 0.5*float64(n-minLen)/float64(goodLen-minLen)
	case n >= excellentLen:
		return 1
	case n >= goodLen:
		return 0.75 + 0.25*float64(n-goodLen)/float64(excellentLen-goodLen)
	case goodLen <= minLen:
		return 0.75
	default:
		return 0.5 + 0.25*float64(n-minLen)/float64(goodLen-minLen)
	}
}

func scorePrice(value string, minValue float64) float64 {
	if minValue <= 0 {
		minValue = 0.01
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || v < minValue {
		return 0
	}
	return 1
}

func scoreCurrency(value string, allowed []string) float64 {
	code := strings.ToUpper(strings.TrimSpace(value))
	for _, a := range allowed {
		if code == strings.ToUpper(a) {
			return 1
		}
	}
	return 0.5
}

func scoreImage(value string, extensions []string) float64 {
	p := strings.TrimSpace(value)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return 1
		}
	}
	return 0.5
}

// scoreJSONObject accepts an object or a string holding one.
func scoreJSONObject(raw json.RawMessage) float64 {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		if err := json.Unmarshal([]byte(s), &obj); err != nil {
			return 0
		}
	}
	return min(1.0, float64(len(obj))/jsonFullKeyCount)
}

func scoreVerification(value string) float64 {
	v := strings.TrimSpace(value)
	if len(v) < 2 {
		return 0
	}
	upper := strings.ToUpper(v)
	for _, s := range knownStandards {
		if strings.Contains(upper, s) {
			return 1
		}
	}
	if len(v) >= 3 {
		return 0.8
	}
	return 0.4
}

func scoreNumeric(value string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || v <= 0 {
		return 0
	}
	return 1
}

func scoreBoolean(value string) float64 {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err == nil && b {
		return 1
	}
	return 0.5
}
