package llm

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-reliability/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-reliability/pkg/models"
)

const (
	// MaxSuggestions caps how many suggestions one response may carry.
	MaxSuggestions = 5

	// maxPromptValueLen truncates long field values before they reach the prompt.
	maxPromptValueLen = 400
)

const suggestionSystemMessage = `You review structured catalog records and suggest concrete edits that make weak fields more complete and accurate.
Only suggest changes for the fields you are given. Never invent facts such as prices or certifications; suggest what information to add instead.
Return ONLY JSON of the form {"suggestions":[{"field":"<field name>","suggestion":"<one sentence>"}]}.`

// BuildSuggestionPrompt renders the user prompt for req. Fields below the low
// threshold are marked so the model focuses on them.
func BuildSuggestionPrompt(req *SuggestionRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Record type: %s\n\nFields (score out of 100):\n", req.Model)

	for i := range req.Fields {
		f := &req.Fields[i]
		marker := ""
		if f.IsLow(models.DefaultLowThreshold) {
			marker = " [needs work]"
		}

		value := jsonutil.FlexibleStringValue(req.Data[f.Field])
		if r := []rune(value); len(r) > maxPromptValueLen {
			value = string(r[:maxPromptValueLen]) + "..."
		}
		if value == "" {
			value = "(empty)"
		}

		fmt.Fprintf(&b, "- %s: %.0f%s\n  value: %s\n", f.Field, f.Percentage(), marker, value)
	}

	fmt.Fprintf(&b, "\nSuggest at most %d improvements, weakest fields first.", MaxSuggestions)
	return b.String()
}

type suggestionResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// ParseSuggestions extracts suggestions from a model response. Suggestions for
// fields that were not asked about, or with empty text, are dropped.
func ParseSuggestions(content string, req *SuggestionRequest) ([]Suggestion, error) {
	parsed, err := ParseJSONResponse[suggestionResponse](content)
	if err != nil {
		return nil, NewError(ErrorTypeResponse, "unparseable suggestions", false, err)
	}

	known := make(map[string]bool, len(req.Fields))
	for _, f := range req.Fields {
		known[f.Field] = true
	}

	out := make([]Suggestion, 0, len(parsed.Suggestions))
	for _, s := range parsed.Suggestions {
		s.Field = strings.TrimSpace(s.Field)
		s.Suggestion = strings.TrimSpace(s.Suggestion)
		if s.Suggestion == "" || !known[s.Field] {
			continue
		}
		out = append(out, s)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out, nil
}
