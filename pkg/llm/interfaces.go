// Package llm provides the upstream AI providers that suggest how to improve
// low-scoring fields during provisional scoring.
package llm

import (
	"context"
	"encoding/json"

	"github.com/ekaya-inc/ekaya-reliability/pkg/models"
)

// Suggestion is one proposed improvement for one field.
type Suggestion struct {
	Field      string `json:"field"`
	Suggestion string `json:"suggestion"`
}

// SuggestionRequest is the scored draft a provider is asked to improve.
type SuggestionRequest struct {
	Model  string
	Fields []models.FieldScoreRecord
	Data   map[string]json.RawMessage
}

// SuggestionClient asks an upstream model for field improvement suggestions.
// Use this interface for dependency injection to enable mocking in tests.
type SuggestionClient interface {
	Suggest(ctx context.Context, req *SuggestionRequest) ([]Suggestion, error)

	// Provider returns "openai" or "anthropic".
	Provider() string

	// GetModel returns the configured model name.
	GetModel() string
}

var (
	_ SuggestionClient = (*Client)(nil)
	_ SuggestionClient = (*AnthropicClient)(nil)
)
