package llm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-reliability/pkg/config"
)

const defaultOpenAIEndpoint = "https://api.openai.com/v1"

// NewSuggestionClient builds the provider selected by cfg.
// Returns nil, nil when no provider is configured.
func NewSuggestionClient(cfg *config.AIConfig, logger *zap.Logger) (SuggestionClient, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "none":
		return nil, nil
	case "openai":
		endpoint := cfg.BaseURL
		if endpoint == "" {
			endpoint = defaultOpenAIEndpoint
		}
		return NewClient(&Config{
			Endpoint: endpoint,
			Model:    cfg.Model,
			APIKey:   cfg.APIKey,
		}, logger)
	case "anthropic":
		return NewAnthropicClient(&AnthropicConfig{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			APIKey:    cfg.APIKey,
			MaxTokens: cfg.MaxTokens,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}
