package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-reliability/pkg/logging"
	"github.com/ekaya-inc/ekaya-reliability/pkg/retry"
)

// AnthropicClient provides suggestions from the Anthropic Messages API.
type AnthropicClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	retry     *retry.Config
	logger    *zap.Logger
}

// AnthropicConfig holds configuration for creating an AnthropicClient.
type AnthropicConfig struct {
	BaseURL   string // Optional; empty uses the public API
	Model     string
	APIKey    string
	MaxTokens int
}

// NewAnthropicClient creates a new Anthropic suggestion client.
func NewAnthropicClient(cfg *AnthropicConfig, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(cfg.APIKey, opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
		retry:     suggestionRetryConfig(),
		logger:    logger.Named("llm"),
	}, nil
}

// Suggest asks the model for improvements to the weakest fields in req.
func (c *AnthropicClient) Suggest(ctx context.Context, req *SuggestionRequest) ([]Suggestion, error) {
	prompt := BuildSuggestionPrompt(req)

	start := time.Now()
	var resp anthropic.MessagesResponse
	err := retry.DoIfRetryable(ctx, c.retry, func() error {
		var err error
		resp, err = c.client.CreateMessages(ctx, anthropic.MessagesRequest{
			Model:     anthropic.Model(c.model),
			MaxTokens: c.maxTokens,
			System:    suggestionSystemMessage,
			Messages: []anthropic.Message{
				{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
					{Type: "text", Text: &prompt},
				}},
			},
		})
		if err != nil {
			return ClassifyError(err, c.model)
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("Suggestion request failed",
			zap.Duration("elapsed", time.Since(start)),
			logging.Error(err))
		return nil, ClassifyError(err, c.model)
	}

	text := textFromMessages(resp)
	if text == "" {
		return nil, NewError(ErrorTypeResponse, "no text in response", false, nil)
	}

	c.logger.Debug("Suggestion request completed",
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return ParseSuggestions(text, req)
}

func textFromMessages(resp anthropic.MessagesResponse) string {
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			return *block.Text
		}
	}
	return ""
}

func (c *AnthropicClient) Provider() string {
	return "anthropic"
}

// GetModel returns the configured model name.
func (c *AnthropicClient) GetModel() string {
	return c.model
}
