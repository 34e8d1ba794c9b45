package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-reliability/pkg/logging"
	"github.com/ekaya-inc/ekaya-reliability/pkg/retry"
)

const suggestionTemperature = 0.2

// Client provides suggestions from an OpenAI-compatible chat completions endpoint.
type Client struct {
	client   *openai.Client
	endpoint string
	model    string
	retry    *retry.Config
	logger   *zap.Logger
}

// Config holds configuration for creating an OpenAI-compatible client.
type Config struct {
	Endpoint string // Base URL, e.g., "https://api.openai.com/v1"
	Model    string // Model name, e.g., "gpt-4o-mini"
	APIKey   string // Optional for local endpoints
}

// NewClient creates a new OpenAI-compatible suggestion client.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")

	return &Client{
		client:   openai.NewClientWithConfig(clientConfig),
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		retry:    suggestionRetryConfig(),
		logger:   logger.Named("llm"),
	}, nil
}

// suggestionRetryConfig allows one quick retry; the caller's timeout bounds the total.
func suggestionRetryConfig() *retry.Config {
	return &retry.Config{
		MaxRetries:       1,
		InitialDelay:     200 * time.Millisecond,
		MaxDelay:         time.Second,
		Multiplier:       2,
		JitterFactor:     0.1,
		MaxSameErrorType: 2,
	}
}

// Suggest asks the model for improvements to the weakest fields in req.
func (c *Client) Suggest(ctx context.Context, req *SuggestionRequest) ([]Suggestion, error) {
	prompt := BuildSuggestionPrompt(req)

	c.logger.Debug("Suggestion request",
		zap.String("model", c.model),
		zap.String("record_model", req.Model),
		zap.Int("prompt_len", len(prompt)))

	start := time.Now()
	var resp openai.ChatCompletionResponse
	err := retry.DoIfRetryable(ctx, c.retry, func() error {
		var err error
		resp, err = c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: suggestionSystemMessage},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: suggestionTemperature,
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

	if len(resp.Choices) == 0 {
		return nil, NewError(ErrorTypeResponse, "no choices in response", false, nil)
	}

	c.logger.Debug("Suggestion request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return ParseSuggestions(resp.Choices[0].Message.Content, req)
}

func (c *Client) Provider() string {
	return "openai"
}

// GetModel returns the configured model name.
func (c *Client) GetModel() string {
	return c.model
}

// GetEndpoint returns the configured endpoint.
func (c *Client) GetEndpoint() string {
	return c.endpoint
}
