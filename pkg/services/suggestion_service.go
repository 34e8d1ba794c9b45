package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-reliability/pkg/llm"
)

// SuggestionStatus reports what happened to the optional suggestion call.
type SuggestionStatus string

const (
	SuggestionsOK          SuggestionStatus = "ok"
	SuggestionsRateLimited SuggestionStatus = "rate_limited"
	SuggestionsCostLimited SuggestionStatus = "cost_limited"
	SuggestionsUnavailable SuggestionStatus = "unavailable"
	SuggestionsTimeout     SuggestionStatus = "timeout"
	SuggestionsDisabled    SuggestionStatus = "disabled"
)

// SuggestionLimiterService is the counter name the suggestion path is limited under.
const SuggestionLimiterService = "ai_suggestions"

// SuggestionLimiter gates upstream suggestion calls. *ratelimit.Limiter implements it.
type SuggestionLimiter interface {
	TryAcquire(ctx context.Context, service string) bool
	DailyCostAllowed(ctx context.Context, service string) (bool, error)
	RecordCost(ctx context.Context, service string, cost float64) error
}

// SuggestionResult is the outcome of one suggestion attempt.
type SuggestionResult struct {
	Suggestions []llm.Suggestion
	Status      SuggestionStatus
}

// SuggestionService fetches best-effort improvement suggestions. It never
// fails: every problem degrades to a status without suggestions.
type SuggestionService interface {
	Suggest(ctx context.Context, req *llm.SuggestionRequest) SuggestionResult
}

// SuggestionConfig bounds the upstream call.
type SuggestionConfig struct {
	Timeout           time.Duration
	CostPerSuggestion float64
}

type suggestionService struct {
	client   llm.SuggestionClient
	limiter  SuggestionLimiter
	breaker  *llm.CircuitBreaker
	cfg      SuggestionConfig
	observer Observer
	logger   *zap.Logger
}

// NewSuggestionService creates a SuggestionService. A nil client disables suggestions.
func NewSuggestionService(
	client llm.SuggestionClient,
	limiter SuggestionLimiter,
	breaker *llm.CircuitBreaker,
	cfg SuggestionConfig,
	observer Observer,
	logger *zap.Logger,
) SuggestionService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if breaker == nil {
		breaker = llm.NewCircuitBreaker(llm.DefaultCircuitBreakerConfig())
	}
	if observer == nil {
		observer = NoopObserver{}
	}
	return &suggestionService{
		client:   client,
		limiter:  limiter,
		breaker:  breaker,
		cfg:      cfg,
		observer: observer,
		logger:   logger.Named("suggestion-service"),
	}
}

var _ SuggestionService = (*suggestionService)(nil)

func (s *suggestionService) Suggest(ctx context.Context, req *llm.SuggestionRequest) SuggestionResult {
	result := s.suggest(ctx, req)
	s.observer.SuggestionOutcome(string(result.Status))
	return result
}

func (s *suggestionService) suggest(ctx context.Context, req *llm.SuggestionRequest) SuggestionResult {
	if s.client == nil {
		return SuggestionResult{Status: SuggestionsDisabled}
	}

	if s.limiter != nil {
		if !s.limiter.TryAcquire(ctx, SuggestionLimiterService) {
			return SuggestionResult{Status: SuggestionsRateLimited}
		}

		allowed, err := s.limiter.DailyCostAllowed(ctx, SuggestionLimiterService)
		if err != nil {
			s.logger.Warn("Daily cost check failed, skipping suggestions", zap.Error(err))
			return SuggestionResult{Status: SuggestionsCostLimited}
		}
		if !allowed {
			return SuggestionResult{Status: SuggestionsCostLimited}
		}
	}

	if err := s.breaker.Allow(); err != nil {
		s.logger.Debug("Suggestion provider circuit open", zap.Error(err))
		return SuggestionResult{Status: SuggestionsUnavailable}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	type outcome struct {
		suggestions []llm.Suggestion
		err         error
	}
	done := make(chan outcome, 1)
	go func() {
		sugg, err := s.client.Suggest(callCtx, req)
		done <- outcome{sugg, err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-callCtx.Done():
		out = outcome{err: callCtx.Err()}
	}

	s.recordCost(ctx)

	if out.err != nil {
		var llmErr *llm.Error
		if !errors.As(out.err, &llmErr) || llmErr.Type != llm.ErrorTypeResponse {
			s.breaker.RecordFailure()
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			s.logger.Warn("Suggestion request timed out",
				zap.String("model", req.Model),
				zap.Duration("timeout", s.cfg.Timeout))
			return SuggestionResult{Status: SuggestionsTimeout}
		}
		s.logger.Warn("Suggestion request failed",
			zap.String("model", req.Model),
			zap.String("provider", s.client.Provider()),
			zap.Error(out.err))
		return SuggestionResult{Status: SuggestionsUnavailable}
	}

	s.breaker.RecordSuccess()
	return SuggestionResult{Suggestions: out.suggestions, Status: SuggestionsOK}
}

func (s *suggestionService) recordCost(ctx context.Context) {
	if s.limiter == nil || s.cfg.CostPerSuggestion <= 0 {
		return
	}
	if err := s.limiter.RecordCost(ctx, SuggestionLimiterService, s.cfg.CostPerSuggestion); err != nil {
		s.logger.Warn("Failed to record suggestion cost", zap.Error(err))
	}
}
