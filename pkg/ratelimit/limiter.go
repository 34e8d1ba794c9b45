// Package ratelimit bounds calls into the AI suggestion path.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	hourWindow = time.Hour
	dayWindow  = 24 * time.Hour
)

// CounterStore is a shared counter store. Implementations must make Incr and
// IncrFloat atomic across every caller sharing the store.
type CounterStore interface {
	// Incr adds one to key, setting it to expire after ttl, and returns the new value.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// IncrFloat adds delta to key, setting it to expire after ttl, and returns the new value.
	IncrFloat(ctx context.Context, key string, delta float64, ttl time.Duration) (float64, error)
	// GetFloat returns the value of key, or 0 if it does not exist.
	GetFloat(ctx context.Context, key string) (float64, error)
	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// Config holds the limits. Zero limits mean unlimited.
type Config struct {
	HourlyLimit    int
	DailyCostLimit float64
	// EnforceHourly turns hourly limiting on. When false every TryAcquire succeeds.
	EnforceHourly bool
}

// Observer receives limiter decisions. Implemented by the metrics package.
type Observer interface {
	RateLimitDecision(service string, allowed bool)
}

// Limiter enforces an hourly call budget and a daily cost ceiling per service.
type Limiter struct {
	store    CounterStore
	cfg      Config
	observer Observer
	now      func() time.Time
	logger   *zap.Logger
}

// NewLimiter creates a Limiter over store.
func NewLimiter(store CounterStore, cfg Config, logger *zap.Logger) *Limiter {
	return &Limiter{
		store:  store,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.Named("rate-limiter"),
	}
}

// WithObserver attaches an observer and returns the limiter.
func (l *Limiter) WithObserver(o Observer) *Limiter {
	l.observer = o
	return l
}

// Config returns the limits in force.
func (l *Limiter) Config() Config {
	return l.cfg
}

// HourlyKey returns the counter key for service in the hour containing t.
func HourlyKey(service string, t time.Time) string {
	return fmt.Sprintf("rate_limit_%s_%s", service, t.UTC().Format("2006-01-02-15"))
}

// DailyCostKey returns the spend key for service on the day containing t.
func DailyCostKey(service string, t time.Time) string {
	return fmt.Sprintf("daily_cost_%s_%s", service, t.UTC().Format("2006-01-02"))
}

// TryAcquire takes one call from the current hourly bucket of service.
// It increments first and compares after, so concurrent callers never overshoot.
// Store failures deny the call.
func (l *Limiter) TryAcquire(ctx context.Context, service string) bool {
	allowed := l.tryAcquire(ctx, service)
	if l.observer != nil {
		l.observer.RateLimitDecision(service, allowed)
	}
	return allowed
}

func (l *Limiter) tryAcquire(ctx context.Context, service string) bool {
	if !l.cfg.EnforceHourly || l.cfg.HourlyLimit == 0 {
		return true
	}

	key := HourlyKey(service, l.now())
	n, err := l.store.Incr(ctx, key, hourWindow)
	if err != nil {
		l.logger.Error("Failed to increment rate limit counter",
			zap.String("service", service),
			zap.String("key", key),
			zap.Error(err))
		return false
	}

	if n > int64(l.cfg.HourlyLimit) {
		l.logger.Debug("Hourly limit reached",
			zap.String("service", service),
			zap.Int64("count", n),
			zap.Int("limit", l.cfg.HourlyLimit))
		return false
	}
	return true
}

// CheckDailyCost reports whether currentSpend is still below limit. A zero limit is unlimited.
func CheckDailyCost(currentSpend, limit float64) bool {
	if limit == 0 {
		return true
	}
	return currentSpend < limit
}

// DailyCostAllowed reads today's spend for service and checks it against the limit.
func (l *Limiter) DailyCostAllowed(ctx context.Context, service string) (bool, error) {
	if l.cfg.DailyCostLimit == 0 {
		return true, nil
	}
	spend, err := l.store.GetFloat(ctx, DailyCostKey(service, l.now()))
	if err != nil {
		return false, fmt.Errorf("failed to read daily spend: %w", err)
	}
	return CheckDailyCost(spend, l.cfg.DailyCostLimit), nil
}

// RecordCost adds cost to today's spend for service.
func (l *Limiter) RecordCost(ctx context.Context, service string, cost float64) error {
	if cost <= 0 {
		return nil
	}
	if _, err := l.store.IncrFloat(ctx, DailyCostKey(service, l.now()), cost, dayWindow); err != nil {
		return fmt.Errorf("failed to record spend: %w", err)
	}
	return nil
}

// Usage is the state of one service's budgets. Remaining is -1 when the
// hourly limit is not enforced.
type Usage struct {
	Service    string  `json:"service"`
	Current    int64   `json:"current"`
	Limit      int     `json:"limit"`
	Remaining  int64   `json:"remaining"`
	DailySpend float64 `json:"daily_spend"`
	DailyLimit float64 `json:"daily_limit"`
}

// Usage reads the current hour's call count and today's spend for service.
// Denied calls are counted, so Current may exceed Limit.
func (l *Limiter) Usage(ctx context.Context, service string) (*Usage, error) {
	now := l.now()
	calls, err := l.store.GetFloat(ctx, HourlyKey(service, now))
	if err != nil {
		return nil, fmt.Errorf("failed to read hourly count: %w", err)
	}
	spend, err := l.store.GetFloat(ctx, DailyCostKey(service, now))
	if err != nil {
		return nil, fmt.Errorf("failed to read daily spend: %w", err)
	}

	u := &Usage{
		Service:    service,
		Current:    int64(calls),
		Limit:      l.cfg.HourlyLimit,
		Remaining:  -1,
		DailySpend: spend,
		DailyLimit: l.cfg.DailyCostLimit,
	}
	if l.cfg.EnforceHourly && l.cfg.HourlyLimit > 0 {
		u.Remaining = max(0, int64(l.cfg.HourlyLimit)-u.Current)
	}
	return u, nil
}

// CombinedUsage sums Usage across services. Limits add up per service.
func (l *Limiter) CombinedUsage(ctx context.Context, services ...string) (*Usage, error) {
	total := &Usage{Service: "combined", Remaining: -1}
	for _, service := range services {
		u, err := l.Usage(ctx, service)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", service, err)
		}
		total.Current += u.Current
		total.Limit += u.Limit
		total.DailySpend += u.DailySpend
		total.DailyLimit += u.DailyLimit
	}
	if l.cfg.EnforceHourly && total.Limit > 0 {
		total.Remaining = max(0, int64(total.Limit)-total.Current)
	}
	return total, nil
}

// Reset clears the current hour's call count for service. Today's spend is kept.
func (l *Limiter) Reset(ctx context.Context, service string) error {
	key := HourlyKey(service, l.now())
	if err := l.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to reset %s: %w", key, err)
	}
	l.logger.Info("Hourly usage reset", zap.String("service", service))
	return nil
}
