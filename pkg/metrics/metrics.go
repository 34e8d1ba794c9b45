// Package metrics exports scoring, verification, limiter and HTTP metrics
// to prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ekaya-inc/ekaya-reliability/pkg/models"
)

const namespace = "ekaya_reliability"

// Metrics holds every collector. A nil *Metrics discards all observations,
// which is how enable_metrics=false is implemented.
type Metrics struct {
	registry *prometheus.Registry

	scoresComputed    *prometheus.CounterVec
	totalScore        *prometheus.HistogramVec
	changesRecorded   *prometheus.CounterVec
	checksumChecks    *prometheus.CounterVec
	suggestions       *prometheus.CounterVec
	rateLimitDecision *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	toolCalls         *prometheus.CounterVec
	toolDuration      *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Labels: model, kind (provisional, recorded)
		scoresComputed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "scores_total",
			Help:      "Scores computed by kind",
		}, []string{"model", "kind"}),

		totalScore: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "total_score",
			Help:      "Distribution of computed total scores (0..100)",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 75, 80, 90, 95, 100},
		}, []string{"model"}),

		// Labels: model, change_type (initial, improvement, degradation, no_change)
		changesRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "changes_total",
			Help:      "Score changes appended to the reliability log",
		}, []string{"model", "change_type"}),

		// Labels: result (valid, invalid)
		checksumChecks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "checksum_verifications_total",
			Help:      "Checksum verifications by result",
		}, []string{"result"}),

		// Labels: status (ok, rate_limited, cost_limited, unavailable, timeout, disabled)
		suggestions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "suggestions",
			Name:      "requests_total",
			Help:      "Suggestion attempts by outcome",
		}, []string{"status"}),

		// Labels: service, decision (allowed, denied)
		rateLimitDecision: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Rate limiter decisions by service",
		}, []string{"service", "decision"}),

		// Labels: method, route, status
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),

		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		// Labels: tool, outcome (ok, tool_error, error)
		toolCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mcp",
			Name:      "tool_calls_total",
			Help:      "MCP tool calls by outcome",
		}, []string{"tool", "outcome"}),

		toolDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mcp",
			Name:      "tool_call_duration_seconds",
			Help:      "MCP tool call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ScoreComputed implements services.Observer.
func (m *Metrics) ScoreComputed(model string, provisional bool, total float64) {
	if m == nil {
		return
	}
	kind := "recorded"
	if provisional {
		kind = "provisional"
	}
	m.scoresComputed.WithLabelValues(model, kind).Inc()
	m.totalScore.WithLabelValues(model).Observe(total)
}

// ScoreChangeRecorded implements services.Observer.
func (m *Metrics) ScoreChangeRecorded(model string, change models.ChangeType) {
	if m == nil {
		return
	}
	m.changesRecorded.WithLabelValues(model, string(change)).Inc()
}

// ChecksumVerified implements services.Observer.
func (m *Metrics) ChecksumVerified(valid bool) {
	if m == nil {
		return
	}
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.checksumChecks.WithLabelValues(result).Inc()
}

// SuggestionOutcome implements services.Observer.
func (m *Metrics) SuggestionOutcome(status string) {
	if m == nil {
		return
	}
	m.suggestions.WithLabelValues(status).Inc()
}

// RateLimitDecision implements ratelimit.Observer.
func (m *Metrics) RateLimitDecision(service string, allowed bool) {
	if m == nil {
		return
	}
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	m.rateLimitDecision.WithLabelValues(service, decision).Inc()
}

// ObserveRequest implements middleware.RequestObserver.
func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveToolCall implements mcp.ToolObserver.
func (m *Metrics) ObserveToolCall(tool, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}
