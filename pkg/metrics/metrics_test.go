package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcpserver "github.com/ekaya-inc/ekaya-reliability/pkg/mcp"
	"github.com/ekaya-inc/ekaya-reliability/pkg/models"
	"github.com/ekaya-inc/ekaya-reliability/pkg/ratelimit"
	"github.com/ekaya-inc/ekaya-reliability/pkg/services"
)

var (
	_ services.Observer      = (*Metrics)(nil)
	_ ratelimit.Observer     = (*Metrics)(nil)
	_ mcpserver.ToolObserver = (*Metrics)(nil)
)

func TestMetrics_RecordsObservations(t *testing.T) {
	m := New()

	m.ScoreComputed("Products", true, 62.5)
	m.ScoreComputed("Products", false, 80)
	m.ScoreChangeRecorded("Products", models.ChangeInitial)
	m.ChecksumVerified(true)
	m.ChecksumVerified(false)
	m.ChecksumVerified(false)
	m.SuggestionOutcome("rate_limited")
	m.RateLimitDecision("ai_suggestions", false)
	m.ObserveRequest("POST", "POST /score", 200, 15*time.Millisecond)
	m.ObserveToolCall("score_content", "tool_error", 3*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.scoresComputed.WithLabelValues("Products", "provisional")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scoresComputed.WithLabelValues("Products", "recorded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.changesRecorded.WithLabelValues("Products", "initial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checksumChecks.WithLabelValues("valid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.checksumChecks.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.suggestions.WithLabelValues("rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimitDecision.WithLabelValues("ai_suggestions", "denied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "POST /score", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("score_content", "tool_error")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ScoreComputed("Products", true, 10)
		m.ScoreChangeRecorded("Products", models.ChangeNone)
		m.ChecksumVerified(true)
		m.SuggestionOutcome("ok")
		m.RateLimitDecision("ai_suggestions", true)
		m.ObserveRequest("GET", "GET /ping", 200, time.Millisecond)
		m.ObserveToolCall("health", "ok", time.Millisecond)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ChecksumVerified(true)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `ekaya_reliability_audit_checksum_verifications_total{result="valid"} 1`))
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}

func TestNew_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		_ = New()
		_ = New()
	})
}
