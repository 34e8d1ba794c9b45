package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-reliability/pkg/ratelimit"
)

// RateLimitUsage reads and resets per-service budgets. *ratelimit.Limiter implements it.
type RateLimitUsage interface {
	Usage(ctx context.Context, service string) (*ratelimit.Usage, error)
	Reset(ctx context.Context, service string) error
}

// RateLimitResponse wraps one service's usage.
type RateLimitResponse struct {
	Success bool             `json:"success"`
	Usage   *ratelimit.Usage `json:"usage"`
}

// RateLimitHandler exposes the limiter's counters.
type RateLimitHandler struct {
	limiter RateLimitUsage
	logger  *zap.Logger
}

// NewRateLimitHandler creates a new RateLimitHandler.
func NewRateLimitHandler(limiter RateLimitUsage, logger *zap.Logger) *RateLimitHandler {
	return &RateLimitHandler{limiter: limiter, logger: logger}
}

// RegisterRoutes registers the rate limit routes on the given mux.
func (h *RateLimitHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /rate-limits/{service}", h.Usage)
	mux.HandleFunc("POST /rate-limits/{service}/reset", h.Reset)
}

// Usage handles GET /rate-limits/{service}
func (h *RateLimitHandler) Usage(w http.ResponseWriter, r *http.Request) {
	service := r.PathValue("service")

	usage, err := h.limiter.Usage(r.Context(), service)
	if err != nil {
		writeServiceError(w, err, h.logger, "Failed to read rate limit usage", zap.String("service", service))
		return
	}

	if err := WriteJSON(w, http.StatusOK, RateLimitResponse{Success: true, Usage: usage}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Reset handles POST /rate-limits/{service}/reset and returns the usage after the reset.
func (h *RateLimitHandler) Reset(w http.ResponseWriter, r *http.Request) {
	service := r.PathValue("service")

	if err := h.limiter.Reset(r.Context(), service); err != nil {
		writeServiceError(w, err, h.logger, "Failed to reset rate limit", zap.String("service", service))
		return
	}
	h.Usage(w, r)
}
