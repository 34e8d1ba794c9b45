package handlers

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-reliability/pkg/config"
	"github.com/ekaya-inc/ekaya-reliability/pkg/logging"
)

// pingCheckTimeout bounds each dependency check made by /ping.
const pingCheckTimeout = 2 * time.Second

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// DependencyStatus is the result of one HealthCheck.
type DependencyStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// PingResponse contains service status and version information.
type PingResponse struct {
	Status       string             `json:"status"`
	Version      string             `json:"version"`
	Service      string             `json:"service"`
	GoVersion    string             `json:"go_version"`
	Hostname     string             `json:"hostname"`
	Environment  string             `json:"environment"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg    *config.Config
	checks map[string]HealthCheck
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. checks are keyed by dependency
// name, e.g. "postgres" or "redis".
func NewHealthHandler(cfg *config.Config, checks map[string]HealthCheck, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, checks: checks, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health requests.
// Returns a simple "ok" status for load balancer health checks.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping requests.
// Returns service information and the reachability of every dependency.
// Responds 503 when any dependency is down.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:       "ok",
		Version:      h.cfg.Version,
		Service:      "ekaya-reliability",
		GoVersion:    runtime.Version(),
		Hostname:     hostname,
		Environment:  h.cfg.Env,
		Dependencies: h.runChecks(r.Context()),
	}

	status := http.StatusOK
	for _, d := range response.Dependencies {
		if d.Status != "ok" {
			response.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	if err := WriteJSON(w, status, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}

func (h *HealthHandler) runChecks(ctx context.Context) []DependencyStatus {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]DependencyStatus, 0, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, pingCheckTimeout)
		err := h.checks[name](checkCtx)
		cancel()

		d := DependencyStatus{Name: name, Status: "ok"}
		if err != nil {
			d.Status = "unavailable"
			d.Error = logging.SanitizeError(err)
			h.logger.Warn("Dependency check failed",
				zap.String("dependency", name),
				zap.String("error", d.Error))
		}
		out = append(out, d)
	}
	return out
}
