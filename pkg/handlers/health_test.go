package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-reliability/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{Version: "test-version", Env: "test"}
}

func TestHealthHandler_Health(t *testing.T) {
	handler := NewHealthHandler(testConfig(), nil, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("expected body 'ok', got %q", rec.Body.String())
	}
}

func TestHealthHandler_Ping_AllDependenciesUp(t *testing.T) {
	checks := map[string]HealthCheck{
		"redis":    func(ctx context.Context) error { return nil },
		"postgres": func(ctx context.Context) error { return nil },
	}
	handler := NewHealthHandler(testConfig(), checks, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Ping(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response PingResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got %q", response.Status)
	}
	if response.Version != "test-version" {
		t.Errorf("expected version 'test-version', got %q", response.Version)
	}
	if response.Service != "ekaya-reliability" {
		t.Errorf("expected service 'ekaya-reliability', got %q", response.Service)
	}
	if len(response.Dependencies) != 2 || response.Dependencies[0].Name != "postgres" {
		t.Errorf("expected postgres and redis checks in name order, got %+v", response.Dependencies)
	}
}

func TestHealthHandler_Ping_DependencyDown(t *testing.T) {
	checks := map[string]HealthCheck{
		"postgres": func(ctx context.Context) error {
			return errors.New("failed to connect to postgres://ekaya:hunter2@db:5432/rel")
		},
	}
	handler := NewHealthHandler(testConfig(), checks, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Ping(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}

	var response PingResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Status != "degraded" {
		t.Errorf("expected status 'degraded', got %q", response.Status)
	}
	if response.Dependencies[0].Status != "unavailable" {
		t.Errorf("expected postgres unavailable, got %q", response.Dependencies[0].Status)
	}
	if strings.Contains(response.Dependencies[0].Error, "hunter2") {
		t.Errorf("password leaked in dependency error: %q", response.Dependencies[0].Error)
	}
}
