package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler(nil)
	c, rec := newContext(http.MethodGet, "/health", nil, nil)

	if err := h.Liveness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealthHandler_Readiness(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name     string
		deps     map[string]Pinger
		wantCode int
		wantDown string
	}{
		{"all healthy", map[string]Pinger{"mongodb": ok, "redis": ok}, http.StatusOK, ""},
		{"redis down", map[string]Pinger{"mongodb": ok, "redis": down}, http.StatusServiceUnavailable, "redis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.deps)
			c, rec := newContext(http.MethodGet, "/health/ready", nil, nil)

			if err := h.Readiness(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}

			var resp readinessResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if tt.wantDown != "" && resp.Dependencies[tt.wantDown].Status != "unhealthy" {
				t.Fatalf("expected %s unhealthy, got %+v", tt.wantDown, resp.Dependencies)
			}
		})
	}
}
