package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/voxa-cobranza/pkg/config"
)

func TestReadyAggregatesChecks(t *testing.T) {
	tests := []struct {
		name       string
		cacheErr   error
		ttsErr     error
		wantReady  bool
		wantStatus Status
	}{
		{"all healthy", nil, nil, true, StatusHealthy},
		{"tts down degrades", nil, errors.New("connection refused"), true, StatusDegraded},
		{"cache down", errors.New("timeout"), nil, false, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(&Config{Version: "test"}, zap.NewNop())
			s.RegisterPing("cache", true, func(ctx context.Context) error { return tt.cacheErr })
			s.RegisterPing("coqui", false, func(ctx context.Context) error { return tt.ttsErr })

			resp := s.Ready(context.Background())
			if resp.Ready != tt.wantReady {
				t.Errorf("Ready = %v, want %v", resp.Ready, tt.wantReady)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", resp.Status, tt.wantStatus)
			}
			if len(resp.Checks) != 2 {
				t.Errorf("expected 2 checks, got %d", len(resp.Checks))
			}
		})
	}
}

func TestReadyDegradedByOpenBreaker(t *testing.T) {
	manager := circuitbreaker.NewManager(config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		FailureThreshold: 1,
	}, zap.NewNop())
	cb := manager.Get("openai")
	_, _ = cb.Execute(func() (interface{}, error) { return nil, errors.New("boom") })

	s := NewService(&Config{Breakers: manager}, zap.NewNop())
	resp := s.Ready(context.Background())
	if !resp.Ready || resp.Status != StatusDegraded {
		t.Errorf("expected ready and degraded, got ready=%v status=%s", resp.Ready, resp.Status)
	}
	if len(resp.Breakers) != 1 || resp.Breakers[0].State != "open" {
		t.Errorf("unexpected breakers %+v", resp.Breakers)
	}
}

func TestFiberRoutes(t *testing.T) {
	s := NewService(&Config{Version: "1.0.0", ActiveCalls: func() int { return 3 }}, zap.NewNop())
	s.RegisterPing("cache", true, func(ctx context.Context) error { return errors.New("down") })

	app := fiber.New()
	NewFiberHandler(s).RegisterRoutes(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/live", nil))
	if err != nil {
		t.Fatalf("live request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("live status = %d", resp.StatusCode)
	}
	var live HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&live); err != nil {
		t.Fatalf("decode live: %v", err)
	}
	if live.ActiveCalls != 3 || live.Version != "1.0.0" {
		t.Errorf("unexpected live body %+v", live)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/health/ready", nil))
	if err != nil {
		t.Fatalf("ready request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want 503", resp.StatusCode)
	}
}

func TestRequireReady(t *testing.T) {
	down := errors.New("down")
	var cacheErr error
	s := NewService(&Config{}, zap.NewNop())
	s.RegisterPing("cache", true, func(ctx context.Context) error { return cacheErr })

	app := fiber.New()
	app.Post("/dial", NewFiberHandler(s).RequireReady(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusAccepted)
	})

	resp, _ := app.Test(httptest.NewRequest("POST", "/dial", nil))
	if resp.StatusCode != fiber.StatusAccepted {
		t.Errorf("ready status = %d", resp.StatusCode)
	}

	cacheErr = down
	resp, _ = app.Test(httptest.NewRequest("POST", "/dial", nil))
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Errorf("not ready status = %d, want 503", resp.StatusCode)
	}
}
