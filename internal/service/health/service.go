package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/internal/infrastructure/circuitbreaker"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// CheckResult represents the result of a health check
type CheckResult struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"duration_ms"`
	Timestamp time.Time     `json:"timestamp"`
}

// HealthResponse represents the overall health response
type HealthResponse struct {
	Status      Status    `json:"status"`
	Version     string    `json:"version,omitempty"`
	Uptime      string    `json:"uptime,omitempty"`
	ActiveCalls int       `json:"active_calls"`
	Timestamp   time.Time `json:"timestamp"`
}

// ReadyResponse represents the readiness response
type ReadyResponse struct {
	Ready     bool                           `json:"ready"`
	Status    Status                         `json:"status"`
	Timestamp time.Time                      `json:"timestamp"`
	Checks    map[string]CheckResult         `json:"checks"`
	Breakers  []circuitbreaker.BreakerStatus `json:"breakers,omitempty"`
}

// Checker defines a health check function
type Checker func(ctx context.Context) CheckResult

// Service handles health checks
type Service struct {
	startTime   time.Time
	version     string
	checkers    map[string]Checker
	breakers    *circuitbreaker.Manager
	activeCalls func() int
	log         *zap.Logger
	mu          sync.RWMutex
}

// Config holds health service configuration
type Config struct {
	Version     string
	Breakers    *circuitbreaker.Manager
	ActiveCalls func() int
}

// NewService creates a new health service
func NewService(config *Config, log *zap.Logger) *Service {
	return &Service{
		startTime:   time.Now(),
		version:     config.Version,
		checkers:    make(map[string]Checker),
		breakers:    config.Breakers,
		activeCalls: config.ActiveCalls,
		log:         log,
	}
}

// RegisterChecker registers a custom health checker
func (s *Service) RegisterChecker(name string, checker Checker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[name] = checker
	s.log.Info("Registered health checker", zap.String("name", name))
}

// RegisterPing adapts a plain error-returning probe. Failing probes mark the
// service unhealthy, unless critical is false, in which case they only degrade it.
func (s *Service) RegisterPing(name string, critical bool, ping func(ctx context.Context) error) {
	s.RegisterChecker(name, func(ctx context.Context) CheckResult {
		start := time.Now()
		result := CheckResult{Name: name, Timestamp: start}

		err := ping(ctx)
		result.Duration = time.Since(start)

		switch {
		case err == nil:
			result.Status = StatusHealthy
			result.Message = "ok"
		case critical:
			result.Status = StatusUnhealthy
			result.Message = fmt.Sprintf("check failed: %v", err)
			s.log.Warn("Health check failed", zap.String("name", name), zap.Error(err))
		default:
			result.Status = StatusDegraded
			result.Message = fmt.Sprintf("check failed: %v", err)
			s.log.Warn("Health check degraded", zap.String("name", name), zap.Error(err))
		}
		return result
	})
}

// Health performs a basic liveness check
func (s *Service) Health(ctx context.Context) *HealthResponse {
	resp := &HealthResponse{
		Status:    StatusHealthy,
		Version:   s.version,
		Uptime:    time.Since(s.startTime).String(),
		Timestamp: time.Now(),
	}
	if s.activeCalls != nil {
		resp.ActiveCalls = s.activeCalls()
	}
	return resp
}

// Ready performs a comprehensive readiness check
func (s *Service) Ready(ctx context.Context) *ReadyResponse {
	s.mu.RLock()
	checkers := make(map[string]Checker, len(s.checkers))
	for k, v := range s.checkers {
		checkers[k] = v
	}
	s.mu.RUnlock()

	// Run all checks concurrently
	results := make(map[string]CheckResult)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, checker := range checkers {
		wg.Add(1)
		go func(name string, checker Checker) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			result := checker(checkCtx)

			mu.Lock()
			results[name] = result
			mu.Unlock()
		}(name, checker)
	}

	wg.Wait()

	overallStatus := StatusHealthy
	allReady := true

	for _, result := range results {
		if result.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
			allReady = false
		} else if result.Status == StatusDegraded && overallStatus != StatusUnhealthy {
			overallStatus = StatusDegraded
		}
	}

	// An open breaker degrades readiness but does not fail it.
	breakers := s.breakers.Status()
	for _, b := range breakers {
		if b.State == "open" && overallStatus == StatusHealthy {
			overallStatus = StatusDegraded
		}
	}

	return &ReadyResponse{
		Ready:     allReady,
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    results,
		Breakers:  breakers,
	}
}
