package circuitbreaker

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/pkg/config"
)

// IsCircuitOpen reports whether err was returned because the breaker refused the call.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// Settings builds gobreaker settings from configuration. A failure threshold of
// zero falls back to five consecutive failures.
func Settings(name string, cfg config.CircuitBreakerConfig, log *zap.Logger) gobreaker.Settings {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
}

// Manager hands out one breaker per collaborator.
type Manager struct {
	cfg      config.CircuitBreakerConfig
	breakers map[string]*gobreaker.CircuitBreaker
	mu       sync.Mutex
	log      *zap.Logger
}

func NewManager(cfg config.CircuitBreakerConfig, log *zap.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		log:      log,
	}
}

// Get returns the named breaker, creating it on first use. With breakers
// disabled it returns nil and callers run unprotected.
func (m *Manager) Get(name string) *gobreaker.CircuitBreaker {
	if m == nil || !m.cfg.Enabled {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if cb, ok := m.breakers[name]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(Settings(name, m.cfg, m.log))
	m.breakers[name] = cb
	return cb
}

type BreakerStatus struct {
	Name                string `json:"name"`
	State               string `json:"state"`
	ConsecutiveFailures uint32 `json:"consecutive_failures"`
}

// Status lists every breaker created so far, sorted by name.
func (m *Manager) Status() []BreakerStatus {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]BreakerStatus, 0, len(m.breakers))
	for name, cb := range m.breakers {
		out = append(out, BreakerStatus{
			Name:                name,
			State:               cb.State().String(),
			ConsecutiveFailures: cb.Counts().ConsecutiveFailures,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
