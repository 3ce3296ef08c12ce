package resilience

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/itsneelabh/agentctl/core"
)

// CircuitState represents the state of the circuit breaker.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned by Execute while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int           // consecutive failures before opening
	SleepWindow      time.Duration // how long to stay open before probing
	HalfOpenRequests int           // trial requests allowed while half-open
	Logger           core.Logger
}

// DefaultCircuitBreakerConfig returns production-ready defaults for wrapping
// a model API client call.
func DefaultCircuitBreakerConfig(name string) *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		SleepWindow:      30 * time.Second,
		HalfOpenRequests: 1,
		Logger:           &core.NoOpLogger{},
	}
}

// CircuitBreaker is a minimal consecutive-failure breaker: it opens after
// FailureThreshold consecutive failures, stays open for SleepWindow, then
// allows HalfOpenRequests trial calls through before closing or re-opening.
// Adapted from the teacher's resilience/circuit_breaker.go, trimmed from its
// sliding-window error-rate design to a simpler consecutive-failure count —
// the judge/planning/grounding calls this guards are low-volume enough that
// a rate-based window adds complexity without changing behavior.
type CircuitBreaker struct {
	config *CircuitBreakerConfig

	mu                sync.Mutex
	state             CircuitState
	consecutiveFails  int
	openedAt          time.Time
	halfOpenInFlight  int
}

// NewCircuitBreaker creates a circuit breaker with the given config. A nil
// config falls back to DefaultCircuitBreakerConfig("default").
func NewCircuitBreaker(config *CircuitBreakerConfig) *CircuitBreaker {
	if config == nil {
		config = DefaultCircuitBreakerConfig("default")
	}
	if config.Logger == nil {
		config.Logger = &core.NoOpLogger{}
	}
	return &CircuitBreaker{config: config, state: StateClosed}
}

// Allow reports whether a call should be let through right now, transitioning
// Open -> HalfOpen once the sleep window has elapsed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.openedAt) >= cb.config.SleepWindow {
			cb.transition(StateHalfOpen)
			cb.halfOpenInFlight = 1
			return true
		}
		return false
	case StateHalfOpen:
		if cb.halfOpenInFlight < cb.config.HalfOpenRequests {
			cb.halfOpenInFlight++
			return true
		}
		return false
	default:
		return false
	}
}

// RecordResult updates the breaker's state after a guarded call completes.
func (cb *CircuitBreaker) RecordResult(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.consecutiveFails = 0
		if cb.state == StateHalfOpen {
			cb.transition(StateClosed)
		}
		return
	}

	cb.consecutiveFails++
	switch cb.state {
	case StateHalfOpen:
		cb.transition(StateOpen)
		cb.openedAt = time.Now()
	case StateClosed:
		if cb.consecutiveFails >= cb.config.FailureThreshold {
			cb.transition(StateOpen)
			cb.openedAt = time.Now()
		}
	}
}

func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	cb.state = to
	cb.halfOpenInFlight = 0
	if from != to {
		cb.config.Logger.Info("circuit breaker state change", map[string]interface{}{
			"name": cb.config.Name,
			"from": from.String(),
			"to":   to.String(),
		})
	}
}

// State returns the current state, for diagnostics/tests.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute runs fn if the breaker currently allows it, and records the
// outcome. Returns ErrCircuitOpen without calling fn if the breaker is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.Allow() {
		return fmt.Errorf("%s: %w", cb.config.Name, ErrCircuitOpen)
	}
	err := fn()
	cb.RecordResult(err)
	return err
}
