package datasource

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/f1-winner/internal/metrics"
)

// CircuitState represents the state of the circuit breaker
type CircuitState int

const (
	// CircuitClosed means requests flow normally
	CircuitClosed CircuitState = iota
	// CircuitHalfOpen lets one probe request through after the cooldown
	CircuitHalfOpen
	// CircuitOpen means requests fail fast
	CircuitOpen
)

// String returns string representation of circuit state
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "CLOSED"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	case CircuitOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreaker trips after a run of consecutive failures and fails fast until the cooldown passes
type CircuitBreaker struct {
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time
	logger      *logrus.Logger

	mu          sync.Mutex
	state       CircuitState
	failures    int
	openedAt    time.Time
	lastFailure error
}

// NewCircuitBreaker creates a closed circuit breaker
func NewCircuitBreaker(maxFailures int, cooldown time.Duration, logger *logrus.Logger) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 1
	}
	return &CircuitBreaker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
		logger:      logger,
	}
}

// Allow reports whether a request may be attempted, moving an expired open circuit to half-open
func (cb *CircuitBreaker) Allow() (bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen {
		if cb.now().Sub(cb.openedAt) < cb.cooldown {
			return false, cb.lastFailure
		}
		cb.state = CircuitHalfOpen
		cb.logger.Info("Data source circuit breaker half-open, probing")
	}
	return true, nil
}

// RecordSuccess closes the circuit
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != CircuitClosed {
		cb.logger.Info("Data source circuit breaker closed")
	}
	cb.state = CircuitClosed
	cb.failures = 0
}

// RecordFailure counts a failure and opens the circuit at the threshold or on a failed probe
func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = err
	if cb.state == CircuitHalfOpen || cb.failures >= cb.maxFailures {
		if cb.state != CircuitOpen {
			cb.logger.WithFields(logrus.Fields{
				"consecutive_failures": cb.failures,
				"cooldown":             cb.cooldown.String(),
			}).WithError(err).Warn("Data source circuit breaker opened")
			metrics.RecordCircuitBreakerTrip()
		}
		cb.state = CircuitOpen
		cb.openedAt = cb.now()
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
