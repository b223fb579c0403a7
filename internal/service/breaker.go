// internal/service/breaker.go
package service

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BreakerState is the circuit breaker state machine position.
type BreakerState string

const (
	BreakerClosed   BreakerState = "CLOSED"
	BreakerOpen     BreakerState = "OPEN"
	BreakerHalfOpen BreakerState = "HALF_OPEN"
)

// BreakerStatus is a point-in-time snapshot for health reporting.
type BreakerStatus struct {
	Name         string       `json:"name"`
	State        BreakerState `json:"state"`
	FailureCount int          `json:"failure_count"`
	LastFailure  *time.Time   `json:"last_failure"`
}

// CircuitBreaker guards a downstream dependency. After failureThreshold
// consecutive failures the circuit opens and requests are rejected; once
// recoveryTimeout elapses a single probe is allowed through (half-open), and
// a success closes the circuit again.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration

	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	state       BreakerState
	now         func() time.Time
}

func NewCircuitBreaker(name string, failureThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 60 * time.Second
	}

	return &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            BreakerClosed,
		now:              time.Now,
	}
}

// RecordSuccess resets the failure count and closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = BreakerClosed
}

// RecordFailure counts a failure and opens the circuit at the threshold.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = cb.now()

	if cb.failures >= cb.failureThreshold {
		cb.state = BreakerOpen
		log.Warn().
			Str("breaker", cb.name).
			Int("failure_count", cb.failures).
			Msg("circuit breaker opened")
	}
}

// CanExecute reports whether a request may proceed. An open circuit
// transitions to half-open after the recovery timeout and lets one probe
// through.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if !cb.lastFailure.IsZero() && cb.now().Sub(cb.lastFailure) >= cb.recoveryTimeout {
			cb.state = BreakerHalfOpen
			log.Info().Str("breaker", cb.name).Msg("circuit breaker half-open")
			return true
		}
		return false
	default:
		// Half-open: allow the probe through.
		return true
	}
}

// Status returns the current breaker snapshot.
func (cb *CircuitBreaker) Status() BreakerStatus {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	status := BreakerStatus{
		Name:         cb.name,
		State:        cb.state,
		FailureCount: cb.failures,
	}
	if !cb.lastFailure.IsZero() {
		t := cb.lastFailure
		status.LastFailure = &t
	}

	return status
}
