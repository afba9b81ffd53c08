// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package resilience keeps best-effort upstream traffic from piling up
// against a server that is not answering.
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/jellyplay/internal/metrics"
)

// State is the breaker position.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

const (
	defaultThreshold    = 3
	defaultResetTimeout = 30 * time.Second
)

// Stats is a point-in-time view of a breaker.
type Stats struct {
	Name     string
	State    State
	Failures int
	// RetryIn is how long an open breaker keeps refusing calls. Zero otherwise.
	RetryIn time.Duration
}

// CircuitBreaker opens after threshold consecutive failures. Once the reset
// timeout has elapsed it admits exactly one probe call; the probe's outcome
// closes or reopens it.
type CircuitBreaker struct {
	name         string
	threshold    int
	resetTimeout time.Duration
	now          func() time.Time
	ignore       func(error) bool

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// Option configures a CircuitBreaker.
type Option func(*CircuitBreaker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(cb *CircuitBreaker) { cb.now = now }
}

// WithIgnoredErrors excludes errors matched by fn from the failure count,
// e.g. a caller giving up.
func WithIgnoredErrors(fn func(error) bool) Option {
	return func(cb *CircuitBreaker) { cb.ignore = fn }
}

// NewCircuitBreaker creates a closed breaker. Non-positive threshold or
// resetTimeout fall back to 3 and 30s.
func NewCircuitBreaker(name string, threshold int, resetTimeout time.Duration, opts ...Option) *CircuitBreaker {
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	if resetTimeout <= 0 {
		resetTimeout = defaultResetTimeout
	}
	cb := &CircuitBreaker{
		name:         name,
		threshold:    threshold,
		resetTimeout: resetTimeout,
		now:          time.Now,
		state:        StateClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	metrics.SetBreakerState(name, string(StateClosed))
	return cb
}

// Name identifies the breaker in metrics and health output.
func (cb *CircuitBreaker) Name() string { return cb.name }

// Execute runs fn unless the breaker refuses, in which case it returns
// ErrCircuitOpen without calling fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.admit() {
		metrics.RecordBreakerRejected(cb.name)
		return ErrCircuitOpen
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false
	switch {
	case err == nil:
		cb.failures = 0
		cb.setState(StateClosed)
	case cb.ignore != nil && cb.ignore(err):
	default:
		cb.failures++
		switch {
		case cb.state == StateHalfOpen:
			metrics.RecordBreakerTrip(cb.name, "probe_failed")
			cb.setState(StateOpen)
		case cb.state == StateClosed && cb.failures >= cb.threshold:
			metrics.RecordBreakerTrip(cb.name, "threshold_exceeded")
			cb.setState(StateOpen)
		}
	}
	return err
}

func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.resetTimeout {
			return false
		}
		cb.setState(StateHalfOpen)
	}
	if cb.probing {
		return false
	}
	cb.probing = true
	return true
}

// setState requires cb.mu.
func (cb *CircuitBreaker) setState(next State) {
	if cb.state == next {
		return
	}
	cb.state = next
	if next == StateOpen {
		cb.openedAt = cb.now()
	}
	metrics.SetBreakerState(cb.name, string(next))
}

// State returns the current position.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns the current position with its failure run and retry window.
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	s := Stats{Name: cb.name, State: cb.state, Failures: cb.failures}
	if cb.state == StateOpen {
		if left := cb.resetTimeout - cb.now().Sub(cb.openedAt); left > 0 {
			s.RetryIn = left
		}
	}
	return s
}
