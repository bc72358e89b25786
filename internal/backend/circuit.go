package backend

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("backend circuit breaker is open")

// CircuitState is the breaker's current mode.
type CircuitState int

const (
	// CircuitClosed passes calls through normally.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until the cool-down elapses.
	CircuitOpen
	// CircuitHalfOpen lets probe calls through to test recovery.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes the circuit breaker. Zero values fall back to the
// defaults noted per field.
type BreakerConfig struct {
	FailureThreshold int           // consecutive failures before opening (5)
	SuccessThreshold int           // probe successes to close again (2)
	CoolDown         time.Duration // open duration before probing (30s)
}

// Breaker guards the generation backend from hammering a failing provider.
type Breaker struct {
	mu          sync.RWMutex
	state       CircuitState
	failures    int
	successes   int
	lastFailure time.Time
	cfg         BreakerConfig
}

// NewBreaker creates a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = 30 * time.Second
	}
	return &Breaker{state: CircuitClosed, cfg: cfg}
}

// Allow reports whether a call may proceed, moving Open to HalfOpen once
// the cool-down has elapsed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitOpen:
		if time.Since(b.lastFailure) > b.cfg.CoolDown {
			b.state = CircuitHalfOpen
			b.successes = 0
			return nil
		}
		return ErrCircuitOpen
	default:
		return nil
	}
}

// Success records a completed call.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.state = CircuitClosed
			b.failures = 0
			b.successes = 0
		}
	case CircuitClosed:
		b.failures = 0
	}
}

// Failure records a failed call.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = time.Now()

	switch b.state {
	case CircuitClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.state = CircuitOpen
		}
	case CircuitHalfOpen:
		b.state = CircuitOpen
		b.successes = 0
	}
}

// State returns the current mode.
func (b *Breaker) State() CircuitState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}
