// Package circuitbreaker stops sending compile requests to a service that keeps
// failing, and probes it again after a cool-down.
package circuitbreaker

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ahrav/go-texpreview/internal/compile/configuration"
)

// State represents the current state of a circuit breaker.
type State int32

const (
	// StateClosed allows requests through.
	StateClosed State = iota
	// StateOpen blocks all requests.
	StateOpen
	// StateHalfOpen allows a limited number of probes.
	StateHalfOpen
)

// String returns the string representation of the circuit state.
func (s State) String() string {
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

// admission is the outcome of asking the breaker for permission.
type admission struct {
	allowed bool
	probe   bool
	release func()
}

// Breaker is a lock-free circuit breaker. State changes go through
// compare-and-swap so concurrent outcomes never double-transition.
type Breaker struct {
	state           atomic.Int32
	failures        atomic.Int32
	successes       atomic.Int32
	lastFailureTime atomic.Int64
	halfOpenProbes  atomic.Int32

	failureThreshold  int
	successThreshold  int
	openTimeout       time.Duration
	maxHalfOpenProbes int

	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics
}

// NewBreaker creates a breaker in the closed state.
func NewBreaker(cfg configuration.CircuitBreakerConfig) *Breaker {
	b := &Breaker{
		failureThreshold:  max(cfg.FailureThreshold, 1),
		successThreshold:  max(cfg.SuccessThreshold, 1),
		openTimeout:       cfg.OpenTimeout,
		maxHalfOpenProbes: max(cfg.HalfOpenProbes, 1),
		now:               time.Now,
		logger:            slog.Default().With("component", "circuit_breaker"),
		metrics:           &metrics{},
	}
	b.state.Store(int32(StateClosed))
	return b
}

// State returns the current state.
func (b *Breaker) State() State {
	return State(b.state.Load())
}

func (b *Breaker) allow() admission {
	state := State(b.state.Load())

	switch state {
	case StateClosed:
		b.metrics.requestsAllowed.Add(1)
		return admission{allowed: true, release: func() {}}

	case StateOpen:
		lastFailure := time.Unix(0, b.lastFailureTime.Load())
		if b.now().Sub(lastFailure) < b.openTimeout {
			b.metrics.requestsRejected.Add(1)
			return admission{release: func() {}}
		}
		b.transition(StateOpen, StateHalfOpen)
		return b.admitProbe()

	case StateHalfOpen:
		return b.admitProbe()

	default:
		b.metrics.requestsRejected.Add(1)
		return admission{release: func() {}}
	}
}

// admitProbe reserves one of the half-open probe slots.
func (b *Breaker) admitProbe() admission {
	for {
		current := b.halfOpenProbes.Load()
		if int(current) >= b.maxHalfOpenProbes {
			b.metrics.requestsRejected.Add(1)
			return admission{release: func() {}}
		}
		if b.halfOpenProbes.CompareAndSwap(current, current+1) {
			b.metrics.probeAttempts.Add(1)
			b.metrics.requestsAllowed.Add(1)
			return admission{allowed: true, probe: true, release: b.releaseProbe}
		}
	}
}

// releaseProbe frees a probe slot; saturates at 0 if a transition reset it.
func (b *Breaker) releaseProbe() {
	for {
		cur := b.halfOpenProbes.Load()
		if cur == 0 {
			return
		}
		if b.halfOpenProbes.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

func (b *Breaker) recordSuccess() {
	for {
		state := State(b.state.Load())
		switch state {
		case StateClosed:
			b.failures.Store(0)
			return

		case StateHalfOpen:
			successes := b.successes.Add(1)
			b.metrics.probeSuccesses.Add(1)
			if int(successes) < b.successThreshold {
				return
			}
			if b.transition(StateHalfOpen, StateClosed) {
				return
			}
			b.successes.Add(-1)

		default:
			return
		}
	}
}

func (b *Breaker) recordFailure() {
	b.lastFailureTime.Store(b.now().UnixNano())

	for {
		state := State(b.state.Load())
		switch state {
		case StateClosed:
			failures := b.failures.Add(1)
			if int(failures) < b.failureThreshold {
				return
			}
			if b.transition(StateClosed, StateOpen) {
				return
			}

		case StateHalfOpen:
			if b.transition(StateHalfOpen, StateOpen) {
				return
			}

		default:
			return
		}
	}
}

// transition moves from one state to another if the breaker is still in from.
func (b *Breaker) transition(from, to State) bool {
	if !b.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	b.failures.Store(0)
	b.successes.Store(0)
	b.halfOpenProbes.Store(0)
	b.metrics.stateTransitions.Add(1)
	b.logger.Info("circuit breaker state transition",
		"from", from.String(),
		"to", to.String())
	return true
}
