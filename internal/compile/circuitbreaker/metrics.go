package circuitbreaker

import "sync/atomic"

type metrics struct {
	stateTransitions    atomic.Int64
	requestsAllowed     atomic.Int64
	requestsRejected    atomic.Int64
	probeAttempts       atomic.Int64
	probeSuccesses      atomic.Int64
	probeGuardConflicts atomic.Int64
}

// Stats is a snapshot of breaker activity.
type Stats struct {
	State               string `json:"state"`
	StateTransitions    int64  `json:"state_transitions"`
	RequestsAllowed     int64  `json:"requests_allowed"`
	RequestsRejected    int64  `json:"requests_rejected"`
	ProbeAttempts       int64  `json:"probe_attempts"`
	ProbeSuccesses      int64  `json:"probe_successes"`
	ProbeGuardConflicts int64  `json:"probe_guard_conflicts"`
}

// Stats returns a snapshot of the breaker's counters.
func (b *Breaker) Stats() Stats {
	return Stats{
		State:               b.State().String(),
		StateTransitions:    b.metrics.stateTransitions.Load(),
		RequestsAllowed:     b.metrics.requestsAllowed.Load(),
		RequestsRejected:    b.metrics.requestsRejected.Load(),
		ProbeAttempts:       b.metrics.probeAttempts.Load(),
		ProbeSuccesses:      b.metrics.probeSuccesses.Load(),
		ProbeGuardConflicts: b.metrics.probeGuardConflicts.Load(),
	}
}
