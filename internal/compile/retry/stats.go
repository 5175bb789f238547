package retry

import (
	"sync/atomic"
	"time"
)

// retryStats provides thread-safe retry metrics using atomic operations.
type retryStats struct {
	totalAttempts           atomic.Int64 // Total attempts across all requests
	successfulRetries       atomic.Int64 // Requests that succeeded after retry
	failedRetries           atomic.Int64 // Requests that failed after all retries
	successfulFirstAttempts atomic.Int64 // Requests that succeeded on first attempt
	maxBackoff              atomic.Int64 // Maximum backoff duration in nanoseconds
}

// Stats holds aggregated metrics for retry middleware activity.
type Stats struct {
	TotalAttempts           int64         `json:"total_attempts"`
	SuccessfulRetries       int64         `json:"successful_retries"`
	FailedRetries           int64         `json:"failed_retries"`
	SuccessfulFirstAttempts int64         `json:"successful_first_attempts"`
	MaxBackoff              time.Duration `json:"max_backoff"`
}

// recordBackoffMetrics records backoff duration for monitoring.
func (r *Middleware) recordBackoffMetrics(backoff time.Duration) {
	backoffNanos := backoff.Nanoseconds()
	for {
		current := r.stats.maxBackoff.Load()
		if backoffNanos <= current {
			break
		}
		if r.stats.maxBackoff.CompareAndSwap(current, backoffNanos) {
			break
		}
	}
}

// Stats returns a snapshot of the retry statistics.
func (r *Middleware) Stats() Stats {
	return Stats{
		TotalAttempts:           r.stats.totalAttempts.Load(),
		SuccessfulRetries:       r.stats.successfulRetries.Load(),
		FailedRetries:           r.stats.failedRetries.Load(),
		SuccessfulFirstAttempts: r.stats.successfulFirstAttempts.Load(),
		MaxBackoff:              time.Duration(r.stats.maxBackoff.Load()),
	}
}
