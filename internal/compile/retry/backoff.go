package retry

import (
	"errors"
	"math/rand/v2"
	"time"
)

// calculateBackoff computes the delay before the next attempt using
// exponential backoff with optional full jitter. A Retry-After hint from the
// failure takes precedence when it fits under MaxInterval.
func (r *Middleware) calculateBackoff(attempt int, err error) time.Duration {
	if retryAfter := extractRetryAfter(err); retryAfter > 0 && retryAfter <= r.config.MaxInterval {
		return retryAfter
	}

	baseBackoff := r.config.InitialInterval
	if baseBackoff <= 0 {
		baseBackoff = time.Millisecond
	}

	for i := 1; i < attempt; i++ {
		baseBackoff = time.Duration(float64(baseBackoff) * max(r.config.Multiplier, 1.0))
		if baseBackoff > r.config.MaxInterval {
			baseBackoff = r.config.MaxInterval
			break
		}
	}

	if !r.config.UseJitter {
		return baseBackoff
	}

	// Full jitter: random between 0 and the calculated backoff.
	jitterMs := rand.Int64N(baseBackoff.Milliseconds() + 1) // #nosec G404 -- non-cryptographic jitter is appropriate here
	return time.Duration(jitterMs) * time.Millisecond
}

func extractRetryAfter(err error) time.Duration {
	var provider AfterProvider
	if errors.As(err, &provider) {
		return provider.GetRetryAfter()
	}
	return 0
}
