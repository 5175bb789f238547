// Package retry re-issues compile requests that failed for transient reasons,
// with exponential backoff, full jitter, and respect for Retry-After hints.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahrav/go-texpreview/internal/compile/configuration"
	compileerrors "github.com/ahrav/go-texpreview/internal/compile/errors"
	"github.com/ahrav/go-texpreview/internal/compile/transport"
)

var (
	// Configuration validation errors.
	errMaxAttemptsInvalid     = errors.New("maxAttempts must be greater than 0")
	errInitialIntervalInvalid = errors.New("initialInterval must be greater than 0")
	errMaxIntervalInvalid     = errors.New("maxInterval must be >= initialInterval")
	errMultiplierInvalid      = errors.New("multiplier must be >= 1.0")
	errMaxElapsedTimeInvalid  = errors.New("maxElapsedTime must be >= 0")

	// errAllRetriesExhausted wraps the last failure once attempts run out.
	errAllRetriesExhausted = errors.New("all retries exhausted")
)

// AfterProvider is implemented by errors that carry a server-specified
// delay before the next attempt.
type AfterProvider interface {
	GetRetryAfter() time.Duration
}

// Middleware is a retry layer with observable statistics.
type Middleware struct {
	config configuration.RetryConfig
	logger *slog.Logger
	stats  *retryStats
}

// NewRetryMiddlewareWithConfig validates cfg and returns the retry layer as a
// transport middleware.
func NewRetryMiddlewareWithConfig(cfg configuration.RetryConfig) (transport.Middleware, error) {
	m, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return m.Wrap, nil
}

// New validates cfg and creates the retry layer.
func New(cfg configuration.RetryConfig) (*Middleware, error) {
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("%w, got %d", errMaxAttemptsInvalid, cfg.MaxAttempts)
	}
	if cfg.InitialInterval <= 0 {
		return nil, fmt.Errorf("%w, got %v", errInitialIntervalInvalid, cfg.InitialInterval)
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		return nil, fmt.Errorf("%w, MaxInterval: %v, InitialInterval: %v",
			errMaxIntervalInvalid, cfg.MaxInterval, cfg.InitialInterval)
	}
	if cfg.Multiplier < 1.0 {
		return nil, fmt.Errorf("%w, got %f", errMultiplierInvalid, cfg.Multiplier)
	}
	if cfg.MaxElapsedTime < 0 {
		return nil, fmt.Errorf("%w, got %v", errMaxElapsedTimeInvalid, cfg.MaxElapsedTime)
	}

	return &Middleware{
		config: cfg,
		logger: slog.Default().With("component", "retry"),
		stats:  &retryStats{},
	}, nil
}

// Wrap returns the retry layer around next.
func (r *Middleware) Wrap(next transport.Handler) transport.Handler {
	return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		if err := ctx.Err(); err != nil {
			return nil, compileerrors.NewCancelled(err)
		}

		var lastErr error
		startTime := time.Now()

		for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
			resp, err := next.Handle(ctx, req)
			r.stats.totalAttempts.Add(1)

			if err == nil {
				if attempt > 1 {
					r.stats.successfulRetries.Add(1)
					r.logger.Info("compile succeeded after retry",
						"attempt", attempt,
						"request_id", req.RequestID)
				} else {
					r.stats.successfulFirstAttempts.Add(1)
				}
				return resp, nil
			}

			if !r.isRetryable(err) {
				r.logger.Debug("non-retryable error",
					"error", err,
					"attempt", attempt,
					"request_id", req.RequestID)
				return nil, err
			}

			lastErr = err

			if attempt == r.config.MaxAttempts {
				break
			}

			backoff := r.calculateBackoff(attempt, err)
			r.recordBackoffMetrics(backoff)

			if r.config.MaxElapsedTime > 0 && time.Since(startTime)+backoff > r.config.MaxElapsedTime {
				r.logger.Warn("max elapsed time exceeded",
					"elapsed", time.Since(startTime),
					"attempts", attempt,
					"last_error", err)
				break
			}

			r.logger.Debug("retrying after backoff",
				"attempt", attempt,
				"backoff", backoff,
				"error", err,
				"request_id", req.RequestID)

			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, compileerrors.NewCancelled(ctx.Err())
			}
		}

		r.stats.failedRetries.Add(1)
		return nil, fmt.Errorf("%w: %w", errAllRetriesExhausted, lastErr)
	})
}

// isRetryable defers to the compile error taxonomy. An open breaker is
// never retried here: hammering it only delays the fast failure.
func (r *Middleware) isRetryable(err error) bool {
	if errors.Is(err, compileerrors.ErrCircuitOpen) {
		return false
	}
	return compileerrors.IsRetryable(err)
}
