package circuitbreaker

import (
	"context"
	"time"

	compileerrors "github.com/ahrav/go-texpreview/internal/compile/errors"
	"github.com/ahrav/go-texpreview/internal/compile/transport"
	"github.com/redis/go-redis/v9"
)

const defaultProbeGuardTTL = 60 * time.Second

// Option configures the breaker middleware.
type Option func(*Middleware)

// WithProbeGuard coordinates half-open probes across instances through Redis,
// so only one process tests a recovering service at a time.
func WithProbeGuard(client redis.Cmdable, key string) Option {
	return func(m *Middleware) {
		m.redis = client
		m.guardKey = key
	}
}

// WithClock overrides the breaker's time source.
func WithClock(now func() time.Time) Option {
	return func(m *Middleware) { m.breaker.now = now }
}

// Middleware applies a breaker to every compile request.
type Middleware struct {
	breaker  *Breaker
	redis    redis.Cmdable
	guardKey string
}

// New creates breaker middleware around a fresh breaker.
func New(b *Breaker, opts ...Option) *Middleware {
	m := &Middleware{breaker: b}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Breaker returns the underlying breaker.
func (m *Middleware) Breaker() *Breaker { return m.breaker }

// Wrap returns the breaker layer around next.
func (m *Middleware) Wrap(next transport.Handler) transport.Handler {
	return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		adm := m.breaker.allow()
		if !adm.allowed {
			return nil, compileerrors.NewNetwork("circuit breaker open", compileerrors.ErrCircuitOpen)
		}
		defer adm.release()

		if adm.probe && m.redis != nil {
			if !m.acquireProbeGuard(ctx) {
				m.breaker.metrics.probeGuardConflicts.Add(1)
				return nil, compileerrors.NewNetwork("another instance is probing the compile service", compileerrors.ErrCircuitOpen)
			}
			defer m.releaseProbeGuard(ctx)
		}

		resp, err := next.Handle(ctx, req)
		switch {
		case err == nil:
			m.breaker.recordSuccess()
		case compileerrors.IsCancelled(err):
		case compileerrors.IsRetryable(err):
			m.breaker.recordFailure()
		default:
			// The service answered, so it is reachable.
			m.breaker.recordSuccess()
		}
		return resp, err
	})
}

func (m *Middleware) acquireProbeGuard(ctx context.Context) bool {
	ok, err := m.redis.SetNX(ctx, m.probeKey(), "1", defaultProbeGuardTTL).Result()
	if err != nil {
		m.breaker.logger.Warn("failed to acquire probe guard", "error", err)
		return true
	}
	return ok
}

func (m *Middleware) releaseProbeGuard(ctx context.Context) {
	if err := m.redis.Del(context.WithoutCancel(ctx), m.probeKey()).Err(); err != nil {
		m.breaker.logger.Warn("failed to release probe guard", "error", err)
	}
}

func (m *Middleware) probeKey() string {
	return "cb:probe:" + m.guardKey
}
