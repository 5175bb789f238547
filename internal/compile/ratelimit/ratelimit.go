// Package ratelimit paces compile requests: a local token bucket smooths bursts
// from one process, and an optional Redis fixed window caps the rate shared by
// every instance that talks to the same compile service.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-texpreview/internal/compile/configuration"
	compileerrors "github.com/ahrav/go-texpreview/internal/compile/errors"
	"github.com/ahrav/go-texpreview/internal/compile/transport"
)

// Redis client settings used when the middleware dials Redis itself.
const (
	RedisReadTimeout  = 5 * time.Second
	RedisWriteTimeout = 5 * time.Second
	RedisPoolSize     = 10

	// DegradedRecheckInterval is how long the global limiter stays bypassed
	// after a Redis failure before it is tried again.
	DegradedRecheckInterval = 30 * time.Second
)

var (
	errNegativeRequestsPerSecond = errors.New("global requests per second must not be negative")
	errInvalidLocalLimit         = errors.New("local limiter needs positive tokens per second and burst size")
)

// Middleware enforces the local and global limits in front of the service.
type Middleware struct {
	local  *rate.Limiter
	global *globalLimiter

	stats  stats
	logger *slog.Logger
}

// New creates the rate limit layer. client may be nil, in which case a Redis
// client is dialed from cfg when the global limiter is enabled.
func New(cfg configuration.RateLimitConfig, client redis.Scripter) (*Middleware, error) {
	m := &Middleware{logger: slog.Default().With("component", "ratelimit")}

	if cfg.Local.Enabled {
		if cfg.Local.TokensPerSecond <= 0 || cfg.Local.BurstSize < 1 {
			return nil, fmt.Errorf("%w: tokens_per_second=%v burst_size=%d",
				errInvalidLocalLimit, cfg.Local.TokensPerSecond, cfg.Local.BurstSize)
		}
		m.local = rate.NewLimiter(rate.Limit(cfg.Local.TokensPerSecond), cfg.Local.BurstSize)
	}

	if cfg.Global.Enabled {
		if cfg.Global.RequestsPerSecond < 0 {
			return nil, fmt.Errorf("%w (got %d)", errNegativeRequestsPerSecond, cfg.Global.RequestsPerSecond)
		}
		if client == nil {
			client = m.dial(cfg.Global)
		}
		m.global = newGlobalLimiter(client, cfg.Global, m.logger)
	}

	return m, nil
}

// NewRateLimitMiddleware is New returning a transport middleware.
func NewRateLimitMiddleware(cfg configuration.RateLimitConfig, client redis.Scripter) (transport.Middleware, error) {
	m, err := New(cfg, client)
	if err != nil {
		return nil, err
	}
	return m.Wrap, nil
}

func (m *Middleware) dial(cfg configuration.GlobalRateLimitConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  cfg.ConnectTimeout,
		ReadTimeout:  RedisReadTimeout,
		WriteTimeout: RedisWriteTimeout,
		PoolSize:     RedisPoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		m.logger.Warn("Redis connection failed, using local-only rate limiting", "error", err)
	}
	return client
}

// Wrap returns the rate limit layer around next.
func (m *Middleware) Wrap(next transport.Handler) transport.Handler {
	return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		if m.local != nil {
			if err := m.waitLocal(ctx); err != nil {
				return nil, err
			}
		}

		if m.global != nil {
			if err := m.global.check(ctx, req.Compiler); err != nil {
				m.stats.globalDenied.Add(1)
				return nil, err
			}
		}

		m.stats.allowed.Add(1)
		return next.Handle(ctx, req)
	})
}

// waitLocal blocks until the token bucket admits the request.
func (m *Middleware) waitLocal(ctx context.Context) error {
	start := time.Now()
	err := m.local.Wait(ctx)
	m.stats.recordWait(time.Since(start))
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return compileerrors.Classify(ctx, ctx.Err())
	}
	m.stats.localDenied.Add(1)
	// Wait refuses up front when the next token lands after the deadline.
	return compileerrors.NewNetwork("local rate limit exceeds request deadline",
		fmt.Errorf("%w: %w", compileerrors.ErrRateLimited, err))
}

// Stats returns a snapshot of limiter activity.
func (m *Middleware) Stats() Stats {
	s := Stats{
		Allowed:      m.stats.allowed.Load(),
		LocalDenied:  m.stats.localDenied.Load(),
		GlobalDenied: m.stats.globalDenied.Load(),
		MaxWait:      time.Duration(m.stats.maxWait.Load()),
	}
	if m.global != nil {
		s.Degraded = m.global.degraded()
	}
	return s
}

type stats struct {
	allowed      atomic.Int64
	localDenied  atomic.Int64
	globalDenied atomic.Int64
	maxWait      atomic.Int64
}

func (s *stats) recordWait(d time.Duration) {
	for {
		current := s.maxWait.Load()
		if int64(d) <= current || s.maxWait.CompareAndSwap(current, int64(d)) {
			return
		}
	}
}

// Stats is a snapshot of limiter activity.
type Stats struct {
	Allowed      int64         `json:"allowed"`
	LocalDenied  int64         `json:"local_denied"`
	GlobalDenied int64         `json:"global_denied"`
	MaxWait      time.Duration `json:"max_wait"`
	Degraded     bool          `json:"degraded"`
}
