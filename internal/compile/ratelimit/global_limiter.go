package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahrav/go-texpreview/internal/compile/configuration"
	compileerrors "github.com/ahrav/go-texpreview/internal/compile/errors"
)

const (
	windowMs          = int64(1000)
	minRetryAfter     = time.Second
	maxRetryAfter     = time.Hour
	defaultRetryAfter = time.Second
)

// fixedWindowScript counts requests in a one-second window. It returns
// {1, remaining} when admitted and {0, ttl_ms} when the window is full.
var fixedWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local window = tonumber(ARGV[1])
	local limit = tonumber(ARGV[2])

	local current = redis.call('GET', key)
	if current == false then
		redis.call('SET', key, 1, 'PX', window)
		return {1, limit - 1}
	end

	local count = tonumber(current)
	if count < limit then
		local newCount = redis.call('INCR', key)
		if redis.call('PTTL', key) == -1 then
			redis.call('PEXPIRE', key, window)
		end
		return {1, limit - newCount}
	end

	return {0, redis.call('PTTL', key)}
`)

// globalLimiter is a fixed-window limiter shared through Redis. Any Redis
// failure bypasses it for DegradedRecheckInterval.
type globalLimiter struct {
	client        redis.Scripter
	limit         int64
	prefix        string
	degradedUntil atomic.Int64
	now           func() time.Time
	logger        *slog.Logger
}

func newGlobalLimiter(client redis.Scripter, cfg configuration.GlobalRateLimitConfig, logger *slog.Logger) *globalLimiter {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = configuration.DefaultKeyPrefix
	}
	return &globalLimiter{
		client: client,
		limit:  int64(cfg.RequestsPerSecond),
		prefix: prefix,
		now:    time.Now,
		logger: logger,
	}
}

func (g *globalLimiter) degraded() bool {
	return g.now().UnixNano() < g.degradedUntil.Load()
}

func (g *globalLimiter) check(ctx context.Context, compiler string) error {
	if g.limit == 0 || g.degraded() {
		return nil
	}

	key := fmt.Sprintf("%s:rl:global:%s", g.prefix, compiler)
	result, err := fixedWindowScript.Run(ctx, g.client, []string{key}, windowMs, g.limit).Result()
	if err != nil {
		if ctx.Err() != nil {
			return compileerrors.Classify(ctx, ctx.Err())
		}
		g.degrade("global rate limit check failed", "error", err)
		return nil
	}

	res, ok := result.([]any)
	if !ok || len(res) < 2 {
		g.degrade("invalid Redis response format", "response", result)
		return nil
	}
	allowed, ok := res[0].(int64)
	if !ok {
		g.degrade("invalid Redis allowed value format", "allowed", res[0])
		return nil
	}
	if allowed == 1 {
		return nil
	}

	retryAfter := defaultRetryAfter
	if ttl, ok := res[1].(int64); ok && ttl > 0 {
		retryAfter = time.Duration(ttl) * time.Millisecond
	}
	retryAfter = min(max(retryAfter, minRetryAfter), maxRetryAfter)

	denied := compileerrors.NewNetwork(
		fmt.Sprintf("global compile rate limit of %d/s reached", g.limit),
		compileerrors.ErrRateLimited)
	denied.RetryAfter = retryAfter
	return denied
}

func (g *globalLimiter) degrade(msg string, args ...any) {
	g.logger.Warn(msg+", switching to degraded mode", args...)
	g.degradedUntil.Store(g.now().Add(DegradedRecheckInterval).UnixNano())
}
