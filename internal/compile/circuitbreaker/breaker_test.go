package circuitbreaker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ahrav/go-texpreview/internal/compile/circuitbreaker"
	"github.com/ahrav/go-texpreview/internal/compile/configuration"
	compileerrors "github.com/ahrav/go-texpreview/internal/compile/errors"
	"github.com/ahrav/go-texpreview/internal/compile/transport"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func breakerConfig() configuration.CircuitBreakerConfig {
	return configuration.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		SuccessThreshold: 1,
		OpenTimeout:      time.Minute,
		HalfOpenProbes:   1,
	}
}

var (
	errUnreachable = compileerrors.NewNetwork("compile service unreachable", errors.New("connection refused"))
	errBadLatex    = compileerrors.NewService(400, "LaTeX compilation failed: Undefined control sequence", "! Undefined control sequence.")
)

func outcome(err *error) transport.Handler {
	return transport.HandlerFunc(func(_ context.Context, _ *transport.Request) (*transport.Response, error) {
		if *err != nil {
			return nil, *err
		}
		return &transport.Response{Data: []byte("%PDF"), StatusCode: 200}, nil
	})
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := circuitbreaker.New(circuitbreaker.NewBreaker(breakerConfig()), circuitbreaker.WithClock(clock.Now))

	var next error = errUnreachable
	h := m.Wrap(outcome(&next))
	req := &transport.Request{}

	for range 2 {
		_, err := h.Handle(context.Background(), req)
		assert.Same(t, errUnreachable, err)
	}
	assert.Equal(t, circuitbreaker.StateOpen, m.Breaker().State())

	_, err := h.Handle(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, compileerrors.ErrCircuitOpen)
	assert.Equal(t, compileerrors.ErrorTypeNetwork, compileerrors.Kind(err))
	assert.Equal(t, int64(1), m.Breaker().Stats().RequestsRejected)
}

func TestBreaker_UserErrorsDoNotTrip(t *testing.T) {
	m := circuitbreaker.New(circuitbreaker.NewBreaker(breakerConfig()))

	var next error = errBadLatex
	h := m.Wrap(outcome(&next))
	for range 5 {
		_, err := h.Handle(context.Background(), &transport.Request{})
		assert.Same(t, errBadLatex, err)
	}
	assert.Equal(t, circuitbreaker.StateClosed, m.Breaker().State())
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := circuitbreaker.New(circuitbreaker.NewBreaker(breakerConfig()), circuitbreaker.WithClock(clock.Now))

	var next error = errUnreachable
	h := m.Wrap(outcome(&next))
	for range 2 {
		_, _ = h.Handle(context.Background(), &transport.Request{})
	}
	require.Equal(t, circuitbreaker.StateOpen, m.Breaker().State())

	clock.Advance(time.Minute)
	next = nil
	resp, err := h.Handle(context.Background(), &transport.Request{})
	require.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, circuitbreaker.StateClosed, m.Breaker().State())

	stats := m.Breaker().Stats()
	assert.Equal(t, int64(1), stats.ProbeAttempts)
	assert.Equal(t, int64(1), stats.ProbeSuccesses)
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := circuitbreaker.New(circuitbreaker.NewBreaker(breakerConfig()), circuitbreaker.WithClock(clock.Now))

	var next error = errUnreachable
	h := m.Wrap(outcome(&next))
	for range 2 {
		_, _ = h.Handle(context.Background(), &transport.Request{})
	}

	clock.Advance(2 * time.Minute)
	_, err := h.Handle(context.Background(), &transport.Request{})
	assert.Same(t, errUnreachable, err)
	assert.Equal(t, circuitbreaker.StateOpen, m.Breaker().State())

	_, err = h.Handle(context.Background(), &transport.Request{})
	assert.ErrorIs(t, err, compileerrors.ErrCircuitOpen)
}

func TestBreaker_ProbeGuardConflict(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := circuitbreaker.New(circuitbreaker.NewBreaker(breakerConfig()),
		circuitbreaker.WithClock(clock.Now),
		circuitbreaker.WithProbeGuard(client, "latex"))

	var next error = errUnreachable
	h := m.Wrap(outcome(&next))
	for range 2 {
		_, _ = h.Handle(context.Background(), &transport.Request{})
	}

	// Another instance holds the guard.
	require.NoError(t, mr.Set("cb:probe:latex", "1"))
	clock.Advance(time.Minute)
	next = nil

	_, err := h.Handle(context.Background(), &transport.Request{})
	assert.ErrorIs(t, err, compileerrors.ErrCircuitOpen)
	assert.Equal(t, int64(1), m.Breaker().Stats().ProbeGuardConflicts)

	mr.Del("cb:probe:latex")
	_, err = h.Handle(context.Background(), &transport.Request{})
	require.NoError(t, err)
	assert.Equal(t, circuitbreaker.StateClosed, m.Breaker().State())
	assert.False(t, mr.Exists("cb:probe:latex"), "guard is released after the probe")
}

func TestBreaker_CancellationIsNotCounted(t *testing.T) {
	m := circuitbreaker.New(circuitbreaker.NewBreaker(breakerConfig()))

	var next error = compileerrors.NewCancelled(context.Canceled)
	h := m.Wrap(outcome(&next))
	for range 5 {
		_, _ = h.Handle(context.Background(), &transport.Request{})
	}
	assert.Equal(t, circuitbreaker.StateClosed, m.Breaker().State())
}
