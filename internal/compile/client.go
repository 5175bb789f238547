// Package compile turns LaTeX source into a PDF by calling a remote compile
// service. Every request runs through a middleware pipeline for logging,
// retry, circuit breaking and rate limiting before the HTTP exchange, and every
// failure comes back as a classified *errors.CompileError.
package compile

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ahrav/go-texpreview/internal/compile/circuitbreaker"
	"github.com/ahrav/go-texpreview/internal/compile/configuration"
	compileerrors "github.com/ahrav/go-texpreview/internal/compile/errors"
	"github.com/ahrav/go-texpreview/internal/compile/ratelimit"
	"github.com/ahrav/go-texpreview/internal/compile/retry"
	"github.com/ahrav/go-texpreview/internal/compile/transport"
	"github.com/ahrav/go-texpreview/internal/compile/ytotech"
	"github.com/ahrav/go-texpreview/internal/domain"
)

// Client compiles LaTeX documents.
type Client interface {
	// Compile sends document to the compile service and returns the PDF.
	// Blank input fails with EmptyInput before any network activity.
	// Cancelling ctx aborts the request and yields Cancelled.
	Compile(ctx context.Context, document string) (*domain.Artifact, error)
}

// Option customizes client construction.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics Metrics
	redis   redis.UniversalClient
}

// WithLogger sets the logger used by the request logging middleware.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithRedis shares a Redis client with the global rate limiter and the
// circuit breaker probe guard.
func WithRedis(client redis.UniversalClient) Option {
	return func(o *options) { o.redis = client }
}

type client struct {
	compiler string
	handler  transport.Handler
}

// NewClient creates a compile client from cfg. A nil cfg uses DefaultConfig.
func NewClient(cfg *configuration.Config, opts ...Option) (Client, error) {
	if cfg == nil {
		cfg = configuration.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpTransport := &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          configuration.DefaultMaxIdleConns,
			IdleConnTimeout:       configuration.DefaultIdleTimeoutSeconds * time.Second,
			TLSHandshakeTimeout:   configuration.DefaultTLSTimeoutSeconds * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
		httpClient = &http.Client{
			Transport: httpTransport,
			Timeout:   cfg.HTTPTimeout,
		}
	}

	coreHandler := transport.NewHTTPHandler(httpClient, ytotech.NewAdapter(cfg.Endpoint, cfg.MaxResponseBytes))

	middlewares := []transport.Middleware{
		NewLoggingMiddleware(o.logger, o.metrics),
	}

	if cfg.Retry.MaxAttempts > 1 {
		retryMiddleware, err := retry.NewRetryMiddlewareWithConfig(cfg.Retry)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize retry middleware: %w", err)
		}
		middlewares = append(middlewares, retryMiddleware)
	}

	if cfg.CircuitBreaker.Enabled {
		var cbOpts []circuitbreaker.Option
		if o.redis != nil {
			cbOpts = append(cbOpts, circuitbreaker.WithProbeGuard(o.redis, cfg.Endpoint))
		}
		cb := circuitbreaker.New(circuitbreaker.NewBreaker(cfg.CircuitBreaker), cbOpts...)
		middlewares = append(middlewares, cb.Wrap)
	}

	if cfg.RateLimit.Local.Enabled || cfg.RateLimit.Global.Enabled {
		var scripter redis.Scripter
		if o.redis != nil {
			scripter = o.redis
		}
		rlMiddleware, err := ratelimit.NewRateLimitMiddleware(cfg.RateLimit, scripter)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
		}
		middlewares = append(middlewares, rlMiddleware)
	}

	return &client{
		compiler: cfg.Compiler,
		handler:  transport.Chain(coreHandler, middlewares...),
	}, nil
}

// Compile implements Client.
func (c *client) Compile(ctx context.Context, document string) (*domain.Artifact, error) {
	src := domain.NewSourceDocument(document, c.compiler)
	if src.IsBlank() {
		return nil, compileerrors.NewEmptyInput()
	}
	if err := ctx.Err(); err != nil {
		return nil, compileerrors.Classify(ctx, err)
	}

	req := &transport.Request{
		Document:    src.Text,
		Compiler:    src.Compiler,
		DocumentKey: src.Key(),
		RequestID:   uuid.New().String(),
	}

	resp, err := c.handler.Handle(ctx, req)
	if err != nil {
		return nil, compileerrors.Classify(ctx, err)
	}

	artifact := transport.ResponseToArtifact(resp, req)
	if err := artifact.Validate(); err != nil {
		return nil, compileerrors.NewUnexpectedContent(resp.StatusCode, "compile service returned an unusable artifact", resp.Log, err)
	}
	return artifact, nil
}
