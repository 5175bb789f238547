package configuration

import (
	"time"
)

// Service defaults.
const (
	// DefaultEndpoint is the public LaTeX-on-HTTP build endpoint.
	DefaultEndpoint = "https://latex.ytotech.com/builds/sync"
	// DefaultCompiler handles Unicode and system fonts.
	DefaultCompiler = "xelatex"
	// EnvEndpoint overrides Endpoint at startup.
	EnvEndpoint = "TEX_COMPILE_ENDPOINT"
)

// HTTP and connection constants.
const (
	DefaultMaxIdleConns       = 100
	DefaultIdleTimeoutSeconds = 90
	DefaultTLSTimeoutSeconds  = 10
	DefaultHTTPTimeout        = 120 * time.Second
	DefaultMaxResponseBytes   = 64 << 20
)

// Retry and circuit breaker constants.
const (
	DefaultMaxAttempts       = 1
	DefaultMaxElapsedTime    = 3 * time.Minute
	DefaultInitialInterval   = 500 * time.Millisecond
	DefaultMaxInterval       = 10 * time.Second
	DefaultBackoffMultiplier = 2.0
	DefaultFailureThreshold  = 5
	DefaultSuccessThreshold  = 1
	DefaultOpenTimeout       = 30 * time.Second
)

// Rate limiting constants.
const (
	DefaultTokensPerSecond = 2
	DefaultBurstSize       = 4
	DefaultConnectTimeout  = 5 * time.Second
	DefaultKeyPrefix       = "texpreview"
)

// Surface constants.
const (
	DefaultServerAddr      = "127.0.0.1:8080"
	DefaultPreviewPath     = "/preview/"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultTemporalHost    = "localhost:7233"
	DefaultNamespace       = "default"
	DefaultTaskQueue       = "texpreview-render"
)

// DefaultConfig returns production-ready configuration with sensible defaults.
// Retries are off so one compile issues exactly one request; the breaker is
// on because it only trips on outages.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:         DefaultEndpoint,
		Compiler:         DefaultCompiler,
		HTTPTimeout:      DefaultHTTPTimeout,
		MaxResponseBytes: DefaultMaxResponseBytes,
		Retry: RetryConfig{
			MaxAttempts:     DefaultMaxAttempts,
			MaxElapsedTime:  DefaultMaxElapsedTime,
			InitialInterval: DefaultInitialInterval,
			MaxInterval:     DefaultMaxInterval,
			Multiplier:      DefaultBackoffMultiplier,
			UseJitter:       true,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: DefaultFailureThreshold,
			SuccessThreshold: DefaultSuccessThreshold,
			OpenTimeout:      DefaultOpenTimeout,
			HalfOpenProbes:   1,
		},
		RateLimit: RateLimitConfig{
			Local: LocalRateLimitConfig{
				Enabled:         false,
				TokensPerSecond: DefaultTokensPerSecond,
				BurstSize:       DefaultBurstSize,
			},
			Global: GlobalRateLimitConfig{
				Enabled:        false,
				ConnectTimeout: DefaultConnectTimeout,
				KeyPrefix:      DefaultKeyPrefix,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
		Server: ServerConfig{
			Addr:            DefaultServerAddr,
			PreviewPath:     DefaultPreviewPath,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Temporal: TemporalConfig{
			HostPort:  DefaultTemporalHost,
			Namespace: DefaultNamespace,
			TaskQueue: DefaultTaskQueue,
		},
	}
}
