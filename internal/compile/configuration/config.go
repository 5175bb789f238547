// Package configuration holds the settings of the compile pipeline and the
// processes built around it, with production defaults, YAML loading, and a
// deployment-time endpoint override.
package configuration

import (
	"net/http"
	"time"
)

// Config holds configuration for the compile client and its surfaces.
type Config struct {
	// Endpoint is the remote compile service URL.
	Endpoint string `yaml:"endpoint" json:"endpoint" validate:"required,url"`

	// Compiler is the TeX engine requested from the service.
	Compiler string `yaml:"compiler" json:"compiler" validate:"required,oneof=pdflatex xelatex lualatex"`

	// HTTP client configuration
	HTTPTimeout time.Duration `yaml:"http_timeout" json:"http_timeout" validate:"min=0"`
	HTTPClient  *http.Client  `yaml:"-" json:"-" validate:"-"`

	// MaxResponseBytes caps the PDF or error body read from the service.
	MaxResponseBytes int64 `yaml:"max_response_bytes" json:"max_response_bytes" validate:"gt=0"`

	// Retry configuration
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Circuit breaker configuration
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker" json:"circuit_breaker"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`

	// Preview HTTP server configuration
	Server ServerConfig `yaml:"server" json:"server"`

	// Temporal worker configuration
	Temporal TemporalConfig `yaml:"temporal" json:"temporal"`
}

// RetryConfig controls retry behavior for failed compile requests.
// MaxAttempts of 1 means a single attempt with no retries.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts" json:"max_attempts" validate:"min=1"`
	MaxElapsedTime  time.Duration `yaml:"max_elapsed_time" json:"max_elapsed_time" validate:"min=0"`
	InitialInterval time.Duration `yaml:"initial_interval" json:"initial_interval" validate:"gt=0"`
	MaxInterval     time.Duration `yaml:"max_interval" json:"max_interval" validate:"gtefield=InitialInterval"`
	Multiplier      float64       `yaml:"multiplier" json:"multiplier" validate:"gte=1"`
	UseJitter       bool          `yaml:"use_jitter" json:"use_jitter"`
}

// CircuitBreakerConfig controls fail-fast behavior during compile service outages.
type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled" json:"enabled"`
	FailureThreshold int           `yaml:"failure_threshold" json:"failure_threshold" validate:"required_if=Enabled true,omitempty,min=1"`
	SuccessThreshold int           `yaml:"success_threshold" json:"success_threshold" validate:"required_if=Enabled true,omitempty,min=1"`
	OpenTimeout      time.Duration `yaml:"open_timeout" json:"open_timeout" validate:"min=0"`
	HalfOpenProbes   int           `yaml:"half_open_probes" json:"half_open_probes" validate:"required_if=Enabled true,omitempty,min=1"`
}

// RateLimitConfig combines an in-process token bucket with an optional
// Redis fixed window shared by every instance talking to the service.
type RateLimitConfig struct {
	// Local token bucket configuration
	Local LocalRateLimitConfig `yaml:"local" json:"local"`

	// Global Redis-based configuration
	Global GlobalRateLimitConfig `yaml:"global" json:"global"`
}

// LocalRateLimitConfig for the in-memory token bucket.
type LocalRateLimitConfig struct {
	Enabled         bool    `yaml:"enabled" json:"enabled"`
	TokensPerSecond float64 `yaml:"tokens_per_second" json:"tokens_per_second" validate:"required_if=Enabled true,omitempty,gt=0"`
	BurstSize       int     `yaml:"burst_size" json:"burst_size" validate:"required_if=Enabled true,omitempty,min=1"`
}

// GlobalRateLimitConfig for the Redis fixed-window limiter.
type GlobalRateLimitConfig struct {
	Enabled           bool          `yaml:"enabled" json:"enabled"`
	RequestsPerSecond int           `yaml:"requests_per_second" json:"requests_per_second" validate:"min=0"`
	RedisAddr         string        `yaml:"redis_addr" json:"redis_addr" validate:"required_if=Enabled true,omitempty,hostname_port"`
	RedisPassword     string        `yaml:"redis_password" json:"-"` // Sensitive
	RedisDB           int           `yaml:"redis_db" json:"redis_db" validate:"min=0"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout" json:"connect_timeout" validate:"min=0"`
	KeyPrefix         string        `yaml:"key_prefix" json:"key_prefix"`
}

// ObservabilityConfig controls logging.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level" json:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat string `yaml:"log_format" json:"log_format" validate:"omitempty,oneof=text json"`
}

// ServerConfig controls the preview HTTP server.
type ServerConfig struct {
	Addr            string        `yaml:"addr" json:"addr" validate:"required"`
	PreviewPath     string        `yaml:"preview_path" json:"preview_path" validate:"required,startswith=/"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" validate:"min=0"`
}

// TemporalConfig controls the render worker.
type TemporalConfig struct {
	HostPort  string `yaml:"host_port" json:"host_port" validate:"required"`
	Namespace string `yaml:"namespace" json:"namespace" validate:"required"`
	TaskQueue string `yaml:"task_queue" json:"task_queue" validate:"required"`
}
