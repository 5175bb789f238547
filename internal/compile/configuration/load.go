package configuration

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load builds the effective configuration: defaults, then the YAML file at
// path when path is non-empty, then environment overrides. The result is
// validated before it is returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv applies deployment-time overrides. A blank override keeps the
// configured endpoint, and a blank configured endpoint falls back to
// DefaultEndpoint.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvEndpoint); ok {
		if v = strings.TrimSpace(v); v != "" {
			c.Endpoint = v
		}
	}
	c.Endpoint = ResolveEndpoint(c.Endpoint)
}

// ResolveEndpoint trims configured and falls back to DefaultEndpoint when blank.
func ResolveEndpoint(configured string) string {
	if v := strings.TrimSpace(configured); v != "" {
		return v
	}
	return DefaultEndpoint
}

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
