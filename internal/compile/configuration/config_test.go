package configuration_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-texpreview/internal/compile/configuration"
)

func env(values map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := values[k]
		return v, ok
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := configuration.DefaultConfig()

	assert.Equal(t, "https://latex.ytotech.com/builds/sync", cfg.Endpoint)
	assert.Equal(t, "xelatex", cfg.Compiler)
	assert.Equal(t, 1, cfg.Retry.MaxAttempts, "one compile must issue one request by default")
	assert.True(t, cfg.CircuitBreaker.Enabled)
	assert.False(t, cfg.RateLimit.Global.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		env        map[string]string
		want       string
	}{
		{
			name:       "override wins",
			configured: configuration.DefaultEndpoint,
			env:        map[string]string{configuration.EnvEndpoint: "http://tex.internal:8080/builds/sync"},
			want:       "http://tex.internal:8080/builds/sync",
		},
		{
			name:       "override is trimmed",
			configured: configuration.DefaultEndpoint,
			env:        map[string]string{configuration.EnvEndpoint: "  http://tex.internal/builds/sync \n"},
			want:       "http://tex.internal/builds/sync",
		},
		{
			name:       "blank override keeps configured",
			configured: "http://from-file/builds/sync",
			env:        map[string]string{configuration.EnvEndpoint: "   "},
			want:       "http://from-file/builds/sync",
		},
		{
			name:       "blank configured falls back to default",
			configured: "",
			env:        map[string]string{},
			want:       configuration.DefaultEndpoint,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := configuration.DefaultConfig()
			cfg.Endpoint = tt.configured
			cfg.ApplyEnv(env(tt.env))
			assert.Equal(t, tt.want, cfg.Endpoint)
		})
	}
}

func TestLoad_YAML(t *testing.T) {
	t.Setenv(configuration.EnvEndpoint, "")

	path := filepath.Join(t.TempDir(), "texpreview.yaml")
	content := `
endpoint: http://localhost:2345/builds/sync
compiler: pdflatex
http_timeout: 45s
retry:
  max_attempts: 3
  initial_interval: 100ms
  max_interval: 2s
rate_limit:
  local:
    enabled: true
    tokens_per_second: 5
    burst_size: 10
server:
  addr: ":9000"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := configuration.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:2345/builds/sync", cfg.Endpoint)
	assert.Equal(t, "pdflatex", cfg.Compiler)
	assert.Equal(t, 45*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Retry.InitialInterval)
	assert.InDelta(t, configuration.DefaultBackoffMultiplier, cfg.Retry.Multiplier, 0.001, "unset fields keep defaults")
	assert.True(t, cfg.RateLimit.Local.Enabled)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, configuration.DefaultPreviewPath, cfg.Server.PreviewPath)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv(configuration.EnvEndpoint, "http://override/builds/sync")

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: http://file/builds/sync\n"), 0o600))

	cfg, err := configuration.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://override/builds/sync", cfg.Endpoint)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv(configuration.EnvEndpoint, "")

	_, err := configuration.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("compiler: [unclosed"), 0o600))
	_, err = configuration.Load(bad)
	assert.Error(t, err)

	invalid := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("compiler: troff\n"), 0o600))
	_, err = configuration.Load(invalid)
	assert.ErrorIs(t, err, configuration.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *configuration.Config)
	}{
		{"bad endpoint", func(c *configuration.Config) { c.Endpoint = "not a url" }},
		{"zero attempts", func(c *configuration.Config) { c.Retry.MaxAttempts = 0 }},
		{"max below initial", func(c *configuration.Config) { c.Retry.MaxInterval = time.Millisecond }},
		{"multiplier below one", func(c *configuration.Config) { c.Retry.Multiplier = 0.5 }},
		{"local limiter without rate", func(c *configuration.Config) {
			c.RateLimit.Local.Enabled = true
			c.RateLimit.Local.TokensPerSecond = 0
		}},
		{"global limiter without redis", func(c *configuration.Config) {
			c.RateLimit.Global.Enabled = true
			c.RateLimit.Global.RedisAddr = ""
		}},
		{"preview path", func(c *configuration.Config) { c.Server.PreviewPath = "preview" }},
		{"log level", func(c *configuration.Config) { c.Observability.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := configuration.DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), configuration.ErrInvalidConfig)
		})
	}
}
