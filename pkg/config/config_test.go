package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelhq/funnel/pkg/observability"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "FUNNEL_TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "FUNNEL_TEST_VAR_NOT_SET",
			defaultValue: "default",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}
			assert.Equal(t, tt.want, getEnv(tt.key, tt.defaultValue))
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("FUNNEL_TEST_DUR", "750ms")
	assert.Equal(t, 750*time.Millisecond, getEnvDuration("FUNNEL_TEST_DUR", time.Second))
	assert.Equal(t, time.Second, getEnvDuration("FUNNEL_TEST_DUR_MISSING", time.Second))

	t.Setenv("FUNNEL_TEST_DUR_BAD", "not-a-duration")
	assert.Equal(t, time.Second, getEnvDuration("FUNNEL_TEST_DUR_BAD", time.Second))
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("FUNNEL_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.API.AuthDeadline)
	assert.Equal(t, "file", cfg.Org.Backend)
	assert.Equal(t, 4, cfg.Sync.Concurrency)
}

func TestLoadConfigProfileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	profilePath := filepath.Join(dir, "config.yaml")
	profileYAML := `
api:
  base_url: https://crm.example.com
  auth_deadline: 2s
org:
  backend: redis
  redis_url: redis://localhost:6379/0
log_level: debug
`
	require.NoError(t, os.WriteFile(profilePath, []byte(profileYAML), 0o600))
	t.Setenv("FUNNEL_CONFIG", profilePath)
	// Env wins over profile
	t.Setenv("FUNNEL_API_URL", "https://staging.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://staging.example.com", cfg.API.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.API.AuthDeadline)
	assert.Equal(t, "redis", cfg.Org.Backend)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Org.RedisURL)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
}

func TestLoadConfigMalformedProfile(t *testing.T) {
	profilePath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(profilePath, []byte("api: ["), 0o600))
	t.Setenv("FUNNEL_CONFIG", profilePath)

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing base URL",
			mutate:  func(c *Config) { c.API.BaseURL = "" },
			wantErr: "base URL is required",
		},
		{
			name:    "non-http base URL",
			mutate:  func(c *Config) { c.API.BaseURL = "ftp://x" },
			wantErr: "must be http",
		},
		{
			name:    "redis backend without URL",
			mutate:  func(c *Config) { c.Org.Backend = "redis" },
			wantErr: "redis URL is required",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Org.Backend = "etcd" },
			wantErr: "unknown org backend",
		},
		{
			name:    "bad concurrency",
			mutate:  func(c *Config) { c.Sync.Concurrency = 0 },
			wantErr: "concurrency must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
