package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig_IsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8087, cfg.Server.Port)
	assert.Equal(t, "roadmapd.db", cfg.Store.Path)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "zero shutdown timeout",
			mutate:  func(c *Config) { c.Server.ShutdownTimeout = 0 },
			wantErr: "shutdown timeout",
		},
		{
			name:    "zero llm timeout",
			mutate:  func(c *Config) { c.LLM.Timeout = 0 },
			wantErr: "llm timeout",
		},
		{
			name:    "threshold above one",
			mutate:  func(c *Config) { c.Detector.OverlapThreshold = 1.5 },
			wantErr: "overlap threshold",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "invalid log format",
		},
		{
			name: "events without url",
			mutate: func(c *Config) {
				c.Events.Enabled = true
				c.Events.NATSURL = ""
			},
			wantErr: "nats_url",
		},
		{
			name: "observability without endpoint",
			mutate: func(c *Config) {
				c.Observability.Enabled = true
				c.Observability.Endpoint = ""
			},
			wantErr: "endpoint",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadWithFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9099
  shutdown_timeout: 5s
store:
  path: /tmp/test-roadmapd.db
llm:
  api_key: sk-test
  timeout: 10s
logging:
  format: console
`), 0o600))

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9099, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, "/tmp/test-roadmapd.db", cfg.Store.Path)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey.Value())
	assert.Equal(t, "console", cfg.Logging.Format)
	// Untouched keys keep defaults.
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 0.5, cfg.Detector.OverlapThreshold)
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9099\n"), 0o600))

	t.Setenv("ROADMAPD_SERVER_PORT", "9200")
	t.Setenv("ROADMAPD_EVENTS_NATS_URL", "nats://elsewhere:4222")
	t.Setenv("ROADMAPD_SERVER_SHUTDOWN_TIMEOUT", "42s")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, "nats://elsewhere:4222", cfg.Events.NATSURL)
	assert.Equal(t, 42*time.Second, cfg.Server.ShutdownTimeout.Duration())
}

func TestLoadWithFile_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadWithFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8087, cfg.Server.Port)
}

func TestLoadWithFile_InvalidValuesRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 700000\n"), 0o600))

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("sk-very-secret")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "sk-very-secret", s.Value())
	assert.True(t, s.IsSet())

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "very-secret")

	var empty Secret
	assert.Equal(t, "", empty.String())
	assert.False(t, empty.IsSet())
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	require.Error(t, d.UnmarshalText([]byte("-5s")))
	require.Error(t, d.UnmarshalText([]byte("forever")))
}
