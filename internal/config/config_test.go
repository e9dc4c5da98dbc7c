package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:8000/api/v1", cfg.Realtime.BaseURL)
	assert.Equal(t, "/realtime", cfg.Realtime.Path)
	assert.Equal(t, 30*time.Second, cfg.Realtime.HeartbeatInterval)
	assert.Equal(t, time.Second, cfg.Realtime.ReconnectBaseDelay)
	assert.Equal(t, 30*time.Second, cfg.Realtime.MaxReconnectDelay)
	assert.Equal(t, 5, cfg.Realtime.MaxReconnectAttempts)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Metrics.Enabled)

	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing base URL",
			mutate:  func(c *Config) { c.Realtime.BaseURL = "" },
			wantErr: "base URL cannot be empty",
		},
		{
			name:    "unsupported scheme",
			mutate:  func(c *Config) { c.Realtime.BaseURL = "ftp://hive.example.com" },
			wantErr: "invalid base URL scheme",
		},
		{
			name:    "relative path",
			mutate:  func(c *Config) { c.Realtime.Path = "realtime" },
			wantErr: "must start with /",
		},
		{
			name:    "zero heartbeat",
			mutate:  func(c *Config) { c.Realtime.HeartbeatInterval = 0 },
			wantErr: "heartbeat_interval must be positive",
		},
		{
			name:    "ceiling below base delay",
			mutate:  func(c *Config) { c.Realtime.MaxReconnectDelay = 500 * time.Millisecond },
			wantErr: "max_reconnect_delay",
		},
		{
			name:    "no reconnect attempts",
			mutate:  func(c *Config) { c.Realtime.MaxReconnectAttempts = 0 },
			wantErr: "max_reconnect_attempts",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
		{
			name: "metrics without addr",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Addr = ""
			},
			wantErr: "metrics: addr is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Realtime.Token = "super-secret"

	out := cfg.String()
	assert.NotContains(t, out, "super-secret")
	assert.Contains(t, out, `"base_url": "http://localhost:8000/api/v1"`)
	assert.Equal(t, "super-secret", cfg.Realtime.Token)
}
