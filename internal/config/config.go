package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config represents the hive client configuration
type Config struct {
	Realtime RealtimeConfig `json:"realtime" mapstructure:"realtime"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
	Metrics  MetricsConfig  `json:"metrics" mapstructure:"metrics"`
}

// RealtimeConfig holds the realtime session settings
type RealtimeConfig struct {
	BaseURL              string        `json:"base_url" mapstructure:"base_url"`
	Path                 string        `json:"path" mapstructure:"path"`
	Token                string        `json:"token" mapstructure:"token"`
	HeartbeatInterval    time.Duration `json:"heartbeat_interval" mapstructure:"heartbeat_interval"`
	ReconnectBaseDelay   time.Duration `json:"reconnect_base_delay" mapstructure:"reconnect_base_delay"`
	MaxReconnectDelay    time.Duration `json:"max_reconnect_delay" mapstructure:"max_reconnect_delay"`
	MaxReconnectAttempts int           `json:"max_reconnect_attempts" mapstructure:"max_reconnect_attempts"`
	HandshakeTimeout     time.Duration `json:"handshake_timeout" mapstructure:"handshake_timeout"`
	WriteTimeout         time.Duration `json:"write_timeout" mapstructure:"write_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
	Path    string `json:"path" mapstructure:"path"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Realtime: RealtimeConfig{
			BaseURL:              "http://localhost:8000/api/v1",
			Path:                 "/realtime",
			HeartbeatInterval:    30 * time.Second,
			ReconnectBaseDelay:   time.Second,
			MaxReconnectDelay:    30 * time.Second,
			MaxReconnectAttempts: 5,
			HandshakeTimeout:     10 * time.Second,
			WriteTimeout:         10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Pretty:    true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
			Path:    "/metrics",
		},
	}
}

// String returns a JSON representation of the config with the token masked
func (c *Config) String() string {
	masked := *c
	if masked.Realtime.Token != "" {
		masked.Realtime.Token = "********"
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	v := NewValidator()

	if err := v.ValidateBaseURL(c.Realtime.BaseURL); err != nil {
		return fmt.Errorf("realtime: %w", err)
	}
	if err := v.ValidatePath(c.Realtime.Path); err != nil {
		return fmt.Errorf("realtime: %w", err)
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"heartbeat_interval", c.Realtime.HeartbeatInterval},
		{"reconnect_base_delay", c.Realtime.ReconnectBaseDelay},
		{"max_reconnect_delay", c.Realtime.MaxReconnectDelay},
		{"handshake_timeout", c.Realtime.HandshakeTimeout},
		{"write_timeout", c.Realtime.WriteTimeout},
	}
	for _, d := range durations {
		if err := v.ValidateDuration(d.name, d.value); err != nil {
			return fmt.Errorf("realtime: %w", err)
		}
	}
	if c.Realtime.MaxReconnectDelay < c.Realtime.ReconnectBaseDelay {
		return fmt.Errorf("realtime: max_reconnect_delay must not be less than reconnect_base_delay")
	}
	if c.Realtime.MaxReconnectAttempts < 1 {
		return fmt.Errorf("realtime: max_reconnect_attempts must be at least 1")
	}

	if err := v.ValidateLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	if c.Metrics.Enabled {
		if c.Metrics.Addr == "" {
			return fmt.Errorf("metrics: addr is required when metrics are enabled")
		}
		if err := v.ValidatePath(c.Metrics.Path); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	return nil
}
