package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix      = "HIVE"
	configDirName  = ".hive"
	configFileName = "hive.json"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load reads the config file, when it exists, and applies HIVE_ environment
// overrides on top of the defaults, e.g. HIVE_REALTIME_TOKEN.
func (l *Loader) Load() (*Config, error) {
	configPath, err := l.resolvePath()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to file
func (l *Loader) Save(cfg *Config) error {
	configPath, err := l.resolvePath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("realtime", cfg.Realtime)
	v.Set("logging", cfg.Logging)
	v.Set("metrics", cfg.Metrics)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// The file holds the access token.
	if err := os.Chmod(configPath, 0600); err != nil {
		return fmt.Errorf("failed to restrict config file permissions: %w", err)
	}

	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	path, err := l.resolvePath()
	if err != nil {
		return ""
	}
	return path
}

func (l *Loader) resolvePath() (string, error) {
	if l.configPath != "" {
		return l.configPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, configDirName, configFileName), nil
}

// setDefaults registers every key so AutomaticEnv can override it even when
// no config file exists.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("realtime.base_url", cfg.Realtime.BaseURL)
	v.SetDefault("realtime.path", cfg.Realtime.Path)
	v.SetDefault("realtime.token", cfg.Realtime.Token)
	v.SetDefault("realtime.heartbeat_interval", cfg.Realtime.HeartbeatInterval)
	v.SetDefault("realtime.reconnect_base_delay", cfg.Realtime.ReconnectBaseDelay)
	v.SetDefault("realtime.max_reconnect_delay", cfg.Realtime.MaxReconnectDelay)
	v.SetDefault("realtime.max_reconnect_attempts", cfg.Realtime.MaxReconnectAttempts)
	v.SetDefault("realtime.handshake_timeout", cfg.Realtime.HandshakeTimeout)
	v.SetDefault("realtime.write_timeout", cfg.Realtime.WriteTimeout)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.pretty", cfg.Logging.Pretty)
	v.SetDefault("logging.redaction", cfg.Logging.Redaction)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.addr", cfg.Metrics.Addr)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}
