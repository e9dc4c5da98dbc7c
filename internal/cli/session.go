package cli

import (
	"fmt"

	"github.com/harun/hive/internal/config"
	"github.com/harun/hive/internal/logger"
	"github.com/harun/hive/internal/metrics"
	"github.com/harun/hive/pkg/realtime"
	"github.com/spf13/cobra"
)

// session is the composition root shared by the commands that talk to the
// server: config, logger, metrics and one realtime manager.
type session struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	manager *realtime.Manager
}

func newSession(cmd *cobra.Command, token string) (*session, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if token != "" {
		cfg.Realtime.Token = token
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.NewValidator().ValidateToken(cfg.Realtime.Token); err != nil {
		return nil, fmt.Errorf("%w (set realtime.token, HIVE_REALTIME_TOKEN or --token)", err)
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		Output:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	m := metrics.NewMetrics()

	manager, err := realtime.NewManager(realtime.Config{
		BaseURL:              cfg.Realtime.BaseURL,
		Path:                 cfg.Realtime.Path,
		HeartbeatInterval:    cfg.Realtime.HeartbeatInterval,
		ReconnectBaseDelay:   cfg.Realtime.ReconnectBaseDelay,
		MaxReconnectDelay:    cfg.Realtime.MaxReconnectDelay,
		MaxReconnectAttempts: cfg.Realtime.MaxReconnectAttempts,
		HandshakeTimeout:     cfg.Realtime.HandshakeTimeout,
		WriteTimeout:         cfg.Realtime.WriteTimeout,
		Metrics:              m,
		Logger:               log.Zerolog(),
	})
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create realtime manager: %w", err)
	}

	return &session{cfg: cfg, log: log, metrics: m, manager: manager}, nil
}

func (s *session) close() {
	if err := s.manager.Disconnect(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to close realtime connection")
	}
	s.log.Close()
}
