package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/harun/hive/pkg/realtime"
	"github.com/spf13/cobra"
)

var (
	listenToken string
	listenTypes []string
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Stream realtime events as JSON lines",
	Long: `Connect to the realtime endpoint and print every event as one JSON
object per line on stdout until interrupted, the server closes the session or
the reconnect attempts run out. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().StringVar(&listenToken, "token", "", "access token (overrides realtime.token)")
	listenCmd.Flags().StringSliceVar(&listenTypes, "type", nil, "only print these event types (repeatable)")
	rootCmd.AddCommand(listenCmd)
}

// eventLine is the JSON shape written per received event.
type eventLine struct {
	Type       string          `json:"type"`
	ReceivedAt time.Time       `json:"received_at"`
	Payload    json.RawMessage `json:"payload"`
}

func runListen(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newSession(cmd, listenToken)
	if err != nil {
		return err
	}
	defer s.close()

	log := s.log.Component("cli")

	if s.cfg.Metrics.Enabled {
		shutdown := serveMetrics(s)
		defer shutdown()
	}

	var outMu sync.Mutex
	enc := json.NewEncoder(cmd.OutOrStdout())
	printEvent := func(ev realtime.Event) error {
		outMu.Lock()
		defer outMu.Unlock()
		return enc.Encode(eventLine{Type: ev.Type, ReceivedAt: ev.ReceivedAt, Payload: ev.Payload})
	}

	if len(listenTypes) == 0 {
		s.manager.AddHandler(realtime.KindAll, printEvent)
	} else {
		for _, t := range listenTypes {
			s.manager.AddHandler(realtime.EventKind(t), printEvent)
		}
	}

	done := make(chan error, 1)
	s.manager.OnStatus(func(ev realtime.StatusEvent) {
		entry := log.Info()
		if ev.Err != nil {
			entry = log.Warn().Err(ev.Err)
		}
		entry.Str("status", string(ev.Status)).Int("attempt", ev.Attempt).Msg(ev.Text)

		if ev.Status == realtime.StatusDisconnected && s.manager.State() == realtime.StateClosed {
			select {
			case done <- ev.Err:
			default:
			}
		}
	})

	if err := s.manager.Connect(ctx, s.cfg.Realtime.Token); err != nil {
		log.Warn().Err(err).Msg("Initial connection failed, retrying in background")
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("Interrupted, closing realtime session")
		return nil
	case err := <-done:
		if errors.Is(err, realtime.ErrRetriesExhausted) {
			return fmt.Errorf("realtime session ended: %w", err)
		}
		return nil
	}
}

// serveMetrics exposes the session metrics over HTTP and returns a shutdown
// func.
func serveMetrics(s *session) func() {
	log := s.log.Component("metrics")

	mux := http.NewServeMux()
	mux.Handle(s.cfg.Metrics.Path, s.metrics.Handler())

	srv := &http.Server{
		Addr:              s.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("path", s.cfg.Metrics.Path).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
