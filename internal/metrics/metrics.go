package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the realtime client
type Metrics struct {
	registry *prometheus.Registry

	// Connection metrics
	ConnectAttemptsTotal   prometheus.Counter
	ConnectFailuresTotal   prometheus.Counter
	ConnectionsOpenedTotal prometheus.Counter
	ConnectionsClosedTotal *prometheus.CounterVec
	ConnectionState        prometheus.Gauge

	// Reconnect metrics
	ReconnectsScheduledTotal prometheus.Counter
	ReconnectDelaySeconds    prometheus.Histogram
	RetriesExhaustedTotal    prometheus.Counter

	// Frame metrics
	FramesReceivedTotal  *prometheus.CounterVec
	FramesSentTotal      *prometheus.CounterVec
	MalformedFramesTotal prometheus.Counter
	InvalidPayloadsTotal *prometheus.CounterVec
	SendFailuresTotal    *prometheus.CounterVec
	HandlerErrorsTotal   prometheus.Counter
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		ConnectAttemptsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "realtime_connect_attempts_total",
				Help: "Total number of transport dials",
			},
		),
		ConnectFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "realtime_connect_failures_total",
				Help: "Total number of transport dials that failed",
			},
		),
		ConnectionsOpenedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "realtime_connections_opened_total",
				Help: "Total number of connections that reached the open state",
			},
		),
		ConnectionsClosedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realtime_connections_closed_total",
				Help: "Total number of connection terminations by reason",
			},
			[]string{"reason"},
		),
		ConnectionState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "realtime_connection_state",
				Help: "Current lifecycle state (0 idle, 1 connecting, 2 open, 3 closed)",
			},
		),

		ReconnectsScheduledTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "realtime_reconnects_scheduled_total",
				Help: "Total number of reconnect timers started",
			},
		),
		ReconnectDelaySeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "realtime_reconnect_delay_seconds",
				Help:    "Backoff delay of scheduled reconnects in seconds",
				Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32, 64},
			},
		),
		RetriesExhaustedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "realtime_retries_exhausted_total",
				Help: "Total number of times the reconnect budget ran out",
			},
		),

		FramesReceivedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realtime_frames_received_total",
				Help: "Total number of inbound frames by event type",
			},
			[]string{"type"},
		),
		FramesSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realtime_frames_sent_total",
				Help: "Total number of outbound frames by event type",
			},
			[]string{"type"},
		),
		MalformedFramesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "realtime_malformed_frames_total",
				Help: "Total number of inbound frames that failed to parse",
			},
		),
		InvalidPayloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realtime_invalid_payloads_total",
				Help: "Total number of dispatched frames whose payload did not match the event model",
			},
			[]string{"type"},
		),
		SendFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realtime_send_failures_total",
				Help: "Total number of failed sends by reason",
			},
			[]string{"reason"},
		),
		HandlerErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "realtime_handler_errors_total",
				Help: "Total number of handler invocations that failed or panicked",
			},
		),
	}

	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.ConnectAttemptsTotal)
	m.registry.MustRegister(m.ConnectFailuresTotal)
	m.registry.MustRegister(m.ConnectionsOpenedTotal)
	m.registry.MustRegister(m.ConnectionsClosedTotal)
	m.registry.MustRegister(m.ConnectionState)

	m.registry.MustRegister(m.ReconnectsScheduledTotal)
	m.registry.MustRegister(m.ReconnectDelaySeconds)
	m.registry.MustRegister(m.RetriesExhaustedTotal)

	m.registry.MustRegister(m.FramesReceivedTotal)
	m.registry.MustRegister(m.FramesSentTotal)
	m.registry.MustRegister(m.MalformedFramesTotal)
	m.registry.MustRegister(m.InvalidPayloadsTotal)
	m.registry.MustRegister(m.SendFailuresTotal)
	m.registry.MustRegister(m.HandlerErrorsTotal)
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
