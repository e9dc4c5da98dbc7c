package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()

	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}

	if m.Registry() == nil {
		t.Error("Registry is nil")
	}

	if m.ConnectAttemptsTotal == nil || m.ConnectionsClosedTotal == nil || m.ConnectionState == nil {
		t.Error("connection metrics are nil")
	}
	if m.ReconnectsScheduledTotal == nil || m.ReconnectDelaySeconds == nil || m.RetriesExhaustedTotal == nil {
		t.Error("reconnect metrics are nil")
	}
	if m.FramesReceivedTotal == nil || m.FramesSentTotal == nil || m.MalformedFramesTotal == nil {
		t.Error("frame metrics are nil")
	}
}

func TestRecorder(t *testing.T) {
	m := NewMetrics()

	m.RecordConnectAttempt()
	m.RecordConnectAttempt()
	m.RecordConnectFailure()
	m.RecordOpen()
	m.RecordClose("abnormal")
	m.RecordClose("client")
	m.RecordClose("client")
	m.SetState(2)
	m.RecordReconnectScheduled(2 * time.Second)
	m.RecordRetriesExhausted()
	m.RecordFrameReceived("chat_message")
	m.RecordFrameSent("ping")
	m.RecordFrameSent("ping")
	m.RecordMalformedFrame()
	m.RecordInvalidPayload("chat_message")
	m.RecordSendFailure("not_connected")
	m.RecordHandlerError()

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"connect attempts", testutil.ToFloat64(m.ConnectAttemptsTotal), 2},
		{"connect failures", testutil.ToFloat64(m.ConnectFailuresTotal), 1},
		{"opened", testutil.ToFloat64(m.ConnectionsOpenedTotal), 1},
		{"closed abnormal", testutil.ToFloat64(m.ConnectionsClosedTotal.WithLabelValues("abnormal")), 1},
		{"closed client", testutil.ToFloat64(m.ConnectionsClosedTotal.WithLabelValues("client")), 2},
		{"state", testutil.ToFloat64(m.ConnectionState), 2},
		{"reconnects", testutil.ToFloat64(m.ReconnectsScheduledTotal), 1},
		{"exhausted", testutil.ToFloat64(m.RetriesExhaustedTotal), 1},
		{"received", testutil.ToFloat64(m.FramesReceivedTotal.WithLabelValues("chat_message")), 1},
		{"sent", testutil.ToFloat64(m.FramesSentTotal.WithLabelValues("ping")), 2},
		{"malformed", testutil.ToFloat64(m.MalformedFramesTotal), 1},
		{"invalid payloads", testutil.ToFloat64(m.InvalidPayloadsTotal.WithLabelValues("chat_message")), 1},
		{"send failures", testutil.ToFloat64(m.SendFailuresTotal.WithLabelValues("not_connected")), 1},
		{"handler errors", testutil.ToFloat64(m.HandlerErrorsTotal), 1},
	}

	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	if n := testutil.CollectAndCount(m.ReconnectDelaySeconds); n != 1 {
		t.Errorf("reconnect delay histogram series = %d, want 1", n)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	m.RecordConnectAttempt()
	m.RecordConnectFailure()
	m.RecordOpen()
	m.RecordClose("normal")
	m.SetState(1)
	m.RecordReconnectScheduled(time.Second)
	m.RecordRetriesExhausted()
	m.RecordFrameReceived("pong")
	m.RecordFrameSent("ping")
	m.RecordMalformedFrame()
	m.RecordInvalidPayload("other")
	m.RecordSendFailure("write")
	m.RecordHandlerError()
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.RecordOpen()
	m.RecordFrameSent("ping")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	m.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	body, _ := io.ReadAll(w.Body)
	for _, name := range []string{
		"realtime_connections_opened_total 1",
		`realtime_frames_sent_total{type="ping"} 1`,
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %q", name)
		}
	}
}
