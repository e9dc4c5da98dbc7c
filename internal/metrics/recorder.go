package metrics

import "time"

// The Record helpers are safe to call on a nil *Metrics so components can
// run without instrumentation.

func (m *Metrics) RecordConnectAttempt() {
	if m == nil {
		return
	}
	m.ConnectAttemptsTotal.Inc()
}

func (m *Metrics) RecordConnectFailure() {
	if m == nil {
		return
	}
	m.ConnectFailuresTotal.Inc()
}

func (m *Metrics) RecordOpen() {
	if m == nil {
		return
	}
	m.ConnectionsOpenedTotal.Inc()
}

// RecordClose counts a termination; reason is "normal", "abnormal" or "client".
func (m *Metrics) RecordClose(reason string) {
	if m == nil {
		return
	}
	m.ConnectionsClosedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetState(state int) {
	if m == nil {
		return
	}
	m.ConnectionState.Set(float64(state))
}

func (m *Metrics) RecordReconnectScheduled(delay time.Duration) {
	if m == nil {
		return
	}
	m.ReconnectsScheduledTotal.Inc()
	m.ReconnectDelaySeconds.Observe(delay.Seconds())
}

func (m *Metrics) RecordRetriesExhausted() {
	if m == nil {
		return
	}
	m.RetriesExhaustedTotal.Inc()
}

func (m *Metrics) RecordFrameReceived(eventType string) {
	if m == nil {
		return
	}
	m.FramesReceivedTotal.WithLabelValues(eventType).Inc()
}

func (m *Metrics) RecordFrameSent(eventType string) {
	if m == nil {
		return
	}
	m.FramesSentTotal.WithLabelValues(eventType).Inc()
}

func (m *Metrics) RecordMalformedFrame() {
	if m == nil {
		return
	}
	m.MalformedFramesTotal.Inc()
}

// RecordInvalidPayload counts a frame that was dispatched without its typed
// variant.
func (m *Metrics) RecordInvalidPayload(eventType string) {
	if m == nil {
		return
	}
	m.InvalidPayloadsTotal.WithLabelValues(eventType).Inc()
}

// RecordSendFailure counts a failed send; reason is "not_connected",
// "encode" or "write".
func (m *Metrics) RecordSendFailure(reason string) {
	if m == nil {
		return
	}
	m.SendFailuresTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordHandlerError() {
	if m == nil {
		return
	}
	m.HandlerErrorsTotal.Inc()
}
