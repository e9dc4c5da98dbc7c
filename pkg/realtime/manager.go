package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/harun/hive/internal/metrics"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// Manager owns one logical realtime connection: it dials, keeps the
// connection alive with heartbeats, reconnects with exponential backoff after
// abnormal closes and dispatches inbound events to registered handlers.
type Manager struct {
	baseURL              string
	path                 string
	heartbeatInterval    time.Duration
	reconnectBaseDelay   time.Duration
	maxReconnectDelay    time.Duration
	maxReconnectAttempts int
	handshakeTimeout     time.Duration

	dialer    Dialer
	clock     Clock
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	sessionID string
	handlers  *handlerRegistry

	mu        sync.Mutex
	state     State
	token     string
	attempts  int
	gen       uint64
	dialing   bool
	conn      Conn
	connID    string
	heartbeat Timer
	reconnect Timer
	lastPong  time.Time

	writeMu        sync.Mutex
	framesSent     atomic.Int64
	framesReceived atomic.Int64
}

// Config holds manager configuration
type Config struct {
	// BaseURL is the resolved server address, e.g. ws://host:8000/api/v1.
	BaseURL string
	// Path is appended to BaseURL. Defaults to /realtime.
	Path string

	HeartbeatInterval    time.Duration
	ReconnectBaseDelay   time.Duration
	MaxReconnectDelay    time.Duration
	MaxReconnectAttempts int
	HandshakeTimeout     time.Duration
	WriteTimeout         time.Duration

	Dialer  Dialer
	Clock   Clock
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

// Defaults applied by NewManager when a field is left zero.
const (
	DefaultPath                 = "/realtime"
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultReconnectBaseDelay   = time.Second
	DefaultMaxReconnectDelay    = 30 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultHandshakeTimeout     = 10 * time.Second
	DefaultWriteTimeout         = 10 * time.Second

	disconnectReason = "User initiated disconnect"
)

// NewManager creates a new Manager
func NewManager(cfg Config) (*Manager, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if cfg.MaxReconnectAttempts < 0 {
		return nil, fmt.Errorf("invalid max reconnect attempts: %d", cfg.MaxReconnectAttempts)
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.ReconnectBaseDelay <= 0 {
		cfg.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if cfg.MaxReconnectDelay <= 0 {
		cfg.MaxReconnectDelay = DefaultMaxReconnectDelay
	}
	if cfg.MaxReconnectAttempts == 0 {
		cfg.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &WebSocketDialer{WriteTimeout: cfg.WriteTimeout}
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}

	sessionID := uuid.New().String()

	m := &Manager{
		baseURL:              cfg.BaseURL,
		path:                 cfg.Path,
		heartbeatInterval:    cfg.HeartbeatInterval,
		reconnectBaseDelay:   cfg.ReconnectBaseDelay,
		maxReconnectDelay:    cfg.MaxReconnectDelay,
		maxReconnectAttempts: cfg.MaxReconnectAttempts,
		handshakeTimeout:     cfg.HandshakeTimeout,
		dialer:               cfg.Dialer,
		clock:                cfg.Clock,
		metrics:              cfg.Metrics,
		logger:               cfg.Logger.With().Str("component", "realtime").Str("session_id", sessionID).Logger(),
		sessionID:            sessionID,
		handlers:             newHandlerRegistry(),
		state:                StateIdle,
	}
	m.metrics.SetState(int(StateIdle))

	return m, nil
}

// Connect opens the realtime connection using token as the credential. It is
// a no-op while a dial is in flight or the connection is open. Connect blocks
// only for the dial; a failed dial is returned as ErrTransportUnavailable and
// also counts as an abnormal close, so reconnects continue in the background.
// Calling Connect while a reconnect is pending cancels the pending timer and
// dials immediately.
func (m *Manager) Connect(ctx context.Context, token string) error {
	m.mu.Lock()
	if m.dialing || m.state == StateOpen {
		m.mu.Unlock()
		return nil
	}
	m.stopReconnectLocked()
	if m.state == StateIdle || m.state == StateClosed {
		m.attempts = 0
	}
	m.token = token
	gen := m.beginDialLocked()
	m.mu.Unlock()

	m.notifyStatus(StatusEvent{Status: StatusConnecting, Text: "Connecting...", Max: m.maxReconnectAttempts})

	return m.dial(ctx, gen, token)
}

// Disconnect closes the connection with the normal close code and cancels
// every pending timer. It is idempotent.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	prev := m.state
	conn := m.conn
	connID := m.connID

	m.gen++
	m.stopHeartbeatLocked()
	m.stopReconnectLocked()
	m.conn = nil
	m.connID = ""
	m.dialing = false
	m.setStateLocked(StateClosed)
	m.mu.Unlock()

	if prev == StateIdle || prev == StateClosed {
		return nil
	}

	var err error
	if conn != nil {
		m.metrics.RecordClose("client")
		if closeErr := conn.Close(CloseNormal, disconnectReason); closeErr != nil {
			err = fmt.Errorf("failed to close connection: %w", closeErr)
		}
	}

	m.logger.Info().Str("connection_id", connID).Msg("Realtime connection closed by client")
	m.notifyStatus(StatusEvent{Status: StatusDisconnected, Text: "Disconnected", Max: m.maxReconnectAttempts})

	return err
}

// Send writes ev to the open connection.
func (m *Manager) Send(ev Outbound) error {
	m.mu.Lock()
	conn := m.conn
	open := m.state == StateOpen
	m.mu.Unlock()

	if !open || conn == nil {
		m.metrics.RecordSendFailure("not_connected")
		m.logger.Warn().Str("type", ev.Type).Msg("Realtime connection not open, cannot send message")
		return ErrNotConnected
	}

	data, err := Encode(ev)
	if err != nil {
		m.metrics.RecordSendFailure("encode")
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	m.writeMu.Lock()
	err = conn.Write(data)
	m.writeMu.Unlock()
	if err != nil {
		m.metrics.RecordSendFailure("write")
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	m.framesSent.Add(1)
	m.metrics.RecordFrameSent(metricType(ev.Type))
	return nil
}

// SendHeartbeat sends a ping carrying the current time in milliseconds.
func (m *Manager) SendHeartbeat() error {
	return m.Send(Outbound{
		Type:    TypePing,
		Payload: map[string]interface{}{"timestamp": m.clock.Now().UnixMilli()},
	})
}

// SendChatMessage sends a chat line.
func (m *Manager) SendChatMessage(message string) error {
	return m.Send(Outbound{
		Type:    TypeChatMessage,
		Payload: map[string]interface{}{"message": message},
	})
}

// AddHandler registers h for events of kind. Use KindAll to receive every
// dispatched event. Handlers are called in registration order.
func (m *Manager) AddHandler(kind EventKind, h Handler) *Subscription {
	if kind == "" {
		kind = KindAll
	}
	return m.handlers.add(&Subscription{kind: kind, handler: h})
}

// OnStatus registers h for connection status transitions.
func (m *Manager) OnStatus(h StatusHandler) *Subscription {
	return m.handlers.add(&Subscription{status: h})
}

// RemoveHandler deregisters sub. Unknown or already removed subscriptions
// are ignored.
func (m *Manager) RemoveHandler(sub *Subscription) {
	if sub == nil {
		return
	}
	m.handlers.remove(sub)
}

// IsConnected reports whether the connection is open.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateOpen
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stats returns a snapshot of the manager.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		SessionID:      m.sessionID,
		ConnectionID:   m.connID,
		State:          m.state,
		Attempts:       m.attempts,
		FramesSent:     m.framesSent.Load(),
		FramesReceived: m.framesReceived.Load(),
		LastPong:       m.lastPong,
	}
}

// endpoint builds <base><path>?token=<token>. http(s) schemes are mapped to
// ws(s).
func (m *Manager) endpoint(token string) (string, error) {
	u, err := url.Parse(m.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(m.path, "/")
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// beginDialLocked supersedes any previous connection attempt.
func (m *Manager) beginDialLocked() uint64 {
	m.gen++
	m.dialing = true
	m.setStateLocked(StateConnecting)
	return m.gen
}

func (m *Manager) dial(ctx context.Context, gen uint64, token string) error {
	target, err := m.endpoint(token)
	if err != nil {
		m.handleTermination(gen, CloseAbnormal, err, "Failed to connect")
		return fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}

	m.metrics.RecordConnectAttempt()

	dialCtx, cancel := context.WithTimeout(ctx, m.handshakeTimeout)
	conn, err := m.dialer.Dial(dialCtx, target)
	cancel()
	if err != nil {
		m.metrics.RecordConnectFailure()
		m.logger.Warn().Err(err).Msg("Failed to open realtime connection")
		m.handleTermination(gen, CloseAbnormal, err, "Failed to connect")
		return fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}

	connID, err := gonanoid.New()
	if err != nil {
		connID = uuid.New().String()
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		m.logger.Debug().Str("connection_id", connID).Msg("Dropping superseded realtime connection")
		_ = conn.Close(CloseNormal, "Superseded")
		return nil
	}
	m.dialing = false
	m.conn = conn
	m.connID = connID
	m.attempts = 0
	m.setStateLocked(StateOpen)
	m.scheduleHeartbeatLocked(gen)
	m.mu.Unlock()

	m.metrics.RecordOpen()
	m.logger.Info().Str("connection_id", connID).Msg("Realtime connection opened")
	m.notifyStatus(StatusEvent{Status: StatusConnected, Text: "Connected", Max: m.maxReconnectAttempts})

	go m.readLoop(gen, conn)

	if err := m.SendHeartbeat(); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to send initial heartbeat")
	}

	return nil
}

func (m *Manager) readLoop(gen uint64, conn Conn) {
	for {
		data, err := conn.Read()
		if err != nil {
			text := ""
			var ce *CloseError
			if !errors.As(err, &ce) {
				text = "Connection error"
			}
			m.handleTermination(gen, closeCode(err), err, text)
			return
		}
		if !m.isCurrent(gen) {
			return
		}
		m.handleFrame(data)
	}
}

func (m *Manager) isCurrent(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.gen
}

func (m *Manager) handleFrame(data []byte) {
	ev, err := Decode(data)
	if err != nil {
		m.metrics.RecordMalformedFrame()
		m.logger.Warn().Err(err).Int("bytes", len(data)).Msg("Failed to parse realtime message")
		return
	}
	ev.ReceivedAt = m.clock.Now()

	m.framesReceived.Add(1)
	m.metrics.RecordFrameReceived(metricType(ev.Type))
	if ev.Invalid != nil {
		m.metrics.RecordInvalidPayload(metricType(ev.Type))
		m.logger.Debug().Err(ev.Invalid).Str("type", ev.Type).Msg("Realtime payload does not match its event model")
	}

	if ev.Kind() == KindPong {
		m.mu.Lock()
		m.lastPong = ev.ReceivedAt
		m.mu.Unlock()
		return
	}

	m.dispatch(ev)
}

// dispatch calls every matching handler in registration order. Each call is
// isolated so a failing handler does not affect the others.
func (m *Manager) dispatch(ev Event) {
	kind := ev.Kind()
	for _, sub := range m.handlers.snapshot() {
		if !sub.matches(kind) {
			continue
		}
		m.invoke(sub, ev)
	}
}

func (m *Manager) invoke(sub *Subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			m.metrics.RecordHandlerError()
			m.logger.Error().
				Interface("panic", r).
				Uint64("subscription", sub.id).
				Str("type", ev.Type).
				Msg("Realtime handler panicked")
		}
	}()

	if err := sub.handler(ev); err != nil {
		m.metrics.RecordHandlerError()
		m.logger.Warn().
			Err(err).
			Uint64("subscription", sub.id).
			Str("type", ev.Type).
			Msg("Realtime handler failed")
	}
}

func (m *Manager) notifyStatus(ev StatusEvent) {
	for _, sub := range m.handlers.snapshot() {
		if sub.status == nil {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.metrics.RecordHandlerError()
					m.logger.Error().Interface("panic", r).Uint64("subscription", sub.id).Msg("Status handler panicked")
				}
			}()
			sub.status(ev)
		}()
	}
}

// handleTermination reacts to a closed or failed transport belonging to gen.
func (m *Manager) handleTermination(gen uint64, code int, cause error, text string) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	connID := m.connID
	wasOpen := m.conn != nil
	m.stopHeartbeatLocked()
	m.conn = nil
	m.connID = ""
	m.dialing = false

	if code == CloseNormal {
		m.setStateLocked(StateClosed)
		m.mu.Unlock()

		m.metrics.RecordClose("normal")
		m.logger.Info().Str("connection_id", connID).Msg("Realtime connection closed normally")
		m.notifyStatus(StatusEvent{Status: StatusDisconnected, Text: "Disconnected", Max: m.maxReconnectAttempts})
		return
	}

	if wasOpen {
		m.metrics.RecordClose("abnormal")
	}
	if text == "" {
		text = "Disconnected"
	}

	if m.attempts >= m.maxReconnectAttempts {
		m.setStateLocked(StateClosed)
		attempts := m.attempts
		m.mu.Unlock()

		m.metrics.RecordRetriesExhausted()
		m.logger.Error().
			Err(cause).
			Int("code", code).
			Int("attempts", attempts).
			Msg("Realtime reconnect attempts exhausted")
		m.notifyStatus(StatusEvent{
			Status:  StatusDisconnected,
			Text:    text,
			Attempt: attempts,
			Max:     m.maxReconnectAttempts,
			Err:     fmt.Errorf("%w: %v", ErrRetriesExhausted, cause),
		})
		return
	}

	m.attempts++
	attempt := m.attempts
	delay := reconnectDelay(m.reconnectBaseDelay, m.maxReconnectDelay, attempt)
	m.setStateLocked(StateConnecting)
	m.reconnect = m.clock.AfterFunc(delay, func() {
		m.fireReconnect(gen)
	})
	m.mu.Unlock()

	m.metrics.RecordReconnectScheduled(delay)
	m.logger.Warn().
		Err(cause).
		Int("code", code).
		Int("attempt", attempt).
		Dur("delay", delay).
		Msg("Realtime connection lost, scheduling reconnect")
	m.notifyStatus(StatusEvent{Status: StatusDisconnected, Text: text, Attempt: attempt, Max: m.maxReconnectAttempts, Err: cause})
	m.notifyStatus(StatusEvent{
		Status:  StatusConnecting,
		Text:    fmt.Sprintf("Reconnecting... (%d/%d)", attempt, m.maxReconnectAttempts),
		Attempt: attempt,
		Max:     m.maxReconnectAttempts,
	})
}

func (m *Manager) fireReconnect(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.reconnect == nil {
		m.mu.Unlock()
		return
	}
	m.reconnect = nil
	token := m.token
	next := m.beginDialLocked()
	m.mu.Unlock()

	// dial logs failures and schedules the next attempt itself.
	_ = m.dial(context.Background(), next, token)
}

func (m *Manager) scheduleHeartbeatLocked(gen uint64) {
	m.heartbeat = m.clock.AfterFunc(m.heartbeatInterval, func() {
		m.heartbeatTick(gen)
	})
}

func (m *Manager) heartbeatTick(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateOpen {
		m.mu.Unlock()
		return
	}
	m.scheduleHeartbeatLocked(gen)
	m.mu.Unlock()

	if err := m.SendHeartbeat(); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to send heartbeat")
	}
}

func (m *Manager) stopHeartbeatLocked() {
	if m.heartbeat != nil {
		m.heartbeat.Stop()
		m.heartbeat = nil
	}
}

func (m *Manager) stopReconnectLocked() {
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
}

func (m *Manager) setStateLocked(state State) {
	m.state = state
	m.metrics.SetState(int(state))
}

// metricType bounds label cardinality to the known event types.
func metricType(eventType string) string {
	if eventType == TypePing || EventKind(eventType).Known() {
		return eventType
	}
	return "other"
}
