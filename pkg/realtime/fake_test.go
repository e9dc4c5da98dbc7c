package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var errFakeClosed = errors.New("use of closed connection")

type fakeConn struct {
	inbound chan []byte
	term    chan error
	closed  chan struct{}

	mu          sync.Mutex
	writes      [][]byte
	writeErr    error
	closeCode   int
	closeReason string
	closeOnce   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 16),
		term:    make(chan error, 1),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) Read() ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case err := <-c.term:
		return nil, err
	case <-c.closed:
		return nil, errFakeClosed
	}
}

func (c *fakeConn) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.closed:
		return errFakeClosed
	default:
	}
	if c.writeErr != nil {
		return c.writeErr
	}
	c.writes = append(c.writes, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closeCode = code
		c.closeReason = reason
		c.mu.Unlock()
		close(c.closed)
	})
	return nil
}

// push delivers a server frame.
func (c *fakeConn) push(frame string) {
	c.inbound <- []byte(frame)
}

// terminate simulates the server closing the transport with code.
func (c *fakeConn) terminate(code int) {
	c.term <- &CloseError{Code: code}
}

// fail simulates a transport error without a close handshake.
func (c *fakeConn) fail(err error) {
	c.term <- err
}

func (c *fakeConn) written() []Outbound {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Outbound, 0, len(c.writes))
	for _, w := range c.writes {
		var ev Outbound
		if err := json.Unmarshal(w, &ev); err == nil {
			out = append(out, ev)
		}
	}
	return out
}

func (c *fakeConn) closedWith() (int, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode, c.closeReason
}

type fakeDialer struct {
	mu    sync.Mutex
	fail  bool
	urls  []string
	conns []*fakeConn
}

func (d *fakeDialer) Dial(_ context.Context, url string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.urls = append(d.urls, url)
	if d.fail {
		return nil, errors.New("connection refused")
	}
	conn := newFakeConn()
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) setFail(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail = fail
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *fakeDialer) last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

type testHarness struct {
	manager *Manager
	dialer  *fakeDialer
	clock   *ManualClock
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	dialer := &fakeDialer{}
	clock := NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	m, err := NewManager(Config{
		BaseURL: "ws://hive.test/api/v1",
		Dialer:  dialer,
		Clock:   clock,
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = m.Disconnect() })

	return &testHarness{manager: m, dialer: dialer, clock: clock}
}

func (h *testHarness) waitAttempts(t *testing.T, attempts int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.manager.Stats().Attempts == attempts && h.manager.State() == StateConnecting
	}, 2*time.Second, 5*time.Millisecond)
}

func (h *testHarness) waitState(t *testing.T, state State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.manager.State() == state
	}, 2*time.Second, 5*time.Millisecond)
}
