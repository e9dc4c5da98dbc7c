package realtime

import (
	"errors"
	"fmt"
)

var (
	// ErrTransportUnavailable is returned when the transport could not be opened.
	ErrTransportUnavailable = errors.New("transport unavailable")

	// ErrMalformedMessage marks an inbound frame that could not be parsed.
	// It is logged and counted, never delivered to handlers.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrSendFailed is returned when an outbound event could not be written.
	ErrSendFailed = errors.New("send failed")

	// ErrNotConnected is returned by Send when the connection is not open.
	ErrNotConnected = fmt.Errorf("%w: not connected", ErrSendFailed)

	// ErrRetriesExhausted is reported through the status handlers when the
	// reconnect budget has been used up.
	ErrRetriesExhausted = errors.New("reconnect attempts exhausted")
)

// CloseError describes how a transport was terminated.
type CloseError struct {
	Code   int
	Reason string
}

// Error implements the error interface
func (e *CloseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("connection closed (code %d)", e.Code)
	}
	return fmt.Sprintf("connection closed (code %d): %s", e.Code, e.Reason)
}

// Close codes used by the manager.
const (
	CloseNormal   = 1000
	CloseAbnormal = 1006
)

// closeCode extracts the close code carried by err. Errors that are not a
// CloseError count as abnormal termination.
func closeCode(err error) int {
	var ce *CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CloseAbnormal
}
