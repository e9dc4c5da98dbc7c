package realtime

import "time"

// State is the lifecycle state of the managed connection.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Status is the coarse connection status shown to users.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// StatusEvent is delivered to status handlers on every visible transition.
type StatusEvent struct {
	Status  Status
	Text    string
	Attempt int
	Max     int
	Err     error
}

// Stats is a point-in-time snapshot of the manager.
type Stats struct {
	SessionID      string
	ConnectionID   string
	State          State
	Attempts       int
	FramesSent     int64
	FramesReceived int64
	LastPong       time.Time
}
