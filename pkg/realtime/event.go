package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// EventKind names an inbound event type. Known kinds have a typed variant;
// any other wire type is still addressable by its name.
type EventKind string

const (
	// KindAll subscribes a handler to every dispatched event.
	KindAll EventKind = "*"

	KindPong                 EventKind = "pong"
	KindChatMessage          EventKind = "chat_message"
	KindTaskStatusUpdate     EventKind = "task_status_update"
	KindTaskAssignmentUpdate EventKind = "task_assignment_update"
	KindServerError          EventKind = "error"
)

// Outbound type names.
const (
	TypePing        = "ping"
	TypeChatMessage = "chat_message"
)

// Known reports whether k has a typed variant.
func (k EventKind) Known() bool {
	switch k {
	case KindPong, KindChatMessage, KindTaskStatusUpdate, KindTaskAssignmentUpdate, KindServerError:
		return true
	}
	return false
}

// Outbound is an event written to the server.
type Outbound struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Event is a parsed inbound frame.
type Event struct {
	Type string
	// Payload is the frame's payload object, or the whole frame when the
	// server sent the event flat.
	Payload json.RawMessage
	// Body is the typed variant. Known kinds whose payload does not match
	// the modelled fields arrive as UnknownEvent with Invalid set.
	Body       InboundEvent
	Invalid    error
	ReceivedAt time.Time
}

// Kind returns the event kind derived from the wire type.
func (e Event) Kind() EventKind {
	return EventKind(e.Type)
}

// InboundEvent is the closed set of inbound variants. Handlers switch on the
// concrete type; UnknownEvent covers types this client does not model.
type InboundEvent interface {
	Kind() EventKind
	inbound()
}

// PongEvent acknowledges a heartbeat.
type PongEvent struct {
	Timestamp int64 `json:"timestamp"`
}

// ChatMessageEvent is a chat line broadcast by the server.
type ChatMessageEvent struct {
	Message string `json:"message"`
	UserID  string `json:"user_id,omitempty"`
}

// TaskStatusUpdateEvent reports a task moving to a new status.
type TaskStatusUpdateEvent struct {
	TaskID     string `json:"task_id"`
	NewStatus  string `json:"new_status"`
	AssigneeID string `json:"assignee_id,omitempty"`
}

// TaskAssignmentUpdateEvent reports a task being (re)assigned.
type TaskAssignmentUpdateEvent struct {
	TaskID     string `json:"task_id"`
	AssigneeID string `json:"assignee_id,omitempty"`
	AssignedBy string `json:"assigned_by,omitempty"`
}

// ServerErrorEvent carries an error reported by the server.
type ServerErrorEvent struct {
	Message string `json:"message"`
}

// UnknownEvent is any type without a typed variant.
type UnknownEvent struct {
	Type string
}

func (PongEvent) Kind() EventKind                 { return KindPong }
func (ChatMessageEvent) Kind() EventKind          { return KindChatMessage }
func (TaskStatusUpdateEvent) Kind() EventKind     { return KindTaskStatusUpdate }
func (TaskAssignmentUpdateEvent) Kind() EventKind { return KindTaskAssignmentUpdate }
func (ServerErrorEvent) Kind() EventKind          { return KindServerError }
func (e UnknownEvent) Kind() EventKind            { return EventKind(e.Type) }

func (PongEvent) inbound()                 {}
func (ChatMessageEvent) inbound()          {}
func (TaskStatusUpdateEvent) inbound()     {}
func (TaskAssignmentUpdateEvent) inbound() {}
func (ServerErrorEvent) inbound()          {}
func (UnknownEvent) inbound()              {}

// Encode serializes an outbound event as a JSON text frame.
func Encode(ev Outbound) ([]byte, error) {
	if ev.Type == "" {
		return nil, fmt.Errorf("event type is required")
	}
	if ev.Payload == nil {
		ev.Payload = map[string]interface{}{}
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", ev.Type, err)
	}
	return data, nil
}

// Decode parses an inbound frame. The HIVE backend sends some events flat,
// without a payload object; for those the whole frame is used as the payload.
// Only frames that are not JSON objects or carry no type wrap
// ErrMalformedMessage. A known kind that fails validation still decodes, with
// Body set to UnknownEvent and the reason in Invalid.
func Decode(data []byte) (Event, error) {
	var frame struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if frame.Type == "" {
		return Event{}, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}

	body := frame.Payload
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		body = append(json.RawMessage(nil), data...)
	}

	ev := Event{Type: frame.Type, Payload: body}

	kind := EventKind(frame.Type)
	if !kind.Known() {
		ev.Body = UnknownEvent{Type: frame.Type}
		return ev, nil
	}

	variant, err := decodeVariant(kind, body)
	if err != nil {
		ev.Body = UnknownEvent{Type: frame.Type}
		ev.Invalid = err
		return ev, nil
	}

	ev.Body = variant
	return ev, nil
}

func decodeVariant(kind EventKind, body []byte) (InboundEvent, error) {
	if err := validatePayload(kind, body); err != nil {
		return nil, err
	}

	var (
		variant InboundEvent
		err     error
	)
	switch kind {
	case KindPong:
		var v PongEvent
		err = json.Unmarshal(body, &v)
		variant = v
	case KindChatMessage:
		var v ChatMessageEvent
		err = json.Unmarshal(body, &v)
		variant = v
	case KindTaskStatusUpdate:
		var v TaskStatusUpdateEvent
		err = json.Unmarshal(body, &v)
		variant = v
	case KindTaskAssignmentUpdate:
		var v TaskAssignmentUpdateEvent
		err = json.Unmarshal(body, &v)
		variant = v
	case KindServerError:
		var v ServerErrorEvent
		err = json.Unmarshal(body, &v)
		variant = v
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", kind, err)
	}
	return variant, nil
}
