package realtime

import "sync"

// Handler receives dispatched inbound events. A returned error is logged;
// it never stops dispatch to the remaining handlers.
type Handler func(ev Event) error

// StatusHandler receives connection status transitions.
type StatusHandler func(ev StatusEvent)

// Subscription is the handle returned when a handler is registered.
// Closing it deregisters the handler.
type Subscription struct {
	id       uint64
	kind     EventKind
	handler  Handler
	status   StatusHandler
	registry *handlerRegistry
}

// Kind returns the kind the subscription is filtered on.
func (s *Subscription) Kind() EventKind {
	return s.kind
}

// Close deregisters the handler. It is safe to call more than once.
func (s *Subscription) Close() error {
	if s == nil || s.registry == nil {
		return nil
	}
	s.registry.remove(s)
	return nil
}

func (s *Subscription) matches(kind EventKind) bool {
	return s.handler != nil && (s.kind == KindAll || s.kind == kind)
}

// handlerRegistry keeps subscriptions in registration order.
type handlerRegistry struct {
	mu      sync.RWMutex
	nextID  uint64
	entries []*Subscription
}

func newHandlerRegistry() *handlerRegistry {
	return &handlerRegistry{}
}

func (r *handlerRegistry) add(sub *Subscription) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	sub.id = r.nextID
	sub.registry = r
	r.entries = append(r.entries, sub)
	return sub
}

func (r *handlerRegistry) remove(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, entry := range r.entries {
		if entry == sub {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return
		}
	}
}

// snapshot returns the current entries; dispatch iterates the copy so
// handlers may subscribe or unsubscribe while being called.
func (r *handlerRegistry) snapshot() []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Subscription, len(r.entries))
	copy(out, r.entries)
	return out
}
