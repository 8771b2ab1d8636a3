package realtime

import "sync"

// State is the connection state of a Client.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Subscription is returned by every On* registration. Cancel removes the
// callback; it is safe to call more than once.
type Subscription struct {
	once   sync.Once
	cancel func()
}

func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// handlerSet keeps callbacks in registration order.
type handlerSet[T any] struct {
	mu      sync.Mutex
	nextID  uint64
	entries []handlerEntry[T]
}

type handlerEntry[T any] struct {
	id uint64
	fn func(T)
}

func (h *handlerSet[T]) add(fn func(T)) *Subscription {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.entries = append(h.entries, handlerEntry[T]{id: id, fn: fn})
	h.mu.Unlock()

	return &Subscription{cancel: func() { h.remove(id) }}
}

func (h *handlerSet[T]) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, e := range h.entries {
		if e.id == id {
			h.entries = append(h.entries[:i:i], h.entries[i+1:]...)
			return
		}
	}
}

func (h *handlerSet[T]) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// emit calls every callback registered at the time of the call. Callbacks
// run without the lock held so they may register or cancel.
func (h *handlerSet[T]) emit(v T) {
	h.mu.Lock()
	fns := make([]func(T), len(h.entries))
	for i, e := range h.entries {
		fns[i] = e.fn
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
