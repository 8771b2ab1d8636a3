package realtime

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestHandlerSetKeepsOrderAndCancels(t *testing.T) {
	var h handlerSet[int]
	var calls []string

	h.add(func(v int) { calls = append(calls, "first") })
	second := h.add(func(v int) { calls = append(calls, "second") })
	h.add(func(v int) { calls = append(calls, "third") })

	h.emit(1)
	second.Cancel()
	h.emit(2)

	assert.Equal(t, calls, []string{"first", "second", "third", "first", "third"})
	assert.Equal(t, h.len(), 2)
}

func TestHandlerCanCancelItselfDuringEmit(t *testing.T) {
	var h handlerSet[int]
	count := 0
	var sub *Subscription
	sub = h.add(func(int) {
		count++
		sub.Cancel()
	})

	h.emit(1)
	h.emit(2)
	assert.Equal(t, count, 1)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, Connected.String(), "connected")
	assert.Equal(t, Reconnecting.String(), "reconnecting")
	assert.Equal(t, State(42).String(), "unknown")
}

func TestBackoff(t *testing.T) {
	b := newBackoff(10*time.Millisecond, 35*time.Millisecond)
	assert.Equal(t, b.next(), 10*time.Millisecond)
	assert.Equal(t, b.next(), 20*time.Millisecond)
	assert.Equal(t, b.next(), 35*time.Millisecond)
	assert.Equal(t, b.next(), 35*time.Millisecond)
	b.reset()
	assert.Equal(t, b.next(), 10*time.Millisecond)
}
