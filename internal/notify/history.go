package notify

import (
	"context"
	"sync"
)

const defaultHistorySize = 256

// History retains the most recent events in a fixed-size ring so the
// API can show what happened without a persistent event store.
type History struct {
	mu     sync.Mutex
	buf    []Event
	next   int
	filled bool
}

// NewHistory creates a history holding up to capacity events.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = defaultHistorySize
	}
	return &History{buf: make([]Event, capacity)}
}

// Record stores one event, evicting the oldest when full.
func (h *History) Record(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf[h.next] = e
	h.next++
	if h.next == len(h.buf) {
		h.next = 0
		h.filled = true
	}
}

// Recent returns up to limit events, newest first. Limit <= 0 returns
// everything retained.
func (h *History) Recent(limit int) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	size := h.next
	if h.filled {
		size = len(h.buf)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]Event, 0, limit)
	for i := 1; i <= limit; i++ {
		out = append(out, h.buf[(h.next-i+len(h.buf))%len(h.buf)])
	}
	return out
}

// RunRecorder copies every event into the history until ctx is
// cancelled or the notifier closes. Meant to run as a daemon worker.
func RunRecorder(ctx context.Context, n *Notifier, h *History) {
	ch := n.SubscribeAll(64)
	for {
		select {
		case <-ctx.Done():
			n.Unsubscribe(ch)
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			h.Record(e)
		}
	}
}
