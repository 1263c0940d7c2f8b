// Package notify fans request lifecycle events out to subscribers.
// Emission is fire-and-forget: a slow or absent subscriber must never
// block or fail the admission path that produced the event.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/leleasley/lemedia/internal/media"
)

// Event names emitted by admission and the availability sweeper.
const (
	RequestPending      = "request_pending"
	RequestSubmitted    = "request_submitted"
	RequestFailed       = "request_failed"
	RequestFailedExists = "request_failed_exists"
	RequestAvailable    = "request_available"
)

// Event is one request lifecycle notification.
type Event struct {
	Name       string        `json:"name"`
	RequestID  string        `json:"request_id"`
	Subject    media.Subject `json:"subject"`
	Message    string        `json:"message,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// NewEvent builds an event stamped with the current time.
func NewEvent(name, requestID string, subject media.Subject, message string) Event {
	return Event{
		Name:       name,
		RequestID:  requestID,
		Subject:    subject,
		Message:    message,
		OccurredAt: time.Now(),
	}
}

// Notifier delivers events to subscriber channels without blocking.
type Notifier struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event // event name -> channels
	allSubs     []chan Event
	log         *slog.Logger
	closed      bool
}

// New creates a Notifier.
func New(log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		subscribers: make(map[string][]chan Event),
		log:         log.With("component", "notify"),
	}
}

// Emit delivers the event to every matching subscriber. Full channels
// drop the event with a warning; Emit never blocks and never fails.
// The lock is held across the sends so Close cannot close a channel
// mid-delivery; the sends themselves never block.
func (n *Notifier) Emit(e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}

	deliver := func(ch chan Event) {
		select {
		case ch <- e:
		default:
			n.log.Warn("subscriber channel full, dropping event",
				"event", e.Name, "request_id", e.RequestID)
		}
	}
	for _, ch := range n.subscribers[e.Name] {
		deliver(ch)
	}
	for _, ch := range n.allSubs {
		deliver(ch)
	}
}

// Subscribe returns a channel receiving events with the given name.
func (n *Notifier) Subscribe(name string, buffer int) <-chan Event {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan Event, buffer)
	n.subscribers[name] = append(n.subscribers[name], ch)
	return ch
}

// SubscribeAll returns a channel receiving every event.
func (n *Notifier) SubscribeAll(buffer int) <-chan Event {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan Event, buffer)
	n.allSubs = append(n.allSubs, ch)
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (n *Notifier) Unsubscribe(ch <-chan Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for name, subs := range n.subscribers {
		for i, sub := range subs {
			if sub == ch {
				n.subscribers[name] = append(subs[:i], subs[i+1:]...)
				close(sub)
				return
			}
		}
	}
	for i, sub := range n.allSubs {
		if sub == ch {
			n.allSubs = append(n.allSubs[:i], n.allSubs[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close shuts the notifier down and closes all subscriber channels.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	n.closed = true

	for _, subs := range n.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	n.subscribers = nil
	for _, ch := range n.allSubs {
		close(ch)
	}
	n.allSubs = nil
}

// RunLogSubscriber consumes every event and writes it to the log.
// Blocks until ctx is cancelled or the notifier closes; meant to run as
// a daemon worker so operators see the request lifecycle without any
// external notification agent configured.
func RunLogSubscriber(ctx context.Context, n *Notifier, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "notify")

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
			log.Info("request event",
				"event", e.Name,
				"request_id", e.RequestID,
				"media_type", e.Subject.Type,
				"catalog_id", e.Subject.CatalogID,
				"title", e.Subject.Title,
				"message", e.Message)
		}
	}
}
