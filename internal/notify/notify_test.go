package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leleasley/lemedia/internal/media"
)

func subject() media.Subject {
	return media.Subject{CatalogID: 603, Type: media.TypeMovie, Title: "The Matrix"}
}

func TestNotifier_EmitDeliversByName(t *testing.T) {
	n := New(nil)
	defer n.Close()

	pending := n.Subscribe(RequestPending, 4)
	failed := n.Subscribe(RequestFailed, 4)

	n.Emit(NewEvent(RequestPending, "req-1", subject(), ""))

	select {
	case e := <-pending:
		assert.Equal(t, "req-1", e.RequestID)
		assert.False(t, e.OccurredAt.IsZero())
	case <-time.After(time.Second):
		t.Fatal("pending subscriber got nothing")
	}

	select {
	case e := <-failed:
		t.Fatalf("failed subscriber got %q", e.Name)
	default:
	}
}

func TestNotifier_SubscribeAll(t *testing.T) {
	n := New(nil)
	defer n.Close()

	all := n.SubscribeAll(4)

	n.Emit(NewEvent(RequestPending, "req-1", subject(), ""))
	n.Emit(NewEvent(RequestAvailable, "req-1", subject(), ""))

	assert.Equal(t, RequestPending, (<-all).Name)
	assert.Equal(t, RequestAvailable, (<-all).Name)
}

func TestNotifier_EmitNeverBlocks(t *testing.T) {
	n := New(nil)
	defer n.Close()

	ch := n.Subscribe(RequestPending, 1)

	done := make(chan struct{})
	go func() {
		// Nobody is draining ch; the second emit must drop, not block.
		n.Emit(NewEvent(RequestPending, "req-1", subject(), ""))
		n.Emit(NewEvent(RequestPending, "req-2", subject(), ""))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full subscriber channel")
	}

	e := <-ch
	assert.Equal(t, "req-1", e.RequestID)
	select {
	case e := <-ch:
		t.Fatalf("expected drop, got %q", e.RequestID)
	default:
	}
}

func TestNotifier_Unsubscribe(t *testing.T) {
	n := New(nil)
	defer n.Close()

	ch := n.Subscribe(RequestPending, 1)
	n.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open, "unsubscribed channel should be closed")

	// Emitting after unsubscribe must not panic.
	n.Emit(NewEvent(RequestPending, "req-1", subject(), ""))
}

func TestNotifier_EmitAfterClose(t *testing.T) {
	n := New(nil)
	ch := n.SubscribeAll(1)
	n.Close()

	n.Emit(NewEvent(RequestPending, "req-1", subject(), ""))

	_, open := <-ch
	assert.False(t, open)
}

func TestRunLogSubscriber_StopsOnCancel(t *testing.T) {
	n := New(nil)
	defer n.Close()

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		RunLogSubscriber(ctx, n, nil)
		close(stopped)
	}()

	n.Emit(NewEvent(RequestSubmitted, "req-1", subject(), "queued downstream"))
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("log subscriber did not stop on cancel")
	}
}

func TestNewEvent_Stamps(t *testing.T) {
	before := time.Now()
	e := NewEvent(RequestFailedExists, "req-9", subject(), "already exists downstream")
	require.False(t, e.OccurredAt.Before(before))
	assert.Equal(t, RequestFailedExists, e.Name)
	assert.Equal(t, int64(603), e.Subject.CatalogID)
}
