package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got []string
	d.Subscribe(EventHelpdeskCreated, func(_ context.Context, e Event) error {
		got = append(got, "a:"+e.ID)
		return nil
	})
	d.Subscribe(EventHelpdeskCreated, func(_ context.Context, e Event) error {
		got = append(got, "b:"+e.ID)
		return nil
	})
	d.Subscribe(EventHelpdeskUpdated, func(_ context.Context, e Event) error {
		got = append(got, "other")
		return nil
	})

	if err := d.Publish(context.Background(), Event{ID: "1", Type: EventHelpdeskCreated}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if len(got) != 2 || got[0] != "a:1" || got[1] != "b:1" {
		t.Fatalf("unexpected deliveries %v", got)
	}
}

func TestDispatcherContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")
	called := false
	d.Subscribe(EventHelpdeskMessageReceived, func(context.Context, Event) error { return boom })
	d.Subscribe(EventHelpdeskMessageReceived, func(context.Context, Event) error {
		called = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventHelpdeskMessageReceived})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined handler error, got %v", err)
	}
	if !called {
		t.Fatalf("second handler should still run")
	}
}

func TestDispatcherStampsMissingTimestamp(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got Event
	d.Subscribe(EventHelpdeskCreated, func(_ context.Context, e Event) error {
		got = e
		return nil
	})

	if err := d.Publish(context.Background(), Event{ID: "1", Type: EventHelpdeskCreated}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if got.Timestamp.IsZero() || got.Timestamp.Location() != time.UTC {
		t.Fatalf("expected a UTC timestamp, got %v", got.Timestamp)
	}
}

func TestDispatcherStopsOnCancelledContext(t *testing.T) {
	d := NewInMemoryDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	d.Subscribe(EventHelpdeskUpdated, func(context.Context, Event) error {
		calls++
		cancel()
		return nil
	})
	d.Subscribe(EventHelpdeskUpdated, func(context.Context, Event) error {
		calls++
		return nil
	})

	err := d.Publish(ctx, Event{Type: EventHelpdeskUpdated})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected delivery to stop after cancel, got %d calls", calls)
	}
}
