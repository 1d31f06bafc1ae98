package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/fleet-helpdesk/internal/events"
)

type failingSink struct{ err error }

func (f failingSink) Publish(context.Context, string, string, any) error { return f.err }

type recordingSink struct{ topics []string }

func (r *recordingSink) Publish(_ context.Context, topic, _ string, _ any) error {
	r.topics = append(r.topics, topic)
	return nil
}

func TestRedisSinkPublishesEnvelope(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sink := NewRedis(client, "fleet")
	sub := client.Subscribe(ctx, sink.Channel("helpdesk:support"))
	t.Cleanup(func() { _ = sub.Close() })
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := sink.Publish(ctx, "helpdesk:support", "helpdesk_created", map[string]string{"helpdeskId": "h1"}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		if msg.Channel != "fleet:helpdesk:support" {
			t.Fatalf("unexpected channel %s", msg.Channel)
		}
		var env struct {
			Topic   string            `json:"topic"`
			Event   string            `json:"event"`
			Payload map[string]string `json:"payload"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		if env.Event != "helpdesk_created" || env.Topic != "helpdesk:support" || env.Payload["helpdeskId"] != "h1" {
			t.Fatalf("unexpected envelope %+v", env)
		}
	case <-ctx.Done():
		t.Fatalf("no message received")
	}
}

func TestRedisSinkReportsFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	if err := NewRedis(client, "").Publish(context.Background(), "room", "evt", nil); err == nil {
		t.Fatalf("expected publish error with redis down")
	}
}

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	rec := &recordingSink{}
	err := Multi{failingSink{err: boom}, nil, rec}.Publish(context.Background(), "room", "evt", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(rec.topics) != 1 || rec.topics[0] != "room" {
		t.Fatalf("later sinks must still receive the event, got %v", rec.topics)
	}
}

func TestDispatcherSinkBridgesEvents(t *testing.T) {
	d := events.NewInMemoryDispatcher()
	var got events.Event
	d.Subscribe(events.EventHelpdeskMessageReceived, func(_ context.Context, e events.Event) error {
		got = e
		return nil
	})

	sink := NewDispatcher(d)
	if err := sink.Publish(context.Background(), TicketRoom("h1"), string(events.EventHelpdeskMessageReceived), "p"); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if got.Topic != "helpdesk:h1" || got.Payload != "p" || got.ID == "" {
		t.Fatalf("unexpected bridged event %+v", got)
	}
}

func TestNopSink(t *testing.T) {
	if err := (Nop{}).Publish(context.Background(), "t", "e", nil); err != nil {
		t.Fatalf("Nop returned error: %v", err)
	}
}
