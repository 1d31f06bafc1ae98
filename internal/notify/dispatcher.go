package notify

import (
	"context"

	"github.com/spec-kit/fleet-helpdesk/internal/events"
)

// Dispatcher bridges published notifications into the in-process event dispatcher so local
// subscribers (audit logging) see the same stream as external ones.
type Dispatcher struct {
	dispatcher events.Dispatcher
}

// NewDispatcher wraps d.
func NewDispatcher(d events.Dispatcher) *Dispatcher {
	return &Dispatcher{dispatcher: d}
}

// Publish implements Sink.
func (d *Dispatcher) Publish(ctx context.Context, topic, event string, payload any) error {
	if d == nil || d.dispatcher == nil {
		return nil
	}
	env := newEnvelope(topic, event, payload)
	return d.dispatcher.Publish(ctx, events.Event{
		ID:        env.ID,
		Type:      events.EventType(event),
		Topic:     topic,
		Timestamp: env.Timestamp,
		Payload:   payload,
	})
}
