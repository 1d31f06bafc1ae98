// Package notify holds the realtime notification sinks the helpdesk publishes to.
// Delivery is best effort: callers log and drop publish errors.
package notify

import (
	"context"
	"errors"
)

// Sink publishes an event to the subscribers of a topic (a room, or the support queue).
type Sink interface {
	Publish(ctx context.Context, topic, event string, payload any) error
}

// Nop discards everything. It is the sink for contexts where realtime delivery is not wired.
type Nop struct{}

// Publish implements Sink.
func (Nop) Publish(context.Context, string, string, any) error { return nil }

// Multi fans a publish out to several sinks.
type Multi []Sink

// Publish delivers to every sink and joins the failures.
func (m Multi) Publish(ctx context.Context, topic, event string, payload any) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Publish(ctx, topic, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TicketRoom is the topic clients and agents watching one ticket subscribe to.
func TicketRoom(helpdeskID string) string {
	return "helpdesk:" + helpdeskID
}
