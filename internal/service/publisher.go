package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/fleet-helpdesk/internal/events"
	"github.com/spec-kit/fleet-helpdesk/internal/notify"
)

// DropRecorder counts notifications that could not be delivered.
type DropRecorder interface {
	NotificationDropped(topic string)
}

// publisher is the best-effort front of a notify.Sink: failures are logged and counted, never
// returned to the operation that triggered them.
type publisher struct {
	sink   notify.Sink
	drops  DropRecorder
	logger *zap.Logger
}

func newPublisher(sink notify.Sink, drops DropRecorder, logger *zap.Logger) *publisher {
	if sink == nil {
		sink = notify.Nop{}
	}
	return &publisher{sink: sink, drops: drops, logger: logger}
}

func (p *publisher) publish(ctx context.Context, topic string, event events.EventType, payload any) {
	if err := p.sink.Publish(ctx, topic, string(event), payload); err != nil {
		p.logger.Warn("notification dropped",
			zap.String("topic", topic),
			zap.String("event", string(event)),
			zap.Error(err))
		if p.drops != nil {
			p.drops.NotificationDropped(topic)
		}
	}
}
