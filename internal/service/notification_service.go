package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/fleet-helpdesk/internal/events"
)

// NotificationService writes an audit line for every helpdesk event that goes through the
// in-process dispatcher.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventHelpdeskCreated, n.handleHelpdeskCreated)
	n.dispatcher.Subscribe(events.EventHelpdeskUpdated, n.handleHelpdeskUpdated)
	n.dispatcher.Subscribe(events.EventHelpdeskMessageReceived, n.handleMessageReceived)
}

func (n *NotificationService) handleHelpdeskCreated(_ context.Context, event events.Event) error {
	fields := n.baseFields(event)
	if p, ok := event.Payload.(events.HelpdeskCreatedPayload); ok {
		fields = append(fields,
			zap.String("helpdesk_id", p.HelpdeskID),
			zap.String("ticket_number", p.TicketNumber),
			zap.String("client_id", p.ClientID),
			zap.String("priority", string(p.Priority)))
	}
	n.logger.Info("HelpdeskCreated", fields...)
	return nil
}

func (n *NotificationService) handleHelpdeskUpdated(_ context.Context, event events.Event) error {
	fields := n.baseFields(event)
	if p, ok := event.Payload.(events.HelpdeskUpdatedPayload); ok {
		fields = append(fields,
			zap.String("helpdesk_id", p.HelpdeskID),
			zap.String("status", string(p.Status)),
			zap.String("priority", string(p.Priority)))
		if p.AssignedUserID != nil {
			fields = append(fields, zap.String("assigned_user_id", *p.AssignedUserID))
		}
	}
	n.logger.Info("HelpdeskUpdated", fields...)
	return nil
}

func (n *NotificationService) handleMessageReceived(_ context.Context, event events.Event) error {
	fields := n.baseFields(event)
	if p, ok := event.Payload.(events.HelpdeskMessageReceivedPayload); ok {
		fields = append(fields,
			zap.String("helpdesk_id", p.HelpdeskID),
			zap.String("file_name", p.FileName),
			zap.String("author_id", p.AuthorID),
			zap.String("author_type", string(p.AuthorType)))
	}
	n.logger.Info("HelpdeskMessageReceived", fields...)
	return nil
}

func (n *NotificationService) baseFields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("topic", event.Topic),
		zap.Time("timestamp", event.Timestamp),
	}
}
