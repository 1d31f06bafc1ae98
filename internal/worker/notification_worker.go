package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/fleet-helpdesk/internal/events"
	"github.com/spec-kit/fleet-helpdesk/internal/notify"
	"github.com/spec-kit/fleet-helpdesk/internal/service"
)

// StartNotificationWorker subscribes the audit handlers to dispatcher and returns the sink that
// feeds them.
func StartNotificationWorker(dispatcher events.Dispatcher, logger *zap.Logger) notify.Sink {
	if dispatcher == nil {
		return notify.Nop{}
	}
	service.NewNotificationService(dispatcher, logger).RegisterHandlers()
	logger.Info("notification worker started",
		zap.Strings("events", []string{
			string(events.EventHelpdeskCreated),
			string(events.EventHelpdeskUpdated),
			string(events.EventHelpdeskMessageReceived),
		}))
	return notify.NewDispatcher(dispatcher)
}
