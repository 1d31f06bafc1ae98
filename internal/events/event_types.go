package events

import (
	"time"

	"github.com/spec-kit/fleet-helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventHelpdeskCreated         EventType = "helpdesk_created"
	EventHelpdeskUpdated         EventType = "helpdesk_updated"
	EventHelpdeskMessageReceived EventType = "helpdesk_message_received"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// HelpdeskCreatedPayload is sent to the support topic when a client opens a ticket.
type HelpdeskCreatedPayload struct {
	HelpdeskID   string                  `json:"helpdeskId"`
	TicketNumber string                  `json:"ticketNumber"`
	ClientID     string                  `json:"clientId"`
	Title        string                  `json:"title"`
	Category     domain.HelpdeskCategory `json:"category"`
	Priority     domain.HelpdeskPriority `json:"priority"`
}

// HelpdeskUpdatedPayload is sent to the ticket room after an update.
type HelpdeskUpdatedPayload struct {
	HelpdeskID     string                  `json:"helpdeskId"`
	Status         domain.HelpdeskStatus   `json:"status"`
	Priority       domain.HelpdeskPriority `json:"priority"`
	AssignedUserID *string                 `json:"assignedUserId,omitempty"`
}

// HelpdeskMessageReceivedPayload is sent to the ticket room after a message is stored.
type HelpdeskMessageReceivedPayload struct {
	HelpdeskID  string                   `json:"helpdeskId"`
	FileName    string                   `json:"fileName"`
	AuthorID    string                   `json:"authorId"`
	AuthorType  domain.MessageAuthorType `json:"authorType"`
	BodyPreview string                   `json:"bodyPreview"`
	CreatedAt   string                   `json:"createdAt"`
}
