package notify

import (
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire format published to external subscribers.
type Envelope struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Event     string    `json:"event"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

func newEnvelope(topic, event string, payload any) Envelope {
	return Envelope{
		ID:        uuid.NewString(),
		Topic:     topic,
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}
