package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis publishes envelopes on the pub/sub channel "<prefix>:<topic>". The websocket gateway in
// front of the browser subscribes to these channels.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis builds a sink over an existing client.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// Channel returns the pub/sub channel used for topic.
func (r *Redis) Channel(topic string) string {
	if r.prefix == "" {
		return topic
	}
	return r.prefix + ":" + topic
}

// Publish implements Sink.
func (r *Redis) Publish(ctx context.Context, topic, event string, payload any) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis sink not configured")
	}
	body, err := json.Marshal(newEnvelope(topic, event, payload))
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := r.client.Publish(ctx, r.Channel(topic), body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", r.Channel(topic), err)
	}
	return nil
}
