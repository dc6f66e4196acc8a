// Package bus – Redis implementation.
package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// Compile-time interface check.
var _ Bus = (*Redis)(nil)

// Redis publishes updates via Redis pub/sub on channel "room:{id}:ai".
type Redis struct {
	client *redis.Client
	log    zerolog.Logger
}

// NewRedis wraps an existing Redis client. The caller owns the client's
// lifecycle (ping at startup, close at shutdown).
func NewRedis(client *redis.Client, log zerolog.Logger) *Redis {
	return &Redis{client: client, log: log}
}

// Channel returns the pub/sub channel name for a room.
func Channel(roomID string) string {
	return "room:" + roomID + ":ai"
}

// Publish implements Bus.
func (r *Redis) Publish(ctx context.Context, roomID string, update StatusUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("bus: marshal update: %w", err)
	}
	channel := Channel(roomID)
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		r.log.Error().
			Err(err).
			Str("channel", channel).
			Int("payload_size", len(payload)).
			Msg("redis publish failed")
		return fmt.Errorf("bus: publish to %s: %w", channel, err)
	}
	return nil
}
