// Package notify pushes session lifecycle events to the real-time channel.
// Delivery is fire-and-forget: a lost event never fails the caller.
package notify

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const sessionStream = "sessions:events"

type Publisher struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewPublisher(client *redis.Client, log zerolog.Logger) *Publisher {
	return &Publisher{client: client, log: log}
}

// SessionInvalidated emits {event:"session-invalidated"} for the user. Errors
// are logged and swallowed.
func (p *Publisher) SessionInvalidated(userID string, reason string) {
	if p.client == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: sessionStream,
		Values: map[string]any{
			"event":        "session-invalidated",
			"reason":       reason,
			"targetUserId": userID,
		},
	}).Err()
	if err != nil {
		p.log.Warn().Err(err).Str("user_id", userID).Msg("session event publish failed")
	}
}
