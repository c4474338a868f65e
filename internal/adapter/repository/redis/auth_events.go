package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/leadhub/internal/domain"
)

// AuthEventChannel relays identity-provider session events over Redis Pub/Sub.
type AuthEventChannel struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

func NewAuthEventChannel(client *redis.Client, channel string, logger *slog.Logger) *AuthEventChannel {
	return &AuthEventChannel{
		client:  client,
		channel: channel,
		logger:  logger.With("component", "auth_events", "channel", channel),
	}
}

// Publish sends one event to every subscriber.
func (c *AuthEventChannel) Publish(ctx context.Context, event domain.AuthEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal auth event: %w", err)
	}
	if err := c.client.Publish(ctx, c.channel, data).Err(); err != nil {
		return fmt.Errorf("publish auth event: %w", err)
	}
	return nil
}

// Subscribe delivers decoded events to handle until ctx is done. Malformed
// messages are logged and dropped. ready, if non-nil, is closed once the
// subscription is confirmed by the server.
func (c *AuthEventChannel) Subscribe(ctx context.Context, ready chan<- struct{}, handle func(domain.AuthEvent)) error {
	sub := c.client.Subscribe(ctx, c.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", c.channel, err)
	}
	if ready != nil {
		close(ready)
	}
	c.logger.Info("Listening for auth events")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event domain.AuthEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				c.logger.Warn("Dropping malformed auth event", "error", err)
				continue
			}
			kind, err := domain.ParseAuthEventKind(string(event.Kind))
			if err != nil {
				c.logger.Warn("Dropping auth event", "error", err)
				continue
			}
			event.Kind = kind
			handle(event)
		}
	}
}
