package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ArowuTest/draft-lottery-backend/internal/models"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisRelay publishes events on a Redis channel and replays everything received on that
// channel into the local hub, so observers connected to any instance see every event.
type RedisRelay struct {
	client  *redis.Client
	channel string
	local   *Hub
}

// NewRedisRelay creates a relay over an existing client
func NewRedisRelay(client *redis.Client, channel string, local *Hub) *RedisRelay {
	return &RedisRelay{client: client, channel: channel, local: local}
}

// Publish sends the event to every instance, including this one
func (r *RedisRelay) Publish(ctx context.Context, event models.LiveEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode live event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish live event: %w", err)
	}
	return nil
}

// Run forwards channel messages to the local hub until ctx is cancelled
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event models.LiveEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				zap.L().Warn("discarding malformed live event", zap.Error(err))
				continue
			}
			if err := r.local.deliver(ctx, event.SessionID, []byte(msg.Payload)); err != nil {
				return err
			}
		}
	}
}
