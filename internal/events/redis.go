package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes events on "<prefix>:<type>" pub/sub channels.
type RedisPublisher struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisPublisher(client redis.UniversalClient, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = "flightsurety"
	}
	return &RedisPublisher{client: client, prefix: prefix}
}

// Channel returns the channel events of type t are published on.
func (p *RedisPublisher) Channel(t Type) string {
	return p.prefix + ":" + string(t)
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, p.Channel(event.Type), value).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}
