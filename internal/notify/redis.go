package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisPublisher publishes events as JSON on a Redis pub/sub channel.
type RedisPublisher struct {
	rdb   *redis.Client
	topic string
}

func NewRedisPublisher(url, topic string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	return &RedisPublisher{rdb: redis.NewClient(opts), topic: topic}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := p.rdb.Publish(ctx, p.topic, b).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", p.topic, err)
	}
	return nil
}

func (p *RedisPublisher) Close() error { return p.rdb.Close() }

// NopPublisher drops every event. Used when no topic is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
