package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel events are published on.
const DefaultChannel = "riskpool.events"

// RedisSink publishes events as JSON on a Redis channel.
type RedisSink struct {
	client  *redis.Client
	channel string
}

// NewRedisSink constructs the sink. An empty channel uses DefaultChannel.
func NewRedisSink(client *redis.Client, channel string) *RedisSink {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Publish(ctx context.Context, ev Event) error {
	if s == nil || s.client == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.channel, payload).Err()
}
