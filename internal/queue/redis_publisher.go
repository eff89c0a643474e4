package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes payloads to a Redis Stream.
type RedisPublisher struct {
	client *redis.Client
	topic  string
}

// NewRedisPublisher creates a RedisPublisher for the given topic.
func NewRedisPublisher(client *redis.Client, topic string) *RedisPublisher {
	return &RedisPublisher{client: client, topic: topic}
}

// Publish adds a payload to the topic's Redis stream using XADD and
// returns the Redis stream entry ID.
func (p *RedisPublisher) Publish(ctx context.Context, payload []byte) (string, error) {
	entryID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(p.topic),
		Values: map[string]interface{}{
			"data": string(payload),
		},
	}).Result()
	if err != nil {
		MessagesPublishedTotal.WithLabelValues("rejected").Inc()
		return "", fmt.Errorf("xadd to stream %s: %w", streamKey(p.topic), err)
	}

	MessagesPublishedTotal.WithLabelValues("accepted").Inc()

	return entryID, nil
}
