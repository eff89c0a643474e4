package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQuarantine retains poison payloads in a side stream. Quarantined
// entries are kept for inspection only; nothing ever reads them back
// into the delivery path.
type RedisQuarantine struct {
	client *redis.Client
	topic  string
}

// NewRedisQuarantine creates a RedisQuarantine for the given topic.
func NewRedisQuarantine(client *redis.Client, topic string) *RedisQuarantine {
	return &RedisQuarantine{client: client, topic: topic}
}

// Add stores a poison payload with its failure reason and arrival time.
func (q *RedisQuarantine) Add(ctx context.Context, payload []byte, reason string) error {
	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: quarantineStreamKey(q.topic),
		Values: map[string]interface{}{
			"data":     string(payload),
			"reason":   reason,
			"moved_at": time.Now().UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd to quarantine stream %s: %w", quarantineStreamKey(q.topic), err)
	}
	return nil
}
