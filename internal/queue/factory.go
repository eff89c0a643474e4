package queue

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewQueue creates a Publisher, Subscriber, and Quarantine based on the
// given configuration. The handler defines the payload processing logic
// used by the Subscriber.
func NewQueue(
	cfg Config,
	handler PayloadHandler,
	log zerolog.Logger,
) (Publisher, Subscriber, Quarantine, error) {
	switch cfg.Type {
	case "redis", "":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		publisher := NewRedisPublisher(client, cfg.Topic)
		quarantine := NewRedisQuarantine(client, cfg.Topic)
		subscriber := NewRedisSubscriber(client, quarantine, handler, cfg, log)

		return publisher, subscriber, quarantine, nil

	case "sqs":
		sqsClient, err := newAWSSQSClient(cfg.SQSRegion)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create sqs client: %w", err)
		}
		publisher := NewSQSPublisher(sqsClient, cfg.SQSQueueURL, log)
		quarantine := NewSQSQuarantine(sqsClient, cfg.SQSQuarantineURL)
		subscriber := NewSQSSubscriber(sqsClient, quarantine, handler, cfg, log)

		return publisher, subscriber, quarantine, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown queue type: %s", cfg.Type)
	}
}
