package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisSubscriber manages a pool of worker goroutines that consume and
// process payloads from a Redis Stream using consumer groups. Each worker
// processes its deliveries sequentially; ordering holds only within a
// single worker's reads, never across the group.
type RedisSubscriber struct {
	client     *redis.Client
	quarantine Quarantine
	handler    PayloadHandler
	config     Config
	log        zerolog.Logger
	wg         sync.WaitGroup
	cancel     context.CancelFunc
}

// NewRedisSubscriber creates a RedisSubscriber for the configured topic
// and consumer group. The handler defines payload processing logic.
func NewRedisSubscriber(
	client *redis.Client,
	quarantine Quarantine,
	handler PayloadHandler,
	cfg Config,
	log zerolog.Logger,
) *RedisSubscriber {
	return &RedisSubscriber{
		client:     client,
		quarantine: quarantine,
		handler:    handler,
		config:     cfg,
		log:        log,
	}
}

// CreateConsumerGroup creates the consumer group for the topic's stream.
// If the stream or group already exists, the error is ignored.
func (s *RedisSubscriber) CreateConsumerGroup(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, streamKey(s.config.Topic), s.config.GroupName, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("create consumer group %s on stream %s: %w", s.config.GroupName, streamKey(s.config.Topic), err)
	}
	return nil
}

// Start ensures the consumer group exists and launches the configured
// number of worker goroutines.
func (s *RedisSubscriber) Start(ctx context.Context) error {
	if err := s.CreateConsumerGroup(ctx); err != nil {
		return err
	}

	ctx, s.cancel = context.WithCancel(ctx)

	for i := range s.config.WorkerCount {
		s.wg.Add(1)
		go s.runWorker(ctx, fmt.Sprintf("worker-%d", i))
	}

	s.log.Info().
		Int("worker_count", s.config.WorkerCount).
		Str("topic", s.config.Topic).
		Msg("redis subscriber started")

	return nil
}

// Stop signals all workers to stop and waits up to the configured
// shutdown timeout for them to finish processing.
func (s *RedisSubscriber) Stop(_ context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info().Msg("redis subscriber stopped gracefully")
		return nil
	case <-time.After(s.config.ShutdownTimeout):
		s.log.Warn().Msg("redis subscriber shutdown timed out")
		return fmt.Errorf("shutdown timed out after %s", s.config.ShutdownTimeout)
	}
}

// runWorker is the main loop for a single worker goroutine.
func (s *RedisSubscriber) runWorker(ctx context.Context, consumerName string) {
	defer s.wg.Done()

	s.log.Info().Str("consumer", consumerName).Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Str("consumer", consumerName).Msg("worker stopping")
			return
		default:
		}

		xMsgs, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.config.GroupName,
			Consumer: consumerName,
			Streams:  []string{streamKey(s.config.Topic), ">"},
			Count:    1,
			Block:    s.config.BlockTimeout,
		}).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			s.log.Error().Err(err).Str("consumer", consumerName).Msg("xreadgroup error")
			continue
		}

		for _, stream := range xMsgs {
			for _, xMsg := range stream.Messages {
				s.processMessage(ctx, consumerName, xMsg)
			}
		}
	}
}

// processMessage invokes the handler for a single stream entry and
// acknowledges it regardless of outcome. A handler error wrapping
// ErrPoison additionally moves the payload to the quarantine; the
// payload cannot become well-formed on retry, so it is never redelivered.
func (s *RedisSubscriber) processMessage(ctx context.Context, consumerName string, xMsg redis.XMessage) {
	start := time.Now()

	data, ok := xMsg.Values["data"].(string)
	if !ok {
		s.log.Error().Str("entry_id", xMsg.ID).Msg("invalid message data type")
		s.ack(ctx, xMsg.ID)
		return
	}

	processCtx, cancel := context.WithTimeout(ctx, s.config.ProcessTimeout)
	defer cancel()

	err := s.handler.HandlePayload(processCtx, []byte(data))

	MessageProcessingDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		MessagesConsumedTotal.WithLabelValues("handled").Inc()
	case errors.Is(err, ErrPoison):
		s.log.Error().Err(err).Str("entry_id", xMsg.ID).Msg("poison payload, quarantining")
		if qErr := s.quarantine.Add(ctx, []byte(data), err.Error()); qErr != nil {
			s.log.Error().Err(qErr).Str("entry_id", xMsg.ID).Msg("failed to quarantine payload")
		}
		MessagesConsumedTotal.WithLabelValues("quarantined").Inc()
	default:
		s.log.Error().Err(err).Str("entry_id", xMsg.ID).Msg("payload processing failed")
		MessagesConsumedTotal.WithLabelValues("failed").Inc()
	}

	// Acknowledge regardless of outcome; delivery here is at most once.
	s.ack(ctx, xMsg.ID)
}

func (s *RedisSubscriber) ack(ctx context.Context, entryID string) {
	err := s.client.XAck(ctx, streamKey(s.config.Topic), s.config.GroupName, entryID).Err()
	if err != nil {
		s.log.Error().Err(err).Str("entry_id", entryID).Msg("failed to acknowledge message")
	}
}
