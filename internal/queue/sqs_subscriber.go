package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SQSQuarantine retains poison payloads in a dedicated SQS queue.
type SQSQuarantine struct {
	client   sqsAPI
	queueURL string
}

// NewSQSQuarantine creates an SQSQuarantine targeting the given queue URL.
func NewSQSQuarantine(client sqsAPI, queueURL string) *SQSQuarantine {
	return &SQSQuarantine{client: client, queueURL: queueURL}
}

// Add sends a poison payload to the quarantine queue. The reason is
// prepended so operators can see why the payload was rejected without
// decoding it.
func (q *SQSQuarantine) Add(ctx context.Context, payload []byte, reason string) error {
	body := fmt.Sprintf("reason=%s\n%s", reason, payload)
	_, err := q.client.SendMessage(ctx, &sqsSendInput{
		QueueURL:    q.queueURL,
		MessageBody: body,
	})
	if err != nil {
		return fmt.Errorf("sqs quarantine send: %w", err)
	}
	return nil
}

// SQSSubscriber manages a pool of worker goroutines that consume and
// process payloads from an AWS SQS queue.
type SQSSubscriber struct {
	client     sqsAPI
	quarantine Quarantine
	handler    PayloadHandler
	config     Config
	log        zerolog.Logger
	wg         sync.WaitGroup
	cancel     context.CancelFunc
}

// NewSQSSubscriber creates an SQSSubscriber configured from the given Config.
func NewSQSSubscriber(
	client sqsAPI,
	quarantine Quarantine,
	handler PayloadHandler,
	cfg Config,
	log zerolog.Logger,
) *SQSSubscriber {
	if cfg.SQSWaitTime == 0 {
		cfg.SQSWaitTime = 20
	}
	if cfg.SQSVisTimeout == 0 {
		cfg.SQSVisTimeout = 30
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 4
	}
	if cfg.ProcessTimeout == 0 {
		cfg.ProcessTimeout = 30 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	return &SQSSubscriber{
		client:     client,
		quarantine: quarantine,
		handler:    handler,
		config:     cfg,
		log:        log,
	}
}

// Start launches the configured number of goroutines that long-poll the
// SQS queue.
func (s *SQSSubscriber) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	for i := range s.config.WorkerCount {
		s.wg.Add(1)
		go s.runWorker(ctx, fmt.Sprintf("sqs-worker-%d", i))
	}

	s.log.Info().
		Int("worker_count", s.config.WorkerCount).
		Str("queue_url", s.config.SQSQueueURL).
		Msg("sqs subscriber started")

	return nil
}

// Stop cancels the context and waits for workers to finish within the
// shutdown timeout.
func (s *SQSSubscriber) Stop(_ context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info().Msg("sqs subscriber stopped gracefully")
		return nil
	case <-time.After(s.config.ShutdownTimeout):
		s.log.Warn().Msg("sqs subscriber shutdown timed out")
		return fmt.Errorf("shutdown timed out after %s", s.config.ShutdownTimeout)
	}
}

// runWorker is the main loop for a single worker goroutine. It long-polls
// SQS and processes received messages one at a time.
func (s *SQSSubscriber) runWorker(ctx context.Context, workerName string) {
	defer s.wg.Done()

	s.log.Info().Str("worker", workerName).Msg("sqs worker started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Str("worker", workerName).Msg("sqs worker stopping")
			return
		default:
		}

		out, err := s.client.ReceiveMessage(ctx, &sqsReceiveInput{
			QueueURL:            s.config.SQSQueueURL,
			MaxNumberOfMessages: 1,
			WaitTimeSeconds:     s.config.SQSWaitTime,
			VisibilityTimeout:   s.config.SQSVisTimeout,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Error().Err(err).Str("worker", workerName).Msg("sqs receive error")
			continue
		}

		for _, sqsMsg := range out.Messages {
			s.processMessage(ctx, sqsMsg)
		}
	}
}

// processMessage invokes the handler for a single SQS message and deletes
// it regardless of outcome. A handler error wrapping ErrPoison
// additionally copies the payload to the quarantine queue.
func (s *SQSSubscriber) processMessage(ctx context.Context, sqsMsg sqsReceivedMessage) {
	start := time.Now()

	processCtx, cancel := context.WithTimeout(ctx, s.config.ProcessTimeout)
	defer cancel()

	err := s.handler.HandlePayload(processCtx, []byte(sqsMsg.Body))

	MessageProcessingDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		MessagesConsumedTotal.WithLabelValues("handled").Inc()
	case errors.Is(err, ErrPoison):
		s.log.Error().Err(err).Str("message_id", sqsMsg.MessageID).Msg("poison payload, quarantining")
		if qErr := s.quarantine.Add(ctx, []byte(sqsMsg.Body), err.Error()); qErr != nil {
			s.log.Error().Err(qErr).Str("message_id", sqsMsg.MessageID).Msg("failed to quarantine payload")
		}
		MessagesConsumedTotal.WithLabelValues("quarantined").Inc()
	default:
		s.log.Error().Err(err).Str("message_id", sqsMsg.MessageID).Msg("payload processing failed")
		MessagesConsumedTotal.WithLabelValues("failed").Inc()
	}

	// Delete regardless of outcome; delivery here is at most once.
	if delErr := s.client.DeleteMessage(ctx, &sqsDeleteInput{
		QueueURL:      s.config.SQSQueueURL,
		ReceiptHandle: sqsMsg.ReceiptHandle,
	}); delErr != nil {
		s.log.Error().Err(delErr).Str("message_id", sqsMsg.MessageID).Msg("failed to delete message")
	}
}
