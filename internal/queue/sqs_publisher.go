package queue

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// SQSPublisher publishes payloads to an AWS SQS queue.
type SQSPublisher struct {
	client   sqsAPI
	queueURL string
	log      zerolog.Logger
}

// NewSQSPublisher creates a new SQSPublisher targeting the given queue URL.
func NewSQSPublisher(client sqsAPI, queueURL string, log zerolog.Logger) *SQSPublisher {
	return &SQSPublisher{
		client:   client,
		queueURL: queueURL,
		log:      log,
	}
}

// Publish sends the payload via SQS SendMessage and returns the SQS
// message ID.
func (p *SQSPublisher) Publish(ctx context.Context, payload []byte) (string, error) {
	out, err := p.client.SendMessage(ctx, &sqsSendInput{
		QueueURL:    p.queueURL,
		MessageBody: string(payload),
	})
	if err != nil {
		MessagesPublishedTotal.WithLabelValues("rejected").Inc()
		return "", fmt.Errorf("sqs send message: %w", err)
	}

	MessagesPublishedTotal.WithLabelValues("accepted").Inc()

	return out.MessageID, nil
}
