// Package queue connects the dispatcher and the delivery worker through
// a message broker. Payloads are opaque byte slices; the envelope codec
// that produces and consumes them lives elsewhere.
//
// The contract is at-least-once on publish and at-most-once on consumer
// acknowledgment: a message is acknowledged after a single handler
// invocation regardless of the handler's outcome. No retry policy exists
// at this layer.
package queue

import (
	"context"
	"errors"
)

// ErrPoison is returned (wrapped) by handlers to signal that a payload
// will never process successfully regardless of redelivery. Subscribers
// move such payloads to the quarantine instead of dropping them silently.
var ErrPoison = errors.New("queue: poison payload")

// Publisher submits payloads to the broker.
type Publisher interface {
	// Publish submits a payload and blocks until the broker acknowledges
	// or rejects it. It returns the broker-assigned entry ID. Callers that
	// must not block run Publish on a separate goroutine and reconcile
	// the outcome asynchronously.
	Publish(ctx context.Context, payload []byte) (string, error)
}

// Subscriber consumes payloads from the broker.
// Start begins consuming in background goroutines.
// Stop gracefully shuts down consumers.
type Subscriber interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Quarantine retains poison payloads for inspection. Quarantined
// payloads are never redelivered to a handler.
type Quarantine interface {
	Add(ctx context.Context, payload []byte, reason string) error
}

// PayloadHandler processes a single broker payload. The subscriber
// acknowledges the message after the call returns, whatever the result;
// a returned error wrapping ErrPoison additionally routes the payload to
// the quarantine.
type PayloadHandler interface {
	HandlePayload(ctx context.Context, payload []byte) error
}
