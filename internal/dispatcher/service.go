// Package dispatcher accepts message submissions, stages attachments in
// object storage, records delivery state, and hands envelopes to the
// broker for background delivery.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sungwon/message-relay/internal/blobstore"
	"github.com/sungwon/message-relay/internal/envelope"
	"github.com/sungwon/message-relay/internal/locator"
	"github.com/sungwon/message-relay/internal/queue"
	"github.com/sungwon/message-relay/internal/storage"
)

var (
	// ErrInvalidInput is returned when a submission fails validation.
	ErrInvalidInput = errors.New("dispatcher: invalid submission")
	// ErrAttachmentUpload is returned when staging the attachment in
	// object storage fails. Nothing is recorded or published in that case.
	ErrAttachmentUpload = errors.New("dispatcher: attachment upload failed")
)

const defaultPublishTimeout = 30 * time.Second

// Submission is one message handed in by a caller.
type Submission struct {
	FirstName      string
	LastName       string
	Recipient      string
	Subject        string
	Body           string
	AttachmentName string
	Attachment     []byte
}

func (s *Submission) hasAttachment() bool {
	return s.AttachmentName != "" || len(s.Attachment) > 0
}

// Receipt acknowledges an accepted submission. The record starts in
// pending; delivery outcome is observed later through the status tracker.
type Receipt struct {
	RecordID uuid.UUID
	Status   storage.Status
}

// Service implements the submission pipeline: stage attachment, create
// a pending record, then publish the envelope off the request path.
type Service struct {
	blobs          blobstore.Store
	bucket         string
	records        storage.RecordStore
	publisher      queue.Publisher
	publishTimeout time.Duration
	log            zerolog.Logger

	wg sync.WaitGroup
}

// NewService creates a dispatcher Service. Attachments are staged into
// the given bucket.
func NewService(blobs blobstore.Store, bucket string, records storage.RecordStore, publisher queue.Publisher, log zerolog.Logger) *Service {
	return &Service{
		blobs:          blobs,
		bucket:         bucket,
		records:        records,
		publisher:      publisher,
		publishTimeout: defaultPublishTimeout,
		log:            log,
	}
}

// Submit runs the submission pipeline and returns as soon as the record
// exists and the publish has been handed off. The returned receipt is
// always in status pending; broker acceptance is reconciled into the
// record asynchronously.
func (s *Service) Submit(ctx context.Context, sub *Submission) (Receipt, error) {
	if err := validate(sub); err != nil {
		return Receipt{}, err
	}

	var attachmentLocator string
	if sub.hasAttachment() {
		if err := s.blobs.Put(ctx, s.bucket, sub.AttachmentName, sub.Attachment); err != nil {
			s.log.Error().Err(err).
				Str("bucket", s.bucket).
				Str("key", sub.AttachmentName).
				Msg("attachment staging failed, submission rejected")
			return Receipt{}, fmt.Errorf("%w: %v", ErrAttachmentUpload, err)
		}
		tok, err := locator.Encode(s.bucket, sub.AttachmentName)
		if err != nil {
			return Receipt{}, fmt.Errorf("%w: %v", ErrAttachmentUpload, err)
		}
		attachmentLocator = tok
	}

	rec, err := s.records.CreateRecord(ctx, storage.CreateRecordParams{
		FirstName:          sub.FirstName,
		LastName:           sub.LastName,
		Recipient:          sub.Recipient,
		Subject:            sub.Subject,
		Body:               sub.Body,
		AttachmentFileName: sub.AttachmentName,
		AttachmentLocator:  attachmentLocator,
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("persist delivery record: %w", err)
	}

	payload, err := envelope.Encode(&envelope.Envelope{
		Recipient:          sub.Recipient,
		Subject:            sub.Subject,
		Body:               sub.Body,
		AttachmentFileName: sub.AttachmentName,
		AttachmentLocator:  attachmentLocator,
		RecordID:           rec.ID.String(),
	})
	if err != nil {
		s.reconcile(rec.ID, storage.StatusPublishFailed, err.Error())
		return Receipt{}, fmt.Errorf("encode envelope: %w", err)
	}

	// Publishing happens off the request path. The record stays pending
	// until the broker acknowledges or rejects.
	s.wg.Add(1)
	go s.publishAndReconcile(rec.ID, payload)

	s.log.Info().
		Stringer("record_id", rec.ID).
		Str("recipient", sub.Recipient).
		Bool("has_attachment", attachmentLocator != "").
		Msg("submission accepted")

	return Receipt{RecordID: rec.ID, Status: rec.Status}, nil
}

// publishAndReconcile submits the envelope to the broker and moves the
// record to published or publish_failed based on the outcome. It runs
// detached from the request context so an early client disconnect does
// not abandon the publish.
func (s *Service) publishAndReconcile(recordID uuid.UUID, payload []byte) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.publishTimeout)
	defer cancel()

	msgID, err := s.publisher.Publish(ctx, payload)
	if err != nil {
		s.log.Error().Err(err).
			Stringer("record_id", recordID).
			Msg("broker rejected envelope")
		s.reconcile(recordID, storage.StatusPublishFailed, err.Error())
		return
	}

	s.log.Info().
		Stringer("record_id", recordID).
		Str("message_id", msgID).
		Msg("envelope published")
	s.reconcile(recordID, storage.StatusPublished, "")
}

func (s *Service) reconcile(recordID uuid.UUID, status storage.Status, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	applied, err := s.records.UpdateRecordStatus(ctx, storage.UpdateRecordStatusParams{
		ID:            recordID,
		Status:        status,
		FailureReason: reason,
	})
	if err != nil {
		s.log.Error().Err(err).
			Stringer("record_id", recordID).
			Str("status", string(status)).
			Msg("failed to reconcile record status")
		return
	}
	if !applied {
		s.log.Warn().
			Stringer("record_id", recordID).
			Str("status", string(status)).
			Msg("record status transition not applied, record already moved on")
	}
}

// Drain waits for in-flight publishes to finish, up to the given
// timeout. Called during graceful shutdown.
func (s *Service) Drain(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.New("dispatcher: drain timed out with publishes in flight")
	}
}

func validate(sub *Submission) error {
	if sub == nil {
		return fmt.Errorf("%w: nil submission", ErrInvalidInput)
	}
	if sub.Recipient == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidInput)
	}
	if sub.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidInput)
	}
	if sub.Body == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidInput)
	}
	if sub.hasAttachment() {
		if sub.AttachmentName == "" {
			return fmt.Errorf("%w: attachment without a file name", ErrInvalidInput)
		}
		if len(sub.Attachment) == 0 {
			return fmt.Errorf("%w: attachment %q has no content", ErrInvalidInput, sub.AttachmentName)
		}
	}
	return nil
}
