// Package receiver consumes delivery envelopes from the broker,
// resolves attachments from object storage, and hands the assembled
// message to the mail sink.
package receiver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sungwon/message-relay/internal/blobstore"
	"github.com/sungwon/message-relay/internal/envelope"
	"github.com/sungwon/message-relay/internal/locator"
	"github.com/sungwon/message-relay/internal/mailer"
	"github.com/sungwon/message-relay/internal/metrics"
	"github.com/sungwon/message-relay/internal/queue"
	"github.com/sungwon/message-relay/internal/storage"
)

// Handler processes one envelope per call. It implements
// queue.PayloadHandler, so the subscriber owns retries-never semantics:
// every message is consumed exactly once regardless of outcome.
type Handler struct {
	blobs   blobstore.Store
	mail    mailer.Mailer
	records storage.RecordStore
	log     zerolog.Logger
}

// NewHandler creates a receiver Handler.
func NewHandler(blobs blobstore.Store, mail mailer.Mailer, records storage.RecordStore, log zerolog.Logger) *Handler {
	return &Handler{
		blobs:   blobs,
		mail:    mail,
		records: records,
		log:     log,
	}
}

// HandlePayload decodes and delivers one envelope. A payload that does
// not decode is reported as poison so the subscriber quarantines it; a
// payload that decodes but fails downstream is recorded against its
// delivery record and never redelivered.
func (h *Handler) HandlePayload(ctx context.Context, payload []byte) error {
	env, err := envelope.Decode(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", queue.ErrPoison, err)
	}

	log := h.log.With().
		Str("recipient", env.Recipient).
		Str("record_id", env.RecordID).
		Logger()

	msg := &mailer.Message{
		To:      env.Recipient,
		Subject: env.Subject,
		Body:    env.Body,
	}

	if env.HasAttachment() {
		data, err := h.fetchAttachment(ctx, env.AttachmentLocator)
		if err != nil {
			// Attachment loss is tolerated: the message still goes out,
			// just without the file.
			metrics.AttachmentFetchesTotal.WithLabelValues("failed").Inc()
			log.Warn().Err(err).
				Str("locator", env.AttachmentLocator).
				Msg("attachment unavailable, delivering without it")
		} else {
			metrics.AttachmentFetchesTotal.WithLabelValues("ok").Inc()
			msg.AttachmentName = env.AttachmentFileName
			msg.Attachment = data
		}
	}

	if err := h.mail.Send(ctx, msg); err != nil {
		metrics.MailDeliveriesTotal.WithLabelValues(h.mail.Name(), "failed").Inc()
		log.Error().Err(err).
			Str("mailer", h.mail.Name()).
			Msg("mail sink rejected message")
		h.recordOutcome(env.RecordID, storage.StatusDeliveryFailed, err.Error())
		return fmt.Errorf("send mail: %w", err)
	}

	metrics.MailDeliveriesTotal.WithLabelValues(h.mail.Name(), "delivered").Inc()
	log.Info().
		Str("mailer", h.mail.Name()).
		Bool("has_attachment", msg.HasAttachment()).
		Msg("message delivered")
	h.recordOutcome(env.RecordID, storage.StatusDelivered, "")
	return nil
}

func (h *Handler) fetchAttachment(ctx context.Context, token string) ([]byte, error) {
	loc, err := locator.Decode(token)
	if err != nil {
		return nil, fmt.Errorf("decode locator: %w", err)
	}
	data, err := h.blobs.Get(ctx, loc.Bucket, loc.Key)
	if err != nil {
		return nil, fmt.Errorf("fetch object: %w", err)
	}
	return data, nil
}

// recordOutcome closes the status loop for envelopes that carry a record
// reference. Envelopes without one (or with a mangled one) still
// deliver; the outcome is just not tracked.
func (h *Handler) recordOutcome(recordID string, status storage.Status, reason string) {
	if recordID == "" {
		return
	}
	id, err := uuid.Parse(recordID)
	if err != nil {
		h.log.Warn().
			Str("record_id", recordID).
			Msg("envelope carries an unparseable record reference")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	applied, err := h.records.UpdateRecordStatus(ctx, storage.UpdateRecordStatusParams{
		ID:            id,
		Status:        status,
		FailureReason: reason,
	})
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			h.log.Warn().
				Stringer("record_id", id).
				Msg("no delivery record for envelope")
			return
		}
		h.log.Error().Err(err).
			Stringer("record_id", id).
			Str("status", string(status)).
			Msg("failed to record delivery outcome")
		return
	}
	if !applied {
		h.log.Warn().
			Stringer("record_id", id).
			Str("status", string(status)).
			Msg("delivery outcome not applied, record not in published state")
	}
}
