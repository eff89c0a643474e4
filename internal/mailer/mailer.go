// Package mailer defines the delivery sink that hands a message to a
// mail transport, with an optional attachment resolved from object
// storage by the caller.
package mailer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Message is a single email to be delivered. Attachment and
// AttachmentName are both set or both empty.
type Message struct {
	To             string
	Subject        string
	Body           string
	AttachmentName string
	Attachment     []byte
}

// HasAttachment reports whether the message carries attachment bytes.
func (m *Message) HasAttachment() bool {
	return m.AttachmentName != "" && len(m.Attachment) > 0
}

// Mailer delivers a message through a mail transport.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
	Name() string
}

// Config holds configuration for creating a Mailer.
type Config struct {
	Type string     `mapstructure:"type"` // "smtp" or "stdout"
	SMTP SMTPConfig `mapstructure:"smtp"`
}

// New creates a Mailer based on the provided configuration.
// If Type is empty it defaults to stdout and logs a warning.
func New(cfg Config, logger zerolog.Logger) (Mailer, error) {
	switch cfg.Type {
	case "smtp":
		return NewSMTPMailer(cfg.SMTP)
	case "stdout", "":
		if cfg.Type == "" {
			logger.Warn().Msg("empty mailer type, defaulting to stdout")
		}
		return NewStdoutMailer(), nil
	default:
		return nil, fmt.Errorf("unknown mailer type: %s", cfg.Type)
	}
}
