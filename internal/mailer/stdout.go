package mailer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// StdoutMailer implements the Mailer interface by writing messages to
// standard output. Intended for development and debugging; messages are
// never actually delivered.
type StdoutMailer struct {
	writer io.Writer
}

// NewStdoutMailer creates a StdoutMailer that prints messages to os.Stdout.
func NewStdoutMailer() *StdoutMailer {
	return &StdoutMailer{writer: os.Stdout}
}

func (s *StdoutMailer) Name() string { return "stdout" }

// Send prints the message details to stdout and reports success.
func (s *StdoutMailer) Send(_ context.Context, msg *Message) error {
	var b strings.Builder
	b.WriteString("--- stdout mailer: message ---\n")
	fmt.Fprintf(&b, "To:      %s\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	fmt.Fprintf(&b, "Body:    (%d bytes)\n", len(msg.Body))
	if msg.HasAttachment() {
		fmt.Fprintf(&b, "Attach:  %s (%d bytes)\n", msg.AttachmentName, len(msg.Attachment))
	}
	b.WriteString("--- end ---\n")

	if _, err := io.WriteString(s.writer, b.String()); err != nil {
		return fmt.Errorf("stdout mailer: write: %w", err)
	}
	return nil
}
