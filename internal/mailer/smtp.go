package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// SMTPConfig holds SMTP transport configuration.
type SMTPConfig struct {
	Addr     string `mapstructure:"addr"` // host:port
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// SMTPMailer delivers messages over SMTP with STARTTLS and PLAIN auth.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer creates an SMTPMailer from the given configuration.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("smtp mailer: addr is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp mailer: from address is required")
	}
	return &SMTPMailer{cfg: cfg}, nil
}

func (m *SMTPMailer) Name() string { return "smtp" }

// Send builds a MIME message and submits it. The SMTP session runs on
// its own goroutine so the call honors context cancellation; the session
// itself is bounded by the server dialog, not by ctx.
func (m *SMTPMailer) Send(ctx context.Context, msg *Message) error {
	raw, err := BuildMIME(m.cfg.From, msg)
	if err != nil {
		return fmt.Errorf("smtp mailer: build message: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		var auth sasl.Client
		if m.cfg.Username != "" {
			auth = sasl.NewPlainClient("", m.cfg.Username, m.cfg.Password)
		}
		done <- smtp.SendMail(m.cfg.Addr, auth, m.cfg.From, []string{msg.To}, bytes.NewReader(raw))
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("smtp mailer: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp mailer: send: %w", err)
		}
		return nil
	}
}

// BuildMIME assembles the raw RFC 5322 message. A message without an
// attachment is plain text; with an attachment it becomes
// multipart/mixed with a base64-encoded binary part.
func BuildMIME(from string, msg *Message) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")

	if !msg.HasAttachment() {
		buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
		buf.WriteString("\r\n")
		buf.WriteString(msg.Body)
		buf.WriteString("\r\n")
		return buf.Bytes(), nil
	}

	writer := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", "text/plain; charset=utf-8")
	textPart, err := writer.CreatePart(textHeader)
	if err != nil {
		return nil, fmt.Errorf("create text part: %w", err)
	}
	if _, err := textPart.Write([]byte(msg.Body)); err != nil {
		return nil, fmt.Errorf("write text part: %w", err)
	}

	attHeader := textproto.MIMEHeader{}
	attHeader.Set("Content-Type", "application/octet-stream")
	attHeader.Set("Content-Transfer-Encoding", "base64")
	attHeader.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", msg.AttachmentName))
	attPart, err := writer.CreatePart(attHeader)
	if err != nil {
		return nil, fmt.Errorf("create attachment part: %w", err)
	}

	encoder := base64.NewEncoder(base64.StdEncoding, attPart)
	if _, err := encoder.Write(msg.Attachment); err != nil {
		return nil, fmt.Errorf("encode attachment: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("flush attachment encoding: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), nil
}
