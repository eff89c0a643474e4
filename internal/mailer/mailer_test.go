package mailer

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func TestMessage_HasAttachment(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{"no attachment", Message{To: "a@b.com"}, false},
		{"name only", Message{AttachmentName: "f.txt"}, false},
		{"bytes only", Message{Attachment: []byte("x")}, false},
		{"both", Message{AttachmentName: "f.txt", Attachment: []byte("x")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.HasAttachment(); got != tt.want {
				t.Errorf("HasAttachment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantName string
		wantErr  bool
	}{
		{
			name:     "stdout",
			cfg:      Config{Type: "stdout"},
			wantName: "stdout",
		},
		{
			name:     "empty defaults to stdout",
			cfg:      Config{},
			wantName: "stdout",
		},
		{
			name:     "smtp",
			cfg:      Config{Type: "smtp", SMTP: SMTPConfig{Addr: "mail.example.com:587", From: "noreply@example.com"}},
			wantName: "smtp",
		},
		{
			name:    "smtp missing addr",
			cfg:     Config{Type: "smtp", SMTP: SMTPConfig{From: "noreply@example.com"}},
			wantErr: true,
		},
		{
			name:    "unknown type",
			cfg:     Config{Type: "carrier-pigeon"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.cfg, testLogger())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if m.Name() != tt.wantName {
				t.Errorf("expected mailer %s, got %s", tt.wantName, m.Name())
			}
		})
	}
}

func TestBuildMIME_PlainText(t *testing.T) {
	msg := &Message{
		To:      "alice@example.com",
		Subject: "Hello",
		Body:    "plain body",
	}
	raw, err := BuildMIME("noreply@example.com", msg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	out := string(raw)

	for _, want := range []string{
		"From: noreply@example.com\r\n",
		"To: alice@example.com\r\n",
		"Subject: Hello\r\n",
		"Content-Type: text/plain; charset=utf-8\r\n",
		"plain body",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected message to contain %q", want)
		}
	}
	if strings.Contains(out, "multipart/mixed") {
		t.Error("expected single-part message without multipart content type")
	}
}

func TestBuildMIME_WithAttachment(t *testing.T) {
	msg := &Message{
		To:             "bob@example.com",
		Subject:        "Report",
		Body:           "see attached",
		AttachmentName: "report.pdf",
		Attachment:     []byte("PDF data here"),
	}
	raw, err := BuildMIME("noreply@example.com", msg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	out := string(raw)

	for _, want := range []string{
		"Content-Type: multipart/mixed; boundary=",
		"Content-Type: text/plain; charset=utf-8",
		"see attached",
		"Content-Transfer-Encoding: base64",
		`attachment; filename="report.pdf"`,
		"UERGIGRhdGEgaGVyZQ==", // base64("PDF data here")
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected message to contain %q", want)
		}
	}
}
