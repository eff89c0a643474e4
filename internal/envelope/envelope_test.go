package envelope

import (
	"errors"
	"strings"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
	}{
		{
			name: "without attachment",
			env: Envelope{
				Recipient: "a@x.com",
				Subject:   "Hi",
				Body:      "Hello",
				RecordID:  "6f1c7a0e-8a89-4a2d-9a55-21b2a3a9f001",
			},
		},
		{
			name: "with attachment",
			env: Envelope{
				Recipient:          "a@x.com",
				Subject:            "Hi",
				Body:               "Hello",
				AttachmentFileName: "f.txt",
				AttachmentLocator:  "gs://bucket/f.txt",
			},
		},
		{
			name: "quotes and control characters survive encoding",
			env: Envelope{
				Recipient: "a@x.com",
				Subject:   `Re: "urgent" \ update`,
				Body:      "line one\nline two\ttabbed, with \"quotes\" and {braces}",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := Encode(&tt.env)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got, err := Decode(payload)
			if err != nil {
				t.Fatalf("Decode(Encode()) error = %v", err)
			}
			if *got != tt.env {
				t.Errorf("round trip = %+v, want %+v", *got, tt.env)
			}
		})
	}
}

func TestEncode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
	}{
		{name: "missing recipient", env: Envelope{Subject: "s", Body: "b"}},
		{name: "missing subject", env: Envelope{Recipient: "a@x.com", Body: "b"}},
		{name: "missing body", env: Envelope{Recipient: "a@x.com", Subject: "s"}},
		{
			name: "file name without locator",
			env:  Envelope{Recipient: "a@x.com", Subject: "s", Body: "b", AttachmentFileName: "f.txt"},
		},
		{
			name: "locator without file name",
			env:  Envelope{Recipient: "a@x.com", Subject: "s", Body: "b", AttachmentLocator: "gs://bucket/f.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Encode(&tt.env); !errors.Is(err, ErrMalformed) {
				t.Errorf("Encode() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: `recipient=a@x.com`},
		{name: "empty payload", payload: ``},
		{name: "missing recipient", payload: `{"subject":"s","body":"b"}`},
		{name: "missing subject", payload: `{"recipient":"a@x.com","body":"b"}`},
		{name: "missing body", payload: `{"recipient":"a@x.com","subject":"s"}`},
		{
			name:    "partial attachment: name only",
			payload: `{"recipient":"a@x.com","subject":"s","body":"b","attachmentFileName":"f.txt"}`,
		},
		{
			name:    "partial attachment: locator only",
			payload: `{"recipient":"a@x.com","subject":"s","body":"b","attachmentLocator":"gs://bucket/f.txt"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.payload)); !errors.Is(err, ErrMalformed) {
				t.Errorf("Decode(%q) error = %v, want ErrMalformed", tt.payload, err)
			}
		})
	}
}

func TestDecode_IgnoresUnknownFields(t *testing.T) {
	payload := `{"recipient":"a@x.com","subject":"s","body":"b","futureField":42}`

	env, err := Decode([]byte(payload))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if env.Recipient != "a@x.com" || env.Subject != "s" || env.Body != "b" {
		t.Errorf("Decode() = %+v", env)
	}
}

func TestEncode_EmbedsLocatorAsPlainField(t *testing.T) {
	env := Envelope{
		Recipient:          "a@x.com",
		Subject:            "s",
		Body:               "b",
		AttachmentFileName: "f.txt",
		AttachmentLocator:  "gs://bucket/f.txt",
	}

	payload, err := Encode(&env)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !strings.Contains(string(payload), `"attachmentLocator":"gs://bucket/f.txt"`) {
		t.Errorf("payload %s does not embed the locator as a plain string field", payload)
	}
}

func TestHasAttachment(t *testing.T) {
	withAtt := Envelope{Recipient: "a@x.com", Subject: "s", Body: "b", AttachmentFileName: "f", AttachmentLocator: "gs://b/f"}
	if !withAtt.HasAttachment() {
		t.Error("HasAttachment() = false for envelope with attachment")
	}

	withoutAtt := Envelope{Recipient: "a@x.com", Subject: "s", Body: "b"}
	if withoutAtt.HasAttachment() {
		t.Error("HasAttachment() = true for envelope without attachment")
	}
}
