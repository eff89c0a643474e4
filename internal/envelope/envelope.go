// Package envelope defines the unit transported through the broker and
// its JSON wire codec.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is returned when a payload cannot be decoded into a valid
// Envelope, or when an Envelope violates its own invariants on encode.
var ErrMalformed = errors.New("envelope: malformed")

// Envelope is the delivery request carried through the broker. The
// attachment fields are both present or both absent; absence is encoded
// by omitting the fields, never by a placeholder value.
//
// RecordID correlates the envelope with its persisted delivery record so
// the consumer can report the delivery outcome back onto it.
type Envelope struct {
	Recipient          string `json:"recipient"`
	Subject            string `json:"subject"`
	Body               string `json:"body"`
	AttachmentFileName string `json:"attachmentFileName,omitempty"`
	AttachmentLocator  string `json:"attachmentLocator,omitempty"`
	RecordID           string `json:"recordId,omitempty"`
}

// HasAttachment reports whether the envelope references an out-of-band
// attachment.
func (e *Envelope) HasAttachment() bool {
	return e.AttachmentFileName != "" && e.AttachmentLocator != ""
}

// validate checks the envelope invariants shared by Encode and Decode.
func (e *Envelope) validate() error {
	if e.Recipient == "" {
		return fmt.Errorf("%w: missing recipient", ErrMalformed)
	}
	if e.Subject == "" {
		return fmt.Errorf("%w: missing subject", ErrMalformed)
	}
	if e.Body == "" {
		return fmt.Errorf("%w: missing body", ErrMalformed)
	}
	if (e.AttachmentFileName == "") != (e.AttachmentLocator == "") {
		return fmt.Errorf("%w: attachment file name and locator must both be present or both absent", ErrMalformed)
	}
	return nil
}

// Encode serializes the envelope to its JSON transport payload. All
// fields pass through the JSON encoder, so embedded quotes and control
// characters in subject or body cannot corrupt the structure.
func Encode(e *Envelope) ([]byte, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("envelope: marshal: %w", err)
	}
	return data, nil
}

// Decode parses a transport payload into an Envelope. Unknown fields in
// the payload are ignored for forward compatibility. A payload carrying
// exactly one of the attachment fields is rejected outright rather than
// silently dropping one side.
func Decode(payload []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
