// Package locator encodes and decodes object storage references as
// single string tokens of the form "gs://<bucket>/<key>".
package locator

import (
	"errors"
	"fmt"
	"strings"
)

// Scheme is the fixed addressing scheme for object storage tokens.
const Scheme = "gs"

const prefix = Scheme + "://"

// ErrInvalidInput is returned by Encode when the bucket or key is empty.
var ErrInvalidInput = errors.New("locator: bucket and key must be non-empty")

// ErrMalformed is returned by Decode when a token cannot be parsed.
var ErrMalformed = errors.New("locator: malformed token")

// Locator references a single object in object storage.
type Locator struct {
	Bucket string
	Key    string
}

// String returns the encoded token form of the locator.
func (l Locator) String() string {
	return prefix + l.Bucket + "/" + l.Key
}

// Encode builds a locator token from a bucket and key.
func Encode(bucket, key string) (string, error) {
	if bucket == "" || key == "" {
		return "", ErrInvalidInput
	}
	return Locator{Bucket: bucket, Key: key}.String(), nil
}

// Decode parses a locator token. The first slash after the scheme prefix
// splits bucket from key, so keys may contain nested path segments but
// bucket names may not.
func Decode(token string) (Locator, error) {
	rest, ok := strings.CutPrefix(token, prefix)
	if !ok {
		return Locator{}, fmt.Errorf("%w: missing %q prefix in %q", ErrMalformed, prefix, token)
	}

	bucket, key, found := strings.Cut(rest, "/")
	if !found {
		return Locator{}, fmt.Errorf("%w: no bucket/key separator in %q", ErrMalformed, token)
	}
	if bucket == "" || key == "" {
		return Locator{}, fmt.Errorf("%w: empty bucket or key in %q", ErrMalformed, token)
	}

	return Locator{Bucket: bucket, Key: key}, nil
}
