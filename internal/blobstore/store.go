// Package blobstore provides object storage backends for message
// attachments, addressed by bucket and key.
package blobstore

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned when a requested object does not exist.
var ErrNotFound = errors.New("blobstore: object not found")

// Store defines the byte-blob get/put interface for attachment storage.
type Store interface {
	Put(ctx context.Context, bucket, key string, data []byte) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// Config holds configuration for creating a Store.
type Config struct {
	Type       string `mapstructure:"type"` // "local" or "s3"
	Path       string `mapstructure:"path"` // base directory for local store
	Bucket     string `mapstructure:"bucket"`
	S3Endpoint string `mapstructure:"s3_endpoint"`
	S3Region   string `mapstructure:"s3_region"`
}

// New creates a Store based on the provided configuration.
// If Type is empty or unsupported, it defaults to local storage and logs
// a warning. The backing client is constructed once here, at startup,
// from injected configuration.
func New(cfg Config, logger zerolog.Logger) (Store, error) {
	switch cfg.Type {
	case "local":
		return NewLocalStore(cfg.Path)
	case "s3":
		return NewS3StoreFromConfig(cfg)
	default:
		logger.Warn().
			Str("type", cfg.Type).
			Msg("unsupported or empty blob store type, defaulting to local")
		return NewLocalStore(cfg.Path)
	}
}
