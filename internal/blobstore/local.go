package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore stores blobs as files on the local filesystem, one
// directory per bucket. Intended for development and tests.
type LocalStore struct {
	basePath string
}

// NewLocalStore creates a new LocalStore at the given base path.
// It creates the directory if it does not exist.
func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		return nil, fmt.Errorf("blobstore: create base directory: %w", err)
	}
	return &LocalStore{basePath: basePath}, nil
}

// path maps a bucket and key to a file path. Keys may contain nested
// path segments; those become subdirectories.
func (s *LocalStore) path(bucket, key string) string {
	return filepath.Join(s.basePath, bucket, filepath.FromSlash(key))
}

// Put writes blob data to a file using an atomic write pattern. An
// existing object under the same key is overwritten.
func (s *LocalStore) Put(_ context.Context, bucket, key string, data []byte) error {
	finalPath := s.path(bucket, key)

	dir := filepath.Dir(finalPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("blobstore: create object directory: %w", err)
	}

	// Write to a temp file in the same directory, then rename for atomicity.
	base := strings.ReplaceAll(filepath.Base(key), string(filepath.Separator), "_")
	tmp, err := os.CreateTemp(dir, ".tmp-"+base+"-*")
	if err != nil {
		return fmt.Errorf("blobstore: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("blobstore: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("blobstore: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, finalPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("blobstore: rename temp file: %w", err)
	}
	return nil
}

// Get reads blob data from a file.
// Returns ErrNotFound if the object does not exist.
func (s *LocalStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(bucket, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("blobstore: read file: %w", err)
	}
	return data, nil
}
