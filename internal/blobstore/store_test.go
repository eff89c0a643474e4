package blobstore

import (
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"
)

func TestErrNotFound_Is(t *testing.T) {
	if !errors.Is(ErrNotFound, ErrNotFound) {
		t.Error("errors.Is(ErrNotFound, ErrNotFound) should be true")
	}
}

func TestNew_LocalDefault(t *testing.T) {
	dir := t.TempDir()
	logger := zerolog.New(os.Stderr)

	store, err := New(Config{Type: "", Path: dir}, logger)
	if err != nil {
		t.Fatalf("New with empty type: %v", err)
	}
	if store == nil {
		t.Fatal("New with empty type returned nil store")
	}
	if _, ok := store.(*LocalStore); !ok {
		t.Errorf("New with empty type: got %T, want *LocalStore", store)
	}
}

func TestNew_LocalExplicit(t *testing.T) {
	dir := t.TempDir()
	logger := zerolog.New(os.Stderr)

	store, err := New(Config{Type: "local", Path: dir}, logger)
	if err != nil {
		t.Fatalf("New with local type: %v", err)
	}
	if _, ok := store.(*LocalStore); !ok {
		t.Errorf("New with local type: got %T, want *LocalStore", store)
	}
}

func TestNew_UnknownTypeFallsBackToLocal(t *testing.T) {
	dir := t.TempDir()
	logger := zerolog.New(os.Stderr)

	store, err := New(Config{Type: "gcs", Path: dir}, logger)
	if err != nil {
		t.Fatalf("New with unknown type: %v", err)
	}
	if _, ok := store.(*LocalStore); !ok {
		t.Errorf("New with unknown type: got %T, want *LocalStore", store)
	}
}
