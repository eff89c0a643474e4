package blobstore

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestLocalStore_PutAndGet(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	ctx := context.Background()
	data := []byte("hello, world")

	if err := store.Put(ctx, "bucket", "f.txt", data); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "bucket", "f.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if string(got) != string(data) {
		t.Errorf("Get = %q, want %q", got, data)
	}
}

func TestLocalStore_NestedKey(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	ctx := context.Background()

	if err := store.Put(ctx, "bucket", "2026/08/report.pdf", []byte("pdf")); err != nil {
		t.Fatalf("Put nested key: %v", err)
	}

	got, err := store.Get(ctx, "bucket", "2026/08/report.pdf")
	if err != nil {
		t.Fatalf("Get nested key: %v", err)
	}
	if string(got) != "pdf" {
		t.Errorf("Get = %q, want %q", got, "pdf")
	}
}

func TestLocalStore_GetNotFound(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	ctx := context.Background()
	_, err = store.Get(ctx, "bucket", "nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get non-existent: got err=%v, want ErrNotFound", err)
	}
}

func TestLocalStore_PutOverwritesSameKey(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	ctx := context.Background()

	if err := store.Put(ctx, "bucket", "f.txt", []byte("first")); err != nil {
		t.Fatalf("Put first: %v", err)
	}
	if err := store.Put(ctx, "bucket", "f.txt", []byte("second")); err != nil {
		t.Fatalf("Put second: %v", err)
	}

	got, err := store.Get(ctx, "bucket", "f.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Get after overwrite = %q, want %q", got, "second")
	}
}

func TestLocalStore_ConcurrentPutSameKey(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Put(ctx, "bucket", "contended.txt", []byte("payload"))
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, "bucket", "contended.txt")
	if err != nil {
		t.Fatalf("Get after concurrent puts: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("Get = %q, want %q", got, "payload")
	}
}
