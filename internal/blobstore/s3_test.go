package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// mockS3Client implements the s3API interface for testing. Objects are
// keyed by "bucket/key".
type mockS3Client struct {
	objects map[string][]byte
}

func newMockS3Client() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func objKey(bucketPtr, keyPtr *string) string {
	bucket, key := "", ""
	if bucketPtr != nil {
		bucket = *bucketPtr
	}
	if keyPtr != nil {
		key = *keyPtr
	}
	return bucket + "/" + key
}

func (m *mockS3Client) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.objects[objKey(params.Bucket, params.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	k := objKey(params.Bucket, params.Key)
	data, ok := m.objects[k]
	if !ok {
		return nil, &types.NoSuchKey{Message: stringPtr(fmt.Sprintf("key %q not found", k))}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(data)),
	}, nil
}

func stringPtr(s string) *string { return &s }

func TestS3Store_PutAndGet(t *testing.T) {
	mock := newMockS3Client()
	store := NewS3Store(mock)

	ctx := context.Background()
	data := []byte("s3 test data")

	if err := store.Put(ctx, "test-bucket", "f.txt", data); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "test-bucket", "f.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if string(got) != string(data) {
		t.Errorf("Get = %q, want %q", got, data)
	}
}

func TestS3Store_GetNotFound(t *testing.T) {
	mock := newMockS3Client()
	store := NewS3Store(mock)

	ctx := context.Background()
	_, err := store.Get(ctx, "test-bucket", "nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get non-existent: got err=%v, want ErrNotFound", err)
	}
}

func TestS3Store_PutOverwritesSameKey(t *testing.T) {
	mock := newMockS3Client()
	store := NewS3Store(mock)

	ctx := context.Background()

	if err := store.Put(ctx, "test-bucket", "f.txt", []byte("first")); err != nil {
		t.Fatalf("Put first: %v", err)
	}
	if err := store.Put(ctx, "test-bucket", "f.txt", []byte("second")); err != nil {
		t.Fatalf("Put second: %v", err)
	}

	got, err := store.Get(ctx, "test-bucket", "f.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Get after overwrite = %q, want %q", got, "second")
	}
}

func TestS3Store_BucketsAreIsolated(t *testing.T) {
	mock := newMockS3Client()
	store := NewS3Store(mock)

	ctx := context.Background()

	if err := store.Put(ctx, "bucket-a", "f.txt", []byte("a")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	_, err := store.Get(ctx, "bucket-b", "f.txt")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get from other bucket: got err=%v, want ErrNotFound", err)
	}
}
