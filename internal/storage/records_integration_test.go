//go:build integration

package storage_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sungwon/message-relay/internal/storage"
)

var (
	sharedDB    *storage.DB
	pgContainer testcontainers.Container
)

// TestMain sets up a shared PostgreSQL container for all integration tests.
func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	var err error
	pgContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
		os.Exit(1)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}

	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get container port: %v\n", err)
		os.Exit(1)
	}

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/test?sslmode=disable", host, port.Port())

	sharedDB, err = storage.NewDB(ctx, dsn, 2, 10, 10*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create DB: %v\n", err)
		os.Exit(1)
	}

	if err := storage.Migrate(ctx, sharedDB.Pool); err != nil {
		fmt.Fprintf(os.Stderr, "failed to apply schema: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	sharedDB.Close()
	if err := pgContainer.Terminate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to terminate container: %v\n", err)
	}

	os.Exit(code)
}

func newRecord(t *testing.T, q *storage.Queries) storage.DeliveryRecord {
	t.Helper()
	rec, err := q.CreateRecord(context.Background(), storage.CreateRecordParams{
		FirstName:          "Ada",
		LastName:           "Lovelace",
		Recipient:          "a@x.com",
		Subject:            "Hi",
		Body:               "Hello",
		AttachmentFileName: "f.txt",
		AttachmentLocator:  "gs://bucket/f.txt",
	})
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	return rec
}

func TestCreateRecord_StartsPending(t *testing.T) {
	q := storage.New(sharedDB.Pool)
	rec := newRecord(t, q)

	if rec.Status != storage.StatusPending {
		t.Errorf("new record status = %s, want %s", rec.Status, storage.StatusPending)
	}
	if rec.ID == uuid.Nil {
		t.Error("new record has nil ID")
	}
	if rec.AttachmentLocator != "gs://bucket/f.txt" {
		t.Errorf("attachment locator = %q", rec.AttachmentLocator)
	}
}

func TestUpdateRecordStatus_ForwardTransition(t *testing.T) {
	ctx := context.Background()
	q := storage.New(sharedDB.Pool)
	rec := newRecord(t, q)

	applied, err := q.UpdateRecordStatus(ctx, storage.UpdateRecordStatusParams{
		ID:     rec.ID,
		Status: storage.StatusPublished,
	})
	if err != nil {
		t.Fatalf("UpdateRecordStatus: %v", err)
	}
	if !applied {
		t.Fatal("pending -> published transition was not applied")
	}

	got, err := q.GetRecordByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetRecordByID: %v", err)
	}
	if got.Status != storage.StatusPublished {
		t.Errorf("status = %s, want %s", got.Status, storage.StatusPublished)
	}
}

func TestUpdateRecordStatus_Idempotent(t *testing.T) {
	ctx := context.Background()
	q := storage.New(sharedDB.Pool)
	rec := newRecord(t, q)

	arg := storage.UpdateRecordStatusParams{ID: rec.ID, Status: storage.StatusPublished}

	applied, err := q.UpdateRecordStatus(ctx, arg)
	if err != nil || !applied {
		t.Fatalf("first application: applied=%v, err=%v", applied, err)
	}

	// Second application of the same outcome callback must be a no-op.
	applied, err = q.UpdateRecordStatus(ctx, arg)
	if err != nil {
		t.Fatalf("second application: %v", err)
	}
	if applied {
		t.Error("second application of the same transition was applied, want no-op")
	}

	got, err := q.GetRecordByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetRecordByID: %v", err)
	}
	if got.Status != storage.StatusPublished {
		t.Errorf("status after double apply = %s, want %s", got.Status, storage.StatusPublished)
	}
}

func TestUpdateRecordStatus_OutOfOrderIgnored(t *testing.T) {
	ctx := context.Background()
	q := storage.New(sharedDB.Pool)
	rec := newRecord(t, q)

	// delivered requires published; the record is still pending.
	applied, err := q.UpdateRecordStatus(ctx, storage.UpdateRecordStatusParams{
		ID:     rec.ID,
		Status: storage.StatusDelivered,
	})
	if err != nil {
		t.Fatalf("UpdateRecordStatus: %v", err)
	}
	if applied {
		t.Error("pending -> delivered transition was applied, want ignored")
	}
}

func TestUpdateRecordStatus_RecordsFailureReason(t *testing.T) {
	ctx := context.Background()
	q := storage.New(sharedDB.Pool)
	rec := newRecord(t, q)

	applied, err := q.UpdateRecordStatus(ctx, storage.UpdateRecordStatusParams{
		ID:            rec.ID,
		Status:        storage.StatusPublishFailed,
		FailureReason: "broker timeout",
	})
	if err != nil || !applied {
		t.Fatalf("UpdateRecordStatus: applied=%v, err=%v", applied, err)
	}

	got, err := q.GetRecordByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetRecordByID: %v", err)
	}
	if got.Status != storage.StatusPublishFailed {
		t.Errorf("status = %s, want %s", got.Status, storage.StatusPublishFailed)
	}
	if got.FailureReason != "broker timeout" {
		t.Errorf("failure reason = %q, want %q", got.FailureReason, "broker timeout")
	}
}

func TestGetRecordByID_NotFound(t *testing.T) {
	q := storage.New(sharedDB.Pool)

	_, err := q.GetRecordByID(context.Background(), uuid.New())
	if err != storage.ErrRecordNotFound {
		t.Errorf("GetRecordByID(random) error = %v, want ErrRecordNotFound", err)
	}
}

func TestListRecords(t *testing.T) {
	q := storage.New(sharedDB.Pool)
	newRecord(t, q)
	newRecord(t, q)

	records, err := q.ListRecords(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(records) < 2 {
		t.Errorf("ListRecords returned %d records, want at least 2", len(records))
	}
}
