package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// ErrRecordNotFound is returned when a delivery record does not exist.
var ErrRecordNotFound = errors.New("storage: delivery record not found")

// DeliveryRecord is the persisted status of one submission. Records are
// created once and updated only through status transitions; they are
// never deleted.
type DeliveryRecord struct {
	ID                 uuid.UUID
	FirstName          string
	LastName           string
	Recipient          string
	Subject            string
	Body               string
	AttachmentFileName string
	AttachmentLocator  string
	Status             Status
	FailureReason      string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CreateRecordParams holds the submitter fields for a new record.
type CreateRecordParams struct {
	FirstName          string
	LastName           string
	Recipient          string
	Subject            string
	Body               string
	AttachmentFileName string
	AttachmentLocator  string
}

// UpdateRecordStatusParams identifies a record and the status to move it to.
type UpdateRecordStatusParams struct {
	ID            uuid.UUID
	Status        Status
	FailureReason string
}

// RecordStore persists delivery records and their status transitions.
type RecordStore interface {
	CreateRecord(ctx context.Context, arg CreateRecordParams) (DeliveryRecord, error)
	// UpdateRecordStatus applies a forward status transition. It returns
	// false when the transition was not applied because the record is not
	// in a legal predecessor state (including repeat applications).
	UpdateRecordStatus(ctx context.Context, arg UpdateRecordStatusParams) (bool, error)
	GetRecordByID(ctx context.Context, id uuid.UUID) (DeliveryRecord, error)
}

// Queries implements RecordStore on a pgx connection pool.
type Queries struct {
	pool *pgxpool.Pool
}

// New creates a Queries instance backed by the given pool.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

// Migrate applies the embedded schema. Safe to run repeatedly.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const createRecordSQL = `
INSERT INTO delivery_records (
    id, first_name, last_name, recipient, subject, body,
    attachment_file_name, attachment_locator, status
) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9)
RETURNING id, first_name, last_name, recipient, subject, body,
    COALESCE(attachment_file_name, ''), COALESCE(attachment_locator, ''),
    status, COALESCE(failure_reason, ''), created_at, updated_at
`

// CreateRecord inserts a new delivery record in status pending and
// returns it. The identity is generated here so the caller can carry it
// in the envelope as a correlation ID.
func (q *Queries) CreateRecord(ctx context.Context, arg CreateRecordParams) (DeliveryRecord, error) {
	var rec DeliveryRecord
	err := q.pool.QueryRow(ctx, createRecordSQL,
		uuid.New(),
		arg.FirstName,
		arg.LastName,
		arg.Recipient,
		arg.Subject,
		arg.Body,
		arg.AttachmentFileName,
		arg.AttachmentLocator,
		StatusPending,
	).Scan(
		&rec.ID, &rec.FirstName, &rec.LastName, &rec.Recipient, &rec.Subject, &rec.Body,
		&rec.AttachmentFileName, &rec.AttachmentLocator,
		&rec.Status, &rec.FailureReason, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return DeliveryRecord{}, fmt.Errorf("create delivery record: %w", err)
	}
	return rec, nil
}

const updateRecordStatusSQL = `
UPDATE delivery_records
SET status = $2,
    failure_reason = NULLIF($3, ''),
    updated_at = now()
WHERE id = $1 AND status = ANY($4)
`

// UpdateRecordStatus applies a forward-only status transition. The WHERE
// guard on the current status makes the write idempotent per record:
// applying the same transition twice matches zero rows the second time.
func (q *Queries) UpdateRecordStatus(ctx context.Context, arg UpdateRecordStatusParams) (bool, error) {
	preds := Predecessors(arg.Status)
	if len(preds) == 0 {
		return false, fmt.Errorf("no transition leads to status %q", arg.Status)
	}

	allowed := make([]string, len(preds))
	for i, p := range preds {
		allowed[i] = string(p)
	}

	tag, err := q.pool.Exec(ctx, updateRecordStatusSQL,
		arg.ID, arg.Status, arg.FailureReason, allowed)
	if err != nil {
		return false, fmt.Errorf("update record status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

const getRecordByIDSQL = `
SELECT id, first_name, last_name, recipient, subject, body,
    COALESCE(attachment_file_name, ''), COALESCE(attachment_locator, ''),
    status, COALESCE(failure_reason, ''), created_at, updated_at
FROM delivery_records
WHERE id = $1
`

// GetRecordByID fetches a single delivery record.
// Returns ErrRecordNotFound if no record exists with the given ID.
func (q *Queries) GetRecordByID(ctx context.Context, id uuid.UUID) (DeliveryRecord, error) {
	var rec DeliveryRecord
	err := q.pool.QueryRow(ctx, getRecordByIDSQL, id).Scan(
		&rec.ID, &rec.FirstName, &rec.LastName, &rec.Recipient, &rec.Subject, &rec.Body,
		&rec.AttachmentFileName, &rec.AttachmentLocator,
		&rec.Status, &rec.FailureReason, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DeliveryRecord{}, ErrRecordNotFound
		}
		return DeliveryRecord{}, fmt.Errorf("get delivery record: %w", err)
	}
	return rec, nil
}

const listRecordsSQL = `
SELECT id, first_name, last_name, recipient, subject, body,
    COALESCE(attachment_file_name, ''), COALESCE(attachment_locator, ''),
    status, COALESCE(failure_reason, ''), created_at, updated_at
FROM delivery_records
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

// ListRecords returns delivery records newest first.
func (q *Queries) ListRecords(ctx context.Context, limit, offset int32) ([]DeliveryRecord, error) {
	rows, err := q.pool.Query(ctx, listRecordsSQL, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list delivery records: %w", err)
	}
	defer rows.Close()

	var records []DeliveryRecord
	for rows.Next() {
		var rec DeliveryRecord
		if err := rows.Scan(
			&rec.ID, &rec.FirstName, &rec.LastName, &rec.Recipient, &rec.Subject, &rec.Body,
			&rec.AttachmentFileName, &rec.AttachmentLocator,
			&rec.Status, &rec.FailureReason, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan delivery record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivery records: %w", err)
	}
	return records, nil
}
