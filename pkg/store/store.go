package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/docuflow/docuflow/pkg/model"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict reports that a compare-and-set lost against a concurrent writer.
	ErrConflict = errors.New("concurrent modification")
)

// DocumentStore is the subset of document persistence the workflow engine needs.
type DocumentStore interface {
	// GetByID returns ErrNotFound when no document has the id
	GetByID(ctx context.Context, id string) (*model.Document, error)

	Create(ctx context.Context, doc *model.Document) error

	// UpdateState moves the document from one state to another only if it is
	// still in from; otherwise it returns ErrConflict
	UpdateState(ctx context.Context, id string, from, to model.WorkflowState, at time.Time) error
}

// AuditStore is an append-only log of audit records.
type AuditStore interface {
	Append(ctx context.Context, record *model.AuditRecord) error

	// ListByDocument returns the document history ordered by time
	ListByDocument(ctx context.Context, documentID string) ([]model.AuditRecord, error)
}

type NotificationStore interface {
	Create(ctx context.Context, notification *model.Notification) error

	// ListByUser returns the user's inbox, newest first
	ListByUser(ctx context.Context, username string) ([]model.Notification, error)

	MarkRead(ctx context.Context, id uuid.UUID) error
}

// Tx groups the stores that take part in a single transition commit.
type Tx struct {
	Documents DocumentStore
	Audits    AuditStore
}

// Transactor runs fn atomically: either every write made through tx is
// committed or none is.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
