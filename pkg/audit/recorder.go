// Package audit records accepted transitions and fans out their side
// effects: the approval notification and the workflow event.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docuflow/docuflow/pkg/eventbus"
	"github.com/docuflow/docuflow/pkg/metrics"
	"github.com/docuflow/docuflow/pkg/model"
	"github.com/docuflow/docuflow/pkg/store"
)

const (
	ActionApproved  = "APPROVED"
	ApprovalMessage = "Your document has been approved successfully"
)

// ErrPersist marks a failure to durably write the audit record. A transition
// that hits it must not be reported as accepted.
var ErrPersist = errors.New("persist audit record")

// Entry describes one accepted transition.
type Entry struct {
	DocumentID string
	Actor      string
	Action     string
	Details    string
	// Author is the document author. When empty it is read from Details.
	Author string
}

func (e Entry) author() string {
	if e.Author != "" {
		return e.Author
	}
	return DetailValue(e.Details, DetailAuthor)
}

type Recorder struct {
	audits        store.AuditStore
	notifications store.NotificationStore
	publisher     eventbus.Publisher
	logger        *zap.Logger
	now           func() time.Time
}

func NewRecorder(audits store.AuditStore, notifications store.NotificationStore, publisher eventbus.Publisher, logger *zap.Logger) *Recorder {
	if publisher == nil {
		publisher = eventbus.Nop{}
	}
	return &Recorder{
		audits:        audits,
		notifications: notifications,
		publisher:     publisher,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Record persists the entry with the recorder's own audit store and then
// dispatches its side effects.
func (r *Recorder) Record(ctx context.Context, entry Entry) (*model.AuditRecord, error) {
	record, err := r.Persist(ctx, r.audits, entry)
	if err != nil {
		return nil, err
	}
	r.Dispatch(ctx, entry)
	return record, nil
}

// Persist appends the audit record through audits, which may be bound to the
// caller's transaction.
func (r *Recorder) Persist(ctx context.Context, audits store.AuditStore, entry Entry) (*model.AuditRecord, error) {
	record := &model.AuditRecord{
		ID:         uuid.New(),
		DocumentID: entry.DocumentID,
		Actor:      entry.Actor,
		Action:     entry.Action,
		At:         r.now(),
		Details:    entry.Details,
	}
	if err := audits.Append(ctx, record); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return record, nil
}

// Dispatch runs the post-commit side effects. The notification and the event
// are attempted independently and neither can fail the caller.
func (r *Recorder) Dispatch(ctx context.Context, entry Entry) {
	if strings.EqualFold(entry.Action, ActionApproved) {
		r.notifyAuthor(ctx, entry)
	}

	r.publisher.Publish(ctx, eventbus.WorkflowEvent{
		DocumentID: entry.DocumentID,
		Actor:      entry.Actor,
		Action:     entry.Action,
		Details:    entry.Details,
	})
}

func (r *Recorder) notifyAuthor(ctx context.Context, entry Entry) {
	author := entry.author()
	if author == "" {
		metrics.NotificationsTotal.WithLabelValues("skipped").Inc()
		return
	}

	notification := &model.Notification{
		ID:        uuid.New(),
		Username:  author,
		Message:   ApprovalMessage,
		Read:      false,
		CreatedAt: r.now(),
	}
	if err := r.notifications.Create(ctx, notification); err != nil {
		r.logger.Error("failed to create approval notification",
			zap.Error(err),
			zap.String("document_id", entry.DocumentID),
			zap.String("username", author),
		)
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		return
	}
	metrics.NotificationsTotal.WithLabelValues("created").Inc()
}
