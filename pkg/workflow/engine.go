package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/docuflow/docuflow/pkg/audit"
	"github.com/docuflow/docuflow/pkg/lock"
	"github.com/docuflow/docuflow/pkg/metrics"
	"github.com/docuflow/docuflow/pkg/model"
	"github.com/docuflow/docuflow/pkg/store"
)

// SystemActor is recorded when a transition arrives without any identity.
const SystemActor = "system"

// Request asks for one document to move to State. State is the caller's
// spelling and is parsed leniently.
type Request struct {
	DocumentID string
	State      string
	Actor      string
	Role       string
}

type Result struct {
	Document *model.Document
	From     model.WorkflowState
	To       model.WorkflowState
	Audit    *model.AuditRecord
}

// Engine applies transitions. Transitions on the same document are
// serialized by the locker; the state change and its audit record commit in
// one transaction.
type Engine struct {
	documents store.DocumentStore
	tx        store.Transactor
	policy    *Policy
	recorder  *audit.Recorder
	locker    lock.Locker
	logger    *zap.Logger
	now       func() time.Time
}

func NewEngine(
	documents store.DocumentStore,
	tx store.Transactor,
	policy *Policy,
	recorder *audit.Recorder,
	locker lock.Locker,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		documents: documents,
		tx:        tx,
		policy:    policy,
		recorder:  recorder,
		locker:    locker,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) Transition(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	result, err := e.transition(ctx, req)

	outcome := outcomeOf(err)
	to := "unknown"
	if state, ok := model.ParseWorkflowState(req.State); ok {
		to = string(state)
	}
	metrics.TransitionsTotal.WithLabelValues(to, outcome).Inc()
	metrics.TransitionDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	return result, err
}

func (e *Engine) transition(ctx context.Context, req Request) (*Result, error) {
	actor := req.Actor
	if actor == "" {
		actor = SystemActor
	}

	waitStart := time.Now()
	unlock, err := e.locker.Lock(ctx, "document:"+req.DocumentID)
	metrics.LockWaitDuration.Observe(time.Since(waitStart).Seconds())
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, err := e.documents.GetByID(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", req.DocumentID, err)
	}
	from := doc.WorkflowState

	to, ok := model.ParseWorkflowState(req.State)
	if !ok {
		return nil, &PolicyError{
			Kind:   ErrInvalidTransition,
			From:   from,
			To:     model.WorkflowState(req.State),
			Reason: "unrecognized state",
		}
	}

	if err := e.policy.Validate(Check{
		From:   from,
		To:     to,
		Role:   req.Role,
		Actor:  actor,
		Author: doc.Author,
	}); err != nil {
		e.logger.Info("transition refused",
			zap.String("document_id", doc.ID),
			zap.String("actor", actor),
			zap.String("role", req.Role),
			zap.Error(err),
		)
		return nil, err
	}

	entry := audit.Entry{
		DocumentID: doc.ID,
		Actor:      actor,
		Action:     to.Action(),
		Details:    audit.FormatDetails(from, doc.Author),
		Author:     doc.Author,
	}

	at := e.now()
	var record *model.AuditRecord
	err = e.tx.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Documents.UpdateState(ctx, doc.ID, from, to, at); err != nil {
			return fmt.Errorf("update document %s: %w", doc.ID, err)
		}
		record, err = e.recorder.Persist(ctx, tx.Audits, entry)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Side effects run after commit and outlive the request.
	e.recorder.Dispatch(context.WithoutCancel(ctx), entry)

	doc.WorkflowState = to
	doc.UpdatedAt = at
	doc.Version++

	e.logger.Info("document transitioned",
		zap.String("document_id", doc.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor", actor),
	)

	return &Result{Document: doc, From: from, To: to, Audit: record}, nil
}

// AllowedTransitions returns the document's current state and its successors.
func (e *Engine) AllowedTransitions(ctx context.Context, documentID string) (model.WorkflowState, []model.WorkflowState, error) {
	doc, err := e.documents.GetByID(ctx, documentID)
	if err != nil {
		return "", nil, fmt.Errorf("get document %s: %w", documentID, err)
	}
	return doc.WorkflowState, e.policy.Allowed(doc.WorkflowState), nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, store.ErrConflict), errors.Is(err, lock.ErrTimeout):
		return "conflict"
	default:
		return "error"
	}
}
