package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docuflow/docuflow/pkg/model"
	"github.com/docuflow/docuflow/pkg/store"
)

// Store keeps documents, audit records and notifications in process memory.
// It backs the "memory" storage driver and the package tests.
type Store struct {
	mu            sync.RWMutex
	documents     map[string]model.Document
	audits        []model.AuditRecord
	notifications map[uuid.UUID]model.Notification
}

func NewStore() *Store {
	return &Store{
		documents:     make(map[string]model.Document),
		notifications: make(map[uuid.UUID]model.Notification),
	}
}

func (s *Store) Documents() store.DocumentStore {
	return &documentRepo{s: s}
}

func (s *Store) Audits() store.AuditStore {
	return &auditRepo{s: s}
}

func (s *Store) Notifications() store.NotificationStore {
	return &notificationRepo{s: s}
}

// WithinTx holds the store write lock for the duration of fn and undoes every
// write made through tx when fn returns an error.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &memTx{s: s}
	if err := fn(ctx, store.Tx{
		Documents: &txDocuments{tx: t},
		Audits:    &txAudits{tx: t},
	}); err != nil {
		t.rollback()
		return err
	}
	return nil
}

type memTx struct {
	s    *Store
	undo []func()
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// The helpers below expect the caller to hold s.mu.

func (s *Store) getDocument(id string) (*model.Document, error) {
	doc, ok := s.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, store.ErrNotFound)
	}
	doc.Tags = append([]string(nil), doc.Tags...)
	return &doc, nil
}

func (s *Store) createDocument(doc *model.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if _, exists := s.documents[doc.ID]; exists {
		return fmt.Errorf("document %s already exists", doc.ID)
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	if doc.WorkflowState == "" {
		doc.WorkflowState = model.StateDraft
	}
	stored := *doc
	stored.Tags = append([]string(nil), doc.Tags...)
	s.documents[doc.ID] = stored
	return nil
}

func (s *Store) updateState(id string, from, to model.WorkflowState, at time.Time) (model.Document, error) {
	doc, ok := s.documents[id]
	if !ok {
		return model.Document{}, fmt.Errorf("document %s: %w", id, store.ErrNotFound)
	}
	if doc.WorkflowState != from {
		return model.Document{}, fmt.Errorf("document %s is %q, expected %q: %w", id, doc.WorkflowState, from, store.ErrConflict)
	}
	prev := doc
	doc.WorkflowState = to
	doc.UpdatedAt = at
	doc.Version++
	s.documents[id] = doc
	return prev, nil
}

func (s *Store) appendAudit(record *model.AuditRecord) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	s.audits = append(s.audits, *record)
}

type documentRepo struct {
	s *Store
}

func (r *documentRepo) GetByID(ctx context.Context, id string) (*model.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.getDocument(id)
}

func (r *documentRepo) Create(ctx context.Context, doc *model.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.createDocument(doc)
}

func (r *documentRepo) UpdateState(ctx context.Context, id string, from, to model.WorkflowState, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, err := r.s.updateState(id, from, to, at)
	return err
}

type auditRepo struct {
	s *Store
}

func (r *auditRepo) Append(ctx context.Context, record *model.AuditRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.appendAudit(record)
	return nil
}

func (r *auditRepo) ListByDocument(ctx context.Context, documentID string) ([]model.AuditRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	records := make([]model.AuditRecord, 0)
	for _, record := range r.s.audits {
		if record.DocumentID == documentID {
			records = append(records, record)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].At.Before(records[j].At)
	})
	return records, nil
}

type notificationRepo struct {
	s *Store
}

func (r *notificationRepo) Create(ctx context.Context, notification *model.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	r.s.notifications[notification.ID] = *notification
	return nil
}

func (r *notificationRepo) ListByUser(ctx context.Context, username string) ([]model.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	inbox := make([]model.Notification, 0)
	for _, notification := range r.s.notifications {
		if notification.Username == username {
			inbox = append(inbox, notification)
		}
	}
	sort.Slice(inbox, func(i, j int) bool {
		return inbox[i].CreatedAt.After(inbox[j].CreatedAt)
	})
	return inbox, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	notification, ok := r.s.notifications[id]
	if !ok {
		return fmt.Errorf("notification %s: %w", id, store.ErrNotFound)
	}
	notification.Read = true
	r.s.notifications[id] = notification
	return nil
}

type txDocuments struct {
	tx *memTx
}

func (d *txDocuments) GetByID(ctx context.Context, id string) (*model.Document, error) {
	return d.tx.s.getDocument(id)
}

func (d *txDocuments) Create(ctx context.Context, doc *model.Document) error {
	if err := d.tx.s.createDocument(doc); err != nil {
		return err
	}
	id := doc.ID
	d.tx.undo = append(d.tx.undo, func() { delete(d.tx.s.documents, id) })
	return nil
}

func (d *txDocuments) UpdateState(ctx context.Context, id string, from, to model.WorkflowState, at time.Time) error {
	prev, err := d.tx.s.updateState(id, from, to, at)
	if err != nil {
		return err
	}
	d.tx.undo = append(d.tx.undo, func() { d.tx.s.documents[id] = prev })
	return nil
}

type txAudits struct {
	tx *memTx
}

func (a *txAudits) Append(ctx context.Context, record *model.AuditRecord) error {
	n := len(a.tx.s.audits)
	a.tx.s.appendAudit(record)
	a.tx.undo = append(a.tx.undo, func() { a.tx.s.audits = a.tx.s.audits[:n] })
	return nil
}

func (a *txAudits) ListByDocument(ctx context.Context, documentID string) ([]model.AuditRecord, error) {
	records := make([]model.AuditRecord, 0)
	for _, record := range a.tx.s.audits {
		if record.DocumentID == documentID {
			records = append(records, record)
		}
	}
	return records, nil
}
