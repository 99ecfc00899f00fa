package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docuflow/docuflow/pkg/model"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, record *model.AuditRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *AuditRepository) ListByDocument(ctx context.Context, documentID string) ([]model.AuditRecord, error) {
	records := make([]model.AuditRecord, 0)
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("at ASC, id ASC").
		Find(&records).Error
	return records, err
}
