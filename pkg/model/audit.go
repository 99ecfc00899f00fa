package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditRecord is an append-only entry describing one accepted transition.
type AuditRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	DocumentID string    `gorm:"type:varchar(64);not null;index:idx_audits_document_at" json:"documentId"`
	Actor      string    `gorm:"not null" json:"actor"`
	Action     string    `gorm:"type:varchar(32);not null" json:"action"`
	At         time.Time `gorm:"not null;index:idx_audits_document_at" json:"at"`
	Details    string    `gorm:"type:text" json:"details"`
}

func (AuditRecord) TableName() string {
	return "document_audits"
}
