package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/docuflow/docuflow/pkg/config"
	"github.com/docuflow/docuflow/pkg/model"
	"github.com/docuflow/docuflow/pkg/store"
)

type Store struct {
	db *gorm.DB
}

func NewStore(cfg *config.DatabaseConfig) (*Store, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)

	return &Store{db: db}, nil
}

func NewStoreFromDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&model.Document{},
		&model.AuditRecord{},
		&model.Notification{},
	)
}

func (s *Store) Documents() store.DocumentStore {
	return NewDocumentRepository(s.db)
}

func (s *Store) Audits() store.AuditStore {
	return NewAuditRepository(s.db)
}

func (s *Store) Notifications() store.NotificationStore {
	return NewNotificationRepository(s.db)
}

// WithinTx binds the document and audit repositories to one database
// transaction so a state change never commits without its audit record.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, store.Tx{
			Documents: NewDocumentRepository(tx),
			Audits:    NewAuditRepository(tx),
		})
	})
}

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("document %s: %w", id, store.ErrNotFound)
		}
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) UpdateState(ctx context.Context, id string, from, to model.WorkflowState, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ? AND workflow_state = ?", id, from).
		Updates(map[string]interface{}{
			"workflow_state": to,
			"updated_at":     at,
			"version":        gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&model.Document{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("document %s: %w", id, store.ErrNotFound)
		}
		return fmt.Errorf("document %s is no longer %q: %w", id, from, store.ErrConflict)
	}
	return nil
}
