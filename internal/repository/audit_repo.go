package repository

import (
	"context"
	"slices"

	"practice/internal/model"
	"practice/internal/store"

	"gorm.io/gorm"
)

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	// List returns entries newest first.
	List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db  *gorm.DB
	ids store.IDGenerator
}

func NewAuditRepository(db *gorm.DB, ids store.IDGenerator) AuditRepository {
	return &auditRepository{db: db, ids: ids}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	entry.ID = r.ids()
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.AuditLog{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Scopes(scopePage(page, limit)).Order("created_at desc").Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

type memoryAuditRepository struct {
	s *store.Store
}

func NewMemoryAuditRepository(s *store.Store) AuditRepository {
	return &memoryAuditRepository{s: s}
}

func (r *memoryAuditRepository) Log(_ context.Context, entry *model.AuditLog) error {
	created, err := r.s.AuditLogs.Create(*entry)
	if err != nil {
		return err
	}
	*entry = created
	return nil
}

func (r *memoryAuditRepository) List(_ context.Context, pageNum, limit int) ([]model.AuditLog, int64, error) {
	all := r.s.AuditLogs.FindAll(nil)
	slices.Reverse(all)
	return page(all, pageNum, limit), int64(len(all)), nil
}
