package repository

import (
	"context"

	"practice/internal/model"
	"practice/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WorkbookFilter narrows workbook listings. Zero values match everything.
type WorkbookFilter struct {
	Status     model.WorkbookStatus
	AssignedTo *string
	Page       int
	Limit      int
}

func (f WorkbookFilter) match(w model.Workbook) bool {
	if f.Status != "" && w.Status != f.Status {
		return false
	}
	if f.AssignedTo != nil && (w.AssignedTo == nil || *w.AssignedTo != *f.AssignedTo) {
		return false
	}
	return true
}

type WorkbookRepository interface {
	Create(ctx context.Context, wb *model.Workbook) error
	GetByID(ctx context.Context, id string) (*model.Workbook, error)
	List(ctx context.Context, filter WorkbookFilter) ([]model.Workbook, int64, error)
	// Update applies mutate to the stored workbook atomically; a mutate error aborts without writing.
	Update(ctx context.Context, id string, mutate func(*model.Workbook) error) (*model.Workbook, error)
	Delete(ctx context.Context, id string) error
}

type workbookRepository struct {
	db  *gorm.DB
	ids store.IDGenerator
}

func NewWorkbookRepository(db *gorm.DB, ids store.IDGenerator) WorkbookRepository {
	return &workbookRepository{db: db, ids: ids}
}

func (r *workbookRepository) Create(ctx context.Context, wb *model.Workbook) error {
	wb.ID = r.ids()
	return GetDB(ctx, r.db).Create(wb).Error
}

func (r *workbookRepository) GetByID(ctx context.Context, id string) (*model.Workbook, error) {
	var wb model.Workbook
	if err := GetDB(ctx, r.db).First(&wb, "id = ?", id).Error; err != nil {
		return nil, translate(err, "workbook")
	}
	return &wb, nil
}

func (r *workbookRepository) List(ctx context.Context, filter WorkbookFilter) ([]model.Workbook, int64, error) {
	var workbooks []model.Workbook
	var total int64

	where := func(db *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		if filter.AssignedTo != nil {
			db = db.Where("assigned_to = ?", *filter.AssignedTo)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Workbook{}).Scopes(where).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Scopes(where, scopePage(filter.Page, filter.Limit)).Order("created_at asc").Find(&workbooks).Error; err != nil {
		return nil, 0, err
	}
	return workbooks, total, nil
}

func (r *workbookRepository) Update(ctx context.Context, id string, mutate func(*model.Workbook) error) (*model.Workbook, error) {
	var wb model.Workbook
	err := GetDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&wb, "id = ?", id).Error; err != nil {
			return translate(err, "workbook")
		}
		createdAt := wb.CreatedAt
		if err := mutate(&wb); err != nil {
			return err
		}
		wb.ID, wb.CreatedAt = id, createdAt
		return tx.Save(&wb).Error
	})
	if err != nil {
		return nil, err
	}
	return &wb, nil
}

func (r *workbookRepository) Delete(ctx context.Context, id string) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Workbook{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "workbook")
	}
	return nil
}

type memoryWorkbookRepository struct {
	s *store.Store
}

func NewMemoryWorkbookRepository(s *store.Store) WorkbookRepository {
	return &memoryWorkbookRepository{s: s}
}

func (r *memoryWorkbookRepository) Create(_ context.Context, wb *model.Workbook) error {
	created, err := r.s.Workbooks.Create(*wb)
	if err != nil {
		return err
	}
	*wb = created
	return nil
}

func (r *memoryWorkbookRepository) GetByID(_ context.Context, id string) (*model.Workbook, error) {
	wb, err := r.s.Workbooks.FindByID(id)
	if err != nil {
		return nil, err
	}
	return &wb, nil
}

func (r *memoryWorkbookRepository) List(_ context.Context, filter WorkbookFilter) ([]model.Workbook, int64, error) {
	all := r.s.Workbooks.FindAll(filter.match)
	return page(all, filter.Page, filter.Limit), int64(len(all)), nil
}

func (r *memoryWorkbookRepository) Update(_ context.Context, id string, mutate func(*model.Workbook) error) (*model.Workbook, error) {
	wb, err := r.s.Workbooks.Update(id, mutate)
	if err != nil {
		return nil, err
	}
	return &wb, nil
}

func (r *memoryWorkbookRepository) Delete(_ context.Context, id string) error {
	_, err := r.s.Workbooks.Delete(id)
	return err
}
