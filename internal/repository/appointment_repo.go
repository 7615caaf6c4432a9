package repository

import (
	"context"

	"practice/internal/model"
	"practice/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AppointmentFilter narrows appointment listings. Zero values match everything.
type AppointmentFilter struct {
	Status model.AppointmentStatus
	UserID *string
	Page   int
	Limit  int
}

func (f AppointmentFilter) match(a model.Appointment) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.UserID != nil && (a.UserID == nil || *a.UserID != *f.UserID) {
		return false
	}
	return true
}

type AppointmentRepository interface {
	Create(ctx context.Context, appt *model.Appointment) error
	GetByID(ctx context.Context, id string) (*model.Appointment, error)
	List(ctx context.Context, filter AppointmentFilter) ([]model.Appointment, int64, error)
	// Update applies mutate to the stored appointment atomically; a mutate error aborts without writing.
	Update(ctx context.Context, id string, mutate func(*model.Appointment) error) (*model.Appointment, error)
	Delete(ctx context.Context, id string) error
}

type appointmentRepository struct {
	db  *gorm.DB
	ids store.IDGenerator
}

func NewAppointmentRepository(db *gorm.DB, ids store.IDGenerator) AppointmentRepository {
	return &appointmentRepository{db: db, ids: ids}
}

func (r *appointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	appt.ID = r.ids()
	return GetDB(ctx, r.db).Create(appt).Error
}

func (r *appointmentRepository) GetByID(ctx context.Context, id string) (*model.Appointment, error) {
	var appt model.Appointment
	if err := GetDB(ctx, r.db).First(&appt, "id = ?", id).Error; err != nil {
		return nil, translate(err, "appointment")
	}
	return &appt, nil
}

func (r *appointmentRepository) List(ctx context.Context, filter AppointmentFilter) ([]model.Appointment, int64, error) {
	var appts []model.Appointment
	var total int64

	where := func(db *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		if filter.UserID != nil {
			db = db.Where("user_id = ?", *filter.UserID)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Appointment{}).Scopes(where).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Scopes(where, scopePage(filter.Page, filter.Limit)).Order("created_at asc").Find(&appts).Error; err != nil {
		return nil, 0, err
	}
	return appts, total, nil
}

func (r *appointmentRepository) Update(ctx context.Context, id string, mutate func(*model.Appointment) error) (*model.Appointment, error) {
	var appt model.Appointment
	err := GetDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&appt, "id = ?", id).Error; err != nil {
			return translate(err, "appointment")
		}
		createdAt := appt.CreatedAt
		if err := mutate(&appt); err != nil {
			return err
		}
		appt.ID, appt.CreatedAt = id, createdAt
		return tx.Save(&appt).Error
	})
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id string) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Appointment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "appointment")
	}
	return nil
}

type memoryAppointmentRepository struct {
	s *store.Store
}

func NewMemoryAppointmentRepository(s *store.Store) AppointmentRepository {
	return &memoryAppointmentRepository{s: s}
}

func (r *memoryAppointmentRepository) Create(_ context.Context, appt *model.Appointment) error {
	created, err := r.s.Appointments.Create(*appt)
	if err != nil {
		return err
	}
	*appt = created
	return nil
}

func (r *memoryAppointmentRepository) GetByID(_ context.Context, id string) (*model.Appointment, error) {
	appt, err := r.s.Appointments.FindByID(id)
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *memoryAppointmentRepository) List(_ context.Context, filter AppointmentFilter) ([]model.Appointment, int64, error) {
	all := r.s.Appointments.FindAll(filter.match)
	return page(all, filter.Page, filter.Limit), int64(len(all)), nil
}

func (r *memoryAppointmentRepository) Update(_ context.Context, id string, mutate func(*model.Appointment) error) (*model.Appointment, error) {
	appt, err := r.s.Appointments.Update(id, mutate)
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *memoryAppointmentRepository) Delete(_ context.Context, id string) error {
	_, err := r.s.Appointments.Delete(id)
	return err
}
