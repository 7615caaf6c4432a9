package service

import (
	"context"
	"strings"
	"time"

	"practice/internal/auth"
	"practice/internal/metrics"
	"practice/internal/model"
	"practice/internal/notify"
	"practice/internal/repository"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// sideEffectTimeout bounds email delivery and event publishing after a booking is stored.
const sideEffectTimeout = 10 * time.Second

type CreateAppointmentRequest struct {
	Name             string                 `json:"name" binding:"required,max=100"`
	Email            string                 `json:"email" binding:"required,email"`
	Phone            string                 `json:"phone" binding:"required,max=30"`
	Date             string                 `json:"date" binding:"required,datetime=2006-01-02"`
	Time             string                 `json:"time" binding:"required,datetime=15:04"`
	ConsultationType model.ConsultationType `json:"consultation_type" binding:"omitempty,consultation_type"`
	Service          string                 `json:"service" binding:"omitempty,max=64"`
	Message          string                 `json:"message" binding:"max=2000"`
}

type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" binding:"required,appointment_status"`
}

type ListAppointmentsQuery struct {
	Status string
	Page   int
	Limit  int
}

// BookingNotifier tells the practice about a new booking.
type BookingNotifier interface {
	NotifyBooking(ctx context.Context, a model.Appointment) error
}

type AppointmentService interface {
	Create(ctx context.Context, actor *auth.Principal, req CreateAppointmentRequest) (*model.Appointment, error)
	List(ctx context.Context, actor *auth.Principal, q ListAppointmentsQuery) ([]model.Appointment, int64, error)
	ListMine(ctx context.Context, actor *auth.Principal, page, limit int) ([]model.Appointment, int64, error)
	Get(ctx context.Context, actor *auth.Principal, id string) (*model.Appointment, error)
	UpdateStatus(ctx context.Context, actor *auth.Principal, id string, status string) (*model.Appointment, error)
	Cancel(ctx context.Context, actor *auth.Principal, id string) (*model.Appointment, error)
	Delete(ctx context.Context, actor *auth.Principal, id string) error
}

type appointmentService struct {
	repo      repository.AppointmentRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	catalogue CatalogueService
	notifier  BookingNotifier
	events    notify.Publisher
	clock     clockwork.Clock
	log       *zap.Logger
}

func NewAppointmentService(
	repos repository.Repositories,
	catalogue CatalogueService,
	notifier BookingNotifier,
	events notify.Publisher,
	clock clockwork.Clock,
	log *zap.Logger,
) AppointmentService {
	if events == nil {
		events = notify.Discard{}
	}
	return &appointmentService{
		repo:      repos.Appointments,
		auditRepo: repos.Audit,
		txManager: repos.Tx,
		catalogue: catalogue,
		notifier:  notifier,
		events:    events,
		clock:     clock,
		log:       log,
	}
}

func (s *appointmentService) Create(ctx context.Context, actor *auth.Principal, req CreateAppointmentRequest) (*model.Appointment, error) {
	appt, err := s.buildAppointment(req)
	if err != nil {
		return nil, err
	}
	if actor != nil {
		owner := actor.ID
		appt.UserID = &owner
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, appt); err != nil {
			return err
		}
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionCreateAppointment, appt.ID, appt.Name, map[string]any{
			"date":              appt.Date,
			"time":              appt.Time,
			"consultation_type": appt.ConsultationType,
			"guest":             appt.UserID == nil,
		})
	})
	if err != nil {
		return nil, err
	}

	origin := "guest"
	if appt.UserID != nil {
		origin = "user"
	}
	metrics.Bookings.WithLabelValues(origin).Inc()

	// The booking stands even when nobody hears about it.
	sideCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	if s.notifier != nil {
		if err := s.notifier.NotifyBooking(sideCtx, *appt); err != nil {
			metrics.DeliveryFailures.WithLabelValues("email").Inc()
			s.log.Warn("booking notification failed", zap.String("appointment_id", appt.ID), zap.Error(err))
		}
	}
	s.publish(sideCtx, notify.EventAppointmentCreated, appt.ID, appt)

	return appt, nil
}

func (s *appointmentService) buildAppointment(req CreateAppointmentRequest) (*model.Appointment, error) {
	appt := &model.Appointment{
		Name:             strings.TrimSpace(req.Name),
		Email:            normalizeEmail(req.Email),
		Phone:            strings.TrimSpace(req.Phone),
		Date:             strings.TrimSpace(req.Date),
		Time:             strings.TrimSpace(req.Time),
		ConsultationType: req.ConsultationType,
		Service:          strings.TrimSpace(req.Service),
		Status:           model.AppointmentPending,
		Message:          strings.TrimSpace(req.Message),
	}

	switch {
	case appt.Name == "":
		return nil, invalid("name", "is required")
	case appt.Email == "" || !strings.Contains(appt.Email, "@"):
		return nil, invalid("email", "must be a valid email address")
	case appt.Phone == "":
		return nil, invalid("phone", "is required")
	}

	day, err := time.Parse("2006-01-02", appt.Date)
	if err != nil {
		return nil, invalid("date", "must be formatted YYYY-MM-DD")
	}
	if _, err := time.Parse("15:04", appt.Time); err != nil {
		return nil, invalid("time", "must be formatted HH:MM")
	}
	today := s.clock.Now().UTC().Truncate(24 * time.Hour)
	if day.Before(today) {
		return nil, invalid("date", "must not be in the past")
	}

	if appt.ConsultationType == "" {
		appt.ConsultationType = model.ConsultationGeneral
	}
	if !appt.ConsultationType.Valid() {
		return nil, invalid("consultation_type", "must be one of general, sports, rehabilitation, chronic")
	}
	if appt.Service != "" {
		if _, ok := s.catalogue.Get(appt.Service); !ok {
			return nil, invalid("service", "unknown service %q", appt.Service)
		}
	}
	return appt, nil
}

func (s *appointmentService) List(ctx context.Context, actor *auth.Principal, q ListAppointmentsQuery) ([]model.Appointment, int64, error) {
	if err := auth.Authorize(actor, model.RoleAdmin); err != nil {
		return nil, 0, err
	}
	status := model.AppointmentStatus(q.Status)
	if status != "" && !status.Valid() {
		return nil, 0, invalid("status", "must be one of pending, confirmed, completed, cancelled")
	}
	return s.repo.List(ctx, repository.AppointmentFilter{Status: status, Page: q.Page, Limit: q.Limit})
}

func (s *appointmentService) ListMine(ctx context.Context, actor *auth.Principal, page, limit int) ([]model.Appointment, int64, error) {
	if err := auth.Authorize(actor, model.RoleUser); err != nil {
		return nil, 0, err
	}
	owner := actor.ID
	return s.repo.List(ctx, repository.AppointmentFilter{UserID: &owner, Page: page, Limit: limit})
}

func (s *appointmentService) Get(ctx context.Context, actor *auth.Principal, id string) (*model.Appointment, error) {
	if err := auth.Authorize(actor, model.RoleUser); err != nil {
		return nil, err
	}
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "appointment", id)
	}
	if err := auth.CanAccess(actor, appt.UserID); err != nil {
		return nil, err
	}
	return appt, nil
}

// UpdateStatus sets any whitelisted status. Other values are rejected
// without touching the stored appointment.
func (s *appointmentService) UpdateStatus(ctx context.Context, actor *auth.Principal, id string, status string) (*model.Appointment, error) {
	if err := auth.Authorize(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	next := model.AppointmentStatus(strings.TrimSpace(status))
	if !next.Valid() {
		return nil, invalid("status", "must be one of pending, confirmed, completed, cancelled")
	}

	var prev model.AppointmentStatus
	var updated *model.Appointment
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		updated, err = s.repo.Update(txCtx, id, func(a *model.Appointment) error {
			prev = a.Status
			a.Status = next
			return nil
		})
		if err != nil {
			return notFound(err, "appointment", id)
		}
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionUpdateAppointment, id, updated.Name, map[string]any{
			"from": prev,
			"to":   next,
		})
	})
	if err != nil {
		return nil, err
	}

	if prev != next {
		s.publish(ctx, notify.EventAppointmentStatusChanged, id, map[string]any{"from": prev, "to": next})
	}
	return updated, nil
}

// Cancel lets the owner withdraw a booking that has not been confirmed yet.
func (s *appointmentService) Cancel(ctx context.Context, actor *auth.Principal, id string) (*model.Appointment, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}

	var updated *model.Appointment
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		updated, err = s.repo.Update(txCtx, id, func(a *model.Appointment) error {
			if a.Status != model.AppointmentPending {
				return conflict("only pending appointments can be cancelled, this one is %s", a.Status)
			}
			a.Status = model.AppointmentCancelled
			return nil
		})
		if err != nil {
			return notFound(err, "appointment", id)
		}
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionCancelAppointment, id, updated.Name, nil)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notify.EventAppointmentStatusChanged, id, map[string]any{"from": model.AppointmentPending, "to": model.AppointmentCancelled})
	return updated, nil
}

func (s *appointmentService) Delete(ctx context.Context, actor *auth.Principal, id string) error {
	if err := auth.Authorize(actor, model.RoleAdmin); err != nil {
		return err
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, id); err != nil {
			return notFound(err, "appointment", id)
		}
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionDeleteAppointment, id, "", nil)
	})
}

func (s *appointmentService) publish(ctx context.Context, eventType, entityID string, payload any) {
	e := notify.Event{Type: eventType, EntityID: entityID, Payload: payload, OccurredAt: s.clock.Now().UTC()}
	if err := s.events.Publish(ctx, e); err != nil {
		metrics.DeliveryFailures.WithLabelValues("events").Inc()
		s.log.Warn("event publish failed", zap.String("event", eventType), zap.String("entity_id", entityID), zap.Error(err))
	}
}
