package service

import (
	"context"
	"slices"

	"practice/internal/auth"
	"practice/internal/model"
	"practice/internal/repository"
)

const recentLimit = 5

type DashboardTotals struct {
	Users               int64 `json:"users"`
	Appointments        int64 `json:"appointments"`
	PendingAppointments int64 `json:"pending_appointments"`
	Workbooks           int64 `json:"workbooks"`
	AwaitingReview      int64 `json:"awaiting_review"`
}

// AdminDashboard is the overview rendered for admins.
type AdminDashboard struct {
	Totals             DashboardTotals     `json:"totals"`
	RecentAppointments []model.Appointment `json:"recent_appointments"`
	AwaitingReview     []model.Workbook    `json:"awaiting_review"`
}

// UserDashboard is what a client sees after logging in.
type UserDashboard struct {
	Appointments []model.Appointment `json:"appointments"`
	Workbooks    []model.Workbook    `json:"workbooks"`
}

// DashboardResponse carries exactly one of Admin or User, chosen by Role.
type DashboardResponse struct {
	Role  model.Role      `json:"role"`
	Admin *AdminDashboard `json:"admin,omitempty"`
	User  *UserDashboard  `json:"user,omitempty"`
}

type DashboardService interface {
	Get(ctx context.Context, actor *auth.Principal) (*DashboardResponse, error)
}

type dashboardService struct {
	repos repository.Repositories
}

func NewDashboardService(repos repository.Repositories) DashboardService {
	return &dashboardService{repos: repos}
}

func (s *dashboardService) Get(ctx context.Context, actor *auth.Principal) (*DashboardResponse, error) {
	if err := auth.Authorize(actor, model.RoleUser); err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		admin, err := s.admin(ctx)
		if err != nil {
			return nil, err
		}
		return &DashboardResponse{Role: model.RoleAdmin, Admin: admin}, nil
	}

	appts, _, err := s.repos.Appointments.List(ctx, repository.AppointmentFilter{UserID: &actor.ID})
	if err != nil {
		return nil, err
	}
	wbs, _, err := s.repos.Workbooks.List(ctx, repository.WorkbookFilter{AssignedTo: &actor.ID})
	if err != nil {
		return nil, err
	}
	return &DashboardResponse{
		Role: model.RoleUser,
		User: &UserDashboard{Appointments: appts, Workbooks: wbs},
	}, nil
}

func (s *dashboardService) admin(ctx context.Context) (*AdminDashboard, error) {
	var d AdminDashboard
	var err error

	if _, d.Totals.Users, err = s.repos.Users.List(ctx, 1, 1); err != nil {
		return nil, err
	}
	if _, d.Totals.PendingAppointments, err = s.repos.Appointments.List(ctx, repository.AppointmentFilter{Status: model.AppointmentPending, Page: 1, Limit: 1}); err != nil {
		return nil, err
	}
	if _, d.Totals.Workbooks, err = s.repos.Workbooks.List(ctx, repository.WorkbookFilter{Page: 1, Limit: 1}); err != nil {
		return nil, err
	}

	appts, total, err := s.repos.Appointments.List(ctx, repository.AppointmentFilter{})
	if err != nil {
		return nil, err
	}
	d.Totals.Appointments = total
	slices.SortStableFunc(appts, func(a, b model.Appointment) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	d.RecentAppointments = appts[:min(recentLimit, len(appts))]

	d.AwaitingReview, d.Totals.AwaitingReview, err = s.repos.Workbooks.List(ctx, repository.WorkbookFilter{Status: model.WorkbookSubmitted})
	if err != nil {
		return nil, err
	}
	return &d, nil
}
