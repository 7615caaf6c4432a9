package store

import (
	"fmt"

	"practice/internal/model"
)

// SeedConfig names the sample accounts created at startup. Passwords are
// expected to be hashed already.
type SeedConfig struct {
	AdminName         string
	AdminEmail        string
	AdminPasswordHash string
	DemoName          string
	DemoEmail         string
	DemoPasswordHash  string
}

// Seed fills an empty store with sample accounts, bookings and workbooks so the
// dashboards have something to show on a fresh process.
func Seed(s *Store, cfg SeedConfig) error {
	if s.Users.Count(nil) > 0 {
		return nil
	}

	if _, err := s.Users.Create(model.User{
		Name:     cfg.AdminName,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPasswordHash,
		Role:     model.RoleAdmin,
	}); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	demo, err := s.Users.Create(model.User{
		Name:     cfg.DemoName,
		Email:    cfg.DemoEmail,
		Password: cfg.DemoPasswordHash,
		Role:     model.RoleUser,
	})
	if err != nil {
		return fmt.Errorf("seed demo user: %w", err)
	}

	appointments := []model.Appointment{
		{
			UserID:           &demo.ID,
			Name:             demo.Name,
			Email:            demo.Email,
			Phone:            "+44 7700 900123",
			Date:             "2026-11-03",
			Time:             "10:00",
			ConsultationType: model.ConsultationSports,
			Status:           model.AppointmentConfirmed,
			Message:          "Knee pain after running.",
		},
		{
			Name:             "Alex Guest",
			Email:            "alex@example.com",
			Phone:            "+44 7700 900456",
			Date:             "2026-11-05",
			Time:             "14:30",
			ConsultationType: model.ConsultationGeneral,
			Service:          "psychological-therapy",
			Status:           model.AppointmentPending,
		},
	}
	for _, a := range appointments {
		if _, err := s.Appointments.Create(a); err != nil {
			return fmt.Errorf("seed appointment: %w", err)
		}
	}

	now := s.clock.Now().UTC()
	workbooks := []model.Workbook{
		{
			Title:       "Sleep diary",
			Description: "Track your sleep for one week.",
			Content:     "Fill in the diary every morning.",
			Status:      model.WorkbookUnassigned,
		},
		{
			Title:       "Pain check-in",
			Description: "Weekly questionnaire about your recovery.",
			Content:     "Answer honestly; there are no wrong answers.",
			Questions: []model.Question{
				{ID: "q1", Type: model.QuestionScale, Text: "How intense was your pain this week?", Required: true, ScaleMin: 0, ScaleMax: 10},
				{ID: "q2", Type: model.QuestionCheckbox, Text: "Which activities were affected?", Options: []string{"Walking", "Running", "Sleeping", "Work"}},
				{ID: "q3", Type: model.QuestionText, Text: "Anything else you want to share?"},
			},
			AssignedTo: &demo.ID,
			AssignedAt: &now,
			Status:     model.WorkbookAssigned,
		},
	}
	for _, w := range workbooks {
		if _, err := s.Workbooks.Create(w); err != nil {
			return fmt.Errorf("seed workbook: %w", err)
		}
	}

	return nil
}
