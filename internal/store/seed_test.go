package store

import (
	"testing"

	"practice/internal/model"
)

func TestSeed(t *testing.T) {
	s, _ := newTestStore(t)
	cfg := SeedConfig{
		AdminName: "Admin", AdminEmail: "admin@practice.test", AdminPasswordHash: "hash",
		DemoName: "Demo", DemoEmail: "demo@practice.test", DemoPasswordHash: "hash",
	}
	if err := Seed(s, cfg); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if got := s.Users.Count(func(u model.User) bool { return u.Role == model.RoleAdmin }); got != 1 {
		t.Errorf("admins = %d, want 1", got)
	}
	if got := s.Appointments.Count(func(a model.Appointment) bool { return a.UserID == nil }); got != 1 {
		t.Errorf("guest appointments = %d, want 1", got)
	}
	for _, w := range s.Workbooks.FindAll(nil) {
		if w.AssignedTo == nil && w.Status != model.WorkbookUnassigned {
			t.Errorf("workbook %q has status %s without assignee", w.Title, w.Status)
		}
	}

	// seeding twice is a no-op
	if err := Seed(s, cfg); err != nil {
		t.Fatalf("second Seed() error = %v", err)
	}
	if got := s.Users.Count(nil); got != 2 {
		t.Errorf("users after reseed = %d, want 2", got)
	}
}
