package service

import (
	"context"
	"testing"

	"practice/internal/model"
)

func TestDashboardDispatchesOnRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wb, user := assignedWorkbook(t, env)
	if _, err := env.appts.Create(ctx, user, bookingRequest()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := env.appts.Create(ctx, nil, bookingRequest()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := env.workbooks.Submit(ctx, user, wb.ID, AnswerRequest{UserResponse: text("done")}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	mine, err := env.dashboard.Get(ctx, user)
	if err != nil {
		t.Fatalf("user Get() error = %v", err)
	}
	if mine.Role != model.RoleUser || mine.Admin != nil || mine.User == nil {
		t.Fatalf("user dashboard = %+v", mine)
	}
	if len(mine.User.Appointments) != 1 || len(mine.User.Workbooks) != 1 {
		t.Errorf("user dashboard sizes = %d appointments, %d workbooks", len(mine.User.Appointments), len(mine.User.Workbooks))
	}

	admin, err := env.dashboard.Get(ctx, env.admin)
	if err != nil {
		t.Fatalf("admin Get() error = %v", err)
	}
	if admin.Role != model.RoleAdmin || admin.Admin == nil || admin.User != nil {
		t.Fatalf("admin dashboard = %+v", admin)
	}
	want := DashboardTotals{Users: 2, Appointments: 2, PendingAppointments: 2, Workbooks: 1, AwaitingReview: 1}
	if admin.Admin.Totals != want {
		t.Errorf("totals = %+v, want %+v", admin.Admin.Totals, want)
	}
	if len(admin.Admin.RecentAppointments) != 2 {
		t.Errorf("recent = %d, want 2", len(admin.Admin.RecentAppointments))
	}

	if _, err := env.dashboard.Get(ctx, nil); err == nil {
		t.Error("anonymous dashboard allowed")
	}
}

func TestAuditTrail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.appts.Create(ctx, nil, bookingRequest()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	wb, _ := assignedWorkbook(t, env)

	logs, total, err := env.audit.GetAuditLogs(ctx, env.admin, 1, 50)
	if err != nil {
		t.Fatalf("GetAuditLogs() error = %v", err)
	}
	// booking, registration, workbook create, workbook assign
	if total != 4 {
		t.Fatalf("total = %d, want 4: %+v", total, logs)
	}
	if logs[0].Action != model.ActionAssignWorkbook || logs[0].EntityID != wb.ID {
		t.Errorf("newest entry = %+v", logs[0])
	}
	last := logs[len(logs)-1]
	if last.Action != model.ActionCreateAppointment || last.UserName != "Guest" || last.UserID != "" {
		t.Errorf("oldest entry = %+v", last)
	}

	user := env.newUser(t, "someone@x.com")
	_, _, err = env.audit.GetAuditLogs(ctx, user, 1, 50)
	assertErr(t, err, ErrForbidden)
}
