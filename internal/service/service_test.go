package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"practice/internal/auth"
	"practice/internal/model"
	"practice/internal/notify"
	"practice/internal/repository"
	"practice/internal/store"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "this_is_a_very_long_secret_key_for_testing_purposes_12345"

type testEnv struct {
	store     *store.Store
	repos     repository.Repositories
	clock     *clockwork.FakeClock
	sessions  *auth.SessionManager
	notifier  *fakeNotifier
	events    *fakePublisher
	users     UserService
	appts     AppointmentService
	workbooks WorkbookService
	audit     AuditService
	dashboard DashboardService

	admin *auth.Principal
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []model.Appointment
	err  error
}

func (n *fakeNotifier) NotifyBooking(_ context.Context, a model.Appointment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, a)
	return n.err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, e notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC))
	s := store.New(store.WithClock(clock))
	repos := repository.NewMemory(s)
	sessions, err := auth.NewSessionManager(testSecret, 0, clock)
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}

	env := &testEnv{
		store:    s,
		repos:    repos,
		clock:    clock,
		sessions: sessions,
		notifier: &fakeNotifier{},
		events:   &fakePublisher{},
	}
	log := zap.NewNop()
	env.users = NewUserService(repos, sessions, bcrypt.MinCost)
	env.appts = NewAppointmentService(repos, NewCatalogueService(nil), env.notifier, env.events, clock, log)
	env.workbooks = NewWorkbookService(repos, env.events, clock, log)
	env.audit = NewAuditService(repos)
	env.dashboard = NewDashboardService(repos)

	admin, err := s.Users.Create(model.User{Name: "Admin", Email: "admin@practice.local", Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	p := auth.PrincipalFromUser(admin)
	env.admin = &p
	return env
}

// newUser registers a client account and returns its principal.
func (env *testEnv) newUser(t *testing.T, email string) *auth.Principal {
	t.Helper()
	res, err := env.users.Register(context.Background(), RegisterRequest{Name: "Client " + email, Email: email, Password: "secret1"})
	if err != nil {
		t.Fatalf("Register(%s) error = %v", email, err)
	}
	p, err := env.sessions.Verify(res.Token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	return &p
}

func assertErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("error = %v, want %v", err, want)
	}
}

func TestErrorTypes(t *testing.T) {
	var nf *NotFoundError
	err := notFound(store.ErrNotFound, "workbook", "w-1")
	if !errors.As(err, &nf) || nf.Entity != "workbook" || !errors.Is(err, ErrNotFound) {
		t.Errorf("notFound() = %v", err)
	}
	if err.Error() != "workbook not found" {
		t.Errorf("message = %q", err.Error())
	}

	other := errors.New("disk on fire")
	if notFound(other, "workbook", "w-1") != other {
		t.Error("notFound() rewrote an unrelated error")
	}

	if err := invalid("status", "bad %s", "value"); !errors.Is(err, ErrValidation) || err.Error() != "status: bad value" {
		t.Errorf("invalid() = %v", err)
	}
	if err := conflict("taken"); !errors.Is(err, ErrConflict) {
		t.Errorf("conflict() = %v", err)
	}
}
