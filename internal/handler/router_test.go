package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"practice/internal/auth"
	"practice/internal/middleware"
	"practice/internal/model"
	"practice/internal/notify"
	"practice/internal/repository"
	"practice/internal/service"
	"practice/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "this_is_a_very_long_secret_key_for_testing_purposes_12345"

type testServer struct {
	router     *gin.Engine
	store      *store.Store
	sessions   *auth.SessionManager
	adminToken string
}

func newTestServer(t *testing.T, limiter middleware.Limiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC))
	s := store.New(store.WithClock(clock))
	repos := repository.NewMemory(s)
	sessions, err := auth.NewSessionManager(testSecret, 0, clock)
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}
	log := zap.NewNop()
	catalogue := service.NewCatalogueService(nil)
	notifier := notify.NewBookingNotifier(&notify.LogMailer{Log: log}, "desk@practice.local")

	router, err := NewRouter(RouterConfig{
		Services: Services{
			Users:        service.NewUserService(repos, sessions, bcrypt.MinCost),
			Appointments: service.NewAppointmentService(repos, catalogue, notifier, notify.Discard{}, clock, log),
			Workbooks:    service.NewWorkbookService(repos, notify.Discard{}, clock, log),
			Audit:        service.NewAuditService(repos),
			Dashboard:    service.NewDashboardService(repos),
			Catalogue:    catalogue,
		},
		Auth:        middleware.NewAuthenticator(sessions, false),
		Log:         log,
		Limiter:     limiter,
		LimitPrefix: "test",
		Metrics:     true,
	})
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}

	admin, err := s.Users.Create(model.User{Name: "Admin", Email: "admin@practice.local", Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	session, err := sessions.Issue(auth.PrincipalFromUser(admin))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return &testServer{router: router, store: s, sessions: sessions, adminToken: session.Token}
}

type envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"status_code"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any, cookies ...*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec, env
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, env envelope, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
	if env.StatusCode != want || env.Success != (want < 400) {
		t.Fatalf("envelope = %+v, want status_code %d", env, want)
	}
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	return nil
}

func booking() map[string]any {
	return map[string]any{
		"name":  "Guest Person",
		"email": "guest@example.com",
		"phone": "555-0100",
		"date":  "2026-10-20",
		"time":  "14:30",
	}
}

func TestRegisterLoginThenAdminRouteIsForbidden(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, env := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Jane", "email": "Jane@X.com", "password": "secret1",
	})
	expectStatus(t, rec, env, http.StatusCreated)
	cookie := sessionCookie(rec)
	if cookie == nil || !cookie.HttpOnly || cookie.Value == "" {
		t.Fatalf("session cookie = %+v", cookie)
	}

	rec, env = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "jane@x.com", "password": "secret1"})
	expectStatus(t, rec, env, http.StatusOK)
	var login service.AuthResponse
	if err := json.Unmarshal(env.Data, &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if login.User.Role != model.RoleUser || login.Token == "" {
		t.Fatalf("login = %+v", login)
	}

	rec, env = ts.do(t, http.MethodGet, "/api/users", login.Token, nil)
	expectStatus(t, rec, env, http.StatusForbidden)

	rec, env = ts.do(t, http.MethodGet, "/api/users", "", nil)
	expectStatus(t, rec, env, http.StatusUnauthorized)

	rec, env = ts.do(t, http.MethodGet, "/api/auth/me", "", nil, cookie)
	expectStatus(t, rec, env, http.StatusOK)

	rec, env = ts.do(t, http.MethodPost, "/api/auth/logout", "", nil, cookie)
	expectStatus(t, rec, env, http.StatusOK)
	if c := sessionCookie(rec); c == nil || c.MaxAge >= 0 {
		t.Errorf("logout cookie = %+v, want cleared", c)
	}
}

func TestLoginFailures(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"name": "Jane", "email": "jane@x.com", "password": "secret1"})

	rec, env := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "jane@x.com", "password": "wrong-password"})
	expectStatus(t, rec, env, http.StatusUnauthorized)

	rec, env = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "nobody@x.com", "password": "secret1"})
	expectStatus(t, rec, env, http.StatusUnauthorized)

	rec, env = ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"name": "Again", "email": "JANE@x.com", "password": "secret1"})
	expectStatus(t, rec, env, http.StatusConflict)

	rec, env = ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"name": "Short", "email": "short@x.com", "password": "123"})
	expectStatus(t, rec, env, http.StatusBadRequest)
}

func TestGuestBookingVisibleToAdminOnly(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, env := ts.do(t, http.MethodPost, "/api/appointments", "", booking())
	expectStatus(t, rec, env, http.StatusCreated)
	var appt model.Appointment
	if err := json.Unmarshal(env.Data, &appt); err != nil {
		t.Fatalf("decode appointment: %v", err)
	}
	if appt.UserID != nil || appt.Status != model.AppointmentPending {
		t.Fatalf("appointment = %+v", appt)
	}

	rec, env = ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"name": "Jane", "email": "jane@x.com", "password": "secret1"})
	expectStatus(t, rec, env, http.StatusCreated)
	cookie := sessionCookie(rec)

	rec, env = ts.do(t, http.MethodGet, "/api/appointments/mine", "", nil, cookie)
	expectStatus(t, rec, env, http.StatusOK)
	var mine struct {
		Items []model.Appointment `json:"items"`
		Total int64               `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &mine); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if mine.Total != 0 || len(mine.Items) != 0 {
		t.Errorf("mine = %+v, want empty", mine)
	}

	rec, env = ts.do(t, http.MethodGet, "/api/appointments/"+appt.ID, "", nil, cookie)
	expectStatus(t, rec, env, http.StatusForbidden)

	rec, env = ts.do(t, http.MethodGet, "/api/appointments", ts.adminToken, nil)
	expectStatus(t, rec, env, http.StatusOK)
	var all struct {
		Items []model.Appointment `json:"items"`
		Total int64               `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &all); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if all.Total != 1 || all.Items[0].ID != appt.ID {
		t.Errorf("admin list = %+v", all)
	}
}

func TestAppointmentStatusRoutes(t *testing.T) {
	ts := newTestServer(t, nil)
	_, env := ts.do(t, http.MethodPost, "/api/appointments", "", booking())
	var appt model.Appointment
	if err := json.Unmarshal(env.Data, &appt); err != nil {
		t.Fatalf("decode appointment: %v", err)
	}
	path := "/api/appointments/" + appt.ID + "/status"

	rec, env := ts.do(t, http.MethodPatch, path, ts.adminToken, map[string]string{"status": "archived"})
	expectStatus(t, rec, env, http.StatusBadRequest)

	stored, err := ts.store.Appointments.FindByID(appt.ID)
	if err != nil || stored.Status != model.AppointmentPending {
		t.Fatalf("stored = %q, %v; want pending", stored.Status, err)
	}

	rec, env = ts.do(t, http.MethodPatch, path, ts.adminToken, map[string]string{"status": "confirmed"})
	expectStatus(t, rec, env, http.StatusOK)

	rec, env = ts.do(t, http.MethodPatch, "/api/appointments/missing/status", ts.adminToken, map[string]string{"status": "confirmed"})
	expectStatus(t, rec, env, http.StatusNotFound)

	rec, env = ts.do(t, http.MethodPatch, path, "not-a-token", map[string]string{"status": "confirmed"})
	expectStatus(t, rec, env, http.StatusUnauthorized)
}

func TestWorkbookRoutes(t *testing.T) {
	ts := newTestServer(t, nil)
	rec, env := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"name": "Jane", "email": "jane@x.com", "password": "secret1"})
	expectStatus(t, rec, env, http.StatusCreated)
	var reg service.AuthResponse
	if err := json.Unmarshal(env.Data, &reg); err != nil {
		t.Fatalf("decode register: %v", err)
	}

	rec, env = ts.do(t, http.MethodPost, "/api/workbooks", ts.adminToken, map[string]any{
		"title":       "Sleep diary",
		"assigned_to": reg.User.ID,
		"questions": []map[string]any{
			{"type": "scale", "text": "How rested do you feel?", "required": true},
			{"type": "wrong", "text": "Broken"},
		},
	})
	expectStatus(t, rec, env, http.StatusBadRequest)

	rec, env = ts.do(t, http.MethodPost, "/api/workbooks", ts.adminToken, map[string]any{
		"title":       "Sleep diary",
		"assigned_to": reg.User.ID,
	})
	expectStatus(t, rec, env, http.StatusCreated)
	var wb model.Workbook
	if err := json.Unmarshal(env.Data, &wb); err != nil {
		t.Fatalf("decode workbook: %v", err)
	}
	if wb.Status != model.WorkbookAssigned {
		t.Fatalf("status = %q, want assigned", wb.Status)
	}

	rec, env = ts.do(t, http.MethodPost, "/api/workbooks/"+wb.ID+"/submit", reg.Token, map[string]any{"user_response": "   "})
	expectStatus(t, rec, env, http.StatusBadRequest)

	rec, env = ts.do(t, http.MethodPost, "/api/workbooks/"+wb.ID+"/review", ts.adminToken, map[string]string{"feedback": "early"})
	expectStatus(t, rec, env, http.StatusConflict)

	rec, env = ts.do(t, http.MethodPost, "/api/workbooks/"+wb.ID+"/submit", reg.Token, map[string]any{"user_response": "Slept 7h"})
	expectStatus(t, rec, env, http.StatusOK)

	rec, env = ts.do(t, http.MethodPost, "/api/workbooks/"+wb.ID+"/review", reg.Token, map[string]string{"feedback": "self review"})
	expectStatus(t, rec, env, http.StatusForbidden)

	rec, env = ts.do(t, http.MethodPost, "/api/workbooks/"+wb.ID+"/review", ts.adminToken, map[string]string{"feedback": "Good progress"})
	expectStatus(t, rec, env, http.StatusOK)
	if err := json.Unmarshal(env.Data, &wb); err != nil {
		t.Fatalf("decode workbook: %v", err)
	}
	if wb.Status != model.WorkbookReviewed || wb.AdminFeedback != "Good progress" {
		t.Errorf("reviewed = %q %q", wb.Status, wb.AdminFeedback)
	}
}

func TestRateLimitedLogin(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC))
	ts := newTestServer(t, middleware.NewLocalLimiter(2, time.Minute, clock))
	creds := map[string]string{"email": "nobody@x.com", "password": "secret1"}

	for i := 0; i < 2; i++ {
		rec, env := ts.do(t, http.MethodPost, "/api/auth/login", "", creds)
		expectStatus(t, rec, env, http.StatusUnauthorized)
	}
	rec, env := ts.do(t, http.MethodPost, "/api/auth/login", "", creds)
	expectStatus(t, rec, env, http.StatusTooManyRequests)
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	// Other routes have their own bucket.
	rec, env = ts.do(t, http.MethodPost, "/api/appointments", "", booking())
	expectStatus(t, rec, env, http.StatusCreated)
}

func TestPublicRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, env := ts.do(t, http.MethodGet, "/api/services", "", nil)
	expectStatus(t, rec, env, http.StatusOK)

	rec, env = ts.do(t, http.MethodGet, "/api/services/unknown", "", nil)
	expectStatus(t, rec, env, http.StatusNotFound)

	rec, env = ts.do(t, http.MethodGet, "/api/nothing-here", "", nil)
	expectStatus(t, rec, env, http.StatusNotFound)

	for _, path := range []string{"/health", "/metrics"} {
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, rec.Code)
		}
	}
}
