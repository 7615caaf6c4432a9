package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"practice/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

const testSecret = "this_is_a_very_long_secret_key_for_testing_purposes_12345"

var testStart = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T) (*SessionManager, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(testStart)
	m, err := NewSessionManager(testSecret, 0, clock)
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}
	return m, clock
}

func TestNewSessionManager(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"valid secret", testSecret, false},
		{"empty secret", "", true},
		{"short secret", "short", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewSessionManager(tt.secret, time.Hour, nil)
			if tt.wantErr {
				if !errors.Is(err, ErrWeakSecret) {
					t.Errorf("NewSessionManager() error = %v, want ErrWeakSecret", err)
				}
				return
			}
			if err != nil || m == nil {
				t.Fatalf("NewSessionManager() = %v, %v", m, err)
			}
			if m.TTL() != time.Hour {
				t.Errorf("TTL() = %s, want 1h", m.TTL())
			}
		})
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	m, _ := newTestManager(t)

	tests := []Principal{
		{ID: "u-1", Email: "ada@example.com", Name: "Ada", Role: model.RoleUser},
		{ID: "a-1", Email: "admin@example.com", Name: "Admin", Role: model.RoleAdmin},
	}
	for _, p := range tests {
		t.Run(string(p.Role), func(t *testing.T) {
			s, err := m.Issue(p)
			if err != nil {
				t.Fatalf("Issue() error = %v", err)
			}
			if want := testStart.Add(DefaultSessionTTL); !s.ExpiresAt.Equal(want) {
				t.Errorf("ExpiresAt = %s, want %s", s.ExpiresAt, want)
			}
			got, err := m.Verify(s.Token)
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if got != p {
				t.Errorf("Verify() = %+v, want %+v", got, p)
			}
		})
	}
}

func TestIssueRejectsIncompletePrincipal(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.Issue(Principal{Role: model.RoleUser}); err == nil {
		t.Error("Issue() without id expected error")
	}
	if _, err := m.Issue(Principal{ID: "x", Role: "owner"}); err == nil {
		t.Error("Issue() with unknown role expected error")
	}
}

func TestVerifyExpiry(t *testing.T) {
	m, clock := newTestManager(t)
	s, err := m.Issue(Principal{ID: "u-1", Role: model.RoleUser})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	clock.Advance(DefaultSessionTTL - time.Second)
	if _, err := m.Verify(s.Token); err != nil {
		t.Fatalf("Verify() one second before expiry error = %v", err)
	}

	clock.Advance(time.Second)
	if _, err := m.Verify(s.Token); !errors.Is(err, ErrExpired) {
		t.Fatalf("Verify() at expiry error = %v, want ErrExpired", err)
	}

	clock.Advance(time.Hour)
	if _, err := m.Verify(s.Token); !errors.Is(err, ErrExpired) {
		t.Fatalf("Verify() after expiry error = %v, want ErrExpired", err)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	m, _ := newTestManager(t)
	s, err := m.Issue(Principal{ID: "u-1", Email: "ada@example.com", Role: model.RoleUser})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	parts := strings.Split(s.Token, ".")

	// Payload claiming admin with the original signature.
	forgedClaims := Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(testStart.Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, forgedClaims).SignedString([]byte("another_secret_that_is_also_long_enough_1234"))
	if err != nil {
		t.Fatalf("sign forged token: %v", err)
	}
	forgedParts := strings.Split(forged, ".")

	other, err := NewSessionManager("a_completely_different_secret_of_32_plus_chars", 0, clockwork.NewFakeClockAt(testStart))
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}
	foreign, err := other.Issue(Principal{ID: "u-1", Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMalformed},
		{"garbage", "not-a-token", ErrMalformed},
		{"swapped payload", parts[0] + "." + forgedParts[1] + "." + parts[2], ErrInvalidSignature},
		{"truncated signature", parts[0] + "." + parts[1] + "." + parts[2][:len(parts[2])-4], ErrInvalidSignature},
		{"foreign secret", foreign.Token, ErrInvalidSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Verify(tt.token); !errors.Is(err, tt.want) {
				t.Errorf("Verify() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	m, _ := newTestManager(t)
	claims := Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "a-1",
			ExpiresAt: jwt.NewNumericDate(testStart.Add(time.Hour)),
		},
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign HS512: %v", err)
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	for name, token := range map[string]string{"HS512": hs512, "none": none} {
		if _, err := m.Verify(token); err == nil {
			t.Errorf("Verify(%s token) accepted, want rejection", name)
		}
	}
}

func TestVerifyRejectsUnknownRoleAndMissingClaims(t *testing.T) {
	m, _ := newTestManager(t)
	exp := jwt.NewNumericDate(testStart.Add(time.Hour))

	tests := []struct {
		name   string
		claims Claims
	}{
		{"unknown role", Claims{Role: "superuser", RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", ExpiresAt: exp}}},
		{"missing role", Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", ExpiresAt: exp}}},
		{"missing subject", Claims{Role: "user", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}}},
		{"missing expiry", Claims{Role: "user", RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tt.claims).SignedString([]byte(testSecret))
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			if _, err := m.Verify(token); !errors.Is(err, ErrMalformed) {
				t.Errorf("Verify() error = %v, want ErrMalformed", err)
			}
		})
	}
}
