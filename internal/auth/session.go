// Package auth issues and verifies signed session tokens and decides
// whether a principal may perform an operation.
package auth

import (
	"errors"
	"fmt"
	"time"

	"practice/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

// DefaultSessionTTL is the lifetime of an issued session.
const DefaultSessionTTL = 24 * time.Hour

// MinSecretLength is the shortest signing secret NewSessionManager accepts.
const MinSecretLength = 32

var (
	ErrMalformed        = errors.New("session token is malformed")
	ErrInvalidSignature = errors.New("session token signature is invalid")
	ErrExpired          = errors.New("session token has expired")
	ErrWeakSecret       = fmt.Errorf("session secret must be at least %d bytes", MinSecretLength)
)

// Principal is the identity a verified session token carries.
type Principal struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
	Role  model.Role `json:"role"`
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == model.RoleAdmin
}

// PrincipalFromUser builds the session identity of a stored user.
func PrincipalFromUser(u model.User) Principal {
	return Principal{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// Session is a signed token and the instant it stops being accepted.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Claims is the JWT payload. The principal id travels as the subject.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// SessionManager signs and verifies HS256 session tokens.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
	parser *jwt.Parser
}

// NewSessionManager returns a manager signing with secret. A zero ttl means
// DefaultSessionTTL and a nil clock means the real clock.
func NewSessionManager(secret string, ttl time.Duration, clock clockwork.Clock) (*SessionManager, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		clock:  clock,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(clock.Now),
		),
	}, nil
}

// TTL returns the lifetime of issued sessions.
func (m *SessionManager) TTL() time.Duration { return m.ttl }

// Issue signs a token for p that expires TTL from now. Expiry is
// truncated to whole seconds, the precision the token carries.
func (m *SessionManager) Issue(p Principal) (Session, error) {
	if p.ID == "" {
		return Session{}, fmt.Errorf("issue session: %w", ErrMalformed)
	}
	if !p.Role.Valid() {
		return Session{}, fmt.Errorf("issue session: unknown role %q", p.Role)
	}

	now := m.clock.Now()
	expiresAt := now.Add(m.ttl).Truncate(time.Second)
	claims := Claims{
		Email: p.Email,
		Name:  p.Name,
		Role:  p.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign session: %w", err)
	}
	return Session{Token: token, ExpiresAt: expiresAt}, nil
}

// Verify checks the signature and expiry of token and returns its principal.
// A token whose role is not a known role is rejected as malformed.
func (m *SessionManager) Verify(token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrMalformed
	}

	var claims Claims
	_, err := m.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return Principal{}, classify(err)
	}

	role, err := model.ParseRole(claims.Role)
	if err != nil || claims.Subject == "" {
		return Principal{}, ErrMalformed
	}
	return Principal{
		ID:    claims.Subject,
		Email: claims.Email,
		Name:  claims.Name,
		Role:  role,
	}, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	default:
		return ErrMalformed
	}
}
