package middleware

import (
	"errors"
	"net/http"
	"strings"

	"practice/internal/auth"
	"practice/internal/model"
	"practice/pkg/response"

	"github.com/gin-gonic/gin"
)

// SessionCookie is the name of the httpOnly cookie carrying the session token.
const SessionCookie = "session"

const principalKey = "principal"

// Authenticator moves session tokens between HTTP and the session manager.
type Authenticator struct {
	sessions *auth.SessionManager
	secure   bool
}

// NewAuthenticator returns an Authenticator. secure marks cookies Secure,
// which release builds served over TLS should set.
func NewAuthenticator(sessions *auth.SessionManager, secure bool) *Authenticator {
	return &Authenticator{sessions: sessions, secure: secure}
}

// Sessions exposes the underlying session manager.
func (a *Authenticator) Sessions() *auth.SessionManager { return a.sessions }

// SetSessionCookie stores s in an httpOnly SameSite=Lax cookie that lives as long as the token.
func (a *Authenticator) SetSessionCookie(c *gin.Context, s auth.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, s.Token, int(a.sessions.TTL().Seconds()), "/", "", a.secure, true)
}

// ClearSessionCookie expires the session cookie.
func (a *Authenticator) ClearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", a.secure, true)
}

// RequireAuth rejects requests without a valid session with 401.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return a.RequireRole(model.RoleUser)
}

// RequireRole validates the session and checks the principal's role.
// Missing or invalid tokens get 401, a role mismatch gets 403.
func (a *Authenticator) RequireRole(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := a.authenticate(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}

		if err := auth.Authorize(&p, role); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		c.Set(principalKey, &p)
		c.Next()
	}
}

// OptionalAuth attaches the principal when a valid session is present and
// otherwise lets the request through as a guest.
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if p, err := a.authenticate(c); err == nil {
			c.Set(principalKey, &p)
		}
		c.Next()
	}
}

// CurrentPrincipal returns the principal attached by the auth middleware.
func CurrentPrincipal(c *gin.Context) (*auth.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*auth.Principal)
	return p, ok && p != nil
}

var (
	errMissingToken   = errors.New("Authorization is missing")
	errBadScheme      = errors.New("Invalid authorization format. Expected 'Bearer <token>'")
	errInvalidSession = errors.New("Invalid or expired session")
)

// authenticate returns the principal of the first token that verifies.
// Expired and forged tokens look the same to the caller.
func (a *Authenticator) authenticate(c *gin.Context) (auth.Principal, error) {
	tokens, err := tokensFromRequest(c)
	if len(tokens) == 0 {
		return auth.Principal{}, err
	}
	for _, token := range tokens {
		if p, err := a.sessions.Verify(token); err == nil {
			return p, nil
		}
	}
	return auth.Principal{}, errInvalidSession
}

// tokensFromRequest collects candidate tokens in order: the session cookie,
// the Authorization header, and ?token= on a WebSocket handshake. A stale
// cookie therefore never shadows a valid Bearer token.
func tokensFromRequest(c *gin.Context) ([]string, error) {
	var tokens []string
	missing := errMissingToken

	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		tokens = append(tokens, token)
	}

	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "" {
			tokens = append(tokens, parts[1])
		} else {
			missing = errBadScheme
		}
	}

	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		if token := c.Query("token"); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens, missing
}
