package handler

import (
	"net/http"

	"practice/internal/auth"
	"practice/internal/middleware"
	"practice/internal/service"
	"practice/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	userService      service.UserService
	dashboardService service.DashboardService
	authn            *middleware.Authenticator
	limit            gin.HandlerFunc
}

// NewAuthHandler wires the session endpoints. limit guards register and
// login and may be nil.
func NewAuthHandler(userService service.UserService, dashboardService service.DashboardService, authn *middleware.Authenticator, limit gin.HandlerFunc) *AuthHandler {
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}
	return &AuthHandler{userService: userService, dashboardService: dashboardService, authn: authn, limit: limit}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/auth")
	{
		group.POST("/register", h.limit, h.Register)
		group.POST("/login", h.limit, h.Login)
		group.POST("/logout", h.Logout)
		group.GET("/me", h.authn.RequireAuth(), h.GetMe)
	}
	router.GET("/dashboard", h.authn.RequireAuth(), h.GetDashboard)
}

// Register handles POST /api/auth/register
// @Summary      Register a client account
// @Description  Creates a user with role "user" and starts a session cookie
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterRequest  true  "Registration Payload"
// @Success      201      {object}  response.Response{data=service.AuthResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.authn.SetSessionCookie(c, auth.Session{Token: res.Token, ExpiresAt: res.ExpiresAt})
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// Login handles POST /api/auth/login for clients and admins alike
// @Summary      Login
// @Description  Authenticates by email and password, sets the session cookie and returns the token for Bearer use
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.AuthResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.userService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.authn.SetSessionCookie(c, auth.Session{Token: res.Token, ExpiresAt: res.ExpiresAt})
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Logout handles POST /api/auth/logout
// @Summary      Logout
// @Description  Clears the session cookie. The token itself stays valid until it expires.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.authn.ClearSessionCookie(c)
	c.JSON(http.StatusOK, response.Message(http.StatusOK, "Logged out successfully"))
}

// GetMe handles GET /api/auth/me
// @Summary      Get current user
// @Description  Returns the profile of the session's user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/auth/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	p, _ := middleware.CurrentPrincipal(c)
	user, err := h.userService.Me(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// GetDashboard handles GET /api/dashboard
// @Summary      Get dashboard
// @Description  Admins get practice totals and work queues, users get their own appointments and workbooks
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.DashboardResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/dashboard [get]
func (h *AuthHandler) GetDashboard(c *gin.Context) {
	p, _ := middleware.CurrentPrincipal(c)
	d, err := h.dashboardService.Get(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, d))
}
