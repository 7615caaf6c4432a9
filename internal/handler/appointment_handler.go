package handler

import (
	"net/http"

	"practice/internal/middleware"
	"practice/internal/model"
	"practice/internal/service"
	"practice/pkg/pagination"
	"practice/pkg/response"

	"github.com/gin-gonic/gin"
)

type AppointmentHandler struct {
	appointmentService service.AppointmentService
	authn              *middleware.Authenticator
	limit              gin.HandlerFunc
}

// NewAppointmentHandler wires the booking endpoints. limit guards guest
// booking and may be nil.
func NewAppointmentHandler(appointmentService service.AppointmentService, authn *middleware.Authenticator, limit gin.HandlerFunc) *AppointmentHandler {
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}
	return &AppointmentHandler{appointmentService: appointmentService, authn: authn, limit: limit}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *AppointmentHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/appointments")
	{
		group.POST("", h.limit, h.authn.OptionalAuth(), h.Create)
		group.GET("", h.authn.RequireRole(model.RoleAdmin), h.List)
		group.GET("/mine", h.authn.RequireAuth(), h.ListMine)
		group.GET("/:id", h.authn.RequireAuth(), h.Get)
		group.PATCH("/:id/status", h.authn.RequireRole(model.RoleAdmin), h.UpdateStatus)
		group.POST("/:id/cancel", h.authn.RequireAuth(), h.Cancel)
		group.DELETE("/:id", h.authn.RequireRole(model.RoleAdmin), h.Delete)
	}
}

// Create handles POST /api/appointments
// @Summary      Book an appointment
// @Description  Books a consultation. Works without a session; the booking is then owned by nobody.
// @Tags         appointments
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateAppointmentRequest  true  "Booking Payload"
// @Success      201      {object}  response.Response{data=model.Appointment}
// @Failure      400      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Router       /api/appointments [post]
func (h *AppointmentHandler) Create(c *gin.Context) {
	var req service.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	p, _ := middleware.CurrentPrincipal(c)
	appt, err := h.appointmentService.Create(c.Request.Context(), p, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, appt))
}

// List handles GET /api/appointments
// @Summary      List all appointments
// @Tags         appointments
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Filter by status (pending, confirmed, completed, cancelled)"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=response.Page}
// @Failure      401     {object}  response.Response
// @Failure      403     {object}  response.Response
// @Router       /api/appointments [get]
func (h *AppointmentHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	p, _ := middleware.CurrentPrincipal(c)

	appts, total, err := h.appointmentService.List(c.Request.Context(), p, service.ListAppointmentsQuery{
		Status: c.Query("status"),
		Page:   params.Page,
		Limit:  params.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{Items: appts, Total: total, Page: params.Page, Limit: params.Limit}))
}

// ListMine handles GET /api/appointments/mine
// @Summary      List my appointments
// @Tags         appointments
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=response.Page}
// @Failure      401     {object}  response.Response
// @Router       /api/appointments/mine [get]
func (h *AppointmentHandler) ListMine(c *gin.Context) {
	params := pagination.Parse(c)
	p, _ := middleware.CurrentPrincipal(c)

	appts, total, err := h.appointmentService.ListMine(c.Request.Context(), p, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{Items: appts, Total: total, Page: params.Page, Limit: params.Limit}))
}

// Get handles GET /api/appointments/:id
// @Summary      Get an appointment
// @Description  Owners see their own appointments, admins see any
// @Tags         appointments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Appointment ID"
// @Success      200  {object}  response.Response{data=model.Appointment}
// @Failure      401  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/appointments/{id} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	p, _ := middleware.CurrentPrincipal(c)
	appt, err := h.appointmentService.Get(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, appt))
}

// UpdateStatus handles PATCH /api/appointments/:id/status
// @Summary      Change appointment status
// @Tags         appointments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                                   true  "Appointment ID"
// @Param        payload  body      service.UpdateAppointmentStatusRequest  true  "New status"
// @Success      200      {object}  response.Response{data=model.Appointment}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/appointments/{id}/status [patch]
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateAppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	p, _ := middleware.CurrentPrincipal(c)
	appt, err := h.appointmentService.UpdateStatus(c.Request.Context(), p, c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, appt))
}

// Cancel handles POST /api/appointments/:id/cancel
// @Summary      Cancel my appointment
// @Description  Owners may cancel appointments that are still pending
// @Tags         appointments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Appointment ID"
// @Success      200  {object}  response.Response{data=model.Appointment}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/appointments/{id}/cancel [post]
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	p, _ := middleware.CurrentPrincipal(c)
	appt, err := h.appointmentService.Cancel(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, appt))
}

// Delete handles DELETE /api/appointments/:id
// @Summary      Delete an appointment
// @Tags         appointments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Appointment ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/appointments/{id} [delete]
func (h *AppointmentHandler) Delete(c *gin.Context) {
	p, _ := middleware.CurrentPrincipal(c)
	if err := h.appointmentService.Delete(c.Request.Context(), p, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Message(http.StatusOK, "Appointment deleted"))
}
