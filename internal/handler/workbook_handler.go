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

type WorkbookHandler struct {
	workbookService service.WorkbookService
	authn           *middleware.Authenticator
}

func NewWorkbookHandler(workbookService service.WorkbookService, authn *middleware.Authenticator) *WorkbookHandler {
	return &WorkbookHandler{workbookService: workbookService, authn: authn}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *WorkbookHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := h.authn.RequireRole(model.RoleAdmin)
	user := h.authn.RequireAuth()

	group := router.Group("/workbooks")
	{
		group.POST("", admin, h.Create)
		group.GET("", admin, h.List)
		group.GET("/mine", user, h.ListMine)
		group.GET("/:id", user, h.Get)
		group.PUT("/:id", admin, h.Update)
		group.POST("/:id/assign", admin, h.Assign)
		group.PUT("/:id/progress", user, h.SaveProgress)
		group.POST("/:id/submit", user, h.Submit)
		group.POST("/:id/review", admin, h.Review)
		group.DELETE("/:id", admin, h.Delete)
	}
}

// Create handles POST /api/workbooks
// @Summary      Create a workbook
// @Description  Creates a workbook, assigned straight away when assigned_to is given
// @Tags         workbooks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateWorkbookRequest  true  "Workbook Payload"
// @Success      201      {object}  response.Response{data=model.Workbook}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/workbooks [post]
func (h *WorkbookHandler) Create(c *gin.Context) {
	var req service.CreateWorkbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	p, _ := middleware.CurrentPrincipal(c)
	wb, err := h.workbookService.Create(c.Request.Context(), p, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, wb))
}

// List handles GET /api/workbooks
// @Summary      List all workbooks
// @Tags         workbooks
// @Produce      json
// @Security     BearerAuth
// @Param        status       query     string  false  "Filter by status"
// @Param        assigned_to  query     string  false  "Filter by assignee id"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=response.Page}
// @Failure      403          {object}  response.Response
// @Router       /api/workbooks [get]
func (h *WorkbookHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	p, _ := middleware.CurrentPrincipal(c)

	wbs, total, err := h.workbookService.List(c.Request.Context(), p, service.ListWorkbooksQuery{
		Status:     c.Query("status"),
		AssignedTo: c.Query("assigned_to"),
		Page:       params.Page,
		Limit:      params.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{Items: wbs, Total: total, Page: params.Page, Limit: params.Limit}))
}

// ListMine handles GET /api/workbooks/mine
// @Summary      List my workbooks
// @Tags         workbooks
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Page}
// @Failure      401    {object}  response.Response
// @Router       /api/workbooks/mine [get]
func (h *WorkbookHandler) ListMine(c *gin.Context) {
	params := pagination.Parse(c)
	p, _ := middleware.CurrentPrincipal(c)

	wbs, total, err := h.workbookService.ListMine(c.Request.Context(), p, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{Items: wbs, Total: total, Page: params.Page, Limit: params.Limit}))
}

// Get handles GET /api/workbooks/:id
// @Summary      Get a workbook
// @Tags         workbooks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Workbook ID"
// @Success      200  {object}  response.Response{data=model.Workbook}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/workbooks/{id} [get]
func (h *WorkbookHandler) Get(c *gin.Context) {
	p, _ := middleware.CurrentPrincipal(c)
	wb, err := h.workbookService.Get(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, wb))
}

// Update handles PUT /api/workbooks/:id
// @Summary      Edit a workbook
// @Tags         workbooks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                         true  "Workbook ID"
// @Param        payload  body      service.UpdateWorkbookRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=model.Workbook}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/workbooks/{id} [put]
func (h *WorkbookHandler) Update(c *gin.Context) {
	var req service.UpdateWorkbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	p, _ := middleware.CurrentPrincipal(c)
	wb, err := h.workbookService.Update(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, wb))
}

// Assign handles POST /api/workbooks/:id/assign
// @Summary      Assign a workbook
// @Tags         workbooks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                         true  "Workbook ID"
// @Param        payload  body      service.AssignWorkbookRequest  true  "Assignee"
// @Success      200      {object}  response.Response{data=model.Workbook}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/workbooks/{id}/assign [post]
func (h *WorkbookHandler) Assign(c *gin.Context) {
	var req service.AssignWorkbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	p, _ := middleware.CurrentPrincipal(c)
	wb, err := h.workbookService.Assign(c.Request.Context(), p, c.Param("id"), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, wb))
}

// SaveProgress handles PUT /api/workbooks/:id/progress
// @Summary      Save workbook progress
// @Description  Stores a draft of the answers; the first save moves the workbook to in_progress
// @Tags         workbooks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                 true  "Workbook ID"
// @Param        payload  body      service.AnswerRequest  true  "Draft answers"
// @Success      200      {object}  response.Response{data=model.Workbook}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/workbooks/{id}/progress [put]
func (h *WorkbookHandler) SaveProgress(c *gin.Context) {
	var req service.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	p, _ := middleware.CurrentPrincipal(c)
	wb, err := h.workbookService.SaveProgress(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, wb))
}

// Submit handles POST /api/workbooks/:id/submit
// @Summary      Submit a workbook
// @Tags         workbooks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                 true  "Workbook ID"
// @Param        payload  body      service.AnswerRequest  true  "Final answers"
// @Success      200      {object}  response.Response{data=model.Workbook}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/workbooks/{id}/submit [post]
func (h *WorkbookHandler) Submit(c *gin.Context) {
	var req service.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	p, _ := middleware.CurrentPrincipal(c)
	wb, err := h.workbookService.Submit(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, wb))
}

// Review handles POST /api/workbooks/:id/review
// @Summary      Review a submitted workbook
// @Tags         workbooks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                         true  "Workbook ID"
// @Param        payload  body      service.ReviewWorkbookRequest  true  "Feedback"
// @Success      200      {object}  response.Response{data=model.Workbook}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/workbooks/{id}/review [post]
func (h *WorkbookHandler) Review(c *gin.Context) {
	var req service.ReviewWorkbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	p, _ := middleware.CurrentPrincipal(c)
	wb, err := h.workbookService.Review(c.Request.Context(), p, c.Param("id"), req.Feedback)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, wb))
}

// Delete handles DELETE /api/workbooks/:id
// @Summary      Delete a workbook
// @Tags         workbooks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Workbook ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/workbooks/{id} [delete]
func (h *WorkbookHandler) Delete(c *gin.Context) {
	p, _ := middleware.CurrentPrincipal(c)
	if err := h.workbookService.Delete(c.Request.Context(), p, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Message(http.StatusOK, "Workbook deleted"))
}
