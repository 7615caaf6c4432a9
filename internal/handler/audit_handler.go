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

type AuditHandler struct {
	auditService service.AuditService
	authn        *middleware.Authenticator
}

func NewAuditHandler(auditService service.AuditService, authn *middleware.Authenticator) *AuditHandler {
	return &AuditHandler{auditService: auditService, authn: authn}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/audit-logs")
	group.Use(h.authn.RequireRole(model.RoleAdmin))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs returns one page of the audit trail, newest first
// @Summary      Get audit logs
// @Description  Lists admin mutations and bookings with the acting user's name
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Page}
// @Failure      403    {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)
	p, _ := middleware.CurrentPrincipal(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), p, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{Items: logs, Total: total, Page: params.Page, Limit: params.Limit}))
}
