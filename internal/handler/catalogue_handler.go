package handler

import (
	"net/http"

	"practice/internal/service"
	"practice/pkg/response"

	"github.com/gin-gonic/gin"
)

type CatalogueHandler struct {
	catalogue service.CatalogueService
}

func NewCatalogueHandler(catalogue service.CatalogueService) *CatalogueHandler {
	return &CatalogueHandler{catalogue: catalogue}
}

func (h *CatalogueHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/services", h.List)
	router.GET("/services/:slug", h.Get)
}

// List handles GET /api/services
// @Summary      List consultation services
// @Tags         services
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Offering}
// @Router       /api/services [get]
func (h *CatalogueHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.catalogue.List()))
}

// Get handles GET /api/services/:slug
// @Summary      Get a consultation service
// @Tags         services
// @Produce      json
// @Param        slug  path      string  true  "Service slug"
// @Success      200   {object}  response.Response{data=model.Offering}
// @Failure      404   {object}  response.Response
// @Router       /api/services/{slug} [get]
func (h *CatalogueHandler) Get(c *gin.Context) {
	o, ok := h.catalogue.Get(c.Param("slug"))
	if !ok {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "Service not found"))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, o))
}
