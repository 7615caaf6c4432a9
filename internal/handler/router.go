package handler

import (
	"fmt"
	"net/http"
	"time"

	"practice/internal/logger"
	"practice/internal/metrics"
	"practice/internal/middleware"
	"practice/internal/model"
	"practice/internal/service"
	"practice/pkg/response"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Services groups the business services the routes call into.
type Services struct {
	Users        service.UserService
	Appointments service.AppointmentService
	Workbooks    service.WorkbookService
	Audit        service.AuditService
	Dashboard    service.DashboardService
	Catalogue    service.CatalogueService
}

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Services    Services
	Auth        *middleware.Authenticator
	Log         *zap.Logger
	CORSOrigins []string
	// Limiter guards register, login and booking. Nil disables rate limiting.
	Limiter     middleware.Limiter
	LimitPrefix string
	// LiveEvents serves the admin websocket. Nil leaves /ws unrouted.
	LiveEvents gin.HandlerFunc
	Swagger    bool
	Metrics    bool
}

// NewRouter builds the gin engine with middleware and every API route.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	if err := RegisterValidators(); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), logger.GinLogger(log), metrics.Middleware())

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowCredentials = len(cfg.CORSOrigins) > 0
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	if cfg.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if cfg.Metrics {
		router.GET("/metrics", metrics.Handler())
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	if cfg.LiveEvents != nil {
		router.GET("/ws", cfg.Auth.RequireRole(model.RoleAdmin), cfg.LiveEvents)
	}

	var limit gin.HandlerFunc
	if cfg.Limiter != nil {
		limit = middleware.RateLimit(cfg.Limiter, cfg.LimitPrefix, log)
	}

	s := cfg.Services
	api := router.Group("/api")
	NewAuthHandler(s.Users, s.Dashboard, cfg.Auth, limit).RegisterRoutes(api)
	NewAppointmentHandler(s.Appointments, cfg.Auth, limit).RegisterRoutes(api)
	NewWorkbookHandler(s.Workbooks, cfg.Auth).RegisterRoutes(api)
	NewUserHandler(s.Users, cfg.Auth).RegisterRoutes(api)
	NewAuditHandler(s.Audit, cfg.Auth).RegisterRoutes(api)
	NewCatalogueHandler(s.Catalogue).RegisterRoutes(api)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "Route not found"))
	})
	return router, nil
}
