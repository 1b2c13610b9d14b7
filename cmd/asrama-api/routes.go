package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/asrama-api/api/swagger"
	"github.com/noah-isme/asrama-api/internal/handler"
	"github.com/noah-isme/asrama-api/internal/middleware"
	"github.com/noah-isme/asrama-api/internal/models"
	"github.com/noah-isme/asrama-api/internal/service"
	"github.com/noah-isme/asrama-api/pkg/config"
	"github.com/noah-isme/asrama-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/asrama-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/asrama-api/pkg/middleware/requestid"
)

var (
	admin   = string(models.RoleAdmin)
	kasra   = string(models.RoleKasra)
	student = string(models.RoleStudent)
	self    = middleware.Self
)

type routeHandlers struct {
	rooms         *handler.RoomHandler
	students      *handler.ResidentHandler
	kasra         *handler.ResidentHandler
	imports       *handler.ImportHandler
	payments      *handler.PaymentHandler
	violations    *handler.ViolationHandler
	complaints    *handler.ComplaintHandler
	announcements *handler.AnnouncementHandler
	activities    *handler.ActivityHandler
	dashboard     *handler.DashboardHandler
	metrics       *handler.MetricsHandler
	changes       *handler.ChangesHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, tokens middleware.TokenValidator, metrics *service.MetricsService, h routeHandlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix, middleware.JWT(tokens))
	audit := func(action, resource string) gin.HandlerFunc { return middleware.Audit(logr, action, resource) }

	rooms := api.Group("/rooms")
	rooms.GET("", h.rooms.List)
	rooms.GET("/:building/:number", h.rooms.Get)
	rooms.PATCH("/:building/:number", middleware.RBAC(admin), audit("update", "room"), h.rooms.Update)
	rooms.POST("/reconcile", middleware.RBAC(admin), audit("reconcile", "room"), h.rooms.Reconcile)

	students := api.Group("/students")
	students.GET("", middleware.RBAC(admin, kasra), h.students.List)
	students.GET("/export", middleware.RBAC(admin, kasra), h.students.Export)
	students.POST("", middleware.RBAC(admin), audit("create", "student"), h.students.Create)
	students.GET("/:nim", middleware.RBAC(admin, kasra, self), h.students.Get)
	students.PUT("/:nim", middleware.RBAC(admin), audit("update", "student"), h.students.Update)
	students.DELETE("/:nim", middleware.RBAC(admin), audit("delete", "student"), h.students.Delete)
	students.POST("/:nim/checkout", middleware.RBAC(admin, kasra), audit("checkout", "student"), h.students.CheckOut)

	ras := api.Group("/kasra")
	ras.GET("", middleware.RBAC(admin), h.kasra.List)
	ras.GET("/export", middleware.RBAC(admin), h.kasra.Export)
	ras.POST("", middleware.RBAC(admin), audit("create", "kasra"), h.kasra.Create)
	ras.GET("/:nim", middleware.RBAC(admin, self), h.kasra.Get)
	ras.PUT("/:nim", middleware.RBAC(admin), audit("update", "kasra"), h.kasra.Update)
	ras.DELETE("/:nim", middleware.RBAC(admin), audit("delete", "kasra"), h.kasra.Delete)
	ras.POST("/:nim/checkout", middleware.RBAC(admin), audit("checkout", "kasra"), h.kasra.CheckOut)

	imports := api.Group("/imports", middleware.RBAC(admin))
	imports.POST("/students", audit("import", "student"), h.imports.Students)
	imports.POST("/kasra", audit("import", "kasra"), h.imports.Kasra)

	payments := api.Group("/payments")
	payments.GET("", h.payments.List)
	payments.GET("/:id", h.payments.Get)
	payments.POST("", middleware.RBAC(admin, kasra, student), audit("create", "payment"), h.payments.Create)
	payments.POST("/:id/verify", middleware.RBAC(admin), audit("verify", "payment"), h.payments.Verify)

	violations := api.Group("/violations")
	violations.GET("", h.violations.List)
	violations.GET("/summary/:nim", middleware.RBAC(admin, kasra, self), h.violations.Summary)
	violations.POST("", middleware.RBAC(admin, kasra), audit("create", "violation"), h.violations.Record)
	violations.DELETE("/:id", middleware.RBAC(admin), audit("delete", "violation"), h.violations.Delete)

	complaints := api.Group("/complaints")
	complaints.GET("", h.complaints.List)
	complaints.GET("/:id", h.complaints.Get)
	complaints.POST("", audit("create", "complaint"), h.complaints.Create)
	complaints.PATCH("/:id/status", middleware.RBAC(admin, kasra), audit("update_status", "complaint"), h.complaints.UpdateStatus)

	announcements := api.Group("/announcements")
	announcements.GET("", h.announcements.List)
	announcements.GET("/:id", h.announcements.Get)
	announcements.POST("", middleware.RBAC(admin), audit("create", "announcement"), h.announcements.Create)
	announcements.PUT("/:id", middleware.RBAC(admin), audit("update", "announcement"), h.announcements.Update)
	announcements.DELETE("/:id", middleware.RBAC(admin), audit("delete", "announcement"), h.announcements.Delete)

	activities := api.Group("/activities")
	activities.GET("", h.activities.List)
	activities.GET("/:id", h.activities.Get)
	activities.POST("", middleware.RBAC(admin), audit("create", "activity"), h.activities.Create)
	activities.PUT("/:id", middleware.RBAC(admin), audit("update", "activity"), h.activities.Update)
	activities.DELETE("/:id", middleware.RBAC(admin), audit("delete", "activity"), h.activities.Delete)

	if cfg.Dashboard.Enabled {
		api.GET("/dashboard/occupancy", middleware.RBAC(admin, kasra), h.dashboard.Occupancy)
	}

	if h.changes != nil {
		api.GET("/changes/ws", h.changes.Stream)
	}

	return r
}
