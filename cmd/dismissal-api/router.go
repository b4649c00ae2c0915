package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-dismissal-api/api/swagger"
	"github.com/noah-isme/sma-dismissal-api/internal/handler"
	"github.com/noah-isme/sma-dismissal-api/internal/middleware"
	"github.com/noah-isme/sma-dismissal-api/internal/models"
	"github.com/noah-isme/sma-dismissal-api/pkg/config"
	"github.com/noah-isme/sma-dismissal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-dismissal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-dismissal-api/pkg/middleware/requestid"
)

type handlers struct {
	sessions       *handler.SessionHandler
	queue          *handler.QueueHandler
	checkIns       *handler.CheckInHandler
	changeRequests *handler.ChangeRequestHandler
	realtime       *handler.RealtimeHandler
	metrics        *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, auth middleware.TokenValidator, observer middleware.HTTPObserver, h handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(observer))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	staff := middleware.RequireRoles(models.StaffRoles...)
	staffOrTeacher := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleOffice, models.RoleTeacher)
	staffOrParent := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleOffice, models.RoleParent)
	parent := middleware.RequireRoles(models.RoleParent)

	api := r.Group(cfg.APIPrefix)
	api.GET("/ws", middleware.StreamJWT(auth), h.realtime.Stream)

	secured := api.Group("")
	secured.Use(middleware.JWT(auth), middleware.WithResponseMeta())

	secured.GET("/schools/:schoolId/sessions/today", staffOrTeacher, h.sessions.Today)

	sessions := secured.Group("/sessions/:id")
	sessions.GET("", staffOrTeacher, h.sessions.Get)
	sessions.PATCH("/status", staff, h.sessions.UpdateStatus)
	sessions.GET("/queue", staffOrTeacher, h.queue.List)
	sessions.POST("/queue/call-batch", staff, h.queue.CallBatch)
	sessions.GET("/stats", staffOrTeacher, h.queue.Stats)
	sessions.GET("/activity", staff, h.queue.Activity)
	sessions.GET("/export", staff, h.sessions.Export)

	checkIns := secured.Group("/checkins")
	checkIns.POST("/app", parent, h.checkIns.App)
	checkIns.POST("/car", staff, h.checkIns.Car)
	checkIns.POST("/bus", staff, h.checkIns.Bus)
	checkIns.POST("/walkers", staffOrTeacher, h.checkIns.Walkers)

	queue := secured.Group("/queue")
	queue.POST("/release-batch", staffOrTeacher, h.queue.ReleaseBatch)
	queue.POST("/dismiss-batch", staff, h.queue.DismissBatch)
	queue.POST("/:id/call", staffOrTeacher, h.queue.Call)
	queue.POST("/:id/release", staffOrTeacher, h.queue.Release)
	queue.POST("/:id/dismiss", staffOrParent, h.queue.Dismiss)
	queue.POST("/:id/hold", staff, h.queue.Hold)
	queue.POST("/:id/delay", staff, h.queue.Delay)

	changeRequests := secured.Group("/change-requests")
	changeRequests.POST("", parent, h.changeRequests.Submit)
	changeRequests.GET("", staffOrParent, h.changeRequests.List)
	changeRequests.POST("/:id/resolve", staff, h.changeRequests.Resolve)

	return r
}
