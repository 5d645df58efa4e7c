package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/internquest-api/internal/handler"
	"github.com/noah-isme/internquest-api/internal/middleware"
	"github.com/noah-isme/internquest-api/internal/models"
	"github.com/noah-isme/internquest-api/internal/repository"
	"github.com/noah-isme/internquest-api/internal/service"
	"github.com/noah-isme/internquest-api/pkg/config"
	"github.com/noah-isme/internquest-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/internquest-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/internquest-api/pkg/middleware/requestid"
)

type routeDeps struct {
	auth    *service.AuthService
	audit   *repository.UserRepository
	metrics *service.MetricsService

	authH        *handler.AuthHandler
	requirementH *handler.RequirementHandler
	approvalH    *handler.ApprovalHandler
	templateH    *handler.TemplateHandler
	timeLogH     *handler.TimeLogHandler
	fileH        *handler.FileHandler
	metricsH     *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, d routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(d.metrics, "/metrics", "/health"))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", d.metricsH.Health)
	r.GET("/ready", d.metricsH.Ready)
	r.GET("/metrics", d.metricsH.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", d.authH.Register)
	auth.POST("/login", d.authH.Login)
	auth.POST("/refresh", d.authH.Refresh)

	if d.fileH != nil {
		api.GET("/files/:token", d.fileH.Download)
	}

	secured := api.Group("")
	secured.Use(middleware.JWT(d.auth))
	secured.POST("/auth/logout", d.authH.Logout)
	secured.POST("/auth/change-password", d.authH.ChangePassword)

	reviewers := middleware.RequireRoles(models.RoleAdviser, models.RoleAdmin)
	students := middleware.RequireRoles(models.RoleStudent)

	me := secured.Group("/me", students)
	me.GET("/requirements", d.requirementH.Mine)
	me.POST("/requirements/:id/files", d.requirementH.Upload)
	me.DELETE("/requirements/:id/files/:index", d.requirementH.DeleteFile)
	me.GET("/requirements/:id/files/:index/url", d.requirementH.FileURL)

	me.GET("/time-logs", d.timeLogH.List)
	me.POST("/time-logs", d.timeLogH.Save)
	me.GET("/time-logs/summary", d.timeLogH.Summary)
	me.POST("/time-logs/export", d.timeLogH.Export)
	me.DELETE("/time-logs/:id", d.timeLogH.Delete)
	secured.POST("/time-logs/calculate", d.timeLogH.Calculate)

	studentRoutes := secured.Group("/students/:id")
	studentRoutes.GET("/requirements", reviewers,
		middleware.Audit(d.audit, logr, models.AuditActionChecklistView, "checklist"),
		d.requirementH.ForStudent)
	studentRoutes.GET("/requirements/:requirementId/files/:index/url", reviewers, d.requirementH.StudentFileURL)
	studentRoutes.GET("/approvals", middleware.RequireSelfOrRoles("id", models.RoleAdviser, models.RoleAdmin), d.approvalH.List)
	studentRoutes.PUT("/approvals", reviewers, d.approvalH.Review)

	templates := secured.Group("/templates")
	templates.GET("", d.templateH.List)
	templates.GET("/:id", d.templateH.Get)
	templates.POST("", middleware.RequireRoles(models.RoleAdmin), d.templateH.Create)
	templates.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), d.templateH.Update)
	templates.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), d.templateH.Delete)

	secured.GET("/admin/metrics/summary", middleware.RequireRoles(models.RoleAdmin), d.metricsH.Summary)

	return r
}
