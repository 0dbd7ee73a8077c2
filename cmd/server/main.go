package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"timesheet_app_go/config"
	"timesheet_app_go/db"
	"timesheet_app_go/handlers"
	"timesheet_app_go/logger"
	"timesheet_app_go/middleware"
	"timesheet_app_go/models"
	"timesheet_app_go/services"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log := logger.New(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	// Initialize database
	if err := db.Initialize(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	services.InitializeArchiveStore(cfg)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Metrics())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// Make config available to handlers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("config", cfg)
			return next(c)
		}
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Public routes (no authentication required)
	public := e.Group("/api")
	public.Use(middleware.APIRateLimiter.Middleware())
	{
		public.POST("/login", handlers.LoginHandler, middleware.LoginRateLimiter.Middleware())
		public.GET("/test", handlers.APITestHandler)
		if cfg.Environment != "production" {
			public.POST("/debug/check-credentials", handlers.CheckCredentialsHandler, middleware.CredentialCheckRateLimiter.Middleware())
		}
	}

	// Protected routes (bearer token required)
	protected := e.Group("")
	protected.Use(middleware.RequireAuth(cfg.SessionSecret))
	protected.Use(middleware.AuditContext())
	{
		// Downloads
		protected.GET("/projects/export", handlers.ExportProjectsHandler)
		protected.GET("/time-entries/template", handlers.ImportTemplateHandler)
		protected.GET("/reports/:report", handlers.DownloadReportHandler)
	}

	api := protected.Group("/api")
	api.Use(middleware.APIRateLimiter.Middleware())
	{
		api.POST("/logout", handlers.LogoutHandler)
		api.GET("/user", handlers.CurrentUserHandler)

		// Projects
		api.GET("/projects/statistics", handlers.GetProjectStatistics)
		api.GET("/projects", handlers.GetProjects)
		api.GET("/projects/:id", handlers.GetProject)
		api.GET("/projects/:id/milestones", handlers.GetProjectMilestones)
		api.GET("/projects/:id/milestones/:milestoneId", handlers.GetProjectMilestone)
		api.GET("/projects/:id/billing-milestones", handlers.GetBillingMilestones)
		api.GET("/projects/:id/billing-milestones/summary", handlers.GetBillingSummary)

		// Project management (admin and manager only)
		managers := api.Group("")
		managers.Use(middleware.RequireRole(models.RoleAdmin, models.RoleManager))
		{
			managers.POST("/projects", handlers.CreateProject)
			managers.PUT("/projects/:id", handlers.UpdateProject)
			managers.DELETE("/projects/:id", handlers.DeleteProject)

			managers.POST("/projects/:id/milestones", handlers.CreateProjectMilestone)
			managers.PUT("/projects/:id/milestones/:milestoneId", handlers.UpdateProjectMilestone)
			managers.DELETE("/projects/:id/milestones/:milestoneId", handlers.DeleteProjectMilestone)

			managers.POST("/projects/:id/billing-milestones", handlers.CreateBillingMilestone)
			managers.PUT("/projects/:id/billing-milestones/:billingId", handlers.UpdateBillingMilestone)
			managers.DELETE("/projects/:id/billing-milestones/:billingId", handlers.DeleteBillingMilestone)
		}

		// Time entries
		api.GET("/time-entries", handlers.GetTimeEntries)
		api.POST("/time-entries", handlers.CreateTimeEntry)
		api.POST("/time-entries/import", handlers.ImportTimeEntriesHandler, middleware.ImportRateLimiter.Middleware())
		api.GET("/time-entries/:id", handlers.GetTimeEntry)
		api.PUT("/time-entries/:id", handlers.UpdateTimeEntry)
		api.DELETE("/time-entries/:id", handlers.DeleteTimeEntry)

		// Timesheet
		api.GET("/timesheet", handlers.GetTimesheet)
		api.GET("/timesheet/cell", handlers.GetTimesheetCell)
		api.PUT("/timesheet/cell", handlers.SaveTimesheetCell)

		// Users and entities (read-only)
		api.GET("/users", handlers.GetUsers)
		api.GET("/users/statistics", handlers.GetUserStatistics)
		api.GET("/users/time-entries", handlers.GetUsersWithTimeEntries)
		api.GET("/users/hours-statistics", handlers.GetUserHoursStatistics)
		api.GET("/users/:id", handlers.GetUser)
		api.GET("/entities", handlers.GetEntities)
		api.GET("/entities/statistics", handlers.GetEntityStatistics)
		api.GET("/entities/types", handlers.GetEntityTypes)
		api.GET("/entities/business-groups", handlers.GetBusinessGroups)
		api.GET("/entities/:id", handlers.GetEntity)

		// Reports
		api.GET("/reports/presets", handlers.GetReportPresets)
		api.GET("/reports/phases", handlers.GetPhaseReport)
		api.GET("/reports/business-lines", handlers.GetBusinessLineReport)
		api.GET("/reports/user-hours", handlers.GetUserHoursReport)
		api.GET("/reports/user-hours/detail", handlers.GetUserDayDetail)
		api.GET("/reports/user-projects", handlers.GetUserProjectReport)

		// Audit logs (admin only)
		audit := api.Group("/audit-logs")
		audit.Use(middleware.RequireRole(models.RoleAdmin))
		{
			audit.GET("", handlers.GetAuditLogsHandler)
			audit.GET("/:type/:id", handlers.GetResourceHistoryHandler)
		}

		// Archived imports and reports (admin only)
		archives := api.Group("/archives")
		archives.Use(middleware.RequireRole(models.RoleAdmin))
		{
			archives.GET("", handlers.ListArchivesHandler)
			archives.GET("/download", handlers.DownloadArchiveHandler)
			archives.DELETE("", handlers.DeleteArchiveHandler)
		}
	}

	// Start background cleanup jobs (runs every hour)
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			if err := services.CleanupExpiredSessions(db.DB); err != nil {
				log.Error("Error cleaning up expired sessions", zap.Error(err))
			}
		}
	}()

	// Start server
	go func() {
		log.Info("Server starting", zap.String("port", cfg.ServerPort), zap.String("environment", cfg.Environment))
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	} else {
		log.Info("Server stopped")
	}
}
