package main

import (
	"github.com/gin-gonic/gin"
	"github.com/nwssu/gymdesk/backend/internal/handlers"
	"github.com/nwssu/gymdesk/backend/internal/middleware"
	"github.com/nwssu/gymdesk/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(middleware.RequestID(), logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(svc.cfg.Server.AllowOrigins))

	// Health check
	r.GET("/health", svc.healthHandler.CheckHealth)

	// Prometheus metrics (admin only)
	r.GET("/metrics", middleware.AuthRequired(), middleware.AdminRequired(), handlers.Metrics(svc.registry))

	api := r.Group("/api")
	{
		// Auth routes (public, rate limited per IP)
		auth := api.Group("/auth", svc.authLimiter.Middleware())
		{
			auth.POST("/admin/login", svc.authHandler.AdminLogin)
			auth.POST("/member/login", svc.authHandler.MemberLogin)
			auth.POST("/member/register", svc.authHandler.Register)
			auth.POST("/member/activate/verify", svc.authHandler.VerifyActivation)
			auth.POST("/member/activate", svc.authHandler.Activate)
		}

		// Admin routes
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AuditLog())
		{
			// Members
			admin.GET("/members", svc.memberHandler.List)
			admin.POST("/members", svc.memberHandler.Create)
			admin.POST("/members/sweep", svc.memberHandler.Sweep)
			admin.GET("/members/:id", svc.memberHandler.GetByID)
			admin.PUT("/members/:id", svc.memberHandler.Update)
			admin.DELETE("/members/:id", svc.memberHandler.Delete)

			// Dashboard
			admin.GET("/dashboard/summary", svc.dashboardHandler.GetSummary)

			// Statistics
			admin.GET("/statistics/revenue", svc.statisticsHandler.Revenue)
			admin.GET("/statistics/logs", svc.statisticsHandler.Logs)
			admin.GET("/statistics/monthly", svc.statisticsHandler.Monthly)
			admin.GET("/statistics/export", svc.statisticsHandler.Export)

			// Pricing
			admin.GET("/pricing", svc.pricingHandler.List)
			admin.PUT("/pricing", svc.pricingHandler.SetPrice)
			admin.GET("/pricing/history", svc.pricingHandler.History)
		}

		// Member self-service routes
		me := api.Group("/me")
		me.Use(middleware.AuthRequired(), middleware.MemberRequired())
		{
			me.GET("/dashboard", svc.meHandler.Dashboard)
			me.GET("/membership", svc.meHandler.Membership)
			me.PUT("/profile", svc.meHandler.UpdateProfile)
			me.POST("/workouts", svc.meHandler.LogWorkout)
			me.GET("/workouts", svc.meHandler.ListWorkouts)
		}
	}
}
