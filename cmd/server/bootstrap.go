package main

import (
	"github.com/nwssu/gymdesk/backend/internal/config"
	"github.com/nwssu/gymdesk/backend/internal/handlers"
	"github.com/nwssu/gymdesk/backend/internal/middleware"
	"github.com/nwssu/gymdesk/backend/internal/models"
	"github.com/nwssu/gymdesk/backend/internal/services"
	"github.com/nwssu/gymdesk/backend/internal/utils"
	"github.com/nwssu/gymdesk/backend/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg         *config.Config
	sweeper     *services.SweepService
	authLimiter *middleware.RateLimiter
	registry    *prometheus.Registry

	healthHandler     *handlers.HealthHandler
	authHandler       *handlers.AuthHandler
	memberHandler     *handlers.MemberHandler
	dashboardHandler  *handlers.DashboardHandler
	statisticsHandler *handlers.StatisticsHandler
	pricingHandler    *handlers.PricingHandler
	meHandler         *handlers.MeHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Initialize database
	if err := models.InitDB(&cfg.Database, cfg.Server.Mode); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	db := models.GetDB()
	cal := services.NewCalendar(services.SystemClock, cfg.Membership.Location())

	// Seed the default price list, effective from today
	if err := models.SeedDefaultData(db, cal.Today()); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatalf("Failed to get database handle: %v", err)
	}
	registry := handlers.NewMetricsRegistry(sqlDB)
	metrics := services.NewMetrics(registry)

	lifecycle := services.NewLifecycleService(db, cal)
	sweeper := services.NewSweepService(db, cal, metrics)
	allocator := services.NewIdentifierAllocator()
	memberService := services.NewMemberService(db, cal, allocator, sweeper, lifecycle, metrics, &cfg.Membership)
	workoutService := services.NewWorkoutService(db, cal, lifecycle)
	statsService := services.NewStatisticsService(db, cal)
	pricingService := services.NewPricingService(db, cal)
	authService := services.NewAuthService(db, cal, lifecycle, &cfg.JWT)
	summaryCache := services.NewSummaryCache(cal.Now, cfg.Membership.SummaryCacheTTL, metrics)
	dashboardService := services.NewDashboardService(db, cal, sweeper, summaryCache, metrics)

	// Create default admin user
	if err := authService.CreateAdminIfNotExists("admin", cfg.Membership.DefaultAdminPassword); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	// Expire lapsed memberships on a schedule; reads also sweep lazily.
	if err := sweeper.StartScheduler(cfg.Membership.SweepCron); err != nil {
		logger.Fatalf("Failed to start expiry sweep: %v", err)
	}

	return &appServices{
		cfg:         cfg,
		sweeper:     sweeper,
		authLimiter: middleware.NewRateLimiter(cfg.Server.AuthRateLimit, cfg.Server.AuthBurst),
		registry:    registry,

		healthHandler:     handlers.NewHealthHandler(db),
		authHandler:       handlers.NewAuthHandler(authService, memberService),
		memberHandler:     handlers.NewMemberHandler(memberService, sweeper),
		dashboardHandler:  handlers.NewDashboardHandler(dashboardService),
		statisticsHandler: handlers.NewStatisticsHandler(statsService, cal),
		pricingHandler:    handlers.NewPricingHandler(pricingService),
		meHandler:         handlers.NewMeHandler(memberService, workoutService, cal),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.sweeper.StopScheduler()
	s.authLimiter.Stop()
	logger.Info().Msg("All schedulers stopped")

	if sqlDB, err := models.GetDB().DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close database")
		}
	}
}
