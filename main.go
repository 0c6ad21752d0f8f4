package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/vidaplena/adherence-backend/internal/audit"
	"github.com/vidaplena/adherence-backend/internal/config"
	"github.com/vidaplena/adherence-backend/internal/handler"
	"github.com/vidaplena/adherence-backend/internal/middleware"
	"github.com/vidaplena/adherence-backend/internal/repository"
	"github.com/vidaplena/adherence-backend/internal/service"
)

var (
	logger *zap.Logger
	pool   *pgxpool.Pool
	cfg    *config.Config
)

func main() {
	// Load configuration
	var err error
	cfg, err = config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize Zap logger
	if cfg.Server.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	// Initialize database connection pool with pgx
	pool, err = pgxpool.New(context.Background(), cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	// Test database connection
	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("Successfully connected to database")

	// Initialize repositories
	profileRepo := repository.NewProfileRepository(pool, logger)
	intakeRepo := repository.NewIntakeRepository(pool, logger)
	contentRepo := repository.NewContentRepository(pool, logger)
	reminderRepo := repository.NewReminderRepository(pool, cfg.Schedule.MaxPendingReminders, logger)

	// Parse the dose grid once; Validate already checked it.
	grid := cfg.Schedule.Grid()

	// Initialize services
	intakeService := service.NewIntakeService(profileRepo, intakeRepo, intakeRepo, grid, logger)
	adherenceService := service.NewAdherenceService(profileRepo, intakeRepo, intakeService, grid, logger)
	scheduler := service.NewReminderScheduler(reminderRepo, logger)
	planner := service.NewReminderPlanner(
		scheduler,
		profileRepo,
		contentRepo,
		grid,
		cfg.Schedule.MotivationalBase(),
		cfg.Schedule.Dimensions,
		cfg.Schedule.HorizonDays,
		logger,
	)

	// Initialize audit logger
	auditLogger := audit.NewLogger(pool, logger)

	// Initialize handlers
	adherenceHandler := handler.NewAdherenceHandler(adherenceService, logger)
	intakeHandler := handler.NewIntakeHandler(intakeService, auditLogger, logger)
	reminderHandler := handler.NewReminderHandler(planner, scheduler, auditLogger, logger)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	r := gin.New()

	// Add recovery middleware (must be first)
	r.Use(middleware.RecoveryMiddleware(logger))

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Configure appropriately for production
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add request ID middleware
	r.Use(middleware.RequestIDMiddleware())

	// Add request logging middleware
	r.Use(middleware.RequestLoggingMiddleware(logger))

	// Add error logging middleware
	r.Use(middleware.ErrorLoggingMiddleware(logger))

	// Register routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/adherence/summary", adherenceHandler.GetAdherenceSummary)
		v1.POST("/intake/toggle", intakeHandler.ToggleIntake)
		v1.GET("/intake/day", intakeHandler.GetDaySchedule)
		v1.POST("/reminders/medication/reschedule", reminderHandler.RescheduleMedication)
		v1.POST("/reminders/motivational/reschedule", reminderHandler.RescheduleMotivational)
		v1.GET("/reminders", reminderHandler.ListReminders)
	}

	r.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			logger.Error("health check failed: database unreachable", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "disconnected",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": "connected",
			"service":  "adherence-backend",
			"version":  "1.0.0",
		})
	})

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Close database connections
	pool.Close()

	logger.Info("Server exited")
}
