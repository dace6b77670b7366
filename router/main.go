package router

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mrb4ll0/itc-trainee-api/database"
	"github.com/mrb4ll0/itc-trainee-api/handlers"
	auth_handlers "github.com/mrb4ll0/itc-trainee-api/handlers/auth"
	migration_handlers "github.com/mrb4ll0/itc-trainee-api/handlers/migration"
	notification_handlers "github.com/mrb4ll0/itc-trainee-api/handlers/notification"
	trainee_handlers "github.com/mrb4ll0/itc-trainee-api/handlers/trainee"
	"github.com/mrb4ll0/itc-trainee-api/services"
	"github.com/mrb4ll0/itc-trainee-api/store"
	"github.com/mrb4ll0/itc-trainee-api/utils/auth"
	"github.com/mrb4ll0/itc-trainee-api/utils/cache"
	"github.com/mrb4ll0/itc-trainee-api/utils/middleware"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, gormStore database.Storage, docStore store.DocumentStore, reporting *database.PostgreSQLStore) {
	// Get JWT secret from environment
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := os.Getenv("JWT_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "itc-trainee-api"
	}

	// Initialize JWT manager with config
	jwtConfig := auth.JWTConfig{
		Secret:        jwtSecret,
		Expiry:        24 * time.Hour,     // Access token expires in 24 hours
		RefreshExpiry: 7 * 24 * time.Hour, // Refresh token expires in 7 days
		Issuer:        jwtIssuer,
	}
	jwtManager := auth.NewJWTManager(jwtConfig)

	// Get DB instance (type assert from interface)
	db, ok := gormStore.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	// Redis backs token revocation, brute force counters and live run
	// state, so a missing connection is fatal here.
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// Initialize brute force protection
	bruteForceProtection := middleware.NewBruteForceProtection(redisCache)

	// Initialize token blacklist and auth middleware
	blacklistService := auth.NewBlacklistService(redisCache)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, blacklistService, db)

	// Initialize auth handler with brute force protection
	authHandler := auth_handlers.NewAuthHandler(db, jwtManager, blacklistService, bruteForceProtection)

	// Initialize trainee and application repositories over the document store
	traineeRepo := services.NewTraineeRepository(docStore)
	applicationRepo := services.NewApplicationRepository(docStore)
	traineeHandler := trainee_handlers.NewTraineeHandler(traineeRepo)

	// Initialize migration pipeline
	eligibilityService := services.NewEligibilityService(traineeRepo)
	progressTracker := services.NewProgressTracker(redisCache)
	migrationService := services.NewMigrationService(traineeRepo, eligibilityService, docStore, db, progressTracker)
	notificationService := services.NewNotificationService(db)
	migrationNotifier := services.NewMigrationNotifier(migrationService, eligibilityService, notificationService, progressTracker)
	migrationHandler := migration_handlers.NewMigrationHandler(applicationRepo, eligibilityService, migrationService, migrationNotifier, progressTracker, db, reporting)

	notificationHandler := notification_handlers.NewNotificationHandler(notificationService)

	// Apply security middleware
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:3001"
	}

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,             // 100 requests
		RateLimitWindow:   1 * time.Minute, // per minute
	})

	// Health check endpoint (public)
	app.Get("/ping", handlers.HandleCheckHealth(gormStore))

	// API v1 group
	api := app.Group("/api/v1")

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)

	// Login with brute force protection
	authGroup.Post("/login", bruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)

	authGroup.Post("/refresh", authHandler.Refresh)

	// Protected auth routes
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	authGroup.Get("/me", authMiddleware.Required(), authHandler.Me)

	// Trainee routes (protected, scoped to the caller's company)
	trainees := api.Group("/trainees", authMiddleware.Required())
	trainees.Get("/", traineeHandler.List)
	trainees.Get("/:id", traineeHandler.Get)
	trainees.Patch("/:id/progress", traineeHandler.UpdateProgress)
	trainees.Post("/:id/attendance", traineeHandler.RecordAttendance)
	trainees.Post("/:id/feedback", traineeHandler.AddFeedback)
	trainees.Post("/:id/milestones/:milestoneId/complete", traineeHandler.CompleteMilestone)
	trainees.Post("/:id/extend", traineeHandler.Extend)
	trainees.Post("/:id/complete", traineeHandler.Complete)

	// Migration routes (protected)
	migration := api.Group("/migration", authMiddleware.Required())
	migration.Get("/pending", migrationHandler.GetPending)
	migration.Post("/start", migrationHandler.Start)
	migration.Get("/stream", migrationHandler.StartStream) // SSE: live per-item progress
	migration.Get("/active", migrationHandler.GetActiveRun)
	migration.Post("/cancel", migrationHandler.Cancel)
	migration.Get("/runs", migrationHandler.GetHistory)
	migration.Get("/runs/:id", migrationHandler.GetRun)
	migration.Get("/stats", migrationHandler.GetStats)

	// Notification routes (protected)
	notifications := api.Group("/notifications", authMiddleware.Required())
	notifications.Get("/", notificationHandler.List)
	notifications.Get("/unread-count", notificationHandler.UnreadCount)
	notifications.Post("/read-all", notificationHandler.MarkAllRead)
	notifications.Post("/:id/read", notificationHandler.MarkRead)
}
