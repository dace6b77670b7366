package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mrb4ll0/itc-trainee-api/api"
	"github.com/mrb4ll0/itc-trainee-api/config"
	"github.com/mrb4ll0/itc-trainee-api/database"
	"github.com/mrb4ll0/itc-trainee-api/router"
	"github.com/mrb4ll0/itc-trainee-api/services"
	"github.com/mrb4ll0/itc-trainee-api/services/cron"
	"github.com/mrb4ll0/itc-trainee-api/store"
	"gorm.io/gorm"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err

	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	// Initialize GORM database connection
	gormStore, err := database.StartGORM()
	if err != nil {
		print("Check whether the Postgres is running or not\n")
		return err
	}

	if err := gormStore.Init(); err != nil {
		print("Failed to initialize database tables\n")
		print("Error running migrations:\n")
		return err
	}

	// Reporting store shares the Postgres instance but speaks raw SQL
	// for the indexes, the daily stats view and the history queries.
	reporting, err := database.Start()
	if err != nil {
		return err
	}
	if err := reporting.Initialize(); err != nil {
		return err
	}

	// Document store holds applications and active trainees
	docStore, err := store.NewMongoStore(getEnv.MONGO_URL, getEnv.MONGO_DB)
	if err != nil {
		print("Check whether MongoDB is running or not\n")
		return err
	}

	db, ok := gormStore.GetDB().(*gorm.DB)
	if !ok {
		return fmt.Errorf("failed to get GORM DB instance")
	}

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if os.Getenv("CRON_ENABLED") != "false" { // Default to enabled
		notifications := services.NewNotificationService(db)
		cronManager = cron.NewCronManager(db, notifications)
		if err := cronManager.Start(); err != nil {
			print("Warning: Failed to start cron jobs\n")
			print("Error: ", err.Error(), "\n")
			// Don't fail the app, just log the warning
		}
	}

	// Defer Closing DB and stopping cron jobs
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		docStore.Close(ctx)
		reporting.Close()
		gormStore.Close()
	}()

	// Init API
	var server *api.APIServer = api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT))
	app := server.GetEngine()

	// Attach Middleware
	// Custom Logger
	app.Use(logger.New())

	app.Use(recover.New())

	// Setup Routes
	router.SetupRoutes(app, gormStore, docStore, reporting)

	// Get the PORT & Start the Server
	return server.Run()

}
