package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mrb4ll0/itc-trainee-api/database"
)

// HandleCheckHealth reports liveness of the API and its relational store
func HandleCheckHealth(store database.Storage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := "ok"
		dbStatus := "ok"
		if err := store.HealthCheck(); err != nil {
			status = "degraded"
			dbStatus = err.Error()
		}

		return c.JSON(fiber.Map{
			"status":   status,
			"database": dbStatus,
		})
	}
}
