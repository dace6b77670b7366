package migration

import (
	"bufio"
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/mrb4ll0/itc-trainee-api/services"
	"github.com/mrb4ll0/itc-trainee-api/utils/middleware"
	"github.com/mrb4ll0/itc-trainee-api/utils/response"
	"github.com/mrb4ll0/itc-trainee-api/utils/sse"
)

// StartStream launches a migration batch and streams its progress as SSE.
// One event per processed application, then a final complete event with the
// summary. The channel form of the orchestrator feeds the stream directly.
func (h *MigrationHandler) StartStream(c *fiber.Ctx) error {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		return response.Unauthorized(c, "Company account required")
	}
	userID, _ := middleware.GetUserID(c)

	if h.migrator.IsMigrationInProgress() {
		return response.Conflict(c, "A migration is already in progress")
	}

	apps, err := h.applications.List(c.Context(), companyID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load applications")
	}

	// Set SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")
	c.Set("X-Accel-Buffering", "no") // Disable nginx buffering

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		// The Fiber context is not valid inside the stream writer
		ctx := context.Background()

		events, done := h.migrator.MigrateStream(ctx, companyID, userID, apps)

		sse.SendStarted(w, fiber.Map{"status": "started"})

		for ev := range events {
			if ev.Status == services.ProgressStatusCompleted {
				continue // the outcome below carries the summary
			}
			if err := sse.SendProgress(w, ev); err != nil {
				// Client went away; the batch keeps running and the
				// notification row records the outcome
				for range events {
				}
				<-done
				return
			}
		}

		outcome := <-done
		if outcome.Err != nil {
			sse.SendError(w, outcome.Err)
			return
		}

		result := outcome.Result
		if result.Cancelled {
			sse.SendWarning(w, fiber.Map{
				"status":  "cancelled",
				"run_id":  result.RunID,
				"summary": result.Summary,
			})
			return
		}

		sse.SendComplete(w, fiber.Map{
			"run_id":  result.RunID,
			"summary": result.Summary,
			"failed":  result.Failed,
			"skipped": result.Skipped,
		})
	})

	return nil
}
