package migration

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/mrb4ll0/itc-trainee-api/database"
	"github.com/mrb4ll0/itc-trainee-api/model"
	"github.com/mrb4ll0/itc-trainee-api/services"
	"github.com/mrb4ll0/itc-trainee-api/utils/middleware"
	"github.com/mrb4ll0/itc-trainee-api/utils/response"
	"gorm.io/gorm"
)

// RunTracker is the live-run state surface the handlers read
type RunTracker interface {
	GetActiveRun(ctx context.Context, companyID string) (string, error)
	GetRun(ctx context.Context, runID string) (*services.RunState, error)
}

// MigrationHandler handles application-to-trainee migration requests
type MigrationHandler struct {
	applications *services.ApplicationRepository
	eligibility  *services.EligibilityService
	migrator     *services.MigrationService
	notifier     *services.MigrationNotifier
	tracker      RunTracker
	db           *gorm.DB
	reporting    *database.PostgreSQLStore
}

// NewMigrationHandler creates a new migration handler. tracker and reporting
// may be nil; the endpoints that need them degrade gracefully.
func NewMigrationHandler(
	applications *services.ApplicationRepository,
	eligibility *services.EligibilityService,
	migrator *services.MigrationService,
	notifier *services.MigrationNotifier,
	tracker RunTracker,
	db *gorm.DB,
	reporting *database.PostgreSQLStore,
) *MigrationHandler {
	return &MigrationHandler{
		applications: applications,
		eligibility:  eligibility,
		migrator:     migrator,
		notifier:     notifier,
		tracker:      tracker,
		db:           db,
		reporting:    reporting,
	}
}

// GetPending returns the applications eligible for migration right now
func (h *MigrationHandler) GetPending(c *fiber.Ctx) error {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		return response.Unauthorized(c, "Company account required")
	}

	apps, err := h.applications.List(c.Context(), companyID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load applications")
	}

	pending, err := h.eligibility.GetPendingMigrations(c.Context(), companyID, apps)
	if err != nil {
		return response.InternalServerError(c, "Failed to compute pending migrations")
	}

	return response.Success(c, pending)
}

// Start launches a migration batch in the background. Calling this endpoint
// is the operator's consent; the batch runs with an auto-approving consenter.
func (h *MigrationHandler) Start(c *fiber.Ctx) error {
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

	pending, err := h.eligibility.GetPendingMigrations(c.Context(), companyID, apps)
	if err != nil {
		return response.InternalServerError(c, "Failed to compute pending migrations")
	}
	if pending.Count == 0 {
		return response.SuccessWithMessage(c, "No applications are pending migration", fiber.Map{
			"outcome": services.OutcomeNoPending,
		})
	}

	// The request context dies with the response; the batch keeps running
	go func() {
		result, err := h.notifier.CheckAndMigrate(context.Background(), companyID, userID, apps, services.AutoConsent)
		if err != nil {
			log.Printf("[MIGRATION] background batch for company %s failed: %v", companyID, err)
			return
		}
		log.Printf("[MIGRATION] background batch for company %s finished with outcome %s", companyID, result.Outcome)
	}()

	return response.Accepted(c, "Migration started", fiber.Map{
		"pending_count": pending.Count,
		"details":       pending.Details,
	})
}

// GetActiveRun returns the live state of the company's in-flight run, if any
func (h *MigrationHandler) GetActiveRun(c *fiber.Ctx) error {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		return response.Unauthorized(c, "Company account required")
	}

	if h.tracker == nil {
		return response.ServiceUnavailable(c, "Live run tracking is not available")
	}

	runID, err := h.tracker.GetActiveRun(c.Context(), companyID)
	if err != nil {
		if errors.Is(err, services.ErrNoActiveRun) {
			return response.NotFound(c, "No migration in progress")
		}
		return response.InternalServerError(c, "Failed to read active run")
	}

	state, err := h.tracker.GetRun(c.Context(), runID)
	if err != nil {
		return response.InternalServerError(c, "Failed to read run state")
	}

	return response.Success(c, state)
}

// GetRun returns one run: live state when available, otherwise the audit row
func (h *MigrationHandler) GetRun(c *fiber.Ctx) error {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		return response.Unauthorized(c, "Company account required")
	}

	runID := c.Params("id")
	if runID == "" {
		return response.BadRequest(c, "Run id is required")
	}

	if h.tracker != nil {
		if state, err := h.tracker.GetRun(c.Context(), runID); err == nil {
			if state.CompanyID != companyID {
				return response.NotFound(c, "Run not found")
			}
			return response.Success(c, state)
		}
	}

	var row model.MigrationRun
	err := h.db.WithContext(c.Context()).
		Where("run_id = ? AND company_id = ?", runID, companyID).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Run not found")
		}
		return response.InternalServerError(c, "Failed to load run")
	}

	return response.Success(c, row)
}

// Cancel requests cooperative cancellation of the in-flight run
func (h *MigrationHandler) Cancel(c *fiber.Ctx) error {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		return response.Unauthorized(c, "Company account required")
	}
	userID, _ := middleware.GetUserID(c)

	runID, err := h.notifier.CancelActive(c.Context(), companyID, userID)
	if err != nil {
		return response.NotFound(c, "No migration in progress")
	}

	return response.SuccessWithMessage(c, "Cancellation requested", fiber.Map{
		"run_id": runID,
	})
}

// GetHistory returns the company's recent runs from the audit trail
func (h *MigrationHandler) GetHistory(c *fiber.Ctx) error {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		return response.Unauthorized(c, "Company account required")
	}

	if h.reporting == nil {
		return response.ServiceUnavailable(c, "Run history is not available")
	}

	limit := c.QueryInt("limit", 20)
	entries, err := h.reporting.GetRunHistory(companyID, limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to load run history")
	}

	return response.Success(c, fiber.Map{
		"runs":  entries,
		"count": len(entries),
	})
}

// GetStats returns the per-day migration rollup
func (h *MigrationHandler) GetStats(c *fiber.Ctx) error {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		return response.Unauthorized(c, "Company account required")
	}

	if h.reporting == nil {
		return response.ServiceUnavailable(c, "Run statistics are not available")
	}

	days := c.QueryInt("days", 30)
	stats, err := h.reporting.GetDailyRunStats(companyID, days)
	if err != nil {
		return response.InternalServerError(c, "Failed to load run statistics")
	}

	return response.Success(c, fiber.Map{
		"days":  days,
		"stats": stats,
	})
}
