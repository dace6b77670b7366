package trainee

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mrb4ll0/itc-trainee-api/services"
	"github.com/mrb4ll0/itc-trainee-api/store"
	"github.com/mrb4ll0/itc-trainee-api/utils/middleware"
	"github.com/mrb4ll0/itc-trainee-api/utils/response"
)

// TraineeHandler handles trainee record requests
type TraineeHandler struct {
	repo *services.TraineeRepository
}

// NewTraineeHandler creates a new trainee handler
func NewTraineeHandler(repo *services.TraineeRepository) *TraineeHandler {
	return &TraineeHandler{repo: repo}
}

// List returns all trainees for the authenticated company
func (h *TraineeHandler) List(c *fiber.Ctx) error {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		return response.Unauthorized(c, "Company account required")
	}

	trainees, err := h.repo.List(c.Context(), companyID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list trainees")
	}

	return response.Success(c, fiber.Map{
		"trainees": trainees,
		"count":    len(trainees),
	})
}

// Get returns one trainee by id
func (h *TraineeHandler) Get(c *fiber.Ctx) error {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		return response.Unauthorized(c, "Company account required")
	}

	id := c.Params("id")
	if id == "" {
		return response.BadRequest(c, "Trainee id is required")
	}

	trainee, err := h.repo.Get(c.Context(), companyID, id)
	if err != nil {
		if err == store.ErrNotFound {
			return response.NotFound(c, "Trainee not found")
		}
		return response.InternalServerError(c, "Failed to load trainee")
	}

	return response.Success(c, trainee)
}
