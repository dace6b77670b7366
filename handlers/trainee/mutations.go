package trainee

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mrb4ll0/itc-trainee-api/model"
	"github.com/mrb4ll0/itc-trainee-api/store"
	"github.com/mrb4ll0/itc-trainee-api/utils/middleware"
	"github.com/mrb4ll0/itc-trainee-api/utils/response"
	"github.com/mrb4ll0/itc-trainee-api/utils/validation"
)

// UpdateProgressRequest updates a trainee's overall progress
type UpdateProgressRequest struct {
	Progress float64 `json:"progress" validate:"gte=0,lte=100"`
	Note     string  `json:"note,omitempty"`
}

// RecordAttendanceRequest records one day's attendance
type RecordAttendanceRequest struct {
	Date   string `json:"date" validate:"required"`
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes,omitempty"`
}

// AddFeedbackRequest adds a supervisor feedback entry
type AddFeedbackRequest struct {
	Feedback   string  `json:"feedback" validate:"required"`
	Rating     float64 `json:"rating" validate:"gte=0,lte=5"`
	Supervisor string  `json:"supervisor" validate:"required"`
}

// ExtendRequest moves the training end date out
type ExtendRequest struct {
	NewEndDate string `json:"new_end_date" validate:"required"`
	Reason     string `json:"reason" validate:"required"`
}

// errResponded signals that fn already wrote a response and the mutation
// must not be persisted
var errResponded = errors.New("response already written")

// withTrainee loads the trainee, applies fn, then persists the result. Every
// mutation goes through the repository so the id cache stays write-through.
func (h *TraineeHandler) withTrainee(c *fiber.Ctx, fn func(t *model.Trainee) error) error {
	companyID, ok := middleware.GetCompanyID(c)
	if !ok {
		return response.Unauthorized(c, "Company account required")
	}

	id := c.Params("id")
	if id == "" {
		return response.BadRequest(c, "Trainee id is required")
	}

	t, err := h.repo.Get(c.Context(), companyID, id)
	if err != nil {
		if err == store.ErrNotFound {
			return response.NotFound(c, "Trainee not found")
		}
		return response.InternalServerError(c, "Failed to load trainee")
	}

	if err := fn(t); err != nil {
		if err == errResponded {
			return nil
		}
		return err
	}

	if err := h.repo.Save(c.Context(), companyID, t); err != nil {
		return response.InternalServerError(c, "Failed to persist trainee")
	}

	return response.Success(c, t)
}

// UpdateProgress handles PATCH /trainees/:id/progress
func (h *TraineeHandler) UpdateProgress(c *fiber.Ctx) error {
	var req UpdateProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	return h.withTrainee(c, func(t *model.Trainee) error {
		t.UpdateProgress(req.Progress, validation.SanitizeString(req.Note), time.Now())
		return nil
	})
}

// RecordAttendance handles POST /trainees/:id/attendance
func (h *TraineeHandler) RecordAttendance(c *fiber.Ctx) error {
	var req RecordAttendanceRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	status := model.AttendanceStatus(req.Status)
	if status != model.AttendancePresent && status != model.AttendanceAbsent && status != model.AttendanceLate {
		return response.BadRequest(c, "Status must be 'present', 'absent' or 'late'")
	}
	if _, ok := model.ParseDate(req.Date); !ok {
		return response.BadRequest(c, "Invalid date format")
	}

	return h.withTrainee(c, func(t *model.Trainee) error {
		t.RecordAttendance(req.Date, status, validation.SanitizeString(req.Notes), time.Now())
		return nil
	})
}

// AddFeedback handles POST /trainees/:id/feedback
func (h *TraineeHandler) AddFeedback(c *fiber.Ctx) error {
	var req AddFeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Feedback == "" || req.Supervisor == "" {
		return response.BadRequest(c, "Feedback and supervisor are required")
	}

	return h.withTrainee(c, func(t *model.Trainee) error {
		t.AddFeedback(validation.SanitizeString(req.Feedback), req.Rating, req.Supervisor, time.Now())
		return nil
	})
}

// CompleteMilestone handles POST /trainees/:id/milestones/:milestoneId/complete
func (h *TraineeHandler) CompleteMilestone(c *fiber.Ctx) error {
	milestoneID := c.Params("milestoneId")
	if milestoneID == "" {
		return response.BadRequest(c, "Milestone id is required")
	}

	return h.withTrainee(c, func(t *model.Trainee) error {
		if !t.CompleteMilestone(milestoneID, time.Now()) {
			response.NotFound(c, "Milestone not found")
			return errResponded
		}
		return nil
	})
}

// Extend handles POST /trainees/:id/extend
func (h *TraineeHandler) Extend(c *fiber.Ctx) error {
	var req ExtendRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if _, ok := model.ParseDate(req.NewEndDate); !ok {
		return response.BadRequest(c, "Invalid new end date")
	}
	if req.Reason == "" {
		return response.BadRequest(c, "Extension reason is required")
	}

	return h.withTrainee(c, func(t *model.Trainee) error {
		t.Extend(req.NewEndDate, validation.SanitizeString(req.Reason), time.Now())
		return nil
	})
}

// Complete handles POST /trainees/:id/complete
func (h *TraineeHandler) Complete(c *fiber.Ctx) error {
	return h.withTrainee(c, func(t *model.Trainee) error {
		if t.IsCompleted() {
			response.Conflict(c, "Trainee is already completed")
			return errResponded
		}
		t.Complete(time.Now())
		return nil
	})
}
