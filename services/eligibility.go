package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/mrb4ll0/itc-trainee-api/model"
)

// EligibilityService decides which applications may become trainees
type EligibilityService struct {
	repo *TraineeRepository
	now  func() time.Time
}

// NewEligibilityService creates an eligibility evaluator over the trainee
// repository
func NewEligibilityService(repo *TraineeRepository) *EligibilityService {
	return &EligibilityService{
		repo: repo,
		now:  time.Now,
	}
}

// PendingDetail is a display-ready row for one pending migration
type PendingDetail struct {
	ID          string `json:"id"`
	StudentName string `json:"student_name"`
	StartDate   string `json:"start_date"`
	Training    string `json:"training"`
	Status      string `json:"status"`
	Duration    string `json:"duration"`
}

// PendingMigrations is the eligible subset of a candidate list plus summary
// rows for the operator prompt
type PendingMigrations struct {
	Pending []model.Application `json:"pending"`
	Count   int                 `json:"count"`
	Details []PendingDetail     `json:"details"`
}

// IsEligible reports whether the application should be migrated now. All
// three checks must hold: the training window has started, the status is
// exactly "accepted", and no trainee with this id exists yet. The checks run
// in that order so the log trail explains every rejection.
func (s *EligibilityService) IsEligible(ctx context.Context, companyID string, app *model.Application) (bool, error) {
	if !app.HasStarted(s.now()) {
		log.Printf("[ELIGIBILITY] %s: start date %q not reached or unparseable", app.ID, app.Duration.StartDate)
		return false, nil
	}

	if app.Status != model.ApplicationStatusAccepted {
		log.Printf("[ELIGIBILITY] %s: status %q is not accepted", app.ID, app.Status)
		return false, nil
	}

	exists, err := s.repo.Exists(ctx, companyID, app.ID)
	if err != nil {
		return false, err
	}
	if exists {
		log.Printf("[ELIGIBILITY] %s: already migrated", app.ID)
		return false, nil
	}

	return true, nil
}

// GetPendingMigrations maps IsEligible over the candidate list. Checks fan
// out concurrently since each may need a store round-trip; the result keeps
// the input order.
func (s *EligibilityService) GetPendingMigrations(ctx context.Context, companyID string, apps []model.Application) (*PendingMigrations, error) {
	eligible := make([]bool, len(apps))
	errs := make([]error, len(apps))

	var wg sync.WaitGroup
	for i := range apps {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			eligible[i], errs[i] = s.IsEligible(ctx, companyID, &apps[i])
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	result := &PendingMigrations{
		Pending: []model.Application{},
		Details: []PendingDetail{},
	}
	for i, app := range apps {
		if !eligible[i] {
			continue
		}
		result.Pending = append(result.Pending, app)
		result.Details = append(result.Details, PendingDetail{
			ID:          app.ID,
			StudentName: app.Student.FullName,
			StartDate:   app.Duration.StartDate,
			Training:    app.Training.Title,
			Status:      string(app.Status),
			Duration:    app.Duration.StartDate + " - " + app.Duration.EndDate,
		})
	}
	result.Count = len(result.Pending)

	return result, nil
}
