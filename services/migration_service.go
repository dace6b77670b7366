package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mrb4ll0/itc-trainee-api/model"
	"github.com/mrb4ll0/itc-trainee-api/store"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	// ErrNotAuthenticated is returned when no company id is available to
	// namespace store paths
	ErrNotAuthenticated = errors.New("not authenticated: no company id")
	// ErrMigrationInProgress is returned when a second batch start is
	// attempted while one is running
	ErrMigrationInProgress = errors.New("migration already in progress")
)

// ProgressStatus is the status field of a progress event
type ProgressStatus string

const (
	ProgressStatusProcessing ProgressStatus = "processing"
	ProgressStatusCompleted  ProgressStatus = "completed"
)

// MigrationSummary aggregates a finished batch
type MigrationSummary struct {
	Total    int `json:"total"`
	Migrated int `json:"migrated"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// ProgressEvent is emitted after every processed item and exactly once more
// when the batch finishes
type ProgressEvent struct {
	Current        int               `json:"current"`
	Total          int               `json:"total"`
	CurrentStudent string            `json:"current_student,omitempty"`
	Status         ProgressStatus    `json:"status"`
	Summary        *MigrationSummary `json:"summary,omitempty"`
}

// ProgressCallback receives progress events during a batch run
type ProgressCallback func(ProgressEvent)

// MigrationResult is the outcome of one batch run
type MigrationResult struct {
	RunID     string             `json:"run_id"`
	Migrated  []*model.Trainee   `json:"migrated"`
	Skipped   []string           `json:"skipped"`
	Failed    []model.RunFailure `json:"failed"`
	Summary   MigrationSummary   `json:"summary"`
	Cancelled bool               `json:"cancelled"`
}

// MigrationService orchestrates application-to-trainee batches: strictly
// sequential item processing, per-item error isolation, cooperative
// cancellation and a final summary. One batch runs at a time per instance.
type MigrationService struct {
	repo        *TraineeRepository
	eligibility *EligibilityService
	docStore    store.DocumentStore
	db          *gorm.DB         // optional run audit rows
	tracker     *ProgressTracker // optional live run state in Redis

	mu        sync.Mutex
	running   bool
	cancelled bool
	runID     string

	// itemDelay keeps the host responsive between items; not a retry/backoff
	// mechanism
	itemDelay    time.Duration
	writeTimeout time.Duration
	now          func() time.Time
}

// NewMigrationService creates the orchestrator. db and tracker may be nil;
// run bookkeeping is skipped where they are absent.
func NewMigrationService(repo *TraineeRepository, eligibility *EligibilityService, docStore store.DocumentStore, db *gorm.DB, tracker *ProgressTracker) *MigrationService {
	return &MigrationService{
		repo:         repo,
		eligibility:  eligibility,
		docStore:     docStore,
		db:           db,
		tracker:      tracker,
		itemDelay:    50 * time.Millisecond,
		writeTimeout: 15 * time.Second,
		now:          time.Now,
	}
}

// IsMigrationInProgress reports whether a batch is currently running
func (s *MigrationService) IsMigrationInProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ActiveRunID returns the id of the in-flight run, if any
func (s *MigrationService) ActiveRunID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID, s.running
}

// Cancel requests cooperative cancellation of the running batch. The loop
// observes the flag at iteration boundaries; the in-flight item finishes
// its writes and nothing persisted is rolled back.
func (s *MigrationService) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.cancelled = true
		log.Printf("[MIGRATION] cancellation requested for run %s", s.runID)
	}
}

func (s *MigrationService) isCancelled(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	s.mu.Lock()
	cancelled := s.cancelled
	runID := s.runID
	s.mu.Unlock()
	if cancelled {
		return true
	}
	// The Redis flag lets a cancel issued through another instance land here
	if s.tracker != nil && runID != "" && s.tracker.IsCancelRequested(ctx, runID) {
		return true
	}
	return false
}

// MigrateEligible runs one batch. The eligible subset is recomputed at start
// time (a caller-supplied list is never trusted as-is) and re-checked per
// item, since eligibility can change between check and start. A failure on
// one item never aborts the batch; only a pre-batch failure escapes as an
// error.
func (s *MigrationService) MigrateEligible(ctx context.Context, companyID string, userID uint, apps []model.Application, cb ProgressCallback) (*MigrationResult, error) {
	if companyID == "" {
		return nil, ErrNotAuthenticated
	}

	// Guard set before the first suspension point, cleared on every exit path
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrMigrationInProgress
	}
	s.running = true
	s.cancelled = false
	s.runID = uuid.NewString()
	runID := s.runID
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.runID = ""
		s.mu.Unlock()
	}()

	pending, err := s.eligibility.GetPendingMigrations(ctx, companyID, apps)
	if err != nil {
		// Batch-level failure before any item was attempted
		s.recordRunFailure(companyID, userID, runID, err)
		return nil, fmt.Errorf("failed to compute eligible applications: %w", err)
	}

	total := len(pending.Pending)
	runRow := s.createRunRow(companyID, userID, runID, total)
	if s.tracker != nil {
		s.tracker.StartRun(ctx, runID, companyID, total)
	}

	log.Printf("[MIGRATION] run %s started: %d eligible applications for company %s", runID, total, companyID)

	result := &MigrationResult{
		RunID:    runID,
		Migrated: []*model.Trainee{},
		Skipped:  []string{},
		Failed:   []model.RunFailure{},
	}

	for i := range pending.Pending {
		if s.isCancelled(ctx) {
			result.Cancelled = true
			log.Printf("[MIGRATION] run %s cancelled after %d/%d items", runID, i, total)
			break
		}

		app := &pending.Pending[i]
		s.processApplication(ctx, companyID, app, result)

		if cb != nil {
			cb(ProgressEvent{
				Current:        i + 1,
				Total:          total,
				CurrentStudent: app.Student.FullName,
				Status:         ProgressStatusProcessing,
			})
		}
		if s.tracker != nil {
			s.tracker.UpdateRun(ctx, runID, i+1, total, app.Student.FullName)
		}

		if s.itemDelay > 0 && i < len(pending.Pending)-1 {
			time.Sleep(s.itemDelay)
		}
	}

	result.Summary = MigrationSummary{
		Total:    total,
		Migrated: len(result.Migrated),
		Skipped:  len(result.Skipped),
		Failed:   len(result.Failed),
	}

	processed := result.Summary.Migrated + result.Summary.Skipped + result.Summary.Failed
	if cb != nil {
		cb(ProgressEvent{
			Current: processed,
			Total:   total,
			Status:  ProgressStatusCompleted,
			Summary: &result.Summary,
		})
	}

	s.finishRunRow(runRow, result)
	if s.tracker != nil {
		s.tracker.FinishRun(ctx, runID, result)
	}

	log.Printf("[MIGRATION] run %s finished: %d migrated, %d skipped, %d failed of %d",
		runID, result.Summary.Migrated, result.Summary.Skipped, result.Summary.Failed, total)

	return result, nil
}

// MigrateStream is the channel form of MigrateEligible. The event channel
// preserves ordering and closes after the final completed event; the result
// channel delivers exactly one value.
func (s *MigrationService) MigrateStream(ctx context.Context, companyID string, userID uint, apps []model.Application) (<-chan ProgressEvent, <-chan StreamOutcome) {
	events := make(chan ProgressEvent, len(apps)+1)
	done := make(chan StreamOutcome, 1)

	go func() {
		defer close(events)
		defer close(done)

		result, err := s.MigrateEligible(ctx, companyID, userID, apps, func(ev ProgressEvent) {
			events <- ev
		})
		done <- StreamOutcome{Result: result, Err: err}
	}()

	return events, done
}

// StreamOutcome carries the terminal result of a streamed batch
type StreamOutcome struct {
	Result *MigrationResult
	Err    error
}

// processApplication migrates one application, recording the outcome on the
// result. All errors are contained here; nothing propagates to the batch.
func (s *MigrationService) processApplication(ctx context.Context, companyID string, app *model.Application, result *MigrationResult) {
	// Re-check defends against a concurrent migration of the same id between
	// the batch pre-check and this item's turn
	eligible, err := s.eligibility.IsEligible(ctx, companyID, app)
	if err != nil {
		result.Failed = append(result.Failed, model.RunFailure{ApplicationID: app.ID, Error: err.Error()})
		return
	}
	if !eligible {
		result.Skipped = append(result.Skipped, app.ID)
		return
	}

	trainee := model.NewTraineeFromApplication(app, s.now())

	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	err = s.repo.Save(writeCtx, companyID, trainee)
	cancel()
	if err != nil {
		log.Printf("[MIGRATION] failed to persist trainee %s: %v", app.ID, err)
		result.Failed = append(result.Failed, model.RunFailure{ApplicationID: app.ID, Error: err.Error()})
		return
	}

	writeCtx, cancel = context.WithTimeout(ctx, s.writeTimeout)
	err = s.docStore.Patch(writeCtx, store.ApplicationCollection(companyID), app.ID, store.Document{
		"status": string(model.ApplicationStatusInTraining),
	})
	cancel()
	if err != nil {
		// The trainee document exists but the source status flip failed; the
		// item is failed, not retried. The next run's eligibility check will
		// see the trainee and skip re-migration.
		log.Printf("[MIGRATION] failed to flip application %s status: %v", app.ID, err)
		result.Failed = append(result.Failed, model.RunFailure{ApplicationID: app.ID, Error: err.Error()})
		return
	}

	result.Migrated = append(result.Migrated, trainee)
}

// ---- run audit rows ----

func (s *MigrationService) createRunRow(companyID string, userID uint, runID string, total int) *model.MigrationRun {
	if s.db == nil {
		return nil
	}
	now := s.now()
	row := &model.MigrationRun{
		RunID:           runID,
		CompanyID:       companyID,
		Status:          model.MigrationRunStatusRunning,
		TotalItems:      total,
		StartedByUserID: userID,
		StartedAt:       &now,
	}
	if err := s.db.Create(row).Error; err != nil {
		log.Printf("[MIGRATION] warning: failed to create run row for %s: %v", runID, err)
		return nil
	}
	return row
}

func (s *MigrationService) finishRunRow(row *model.MigrationRun, result *MigrationResult) {
	if s.db == nil || row == nil {
		return
	}

	status := model.MigrationRunStatusCompleted
	switch {
	case result.Cancelled:
		status = model.MigrationRunStatusCancelled
	case result.Summary.Failed > 0 && result.Summary.Migrated == 0 && result.Summary.Total > 0:
		status = model.MigrationRunStatusFailed
	case result.Summary.Failed > 0:
		status = model.MigrationRunStatusPartial
	}

	now := s.now()
	updates := map[string]interface{}{
		"status":         status,
		"migrated_items": result.Summary.Migrated,
		"skipped_items":  result.Summary.Skipped,
		"failed_items":   result.Summary.Failed,
		"completed_at":   &now,
	}
	if len(result.Failed) > 0 {
		if failuresJSON, err := json.Marshal(result.Failed); err == nil {
			updates["failure_details"] = datatypes.JSON(failuresJSON)
		}
	}

	if err := s.db.Model(&model.MigrationRun{}).Where("run_id = ?", result.RunID).Updates(updates).Error; err != nil {
		log.Printf("[MIGRATION] warning: failed to finalize run row %s: %v", result.RunID, err)
	}
}

func (s *MigrationService) recordRunFailure(companyID string, userID uint, runID string, cause error) {
	if s.db == nil {
		return
	}
	now := s.now()
	row := &model.MigrationRun{
		RunID:           runID,
		CompanyID:       companyID,
		Status:          model.MigrationRunStatusFailed,
		StartedByUserID: userID,
		StartedAt:       &now,
		CompletedAt:     &now,
		ErrorMessage:    cause.Error(),
	}
	if err := s.db.Create(row).Error; err != nil {
		log.Printf("[MIGRATION] warning: failed to record failed run %s: %v", runID, err)
	}
}
