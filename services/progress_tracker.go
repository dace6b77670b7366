package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mrb4ll0/itc-trainee-api/utils/cache"
)

// TTL configurations for run states
const (
	RunStateTTLSuccess = 1 * time.Hour  // finished runs
	RunStateTTLFailure = 24 * time.Hour // failed/cancelled runs, kept longer for diagnosis
	RunStateTTLActive  = 1 * time.Hour  // in-flight runs
	CancelFlagTTL      = 5 * time.Minute
)

const (
	runStateKey    = "migration:run:%s"
	activeRunKey   = "migration:active:%s" // keyed by company id
	cancelFlagKey  = "migration:cancel:%s"
	runStateActive = "running"
)

// RunState is the live state of a migration run mirrored into Redis so
// status endpoints and other instances can observe an in-flight batch.
type RunState struct {
	RunID          string            `json:"run_id"`
	CompanyID      string            `json:"company_id"`
	Status         string            `json:"status"` // running, completed, partially_completed, failed, cancelled
	Current        int               `json:"current"`
	Total          int               `json:"total"`
	CurrentStudent string            `json:"current_student,omitempty"`
	Summary        *MigrationSummary `json:"summary,omitempty"`
	StartedAt      time.Time         `json:"started_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// ProgressTracker manages migration run state in Redis
type ProgressTracker struct {
	cache *cache.RedisCache
}

// NewProgressTracker creates a new progress tracker instance
func NewProgressTracker(redisCache *cache.RedisCache) *ProgressTracker {
	return &ProgressTracker{cache: redisCache}
}

// StartRun records a new in-flight run and marks it active for the company
func (pt *ProgressTracker) StartRun(ctx context.Context, runID, companyID string, total int) {
	state := &RunState{
		RunID:     runID,
		CompanyID: companyID,
		Status:    runStateActive,
		Total:     total,
		StartedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := pt.cache.SetJSON(ctx, fmt.Sprintf(runStateKey, runID), state, RunStateTTLActive); err != nil {
		log.Printf("[MIGRATION] warning: failed to save run state %s: %v", runID, err)
		return
	}
	if err := pt.cache.Set(ctx, fmt.Sprintf(activeRunKey, companyID), runID, RunStateTTLActive); err != nil {
		log.Printf("[MIGRATION] warning: failed to mark run %s active: %v", runID, err)
	}
}

// UpdateRun refreshes the live counters after an item is processed
func (pt *ProgressTracker) UpdateRun(ctx context.Context, runID string, current, total int, currentStudent string) {
	state, err := pt.GetRun(ctx, runID)
	if err != nil {
		return
	}
	state.Current = current
	state.Total = total
	state.CurrentStudent = currentStudent
	state.UpdatedAt = time.Now()

	if err := pt.cache.SetJSON(ctx, fmt.Sprintf(runStateKey, runID), state, RunStateTTLActive); err != nil {
		log.Printf("[MIGRATION] warning: failed to update run state %s: %v", runID, err)
	}
}

// FinishRun stores the terminal state and clears the active-run marker
func (pt *ProgressTracker) FinishRun(ctx context.Context, runID string, result *MigrationResult) {
	state, err := pt.GetRun(ctx, runID)
	if err != nil {
		state = &RunState{RunID: runID}
	}

	switch {
	case result.Cancelled:
		state.Status = "cancelled"
	case result.Summary.Failed > 0 && result.Summary.Migrated == 0 && result.Summary.Total > 0:
		state.Status = "failed"
	case result.Summary.Failed > 0:
		state.Status = "partially_completed"
	default:
		state.Status = "completed"
	}
	state.Current = result.Summary.Migrated + result.Summary.Skipped + result.Summary.Failed
	state.Total = result.Summary.Total
	state.CurrentStudent = ""
	state.Summary = &result.Summary
	state.UpdatedAt = time.Now()

	ttl := RunStateTTLSuccess
	if state.Status == "failed" || state.Status == "cancelled" {
		ttl = RunStateTTLFailure
	}

	if err := pt.cache.SetJSON(ctx, fmt.Sprintf(runStateKey, runID), state, ttl); err != nil {
		log.Printf("[MIGRATION] warning: failed to store final run state %s: %v", runID, err)
	}
	if state.CompanyID != "" {
		pt.cache.Delete(ctx, fmt.Sprintf(activeRunKey, state.CompanyID))
	}
	pt.cache.Delete(ctx, fmt.Sprintf(cancelFlagKey, runID))
}

// GetRun retrieves run state from Redis
func (pt *ProgressTracker) GetRun(ctx context.Context, runID string) (*RunState, error) {
	var state RunState
	if err := pt.cache.GetJSON(ctx, fmt.Sprintf(runStateKey, runID), &state); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, fmt.Errorf("run not found or expired: %s", runID)
		}
		return nil, fmt.Errorf("failed to get run state: %w", err)
	}
	return &state, nil
}

// ErrNoActiveRun is returned by GetActiveRun when no run is in flight for the
// company
var ErrNoActiveRun = errors.New("no active migration run")

// GetActiveRun returns the active run id for a company, or ErrNoActiveRun
func (pt *ProgressTracker) GetActiveRun(ctx context.Context, companyID string) (string, error) {
	runID, err := pt.cache.Get(ctx, fmt.Sprintf(activeRunKey, companyID))
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return "", ErrNoActiveRun
		}
		return "", err
	}
	if runID == "" {
		return "", ErrNoActiveRun
	}
	return runID, nil
}

// RequestCancel sets the cancellation flag the orchestrator polls at
// iteration boundaries
func (pt *ProgressTracker) RequestCancel(ctx context.Context, runID string) error {
	return pt.cache.Set(ctx, fmt.Sprintf(cancelFlagKey, runID), "1", CancelFlagTTL)
}

// IsCancelRequested checks whether a cancel flag is set for the run
func (pt *ProgressTracker) IsCancelRequested(ctx context.Context, runID string) bool {
	val, err := pt.cache.Get(ctx, fmt.Sprintf(cancelFlagKey, runID))
	return err == nil && val == "1"
}
