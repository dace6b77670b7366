package services

import (
	"context"
	"fmt"
	"log"

	"github.com/mrb4ll0/itc-trainee-api/model"
)

// MigrationOutcome classifies how a coordinated migration attempt ended
type MigrationOutcome string

const (
	OutcomeNoPending      MigrationOutcome = "no_pending"
	OutcomeDeclined       MigrationOutcome = "declined"
	OutcomeAlreadyRunning MigrationOutcome = "already_running"
	OutcomeCompleted      MigrationOutcome = "completed"
	OutcomePartial        MigrationOutcome = "partially_completed"
	OutcomeFailed         MigrationOutcome = "failed"
	OutcomeCancelled      MigrationOutcome = "cancelled"
)

// Consenter decides whether a proposed batch should proceed. Implementations
// range from an interactive prompt to an always-yes policy for scheduled runs.
type Consenter interface {
	Consent(ctx context.Context, pending *PendingMigrations) (bool, error)
}

// ConsentFunc adapts a function to the Consenter interface
type ConsentFunc func(ctx context.Context, pending *PendingMigrations) (bool, error)

func (f ConsentFunc) Consent(ctx context.Context, pending *PendingMigrations) (bool, error) {
	return f(ctx, pending)
}

// AutoConsent approves every proposed batch
var AutoConsent = ConsentFunc(func(context.Context, *PendingMigrations) (bool, error) {
	return true, nil
})

// CoordinatorResult is the outcome of one coordinated attempt
type CoordinatorResult struct {
	Outcome MigrationOutcome   `json:"outcome"`
	Pending *PendingMigrations `json:"pending,omitempty"`
	Result  *MigrationResult   `json:"result,omitempty"`
	RunID   string             `json:"run_id,omitempty"`
}

// MigrationNotifier coordinates the full operator flow around a batch: the
// pending check, the consent gate, the live notification row and the terminal
// status update. Notifications are best-effort; a notification failure never
// fails the batch.
type MigrationNotifier struct {
	migrator      *MigrationService
	eligibility   *EligibilityService
	notifications *NotificationService
	tracker       *ProgressTracker
}

// NewMigrationNotifier creates the coordinator. notifications and tracker may
// be nil.
func NewMigrationNotifier(migrator *MigrationService, eligibility *EligibilityService, notifications *NotificationService, tracker *ProgressTracker) *MigrationNotifier {
	return &MigrationNotifier{
		migrator:      migrator,
		eligibility:   eligibility,
		notifications: notifications,
		tracker:       tracker,
	}
}

// CheckAndMigrate runs one coordinated attempt for the company: compute the
// pending set, ask the consenter, then run the batch while keeping the linked
// notification current. Exactly one terminal outcome is returned.
func (n *MigrationNotifier) CheckAndMigrate(ctx context.Context, companyID string, userID uint, apps []model.Application, consenter Consenter) (*CoordinatorResult, error) {
	if companyID == "" {
		return nil, ErrNotAuthenticated
	}

	if n.migrator.IsMigrationInProgress() {
		return &CoordinatorResult{Outcome: OutcomeAlreadyRunning}, nil
	}

	pending, err := n.eligibility.GetPendingMigrations(ctx, companyID, apps)
	if err != nil {
		return nil, fmt.Errorf("failed to compute pending migrations: %w", err)
	}
	if pending.Count == 0 {
		return &CoordinatorResult{Outcome: OutcomeNoPending, Pending: pending}, nil
	}

	if consenter == nil {
		consenter = AutoConsent
	}
	approved, err := consenter.Consent(ctx, pending)
	if err != nil {
		return nil, fmt.Errorf("consent check failed: %w", err)
	}
	if !approved {
		log.Printf("[NOTIFIER] operator declined migration of %d applications for company %s", pending.Count, companyID)
		return &CoordinatorResult{Outcome: OutcomeDeclined, Pending: pending}, nil
	}

	return n.runWithNotifications(ctx, companyID, userID, pending)
}

func (n *MigrationNotifier) runWithNotifications(ctx context.Context, companyID string, userID uint, pending *PendingMigrations) (*CoordinatorResult, error) {
	events, done := n.migrator.MigrateStream(ctx, companyID, userID, pending.Pending)

	var notificationRunRowID *uint

	for ev := range events {
		if notificationRunRowID == nil && n.notifications != nil {
			// The run row id only exists once the batch has started; create the
			// linked notification on the first observed event
			if runID, ok := n.migrator.ActiveRunID(); ok {
				notificationRunRowID = n.createInProgressNotification(ctx, companyID, userID, runID, ev.Total)
			}
		}
		if ev.Status == ProgressStatusProcessing && notificationRunRowID != nil {
			n.updateProgressNotification(ctx, *notificationRunRowID, companyID, ev)
		}
	}

	outcome := <-done
	if outcome.Err != nil {
		if outcome.Err == ErrMigrationInProgress {
			return &CoordinatorResult{Outcome: OutcomeAlreadyRunning, Pending: pending}, nil
		}
		if notificationRunRowID != nil {
			n.finishNotification(ctx, *notificationRunRowID, companyID, nil, outcome.Err)
		}
		return nil, outcome.Err
	}

	result := outcome.Result
	if notificationRunRowID != nil {
		n.finishNotification(ctx, *notificationRunRowID, companyID, result, nil)
	}

	return &CoordinatorResult{
		Outcome: classifyOutcome(result),
		Pending: pending,
		Result:  result,
		RunID:   result.RunID,
	}, nil
}

// CancelActive requests cancellation of the in-flight run and records the
// request on the linked notification right away, without waiting for the loop
// to observe the flag.
func (n *MigrationNotifier) CancelActive(ctx context.Context, companyID string, userID uint) (string, error) {
	runID, running := n.migrator.ActiveRunID()
	if !running {
		return "", fmt.Errorf("no migration in progress")
	}

	if n.tracker != nil {
		if err := n.tracker.RequestCancel(ctx, runID); err != nil {
			log.Printf("[NOTIFIER] warning: failed to persist cancel flag for run %s: %v", runID, err)
		}
	}
	n.migrator.Cancel()

	if n.notifications != nil {
		if rowID := n.runRowID(runID); rowID != nil {
			err := n.notifications.UpdateNotificationForRun(ctx, *rowID, model.NotificationTypeWarning,
				"Migration cancellation requested",
				"The running migration will stop after the current application finishes.",
				nil)
			if err != nil {
				log.Printf("[NOTIFIER] warning: failed to update notification for cancelled run %s: %v", runID, err)
			}
		}
	}

	log.Printf("[NOTIFIER] user %d requested cancellation of run %s for company %s", userID, runID, companyID)
	return runID, nil
}

func classifyOutcome(result *MigrationResult) MigrationOutcome {
	switch {
	case result.Cancelled:
		return OutcomeCancelled
	case result.Summary.Failed > 0 && result.Summary.Migrated == 0 && result.Summary.Total > 0:
		return OutcomeFailed
	case result.Summary.Failed > 0:
		return OutcomePartial
	default:
		return OutcomeCompleted
	}
}

// ---- notification helpers ----

func (n *MigrationNotifier) runRowID(runID string) *uint {
	if n.migrator.db == nil {
		return nil
	}
	var row model.MigrationRun
	if err := n.migrator.db.Where("run_id = ?", runID).First(&row).Error; err != nil {
		return nil
	}
	return &row.ID
}

func (n *MigrationNotifier) createInProgressNotification(ctx context.Context, companyID string, userID uint, runID string, total int) *uint {
	rowID := n.runRowID(runID)
	_, err := n.notifications.CreateNotification(ctx, CreateNotificationRequest{
		UserID:         userID,
		Type:           model.NotificationTypeInProgress,
		Category:       model.NotificationCategoryMigration,
		Title:          "Trainee migration started",
		Message:        fmt.Sprintf("Migrating %d accepted applications to trainees.", total),
		MigrationRunID: rowID,
		Metadata: &model.NotificationMetadata{
			RunID:      runID,
			CompanyID:  companyID,
			TotalItems: total,
		},
	})
	if err != nil {
		log.Printf("[NOTIFIER] warning: failed to create migration notification: %v", err)
		return nil
	}
	return rowID
}

func (n *MigrationNotifier) updateProgressNotification(ctx context.Context, runRowID uint, companyID string, ev ProgressEvent) {
	progress := 0
	if ev.Total > 0 {
		progress = ev.Current * 100 / ev.Total
	}
	err := n.notifications.UpdateNotificationForRun(ctx, runRowID, model.NotificationTypeInProgress,
		"Trainee migration in progress",
		fmt.Sprintf("Processed %d of %d applications.", ev.Current, ev.Total),
		&model.NotificationMetadata{
			CompanyID:  companyID,
			Current:    ev.Current,
			TotalItems: ev.Total,
			Progress:   progress,
		})
	if err != nil {
		log.Printf("[NOTIFIER] warning: failed to update migration notification: %v", err)
	}
}

func (n *MigrationNotifier) finishNotification(ctx context.Context, runRowID uint, companyID string, result *MigrationResult, runErr error) {
	if runErr != nil {
		err := n.notifications.UpdateNotificationForRun(ctx, runRowID, model.NotificationTypeError,
			"Trainee migration failed",
			fmt.Sprintf("The migration could not run: %v", runErr),
			&model.NotificationMetadata{CompanyID: companyID})
		if err != nil {
			log.Printf("[NOTIFIER] warning: failed to finalize migration notification: %v", err)
		}
		return
	}

	var (
		notifType model.NotificationType
		title     string
		message   string
	)
	switch classifyOutcome(result) {
	case OutcomeCancelled:
		notifType = model.NotificationTypeWarning
		title = "Trainee migration cancelled"
		message = fmt.Sprintf("Migration stopped after %d of %d applications. Already migrated trainees are kept.",
			result.Summary.Migrated+result.Summary.Skipped+result.Summary.Failed, result.Summary.Total)
	case OutcomeFailed:
		notifType = model.NotificationTypeError
		title = "Trainee migration failed"
		message = fmt.Sprintf("All %d applications failed to migrate.", result.Summary.Total)
	case OutcomePartial:
		notifType = model.NotificationTypeWarning
		title = "Trainee migration partially completed"
		message = fmt.Sprintf("%d migrated, %d skipped, %d failed of %d applications.",
			result.Summary.Migrated, result.Summary.Skipped, result.Summary.Failed, result.Summary.Total)
	default:
		notifType = model.NotificationTypeSuccess
		title = "Trainee migration completed"
		message = fmt.Sprintf("%d applications migrated to trainees (%d skipped).",
			result.Summary.Migrated, result.Summary.Skipped)
	}

	err := n.notifications.UpdateNotificationForRun(ctx, runRowID, notifType, title, message,
		&model.NotificationMetadata{
			RunID:         result.RunID,
			CompanyID:     companyID,
			Current:       result.Summary.Migrated + result.Summary.Skipped + result.Summary.Failed,
			TotalItems:    result.Summary.Total,
			Progress:      100,
			MigratedItems: result.Summary.Migrated,
			SkippedItems:  result.Summary.Skipped,
			FailedItems:   result.Summary.Failed,
			Failures:      result.Failed,
		})
	if err != nil {
		log.Printf("[NOTIFIER] warning: failed to finalize migration notification: %v", err)
	}
}
