package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/mrb4ll0/itc-trainee-api/model"
)

const (
	// staleRunThreshold is how long a run may stay "running" before the
	// sweeper treats it as orphaned (crashed instance, lost worker)
	staleRunThreshold = 2 * time.Hour

	// notificationRetention is how long read notifications are kept
	notificationRetention = 30 * 24 * time.Hour

	// historyRetention is how long cron logs and finished run rows are kept
	historyRetention = 90 * 24 * time.Hour
)

// SweepStaleMigrationRuns marks migration runs stuck in "running" as failed.
// A run only stays running across restarts when the owning instance died
// mid-batch; already persisted trainees are kept as-is.
func (m *CronManager) SweepStaleMigrationRuns() {
	jobName := "sweep_stale_migration_runs"
	cutoff := time.Now().Add(-staleRunThreshold)

	result := m.db.Model(&model.MigrationRun{}).
		Where("status = ? AND started_at < ?", model.MigrationRunStatusRunning, cutoff).
		Updates(map[string]interface{}{
			"status":        model.MigrationRunStatusFailed,
			"completed_at":  time.Now(),
			"error_message": "run abandoned: no progress for over 2 hours",
		})

	if result.Error != nil {
		m.logJobError(jobName, result.Error)
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("marked %d stale runs as failed", result.RowsAffected))
}

// CleanupOldNotifications removes read notifications past the retention window
func (m *CronManager) CleanupOldNotifications() {
	jobName := "cleanup_old_notifications"

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := m.notifications.CleanupOldNotifications(ctx, notificationRetention)
	if err != nil {
		m.logJobError(jobName, err)
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("deleted %d old notifications", deleted))
}

// CleanupOldData removes cron logs and finished migration run rows past the
// history retention window
func (m *CronManager) CleanupOldData() {
	jobName := "cleanup_old_data"
	cutoff := time.Now().Add(-historyRetention)

	logsResult := m.db.Unscoped().
		Where("created_at < ?", cutoff).
		Delete(&model.CronJobLog{})
	if logsResult.Error != nil {
		m.logJobError(jobName, logsResult.Error)
		return
	}

	runsResult := m.db.Unscoped().
		Where("completed_at IS NOT NULL AND completed_at < ?", cutoff).
		Delete(&model.MigrationRun{})
	if runsResult.Error != nil {
		m.logJobError(jobName, runsResult.Error)
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("deleted %d cron logs and %d run rows",
		logsResult.RowsAffected, runsResult.RowsAffected))
}
