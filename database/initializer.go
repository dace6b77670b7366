package database

import (
	"log"
	"strings"
)

// Initialize creates the indexes and views the reporting queries depend on.
// It runs after GORM AutoMigrate has created the base tables.
func (s *PostgreSQLStore) Initialize() error {
	log.Println("Initializing PostgresSQL Database.", "Initializing Indexes")
	if err := s.InitIndexes(); err != nil {
		return err
	}
	log.Println("Initializing PostgresSQL Database.", "Initializing Views")
	if err := s.InitViews(); err != nil {
		return err
	}
	return nil
}

func (s *PostgreSQLStore) InitIndexes() error {
	run_history_index := `
	CREATE INDEX IF NOT EXISTS idx_migration_runs_company_started
		ON migration_runs (company_id, started_at DESC);
	`

	run_status_index := `
	CREATE INDEX IF NOT EXISTS idx_migration_runs_status
		ON migration_runs (status)
		WHERE status = 'running';
	`

	unread_notifications_index := `
	CREATE INDEX IF NOT EXISTS idx_user_notifications_unread
		ON user_notifications (user_id, created_at DESC)
		WHERE read = false;
	`

	cron_log_index := `
	CREATE INDEX IF NOT EXISTS idx_cron_job_logs_name_started
		ON cron_job_logs (job_name, started_at DESC);
	`

	all_indexes := strings.Join([]string{run_history_index, run_status_index, unread_notifications_index, cron_log_index}, "")

	_, err := s.db.Exec(all_indexes)
	return err
}

func (s *PostgreSQLStore) InitViews() error {
	// Per-company daily rollup backing the run statistics endpoint
	daily_stats_view := `
	CREATE OR REPLACE VIEW migration_run_daily_stats AS
	SELECT
		company_id,
		DATE(started_at) AS run_date,
		COUNT(*) AS runs,
		SUM(migrated_items) AS migrated,
		SUM(skipped_items) AS skipped,
		SUM(failed_items) AS failed
	FROM migration_runs
	WHERE started_at IS NOT NULL AND deleted_at IS NULL
	GROUP BY company_id, DATE(started_at);
	`

	_, err := s.db.Exec(daily_stats_view)
	return err
}
