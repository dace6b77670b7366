package database

import (
	"database/sql"
	"time"
)

// RunHistoryEntry is one row of the run history listing
type RunHistoryEntry struct {
	RunID         string     `json:"run_id"`
	Status        string     `json:"status"`
	TotalItems    int        `json:"total_items"`
	MigratedItems int        `json:"migrated_items"`
	SkippedItems  int        `json:"skipped_items"`
	FailedItems   int        `json:"failed_items"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// DailyRunStats is one row of the migration_run_daily_stats view
type DailyRunStats struct {
	RunDate  string `json:"run_date"`
	Runs     int    `json:"runs"`
	Migrated int    `json:"migrated"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
}

// GetRunHistory returns the most recent migration runs for a company
func (s *PostgreSQLStore) GetRunHistory(companyID string, limit int) ([]RunHistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT run_id, status, total_items, migrated_items, skipped_items, failed_items, started_at, completed_at
		FROM migration_runs
		WHERE company_id = $1 AND deleted_at IS NULL
		ORDER BY started_at DESC NULLS LAST
		LIMIT $2;
	`
	rows, err := s.db.Query(query, companyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []RunHistoryEntry{}
	for rows.Next() {
		entry, err := scanIntoRunHistory(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	return entries, rows.Err()
}

// GetDailyRunStats returns the per-day rollup for a company over the last n days
func (s *PostgreSQLStore) GetDailyRunStats(companyID string, days int) ([]DailyRunStats, error) {
	if days <= 0 {
		days = 30
	}

	query := `
		SELECT run_date, runs, migrated, skipped, failed
		FROM migration_run_daily_stats
		WHERE company_id = $1 AND run_date >= CURRENT_DATE - $2::int
		ORDER BY run_date DESC;
	`
	rows, err := s.db.Query(query, companyID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []DailyRunStats{}
	for rows.Next() {
		var row DailyRunStats
		if err := rows.Scan(&row.RunDate, &row.Runs, &row.Migrated, &row.Skipped, &row.Failed); err != nil {
			return nil, err
		}
		stats = append(stats, row)
	}

	return stats, rows.Err()
}

func scanIntoRunHistory(rows *sql.Rows) (*RunHistoryEntry, error) {
	entry := new(RunHistoryEntry)
	err := rows.Scan(
		&entry.RunID,
		&entry.Status,
		&entry.TotalItems,
		&entry.MigratedItems,
		&entry.SkippedItems,
		&entry.FailedItems,
		&entry.StartedAt,
		&entry.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return entry, nil
}
