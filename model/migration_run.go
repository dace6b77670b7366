package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MigrationRunStatus represents the status of a migration batch run
type MigrationRunStatus string

const (
	MigrationRunStatusPending   MigrationRunStatus = "pending"
	MigrationRunStatusRunning   MigrationRunStatus = "running"
	MigrationRunStatusCompleted MigrationRunStatus = "completed"
	MigrationRunStatusPartial   MigrationRunStatus = "partially_completed"
	MigrationRunStatusFailed    MigrationRunStatus = "failed"
	MigrationRunStatusCancelled MigrationRunStatus = "cancelled"
)

// MigrationRun is the audit row for one orchestrator batch. One row per run;
// live state mirrors into Redis while the run is in flight.
type MigrationRun struct {
	ID              uint               `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	DeletedAt       gorm.DeletedAt     `gorm:"index" json:"deleted_at,omitempty"`
	RunID           string             `gorm:"type:varchar(64);uniqueIndex;not null" json:"run_id"`
	CompanyID       string             `gorm:"type:varchar(64);index;not null" json:"company_id"`
	Status          MigrationRunStatus `gorm:"type:varchar(25);default:'pending'" json:"status"`
	TotalItems      int                `gorm:"default:0" json:"total_items"`
	MigratedItems   int                `gorm:"default:0" json:"migrated_items"`
	SkippedItems    int                `gorm:"default:0" json:"skipped_items"`
	FailedItems     int                `gorm:"default:0" json:"failed_items"`
	StartedByUserID uint               `gorm:"index;not null" json:"started_by_user_id"`
	StartedAt       *time.Time         `json:"started_at,omitempty"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
	ErrorMessage    string             `gorm:"type:text" json:"error_message,omitempty"`
	FailureDetails  datatypes.JSON     `gorm:"type:jsonb" json:"failure_details,omitempty"` // [{application_id, error}]

	StartedBy User `gorm:"foreignKey:StartedByUserID;constraint:OnDelete:CASCADE" json:"-"`
}

// GetProgress returns the processed percentage (0-100)
func (r *MigrationRun) GetProgress() int {
	if r.TotalItems == 0 {
		return 0
	}
	return ((r.MigratedItems + r.SkippedItems + r.FailedItems) * 100) / r.TotalItems
}

// IsComplete returns true once the run has reached a terminal status
func (r *MigrationRun) IsComplete() bool {
	return r.Status == MigrationRunStatusCompleted ||
		r.Status == MigrationRunStatusPartial ||
		r.Status == MigrationRunStatusFailed ||
		r.Status == MigrationRunStatusCancelled
}

// RunFailure is one failed item recorded in FailureDetails
type RunFailure struct {
	ApplicationID string `json:"application_id"`
	Error         string `json:"error"`
}
