package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered operator account. CompanyID namespaces every
// document-store path the account touches; an account without one cannot run
// migrations.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"` // Never expose password in JSON
	Name         string         `gorm:"not null" json:"name"`
	Role         string         `gorm:"type:varchar(20);default:'company'" json:"role"` // student, company, supervisor, admin
	CompanyID    string         `gorm:"type:varchar(64);index" json:"company_id"`

	Notifications []UserNotification `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	MigrationRuns []MigrationRun     `gorm:"foreignKey:StartedByUserID;constraint:OnDelete:CASCADE" json:"-"`
}
