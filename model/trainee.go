package model

import (
	"time"
)

// Bench represents the coarse skill tier derived from overall progress
type Bench string

const (
	BenchBeginner     Bench = "beginner"
	BenchIntermediate Bench = "intermediate"
	BenchAdvanced     Bench = "advanced"
	BenchExpert       Bench = "expert"
	BenchGraduation   Bench = "graduation"
)

// TraineeStatus is the lifecycle status of a trainee record
type TraineeStatus string

const (
	TraineeStatusActive    TraineeStatus = "active"
	TraineeStatusCompleted TraineeStatus = "completed"
)

// AttendanceStatus is the status of a single attendance record
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
)

// StudentInfo is the applicant snapshot copied onto the trainee at migration
// time. It is never re-synced from the application afterwards.
type StudentInfo struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Institution     string `json:"institution"`
	CourseOfStudy   string `json:"course_of_study"`
	Department      string `json:"department"`
	ApplicationDate string `json:"application_date"`
}

// TrainingInfo is the opportunity snapshot copied onto the trainee
type TrainingInfo struct {
	OpportunityID string `json:"opportunity_id"`
	TrainingID    string `json:"training_id"`
	Title         string `json:"title"`
	Department    string `json:"department"`
	CompanyID     string `json:"company_id"`
	CompanyName   string `json:"company_name"`
	Supervisor    string `json:"supervisor"`
}

// TraineeDuration tracks the training window. OriginalStartDate is fixed at
// creation; EndDate and Extended change only through Extend.
type TraineeDuration struct {
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date"`
	OriginalStartDate string `json:"original_start_date"`
	Extended          bool   `json:"extended"`
	ExtensionReason   string `json:"extension_reason,omitempty"`
}

// Milestone is a named training checkpoint
type Milestone struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Completed     bool   `json:"completed"`
	CompletedDate string `json:"completed_date,omitempty"`
	Required      bool   `json:"required"`
}

// ProgressNote is an annotated progress update
type ProgressNote struct {
	Date     string  `json:"date"`
	Progress float64 `json:"progress"`
	Note     string  `json:"note"`
}

// TraineeProgress holds overall progress and its history. Overall is not
// monotonic; supervisors may correct it downward.
type TraineeProgress struct {
	Overall     float64        `json:"overall"`
	LastUpdated string         `json:"last_updated"`
	Milestones  []Milestone    `json:"milestones"`
	Notes       []ProgressNote `json:"notes"`
}

// AttendanceRecord is a single day's attendance entry
type AttendanceRecord struct {
	Date       string           `json:"date"`
	Status     AttendanceStatus `json:"status"`
	Notes      string           `json:"notes,omitempty"`
	RecordedAt string           `json:"recorded_at"`
}

// TraineeAttendance aggregates attendance counters and their source records
type TraineeAttendance struct {
	TotalDays      int                `json:"total_days"`
	PresentDays    int                `json:"present_days"`
	AbsentDays     int                `json:"absent_days"`
	AttendanceRate float64            `json:"attendance_rate"`
	Records        []AttendanceRecord `json:"records"`
}

// BenchInfo carries the derived bench tiers. CurrentBench and NextBench are a
// pure function of progress and are recomputed on every progress change.
type BenchInfo struct {
	CurrentBench Bench    `json:"current_bench"`
	NextBench    Bench    `json:"next_bench"`
	BenchHistory []string `json:"bench_history"`
	Skills       []string `json:"skills"`
}

// SupervisorFeedback is one feedback entry with a rating
type SupervisorFeedback struct {
	Date       string  `json:"date"`
	Feedback   string  `json:"feedback"`
	Rating     float64 `json:"rating"`
	Supervisor string  `json:"supervisor"`
}

// TraineePerformance aggregates feedback and task counters. Rating is the
// arithmetic mean of all feedback ratings, 0 before any feedback exists.
type TraineePerformance struct {
	Rating             float64              `json:"rating"`
	TasksCompleted     int                  `json:"tasks_completed"`
	TotalTasks         int                  `json:"total_tasks"`
	SupervisorFeedback []SupervisorFeedback `json:"supervisor_feedback"`
	Achievements       []string             `json:"achievements"`
}

// TraineeMetadata carries record lifecycle fields
type TraineeMetadata struct {
	CreatedAt    string        `json:"created_at"`
	UpdatedAt    string        `json:"updated_at"`
	Status       TraineeStatus `json:"status"`
	MigratedFrom string        `json:"migrated_from"`
	CompletedAt  string        `json:"completed_at,omitempty"`
}

// MigrationInfo is write-once provenance recorded at migration time
type MigrationInfo struct {
	OriginalApplicationID string `json:"original_application_id"`
	MigratedAt            string `json:"migrated_at"`
	Source                string `json:"source"`
	Version               int    `json:"version"`
}

// Trainee is the durable projection of an accepted application plus accrued
// operational state. Its ID equals the source application's ID; at most one
// trainee exists per application.
type Trainee struct {
	ID          string             `json:"id"`
	StudentUID  string             `json:"student_uid"`
	StudentInfo StudentInfo        `json:"student_info"`
	Training    TrainingInfo       `json:"training_info"`
	Duration    TraineeDuration    `json:"duration"`
	Progress    TraineeProgress    `json:"progress"`
	Attendance  TraineeAttendance  `json:"attendance"`
	Bench       BenchInfo          `json:"bench_info"`
	Performance TraineePerformance `json:"performance"`
	Metadata    TraineeMetadata    `json:"metadata"`
	Migration   MigrationInfo      `json:"migration"`
}

// MigrationSource identifies records created by the migration subsystem
const MigrationSource = "application_migration"

// MigrationVersion is the provenance schema version stamped on new trainees
const MigrationVersion = 1

// DeriveBench maps overall progress to the current/next bench pair.
// Thresholds are fixed: <25 beginner, <50 intermediate, <75 advanced,
// otherwise expert heading to graduation.
func DeriveBench(overall float64) (current, next Bench) {
	switch {
	case overall < 25:
		return BenchBeginner, BenchIntermediate
	case overall < 50:
		return BenchIntermediate, BenchAdvanced
	case overall < 75:
		return BenchAdvanced, BenchExpert
	default:
		return BenchExpert, BenchGraduation
	}
}

func defaultMilestones(now time.Time) []Milestone {
	// Orientation is always completed at creation time. Fixed policy.
	return []Milestone{
		{ID: "orientation", Name: "Orientation", Completed: true, CompletedDate: now.UTC().Format(time.RFC3339), Required: true},
		{ID: "first-week", Name: "First Week Review", Required: true},
		{ID: "midterm", Name: "Midterm Evaluation", Required: true},
		{ID: "final-project", Name: "Final Project", Required: true},
		{ID: "final-evaluation", Name: "Final Evaluation", Required: true},
	}
}

// NewTraineeFromApplication constructs a trainee from an application snapshot.
// Progress seeds from the application's legacy progress field (0 when absent),
// and the bench fields are derived from it immediately.
func NewTraineeFromApplication(app *Application, now time.Time) *Trainee {
	ts := now.UTC().Format(time.RFC3339)

	overall := clampProgress(app.Progress)
	current, next := DeriveBench(overall)

	t := &Trainee{
		ID:         app.ID,
		StudentUID: app.Student.UID,
		StudentInfo: StudentInfo{
			FullName:        app.Student.FullName,
			Email:           app.Student.Email,
			Phone:           app.Student.Phone,
			Institution:     app.Student.Institution,
			CourseOfStudy:   app.Student.CourseOfStudy,
			Department:      app.Student.Department,
			ApplicationDate: app.Student.ApplicationDate,
		},
		Training: TrainingInfo{
			OpportunityID: app.OpportunityID,
			TrainingID:    app.Training.ID,
			Title:         app.Training.Title,
			Department:    app.Training.Department,
			CompanyID:     app.Training.CompanyID,
			CompanyName:   app.Training.CompanyName,
			Supervisor:    app.Training.Supervisor,
		},
		Duration: TraineeDuration{
			StartDate:         app.Duration.StartDate,
			EndDate:           app.Duration.EndDate,
			OriginalStartDate: app.Duration.StartDate,
		},
		Progress: TraineeProgress{
			Overall:     overall,
			LastUpdated: ts,
			Milestones:  defaultMilestones(now),
			Notes:       []ProgressNote{},
		},
		Attendance: TraineeAttendance{
			Records: []AttendanceRecord{},
		},
		Bench: BenchInfo{
			CurrentBench: current,
			NextBench:    next,
			BenchHistory: []string{string(current)},
			Skills:       []string{},
		},
		Performance: TraineePerformance{
			SupervisorFeedback: []SupervisorFeedback{},
			Achievements:       []string{},
		},
		Metadata: TraineeMetadata{
			CreatedAt:    ts,
			UpdatedAt:    ts,
			Status:       TraineeStatusActive,
			MigratedFrom: app.ID,
		},
		Migration: MigrationInfo{
			OriginalApplicationID: app.ID,
			MigratedAt:            ts,
			Source:                MigrationSource,
			Version:               MigrationVersion,
		},
	}

	return t
}

func clampProgress(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func (t *Trainee) touch(now time.Time) {
	t.Metadata.UpdatedAt = now.UTC().Format(time.RFC3339)
}

// UpdateProgress sets overall progress (clamped to [0,100]), re-derives the
// bench fields and appends a note entry when note is non-empty. LastUpdated
// always moves forward, even for a no-note update.
func (t *Trainee) UpdateProgress(value float64, note string, now time.Time) {
	ts := now.UTC().Format(time.RFC3339)

	t.Progress.Overall = clampProgress(value)
	t.Progress.LastUpdated = ts

	if note != "" {
		t.Progress.Notes = append(t.Progress.Notes, ProgressNote{
			Date:     ts,
			Progress: t.Progress.Overall,
			Note:     note,
		})
	}

	current, next := DeriveBench(t.Progress.Overall)
	if current != t.Bench.CurrentBench {
		t.Bench.BenchHistory = append(t.Bench.BenchHistory, string(current))
	}
	t.Bench.CurrentBench = current
	t.Bench.NextBench = next

	t.touch(now)
}

// RecordAttendance appends a day's record and recomputes the counters.
// A "late" day counts toward TotalDays but neither the present nor the absent
// bucket. That mirrors the original behaviour; it is arguably an oversight
// (late could count as present) but is preserved as observed.
func (t *Trainee) RecordAttendance(date string, status AttendanceStatus, notes string, now time.Time) {
	t.Attendance.Records = append(t.Attendance.Records, AttendanceRecord{
		Date:       date,
		Status:     status,
		Notes:      notes,
		RecordedAt: now.UTC().Format(time.RFC3339),
	})

	t.Attendance.TotalDays++
	switch status {
	case AttendancePresent:
		t.Attendance.PresentDays++
	case AttendanceAbsent:
		t.Attendance.AbsentDays++
	}

	if t.Attendance.TotalDays == 0 {
		t.Attendance.AttendanceRate = 0
	} else {
		t.Attendance.AttendanceRate = float64(t.Attendance.PresentDays) / float64(t.Attendance.TotalDays) * 100
	}

	t.touch(now)
}

// AddFeedback appends supervisor feedback and recomputes the mean rating
func (t *Trainee) AddFeedback(text string, rating float64, supervisor string, now time.Time) {
	t.Performance.SupervisorFeedback = append(t.Performance.SupervisorFeedback, SupervisorFeedback{
		Date:       now.UTC().Format(time.RFC3339),
		Feedback:   text,
		Rating:     rating,
		Supervisor: supervisor,
	})

	var sum float64
	for _, fb := range t.Performance.SupervisorFeedback {
		sum += fb.Rating
	}
	t.Performance.Rating = sum / float64(len(t.Performance.SupervisorFeedback))

	t.touch(now)
}

// CompleteMilestone marks the named milestone complete. An unknown id is a
// no-op, not an error.
func (t *Trainee) CompleteMilestone(milestoneID string, now time.Time) bool {
	for i := range t.Progress.Milestones {
		if t.Progress.Milestones[i].ID == milestoneID {
			t.Progress.Milestones[i].Completed = true
			t.Progress.Milestones[i].CompletedDate = now.UTC().Format(time.RFC3339)
			t.touch(now)
			return true
		}
	}
	return false
}

// Extend moves the end date out, marking the duration extended
func (t *Trainee) Extend(newEndDate, reason string, now time.Time) {
	t.Duration.EndDate = newEndDate
	t.Duration.Extended = true
	t.Duration.ExtensionReason = reason
	t.touch(now)
}

// Complete terminates the record logically: status flips to completed,
// CompletedAt is stamped and progress is forced to 100.
func (t *Trainee) Complete(now time.Time) {
	t.Metadata.Status = TraineeStatusCompleted
	t.Metadata.CompletedAt = now.UTC().Format(time.RFC3339)
	t.UpdateProgress(100, "Training completed", now)
}

// IsCompleted reports whether the trainee record has been terminated
func (t *Trainee) IsCompleted() bool {
	return t.Metadata.Status == TraineeStatusCompleted
}
