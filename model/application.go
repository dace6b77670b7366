package model

import "time"

// ApplicationStatus represents the lifecycle status of an internship application
type ApplicationStatus string

const (
	ApplicationStatusApplied    ApplicationStatus = "applied"
	ApplicationStatusNew        ApplicationStatus = "new"
	ApplicationStatusReviewed   ApplicationStatus = "reviewed"
	ApplicationStatusInterview  ApplicationStatus = "interview"
	ApplicationStatusPending    ApplicationStatus = "pending"
	ApplicationStatusAccepted   ApplicationStatus = "accepted"
	ApplicationStatusRejected   ApplicationStatus = "rejected"
	ApplicationStatusInTraining ApplicationStatus = "in_training"
)

// ApplicationStudent holds the applicant snapshot carried on an application
type ApplicationStudent struct {
	UID             string `json:"uid" bson:"uid"`
	FullName        string `json:"full_name" bson:"fullName"`
	Email           string `json:"email" bson:"email"`
	Phone           string `json:"phone" bson:"phone"`
	Institution     string `json:"institution" bson:"institution"`
	CourseOfStudy   string `json:"course_of_study" bson:"courseOfStudy"`
	Department      string `json:"department" bson:"department"`
	ApplicationDate string `json:"application_date" bson:"applicationDate"`
}

// ApplicationDuration is the requested training window
type ApplicationDuration struct {
	StartDate string `json:"start_date" bson:"startDate"`
	EndDate   string `json:"end_date" bson:"endDate"`
}

// ApplicationTraining describes the opportunity the student applied to
type ApplicationTraining struct {
	ID          string `json:"id" bson:"id"`
	Title       string `json:"title" bson:"title"`
	Department  string `json:"department" bson:"department"`
	Supervisor  string `json:"supervisor" bson:"supervisor"`
	CompanyID   string `json:"company_id" bson:"companyId"`
	CompanyName string `json:"company_name" bson:"companyName"`
}

// Application is a student's request to join a training opportunity.
// It is owned by the applications collaborator; this subsystem only reads it
// and patches its status to in_training after a successful migration.
type Application struct {
	ID            string              `json:"id" bson:"id"`
	Student       ApplicationStudent  `json:"student" bson:"student"`
	Duration      ApplicationDuration `json:"duration" bson:"duration"`
	Status        ApplicationStatus   `json:"status" bson:"status"`
	Progress      float64             `json:"progress,omitempty" bson:"progress,omitempty"` // legacy field, seeds trainee progress
	OpportunityID string              `json:"opportunity_id" bson:"opportunityId"`
	Training      ApplicationTraining `json:"training" bson:"training"`
}

// StartDateTime parses the application's start date. Bare dates and RFC3339
// timestamps both occur in stored applications.
func (a *Application) StartDateTime() (time.Time, bool) {
	return ParseDate(a.Duration.StartDate)
}

// HasStarted reports whether the requested training window has begun
func (a *Application) HasStarted(now time.Time) bool {
	start, ok := a.StartDateTime()
	if !ok {
		return false
	}
	return !start.After(now)
}

// ParseDate accepts the date shapes the document store hands back for
// date-like fields: bare dates, RFC3339 timestamps with or without nanos.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// RecordKind discriminates the two persisted record shapes for a student
type RecordKind string

const (
	RecordKindApplication RecordKind = "application"
	RecordKindTrainee     RecordKind = "trainee"
)

// RecordView is a tagged view over either an application awaiting migration or
// an already-migrated trainee. Exactly one of Application/Trainee is set,
// according to Kind.
type RecordView struct {
	Kind        RecordKind   `json:"kind"`
	Application *Application `json:"application,omitempty"`
	Trainee     *Trainee     `json:"trainee,omitempty"`
}

// ViewOfApplication wraps an application in a tagged record view
func ViewOfApplication(app *Application) RecordView {
	return RecordView{Kind: RecordKindApplication, Application: app}
}

// ViewOfTrainee wraps a trainee in a tagged record view
func ViewOfTrainee(t *Trainee) RecordView {
	return RecordView{Kind: RecordKindTrainee, Trainee: t}
}

// StudentName returns the student's display name regardless of record shape
func (v RecordView) StudentName() string {
	switch v.Kind {
	case RecordKindApplication:
		if v.Application != nil {
			return v.Application.Student.FullName
		}
	case RecordKindTrainee:
		if v.Trainee != nil {
			return v.Trainee.StudentInfo.FullName
		}
	}
	return ""
}
