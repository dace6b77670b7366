package services

import (
	"context"
	"testing"
	"time"

	"github.com/mrb4ll0/itc-trainee-api/model"
	"github.com/mrb4ll0/itc-trainee-api/store"
)

func TestDeserializeApplicationCamelCase(t *testing.T) {
	// Documents written by the intake frontend use camelCase keys
	doc := map[string]interface{}{
		"id":            "app-1",
		"status":        "accepted",
		"progress":      float64(20),
		"opportunityId": "opp-7",
		"student": map[string]interface{}{
			"uid":             "uid-1",
			"fullName":        "Amina Yusuf",
			"email":           "amina@example.com",
			"courseOfStudy":   "Computer Science",
			"applicationDate": "2025-01-10",
		},
		"duration": map[string]interface{}{
			"startDate": "2025-02-01",
			"endDate":   "2025-08-01",
		},
		"training": map[string]interface{}{
			"id":          "train-2",
			"title":       "Backend Internship",
			"companyId":   "company-1",
			"companyName": "Acme Ltd",
		},
	}

	app := DeserializeApplication(doc)

	if app.ID != "app-1" || app.Status != model.ApplicationStatusAccepted || app.Progress != 20 {
		t.Errorf("top-level fields: %+v", app)
	}
	if app.OpportunityID != "opp-7" {
		t.Errorf("opportunity id = %q", app.OpportunityID)
	}
	if app.Student.FullName != "Amina Yusuf" || app.Student.CourseOfStudy != "Computer Science" {
		t.Errorf("student: %+v", app.Student)
	}
	if app.Student.ApplicationDate != "2025-01-10T00:00:00Z" {
		t.Errorf("application date = %q", app.Student.ApplicationDate)
	}
	if app.Duration.StartDate != "2025-02-01T00:00:00Z" || app.Duration.EndDate != "2025-08-01T00:00:00Z" {
		t.Errorf("duration: %+v", app.Duration)
	}
	if app.Training.ID != "train-2" || app.Training.CompanyID != "company-1" {
		t.Errorf("training: %+v", app.Training)
	}
}

func TestDeserializeApplicationSnakeCase(t *testing.T) {
	// Older records use snake_case keys for the same fields
	doc := map[string]interface{}{
		"id":             "app-2",
		"status":         "pending",
		"opportunity_id": "opp-8",
		"student": map[string]interface{}{
			"full_name":        "Chidi Okeke",
			"course_of_study":  "Software Engineering",
			"application_date": "2025-01-12T08:00:00Z",
		},
		"duration": map[string]interface{}{
			"start_date": "2025-02-15",
			"end_date":   "2025-08-15",
		},
		"training": map[string]interface{}{
			"training_id":  "train-3",
			"company_id":   "company-1",
			"company_name": "Acme Ltd",
		},
	}

	app := DeserializeApplication(doc)

	if app.OpportunityID != "opp-8" {
		t.Errorf("opportunity id = %q", app.OpportunityID)
	}
	if app.Student.FullName != "Chidi Okeke" || app.Student.CourseOfStudy != "Software Engineering" {
		t.Errorf("student: %+v", app.Student)
	}
	if app.Training.ID != "train-3" {
		t.Errorf("training id = %q", app.Training.ID)
	}
	if app.Duration.StartDate != "2025-02-15T00:00:00Z" {
		t.Errorf("start date = %q", app.Duration.StartDate)
	}
}

func TestDeserializeApplicationTimestampShapes(t *testing.T) {
	ref := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	doc := map[string]interface{}{
		"id": "app-3",
		"duration": map[string]interface{}{
			"startDate": map[string]interface{}{"seconds": float64(ref.Unix()), "nanoseconds": float64(0)},
			"endDate":   ref,
		},
	}

	app := DeserializeApplication(doc)
	if app.Duration.StartDate != "2025-02-01T09:00:00Z" {
		t.Errorf("start date from seconds map = %q", app.Duration.StartDate)
	}
	if app.Duration.EndDate != "2025-02-01T09:00:00Z" {
		t.Errorf("end date from native time = %q", app.Duration.EndDate)
	}
}

func TestApplicationRepositoryListAndGet(t *testing.T) {
	mem := store.NewMemoryStore()
	repo := NewApplicationRepository(mem)
	ctx := context.Background()

	err := mem.Put(ctx, store.ApplicationCollection(testCompany), "app-1", map[string]interface{}{
		"id":     "app-1",
		"status": "accepted",
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	apps, err := repo.List(ctx, testCompany)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(apps) != 1 || apps[0].ID != "app-1" {
		t.Errorf("apps = %+v", apps)
	}

	app, err := repo.Get(ctx, testCompany, "app-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if app.Status != model.ApplicationStatusAccepted {
		t.Errorf("status = %q", app.Status)
	}

	if _, err := repo.Get(ctx, testCompany, "missing"); err == nil {
		t.Error("missing id should error")
	}
}
