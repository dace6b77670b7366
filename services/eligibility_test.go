package services

import (
	"context"
	"testing"
	"time"

	"github.com/mrb4ll0/itc-trainee-api/model"
	"github.com/mrb4ll0/itc-trainee-api/store"
)

const testCompany = "company-1"

func eligibleApplication(id, name string) model.Application {
	return model.Application{
		ID:            id,
		Status:        model.ApplicationStatusAccepted,
		OpportunityID: "opp-1",
		Student: model.ApplicationStudent{
			UID:      "uid-" + id,
			FullName: name,
		},
		Duration: model.ApplicationDuration{
			StartDate: "2025-01-01",
			EndDate:   "2025-07-01",
		},
		Training: model.ApplicationTraining{
			ID:        "train-1",
			Title:     "Backend Internship",
			CompanyID: testCompany,
		},
	}
}

func newEligibilityFixture() (*EligibilityService, *TraineeRepository, *store.MemoryStore) {
	mem := store.NewMemoryStore()
	repo := NewTraineeRepository(mem)
	svc := NewEligibilityService(repo)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	return svc, repo, mem
}

func TestIsEligible(t *testing.T) {
	svc, repo, _ := newEligibilityFixture()
	ctx := context.Background()

	app := eligibleApplication("app-1", "Amina Yusuf")
	ok, err := svc.IsEligible(ctx, testCompany, &app)
	if err != nil {
		t.Fatalf("IsEligible: %v", err)
	}
	if !ok {
		t.Error("started, accepted, unmigrated application should be eligible")
	}

	// Training window not started yet
	future := eligibleApplication("app-2", "Chidi Okeke")
	future.Duration.StartDate = "2025-06-01"
	if ok, _ := svc.IsEligible(ctx, testCompany, &future); ok {
		t.Error("future start date should not be eligible")
	}

	// Unparseable start date counts as not started
	bad := eligibleApplication("app-3", "Efe Obi")
	bad.Duration.StartDate = "soon"
	if ok, _ := svc.IsEligible(ctx, testCompany, &bad); ok {
		t.Error("unparseable start date should not be eligible")
	}

	// Any status other than accepted is out, including further-along ones
	for _, status := range []model.ApplicationStatus{
		model.ApplicationStatusApplied,
		model.ApplicationStatusPending,
		model.ApplicationStatusInterview,
		model.ApplicationStatusRejected,
		model.ApplicationStatusInTraining,
	} {
		a := eligibleApplication("app-4", "Dayo Femi")
		a.Status = status
		if ok, _ := svc.IsEligible(ctx, testCompany, &a); ok {
			t.Errorf("status %q should not be eligible", status)
		}
	}

	// An existing trainee with the same id makes the check idempotent
	trainee := model.NewTraineeFromApplication(&app, time.Now())
	if err := repo.Save(ctx, testCompany, trainee); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if ok, _ := svc.IsEligible(ctx, testCompany, &app); ok {
		t.Error("already-migrated application should not be eligible")
	}
}

func TestGetPendingMigrations(t *testing.T) {
	svc, repo, _ := newEligibilityFixture()
	ctx := context.Background()

	migrated := eligibleApplication("app-3", "Efe Obi")
	trainee := model.NewTraineeFromApplication(&migrated, time.Now())
	if err := repo.Save(ctx, testCompany, trainee); err != nil {
		t.Fatalf("Save: %v", err)
	}

	notStarted := eligibleApplication("app-4", "Dayo Femi")
	notStarted.Duration.StartDate = "2025-09-01"

	rejected := eligibleApplication("app-5", "Ngozi Eze")
	rejected.Status = model.ApplicationStatusRejected

	apps := []model.Application{
		eligibleApplication("app-1", "Amina Yusuf"),
		eligibleApplication("app-2", "Chidi Okeke"),
		migrated,
		notStarted,
		rejected,
	}

	pending, err := svc.GetPendingMigrations(ctx, testCompany, apps)
	if err != nil {
		t.Fatalf("GetPendingMigrations: %v", err)
	}

	if pending.Count != 2 || len(pending.Pending) != 2 {
		t.Fatalf("count = %d, pending = %d, want 2", pending.Count, len(pending.Pending))
	}
	// Input order is preserved
	if pending.Pending[0].ID != "app-1" || pending.Pending[1].ID != "app-2" {
		t.Errorf("pending order = [%s, %s]", pending.Pending[0].ID, pending.Pending[1].ID)
	}

	if len(pending.Details) != 2 {
		t.Fatalf("details = %d", len(pending.Details))
	}
	d := pending.Details[0]
	if d.ID != "app-1" || d.StudentName != "Amina Yusuf" || d.Training != "Backend Internship" {
		t.Errorf("detail row = %+v", d)
	}
	if d.Duration != "2025-01-01 - 2025-07-01" {
		t.Errorf("duration display = %q", d.Duration)
	}
}

func TestGetPendingMigrationsEmptyList(t *testing.T) {
	svc, _, _ := newEligibilityFixture()

	pending, err := svc.GetPendingMigrations(context.Background(), testCompany, nil)
	if err != nil {
		t.Fatalf("GetPendingMigrations: %v", err)
	}
	if pending.Count != 0 {
		t.Errorf("count = %d", pending.Count)
	}
	if pending.Pending == nil || pending.Details == nil {
		t.Error("empty result slices must be non-nil")
	}
}
