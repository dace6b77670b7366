package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/mrb4ll0/itc-trainee-api/model"
	"github.com/mrb4ll0/itc-trainee-api/store"
)

type migrationFixture struct {
	svc  *MigrationService
	repo *TraineeRepository
	mem  *store.MemoryStore
	apps []model.Application
}

// newMigrationFixture seeds n eligible applications into the document store
// and returns a migration service with delays disabled
func newMigrationFixture(t *testing.T, n int) *migrationFixture {
	t.Helper()

	mem := store.NewMemoryStore()
	repo := NewTraineeRepository(mem)
	eligibility := NewEligibilityService(repo)
	eligibility.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }

	svc := NewMigrationService(repo, eligibility, mem, nil, nil)
	svc.itemDelay = 0

	ctx := context.Background()
	apps := make([]model.Application, 0, n)
	for i := 1; i <= n; i++ {
		app := eligibleApplication("app-"+strconv.Itoa(i), "Student "+strconv.Itoa(i))
		apps = append(apps, app)
		err := mem.Put(ctx, store.ApplicationCollection(testCompany), app.ID, map[string]interface{}{
			"id":     app.ID,
			"status": string(app.Status),
		})
		if err != nil {
			t.Fatalf("seed application %s: %v", app.ID, err)
		}
	}

	return &migrationFixture{svc: svc, repo: repo, mem: mem, apps: apps}
}

func TestMigrateEligibleHappyPath(t *testing.T) {
	f := newMigrationFixture(t, 3)
	ctx := context.Background()

	var events []ProgressEvent
	result, err := f.svc.MigrateEligible(ctx, testCompany, 1, f.apps, func(ev ProgressEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("MigrateEligible: %v", err)
	}

	if result.Summary.Total != 3 || result.Summary.Migrated != 3 || result.Summary.Skipped != 0 || result.Summary.Failed != 0 {
		t.Errorf("summary = %+v", result.Summary)
	}
	if result.RunID == "" {
		t.Error("run id not assigned")
	}
	if result.Cancelled {
		t.Error("run should not report cancelled")
	}

	// One processing event per item plus exactly one completed event
	if len(events) != 4 {
		t.Fatalf("events = %d, want 4", len(events))
	}
	for i, ev := range events[:3] {
		if ev.Status != ProgressStatusProcessing || ev.Current != i+1 || ev.Total != 3 {
			t.Errorf("event %d = %+v", i, ev)
		}
		if ev.CurrentStudent == "" {
			t.Errorf("event %d missing student name", i)
		}
	}
	final := events[3]
	if final.Status != ProgressStatusCompleted || final.Summary == nil || final.Summary.Migrated != 3 {
		t.Errorf("final event = %+v", final)
	}

	// Every trainee document exists and the source status flipped
	for _, app := range f.apps {
		tr, err := f.repo.Get(ctx, testCompany, app.ID)
		if err != nil {
			t.Fatalf("trainee %s not persisted: %v", app.ID, err)
		}
		if tr.Migration.OriginalApplicationID != app.ID {
			t.Errorf("trainee %s provenance = %+v", app.ID, tr.Migration)
		}

		doc, err := f.mem.Get(ctx, store.ApplicationCollection(testCompany), app.ID)
		if err != nil {
			t.Fatalf("application %s: %v", app.ID, err)
		}
		if doc["status"] != string(model.ApplicationStatusInTraining) {
			t.Errorf("application %s status = %v, want in_training", app.ID, doc["status"])
		}
	}
}

func TestMigrateEligibleIsolatesItemFailures(t *testing.T) {
	f := newMigrationFixture(t, 5)
	ctx := context.Background()

	storeErr := errors.New("write refused")
	f.mem.FailPut = func(collectionPath, id string) error {
		if id == "app-3" && collectionPath == store.TraineeCollection(testCompany) {
			return storeErr
		}
		return nil
	}

	var events []ProgressEvent
	result, err := f.svc.MigrateEligible(ctx, testCompany, 1, f.apps, func(ev ProgressEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("a failing item must not fail the batch: %v", err)
	}

	if result.Summary.Migrated != 4 || result.Summary.Failed != 1 {
		t.Errorf("summary = %+v, want 4 migrated / 1 failed", result.Summary)
	}
	if len(result.Failed) != 1 || result.Failed[0].ApplicationID != "app-3" {
		t.Fatalf("failed = %+v", result.Failed)
	}
	if result.Failed[0].Error == "" {
		t.Error("failure must carry the error message")
	}

	// The failed item still produced its processing event
	if len(events) != 6 {
		t.Errorf("events = %d, want 5 processing + 1 completed", len(events))
	}

	// The failed application keeps its original status
	doc, err := f.mem.Get(ctx, store.ApplicationCollection(testCompany), "app-3")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc["status"] != string(model.ApplicationStatusAccepted) {
		t.Errorf("failed item status = %v, want accepted", doc["status"])
	}

	// Items after the failure were still processed
	if _, err := f.repo.Get(ctx, testCompany, "app-5"); err != nil {
		t.Errorf("item after failure not migrated: %v", err)
	}
}

func TestMigrateEligibleStatusFlipFailure(t *testing.T) {
	f := newMigrationFixture(t, 2)
	ctx := context.Background()

	f.mem.FailPatch = func(collectionPath, id string) error {
		if id == "app-1" {
			return errors.New("patch refused")
		}
		return nil
	}

	result, err := f.svc.MigrateEligible(ctx, testCompany, 1, f.apps, nil)
	if err != nil {
		t.Fatalf("MigrateEligible: %v", err)
	}

	// The trainee document was written before the flip failed; the item is
	// failed, the write stays, and a later run skips re-migration
	if result.Summary.Failed != 1 || result.Summary.Migrated != 1 {
		t.Errorf("summary = %+v", result.Summary)
	}
	if _, err := f.repo.Get(ctx, testCompany, "app-1"); err != nil {
		t.Errorf("trainee write should survive a flip failure: %v", err)
	}

	f.mem.FailPatch = nil
	again, err := f.svc.MigrateEligible(ctx, testCompany, 1, f.apps, nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if again.Summary.Migrated != 0 || again.Summary.Total != 0 {
		t.Errorf("second run should find nothing eligible: %+v", again.Summary)
	}
}

func TestMigrateEligibleCancellation(t *testing.T) {
	f := newMigrationFixture(t, 5)
	ctx := context.Background()

	var events []ProgressEvent
	result, err := f.svc.MigrateEligible(ctx, testCompany, 1, f.apps, func(ev ProgressEvent) {
		events = append(events, ev)
		if ev.Status == ProgressStatusProcessing && ev.Current == 2 {
			f.svc.Cancel()
		}
	})
	if err != nil {
		t.Fatalf("MigrateEligible: %v", err)
	}

	if !result.Cancelled {
		t.Fatal("result should report cancelled")
	}
	if result.Summary.Migrated != 2 {
		t.Errorf("migrated = %d, want 2 (in-flight item finishes, rest stop)", result.Summary.Migrated)
	}

	// Nothing written after the flag was observed, and nothing rolled back
	writesBefore := f.mem.WriteCount()
	if _, err := f.repo.Get(ctx, testCompany, "app-1"); err != nil {
		t.Errorf("completed item must not be rolled back: %v", err)
	}
	if _, err := f.repo.Get(ctx, testCompany, "app-3"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("item after cancel should not exist, got %v", err)
	}
	if f.mem.WriteCount() != writesBefore {
		t.Error("reads must not produce writes")
	}

	// The completed event still arrives with the cancelled totals
	final := events[len(events)-1]
	if final.Status != ProgressStatusCompleted || final.Summary == nil || final.Summary.Migrated != 2 {
		t.Errorf("final event = %+v", final)
	}
}

func TestMigrateEligibleRejectsConcurrentRuns(t *testing.T) {
	f := newMigrationFixture(t, 2)
	ctx := context.Background()

	firstStarted := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := f.svc.MigrateEligible(ctx, testCompany, 1, f.apps, func(ev ProgressEvent) {
			if ev.Status == ProgressStatusProcessing && ev.Current == 1 {
				close(firstStarted)
				<-release
			}
		})
		if err != nil {
			t.Errorf("first run: %v", err)
		}
	}()

	<-firstStarted
	if !f.svc.IsMigrationInProgress() {
		t.Error("IsMigrationInProgress should report the running batch")
	}
	if _, ok := f.svc.ActiveRunID(); !ok {
		t.Error("ActiveRunID should report the running batch")
	}

	_, err := f.svc.MigrateEligible(ctx, testCompany, 1, f.apps, nil)
	if !errors.Is(err, ErrMigrationInProgress) {
		t.Errorf("second run error = %v, want ErrMigrationInProgress", err)
	}

	close(release)
	wg.Wait()

	if f.svc.IsMigrationInProgress() {
		t.Error("guard not cleared after the batch finished")
	}
}

func TestMigrateEligibleRequiresCompanyID(t *testing.T) {
	f := newMigrationFixture(t, 1)

	_, err := f.svc.MigrateEligible(context.Background(), "", 1, f.apps, nil)
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestMigrateStream(t *testing.T) {
	f := newMigrationFixture(t, 3)

	events, done := f.svc.MigrateStream(context.Background(), testCompany, 1, f.apps)

	var seen []ProgressEvent
	for ev := range events {
		seen = append(seen, ev)
	}
	outcome := <-done

	if outcome.Err != nil {
		t.Fatalf("stream outcome: %v", outcome.Err)
	}
	if outcome.Result == nil || outcome.Result.Summary.Migrated != 3 {
		t.Errorf("result = %+v", outcome.Result)
	}

	if len(seen) != 4 {
		t.Fatalf("events = %d, want 4", len(seen))
	}
	// Ordering is preserved: processing 1..3 then the completed event
	for i, ev := range seen[:3] {
		if ev.Current != i+1 || ev.Status != ProgressStatusProcessing {
			t.Errorf("event %d = %+v", i, ev)
		}
	}
	if seen[3].Status != ProgressStatusCompleted {
		t.Errorf("last event = %+v", seen[3])
	}
}
