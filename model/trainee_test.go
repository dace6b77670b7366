package model

import (
	"testing"
	"time"
)

func TestDeriveBench(t *testing.T) {
	cases := []struct {
		progress float64
		current  Bench
		next     Bench
	}{
		{0, BenchBeginner, BenchIntermediate},
		{24.999, BenchBeginner, BenchIntermediate},
		{25, BenchIntermediate, BenchAdvanced},
		{49.999, BenchIntermediate, BenchAdvanced},
		{50, BenchAdvanced, BenchExpert},
		{74.999, BenchAdvanced, BenchExpert},
		{75, BenchExpert, BenchGraduation},
		{100, BenchExpert, BenchGraduation},
	}

	for _, c := range cases {
		current, next := DeriveBench(c.progress)
		if current != c.current || next != c.next {
			t.Errorf("DeriveBench(%v) = (%s, %s), want (%s, %s)", c.progress, current, next, c.current, c.next)
		}
	}
}

func sampleApplication() *Application {
	return &Application{
		ID: "app-1",
		Student: ApplicationStudent{
			UID:             "student-1",
			FullName:        "Amina Yusuf",
			Email:           "amina@example.com",
			Phone:           "+2348000000000",
			Institution:     "Ahmadu Bello University",
			CourseOfStudy:   "Computer Science",
			Department:      "Engineering",
			ApplicationDate: "2025-01-10",
		},
		Duration: ApplicationDuration{
			StartDate: "2025-02-01",
			EndDate:   "2025-08-01",
		},
		Status:        ApplicationStatusAccepted,
		Progress:      30,
		OpportunityID: "opp-9",
		Training: ApplicationTraining{
			ID:          "train-3",
			Title:       "Backend Internship",
			Department:  "Engineering",
			Supervisor:  "Bola Ade",
			CompanyID:   "company-1",
			CompanyName: "Acme Ltd",
		},
	}
}

func TestNewTraineeFromApplication(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	app := sampleApplication()

	tr := NewTraineeFromApplication(app, now)

	if tr.ID != app.ID {
		t.Errorf("trainee id = %q, want the application id %q", tr.ID, app.ID)
	}
	if tr.StudentUID != "student-1" {
		t.Errorf("student uid = %q", tr.StudentUID)
	}
	if tr.StudentInfo.FullName != "Amina Yusuf" || tr.StudentInfo.Institution != "Ahmadu Bello University" {
		t.Errorf("student info not copied: %+v", tr.StudentInfo)
	}
	if tr.Training.TrainingID != "train-3" || tr.Training.CompanyID != "company-1" || tr.Training.OpportunityID != "opp-9" {
		t.Errorf("training info not copied: %+v", tr.Training)
	}
	if tr.Duration.OriginalStartDate != app.Duration.StartDate {
		t.Errorf("original start date = %q, want %q", tr.Duration.OriginalStartDate, app.Duration.StartDate)
	}
	if tr.Duration.Extended {
		t.Error("new trainee should not be extended")
	}

	if tr.Progress.Overall != 30 {
		t.Errorf("progress seeded to %v, want 30", tr.Progress.Overall)
	}
	if tr.Bench.CurrentBench != BenchIntermediate || tr.Bench.NextBench != BenchAdvanced {
		t.Errorf("bench = %s/%s, want intermediate/advanced", tr.Bench.CurrentBench, tr.Bench.NextBench)
	}
	if len(tr.Bench.BenchHistory) != 1 || tr.Bench.BenchHistory[0] != "intermediate" {
		t.Errorf("bench history = %v", tr.Bench.BenchHistory)
	}

	if len(tr.Progress.Milestones) != 5 {
		t.Fatalf("expected 5 default milestones, got %d", len(tr.Progress.Milestones))
	}
	if !tr.Progress.Milestones[0].Completed || tr.Progress.Milestones[0].ID != "orientation" {
		t.Errorf("orientation should be pre-completed: %+v", tr.Progress.Milestones[0])
	}
	for _, m := range tr.Progress.Milestones[1:] {
		if m.Completed {
			t.Errorf("milestone %s should not be completed at creation", m.ID)
		}
	}

	if tr.Metadata.Status != TraineeStatusActive {
		t.Errorf("status = %q, want active", tr.Metadata.Status)
	}
	if tr.Metadata.MigratedFrom != app.ID {
		t.Errorf("migrated_from = %q", tr.Metadata.MigratedFrom)
	}
	if tr.Migration.Source != MigrationSource || tr.Migration.Version != MigrationVersion {
		t.Errorf("migration provenance = %+v", tr.Migration)
	}
	if tr.Migration.OriginalApplicationID != app.ID {
		t.Errorf("original application id = %q", tr.Migration.OriginalApplicationID)
	}
}

func TestNewTraineeClampsSeedProgress(t *testing.T) {
	now := time.Now()

	app := sampleApplication()
	app.Progress = -10
	if tr := NewTraineeFromApplication(app, now); tr.Progress.Overall != 0 {
		t.Errorf("negative seed progress: got %v, want 0", tr.Progress.Overall)
	}

	app.Progress = 150
	if tr := NewTraineeFromApplication(app, now); tr.Progress.Overall != 100 {
		t.Errorf("oversized seed progress: got %v, want 100", tr.Progress.Overall)
	}
}

func TestUpdateProgress(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTraineeFromApplication(sampleApplication(), now)

	later := now.Add(24 * time.Hour)
	tr.UpdateProgress(60, "good week", later)

	if tr.Progress.Overall != 60 {
		t.Errorf("overall = %v, want 60", tr.Progress.Overall)
	}
	if len(tr.Progress.Notes) != 1 || tr.Progress.Notes[0].Note != "good week" || tr.Progress.Notes[0].Progress != 60 {
		t.Errorf("notes = %+v", tr.Progress.Notes)
	}
	if tr.Bench.CurrentBench != BenchAdvanced {
		t.Errorf("bench = %s, want advanced", tr.Bench.CurrentBench)
	}
	if len(tr.Bench.BenchHistory) != 2 || tr.Bench.BenchHistory[1] != "advanced" {
		t.Errorf("bench history = %v", tr.Bench.BenchHistory)
	}

	// No note, no bench change: notes and history stay put, timestamp moves
	before := tr.Progress.LastUpdated
	tr.UpdateProgress(61, "", later.Add(time.Hour))
	if len(tr.Progress.Notes) != 1 {
		t.Errorf("no-note update appended a note: %+v", tr.Progress.Notes)
	}
	if len(tr.Bench.BenchHistory) != 2 {
		t.Errorf("same-bench update appended history: %v", tr.Bench.BenchHistory)
	}
	if tr.Progress.LastUpdated == before {
		t.Error("LastUpdated did not move on a no-note update")
	}

	// Downward correction is allowed and re-derives the bench
	tr.UpdateProgress(10, "correction", later.Add(2*time.Hour))
	if tr.Progress.Overall != 10 || tr.Bench.CurrentBench != BenchBeginner {
		t.Errorf("downward correction: overall=%v bench=%s", tr.Progress.Overall, tr.Bench.CurrentBench)
	}

	// Clamping
	tr.UpdateProgress(250, "", later.Add(3*time.Hour))
	if tr.Progress.Overall != 100 {
		t.Errorf("clamp high: %v", tr.Progress.Overall)
	}
	tr.UpdateProgress(-5, "", later.Add(4*time.Hour))
	if tr.Progress.Overall != 0 {
		t.Errorf("clamp low: %v", tr.Progress.Overall)
	}
}

func TestRecordAttendance(t *testing.T) {
	now := time.Now()
	tr := NewTraineeFromApplication(sampleApplication(), now)

	tr.RecordAttendance("2025-03-03", AttendancePresent, "", now)
	tr.RecordAttendance("2025-03-04", AttendanceAbsent, "sick", now)
	tr.RecordAttendance("2025-03-05", AttendanceLate, "traffic", now)

	a := tr.Attendance
	if a.TotalDays != 3 {
		t.Errorf("total days = %d, want 3", a.TotalDays)
	}
	if a.PresentDays != 1 || a.AbsentDays != 1 {
		t.Errorf("present=%d absent=%d, want 1/1; late counts toward neither", a.PresentDays, a.AbsentDays)
	}
	if len(a.Records) != 3 {
		t.Errorf("records = %d", len(a.Records))
	}

	want := float64(1) / float64(3) * 100
	if a.AttendanceRate != want {
		t.Errorf("rate = %v, want %v", a.AttendanceRate, want)
	}
}

func TestAddFeedback(t *testing.T) {
	now := time.Now()
	tr := NewTraineeFromApplication(sampleApplication(), now)

	if tr.Performance.Rating != 0 {
		t.Errorf("rating before feedback = %v, want 0", tr.Performance.Rating)
	}

	tr.AddFeedback("solid start", 4, "Bola Ade", now)
	tr.AddFeedback("improving", 5, "Bola Ade", now)

	if len(tr.Performance.SupervisorFeedback) != 2 {
		t.Fatalf("feedback entries = %d", len(tr.Performance.SupervisorFeedback))
	}
	if tr.Performance.Rating != 4.5 {
		t.Errorf("rating = %v, want 4.5", tr.Performance.Rating)
	}
}

func TestCompleteMilestone(t *testing.T) {
	now := time.Now()
	tr := NewTraineeFromApplication(sampleApplication(), now)

	if !tr.CompleteMilestone("midterm", now) {
		t.Fatal("known milestone not completed")
	}
	for _, m := range tr.Progress.Milestones {
		if m.ID == "midterm" {
			if !m.Completed || m.CompletedDate == "" {
				t.Errorf("midterm milestone = %+v", m)
			}
		}
	}

	if tr.CompleteMilestone("does-not-exist", now) {
		t.Error("unknown milestone id should be a no-op returning false")
	}
}

func TestExtend(t *testing.T) {
	now := time.Now()
	tr := NewTraineeFromApplication(sampleApplication(), now)

	tr.Extend("2025-10-01", "project overrun", now)

	if tr.Duration.EndDate != "2025-10-01" || !tr.Duration.Extended {
		t.Errorf("duration = %+v", tr.Duration)
	}
	if tr.Duration.ExtensionReason != "project overrun" {
		t.Errorf("reason = %q", tr.Duration.ExtensionReason)
	}
	if tr.Duration.OriginalStartDate != "2025-02-01" {
		t.Errorf("original start date must not move: %q", tr.Duration.OriginalStartDate)
	}
}

func TestComplete(t *testing.T) {
	now := time.Now()
	tr := NewTraineeFromApplication(sampleApplication(), now)
	tr.UpdateProgress(80, "", now)

	tr.Complete(now)

	if !tr.IsCompleted() {
		t.Fatal("trainee should report completed")
	}
	if tr.Metadata.CompletedAt == "" {
		t.Error("CompletedAt not stamped")
	}
	if tr.Progress.Overall != 100 {
		t.Errorf("completion must force progress to 100, got %v", tr.Progress.Overall)
	}
	if tr.Bench.CurrentBench != BenchExpert || tr.Bench.NextBench != BenchGraduation {
		t.Errorf("bench after completion = %s/%s", tr.Bench.CurrentBench, tr.Bench.NextBench)
	}
}
