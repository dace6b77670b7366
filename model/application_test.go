package model

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-02-01", true},
		{"2025-02-01T09:30:00Z", true},
		{"2025-02-01T09:30:00.123456789Z", true},
		{"2025-02-01T09:30:00+01:00", true},
		{"", false},
		{"not a date", false},
		{"01/02/2025", false},
	}

	for _, c := range cases {
		_, ok := ParseDate(c.in)
		if ok != c.ok {
			t.Errorf("ParseDate(%q) ok = %v, want %v", c.in, ok, c.ok)
		}
	}

	parsed, ok := ParseDate("2025-02-01")
	if !ok || parsed.Year() != 2025 || parsed.Month() != time.February || parsed.Day() != 1 {
		t.Errorf("ParseDate bare date = %v", parsed)
	}
}

func TestHasStarted(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	app := &Application{Duration: ApplicationDuration{StartDate: "2025-02-01"}}
	if !app.HasStarted(now) {
		t.Error("past start date should count as started")
	}

	app.Duration.StartDate = "2025-03-01"
	if !app.HasStarted(now) {
		t.Error("start date equal to now should count as started")
	}

	app.Duration.StartDate = "2025-04-01"
	if app.HasStarted(now) {
		t.Error("future start date should not count as started")
	}

	// An unparseable start date is treated as not started, never as started
	app.Duration.StartDate = "soon"
	if app.HasStarted(now) {
		t.Error("unparseable start date must not count as started")
	}
	app.Duration.StartDate = ""
	if app.HasStarted(now) {
		t.Error("missing start date must not count as started")
	}
}

func TestRecordViewStudentName(t *testing.T) {
	app := &Application{Student: ApplicationStudent{FullName: "Amina Yusuf"}}
	if got := ViewOfApplication(app).StudentName(); got != "Amina Yusuf" {
		t.Errorf("application view name = %q", got)
	}

	tr := &Trainee{StudentInfo: StudentInfo{FullName: "Chidi Okeke"}}
	if got := ViewOfTrainee(tr).StudentName(); got != "Chidi Okeke" {
		t.Errorf("trainee view name = %q", got)
	}

	empty := RecordView{Kind: RecordKindApplication}
	if got := empty.StudentName(); got != "" {
		t.Errorf("nil-backed view name = %q, want empty", got)
	}
}
