package migration

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/mrb4ll0/itc-trainee-api/services"
)

// stubTracker fakes the live-run state store for handler tests
type stubTracker struct {
	activeRunID  string
	activeErr    error
	runStates    map[string]*services.RunState
	runErr       error
	lastRunAsked string
}

func (s *stubTracker) GetActiveRun(_ context.Context, companyID string) (string, error) {
	if s.activeErr != nil {
		return "", s.activeErr
	}
	return s.activeRunID, nil
}

func (s *stubTracker) GetRun(_ context.Context, runID string) (*services.RunState, error) {
	s.lastRunAsked = runID
	if s.runErr != nil {
		return nil, s.runErr
	}
	state, ok := s.runStates[runID]
	if !ok {
		return nil, errors.New("run not found or expired: " + runID)
	}
	return state, nil
}

func activeRunApp(tracker RunTracker) *fiber.App {
	h := NewMigrationHandler(nil, nil, nil, nil, tracker, nil, nil)
	app := fiber.New()
	app.Get("/migration/active", func(c *fiber.Ctx) error {
		c.Locals("company_id", testCompanyID)
		return c.Next()
	}, h.GetActiveRun)
	return app
}

const testCompanyID = "company-1"

func TestGetActiveRunNoMigrationInProgress(t *testing.T) {
	tracker := &stubTracker{activeErr: services.ErrNoActiveRun}
	app := activeRunApp(tracker)

	resp, err := app.Test(httptest.NewRequest("GET", "/migration/active", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("status = %d, want 404 when nothing is running", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "No migration in progress") {
		t.Errorf("body = %s", body)
	}
	if tracker.lastRunAsked != "" {
		t.Errorf("GetRun was called with %q; a miss must short-circuit", tracker.lastRunAsked)
	}
}

func TestGetActiveRunReturnsLiveState(t *testing.T) {
	tracker := &stubTracker{
		activeRunID: "run-1",
		runStates: map[string]*services.RunState{
			"run-1": {RunID: "run-1", CompanyID: testCompanyID, Status: "running", Current: 2, Total: 5},
		},
	}
	app := activeRunApp(tracker)

	resp, err := app.Test(httptest.NewRequest("GET", "/migration/active", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var payload struct {
		Success bool               `json:"success"`
		Data    *services.RunState `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !payload.Success || payload.Data == nil || payload.Data.RunID != "run-1" {
		t.Errorf("payload = %+v", payload)
	}
	if payload.Data.Current != 2 || payload.Data.Total != 5 {
		t.Errorf("state = %+v", payload.Data)
	}
}

func TestGetActiveRunTrackerFailure(t *testing.T) {
	tracker := &stubTracker{activeErr: errors.New("redis unreachable")}
	app := activeRunApp(tracker)

	resp, err := app.Test(httptest.NewRequest("GET", "/migration/active", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Errorf("status = %d, want 500 on a tracker failure", resp.StatusCode)
	}
}

func TestGetActiveRunWithoutCompany(t *testing.T) {
	app := fiber.New()
	h := NewMigrationHandler(nil, nil, nil, nil, &stubTracker{}, nil, nil)
	app.Get("/migration/active", h.GetActiveRun)

	resp, err := app.Test(httptest.NewRequest("GET", "/migration/active", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without a company scope", resp.StatusCode)
	}
}
