/*
scenarios.go - Demo scenario loaders

PURPOSE:
  Seeds the database with ready-made teams and requests so the API can be
  explored without manual setup. Each scenario builds on the standard leave
  type catalog and drives submissions through the Service, so seeded data
  obeys every engine rule (reservations, warnings, audit entries).

SCENARIOS:
  small-team:   Four employees, a mix of pending and approved requests
  fresh-start:  Catalog and employees only, no requests

SEE ALSO:
  - factory/leavetype.go: StandardCatalog
  - handlers.go: /api/scenarios endpoints
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

var scenarios = []ScenarioDTO{
	{
		ID:          "small-team",
		Name:        "Small Team",
		Description: "Four employees with pending and approved requests",
	},
	{
		ID:          "fresh-start",
		Name:        "Fresh Start",
		Description: "Standard catalog and employees, no requests",
	},
}

// ListScenarios returns all loadable scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the most recently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"id": h.currentScenario})
}

// LoadScenario seeds the database with the selected scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	var err error
	switch req.ID {
	case "small-team":
		err = h.loadSmallTeam(ctx)
	case "fresh-start":
		err = h.seedBaseline(ctx)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ID
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "id": req.ID})
}

// seedBaseline installs the standard catalog and a small directory.
func (h *Handler) seedBaseline(ctx context.Context) error {
	for _, lt := range h.Types.StandardCatalog() {
		if err := h.Store.SaveLeaveType(ctx, lt); err != nil {
			return err
		}
	}

	employees := []sqlite.Employee{
		{ID: "alice", Name: "Alice Martin", Email: "alice@example.com", HireDate: time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "bob", Name: "Bob Chen", Email: "bob@example.com", HireDate: time.Date(2021, 7, 15, 0, 0, 0, 0, time.UTC)},
		{ID: "carol", Name: "Carol Diaz", Email: "carol@example.com", HireDate: time.Date(2019, 1, 6, 0, 0, 0, 0, time.UTC)},
		{ID: "dave", Name: "Dave Osei", Email: "dave@example.com", HireDate: time.Date(2023, 10, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, e := range employees {
		if err := h.Store.SaveEmployee(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// loadSmallTeam seeds the baseline plus a realistic spread of requests.
func (h *Handler) loadSmallTeam(ctx context.Context) error {
	if err := h.seedBaseline(ctx); err != nil {
		return err
	}

	// Anchor on the next Monday at least four weeks out so seeded requests
	// are always in the future and clear of notice warnings.
	start := leave.Today().AddDays(28)
	for start.Weekday() != time.Monday {
		start = start.AddDays(1)
	}

	// Alice: a full approved week.
	res, err := h.Service.Submit(ctx, leave.SubmitInput{
		EmployeeID:  "alice",
		LeaveTypeID: "annual",
		StartDate:   start,
		EndDate:     start.AddDays(4),
		Reason:      "Family vacation",
	})
	if err != nil {
		return err
	}
	if _, err := h.Service.Approve(ctx, res.Request.ID, "carol", "enjoy"); err != nil {
		return err
	}

	// Bob: pending request two weeks later.
	if _, err := h.Service.Submit(ctx, leave.SubmitInput{
		EmployeeID:  "bob",
		LeaveTypeID: "annual",
		StartDate:   start.AddDays(14),
		EndDate:     start.AddDays(16),
		Reason:      "Long weekend trip",
	}); err != nil {
		return err
	}

	// Dave: a half-day sick request, pending.
	if _, err := h.Service.Submit(ctx, leave.SubmitInput{
		EmployeeID:     "dave",
		LeaveTypeID:    "sick",
		StartDate:      start.AddDays(7),
		EndDate:        start.AddDays(7),
		IsHalfDayStart: true,
		Reason:         "Dental appointment",
	}); err != nil {
		return err
	}

	return nil
}
