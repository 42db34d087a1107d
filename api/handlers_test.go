package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// newTestServer wires a full stack against an in-memory database.
func newTestServer(t *testing.T) (*Handler, http.Handler) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ledger := leave.NewLedger(store, store)
	validator := leave.NewValidator(store, store, ledger, store)
	service := leave.NewService(store, ledger, validator, nil)
	service.Audit = store

	h := NewHandler(store, service, nil)
	return h, NewRouter(h)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

// seedTeam installs a no-frills leave type and two employees.
func seedTeam(t *testing.T, router http.Handler) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/types", map[string]any{
		"id": "annual", "name": "Annual Leave", "max_days_per_year": 25,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	for _, id := range []string{"alice", "manager"} {
		rec := doJSON(t, router, http.MethodPost, "/api/employees", map[string]any{
			"id": id, "name": id, "email": id + "@example.com", "hire_date": "2020-01-06",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
}

// 2030-06-03 is a Monday, far enough out to dodge notice warnings.
const (
	weekStart = "2030-06-03"
	weekEnd   = "2030-06-07"
)

func submitWeek(t *testing.T, router http.Handler) SubmitResponse {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/employees/alice/requests", SubmitRequestRequest{
		LeaveTypeID: "annual",
		StartDate:   weekStart,
		EndDate:     weekEnd,
		Reason:      "Summer break",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[SubmitResponse](t, rec)
}

func TestEmployeeEndpoints(t *testing.T) {
	_, router := newTestServer(t)
	seedTeam(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/employees", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	employees := decode[[]EmployeeDTO](t, rec)
	assert.Len(t, employees, 2)

	rec = doJSON(t, router, http.MethodGet, "/api/employees/alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", decode[EmployeeDTO](t, rec).ID)

	rec = doJSON(t, router, http.MethodGet, "/api/employees/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Malformed hire date
	rec = doJSON(t, router, http.MethodPost, "/api/employees", map[string]any{
		"id": "eve", "name": "Eve", "hire_date": "01/06/2020",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitApproveFlow(t *testing.T) {
	_, router := newTestServer(t)
	seedTeam(t, router)

	// Submit a full week.
	res := submitWeek(t, router)
	assert.Equal(t, "pending", res.Request.Status)
	assert.Equal(t, 5.0, res.Request.ChargeableDays)
	assert.Equal(t, 5.0, res.Balance.PendingDays)
	assert.Equal(t, 20.0, res.Balance.RemainingDays)
	assert.Empty(t, res.Warnings)

	// It shows up in the pending queue.
	rec := doJSON(t, router, http.MethodGet, "/api/requests/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]RequestDTO](t, rec), 1)

	// Approve it.
	rec = doJSON(t, router, http.MethodPost, "/api/requests/"+res.Request.ID+"/approve",
		ApproveRequestRequest{ApproverID: "manager", Comment: "enjoy"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	approved := decode[RequestDTO](t, rec)
	assert.Equal(t, "approved", approved.Status)
	require.NotNil(t, approved.ApproverID)
	assert.Equal(t, "manager", *approved.ApproverID)

	// The balance now shows used days.
	rec = doJSON(t, router, http.MethodGet, "/api/employees/alice/balances?year=2030", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	balances := decode[[]BalanceDTO](t, rec)
	require.Len(t, balances, 1)
	assert.Equal(t, 5.0, balances[0].UsedDays)
	assert.Equal(t, 0.0, balances[0].PendingDays)
	assert.Equal(t, 20.0, balances[0].RemainingDays)

	// A second approval conflicts.
	rec = doJSON(t, router, http.MethodPost, "/api/requests/"+res.Request.ID+"/approve",
		ApproveRequestRequest{ApproverID: "manager"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRejectRequiresReason(t *testing.T) {
	_, router := newTestServer(t)
	seedTeam(t, router)
	res := submitWeek(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/requests/"+res.Request.ID+"/reject",
		RejectRequestRequest{ApproverID: "manager"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/requests/"+res.Request.ID+"/reject",
		RejectRequestRequest{ApproverID: "manager", Reason: "coverage gap"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "rejected", decode[RequestDTO](t, rec).Status)
}

func TestCancelRequest(t *testing.T) {
	_, router := newTestServer(t)
	seedTeam(t, router)
	res := submitWeek(t, router)

	// A non-owner cannot cancel.
	rec := doJSON(t, router, http.MethodPost, "/api/requests/"+res.Request.ID+"/cancel",
		CancelRequestRequest{EmployeeID: "manager"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/requests/"+res.Request.ID+"/cancel",
		CancelRequestRequest{EmployeeID: "alice"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "cancelled", decode[RequestDTO](t, rec).Status)

	// The reservation is back.
	rec = doJSON(t, router, http.MethodGet, "/api/employees/alice/balances?year=2030", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	balances := decode[[]BalanceDTO](t, rec)
	require.Len(t, balances, 1)
	assert.Equal(t, 25.0, balances[0].RemainingDays)
}

func TestSubmitValidationErrors(t *testing.T) {
	_, router := newTestServer(t)
	seedTeam(t, router)

	// Unknown employee maps to 404.
	rec := doJSON(t, router, http.MethodPost, "/api/employees/ghost/requests", SubmitRequestRequest{
		LeaveTypeID: "annual", StartDate: weekStart, EndDate: weekEnd,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Reversed dates map to 400.
	rec = doJSON(t, router, http.MethodPost, "/api/employees/alice/requests", SubmitRequestRequest{
		LeaveTypeID: "annual", StartDate: weekEnd, EndDate: weekStart,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Weekend-only range maps to 400.
	rec = doJSON(t, router, http.MethodPost, "/api/employees/alice/requests", SubmitRequestRequest{
		LeaveTypeID: "annual", StartDate: "2030-06-08", EndDate: "2030-06-09",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown leave type maps to 404.
	rec = doJSON(t, router, http.MethodPost, "/api/employees/alice/requests", SubmitRequestRequest{
		LeaveTypeID: "sabbatical", StartDate: weekStart, EndDate: weekEnd,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateRequestEndpoint(t *testing.T) {
	_, router := newTestServer(t)
	seedTeam(t, router)
	res := submitWeek(t, router)

	rec := doJSON(t, router, http.MethodPut, "/api/requests/"+res.Request.ID, UpdateRequestRequest{
		EmployeeID:  "alice",
		LeaveTypeID: "annual",
		StartDate:   weekStart,
		EndDate:     "2030-06-04",
		Reason:      "Shorter trip",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[SubmitResponse](t, rec)
	assert.Equal(t, 2.0, updated.Request.ChargeableDays)
	assert.Equal(t, 2.0, updated.Balance.PendingDays)
	assert.Equal(t, res.Request.ID, updated.Request.ID)
}

func TestLeaveTypeEndpoints(t *testing.T) {
	h, router := newTestServer(t)
	seedTeam(t, router)

	for _, lt := range h.Types.StandardCatalog() {
		rec := doJSON(t, router, http.MethodPost, "/api/types", h.Types.ToJSON(lt))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := doJSON(t, router, http.MethodGet, "/api/types", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	types := decode[[]LeaveTypeDTO](t, rec)
	assert.Len(t, types, 4, "seed annual is overwritten by the catalog annual")

	rec = doJSON(t, router, http.MethodGet, "/api/types/sick", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Sick Leave", decode[LeaveTypeDTO](t, rec).Name)

	// The factory validates before anything is stored.
	rec = doJSON(t, router, http.MethodPost, "/api/types", map[string]any{"name": "No ID"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalendarAndOverlap(t *testing.T) {
	_, router := newTestServer(t)
	seedTeam(t, router)
	res := submitWeek(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/requests/"+res.Request.ID+"/approve",
		ApproveRequestRequest{ApproverID: "manager"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/calendar?year=2030&month=6", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]RequestDTO](t, rec), 1)

	rec = doJSON(t, router, http.MethodGet, "/api/calendar?year=2030&month=7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]RequestDTO](t, rec))

	rec = doJSON(t, router, http.MethodGet,
		fmt.Sprintf("/api/overlap?start=%s&end=%s&exclude=manager", weekStart, weekEnd), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	overlap := decode[OverlapDTO](t, rec)
	assert.Equal(t, 1, overlap.Count)
	assert.Equal(t, []string{"alice"}, overlap.EmployeeIDs)
}

func TestGrantAndAuditEndpoints(t *testing.T) {
	_, router := newTestServer(t)
	seedTeam(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/admin/grants", GrantRequest{
		EmployeeID:  "alice",
		LeaveTypeID: "annual",
		Year:        2030,
		Days:        2.5,
		Carryover:   true,
		ActorID:     "admin",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	balance := decode[BalanceDTO](t, rec)
	assert.Equal(t, 2.5, balance.CarriedOverDays)
	assert.Equal(t, 27.5, balance.RemainingDays)

	rec = doJSON(t, router, http.MethodGet, "/api/admin/audit?employee_id=alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]AuditEntryDTO](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, string(leave.AuditYearEndCarryover), entries[0].Action)
	assert.Equal(t, "admin", entries[0].ActorID)
}

func TestScenarioEndpoints(t *testing.T) {
	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ScenarioDTO](t, rec), 2)

	rec = doJSON(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ID: "small-team"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/scenarios/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "small-team", decode[map[string]string](t, rec)["id"])

	// The seeded team left two requests pending.
	rec = doJSON(t, router, http.MethodGet, "/api/requests/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]RequestDTO](t, rec), 2)

	rec = doJSON(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOverviewEndpoint(t *testing.T) {
	_, router := newTestServer(t)
	seedTeam(t, router)
	res := submitWeek(t, router)
	rec := doJSON(t, router, http.MethodPost, "/api/requests/"+res.Request.ID+"/approve",
		ApproveRequestRequest{ApproverID: "manager"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/employees/alice/overview", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ov := decode[OverviewDTO](t, rec)
	assert.Equal(t, "alice", ov.EmployeeID)
	assert.Equal(t, time.Now().Year(), ov.Year)
	assert.Len(t, ov.RecentRequests, 1)
	require.Len(t, ov.UpcomingLeave, 1)
	assert.Equal(t, res.Request.ID, ov.UpcomingLeave[0].ID)
}
