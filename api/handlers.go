/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes the leave entitlement and request lifecycle engine via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to the
  domain service.

ENDPOINTS:
  Employees:
    GET    /api/employees                   List all employees
    POST   /api/employees                   Create employee
    GET    /api/employees/{id}              Get employee details
    GET    /api/employees/{id}/balances     Balances per leave type
    GET    /api/employees/{id}/requests     Request history
    GET    /api/employees/{id}/overview     Dashboard aggregate
    POST   /api/employees/{id}/requests     Submit a leave request

  Requests:
    GET    /api/requests/pending            Approval queue
    GET    /api/requests/{id}               Get one request
    PUT    /api/requests/{id}               Rewrite a pending request
    POST   /api/requests/{id}/approve       Approve
    POST   /api/requests/{id}/reject        Reject (reason required)
    POST   /api/requests/{id}/cancel        Cancel (owner only)

  Leave types:
    GET    /api/types                       Full catalog
    POST   /api/types                       Create/update from JSON
    GET    /api/types/{id}                  Get one type

  Calendar / overlap:
    GET    /api/calendar?year=&month=       Approved leave for a month
    GET    /api/overlap?start=&end=         Who else is off in a range

  Admin:
    POST   /api/admin/grants                Credit days to a balance
    GET    /api/admin/audit                 Audit log query

  Scenarios:
    GET    /api/scenarios                   List demo scenarios
    POST   /api/scenarios/load              Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (invalid transition, lost retry)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Service *leave.Service
	Types   *factory.TypeFactory
	Logger  *zap.Logger

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler.
func NewHandler(store *sqlite.Store, service *leave.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:   store,
		Service: service,
		Types:   factory.NewTypeFactory(),
		Logger:  logger,
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := leave.EmployeeID(chi.URLParam(r, "id"))

	emp, err := h.Store.Employee(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// CreateEmployee creates a new employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	hireDate, err := time.Parse("2006-01-02", req.HireDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hire_date format (use YYYY-MM-DD)", err)
		return
	}

	emp := sqlite.Employee{
		ID:       leave.EmployeeID(req.ID),
		Name:     req.Name,
		Email:    req.Email,
		HireDate: hireDate,
	}
	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

func toEmployeeDTO(e sqlite.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:       string(e.ID),
		Name:     e.Name,
		Email:    e.Email,
		HireDate: e.HireDate.Format("2006-01-02"),
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// GetBalances returns one balance per active leave type for an employee.
// Year defaults to the current year.
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	id := leave.EmployeeID(chi.URLParam(r, "id"))
	year, err := yearParam(r, time.Now().Year())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	snapshots, err := h.Service.EmployeeBalances(r.Context(), id, year)
	if err != nil {
		writeDomainError(w, "Failed to get balances", err)
		return
	}

	dtos := make([]BalanceDTO, len(snapshots))
	for i, s := range snapshots {
		dtos[i] = toBalanceDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetOverview returns the dashboard aggregate for an employee.
func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	id := leave.EmployeeID(chi.URLParam(r, "id"))

	ov, err := h.Service.Overview(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get overview", err)
		return
	}

	balances := make([]BalanceDTO, len(ov.Balances))
	for i, s := range ov.Balances {
		balances[i] = toBalanceDTO(s)
	}
	writeJSON(w, http.StatusOK, OverviewDTO{
		EmployeeID:     string(ov.EmployeeID),
		Year:           ov.Year,
		Balances:       balances,
		RecentRequests: toRequestDTOs(ov.RecentRequests),
		UpcomingLeave:  toRequestDTOs(ov.UpcomingLeave),
	})
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// SubmitRequest submits a new leave request for the employee in the path.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	employeeID := leave.EmployeeID(chi.URLParam(r, "id"))

	var req SubmitRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, end, err := parseDates(req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	res, err := h.Service.Submit(r.Context(), leave.SubmitInput{
		EmployeeID:       employeeID,
		LeaveTypeID:      leave.LeaveTypeID(req.LeaveTypeID),
		StartDate:        start,
		EndDate:          end,
		IsHalfDayStart:   req.IsHalfDayStart,
		IsHalfDayEnd:     req.IsHalfDayEnd,
		Reason:           req.Reason,
		EmergencyContact: req.EmergencyContact,
	})
	if err != nil {
		writeDomainError(w, "Failed to submit request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubmitResponse(res))
}

// ListEmployeeRequests returns the request history for an employee.
// Optional filters: ?year=2024&status=pending
func (h *Handler) ListEmployeeRequests(w http.ResponseWriter, r *http.Request) {
	employeeID := leave.EmployeeID(chi.URLParam(r, "id"))
	filter := leave.RequestFilter{EmployeeID: &employeeID}

	if v := r.URL.Query().Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		filter.Year = &year
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := leave.RequestStatus(v)
		filter.Status = &status
	}

	requests, err := h.Service.ListRequests(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list requests", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(requests))
}

// GetRequest returns a single request.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id := leave.RequestID(chi.URLParam(r, "id"))

	req, err := h.Service.Request(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// ListPendingRequests returns the approval queue.
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Service.PendingRequests(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pending requests", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(requests))
}

// UpdateRequest rewrites a pending request in place.
func (h *Handler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	id := leave.RequestID(chi.URLParam(r, "id"))

	var req UpdateRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, end, err := parseDates(req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	res, err := h.Service.Update(r.Context(), leave.UpdateInput{
		RequestID:        id,
		ActingEmployeeID: leave.EmployeeID(req.EmployeeID),
		LeaveTypeID:      leave.LeaveTypeID(req.LeaveTypeID),
		StartDate:        start,
		EndDate:          end,
		IsHalfDayStart:   req.IsHalfDayStart,
		IsHalfDayEnd:     req.IsHalfDayEnd,
		Reason:           req.Reason,
		EmergencyContact: req.EmergencyContact,
	})
	if err != nil {
		writeDomainError(w, "Failed to update request", err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmitResponse(res))
}

// ApproveRequest approves a pending request.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	id := leave.RequestID(chi.URLParam(r, "id"))

	var req ApproveRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	updated, err := h.Service.Approve(r.Context(), id, leave.EmployeeID(req.ApproverID), req.Comment)
	if err != nil {
		writeDomainError(w, "Failed to approve request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(updated))
}

// RejectRequest rejects a pending request. The reason is mandatory.
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	id := leave.RequestID(chi.URLParam(r, "id"))

	var req RejectRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	updated, err := h.Service.Reject(r.Context(), id, leave.EmployeeID(req.ApproverID), req.Reason)
	if err != nil {
		writeDomainError(w, "Failed to reject request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(updated))
}

// CancelRequest cancels a pending request on behalf of its owner.
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	id := leave.RequestID(chi.URLParam(r, "id"))

	var req CancelRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	updated, err := h.Service.Cancel(r.Context(), id, leave.EmployeeID(req.EmployeeID))
	if err != nil {
		writeDomainError(w, "Failed to cancel request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(updated))
}

// =============================================================================
// LEAVE TYPE HANDLERS
// =============================================================================

// ListLeaveTypes returns the full catalog.
func (h *Handler) ListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Store.ListLeaveTypes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list leave types", err)
		return
	}

	dtos := make([]LeaveTypeDTO, len(types))
	for i, t := range types {
		dtos[i] = LeaveTypeDTO{h.Types.ToJSON(t)}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetLeaveType returns one catalog entry.
func (h *Handler) GetLeaveType(w http.ResponseWriter, r *http.Request) {
	id := leave.LeaveTypeID(chi.URLParam(r, "id"))

	lt, err := h.Store.Type(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get leave type", err)
		return
	}
	writeJSON(w, http.StatusOK, LeaveTypeDTO{h.Types.ToJSON(lt)})
}

// CreateLeaveType creates or updates a catalog entry from JSON.
func (h *Handler) CreateLeaveType(w http.ResponseWriter, r *http.Request) {
	var tj factory.LeaveTypeJSON
	if err := json.NewDecoder(r.Body).Decode(&tj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	lt, err := h.Types.FromJSON(tj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid leave type", err)
		return
	}
	if err := h.Store.SaveLeaveType(r.Context(), lt); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save leave type", err)
		return
	}
	writeJSON(w, http.StatusCreated, LeaveTypeDTO{h.Types.ToJSON(lt)})
}

// =============================================================================
// CALENDAR AND OVERLAP HANDLERS
// =============================================================================

// GetCalendar returns approved leave for a month (?year=2024&month=6) or an
// explicit range (?start=...&end=...).
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("start") != "" || q.Get("end") != "" {
		start, end, err := parseDates(q.Get("start"), q.Get("end"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		rng, err := leave.NewDateRange(start, end)
		if err != nil {
			writeDomainError(w, "Invalid range", err)
			return
		}
		requests, err := h.Service.ApprovedLeaveInRange(r.Context(), rng)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load calendar", err)
			return
		}
		writeJSON(w, http.StatusOK, toRequestDTOs(requests))
		return
	}

	now := time.Now()
	year, err := yearParam(r, now.Year())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	month := int(now.Month())
	if v := q.Get("month"); v != "" {
		if month, err = strconv.Atoi(v); err != nil || month < 1 || month > 12 {
			writeError(w, http.StatusBadRequest, "Invalid month", err)
			return
		}
	}

	requests, err := h.Service.ApprovedLeaveByMonth(r.Context(), year, time.Month(month))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load calendar", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(requests))
}

// GetOverlap reports other employees on approved leave in a range.
// Optional ?exclude= omits one employee from the count.
func (h *Handler) GetOverlap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end, err := parseDates(q.Get("start"), q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	report, err := h.Service.CheckOverlap(r.Context(), start, end, leave.EmployeeID(q.Get("exclude")))
	if err != nil {
		writeDomainError(w, "Failed to check overlap", err)
		return
	}

	ids := make([]string, len(report.EmployeeIDs))
	for i, id := range report.EmployeeIDs {
		ids[i] = string(id)
	}
	writeJSON(w, http.StatusOK, OverlapDTO{
		StartDate:   start.String(),
		EndDate:     end.String(),
		Count:       report.Count,
		EmployeeIDs: ids,
	})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// CreateGrant credits days to a balance.
func (h *Handler) CreateGrant(w http.ResponseWriter, r *http.Request) {
	var req GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Year == 0 {
		req.Year = time.Now().Year()
	}

	snap, err := h.Service.GrantDays(r.Context(),
		leave.BalanceKey{
			EmployeeID:  leave.EmployeeID(req.EmployeeID),
			LeaveTypeID: leave.LeaveTypeID(req.LeaveTypeID),
			Year:        req.Year,
		},
		decimal.NewFromFloat(req.Days), req.Carryover, req.ActorID)
	if err != nil {
		writeDomainError(w, "Failed to grant days", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBalanceDTO(snap))
}

// GetAuditLog queries the audit trail (?employee_id=, ?request_id=).
func (h *Handler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter leave.AuditFilter
	if v := q.Get("employee_id"); v != "" {
		id := leave.EmployeeID(v)
		filter.EmployeeID = &id
	}
	if v := q.Get("request_id"); v != "" {
		id := leave.RequestID(v)
		filter.RequestID = &id
	}

	entries, err := h.Store.AuditEntries(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query audit log", err)
		return
	}

	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = AuditEntryDTO{
			ID:          e.ID,
			At:          e.At.UTC().Format(time.RFC3339),
			ActorID:     e.ActorID,
			Action:      string(e.Action),
			EmployeeID:  string(e.EmployeeID),
			LeaveTypeID: string(e.LeaveTypeID),
			RequestID:   string(e.RequestID),
			Details:     e.Details,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case leave.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case leave.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case leave.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func parseDates(start, end string) (leave.Date, leave.Date, error) {
	s, err := leave.ParseDate(start)
	if err != nil {
		return leave.Date{}, leave.Date{}, err
	}
	e, err := leave.ParseDate(end)
	if err != nil {
		return leave.Date{}, leave.Date{}, err
	}
	return s, e, nil
}

func yearParam(r *http.Request, def int) (int, error) {
	v := r.URL.Query().Get("year")
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
