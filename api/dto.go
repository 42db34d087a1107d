/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

DATES:
  Calendar dates travel as YYYY-MM-DD strings; timestamps as RFC 3339.
  Day amounts travel as JSON numbers (halves are exact in float64).

SEE ALSO:
  - handlers.go: Uses these types
  - factory/leavetype.go: LeaveTypeJSON type
*/
package api

import (
	"time"

	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	HireDate  string `json:"hire_date"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateEmployeeRequest is the request to create an employee.
type CreateEmployeeRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	HireDate string `json:"hire_date"`
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

// LeaveTypeDTO wraps the factory JSON schema for API responses.
type LeaveTypeDTO struct {
	factory.LeaveTypeJSON
}

// =============================================================================
// BALANCES
// =============================================================================

// BalanceDTO represents one leave balance in API responses.
type BalanceDTO struct {
	EmployeeID        string  `json:"employee_id"`
	LeaveTypeID       string  `json:"leave_type_id"`
	Year              int     `json:"year"`
	AnnualEntitlement float64 `json:"annual_entitlement"`
	CarriedOverDays   float64 `json:"carried_over_days"`
	UsedDays          float64 `json:"used_days"`
	PendingDays       float64 `json:"pending_days"`
	RemainingDays     float64 `json:"remaining_days"`
}

func toBalanceDTO(s *leave.BalanceSnapshot) BalanceDTO {
	entitlement, _ := s.AnnualEntitlement.Float64()
	carried, _ := s.CarriedOverDays.Float64()
	used, _ := s.UsedDays.Float64()
	pending, _ := s.PendingDays.Float64()
	remaining, _ := s.RemainingDays.Float64()
	return BalanceDTO{
		EmployeeID:        string(s.EmployeeID),
		LeaveTypeID:       string(s.LeaveTypeID),
		Year:              s.Year,
		AnnualEntitlement: entitlement,
		CarriedOverDays:   carried,
		UsedDays:          used,
		PendingDays:       pending,
		RemainingDays:     remaining,
	}
}

// =============================================================================
// REQUESTS
// =============================================================================

// RequestDTO represents a leave request in API responses.
type RequestDTO struct {
	ID               string  `json:"id"`
	EmployeeID       string  `json:"employee_id"`
	LeaveTypeID      string  `json:"leave_type_id"`
	StartDate        string  `json:"start_date"`
	EndDate          string  `json:"end_date"`
	IsHalfDayStart   bool    `json:"is_half_day_start"`
	IsHalfDayEnd     bool    `json:"is_half_day_end"`
	ChargeableDays   float64 `json:"chargeable_days"`
	Reason           string  `json:"reason,omitempty"`
	EmergencyContact string  `json:"emergency_contact,omitempty"`
	Status           string  `json:"status"`
	RequestDate      string  `json:"request_date"`
	ApproverID       *string `json:"approver_id,omitempty"`
	ApprovalDate     *string `json:"approval_date,omitempty"`
	ApprovalComment  string  `json:"approval_comment,omitempty"`
	RejectionReason  string  `json:"rejection_reason,omitempty"`
}

func toRequestDTO(r *leave.LeaveRequest) RequestDTO {
	days, _ := r.ChargeableDays.Float64()
	dto := RequestDTO{
		ID:               string(r.ID),
		EmployeeID:       string(r.EmployeeID),
		LeaveTypeID:      string(r.LeaveTypeID),
		StartDate:        r.StartDate.String(),
		EndDate:          r.EndDate.String(),
		IsHalfDayStart:   r.IsHalfDayStart,
		IsHalfDayEnd:     r.IsHalfDayEnd,
		ChargeableDays:   days,
		Reason:           r.Reason,
		EmergencyContact: r.EmergencyContact,
		Status:           string(r.Status),
		RequestDate:      r.RequestDate.UTC().Format(time.RFC3339),
		ApprovalComment:  r.ApprovalComment,
		RejectionReason:  r.RejectionReason,
	}
	if r.ApproverID != nil {
		s := string(*r.ApproverID)
		dto.ApproverID = &s
	}
	if r.ApprovalDate != nil {
		s := r.ApprovalDate.UTC().Format(time.RFC3339)
		dto.ApprovalDate = &s
	}
	return dto
}

func toRequestDTOs(rs []*leave.LeaveRequest) []RequestDTO {
	dtos := make([]RequestDTO, len(rs))
	for i, r := range rs {
		dtos[i] = toRequestDTO(r)
	}
	return dtos
}

// SubmitRequestRequest is the request body for a submission.
type SubmitRequestRequest struct {
	LeaveTypeID      string `json:"leave_type_id"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	IsHalfDayStart   bool   `json:"is_half_day_start,omitempty"`
	IsHalfDayEnd     bool   `json:"is_half_day_end,omitempty"`
	Reason           string `json:"reason,omitempty"`
	EmergencyContact string `json:"emergency_contact,omitempty"`
}

// UpdateRequestRequest rewrites a pending request.
type UpdateRequestRequest struct {
	EmployeeID       string `json:"employee_id"`
	LeaveTypeID      string `json:"leave_type_id"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	IsHalfDayStart   bool   `json:"is_half_day_start,omitempty"`
	IsHalfDayEnd     bool   `json:"is_half_day_end,omitempty"`
	Reason           string `json:"reason,omitempty"`
	EmergencyContact string `json:"emergency_contact,omitempty"`
}

// WarningDTO is a non-blocking rule violation attached to an accepted request.
type WarningDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SubmitResponse returns the accepted request with the authoritative balance.
type SubmitResponse struct {
	Request  RequestDTO   `json:"request"`
	Balance  BalanceDTO   `json:"balance"`
	Warnings []WarningDTO `json:"warnings"`
}

func toSubmitResponse(res *leave.SubmitResult) SubmitResponse {
	warnings := make([]WarningDTO, len(res.Warnings))
	for i, w := range res.Warnings {
		warnings[i] = WarningDTO{Code: w.Code, Message: w.Message}
	}
	return SubmitResponse{
		Request:  toRequestDTO(res.Request),
		Balance:  toBalanceDTO(res.Balance),
		Warnings: warnings,
	}
}

// ApproveRequestRequest identifies the approver.
type ApproveRequestRequest struct {
	ApproverID string `json:"approver_id"`
	Comment    string `json:"comment,omitempty"`
}

// RejectRequestRequest identifies the approver and carries the mandatory reason.
type RejectRequestRequest struct {
	ApproverID string `json:"approver_id"`
	Reason     string `json:"reason"`
}

// CancelRequestRequest identifies the acting employee.
type CancelRequestRequest struct {
	EmployeeID string `json:"employee_id"`
}

// =============================================================================
// OVERVIEW, OVERLAP, CALENDAR
// =============================================================================

// OverviewDTO aggregates an employee dashboard.
type OverviewDTO struct {
	EmployeeID     string       `json:"employee_id"`
	Year           int          `json:"year"`
	Balances       []BalanceDTO `json:"balances"`
	RecentRequests []RequestDTO `json:"recent_requests"`
	UpcomingLeave  []RequestDTO `json:"upcoming_leave"`
}

// OverlapDTO reports who else is on approved leave in a range.
type OverlapDTO struct {
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Count       int      `json:"count"`
	EmployeeIDs []string `json:"employee_ids"`
}

// =============================================================================
// ADMINISTRATION
// =============================================================================

// GrantRequest credits days to a balance.
type GrantRequest struct {
	EmployeeID  string  `json:"employee_id"`
	LeaveTypeID string  `json:"leave_type_id"`
	Year        int     `json:"year"`
	Days        float64 `json:"days"`
	Carryover   bool    `json:"carryover,omitempty"`
	ActorID     string  `json:"actor_id"`
}

// AuditEntryDTO is one audit log record.
type AuditEntryDTO struct {
	ID          string `json:"id"`
	At          string `json:"at"`
	ActorID     string `json:"actor_id"`
	Action      string `json:"action"`
	EmployeeID  string `json:"employee_id,omitempty"`
	LeaveTypeID string `json:"leave_type_id,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
	Details     string `json:"details,omitempty"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ID string `json:"id"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
