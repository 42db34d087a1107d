/*
Package leave implements the leave entitlement and request lifecycle engine.

PURPOSE:
  Converts a requested date range into a chargeable working-day count,
  validates that count against a mutable per-employee balance, and carries
  each request through an approval state machine. Concurrent submissions
  can never overdraw a balance; a cancelled or rejected request is never
  double-counted.

KEY CONCEPTS IN THIS FILE (types.go):
  - LeaveType: catalog entry supplying eligibility rules (read-only here)
  - LeaveBalance: per (employee, type, year) aggregate with a version counter
  - LeaveRequest: the lifecycle entity (pending -> approved/rejected/cancelled)
  - Catalog / Directory: external collaborator interfaces

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for all day counts; never float64 in state
  2. Type safety: string-typed IDs prevent mixing employee/type/request IDs
  3. Derived invariants: remaining days is computed, never stored separately
  4. Optimistic concurrency: every balance carries a monotonic version

SEE ALSO:
  - calendar.go: date types and the chargeable-day calculation
  - ledger.go: reserve/commit/release with version-guarded writes
  - service.go: the lifecycle state machine
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type LeaveTypeID string
type RequestID string

// =============================================================================
// LEAVE TYPE - Catalog entry (immutable from the engine's view)
// =============================================================================

// LeaveType is an entry in the leave type catalog. The engine treats the
// catalog as read-only: types are created and edited elsewhere, the engine
// only consults them when validating requests.
type LeaveType struct {
	ID          LeaveTypeID
	Name        string
	Description string
	IsPaid      bool

	// MaxDaysPerYear seeds the annual entitlement of lazily created
	// balances. Nil means the organization default applies.
	MaxDaysPerYear *int

	// AdvanceNoticeDays, when set, drives the advance-notice warning.
	AdvanceNoticeDays *int

	// MaxConcurrentRequests caps how many employees may hold overlapping
	// pending/approved requests of this type. Nil or <= 0 means unlimited.
	MaxConcurrentRequests *int

	RequiresApproval bool
	Color            string // calendar display hint, e.g. "#2563eb"
	IsActive         bool
}

// ConcurrencyCap returns the effective cap, or 0 when unlimited.
func (t *LeaveType) ConcurrencyCap() int {
	if t.MaxConcurrentRequests == nil || *t.MaxConcurrentRequests <= 0 {
		return 0
	}
	return *t.MaxConcurrentRequests
}

// Catalog supplies leave type definitions. Read-only collaborator.
type Catalog interface {
	// Type returns the leave type, or ErrTypeNotFound.
	Type(ctx context.Context, id LeaveTypeID) (*LeaveType, error)

	// ActiveTypes returns all currently active leave types.
	ActiveTypes(ctx context.Context) ([]*LeaveType, error)
}

// Directory answers employee existence checks. Read-only collaborator.
type Directory interface {
	Exists(ctx context.Context, id EmployeeID) (bool, error)
}

// =============================================================================
// LEAVE BALANCE - The sole mutable shared state
// =============================================================================

// BalanceKey identifies a balance. Operations on different keys never contend.
type BalanceKey struct {
	EmployeeID  EmployeeID
	LeaveTypeID LeaveTypeID
	Year        int
}

func (k BalanceKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.EmployeeID, k.LeaveTypeID, k.Year)
}

// LeaveBalance tracks entitlement consumption for one employee, leave type
// and year. Created lazily on first reference, never deleted.
//
// INVARIANT: Remaining() == AnnualEntitlement + CarriedOverDays - UsedDays
// - PendingDays, and is never negative for a balance the ledger has written.
type LeaveBalance struct {
	EmployeeID  EmployeeID
	LeaveTypeID LeaveTypeID
	Year        int

	AnnualEntitlement decimal.Decimal
	CarriedOverDays   decimal.Decimal
	UsedDays          decimal.Decimal
	PendingDays       decimal.Decimal

	// Version increments on every write. Writers must present the version
	// they read; a mismatch forces a re-read and retry.
	Version   int64
	UpdatedAt time.Time
}

func (b *LeaveBalance) Key() BalanceKey {
	return BalanceKey{EmployeeID: b.EmployeeID, LeaveTypeID: b.LeaveTypeID, Year: b.Year}
}

// Entitlement is the total grantable amount for the year.
func (b *LeaveBalance) Entitlement() decimal.Decimal {
	return b.AnnualEntitlement.Add(b.CarriedOverDays)
}

// Remaining is derived, never stored, so the balance identity holds by
// construction.
func (b *LeaveBalance) Remaining() decimal.Decimal {
	return b.Entitlement().Sub(b.UsedDays).Sub(b.PendingDays)
}

// Snapshot returns an immutable view with the derived remaining included.
func (b *LeaveBalance) Snapshot() *BalanceSnapshot {
	return &BalanceSnapshot{
		EmployeeID:        b.EmployeeID,
		LeaveTypeID:       b.LeaveTypeID,
		Year:              b.Year,
		AnnualEntitlement: b.AnnualEntitlement,
		CarriedOverDays:   b.CarriedOverDays,
		UsedDays:          b.UsedDays,
		PendingDays:       b.PendingDays,
		RemainingDays:     b.Remaining(),
		Version:           b.Version,
	}
}

// BalanceSnapshot is the authoritative post-mutation view returned to
// callers. No re-read is required after a ledger operation.
type BalanceSnapshot struct {
	EmployeeID        EmployeeID
	LeaveTypeID       LeaveTypeID
	Year              int
	AnnualEntitlement decimal.Decimal
	CarriedOverDays   decimal.Decimal
	UsedDays          decimal.Decimal
	PendingDays       decimal.Decimal
	RemainingDays     decimal.Decimal
	Version           int64
}

// =============================================================================
// LEAVE REQUEST - Lifecycle entity
// =============================================================================

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusCancelled RequestStatus = "cancelled"
)

// Terminal reports whether no further transition is permitted.
func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// LeaveRequest is a request to consume leave days. ChargeableDays is fixed
// at submission time and never recomputed; requests are never physically
// deleted, cancellation is a status change.
type LeaveRequest struct {
	ID          RequestID
	EmployeeID  EmployeeID
	LeaveTypeID LeaveTypeID

	StartDate      Date
	EndDate        Date
	IsHalfDayStart bool
	IsHalfDayEnd   bool

	ChargeableDays   decimal.Decimal
	Reason           string
	EmergencyContact string

	Status      RequestStatus
	RequestDate time.Time

	// Set on terminal transitions only.
	ApproverID      *EmployeeID
	ApprovalDate    *time.Time
	ApprovalComment string
	RejectionReason string
}

// Range returns the inclusive date range of the request.
func (r *LeaveRequest) Range() DateRange {
	return DateRange{Start: r.StartDate, End: r.EndDate}
}

// BalanceKey returns the key of the balance this request charges. The year
// is the year of the start date, matching the balance charged at submission.
func (r *LeaveRequest) BalanceKey() BalanceKey {
	return BalanceKey{EmployeeID: r.EmployeeID, LeaveTypeID: r.LeaveTypeID, Year: r.StartDate.Year()}
}

// =============================================================================
// STORES
// =============================================================================

// BalanceStore persists balances with optimistic concurrency.
type BalanceStore interface {
	// Balance returns the stored balance, or ErrBalanceNotFound.
	Balance(ctx context.Context, key BalanceKey) (*LeaveBalance, error)

	// CreateBalance inserts a new balance at version 1. Returns
	// ErrVersionConflict if the key already exists (a concurrent creator
	// won; callers re-read).
	CreateBalance(ctx context.Context, b *LeaveBalance) error

	// UpdateBalance writes b if the stored version equals expected, and
	// bumps b.Version to expected+1. Returns ErrVersionConflict on
	// mismatch. This is the only mutation path; there are no blind writes.
	UpdateBalance(ctx context.Context, b *LeaveBalance, expected int64) error

	// Balances returns all balances for an employee and year.
	Balances(ctx context.Context, employeeID EmployeeID, year int) ([]*LeaveBalance, error)
}

// RequestFilter narrows ListRequests. Nil fields match everything.
type RequestFilter struct {
	EmployeeID *EmployeeID
	Year       *int // matches the start date's year
	Status     *RequestStatus
}

// RequestStore persists leave requests.
type RequestStore interface {
	// CreateRequest inserts a new request. The ID must be unique.
	CreateRequest(ctx context.Context, r *LeaveRequest) error

	// Request returns the request, or ErrRequestNotFound.
	Request(ctx context.Context, id RequestID) (*LeaveRequest, error)

	// UpdateRequest writes r only if the stored status equals from.
	// Returns ErrStatusConflict when the guard fails, so an already-applied
	// transition is rejected rather than double-applied.
	UpdateRequest(ctx context.Context, r *LeaveRequest, from RequestStatus) error

	// ListRequests returns requests matching the filter, most recent
	// start date first.
	ListRequests(ctx context.Context, f RequestFilter) ([]*LeaveRequest, error)

	// OverlappingRequests returns requests in any of the given statuses
	// whose date range intersects rng, excluding the given request ID
	// (zero value excludes nothing).
	OverlappingRequests(ctx context.Context, rng DateRange, statuses []RequestStatus, exclude RequestID) ([]*LeaveRequest, error)
}
