/*
errors.go - Centralized error types for the leave engine

PURPOSE:
  All error kinds in one place. Callers discriminate with errors.Is/As;
  the HTTP layer maps them to status codes via the helper predicates.

ERROR CATEGORIES:
  1. Input errors     - invalid range, missing reason, inactive type
  2. Ledger errors    - insufficient balance, version conflicts
  3. Lifecycle errors - invalid transitions, ownership
  4. Lookup errors    - unknown request/employee/type/balance

RETRY SEMANTICS:
  ErrConcurrentUpdate is the only error a caller may retry with no
  semantic change: the operation has provably not applied. Everything
  else requires caller-level correction.
*/
package leave

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRange is returned when a request's start date is after its
	// end date.
	ErrInvalidRange = errors.New("invalid range: start date after end date")

	// ErrNoChargeableDays is returned when a range resolves to zero
	// chargeable days (weekend-only span). Requests must charge something.
	ErrNoChargeableDays = errors.New("no chargeable days in range")

	// ErrInactiveType is returned when targeting a deactivated leave type.
	ErrInactiveType = errors.New("leave type is not active")

	// ErrInsufficientBalance is returned when a reservation would overdraw
	// the balance. Wrapped by InsufficientBalanceError.
	ErrInsufficientBalance = errors.New("insufficient leave balance")

	// ErrMissingReason is returned when rejecting without a reason.
	ErrMissingReason = errors.New("rejection reason is required")

	// ErrInvalidTransition is returned for any transition attempted from a
	// terminal state. Wrapped by InvalidTransitionError.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConcurrentUpdate is returned when the bounded retry count for a
	// version-guarded write is exhausted. Safe to retry by the caller.
	ErrConcurrentUpdate = errors.New("concurrent update retries exhausted")

	// ErrVersionConflict is returned by stores when a write's expected
	// version does not match the stored version. The ledger retries it;
	// it should not normally escape to callers.
	ErrVersionConflict = errors.New("balance version conflict")

	// ErrStatusConflict is returned by stores when a guarded request write
	// finds the request no longer in the expected status.
	ErrStatusConflict = errors.New("request status changed concurrently")

	// ErrOverlappingLeave is returned when a request intersects the
	// employee's own pending or approved leave.
	ErrOverlappingLeave = errors.New("request overlaps existing leave")

	// ErrConcurrencyCapReached is returned when the leave type's cap on
	// overlapping requests across employees is already met.
	ErrConcurrencyCapReached = errors.New("concurrent request cap reached for leave type")

	// ErrNotOwner is returned when an employee acts on a request that
	// belongs to someone else.
	ErrNotOwner = errors.New("request belongs to another employee")

	ErrRequestNotFound  = errors.New("leave request not found")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrTypeNotFound     = errors.New("leave type not found")
	ErrBalanceNotFound  = errors.New("leave balance not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports a balance shortage, evaluated against the
// current balance version at the time of the attempted write.
type InsufficientBalanceError struct {
	Key       BalanceKey
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s/%s/%d: available %s, requested %s",
		e.Key.EmployeeID, e.Key.LeaveTypeID, e.Key.Year, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// Shortfall returns how many days short the balance is.
func (e *InsufficientBalanceError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

// InvalidTransitionError reports a transition attempted from a state that
// does not permit it.
type InvalidTransitionError struct {
	RequestID RequestID
	From      RequestStatus
	To        RequestStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("request %s: cannot transition %s -> %s", e.RequestID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentUpdate)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrNoChargeableDays) ||
		errors.Is(err, ErrInactiveType) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrMissingReason) ||
		errors.Is(err, ErrOverlappingLeave) ||
		errors.Is(err, ErrConcurrencyCapReached) ||
		errors.Is(err, ErrNotOwner)
}

// IsConflict returns true if the error indicates a state conflict (invalid
// transition or retry exhaustion) rather than bad input.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrConcurrentUpdate)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrTypeNotFound) ||
		errors.Is(err, ErrBalanceNotFound)
}
