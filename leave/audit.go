package leave

import (
	"context"
	"time"
)

// =============================================================================
// AUDIT LOG - Append-only record of who did what when
// =============================================================================

type AuditAction string

const (
	AuditRequestSubmitted AuditAction = "request_submitted"
	AuditRequestApproved  AuditAction = "request_approved"
	AuditRequestRejected  AuditAction = "request_rejected"
	AuditRequestCancelled AuditAction = "request_cancelled"
	AuditRequestUpdated   AuditAction = "request_updated"
	AuditBalanceGranted   AuditAction = "balance_granted"
	AuditYearEndCarryover AuditAction = "year_end_carryover"
)

// AuditEntry records a single action against a request or balance.
type AuditEntry struct {
	ID          string
	At          time.Time
	ActorID     string
	Action      AuditAction
	EmployeeID  EmployeeID
	LeaveTypeID LeaveTypeID
	RequestID   RequestID
	Details     string
}

// AuditFilter narrows Entries. Nil fields match everything.
type AuditFilter struct {
	EmployeeID *EmployeeID
	RequestID  *RequestID
	Actions    []AuditAction
}

// AuditLog stores audit entries. Append-only: no update, no delete.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	AuditEntries(ctx context.Context, f AuditFilter) ([]AuditEntry, error)
}
