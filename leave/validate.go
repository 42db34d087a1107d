/*
validate.go - Eligibility validation for candidate requests

PURPOSE:
  Applies the eligibility rules before a submission is accepted. Rules come
  in two severities:

  HARD RULES (fatal, block submission, no ledger mutation):
    - employee must exist
    - leave type must exist and be active
    - chargeable days must be positive
    - remaining balance must cover the request
    - the range must not intersect the employee's own pending/approved leave
    - the type's concurrency cap across employees must not be met

  SOFT RULES (warnings, surfaced but never block):
    - start date inside the type's advance-notice window
    - other employees on approved leave in the same window

  Balance sufficiency is checked here for a fast, friendly failure; the
  ledger re-checks it under the version guard at reservation time, which is
  the enforcement that actually holds under concurrency.

SEE ALSO:
  - overlap.go: the advisory overlap query
  - ledger.go: the authoritative sufficiency check
*/
package leave

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// VIOLATIONS - Soft-rule warnings
// =============================================================================

// Violation codes surfaced as warnings.
const (
	WarnAdvanceNotice = "advance_notice"
	WarnOverlap       = "overlap"
)

// Violation is a non-fatal warning returned beside a successful submission.
type Violation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// =============================================================================
// CANDIDATE - What the validator inspects
// =============================================================================

// Candidate is a request as it stands before acceptance.
type Candidate struct {
	EmployeeID  EmployeeID
	LeaveTypeID LeaveTypeID
	Range       DateRange
	Days        decimal.Decimal

	// ExcludeRequest omits one request from overlap checks; set when an
	// existing pending request is being updated in place.
	ExcludeRequest RequestID
}

// =============================================================================
// VALIDATOR
// =============================================================================

type Validator struct {
	Catalog   Catalog
	Directory Directory
	Ledger    *Ledger
	Requests  RequestStore
	Overlap   *OverlapDetector

	// Today is injectable for tests.
	Today func() Date
}

func NewValidator(catalog Catalog, directory Directory, ledger *Ledger, requests RequestStore) *Validator {
	return &Validator{
		Catalog:   catalog,
		Directory: directory,
		Ledger:    ledger,
		Requests:  requests,
		Overlap:   &OverlapDetector{Requests: requests},
		Today:     Today,
	}
}

// Validate returns the soft-rule warnings for an eligible candidate, or the
// first fatal rule violation as an error. A fatal error means nothing was
// accepted and nothing was mutated.
func (v *Validator) Validate(ctx context.Context, c Candidate) ([]Violation, error) {
	ok, err := v.Directory.Exists(ctx, c.EmployeeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("employee %s: %w", c.EmployeeID, ErrEmployeeNotFound)
	}

	lt, err := v.Catalog.Type(ctx, c.LeaveTypeID)
	if err != nil {
		return nil, err
	}
	if !lt.IsActive {
		return nil, fmt.Errorf("leave type %s: %w", lt.Name, ErrInactiveType)
	}

	if !c.Days.IsPositive() {
		return nil, fmt.Errorf("%s: %w", c.Range, ErrNoChargeableDays)
	}

	key := BalanceKey{EmployeeID: c.EmployeeID, LeaveTypeID: c.LeaveTypeID, Year: c.Range.Start.Year()}
	balance, err := v.Ledger.Balance(ctx, key)
	if err != nil {
		return nil, err
	}
	if balance.Remaining().LessThan(c.Days) {
		return nil, &InsufficientBalanceError{Key: key, Available: balance.Remaining(), Requested: c.Days}
	}

	warnings := v.checkOverlapRules(ctx, c, lt)
	warnings = append(warnings, v.checkAdvanceNotice(c, lt)...)

	if err := v.checkHardOverlaps(ctx, c, lt); err != nil {
		return nil, err
	}
	return warnings, nil
}

// checkHardOverlaps enforces self-overlap and the per-type concurrency cap.
func (v *Validator) checkHardOverlaps(ctx context.Context, c Candidate, lt *LeaveType) error {
	open := []RequestStatus{StatusPending, StatusApproved}
	reqs, err := v.Requests.OverlappingRequests(ctx, c.Range, open, c.ExcludeRequest)
	if err != nil {
		return err
	}

	holders := make(map[EmployeeID]bool)
	for _, r := range reqs {
		if r.EmployeeID == c.EmployeeID {
			return fmt.Errorf("%s intersects request %s: %w", c.Range, r.ID, ErrOverlappingLeave)
		}
		if r.LeaveTypeID == c.LeaveTypeID {
			holders[r.EmployeeID] = true
		}
	}

	if limit := lt.ConcurrencyCap(); limit > 0 && len(holders) >= limit {
		return fmt.Errorf("leave type %s at %d overlapping requests: %w", lt.Name, len(holders), ErrConcurrencyCapReached)
	}
	return nil
}

func (v *Validator) checkAdvanceNotice(c Candidate, lt *LeaveType) []Violation {
	if lt.AdvanceNoticeDays == nil || *lt.AdvanceNoticeDays <= 0 {
		return nil
	}
	earliest := v.Today().AddDays(*lt.AdvanceNoticeDays)
	if c.Range.Start.Before(earliest) {
		return []Violation{{
			Code: WarnAdvanceNotice,
			Message: fmt.Sprintf("%s requires %d days notice; earliest compliant start is %s",
				lt.Name, *lt.AdvanceNoticeDays, earliest),
		}}
	}
	return nil
}

func (v *Validator) checkOverlapRules(ctx context.Context, c Candidate, lt *LeaveType) []Violation {
	report := v.Overlap.Check(ctx, c.Range, c.EmployeeID)
	if report.Count == 0 {
		return nil
	}
	return []Violation{{
		Code:    WarnOverlap,
		Message: fmt.Sprintf("%d other employee(s) on approved leave in %s", report.Count, c.Range),
	}}
}
