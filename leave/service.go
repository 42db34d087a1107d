/*
service.go - Request lifecycle state machine

PURPOSE:
  The Service owns the request state machine and the atomic balance
  adjustments tied to each transition. It is the only component permitted
  to mutate the ledger.

STATE MACHINE:
  pending -> approved   (Commit: pending days become used days)
  pending -> rejected   (Release: pending days return to remaining)
  pending -> cancelled  (Release)

  approved, rejected and cancelled are terminal. Any transition attempted
  from a terminal state fails with InvalidTransitionError and performs no
  mutation.

ATOMICITY:
  A submission either produces a pending request with a matching ledger
  reservation, or neither exists: the reservation happens first, and a
  failed persist releases it. Transitions claim the request row with a
  status-guarded write before touching the ledger, so a retried transition
  is rejected rather than double-applied; a ledger failure after the claim
  reverts the claim.

RETRY:
  When the ledger exhausts its version-guard retries during submission,
  the whole submission (validation included) is retried once against the
  fresh balance before ErrConcurrentUpdate reaches the caller.

SEE ALSO:
  - ledger.go: Reserve/Commit/Release
  - validate.go: the rules applied before acceptance
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Requests  RequestStore
	Ledger    *Ledger
	Validator *Validator

	// Holidays feeds the chargeable-day calculation. Defaults to none.
	Holidays HolidayCalendar

	// Audit is optional; nil disables audit recording.
	Audit AuditLog

	Notifier Notifier
	Logger   *zap.Logger

	// Now and Today are injectable for tests.
	Now   func() time.Time
	Today func() Date
}

func NewService(requests RequestStore, ledger *Ledger, validator *Validator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Requests:  requests,
		Ledger:    ledger,
		Validator: validator,
		Holidays:  NoHolidays(),
		Notifier:  NopNotifier{},
		Logger:    logger,
		Now:       time.Now,
		Today:     Today,
	}
}

// =============================================================================
// SUBMISSION
// =============================================================================

type SubmitInput struct {
	EmployeeID       EmployeeID
	LeaveTypeID      LeaveTypeID
	StartDate        Date
	EndDate          Date
	IsHalfDayStart   bool
	IsHalfDayEnd     bool
	Reason           string
	EmergencyContact string
}

// SubmitResult carries the accepted request, the authoritative post-reserve
// balance, and any soft-rule warnings.
type SubmitResult struct {
	Request  *LeaveRequest
	Balance  *BalanceSnapshot
	Warnings []Violation
}

// Submit runs the full submission flow: day count, eligibility, atomic
// reserve-and-create. A fatal validation error aborts with no ledger
// mutation. A reserve that loses its version-guard retries is re-run once
// from validation before the error surfaces.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	rng, err := NewDateRange(in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}
	days := ChargeableDays(rng, in.IsHalfDayStart, in.IsHalfDayEnd, s.Holidays)

	res, err := s.submitOnce(ctx, in, rng, days)
	if errors.Is(err, ErrConcurrentUpdate) {
		s.Logger.Warn("submission lost balance race, retrying once",
			zap.String("employee_id", string(in.EmployeeID)),
			zap.String("leave_type_id", string(in.LeaveTypeID)))
		res, err = s.submitOnce(ctx, in, rng, days)
	}
	return res, err
}

func (s *Service) submitOnce(ctx context.Context, in SubmitInput, rng DateRange, days decimal.Decimal) (*SubmitResult, error) {
	warnings, err := s.Validator.Validate(ctx, Candidate{
		EmployeeID:  in.EmployeeID,
		LeaveTypeID: in.LeaveTypeID,
		Range:       rng,
		Days:        days,
	})
	if err != nil {
		return nil, err
	}

	key := BalanceKey{EmployeeID: in.EmployeeID, LeaveTypeID: in.LeaveTypeID, Year: rng.Start.Year()}
	snap, err := s.Ledger.Reserve(ctx, key, days)
	if err != nil {
		return nil, err
	}

	req := &LeaveRequest{
		ID:               RequestID(uuid.NewString()),
		EmployeeID:       in.EmployeeID,
		LeaveTypeID:      in.LeaveTypeID,
		StartDate:        rng.Start,
		EndDate:          rng.End,
		IsHalfDayStart:   in.IsHalfDayStart,
		IsHalfDayEnd:     in.IsHalfDayEnd,
		ChargeableDays:   days,
		Reason:           in.Reason,
		EmergencyContact: in.EmergencyContact,
		Status:           StatusPending,
		RequestDate:      s.Now(),
	}
	if err := s.Requests.CreateRequest(ctx, req); err != nil {
		// Undo the reservation so no orphaned pending days remain.
		if _, relErr := s.Ledger.Release(ctx, key, days); relErr != nil {
			s.Logger.Error("failed to release reservation after persist failure",
				zap.String("request_id", string(req.ID)), zap.Error(relErr))
		}
		return nil, err
	}

	s.recordAudit(ctx, AuditRequestSubmitted, string(in.EmployeeID), req,
		fmt.Sprintf("%s days over %s", days, rng))
	s.Notifier.Notify(ctx, AuditRequestSubmitted, req)
	s.Logger.Info("leave request submitted",
		zap.String("request_id", string(req.ID)),
		zap.String("employee_id", string(in.EmployeeID)),
		zap.String("days", days.String()),
		zap.Int("warnings", len(warnings)))

	return &SubmitResult{Request: req, Balance: snap, Warnings: warnings}, nil
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Approve moves a pending request to approved and commits its reserved days.
// Authorization is assumed enforced by the caller; the approver is only
// checked for existence.
func (s *Service) Approve(ctx context.Context, id RequestID, approverID EmployeeID, comment string) (*LeaveRequest, error) {
	req, err := s.Requests.Request(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireEmployee(ctx, approverID, "approver"); err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, &InvalidTransitionError{RequestID: id, From: req.Status, To: StatusApproved}
	}

	now := s.Now()
	approver := approverID
	updated := *req
	updated.Status = StatusApproved
	updated.ApproverID = &approver
	updated.ApprovalDate = &now
	updated.ApprovalComment = comment

	if err := s.claim(ctx, &updated, req, StatusApproved); err != nil {
		return nil, err
	}
	if _, err := s.Ledger.Commit(ctx, updated.BalanceKey(), updated.ChargeableDays); err != nil {
		s.revertClaim(ctx, req, StatusApproved)
		return nil, err
	}

	s.recordAudit(ctx, AuditRequestApproved, string(approverID), &updated, comment)
	s.Notifier.Notify(ctx, AuditRequestApproved, &updated)
	s.Logger.Info("leave request approved",
		zap.String("request_id", string(id)),
		zap.String("approver_id", string(approverID)))
	return &updated, nil
}

// Reject moves a pending request to rejected and releases its reserved days.
// The reason is mandatory; a blank reason fails before any mutation.
func (s *Service) Reject(ctx context.Context, id RequestID, approverID EmployeeID, reason string) (*LeaveRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrMissingReason
	}
	req, err := s.Requests.Request(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireEmployee(ctx, approverID, "approver"); err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, &InvalidTransitionError{RequestID: id, From: req.Status, To: StatusRejected}
	}

	now := s.Now()
	approver := approverID
	updated := *req
	updated.Status = StatusRejected
	updated.ApproverID = &approver
	updated.ApprovalDate = &now
	updated.RejectionReason = reason

	if err := s.claim(ctx, &updated, req, StatusRejected); err != nil {
		return nil, err
	}
	if _, err := s.Ledger.Release(ctx, updated.BalanceKey(), updated.ChargeableDays); err != nil {
		s.revertClaim(ctx, req, StatusRejected)
		return nil, err
	}

	s.recordAudit(ctx, AuditRequestRejected, string(approverID), &updated, reason)
	s.Notifier.Notify(ctx, AuditRequestRejected, &updated)
	s.Logger.Info("leave request rejected",
		zap.String("request_id", string(id)),
		zap.String("approver_id", string(approverID)))
	return &updated, nil
}

// Cancel moves a pending request to cancelled and releases its reserved
// days. Only the owning employee may cancel, and only while pending;
// revoking approved leave is a separate, unimplemented operation.
func (s *Service) Cancel(ctx context.Context, id RequestID, actingEmployeeID EmployeeID) (*LeaveRequest, error) {
	req, err := s.Requests.Request(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.EmployeeID != actingEmployeeID {
		return nil, fmt.Errorf("request %s: %w", id, ErrNotOwner)
	}
	if req.Status != StatusPending {
		return nil, &InvalidTransitionError{RequestID: id, From: req.Status, To: StatusCancelled}
	}

	updated := *req
	updated.Status = StatusCancelled

	if err := s.claim(ctx, &updated, req, StatusCancelled); err != nil {
		return nil, err
	}
	if _, err := s.Ledger.Release(ctx, updated.BalanceKey(), updated.ChargeableDays); err != nil {
		s.revertClaim(ctx, req, StatusCancelled)
		return nil, err
	}

	s.recordAudit(ctx, AuditRequestCancelled, string(actingEmployeeID), &updated, "")
	s.Notifier.Notify(ctx, AuditRequestCancelled, &updated)
	s.Logger.Info("leave request cancelled",
		zap.String("request_id", string(id)),
		zap.String("employee_id", string(actingEmployeeID)))
	return &updated, nil
}

// claim performs the status-guarded write that makes a transition
// single-shot. A lost guard is reported as InvalidTransitionError against
// the current stored status.
func (s *Service) claim(ctx context.Context, updated, prev *LeaveRequest, to RequestStatus) error {
	err := s.Requests.UpdateRequest(ctx, updated, StatusPending)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStatusConflict) {
		from := prev.Status
		if cur, rerr := s.Requests.Request(ctx, prev.ID); rerr == nil {
			from = cur.Status
		}
		return &InvalidTransitionError{RequestID: prev.ID, From: from, To: to}
	}
	return err
}

// revertClaim restores the pending row after a ledger failure so the
// reserved days are not stranded in a terminal request.
func (s *Service) revertClaim(ctx context.Context, prev *LeaveRequest, from RequestStatus) {
	restore := *prev
	if err := s.Requests.UpdateRequest(ctx, &restore, from); err != nil {
		s.Logger.Error("failed to revert request claim",
			zap.String("request_id", string(prev.ID)), zap.Error(err))
	}
}

// =============================================================================
// UPDATE (pending requests only)
// =============================================================================

type UpdateInput struct {
	RequestID        RequestID
	ActingEmployeeID EmployeeID
	LeaveTypeID      LeaveTypeID
	StartDate        Date
	EndDate          Date
	IsHalfDayStart   bool
	IsHalfDayEnd     bool
	Reason           string
	EmergencyContact string
}

// Update rewrites a pending request in place: the old reservation is
// released, the new candidate validated against the freed balance, and the
// new days reserved. Any failure restores the original reservation.
func (s *Service) Update(ctx context.Context, in UpdateInput) (*SubmitResult, error) {
	req, err := s.Requests.Request(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if req.EmployeeID != in.ActingEmployeeID {
		return nil, fmt.Errorf("request %s: %w", in.RequestID, ErrNotOwner)
	}
	if req.Status != StatusPending {
		return nil, &InvalidTransitionError{RequestID: in.RequestID, From: req.Status, To: StatusPending}
	}

	rng, err := NewDateRange(in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}
	days := ChargeableDays(rng, in.IsHalfDayStart, in.IsHalfDayEnd, s.Holidays)

	oldKey, oldDays := req.BalanceKey(), req.ChargeableDays
	newKey := BalanceKey{EmployeeID: req.EmployeeID, LeaveTypeID: in.LeaveTypeID, Year: rng.Start.Year()}

	// Free the old reservation first so validation sees the true remainder.
	if _, err := s.Ledger.Release(ctx, oldKey, oldDays); err != nil {
		return nil, err
	}

	warnings, err := s.Validator.Validate(ctx, Candidate{
		EmployeeID:     req.EmployeeID,
		LeaveTypeID:    in.LeaveTypeID,
		Range:          rng,
		Days:           days,
		ExcludeRequest: req.ID,
	})
	if err != nil {
		s.restoreReservation(ctx, oldKey, oldDays, req.ID)
		return nil, err
	}

	snap, err := s.Ledger.Reserve(ctx, newKey, days)
	if err != nil {
		s.restoreReservation(ctx, oldKey, oldDays, req.ID)
		return nil, err
	}

	updated := *req
	updated.LeaveTypeID = in.LeaveTypeID
	updated.StartDate = rng.Start
	updated.EndDate = rng.End
	updated.IsHalfDayStart = in.IsHalfDayStart
	updated.IsHalfDayEnd = in.IsHalfDayEnd
	updated.ChargeableDays = days
	updated.Reason = in.Reason
	updated.EmergencyContact = in.EmergencyContact

	if err := s.Requests.UpdateRequest(ctx, &updated, StatusPending); err != nil {
		if _, relErr := s.Ledger.Release(ctx, newKey, days); relErr != nil {
			s.Logger.Error("failed to release replacement reservation",
				zap.String("request_id", string(req.ID)), zap.Error(relErr))
		}
		s.restoreReservation(ctx, oldKey, oldDays, req.ID)
		if errors.Is(err, ErrStatusConflict) {
			return nil, &InvalidTransitionError{RequestID: req.ID, From: req.Status, To: StatusPending}
		}
		return nil, err
	}

	s.recordAudit(ctx, AuditRequestUpdated, string(in.ActingEmployeeID), &updated,
		fmt.Sprintf("%s days over %s", days, rng))
	s.Notifier.Notify(ctx, AuditRequestUpdated, &updated)
	return &SubmitResult{Request: &updated, Balance: snap, Warnings: warnings}, nil
}

func (s *Service) restoreReservation(ctx context.Context, key BalanceKey, days decimal.Decimal, id RequestID) {
	if _, err := s.Ledger.Reserve(ctx, key, days); err != nil {
		s.Logger.Error("failed to restore reservation after update failure",
			zap.String("request_id", string(id)), zap.Error(err))
	}
}

// =============================================================================
// READ MODELS
// =============================================================================

// Request returns a single request by ID.
func (s *Service) Request(ctx context.Context, id RequestID) (*LeaveRequest, error) {
	return s.Requests.Request(ctx, id)
}

// ListRequests returns requests matching the filter.
func (s *Service) ListRequests(ctx context.Context, f RequestFilter) ([]*LeaveRequest, error) {
	return s.Requests.ListRequests(ctx, f)
}

// PendingRequests returns the approval queue.
func (s *Service) PendingRequests(ctx context.Context) ([]*LeaveRequest, error) {
	pending := StatusPending
	return s.Requests.ListRequests(ctx, RequestFilter{Status: &pending})
}

// Balance returns the balance snapshot for one key, creating the balance
// lazily if it does not exist yet.
func (s *Service) Balance(ctx context.Context, employeeID EmployeeID, typeID LeaveTypeID, year int) (*BalanceSnapshot, error) {
	if err := s.requireEmployee(ctx, employeeID, "employee"); err != nil {
		return nil, err
	}
	b, err := s.Ledger.Balance(ctx, BalanceKey{EmployeeID: employeeID, LeaveTypeID: typeID, Year: year})
	if err != nil {
		return nil, err
	}
	return b.Snapshot(), nil
}

// EmployeeBalances returns one snapshot per active leave type for the year,
// initializing missing balances the way first use would.
func (s *Service) EmployeeBalances(ctx context.Context, employeeID EmployeeID, year int) ([]*BalanceSnapshot, error) {
	if err := s.requireEmployee(ctx, employeeID, "employee"); err != nil {
		return nil, err
	}
	types, err := s.Validator.Catalog.ActiveTypes(ctx)
	if err != nil {
		return nil, err
	}
	snapshots := make([]*BalanceSnapshot, 0, len(types))
	for _, lt := range types {
		b, err := s.Ledger.Balance(ctx, BalanceKey{EmployeeID: employeeID, LeaveTypeID: lt.ID, Year: year})
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, b.Snapshot())
	}
	return snapshots, nil
}

// CheckOverlap exposes the advisory overlap query.
func (s *Service) CheckOverlap(ctx context.Context, start, end Date, exclude EmployeeID) (OverlapReport, error) {
	rng, err := NewDateRange(start, end)
	if err != nil {
		return OverlapReport{}, err
	}
	return s.Validator.Overlap.Check(ctx, rng, exclude), nil
}

// EmployeeOverview aggregates what a dashboard needs in one call.
type EmployeeOverview struct {
	EmployeeID     EmployeeID
	Year           int
	Balances       []*BalanceSnapshot
	RecentRequests []*LeaveRequest
	UpcomingLeave  []*LeaveRequest
}

const recentRequestLimit = 10

// Overview returns current-year balances, the employee's recent requests
// and their upcoming approved leave.
func (s *Service) Overview(ctx context.Context, employeeID EmployeeID) (*EmployeeOverview, error) {
	today := s.Today()
	year := today.Year()

	balances, err := s.EmployeeBalances(ctx, employeeID, year)
	if err != nil {
		return nil, err
	}

	all, err := s.Requests.ListRequests(ctx, RequestFilter{EmployeeID: &employeeID})
	if err != nil {
		return nil, err
	}

	recent := all
	if len(recent) > recentRequestLimit {
		recent = recent[:recentRequestLimit]
	}

	var upcoming []*LeaveRequest
	for _, r := range all {
		if r.Status == StatusApproved && r.StartDate.AfterOrEqual(today) {
			upcoming = append(upcoming, r)
		}
	}

	return &EmployeeOverview{
		EmployeeID:     employeeID,
		Year:           year,
		Balances:       balances,
		RecentRequests: recent,
		UpcomingLeave:  upcoming,
	}, nil
}

// ApprovedLeaveInRange returns approved requests intersecting the range,
// for calendar rendering.
func (s *Service) ApprovedLeaveInRange(ctx context.Context, rng DateRange) ([]*LeaveRequest, error) {
	return s.Requests.OverlappingRequests(ctx, rng, []RequestStatus{StatusApproved}, "")
}

// ApprovedLeaveByMonth returns approved requests intersecting a calendar
// month.
func (s *Service) ApprovedLeaveByMonth(ctx context.Context, year int, month time.Month) ([]*LeaveRequest, error) {
	start := NewDate(year, month, 1)
	end := start.Time.AddDate(0, 1, -1)
	return s.ApprovedLeaveInRange(ctx, DateRange{Start: start, End: DateOf(end)})
}

// =============================================================================
// ADMINISTRATION
// =============================================================================

// GrantDays credits days to a balance, as a carryover or an entitlement
// adjustment, and records who did it.
func (s *Service) GrantDays(ctx context.Context, key BalanceKey, days decimal.Decimal, carryover bool, actorID string) (*BalanceSnapshot, error) {
	snap, err := s.Ledger.Grant(ctx, key, days, carryover)
	if err != nil {
		return nil, err
	}

	action := AuditBalanceGranted
	if carryover {
		action = AuditYearEndCarryover
	}
	s.recordAudit(ctx, action, actorID, &LeaveRequest{
		EmployeeID:  key.EmployeeID,
		LeaveTypeID: key.LeaveTypeID,
	}, fmt.Sprintf("+%s days (year %d)", days, key.Year))
	return snap, nil
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

func (s *Service) requireEmployee(ctx context.Context, id EmployeeID, role string) error {
	ok, err := s.Validator.Directory.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s %s: %w", role, id, ErrEmployeeNotFound)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action AuditAction, actorID string, r *LeaveRequest, details string) {
	if s.Audit == nil {
		return
	}
	entry := AuditEntry{
		ID:          uuid.NewString(),
		At:          s.Now(),
		ActorID:     actorID,
		Action:      action,
		EmployeeID:  r.EmployeeID,
		LeaveTypeID: r.LeaveTypeID,
		RequestID:   r.ID,
		Details:     details,
	}
	if err := s.Audit.AppendAudit(ctx, entry); err != nil {
		s.Logger.Warn("failed to record audit entry",
			zap.String("action", string(action)), zap.Error(err))
	}
}
