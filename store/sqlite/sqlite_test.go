package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEmployeeDirectory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// GIVEN a saved employee
	require.NoError(t, s.SaveEmployee(ctx, Employee{
		ID:       "alice",
		Name:     "Alice Martin",
		Email:    "alice@example.com",
		HireDate: time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC),
	}))

	// THEN existence checks and reads work
	ok, err := s.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	e, err := s.Employee(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice Martin", e.Name)
	assert.Equal(t, 2020, e.HireDate.Year())

	_, err = s.Employee(ctx, "ghost")
	assert.ErrorIs(t, err, leave.ErrEmployeeNotFound)
}

func TestLeaveTypeCatalog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	maxDays := 25
	notice := 14
	require.NoError(t, s.SaveLeaveType(ctx, &leave.LeaveType{
		ID:                "annual",
		Name:              "Annual Leave",
		IsPaid:            true,
		MaxDaysPerYear:    &maxDays,
		AdvanceNoticeDays: &notice,
		RequiresApproval:  true,
		IsActive:          true,
	}))
	require.NoError(t, s.SaveLeaveType(ctx, &leave.LeaveType{
		ID: "legacy", Name: "Legacy", IsActive: false,
	}))

	// Optional fields survive the round trip.
	lt, err := s.Type(ctx, "annual")
	require.NoError(t, err)
	require.NotNil(t, lt.MaxDaysPerYear)
	assert.Equal(t, 25, *lt.MaxDaysPerYear)
	require.NotNil(t, lt.AdvanceNoticeDays)
	assert.Equal(t, 14, *lt.AdvanceNoticeDays)
	assert.Nil(t, lt.MaxConcurrentRequests)

	_, err = s.Type(ctx, "nope")
	assert.ErrorIs(t, err, leave.ErrTypeNotFound)

	// ActiveTypes filters the inactive entry, ListLeaveTypes keeps it.
	active, err := s.ActiveTypes(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, leave.LeaveTypeID("annual"), active[0].ID)

	all, err := s.ListLeaveTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestBalanceVersionCAS(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := leave.BalanceKey{EmployeeID: "alice", LeaveTypeID: "annual", Year: 2024}

	_, err := s.Balance(ctx, key)
	assert.ErrorIs(t, err, leave.ErrBalanceNotFound)

	// GIVEN a created balance at version 1
	b := &leave.LeaveBalance{
		EmployeeID:        "alice",
		LeaveTypeID:       "annual",
		Year:              2024,
		AnnualEntitlement: decimal.NewFromInt(25),
		CarriedOverDays:   decimal.NewFromFloat(2.5),
		UsedDays:          decimal.Zero,
		PendingDays:       decimal.Zero,
		UpdatedAt:         time.Now(),
	}
	require.NoError(t, s.CreateBalance(ctx, b))
	assert.Equal(t, int64(1), b.Version)

	// Duplicate create loses.
	dup := *b
	assert.ErrorIs(t, s.CreateBalance(ctx, &dup), leave.ErrVersionConflict)

	// WHEN updating with the current version
	b.PendingDays = decimal.NewFromInt(3)
	require.NoError(t, s.UpdateBalance(ctx, b, 1))
	assert.Equal(t, int64(2), b.Version)

	// THEN a writer holding the stale version gets a conflict
	stale := *b
	stale.PendingDays = decimal.NewFromInt(5)
	assert.ErrorIs(t, s.UpdateBalance(ctx, &stale, 1), leave.ErrVersionConflict)

	// AND the stored row reflects only the winning write
	got, err := s.Balance(ctx, key)
	require.NoError(t, err)
	assert.True(t, got.PendingDays.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, int64(2), got.Version)
	assert.True(t, got.CarriedOverDays.Equal(decimal.NewFromFloat(2.5)))
	assert.True(t, got.Remaining().Equal(decimal.NewFromFloat(24.5)))
}

func TestBalancesByEmployeeYear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, typeID := range []leave.LeaveTypeID{"annual", "sick"} {
		require.NoError(t, s.CreateBalance(ctx, &leave.LeaveBalance{
			EmployeeID:        "alice",
			LeaveTypeID:       typeID,
			Year:              2024,
			AnnualEntitlement: decimal.NewFromInt(10),
		}))
	}
	// Different year, must not appear.
	require.NoError(t, s.CreateBalance(ctx, &leave.LeaveBalance{
		EmployeeID:        "alice",
		LeaveTypeID:       "annual",
		Year:              2023,
		AnnualEntitlement: decimal.NewFromInt(10),
	}))

	balances, err := s.Balances(ctx, "alice", 2024)
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, leave.LeaveTypeID("annual"), balances[0].LeaveTypeID)
	assert.Equal(t, leave.LeaveTypeID("sick"), balances[1].LeaveTypeID)
}

func testRequest(id leave.RequestID, employee leave.EmployeeID, start, end string, status leave.RequestStatus) *leave.LeaveRequest {
	s, _ := leave.ParseDate(start)
	e, _ := leave.ParseDate(end)
	return &leave.LeaveRequest{
		ID:             id,
		EmployeeID:     employee,
		LeaveTypeID:    "annual",
		StartDate:      s,
		EndDate:        e,
		ChargeableDays: decimal.NewFromInt(5),
		Status:         status,
		RequestDate:    time.Now(),
	}
}

func TestRequestStatusGuard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := testRequest("req-1", "alice", "2024-06-03", "2024-06-07", leave.StatusPending)
	r.Reason = "Summer break"
	require.NoError(t, s.CreateRequest(ctx, r))

	// WHEN approving from pending
	approver := leave.EmployeeID("bob")
	now := time.Now()
	approved := *r
	approved.Status = leave.StatusApproved
	approved.ApproverID = &approver
	approved.ApprovalDate = &now
	require.NoError(t, s.UpdateRequest(ctx, &approved, leave.StatusPending))

	// THEN a second transition from pending loses the race
	cancelled := *r
	cancelled.Status = leave.StatusCancelled
	assert.ErrorIs(t, s.UpdateRequest(ctx, &cancelled, leave.StatusPending), leave.ErrStatusConflict)

	// AND a missing row reports not found, not a conflict
	ghost := testRequest("ghost", "alice", "2024-06-03", "2024-06-07", leave.StatusPending)
	assert.ErrorIs(t, s.UpdateRequest(ctx, ghost, leave.StatusPending), leave.ErrRequestNotFound)

	got, err := s.Request(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, got.Status)
	require.NotNil(t, got.ApproverID)
	assert.Equal(t, approver, *got.ApproverID)
	require.NotNil(t, got.ApprovalDate)
	assert.Equal(t, "Summer break", got.Reason)
}

func TestListRequestsFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRequest(ctx, testRequest("r1", "alice", "2024-06-03", "2024-06-07", leave.StatusPending)))
	require.NoError(t, s.CreateRequest(ctx, testRequest("r2", "alice", "2024-08-12", "2024-08-16", leave.StatusApproved)))
	require.NoError(t, s.CreateRequest(ctx, testRequest("r3", "bob", "2024-06-05", "2024-06-06", leave.StatusApproved)))
	require.NoError(t, s.CreateRequest(ctx, testRequest("r4", "alice", "2023-12-27", "2023-12-29", leave.StatusApproved)))

	alice := leave.EmployeeID("alice")
	year := 2024
	approved := leave.StatusApproved

	// Employee filter, newest first.
	got, err := s.ListRequests(ctx, leave.RequestFilter{EmployeeID: &alice})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, leave.RequestID("r2"), got[0].ID)

	// Year + status filter.
	got, err = s.ListRequests(ctx, leave.RequestFilter{EmployeeID: &alice, Year: &year, Status: &approved})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, leave.RequestID("r2"), got[0].ID)
}

func TestOverlappingRequests(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRequest(ctx, testRequest("r1", "alice", "2024-06-03", "2024-06-07", leave.StatusApproved)))
	require.NoError(t, s.CreateRequest(ctx, testRequest("r2", "bob", "2024-06-06", "2024-06-10", leave.StatusPending)))
	require.NoError(t, s.CreateRequest(ctx, testRequest("r3", "carol", "2024-07-01", "2024-07-05", leave.StatusApproved)))
	require.NoError(t, s.CreateRequest(ctx, testRequest("r4", "dave", "2024-06-05", "2024-06-05", leave.StatusRejected)))

	rng, err := leave.NewDateRange(mustDate("2024-06-05"), mustDate("2024-06-12"))
	require.NoError(t, err)

	// Approved-only scan skips pending and rejected rows.
	got, err := s.OverlappingRequests(ctx, rng, []leave.RequestStatus{leave.StatusApproved}, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, leave.RequestID("r1"), got[0].ID)

	// Pending included, with an exclusion.
	got, err = s.OverlappingRequests(ctx, rng,
		[]leave.RequestStatus{leave.StatusApproved, leave.StatusPending}, "r1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, leave.RequestID("r2"), got[0].ID)

	// No statuses, no scan.
	got, err = s.OverlappingRequests(ctx, rng, nil, "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAuditLogAppendAndFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	entries := []leave.AuditEntry{
		{ID: "a1", At: base, ActorID: "alice", Action: leave.AuditRequestSubmitted, EmployeeID: "alice", RequestID: "r1"},
		{ID: "a2", At: base.Add(time.Hour), ActorID: "bob", Action: leave.AuditRequestApproved, EmployeeID: "alice", RequestID: "r1"},
		{ID: "a3", At: base.Add(2 * time.Hour), ActorID: "carol", Action: leave.AuditRequestSubmitted, EmployeeID: "carol", RequestID: "r2"},
	}
	for _, e := range entries {
		require.NoError(t, s.AppendAudit(ctx, e))
	}

	alice := leave.EmployeeID("alice")
	got, err := s.AuditEntries(ctx, leave.AuditFilter{EmployeeID: &alice})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[0].ID, "chronological order")

	got, err = s.AuditEntries(ctx, leave.AuditFilter{Actions: []leave.AuditAction{leave.AuditRequestApproved}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a2", got[0].ID)
}

func mustDate(s string) leave.Date {
	d, err := leave.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
