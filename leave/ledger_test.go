package leave_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/leave/store"
)

func annualType(maxDays int) *leave.LeaveType {
	return &leave.LeaveType{
		ID:               "annual",
		Name:             "Annual Leave",
		IsPaid:           true,
		MaxDaysPerYear:   &maxDays,
		RequiresApproval: true,
		IsActive:         true,
	}
}

func testKey() leave.BalanceKey {
	return leave.BalanceKey{EmployeeID: "alice", LeaveTypeID: "annual", Year: 2024}
}

func TestLedgerLazyCreation(t *testing.T) {
	ctx := context.Background()
	ledger := leave.NewLedger(store.NewMemory(), store.NewMemoryCatalog(annualType(25)))

	// First reference creates the balance from the catalog entitlement.
	b, err := ledger.Balance(ctx, testKey())
	require.NoError(t, err)
	assert.True(t, b.AnnualEntitlement.Equal(decimal.NewFromInt(25)))
	assert.True(t, b.Remaining().Equal(decimal.NewFromInt(25)))
	assert.Equal(t, int64(1), b.Version)
}

func TestLedgerDefaultEntitlement(t *testing.T) {
	ctx := context.Background()
	// GIVEN a type without MaxDaysPerYear
	unpaid := &leave.LeaveType{ID: "unpaid", Name: "Unpaid Leave", IsActive: true}
	ledger := leave.NewLedger(store.NewMemory(), store.NewMemoryCatalog(unpaid))

	b, err := ledger.Balance(ctx, leave.BalanceKey{EmployeeID: "alice", LeaveTypeID: "unpaid", Year: 2024})
	require.NoError(t, err)
	assert.True(t, b.AnnualEntitlement.Equal(leave.DefaultAnnualEntitlement))
}

func TestLedgerReserveCommitIdentity(t *testing.T) {
	ctx := context.Background()
	ledger := leave.NewLedger(store.NewMemory(), store.NewMemoryCatalog(annualType(25)))
	key := testKey()
	five := decimal.NewFromInt(5)

	// WHEN reserving five days
	snap, err := ledger.Reserve(ctx, key, five)
	require.NoError(t, err)
	assert.True(t, snap.PendingDays.Equal(five))
	assert.True(t, snap.RemainingDays.Equal(decimal.NewFromInt(20)))

	// AND committing them
	snap, err = ledger.Commit(ctx, key, five)
	require.NoError(t, err)
	assert.True(t, snap.PendingDays.IsZero())
	assert.True(t, snap.UsedDays.Equal(five))

	// THEN remaining = entitlement + carryover - used - pending holds
	assert.True(t, snap.RemainingDays.Equal(decimal.NewFromInt(20)))
}

func TestLedgerReleaseRestoresRemaining(t *testing.T) {
	ctx := context.Background()
	ledger := leave.NewLedger(store.NewMemory(), store.NewMemoryCatalog(annualType(25)))
	key := testKey()
	three := decimal.NewFromInt(3)

	_, err := ledger.Reserve(ctx, key, three)
	require.NoError(t, err)

	snap, err := ledger.Release(ctx, key, three)
	require.NoError(t, err)
	assert.True(t, snap.PendingDays.IsZero())
	assert.True(t, snap.UsedDays.IsZero())
	assert.True(t, snap.RemainingDays.Equal(decimal.NewFromInt(25)), "round trip leaves the balance unchanged")
}

func TestLedgerReserveInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	ledger := leave.NewLedger(store.NewMemory(), store.NewMemoryCatalog(annualType(10)))
	key := testKey()

	// Exact remaining succeeds.
	_, err := ledger.Reserve(ctx, key, decimal.NewFromInt(10))
	require.NoError(t, err)

	// One half day more fails with the structured error.
	_, err = ledger.Reserve(ctx, key, decimal.NewFromFloat(0.5))
	require.ErrorIs(t, err, leave.ErrInsufficientBalance)

	var ibe *leave.InsufficientBalanceError
	require.ErrorAs(t, err, &ibe)
	assert.True(t, ibe.Available.IsZero())
	assert.True(t, ibe.Requested.Equal(decimal.NewFromFloat(0.5)))
	assert.True(t, ibe.Shortfall().Equal(decimal.NewFromFloat(0.5)))
}

func TestLedgerCommitRequiresPending(t *testing.T) {
	ctx := context.Background()
	ledger := leave.NewLedger(store.NewMemory(), store.NewMemoryCatalog(annualType(25)))
	key := testKey()

	_, err := ledger.Reserve(ctx, key, decimal.NewFromInt(2))
	require.NoError(t, err)

	// Committing more than is pending must fail rather than underflow.
	_, err = ledger.Commit(ctx, key, decimal.NewFromInt(3))
	assert.Error(t, err)

	b, err := ledger.Balance(ctx, key)
	require.NoError(t, err)
	assert.True(t, b.PendingDays.Equal(decimal.NewFromInt(2)), "failed commit mutates nothing")
	assert.True(t, b.UsedDays.IsZero())
}

func TestLedgerGrant(t *testing.T) {
	ctx := context.Background()
	ledger := leave.NewLedger(store.NewMemory(), store.NewMemoryCatalog(annualType(25)))
	key := testKey()

	// Carryover credits land in the carryover bucket.
	snap, err := ledger.Grant(ctx, key, decimal.NewFromFloat(2.5), true)
	require.NoError(t, err)
	assert.True(t, snap.CarriedOverDays.Equal(decimal.NewFromFloat(2.5)))
	assert.True(t, snap.RemainingDays.Equal(decimal.NewFromFloat(27.5)))

	// Plain grants extend the entitlement.
	snap, err = ledger.Grant(ctx, key, decimal.NewFromInt(1), false)
	require.NoError(t, err)
	assert.True(t, snap.AnnualEntitlement.Equal(decimal.NewFromInt(26)))
	assert.True(t, snap.RemainingDays.Equal(decimal.NewFromFloat(28.5)))

	// Non-positive amounts are rejected.
	_, err = ledger.Grant(ctx, key, decimal.Zero, false)
	assert.Error(t, err)
	_, err = ledger.Grant(ctx, key, decimal.NewFromInt(-1), true)
	assert.Error(t, err)
}

func TestLedgerConcurrentReserves(t *testing.T) {
	ctx := context.Background()
	ledger := leave.NewLedger(store.NewMemory(), store.NewMemoryCatalog(annualType(10)))
	key := testKey()

	// GIVEN 10 remaining days and 20 goroutines each reserving 1 day
	const writers = 20
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.Reserve(ctx, key, decimal.NewFromInt(1))
		}(i)
	}
	wg.Wait()

	// THEN the balance never over-commits
	b, err := ledger.Balance(ctx, key)
	require.NoError(t, err)
	assert.False(t, b.Remaining().IsNegative(), "remaining went negative: %s", b.Remaining())

	// AND every reservation either succeeded or failed cleanly
	succeeded := 0
	for _, e := range errs {
		switch {
		case e == nil:
			succeeded++
		case leave.IsRetryable(e) || leave.IsClientError(e):
		default:
			t.Fatalf("unexpected error: %v", e)
		}
	}
	assert.True(t, b.PendingDays.Equal(decimal.NewFromInt(int64(succeeded))),
		"pending %s must equal the %d successful reservations", b.PendingDays, succeeded)
	assert.LessOrEqual(t, succeeded, 10)
}
