/*
ledger.go - Balance ledger with optimistic concurrency

PURPOSE:
  The ledger owns every mutation of LeaveBalance. Three operations map to
  the lifecycle transitions:

    Reserve  remaining -> pending   (submission)
    Commit   pending   -> used      (approval)
    Release  pending   -> remaining (rejection / cancellation)

  plus Grant, the administrative credit path (adjustments and year-end
  carryover).

CONCURRENCY DISCIPLINE:
  Optimistic concurrency with bounded retry, not locks. Every mutation
  reads the current (balance, version) pair, computes new values, and
  writes only if the version is unchanged. On mismatch it re-reads and
  retries up to balanceRetries before surfacing ErrConcurrentUpdate.
  Sufficiency is re-checked on every attempt against the fresh read, so
  Reserve fails fast against the current state, never a cached one.

  The version-guarded single-row write makes every mutation all-or-nothing:
  a timeout leaves the balance either fully updated or fully unchanged.

LAZY CREATION:
  Balances are created on first reference with the catalog's MaxDaysPerYear
  as entitlement, falling back to the organization default. A lost creation
  race is resolved by re-reading the winner's row.

SEE ALSO:
  - types.go: BalanceStore interface and the balance identity
  - service.go: the only caller of Reserve/Commit/Release
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// balanceRetries bounds the read-compute-write loop per mutation.
const balanceRetries = 3

// DefaultAnnualEntitlement applies when the catalog entry has no
// MaxDaysPerYear.
var DefaultAnnualEntitlement = decimal.NewFromInt(25)

// Ledger is the sole mutator of leave balances.
type Ledger struct {
	Store   BalanceStore
	Catalog Catalog

	// DefaultEntitlement overrides DefaultAnnualEntitlement when positive.
	DefaultEntitlement decimal.Decimal

	// Now is injectable for tests.
	Now func() time.Time
}

func NewLedger(store BalanceStore, catalog Catalog) *Ledger {
	return &Ledger{
		Store:              store,
		Catalog:            catalog,
		DefaultEntitlement: DefaultAnnualEntitlement,
		Now:                time.Now,
	}
}

// =============================================================================
// READS
// =============================================================================

// Balance returns the balance for the key, creating it lazily on first
// reference.
func (l *Ledger) Balance(ctx context.Context, key BalanceKey) (*LeaveBalance, error) {
	return l.loadOrInit(ctx, key)
}

func (l *Ledger) loadOrInit(ctx context.Context, key BalanceKey) (*LeaveBalance, error) {
	b, err := l.Store.Balance(ctx, key)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, ErrBalanceNotFound) {
		return nil, err
	}

	entitlement := l.DefaultEntitlement
	if !entitlement.IsPositive() {
		entitlement = DefaultAnnualEntitlement
	}
	lt, err := l.Catalog.Type(ctx, key.LeaveTypeID)
	if err != nil {
		return nil, err
	}
	if lt.MaxDaysPerYear != nil {
		entitlement = decimal.NewFromInt(int64(*lt.MaxDaysPerYear))
	}

	b = &LeaveBalance{
		EmployeeID:        key.EmployeeID,
		LeaveTypeID:       key.LeaveTypeID,
		Year:              key.Year,
		AnnualEntitlement: entitlement,
		CarriedOverDays:   decimal.Zero,
		UsedDays:          decimal.Zero,
		PendingDays:       decimal.Zero,
		UpdatedAt:         l.Now(),
	}
	if err := l.Store.CreateBalance(ctx, b); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			// Concurrent creator won; use its row.
			return l.Store.Balance(ctx, key)
		}
		return nil, err
	}
	return b, nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Reserve moves days from remaining to pending. Fails fast with
// *InsufficientBalanceError when the current remaining is short, re-evaluated
// on every attempt.
func (l *Ledger) Reserve(ctx context.Context, key BalanceKey, days decimal.Decimal) (*BalanceSnapshot, error) {
	return l.mutate(ctx, key, func(b *LeaveBalance) error {
		if b.Remaining().LessThan(days) {
			return &InsufficientBalanceError{Key: key, Available: b.Remaining(), Requested: days}
		}
		b.PendingDays = b.PendingDays.Add(days)
		return nil
	})
}

// Commit moves days from pending to used, on approval.
func (l *Ledger) Commit(ctx context.Context, key BalanceKey, days decimal.Decimal) (*BalanceSnapshot, error) {
	return l.mutate(ctx, key, func(b *LeaveBalance) error {
		if b.PendingDays.LessThan(days) {
			return fmt.Errorf("commit %s/%s/%d: pending %s below committed %s",
				key.EmployeeID, key.LeaveTypeID, key.Year, b.PendingDays, days)
		}
		b.PendingDays = b.PendingDays.Sub(days)
		b.UsedDays = b.UsedDays.Add(days)
		return nil
	})
}

// Release returns pending days to remaining, on rejection or cancellation.
func (l *Ledger) Release(ctx context.Context, key BalanceKey, days decimal.Decimal) (*BalanceSnapshot, error) {
	return l.mutate(ctx, key, func(b *LeaveBalance) error {
		if b.PendingDays.LessThan(days) {
			return fmt.Errorf("release %s/%s/%d: pending %s below released %s",
				key.EmployeeID, key.LeaveTypeID, key.Year, b.PendingDays, days)
		}
		b.PendingDays = b.PendingDays.Sub(days)
		return nil
	})
}

// Grant credits days to the balance. Carryover credits land in
// CarriedOverDays so year-end credits stay distinguishable from the annual
// entitlement. Only positive amounts are accepted; administrative reduction
// is not exposed by this engine.
func (l *Ledger) Grant(ctx context.Context, key BalanceKey, days decimal.Decimal, carryover bool) (*BalanceSnapshot, error) {
	if !days.IsPositive() {
		return nil, fmt.Errorf("grant %s/%s/%d: amount must be positive, got %s",
			key.EmployeeID, key.LeaveTypeID, key.Year, days)
	}
	return l.mutate(ctx, key, func(b *LeaveBalance) error {
		if carryover {
			b.CarriedOverDays = b.CarriedOverDays.Add(days)
		} else {
			b.AnnualEntitlement = b.AnnualEntitlement.Add(days)
		}
		return nil
	})
}

// mutate runs the read-compute-CAS loop. apply sees a fresh copy each
// attempt and may veto with an error, which aborts without retrying.
func (l *Ledger) mutate(ctx context.Context, key BalanceKey, apply func(*LeaveBalance) error) (*BalanceSnapshot, error) {
	for attempt := 0; attempt < balanceRetries; attempt++ {
		b, err := l.loadOrInit(ctx, key)
		if err != nil {
			return nil, err
		}

		updated := *b
		if err := apply(&updated); err != nil {
			return nil, err
		}
		updated.UpdatedAt = l.Now()

		err = l.Store.UpdateBalance(ctx, &updated, b.Version)
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated.Snapshot(), nil
	}
	return nil, ErrConcurrentUpdate
}
