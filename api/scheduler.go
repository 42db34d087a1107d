/*
scheduler.go - Automated year-end carryover scheduler

PURPOSE:
  Periodically checks for employees whose previous-year balances still hold
  unused days and credits them into the current year as carryover.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Carries over min(remaining, MaxCarryover) per employee and paid type
  - Idempotent: a current-year balance that already holds carryover days is
    skipped, so restarts and repeated ticks never double-credit
  - Credits go through Service.GrantDays so every carryover is audited

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - MaxCarryover:  Cap per balance (default: 5 days)
  - Enabled:       Whether scheduler is active (default: true)

USAGE:
  scheduler := NewCarryoverScheduler(store, service, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: CreateGrant endpoint (manual credits)
  - leave/ledger.go: Grant
*/
package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// DefaultMaxCarryover caps how many unused days roll into the next year.
var DefaultMaxCarryover = decimal.NewFromInt(5)

// CarryoverScheduler handles automated year-end carryover.
type CarryoverScheduler struct {
	Store         *sqlite.Store
	Service       *leave.Service
	Logger        *zap.Logger
	CheckInterval time.Duration
	MaxCarryover  decimal.Decimal
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewCarryoverScheduler creates a new scheduler.
func NewCarryoverScheduler(store *sqlite.Store, service *leave.Service, logger *zap.Logger) *CarryoverScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CarryoverScheduler{
		Store:         store,
		Service:       service,
		Logger:        logger,
		CheckInterval: 1 * time.Hour,
		MaxCarryover:  DefaultMaxCarryover,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (cs *CarryoverScheduler) Start() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.Enabled {
		cs.Logger.Info("carryover scheduler disabled, not starting")
		return
	}

	cs.ticker = time.NewTicker(cs.CheckInterval)
	cs.stop = make(chan bool)
	cs.wg.Add(1)
	go cs.run()

	cs.Logger.Info("carryover scheduler started",
		zap.Duration("check_interval", cs.CheckInterval),
		zap.String("max_carryover", cs.MaxCarryover.String()))
}

// Stop stops the scheduler.
func (cs *CarryoverScheduler) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.ticker != nil {
		cs.ticker.Stop()
		close(cs.stop)
		cs.wg.Wait()
		cs.ticker = nil
		cs.Logger.Info("carryover scheduler stopped")
	}
}

func (cs *CarryoverScheduler) run() {
	defer cs.wg.Done()

	// Run immediately on start
	cs.checkAndProcess()

	for {
		select {
		case <-cs.ticker.C:
			cs.checkAndProcess()
		case <-cs.stop:
			return
		}
	}
}

func (cs *CarryoverScheduler) checkAndProcess() {
	ctx := context.Background()
	year := time.Now().Year()

	employees, err := cs.Store.ListEmployees(ctx)
	if err != nil {
		cs.Logger.Error("carryover check failed to list employees", zap.Error(err))
		return
	}
	types, err := cs.Store.ActiveTypes(ctx)
	if err != nil {
		cs.Logger.Error("carryover check failed to list leave types", zap.Error(err))
		return
	}

	processed, skipped := 0, 0
	for _, emp := range employees {
		for _, lt := range types {
			if !lt.IsPaid {
				// Unpaid leave has nothing to carry over.
				continue
			}
			done, err := cs.processBalance(ctx, emp.ID, lt.ID, year)
			if err != nil {
				cs.Logger.Error("carryover failed",
					zap.String("employee_id", string(emp.ID)),
					zap.String("leave_type_id", string(lt.ID)),
					zap.Error(err))
				continue
			}
			if done {
				processed++
			} else {
				skipped++
			}
		}
	}

	if processed > 0 {
		cs.Logger.Info("carryover run completed",
			zap.Int("processed", processed), zap.Int("skipped", skipped))
	}
}

// processBalance carries the previous year's remainder into year for one
// (employee, type) pair. Returns true when days were credited.
func (cs *CarryoverScheduler) processBalance(ctx context.Context, emp leave.EmployeeID, typeID leave.LeaveTypeID, year int) (bool, error) {
	prev, err := cs.Store.Balance(ctx, leave.BalanceKey{EmployeeID: emp, LeaveTypeID: typeID, Year: year - 1})
	if errors.Is(err, leave.ErrBalanceNotFound) {
		// Never used last year, nothing to carry.
		return false, nil
	}
	if err != nil {
		return false, err
	}

	remaining := prev.Remaining()
	if !remaining.IsPositive() {
		return false, nil
	}

	key := leave.BalanceKey{EmployeeID: emp, LeaveTypeID: typeID, Year: year}
	cur, err := cs.Store.Balance(ctx, key)
	if err != nil && !errors.Is(err, leave.ErrBalanceNotFound) {
		return false, err
	}
	if cur != nil && cur.CarriedOverDays.IsPositive() {
		// Already carried over for this year.
		return false, nil
	}

	amount := remaining
	if amount.GreaterThan(cs.MaxCarryover) {
		amount = cs.MaxCarryover
	}

	if _, err := cs.Service.GrantDays(ctx, key, amount, true, "scheduler"); err != nil {
		return false, err
	}
	cs.Logger.Info("carried over unused days",
		zap.String("employee_id", string(emp)),
		zap.String("leave_type_id", string(typeID)),
		zap.Int("year", year),
		zap.String("days", amount.String()))
	return true, nil
}

// RunNow triggers an immediate check (for testing/admin).
func (cs *CarryoverScheduler) RunNow() {
	cs.checkAndProcess()
}
