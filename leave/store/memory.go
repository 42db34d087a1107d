// Package store provides in-memory implementations of the leave engine's
// persistence interfaces, for tests and development.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE - BalanceStore + RequestStore + AuditLog
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	balances map[leave.BalanceKey]leave.LeaveBalance
	requests map[leave.RequestID]leave.LeaveRequest
	audit    []leave.AuditEntry
}

func NewMemory() *Memory {
	return &Memory{
		balances: make(map[leave.BalanceKey]leave.LeaveBalance),
		requests: make(map[leave.RequestID]leave.LeaveRequest),
	}
}

// -----------------------------------------------------------------------------
// BalanceStore
// -----------------------------------------------------------------------------

func (m *Memory) Balance(_ context.Context, key leave.BalanceKey) (*leave.LeaveBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.balances[key]
	if !ok {
		return nil, leave.ErrBalanceNotFound
	}
	copied := b
	return &copied, nil
}

func (m *Memory) CreateBalance(_ context.Context, b *leave.LeaveBalance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.balances[b.Key()]; exists {
		return leave.ErrVersionConflict
	}
	b.Version = 1
	m.balances[b.Key()] = *b
	return nil
}

func (m *Memory) UpdateBalance(_ context.Context, b *leave.LeaveBalance, expected int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.balances[b.Key()]
	if !ok {
		return leave.ErrBalanceNotFound
	}
	if stored.Version != expected {
		return leave.ErrVersionConflict
	}
	b.Version = expected + 1
	m.balances[b.Key()] = *b
	return nil
}

func (m *Memory) Balances(_ context.Context, employeeID leave.EmployeeID, year int) ([]*leave.LeaveBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*leave.LeaveBalance
	for key, b := range m.balances {
		if key.EmployeeID == employeeID && key.Year == year {
			copied := b
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LeaveTypeID < result[j].LeaveTypeID
	})
	return result, nil
}

// -----------------------------------------------------------------------------
// RequestStore
// -----------------------------------------------------------------------------

func (m *Memory) CreateRequest(_ context.Context, r *leave.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.requests[r.ID]; exists {
		return fmt.Errorf("request %s already exists", r.ID)
	}
	m.requests[r.ID] = *r
	return nil
}

func (m *Memory) Request(_ context.Context, id leave.RequestID) (*leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.requests[id]
	if !ok {
		return nil, leave.ErrRequestNotFound
	}
	copied := r
	return &copied, nil
}

func (m *Memory) UpdateRequest(_ context.Context, r *leave.LeaveRequest, from leave.RequestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.requests[r.ID]
	if !ok {
		return leave.ErrRequestNotFound
	}
	if stored.Status != from {
		return leave.ErrStatusConflict
	}
	m.requests[r.ID] = *r
	return nil
}

func (m *Memory) ListRequests(_ context.Context, f leave.RequestFilter) ([]*leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*leave.LeaveRequest
	for _, r := range m.requests {
		if f.EmployeeID != nil && r.EmployeeID != *f.EmployeeID {
			continue
		}
		if f.Year != nil && r.StartDate.Year() != *f.Year {
			continue
		}
		if f.Status != nil && r.Status != *f.Status {
			continue
		}
		copied := r
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[j].StartDate.Before(result[i].StartDate)
	})
	return result, nil
}

func (m *Memory) OverlappingRequests(_ context.Context, rng leave.DateRange, statuses []leave.RequestStatus, exclude leave.RequestID) ([]*leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[leave.RequestStatus]bool, len(statuses))
	for _, st := range statuses {
		wanted[st] = true
	}

	var result []*leave.LeaveRequest
	for _, r := range m.requests {
		if r.ID == exclude || !wanted[r.Status] || !rng.Overlaps(r.Range()) {
			continue
		}
		copied := r
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartDate.Before(result[j].StartDate)
	})
	return result, nil
}

// -----------------------------------------------------------------------------
// AuditLog
// -----------------------------------------------------------------------------

func (m *Memory) AppendAudit(_ context.Context, entry leave.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, entry)
	return nil
}

func (m *Memory) AuditEntries(_ context.Context, f leave.AuditFilter) ([]leave.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[leave.AuditAction]bool, len(f.Actions))
	for _, a := range f.Actions {
		wanted[a] = true
	}

	var result []leave.AuditEntry
	for _, e := range m.audit {
		if f.EmployeeID != nil && e.EmployeeID != *f.EmployeeID {
			continue
		}
		if f.RequestID != nil && e.RequestID != *f.RequestID {
			continue
		}
		if len(wanted) > 0 && !wanted[e.Action] {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

// =============================================================================
// MEMORY CATALOG + DIRECTORY - Collaborator fakes for tests/dev
// =============================================================================

type MemoryCatalog struct {
	mu    sync.RWMutex
	types map[leave.LeaveTypeID]leave.LeaveType
}

func NewMemoryCatalog(types ...*leave.LeaveType) *MemoryCatalog {
	c := &MemoryCatalog{types: make(map[leave.LeaveTypeID]leave.LeaveType)}
	for _, t := range types {
		c.Put(t)
	}
	return c
}

func (c *MemoryCatalog) Put(t *leave.LeaveType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types[t.ID] = *t
}

func (c *MemoryCatalog) Type(_ context.Context, id leave.LeaveTypeID) (*leave.LeaveType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.types[id]
	if !ok {
		return nil, leave.ErrTypeNotFound
	}
	copied := t
	return &copied, nil
}

func (c *MemoryCatalog) ActiveTypes(_ context.Context) ([]*leave.LeaveType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []*leave.LeaveType
	for _, t := range c.types {
		if t.IsActive {
			copied := t
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type MemoryDirectory struct {
	mu        sync.RWMutex
	employees map[leave.EmployeeID]bool
}

func NewMemoryDirectory(ids ...leave.EmployeeID) *MemoryDirectory {
	d := &MemoryDirectory{employees: make(map[leave.EmployeeID]bool)}
	for _, id := range ids {
		d.employees[id] = true
	}
	return d
}

func (d *MemoryDirectory) Add(id leave.EmployeeID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.employees[id] = true
}

func (d *MemoryDirectory) Exists(_ context.Context, id leave.EmployeeID) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.employees[id], nil
}
