/*
Package sqlite provides the SQLite-backed implementation of the leave
engine's storage interfaces.

PURPOSE:
  Implements leave.BalanceStore, leave.RequestStore, leave.AuditLog,
  leave.Catalog and leave.Directory on a single SQLite database. The same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

OPTIMISTIC CONCURRENCY:
  leave_balances carries a version column. Every update is a compare-and-swap:

    UPDATE leave_balances SET ..., version = version + 1
    WHERE employee_id = ? AND leave_type_id = ? AND year = ? AND version = ?

  Zero rows affected means a concurrent writer won; the caller re-reads and
  retries. Requests use the same guard on status, which is what makes
  lifecycle transitions single-shot.

KEY TABLES:
  employees:       Directory entries
  leave_types:     Catalog entries
  leave_balances:  One row per (employee, type, year), versioned
  leave_requests:  Lifecycle entities, never deleted
  audit_log:       Append-only action record

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers never block
  on the single writer.

USAGE:
  store, err := sqlite.New("./data/leave.db")   // ":memory:" for tests
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/types.go: Interface definitions
  - leave/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/leave"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// The sqlite3 driver serializes writes; a single connection avoids
	// SQLITE_BUSY during concurrent CAS attempts.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		hire_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leave_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT,
		is_paid INTEGER NOT NULL DEFAULT 1,
		max_days_per_year INTEGER,
		advance_notice_days INTEGER,
		max_concurrent_requests INTEGER,
		requires_approval INTEGER NOT NULL DEFAULT 1,
		color TEXT,
		is_active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS leave_balances (
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		annual_entitlement TEXT NOT NULL,
		carried_over_days TEXT NOT NULL,
		used_days TEXT NOT NULL,
		pending_days TEXT NOT NULL,
		version INTEGER NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, leave_type_id, year)
	);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		is_half_day_start INTEGER NOT NULL DEFAULT 0,
		is_half_day_end INTEGER NOT NULL DEFAULT 0,
		chargeable_days TEXT NOT NULL,
		reason TEXT,
		emergency_contact TEXT,
		status TEXT NOT NULL,
		request_date TEXT NOT NULL,
		approver_id TEXT,
		approval_date TEXT,
		approval_comment TEXT,
		rejection_reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_requests_employee
		ON leave_requests(employee_id, start_date DESC);
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON leave_requests(status);
	CREATE INDEX IF NOT EXISTS idx_requests_range
		ON leave_requests(start_date, end_date);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		at TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		employee_id TEXT,
		leave_type_id TEXT,
		request_id TEXT,
		details TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_employee ON audit_log(employee_id);
	CREATE INDEX IF NOT EXISTS idx_audit_request ON audit_log(request_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

const dateLayout = "2006-01-02"

// =============================================================================
// EMPLOYEES - leave.Directory plus admin CRUD
// =============================================================================

// Employee is the directory record. The engine only needs existence checks;
// the rest feeds the API layer.
type Employee struct {
	ID        leave.EmployeeID
	Name      string
	Email     string
	HireDate  time.Time
	CreatedAt time.Time
}

// SaveEmployee inserts or updates an employee record.
func (s *Store) SaveEmployee(ctx context.Context, e Employee) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, email, hire_date, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			hire_date = excluded.hire_date`,
		string(e.ID), e.Name, e.Email,
		e.HireDate.Format(dateLayout), e.CreatedAt.Format(time.RFC3339))
	return err
}

// Employee retrieves one employee by ID.
func (s *Store) Employee(ctx context.Context, id leave.EmployeeID) (*Employee, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, hire_date, created_at
		FROM employees WHERE id = ?`, string(id))
	var e Employee
	var hire, created string
	if err := row.Scan(&e.ID, &e.Name, &e.Email, &hire, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, leave.ErrEmployeeNotFound
		}
		return nil, err
	}
	e.HireDate, _ = time.Parse(dateLayout, hire)
	e.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &e, nil
}

// ListEmployees returns all employees ordered by name.
func (s *Store) ListEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, hire_date, created_at
		FROM employees ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Employee
	for rows.Next() {
		var e Employee
		var hire, created string
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &hire, &created); err != nil {
			return nil, err
		}
		e.HireDate, _ = time.Parse(dateLayout, hire)
		e.CreatedAt, _ = time.Parse(time.RFC3339, created)
		result = append(result, e)
	}
	return result, rows.Err()
}

// Exists implements leave.Directory.
func (s *Store) Exists(ctx context.Context, id leave.EmployeeID) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM employees WHERE id = ?`, string(id)).Scan(&n)
	return n > 0, err
}

// =============================================================================
// LEAVE TYPES - leave.Catalog plus admin CRUD
// =============================================================================

// SaveLeaveType inserts or updates a catalog entry.
func (s *Store) SaveLeaveType(ctx context.Context, t *leave.LeaveType) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_types
			(id, name, description, is_paid, max_days_per_year, advance_notice_days,
			 max_concurrent_requests, requires_approval, color, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			is_paid = excluded.is_paid,
			max_days_per_year = excluded.max_days_per_year,
			advance_notice_days = excluded.advance_notice_days,
			max_concurrent_requests = excluded.max_concurrent_requests,
			requires_approval = excluded.requires_approval,
			color = excluded.color,
			is_active = excluded.is_active`,
		string(t.ID), t.Name, t.Description, boolInt(t.IsPaid),
		intPtr(t.MaxDaysPerYear), intPtr(t.AdvanceNoticeDays), intPtr(t.MaxConcurrentRequests),
		boolInt(t.RequiresApproval), t.Color, boolInt(t.IsActive))
	return err
}

// Type implements leave.Catalog.
func (s *Store) Type(ctx context.Context, id leave.LeaveTypeID) (*leave.LeaveType, error) {
	row := s.db.QueryRowContext(ctx, selectLeaveType+` WHERE id = ?`, string(id))
	t, err := scanLeaveType(row)
	if err == sql.ErrNoRows {
		return nil, leave.ErrTypeNotFound
	}
	return t, err
}

// ActiveTypes implements leave.Catalog.
func (s *Store) ActiveTypes(ctx context.Context) ([]*leave.LeaveType, error) {
	return s.listTypes(ctx, `WHERE is_active = 1`)
}

// ListLeaveTypes returns the full catalog, inactive types included.
func (s *Store) ListLeaveTypes(ctx context.Context) ([]*leave.LeaveType, error) {
	return s.listTypes(ctx, ``)
}

const selectLeaveType = `
	SELECT id, name, description, is_paid, max_days_per_year, advance_notice_days,
	       max_concurrent_requests, requires_approval, color, is_active
	FROM leave_types`

func (s *Store) listTypes(ctx context.Context, where string) ([]*leave.LeaveType, error) {
	rows, err := s.db.QueryContext(ctx, selectLeaveType+` `+where+` ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*leave.LeaveType
	for rows.Next() {
		t, err := scanLeaveType(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLeaveType(row scanner) (*leave.LeaveType, error) {
	var t leave.LeaveType
	var isPaid, requiresApproval, isActive int
	var maxDays, notice, concurrent sql.NullInt64
	var description, color sql.NullString
	err := row.Scan(&t.ID, &t.Name, &description, &isPaid, &maxDays, &notice,
		&concurrent, &requiresApproval, &color, &isActive)
	if err != nil {
		return nil, err
	}
	t.Description = description.String
	t.Color = color.String
	t.IsPaid = isPaid != 0
	t.RequiresApproval = requiresApproval != 0
	t.IsActive = isActive != 0
	t.MaxDaysPerYear = nullableInt(maxDays)
	t.AdvanceNoticeDays = nullableInt(notice)
	t.MaxConcurrentRequests = nullableInt(concurrent)
	return &t, nil
}

// =============================================================================
// BALANCES - leave.BalanceStore with version CAS
// =============================================================================

// Balance implements leave.BalanceStore.
func (s *Store) Balance(ctx context.Context, key leave.BalanceKey) (*leave.LeaveBalance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT annual_entitlement, carried_over_days, used_days, pending_days, version, updated_at
		FROM leave_balances
		WHERE employee_id = ? AND leave_type_id = ? AND year = ?`,
		string(key.EmployeeID), string(key.LeaveTypeID), key.Year)

	b := leave.LeaveBalance{
		EmployeeID:  key.EmployeeID,
		LeaveTypeID: key.LeaveTypeID,
		Year:        key.Year,
	}
	var entitlement, carried, used, pending, updatedAt string
	if err := row.Scan(&entitlement, &carried, &used, &pending, &b.Version, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, leave.ErrBalanceNotFound
		}
		return nil, err
	}

	var err error
	if b.AnnualEntitlement, err = decimal.NewFromString(entitlement); err != nil {
		return nil, fmt.Errorf("corrupt entitlement for %s: %w", key, err)
	}
	if b.CarriedOverDays, err = decimal.NewFromString(carried); err != nil {
		return nil, fmt.Errorf("corrupt carryover for %s: %w", key, err)
	}
	if b.UsedDays, err = decimal.NewFromString(used); err != nil {
		return nil, fmt.Errorf("corrupt used days for %s: %w", key, err)
	}
	if b.PendingDays, err = decimal.NewFromString(pending); err != nil {
		return nil, fmt.Errorf("corrupt pending days for %s: %w", key, err)
	}
	b.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &b, nil
}

// CreateBalance implements leave.BalanceStore. Returns ErrVersionConflict
// when a concurrent initializer already created the row.
func (s *Store) CreateBalance(ctx context.Context, b *leave.LeaveBalance) error {
	b.Version = 1
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_balances
			(employee_id, leave_type_id, year, annual_entitlement, carried_over_days,
			 used_days, pending_days, version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(b.EmployeeID), string(b.LeaveTypeID), b.Year,
		b.AnnualEntitlement.String(), b.CarriedOverDays.String(),
		b.UsedDays.String(), b.PendingDays.String(),
		b.Version, b.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil && isUniqueViolation(err) {
		return leave.ErrVersionConflict
	}
	return err
}

// UpdateBalance is the version-guarded write. Zero rows affected means a
// concurrent mutation won the race; the caller must re-read and retry.
func (s *Store) UpdateBalance(ctx context.Context, b *leave.LeaveBalance, expected int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE leave_balances
		SET annual_entitlement = ?, carried_over_days = ?, used_days = ?,
		    pending_days = ?, version = version + 1, updated_at = ?
		WHERE employee_id = ? AND leave_type_id = ? AND year = ? AND version = ?`,
		b.AnnualEntitlement.String(), b.CarriedOverDays.String(),
		b.UsedDays.String(), b.PendingDays.String(),
		b.UpdatedAt.UTC().Format(time.RFC3339),
		string(b.EmployeeID), string(b.LeaveTypeID), b.Year, expected)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return leave.ErrVersionConflict
	}
	b.Version = expected + 1
	return nil
}

// Balances implements leave.BalanceStore.
func (s *Store) Balances(ctx context.Context, employeeID leave.EmployeeID, year int) ([]*leave.LeaveBalance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT leave_type_id, annual_entitlement, carried_over_days, used_days,
		       pending_days, version, updated_at
		FROM leave_balances
		WHERE employee_id = ? AND year = ?
		ORDER BY leave_type_id`,
		string(employeeID), year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*leave.LeaveBalance
	for rows.Next() {
		b := leave.LeaveBalance{EmployeeID: employeeID, Year: year}
		var entitlement, carried, used, pending, updatedAt string
		if err := rows.Scan(&b.LeaveTypeID, &entitlement, &carried, &used,
			&pending, &b.Version, &updatedAt); err != nil {
			return nil, err
		}
		if b.AnnualEntitlement, err = decimal.NewFromString(entitlement); err != nil {
			return nil, err
		}
		if b.CarriedOverDays, err = decimal.NewFromString(carried); err != nil {
			return nil, err
		}
		if b.UsedDays, err = decimal.NewFromString(used); err != nil {
			return nil, err
		}
		if b.PendingDays, err = decimal.NewFromString(pending); err != nil {
			return nil, err
		}
		b.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		result = append(result, &b)
	}
	return result, rows.Err()
}

// =============================================================================
// REQUESTS - leave.RequestStore with status-guarded updates
// =============================================================================

// CreateRequest implements leave.RequestStore.
func (s *Store) CreateRequest(ctx context.Context, r *leave.LeaveRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_requests
			(id, employee_id, leave_type_id, start_date, end_date,
			 is_half_day_start, is_half_day_end, chargeable_days, reason,
			 emergency_contact, status, request_date,
			 approver_id, approval_date, approval_comment, rejection_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(r.ID), string(r.EmployeeID), string(r.LeaveTypeID),
		r.StartDate.String(), r.EndDate.String(),
		boolInt(r.IsHalfDayStart), boolInt(r.IsHalfDayEnd),
		r.ChargeableDays.String(), r.Reason, r.EmergencyContact,
		string(r.Status), r.RequestDate.UTC().Format(time.RFC3339),
		employeePtr(r.ApproverID), timePtr(r.ApprovalDate),
		r.ApprovalComment, r.RejectionReason)
	return err
}

// Request implements leave.RequestStore.
func (s *Store) Request(ctx context.Context, id leave.RequestID) (*leave.LeaveRequest, error) {
	row := s.db.QueryRowContext(ctx, selectRequest+` WHERE id = ?`, string(id))
	r, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, leave.ErrRequestNotFound
	}
	return r, err
}

// UpdateRequest writes r only while the stored status equals from. The guard
// is what makes lifecycle transitions single-shot under concurrency.
func (s *Store) UpdateRequest(ctx context.Context, r *leave.LeaveRequest, from leave.RequestStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE leave_requests SET
			leave_type_id = ?, start_date = ?, end_date = ?,
			is_half_day_start = ?, is_half_day_end = ?, chargeable_days = ?,
			reason = ?, emergency_contact = ?, status = ?,
			approver_id = ?, approval_date = ?, approval_comment = ?, rejection_reason = ?
		WHERE id = ? AND status = ?`,
		string(r.LeaveTypeID), r.StartDate.String(), r.EndDate.String(),
		boolInt(r.IsHalfDayStart), boolInt(r.IsHalfDayEnd), r.ChargeableDays.String(),
		r.Reason, r.EmergencyContact, string(r.Status),
		employeePtr(r.ApproverID), timePtr(r.ApprovalDate),
		r.ApprovalComment, r.RejectionReason,
		string(r.ID), string(from))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish a missing row from a lost status race.
		if _, getErr := s.Request(ctx, r.ID); getErr != nil {
			return getErr
		}
		return leave.ErrStatusConflict
	}
	return nil
}

// ListRequests implements leave.RequestStore.
func (s *Store) ListRequests(ctx context.Context, f leave.RequestFilter) ([]*leave.LeaveRequest, error) {
	query := selectRequest + ` WHERE 1 = 1`
	var args []any
	if f.EmployeeID != nil {
		query += ` AND employee_id = ?`
		args = append(args, string(*f.EmployeeID))
	}
	if f.Year != nil {
		query += ` AND start_date >= ? AND start_date <= ?`
		args = append(args,
			fmt.Sprintf("%04d-01-01", *f.Year),
			fmt.Sprintf("%04d-12-31", *f.Year))
	}
	if f.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*f.Status))
	}
	query += ` ORDER BY start_date DESC`
	return s.queryRequests(ctx, query, args...)
}

// OverlappingRequests implements leave.RequestStore. ISO date strings sort
// lexicographically, so the range comparison works directly on TEXT columns.
func (s *Store) OverlappingRequests(ctx context.Context, rng leave.DateRange, statuses []leave.RequestStatus, exclude leave.RequestID) ([]*leave.LeaveRequest, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := []any{rng.End.String(), rng.Start.String()}
	for i, st := range statuses {
		placeholders[i] = `?`
		args = append(args, string(st))
	}
	query := selectRequest + ` WHERE start_date <= ? AND end_date >= ?
		AND status IN (` + strings.Join(placeholders, `, `) + `)`
	if exclude != "" {
		query += ` AND id != ?`
		args = append(args, string(exclude))
	}
	query += ` ORDER BY start_date`
	return s.queryRequests(ctx, query, args...)
}

const selectRequest = `
	SELECT id, employee_id, leave_type_id, start_date, end_date,
	       is_half_day_start, is_half_day_end, chargeable_days, reason,
	       emergency_contact, status, request_date,
	       approver_id, approval_date, approval_comment, rejection_reason
	FROM leave_requests`

func (s *Store) queryRequests(ctx context.Context, query string, args ...any) ([]*leave.LeaveRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*leave.LeaveRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func scanRequest(row scanner) (*leave.LeaveRequest, error) {
	var r leave.LeaveRequest
	var start, end, chargeable, requestDate string
	var halfStart, halfEnd int
	var reason, contact, comment, rejection, approver, approvalDate sql.NullString
	err := row.Scan(&r.ID, &r.EmployeeID, &r.LeaveTypeID, &start, &end,
		&halfStart, &halfEnd, &chargeable, &reason,
		&contact, &r.Status, &requestDate,
		&approver, &approvalDate, &comment, &rejection)
	if err != nil {
		return nil, err
	}

	if r.StartDate, err = leave.ParseDate(start); err != nil {
		return nil, err
	}
	if r.EndDate, err = leave.ParseDate(end); err != nil {
		return nil, err
	}
	if r.ChargeableDays, err = decimal.NewFromString(chargeable); err != nil {
		return nil, err
	}
	r.IsHalfDayStart = halfStart != 0
	r.IsHalfDayEnd = halfEnd != 0
	r.Reason = reason.String
	r.EmergencyContact = contact.String
	r.ApprovalComment = comment.String
	r.RejectionReason = rejection.String
	r.RequestDate, _ = time.Parse(time.RFC3339, requestDate)
	if approver.Valid && approver.String != "" {
		id := leave.EmployeeID(approver.String)
		r.ApproverID = &id
	}
	if approvalDate.Valid && approvalDate.String != "" {
		if t, err := time.Parse(time.RFC3339, approvalDate.String); err == nil {
			r.ApprovalDate = &t
		}
	}
	return &r, nil
}

// =============================================================================
// AUDIT LOG - leave.AuditLog
// =============================================================================

// AppendAudit implements leave.AuditLog.
func (s *Store) AppendAudit(ctx context.Context, entry leave.AuditEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log
			(id, at, actor_id, action, employee_id, leave_type_id, request_id, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.At.UTC().Format(time.RFC3339), entry.ActorID, string(entry.Action),
		string(entry.EmployeeID), string(entry.LeaveTypeID), string(entry.RequestID), entry.Details)
	return err
}

// AuditEntries implements leave.AuditLog.
func (s *Store) AuditEntries(ctx context.Context, f leave.AuditFilter) ([]leave.AuditEntry, error) {
	query := `
		SELECT id, at, actor_id, action, employee_id, leave_type_id, request_id, details
		FROM audit_log WHERE 1 = 1`
	var args []any
	if f.EmployeeID != nil {
		query += ` AND employee_id = ?`
		args = append(args, string(*f.EmployeeID))
	}
	if f.RequestID != nil {
		query += ` AND request_id = ?`
		args = append(args, string(*f.RequestID))
	}
	if len(f.Actions) > 0 {
		placeholders := make([]string, len(f.Actions))
		for i, a := range f.Actions {
			placeholders[i] = `?`
			args = append(args, string(a))
		}
		query += ` AND action IN (` + strings.Join(placeholders, `, `) + `)`
	}
	query += ` ORDER BY at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []leave.AuditEntry
	for rows.Next() {
		var e leave.AuditEntry
		var at string
		if err := rows.Scan(&e.ID, &at, &e.ActorID, &e.Action,
			&e.EmployeeID, &e.LeaveTypeID, &e.RequestID, &e.Details); err != nil {
			return nil, err
		}
		e.At, _ = time.Parse(time.RFC3339, at)
		result = append(result, e)
	}
	return result, rows.Err()
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intPtr(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func employeePtr(p *leave.EmployeeID) any {
	if p == nil {
		return nil
	}
	return string(*p)
}

func timePtr(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC().Format(time.RFC3339)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
