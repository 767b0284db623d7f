package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

const employeeColumns = `id, code, first_name, last_name, email, phone, role, gender, manager_id, joining_date, active`

// SaveEmployee inserts or replaces an employee.
func (s *Store) SaveEmployee(ctx context.Context, e leave.Employee) error {
	defer s.lock()()

	var gender sql.NullString
	if e.Gender != nil {
		gender = nullString(string(*e.Gender))
	}
	var manager sql.NullString
	if e.ManagerID != nil {
		manager = nullString(string(*e.ManagerID))
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT OR REPLACE INTO employees (`+employeeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Code, e.FirstName, e.LastName, e.Email, e.Phone, e.Role,
		gender, manager, nullDate(e.JoiningDate), boolInt(e.Active),
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

func (s *Store) GetEmployee(ctx context.Context, id generic.EmployeeID) (leave.Employee, error) {
	defer s.rlock()()

	row := s.q.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id)
	e, err := scanEmployee(row)
	if isNoRows(err) {
		return leave.Employee{}, leave.ErrEmployeeNotFound.With("no such employee %s", id)
	}
	return e, err
}

func (s *Store) ListEmployees(ctx context.Context, activeOnly bool) ([]leave.Employee, error) {
	defer s.rlock()()

	query := `SELECT ` + employeeColumns + ` FROM employees`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY id`

	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var out []leave.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(sc scanner) (leave.Employee, error) {
	var (
		e                       leave.Employee
		gender, manager, joined sql.NullString
		active                  int
	)
	err := sc.Scan(&e.ID, &e.Code, &e.FirstName, &e.LastName, &e.Email, &e.Phone, &e.Role,
		&gender, &manager, &joined, &active)
	if err != nil {
		if isNoRows(err) {
			return e, err
		}
		return e, fmt.Errorf("failed to scan employee: %w", err)
	}
	if gender.Valid {
		g := leave.Gender(gender.String)
		e.Gender = &g
	}
	if manager.Valid {
		m := generic.EmployeeID(manager.String)
		e.ManagerID = &m
	}
	if joined.Valid {
		tp, err := parseDate(joined.String)
		if err != nil {
			return e, err
		}
		e.JoiningDate = &tp
	}
	e.Active = active == 1
	return e, nil
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

const leaveTypeColumns = `id, name, category, max_days, half_day_allowed, sandwich, duty_days_required,
	days_check, days_check_more, days_check_equal_or_less, increment_count, increment_gap_months,
	carry_forward, carry_forward_limit`

// SaveLeaveType inserts or replaces a leave type.
func (s *Store) SaveLeaveType(ctx context.Context, t leave.LeaveType) error {
	defer s.lock()()

	_, err := s.q.ExecContext(ctx, `
		INSERT OR REPLACE INTO leave_types (`+leaveTypeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Category, nullInt(t.MaxDays), boolInt(t.HalfDayAllowed), boolInt(t.Sandwich),
		nullInt(t.DutyDaysRequired), nullInt(t.DaysCheck), nullInt(t.DaysCheckMore), nullInt(t.DaysCheckEqualOrLess),
		t.IncrementCount.String(), t.IncrementGapMonths, boolInt(t.CarryForward), nullInt(t.CarryForwardLimit),
	)
	if err != nil {
		return fmt.Errorf("failed to save leave type: %w", err)
	}
	return nil
}

func (s *Store) GetLeaveType(ctx context.Context, id generic.LeaveTypeID) (leave.LeaveType, error) {
	defer s.rlock()()

	row := s.q.QueryRowContext(ctx, `SELECT `+leaveTypeColumns+` FROM leave_types WHERE id = ?`, id)
	t, err := scanLeaveType(row)
	if isNoRows(err) {
		return leave.LeaveType{}, leave.ErrLeaveTypeNotFound.With("no such leave type %s", id)
	}
	return t, err
}

func (s *Store) ListLeaveTypes(ctx context.Context) ([]leave.LeaveType, error) {
	defer s.rlock()()

	rows, err := s.q.QueryContext(ctx, `SELECT `+leaveTypeColumns+` FROM leave_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave types: %w", err)
	}
	defer rows.Close()

	var out []leave.LeaveType
	for rows.Next() {
		t, err := scanLeaveType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanLeaveType(sc scanner) (leave.LeaveType, error) {
	var (
		t                                     leave.LeaveType
		maxDays, duty, check, more, equalLess sql.NullInt64
		carryLimit                            sql.NullInt64
		halfDay, sandwich, carry              int
		increment                             string
	)
	err := sc.Scan(&t.ID, &t.Name, &t.Category, &maxDays, &halfDay, &sandwich, &duty,
		&check, &more, &equalLess, &increment, &t.IncrementGapMonths, &carry, &carryLimit)
	if err != nil {
		if isNoRows(err) {
			return t, err
		}
		return t, fmt.Errorf("failed to scan leave type: %w", err)
	}
	t.MaxDays = intPtr(maxDays)
	t.HalfDayAllowed = halfDay == 1
	t.Sandwich = sandwich == 1
	t.DutyDaysRequired = intPtr(duty)
	t.DaysCheck = intPtr(check)
	t.DaysCheckMore = intPtr(more)
	t.DaysCheckEqualOrLess = intPtr(equalLess)
	if t.IncrementCount, err = parseAmount(increment); err != nil {
		return t, err
	}
	t.CarryForward = carry == 1
	t.CarryForwardLimit = intPtr(carryLimit)
	return t, nil
}

// =============================================================================
// BALANCES
// =============================================================================

func (s *Store) GetBalance(ctx context.Context, employeeID generic.EmployeeID, typeID generic.LeaveTypeID) (leave.LeaveBalance, error) {
	defer s.rlock()()

	var balance string
	err := s.q.QueryRowContext(ctx,
		`SELECT balance FROM leave_balances WHERE employee_id = ? AND type_id = ?`,
		employeeID, typeID,
	).Scan(&balance)
	if isNoRows(err) {
		return leave.LeaveBalance{}, leave.ErrBalanceNotFound.With("leave balance not found for employee %s and type %s", employeeID, typeID)
	}
	if err != nil {
		return leave.LeaveBalance{}, fmt.Errorf("failed to get balance: %w", err)
	}
	amount, err := parseAmount(balance)
	if err != nil {
		return leave.LeaveBalance{}, fmt.Errorf("balance of employee %s for type %s: %w", employeeID, typeID, err)
	}
	return leave.LeaveBalance{EmployeeID: employeeID, TypeID: typeID, Balance: amount}, nil
}

func (s *Store) PutBalance(ctx context.Context, b leave.LeaveBalance) error {
	defer s.lock()()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO leave_balances (employee_id, type_id, balance) VALUES (?, ?, ?)
		ON CONFLICT(employee_id, type_id) DO UPDATE SET balance = excluded.balance`,
		b.EmployeeID, b.TypeID, b.Balance.Round().Value.StringFixed(generic.BalancePrecision),
	)
	if err != nil {
		return fmt.Errorf("failed to put balance: %w", err)
	}
	return nil
}

func (s *Store) ReservedDays(ctx context.Context, q leave.ReservationQuery) (leave.Reservation, error) {
	if len(q.TypeIDs) == 0 {
		return leave.Reservation{}, nil
	}
	defer s.rlock()()

	query := `
		SELECT
			COALESCE(SUM(CASE WHEN r.half_day = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN r.half_day = 1 THEN 1 ELSE 0 END), 0)
		FROM leave_request_days d
		JOIN leave_requests r ON r.id = d.request_id
		WHERE r.employee_id = ? AND r.status = ?
		  AND r.type_id IN (` + placeholders(len(q.TypeIDs)) + `)`
	if q.RetroactiveOnly {
		query += ` AND r.apply_date >= r.from_date`
	}

	args := []any{q.EmployeeID, leave.StatusOpen}
	for _, id := range q.TypeIDs {
		args = append(args, id)
	}

	var res leave.Reservation
	if err := s.q.QueryRowContext(ctx, query, args...).Scan(&res.FullDays, &res.HalfDays); err != nil {
		return leave.Reservation{}, fmt.Errorf("failed to count reserved days: %w", err)
	}
	return res, nil
}

// =============================================================================
// REQUESTS
// =============================================================================

const requestColumns = `id, employee_id, type_id, half_day, from_date, to_date, apply_date, status,
	description, processed_by, created_at`

func (s *Store) AppliedDates(ctx context.Context, employeeID generic.EmployeeID, typeID generic.LeaveTypeID, dates []generic.TimePoint) ([]generic.TimePoint, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	defer s.rlock()()

	args := []any{employeeID, typeID, leave.StatusOpen, leave.StatusApproved}
	for _, d := range dates {
		args = append(args, d.String())
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT DISTINCT d.leave_date
		FROM leave_request_days d
		JOIN leave_requests r ON r.id = d.request_id
		WHERE r.employee_id = ? AND r.type_id = ? AND r.status IN (?, ?)
		  AND d.leave_date IN (`+placeholders(len(dates))+`)
		ORDER BY d.leave_date`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied dates: %w", err)
	}
	defer rows.Close()

	var out []generic.TimePoint
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan applied date: %w", err)
		}
		tp, err := parseDate(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}

// CreateRequest writes the request and its days. Outside WithTx it opens
// its own transaction so the pair is still atomic.
func (s *Store) CreateRequest(ctx context.Context, req leave.LeaveRequest, days []leave.LeaveRequestDay) error {
	if s.tx == nil {
		return s.WithTx(ctx, func(tx leave.Store) error {
			return tx.CreateRequest(ctx, req, days)
		})
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO leave_requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.EmployeeID, req.TypeID, boolInt(req.HalfDay),
		req.FromDate.String(), req.ToDate.String(), req.ApplyDate.String(), req.Status,
		req.Description, req.ProcessedBy, req.CreatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert leave request: %w", err)
	}

	for _, d := range days {
		_, err := s.q.ExecContext(ctx,
			`INSERT INTO leave_request_days (id, request_id, leave_date) VALUES (?, ?, ?)`,
			d.ID, req.ID, d.Date.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert leave request day: %w", err)
		}
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id generic.RequestID) (leave.LeaveRequest, error) {
	defer s.rlock()()

	row := s.q.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM leave_requests WHERE id = ?`, id)
	req, err := scanRequest(row)
	if isNoRows(err) {
		return leave.LeaveRequest{}, leave.ErrRequestNotFound.With("no such leave request %s", id)
	}
	return req, err
}

func (s *Store) RequestDays(ctx context.Context, id generic.RequestID) ([]leave.LeaveRequestDay, error) {
	defer s.rlock()()

	rows, err := s.q.QueryContext(ctx,
		`SELECT id, request_id, leave_date FROM leave_request_days WHERE request_id = ? ORDER BY leave_date`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave request days: %w", err)
	}
	defer rows.Close()

	var out []leave.LeaveRequestDay
	for rows.Next() {
		var (
			d   leave.LeaveRequestDay
			raw string
		)
		if err := rows.Scan(&d.ID, &d.RequestID, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan leave request day: %w", err)
		}
		if d.Date, err = parseDate(raw); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) ListRequests(ctx context.Context, f leave.RequestFilter) (leave.RequestPage, error) {
	defer s.rlock()()
	f = f.Normalize()

	where := ` WHERE employee_id = ?`
	args := []any{f.EmployeeID}
	if f.Status != nil {
		where += ` AND status = ?`
		args = append(args, *f.Status)
	}

	var page leave.RequestPage
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM leave_requests`+where, args...).Scan(&page.Total); err != nil {
		return page, fmt.Errorf("failed to count leave requests: %w", err)
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM leave_requests`+where+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, f.Size, f.Page*f.Size)...)
	if err != nil {
		return page, fmt.Errorf("failed to query leave requests: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return page, err
		}
		page.Requests = append(page.Requests, req)
	}
	return page, rows.Err()
}

func (s *Store) UpdateRequestStatus(ctx context.Context, id generic.RequestID, status leave.Status, processedBy generic.EmployeeID) error {
	defer s.lock()()

	var current leave.Status
	err := s.q.QueryRowContext(ctx, `SELECT status FROM leave_requests WHERE id = ?`, id).Scan(&current)
	if isNoRows(err) {
		return leave.ErrRequestNotFound.With("no such leave request %s", id)
	}
	if err != nil {
		return fmt.Errorf("failed to read leave request status: %w", err)
	}
	if !current.CanTransitionTo(status) {
		return leave.ErrInvalidTransition.With("leave request cannot move from %s to %s", current, status)
	}

	_, err = s.q.ExecContext(ctx,
		`UPDATE leave_requests SET status = ?, processed_by = ? WHERE id = ? AND status = ?`,
		status, processedBy, id, current)
	if err != nil {
		return fmt.Errorf("failed to update leave request status: %w", err)
	}
	return nil
}

func scanRequest(sc scanner) (leave.LeaveRequest, error) {
	var (
		r                       leave.LeaveRequest
		halfDay                 int
		from, to, applied, made string
	)
	err := sc.Scan(&r.ID, &r.EmployeeID, &r.TypeID, &halfDay, &from, &to, &applied, &r.Status,
		&r.Description, &r.ProcessedBy, &made)
	if err != nil {
		if isNoRows(err) {
			return r, err
		}
		return r, fmt.Errorf("failed to scan leave request: %w", err)
	}
	r.HalfDay = halfDay == 1
	if r.FromDate, err = parseDate(from); err != nil {
		return r, err
	}
	if r.ToDate, err = parseDate(to); err != nil {
		return r, err
	}
	if r.ApplyDate, err = parseDate(applied); err != nil {
		return r, err
	}
	if r.CreatedAt, err = parseTimestamp(made); err != nil {
		return r, err
	}
	return r, nil
}

// =============================================================================
// INCREMENT RUNS
// =============================================================================

func (s *Store) LastIncrement(ctx context.Context, typeID generic.LeaveTypeID) (generic.TimePoint, bool, error) {
	defer s.rlock()()

	var raw string
	err := s.q.QueryRowContext(ctx, `SELECT last_run FROM increment_runs WHERE type_id = ?`, typeID).Scan(&raw)
	if isNoRows(err) {
		return generic.TimePoint{}, false, nil
	}
	if err != nil {
		return generic.TimePoint{}, false, fmt.Errorf("failed to read increment run: %w", err)
	}
	tp, err := parseDate(raw)
	if err != nil {
		return generic.TimePoint{}, false, err
	}
	return tp, true, nil
}

func (s *Store) RecordIncrement(ctx context.Context, typeID generic.LeaveTypeID, at generic.TimePoint) error {
	defer s.lock()()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO increment_runs (type_id, last_run) VALUES (?, ?)
		ON CONFLICT(type_id) DO UPDATE SET last_run = excluded.last_run`,
		typeID, at.String())
	if err != nil {
		return fmt.Errorf("failed to record increment run: %w", err)
	}
	return nil
}
