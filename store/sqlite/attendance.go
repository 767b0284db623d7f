package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warp/leave-engine/attendance"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// HOLIDAY CALENDAR (generic.HolidayCalendar interface)
// =============================================================================

// SaveHoliday adds a holiday. One holiday per date.
func (s *Store) SaveHoliday(ctx context.Context, h generic.Holiday) error {
	if !h.Type.Valid() {
		return generic.ErrValidation.With("unknown holiday type %q", h.Type)
	}
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	defer s.lock()()

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO holidays (id, date, name, type) VALUES (?, ?, ?, ?)`,
		h.ID, h.Date.String(), h.Name, h.Type)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrValidation.With("holiday already exists on %s", h.Date)
		}
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

func (s *Store) HolidaysBetween(ctx context.Context, from, to generic.TimePoint) ([]generic.Holiday, error) {
	defer s.rlock()()

	rows, err := s.q.QueryContext(ctx,
		`SELECT id, date, name, type FROM holidays WHERE date >= ? AND date <= ? ORDER BY date`,
		from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var out []generic.Holiday
	for rows.Next() {
		var (
			h   generic.Holiday
			raw string
		)
		if err := rows.Scan(&h.ID, &raw, &h.Name, &h.Type); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		if h.Date, err = parseDate(raw); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// =============================================================================
// DAILY ATTENDANCE (attendance.Store interface)
// =============================================================================

// SaveAttendance inserts or replaces the attendance of one (employee, date).
func (s *Store) SaveAttendance(ctx context.Context, a attendance.DailyAttendance) error {
	defer s.lock()()

	_, err := s.q.ExecContext(ctx, `
		INSERT OR REPLACE INTO daily_attendance
		(employee_id, date, arrival, departure, inside_minutes, outside_minutes, missed_punch)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.EmployeeID, a.Date.String(), nullTime(a.Arrival), nullTime(a.Departure),
		a.InsideMinutes, a.OutsideMinutes, boolInt(a.MissedPunch),
	)
	if err != nil {
		return fmt.Errorf("failed to save attendance: %w", err)
	}
	return nil
}

// SavePunch appends one punch to the day's log.
func (s *Store) SavePunch(ctx context.Context, p attendance.Punch) error {
	if p.Direction != attendance.DirectionIn && p.Direction != attendance.DirectionOut {
		return generic.ErrValidation.With("unknown punch direction %q", p.Direction)
	}
	defer s.lock()()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO attendance_punches (id, employee_id, punch_date, punch_time, device, direction)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), p.EmployeeID, p.Date.String(), p.Time.UTC().Format(time.RFC3339), p.Device, p.Direction,
	)
	if err != nil {
		return fmt.Errorf("failed to save punch: %w", err)
	}
	return nil
}

func (s *Store) Punches(ctx context.Context, employeeID generic.EmployeeID, date generic.TimePoint) ([]attendance.Punch, error) {
	defer s.rlock()()

	rows, err := s.q.QueryContext(ctx, `
		SELECT punch_time, device, direction
		FROM attendance_punches
		WHERE employee_id = ? AND punch_date = ?
		ORDER BY punch_time`,
		employeeID, date.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query punches: %w", err)
	}
	defer rows.Close()

	var out []attendance.Punch
	for rows.Next() {
		p := attendance.Punch{EmployeeID: employeeID, Date: date}
		var raw string
		if err := rows.Scan(&raw, &p.Device, &p.Direction); err != nil {
			return nil, fmt.Errorf("failed to scan punch: %w", err)
		}
		t, err := parseNullTime(sql.NullString{String: raw, Valid: true})
		if err != nil {
			return nil, err
		}
		p.Time = *t
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) AttendanceBetween(ctx context.Context, employeeID generic.EmployeeID, from, to generic.TimePoint) ([]attendance.DailyAttendance, error) {
	defer s.rlock()()

	rows, err := s.q.QueryContext(ctx, `
		SELECT employee_id, date, arrival, departure, inside_minutes, outside_minutes, missed_punch
		FROM daily_attendance
		WHERE employee_id = ? AND date >= ? AND date <= ?
		ORDER BY date`,
		employeeID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	var out []attendance.DailyAttendance
	for rows.Next() {
		var (
			a                  attendance.DailyAttendance
			date               string
			arrival, departure sql.NullString
			missed             int
		)
		if err := rows.Scan(&a.EmployeeID, &date, &arrival, &departure,
			&a.InsideMinutes, &a.OutsideMinutes, &missed); err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		if a.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		if a.Arrival, err = parseNullTime(arrival); err != nil {
			return nil, err
		}
		if a.Departure, err = parseNullTime(departure); err != nil {
			return nil, err
		}
		a.MissedPunch = missed == 1
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ApprovedLeavesBetween(ctx context.Context, employeeID generic.EmployeeID, from, to generic.TimePoint) ([]attendance.ApprovedLeave, error) {
	defer s.rlock()()

	rows, err := s.q.QueryContext(ctx, `
		SELECT r.id, r.type_id, COALESCE(t.category, ''), r.from_date, r.to_date, r.half_day,
			(SELECT GROUP_CONCAT(d.leave_date) FROM leave_request_days d WHERE d.request_id = r.id)
		FROM leave_requests r
		LEFT JOIN leave_types t ON t.id = r.type_id
		WHERE r.employee_id = ? AND r.status = ?
		  AND r.from_date <= ? AND r.to_date >= ?
		ORDER BY r.from_date`,
		employeeID, leave.StatusApproved, to.String(), from.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query approved leaves: %w", err)
	}
	defer rows.Close()

	var out []attendance.ApprovedLeave
	for rows.Next() {
		var (
			l          attendance.ApprovedLeave
			start, end string
			halfDay    int
			days       sql.NullString
		)
		if err := rows.Scan(&l.RequestID, &l.TypeID, &l.Category, &start, &end, &halfDay, &days); err != nil {
			return nil, fmt.Errorf("failed to scan approved leave: %w", err)
		}
		if l.FromDate, err = parseDate(start); err != nil {
			return nil, err
		}
		if l.ToDate, err = parseDate(end); err != nil {
			return nil, err
		}
		l.HalfDay = halfDay == 1
		if days.Valid {
			for _, d := range strings.Split(days.String, ",") {
				day, err := parseDate(d)
				if err != nil {
					return nil, err
				}
				l.Days = append(l.Days, day)
			}
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse punch time %q: %w", ns.String, err)
	}
	return &t, nil
}
