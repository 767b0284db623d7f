// Package memory provides an in-memory record store for tests and demos.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/leave-engine/attendance"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements leave.TxStore, attendance.Store and leave.NotificationSink.
type Memory struct {
	mu rwLocker
	d  *data
}

type balanceKey struct {
	EmployeeID generic.EmployeeID
	TypeID     generic.LeaveTypeID
}

type dayKey struct {
	EmployeeID generic.EmployeeID
	Date       generic.TimePoint
}

// Notification is a delivered in-app notification.
type Notification struct {
	EmployeeID generic.EmployeeID
	Message    string
}

type data struct {
	employees     map[generic.EmployeeID]leave.Employee
	types         map[generic.LeaveTypeID]leave.LeaveType
	balances      map[balanceKey]leave.LeaveBalance
	requests      map[generic.RequestID]leave.LeaveRequest
	days          map[generic.RequestID][]leave.LeaveRequestDay
	holidays      map[generic.TimePoint]generic.Holiday
	attendance    map[dayKey]attendance.DailyAttendance
	punches       map[dayKey][]attendance.Punch
	increments    map[generic.LeaveTypeID]generic.TimePoint
	audit         []generic.AuditEntry
	notifications []Notification
}

func New() *Memory {
	return &Memory{
		mu: &sync.RWMutex{},
		d: &data{
			employees:  make(map[generic.EmployeeID]leave.Employee),
			types:      make(map[generic.LeaveTypeID]leave.LeaveType),
			balances:   make(map[balanceKey]leave.LeaveBalance),
			requests:   make(map[generic.RequestID]leave.LeaveRequest),
			days:       make(map[generic.RequestID][]leave.LeaveRequestDay),
			holidays:   make(map[generic.TimePoint]generic.Holiday),
			attendance: make(map[dayKey]attendance.DailyAttendance),
			punches:    make(map[dayKey][]attendance.Punch),
			increments: make(map[generic.LeaveTypeID]generic.TimePoint),
		},
	}
}

var (
	_ leave.TxStore          = (*Memory)(nil)
	_ attendance.Store       = (*Memory)(nil)
	_ leave.NotificationSink = (*Memory)(nil)
)

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(leave.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.d.clone()
	view := &Memory{mu: noLock{}, d: m.d}
	if err := fn(view); err != nil {
		*m.d = *snapshot
		return err
	}
	return nil
}

func (d *data) clone() *data {
	c := &data{
		employees:     make(map[generic.EmployeeID]leave.Employee, len(d.employees)),
		types:         make(map[generic.LeaveTypeID]leave.LeaveType, len(d.types)),
		balances:      make(map[balanceKey]leave.LeaveBalance, len(d.balances)),
		requests:      make(map[generic.RequestID]leave.LeaveRequest, len(d.requests)),
		days:          make(map[generic.RequestID][]leave.LeaveRequestDay, len(d.days)),
		holidays:      make(map[generic.TimePoint]generic.Holiday, len(d.holidays)),
		attendance:    make(map[dayKey]attendance.DailyAttendance, len(d.attendance)),
		punches:       make(map[dayKey][]attendance.Punch, len(d.punches)),
		increments:    make(map[generic.LeaveTypeID]generic.TimePoint, len(d.increments)),
		audit:         append([]generic.AuditEntry(nil), d.audit...),
		notifications: append([]Notification(nil), d.notifications...),
	}
	for k, v := range d.employees {
		c.employees[k] = v
	}
	for k, v := range d.types {
		c.types[k] = v
	}
	for k, v := range d.balances {
		c.balances[k] = v
	}
	for k, v := range d.requests {
		c.requests[k] = v
	}
	for k, v := range d.days {
		c.days[k] = append([]leave.LeaveRequestDay(nil), v...)
	}
	for k, v := range d.holidays {
		c.holidays[k] = v
	}
	for k, v := range d.attendance {
		c.attendance[k] = v
	}
	for k, v := range d.punches {
		c.punches[k] = append([]attendance.Punch(nil), v...)
	}
	for k, v := range d.increments {
		c.increments[k] = v
	}
	return c
}

type rwLocker interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

// noLock is used by the transactional view; WithTx already holds the lock.
type noLock struct{}

func (noLock) Lock()    {}
func (noLock) Unlock()  {}
func (noLock) RLock()   {}
func (noLock) RUnlock() {}

// =============================================================================
// SEEDING
// =============================================================================

func (m *Memory) AddEmployee(e leave.Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.d.employees[e.ID] = e
}

func (m *Memory) AddLeaveType(t leave.LeaveType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.d.types[t.ID] = t
}

func (m *Memory) AddHoliday(h generic.Holiday) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.d.holidays[h.Date.Normalized()] = h
}

func (m *Memory) AddAttendance(a attendance.DailyAttendance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.d.attendance[dayKey{a.EmployeeID, a.Date.Normalized()}] = a
}

func (m *Memory) AddPunch(p attendance.Punch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := dayKey{p.EmployeeID, p.Date.Normalized()}
	m.d.punches[k] = append(m.d.punches[k], p)
}

// Notifications returns delivered notifications in order.
func (m *Memory) Notifications() []Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Notification(nil), m.d.notifications...)
}

// =============================================================================
// EMPLOYEES AND TYPES
// =============================================================================

func (m *Memory) GetEmployee(_ context.Context, id generic.EmployeeID) (leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.d.employees[id]
	if !ok {
		return leave.Employee{}, leave.ErrEmployeeNotFound.With("no such employee %s", id)
	}
	return e, nil
}

func (m *Memory) ListEmployees(_ context.Context, activeOnly bool) ([]leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []leave.Employee
	for _, e := range m.d.employees {
		if activeOnly && !e.Active {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetLeaveType(_ context.Context, id generic.LeaveTypeID) (leave.LeaveType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.d.types[id]
	if !ok {
		return leave.LeaveType{}, leave.ErrLeaveTypeNotFound.With("no such leave type %s", id)
	}
	return t, nil
}

func (m *Memory) ListLeaveTypes(_ context.Context) ([]leave.LeaveType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]leave.LeaveType, 0, len(m.d.types))
	for _, t := range m.d.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// BALANCES
// =============================================================================

func (m *Memory) GetBalance(_ context.Context, employeeID generic.EmployeeID, typeID generic.LeaveTypeID) (leave.LeaveBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.d.balances[balanceKey{employeeID, typeID}]
	if !ok {
		return leave.LeaveBalance{}, leave.ErrBalanceNotFound.With("leave balance not found for employee %s and type %s", employeeID, typeID)
	}
	return b, nil
}

func (m *Memory) PutBalance(_ context.Context, b leave.LeaveBalance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.Balance = b.Balance.Round()
	m.d.balances[balanceKey{b.EmployeeID, b.TypeID}] = b
	return nil
}

func (m *Memory) ReservedDays(_ context.Context, q leave.ReservationQuery) (leave.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	types := make(map[generic.LeaveTypeID]bool, len(q.TypeIDs))
	for _, id := range q.TypeIDs {
		types[id] = true
	}
	var res leave.Reservation
	for id, req := range m.d.requests {
		if req.EmployeeID != q.EmployeeID || !types[req.TypeID] || req.Status != leave.StatusOpen {
			continue
		}
		if q.RetroactiveOnly && !req.Retroactive() {
			continue
		}
		n := len(m.d.days[id])
		if req.HalfDay {
			res.HalfDays += n
		} else {
			res.FullDays += n
		}
	}
	return res, nil
}

// =============================================================================
// REQUESTS
// =============================================================================

func (m *Memory) AppliedDates(_ context.Context, employeeID generic.EmployeeID, typeID generic.LeaveTypeID, dates []generic.TimePoint) ([]generic.TimePoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[generic.TimePoint]bool, len(dates))
	for _, d := range dates {
		wanted[d.Normalized()] = true
	}
	seen := make(map[generic.TimePoint]bool)
	var out []generic.TimePoint
	for id, req := range m.d.requests {
		if req.EmployeeID != employeeID || req.TypeID != typeID || !req.Status.Reserving() {
			continue
		}
		for _, day := range m.d.days[id] {
			k := day.Date.Normalized()
			if wanted[k] && !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (m *Memory) CreateRequest(_ context.Context, req leave.LeaveRequest, days []leave.LeaveRequestDay) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.d.requests[req.ID] = req
	m.d.days[req.ID] = append([]leave.LeaveRequestDay(nil), days...)
	return nil
}

func (m *Memory) GetRequest(_ context.Context, id generic.RequestID) (leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.d.requests[id]
	if !ok {
		return leave.LeaveRequest{}, leave.ErrRequestNotFound.With("no such leave request %s", id)
	}
	return req, nil
}

func (m *Memory) RequestDays(_ context.Context, id generic.RequestID) ([]leave.LeaveRequestDay, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.d.requests[id]; !ok {
		return nil, leave.ErrRequestNotFound.With("no such leave request %s", id)
	}
	return append([]leave.LeaveRequestDay(nil), m.d.days[id]...), nil
}

func (m *Memory) ListRequests(_ context.Context, f leave.RequestFilter) (leave.RequestPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f = f.Normalize()
	var all []leave.LeaveRequest
	for _, req := range m.d.requests {
		if req.EmployeeID != f.EmployeeID {
			continue
		}
		if f.Status != nil && req.Status != *f.Status {
			continue
		}
		all = append(all, req)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	page := leave.RequestPage{Total: len(all)}
	start := f.Page * f.Size
	if start >= len(all) {
		return page, nil
	}
	end := start + f.Size
	if end > len(all) {
		end = len(all)
	}
	page.Requests = all[start:end]
	return page, nil
}

func (m *Memory) UpdateRequestStatus(_ context.Context, id generic.RequestID, status leave.Status, processedBy generic.EmployeeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.d.requests[id]
	if !ok {
		return leave.ErrRequestNotFound.With("no such leave request %s", id)
	}
	if !req.Status.CanTransitionTo(status) {
		return leave.ErrInvalidTransition.With("leave request cannot move from %s to %s", req.Status, status)
	}
	req.Status = status
	req.ProcessedBy = processedBy
	m.d.requests[id] = req
	return nil
}

// =============================================================================
// INCREMENTS
// =============================================================================

func (m *Memory) LastIncrement(_ context.Context, typeID generic.LeaveTypeID) (generic.TimePoint, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	at, ok := m.d.increments[typeID]
	return at, ok, nil
}

func (m *Memory) RecordIncrement(_ context.Context, typeID generic.LeaveTypeID, at generic.TimePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.d.increments[typeID] = at
	return nil
}

// =============================================================================
// CALENDAR AND ATTENDANCE
// =============================================================================

func (m *Memory) HolidaysBetween(_ context.Context, from, to generic.TimePoint) ([]generic.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := generic.Period{Start: from, End: to}
	var out []generic.Holiday
	for d, h := range m.d.holidays {
		if p.Contains(d) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) AttendanceBetween(_ context.Context, employeeID generic.EmployeeID, from, to generic.TimePoint) ([]attendance.DailyAttendance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := generic.Period{Start: from, End: to}
	var out []attendance.DailyAttendance
	for k, a := range m.d.attendance {
		if k.EmployeeID == employeeID && p.Contains(k.Date) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) Punches(_ context.Context, employeeID generic.EmployeeID, date generic.TimePoint) ([]attendance.Punch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]attendance.Punch(nil), m.d.punches[dayKey{employeeID, date.Normalized()}]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func (m *Memory) ApprovedLeavesBetween(_ context.Context, employeeID generic.EmployeeID, from, to generic.TimePoint) ([]attendance.ApprovedLeave, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	window := generic.Period{Start: from, End: to}
	var out []attendance.ApprovedLeave
	for _, req := range m.d.requests {
		if req.EmployeeID != employeeID || req.Status != leave.StatusApproved {
			continue
		}
		if !window.Overlaps(generic.Period{Start: req.FromDate, End: req.ToDate}) {
			continue
		}
		l := attendance.ApprovedLeave{
			RequestID: req.ID,
			TypeID:    req.TypeID,
			Category:  m.d.types[req.TypeID].Category,
			FromDate:  req.FromDate,
			ToDate:    req.ToDate,
			HalfDay:   req.HalfDay,
		}
		for _, day := range m.d.days[req.ID] {
			l.Days = append(l.Days, day.Date)
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FromDate.Before(out[j].FromDate) })
	return out, nil
}

// =============================================================================
// AUDIT AND NOTIFICATIONS
// =============================================================================

func (m *Memory) AppendAudit(_ context.Context, entry generic.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.d.audit = append(m.d.audit, entry)
	return nil
}

func (m *Memory) QueryAudit(_ context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []generic.AuditEntry
	for _, e := range m.d.audit {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Notify stores one notification per employee.
func (m *Memory) Notify(_ context.Context, employeeIDs []generic.EmployeeID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range employeeIDs {
		m.d.notifications = append(m.d.notifications, Notification{EmployeeID: id, Message: message})
	}
	return nil
}
