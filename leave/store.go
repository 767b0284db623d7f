/*
store.go - Record store consumed by the leave engine

PURPOSE:

	The engine never talks to a database directly. It reads employees, types,
	balances, requests and holidays through Store and writes an admitted
	request with its days in one call. TxStore scopes a whole adjudication
	(reads + write) to one transaction.

ERRORS:

	Missing records are returned wrapped around the matching NotFound
	sentinel (ErrEmployeeNotFound, ErrLeaveTypeNotFound, ...). Anything else
	is treated as an infrastructure failure.

IMPLEMENTATIONS:
  - store/sqlite: SQLite
  - store/memory: in-memory with snapshot rollback
*/
package leave

import (
	"context"

	"github.com/warp/leave-engine/generic"
)

// Reservation counts the leave days held by Open requests.
type Reservation struct {
	FullDays int // days of non-half-day requests
	HalfDays int // days of half-day requests
}

// Amount is FullDays + 0.5 * HalfDays.
func (r Reservation) Amount() generic.Amount {
	return generic.Days(r.FullDays).Add(generic.Days(r.HalfDays).Half())
}

// ReservationQuery selects the Open requests whose days reserve balance.
type ReservationQuery struct {
	EmployeeID generic.EmployeeID
	TypeIDs    []generic.LeaveTypeID

	// RetroactiveOnly restricts to requests with ApplyDate >= FromDate.
	RetroactiveOnly bool
}

type Store interface {
	generic.HolidayCalendar
	generic.AuditLog

	GetEmployee(ctx context.Context, id generic.EmployeeID) (Employee, error)
	ListEmployees(ctx context.Context, activeOnly bool) ([]Employee, error)

	GetLeaveType(ctx context.Context, id generic.LeaveTypeID) (LeaveType, error)
	ListLeaveTypes(ctx context.Context) ([]LeaveType, error)

	GetBalance(ctx context.Context, employeeID generic.EmployeeID, typeID generic.LeaveTypeID) (LeaveBalance, error)
	PutBalance(ctx context.Context, balance LeaveBalance) error

	// ReservedDays counts LeaveRequestDay rows of matching Open requests.
	ReservedDays(ctx context.Context, q ReservationQuery) (Reservation, error)

	// AppliedDates returns which of dates already belong to an Open or
	// Approved request of (employee, type).
	AppliedDates(ctx context.Context, employeeID generic.EmployeeID, typeID generic.LeaveTypeID, dates []generic.TimePoint) ([]generic.TimePoint, error)

	// CreateRequest writes the request and its days together.
	CreateRequest(ctx context.Context, req LeaveRequest, days []LeaveRequestDay) error
	GetRequest(ctx context.Context, id generic.RequestID) (LeaveRequest, error)
	RequestDays(ctx context.Context, id generic.RequestID) ([]LeaveRequestDay, error)
	ListRequests(ctx context.Context, filter RequestFilter) (RequestPage, error)
	UpdateRequestStatus(ctx context.Context, id generic.RequestID, status Status, processedBy generic.EmployeeID) error

	// LastIncrement returns the day the increment policy of a type last ran.
	LastIncrement(ctx context.Context, typeID generic.LeaveTypeID) (generic.TimePoint, bool, error)
	RecordIncrement(ctx context.Context, typeID generic.LeaveTypeID, at generic.TimePoint) error
}

// TxStore wraps Store with transaction support.
// If fn returns error, every write made through the Store passed to fn is
// rolled back.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// FindTypeByCategory returns the first configured type of a category.
func FindTypeByCategory(types []LeaveType, c Category) (LeaveType, bool) {
	for _, t := range types {
		if t.Category == c {
			return t, true
		}
	}
	return LeaveType{}, false
}
