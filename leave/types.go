// Package leave adjudicates leave applications: it expands the requested
// range into leave days, checks the balance ledger, runs the eligibility
// decision table and records admitted requests.
package leave

import (
	"time"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// LEAVE CATEGORY
// =============================================================================

// Category drives policy. Types are configured by HR; categories are fixed.
type Category string

const (
	CategoryCasual            Category = "casual"
	CategoryPrivilege         Category = "privilege"
	CategoryMaternity         Category = "maternity"
	CategoryPaternity         Category = "paternity"
	CategoryEmergency         Category = "emergency"
	CategoryBereavement       Category = "bereavement"
	CategoryRestrictedHoliday Category = "restricted_holiday"
	CategoryWorkFromHome      Category = "work_from_home"
	CategoryOther             Category = "other"
)

// BorrowsEmergency reports whether retroactive requests of this category draw
// on the Emergency type's balance.
func (c Category) BorrowsEmergency() bool {
	return c == CategoryCasual || c == CategoryPrivilege
}

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// =============================================================================
// LEAVE TYPE
// =============================================================================

// LeaveType is an HR-configured kind of leave. Nil pointer fields are unset.
type LeaveType struct {
	ID             generic.LeaveTypeID
	Name           string
	Category       Category
	MaxDays        *int
	HalfDayAllowed bool
	Sandwich       bool

	// DutyDaysRequired is the minimum tenure in days before the type may be used.
	DutyDaysRequired *int

	// Notice window. Requests longer than DaysCheck need DaysCheckMore days of
	// notice; shorter ones need DaysCheckEqualOrLess.
	DaysCheck            *int
	DaysCheckMore        *int
	DaysCheckEqualOrLess *int

	// Increment policy: every IncrementGapMonths months add IncrementCount days.
	IncrementCount     generic.Amount
	IncrementGapMonths int

	CarryForward      bool
	CarryForwardLimit *int
}

// =============================================================================
// EMPLOYEE
// =============================================================================

type Employee struct {
	ID          generic.EmployeeID
	Code        string
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Role        string
	Gender      *Gender
	ManagerID   *generic.EmployeeID
	JoiningDate *generic.TimePoint
	Active      bool
}

func (e Employee) FullName() string {
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

// =============================================================================
// LEAVE REQUEST
// =============================================================================

type Status string

const (
	StatusOpen     Status = "open"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusDeleted  Status = "deleted"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusApproved, StatusRejected, StatusDeleted:
		return true
	}
	return false
}

// CanTransitionTo encodes the linear lifecycle:
// Open -> {Approved, Rejected, Deleted}; {Approved, Rejected} -> Deleted.
func (s Status) CanTransitionTo(to Status) bool {
	switch s {
	case StatusOpen:
		return to == StatusApproved || to == StatusRejected || to == StatusDeleted
	case StatusApproved, StatusRejected:
		return to == StatusDeleted
	}
	return false
}

// Reserving reports whether days of a request in this status block the
// same dates for a new request.
func (s Status) Reserving() bool {
	return s == StatusOpen || s == StatusApproved
}

type LeaveRequest struct {
	ID          generic.RequestID
	EmployeeID  generic.EmployeeID
	TypeID      generic.LeaveTypeID
	HalfDay     bool
	FromDate    generic.TimePoint
	ToDate      generic.TimePoint
	ApplyDate   generic.TimePoint
	Status      Status
	Description string
	ProcessedBy generic.EmployeeID
	CreatedAt   time.Time
}

// Retroactive reports whether the request was filed on or after its start date.
func (r LeaveRequest) Retroactive() bool {
	return r.ApplyDate.AfterOrEqual(r.FromDate)
}

// LeaveRequestDay is one calendar date consumed by a request.
type LeaveRequestDay struct {
	ID        string
	RequestID generic.RequestID
	Date      generic.TimePoint
}

// LeaveBalance is the stored balance for (employee, type).
type LeaveBalance struct {
	EmployeeID generic.EmployeeID
	TypeID     generic.LeaveTypeID
	Balance    generic.Amount
}

// =============================================================================
// APPLICATION - Input to the engine
// =============================================================================

// Application is what an employee files.
type Application struct {
	EmployeeID  generic.EmployeeID  `json:"employeeId" validate:"required"`
	TypeID      generic.LeaveTypeID `json:"typeId" validate:"required"`
	FromDate    generic.TimePoint   `json:"fromDate"`
	ToDate      generic.TimePoint   `json:"toDate"`
	HalfDay     bool                `json:"halfDay"`
	Description string              `json:"description" validate:"max=500"`
}

// RequestFilter selects a page of an employee's request history.
type RequestFilter struct {
	EmployeeID generic.EmployeeID
	Status     *Status
	Page       int // zero-based
	Size       int
}

// Normalize applies paging defaults.
func (f RequestFilter) Normalize() RequestFilter {
	if f.Page < 0 {
		f.Page = 0
	}
	if f.Size <= 0 {
		f.Size = 1
	}
	return f
}

// RequestPage is one page of history with the total match count.
type RequestPage struct {
	Requests []LeaveRequest
	Total    int
}
