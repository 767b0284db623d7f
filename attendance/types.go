// Package attendance classifies each working day of an employee into a
// single attendance status and aggregates the statuses of a month.
package attendance

import (
	"context"
	"time"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// DefaultMinWorkDuration is the minimum inside duration, in minutes, of a
// full working day.
const DefaultMinWorkDuration = 360

type Status string

const (
	StatusOngoingShift      Status = "ongoing_shift"
	StatusNormalHoliday     Status = "normal_holiday"
	StatusRestrictedHoliday Status = "restricted_holiday"
	StatusPresent           Status = "present"
	StatusHalfDay           Status = "half_day"
	StatusIncompleteShift   Status = "incomplete_shift"
	StatusWFH               Status = "wfh"
	StatusLeave             Status = "leave"
	StatusAbsent            Status = "absent"

	// StatusUncounted marks a restricted holiday the employee did not take.
	// Summaries do not count it.
	StatusUncounted Status = "uncounted"
)

// DailyAttendance is the punch summary of one employee for one day.
type DailyAttendance struct {
	EmployeeID     generic.EmployeeID
	Date           generic.TimePoint
	Arrival        *time.Time
	Departure      *time.Time
	InsideMinutes  int
	OutsideMinutes int
	MissedPunch    bool
}

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Punch is one swipe at an attendance device.
type Punch struct {
	EmployeeID generic.EmployeeID `json:"-"`
	Date       generic.TimePoint  `json:"-"`
	Time       time.Time          `json:"time"`
	Device     string             `json:"device"`
	Direction  Direction          `json:"direction"`
}

// ApprovedLeave is an approved request as seen by attendance.
type ApprovedLeave struct {
	RequestID generic.RequestID
	TypeID    generic.LeaveTypeID
	Category  leave.Category
	FromDate  generic.TimePoint
	ToDate    generic.TimePoint
	HalfDay   bool

	// Days are the dates the request consumed. Empty when the store did not
	// record them.
	Days []generic.TimePoint
}

// Covers reports whether d lies in [FromDate, ToDate].
func (l ApprovedLeave) Covers(d generic.TimePoint) bool {
	return d.AfterOrEqual(l.FromDate) && d.BeforeOrEqual(l.ToDate)
}

// Consumes reports whether the request consumed d. Without recorded days it
// falls back to Covers.
func (l ApprovedLeave) Consumes(d generic.TimePoint) bool {
	if len(l.Days) == 0 {
		return l.Covers(d)
	}
	for _, day := range l.Days {
		if day.Equal(d) {
			return true
		}
	}
	return false
}

// Store is the read side attendance needs. Implemented by the record stores.
type Store interface {
	generic.HolidayCalendar

	// AttendanceBetween returns attendance rows in [from, to].
	AttendanceBetween(ctx context.Context, employeeID generic.EmployeeID, from, to generic.TimePoint) ([]DailyAttendance, error)

	// Punches returns the punch log of one day, oldest first.
	Punches(ctx context.Context, employeeID generic.EmployeeID, date generic.TimePoint) ([]Punch, error)

	// ApprovedLeavesBetween returns Approved requests overlapping [from, to].
	ApprovedLeavesBetween(ctx context.Context, employeeID generic.EmployeeID, from, to generic.TimePoint) ([]ApprovedLeave, error)
}
