package attendance

import (
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// DayInput is everything known about one (employee, day).
type DayInput struct {
	Date            generic.TimePoint
	Today           generic.TimePoint
	Attendance      *DailyAttendance
	Holiday         *generic.Holiday
	Leaves          []ApprovedLeave // approved leaves covering Date, by from-date
	HalfDayLeave    bool            // an approved half-day leave consumed Date
	MinWorkDuration int             // minutes
}

func (in DayInput) hasLeaveOf(c leave.Category) bool {
	for _, l := range in.Leaves {
		if l.Category == c {
			return true
		}
	}
	return false
}

// Classify resolves a day to exactly one status. First match wins:
//
//  1. today                      -> OngoingShift
//  2. Saturday or Sunday         -> NormalHoliday
//  3. attendance recorded        -> Present / HalfDay / IncompleteShift
//  4. normal holiday             -> NormalHoliday
//  5. restricted holiday         -> RestrictedHoliday if taken, else Uncounted
//  6. approved leave             -> WFH or Leave, from the earliest covering leave
//  7. otherwise                  -> Absent
//
// A restricted holiday is taken when any covering leave has the
// RestrictedHoliday category. A half-day leave halves the minimum work
// duration.
func Classify(in DayInput) Status {
	if in.Date.Equal(in.Today) {
		return StatusOngoingShift
	}
	if in.Date.IsWeekend() {
		return StatusNormalHoliday
	}

	if a := in.Attendance; a != nil {
		threshold := in.MinWorkDuration
		if in.HalfDayLeave {
			threshold /= 2
		}
		switch {
		case a.InsideMinutes < threshold:
			return StatusIncompleteShift
		case in.HalfDayLeave:
			return StatusHalfDay
		default:
			return StatusPresent
		}
	}

	if h := in.Holiday; h != nil {
		if h.Type == generic.NormalHoliday {
			return StatusNormalHoliday
		}
		if in.hasLeaveOf(leave.CategoryRestrictedHoliday) {
			return StatusRestrictedHoliday
		}
		return StatusUncounted
	}

	if len(in.Leaves) > 0 {
		if in.Leaves[0].Category == leave.CategoryWorkFromHome {
			return StatusWFH
		}
		return StatusLeave
	}
	return StatusAbsent
}
