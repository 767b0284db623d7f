package leave

import (
	"context"
	"fmt"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// DAY RANGE EXPANDER
// =============================================================================

// DayRange is the set of dates a request consumes.
type DayRange struct {
	Dates []generic.TimePoint // ordered, unique
	Count int
}

// Requested returns the day count charged against the balance.
func (r DayRange) Requested(halfDay bool) generic.Amount {
	n := generic.Days(r.Count)
	if halfDay {
		return n.Half()
	}
	return n
}

// Expand turns [from, to] into leave dates.
//
// Weekends and normal holidays are non-working days. A non-working day
// counts only when sandwich is set and it lies strictly between two working
// days of the range. Restricted holidays are working days: taking one is
// itself a leave.
func Expand(ctx context.Context, cal generic.HolidayCalendar, from, to generic.TimePoint, sandwich bool) (DayRange, error) {
	period, err := generic.NewPeriod(from, to)
	if err != nil {
		return DayRange{}, ErrInvalidRange.With("from date %s is after to date %s", from, to)
	}

	holidays, err := cal.HolidaysBetween(ctx, from, to)
	if err != nil {
		return DayRange{}, fmt.Errorf("load holidays: %w", err)
	}
	return expandWith(period, generic.HolidayIndex(holidays), sandwich), nil
}

func expandWith(period generic.Period, holidays map[generic.TimePoint]generic.Holiday, sandwich bool) DayRange {
	days := period.Days()
	working := make([]bool, len(days))
	first, last := -1, -1
	for i, d := range days {
		working[i] = isWorkingDay(d, holidays)
		if working[i] {
			if first < 0 {
				first = i
			}
			last = i
		}
	}

	var out DayRange
	for i, d := range days {
		if working[i] || (sandwich && first >= 0 && i > first && i < last) {
			out.Dates = append(out.Dates, d)
		}
	}
	out.Count = len(out.Dates)
	return out
}

func isWorkingDay(d generic.TimePoint, holidays map[generic.TimePoint]generic.Holiday) bool {
	if d.IsWeekend() {
		return false
	}
	h, ok := holidays[d.Normalized()]
	return !ok || h.Type != generic.NormalHoliday
}
