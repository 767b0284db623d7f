package generic

import "time"

// =============================================================================
// PERIOD - Inclusive day range
// =============================================================================

// Period is an inclusive range of calendar days [Start, End].
//
// Examples:
//   - A leave request: 2024-01-10 .. 2024-01-11
//   - An attendance month: 2024-02-01 .. 2024-02-29
type Period struct {
	Start TimePoint
	End   TimePoint
}

// NewPeriod builds [start, end]. Returns ErrInvalidPeriod when end is before start.
func NewPeriod(start, end TimePoint) (Period, error) {
	if end.Before(start) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Start: start, End: end}, nil
}

// MonthPeriod returns the whole calendar month.
func MonthPeriod(year int, month time.Month) Period {
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Overlaps returns true if both periods share at least one day.
func (p Period) Overlaps(o Period) bool {
	return p.Start.BeforeOrEqual(o.End) && o.Start.BeforeOrEqual(p.End)
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	current := p.Start.Normalized()
	for current.BeforeOrEqual(p.End) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

// Length is the number of calendar days in the period.
func (p Period) Length() int {
	return DaysBetween(p.Start, p.End) + 1
}

// ClampEnd returns the period cut off at last. The result may be empty
// (End before Start) when last precedes Start.
func (p Period) ClampEnd(last TimePoint) Period {
	return Period{Start: p.Start, End: MinDate(p.End, last)}
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
