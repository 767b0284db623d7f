package generic

import (
	"context"
	"time"
)

// =============================================================================
// TIME POINT - Calendar day abstraction
// =============================================================================

// DateLayout is the wire and storage format of a calendar day.
const DateLayout = "2006-01-02"

// TimePoint is a calendar day. The time-of-day part is always midnight UTC.
type TimePoint struct {
	Time time.Time
}

func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates any instant to its calendar day in the instant's own location.
func DateOf(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TimePoint{}, err
	}
	return DateOf(t), nil
}

func MustParseDate(s string) TimePoint {
	tp, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return tp
}

// Today returns the current UTC calendar day. Engines never call it directly;
// the caller injects "today" so every decision is reproducible.
func Today() TimePoint {
	return DateOf(time.Now().UTC())
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Normalized returns the day at midnight UTC. Use it for map keys.
func (tp TimePoint) Normalized() TimePoint { return TimePoint{Time: tp.normalize()} }

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return TimePoint{Time: tp.normalize().AddDate(0, 0, n)} }
func (tp TimePoint) AddMonths(n int) TimePoint {
	return TimePoint{Time: tp.normalize().AddDate(0, n, 0)}
}

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }

func (tp TimePoint) IsWeekend() bool {
	wd := tp.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (tp TimePoint) String() string {
	return tp.Time.Format(DateLayout)
}

func (tp TimePoint) MarshalText() ([]byte, error) {
	return []byte(tp.String()), nil
}

func (tp *TimePoint) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*tp = parsed
	return nil
}

// DaysBetween returns to - from in whole days (negative when to is earlier).
func DaysBetween(from, to TimePoint) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }

func EndOfMonth(year int, month time.Month) TimePoint {
	return StartOfMonth(year, month).AddMonths(1).AddDays(-1)
}

// MinDate returns the earlier of two days.
func MinDate(a, b TimePoint) TimePoint {
	if a.Before(b) {
		return a
	}
	return b
}

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// HolidayType distinguishes company-wide holidays from optional ones an
// employee must explicitly apply for.
type HolidayType string

const (
	NormalHoliday     HolidayType = "normal"
	RestrictedHoliday HolidayType = "restricted"
)

func (t HolidayType) Valid() bool {
	return t == NormalHoliday || t == RestrictedHoliday
}

// Holiday is a company holiday on a calendar day.
type Holiday struct {
	ID   string
	Date TimePoint
	Name string
	Type HolidayType
}

// HolidayCalendar is read-only access to holidays. Implemented by the record
// stores; may fail with an infrastructure error.
type HolidayCalendar interface {
	// HolidaysBetween returns holidays in [from, to], ordered by date.
	HolidaysBetween(ctx context.Context, from, to TimePoint) ([]Holiday, error)
}

// HolidayIndex returns the holidays keyed by day.
func HolidayIndex(holidays []Holiday) map[TimePoint]Holiday {
	idx := make(map[TimePoint]Holiday, len(holidays))
	for _, h := range holidays {
		idx[h.Date.Normalized()] = h
	}
	return idx
}
