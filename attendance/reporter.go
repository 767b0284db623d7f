/*
reporter.go - Daily detail and monthly summaries

PURPOSE:

	Loads the records of an employee for a day or a month and runs Classify
	on each working day. Read-only: summaries of different employees run
	concurrently.

MONTHLY SUMMARY:

	Iterates month-start .. min(month-end, today). Weekends are skipped and
	not counted at all. Uncounted days (untaken restricted holidays) add to
	no counter.

HOLIDAY CACHE:

	Holidays are shared by every employee, so concurrent summaries of the
	same month load them once (singleflight) and reuse them for HolidayTTL.

SEE ALSO:
  - classify.go: per-day rules
*/
package attendance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/warp/leave-engine/generic"
)

// Summary counts statuses of one employee over one month.
type Summary struct {
	EmployeeID        generic.EmployeeID `json:"employeeId"`
	Year              int                `json:"year"`
	Month             time.Month         `json:"month"`
	Present           int                `json:"present"`
	Absent            int                `json:"absent"`
	IncompleteShift   int                `json:"incompleteShift"`
	RestrictedHoliday int                `json:"restrictedHoliday"`
	NormalHoliday     int                `json:"normalHoliday"`
	WFH               int                `json:"wfh"`
	Leave             int                `json:"leave"`
	HalfDay           int                `json:"halfDay"`
	OngoingShift      int                `json:"ongoingShift"`
}

func (s *Summary) add(st Status) {
	switch st {
	case StatusPresent:
		s.Present++
	case StatusAbsent:
		s.Absent++
	case StatusIncompleteShift:
		s.IncompleteShift++
	case StatusRestrictedHoliday:
		s.RestrictedHoliday++
	case StatusNormalHoliday:
		s.NormalHoliday++
	case StatusWFH:
		s.WFH++
	case StatusLeave:
		s.Leave++
	case StatusHalfDay:
		s.HalfDay++
	case StatusOngoingShift:
		s.OngoingShift++
	}
}

// DailyDetail is the classified status of a day with its punch summary.
type DailyDetail struct {
	EmployeeID     generic.EmployeeID `json:"employeeId"`
	Date           generic.TimePoint  `json:"date"`
	Status         Status             `json:"status"`
	Arrival        *time.Time         `json:"arrival,omitempty"`
	Departure      *time.Time         `json:"departure,omitempty"`
	InsideMinutes  int                `json:"insideMinutes"`
	OutsideMinutes int                `json:"outsideMinutes"`
	MissedPunch    bool               `json:"missedPunch"`
	Punches        []Punch            `json:"punches,omitempty"`
}

type Options struct {
	MinWorkDuration int           // minutes; DefaultMinWorkDuration when <= 0
	Concurrency     int           // parallel summaries; 4 when <= 0
	HolidayTTL      time.Duration // holiday cache lifetime; 5m when <= 0
}

type Reporter struct {
	store Store
	opts  Options
	log   *zap.Logger

	sf       singleflight.Group
	mu       sync.Mutex
	holidays map[string]cachedHolidays
	now      func() time.Time
}

type cachedHolidays struct {
	loadedAt time.Time
	days     map[generic.TimePoint]generic.Holiday
}

func NewReporter(store Store, opts Options, logger ...*zap.Logger) *Reporter {
	log := zap.L()
	if len(logger) > 0 && logger[0] != nil {
		log = logger[0]
	}
	if opts.MinWorkDuration <= 0 {
		opts.MinWorkDuration = DefaultMinWorkDuration
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.HolidayTTL <= 0 {
		opts.HolidayTTL = 5 * time.Minute
	}
	return &Reporter{
		store:    store,
		opts:     opts,
		log:      log.Named("attendance.reporter"),
		holidays: make(map[string]cachedHolidays),
		now:      time.Now,
	}
}

// =============================================================================
// DAILY DETAIL
// =============================================================================

func (r *Reporter) DailyDetail(ctx context.Context, today generic.TimePoint, employeeID generic.EmployeeID, date generic.TimePoint) (DailyDetail, error) {
	holidays, err := r.monthHolidays(ctx, date.Year(), date.Month())
	if err != nil {
		return DailyDetail{}, err
	}
	rows, err := r.store.AttendanceBetween(ctx, employeeID, date, date)
	if err != nil {
		return DailyDetail{}, fmt.Errorf("load attendance: %w", err)
	}
	leaves, err := r.store.ApprovedLeavesBetween(ctx, employeeID, date, date)
	if err != nil {
		return DailyDetail{}, fmt.Errorf("load approved leaves: %w", err)
	}

	in := r.dayInput(today, date, indexAttendance(rows), holidays, leaves)
	detail := DailyDetail{EmployeeID: employeeID, Date: date, Status: Classify(in)}
	if a := in.Attendance; a != nil {
		detail.Arrival = a.Arrival
		detail.Departure = a.Departure
		detail.InsideMinutes = a.InsideMinutes
		detail.OutsideMinutes = a.OutsideMinutes
		detail.MissedPunch = a.MissedPunch

		punches, err := r.store.Punches(ctx, employeeID, date)
		if err != nil {
			return DailyDetail{}, fmt.Errorf("load punches: %w", err)
		}
		detail.Punches = punches
	}
	return detail, nil
}

// =============================================================================
// MONTHLY SUMMARY
// =============================================================================

func (r *Reporter) MonthlySummary(ctx context.Context, today generic.TimePoint, employeeID generic.EmployeeID, year int, month time.Month) (Summary, error) {
	summary := Summary{EmployeeID: employeeID, Year: year, Month: month}
	window := generic.MonthPeriod(year, month).ClampEnd(today)
	if window.End.Before(window.Start) {
		return summary, nil
	}

	holidays, err := r.monthHolidays(ctx, year, month)
	if err != nil {
		return summary, err
	}
	rows, err := r.store.AttendanceBetween(ctx, employeeID, window.Start, window.End)
	if err != nil {
		return summary, fmt.Errorf("load attendance: %w", err)
	}
	leaves, err := r.store.ApprovedLeavesBetween(ctx, employeeID, window.Start, window.End)
	if err != nil {
		return summary, fmt.Errorf("load approved leaves: %w", err)
	}

	byDay := indexAttendance(rows)
	for _, day := range window.Days() {
		if day.IsWeekend() {
			continue
		}
		summary.add(Classify(r.dayInput(today, day, byDay, holidays, leaves)))
	}
	return summary, nil
}

// Summaries computes MonthlySummary for every employee concurrently.
// The result is in the order of employeeIDs.
func (r *Reporter) Summaries(ctx context.Context, today generic.TimePoint, employeeIDs []generic.EmployeeID, year int, month time.Month) ([]Summary, error) {
	out := make([]Summary, len(employeeIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i, id := range employeeIDs {
		g.Go(func() error {
			s, err := r.MonthlySummary(gctx, today, id, year, month)
			if err != nil {
				return fmt.Errorf("summary for %s: %w", id, err)
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.log.Error("monthly summaries failed", zap.Int("year", year), zap.Stringer("month", month), zap.Error(err))
		return nil, err
	}
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (r *Reporter) dayInput(today, day generic.TimePoint, byDay map[generic.TimePoint]DailyAttendance, holidays map[generic.TimePoint]generic.Holiday, leaves []ApprovedLeave) DayInput {
	in := DayInput{Date: day, Today: today, MinWorkDuration: r.opts.MinWorkDuration}
	key := day.Normalized()
	if a, ok := byDay[key]; ok {
		in.Attendance = &a
	}
	if h, ok := holidays[key]; ok {
		in.Holiday = &h
	}
	for _, l := range leaves {
		if l.HalfDay && l.Consumes(day) {
			in.HalfDayLeave = true
		}
		if l.Covers(day) {
			in.Leaves = append(in.Leaves, l)
		}
	}
	return in
}

func indexAttendance(rows []DailyAttendance) map[generic.TimePoint]DailyAttendance {
	idx := make(map[generic.TimePoint]DailyAttendance, len(rows))
	for _, a := range rows {
		idx[a.Date.Normalized()] = a
	}
	return idx
}

func (r *Reporter) monthHolidays(ctx context.Context, year int, month time.Month) (map[generic.TimePoint]generic.Holiday, error) {
	key := fmt.Sprintf("%04d-%02d", year, month)

	r.mu.Lock()
	c, ok := r.holidays[key]
	r.mu.Unlock()
	if ok && r.now().Sub(c.loadedAt) < r.opts.HolidayTTL {
		return c.days, nil
	}

	v, err, _ := r.sf.Do(key, func() (any, error) {
		p := generic.MonthPeriod(year, month)
		hs, err := r.store.HolidaysBetween(ctx, p.Start, p.End)
		if err != nil {
			return nil, fmt.Errorf("load holidays: %w", err)
		}
		days := generic.HolidayIndex(hs)
		r.mu.Lock()
		r.holidays[key] = cachedHolidays{loadedAt: r.now(), days: days}
		r.mu.Unlock()
		return days, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[generic.TimePoint]generic.Holiday), nil
}

// InvalidateHolidays drops every cached holiday calendar. Call it after the
// holiday table changes.
func (r *Reporter) InvalidateHolidays() {
	r.mu.Lock()
	r.holidays = make(map[string]cachedHolidays)
	r.mu.Unlock()
}
