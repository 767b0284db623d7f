/*
rules.go - Eligibility decision table

PURPOSE:

	Decides whether an application may be recorded. The decision is a single
	deterministic pass: two pre-route guards, a route chosen from the temporal
	relation between today and the start date, that route's ordered guards,
	and a final zero-day guard. The first failing guard rejects.

ROUTES:

	work_from_home    WFH type, starts after today
	future_full_day   starts after today, not Bereavement, full day
	future_half_day   starts after today, not Bereavement, half day
	retroactive       starts today or earlier
	invalid           anything else (e.g. future Bereavement)

RETROACTIVE ASYMMETRY:

	Only Bereavement and Casual/Privilege may be filed for today or the past.
	Casual/Privilege must also be covered by the Emergency type's balance;
	the request keeps its own type and requested days.

PURITY:

	Decide performs no I/O. The engine loads an Evaluation and calls it,
	so every leaf outcome is testable with plain structs.
*/
package leave

import (
	"github.com/warp/leave-engine/generic"
)

type Route string

const (
	RouteWorkFromHome  Route = "work_from_home"
	RouteFutureFullDay Route = "future_full_day"
	RouteFutureHalfDay Route = "future_half_day"
	RouteRetroactive   Route = "retroactive"
	RouteInvalid       Route = "invalid"
)

// Evaluation is everything a decision depends on.
type Evaluation struct {
	Today       generic.TimePoint
	Application Application
	Employee    Employee
	Type        LeaveType
	Range       DayRange
	Balance     Snapshot

	// AppliedDates are requested dates already held by an Open or Approved
	// request of the same type.
	AppliedDates []generic.TimePoint

	// RestrictedHolidays counts restricted holidays in [FromDate, ToDate].
	RestrictedHolidays int

	// Emergency is the Emergency balance; set when the route borrows from it.
	Emergency *Snapshot
}

// Requested is the day count charged against the balance.
func (ev *Evaluation) Requested() generic.Amount {
	return ev.Range.Requested(ev.Application.HalfDay)
}

// notice is the number of days between today and the start date.
func (ev *Evaluation) notice() int {
	return generic.DaysBetween(ev.Today, ev.Application.FromDate)
}

// Decision is the tagged outcome of Decide.
type Decision struct {
	Route    Route
	Admitted bool
	Err      error
	Trail    []string // guards passed, in order; a failing guard is last
	Borrowed bool     // balance drawn from the Emergency type
}

type guard struct {
	name  string
	check func(ev *Evaluation) error
}

// =============================================================================
// DECISION TABLE
// =============================================================================

var preRouteGuards = []guard{
	{"duplicate_dates", checkDuplicateDates},
	{"gender", checkGender},
}

var decisionTable = map[Route][]guard{
	RouteWorkFromHome: {
		{"notice", checkNotice},
		{"duty_days", checkDutyDays},
	},
	RouteFutureFullDay: {
		{"balance", checkBalance},
		{"notice", checkNotice},
		{"duty_days", checkDutyDays},
		{"restricted_holiday", checkRestrictedHoliday},
	},
	RouteFutureHalfDay: {
		{"balance", checkBalance},
		{"half_day_allowed", checkHalfDayAllowed},
		{"single_day", checkSingleDay},
		{"notice", checkNotice},
		{"duty_days", checkDutyDays},
		{"restricted_holiday", checkRestrictedHoliday},
	},
	RouteRetroactive: {
		{"balance", checkBalance},
		{"half_day_allowed", checkHalfDayAllowed},
		{"single_day", checkSingleDay},
		{"retroactive_category", checkRetroactiveCategory},
		{"emergency_balance", checkEmergencyBalance},
	},
	RouteInvalid: {
		{"date_selection", rejectDateSelection},
	},
}

var finalGuards = []guard{
	{"non_zero_days", checkNonZeroDays},
}

// SelectRoute picks the decision-table row for an application.
func SelectRoute(today generic.TimePoint, app Application, lt LeaveType) Route {
	switch {
	case lt.Category == CategoryWorkFromHome && today.Before(app.FromDate):
		return RouteWorkFromHome
	case today.Before(app.FromDate) && lt.Category != CategoryBereavement:
		if app.HalfDay {
			return RouteFutureHalfDay
		}
		return RouteFutureFullDay
	case today.AfterOrEqual(app.FromDate):
		return RouteRetroactive
	default:
		return RouteInvalid
	}
}

// BorrowsEmergency reports whether the application is charged against the
// Emergency type. The engine needs this before loading the Evaluation.
func BorrowsEmergency(today generic.TimePoint, app Application, lt LeaveType) bool {
	return SelectRoute(today, app, lt) == RouteRetroactive && lt.Category.BorrowsEmergency()
}

// Decide runs the decision table.
func Decide(ev Evaluation) Decision {
	d := Decision{Route: SelectRoute(ev.Today, ev.Application, ev.Type)}
	d.Borrowed = d.Route == RouteRetroactive && ev.Type.Category.BorrowsEmergency()

	stages := [][]guard{preRouteGuards, decisionTable[d.Route], finalGuards}
	for _, stage := range stages {
		for _, g := range stage {
			d.Trail = append(d.Trail, g.name)
			if err := g.check(&ev); err != nil {
				d.Err = err
				return d
			}
		}
	}
	d.Admitted = true
	return d
}

// =============================================================================
// GUARDS
// =============================================================================

func checkDuplicateDates(ev *Evaluation) error {
	if len(ev.AppliedDates) > 0 {
		return ErrDateAlreadyApplied.With("one of the applied dates is already applied: %s", ev.AppliedDates[0])
	}
	return nil
}

func checkGender(ev *Evaluation) error {
	g := ev.Employee.Gender
	if g == nil {
		return ErrIncompleteProfile
	}
	if (*g == GenderMale && ev.Type.Category == CategoryMaternity) ||
		(*g == GenderFemale && ev.Type.Category == CategoryPaternity) {
		return ErrGenderCategoryMismatch.With("the leave you applied is gender specific and you cannot apply for %s", ev.Type.Name)
	}
	return nil
}

func checkBalance(ev *Evaluation) error {
	return ev.Balance.Admit(ev.Requested())
}

func checkHalfDayAllowed(ev *Evaluation) error {
	if ev.Application.HalfDay && !ev.Type.HalfDayAllowed {
		return ErrHalfDayNotApplicable.With("half day not applicable for %s", ev.Type.Name)
	}
	return nil
}

func checkSingleDay(ev *Evaluation) error {
	if ev.Application.HalfDay && ev.Range.Count != 1 {
		return ErrHalfDayMultiDay
	}
	return nil
}

func checkNotice(ev *Evaluation) error {
	lt := ev.Type
	if lt.DaysCheck == nil || lt.DaysCheckMore == nil || lt.DaysCheckEqualOrLess == nil {
		return ErrDaysCheckNotConfigured.With("days check not assigned for %s", lt.Name)
	}
	requested := ev.Requested()
	notice := ev.notice()
	if requested.GreaterThan(generic.Days(*lt.DaysCheck)) {
		if notice < *lt.DaysCheckMore {
			return ErrNoticeTooShort.With("for more than %d %s, leave from date should be at least %d days before",
				*lt.DaysCheck, lt.Name, *lt.DaysCheckMore)
		}
		return nil
	}
	if notice < *lt.DaysCheckEqualOrLess {
		return ErrNoticeTooShort.With("for less than or %d %s, leave should be applied at least %d days before",
			*lt.DaysCheck, lt.Name, *lt.DaysCheckEqualOrLess)
	}
	return nil
}

func checkDutyDays(ev *Evaluation) error {
	required := ev.Type.DutyDaysRequired
	if required == nil {
		return nil
	}
	joined := ev.Employee.JoiningDate
	if joined == nil {
		return ErrJoiningDateMissing
	}
	if generic.DaysBetween(*joined, ev.Application.FromDate) < *required {
		return ErrInsufficientTenure.With("minimum duty days of %d is required for %s", *required, ev.Type.Name)
	}
	return nil
}

func checkRestrictedHoliday(ev *Evaluation) error {
	if ev.Type.Category != CategoryRestrictedHoliday {
		return nil
	}
	if !ev.Requested().Equal(generic.Days(ev.RestrictedHolidays)) {
		return ErrRestrictedHolidayMismatch
	}
	return nil
}

func checkRetroactiveCategory(ev *Evaluation) error {
	c := ev.Type.Category
	if c == CategoryBereavement || c.BorrowsEmergency() {
		return nil
	}
	return ErrRetroactiveNotAllowed
}

func checkEmergencyBalance(ev *Evaluation) error {
	if !ev.Type.Category.BorrowsEmergency() {
		return nil
	}
	if ev.Emergency == nil {
		return ErrLeaveTypeNotFound.With("no emergency leave type configured")
	}
	return ev.Emergency.Admit(ev.Requested())
}

func rejectDateSelection(ev *Evaluation) error {
	return ErrInvalidDateSelection.With("%s cannot be applied for the selected dates", ev.Type.Name)
}

func checkNonZeroDays(ev *Evaluation) error {
	if !ev.Requested().IsPositive() {
		return ErrZeroDayRequest
	}
	return nil
}
