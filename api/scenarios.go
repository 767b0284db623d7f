/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for demos. Each scenario creates a small organisation, its leave
	types, balances, holidays and the attendance of the current month so far.

AVAILABLE SCENARIOS:

	small-team:          Three-level chain, every leave category, a month of punches
	emergency-borrowing: One Emergency day left, retroactive casual requests draw on it
	hr-misconfiguration: Missing notice window and joining date (configuration faults)

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create leave types via the factory presets
 3. Create employees and balances
 4. Add holidays and attendance relative to today

USAGE VIA API:

	POST /api/scenarios/load
	{"scenarioId": "small-team"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - factory/presets.go: Leave type definitions
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/warp/leave-engine/attendance"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// ScenarioStore is the write side scenarios seed. Implemented by sqlite.Store.
type ScenarioStore interface {
	Reset(ctx context.Context) error
	SaveEmployee(ctx context.Context, e leave.Employee) error
	SaveLeaveType(ctx context.Context, t leave.LeaveType) error
	PutBalance(ctx context.Context, b leave.LeaveBalance) error
	SaveHoliday(ctx context.Context, h generic.Holiday) error
	SaveAttendance(ctx context.Context, a attendance.DailyAttendance) error
	SavePunch(ctx context.Context, p attendance.Punch) error
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "small-team",
		Name:        "Small Team",
		Description: "Admin, manager and two employees with every leave category and this month's attendance",
		Category:    "leave",
	},
	{
		ID:          "emergency-borrowing",
		Name:        "Emergency Borrowing",
		Description: "One Emergency day left; retroactive casual requests are also charged to Emergency",
		Category:    "leave",
	},
	{
		ID:          "hr-misconfiguration",
		Name:        "HR Misconfiguration",
		Description: "Casual leave without a notice window and an employee without a joining date",
		Category:    "leave",
	},
}

type scenarioLoader func(ctx context.Context, s ScenarioStore, today generic.TimePoint) error

var scenarioLoaders = map[string]scenarioLoader{
	"small-team":          loadSmallTeamScenario,
	"emergency-borrowing": loadEmergencyBorrowingScenario,
	"hr-misconfiguration": loadMisconfigurationScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the last loaded scenario, or null.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	current := h.currentScenario
	h.scenarioMu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and seeds a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if h.Scenarios == nil {
		writeError(w, http.StatusNotFound, "Scenarios are not enabled", nil)
		return
	}
	var req LoadScenarioRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("no scenario %q", req.ScenarioID))
		return
	}

	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	ctx := r.Context()
	h.currentScenario = ""
	if err := h.Scenarios.Reset(ctx); err != nil {
		h.writeDomainError(w, r, "Failed to reset database", err)
		return
	}
	if h.Reporter != nil {
		h.Reporter.InvalidateHolidays()
	}
	if err := load(ctx, h.Scenarios, h.Today()); err != nil {
		h.writeDomainError(w, r, "Failed to load scenario", err)
		return
	}
	h.currentScenario = req.ScenarioID
	h.log.Info("scenario loaded", zap.String("scenario", req.ScenarioID))

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// teamTypes are the leave types every scenario starts from.
func teamTypes() ([]leave.LeaveType, error) {
	list := "[" + factory.CasualLeaveJSON("cl", "Casual Leave", 1) + "," +
		factory.PrivilegeLeaveJSON("pl", "Privilege Leave", 3.75, 30) + "," +
		factory.EmergencyLeaveJSON("el", "Emergency Leave") + "," +
		factory.BereavementLeaveJSON("bl", "Bereavement Leave") + "," +
		factory.MaternityLeaveJSON("ml", "Maternity Leave") + "," +
		factory.RestrictedHolidayJSON("rh", "Restricted Holiday") + "," +
		factory.WorkFromHomeJSON("wfh", "Work From Home") + "]"
	return factory.NewLeaveTypeFactory().ParseLeaveTypes(list)
}

// team is boss <- mgr <- {emp, bob}. Everyone joined a year and a half ago.
func team(today generic.TimePoint) []leave.Employee {
	female, male := leave.GenderFemale, leave.GenderMale
	joined := today.AddDays(-540)
	boss, mgr := generic.EmployeeID("boss"), generic.EmployeeID("mgr")
	return []leave.Employee{
		{ID: boss, Code: "A001", FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com",
			Role: "SuperAdmin", Gender: &female, JoiningDate: &joined, Active: true},
		{ID: mgr, Code: "M001", FirstName: "Alan", LastName: "Turing", Email: "alan@example.com",
			Role: "Manager", Gender: &male, ManagerID: &boss, JoiningDate: &joined, Active: true},
		{ID: "emp", Code: "E001", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
			Role: "Employee", Gender: &female, ManagerID: &mgr, JoiningDate: &joined, Active: true},
		{ID: "bob", Code: "E002", FirstName: "Bob", LastName: "Kahn", Email: "bob@example.com",
			Role: "Employee", Gender: &male, ManagerID: &mgr, JoiningDate: &joined, Active: true},
	}
}

// seedTeam saves the team, the types and one balance row per (employee, type).
// Types missing from balances get zero.
func seedTeam(ctx context.Context, s ScenarioStore, employees []leave.Employee, types []leave.LeaveType, balances map[generic.LeaveTypeID]string) error {
	for _, lt := range types {
		if err := s.SaveLeaveType(ctx, lt); err != nil {
			return err
		}
	}
	for _, e := range employees {
		if err := s.SaveEmployee(ctx, e); err != nil {
			return err
		}
		for _, lt := range types {
			b := leave.LeaveBalance{EmployeeID: e.ID, TypeID: lt.ID}
			if v, ok := balances[lt.ID]; ok {
				amount, err := generic.ParseAmount(v)
				if err != nil {
					return err
				}
				b.Balance = amount
			}
			if err := s.PutBalance(ctx, b); err != nil {
				return err
			}
		}
	}
	return nil
}

// seedMonth adds a normal holiday on the first working day of the month, a
// restricted holiday a week ahead, and attendance with its in/out punches
// for the working days before today: every fourth day is short and every
// seventh is missing.
func seedMonth(ctx context.Context, s ScenarioStore, today generic.TimePoint, employees []leave.Employee) error {
	first := nextWorkingDay(generic.StartOfMonth(today.Year(), today.Month()))
	if err := s.SaveHoliday(ctx, generic.Holiday{Date: first, Name: "Founders Day", Type: generic.NormalHoliday}); err != nil {
		return err
	}
	restricted := nextWorkingDay(today.AddDays(7))
	if !restricted.Equal(first) {
		if err := s.SaveHoliday(ctx, generic.Holiday{Date: restricted, Name: "Harvest Festival", Type: generic.RestrictedHoliday}); err != nil {
			return err
		}
	}

	for _, e := range employees {
		n := 0
		for d := first.AddDays(1); d.Before(today); d = d.AddDays(1) {
			if d.IsWeekend() {
				continue
			}
			n++
			if n%7 == 0 {
				continue
			}
			inside := 420
			if n%4 == 0 {
				inside = 240
			}
			arrival := d.Time.Add(9 * time.Hour)
			departure := arrival.Add(time.Duration(inside+30) * time.Minute)
			a := attendance.DailyAttendance{
				EmployeeID: e.ID, Date: d, Arrival: &arrival, Departure: &departure,
				InsideMinutes: inside, OutsideMinutes: 30,
			}
			if err := s.SaveAttendance(ctx, a); err != nil {
				return err
			}
			for _, p := range []attendance.Punch{
				{EmployeeID: e.ID, Date: d, Time: arrival, Device: "Main Gate", Direction: attendance.DirectionIn},
				{EmployeeID: e.ID, Date: d, Time: departure, Device: "Main Gate", Direction: attendance.DirectionOut},
			} {
				if err := s.SavePunch(ctx, p); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func loadSmallTeamScenario(ctx context.Context, s ScenarioStore, today generic.TimePoint) error {
	types, err := teamTypes()
	if err != nil {
		return err
	}
	employees := team(today)
	balances := map[generic.LeaveTypeID]string{
		"cl": "6", "pl": "12", "el": "3", "bl": "3", "ml": "180", "rh": "2",
	}
	if err := seedTeam(ctx, s, employees, types, balances); err != nil {
		return err
	}
	return seedMonth(ctx, s, today, employees)
}

func loadEmergencyBorrowingScenario(ctx context.Context, s ScenarioStore, today generic.TimePoint) error {
	types, err := teamTypes()
	if err != nil {
		return err
	}
	employees := team(today)
	balances := map[generic.LeaveTypeID]string{
		"cl": "5", "pl": "0.5", "el": "1", "bl": "3", "rh": "2",
	}
	if err := seedTeam(ctx, s, employees, types, balances); err != nil {
		return err
	}
	return seedMonth(ctx, s, today, employees)
}

func loadMisconfigurationScenario(ctx context.Context, s ScenarioStore, today generic.TimePoint) error {
	f := factory.NewLeaveTypeFactory()
	casual, err := f.ParseLeaveType(`{"id": "cl", "name": "Casual Leave", "category": "casual", "half_day_allowed": true}`)
	if err != nil {
		return err
	}
	privilege, err := f.ParseLeaveType(factory.PrivilegeLeaveJSON("pl", "Privilege Leave", 3.75, 30))
	if err != nil {
		return err
	}
	employees := team(today)
	for i := range employees {
		if employees[i].ID == "bob" {
			employees[i].JoiningDate = nil
		}
	}
	balances := map[generic.LeaveTypeID]string{"cl": "6", "pl": "12"}
	return seedTeam(ctx, s, employees, []leave.LeaveType{casual, privilege}, balances)
}

func nextWorkingDay(d generic.TimePoint) generic.TimePoint {
	for d.IsWeekend() {
		d = d.AddDays(1)
	}
	return d
}
