package attendance_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/attendance"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
)

type countingStore struct {
	*memory.Memory
	holidayLoads atomic.Int32
	fail         bool
}

func (s *countingStore) HolidaysBetween(ctx context.Context, from, to generic.TimePoint) ([]generic.Holiday, error) {
	s.holidayLoads.Add(1)
	if s.fail {
		return nil, errors.New("calendar unavailable")
	}
	return s.Memory.HolidaysBetween(ctx, from, to)
}

// seed builds January 2024 for "emp":
//
//	01-01 present            01-08 absent
//	01-02 incomplete         01-09 absent
//	01-03 half day           01-10 normal holiday
//	01-04 wfh                01-11 restricted, not taken
//	01-05 casual leave       01-12 restricted, taken
//	01-15 present            01-16 absent
//	01-17 today
func seed(t *testing.T) *countingStore {
	t.Helper()
	ctx := context.Background()
	m := memory.New()

	m.AddEmployee(leave.Employee{ID: "emp", FirstName: "Ann", Active: true})
	m.AddEmployee(leave.Employee{ID: "bob", FirstName: "Bob", Active: true})
	m.AddLeaveType(leave.LeaveType{ID: "cl", Name: "Casual Leave", Category: leave.CategoryCasual})
	m.AddLeaveType(leave.LeaveType{ID: "wfh", Name: "Work From Home", Category: leave.CategoryWorkFromHome})
	m.AddLeaveType(leave.LeaveType{ID: "rh", Name: "Restricted Holiday", Category: leave.CategoryRestrictedHoliday})

	m.AddHoliday(generic.Holiday{ID: "h1", Date: date("2024-01-10"), Name: "Founders Day", Type: generic.NormalHoliday})
	m.AddHoliday(generic.Holiday{ID: "h2", Date: date("2024-01-11"), Name: "Festival", Type: generic.RestrictedHoliday})
	m.AddHoliday(generic.Holiday{ID: "h3", Date: date("2024-01-12"), Name: "Harvest", Type: generic.RestrictedHoliday})

	arrival := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	departure := time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC)
	m.AddAttendance(attendance.DailyAttendance{EmployeeID: "emp", Date: date("2024-01-01"),
		Arrival: &arrival, Departure: &departure, InsideMinutes: 400, OutsideMinutes: 80})
	// added out of order; the log comes back sorted
	m.AddPunch(attendance.Punch{EmployeeID: "emp", Date: date("2024-01-01"), Time: departure, Device: "Lobby", Direction: attendance.DirectionOut})
	m.AddPunch(attendance.Punch{EmployeeID: "emp", Date: date("2024-01-01"), Time: arrival, Device: "Lobby", Direction: attendance.DirectionIn})
	m.AddAttendance(attendance.DailyAttendance{EmployeeID: "emp", Date: date("2024-01-02"), InsideMinutes: 200, MissedPunch: true})
	m.AddAttendance(attendance.DailyAttendance{EmployeeID: "emp", Date: date("2024-01-03"), InsideMinutes: 200})
	m.AddAttendance(attendance.DailyAttendance{EmployeeID: "emp", Date: date("2024-01-15"), InsideMinutes: 420})

	approved := func(id generic.RequestID, typeID generic.LeaveTypeID, from, to string, halfDay bool) {
		require.NoError(t, m.CreateRequest(ctx, leave.LeaveRequest{
			ID: id, EmployeeID: "emp", TypeID: typeID, HalfDay: halfDay,
			FromDate: date(from), ToDate: date(to), ApplyDate: date("2023-12-01"),
			Status: leave.StatusApproved,
		}, nil))
	}
	approved("r1", "cl", "2024-01-03", "2024-01-03", true)
	approved("r2", "wfh", "2024-01-04", "2024-01-04", false)
	approved("r3", "cl", "2024-01-05", "2024-01-05", false)
	approved("r4", "rh", "2024-01-12", "2024-01-12", false)

	// open requests are not attendance
	require.NoError(t, m.CreateRequest(ctx, leave.LeaveRequest{
		ID: "r5", EmployeeID: "emp", TypeID: "cl",
		FromDate: date("2024-01-08"), ToDate: date("2024-01-08"), Status: leave.StatusOpen,
	}, nil))

	return &countingStore{Memory: m}
}

func TestMonthlySummary(t *testing.T) {
	// GIVEN
	store := seed(t)
	r := attendance.NewReporter(store, attendance.Options{}, zap.NewNop())

	// WHEN
	got, err := r.MonthlySummary(context.Background(), date("2024-01-17"), "emp", 2024, time.January)

	// THEN
	require.NoError(t, err)
	assert.Equal(t, attendance.Summary{
		EmployeeID:        "emp",
		Year:              2024,
		Month:             time.January,
		Present:           2,
		Absent:            3,
		IncompleteShift:   1,
		RestrictedHoliday: 1,
		NormalHoliday:     1,
		WFH:               1,
		Leave:             1,
		HalfDay:           1,
		OngoingShift:      1,
	}, got)
}

func TestMonthlySummary_FutureMonthIsEmpty(t *testing.T) {
	r := attendance.NewReporter(seed(t), attendance.Options{}, zap.NewNop())

	got, err := r.MonthlySummary(context.Background(), date("2024-01-17"), "emp", 2024, time.February)

	require.NoError(t, err)
	assert.Equal(t, attendance.Summary{EmployeeID: "emp", Year: 2024, Month: time.February}, got)
}

func TestMonthlySummary_CustomMinWorkDuration(t *testing.T) {
	// GIVEN: 200 minutes is a full day at a 180 minute minimum
	r := attendance.NewReporter(seed(t), attendance.Options{MinWorkDuration: 180}, zap.NewNop())

	// WHEN
	got, err := r.MonthlySummary(context.Background(), date("2024-01-17"), "emp", 2024, time.January)

	// THEN
	require.NoError(t, err)
	assert.Equal(t, 3, got.Present)
	assert.Zero(t, got.IncompleteShift)
}

func TestDailyDetail(t *testing.T) {
	r := attendance.NewReporter(seed(t), attendance.Options{}, zap.NewNop())
	ctx := context.Background()
	today := date("2024-01-17")

	tests := []struct {
		day  string
		want attendance.Status
	}{
		{"2024-01-01", attendance.StatusPresent},
		{"2024-01-02", attendance.StatusIncompleteShift},
		{"2024-01-03", attendance.StatusHalfDay},
		{"2024-01-04", attendance.StatusWFH},
		{"2024-01-05", attendance.StatusLeave},
		{"2024-01-06", attendance.StatusNormalHoliday},
		{"2024-01-08", attendance.StatusAbsent},
		{"2024-01-10", attendance.StatusNormalHoliday},
		{"2024-01-11", attendance.StatusUncounted},
		{"2024-01-12", attendance.StatusRestrictedHoliday},
		{"2024-01-17", attendance.StatusOngoingShift},
	}
	for _, tt := range tests {
		t.Run(tt.day, func(t *testing.T) {
			got, err := r.DailyDetail(ctx, today, "emp", date(tt.day))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
		})
	}

	t.Run("absent day has no punch log", func(t *testing.T) {
		got, err := r.DailyDetail(ctx, today, "emp", date("2024-01-08"))
		require.NoError(t, err)
		assert.Empty(t, got.Punches)
	})

	t.Run("carries the punch summary", func(t *testing.T) {
		got, err := r.DailyDetail(ctx, today, "emp", date("2024-01-01"))
		require.NoError(t, err)
		require.NotNil(t, got.Arrival)
		assert.Equal(t, 9, got.Arrival.Hour())
		assert.Equal(t, 400, got.InsideMinutes)
		assert.Equal(t, 80, got.OutsideMinutes)

		require.Len(t, got.Punches, 2)
		assert.Equal(t, attendance.DirectionIn, got.Punches[0].Direction)
		assert.Equal(t, "Lobby", got.Punches[0].Device)
		assert.Equal(t, 17, got.Punches[1].Time.Hour())
	})
}

func TestDailyDetail_HalfDayFiledFromWeekend(t *testing.T) {
	// GIVEN: a half day filed Saturday..Monday consumed Monday only
	ctx := context.Background()
	m := memory.New()
	m.AddEmployee(leave.Employee{ID: "emp", FirstName: "Ann", Active: true})
	m.AddLeaveType(leave.LeaveType{ID: "cl", Name: "Casual Leave", Category: leave.CategoryCasual})
	require.NoError(t, m.CreateRequest(ctx, leave.LeaveRequest{
		ID: "r1", EmployeeID: "emp", TypeID: "cl", HalfDay: true,
		FromDate: date("2024-01-13"), ToDate: date("2024-01-15"), ApplyDate: date("2024-01-01"),
		Status: leave.StatusApproved,
	}, []leave.LeaveRequestDay{{ID: "d1", RequestID: "r1", Date: date("2024-01-15")}}))
	m.AddAttendance(attendance.DailyAttendance{EmployeeID: "emp", Date: date("2024-01-15"), InsideMinutes: 200})
	r := attendance.NewReporter(m, attendance.Options{}, zap.NewNop())

	// WHEN
	got, err := r.DailyDetail(ctx, date("2024-01-17"), "emp", date("2024-01-15"))

	// THEN: the consumed Monday gets the halved threshold
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusHalfDay, got.Status)
}

func TestDailyDetail_RestrictedHolidayInsideLongerLeave(t *testing.T) {
	// GIVEN: casual leave over 01-10..12 and an RH leave on the restricted holiday 01-11
	ctx := context.Background()
	m := memory.New()
	m.AddEmployee(leave.Employee{ID: "emp", FirstName: "Ann", Active: true})
	m.AddLeaveType(leave.LeaveType{ID: "cl", Name: "Casual Leave", Category: leave.CategoryCasual})
	m.AddLeaveType(leave.LeaveType{ID: "rh", Name: "Restricted Holiday", Category: leave.CategoryRestrictedHoliday})
	m.AddHoliday(generic.Holiday{ID: "h1", Date: date("2024-01-11"), Name: "Festival", Type: generic.RestrictedHoliday})
	for _, req := range []leave.LeaveRequest{
		{ID: "r1", EmployeeID: "emp", TypeID: "cl", FromDate: date("2024-01-10"), ToDate: date("2024-01-12")},
		{ID: "r2", EmployeeID: "emp", TypeID: "rh", FromDate: date("2024-01-11"), ToDate: date("2024-01-11")},
	} {
		req.ApplyDate = date("2024-01-01")
		req.Status = leave.StatusApproved
		require.NoError(t, m.CreateRequest(ctx, req, nil))
	}
	r := attendance.NewReporter(m, attendance.Options{}, zap.NewNop())

	// WHEN
	got, err := r.DailyDetail(ctx, date("2024-01-17"), "emp", date("2024-01-11"))

	// THEN
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusRestrictedHoliday, got.Status)

	// AND: the days around it are plain leave
	got, err = r.DailyDetail(ctx, date("2024-01-17"), "emp", date("2024-01-12"))
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusLeave, got.Status)
}

func TestSummaries_KeepsRequestedOrder(t *testing.T) {
	// GIVEN
	store := seed(t)
	r := attendance.NewReporter(store, attendance.Options{Concurrency: 2}, zap.NewNop())

	// WHEN
	got, err := r.Summaries(context.Background(), date("2024-01-17"), []generic.EmployeeID{"bob", "emp"}, 2024, time.January)

	// THEN
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, generic.EmployeeID("bob"), got[0].EmployeeID)
	assert.Equal(t, generic.EmployeeID("emp"), got[1].EmployeeID)

	// bob recorded nothing: every working day is absent
	assert.Equal(t, 9, got[0].Absent)
	assert.Equal(t, 1, got[0].NormalHoliday)
	assert.Zero(t, got[0].RestrictedHoliday)
	assert.Equal(t, 2, got[1].Present)
}

func TestReporter_CachesHolidays(t *testing.T) {
	store := seed(t)
	r := attendance.NewReporter(store, attendance.Options{}, zap.NewNop())
	ctx := context.Background()

	_, err := r.MonthlySummary(ctx, date("2024-01-17"), "emp", 2024, time.January)
	require.NoError(t, err)
	_, err = r.DailyDetail(ctx, date("2024-01-17"), "bob", date("2024-01-10"))
	require.NoError(t, err)

	assert.Equal(t, int32(1), store.holidayLoads.Load())

	// WHEN: the calendar is invalidated
	r.InvalidateHolidays()
	_, err = r.DailyDetail(ctx, date("2024-01-17"), "bob", date("2024-01-10"))
	require.NoError(t, err)

	// THEN: the next read goes back to the store
	assert.Equal(t, int32(2), store.holidayLoads.Load())
}

func TestSummaries_PropagatesFailure(t *testing.T) {
	store := seed(t)
	store.fail = true
	r := attendance.NewReporter(store, attendance.Options{}, zap.NewNop())

	_, err := r.Summaries(context.Background(), date("2024-01-17"), []generic.EmployeeID{"emp", "bob"}, 2024, time.January)

	assert.ErrorContains(t, err, "calendar unavailable")
}
