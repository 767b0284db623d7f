package attendance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/leave-engine/attendance"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

func date(s string) generic.TimePoint { return generic.MustParseDate(s) }

func TestClassify(t *testing.T) {
	// 2024-01-17 is a Wednesday, 2024-01-20 a Saturday.
	worked := func(minutes int) *attendance.DailyAttendance {
		return &attendance.DailyAttendance{InsideMinutes: minutes}
	}
	normal := &generic.Holiday{Type: generic.NormalHoliday}
	restricted := &generic.Holiday{Type: generic.RestrictedHoliday}
	onLeave := func(cs ...leave.Category) []attendance.ApprovedLeave {
		var out []attendance.ApprovedLeave
		for _, c := range cs {
			out = append(out, attendance.ApprovedLeave{Category: c})
		}
		return out
	}

	tests := []struct {
		name string
		in   attendance.DayInput
		want attendance.Status
	}{
		{"today is ongoing even with attendance",
			attendance.DayInput{Date: date("2024-01-17"), Attendance: worked(500)},
			attendance.StatusOngoingShift},
		{"saturday",
			attendance.DayInput{Date: date("2024-01-20"), Attendance: worked(500)},
			attendance.StatusNormalHoliday},
		{"full day",
			attendance.DayInput{Date: date("2024-01-16"), Attendance: worked(360)},
			attendance.StatusPresent},
		{"short day",
			attendance.DayInput{Date: date("2024-01-16"), Attendance: worked(359)},
			attendance.StatusIncompleteShift},
		{"half day leave halves the threshold",
			attendance.DayInput{Date: date("2024-01-16"), Attendance: worked(200), HalfDayLeave: true},
			attendance.StatusHalfDay},
		{"half day leave still needs half the duration",
			attendance.DayInput{Date: date("2024-01-16"), Attendance: worked(179), HalfDayLeave: true},
			attendance.StatusIncompleteShift},
		{"attendance beats holiday",
			attendance.DayInput{Date: date("2024-01-16"), Attendance: worked(400), Holiday: normal},
			attendance.StatusPresent},
		{"normal holiday",
			attendance.DayInput{Date: date("2024-01-16"), Holiday: normal},
			attendance.StatusNormalHoliday},
		{"restricted holiday taken",
			attendance.DayInput{Date: date("2024-01-16"), Holiday: restricted, Leaves: onLeave(leave.CategoryRestrictedHoliday)},
			attendance.StatusRestrictedHoliday},
		{"restricted holiday taken inside a longer leave",
			attendance.DayInput{Date: date("2024-01-16"), Holiday: restricted, Leaves: onLeave(leave.CategoryCasual, leave.CategoryRestrictedHoliday)},
			attendance.StatusRestrictedHoliday},
		{"restricted holiday not taken",
			attendance.DayInput{Date: date("2024-01-16"), Holiday: restricted},
			attendance.StatusUncounted},
		{"restricted holiday under another leave",
			attendance.DayInput{Date: date("2024-01-16"), Holiday: restricted, Leaves: onLeave(leave.CategoryCasual)},
			attendance.StatusUncounted},
		{"work from home",
			attendance.DayInput{Date: date("2024-01-16"), Leaves: onLeave(leave.CategoryWorkFromHome)},
			attendance.StatusWFH},
		{"earliest covering leave decides",
			attendance.DayInput{Date: date("2024-01-16"), Leaves: onLeave(leave.CategoryWorkFromHome, leave.CategoryCasual)},
			attendance.StatusWFH},
		{"leave",
			attendance.DayInput{Date: date("2024-01-16"), Leaves: onLeave(leave.CategoryCasual)},
			attendance.StatusLeave},
		{"nothing recorded",
			attendance.DayInput{Date: date("2024-01-16")},
			attendance.StatusAbsent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			in.Today = date("2024-01-17")
			in.MinWorkDuration = attendance.DefaultMinWorkDuration

			assert.Equal(t, tt.want, attendance.Classify(in))
		})
	}
}
