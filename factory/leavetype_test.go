package factory

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

func TestParseLeaveType_Casual(t *testing.T) {
	// GIVEN
	f := NewLeaveTypeFactory()

	// WHEN
	lt, err := f.ParseLeaveType(CasualLeaveJSON("cl", "Casual Leave", 1.5))

	// THEN
	require.NoError(t, err)
	assert.Equal(t, generic.LeaveTypeID("cl"), lt.ID)
	assert.Equal(t, leave.CategoryCasual, lt.Category)
	assert.True(t, lt.HalfDayAllowed)
	require.NotNil(t, lt.DaysCheck)
	assert.Equal(t, 2, *lt.DaysCheck)
	assert.Equal(t, 7, *lt.DaysCheckMore)
	assert.Equal(t, 3, *lt.DaysCheckEqualOrLess)
	assert.Equal(t, "1.5", lt.IncrementCount.String())
	assert.Equal(t, 1, lt.IncrementGapMonths)
	assert.False(t, lt.CarryForward)
	assert.Nil(t, lt.DutyDaysRequired)
}

func TestParseLeaveType_UnsetBlocksStayNil(t *testing.T) {
	lt, err := NewLeaveTypeFactory().ParseLeaveType(EmergencyLeaveJSON("el", "Emergency Leave"))

	require.NoError(t, err)
	assert.Nil(t, lt.DaysCheck, "no notice window")
	assert.Nil(t, lt.DaysCheckMore)
	assert.Nil(t, lt.DaysCheckEqualOrLess)
	assert.True(t, lt.IncrementCount.IsZero())
}

func TestParseLeaveType_Presets(t *testing.T) {
	presets := map[string]string{
		"privilege":   PrivilegeLeaveJSON("pl", "Privilege Leave", 3.75, 30),
		"emergency":   EmergencyLeaveJSON("el", "Emergency Leave"),
		"bereavement": BereavementLeaveJSON("bl", "Bereavement Leave"),
		"maternity":   MaternityLeaveJSON("ml", "Maternity Leave"),
		"rh":          RestrictedHolidayJSON("rh", "Restricted Holiday"),
		"wfh":         WorkFromHomeJSON("wfh", "Work From Home"),
	}
	for name, js := range presets {
		t.Run(name, func(t *testing.T) {
			_, err := NewLeaveTypeFactory().ParseLeaveType(js)
			assert.NoError(t, err)
		})
	}

	pl, err := NewLeaveTypeFactory().ParseLeaveType(presets["privilege"])
	require.NoError(t, err)
	assert.True(t, pl.Sandwich)
	assert.True(t, pl.CarryForward)
	require.NotNil(t, pl.CarryForwardLimit)
	assert.Equal(t, 30, *pl.CarryForwardLimit)
	assert.Equal(t, "3.75", pl.IncrementCount.String())
}

func TestParseLeaveType_Invalid(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"not json", `{"id":`},
		{"missing name", `{"id": "x", "category": "casual"}`},
		{"unknown category", `{"id": "x", "name": "X", "category": "sabbatical"}`},
		{"negative notice", `{"id": "x", "name": "X", "category": "casual", "notice": {"days_check": -1, "more": 1, "equal_or_less": 1}}`},
		{"zero gap", `{"id": "x", "name": "X", "category": "casual", "increment": {"count": 1, "gap_months": 0}}`},
		{"negative increment", `{"id": "x", "name": "X", "category": "casual", "increment": {"count": -1, "gap_months": 1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLeaveTypeFactory().ParseLeaveType(tt.json)

			require.Error(t, err)
			assert.ErrorIs(t, err, generic.ErrValidation)
			assert.Equal(t, generic.ValidationFailure, generic.KindOf(err))
		})
	}
}

func TestToJSON_RoundTripsConfiguredFields(t *testing.T) {
	// GIVEN
	f := NewLeaveTypeFactory()
	original, err := f.ParseLeaveType(PrivilegeLeaveJSON("pl", "Privilege Leave", 3, 30))
	require.NoError(t, err)

	// WHEN
	raw, err := json.Marshal(f.ToJSON(original))
	require.NoError(t, err)
	back, err := f.ParseLeaveType(string(raw))

	// THEN
	require.NoError(t, err)
	assert.Equal(t, original.Name, back.Name)
	assert.Equal(t, *original.DaysCheckMore, *back.DaysCheckMore)
	assert.Equal(t, *original.DutyDaysRequired, *back.DutyDaysRequired)
	assert.True(t, original.IncrementCount.Equal(back.IncrementCount))
	assert.Equal(t, original.CarryForward, back.CarryForward)
}

func TestToJSON_PartialNoticeIsDropped(t *testing.T) {
	two := 2
	lj := NewLeaveTypeFactory().ToJSON(leave.LeaveType{ID: "x", Name: "X", Category: leave.CategoryOther, DaysCheck: &two})

	assert.Nil(t, lj.Notice)
	assert.Nil(t, lj.Increment)
}

func TestParseLeaveTypes(t *testing.T) {
	list := "[" + CasualLeaveJSON("cl", "Casual Leave", 1) + "," + WorkFromHomeJSON("wfh", "Work From Home") + "]"

	types, err := NewLeaveTypeFactory().ParseLeaveTypes(list)

	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, leave.CategoryWorkFromHome, types[1].Category)

	dup := "[" + CasualLeaveJSON("cl", "A", 1) + "," + CasualLeaveJSON("cl", "B", 1) + "]"
	_, err = NewLeaveTypeFactory().ParseLeaveTypes(dup)
	assert.ErrorIs(t, err, generic.ErrValidation)
}
