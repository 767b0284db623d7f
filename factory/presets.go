package factory

import "fmt"

// =============================================================================
// PRESET LEAVE TYPES
// =============================================================================
//
// Typical HR configurations. Each returns JSON accepted by ParseLeaveType.

// CasualLeaveJSON: half days allowed, 3 days notice up to 2 days and a week
// beyond, monthly increment.
func CasualLeaveJSON(id, name string, monthly float64) string {
	return fmt.Sprintf(`{
		"id": %q, "name": %q, "category": "casual",
		"half_day_allowed": true,
		"notice": {"days_check": 2, "more": 7, "equal_or_less": 3},
		"increment": {"count": %g, "gap_months": 1}
	}`, id, name, monthly)
}

// PrivilegeLeaveJSON: sandwich rule, 90 duty days, quarterly increment
// carried forward up to limit.
func PrivilegeLeaveJSON(id, name string, quarterly float64, limit int) string {
	return fmt.Sprintf(`{
		"id": %q, "name": %q, "category": "privilege",
		"sandwich": true,
		"duty_days_required": 90,
		"notice": {"days_check": 3, "more": 15, "equal_or_less": 7},
		"increment": {"count": %g, "gap_months": 3},
		"carry_forward": {"limit": %d}
	}`, id, name, quarterly, limit)
}

// EmergencyLeaveJSON has no notice window: it is only taken retroactively.
func EmergencyLeaveJSON(id, name string) string {
	return fmt.Sprintf(`{"id": %q, "name": %q, "category": "emergency", "half_day_allowed": true}`, id, name)
}

func BereavementLeaveJSON(id, name string) string {
	return fmt.Sprintf(`{"id": %q, "name": %q, "category": "bereavement"}`, id, name)
}

func MaternityLeaveJSON(id, name string) string {
	return fmt.Sprintf(`{
		"id": %q, "name": %q, "category": "maternity",
		"sandwich": true,
		"duty_days_required": 80,
		"notice": {"days_check": 0, "more": 30, "equal_or_less": 30}
	}`, id, name)
}

func RestrictedHolidayJSON(id, name string) string {
	return fmt.Sprintf(`{
		"id": %q, "name": %q, "category": "restricted_holiday",
		"notice": {"days_check": 1, "more": 1, "equal_or_less": 1}
	}`, id, name)
}

// WorkFromHomeJSON: one day of notice, no balance.
func WorkFromHomeJSON(id, name string) string {
	return fmt.Sprintf(`{
		"id": %q, "name": %q, "category": "work_from_home",
		"half_day_allowed": true,
		"notice": {"days_check": 1, "more": 2, "equal_or_less": 1}
	}`, id, name)
}
