/*
Package factory provides JSON to Go leave type conversion.

PURPOSE:

	Converts JSON leave type definitions into leave.LeaveType values. HR
	configures leave types (notice windows, tenure, increment policy) as JSON
	and the factory builds the struct the engine adjudicates against.

JSON SCHEMA:

	{
	  "id": "cl",
	  "name": "Casual Leave",
	  "category": "casual",
	  "half_day_allowed": true,
	  "sandwich": false,
	  "duty_days_required": 90,
	  "notice": {
	    "days_check": 2,
	    "more": 7,
	    "equal_or_less": 3
	  },
	  "increment": {"count": 1, "gap_months": 1},
	  "carry_forward": {"limit": 12}
	}

	Omitted blocks stay unset. A type without "notice" cannot be applied for
	in advance: the engine reports it as a configuration fault.

USAGE:

	factory := NewLeaveTypeFactory()

	// From JSON string
	lt, err := factory.ParseLeaveType(jsonString)

	// From a preset
	lt, err := factory.ParseLeaveType(CasualLeaveJSON("cl", "Casual Leave", 1))

SEE ALSO:
  - presets.go: Common leave type definitions
  - leave/types.go: LeaveType definition
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// LeaveTypeJSON is the JSON representation of a leave type.
type LeaveTypeJSON struct {
	ID               string            `json:"id" validate:"required"`
	Name             string            `json:"name" validate:"required"`
	Category         string            `json:"category" validate:"required,oneof=casual privilege maternity paternity emergency bereavement restricted_holiday work_from_home other"`
	MaxDays          *int              `json:"max_days,omitempty" validate:"omitempty,min=0"`
	HalfDayAllowed   bool              `json:"half_day_allowed,omitempty"`
	Sandwich         bool              `json:"sandwich,omitempty"`
	DutyDaysRequired *int              `json:"duty_days_required,omitempty" validate:"omitempty,min=0"`
	Notice           *NoticeJSON       `json:"notice,omitempty"`
	Increment        *IncrementJSON    `json:"increment,omitempty"`
	CarryForward     *CarryForwardJSON `json:"carry_forward,omitempty"`
}

// NoticeJSON is the advance notice window. Requests longer than DaysCheck
// days need More days of notice, shorter ones EqualOrLess.
type NoticeJSON struct {
	DaysCheck   int `json:"days_check" validate:"min=0"`
	More        int `json:"more" validate:"min=0"`
	EqualOrLess int `json:"equal_or_less" validate:"min=0"`
}

// IncrementJSON adds Count days every GapMonths months.
type IncrementJSON struct {
	Count     generic.Amount `json:"count"`
	GapMonths int            `json:"gap_months" validate:"min=1"`
}

type CarryForwardJSON struct {
	Limit *int `json:"limit,omitempty" validate:"omitempty,min=0"`
}

// =============================================================================
// LEAVE TYPE FACTORY
// =============================================================================

// LeaveTypeFactory converts JSON leave type definitions to leave.LeaveType.
type LeaveTypeFactory struct {
	validate *validator.Validate
}

func NewLeaveTypeFactory() *LeaveTypeFactory {
	return &LeaveTypeFactory{validate: validator.New()}
}

// ParseLeaveType parses a JSON string into a LeaveType.
func (f *LeaveTypeFactory) ParseLeaveType(jsonStr string) (leave.LeaveType, error) {
	var lj LeaveTypeJSON
	if err := json.Unmarshal([]byte(jsonStr), &lj); err != nil {
		return leave.LeaveType{}, generic.ErrValidation.With("failed to parse leave type JSON: %v", err)
	}
	return f.FromJSON(lj)
}

// FromJSON validates lj and converts it.
func (f *LeaveTypeFactory) FromJSON(lj LeaveTypeJSON) (leave.LeaveType, error) {
	if err := f.validate.Struct(lj); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace()+" "+fe.Tag())
			}
			return leave.LeaveType{}, generic.ErrValidation.With("invalid leave type %q: %s", lj.ID, strings.Join(fields, ", "))
		}
		return leave.LeaveType{}, generic.ErrValidation.Wrap(err)
	}

	lt := leave.LeaveType{
		ID:               generic.LeaveTypeID(lj.ID),
		Name:             lj.Name,
		Category:         leave.Category(lj.Category),
		MaxDays:          lj.MaxDays,
		HalfDayAllowed:   lj.HalfDayAllowed,
		Sandwich:         lj.Sandwich,
		DutyDaysRequired: lj.DutyDaysRequired,
		IncrementCount:   generic.Days(0),
	}

	if n := lj.Notice; n != nil {
		lt.DaysCheck = intPtr(n.DaysCheck)
		lt.DaysCheckMore = intPtr(n.More)
		lt.DaysCheckEqualOrLess = intPtr(n.EqualOrLess)
	}

	if inc := lj.Increment; inc != nil {
		if inc.Count.IsNegative() {
			return leave.LeaveType{}, generic.ErrValidation.With("invalid leave type %q: negative increment %s", lj.ID, inc.Count)
		}
		lt.IncrementCount = inc.Count.Round()
		lt.IncrementGapMonths = inc.GapMonths
	}

	if cf := lj.CarryForward; cf != nil {
		lt.CarryForward = true
		lt.CarryForwardLimit = cf.Limit
	}

	return lt, nil
}

// ToJSON converts a LeaveType to LeaveTypeJSON. The notice block is only
// emitted when the whole window is configured.
func (f *LeaveTypeFactory) ToJSON(lt leave.LeaveType) LeaveTypeJSON {
	lj := LeaveTypeJSON{
		ID:               string(lt.ID),
		Name:             lt.Name,
		Category:         string(lt.Category),
		MaxDays:          lt.MaxDays,
		HalfDayAllowed:   lt.HalfDayAllowed,
		Sandwich:         lt.Sandwich,
		DutyDaysRequired: lt.DutyDaysRequired,
	}
	if lt.DaysCheck != nil && lt.DaysCheckMore != nil && lt.DaysCheckEqualOrLess != nil {
		lj.Notice = &NoticeJSON{
			DaysCheck:   *lt.DaysCheck,
			More:        *lt.DaysCheckMore,
			EqualOrLess: *lt.DaysCheckEqualOrLess,
		}
	}
	if lt.IncrementGapMonths > 0 && lt.IncrementCount.IsPositive() {
		lj.Increment = &IncrementJSON{Count: lt.IncrementCount, GapMonths: lt.IncrementGapMonths}
	}
	if lt.CarryForward {
		lj.CarryForward = &CarryForwardJSON{Limit: lt.CarryForwardLimit}
	}
	return lj
}

// ParseLeaveTypes parses a JSON array of leave types. The first invalid
// entry fails the whole list.
func (f *LeaveTypeFactory) ParseLeaveTypes(jsonStr string) ([]leave.LeaveType, error) {
	var list []LeaveTypeJSON
	if err := json.Unmarshal([]byte(jsonStr), &list); err != nil {
		return nil, generic.ErrValidation.With("failed to parse leave types JSON: %v", err)
	}
	types := make([]leave.LeaveType, 0, len(list))
	seen := make(map[string]bool, len(list))
	for i, lj := range list {
		if seen[lj.ID] {
			return nil, generic.ErrValidation.With("duplicate leave type id %q", lj.ID)
		}
		seen[lj.ID] = true
		lt, err := f.FromJSON(lj)
		if err != nil {
			return nil, fmt.Errorf("leave type %d: %w", i, err)
		}
		types = append(types, lt)
	}
	return types, nil
}

func intPtr(n int) *int { return &n }
