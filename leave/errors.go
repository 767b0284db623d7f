package leave

import "github.com/warp/leave-engine/generic"

// Policy violations: expected rejections, surfaced to the employee.
var (
	ErrDateAlreadyApplied = generic.NewError(generic.PolicyViolation,
		"DATE_ALREADY_APPLIED", "one of the requested dates is already applied")
	ErrGenderCategoryMismatch = generic.NewError(generic.PolicyViolation,
		"GENDER_CATEGORY_MISMATCH", "leave type is gender specific")
	ErrNoticeTooShort = generic.NewError(generic.PolicyViolation,
		"NOTICE_TOO_SHORT", "leave applied with too short notice")
	ErrHalfDayNotApplicable = generic.NewError(generic.PolicyViolation,
		"HALF_DAY_NOT_APPLICABLE", "half day not applicable for leave type")
	ErrHalfDayMultiDay = generic.NewError(generic.PolicyViolation,
		"HALF_DAY_MULTI_DAY_NOT_ALLOWED", "half day can only be applied for one day")
	ErrInsufficientTenure = generic.NewError(generic.PolicyViolation,
		"INSUFFICIENT_TENURE", "minimum duty days not completed")
	ErrRestrictedHolidayMismatch = generic.NewError(generic.PolicyViolation,
		"RESTRICTED_HOLIDAY_MISMATCH", "selected days do not contain restricted holidays")
	ErrRetroactiveNotAllowed = generic.NewError(generic.PolicyViolation,
		"RETROACTIVE_NOT_ALLOWED", "applying leave for a previous day is only possible for emergency and bereavement leave")
	ErrInvalidDateSelection = generic.NewError(generic.PolicyViolation,
		"INVALID_DATE_SELECTION", "leave cannot be applied for the selected dates")
	ErrZeroDayRequest = generic.NewError(generic.PolicyViolation,
		"ZERO_DAY_REQUEST", "total leave days are 0")
	ErrInvalidTransition = generic.NewError(generic.PolicyViolation,
		"INVALID_STATUS_TRANSITION", "leave request status cannot change")
)

// Validation failures.
var (
	ErrIncompleteProfile = generic.NewError(generic.ValidationFailure,
		"INCOMPLETE_PROFILE", "complete profile details before applying leave, mainly gender")
	ErrInvalidRange = generic.ErrInvalidPeriod
)

// Configuration faults: HR must fix the data.
var (
	ErrDaysCheckNotConfigured = generic.NewError(generic.ConfigurationFault,
		"DAYS_CHECK_NOT_CONFIGURED", "days check not assigned")
	ErrJoiningDateMissing = generic.NewError(generic.ConfigurationFault,
		"JOINING_DATE_MISSING", "joining date not assigned by HR")
	ErrManagerCycle = generic.NewError(generic.ConfigurationFault,
		"MANAGER_CYCLE", "management chain contains a cycle")
)

// Missing records.
var (
	ErrEmployeeNotFound = generic.NewError(generic.NotFound,
		"EMPLOYEE_NOT_FOUND", "no such employee")
	ErrLeaveTypeNotFound = generic.NewError(generic.NotFound,
		"LEAVE_TYPE_NOT_FOUND", "no such leave type")
	ErrBalanceNotFound = generic.NewError(generic.NotFound,
		"BALANCE_NOT_FOUND", "leave balance not found")
	ErrRequestNotFound = generic.NewError(generic.NotFound,
		"REQUEST_NOT_FOUND", "no such leave request")
)
