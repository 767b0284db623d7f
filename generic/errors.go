/*
errors.go - Centralized error taxonomy for the leave and attendance engines

PURPOSE:

	Every error an engine returns belongs to exactly one Kind. Callers route on
	the Kind (apologize to the employee, send to HR, retry) and show Message.

ERROR KINDS:
 1. ValidationFailure     - malformed input, surfaced verbatim
 2. NotFound              - referenced employee / type / balance absent
 3. PolicyViolation       - expected rejection with a human-readable reason
 4. InsufficientBalance   - carries the type name and balance figure
 5. ConfigurationFault    - HR data incomplete ("fix your data")
 6. InfrastructureFailure - store / mail / notification failures

USAGE:

	Domain packages declare sentinels and format them per call:

	  var ErrNoticeTooShort = generic.NewError(generic.PolicyViolation,
	      "NOTICE_TOO_SHORT", "notice period too short")

	  return ErrNoticeTooShort.With("apply %d days before", n)

	errors.Is(err, ErrNoticeTooShort) still holds for the formatted copy.

SEE ALSO:
  - leave/errors.go: Leave-domain sentinels
  - api/handlers.go: Kind to HTTP status mapping
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// KIND
// =============================================================================

type Kind int

const (
	InfrastructureFailure Kind = iota
	ValidationFailure
	NotFound
	PolicyViolation
	InsufficientBalance
	ConfigurationFault
)

func (k Kind) String() string {
	switch k {
	case ValidationFailure:
		return "validation_failure"
	case NotFound:
		return "not_found"
	case PolicyViolation:
		return "policy_violation"
	case InsufficientBalance:
		return "insufficient_balance"
	case ConfigurationFault:
		return "configuration_fault"
	default:
		return "infrastructure_failure"
	}
}

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// Error is a classified engine error. Sentinels are *Error values; formatted
// copies produced by With keep a pointer to their sentinel so errors.Is works.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error

	sentinel *Error
}

func NewError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel a copy was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e == t || (e.sentinel != nil && e.sentinel == t)
}

// With returns a copy of e carrying a per-call message.
func (e *Error) With(format string, args ...any) *Error {
	return &Error{
		Kind:     e.Kind,
		Code:     e.Code,
		Message:  fmt.Sprintf(format, args...),
		Err:      e.Err,
		sentinel: e.root(),
	}
}

// Wrap returns a copy of e carrying a cause.
func (e *Error) Wrap(cause error) *Error {
	return &Error{
		Kind:     e.Kind,
		Code:     e.Code,
		Message:  e.Message,
		Err:      cause,
		sentinel: e.root(),
	}
}

func (e *Error) root() *Error {
	if e.sentinel != nil {
		return e.sentinel
	}
	return e
}

// InsufficientBalanceError provides details about a balance shortage.
// Reserved is non-zero when the shortage comes from pending requests rather
// than the stored balance itself.
type InsufficientBalanceError struct {
	TypeName  string
	Balance   Amount
	Requested Amount
	Reserved  Amount
}

func (e *InsufficientBalanceError) Error() string {
	if e.Reserved.IsPositive() && e.Balance.GreaterThanOrEqual(e.Requested) {
		return fmt.Sprintf("revoke or edit existing %s: all balances are taken by applied leaves (balance %s, reserved %s)",
			e.TypeName, e.Balance, e.Reserved)
	}
	return fmt.Sprintf("no sufficient leave for type %s: balance %s, requested %s",
		e.TypeName, e.Balance, e.Requested)
}

// Kind reports InsufficientBalance.
func (e *InsufficientBalanceError) Kind() Kind { return InsufficientBalance }

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = NewError(ValidationFailure, "INVALID_RANGE", "invalid range: from date after to date")

	// ErrValidation wraps structural input failures.
	ErrValidation = NewError(ValidationFailure, "VALIDATION_FAILED", "validation failed")

	// ErrNotFound is the generic missing-record error; stores wrap it.
	ErrNotFound = NewError(NotFound, "NOT_FOUND", "not found")

	// ErrInfrastructure wraps store / sink failures.
	ErrInfrastructure = NewError(InfrastructureFailure, "INFRASTRUCTURE_FAILURE", "infrastructure failure")
)

// =============================================================================
// ERROR HELPERS
// =============================================================================

// KindOf classifies err. Unclassified errors are infrastructure failures.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	var ib *InsufficientBalanceError
	if errors.As(err, &ib) {
		return InsufficientBalance
	}
	return InfrastructureFailure
}

// CodeOf returns the stable error code, or "" for unclassified errors.
func CodeOf(err error) string {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	var ib *InsufficientBalanceError
	if errors.As(err, &ib) {
		return "INSUFFICIENT_BALANCE"
	}
	return ""
}

// IsClientError returns true if the error is an expected rejection of the
// caller's input.
func IsClientError(err error) bool {
	switch KindOf(err) {
	case ValidationFailure, PolicyViolation, InsufficientBalance:
		return true
	}
	return false
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == NotFound
}

// IsConfigurationFault returns true if HR data must be fixed.
func IsConfigurationFault(err error) bool {
	return err != nil && KindOf(err) == ConfigurationFault
}
