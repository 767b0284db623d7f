/*
Package generic provides the domain-agnostic primitives shared by the leave
and attendance engines.

PURPOSE:

	Leave adjudication and attendance classification both reason about calendar
	days, fractional day counts and a holiday calendar. This package holds those
	building blocks so that the domain packages only contain policy.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A decimal quantity of days (supports 0.5 half-day steps)
  - Identifiers: Type-safe employee / leave type / request ids

DESIGN PRINCIPLES:
 1. Precision: Uses decimal.Decimal, never float64, so repeated 0.5
    increments never drift
 2. Balances are rounded to 2 decimal places at the storage boundary
 3. Type Safety: Strong typing for IDs prevents mixing employee/type IDs

USAGE:

	half := generic.Days(1).Half()        // 0.5
	left := generic.Days(3).Sub(half)     // 2.5
	ok := left.GreaterThanOrEqual(generic.Days(2))

SEE ALSO:
  - time.go: Day-granular TimePoint and the holiday calendar
  - errors.go: Error kinds surfaced by the engines
*/
package generic

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity of days
// =============================================================================

// BalancePrecision is the number of decimal places kept for stored balances.
const BalancePrecision = 2

type Amount struct {
	Value decimal.Decimal
}

var two = decimal.NewFromInt(2)

func Days(n int) Amount { return Amount{Value: decimal.NewFromInt(int64(n))} }

// ParseAmount parses a decimal string such as "2.5".
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Amount{Value: d}, nil
}

func MustParseAmount(s string) Amount {
	return Amount{Value: decimal.RequireFromString(s)}
}

func (a Amount) Add(b Amount) Amount              { return Amount{Value: a.Value.Add(b.Value)} }
func (a Amount) Sub(b Amount) Amount              { return Amount{Value: a.Value.Sub(b.Value)} }
func (a Amount) Half() Amount                     { return Amount{Value: a.Value.Div(two)} }
func (a Amount) IsZero() bool                     { return a.Value.IsZero() }
func (a Amount) IsPositive() bool                 { return a.Value.IsPositive() }
func (a Amount) IsNegative() bool                 { return a.Value.IsNegative() }
func (a Amount) Equal(b Amount) bool              { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool        { return a.Value.GreaterThan(b.Value) }
func (a Amount) GreaterThanOrEqual(b Amount) bool { return a.Value.GreaterThanOrEqual(b.Value) }
func (a Amount) LessThan(b Amount) bool           { return a.Value.LessThan(b.Value) }
func (a Amount) Round() Amount                    { return Amount{Value: a.Value.Round(BalancePrecision)} }
func (a Amount) String() string                   { return a.Value.String() }

func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}

// MarshalJSON renders the amount as a JSON number string, e.g. "2.5".
func (a Amount) MarshalJSON() ([]byte, error) { return a.Value.MarshalJSON() }

func (a *Amount) UnmarshalJSON(b []byte) error { return a.Value.UnmarshalJSON(b) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type LeaveTypeID string
type RequestID string
