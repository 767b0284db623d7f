/*
ledger.go - Actual and virtual balance

PURPOSE:

	The stored balance alone is not enough to admit a request: Open requests
	that are not yet approved have already promised some of it away. The
	ledger computes both figures and admits only when both cover the request.

FORMULA:

	reserved = full-day Open request days + 0.5 * half-day Open request days
	virtual  = actual - reserved

	admissible  <=>  actual >= requested  AND  virtual >= requested

EMERGENCY BORROWING:

	Retroactive Casual/Privilege requests are charged against the Emergency
	type. Its reservation only counts retroactive Open requests of the
	borrowing categories and of Emergency itself.

SEE ALSO:
  - rules.go: balance guards
  - store.go: ReservedDays
*/
package leave

import (
	"context"

	"github.com/warp/leave-engine/generic"
)

// Snapshot is the balance of one (employee, type) at decision time.
type Snapshot struct {
	TypeID   generic.LeaveTypeID
	TypeName string
	Actual   generic.Amount
	Reserved generic.Amount
	Virtual  generic.Amount
}

// Admit returns an *generic.InsufficientBalanceError unless both the actual
// and the virtual balance cover requested.
func (s Snapshot) Admit(requested generic.Amount) error {
	if s.Actual.GreaterThanOrEqual(requested) && s.Virtual.GreaterThanOrEqual(requested) {
		return nil
	}
	return &generic.InsufficientBalanceError{
		TypeName:  s.TypeName,
		Balance:   s.Actual,
		Requested: requested,
		Reserved:  s.Reserved,
	}
}

type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Snapshot computes the balance of a type against its own Open requests.
func (l *Ledger) Snapshot(ctx context.Context, employeeID generic.EmployeeID, lt LeaveType) (Snapshot, error) {
	return l.snapshot(ctx, employeeID, lt, ReservationQuery{
		EmployeeID: employeeID,
		TypeIDs:    []generic.LeaveTypeID{lt.ID},
	})
}

// EmergencySnapshot computes the Emergency balance available to retroactive
// borrowing requests.
func (l *Ledger) EmergencySnapshot(ctx context.Context, employeeID generic.EmployeeID, emergency LeaveType, types []LeaveType) (Snapshot, error) {
	ids := []generic.LeaveTypeID{emergency.ID}
	for _, t := range types {
		if t.Category.BorrowsEmergency() {
			ids = append(ids, t.ID)
		}
	}
	return l.snapshot(ctx, employeeID, emergency, ReservationQuery{
		EmployeeID:      employeeID,
		TypeIDs:         ids,
		RetroactiveOnly: true,
	})
}

func (l *Ledger) snapshot(ctx context.Context, employeeID generic.EmployeeID, lt LeaveType, q ReservationQuery) (Snapshot, error) {
	bal, err := l.store.GetBalance(ctx, employeeID, lt.ID)
	if err != nil {
		return Snapshot{}, err
	}
	res, err := l.store.ReservedDays(ctx, q)
	if err != nil {
		return Snapshot{}, err
	}
	reserved := res.Amount()
	return Snapshot{
		TypeID:   lt.ID,
		TypeName: lt.Name,
		Actual:   bal.Balance,
		Reserved: reserved,
		Virtual:  bal.Balance.Sub(reserved),
	}, nil
}
