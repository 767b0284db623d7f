package leave

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/leave-engine/generic"
)

// IncrementResult summarizes one run of the increment policies.
type IncrementResult struct {
	TypesApplied    []generic.LeaveTypeID
	BalancesUpdated int
}

// ApplyIncrements credits every active employee with each type's increment
// when its gap has elapsed since the last run. With carry-forward enabled
// and a limit set, a balance is capped at the limit.
func (e *Engine) ApplyIncrements(ctx context.Context, today generic.TimePoint) (IncrementResult, error) {
	var result IncrementResult
	types, err := e.Store.ListLeaveTypes(ctx)
	if err != nil {
		return result, fmt.Errorf("list leave types: %w", err)
	}

	for _, lt := range types {
		if lt.IncrementGapMonths <= 0 || !lt.IncrementCount.IsPositive() {
			continue
		}
		n, applied, err := e.incrementType(ctx, today, lt)
		if err != nil {
			return result, fmt.Errorf("increment %s: %w", lt.ID, err)
		}
		if applied {
			result.TypesApplied = append(result.TypesApplied, lt.ID)
			result.BalancesUpdated += n
			e.log.Info("leave balance increment applied",
				zap.String("type_id", string(lt.ID)),
				zap.Int("employees", n),
				zap.Stringer("amount", lt.IncrementCount),
			)
		}
	}
	return result, nil
}

func (e *Engine) incrementType(ctx context.Context, today generic.TimePoint, lt LeaveType) (int, bool, error) {
	updated := 0
	applied := false
	err := e.Store.WithTx(ctx, func(tx Store) error {
		last, ok, err := tx.LastIncrement(ctx, lt.ID)
		if err != nil {
			return err
		}
		if ok && today.Before(last.AddMonths(lt.IncrementGapMonths)) {
			return nil
		}

		employees, err := tx.ListEmployees(ctx, true)
		if err != nil {
			return err
		}
		for _, emp := range employees {
			bal, err := tx.GetBalance(ctx, emp.ID, lt.ID)
			if generic.IsNotFound(err) {
				bal = LeaveBalance{EmployeeID: emp.ID, TypeID: lt.ID, Balance: generic.Days(0)}
			} else if err != nil {
				return err
			}
			next := bal.Balance.Add(lt.IncrementCount)
			if lt.CarryForward && lt.CarryForwardLimit != nil {
				limit := generic.Days(*lt.CarryForwardLimit)
				// never lowers a balance already above the limit
				if next.GreaterThan(limit) && !bal.Balance.GreaterThan(limit) {
					next = limit
				} else if bal.Balance.GreaterThan(limit) {
					next = bal.Balance
				}
			}
			bal.Balance = next.Round()
			if err := tx.PutBalance(ctx, bal); err != nil {
				return err
			}
			updated++
		}
		if err := tx.RecordIncrement(ctx, lt.ID, today); err != nil {
			return err
		}
		applied = true
		return tx.AppendAudit(ctx, generic.AuditEntry{
			ID:        e.newID(),
			Timestamp: e.now().UTC(),
			ActorID:   "system",
			Action:    generic.AuditBalanceIncrement,
			TypeID:    lt.ID,
			Payload:   map[string]any{"employees": updated, "amount": lt.IncrementCount.String()},
		})
	})
	if err != nil {
		return 0, false, err
	}
	return updated, applied, nil
}
