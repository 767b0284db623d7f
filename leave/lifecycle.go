package leave

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/leave-engine/generic"
)

// Transition moves a request along its lifecycle. Balances are owned by the
// approval and revoke flows outside the engine and are not touched here.
func (e *Engine) Transition(ctx context.Context, id generic.RequestID, to Status, actor generic.EmployeeID) (LeaveRequest, error) {
	log := e.log.With(zap.String("request_id", string(id)), zap.String("to", string(to)))
	if !to.Valid() {
		return LeaveRequest{}, generic.ErrValidation.With("unknown status %q", to)
	}

	current, err := e.Store.GetRequest(ctx, id)
	if err != nil {
		return LeaveRequest{}, err
	}
	unlock, err := LockAll(ctx, e.Locker, BalanceKey(current.EmployeeID, current.TypeID))
	if err != nil {
		return LeaveRequest{}, err
	}
	defer unlock()

	var out LeaveRequest
	err = e.Store.WithTx(ctx, func(tx Store) error {
		req, err := tx.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if !req.Status.CanTransitionTo(to) {
			return ErrInvalidTransition.With("leave request cannot move from %s to %s", req.Status, to)
		}
		if err := tx.UpdateRequestStatus(ctx, id, to, actor); err != nil {
			return fmt.Errorf("update leave request status: %w", err)
		}
		err = tx.AppendAudit(ctx, generic.AuditEntry{
			ID:         e.newID(),
			Timestamp:  e.now().UTC(),
			ActorID:    string(actor),
			Action:     generic.AuditStatusChanged,
			EmployeeID: req.EmployeeID,
			TypeID:     req.TypeID,
			RequestID:  id,
			Payload:    map[string]any{"from": string(req.Status), "to": string(to)},
		})
		if err != nil {
			return fmt.Errorf("append audit: %w", err)
		}
		req.Status = to
		req.ProcessedBy = actor
		out = req
		return nil
	})
	if err != nil {
		return LeaveRequest{}, e.logFailure(log, err)
	}

	log.Info("leave request status changed")
	if e.Notifier != nil && actor != out.EmployeeID {
		msg := fmt.Sprintf("Leave %s to %s is %s", out.FromDate, out.ToDate, out.Status)
		if err := e.Notifier.Notify(ctx, []generic.EmployeeID{out.EmployeeID}, msg); err != nil {
			log.Warn("failed to notify employee", zap.Error(err))
		}
	}
	return out, nil
}
