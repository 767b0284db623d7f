/*
store.go - Audit trail interface

PURPOSE:

	Every adjudication, admitted or rejected, leaves an audit entry with the
	decision route and the guards it passed through. The audit log is
	append-only and lives beside the record store.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: audit_log table
  - store/memory/memory.go: in-memory slice

SEE ALSO:
  - leave/engine.go: Appends entries inside the adjudication transaction
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// AUDIT LOG - Tracks who did what when
// =============================================================================

// AuditEntry records who did what when.
type AuditEntry struct {
	ID         string
	Timestamp  time.Time
	ActorID    string // who performed the action
	Action     AuditAction
	EmployeeID EmployeeID
	TypeID     LeaveTypeID
	RequestID  RequestID      // empty for rejections
	Payload    map[string]any // action-specific data
}

type AuditAction string

const (
	AuditRequestAdmitted  AuditAction = "request_admitted"
	AuditRequestRejected  AuditAction = "request_rejected"
	AuditStatusChanged    AuditAction = "status_changed"
	AuditBalanceIncrement AuditAction = "balance_increment"
)

// AuditLog stores audit entries. Append-only.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

type AuditFilter struct {
	EmployeeID *EmployeeID
	TypeID     *LeaveTypeID
	Actions    []AuditAction
	From       *time.Time
	To         *time.Time
}

// Matches reports whether e passes every set filter field.
func (f AuditFilter) Matches(e AuditEntry) bool {
	if f.EmployeeID != nil && e.EmployeeID != *f.EmployeeID {
		return false
	}
	if f.TypeID != nil && e.TypeID != *f.TypeID {
		return false
	}
	if len(f.Actions) > 0 {
		found := false
		for _, a := range f.Actions {
			if a == e.Action {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Timestamp.After(*f.To) {
		return false
	}
	return true
}
