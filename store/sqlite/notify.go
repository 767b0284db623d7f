package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// IN-APP NOTIFICATIONS (leave.NotificationSink interface)
// =============================================================================

// Notification is a stored in-app notification.
type Notification struct {
	ID         string             `json:"id"`
	EmployeeID generic.EmployeeID `json:"employeeId"`
	Message    string             `json:"message"`
	CreatedAt  time.Time          `json:"createdAt"`
}

// Notify stores one notification row per employee.
func (s *Store) Notify(ctx context.Context, employeeIDs []generic.EmployeeID, message string) error {
	defer s.lock()()

	now := time.Now().UTC().Format(timestampLayout)
	for _, id := range employeeIDs {
		_, err := s.q.ExecContext(ctx,
			`INSERT INTO notifications (id, employee_id, message, created_at) VALUES (?, ?, ?, ?)`,
			uuid.NewString(), id, message, now)
		if err != nil {
			return fmt.Errorf("failed to insert notification: %w", err)
		}
	}
	return nil
}

// ListNotifications returns an employee's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, employeeID generic.EmployeeID, limit int) ([]Notification, error) {
	defer s.rlock()()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, employee_id, message, created_at FROM notifications
		WHERE employee_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		employeeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var (
			n   Notification
			raw string
		)
		if err := rows.Scan(&n.ID, &n.EmployeeID, &n.Message, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		created, err := parseTimestamp(raw)
		if err != nil {
			return nil, err
		}
		n.CreatedAt = created
		out = append(out, n)
	}
	return out, rows.Err()
}

// =============================================================================
// AUDIT LOG (generic.AuditLog interface)
// =============================================================================

func (s *Store) AppendAudit(ctx context.Context, e generic.AuditEntry) error {
	defer s.lock()()

	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode audit payload: %w", err)
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO audit_log (id, timestamp, actor_id, action, employee_id, type_id, request_id, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UTC().Format(timestampLayout), e.ActorID, e.Action,
		e.EmployeeID, e.TypeID, e.RequestID, string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (s *Store) QueryAudit(ctx context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error) {
	defer s.rlock()()

	query := `SELECT id, timestamp, actor_id, action, employee_id, type_id, request_id, payload_json FROM audit_log WHERE 1=1`
	var args []any
	if filter.EmployeeID != nil {
		query += ` AND employee_id = ?`
		args = append(args, *filter.EmployeeID)
	}
	if filter.TypeID != nil {
		query += ` AND type_id = ?`
		args = append(args, *filter.TypeID)
	}
	query += ` ORDER BY timestamp`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var out []generic.AuditEntry
	for rows.Next() {
		var (
			e       generic.AuditEntry
			ts      string
			payload []byte
		)
		if err := rows.Scan(&e.ID, &ts, &e.ActorID, &e.Action, &e.EmployeeID, &e.TypeID, &e.RequestID, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		stamp, err := parseTimestamp(ts)
		if err != nil {
			return nil, err
		}
		e.Timestamp = stamp
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode audit payload: %w", err)
			}
		}
		// actions and time bounds are filtered in Go
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	return out, rows.Err()
}
