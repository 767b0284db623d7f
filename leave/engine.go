/*
engine.go - Leave application service with transactional guarantees

PURPOSE:

	Apply is the single entry point for filing leave. It serializes on the
	balances it may charge, then inside one store transaction loads every
	input, runs the decision table and writes the request with its days.

FLOW:

 1. Validate the application structurally

 2. Lock (employee, type) and, when borrowing, (employee, Emergency type)

 3. WithTx: load Evaluation -> Decide -> CreateRequest -> audit

 4. After commit: notify the management chain and mail the approver

    If ANY step of 3 fails, nothing is written. Step 4 is best-effort: its
    failures are logged and never undo the committed request.

TODAY:

	Callers pass today explicitly. The engine never reads the wall clock for
	decisions.

SEE ALSO:
  - rules.go: Decide
  - mail.go: approval mail
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/generic"
)

// NotificationSink delivers in-app notifications. Fire-and-forget.
type NotificationSink interface {
	Notify(ctx context.Context, employeeIDs []generic.EmployeeID, message string) error
}

// Mail is one outgoing email.
type Mail struct {
	From     string
	FromName string
	To       []string
	Subject  string
	HTML     string
	CC       []string
}

type MailSink interface {
	Send(ctx context.Context, mail Mail) error
}

type Config struct {
	MailFrom     string
	MailFromName string

	// TopAdminRole receives its own approval mail; it has nobody above.
	TopAdminRole string
}

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Store    TxStore
	Locker   Locker           // defaults to an in-process KeyedMutex
	Notifier NotificationSink // optional
	Mailer   MailSink         // optional
	Config   Config

	log      *zap.Logger
	validate *validator.Validate
	newID    func() string
	now      func() time.Time
}

func NewEngine(store TxStore, cfg Config, logger ...*zap.Logger) *Engine {
	log := zap.L()
	if len(logger) > 0 && logger[0] != nil {
		log = logger[0]
	}
	return &Engine{
		Store:    store,
		Locker:   NewKeyedMutex(),
		Config:   cfg,
		log:      log.Named("leave.engine"),
		validate: validator.New(),
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Result describes an admitted application.
type Result struct {
	Request    LeaveRequest
	Days       []LeaveRequestDay
	Decision   Decision
	Employee   Employee
	Type       LeaveType
	ChargedTo  LeaveType  // type whose balance covers the request
	Recipients []Employee // management chain, immediate manager first
	Mail       *Mail      // approval mail, nil when none was addressed
}

// =============================================================================
// APPLY - The critical transactional operation
// =============================================================================

// Apply adjudicates app as of today and records it when admitted.
// Rejections are returned as classified errors (see generic.KindOf).
func (e *Engine) Apply(ctx context.Context, today generic.TimePoint, app Application) (*Result, error) {
	log := e.log.With(
		zap.String("employee_id", string(app.EmployeeID)),
		zap.String("type_id", string(app.TypeID)),
		zap.Stringer("from", app.FromDate),
		zap.Stringer("to", app.ToDate),
		zap.Bool("half_day", app.HalfDay),
	)
	log.Debug("adjudicating leave application", zap.Stringer("today", today))

	if err := e.validateApplication(app); err != nil {
		log.Info("leave application invalid", zap.Error(err))
		return nil, err
	}

	unlock, err := e.lockBalances(ctx, today, app)
	if err != nil {
		return nil, e.logFailure(log, err)
	}
	defer unlock()

	var res Result
	err = e.Store.WithTx(ctx, func(tx Store) error {
		ev, err := e.load(ctx, tx, today, app)
		if err != nil {
			return err
		}
		res.Decision = Decide(*ev)
		if !res.Decision.Admitted {
			return res.Decision.Err
		}

		req, days := e.build(today, app, ev.Range)
		if err := tx.CreateRequest(ctx, req, days); err != nil {
			return fmt.Errorf("create leave request: %w", err)
		}
		if err := tx.AppendAudit(ctx, e.auditEntry(app, req.ID, generic.AuditRequestAdmitted, res.Decision)); err != nil {
			return fmt.Errorf("append audit: %w", err)
		}

		res.Request, res.Days = req, days
		res.Employee, res.Type, res.ChargedTo = ev.Employee, ev.Type, ev.Type
		if res.Decision.Borrowed && ev.Emergency != nil {
			res.ChargedTo = LeaveType{ID: ev.Emergency.TypeID, Name: ev.Emergency.TypeName, Category: CategoryEmergency}
		}
		return nil
	})
	if err != nil {
		if res.Decision.Err != nil {
			e.auditRejection(ctx, log, app, res.Decision)
		}
		return nil, e.logFailure(log, err)
	}

	log.Info("leave request admitted",
		zap.String("request_id", string(res.Request.ID)),
		zap.String("route", string(res.Decision.Route)),
		zap.Int("days", len(res.Days)),
	)
	e.fanOut(ctx, log, &res)
	return &res, nil
}

// Evaluate runs the decision table without recording anything.
// The returned error is only set when inputs could not be loaded.
func (e *Engine) Evaluate(ctx context.Context, today generic.TimePoint, app Application) (Decision, error) {
	if err := e.validateApplication(app); err != nil {
		return Decision{}, err
	}
	ev, err := e.load(ctx, e.Store, today, app)
	if err != nil {
		return Decision{}, err
	}
	return Decide(*ev), nil
}

// Balance returns the actual, reserved and virtual balance of a type.
func (e *Engine) Balance(ctx context.Context, employeeID generic.EmployeeID, typeID generic.LeaveTypeID) (Snapshot, error) {
	lt, err := e.Store.GetLeaveType(ctx, typeID)
	if err != nil {
		return Snapshot{}, err
	}
	return NewLedger(e.Store).Snapshot(ctx, employeeID, lt)
}

// History returns one page of an employee's requests, newest first.
func (e *Engine) History(ctx context.Context, filter RequestFilter) (RequestPage, error) {
	if _, err := e.Store.GetEmployee(ctx, filter.EmployeeID); err != nil {
		return RequestPage{}, err
	}
	return e.Store.ListRequests(ctx, filter.Normalize())
}

// =============================================================================
// LOADING
// =============================================================================

func (e *Engine) validateApplication(app Application) error {
	if err := e.validate.Struct(app); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" "+fe.Tag())
			}
			return generic.ErrValidation.With("validation failed: %s", strings.Join(fields, ", "))
		}
		return generic.ErrValidation.Wrap(err)
	}
	if app.FromDate.IsZero() || app.ToDate.IsZero() {
		return generic.ErrValidation.With("validation failed: fromDate and toDate are required")
	}
	if app.ToDate.Before(app.FromDate) {
		return ErrInvalidRange.With("from date %s is after to date %s", app.FromDate, app.ToDate)
	}
	return nil
}

func (e *Engine) lockBalances(ctx context.Context, today generic.TimePoint, app Application) (func(), error) {
	lt, err := e.Store.GetLeaveType(ctx, app.TypeID)
	if err != nil {
		return nil, err
	}
	keys := []string{BalanceKey(app.EmployeeID, lt.ID)}
	if BorrowsEmergency(today, app, lt) {
		types, err := e.Store.ListLeaveTypes(ctx)
		if err != nil {
			return nil, fmt.Errorf("list leave types: %w", err)
		}
		if em, ok := FindTypeByCategory(types, CategoryEmergency); ok {
			keys = append(keys, BalanceKey(app.EmployeeID, em.ID))
		}
	}
	return LockAll(ctx, e.Locker, keys...)
}

func (e *Engine) load(ctx context.Context, s Store, today generic.TimePoint, app Application) (*Evaluation, error) {
	emp, err := s.GetEmployee(ctx, app.EmployeeID)
	if err != nil {
		return nil, err
	}
	lt, err := s.GetLeaveType(ctx, app.TypeID)
	if err != nil {
		return nil, err
	}
	ledger := NewLedger(s)
	bal, err := ledger.Snapshot(ctx, emp.ID, lt)
	if err != nil {
		return nil, err
	}
	rng, err := Expand(ctx, s, app.FromDate, app.ToDate, lt.Sandwich)
	if err != nil {
		return nil, err
	}
	applied, err := s.AppliedDates(ctx, emp.ID, lt.ID, rng.Dates)
	if err != nil {
		return nil, fmt.Errorf("check applied dates: %w", err)
	}

	ev := &Evaluation{
		Today:        today,
		Application:  app,
		Employee:     emp,
		Type:         lt,
		Range:        rng,
		Balance:      bal,
		AppliedDates: applied,
	}

	if lt.Category == CategoryRestrictedHoliday {
		holidays, err := s.HolidaysBetween(ctx, app.FromDate, app.ToDate)
		if err != nil {
			return nil, fmt.Errorf("load holidays: %w", err)
		}
		for _, h := range holidays {
			if h.Type == generic.RestrictedHoliday {
				ev.RestrictedHolidays++
			}
		}
	}

	if BorrowsEmergency(today, app, lt) {
		types, err := s.ListLeaveTypes(ctx)
		if err != nil {
			return nil, fmt.Errorf("list leave types: %w", err)
		}
		if em, ok := FindTypeByCategory(types, CategoryEmergency); ok {
			snap, err := ledger.EmergencySnapshot(ctx, emp.ID, em, types)
			if err != nil {
				return nil, err
			}
			ev.Emergency = &snap
		}
	}
	return ev, nil
}

func (e *Engine) build(today generic.TimePoint, app Application, rng DayRange) (LeaveRequest, []LeaveRequestDay) {
	req := LeaveRequest{
		ID:          generic.RequestID(e.newID()),
		EmployeeID:  app.EmployeeID,
		TypeID:      app.TypeID,
		HalfDay:     app.HalfDay,
		FromDate:    app.FromDate,
		ToDate:      app.ToDate,
		ApplyDate:   today,
		Status:      StatusOpen,
		Description: app.Description,
		ProcessedBy: app.EmployeeID,
		CreatedAt:   e.now().UTC(),
	}
	days := make([]LeaveRequestDay, 0, len(rng.Dates))
	for _, d := range rng.Dates {
		days = append(days, LeaveRequestDay{ID: e.newID(), RequestID: req.ID, Date: d})
	}
	return req, days
}

// =============================================================================
// AUDIT AND LOGGING
// =============================================================================

func (e *Engine) auditEntry(app Application, id generic.RequestID, action generic.AuditAction, d Decision) generic.AuditEntry {
	payload := map[string]any{
		"route":    string(d.Route),
		"trail":    strings.Join(d.Trail, ","),
		"from":     app.FromDate.String(),
		"to":       app.ToDate.String(),
		"half_day": app.HalfDay,
	}
	if d.Err != nil {
		payload["code"] = generic.CodeOf(d.Err)
		payload["reason"] = d.Err.Error()
	}
	return generic.AuditEntry{
		ID:         e.newID(),
		Timestamp:  e.now().UTC(),
		ActorID:    string(app.EmployeeID),
		Action:     action,
		EmployeeID: app.EmployeeID,
		TypeID:     app.TypeID,
		RequestID:  id,
		Payload:    payload,
	}
}

func (e *Engine) auditRejection(ctx context.Context, log *zap.Logger, app Application, d Decision) {
	if err := e.Store.AppendAudit(ctx, e.auditEntry(app, "", generic.AuditRequestRejected, d)); err != nil {
		log.Warn("failed to audit rejection", zap.Error(err))
	}
}

// logFailure logs err at the level its kind deserves and returns it.
func (e *Engine) logFailure(log *zap.Logger, err error) error {
	switch generic.KindOf(err) {
	case generic.InfrastructureFailure:
		log.Error("leave application failed", zap.Error(err))
	default:
		log.Info("leave application rejected",
			zap.Stringer("kind", generic.KindOf(err)),
			zap.String("code", generic.CodeOf(err)),
			zap.String("reason", err.Error()),
		)
	}
	return err
}
