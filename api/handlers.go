/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:

	Exposes leave adjudication and attendance reporting via REST API. Handles
	HTTP request/response and JSON serialization, and delegates to the leave
	engine and the attendance reporter.

ENDPOINTS:

	Leave:
	  POST   /api/employees/{id}/leave-requests        File a leave application
	  GET    /api/employees/{id}/leave-requests        Paged history (?status=&page=&size=)
	  GET    /api/employees/{id}/balances/{typeId}     Actual, reserved and virtual balance
	  PATCH  /api/leave-requests/{id}/status           Lifecycle transition

	Attendance:
	  GET    /api/employees/{id}/attendance/{date}     Daily detail
	  GET    /api/employees/{id}/attendance/summary    Monthly summary (?year=&month=)
	  GET    /api/attendance/summary                   All active employees (?year=&month=)

	Other:
	  GET    /api/employees/{id}/notifications         In-app notifications
	  POST   /api/admin/increments                     Run balance increment policies now

	Scenarios (scenarios.go):
	  GET    /api/scenarios                            Available demo scenarios
	  GET    /api/scenarios/current                    Last loaded scenario
	  POST   /api/scenarios/load                       Reset and seed a scenario

ERROR HANDLING:

	Errors are classified by generic.KindOf and returned as JSON:
	- 400: Validation errors, invalid input
	- 404: Employee, leave type or request not found
	- 409: Configuration fault, route to HR
	- 422: Policy violation or insufficient balance
	- 500: Internal errors

SECURITY NOTE:

	No authentication. The employee id in the path is trusted.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/attendance"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// NotificationReader lists stored in-app notifications.
type NotificationReader interface {
	ListNotifications(ctx context.Context, employeeID generic.EmployeeID, limit int) ([]sqlite.Notification, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine        *leave.Engine
	Reporter      *attendance.Reporter
	Notifications NotificationReader // optional
	Scenarios     ScenarioStore      // optional, enables the demo scenario routes

	// Today returns the decision date. Defaults to generic.Today.
	Today func() generic.TimePoint

	log      *zap.Logger
	validate *validator.Validate

	scenarioMu      sync.Mutex
	currentScenario string
}

func NewHandler(engine *leave.Engine, reporter *attendance.Reporter, logger ...*zap.Logger) *Handler {
	log := zap.L()
	if len(logger) > 0 && logger[0] != nil {
		log = logger[0]
	}
	return &Handler{
		Engine:   engine,
		Reporter: reporter,
		Today:    generic.Today,
		log:      log.Named("api"),
		validate: validator.New(),
	}
}

// =============================================================================
// LEAVE HANDLERS
// =============================================================================

// ApplyLeave files a leave application for the employee in the path.
// POST /api/employees/{id}/leave-requests
func (h *Handler) ApplyLeave(w http.ResponseWriter, r *http.Request) {
	var req ApplyLeaveRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	from, _ := generic.ParseDate(req.FromDate)
	to, _ := generic.ParseDate(req.ToDate)

	app := leave.Application{
		EmployeeID:  generic.EmployeeID(chi.URLParam(r, "id")),
		TypeID:      generic.LeaveTypeID(req.TypeID),
		FromDate:    from,
		ToDate:      to,
		HalfDay:     req.HalfDay,
		Description: req.Description,
	}
	res, err := h.Engine.Apply(r.Context(), h.Today(), app)
	if err != nil {
		h.writeDomainError(w, r, "Leave application rejected", err)
		return
	}

	days := make([]string, len(res.Days))
	for i, d := range res.Days {
		days[i] = d.Date.String()
	}
	writeJSON(w, http.StatusCreated, ApplyLeaveResponse{
		Request:   toLeaveRequestDTO(res.Request),
		Days:      days,
		Route:     string(res.Decision.Route),
		ChargedTo: res.ChargedTo.Name,
		Borrowed:  res.Decision.Borrowed,
		NotifiedN: len(res.Recipients),
	})
}

// ListLeaveRequests returns one page of the employee's request history.
// GET /api/employees/{id}/leave-requests?status=&page=&size=
func (h *Handler) ListLeaveRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := leave.RequestFilter{EmployeeID: generic.EmployeeID(chi.URLParam(r, "id"))}

	if s := q.Get("status"); s != "" {
		status := leave.Status(strings.ToLower(s))
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "Invalid status", nil)
			return
		}
		filter.Status = &status
	}
	var err error
	if filter.Page, err = queryInt(q.Get("page"), 0); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid page", err)
		return
	}
	if filter.Size, err = queryInt(q.Get("size"), 10); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid size", err)
		return
	}
	filter = filter.Normalize()

	page, err := h.Engine.History(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, r, "Failed to list leave requests", err)
		return
	}

	dtos := make([]LeaveRequestDTO, len(page.Requests))
	for i, req := range page.Requests {
		dtos[i] = toLeaveRequestDTO(req)
	}
	writeJSON(w, http.StatusOK, HistoryResponse{
		Requests: dtos,
		Total:    page.Total,
		Page:     filter.Page,
		Size:     filter.Size,
	})
}

// GetBalance returns the balance view of one leave type.
// GET /api/employees/{id}/balances/{typeId}
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	empID := generic.EmployeeID(chi.URLParam(r, "id"))
	if _, err := h.Engine.Store.GetEmployee(ctx, empID); err != nil {
		h.writeDomainError(w, r, "Failed to get balance", err)
		return
	}
	snap, err := h.Engine.Balance(ctx, empID, generic.LeaveTypeID(chi.URLParam(r, "typeId")))
	if err != nil {
		h.writeDomainError(w, r, "Failed to get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(snap))
}

// UpdateStatus moves a request along its lifecycle.
// PATCH /api/leave-requests/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	updated, err := h.Engine.Transition(r.Context(),
		generic.RequestID(chi.URLParam(r, "id")),
		leave.Status(req.Status),
		generic.EmployeeID(req.ActorID))
	if err != nil {
		h.writeDomainError(w, r, "Failed to update leave request", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(updated))
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// GetDailyAttendance returns the classified status of one day.
// GET /api/employees/{id}/attendance/{date}
func (h *Handler) GetDailyAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	empID := generic.EmployeeID(chi.URLParam(r, "id"))
	date, err := generic.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	if _, err := h.Engine.Store.GetEmployee(ctx, empID); err != nil {
		h.writeDomainError(w, r, "Failed to get attendance", err)
		return
	}
	detail, err := h.Reporter.DailyDetail(ctx, h.Today(), empID, date)
	if err != nil {
		h.writeDomainError(w, r, "Failed to get attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// GetMonthlySummary returns the status counts of one month.
// GET /api/employees/{id}/attendance/summary?year=&month=
func (h *Handler) GetMonthlySummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	empID := generic.EmployeeID(chi.URLParam(r, "id"))
	year, month, ok := h.yearMonth(w, r)
	if !ok {
		return
	}
	if _, err := h.Engine.Store.GetEmployee(ctx, empID); err != nil {
		h.writeDomainError(w, r, "Failed to get summary", err)
		return
	}
	summary, err := h.Reporter.MonthlySummary(ctx, h.Today(), empID, year, month)
	if err != nil {
		h.writeDomainError(w, r, "Failed to get summary", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ListMonthlySummaries returns the summary of every active employee.
// GET /api/attendance/summary?year=&month=
func (h *Handler) ListMonthlySummaries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	year, month, ok := h.yearMonth(w, r)
	if !ok {
		return
	}
	employees, err := h.Engine.Store.ListEmployees(ctx, true)
	if err != nil {
		h.writeDomainError(w, r, "Failed to list employees", err)
		return
	}
	ids := make([]generic.EmployeeID, len(employees))
	for i, e := range employees {
		ids[i] = e.ID
	}
	summaries, err := h.Reporter.Summaries(ctx, h.Today(), ids, year, month)
	if err != nil {
		h.writeDomainError(w, r, "Failed to compute summaries", err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// =============================================================================
// NOTIFICATIONS AND ADMIN
// =============================================================================

// ListNotifications returns the employee's in-app notifications.
// GET /api/employees/{id}/notifications?limit=
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	if h.Notifications == nil {
		writeError(w, http.StatusNotFound, "Notifications are not stored", nil)
		return
	}
	limit, err := queryInt(r.URL.Query().Get("limit"), 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}
	list, err := h.Notifications.ListNotifications(r.Context(), generic.EmployeeID(chi.URLParam(r, "id")), limit)
	if err != nil {
		h.writeDomainError(w, r, "Failed to list notifications", err)
		return
	}
	dtos := make([]NotificationDTO, len(list))
	for i, n := range list {
		dtos[i] = NotificationDTO{ID: n.ID, Message: n.Message, CreatedAt: n.CreatedAt.Format(time.RFC3339)}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RunIncrements applies due increment policies immediately.
// POST /api/admin/increments
func (h *Handler) RunIncrements(w http.ResponseWriter, r *http.Request) {
	res, err := h.Engine.ApplyIncrements(r.Context(), h.Today())
	if err != nil {
		h.writeDomainError(w, r, "Failed to apply increments", err)
		return
	}
	writeJSON(w, http.StatusOK, IncrementResponse{TypesApplied: len(res.TypesApplied), BalancesUpdated: res.BalancesUpdated})
}

// =============================================================================
// HELPERS
// =============================================================================

// decodeJSON decodes and validates the body into dst. On failure it writes
// a 400 and returns false.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" "+fe.Tag())
			}
			err = fmt.Errorf("%s", strings.Join(fields, ", "))
		}
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

func (h *Handler) yearMonth(w http.ResponseWriter, r *http.Request) (int, time.Month, bool) {
	today := h.Today()
	year, err := queryInt(r.URL.Query().Get("year"), today.Year())
	if err != nil || year < 1 {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return 0, 0, false
	}
	month, err := queryInt(r.URL.Query().Get("month"), int(today.Month()))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return 0, 0, false
	}
	return year, time.Month(month), true
}

func queryInt(s string, fallback int) (int, error) {
	if s == "" {
		return fallback, nil
	}
	return strconv.Atoi(s)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch generic.KindOf(err) {
	case generic.ValidationFailure:
		return http.StatusBadRequest
	case generic.NotFound:
		return http.StatusNotFound
	case generic.PolicyViolation, generic.InsufficientBalance:
		return http.StatusUnprocessableEntity
	case generic.ConfigurationFault:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: message, Code: generic.CodeOf(err), Details: err.Error()}
	if status == http.StatusInternalServerError {
		h.log.Error(message, zap.String("path", r.URL.Path), zap.Error(err))
		resp.Details = ""
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
