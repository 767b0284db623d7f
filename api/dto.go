/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:

	Defines the JSON structures for API communication. These types decouple
	the leave and attendance models from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:

	Request bodies carry validator/v10 tags and are checked in decodeJSON.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ApplyLeaveRequest is the body of POST /api/employees/{id}/leave-requests.
type ApplyLeaveRequest struct {
	TypeID      string `json:"typeId" validate:"required"`
	FromDate    string `json:"fromDate" validate:"required,datetime=2006-01-02"`
	ToDate      string `json:"toDate" validate:"required,datetime=2006-01-02"`
	HalfDay     bool   `json:"halfDay"`
	Description string `json:"description" validate:"max=500"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenarioId" validate:"required"`
}

// UpdateStatusRequest is the body of PATCH /api/leave-requests/{id}/status.
type UpdateStatusRequest struct {
	Status  string `json:"status" validate:"required,oneof=open approved rejected deleted"`
	ActorID string `json:"actorId" validate:"required"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type LeaveRequestDTO struct {
	ID          string `json:"id"`
	EmployeeID  string `json:"employeeId"`
	TypeID      string `json:"typeId"`
	HalfDay     bool   `json:"halfDay"`
	FromDate    string `json:"fromDate"`
	ToDate      string `json:"toDate"`
	ApplyDate   string `json:"applyDate"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	ProcessedBy string `json:"processedBy,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

// ApplyLeaveResponse describes an admitted request.
type ApplyLeaveResponse struct {
	Request   LeaveRequestDTO `json:"request"`
	Days      []string        `json:"days"`
	Route     string          `json:"route"`
	ChargedTo string          `json:"chargedTo"` // leave type name whose balance covers it
	Borrowed  bool            `json:"borrowed"`
	NotifiedN int             `json:"notified"`
}

type BalanceDTO struct {
	TypeID   string         `json:"typeId"`
	TypeName string         `json:"typeName"`
	Actual   generic.Amount `json:"actual"`
	Reserved generic.Amount `json:"reserved"`
	Virtual  generic.Amount `json:"virtual"`
}

type HistoryResponse struct {
	Requests []LeaveRequestDTO `json:"requests"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Size     int               `json:"size"`
}

type NotificationDTO struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt"`
}

// IncrementResponse reports a manual run of the increment policies.
type IncrementResponse struct {
	TypesApplied    int `json:"typesApplied"`
	BalancesUpdated int `json:"balancesUpdated"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toLeaveRequestDTO(r leave.LeaveRequest) LeaveRequestDTO {
	return LeaveRequestDTO{
		ID:          string(r.ID),
		EmployeeID:  string(r.EmployeeID),
		TypeID:      string(r.TypeID),
		HalfDay:     r.HalfDay,
		FromDate:    r.FromDate.String(),
		ToDate:      r.ToDate.String(),
		ApplyDate:   r.ApplyDate.String(),
		Status:      string(r.Status),
		Description: r.Description,
		ProcessedBy: string(r.ProcessedBy),
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toBalanceDTO(s leave.Snapshot) BalanceDTO {
	return BalanceDTO{
		TypeID:   string(s.TypeID),
		TypeName: s.TypeName,
		Actual:   s.Actual,
		Reserved: s.Reserved,
		Virtual:  s.Virtual,
	}
}
