/*
server.go - HTTP router and middleware configuration

PURPOSE:

	Configures the HTTP router (chi), middleware stack, and route definitions.
	This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
 1. RequestID:  Unique ID per request for tracing
 2. Logger:     Request logging
 3. Recoverer:  Panic recovery (500 instead of crash)
 4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:

	/api/employees/{id}/*   Leave applications, balances, attendance
	/api/leave-requests/*   Lifecycle transitions
	/api/attendance/*       Organisation-wide summaries
	/api/admin/*            Operational triggers
	/api/scenarios/*        Demo scenarios

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins ...string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/employees/{id}", func(r chi.Router) {
			r.Post("/leave-requests", h.ApplyLeave)
			r.Get("/leave-requests", h.ListLeaveRequests)
			r.Get("/balances/{typeId}", h.GetBalance)
			// summary is registered before {date} so it is not parsed as a date
			r.Get("/attendance/summary", h.GetMonthlySummary)
			r.Get("/attendance/{date}", h.GetDailyAttendance)
			r.Get("/notifications", h.ListNotifications)
		})

		r.Patch("/leave-requests/{id}/status", h.UpdateStatus)
		r.Get("/attendance/summary", h.ListMonthlySummaries)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/increments", h.RunIncrements)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
