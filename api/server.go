/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/contributions/*  Statutory contribution calculation and payroll runs
  /api/loans/*          Loan lifecycle
  /api/policies         Loan-type caps in effect
  /healthz              Liveness

SECURITY NOTE:
  No authentication middleware here. A deployment mounts its own
  auth/tenancy stack in front of this router.

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
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Contribution routes
		r.Route("/contributions", func(r chi.Router) {
			r.Post("/calculate", h.CalculateContribution)
			r.Get("/payroll", h.ListPayrollRuns)
			r.Post("/payroll", h.RunPayroll)
			r.Get("/payroll/{id}", h.GetPayrollRun)
		})

		// Loan routes
		r.Route("/loans", func(r chi.Router) {
			r.Get("/", h.ListLoans)
			r.Post("/", h.CreateLoan)
			r.Post("/eligibility", h.EvaluateEligibility)
			r.Get("/{id}", h.GetLoan)
			r.Delete("/{id}", h.DeleteLoan)
			r.Post("/{id}/approve", h.ApproveLoan)
			r.Post("/{id}/reject", h.RejectLoan)
			r.Post("/{id}/disburse", h.DisburseLoan)
			r.Post("/{id}/payments", h.ApplyPayment)
			r.Post("/{id}/settle", h.SettleEarly)
			r.Post("/{id}/default", h.MarkDefaulted)
			r.Post("/{id}/restructure", h.RestructureLoan)
			r.Post("/{id}/clearance", h.IssueClearance)
		})

		// Policy routes
		r.Get("/policies", h.ListPolicies)
	})

	return r
}
