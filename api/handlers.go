/*
handlers.go - HTTP handlers over the benefits engine

PURPOSE:
  Thin glue between JSON requests and the pure core: decode + validate,
  load the aggregate, run the lifecycle operation under the store's
  per-loan lock, persist, encode. No business rules live here.

ERROR MAPPING:
  *loan.ValidationError   -> 400 with the offending field
  *loan.EligibilityError  -> 422 with the failed-check list
  *loan.InvalidStateError -> 409 with the state conflict
  loan.ErrLoanNotFound    -> 404
  anything else           -> 500

TENANT ISOLATION:
  Out of scope here by design; a production deployment mounts its own
  auth/tenancy middleware in front of this router.

SEE ALSO:
  - dto.go: Request/response shapes
  - server.go: Route wiring
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/warp/benefits-engine/contribution"
	"github.com/warp/benefits-engine/letters"
	"github.com/warp/benefits-engine/loan"
)

// RunStore persists payroll contribution runs. Implemented by
// store/sqlite; nil disables run persistence (memory-only deployments).
type RunStore interface {
	SavePayrollRun(ctx context.Context, summary contribution.Summary) error
	GetPayrollRun(ctx context.Context, id string) (contribution.Summary, error)
	ListPayrollRuns(ctx context.Context) ([]contribution.RunHeader, error)
}

// Handler holds the engine dependencies.
type Handler struct {
	Loans      loan.Store
	Runs       RunStore
	Lifecycle  *loan.Lifecycle
	Calculator *contribution.Calculator
	LettersDir string

	validate *validator.Validate
}

// NewHandler wires a handler. runs may be nil.
func NewHandler(loans loan.Store, runs RunStore, lc *loan.Lifecycle, calc *contribution.Calculator, lettersDir string) *Handler {
	return &Handler{
		Loans:      loans,
		Runs:       runs,
		Lifecycle:  lc,
		Calculator: calc,
		LettersDir: lettersDir,
		validate:   validator.New(),
	}
}

// =============================================================================
// CONTRIBUTION ENDPOINTS
// =============================================================================

// CalculateContribution handles POST /api/contributions/calculate.
func (h *Handler) CalculateContribution(w http.ResponseWriter, r *http.Request) {
	var req CalculateContributionRequest
	if !h.decode(w, r, &req) {
		return
	}

	in := contribution.Input{
		National:         req.National,
		BasicSalary:      decimal.NewFromFloat(req.BasicSalary),
		HousingAllowance: decimal.NewFromFloat(req.HousingAllowance),
	}
	if hire, ok := parseDate(req.HireDate); ok && req.HireDate != "" {
		in.HireDate = &hire
	}
	if asOf, ok := parseDate(req.AsOf); ok {
		in.AsOf = asOf
	}

	writeJSON(w, http.StatusOK, h.Calculator.Calculate(in))
}

// RunPayroll handles POST /api/contributions/payroll.
func (h *Handler) RunPayroll(w http.ResponseWriter, r *http.Request) {
	var req PayrollRunRequest
	if !h.decode(w, r, &req) {
		return
	}

	asOf, _ := parseDate(req.AsOf)
	summary := h.Calculator.PayrollSummary(req.toRecords(), asOf)

	if h.Runs != nil {
		if err := h.Runs.SavePayrollRun(r.Context(), summary); err != nil {
			log.Printf("failed to persist payroll run %s: %v", summary.RunID, err)
		}
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetPayrollRun handles GET /api/contributions/payroll/{id}.
func (h *Handler) GetPayrollRun(w http.ResponseWriter, r *http.Request) {
	if h.Runs == nil {
		writeError(w, http.StatusNotFound, ErrorResponse{Error: "payroll runs are not persisted"})
		return
	}
	summary, err := h.Runs.GetPayrollRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ListPayrollRuns handles GET /api/contributions/payroll.
func (h *Handler) ListPayrollRuns(w http.ResponseWriter, r *http.Request) {
	if h.Runs == nil {
		writeJSON(w, http.StatusOK, []contribution.RunHeader{})
		return
	}
	headers, err := h.Runs.ListPayrollRuns(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if headers == nil {
		headers = []contribution.RunHeader{}
	}
	writeJSON(w, http.StatusOK, headers)
}

// =============================================================================
// ELIGIBILITY / POLICIES
// =============================================================================

// EvaluateEligibility handles POST /api/loans/eligibility (dry run).
func (h *Handler) EvaluateEligibility(w http.ResponseWriter, r *http.Request) {
	var req EvaluateEligibilityRequest
	if !h.decode(w, r, &req) {
		return
	}
	snap, err := req.Employee.toSnapshot()
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid hire date", Field: "employee.hireDate"})
		return
	}

	existing, err := h.existingLoanViews(r, snap.EmployeeID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	report := h.Lifecycle.Evaluator().Evaluate(snap, existing,
		decimal.NewFromFloat(req.RequestedAmount), time.Now().UTC())
	writeJSON(w, http.StatusOK, report)
}

// ListPolicies handles GET /api/policies.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	table := h.Lifecycle.Policies()
	out := make([]loan.Policy, 0, len(table))
	for _, t := range []loan.Type{loan.TypePersonal, loan.TypeEmergency, loan.TypeHousing, loan.TypeEducation} {
		if p, ok := table.Lookup(t); ok {
			out = append(out, p)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// LOAN ENDPOINTS
// =============================================================================

// CreateLoan handles POST /api/loans.
func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req CreateLoanRequest
	if !h.decode(w, r, &req) {
		return
	}
	snap, err := req.Employee.toSnapshot()
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid hire date", Field: "employee.hireDate"})
		return
	}
	firstDue, ok := parseDate(req.FirstDueDate)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid first due date", Field: "firstDueDate"})
		return
	}

	existing, err := h.existingLoanViews(r, snap.EmployeeID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	l, err := h.Lifecycle.Create(loan.CreateRequest{
		Employee:        snap,
		ExistingLoans:   existing,
		Type:            loan.Type(req.Type),
		Amount:          decimal.NewFromFloat(req.Amount),
		Installments:    req.Installments,
		FirstDueDate:    firstDue,
		SkipEligibility: req.SkipEligibility,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if err := h.Loans.CreateLoan(r.Context(), l); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// GetLoan handles GET /api/loans/{id}.
func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	l, err := h.Loans.GetLoan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// ListLoans handles GET /api/loans, optionally filtered by employee.
func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	var (
		out []*loan.Loan
		err error
	)
	if emp := r.URL.Query().Get("employee"); emp != "" {
		out, err = h.Loans.ListLoansByEmployee(r.Context(), emp)
	} else {
		out, err = h.Loans.ListLoans(r.Context())
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// DeleteLoan handles DELETE /api/loans/{id}. Deletion is only permitted
// before disbursement: pending or rejected loans.
func (h *Handler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l, err := h.Loans.GetLoan(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if l.Status != loan.StatusPending && l.Status != loan.StatusRejected {
		h.writeDomainError(w, &loan.InvalidStateError{
			Operation: "delete",
			Current:   l.Status,
			Allowed:   []loan.Status{loan.StatusPending, loan.StatusRejected},
		})
		return
	}
	if err := h.Loans.DeleteLoan(r.Context(), id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApproveLoan handles POST /api/loans/{id}/approve.
func (h *Handler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	var req ApproveLoanRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.mutateLoan(w, r, func(l *loan.Loan) error {
		var amount *decimal.Decimal
		if req.ApprovedAmount != nil {
			a := decimal.NewFromFloat(*req.ApprovedAmount)
			amount = &a
		}
		return h.Lifecycle.Approve(l, amount, req.ApprovedInstallments)
	})
}

// RejectLoan handles POST /api/loans/{id}/reject.
func (h *Handler) RejectLoan(w http.ResponseWriter, r *http.Request) {
	var req RejectLoanRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.mutateLoan(w, r, func(l *loan.Loan) error {
		return h.Lifecycle.Reject(l, req.Reason)
	})
}

// DisburseLoan handles POST /api/loans/{id}/disburse.
func (h *Handler) DisburseLoan(w http.ResponseWriter, r *http.Request) {
	var req DisburseLoanRequest
	if !h.decode(w, r, &req) {
		return
	}
	deductions := make([]loan.Deduction, 0, len(req.Deductions))
	for _, d := range req.Deductions {
		deductions = append(deductions, loan.Deduction{
			Label:  d.Label,
			Amount: decimal.NewFromFloat(d.Amount),
		})
	}
	h.mutateLoan(w, r, func(l *loan.Loan) error {
		return h.Lifecycle.Disburse(l, loan.DisbursementMethod(req.Method), deductions, req.Reference)
	})
}

// ApplyPayment handles POST /api/loans/{id}/payments.
func (h *Handler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	var req ApplyPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	paymentDate, ok := parseDate(req.PaymentDate)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid payment date", Field: "paymentDate"})
		return
	}
	h.mutateLoan(w, r, func(l *loan.Loan) error {
		return h.Lifecycle.ApplyPayment(l, decimal.NewFromFloat(req.Amount), paymentDate, loan.PaymentMethod(req.Method))
	})
}

// SettleEarly handles POST /api/loans/{id}/settle.
func (h *Handler) SettleEarly(w http.ResponseWriter, r *http.Request) {
	var req SettleEarlyRequest
	if !h.decode(w, r, &req) {
		return
	}
	settledAt, ok := parseDate(req.SettlementDate)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid settlement date", Field: "settlementDate"})
		return
	}
	h.mutateLoan(w, r, func(l *loan.Loan) error {
		return h.Lifecycle.SettleEarly(l, decimal.NewFromFloat(req.SettlementAmount), loan.PaymentMethod(req.Method), settledAt)
	})
}

// MarkDefaulted handles POST /api/loans/{id}/default.
func (h *Handler) MarkDefaulted(w http.ResponseWriter, r *http.Request) {
	var req MarkDefaultedRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.mutateLoan(w, r, func(l *loan.Loan) error {
		return h.Lifecycle.MarkDefaulted(l, req.Reason, time.Now().UTC())
	})
}

// RestructureLoan handles POST /api/loans/{id}/restructure.
func (h *Handler) RestructureLoan(w http.ResponseWriter, r *http.Request) {
	var req RestructureLoanRequest
	if !h.decode(w, r, &req) {
		return
	}
	effective, ok := parseDate(req.EffectiveDate)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid effective date", Field: "effectiveDate"})
		return
	}
	h.mutateLoan(w, r, func(l *loan.Loan) error {
		var amount *decimal.Decimal
		if req.NewInstallmentAmount != nil {
			a := decimal.NewFromFloat(*req.NewInstallmentAmount)
			amount = &a
		}
		return h.Lifecycle.Restructure(l, req.NewInstallmentCount, effective, amount)
	})
}

// IssueClearance handles POST /api/loans/{id}/clearance.
func (h *Handler) IssueClearance(w http.ResponseWriter, r *http.Request) {
	var req IssueClearanceRequest
	if !h.decode(w, r, &req) {
		return
	}

	var clearance *loan.ClearanceInfo
	updated, err := h.Loans.WithLoan(r.Context(), chi.URLParam(r, "id"), func(l *loan.Loan) error {
		var opErr error
		clearance, opErr = h.Lifecycle.IssueClearance(l)
		return opErr
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	resp := ClearanceResponse{Clearance: *clearance}
	if h.LettersDir != "" {
		path, err := letters.WriteClearancePDF(h.LettersDir, updated, req.EmployeeName)
		if err != nil {
			log.Printf("failed to render clearance letter for loan %s: %v", updated.ID, err)
		} else {
			resp.LetterURL = path
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

// mutateLoan runs one lifecycle mutation under the store's per-loan lock
// and writes the updated aggregate.
func (h *Handler) mutateLoan(w http.ResponseWriter, r *http.Request, fn func(*loan.Loan) error) {
	updated, err := h.Loans.WithLoan(r.Context(), chi.URLParam(r, "id"), fn)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// existingLoanViews assembles the evaluator inputs for an employee.
func (h *Handler) existingLoanViews(r *http.Request, employeeID string) ([]loan.ExistingLoan, error) {
	loans, err := h.Loans.ListLoansByEmployee(r.Context(), employeeID)
	if err != nil {
		return nil, err
	}
	return loan.ExistingLoanViews(loans, time.Now().UTC()), nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		resp := ErrorResponse{Error: "request validation failed"}
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			resp.Field = fieldErrs[0].Namespace()
		}
		writeError(w, http.StatusBadRequest, resp)
		return false
	}
	return true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var (
		valErr   *loan.ValidationError
		eligErr  *loan.EligibilityError
		stateErr *loan.InvalidStateError
	)
	switch {
	case errors.As(err, &valErr):
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: valErr.Message, Field: valErr.Field})
	case errors.As(err, &eligErr):
		writeError(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  eligErr.Error(),
			Failed: eligErr.FailedChecks(),
		})
	case errors.As(err, &stateErr):
		writeError(w, http.StatusConflict, ErrorResponse{Error: stateErr.Error()})
	case loan.IsNotFound(err):
		writeError(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	writeJSON(w, status, resp)
}
