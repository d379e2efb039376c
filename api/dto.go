/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the domain model
  from the external contract. Amounts cross the boundary as plain
  numbers in whole currency units; the handlers convert to decimal.

NAMING CONVENTION:
  - *Request: request body types from clients
  - *Response: response wrappers where the domain type isn't returned
    directly

VALIDATION:
  Request structs carry go-playground/validator tags; handlers run the
  shared validator before touching the engine, so malformed bodies fail
  with a field-level 400 instead of a deep domain error.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/benefits-engine/contribution"
	"github.com/warp/benefits-engine/loan"
)

// =============================================================================
// CONTRIBUTIONS
// =============================================================================

// CalculateContributionRequest computes one employee's contribution.
type CalculateContributionRequest struct {
	National         bool    `json:"national"`
	BasicSalary      float64 `json:"basicSalary" validate:"required,gt=0"`
	HousingAllowance float64 `json:"housingAllowance" validate:"gte=0"`
	HireDate         string  `json:"hireDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	AsOf             string  `json:"asOf,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// PayrollRecordRequest is one row of a batch payroll run.
type PayrollRecordRequest struct {
	EmployeeID       string  `json:"employeeId" validate:"required"`
	National         bool    `json:"national"`
	BasicSalary      float64 `json:"basicSalary"`
	HousingAllowance float64 `json:"housingAllowance" validate:"gte=0"`
	HireDate         string  `json:"hireDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// PayrollRunRequest is a batch contribution run.
type PayrollRunRequest struct {
	AsOf    string                 `json:"asOf,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Records []PayrollRecordRequest `json:"records" validate:"required,min=1,dive"`
}

// =============================================================================
// LOANS
// =============================================================================

// EmployeeSnapshotRequest is the eligibility view the caller supplies.
type EmployeeSnapshotRequest struct {
	EmployeeID       string  `json:"employeeId" validate:"required"`
	BasicSalary      float64 `json:"basicSalary" validate:"required,gt=0"`
	AllowancesTotal  float64 `json:"allowancesTotal" validate:"gte=0"`
	HireDate         string  `json:"hireDate" validate:"required,datetime=2006-01-02"`
	EmploymentStatus string  `json:"employmentStatus" validate:"required"`
}

// CreateLoanRequest submits a loan application.
type CreateLoanRequest struct {
	Employee        EmployeeSnapshotRequest `json:"employee" validate:"required"`
	Type            string                  `json:"type" validate:"required"`
	Amount          float64                 `json:"amount" validate:"required,gt=0"`
	Installments    int                     `json:"installments" validate:"required,gt=0"`
	FirstDueDate    string                  `json:"firstDueDate" validate:"required,datetime=2006-01-02"`
	SkipEligibility bool                    `json:"skipEligibility,omitempty"`
}

// EvaluateEligibilityRequest is a dry-run evaluation (no loan created).
type EvaluateEligibilityRequest struct {
	Employee        EmployeeSnapshotRequest `json:"employee" validate:"required"`
	RequestedAmount float64                 `json:"requestedAmount" validate:"required,gt=0"`
}

// ApproveLoanRequest optionally changes the approved terms.
type ApproveLoanRequest struct {
	ApprovedAmount       *float64 `json:"approvedAmount,omitempty" validate:"omitempty,gt=0"`
	ApprovedInstallments *int     `json:"approvedInstallments,omitempty" validate:"omitempty,gt=0"`
}

// RejectLoanRequest rejects a pending loan.
type RejectLoanRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// DeductionRequest is one disbursement deduction.
type DeductionRequest struct {
	Label  string  `json:"label" validate:"required"`
	Amount float64 `json:"amount" validate:"gte=0"`
}

// DisburseLoanRequest disburses an approved loan.
type DisburseLoanRequest struct {
	Method     string             `json:"method" validate:"required,oneof=bank_transfer check cash"`
	Deductions []DeductionRequest `json:"deductions,omitempty" validate:"omitempty,dive"`
	Reference  string             `json:"reference,omitempty"`
}

// ApplyPaymentRequest applies one payment.
type ApplyPaymentRequest struct {
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	PaymentDate string  `json:"paymentDate" validate:"required,datetime=2006-01-02"`
	Method      string  `json:"method" validate:"required,oneof=payroll_deduction bank_transfer check cash"`
}

// SettleEarlyRequest settles the remaining balance.
type SettleEarlyRequest struct {
	SettlementAmount float64 `json:"settlementAmount" validate:"required,gt=0"`
	SettlementDate   string  `json:"settlementDate" validate:"required,datetime=2006-01-02"`
	Method           string  `json:"method" validate:"required,oneof=payroll_deduction bank_transfer check cash"`
}

// MarkDefaultedRequest marks an active loan defaulted.
type MarkDefaultedRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// RestructureLoanRequest restructures the unpaid schedule suffix.
type RestructureLoanRequest struct {
	NewInstallmentCount  int      `json:"newInstallmentCount" validate:"required,gt=0"`
	EffectiveDate        string   `json:"effectiveDate" validate:"required,datetime=2006-01-02"`
	NewInstallmentAmount *float64 `json:"newInstallmentAmount,omitempty" validate:"omitempty,gt=0"`
}

// IssueClearanceRequest issues the closure certificate.
type IssueClearanceRequest struct {
	EmployeeName string `json:"employeeName,omitempty"`
}

// ClearanceResponse wraps the clearance record and the rendered letter.
type ClearanceResponse struct {
	Clearance loan.ClearanceInfo `json:"clearance"`
	LetterURL string             `json:"letterPath,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Field  string   `json:"field,omitempty"`
	Failed []string `json:"failedChecks,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func (r EmployeeSnapshotRequest) toSnapshot() (loan.EligibilitySnapshot, error) {
	hire, err := time.Parse("2006-01-02", r.HireDate)
	if err != nil {
		return loan.EligibilitySnapshot{}, err
	}
	return loan.EligibilitySnapshot{
		EmployeeID:       r.EmployeeID,
		BasicSalary:      decimal.NewFromFloat(r.BasicSalary),
		AllowancesTotal:  decimal.NewFromFloat(r.AllowancesTotal),
		HireDate:         hire,
		EmploymentStatus: r.EmploymentStatus,
	}, nil
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	t, err := time.Parse("2006-01-02", s)
	return t, err == nil
}

func (r PayrollRunRequest) toRecords() []contribution.Record {
	records := make([]contribution.Record, 0, len(r.Records))
	for _, rec := range r.Records {
		out := contribution.Record{
			EmployeeID:       rec.EmployeeID,
			National:         rec.National,
			BasicSalary:      decimal.NewFromFloat(rec.BasicSalary),
			HousingAllowance: decimal.NewFromFloat(rec.HousingAllowance),
		}
		if hire, ok := parseDate(rec.HireDate); ok && rec.HireDate != "" {
			h := hire
			out.HireDate = &h
		}
		records = append(records, out)
	}
	return records
}
