/*
eligibility.go - The six-check eligibility battery

PURPOSE:
  Runs a fixed battery of checks against an employee snapshot, the
  employee's existing loans, and the eligibility policy. Every check is
  evaluated - no short-circuiting - so the report is always complete for
  audit display: each check retains its requirement and the actual value
  that was compared.

CHECKS (in report order):
  1. tenure                - service days >= MinServiceDays
  2. employment_status     - equals the active status value
  3. credit_limit          - requested <= available credit
  4. installment_capacity  - room under the installment-to-salary cap
  5. payment_history       - no installment overdue past the grace period
  6. concurrent_loans      - active-loan count under the cap

DETERMINISM:
  Evaluate is a pure function of its arguments; the only time input is
  the explicit asOf date. Identical inputs produce identical reports.

SEE ALSO:
  - policy.go: EligibilityPolicy thresholds
  - lifecycle.go: Runs this at loan creation
*/
package loan

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REPORT TYPES
// =============================================================================

// CheckID names one eligibility check.
type CheckID string

const (
	CheckTenure              CheckID = "tenure"
	CheckEmploymentStatus    CheckID = "employment_status"
	CheckCreditLimit         CheckID = "credit_limit"
	CheckInstallmentCapacity CheckID = "installment_capacity"
	CheckPaymentHistory      CheckID = "payment_history"
	CheckConcurrentLoans     CheckID = "concurrent_loans"
)

// CheckResult is one evaluated check with its audit values.
type CheckResult struct {
	ID          CheckID `json:"checkId"`
	Passed      bool    `json:"passed"`
	Requirement string  `json:"requirement"`
	Actual      string  `json:"actualValue"`
}

// Report is the complete outcome of one evaluation. Transient: passed by
// value, stored on the Loan only as the creation-time snapshot.
type Report struct {
	AsOf     time.Time     `json:"asOf"`
	Checks   []CheckResult `json:"checks"`
	Eligible bool          `json:"eligible"`

	IneligibilityReasons []string `json:"ineligibilityReasons,omitempty"`

	CreditLimit                  decimal.Decimal `json:"creditLimit"`
	AvailableCredit              decimal.Decimal `json:"availableCredit"`
	MaxMonthlyInstallment        decimal.Decimal `json:"maxMonthlyInstallment"`
	AvailableInstallmentCapacity decimal.Decimal `json:"availableInstallmentCapacity"`
}

// =============================================================================
// EVALUATOR
// =============================================================================

// Evaluator runs the battery against one EligibilityPolicy.
type Evaluator struct {
	policy EligibilityPolicy
}

// NewEvaluator returns an Evaluator bound to the given policy.
func NewEvaluator(policy EligibilityPolicy) *Evaluator {
	return &Evaluator{policy: policy}
}

// Policy returns the thresholds the evaluator is bound to.
func (e *Evaluator) Policy() EligibilityPolicy { return e.policy }

// encumbered reports whether a loan's balance and installment count
// against the employee's credit and capacity.
func encumbered(s Status) bool {
	return s == StatusPending || s == StatusApproved || s == StatusActive
}

// Evaluate runs all six checks and returns the full report. asOf zero
// means time.Now; pass an explicit date for reproducible evaluation.
func (e *Evaluator) Evaluate(snap EligibilitySnapshot, existing []ExistingLoan, requested decimal.Decimal, asOf time.Time) Report {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	gross := snap.GrossSalary()

	// Aggregates over existing loans.
	var encumberedBalance, encumberedInstallments decimal.Decimal
	activeCount := 0
	worstOverdue := 0
	for _, el := range existing {
		if encumbered(el.Status) {
			encumberedBalance = encumberedBalance.Add(el.RemainingBalance)
			encumberedInstallments = encumberedInstallments.Add(el.InstallmentAmount)
		}
		if el.Status == StatusActive {
			activeCount++
		}
		if el.MaxOverdueDays > worstOverdue {
			worstOverdue = el.MaxOverdueDays
		}
	}

	creditLimit := gross.Mul(e.policy.CreditLimitMultiplier)
	availableCredit := decimal.Max(decimal.Zero, creditLimit.Sub(encumberedBalance))
	maxMonthly := gross.Mul(e.policy.MaxInstallmentPercent)
	availableCapacity := decimal.Max(decimal.Zero, maxMonthly.Sub(encumberedInstallments))

	serviceDays := daysBetween(snap.HireDate, asOf)

	checks := []CheckResult{
		{
			ID:          CheckTenure,
			Passed:      serviceDays >= e.policy.MinServiceDays,
			Requirement: fmt.Sprintf("service >= %d days", e.policy.MinServiceDays),
			Actual:      fmt.Sprintf("%d days", serviceDays),
		},
		{
			ID:          CheckEmploymentStatus,
			Passed:      snap.EmploymentStatus == e.policy.ActiveEmploymentStatus,
			Requirement: fmt.Sprintf("status == %q", e.policy.ActiveEmploymentStatus),
			Actual:      snap.EmploymentStatus,
		},
		{
			ID:          CheckCreditLimit,
			Passed:      requested.LessThanOrEqual(availableCredit),
			Requirement: fmt.Sprintf("requested <= available credit %s", availableCredit),
			Actual:      requested.String(),
		},
		{
			ID:          CheckInstallmentCapacity,
			Passed:      availableCapacity.IsPositive(),
			Requirement: fmt.Sprintf("installment capacity > 0 (cap %s)", maxMonthly),
			Actual:      availableCapacity.String(),
		},
		{
			ID:          CheckPaymentHistory,
			Passed:      worstOverdue <= e.policy.OverdueGraceDays,
			Requirement: fmt.Sprintf("no installment overdue > %d days", e.policy.OverdueGraceDays),
			Actual:      fmt.Sprintf("%d days", worstOverdue),
		},
		{
			ID:          CheckConcurrentLoans,
			Passed:      activeCount < e.policy.MaxActiveLoans,
			Requirement: fmt.Sprintf("active loans < %d", e.policy.MaxActiveLoans),
			Actual:      fmt.Sprintf("%d", activeCount),
		},
	}

	report := Report{
		AsOf:                         asOf,
		Checks:                       checks,
		Eligible:                     true,
		CreditLimit:                  creditLimit,
		AvailableCredit:              availableCredit,
		MaxMonthlyInstallment:        maxMonthly,
		AvailableInstallmentCapacity: availableCapacity,
	}
	for _, c := range checks {
		if !c.Passed {
			report.Eligible = false
			report.IneligibilityReasons = append(report.IneligibilityReasons, string(c.ID))
		}
	}
	return report
}
