package loan_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/benefits-engine/loan"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var evalAsOf = date(2025, time.June, 1)

func eligibleEmployee() loan.EligibilitySnapshot {
	return loan.EligibilitySnapshot{
		EmployeeID:       "emp-1",
		BasicSalary:      decimal.NewFromInt(6000),
		AllowancesTotal:  decimal.NewFromInt(2000),
		HireDate:         date(2022, time.January, 10),
		EmploymentStatus: "active",
	}
}

func newEvaluator() *loan.Evaluator {
	return loan.NewEvaluator(loan.DefaultEligibilityPolicy())
}

func checkByID(t *testing.T, r loan.Report, id loan.CheckID) loan.CheckResult {
	t.Helper()
	for _, c := range r.Checks {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("report has no %s check", id)
	return loan.CheckResult{}
}

// =============================================================================
// FULL-BATTERY BEHAVIOR
// =============================================================================

func TestEvaluate_CleanEmployee_AllChecksPass(t *testing.T) {
	// GIVEN: A long-tenured active employee with no existing loans
	// WHEN: Evaluating a modest request
	// THEN: All six checks pass and the derived figures use gross salary

	report := newEvaluator().Evaluate(eligibleEmployee(), nil, decimal.NewFromInt(10000), evalAsOf)

	assert.True(t, report.Eligible)
	assert.Len(t, report.Checks, 6)
	assert.Empty(t, report.IneligibilityReasons)
	for _, c := range report.Checks {
		assert.True(t, c.Passed, "check %s", c.ID)
	}

	// gross 8000: credit limit 8000*3, monthly cap 8000*0.30
	assert.True(t, report.CreditLimit.Equal(decimal.NewFromInt(24000)))
	assert.True(t, report.MaxMonthlyInstallment.Equal(decimal.NewFromInt(2400)))
}

func TestEvaluate_EveryCheckEvaluated_NoShortCircuit(t *testing.T) {
	// GIVEN: An employee failing tenure AND employment status
	// WHEN: Evaluating
	// THEN: Both failures are reported; passing checks still appear

	snap := eligibleEmployee()
	snap.HireDate = evalAsOf.AddDate(0, -1, 0) // ~30 days of service
	snap.EmploymentStatus = "suspended"

	report := newEvaluator().Evaluate(snap, nil, decimal.NewFromInt(1000), evalAsOf)

	assert.False(t, report.Eligible)
	assert.ElementsMatch(t,
		[]string{string(loan.CheckTenure), string(loan.CheckEmploymentStatus)},
		report.IneligibilityReasons)
	assert.Len(t, report.Checks, 6)
	assert.True(t, checkByID(t, report, loan.CheckCreditLimit).Passed)
}

// =============================================================================
// INDIVIDUAL CHECKS
// =============================================================================

func TestEvaluate_CreditLimit_ReducedByEncumberedBalances(t *testing.T) {
	// GIVEN: Gross 8000 (limit 24000) and an active loan with 5000 left,
	//        so available credit is 19000
	// WHEN: Requesting 20000
	// THEN: Only the credit limit check fails

	existing := []loan.ExistingLoan{
		{Status: loan.StatusActive, RemainingBalance: decimal.NewFromInt(5000), InstallmentAmount: decimal.NewFromInt(500)},
	}

	report := newEvaluator().Evaluate(eligibleEmployee(), existing, decimal.NewFromInt(20000), evalAsOf)

	assert.False(t, report.Eligible)
	assert.Equal(t, []string{string(loan.CheckCreditLimit)}, report.IneligibilityReasons)
	assert.True(t, report.AvailableCredit.Equal(decimal.NewFromInt(19000)))

	// 19000 itself still fits
	report = newEvaluator().Evaluate(eligibleEmployee(), existing, decimal.NewFromInt(19000), evalAsOf)
	assert.True(t, report.Eligible)
}

func TestEvaluate_PendingAndApprovedLoansEncumberCredit(t *testing.T) {
	// Not-yet-disbursed loans already count against the limit; rejected
	// and completed ones do not.

	existing := []loan.ExistingLoan{
		{Status: loan.StatusPending, RemainingBalance: decimal.NewFromInt(10000)},
		{Status: loan.StatusApproved, RemainingBalance: decimal.NewFromInt(10000)},
		{Status: loan.StatusRejected, RemainingBalance: decimal.NewFromInt(9999)},
		{Status: loan.StatusCompleted, RemainingBalance: decimal.Zero},
	}

	report := newEvaluator().Evaluate(eligibleEmployee(), existing, decimal.NewFromInt(1000), evalAsOf)
	assert.True(t, report.AvailableCredit.Equal(decimal.NewFromInt(4000))) // 24000 - 20000
}

func TestEvaluate_InstallmentCapacity_Exhausted(t *testing.T) {
	// GIVEN: Existing installments already at the 30% gross cap
	// WHEN: Evaluating any request
	// THEN: The capacity check fails

	existing := []loan.ExistingLoan{
		{Status: loan.StatusActive, RemainingBalance: decimal.NewFromInt(100), InstallmentAmount: decimal.NewFromInt(2400)},
	}

	report := newEvaluator().Evaluate(eligibleEmployee(), existing, decimal.NewFromInt(500), evalAsOf)

	assert.False(t, report.Eligible)
	assert.Contains(t, report.IneligibilityReasons, string(loan.CheckInstallmentCapacity))
	assert.True(t, report.AvailableInstallmentCapacity.IsZero())
}

func TestEvaluate_PaymentHistory_OverduePastGraceFails(t *testing.T) {
	within := []loan.ExistingLoan{{Status: loan.StatusActive, MaxOverdueDays: 30}}
	past := []loan.ExistingLoan{{Status: loan.StatusActive, MaxOverdueDays: 31}}

	assert.True(t, newEvaluator().Evaluate(eligibleEmployee(), within, decimal.NewFromInt(1000), evalAsOf).Eligible)

	report := newEvaluator().Evaluate(eligibleEmployee(), past, decimal.NewFromInt(1000), evalAsOf)
	assert.False(t, report.Eligible)
	assert.Contains(t, report.IneligibilityReasons, string(loan.CheckPaymentHistory))
}

func TestEvaluate_ConcurrentLoans_CapAtTwoActive(t *testing.T) {
	one := []loan.ExistingLoan{{Status: loan.StatusActive}}
	two := []loan.ExistingLoan{{Status: loan.StatusActive}, {Status: loan.StatusActive}}

	assert.True(t, newEvaluator().Evaluate(eligibleEmployee(), one, decimal.NewFromInt(1000), evalAsOf).Eligible)

	report := newEvaluator().Evaluate(eligibleEmployee(), two, decimal.NewFromInt(1000), evalAsOf)
	assert.False(t, report.Eligible)
	assert.Contains(t, report.IneligibilityReasons, string(loan.CheckConcurrentLoans))
}

func TestEvaluate_Tenure_BoundaryAtMinServiceDays(t *testing.T) {
	snap := eligibleEmployee()

	snap.HireDate = evalAsOf.AddDate(0, 0, -180)
	assert.True(t, checkByID(t, newEvaluator().Evaluate(snap, nil, decimal.NewFromInt(1000), evalAsOf), loan.CheckTenure).Passed)

	snap.HireDate = evalAsOf.AddDate(0, 0, -179)
	assert.False(t, checkByID(t, newEvaluator().Evaluate(snap, nil, decimal.NewFromInt(1000), evalAsOf), loan.CheckTenure).Passed)
}

// =============================================================================
// DETERMINISM
// =============================================================================

func TestEvaluate_Deterministic(t *testing.T) {
	// Identical inputs must produce identical reports, run after run.

	existing := []loan.ExistingLoan{
		{Status: loan.StatusActive, RemainingBalance: decimal.NewFromInt(3000), InstallmentAmount: decimal.NewFromInt(300), MaxOverdueDays: 10},
	}

	first := newEvaluator().Evaluate(eligibleEmployee(), existing, decimal.NewFromInt(5000), evalAsOf)
	for i := 0; i < 5; i++ {
		again := newEvaluator().Evaluate(eligibleEmployee(), existing, decimal.NewFromInt(5000), evalAsOf)
		require.Equal(t, first, again)
	}
}
