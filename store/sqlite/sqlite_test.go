package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/benefits-engine/contribution"
	"github.com/warp/benefits-engine/loan"
	"github.com/warp/benefits-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newLifecycle() *loan.Lifecycle {
	return loan.NewLifecycle(loan.DefaultPolicyTable(), loan.NewEvaluator(loan.DefaultEligibilityPolicy()))
}

func makeLoan(t *testing.T, employee string) *loan.Loan {
	t.Helper()
	l, err := newLifecycle().Create(loan.CreateRequest{
		Employee: loan.EligibilitySnapshot{
			EmployeeID:       employee,
			BasicSalary:      decimal.NewFromInt(8000),
			HireDate:         time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
			EmploymentStatus: "active",
		},
		Type:         loan.TypePersonal,
		Amount:       decimal.NewFromInt(10000),
		Installments: 3,
		FirstDueDate: time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return l
}

// =============================================================================
// LOAN PERSISTENCE
// =============================================================================

func TestSQLite_LoanRoundTrip(t *testing.T) {
	// GIVEN: A pending loan with schedule and eligibility snapshot
	// WHEN: Persisting and reloading it
	// THEN: The aggregate survives the JSON document round trip intact

	st := newTestStore(t)
	ctx := context.Background()

	l := makeLoan(t, "emp-1")
	require.NoError(t, st.CreateLoan(ctx, l))

	got, err := st.GetLoan(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)
	assert.Equal(t, loan.StatusPending, got.Status)
	require.Len(t, got.Installments, 3)
	assert.True(t, got.Installments[0].Amount.Equal(decimal.NewFromInt(3334)))
	assert.True(t, got.Balance.RemainingBalance.Equal(decimal.NewFromInt(10000)))
	require.NotNil(t, got.EligibilityAtCreation)
	assert.True(t, got.EligibilityAtCreation.Eligible)
}

func TestSQLite_GetLoan_Unknown(t *testing.T) {
	st := newTestStore(t)
	_, err := st.GetLoan(context.Background(), "nope")
	assert.True(t, loan.IsNotFound(err))
}

func TestSQLite_ListLoansByEmployee(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateLoan(ctx, makeLoan(t, "emp-1")))
	require.NoError(t, st.CreateLoan(ctx, makeLoan(t, "emp-2")))
	require.NoError(t, st.CreateLoan(ctx, makeLoan(t, "emp-1")))

	all, err := st.ListLoans(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := st.ListLoansByEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestSQLite_WithLoan_PersistsMutation(t *testing.T) {
	// GIVEN: A stored pending loan
	// WHEN: Approving it inside WithLoan
	// THEN: The new status is durable; a failing callback persists nothing

	st := newTestStore(t)
	ctx := context.Background()
	lc := newLifecycle()

	l := makeLoan(t, "emp-1")
	require.NoError(t, st.CreateLoan(ctx, l))

	updated, err := st.WithLoan(ctx, l.ID, func(cur *loan.Loan) error {
		return lc.Approve(cur, nil, nil)
	})
	require.NoError(t, err)
	assert.Equal(t, loan.StatusApproved, updated.Status)

	got, err := st.GetLoan(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.StatusApproved, got.Status)

	// Approving again is an invalid transition and must not be saved.
	_, err = st.WithLoan(ctx, l.ID, func(cur *loan.Loan) error {
		return lc.Approve(cur, nil, nil)
	})
	require.Error(t, err)
	got, err = st.GetLoan(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.StatusApproved, got.Status)
}

func TestSQLite_WithLoan_UnknownLoan(t *testing.T) {
	st := newTestStore(t)
	_, err := st.WithLoan(context.Background(), "nope", func(*loan.Loan) error { return nil })
	assert.True(t, loan.IsNotFound(err))
}

func TestSQLite_DeleteLoan(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	l := makeLoan(t, "emp-1")
	require.NoError(t, st.CreateLoan(ctx, l))
	require.NoError(t, st.DeleteLoan(ctx, l.ID))

	_, err := st.GetLoan(ctx, l.ID)
	assert.True(t, loan.IsNotFound(err))
	assert.True(t, loan.IsNotFound(st.DeleteLoan(ctx, l.ID)))
}

// =============================================================================
// PAYROLL RUNS
// =============================================================================

func TestSQLite_PayrollRunRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	calc := contribution.NewCalculator(contribution.DefaultRateTable())
	asOf := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	summary := calc.PayrollSummary([]contribution.Record{
		{EmployeeID: "emp-1", National: true, BasicSalary: decimal.NewFromInt(6250)},
		{EmployeeID: "emp-2", National: false, BasicSalary: decimal.NewFromInt(6250)},
	}, asOf)

	require.NoError(t, st.SavePayrollRun(ctx, summary))

	got, err := st.GetPayrollRun(ctx, summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, got.RunID)
	assert.Equal(t, 2, got.EmployeeCount)
	assert.Equal(t, summary.Total, got.Total)

	headers, err := st.ListPayrollRuns(ctx)
	require.NoError(t, err)
	require.Len(t, headers, 1)
	assert.Equal(t, summary.RunID, headers[0].ID)

	_, err = st.GetPayrollRun(ctx, "nope")
	assert.ErrorIs(t, err, sqlite.ErrRunNotFound)
}
