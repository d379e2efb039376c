package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/benefits-engine/loan"
	"github.com/warp/benefits-engine/loan/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newActiveLoan(t *testing.T, id, employee string, installments int) *loan.Loan {
	t.Helper()
	lc := loan.NewLifecycle(loan.DefaultPolicyTable(), loan.NewEvaluator(loan.DefaultEligibilityPolicy()))
	l, err := lc.Create(loan.CreateRequest{
		Employee: loan.EligibilitySnapshot{
			EmployeeID:       employee,
			BasicSalary:      decimal.NewFromInt(8000),
			HireDate:         time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
			EmploymentStatus: "active",
		},
		Type:         loan.TypeHousing, // 60-installment cap covers every test shape
		Amount:       decimal.NewFromInt(int64(installments * 100)),
		Installments: installments,
		FirstDueDate: time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	l.ID = id
	require.NoError(t, lc.Approve(l, nil, nil))
	require.NoError(t, lc.Disburse(l, loan.DisburseBankTransfer, nil, ""))
	return l
}

// =============================================================================
// CRUD
// =============================================================================

func TestMemory_CreateGetRoundTrip(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	l := newActiveLoan(t, "loan-1", "emp-1", 3)
	require.NoError(t, m.CreateLoan(ctx, l))

	got, err := m.GetLoan(ctx, "loan-1")
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)
	assert.Equal(t, loan.StatusActive, got.Status)
	assert.Len(t, got.Installments, 3)

	_, err = m.GetLoan(ctx, "missing")
	assert.True(t, loan.IsNotFound(err))
}

func TestMemory_HandsOutClones(t *testing.T) {
	// GIVEN: A stored loan
	// WHEN: Mutating the value GetLoan returned
	// THEN: The stored aggregate is untouched

	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.CreateLoan(ctx, newActiveLoan(t, "loan-1", "emp-1", 3)))

	got, err := m.GetLoan(ctx, "loan-1")
	require.NoError(t, err)
	got.Status = loan.StatusDefaulted
	got.Installments[0].PaidAmount = decimal.NewFromInt(999)

	fresh, err := m.GetLoan(ctx, "loan-1")
	require.NoError(t, err)
	assert.Equal(t, loan.StatusActive, fresh.Status)
	assert.True(t, fresh.Installments[0].PaidAmount.IsZero())
}

func TestMemory_ListByEmployee(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.CreateLoan(ctx, newActiveLoan(t, "loan-1", "emp-1", 3)))
	require.NoError(t, m.CreateLoan(ctx, newActiveLoan(t, "loan-2", "emp-2", 3)))
	require.NoError(t, m.CreateLoan(ctx, newActiveLoan(t, "loan-3", "emp-1", 3)))

	all, err := m.ListLoans(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := m.ListLoansByEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, l := range mine {
		assert.Equal(t, "emp-1", l.EmployeeID)
	}
}

func TestMemory_Delete(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.CreateLoan(ctx, newActiveLoan(t, "loan-1", "emp-1", 3)))

	require.NoError(t, m.DeleteLoan(ctx, "loan-1"))
	_, err := m.GetLoan(ctx, "loan-1")
	assert.True(t, loan.IsNotFound(err))
	assert.True(t, loan.IsNotFound(m.DeleteLoan(ctx, "loan-1")))
}

// =============================================================================
// SINGLE-WRITER CONTRACT
// =============================================================================

func TestMemory_WithLoan_SerializesConcurrentWriters(t *testing.T) {
	// GIVEN: 50 goroutines each paying 100 against a 5000 loan
	// WHEN: All go through WithLoan
	// THEN: Every payment lands exactly once; the loan completes with a
	//       consistent balance and 50 history entries

	m := store.NewMemory()
	ctx := context.Background()
	lc := loan.NewLifecycle(loan.DefaultPolicyTable(), loan.NewEvaluator(loan.DefaultEligibilityPolicy()))

	l := newActiveLoan(t, "loan-1", "emp-1", 50) // 50 installments of 100
	require.NoError(t, m.CreateLoan(ctx, l))

	paymentDate := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.WithLoan(ctx, "loan-1", func(cur *loan.Loan) error {
				return lc.ApplyPayment(cur, decimal.NewFromInt(100), paymentDate, loan.PayMethodPayrollDeduction)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	final, err := m.GetLoan(ctx, "loan-1")
	require.NoError(t, err)
	assert.Equal(t, loan.StatusCompleted, final.Status)
	assert.True(t, final.Balance.PaidAmount.Equal(decimal.NewFromInt(5000)))
	assert.True(t, final.Balance.RemainingBalance.IsZero())
	assert.Len(t, final.PaymentHistory, 50)
}

func TestMemory_WithLoan_FailedMutationNotPersisted(t *testing.T) {
	// GIVEN: A stored active loan
	// WHEN: The mutation callback returns an error
	// THEN: Nothing is saved

	m := store.NewMemory()
	ctx := context.Background()
	lc := loan.NewLifecycle(loan.DefaultPolicyTable(), loan.NewEvaluator(loan.DefaultEligibilityPolicy()))
	require.NoError(t, m.CreateLoan(ctx, newActiveLoan(t, "loan-1", "emp-1", 3)))

	_, err := m.WithLoan(ctx, "loan-1", func(cur *loan.Loan) error {
		return lc.Approve(cur, nil, nil) // active loan: invalid state
	})
	require.Error(t, err)

	final, err := m.GetLoan(ctx, "loan-1")
	require.NoError(t, err)
	assert.Equal(t, loan.StatusActive, final.Status)
	assert.Empty(t, final.PaymentHistory)
}
