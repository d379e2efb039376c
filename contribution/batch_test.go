package contribution_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/benefits-engine/contribution"
)

func TestPayrollSummary_MixedWorkforce(t *testing.T) {
	// GIVEN: Two nationals and one non-national
	// WHEN: Running the payroll summary
	// THEN: Totals and per-nationality subtotals line up with the
	//       single-record results

	calc := newCalculator()
	asOf := date(2025, time.March, 1)

	records := []contribution.Record{
		{EmployeeID: "emp-1", National: true, BasicSalary: decimal.NewFromInt(5000), HousingAllowance: decimal.NewFromInt(1250), HireDate: legacyHire()},
		{EmployeeID: "emp-2", National: true, BasicSalary: decimal.NewFromInt(10000), HireDate: legacyHire()},
		{EmployeeID: "emp-3", National: false, BasicSalary: decimal.NewFromInt(6250)},
	}

	s := calc.PayrollSummary(records, asOf)

	require.NotEmpty(t, s.RunID)
	assert.Equal(t, 3, s.EmployeeCount)
	assert.Empty(t, s.Invalid)

	// emp-1: 609/734, emp-2: 975/1175, emp-3: 0/125
	assert.Equal(t, int64(609+975), s.TotalEmployee)
	assert.Equal(t, int64(734+1175+125), s.TotalEmployer)
	assert.Equal(t, s.TotalEmployee+s.TotalEmployer, s.Total)

	assert.Equal(t, 2, s.Nationals.Count)
	assert.Equal(t, 1, s.NonNationals.Count)
	assert.Equal(t, int64(125), s.NonNationals.Employer)
	assert.Len(t, s.Results, 3)
}

func TestPayrollSummary_InvalidRecordDoesNotAbortRun(t *testing.T) {
	// GIVEN: A batch where one record has a zero salary
	// WHEN: Running the payroll summary
	// THEN: The bad record lands in Invalid and the rest compute normally

	calc := newCalculator()
	asOf := date(2025, time.March, 1)

	records := []contribution.Record{
		{EmployeeID: "emp-good", National: true, BasicSalary: decimal.NewFromInt(6250), HireDate: legacyHire()},
		{EmployeeID: "emp-bad", National: true, BasicSalary: decimal.Zero},
	}

	s := calc.PayrollSummary(records, asOf)

	assert.Equal(t, 1, s.EmployeeCount)
	require.Len(t, s.Invalid, 1)
	assert.Equal(t, "emp-bad", s.Invalid[0].EmployeeID)
	assert.NotEmpty(t, s.Invalid[0].Reason)
	assert.Equal(t, int64(609), s.TotalEmployee)
}

func TestPayrollSummary_FlagsCappedAndBelowMinimum(t *testing.T) {
	calc := newCalculator()
	asOf := date(2025, time.March, 1)

	records := []contribution.Record{
		{EmployeeID: "emp-capped", National: true, BasicSalary: decimal.NewFromInt(60000), HireDate: legacyHire()},
		{EmployeeID: "emp-floor", National: true, BasicSalary: decimal.NewFromInt(800), HireDate: legacyHire()},
	}

	s := calc.PayrollSummary(records, asOf)

	assert.Equal(t, []string{"emp-capped"}, s.Capped)
	assert.Equal(t, []string{"emp-floor"}, s.BelowMinimum)
}
