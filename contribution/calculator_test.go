package contribution_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/benefits-engine/contribution"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newCalculator() *contribution.Calculator {
	return contribution.NewCalculator(contribution.DefaultRateTable())
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func legacyHire() *time.Time {
	h := date(2020, time.January, 15)
	return &h
}

func reformHire() *time.Time {
	h := date(2024, time.August, 1)
	return &h
}

// =============================================================================
// LEGACY SCHEDULE
// =============================================================================

func TestCalculate_LegacyNational(t *testing.T) {
	// GIVEN: A national employee hired before the reform cutoff,
	//        basic 5000 + housing 1250 = base 6250
	// WHEN: Calculating the contribution
	// THEN: Employee pays 9.75% (609), employer pays 11.75% (734)

	calc := newCalculator()
	res := calc.Calculate(contribution.Input{
		National:         true,
		BasicSalary:      decimal.NewFromInt(5000),
		HousingAllowance: decimal.NewFromInt(1250),
		HireDate:         legacyHire(),
		AsOf:             date(2025, time.March, 1),
	})

	require.True(t, res.Valid())
	assert.Equal(t, int64(609), res.EmployeeContribution) // 6250 * 9.75% = 609.375
	assert.Equal(t, int64(734), res.EmployerContribution) // 6250 * 11.75% = 734.375
	assert.Equal(t, int64(1343), res.TotalContribution)
	assert.Equal(t, contribution.ScheduleLegacy, res.Variant.Schedule)
	assert.False(t, res.IsReformSchedule)
	assert.False(t, res.WasCapped)
	assert.False(t, res.WasBelowMinimum)
}

func TestCalculate_NationalWithoutHireDate_TreatedAsLegacy(t *testing.T) {
	// GIVEN: A national employee with no recorded hire date
	// WHEN: Calculating the contribution
	// THEN: The legacy schedule applies

	calc := newCalculator()
	res := calc.Calculate(contribution.Input{
		National:    true,
		BasicSalary: decimal.NewFromInt(6250),
		AsOf:        date(2025, time.March, 1),
	})

	require.True(t, res.Valid())
	assert.Equal(t, contribution.ScheduleLegacy, res.Variant.Schedule)
	assert.Equal(t, int64(609), res.EmployeeContribution)
}

// =============================================================================
// NON-NATIONAL SCHEDULE
// =============================================================================

func TestCalculate_NonNational_EmployerHazardOnly(t *testing.T) {
	// GIVEN: A non-national employee with base 6250
	// WHEN: Calculating the contribution
	// THEN: Employee pays nothing; employer pays 2% hazard only

	calc := newCalculator()
	res := calc.Calculate(contribution.Input{
		National:         false,
		BasicSalary:      decimal.NewFromInt(5000),
		HousingAllowance: decimal.NewFromInt(1250),
		AsOf:             date(2025, time.March, 1),
	})

	require.True(t, res.Valid())
	assert.Equal(t, int64(0), res.EmployeeContribution)
	assert.Equal(t, int64(125), res.EmployerContribution) // 6250 * 2%
	assert.Equal(t, contribution.ScheduleNonNational, res.Variant.Schedule)
	assert.True(t, res.Breakdown.Employee.Pension.IsZero())
	assert.True(t, res.Breakdown.Employer.Pension.IsZero())
}

// =============================================================================
// BASE CLAMPING
// =============================================================================

func TestCalculate_BaseAboveMaximum_Capped(t *testing.T) {
	// GIVEN: A base of 50000, above the 45000 ceiling
	// WHEN: Calculating the contribution
	// THEN: Rates apply to 45000 and the result is flagged capped

	calc := newCalculator()
	res := calc.Calculate(contribution.Input{
		National:    true,
		BasicSalary: decimal.NewFromInt(50000),
		HireDate:    legacyHire(),
		AsOf:        date(2025, time.March, 1),
	})

	require.True(t, res.Valid())
	assert.True(t, res.WasCapped)
	assert.True(t, res.CappedBase.Equal(decimal.NewFromInt(45000)))
	assert.Equal(t, int64(4388), res.EmployeeContribution) // 45000 * 9.75% = 4387.5, half-up
	assert.Equal(t, int64(5288), res.EmployerContribution) // 45000 * 11.75% = 5287.5, half-up
}

func TestCalculate_BaseBelowMinimum_RaisedToFloor(t *testing.T) {
	// GIVEN: A base of 1000, below the 1500 floor
	// WHEN: Calculating the contribution
	// THEN: Rates apply to 1500 and the result is flagged below-minimum

	calc := newCalculator()
	res := calc.Calculate(contribution.Input{
		National:    true,
		BasicSalary: decimal.NewFromInt(1000),
		HireDate:    legacyHire(),
		AsOf:        date(2025, time.March, 1),
	})

	require.True(t, res.Valid())
	assert.True(t, res.WasBelowMinimum)
	assert.True(t, res.CappedBase.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, int64(146), res.EmployeeContribution) // 1500 * 9.75% = 146.25
	assert.Equal(t, int64(176), res.EmployerContribution) // 1500 * 11.75% = 176.25
}

// =============================================================================
// DEGENERATE INPUT
// =============================================================================

func TestCalculate_NonPositiveSalary_InvalidResult(t *testing.T) {
	calc := newCalculator()

	for _, salary := range []int64{0, -100} {
		res := calc.Calculate(contribution.Input{
			National:    true,
			BasicSalary: decimal.NewFromInt(salary),
		})
		assert.False(t, res.Valid())
		assert.Equal(t, int64(0), res.EmployeeContribution)
		assert.Equal(t, int64(0), res.EmployerContribution)
	}
}

func TestCalculate_NegativeHousing_InvalidResult(t *testing.T) {
	calc := newCalculator()
	res := calc.Calculate(contribution.Input{
		National:         true,
		BasicSalary:      decimal.NewFromInt(5000),
		HousingAllowance: decimal.NewFromInt(-1),
	})
	assert.False(t, res.Valid())
}

// =============================================================================
// REFORM SCHEDULE
// =============================================================================

func TestResolveSchedule_CutoffBoundary(t *testing.T) {
	// GIVEN: Hires one day before, exactly on, and after the reform cutoff
	// WHEN: Resolving the schedule
	// THEN: Only hires on/after the cutoff land on the reform schedule

	table := contribution.DefaultRateTable()
	asOf := date(2025, time.March, 1)

	before := date(2024, time.July, 2)
	onCutoff := date(2024, time.July, 3)
	after := date(2024, time.July, 4)

	assert.Equal(t, contribution.ScheduleLegacy, table.ResolveSchedule(true, &before, asOf).Schedule)
	assert.Equal(t, contribution.ScheduleReform, table.ResolveSchedule(true, &onCutoff, asOf).Schedule)
	assert.Equal(t, contribution.ScheduleReform, table.ResolveSchedule(true, &after, asOf).Schedule)
}

func TestCalculate_ReformSchedule_Graduation(t *testing.T) {
	// GIVEN: A reform-schedule national with base 10000
	// WHEN: Calculating at successive tier years
	// THEN: The pension sub-rate steps 0.5pp each July from 2025 and
	//       stops at 11%

	calc := newCalculator()
	base := decimal.NewFromInt(10000)

	cases := []struct {
		name     string
		asOf     time.Time
		employee int64 // base * (pension + 0.75% solidarity)
	}{
		{"before first step", date(2024, time.September, 1), 975},  // 9%
		{"June before step year turns", date(2025, time.June, 30), 975}, // still the 2024 tier
		{"first step", date(2025, time.July, 1), 1025},             // 9.5%
		{"second step", date(2026, time.August, 15), 1075},         // 10%
		{"terminal rate reached", date(2029, time.December, 1), 1175}, // capped at 11%
		{"beyond terminal", date(2035, time.January, 1), 1175},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := calc.Calculate(contribution.Input{
				National:    true,
				BasicSalary: base,
				HireDate:    reformHire(),
				AsOf:        tc.asOf,
			})
			require.True(t, res.Valid())
			assert.True(t, res.IsReformSchedule)
			assert.Equal(t, tc.employee, res.EmployeeContribution)
		})
	}
}

func TestCalculate_ReformAndLegacy_EmployerGap(t *testing.T) {
	// GIVEN: Two nationals with identical pay, one legacy and one reform
	// WHEN: Calculating after the first graduation step
	// THEN: Both sides grow by the same pension step (the 2% hazard stays
	//       employer-only and unchanged)

	calc := newCalculator()
	in := contribution.Input{
		National:    true,
		BasicSalary: decimal.NewFromInt(10000),
		AsOf:        date(2025, time.August, 1),
	}

	in.HireDate = legacyHire()
	legacy := calc.Calculate(in)
	in.HireDate = reformHire()
	reform := calc.Calculate(in)

	assert.Equal(t, int64(975), legacy.EmployeeContribution)
	assert.Equal(t, int64(1025), reform.EmployeeContribution)
	assert.Equal(t, reform.EmployeeContribution-legacy.EmployeeContribution,
		reform.EmployerContribution-legacy.EmployerContribution)
}
