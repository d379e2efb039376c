/*
calculator.go - Single-record contribution calculation

PURPOSE:
  Applies the resolved rate schedule to a clamped contribution base and
  returns the full Result breakdown. This is a pure function of its
  inputs plus the RateTable: no clock reads unless AsOf is zero, no I/O,
  no mutation of shared state.

CALCULATION:
  base        = basic salary + housing allowance (other allowances are
                excluded by statute, not by configuration)
  clamped     = clamp(base, MinBase, MaxBase)
  employee    = clamped * (pension + solidarity)        [nationals]
  employer    = clamped * (pension + hazard + solidarity) [nationals]
  employer    = clamped * hazard                        [non-nationals]
  Side totals are rounded half-up to whole currency units after summing
  sub-components.

ERROR MODEL:
  Non-positive or otherwise degenerate salary never raises an error; the
  Result carries Error and all monetary fields stay zero. Callers feeding
  report pipelines check Result.Valid().

SEE ALSO:
  - rates.go: Schedule selection and clamping
  - batch.go: Fold over many records
*/
package contribution

import (
	"time"

	"github.com/shopspring/decimal"
)

// Calculator computes statutory contributions against one RateTable.
// The zero-cost construction means callers typically keep a single
// instance for the life of the process.
type Calculator struct {
	table RateTable
}

// NewCalculator returns a Calculator bound to the given rate table.
func NewCalculator(table RateTable) *Calculator {
	return &Calculator{table: table}
}

// Table returns the rate table the calculator is bound to.
func (c *Calculator) Table() RateTable { return c.table }

// Input is one employee's contribution calculation request.
type Input struct {
	National         bool
	BasicSalary      decimal.Decimal
	HousingAllowance decimal.Decimal // optional, zero value means none
	HireDate         *time.Time      // optional; nil nationals get the legacy schedule
	AsOf             time.Time       // zero value means time.Now
}

// Calculate computes the contribution for a single employee. It never
// returns a Go error; degenerate input yields a Result with Error set.
func (c *Calculator) Calculate(in Input) Result {
	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	if !in.BasicSalary.IsPositive() {
		return Result{Error: "basic salary must be a positive amount"}
	}
	if in.HousingAllowance.IsNegative() {
		return Result{Error: "housing allowance must not be negative"}
	}

	base := in.BasicSalary.Add(in.HousingAllowance)
	clamped, belowMin, capped := c.table.ClampBase(base)

	variant := c.table.ResolveSchedule(in.National, in.HireDate, asOf)
	pensionRate := c.table.PensionRate(variant)

	var breakdown RateBreakdown
	if variant.Schedule == ScheduleNonNational {
		breakdown.Employer.Hazard = clamped.Mul(c.table.HazardRate)
	} else {
		pension := clamped.Mul(pensionRate)
		solidarity := clamped.Mul(c.table.SolidarityFundRate)
		breakdown.Employee = SideAmounts{Pension: pension, SolidarityFund: solidarity}
		breakdown.Employer = SideAmounts{
			Pension:        pension,
			Hazard:         clamped.Mul(c.table.HazardRate),
			SolidarityFund: solidarity,
		}
	}

	employee := roundWhole(breakdown.Employee.Pension.
		Add(breakdown.Employee.Hazard).
		Add(breakdown.Employee.SolidarityFund))
	employer := roundWhole(breakdown.Employer.Pension.
		Add(breakdown.Employer.Hazard).
		Add(breakdown.Employer.SolidarityFund))

	return Result{
		EmployeeContribution: employee,
		EmployerContribution: employer,
		TotalContribution:    employee + employer,
		ContributionBase:     base,
		CappedBase:           clamped,
		WasCapped:            capped,
		WasBelowMinimum:      belowMin,
		Variant:              variant,
		IsReformSchedule:     variant.IsReform(),
		Breakdown:            breakdown,
	}
}

// roundWhole rounds half-up to a whole currency unit. Amounts here are
// always non-negative, so decimal's round-half-away-from-zero is half-up.
func roundWhole(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
