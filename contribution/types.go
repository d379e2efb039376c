/*
Package contribution computes statutory social-insurance contributions.

PURPOSE:
  Given an employee's basic salary and housing allowance, the calculator
  produces the employee-side and employer-side statutory contributions.
  Which rate schedule applies depends on nationality and hire date:

  - Non-national employees: employer pays the occupational-hazard rate only.
    No employee share, no pension, no solidarity fund.
  - National employees hired before the reform cutoff: fixed legacy rates.
  - National employees hired on/after the cutoff: the reform schedule,
    whose pension sub-rate rises year over year on a fixed anniversary
    month until it reaches a terminal rate.

KEY CONCEPTS IN THIS FILE (types.go):
  - Result: Immutable outcome of one calculation, including the full
    sub-rate breakdown for audit display
  - ScheduleVariant: The named rate schedule that was selected
    (Legacy, Reform{year}, NonNational)
  - RateBreakdown: Pension/hazard/solidarity sub-amounts per side

DESIGN PRINCIPLES:
  1. Never panic, never error out: degenerate input (non-positive salary)
     yields a Result with the Error field set and zero monetary fields,
     because payroll batches must continue past one bad record.
  2. Precision: decimal.Decimal for all intermediate math; final
     contributions are rounded half-up to whole currency units.
  3. Purity: a Result is a function of the inputs and the RateTable only.

SEE ALSO:
  - rates.go: RateTable and schedule selection
  - calculator.go: The single-record calculation
  - batch.go: Payroll-run fold over many records
*/
package contribution

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// SCHEDULE VARIANTS
// =============================================================================

// Schedule identifies which statutory rate schedule applied.
type Schedule string

const (
	// ScheduleLegacy: fixed rates, nationals hired before the reform cutoff
	// (or with no recorded hire date).
	ScheduleLegacy Schedule = "legacy"

	// ScheduleReform: graduated pension rate, nationals hired on/after the
	// reform cutoff.
	ScheduleReform Schedule = "reform"

	// ScheduleNonNational: employer-side occupational hazard only.
	ScheduleNonNational Schedule = "non_national"
)

// ScheduleVariant is the resolved schedule for one calculation. For the
// reform schedule, TierYear is the calendar year whose rate tier applied
// (months before the anniversary month fall into the previous year's tier).
type ScheduleVariant struct {
	Schedule Schedule
	TierYear int // zero unless Schedule == ScheduleReform
}

func (v ScheduleVariant) IsReform() bool { return v.Schedule == ScheduleReform }

// =============================================================================
// RESULT - Outcome of one contribution calculation
// =============================================================================

// SideAmounts holds the sub-component amounts for one side (employee or
// employer), before rounding of the side total.
type SideAmounts struct {
	Pension        decimal.Decimal `json:"pension"`
	Hazard         decimal.Decimal `json:"hazard"`
	SolidarityFund decimal.Decimal `json:"solidarityFund"`
}

// RateBreakdown is the per-side sub-amount breakdown retained for audit
// display. Amounts are exact (unrounded) decimals.
type RateBreakdown struct {
	Employee SideAmounts `json:"employee"`
	Employer SideAmounts `json:"employer"`
}

// Result is the immutable outcome of a single calculation.
//
// When Error is non-empty, every monetary field is zero and the caller must
// treat the record as invalid. Calculate never returns a Go error for
// domain-degenerate input; see package doc.
type Result struct {
	EmployeeContribution int64 `json:"employeeContribution"`
	EmployerContribution int64 `json:"employerContribution"`
	TotalContribution    int64 `json:"totalContribution"`

	// ContributionBase is basic + housing before clamping; CappedBase is the
	// base actually used for the rate math.
	ContributionBase decimal.Decimal `json:"contributionBase"`
	CappedBase       decimal.Decimal `json:"cappedBase"`
	WasCapped        bool            `json:"wasCapped"`
	WasBelowMinimum  bool            `json:"wasBelowMinimum"`

	Variant          ScheduleVariant `json:"variant"`
	IsReformSchedule bool            `json:"isReformSchedule"`

	Breakdown RateBreakdown `json:"rateBreakdown"`

	Error string `json:"error,omitempty"`
}

// Valid reports whether the calculation produced usable amounts.
func (r Result) Valid() bool { return r.Error == "" }
