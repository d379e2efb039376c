/*
rates.go - Statutory rate table and schedule selection

PURPOSE:
  Holds the rate schedule constants as one immutable configuration struct
  and resolves which schedule variant applies to an employee. All the
  nationality/hire-date branching lives in ResolveSchedule; callers never
  repeat date comparisons inline.

RATE STRUCTURE (defaults):
  Legacy, national:
    employee = 9% pension + 0.75% solidarity fund           =  9.75%
    employer = 9% pension + 2% hazard + 0.75% solidarity    = 11.75%
  Reform, national (hired on/after 2024-07-03):
    pension sub-rate starts at 9% and rises 0.5pp each July
    from 2025, capped at 11%; hazard and solidarity unchanged
  Non-national:
    employer = 2% hazard only; employee = 0

BASE CLAMPING:
  The contribution base (basic + housing) is clamped to
  [MinBase, MaxBase] before any rate is applied.

CONFIGURATION:
  The published statutory minimum base is 1500; some sources cite 400.
  MinBase is deliberately a configuration field (overridable via the
  factory package) rather than a buried constant.

SEE ALSO:
  - calculator.go: Applies the resolved schedule to a clamped base
  - factory/config.go: JSON overrides for tenant-specific tables
*/
package contribution

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RATE TABLE - Immutable statutory configuration
// =============================================================================

// RateTable is the complete statutory rate configuration. Build one with
// DefaultRateTable and treat it as immutable; the calculator never writes
// to it.
type RateTable struct {
	// Base clamping bounds, whole currency units.
	MinBase decimal.Decimal
	MaxBase decimal.Decimal

	// Sub-rates shared by both national schedules.
	PensionLegacyRate  decimal.Decimal // pension, both sides, legacy schedule
	HazardRate         decimal.Decimal // occupational hazard, employer only
	SolidarityFundRate decimal.Decimal // solidarity fund, both sides, nationals only

	// Reform schedule graduation.
	ReformCutoff       time.Time       // hires on/after this date use the reform schedule
	ReformStartRate    decimal.Decimal // pension rate in the first reform tier
	ReformAnnualStep   decimal.Decimal // added once per anniversary year
	ReformTerminalRate decimal.Decimal // graduation stops here
	ReformFirstStep    int             // first calendar year the step applies
	AnniversaryMonth   time.Month      // tier boundary within a year
}

// DefaultRateTable returns the statutory defaults. MinBase follows the
// published schedule tables (1500); tenants citing the 400 figure must
// override it explicitly through configuration.
func DefaultRateTable() RateTable {
	return RateTable{
		MinBase: decimal.NewFromInt(1500),
		MaxBase: decimal.NewFromInt(45000),

		PensionLegacyRate:  decimal.NewFromFloat(0.09),
		HazardRate:         decimal.NewFromFloat(0.02),
		SolidarityFundRate: decimal.NewFromFloat(0.0075),

		ReformCutoff:       time.Date(2024, time.July, 3, 0, 0, 0, 0, time.UTC),
		ReformStartRate:    decimal.NewFromFloat(0.09),
		ReformAnnualStep:   decimal.NewFromFloat(0.005),
		ReformTerminalRate: decimal.NewFromFloat(0.11),
		ReformFirstStep:    2025,
		AnniversaryMonth:   time.July,
	}
}

// =============================================================================
// SCHEDULE SELECTION
// =============================================================================

// ResolveSchedule returns the named schedule variant for an employee.
// A national with no recorded hire date is treated as a legacy hire.
func (rt RateTable) ResolveSchedule(national bool, hireDate *time.Time, asOf time.Time) ScheduleVariant {
	if !national {
		return ScheduleVariant{Schedule: ScheduleNonNational}
	}
	if hireDate == nil || hireDate.Before(rt.ReformCutoff) {
		return ScheduleVariant{Schedule: ScheduleLegacy}
	}
	return ScheduleVariant{Schedule: ScheduleReform, TierYear: rt.tierYear(asOf)}
}

// tierYear maps an as-of date to the calendar year whose reform tier
// applies. Months before the anniversary month belong to the previous
// year's tier.
func (rt RateTable) tierYear(asOf time.Time) int {
	year := asOf.Year()
	if asOf.Month() < rt.AnniversaryMonth {
		year--
	}
	return year
}

// PensionRate returns the pension sub-rate for a resolved variant.
// Non-nationals have no pension component.
func (rt RateTable) PensionRate(v ScheduleVariant) decimal.Decimal {
	switch v.Schedule {
	case ScheduleLegacy:
		return rt.PensionLegacyRate
	case ScheduleReform:
		steps := v.TierYear - rt.ReformFirstStep + 1
		if steps < 0 {
			steps = 0
		}
		rate := rt.ReformStartRate.Add(rt.ReformAnnualStep.Mul(decimal.NewFromInt(int64(steps))))
		if rate.GreaterThan(rt.ReformTerminalRate) {
			return rt.ReformTerminalRate
		}
		return rate
	default:
		return decimal.Zero
	}
}

// =============================================================================
// BASE CLAMPING
// =============================================================================

// ClampBase clamps a positive contribution base into [MinBase, MaxBase].
func (rt RateTable) ClampBase(base decimal.Decimal) (clamped decimal.Decimal, belowMin, capped bool) {
	if base.LessThan(rt.MinBase) {
		return rt.MinBase, true, false
	}
	if base.GreaterThan(rt.MaxBase) {
		return rt.MaxBase, false, true
	}
	return base, false, false
}
