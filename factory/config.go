/*
Package factory provides JSON to Go policy conversion.

PURPOSE:
  Converts JSON configuration documents into the engine's immutable
  policy structs: loan-type caps, eligibility thresholds and the
  statutory rate table. This is how tenants override the configurable
  parameters (minimum contribution base, max active loans, installment
  percentage) without code changes.

JSON SCHEMA:
  {
    "loan_policies": [
      {"type": "personal", "max_amount": 50000, "max_installments": 24}
    ],
    "eligibility": {
      "min_service_days": 180,
      "active_employment_status": "active",
      "credit_limit_multiplier": 3,
      "max_installment_percent": 0.30,
      "overdue_grace_days": 30,
      "max_active_loans": 2
    },
    "rates": {
      "min_contribution_base": 1500,
      "max_contribution_base": 45000,
      "pension_legacy_rate": 0.09,
      "hazard_rate": 0.02,
      "solidarity_fund_rate": 0.0075,
      "reform_cutoff": "2024-07-03",
      "reform_start_rate": 0.09,
      "reform_annual_step": 0.005,
      "reform_terminal_rate": 0.11,
      "reform_first_step_year": 2025,
      "anniversary_month": 7
    }
  }

DEFAULTS:
  Every section and field is optional; omitted values fall back to the
  package defaults (loan.DefaultPolicyTable, loan.DefaultEligibilityPolicy,
  contribution.DefaultRateTable). Note the minimum contribution base:
  the default is the published 1500 - deployments citing the 400 figure
  must set min_contribution_base explicitly.

USAGE:
  cfg, err := factory.ParseConfig(jsonBytes)
  lc := loan.NewLifecycle(cfg.LoanPolicies, loan.NewEvaluator(cfg.Eligibility))
  calc := contribution.NewCalculator(cfg.Rates)

SEE ALSO:
  - loan/policy.go: The structs this populates
  - contribution/rates.go: RateTable defaults
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/benefits-engine/contribution"
	"github.com/warp/benefits-engine/loan"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// LoanPolicyJSON is one loan-type cap override.
type LoanPolicyJSON struct {
	Type            string  `json:"type"`
	MaxAmount       float64 `json:"max_amount"`
	MaxInstallments int     `json:"max_installments"`
}

// EligibilityJSON overrides eligibility thresholds. Pointer fields
// distinguish "absent" from zero.
type EligibilityJSON struct {
	MinServiceDays         *int     `json:"min_service_days,omitempty"`
	ActiveEmploymentStatus *string  `json:"active_employment_status,omitempty"`
	CreditLimitMultiplier  *float64 `json:"credit_limit_multiplier,omitempty"`
	MaxInstallmentPercent  *float64 `json:"max_installment_percent,omitempty"`
	OverdueGraceDays       *int     `json:"overdue_grace_days,omitempty"`
	MaxActiveLoans         *int     `json:"max_active_loans,omitempty"`
}

// RatesJSON overrides the statutory rate table.
type RatesJSON struct {
	MinContributionBase *float64 `json:"min_contribution_base,omitempty"`
	MaxContributionBase *float64 `json:"max_contribution_base,omitempty"`
	PensionLegacyRate   *float64 `json:"pension_legacy_rate,omitempty"`
	HazardRate          *float64 `json:"hazard_rate,omitempty"`
	SolidarityFundRate  *float64 `json:"solidarity_fund_rate,omitempty"`
	ReformCutoff        *string  `json:"reform_cutoff,omitempty"` // YYYY-MM-DD
	ReformStartRate     *float64 `json:"reform_start_rate,omitempty"`
	ReformAnnualStep    *float64 `json:"reform_annual_step,omitempty"`
	ReformTerminalRate  *float64 `json:"reform_terminal_rate,omitempty"`
	ReformFirstStepYear *int     `json:"reform_first_step_year,omitempty"`
	AnniversaryMonth    *int     `json:"anniversary_month,omitempty"` // 1-12
}

// ConfigJSON is the full configuration document.
type ConfigJSON struct {
	LoanPolicies []LoanPolicyJSON `json:"loan_policies,omitempty"`
	Eligibility  *EligibilityJSON `json:"eligibility,omitempty"`
	Rates        *RatesJSON       `json:"rates,omitempty"`
}

// Config is the parsed, engine-ready configuration.
type Config struct {
	LoanPolicies loan.PolicyTable
	Eligibility  loan.EligibilityPolicy
	Rates        contribution.RateTable
}

// DefaultConfig returns the engine defaults with no overrides applied.
func DefaultConfig() Config {
	return Config{
		LoanPolicies: loan.DefaultPolicyTable(),
		Eligibility:  loan.DefaultEligibilityPolicy(),
		Rates:        contribution.DefaultRateTable(),
	}
}

// ParseConfig parses a JSON document and applies it over the defaults.
func ParseConfig(data []byte) (Config, error) {
	var doc ConfigJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return Config{}, fmt.Errorf("invalid config document: %w", err)
	}

	cfg := DefaultConfig()

	for _, p := range doc.LoanPolicies {
		if p.Type == "" {
			return Config{}, fmt.Errorf("loan policy missing type")
		}
		if p.MaxAmount <= 0 || p.MaxInstallments <= 0 {
			return Config{}, fmt.Errorf("loan policy %q: max_amount and max_installments must be positive", p.Type)
		}
		t := loan.Type(p.Type)
		cfg.LoanPolicies[t] = loan.Policy{
			Type:            t,
			MaxAmount:       decimal.NewFromFloat(p.MaxAmount),
			MaxInstallments: p.MaxInstallments,
		}
	}

	if e := doc.Eligibility; e != nil {
		if e.MinServiceDays != nil {
			cfg.Eligibility.MinServiceDays = *e.MinServiceDays
		}
		if e.ActiveEmploymentStatus != nil {
			cfg.Eligibility.ActiveEmploymentStatus = *e.ActiveEmploymentStatus
		}
		if e.CreditLimitMultiplier != nil {
			cfg.Eligibility.CreditLimitMultiplier = decimal.NewFromFloat(*e.CreditLimitMultiplier)
		}
		if e.MaxInstallmentPercent != nil {
			cfg.Eligibility.MaxInstallmentPercent = decimal.NewFromFloat(*e.MaxInstallmentPercent)
		}
		if e.OverdueGraceDays != nil {
			cfg.Eligibility.OverdueGraceDays = *e.OverdueGraceDays
		}
		if e.MaxActiveLoans != nil {
			cfg.Eligibility.MaxActiveLoans = *e.MaxActiveLoans
		}
	}

	if r := doc.Rates; r != nil {
		if r.MinContributionBase != nil {
			cfg.Rates.MinBase = decimal.NewFromFloat(*r.MinContributionBase)
		}
		if r.MaxContributionBase != nil {
			cfg.Rates.MaxBase = decimal.NewFromFloat(*r.MaxContributionBase)
		}
		if r.PensionLegacyRate != nil {
			cfg.Rates.PensionLegacyRate = decimal.NewFromFloat(*r.PensionLegacyRate)
		}
		if r.HazardRate != nil {
			cfg.Rates.HazardRate = decimal.NewFromFloat(*r.HazardRate)
		}
		if r.SolidarityFundRate != nil {
			cfg.Rates.SolidarityFundRate = decimal.NewFromFloat(*r.SolidarityFundRate)
		}
		if r.ReformCutoff != nil {
			cutoff, err := time.Parse("2006-01-02", *r.ReformCutoff)
			if err != nil {
				return Config{}, fmt.Errorf("invalid reform_cutoff %q: %w", *r.ReformCutoff, err)
			}
			cfg.Rates.ReformCutoff = cutoff
		}
		if r.ReformStartRate != nil {
			cfg.Rates.ReformStartRate = decimal.NewFromFloat(*r.ReformStartRate)
		}
		if r.ReformAnnualStep != nil {
			cfg.Rates.ReformAnnualStep = decimal.NewFromFloat(*r.ReformAnnualStep)
		}
		if r.ReformTerminalRate != nil {
			cfg.Rates.ReformTerminalRate = decimal.NewFromFloat(*r.ReformTerminalRate)
		}
		if r.ReformFirstStepYear != nil {
			cfg.Rates.ReformFirstStep = *r.ReformFirstStepYear
		}
		if r.AnniversaryMonth != nil {
			if *r.AnniversaryMonth < 1 || *r.AnniversaryMonth > 12 {
				return Config{}, fmt.Errorf("anniversary_month must be 1-12, got %d", *r.AnniversaryMonth)
			}
			cfg.Rates.AnniversaryMonth = time.Month(*r.AnniversaryMonth)
		}
	}

	return cfg, nil
}
