/*
policy.go - Loan-type policies and eligibility thresholds

PURPOSE:
  Static policy data, held as immutable configuration structs. Loan-type
  caps bound what can be requested; eligibility thresholds drive the
  evaluator. Neither is ever mutated at runtime - tenants override values
  through the factory package at startup.

AVAILABLE PRESETS:
  DefaultPolicyTable:        personal / emergency / housing / education caps
  DefaultEligibilityPolicy:  the source system's literals, now injectable

WHY INJECTABLE:
  A multi-tenant deployment is unlikely to want one global "max 2 active
  loans" or "30% of salary" threshold, so these are policy parameters
  rather than constants buried in the evaluator.

SEE ALSO:
  - eligibility.go: Consumes EligibilityPolicy
  - lifecycle.go: Validates requests against the PolicyTable
  - factory/config.go: JSON overrides
*/
package loan

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// LOAN-TYPE POLICY
// =============================================================================

// Policy caps one loan type. Static configuration; never mutated.
type Policy struct {
	Type            Type            `json:"type"`
	MaxAmount       decimal.Decimal `json:"maxAmount"`
	MaxInstallments int             `json:"maxInstallments"`
}

// PolicyTable maps loan types to their caps.
type PolicyTable map[Type]Policy

// Lookup returns the policy for a loan type.
func (pt PolicyTable) Lookup(t Type) (Policy, bool) {
	p, ok := pt[t]
	return p, ok
}

// DefaultPolicyTable returns the standard product caps.
func DefaultPolicyTable() PolicyTable {
	return PolicyTable{
		TypePersonal:  {Type: TypePersonal, MaxAmount: decimal.NewFromInt(50000), MaxInstallments: 24},
		TypeEmergency: {Type: TypeEmergency, MaxAmount: decimal.NewFromInt(10000), MaxInstallments: 12},
		TypeHousing:   {Type: TypeHousing, MaxAmount: decimal.NewFromInt(200000), MaxInstallments: 60},
		TypeEducation: {Type: TypeEducation, MaxAmount: decimal.NewFromInt(30000), MaxInstallments: 24},
	}
}

// =============================================================================
// ELIGIBILITY POLICY
// =============================================================================

// EligibilityPolicy holds the thresholds the evaluator checks against.
type EligibilityPolicy struct {
	// MinServiceDays is the minimum tenure before any loan.
	MinServiceDays int `json:"minServiceDays"`

	// ActiveEmploymentStatus is the single status value that passes the
	// employment check.
	ActiveEmploymentStatus string `json:"activeEmploymentStatus"`

	// CreditLimitMultiplier: credit limit = gross salary * multiplier.
	CreditLimitMultiplier decimal.Decimal `json:"creditLimitMultiplier"`

	// MaxInstallmentPercent: max monthly installment = gross * percent.
	MaxInstallmentPercent decimal.Decimal `json:"maxInstallmentPercent"`

	// OverdueGraceDays: an open installment later than this on any
	// existing loan fails the payment-history check.
	OverdueGraceDays int `json:"overdueGraceDays"`

	// MaxActiveLoans caps concurrently active loans.
	MaxActiveLoans int `json:"maxActiveLoans"`
}

// DefaultEligibilityPolicy returns the thresholds the product launched
// with: 180 days tenure, credit multiple 3, 30% installment ratio,
// 30 days overdue grace, two concurrent active loans.
func DefaultEligibilityPolicy() EligibilityPolicy {
	return EligibilityPolicy{
		MinServiceDays:         180,
		ActiveEmploymentStatus: "active",
		CreditLimitMultiplier:  decimal.NewFromInt(3),
		MaxInstallmentPercent:  decimal.NewFromFloat(0.30),
		OverdueGraceDays:       30,
		MaxActiveLoans:         2,
	}
}
