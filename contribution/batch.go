/*
batch.go - Payroll-run fold over many employee records

PURPOSE:
  A payroll summary is a fold over the single-record calculation: each
  record is computed independently, one invalid record never aborts the
  run, and invalid entries are collected for the finance team to fix.

PARTIAL-FAILURE TOLERANCE:
  This is a hard requirement: month-end payroll for 500 employees must
  not stop because one record has a zero salary. Invalid records land in
  Summary.Invalid with the per-record reason.

SEE ALSO:
  - calculator.go: The per-record calculation this folds over
  - store/sqlite: Persisted payroll runs for re-opening past summaries
*/
package contribution

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// BATCH INPUT / OUTPUT
// =============================================================================

// Record is one employee row in a payroll run.
type Record struct {
	EmployeeID       string
	National         bool
	BasicSalary      decimal.Decimal
	HousingAllowance decimal.Decimal
	HireDate         *time.Time
}

// Subtotal aggregates one nationality group.
type Subtotal struct {
	Count    int   `json:"count"`
	Employee int64 `json:"employeeContribution"`
	Employer int64 `json:"employerContribution"`
	Total    int64 `json:"totalContribution"`
}

// InvalidRecord names a record the run skipped and why.
type InvalidRecord struct {
	EmployeeID string `json:"employeeId"`
	Reason     string `json:"reason"`
}

// EmployeeResult pairs a record with its calculation outcome.
type EmployeeResult struct {
	EmployeeID string `json:"employeeId"`
	Result     Result `json:"result"`
}

// RunHeader is the list view of a stored payroll run.
type RunHeader struct {
	ID        string    `json:"id"`
	AsOf      time.Time `json:"asOf"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary is the outcome of one payroll contribution run.
type Summary struct {
	RunID string    `json:"runId"`
	AsOf  time.Time `json:"asOf"`

	EmployeeCount int   `json:"employeeCount"`
	TotalEmployee int64 `json:"totalEmployeeContribution"`
	TotalEmployer int64 `json:"totalEmployerContribution"`
	Total         int64 `json:"totalContribution"`

	Nationals    Subtotal `json:"nationals"`
	NonNationals Subtotal `json:"nonNationals"`

	Capped       []string        `json:"cappedEmployees"`
	BelowMinimum []string        `json:"belowMinimumEmployees"`
	Invalid      []InvalidRecord `json:"invalidRecords"`

	Results []EmployeeResult `json:"results"`
}

// =============================================================================
// THE FOLD
// =============================================================================

// PayrollSummary computes contributions for every record and aggregates
// totals, per-nationality subtotals, and the capped/below-minimum/invalid
// lists. Records are independent; ordering of the output lists follows
// input order.
func (c *Calculator) PayrollSummary(records []Record, asOf time.Time) Summary {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	s := Summary{
		RunID: uuid.NewString(),
		AsOf:  asOf,
	}

	for _, rec := range records {
		res := c.Calculate(Input{
			National:         rec.National,
			BasicSalary:      rec.BasicSalary,
			HousingAllowance: rec.HousingAllowance,
			HireDate:         rec.HireDate,
			AsOf:             asOf,
		})

		if !res.Valid() {
			s.Invalid = append(s.Invalid, InvalidRecord{EmployeeID: rec.EmployeeID, Reason: res.Error})
			continue
		}

		s.EmployeeCount++
		s.TotalEmployee += res.EmployeeContribution
		s.TotalEmployer += res.EmployerContribution
		s.Total += res.TotalContribution

		group := &s.NonNationals
		if rec.National {
			group = &s.Nationals
		}
		group.Count++
		group.Employee += res.EmployeeContribution
		group.Employer += res.EmployerContribution
		group.Total += res.TotalContribution

		if res.WasCapped {
			s.Capped = append(s.Capped, rec.EmployeeID)
		}
		if res.WasBelowMinimum {
			s.BelowMinimum = append(s.BelowMinimum, rec.EmployeeID)
		}

		s.Results = append(s.Results, EmployeeResult{EmployeeID: rec.EmployeeID, Result: res})
	}

	return s
}
