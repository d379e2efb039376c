/*
schedule.go - Interest-free amortization schedule generation

PURPOSE:
  Produces the installment schedule for a principal: equal base
  installments of ceil(principal / count) so the lender is never short,
  with rounding absorbed into the final installment so the schedule sums
  to the principal exactly. Interest is always zero by policy; it is not
  a parameter.

EXACT-SUM INVARIANT:
  sum(installment amounts) == principal, for every principal/count
  combination. When the rounded base overshoots what remains (tiny
  principals over many installments), trailing installments shrink to
  the remainder rather than going negative.

DUE DATES:
  Installment k is due firstDue advanced by k-1 calendar months (real
  month arithmetic, not 30-day blocks), so a Dec 15 first due date rolls
  into Jan 15 of the next year.

OWNERSHIP:
  The returned schedule is fresh on every call. The lifecycle takes
  ownership and mutates row statuses; any terms change (approval amount,
  restructuring) generates a new schedule instead of patching rows.
*/
package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

// Schedule is the output of one generation run.
type Schedule struct {
	Installments []Installment
	BaseAmount   decimal.Decimal // amount of every installment except possibly trailing ones
	LastDueDate  time.Time
}

// GenerateSchedule builds the installment schedule for a principal.
// count must be a positive integer and principal must be positive;
// violations return a ValidationError naming the field.
func GenerateSchedule(principal decimal.Decimal, count int, firstDue time.Time) (Schedule, error) {
	if !principal.IsPositive() {
		return Schedule{}, validationf("principal", "must be positive, got %s", principal)
	}
	if count <= 0 {
		return Schedule{}, validationf("installmentCount", "must be a positive integer, got %d", count)
	}

	// Round up so count-1 full installments never undershoot the principal.
	base := principal.Div(decimal.NewFromInt(int64(count))).Ceil()

	installments := make([]Installment, 0, count)
	remaining := principal
	var lastDue time.Time
	for i := 1; i <= count; i++ {
		amount := base
		if i == count || amount.GreaterThan(remaining) {
			amount = remaining
		}
		due := firstDue.AddDate(0, i-1, 0)
		installments = append(installments, Installment{
			Number:     i,
			DueDate:    due,
			Amount:     amount,
			Status:     InstallmentPending,
			PaidAmount: decimal.Zero,
		})
		remaining = remaining.Sub(amount)
		lastDue = due
	}

	return Schedule{Installments: installments, BaseAmount: base, LastDueDate: lastDue}, nil
}
