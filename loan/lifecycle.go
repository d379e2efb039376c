/*
lifecycle.go - Loan state machine and payment waterfall

PURPOSE:
  Owns every transition of the Loan aggregate:

      create ──▶ pending ──▶ approved ──▶ active ──▶ completed
                    │                       │  ▲         ▲
                    ▼                       ▼  │         │
                 rejected             defaulted┘   early settlement
                                        (restructure returns to active)

  Each operation guards the current status first, then mutates the
  aggregate in place, confined to the single call. Given a consistent
  snapshot the operations are deterministic; the caller serializes
  concurrent writers per loan id (see Store.WithLoan).

PAYMENT WATERFALL:
  A payment walks open installments in ascending number order, oldest
  first with no skipping. That order is an invariant: it decides which
  installments are marked late, and lateness feeds performance ratings.

FAILURE SEMANTICS:
  Wrong-state calls return *InvalidStateError; amount/policy violations
  return *ValidationError; failed eligibility returns *EligibilityError
  with the full report. No operation retries internally.

SEE ALSO:
  - schedule.go: Called at create/approve/restructure
  - eligibility.go: Called at create unless skipped
  - errors.go: The taxonomy above
*/
package loan

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Lifecycle executes state transitions against the policy table and
// eligibility evaluator it was built with.
type Lifecycle struct {
	policies  PolicyTable
	evaluator *Evaluator
}

// NewLifecycle returns a Lifecycle bound to the given policies.
func NewLifecycle(policies PolicyTable, evaluator *Evaluator) *Lifecycle {
	return &Lifecycle{policies: policies, evaluator: evaluator}
}

// Policies returns the loan-type policy table.
func (lc *Lifecycle) Policies() PolicyTable { return lc.policies }

// Evaluator returns the eligibility evaluator.
func (lc *Lifecycle) Evaluator() *Evaluator { return lc.evaluator }

// =============================================================================
// CREATE
// =============================================================================

// CreateRequest carries everything a loan application needs. The caller
// supplies the employee snapshot and existing-loan views; this package
// performs no I/O to fetch them.
type CreateRequest struct {
	Employee      EligibilitySnapshot
	ExistingLoans []ExistingLoan
	Type          Type
	Amount        decimal.Decimal
	Installments  int
	FirstDueDate  time.Time

	// SkipEligibility bypasses the check battery (e.g. an HR override).
	// The policy caps still apply.
	SkipEligibility bool

	// AsOf anchors eligibility evaluation; zero means time.Now.
	AsOf time.Time
}

// Create validates the request, runs eligibility, generates the schedule
// and returns a new Loan in pending. On any failure no loan exists.
func (lc *Lifecycle) Create(req CreateRequest) (*Loan, error) {
	policy, ok := lc.policies.Lookup(req.Type)
	if !ok {
		return nil, validationf("loanType", "%v: %q", ErrUnknownLoanType, req.Type)
	}
	if !req.Amount.IsPositive() {
		return nil, validationf("amount", "must be positive, got %s", req.Amount)
	}
	if req.Amount.GreaterThan(policy.MaxAmount) {
		return nil, validationf("amount", "exceeds %s maximum of %s", req.Type, policy.MaxAmount)
	}
	if req.Installments <= 0 || req.Installments > policy.MaxInstallments {
		return nil, validationf("installments", "must be in 1..%d, got %d", policy.MaxInstallments, req.Installments)
	}

	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	var snapshot *Report
	if !req.SkipEligibility {
		report := lc.evaluator.Evaluate(req.Employee, req.ExistingLoans, req.Amount, asOf)
		if !report.Eligible {
			return nil, &EligibilityError{Report: report}
		}
		snapshot = &report
	}

	schedule, err := GenerateSchedule(req.Amount, req.Installments, req.FirstDueDate)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Loan{
		ID:                    uuid.NewString(),
		EmployeeID:            req.Employee.EmployeeID,
		Type:                  req.Type,
		RequestedAmount:       req.Amount,
		Principal:             req.Amount,
		ApprovedAmount:        req.Amount,
		FirstDueDate:          req.FirstDueDate,
		Installments:          schedule.Installments,
		Balance:               freshBalance(req.Amount),
		Status:                StatusPending,
		EligibilityAtCreation: snapshot,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

func freshBalance(approved decimal.Decimal) Balance {
	return Balance{
		PaidAmount:        decimal.Zero,
		RemainingBalance:  approved,
		CompletionPercent: decimal.Zero,
	}
}

// =============================================================================
// APPROVE / REJECT
// =============================================================================

// Approve transitions pending -> approved. A nil approvedAmount or
// approvedInstallments keeps the requested terms; changed terms
// regenerate the whole schedule and reset the balance.
func (lc *Lifecycle) Approve(l *Loan, approvedAmount *decimal.Decimal, approvedInstallments *int) error {
	if err := requireStatus("approve", l, StatusPending); err != nil {
		return err
	}

	amount := l.RequestedAmount
	if approvedAmount != nil {
		amount = *approvedAmount
	}
	count := len(l.Installments)
	if approvedInstallments != nil {
		count = *approvedInstallments
	}

	if policy, ok := lc.policies.Lookup(l.Type); ok {
		if amount.GreaterThan(policy.MaxAmount) {
			return validationf("approvedAmount", "exceeds %s maximum of %s", l.Type, policy.MaxAmount)
		}
		if count > policy.MaxInstallments {
			return validationf("approvedInstallments", "exceeds %s maximum of %d", l.Type, policy.MaxInstallments)
		}
	}

	if !amount.Equal(l.ApprovedAmount) || count != len(l.Installments) {
		schedule, err := GenerateSchedule(amount, count, l.FirstDueDate)
		if err != nil {
			return err
		}
		l.Installments = schedule.Installments
		l.Balance = freshBalance(amount)
	}

	l.ApprovedAmount = amount
	l.Principal = amount
	l.Status = StatusApproved
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// Reject transitions pending -> rejected. A reason is required.
func (lc *Lifecycle) Reject(l *Loan, reason string) error {
	if err := requireStatus("reject", l, StatusPending); err != nil {
		return err
	}
	if reason == "" {
		return validationf("reason", "rejection reason is required")
	}
	l.Status = StatusRejected
	l.RejectionReason = reason
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// =============================================================================
// DISBURSE
// =============================================================================

// Disburse transitions approved -> active, computes the net disbursed
// amount after deductions, and establishes the recurring payroll
// deduction linkage over the schedule bounds.
func (lc *Lifecycle) Disburse(l *Loan, method DisbursementMethod, deductions []Deduction, reference string) error {
	if err := requireStatus("disburse", l, StatusApproved); err != nil {
		return err
	}

	total := decimal.Zero
	for _, d := range deductions {
		if d.Amount.IsNegative() {
			return validationf("deductions", "%q amount must not be negative", d.Label)
		}
		total = total.Add(d.Amount)
	}
	net := l.ApprovedAmount.Sub(total)
	if !net.IsPositive() {
		return validationf("deductions", "net disbursed amount %s must be positive", net)
	}

	now := time.Now().UTC()
	l.Disbursement = &DisbursementInfo{
		Method:      method,
		Deductions:  append([]Deduction(nil), deductions...),
		NetAmount:   net,
		Reference:   reference,
		DisbursedAt: now,
	}
	l.Deduction = &DeductionLink{
		Active: true,
		Amount: l.InstallmentAmount(),
		Start:  l.Installments[0].DueDate,
		End:    l.Installments[len(l.Installments)-1].DueDate,
	}
	l.Status = StatusActive
	l.UpdatedAt = now
	return nil
}

// =============================================================================
// PAYMENT WATERFALL
// =============================================================================

// ApplyPayment applies a payment across open installments, oldest first.
// An installment becomes paid only when its cumulative paid amount
// reaches its full amount; lateness is recorded when the paying date is
// past the due date. Reaching a zero remaining balance completes the loan.
func (lc *Lifecycle) ApplyPayment(l *Loan, amount decimal.Decimal, paymentDate time.Time, method PaymentMethod) error {
	if err := requireStatus("applyPayment", l, StatusActive); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return validationf("amount", "must be positive, got %s", amount)
	}
	if amount.GreaterThan(l.Balance.RemainingBalance) {
		return validationf("amount", "%s exceeds remaining balance %s", amount, l.Balance.RemainingBalance)
	}

	remaining := amount
	var touched []int
	for i := range l.Installments {
		if remaining.IsZero() {
			break
		}
		inst := &l.Installments[i]
		if !inst.Open() {
			continue
		}
		due := inst.Outstanding()
		if !due.IsPositive() {
			// Zero-amount rows exist only in degenerate tiny-principal
			// schedules; close them as we pass.
			inst.Status = InstallmentPaid
			continue
		}

		applied := decimal.Min(remaining, due)
		inst.PaidAmount = inst.PaidAmount.Add(applied)
		remaining = remaining.Sub(applied)
		touched = append(touched, inst.Number)

		if inst.PaidAmount.GreaterThanOrEqual(inst.Amount) {
			inst.Status = InstallmentPaid
			paid := paymentDate
			inst.PaidDate = &paid
			if paymentDate.After(inst.DueDate) {
				inst.LateDays = daysBetween(inst.DueDate, paymentDate)
			}
		} else {
			inst.Status = InstallmentPartial
		}
	}

	l.Balance.PaidAmount = l.Balance.PaidAmount.Add(amount)
	l.Balance.RemainingBalance = l.ApprovedAmount.Sub(l.Balance.PaidAmount)
	l.Balance.CompletionPercent = completionPercent(l.Balance.PaidAmount, l.ApprovedAmount)

	l.PaymentHistory = append(l.PaymentHistory, PaymentRecord{
		ID:           uuid.NewString(),
		Amount:       amount,
		PaymentDate:  paymentDate,
		Method:       method,
		Installments: touched,
		RecordedAt:   time.Now().UTC(),
	})

	if l.Balance.RemainingBalance.IsZero() {
		lc.complete(l, CompletionSchedule, paymentDate)
	}
	l.UpdatedAt = time.Now().UTC()
	return nil
}

func completionPercent(paid, approved decimal.Decimal) decimal.Decimal {
	if !approved.IsPositive() {
		return decimal.Zero
	}
	return paid.Div(approved).Mul(decimal.NewFromInt(100)).Round(2)
}

// =============================================================================
// EARLY SETTLEMENT
// =============================================================================

// SettleEarly pays off the whole remaining balance at once. Every open
// installment is marked paid at its original amount; being interest-free
// there is no penalty or rebate to compute.
func (lc *Lifecycle) SettleEarly(l *Loan, settlementAmount decimal.Decimal, method PaymentMethod, settledAt time.Time) error {
	if err := requireStatus("settleEarly", l, StatusActive); err != nil {
		return err
	}
	if settlementAmount.LessThan(l.Balance.RemainingBalance) {
		return validationf("settlementAmount", "%s is less than remaining balance %s",
			settlementAmount, l.Balance.RemainingBalance)
	}

	for i := range l.Installments {
		inst := &l.Installments[i]
		if !inst.Open() {
			continue
		}
		inst.PaidAmount = inst.Amount
		inst.Status = InstallmentPaid
		paid := settledAt
		inst.PaidDate = &paid
	}

	l.PaymentHistory = append(l.PaymentHistory, PaymentRecord{
		ID:          uuid.NewString(),
		Amount:      l.Balance.RemainingBalance,
		PaymentDate: settledAt,
		Method:      method,
		RecordedAt:  time.Now().UTC(),
	})
	l.EarlySettlement = &EarlySettlementInfo{
		Amount:    settlementAmount,
		Method:    method,
		SettledAt: settledAt,
	}

	l.Balance.PaidAmount = l.ApprovedAmount
	l.Balance.RemainingBalance = decimal.Zero
	l.Balance.CompletionPercent = decimal.NewFromInt(100)

	lc.complete(l, CompletionEarlySettlement, settledAt)
	l.UpdatedAt = time.Now().UTC()
	return nil
}

func (lc *Lifecycle) complete(l *Loan, method CompletionMethod, at time.Time) {
	l.Status = StatusCompleted
	l.Completion = &CompletionInfo{Method: method, CompletedAt: at}
	if l.Deduction != nil {
		l.Deduction.Active = false
	}
}

// =============================================================================
// DEFAULT
// =============================================================================

// MarkDefaulted transitions active -> defaulted, records the outstanding
// amount at the time of default and deactivates the payroll deduction.
func (lc *Lifecycle) MarkDefaulted(l *Loan, reason string, at time.Time) error {
	if err := requireStatus("markDefaulted", l, StatusActive); err != nil {
		return err
	}
	if reason == "" {
		return validationf("reason", "default reason is required")
	}
	l.DefaultInfo = &DefaultInfo{
		Reason:      reason,
		Outstanding: l.Balance.RemainingBalance,
		DefaultedAt: at,
	}
	if l.Deduction != nil {
		l.Deduction.Active = false
	}
	l.Status = StatusDefaulted
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// =============================================================================
// RESTRUCTURE
// =============================================================================

// Restructure replaces the unpaid suffix of the schedule with new terms
// for the remaining balance only. Paid installments keep their numbers,
// amounts and payment data unchanged; new rows are renumbered to continue
// after the last paid one. This is deliberately NOT a full-schedule
// regeneration: the paid prefix is history and must survive byte for
// byte. A defaulted loan returns to active.
func (lc *Lifecycle) Restructure(l *Loan, newInstallmentCount int, effectiveDate time.Time, newInstallmentAmount *decimal.Decimal) error {
	if err := requireStatus("restructure", l, StatusActive, StatusDefaulted); err != nil {
		return err
	}
	if newInstallmentCount <= 0 {
		return validationf("newInstallmentCount", "must be positive, got %d", newInstallmentCount)
	}

	outstanding := l.Balance.RemainingBalance
	if !outstanding.IsPositive() {
		return validationf("remainingBalance", "nothing left to restructure")
	}

	var kept []Installment
	lastKeptNumber := 0
	for _, inst := range l.Installments {
		if inst.Status == InstallmentPaid || inst.Status == InstallmentWaived {
			kept = append(kept, inst)
			if inst.Number > lastKeptNumber {
				lastKeptNumber = inst.Number
			}
		}
	}

	originalCount := len(l.Installments)
	originalAmount := l.InstallmentAmount()
	fromStatus := l.Status

	schedule, err := GenerateSchedule(outstanding, newInstallmentCount, effectiveDate)
	if err != nil {
		return err
	}
	if newInstallmentAmount != nil {
		if !newInstallmentAmount.IsPositive() {
			return validationf("newInstallmentAmount", "must be positive, got %s", *newInstallmentAmount)
		}
		schedule, err = generateWithBase(outstanding, newInstallmentCount, effectiveDate, *newInstallmentAmount)
		if err != nil {
			return err
		}
	}

	fresh := schedule.Installments
	for i := range fresh {
		fresh[i].Number = lastKeptNumber + i + 1
	}
	l.Installments = append(kept, fresh...)

	l.RestructuringHistory = append(l.RestructuringHistory, RestructuringRecord{
		EffectiveDate:        effectiveDate,
		FromStatus:           fromStatus,
		OutstandingBalance:   outstanding,
		OriginalInstallments: originalCount,
		NewInstallments:      newInstallmentCount,
		OriginalAmount:       originalAmount,
		NewAmount:            schedule.BaseAmount,
		RecordedAt:           time.Now().UTC(),
	})

	if l.Deduction != nil {
		l.Deduction.Active = true
		l.Deduction.Amount = schedule.BaseAmount
		l.Deduction.Start = effectiveDate
		l.Deduction.End = schedule.LastDueDate
	}

	l.Status = StatusActive
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// generateWithBase builds a schedule with a caller-chosen per-installment
// amount instead of ceil(outstanding/count). The exact-sum invariant still
// holds: rows never exceed what remains and the final row absorbs the rest.
func generateWithBase(outstanding decimal.Decimal, count int, firstDue time.Time, base decimal.Decimal) (Schedule, error) {
	if base.Mul(decimal.NewFromInt(int64(count))).LessThan(outstanding) {
		return Schedule{}, validationf("newInstallmentAmount",
			"%s over %d installments cannot cover outstanding %s", base, count, outstanding)
	}
	installments := make([]Installment, 0, count)
	remaining := outstanding
	var lastDue time.Time
	for i := 1; i <= count; i++ {
		amount := decimal.Min(base, remaining)
		if i == count {
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

// =============================================================================
// CLEARANCE
// =============================================================================

// IssueClearance marks the closure record for a completed loan. The state
// stays completed; issuing twice returns the existing record unchanged.
func (lc *Lifecycle) IssueClearance(l *Loan) (*ClearanceInfo, error) {
	if err := requireStatus("issueClearance", l, StatusCompleted); err != nil {
		return nil, err
	}
	if l.Clearance != nil {
		return l.Clearance, nil
	}
	l.Clearance = &ClearanceInfo{
		Reference: "CLR-" + uuid.NewString(),
		IssuedAt:  time.Now().UTC(),
	}
	l.UpdatedAt = time.Now().UTC()
	return l.Clearance, nil
}
