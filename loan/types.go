/*
Package loan implements the employee-loan lifecycle engine.

PURPOSE:
  This package contains the pure domain core for interest-free employee
  loans: eligibility evaluation, amortization schedule generation, and
  the loan state machine (approval, disbursement, payment application,
  early settlement, default, restructuring).

KEY CONCEPTS IN THIS FILE (types.go):
  - Loan: The aggregate root. Owns its installments and history arrays
    exclusively; every mutation goes through a Lifecycle operation.
  - Installment: One schedule row with payment tracking
  - Balance: paid/remaining derived totals (remaining == approved - paid)
  - EligibilitySnapshot / ExistingLoan: Plain inputs supplied by the
    caller; this package never loads them itself.

DESIGN PRINCIPLES:
  1. No I/O: operations take a consistent Loan snapshot and mutate it in
     place, confined to the single call. The caller provides single-writer
     semantics per loan id (see Store.WithLoan).
  2. Precision: decimal.Decimal for all money; amounts are whole
     currency units.
  3. Auditability: payment and restructuring histories are append-only.

SEE ALSO:
  - schedule.go: Amortization schedule generation
  - eligibility.go: The six-check eligibility battery
  - lifecycle.go: State transitions and the payment waterfall
  - errors.go: Typed error taxonomy
*/
package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUS AND TYPE TAGS
// =============================================================================

// Status is the loan state-machine state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusDefaulted Status = "defaulted"
)

// Type identifies a loan product. Presentation layers map these tags to
// display labels; the core never carries rendered strings.
type Type string

const (
	TypePersonal  Type = "personal"
	TypeEmergency Type = "emergency"
	TypeHousing   Type = "housing"
	TypeEducation Type = "education"
)

// InstallmentStatus tracks one schedule row.
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPartial InstallmentStatus = "partial"
	InstallmentPaid    InstallmentStatus = "paid"
	InstallmentWaived  InstallmentStatus = "waived"
)

// PaymentMethod is how a payment or settlement was made.
type PaymentMethod string

const (
	PayMethodPayrollDeduction PaymentMethod = "payroll_deduction"
	PayMethodBankTransfer     PaymentMethod = "bank_transfer"
	PayMethodCheck            PaymentMethod = "check"
	PayMethodCash             PaymentMethod = "cash"
)

// DisbursementMethod is how the approved amount reached the employee.
type DisbursementMethod string

const (
	DisburseBankTransfer DisbursementMethod = "bank_transfer"
	DisburseCheck        DisbursementMethod = "check"
	DisburseCash         DisbursementMethod = "cash"
)

// CompletionMethod records how a loan reached completed.
type CompletionMethod string

const (
	CompletionSchedule        CompletionMethod = "schedule"
	CompletionEarlySettlement CompletionMethod = "early_settlement"
)

// =============================================================================
// INSTALLMENT
// =============================================================================

// Installment is one row of the amortization schedule. Numbers are 1-based,
// unique and contiguous within a schedule; the sum of Amount over all rows
// equals the loan principal exactly.
type Installment struct {
	Number     int               `json:"number"`
	DueDate    time.Time         `json:"dueDate"`
	Amount     decimal.Decimal   `json:"principalAmount"`
	Status     InstallmentStatus `json:"status"`
	PaidAmount decimal.Decimal   `json:"paidAmount"`
	PaidDate   *time.Time        `json:"paidDate,omitempty"`
	LateDays   int               `json:"lateDays,omitempty"`
}

// Outstanding is the unpaid remainder on this installment.
func (i Installment) Outstanding() decimal.Decimal {
	return i.Amount.Sub(i.PaidAmount)
}

// Open reports whether the installment can still receive payment.
func (i Installment) Open() bool {
	return i.Status == InstallmentPending || i.Status == InstallmentPartial
}

// =============================================================================
// BALANCE
// =============================================================================

// Balance holds the derived payment totals. Invariant:
// RemainingBalance == approvedAmount - PaidAmount, never negative.
type Balance struct {
	PaidAmount        decimal.Decimal `json:"paidAmount"`
	RemainingBalance  decimal.Decimal `json:"remainingBalance"`
	CompletionPercent decimal.Decimal `json:"completionPercentage"`
}

// =============================================================================
// HISTORY RECORDS (append-only)
// =============================================================================

// PaymentRecord is one applied payment in the loan's append-only history.
type PaymentRecord struct {
	ID           string          `json:"id"`
	Amount       decimal.Decimal `json:"amount"`
	PaymentDate  time.Time       `json:"paymentDate"`
	Method       PaymentMethod   `json:"method"`
	Installments []int           `json:"appliedInstallments"` // installment numbers touched, in waterfall order
	RecordedAt   time.Time       `json:"recordedAt"`
}

// RestructuringRecord captures original vs. new terms for one restructuring.
type RestructuringRecord struct {
	EffectiveDate        time.Time       `json:"effectiveDate"`
	FromStatus           Status          `json:"fromStatus"`
	OutstandingBalance   decimal.Decimal `json:"outstandingBalance"`
	OriginalInstallments int             `json:"originalInstallmentCount"`
	NewInstallments      int             `json:"newInstallmentCount"`
	OriginalAmount       decimal.Decimal `json:"originalInstallmentAmount"`
	NewAmount            decimal.Decimal `json:"newInstallmentAmount"`
	RecordedAt           time.Time       `json:"recordedAt"`
}

// Deduction is one amount withheld from the disbursed principal
// (outstanding dues, processing fees, and the like).
type Deduction struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// DisbursementInfo records how and when the loan was disbursed.
type DisbursementInfo struct {
	Method      DisbursementMethod `json:"method"`
	Deductions  []Deduction        `json:"deductions,omitempty"`
	NetAmount   decimal.Decimal    `json:"netDisbursedAmount"`
	Reference   string             `json:"reference,omitempty"`
	DisbursedAt time.Time          `json:"disbursedAt"`
}

// DeductionLink is the recurring payroll-deduction linkage established at
// disbursement: amount per cycle and the schedule bounds it spans.
type DeductionLink struct {
	Active bool            `json:"active"`
	Amount decimal.Decimal `json:"amount"`
	Start  time.Time       `json:"start"`
	End    time.Time       `json:"end"`
}

// DefaultInfo records a default event.
type DefaultInfo struct {
	Reason      string          `json:"reason"`
	Outstanding decimal.Decimal `json:"outstandingAmount"`
	DefaultedAt time.Time       `json:"defaultedAt"`
}

// EarlySettlementInfo records full early repayment.
type EarlySettlementInfo struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    PaymentMethod   `json:"method"`
	SettledAt time.Time       `json:"settledAt"`
}

// CompletionInfo is set when the loan reaches completed.
type CompletionInfo struct {
	Method      CompletionMethod `json:"method"`
	CompletedAt time.Time        `json:"completedAt"`
}

// ClearanceInfo is the closure record issued for a completed loan.
type ClearanceInfo struct {
	Reference string    `json:"reference"`
	IssuedAt  time.Time `json:"issuedAt"`
}

// =============================================================================
// ELIGIBILITY INPUTS (transient, passed by value)
// =============================================================================

// EligibilitySnapshot is the employee view the evaluator needs. The caller
// assembles it from its employee record; this package never stores it by
// reference.
type EligibilitySnapshot struct {
	EmployeeID       string          `json:"employeeId"`
	BasicSalary      decimal.Decimal `json:"basicSalary"`
	AllowancesTotal  decimal.Decimal `json:"allowancesTotal"`
	HireDate         time.Time       `json:"hireDate"`
	EmploymentStatus string          `json:"employmentStatus"`
}

// GrossSalary is basic + total allowances, the base for credit limits.
func (s EligibilitySnapshot) GrossSalary() decimal.Decimal {
	return s.BasicSalary.Add(s.AllowancesTotal)
}

// ExistingLoan is the aggregated view of one of the employee's other loans.
type ExistingLoan struct {
	Status            Status          `json:"status"`
	RemainingBalance  decimal.Decimal `json:"remainingBalance"`
	InstallmentAmount decimal.Decimal `json:"installmentAmount"`
	MaxOverdueDays    int             `json:"maxOverdueDays"` // worst lateness among open installments
}

// =============================================================================
// LOAN - Aggregate root
// =============================================================================

// Loan is the aggregate root. It owns Installments, PaymentHistory and
// RestructuringHistory exclusively; mutate only through Lifecycle
// operations. Never deleted once disbursed (deletion of pending/rejected
// loans is the persistence layer's policy, not this package's).
type Loan struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employeeId"`
	Type       Type   `json:"type"`

	RequestedAmount decimal.Decimal `json:"requestedAmount"`
	Principal       decimal.Decimal `json:"principal"`
	ApprovedAmount  decimal.Decimal `json:"approvedAmount"`
	FirstDueDate    time.Time       `json:"firstDueDate"`

	Installments []Installment `json:"installments"`
	Balance      Balance       `json:"balance"`
	Status       Status        `json:"status"`

	EligibilityAtCreation *Report `json:"eligibilitySnapshotAtCreation,omitempty"`

	PaymentHistory       []PaymentRecord       `json:"paymentHistory,omitempty"`
	RestructuringHistory []RestructuringRecord `json:"restructuringHistory,omitempty"`

	Disbursement    *DisbursementInfo    `json:"disbursement,omitempty"`
	Deduction       *DeductionLink       `json:"deductionLink,omitempty"`
	DefaultInfo     *DefaultInfo         `json:"defaultInfo,omitempty"`
	EarlySettlement *EarlySettlementInfo `json:"earlySettlement,omitempty"`
	Completion      *CompletionInfo      `json:"completion,omitempty"`
	Clearance       *ClearanceInfo       `json:"clearance,omitempty"`

	RejectionReason string `json:"rejectionReason,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// InstallmentAmount is the recurring per-cycle amount: the amount of the
// first open installment, falling back to the first row.
func (l *Loan) InstallmentAmount() decimal.Decimal {
	for _, inst := range l.Installments {
		if inst.Open() {
			return inst.Amount
		}
	}
	if len(l.Installments) > 0 {
		return l.Installments[0].Amount
	}
	return decimal.Zero
}

// Clone returns a deep copy of the aggregate. Stores hand out clones so
// callers can never mutate persisted state outside a lifecycle operation.
func (l *Loan) Clone() *Loan {
	if l == nil {
		return nil
	}
	c := *l
	c.Installments = append([]Installment(nil), l.Installments...)
	for i := range c.Installments {
		if c.Installments[i].PaidDate != nil {
			d := *c.Installments[i].PaidDate
			c.Installments[i].PaidDate = &d
		}
	}
	c.PaymentHistory = append([]PaymentRecord(nil), l.PaymentHistory...)
	for i := range c.PaymentHistory {
		c.PaymentHistory[i].Installments = append([]int(nil), l.PaymentHistory[i].Installments...)
	}
	c.RestructuringHistory = append([]RestructuringRecord(nil), l.RestructuringHistory...)
	c.EligibilityAtCreation = cloneReport(l.EligibilityAtCreation)
	if l.Disbursement != nil {
		d := *l.Disbursement
		d.Deductions = append([]Deduction(nil), l.Disbursement.Deductions...)
		c.Disbursement = &d
	}
	c.Deduction = clonePtr(l.Deduction)
	c.DefaultInfo = clonePtr(l.DefaultInfo)
	c.EarlySettlement = clonePtr(l.EarlySettlement)
	c.Completion = clonePtr(l.Completion)
	c.Clearance = clonePtr(l.Clearance)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneReport(r *Report) *Report {
	if r == nil {
		return nil
	}
	c := *r
	c.Checks = append([]CheckResult(nil), r.Checks...)
	c.IneligibilityReasons = append([]string(nil), r.IneligibilityReasons...)
	return &c
}

// ExistingLoanView reduces a full aggregate to the ExistingLoan shape the
// eligibility evaluator consumes. Overdue days are measured against asOf
// for open installments past their due date.
func (l *Loan) ExistingLoanView(asOf time.Time) ExistingLoan {
	view := ExistingLoan{
		Status:            l.Status,
		RemainingBalance:  l.Balance.RemainingBalance,
		InstallmentAmount: l.InstallmentAmount(),
	}
	for _, inst := range l.Installments {
		if !inst.Open() || !inst.DueDate.Before(asOf) {
			continue
		}
		late := daysBetween(inst.DueDate, asOf)
		if late > view.MaxOverdueDays {
			view.MaxOverdueDays = late
		}
	}
	return view
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
