/*
store.go - Persistence interface for loan aggregates

PURPOSE:
  Defines the storage contract the engine's callers implement. The
  lifecycle operations themselves are pure read-modify-write on one
  aggregate, so concurrency control lives here: Update is a classic
  last-write race if two callers load the same loan, and WithLoan is the
  single-writer primitive that makes the race impossible.

SINGLE-WRITER CONTRACT:
  WithLoan(ctx, id, fn) must:
  1. Acquire a per-loan-id exclusive lock
  2. Load the current aggregate
  3. Run fn against it (fn mutates in place, returns an error to abort)
  4. Persist the mutated aggregate iff fn returned nil
  5. Release the lock
  Both implementations (memory, sqlite) provide this; HTTP handlers run
  every lifecycle mutation through it.

SEE ALSO:
  - store/memory.go: In-memory implementation for tests and dev
  - store/sqlite: Durable implementation
*/
package loan

import (
	"context"
	"time"
)

// Store persists Loan aggregates.
type Store interface {
	// CreateLoan persists a new aggregate.
	CreateLoan(ctx context.Context, l *Loan) error

	// GetLoan returns a copy of the aggregate, or ErrLoanNotFound.
	GetLoan(ctx context.Context, id string) (*Loan, error)

	// ListLoans returns all loans, newest first.
	ListLoans(ctx context.Context) ([]*Loan, error)

	// ListLoansByEmployee returns the employee's loans, newest first.
	ListLoansByEmployee(ctx context.Context, employeeID string) ([]*Loan, error)

	// WithLoan runs fn against the current aggregate under the per-loan
	// exclusive lock and persists the result iff fn returns nil.
	WithLoan(ctx context.Context, id string, fn func(*Loan) error) (*Loan, error)

	// DeleteLoan removes an aggregate. Whether deletion is permitted for
	// the loan's state is the caller's policy; disbursed loans must never
	// be deleted.
	DeleteLoan(ctx context.Context, id string) error
}

// ExistingLoanViews reduces an employee's aggregates to the views the
// eligibility evaluator consumes. Rejected and completed loans still
// appear (the evaluator ignores them for encumbrance but counts overdue
// history), so callers pass everything the store returns.
func ExistingLoanViews(loans []*Loan, asOf time.Time) []ExistingLoan {
	views := make([]ExistingLoan, 0, len(loans))
	for _, l := range loans {
		views = append(views, l.ExistingLoanView(asOf))
	}
	return views
}
