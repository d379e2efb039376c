/*
errors.go - Typed error taxonomy for the loan engine

PURPOSE:
  All error types in one place. Callers branch on kind with errors.Is /
  errors.As; HTTP layers map kinds to status codes without string
  matching.

ERROR CATEGORIES:
  1. ValidationError   - malformed or policy-violating input; names the
                         offending field, never silently defaulted
  2. EligibilityError  - applicant failed business checks; carries the
                         full failed-check list for rendering
  3. InvalidStateError - operation invoked on a loan in the wrong state;
                         carries current state and the allowed set

PROPAGATION POLICY:
  Pure calculators return tagged results for expected domain conditions.
  State-machine operations raise these typed errors for precondition
  violations: invoking a transition on the wrong state is a programming
  error that must stop that one operation without corrupting state.
  Nothing here retries; retry/backoff belongs to the caller.

USAGE:
  var inv *loan.InvalidStateError
  if errors.As(err, &inv) {
      log.Printf("loan is %s, needs one of %v", inv.Current, inv.Allowed)
  }
*/
package loan

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the kind behind every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrIneligible is the kind behind EligibilityError.
	ErrIneligible = errors.New("applicant not eligible")

	// ErrInvalidState is the kind behind InvalidStateError.
	ErrInvalidState = errors.New("invalid loan state for operation")

	// ErrLoanNotFound is returned by stores for unknown loan ids.
	ErrLoanNotFound = errors.New("loan not found")

	// ErrUnknownLoanType is returned when no policy covers the loan type.
	ErrUnknownLoanType = errors.New("unknown loan type")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field of a policy or input violation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// EligibilityError carries the full evaluation report so callers can
// render every failed check, not just the first.
type EligibilityError struct {
	Report Report
}

func (e *EligibilityError) Error() string {
	return "not eligible: " + strings.Join(e.Report.IneligibilityReasons, ", ")
}

func (e *EligibilityError) Unwrap() error { return ErrIneligible }

// FailedChecks returns the check ids that did not pass.
func (e *EligibilityError) FailedChecks() []string {
	return append([]string(nil), e.Report.IneligibilityReasons...)
}

// InvalidStateError reports a precondition violation on a state transition.
type InvalidStateError struct {
	Operation string
	Current   Status
	Allowed   []Status
}

func (e *InvalidStateError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	return fmt.Sprintf("%s requires status in [%s], loan is %s",
		e.Operation, strings.Join(allowed, ", "), e.Current)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// requireStatus is the guard every lifecycle operation runs first.
func requireStatus(op string, l *Loan, allowed ...Status) error {
	for _, s := range allowed {
		if l.Status == s {
			return nil
		}
	}
	return &InvalidStateError{Operation: op, Current: l.Status, Allowed: allowed}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is the caller's fault (bad
// input or a disallowed transition) rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrIneligible) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrUnknownLoanType)
}

// IsNotFound reports whether the error indicates a missing loan.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrLoanNotFound)
}
