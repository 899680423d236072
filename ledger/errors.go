/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers distinguish three situations:

  1. Rejection - user-correctable input problem (amount out of bounds,
     insufficient funds, unknown recipient). No state was touched;
     resubmit with corrected input.
  2. RepositoryError - the snapshot read or atomic commit could not
     complete. No partial write occurred; the whole call is safe to retry.
  3. Notification failures - never surfaced; logged by the engine.

USAGE:
  result, err := engine.Execute(ctx, req)
  switch {
  case ledger.IsRejection(err):
      // show err.Error() to the user verbatim
  case ledger.IsRetryable(err):
      // generic "try again"
  }

SEE ALSO:
  - rules.go: Produces Rejection values
  - engine.go: Produces RepositoryError values
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRejected is the base of every validation rejection.
	ErrRejected = errors.New("operation rejected")

	// ErrAccountNotFound is returned when an account id does not resolve.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists is returned when creating an account whose id is taken.
	ErrAccountExists = errors.New("account already exists")

	// ErrNegativeBalance is returned by repositories refusing to commit a
	// balance below zero. The validation rules prevent this; the repository
	// check backs the invariant at the storage boundary.
	ErrNegativeBalance = errors.New("balance must not go negative")

	// ErrStatusConflict is returned when a loan status change does not match
	// the record's current status (the transition was already applied, or
	// the record is not a loan).
	ErrStatusConflict = errors.New("loan status conflict")

	// ErrLoanRepositoryRequired is returned for loan settlement operations
	// against a repository that cannot look up loan records.
	ErrLoanRepositoryRequired = errors.New("operation requires loan-aware repository")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// Rejection is a validation failure. The Reason is safe to show to the
// end user verbatim.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string { return r.Reason }

func (r *Rejection) Unwrap() error { return ErrRejected }

func rejectf(format string, args ...any) *Rejection {
	return &Rejection{Reason: fmt.Sprintf(format, args...)}
}

// RepositoryError wraps a storage failure during snapshot read or commit.
// The commit contract guarantees nothing was partially written, so the
// whole Execute call may be retried from scratch.
type RepositoryError struct {
	Op  string // "get", "commit", "loan lookup"
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s failed: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRejection returns true if the error is a validation rejection.
// Rejections never mutate state.
func IsRejection(err error) bool {
	return errors.Is(err, ErrRejected)
}

// IsRetryable returns true if retrying the whole call might succeed.
func IsRetryable(err error) bool {
	var re *RepositoryError
	return errors.As(err, &re)
}

// IsNotFound returns true if the error indicates a missing account.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}
