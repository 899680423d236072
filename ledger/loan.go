/*
loan.go - Loan settlement state machine

PURPOSE:
  A loan request is recorded immediately with a pending status; approval
  is an external authority decision, recorded here as a single status
  transition. Only an approved loan unlocks a loan_paid operation against
  the account. The machine:

    pending -> approved -> repaid
    pending -> denied

  denied and repaid are terminal. Each edge is applied at most once,
  enforced compare-and-swap style by the repository.

SEE ALSO:
  - engine.go: executeLoan / executeLoanPayment
  - repository.go: LoanStatusChange
*/
package ledger

import (
	"context"
	"errors"
)

// ValidLoanTransition reports whether a settlement status edge is part of
// the state machine. Repositories consult it before applying a change.
func ValidLoanTransition(from, to LoanStatus) bool {
	switch from {
	case LoanPending:
		return to == LoanApproved || to == LoanDenied
	case LoanApproved:
		return to == LoanRepaid
	default:
		return false
	}
}

// ApproveLoan transitions a pending loan record to approved, unlocking
// repayment. Returns ErrStatusConflict if the record is not pending.
func (e *Engine) ApproveLoan(ctx context.Context, id RecordID) error {
	return e.settleLoan(ctx, id, LoanPending, LoanApproved)
}

// DenyLoan transitions a pending loan record to denied, terminally.
func (e *Engine) DenyLoan(ctx context.Context, id RecordID) error {
	return e.settleLoan(ctx, id, LoanPending, LoanDenied)
}

func (e *Engine) settleLoan(ctx context.Context, id RecordID, from, to LoanStatus) error {
	err := e.repo.Commit(ctx, CommitSet{
		StatusChanges: []LoanStatusChange{{RecordID: id, From: from, To: to}},
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStatusConflict):
		return err
	default:
		return &RepositoryError{Op: "commit", Err: err}
	}
}
