/*
repository.go - Collaborator interfaces for persistence and notification

PURPOSE:
  Defines the boundary between the engine and the outside world. The
  engine holds no long-lived account state; every operation reads fresh
  snapshots through Repository and writes back through one atomic Commit.

ATOMIC COMMIT CONTRACT:
  Commit applies every balance update, every record insert, and every
  loan status change in the CommitSet as a single unit - all succeed or
  none do. A transfer debits one account and credits another inside the
  same commit; if either side cannot be applied, neither balance changes.

IMPLEMENTATIONS:
  - ledger/store/memory.go: In-memory, for tests and dev
  - store/sqlite: Production SQLite
  - store/postgres: PostgreSQL with serializable transactions

SEE ALSO:
  - engine.go: The only caller of Commit
  - notify/: Notifier implementations
*/
package ledger

import "context"

// =============================================================================
// REPOSITORY - Account snapshots and atomic commits
// =============================================================================

// BalanceUpdate replaces an account's balance at commit time.
type BalanceUpdate struct {
	AccountID  AccountID
	NewBalance Money
}

// LoanStatusChange transitions a loan record's settlement status. The
// repository must apply it compare-and-swap style: the change fails with
// ErrStatusConflict unless the record's current status equals From.
type LoanStatusChange struct {
	RecordID RecordID
	From     LoanStatus
	To       LoanStatus
}

// CommitSet is everything one operation writes.
type CommitSet struct {
	Updates       []BalanceUpdate
	Records       []TransactionRecord
	StatusChanges []LoanStatusChange
}

// Repository is the engine's sole access to account state.
type Repository interface {
	// Get returns a point-in-time snapshot of the account.
	// Returns ErrAccountNotFound if the id does not resolve.
	Get(ctx context.Context, id AccountID) (Account, error)

	// Commit atomically applies the whole set. Either every update,
	// record, and status change is applied or none are. Must return
	// ErrNegativeBalance rather than commit a balance below zero, and
	// ErrStatusConflict rather than re-apply a status transition.
	Commit(ctx context.Context, set CommitSet) error
}

// LoanRepository extends Repository with loan record lookup, required by
// the loan settlement operations.
type LoanRepository interface {
	Repository

	// FindLoan returns the most recent loan record for the account in the
	// given settlement status, or nil if there is none.
	FindLoan(ctx context.Context, id AccountID, status LoanStatus) (*TransactionRecord, error)
}

// =============================================================================
// NOTIFIER - Fire-and-forget post-commit messaging
// =============================================================================

// Notifier delivers post-commit notifications to affected parties.
// The engine invokes it strictly after a successful commit, logs any
// error, and never lets a notification failure affect the committed
// operation. Retry policy, if any, belongs to the implementation.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
