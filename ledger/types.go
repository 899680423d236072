/*
Package ledger provides the core transaction engine for a single-currency
banking ledger.

PURPOSE:
  This package contains the domain types and algorithms for validating and
  committing balance-affecting operations: deposits, withdrawals, loans,
  loan repayments, and account-to-account transfers. It is a library, not a
  service - persistence and notification are collaborator interfaces
  supplied by the caller.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A fixed-precision monetary value (no floating-point arithmetic)
  - Account: A balance-bearing entity, read through the Repository
  - TransactionRecord: An immutable ledger entry with a balance snapshot
  - OperationKind: What a request (or record) represents
  - LoanStatus: Settlement state for loan records

DESIGN PRINCIPLES:
  1. Immutability: Records are never modified once committed. The single
     exception is the loan settlement status, which transitions through a
     fixed state machine, each edge applied at most once.
  2. Precision: Uses decimal.Decimal to avoid floating-point errors.
  3. Snapshots: Every record carries the account balance as it stood
     immediately after the operation committed.
  4. Rejections never mutate state.

USAGE:
  engine := ledger.NewEngine(repo, ledger.WithNotifier(notifier))
  result, err := engine.Execute(ctx, ledger.Request{
      Kind:      ledger.OpDeposit,
      Amount:    ledger.NewMoneyFromInt(250),
      AccountID: "acct-001",
  })

SEE ALSO:
  - rules.go: Per-operation validation rules
  - engine.go: Validate -> mutate -> commit -> notify orchestration
  - repository.go: Collaborator interfaces (Repository, Notifier)
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Fixed-precision monetary value (single currency)
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int64) Money {
	return Money{Value: decimal.NewFromInt(value)}
}

func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Value: d}, nil
}

func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}
	}
	return Money{Value: d}
}

func (m Money) Add(o Money) Money        { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money        { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Neg() Money               { return Money{Value: m.Value.Neg()} }
func (m Money) IsZero() bool             { return m.Value.IsZero() }
func (m Money) IsNegative() bool         { return m.Value.IsNegative() }
func (m Money) IsPositive() bool         { return m.Value.IsPositive() }
func (m Money) GreaterThan(o Money) bool { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool    { return m.Value.LessThan(o.Value) }
func (m Money) Equal(o Money) bool       { return m.Value.Equal(o.Value) }
func (m Money) String() string           { return m.Value.String() }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string
type RecordID string

// CorrelationID groups the two records of a transfer pair.
type CorrelationID string

// =============================================================================
// OPERATION KINDS
// =============================================================================

type OperationKind string

// Request kinds accepted by Engine.Execute. OpTransfer fans out into an
// OpTransferOut and an OpTransferIn record, one per touched account.
const (
	OpDeposit    OperationKind = "deposit"
	OpWithdrawal OperationKind = "withdrawal"
	OpLoan       OperationKind = "loan"
	OpLoanPaid   OperationKind = "loan_paid"
	OpTransfer   OperationKind = "transfer"
)

// Record-only kinds for the two sides of a committed transfer.
const (
	OpTransferOut OperationKind = "transfer_out"
	OpTransferIn  OperationKind = "transfer_in"
)

// =============================================================================
// LOAN SETTLEMENT STATUS
// =============================================================================

// LoanStatus tracks settlement of a loan record. Approval is an external
// authority step; the engine only records and enforces the transitions:
//
//	pending -> approved -> repaid
//	pending -> denied
//
// denied and repaid are terminal.
type LoanStatus string

const (
	LoanPending  LoanStatus = "pending"
	LoanApproved LoanStatus = "approved"
	LoanDenied   LoanStatus = "denied"
	LoanRepaid   LoanStatus = "repaid"
)

// =============================================================================
// ACCOUNT - Balance-bearing entity (owned externally)
// =============================================================================

// Account is a point-in-time snapshot read from the Repository.
// INVARIANT: Balance >= 0 after every committed operation.
type Account struct {
	ID        AccountID
	Owner     string
	Balance   Money
	CreatedAt time.Time
}

// =============================================================================
// TRANSACTION RECORD - Immutable ledger entry
// =============================================================================

// TransactionRecord captures one committed operation against one account.
//
// INVARIANTS:
//   - Amount > 0 for every record (direction is carried by Kind).
//   - BalanceAfter equals the account balance exactly as the operation
//     committed; no other record for the account may interleave between
//     computation and commit.
//   - A successful transfer produces exactly two records, each naming the
//     other's account as CounterAccount and sharing one CorrelationID.
type TransactionRecord struct {
	ID             RecordID
	Kind           OperationKind
	AccountID      AccountID
	Amount         Money
	BalanceAfter   Money
	CounterAccount AccountID     // transfer records only
	CorrelationID  CorrelationID // transfer records only
	LoanStatus     LoanStatus    // loan records only
	CreatedAt      time.Time
}

// =============================================================================
// NOTIFICATION - Post-commit message to an affected party
// =============================================================================

type Notification struct {
	Owner     string
	AccountID AccountID
	Amount    Money
	Kind      OperationKind
}
