/*
engine.go - Validate, mutate, commit, notify

PURPOSE:
  The Engine orchestrates every balance-affecting operation:

    1. Lock the touched account(s) in ascending id order
    2. Fetch fresh snapshot(s) from the Repository
    3. Run the validation rule for the operation kind
    4. Compute the new balance(s) and build the record(s)
    5. Commit balance updates and records atomically
    6. After commit, notify every account whose balance changed

  Rejections return before step 4; nothing is touched. Commit failures
  guarantee no partial write, so the whole call is safe to retry.

CONCURRENCY:
  The engine is safe under concurrent callers operating on the same
  account. A per-account mutex serializes read-validate-write so two
  concurrent withdrawals cannot both pass validation against a balance
  only one of them will still satisfy. Locks are always acquired in
  ascending account-id order, so opposite-direction transfers between the
  same pair of accounts cannot deadlock.

NOTIFICATIONS:
  Dispatched on a background goroutine strictly after commit. Failures
  are logged and never surfaced; a slow notifier cannot block or fail a
  committed operation. Use Wait() to drain before shutdown.

SEE ALSO:
  - rules.go: The validation rules invoked in step 3
  - repository.go: The atomic commit contract relied on in step 5
*/
package ledger

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const notifyTimeout = 5 * time.Second

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	repo     Repository
	notifier Notifier
	now      func() time.Time

	mu    sync.Mutex
	locks map[AccountID]*sync.Mutex

	wg sync.WaitGroup
}

type Option func(*Engine)

// WithNotifier sets the post-commit notifier. Without one, commits are
// silent.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithClock overrides the record timestamp source. For tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(repo Repository, opts ...Option) *Engine {
	e := &Engine{
		repo:  repo,
		now:   time.Now,
		locks: make(map[AccountID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Request describes one operation. CounterAccount is the transfer
// recipient and is ignored for every other kind.
type Request struct {
	Kind           OperationKind
	Amount         Money
	AccountID      AccountID
	CounterAccount AccountID
}

// Result carries the committed record(s): one for most operations, the
// transfer-out/transfer-in pair for a transfer.
type Result struct {
	Records []TransactionRecord
}

// =============================================================================
// EXECUTE - The single public operation entry point
// =============================================================================

// Execute validates and commits one operation. It returns a *Rejection
// (wrapped by ErrRejected) for user-correctable input, ErrAccountNotFound
// when the primary account is unknown, or a *RepositoryError when storage
// fails. Identical calls commit independent records; there is no implicit
// deduplication.
func (e *Engine) Execute(ctx context.Context, req Request) (*Result, error) {
	ids := []AccountID{req.AccountID}
	if req.Kind == OpTransfer && req.CounterAccount != "" && req.CounterAccount != req.AccountID {
		ids = append(ids, req.CounterAccount)
	}
	unlock := e.lockAccounts(ids)
	defer unlock()

	account, err := e.fetch(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	switch req.Kind {
	case OpDeposit:
		return e.executeDeposit(ctx, req, account)
	case OpWithdrawal:
		return e.executeWithdrawal(ctx, req, account)
	case OpLoan:
		return e.executeLoan(ctx, req, account)
	case OpLoanPaid:
		return e.executeLoanPayment(ctx, req, account)
	case OpTransfer:
		return e.executeTransfer(ctx, req, account)
	default:
		return nil, rejectf("unknown operation kind %q", req.Kind)
	}
}

// Wait blocks until all in-flight notification dispatches have finished.
// Call before shutdown so committed operations still get announced.
func (e *Engine) Wait() { e.wg.Wait() }

// =============================================================================
// PER-KIND EXECUTION
// =============================================================================

func (e *Engine) executeDeposit(ctx context.Context, req Request, account Account) (*Result, error) {
	if rej := ValidateDeposit(req.Amount, account); rej != nil {
		return nil, rej
	}

	record := e.newRecord(OpDeposit, account.ID, req.Amount, account.Balance.Add(req.Amount))
	if err := e.commit(ctx, CommitSet{
		Updates: []BalanceUpdate{{AccountID: account.ID, NewBalance: record.BalanceAfter}},
		Records: []TransactionRecord{record},
	}); err != nil {
		return nil, err
	}

	e.dispatch(Notification{Owner: account.Owner, AccountID: account.ID, Amount: req.Amount, Kind: OpDeposit})
	return &Result{Records: []TransactionRecord{record}}, nil
}

func (e *Engine) executeWithdrawal(ctx context.Context, req Request, account Account) (*Result, error) {
	if rej := ValidateWithdrawal(req.Amount, account); rej != nil {
		return nil, rej
	}

	record := e.newRecord(OpWithdrawal, account.ID, req.Amount, account.Balance.Sub(req.Amount))
	if err := e.commit(ctx, CommitSet{
		Updates: []BalanceUpdate{{AccountID: account.ID, NewBalance: record.BalanceAfter}},
		Records: []TransactionRecord{record},
	}); err != nil {
		return nil, err
	}

	e.dispatch(Notification{Owner: account.Owner, AccountID: account.ID, Amount: req.Amount, Kind: OpWithdrawal})
	return &Result{Records: []TransactionRecord{record}}, nil
}

// executeLoan records the request with a pending settlement status. The
// balance is untouched until the loan is approved and repaid, so no
// notification goes out here.
func (e *Engine) executeLoan(ctx context.Context, req Request, account Account) (*Result, error) {
	if rej := ValidateLoan(req.Amount, account); rej != nil {
		return nil, rej
	}

	record := e.newRecord(OpLoan, account.ID, req.Amount, account.Balance)
	record.LoanStatus = LoanPending
	if err := e.commit(ctx, CommitSet{Records: []TransactionRecord{record}}); err != nil {
		return nil, err
	}

	return &Result{Records: []TransactionRecord{record}}, nil
}

// executeLoanPayment settles an approved loan: withdrawal-style balance
// effect plus the loan record's approved -> repaid transition, in one
// commit.
func (e *Engine) executeLoanPayment(ctx context.Context, req Request, account Account) (*Result, error) {
	lr, ok := e.repo.(LoanRepository)
	if !ok {
		return nil, ErrLoanRepositoryRequired
	}

	loan, err := lr.FindLoan(ctx, account.ID, LoanApproved)
	if err != nil {
		return nil, &RepositoryError{Op: "loan lookup", Err: err}
	}
	if rej := ValidateLoanPayment(req.Amount, account, loan); rej != nil {
		return nil, rej
	}

	record := e.newRecord(OpLoanPaid, account.ID, req.Amount, account.Balance.Sub(req.Amount))
	record.LoanStatus = LoanRepaid
	if err := e.commit(ctx, CommitSet{
		Updates:       []BalanceUpdate{{AccountID: account.ID, NewBalance: record.BalanceAfter}},
		Records:       []TransactionRecord{record},
		StatusChanges: []LoanStatusChange{{RecordID: loan.ID, From: LoanApproved, To: LoanRepaid}},
	}); err != nil {
		return nil, err
	}

	e.dispatch(Notification{Owner: account.Owner, AccountID: account.ID, Amount: req.Amount, Kind: OpLoanPaid})
	return &Result{Records: []TransactionRecord{record}}, nil
}

func (e *Engine) executeTransfer(ctx context.Context, req Request, sender Account) (*Result, error) {
	if req.CounterAccount == req.AccountID {
		return nil, rejectf("cannot transfer to the same account")
	}

	var receiver *Account
	recv, err := e.repo.Get(ctx, req.CounterAccount)
	switch {
	case err == nil:
		receiver = &recv
	case errors.Is(err, ErrAccountNotFound):
		// Leave receiver nil; the rule rejects with the user-facing reason.
	default:
		return nil, &RepositoryError{Op: "get", Err: err}
	}

	if rej := ValidateTransfer(req.Amount, sender, receiver); rej != nil {
		return nil, rej
	}

	corr := CorrelationID(uuid.NewString())

	out := e.newRecord(OpTransferOut, sender.ID, req.Amount, sender.Balance.Sub(req.Amount))
	out.CounterAccount = receiver.ID
	out.CorrelationID = corr

	in := e.newRecord(OpTransferIn, receiver.ID, req.Amount, receiver.Balance.Add(req.Amount))
	in.CounterAccount = sender.ID
	in.CorrelationID = corr

	if err := e.commit(ctx, CommitSet{
		Updates: []BalanceUpdate{
			{AccountID: sender.ID, NewBalance: out.BalanceAfter},
			{AccountID: receiver.ID, NewBalance: in.BalanceAfter},
		},
		Records: []TransactionRecord{out, in},
	}); err != nil {
		return nil, err
	}

	e.dispatch(
		Notification{Owner: sender.Owner, AccountID: sender.ID, Amount: req.Amount, Kind: OpTransferOut},
		Notification{Owner: receiver.Owner, AccountID: receiver.ID, Amount: req.Amount, Kind: OpTransferIn},
	)
	return &Result{Records: []TransactionRecord{out, in}}, nil
}

// =============================================================================
// INTERNALS
// =============================================================================

func (e *Engine) fetch(ctx context.Context, id AccountID) (Account, error) {
	account, err := e.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return Account{}, err
		}
		return Account{}, &RepositoryError{Op: "get", Err: err}
	}
	return account, nil
}

func (e *Engine) commit(ctx context.Context, set CommitSet) error {
	err := e.repo.Commit(ctx, set)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStatusConflict),
		errors.Is(err, ErrNegativeBalance),
		errors.Is(err, ErrAccountNotFound):
		return err
	default:
		return &RepositoryError{Op: "commit", Err: err}
	}
}

func (e *Engine) newRecord(kind OperationKind, id AccountID, amount, balanceAfter Money) TransactionRecord {
	return TransactionRecord{
		ID:           NewRecordID(),
		Kind:         kind,
		AccountID:    id,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		CreatedAt:    e.now().UTC(),
	}
}

// lockAccounts acquires the per-account mutexes in ascending id order and
// returns the matching unlock.
func (e *Engine) lockAccounts(ids []AccountID) func() {
	sorted := make([]AccountID, 0, len(ids))
	seen := make(map[AccountID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			sorted = append(sorted, id)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for _, id := range sorted {
		e.accountLock(id).Lock()
	}
	return func() {
		for i := len(sorted) - 1; i >= 0; i-- {
			e.accountLock(sorted[i]).Unlock()
		}
	}
}

func (e *Engine) accountLock(id AccountID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

func (e *Engine) dispatch(notifications ...Notification) {
	if e.notifier == nil || len(notifications) == 0 {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		for _, n := range notifications {
			if err := e.notifier.Notify(ctx, n); err != nil {
				log.Printf("ledger: notification to %s for account %s failed: %v", n.Owner, n.AccountID, err)
			}
		}
	}()
}
