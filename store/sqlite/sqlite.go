/*
Package sqlite provides a SQLite-backed implementation of the repository
interfaces.

PURPOSE:
  Implements ledger.LoanRepository plus the account management and record
  queries the API and CLI need. The same patterns apply to PostgreSQL -
  see store/postgres for the $n-placeholder variant.

ATOMIC COMMIT:
  Commit runs every balance update, record insert, and loan status change
  inside one sql.Tx. Balance updates check RowsAffected so a vanished
  account aborts the whole transaction; loan status changes are guarded
  compare-and-swap style (WHERE loan_status = ?) so a transition can only
  apply once.

APPEND-ONLY LEDGER:
  No UPDATE or DELETE touches a committed record, with one exception: the
  loan_status column, which moves through a fixed state machine.

WAL MODE:
  The database is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  repo, err := sqlite.New("./data/bank.db")
  if err != nil {
      log.Fatal(err)
  }
  defer repo.Close()

  engine := ledger.NewEngine(repo)

SEE ALSO:
  - ledger/repository.go: Interface definitions and commit contract
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/ledger-engine/ledger"
)

// Store implements ledger.LoanRepository using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		balance TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Ledger records (append-only; only loan_status ever changes)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		account_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		counter_account TEXT,
		correlation_id TEXT,
		loan_status TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_account
		ON transactions(account_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_correlation
		ON transactions(correlation_id) WHERE correlation_id IS NOT NULL;

	-- Hot path for loan settlement lookups
	CREATE INDEX IF NOT EXISTS idx_transactions_loans
		ON transactions(account_id, loan_status, created_at DESC)
		WHERE kind = 'loan';
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ACCOUNTS
// =============================================================================

// CreateAccount registers a new account.
func (s *Store) CreateAccount(ctx context.Context, account ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if account.Balance.IsNegative() {
		return ledger.ErrNegativeBalance
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, owner, balance, created_at) VALUES (?, ?, ?, ?)`,
		account.ID, account.Owner, account.Balance.String(),
		account.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrAccountExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// Get returns a point-in-time snapshot of an account.
func (s *Store) Get(ctx context.Context, id ledger.AccountID) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner, balance, created_at FROM accounts WHERE id = ?`, id)

	account, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	if err != nil {
		return ledger.Account{}, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// Accounts returns all accounts, oldest first.
func (s *Store) Accounts(ctx context.Context) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner, balance, created_at FROM accounts ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// =============================================================================
// ATOMIC COMMIT (ledger.Repository interface)
// =============================================================================

// Commit applies the whole set inside one database transaction.
func (s *Store) Commit(ctx context.Context, set ledger.CommitSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, u := range set.Updates {
		if u.NewBalance.IsNegative() {
			return ledger.ErrNegativeBalance
		}
		res, err := sqlTx.ExecContext(ctx,
			`UPDATE accounts SET balance = ? WHERE id = ?`,
			u.NewBalance.String(), u.AccountID)
		if err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return ledger.ErrAccountNotFound
		}
	}

	for _, r := range set.Records {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO transactions
			(id, kind, account_id, amount, balance_after, counter_account, correlation_id, loan_status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.Kind, r.AccountID,
			r.Amount.String(), r.BalanceAfter.String(),
			nullString(string(r.CounterAccount)),
			nullString(string(r.CorrelationID)),
			nullString(string(r.LoanStatus)),
			r.CreatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	for _, c := range set.StatusChanges {
		if !ledger.ValidLoanTransition(c.From, c.To) {
			return ledger.ErrStatusConflict
		}
		res, err := sqlTx.ExecContext(ctx,
			`UPDATE transactions SET loan_status = ? WHERE id = ? AND kind = 'loan' AND loan_status = ?`,
			c.To, c.RecordID, c.From)
		if err != nil {
			return fmt.Errorf("failed to update loan status: %w", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return ledger.ErrStatusConflict
		}
	}

	return sqlTx.Commit()
}

// =============================================================================
// RECORD QUERIES (ledger.LoanRepository interface and beyond)
// =============================================================================

// FindLoan returns the most recent loan record for the account in the
// given settlement status, or nil if there is none.
func (s *Store) FindLoan(ctx context.Context, id ledger.AccountID, status ledger.LoanStatus) (*ledger.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.queryRecords(ctx, `
		SELECT id, kind, account_id, amount, balance_after, counter_account, correlation_id, loan_status, created_at
		FROM transactions
		WHERE account_id = ? AND kind = 'loan' AND loan_status = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`,
		id, status)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// Records returns all records for an account, oldest first.
func (s *Store) Records(ctx context.Context, id ledger.AccountID) ([]ledger.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRecords(ctx, `
		SELECT id, kind, account_id, amount, balance_after, counter_account, correlation_id, loan_status, created_at
		FROM transactions
		WHERE account_id = ?
		ORDER BY created_at ASC, id ASC`,
		id)
}

// Record returns one record by id, or nil.
func (s *Store) Record(ctx context.Context, id ledger.RecordID) (*ledger.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.queryRecords(ctx, `
		SELECT id, kind, account_id, amount, balance_after, counter_account, correlation_id, loan_status, created_at
		FROM transactions WHERE id = ?`,
		id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]ledger.TransactionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []ledger.TransactionRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// =============================================================================
// SCANNING HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (ledger.Account, error) {
	var (
		account   ledger.Account
		balance   string
		createdAt string
	)
	if err := row.Scan(&account.ID, &account.Owner, &balance, &createdAt); err != nil {
		return account, err
	}

	m, err := ledger.ParseMoney(balance)
	if err != nil {
		return account, fmt.Errorf("corrupt balance for account %s: %w", account.ID, err)
	}
	account.Balance = m
	account.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return account, nil
}

func scanRecord(rows *sql.Rows) (ledger.TransactionRecord, error) {
	var (
		r              ledger.TransactionRecord
		amount         string
		balanceAfter   string
		counterAccount sql.NullString
		correlationID  sql.NullString
		loanStatus     sql.NullString
		createdAt      string
	)

	err := rows.Scan(
		&r.ID, &r.Kind, &r.AccountID, &amount, &balanceAfter,
		&counterAccount, &correlationID, &loanStatus, &createdAt,
	)
	if err != nil {
		return r, fmt.Errorf("failed to scan record: %w", err)
	}

	r.Amount = ledger.MustParseMoney(amount)
	r.BalanceAfter = ledger.MustParseMoney(balanceAfter)
	r.CounterAccount = ledger.AccountID(counterAccount.String)
	r.CorrelationID = ledger.CorrelationID(correlationID.String)
	r.LoanStatus = ledger.LoanStatus(loanStatus.String)
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return r, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ ledger.LoanRepository = (*Store)(nil)
