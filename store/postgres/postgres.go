/*
Package postgres provides a PostgreSQL-backed implementation of the
repository interfaces.

Commit runs inside a serializable transaction, so concurrent commits
touching the same rows conflict instead of interleaving; callers treat
the resulting error as retryable. Schema setup is left to a migration
tool - see Schema for the expected tables.
*/
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/warp/ledger-engine/ledger"
)

// Schema is the DDL this store expects. Apply it with your migration
// tooling before first use.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	owner TEXT NOT NULL,
	balance NUMERIC(20, 4) NOT NULL CHECK (balance >= 0),
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	account_id TEXT NOT NULL REFERENCES accounts(id),
	amount NUMERIC(20, 4) NOT NULL CHECK (amount > 0),
	balance_after NUMERIC(20, 4) NOT NULL,
	counter_account TEXT,
	correlation_id TEXT,
	loan_status TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_account
	ON transactions(account_id, created_at);
CREATE INDEX IF NOT EXISTS idx_transactions_loans
	ON transactions(account_id, loan_status) WHERE kind = 'loan';
`

// Store implements ledger.LoanRepository using PostgreSQL.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects with the lib/pq driver and pings the server.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateAccount registers a new account.
func (s *Store) CreateAccount(ctx context.Context, account ledger.Account) error {
	if account.Balance.IsNegative() {
		return ledger.ErrNegativeBalance
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, owner, balance, created_at) VALUES ($1, $2, $3, $4)`,
		account.ID, account.Owner, account.Balance.String(), account.CreatedAt.UTC())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ledger.ErrAccountExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// Get returns a point-in-time snapshot of an account.
func (s *Store) Get(ctx context.Context, id ledger.AccountID) (ledger.Account, error) {
	var (
		account   ledger.Account
		balance   string
		createdAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner, balance, created_at FROM accounts WHERE id = $1`, id,
	).Scan(&account.ID, &account.Owner, &balance, &createdAt)
	if err == sql.ErrNoRows {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	if err != nil {
		return ledger.Account{}, fmt.Errorf("failed to get account: %w", err)
	}

	m, err := ledger.ParseMoney(balance)
	if err != nil {
		return ledger.Account{}, fmt.Errorf("corrupt balance for account %s: %w", id, err)
	}
	account.Balance = m
	account.CreatedAt = createdAt
	return account, nil
}

// Accounts returns all accounts ordered by creation time.
func (s *Store) Accounts(ctx context.Context) ([]ledger.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner, balance, created_at FROM accounts ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		var (
			a         ledger.Account
			balance   string
			createdAt time.Time
		)
		if err := rows.Scan(&a.ID, &a.Owner, &balance, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.Balance = ledger.MustParseMoney(balance)
		a.CreatedAt = createdAt
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Commit applies the whole set inside one serializable transaction.
func (s *Store) Commit(ctx context.Context, set ledger.CommitSet) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, u := range set.Updates {
		if u.NewBalance.IsNegative() {
			return ledger.ErrNegativeBalance
		}
		res, err := sqlTx.ExecContext(ctx,
			`UPDATE accounts SET balance = $1 WHERE id = $2`,
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
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			r.ID, r.Kind, r.AccountID,
			r.Amount.String(), r.BalanceAfter.String(),
			nullString(string(r.CounterAccount)),
			nullString(string(r.CorrelationID)),
			nullString(string(r.LoanStatus)),
			r.CreatedAt.UTC(),
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
			`UPDATE transactions SET loan_status = $1 WHERE id = $2 AND kind = 'loan' AND loan_status = $3`,
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

// FindLoan returns the most recent loan record for the account in the
// given settlement status, or nil if there is none.
func (s *Store) FindLoan(ctx context.Context, id ledger.AccountID, status ledger.LoanStatus) (*ledger.TransactionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, account_id, amount, balance_after, counter_account, correlation_id, loan_status, created_at
		FROM transactions
		WHERE account_id = $1 AND kind = 'loan' AND loan_status = $2
		ORDER BY created_at DESC, id DESC LIMIT 1`,
		id, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query loans: %w", err)
	}
	defer rows.Close()

	records, err := collectRecords(rows)
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, account_id, amount, balance_after, counter_account, correlation_id, loan_status, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at ASC, id ASC`,
		id)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func collectRecords(rows *sql.Rows) ([]ledger.TransactionRecord, error) {
	var records []ledger.TransactionRecord
	for rows.Next() {
		var (
			r              ledger.TransactionRecord
			amount         string
			balanceAfter   string
			counterAccount sql.NullString
			correlationID  sql.NullString
			loanStatus     sql.NullString
			createdAt      time.Time
		)
		err := rows.Scan(
			&r.ID, &r.Kind, &r.AccountID, &amount, &balanceAfter,
			&counterAccount, &correlationID, &loanStatus, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		r.Amount = ledger.MustParseMoney(amount)
		r.BalanceAfter = ledger.MustParseMoney(balanceAfter)
		r.CounterAccount = ledger.AccountID(counterAccount.String)
		r.CorrelationID = ledger.CorrelationID(correlationID.String)
		r.LoanStatus = ledger.LoanStatus(loanStatus.String)
		r.CreatedAt = createdAt
		records = append(records, r)
	}
	return records, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ ledger.LoanRepository = (*Store)(nil)
