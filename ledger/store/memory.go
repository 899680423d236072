// Package store provides Repository implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/ledger-engine/ledger"
)

// =============================================================================
// MEMORY REPOSITORY - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	accounts map[ledger.AccountID]ledger.Account
	records  []ledger.TransactionRecord
	byID     map[ledger.RecordID]int // index into records
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[ledger.AccountID]ledger.Account),
		byID:     make(map[ledger.RecordID]int),
	}
}

// CreateAccount registers a new account. Returns ErrAccountExists if the
// id is taken.
func (m *Memory) CreateAccount(_ context.Context, account ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[account.ID]; ok {
		return ledger.ErrAccountExists
	}
	if account.Balance.IsNegative() {
		return ledger.ErrNegativeBalance
	}
	m.accounts[account.ID] = account
	return nil
}

func (m *Memory) Get(_ context.Context, id ledger.AccountID) (ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[id]
	if !ok {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return account, nil
}

func (m *Memory) Accounts(_ context.Context) ([]ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		result = append(result, account)
	}
	return result, nil
}

// Commit applies the whole set or none of it: every check runs before the
// first write, and all writes happen under one lock.
func (m *Memory) Commit(_ context.Context, set ledger.CommitSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate everything first (atomic check)
	for _, u := range set.Updates {
		if _, ok := m.accounts[u.AccountID]; !ok {
			return ledger.ErrAccountNotFound
		}
		if u.NewBalance.IsNegative() {
			return ledger.ErrNegativeBalance
		}
	}
	for _, c := range set.StatusChanges {
		i, ok := m.byID[c.RecordID]
		if !ok {
			return ledger.ErrStatusConflict
		}
		r := m.records[i]
		if r.Kind != ledger.OpLoan || r.LoanStatus != c.From || !ledger.ValidLoanTransition(c.From, c.To) {
			return ledger.ErrStatusConflict
		}
	}

	// Apply everything (atomic write)
	for _, u := range set.Updates {
		account := m.accounts[u.AccountID]
		account.Balance = u.NewBalance
		m.accounts[u.AccountID] = account
	}
	for _, r := range set.Records {
		m.byID[r.ID] = len(m.records)
		m.records = append(m.records, r)
	}
	for _, c := range set.StatusChanges {
		m.records[m.byID[c.RecordID]].LoanStatus = c.To
	}
	return nil
}

// FindLoan returns the most recent loan record for the account in the
// given settlement status, or nil if there is none.
func (m *Memory) FindLoan(_ context.Context, id ledger.AccountID, status ledger.LoanStatus) (*ledger.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if r.Kind == ledger.OpLoan && r.AccountID == id && r.LoanStatus == status {
			loan := r
			return &loan, nil
		}
	}
	return nil, nil
}

// Records returns all records for an account, oldest first.
func (m *Memory) Records(_ context.Context, id ledger.AccountID) ([]ledger.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.TransactionRecord
	for _, r := range m.records {
		if r.AccountID == id {
			result = append(result, r)
		}
	}
	return result, nil
}

// Record returns one record by id, or nil.
func (m *Memory) Record(_ context.Context, id ledger.RecordID) (*ledger.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	r := m.records[i]
	return &r, nil
}

var _ ledger.LoanRepository = (*Memory)(nil)
