package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/ledger/store"
)

func money(v int64) ledger.Money { return ledger.NewMoneyFromInt(v) }

func seedAccount(t *testing.T, m *store.Memory, id string, balance int64) {
	t.Helper()
	require.NoError(t, m.CreateAccount(context.Background(), ledger.Account{
		ID:      ledger.AccountID(id),
		Owner:   id,
		Balance: money(balance),
	}))
}

func loanRecord(id string, account string, status ledger.LoanStatus) ledger.TransactionRecord {
	return ledger.TransactionRecord{
		ID:         ledger.RecordID(id),
		Kind:       ledger.OpLoan,
		AccountID:  ledger.AccountID(account),
		Amount:     money(5_000),
		LoanStatus: status,
	}
}

func TestMemory_CreateAccount(t *testing.T) {
	m := store.NewMemory()
	seedAccount(t, m, "a", 100)

	// Duplicate ids are refused.
	err := m.CreateAccount(context.Background(), ledger.Account{ID: "a"})
	assert.ErrorIs(t, err, ledger.ErrAccountExists)

	// So are negative opening balances.
	err = m.CreateAccount(context.Background(), ledger.Account{ID: "b", Balance: money(-1)})
	assert.ErrorIs(t, err, ledger.ErrNegativeBalance)
}

func TestMemory_Get_Unknown(t *testing.T) {
	m := store.NewMemory()
	_, err := m.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestMemory_Commit_AllOrNothing(t *testing.T) {
	// GIVEN: One existing account
	// WHEN: Committing a set touching an existing and a missing account
	// THEN: Nothing is applied, not even the valid half

	m := store.NewMemory()
	seedAccount(t, m, "a", 1_000)

	err := m.Commit(context.Background(), ledger.CommitSet{
		Updates: []ledger.BalanceUpdate{
			{AccountID: "a", NewBalance: money(500)},
			{AccountID: "ghost", NewBalance: money(500)},
		},
		Records: []ledger.TransactionRecord{
			{ID: "r1", Kind: ledger.OpWithdrawal, AccountID: "a", Amount: money(500)},
		},
	})
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)

	account, getErr := m.Get(context.Background(), "a")
	require.NoError(t, getErr)
	assert.True(t, account.Balance.Equal(money(1_000)))

	records, recErr := m.Records(context.Background(), "a")
	require.NoError(t, recErr)
	assert.Empty(t, records)
}

func TestMemory_Commit_RejectsNegativeBalance(t *testing.T) {
	m := store.NewMemory()
	seedAccount(t, m, "a", 100)

	err := m.Commit(context.Background(), ledger.CommitSet{
		Updates: []ledger.BalanceUpdate{{AccountID: "a", NewBalance: money(-50)}},
	})
	assert.ErrorIs(t, err, ledger.ErrNegativeBalance)
}

func TestMemory_StatusChange_CompareAndSwap(t *testing.T) {
	m := store.NewMemory()
	seedAccount(t, m, "a", 0)

	require.NoError(t, m.Commit(context.Background(), ledger.CommitSet{
		Records: []ledger.TransactionRecord{loanRecord("loan-1", "a", ledger.LoanPending)},
	}))

	approve := ledger.CommitSet{StatusChanges: []ledger.LoanStatusChange{
		{RecordID: "loan-1", From: ledger.LoanPending, To: ledger.LoanApproved},
	}}
	require.NoError(t, m.Commit(context.Background(), approve))

	// The same edge a second time loses the swap.
	assert.ErrorIs(t, m.Commit(context.Background(), approve), ledger.ErrStatusConflict)

	// Unknown records conflict too.
	err := m.Commit(context.Background(), ledger.CommitSet{StatusChanges: []ledger.LoanStatusChange{
		{RecordID: "nope", From: ledger.LoanPending, To: ledger.LoanApproved},
	}})
	assert.ErrorIs(t, err, ledger.ErrStatusConflict)

	// Skipping the state machine conflicts as well.
	err = m.Commit(context.Background(), ledger.CommitSet{StatusChanges: []ledger.LoanStatusChange{
		{RecordID: "loan-1", From: ledger.LoanApproved, To: ledger.LoanDenied},
	}})
	assert.ErrorIs(t, err, ledger.ErrStatusConflict)
}

func TestMemory_FindLoan_ReturnsMostRecent(t *testing.T) {
	m := store.NewMemory()
	seedAccount(t, m, "a", 0)
	seedAccount(t, m, "b", 0)

	require.NoError(t, m.Commit(context.Background(), ledger.CommitSet{
		Records: []ledger.TransactionRecord{
			loanRecord("loan-1", "a", ledger.LoanApproved),
			loanRecord("loan-2", "b", ledger.LoanApproved),
			loanRecord("loan-3", "a", ledger.LoanApproved),
		},
	}))

	loan, err := m.FindLoan(context.Background(), "a", ledger.LoanApproved)
	require.NoError(t, err)
	require.NotNil(t, loan)
	assert.Equal(t, ledger.RecordID("loan-3"), loan.ID)

	// No pending loans anywhere: nil, no error.
	loan, err = m.FindLoan(context.Background(), "a", ledger.LoanPending)
	require.NoError(t, err)
	assert.Nil(t, loan)
}

func TestMemory_Records_FilteredByAccount(t *testing.T) {
	m := store.NewMemory()
	seedAccount(t, m, "a", 0)
	seedAccount(t, m, "b", 0)

	require.NoError(t, m.Commit(context.Background(), ledger.CommitSet{
		Records: []ledger.TransactionRecord{
			{ID: "r1", Kind: ledger.OpDeposit, AccountID: "a", Amount: money(100)},
			{ID: "r2", Kind: ledger.OpDeposit, AccountID: "b", Amount: money(100)},
			{ID: "r3", Kind: ledger.OpDeposit, AccountID: "a", Amount: money(200)},
		},
	}))

	records, err := m.Records(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, ledger.RecordID("r1"), records[0].ID)
	assert.Equal(t, ledger.RecordID("r3"), records[1].ID)
}
