package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/store/sqlite"
)

func money(v int64) ledger.Money { return ledger.NewMoneyFromInt(v) }

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedAccount(t *testing.T, s *sqlite.Store, id string, balance int64) {
	t.Helper()
	require.NoError(t, s.CreateAccount(context.Background(), ledger.Account{
		ID:        ledger.AccountID(id),
		Owner:     id + "-owner",
		Balance:   money(balance),
		CreatedAt: time.Now().UTC(),
	}))
}

func TestStore_CreateAndGetAccount(t *testing.T) {
	s := newTestStore(t)
	seedAccount(t, s, "a", 1_000)

	account, err := s.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "a-owner", account.Owner)
	assert.True(t, account.Balance.Equal(money(1_000)))
}

func TestStore_CreateAccount_Duplicate(t *testing.T) {
	s := newTestStore(t)
	seedAccount(t, s, "a", 0)

	err := s.CreateAccount(context.Background(), ledger.Account{ID: "a", Owner: "other"})
	assert.ErrorIs(t, err, ledger.ErrAccountExists)
}

func TestStore_Get_Unknown(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestStore_Commit_RoundTripsRecordFields(t *testing.T) {
	// Every persisted column must survive a write-read cycle untouched,
	// including the optional transfer and loan columns.

	s := newTestStore(t)
	seedAccount(t, s, "a", 1_000)

	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	record := ledger.TransactionRecord{
		ID:             "rec-1",
		Kind:           ledger.OpTransferOut,
		AccountID:      "a",
		Amount:         money(300),
		BalanceAfter:   money(700),
		CounterAccount: "b",
		CorrelationID:  "corr-1",
		CreatedAt:      created,
	}
	require.NoError(t, s.Commit(context.Background(), ledger.CommitSet{
		Updates: []ledger.BalanceUpdate{{AccountID: "a", NewBalance: money(700)}},
		Records: []ledger.TransactionRecord{record},
	}))

	got, err := s.Record(context.Background(), "rec-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, record.Kind, got.Kind)
	assert.Equal(t, record.AccountID, got.AccountID)
	assert.True(t, got.Amount.Equal(record.Amount))
	assert.True(t, got.BalanceAfter.Equal(record.BalanceAfter))
	assert.Equal(t, record.CounterAccount, got.CounterAccount)
	assert.Equal(t, record.CorrelationID, got.CorrelationID)
	assert.Equal(t, ledger.LoanStatus(""), got.LoanStatus)
	assert.True(t, got.CreatedAt.Equal(created))

	account, err := s.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(money(700)))
}

func TestStore_Commit_UnknownAccountRollsBackEverything(t *testing.T) {
	s := newTestStore(t)
	seedAccount(t, s, "a", 1_000)

	err := s.Commit(context.Background(), ledger.CommitSet{
		Updates: []ledger.BalanceUpdate{
			{AccountID: "a", NewBalance: money(700)},
			{AccountID: "ghost", NewBalance: money(300)},
		},
		Records: []ledger.TransactionRecord{
			{ID: "rec-1", Kind: ledger.OpTransferOut, AccountID: "a", Amount: money(300)},
		},
	})
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)

	// The transaction rolled back: balance and history are untouched.
	account, getErr := s.Get(context.Background(), "a")
	require.NoError(t, getErr)
	assert.True(t, account.Balance.Equal(money(1_000)))

	got, recErr := s.Record(context.Background(), "rec-1")
	require.NoError(t, recErr)
	assert.Nil(t, got)
}

func TestStore_LoanStatus_CompareAndSwap(t *testing.T) {
	s := newTestStore(t)
	seedAccount(t, s, "a", 0)

	require.NoError(t, s.Commit(context.Background(), ledger.CommitSet{
		Records: []ledger.TransactionRecord{{
			ID:         "loan-1",
			Kind:       ledger.OpLoan,
			AccountID:  "a",
			Amount:     money(5_000),
			LoanStatus: ledger.LoanPending,
			CreatedAt:  time.Now().UTC(),
		}},
	}))

	approve := ledger.CommitSet{StatusChanges: []ledger.LoanStatusChange{
		{RecordID: "loan-1", From: ledger.LoanPending, To: ledger.LoanApproved},
	}}
	require.NoError(t, s.Commit(context.Background(), approve))
	assert.ErrorIs(t, s.Commit(context.Background(), approve), ledger.ErrStatusConflict)

	loan, err := s.FindLoan(context.Background(), "a", ledger.LoanApproved)
	require.NoError(t, err)
	require.NotNil(t, loan)
	assert.Equal(t, ledger.RecordID("loan-1"), loan.ID)
}

func TestStore_Records_OrderedByInsertion(t *testing.T) {
	s := newTestStore(t)
	seedAccount(t, s, "a", 0)

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, s.Commit(context.Background(), ledger.CommitSet{
			Records: []ledger.TransactionRecord{{
				ID:        ledger.RecordID(id),
				Kind:      ledger.OpDeposit,
				AccountID: "a",
				Amount:    money(100),
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			}},
		}))
	}

	records, err := s.Records(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, ledger.RecordID("r1"), records[0].ID)
	assert.Equal(t, ledger.RecordID("r3"), records[2].ID)
}
