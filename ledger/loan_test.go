package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/ledger/store"
)

func TestValidLoanTransition(t *testing.T) {
	tests := []struct {
		from, to ledger.LoanStatus
		want     bool
	}{
		{ledger.LoanPending, ledger.LoanApproved, true},
		{ledger.LoanPending, ledger.LoanDenied, true},
		{ledger.LoanApproved, ledger.LoanRepaid, true},
		{ledger.LoanPending, ledger.LoanRepaid, false},
		{ledger.LoanApproved, ledger.LoanDenied, false},
		{ledger.LoanApproved, ledger.LoanApproved, false},
		{ledger.LoanDenied, ledger.LoanApproved, false},
		{ledger.LoanRepaid, ledger.LoanApproved, false},
		{ledger.LoanRepaid, ledger.LoanRepaid, false},
	}

	for _, tt := range tests {
		if got := ledger.ValidLoanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("ValidLoanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestLoanFlow_RequestApproveRepay(t *testing.T) {
	// GIVEN: An account with 10000 and a requested loan of 5000
	// WHEN: The loan is approved and then repaid
	// THEN: The balance drops by the loan amount on repayment and the
	//       record walks pending -> approved -> repaid

	engine, repo, _ := newTestEngine(t)
	mustCreate(t, repo, "a", 10_000)

	result, err := execute(t, engine, ledger.OpLoan, 5_000, "a")
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	loan := result.Records[0]
	assert.Equal(t, ledger.OpLoan, loan.Kind)
	assert.Equal(t, ledger.LoanPending, loan.LoanStatus)

	// A pending request does not move money.
	assert.True(t, balanceOf(t, repo, "a").Equal(money(10_000)))

	require.NoError(t, engine.ApproveLoan(context.Background(), loan.ID))
	stored, err := repo.Record(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.LoanApproved, stored.LoanStatus)

	repay, err := execute(t, engine, ledger.OpLoanPaid, 5_000, "a")
	require.NoError(t, err)
	assert.True(t, repay.Records[0].BalanceAfter.Equal(money(5_000)))
	assert.True(t, balanceOf(t, repo, "a").Equal(money(5_000)))

	stored, err = repo.Record(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.LoanRepaid, stored.LoanStatus)
}

func TestLoanFlow_ApproveTwice_Conflicts(t *testing.T) {
	engine, repo, _ := newTestEngine(t)
	mustCreate(t, repo, "a", 0)

	result, err := execute(t, engine, ledger.OpLoan, 5_000, "a")
	require.NoError(t, err)
	loanID := result.Records[0].ID

	require.NoError(t, engine.ApproveLoan(context.Background(), loanID))

	err = engine.ApproveLoan(context.Background(), loanID)
	assert.ErrorIs(t, err, ledger.ErrStatusConflict)
}

func TestLoanFlow_Deny(t *testing.T) {
	engine, repo, _ := newTestEngine(t)
	mustCreate(t, repo, "a", 0)

	result, err := execute(t, engine, ledger.OpLoan, 5_000, "a")
	require.NoError(t, err)
	loanID := result.Records[0].ID

	require.NoError(t, engine.DenyLoan(context.Background(), loanID))

	stored, err := repo.Record(context.Background(), loanID)
	require.NoError(t, err)
	assert.Equal(t, ledger.LoanDenied, stored.LoanStatus)

	// A denied loan can never be approved afterwards.
	assert.ErrorIs(t, engine.ApproveLoan(context.Background(), loanID), ledger.ErrStatusConflict)

	// Nor repaid.
	_, err = execute(t, engine, ledger.OpLoanPaid, 5_000, "a")
	assert.True(t, ledger.IsRejection(err))
}

func TestLoanFlow_RepayWithoutApprovedLoan(t *testing.T) {
	engine, repo, _ := newTestEngine(t)
	mustCreate(t, repo, "a", 10_000)

	_, err := execute(t, engine, ledger.OpLoanPaid, 5_000, "a")
	require.Error(t, err)
	assert.True(t, ledger.IsRejection(err))
	assert.Contains(t, err.Error(), "no approved loan")
	assert.True(t, balanceOf(t, repo, "a").Equal(money(10_000)))
}

func TestLoanFlow_RepayExceedingBalance(t *testing.T) {
	engine, repo, _ := newTestEngine(t)
	mustCreate(t, repo, "a", 1_000)

	result, err := execute(t, engine, ledger.OpLoan, 5_000, "a")
	require.NoError(t, err)
	require.NoError(t, engine.ApproveLoan(context.Background(), result.Records[0].ID))

	_, err = execute(t, engine, ledger.OpLoanPaid, 5_000, "a")
	assert.True(t, ledger.IsRejection(err))
	assert.True(t, balanceOf(t, repo, "a").Equal(money(1_000)))
}

func TestLoanFlow_RepayRequiresLoanRepository(t *testing.T) {
	// A repository without loan lookup cannot serve repayments.
	memory := store.NewMemory()
	mustCreate(t, memory, "a", 10_000)
	engine := ledger.NewEngine(plainRepo{memory})

	_, err := engine.Execute(context.Background(), ledger.Request{
		Kind:      ledger.OpLoanPaid,
		Amount:    money(100),
		AccountID: "a",
	})
	assert.ErrorIs(t, err, ledger.ErrLoanRepositoryRequired)
}

// plainRepo hides the loan lookup of the memory store.
type plainRepo struct {
	inner *store.Memory
}

func (p plainRepo) Get(ctx context.Context, id ledger.AccountID) (ledger.Account, error) {
	return p.inner.Get(ctx, id)
}

func (p plainRepo) Commit(ctx context.Context, set ledger.CommitSet) error {
	return p.inner.Commit(ctx, set)
}
