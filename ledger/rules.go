/*
rules.go - Per-operation validation rules

PURPOSE:
  One pure predicate per operation kind. Each rule takes the requested
  amount and the account snapshot(s) it needs and returns nil (accept) or
  a *Rejection carrying a human-readable reason. Rules have no side
  effects and no collaborator dependencies, so they are unit-testable
  without a repository or notifier.

RULES BY KIND:
  Deposit:    amount >= 100 (minimum deposit). No upper bound.
  Withdrawal: 500 <= amount <= 20000, and amount <= balance. The
              insufficient-funds reason reports the current balance.
  Loan:       amount > 0. Approval happens elsewhere; the engine only
              records the request.
  LoanPaid:   requires an approved, unrepaid loan; behaves like a
              withdrawal without the teller limits.
  Transfer:   amount > 0, amount <= sender balance (reason reports the
              balance), and the recipient must resolve.

The limits are fixed bank policy, not per-account configuration.
*/
package ledger

// Teller limits applied by the validation rules.
var (
	MinDeposit    = NewMoneyFromInt(100)
	MinWithdrawal = NewMoneyFromInt(500)
	MaxWithdrawal = NewMoneyFromInt(20000)
)

// =============================================================================
// VALIDATION RULES - nil means accept
// =============================================================================

// ValidateDeposit rejects deposits below the minimum.
func ValidateDeposit(amount Money, _ Account) *Rejection {
	if amount.LessThan(MinDeposit) {
		return rejectf("you need to deposit at least %s", MinDeposit)
	}
	return nil
}

// ValidateWithdrawal rejects withdrawals outside the teller limits or
// exceeding the account balance.
func ValidateWithdrawal(amount Money, account Account) *Rejection {
	if amount.LessThan(MinWithdrawal) {
		return rejectf("you can withdraw at least %s", MinWithdrawal)
	}
	if amount.GreaterThan(MaxWithdrawal) {
		return rejectf("you can withdraw at most %s", MaxWithdrawal)
	}
	if amount.GreaterThan(account.Balance) {
		return rejectf("you have %s in your account, you can not withdraw more than your account balance", account.Balance)
	}
	return nil
}

// ValidateLoan accepts any positive amount. The approval workflow is
// external; this engine only records the request.
func ValidateLoan(amount Money, _ Account) *Rejection {
	if !amount.IsPositive() {
		return rejectf("amount must be greater than 0")
	}
	return nil
}

// ValidateLoanPayment rejects repayments without an approved loan, or
// beyond the account balance. loan is the approved loan record for the
// account, or nil if there is none.
func ValidateLoanPayment(amount Money, account Account, loan *TransactionRecord) *Rejection {
	if !amount.IsPositive() {
		return rejectf("amount must be greater than 0")
	}
	if loan == nil || loan.LoanStatus != LoanApproved {
		return rejectf("no approved loan on this account")
	}
	if amount.GreaterThan(account.Balance) {
		return rejectf("insufficient funds, your balance is %s", account.Balance)
	}
	return nil
}

// ValidateTransfer rejects non-positive amounts, amounts beyond the sender
// balance, and unresolved recipients. receiver is nil when the counter
// account id did not resolve.
func ValidateTransfer(amount Money, sender Account, receiver *Account) *Rejection {
	if !amount.IsPositive() {
		return rejectf("amount must be greater than 0")
	}
	if amount.GreaterThan(sender.Balance) {
		return rejectf("insufficient funds, your balance is %s", sender.Balance)
	}
	if receiver == nil {
		return rejectf("recipient account not found")
	}
	return nil
}
