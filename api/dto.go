/*
dto.go - JSON request/response shapes for the HTTP API

Amounts travel as decimal strings to keep fixed-precision values exact in
JSON.
*/
package api

// =============================================================================
// REQUESTS
// =============================================================================

type CreateAccountRequest struct {
	ID      string `json:"id,omitempty"` // generated when empty
	Owner   string `json:"owner"`
	Balance string `json:"balance,omitempty"` // opening balance, defaults to 0
}

type AmountRequest struct {
	Amount string `json:"amount"`
}

type TransferRequest struct {
	Amount string `json:"amount"`
	To     string `json:"to"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type AccountDTO struct {
	ID        string `json:"id"`
	Owner     string `json:"owner"`
	Balance   string `json:"balance"`
	CreatedAt string `json:"created_at"`
}

type RecordDTO struct {
	ID             string `json:"id"`
	Kind           string `json:"kind"`
	AccountID      string `json:"account_id"`
	Amount         string `json:"amount"`
	BalanceAfter   string `json:"balance_after"`
	CounterAccount string `json:"counter_account,omitempty"`
	CorrelationID  string `json:"correlation_id,omitempty"`
	LoanStatus     string `json:"loan_status,omitempty"`
	CreatedAt      string `json:"created_at"`
}

type ResultDTO struct {
	Records []RecordDTO `json:"records"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
