/*
handlers.go - HTTP handlers for the ledger engine

PURPOSE:
  Exposes the ledger engine via REST. Handles HTTP request/response and
  JSON shapes; every balance-affecting call goes through the engine,
  never straight to the store.

ENDPOINTS:
  Accounts:
    GET    /api/accounts                      List accounts
    POST   /api/accounts                      Open an account
    GET    /api/accounts/{id}                 Account with current balance
    GET    /api/accounts/{id}/transactions    Transaction history

  Operations:
    POST   /api/accounts/{id}/deposit         {"amount": "250"}
    POST   /api/accounts/{id}/withdraw        {"amount": "600"}
    POST   /api/accounts/{id}/transfer        {"amount": "50", "to": "acct-2"}
    POST   /api/accounts/{id}/loans           {"amount": "5000"}
    POST   /api/accounts/{id}/loans/repay     {"amount": "5000"}

  Loan settlement:
    POST   /api/loans/{recordID}/approve
    POST   /api/loans/{recordID}/deny

ERROR HANDLING:
  - 400: Validation rejections (reason shown verbatim) and bad input
  - 404: Unknown account
  - 409: Loan status conflict
  - 503: Repository failure (generic "try again", no internal detail)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/ledger-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is what the API needs beyond the engine: account management and
// record queries. Both concrete stores satisfy it.
type Store interface {
	ledger.LoanRepository
	CreateAccount(ctx context.Context, account ledger.Account) error
	Accounts(ctx context.Context) ([]ledger.Account, error)
	Records(ctx context.Context, id ledger.AccountID) ([]ledger.TransactionRecord, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  Store
	Engine *ledger.Engine
}

func NewHandler(store Store, engine *ledger.Engine) *Handler {
	return &Handler{Store: store, Engine: engine}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns all accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Store.Accounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list accounts", err)
		return
	}

	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAccount opens a new account with an optional opening balance.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Owner == "" {
		writeError(w, http.StatusBadRequest, "owner is required", nil)
		return
	}

	balance := ledger.NewMoneyFromInt(0)
	if req.Balance != "" {
		m, err := ledger.ParseMoney(req.Balance)
		if err != nil || m.IsNegative() {
			writeError(w, http.StatusBadRequest, "invalid opening balance", nil)
			return
		}
		balance = m
	}

	id := ledger.AccountID(req.ID)
	if id == "" {
		id = ledger.AccountID(ledger.NewRecordID())
	}

	account := ledger.Account{
		ID:        id,
		Owner:     req.Owner,
		Balance:   balance,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.CreateAccount(r.Context(), account); err != nil {
		if errors.Is(err, ledger.ErrAccountExists) {
			writeError(w, http.StatusConflict, "account already exists", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create account", err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountDTO(account))
}

// GetAccount returns one account with its current balance.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	account, err := h.Store.Get(r.Context(), id)
	if err != nil {
		if ledger.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "account not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get account", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(account))
}

// GetTransactions returns an account's transaction history, oldest first.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	if _, err := h.Store.Get(r.Context(), id); err != nil {
		if ledger.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "account not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get account", err)
		return
	}

	records, err := h.Store.Records(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list transactions", err)
		return
	}

	dtos := make([]RecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toRecordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// OPERATION HANDLERS
// =============================================================================

// Deposit handles POST /api/accounts/{id}/deposit.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.executeAmount(w, r, ledger.OpDeposit)
}

// Withdraw handles POST /api/accounts/{id}/withdraw.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.executeAmount(w, r, ledger.OpWithdrawal)
}

// RequestLoan handles POST /api/accounts/{id}/loans.
func (h *Handler) RequestLoan(w http.ResponseWriter, r *http.Request) {
	h.executeAmount(w, r, ledger.OpLoan)
}

// RepayLoan handles POST /api/accounts/{id}/loans/repay.
func (h *Handler) RepayLoan(w http.ResponseWriter, r *http.Request) {
	h.executeAmount(w, r, ledger.OpLoanPaid)
}

func (h *Handler) executeAmount(w http.ResponseWriter, r *http.Request, kind ledger.OperationKind) {
	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	amount, err := ledger.ParseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount", nil)
		return
	}

	result, err := h.Engine.Execute(r.Context(), ledger.Request{
		Kind:      kind,
		Amount:    amount,
		AccountID: ledger.AccountID(chi.URLParam(r, "id")),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResultDTO(result))
}

// Transfer handles POST /api/accounts/{id}/transfer.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	amount, err := ledger.ParseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount", nil)
		return
	}

	result, err := h.Engine.Execute(r.Context(), ledger.Request{
		Kind:           ledger.OpTransfer,
		Amount:         amount,
		AccountID:      ledger.AccountID(chi.URLParam(r, "id")),
		CounterAccount: ledger.AccountID(req.To),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResultDTO(result))
}

// =============================================================================
// LOAN SETTLEMENT HANDLERS
// =============================================================================

// ApproveLoan handles POST /api/loans/{recordID}/approve.
func (h *Handler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	h.settleLoan(w, r, h.Engine.ApproveLoan)
}

// DenyLoan handles POST /api/loans/{recordID}/deny.
func (h *Handler) DenyLoan(w http.ResponseWriter, r *http.Request) {
	h.settleLoan(w, r, h.Engine.DenyLoan)
}

func (h *Handler) settleLoan(w http.ResponseWriter, r *http.Request, transition func(context.Context, ledger.RecordID) error) {
	id := ledger.RecordID(chi.URLParam(r, "recordID"))
	if err := transition(r.Context(), id); err != nil {
		if errors.Is(err, ledger.ErrStatusConflict) {
			writeError(w, http.StatusConflict, "loan is not in a state allowing this transition", nil)
			return
		}
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// JSON HELPERS
// =============================================================================

func toAccountDTO(a ledger.Account) AccountDTO {
	return AccountDTO{
		ID:        string(a.ID),
		Owner:     a.Owner,
		Balance:   a.Balance.String(),
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
}

func toRecordDTO(r ledger.TransactionRecord) RecordDTO {
	return RecordDTO{
		ID:             string(r.ID),
		Kind:           string(r.Kind),
		AccountID:      string(r.AccountID),
		Amount:         r.Amount.String(),
		BalanceAfter:   r.BalanceAfter.String(),
		CounterAccount: string(r.CounterAccount),
		CorrelationID:  string(r.CorrelationID),
		LoanStatus:     string(r.LoanStatus),
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
	}
}

func toResultDTO(result *ledger.Result) ResultDTO {
	dto := ResultDTO{Records: make([]RecordDTO, len(result.Records))}
	for i, rec := range result.Records {
		dto.Records[i] = toRecordDTO(rec)
	}
	return dto
}

// writeEngineError maps engine errors to HTTP. Rejection reasons surface
// verbatim; repository failures stay generic.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsRejection(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, "account not found", nil)
	case ledger.IsRetryable(err):
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable, please try again", nil)
	default:
		writeError(w, http.StatusInternalServerError, "operation failed", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
