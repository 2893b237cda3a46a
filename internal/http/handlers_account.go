package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/services"
)

type accountJSON struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Balance   string `json:"balance"`
	IsDefault bool   `json:"isDefault"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toAccountJSON(a core.Account) accountJSON {
	return accountJSON{
		ID:        a.ID,
		Name:      a.Name,
		Kind:      string(a.Kind),
		Balance:   a.Balance.String(),
		IsDefault: a.IsDefault,
		CreatedAt: formatTime(a.CreatedAt),
		UpdatedAt: formatTime(a.UpdatedAt),
	}
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		Kind      string `json:"kind"`
		Balance   string `json:"balance"`
		IsDefault bool   `json:"isDefault"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	in := services.CreateAccountInput{
		Name:      sanitizeInput(req.Name),
		Kind:      core.AccountKind(req.Kind),
		IsDefault: req.IsDefault,
	}
	if req.Balance != "" {
		// Opening balances may be zero, so this is looser than ParseAmount.
		balance, err := decimal.NewFromString(strings.ReplaceAll(req.Balance, ",", "."))
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid opening balance %q", core.ErrValidation, req.Balance))
			return
		}
		in.Balance = balance
	}

	account, err := s.accounts.Create(r.Context(), ownerFrom(r).ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountJSON(account))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.List(r.Context(), ownerFrom(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]accountJSON, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountJSON(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, transactions, err := s.accounts.GetWithTransactions(r.Context(), ownerFrom(r).ID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := struct {
		accountJSON
		Transactions []transactionJSON `json:"transactions"`
	}{accountJSON: toAccountJSON(account), Transactions: make([]transactionJSON, 0, len(transactions))}
	for _, t := range transactions {
		out.Transactions = append(out.Transactions, toTransactionJSON(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSetDefaultAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.accounts.SetDefault(r.Context(), ownerFrom(r).ID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountJSON(account))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.Delete(r.Context(), ownerFrom(r).ID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
