package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tally/internal/core"
)

type dashboardJSON struct {
	Year             int               `json:"year"`
	Month            int               `json:"month"`
	TotalIncome      string            `json:"totalIncome"`
	TotalExpenses    string            `json:"totalExpenses"`
	Net              string            `json:"net"`
	ByCategory       map[string]string `json:"byCategory"`
	TransactionCount int               `json:"transactionCount"`
}

// handleDashboard serves the month's aggregated stats, memoized per owner and
// month until the next mutation.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	year, month := parseYearMonth(r)
	viewKey := fmt.Sprintf("dashboard:%04d-%02d", year, month)

	if payload, ok := s.views.Get(owner.ID, viewKey); ok {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
		return
	}

	from, to := core.MonthRange(time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC))
	transactions, err := s.store.TransactionsInRange(r.Context(), owner.ID, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats := core.ComputeMonthlyStats(transactions)

	byCategory := make(map[string]string, len(stats.ByCategory))
	for category, amount := range stats.ByCategory {
		byCategory[category] = amount.String()
	}
	out := dashboardJSON{
		Year:             year,
		Month:            month,
		TotalIncome:      stats.TotalIncome.String(),
		TotalExpenses:    stats.TotalExpenses.String(),
		Net:              stats.Net().String(),
		ByCategory:       byCategory,
		TransactionCount: stats.TransactionCount,
	}

	payload, err := json.Marshal(out)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.views.Set(owner.ID, viewKey, payload)
	slog.DebugContext(r.Context(), "Dashboard cached",
		"owner_id", owner.ID,
		"year", year,
		"month", month)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

type budgetJSON struct {
	Amount         string  `json:"amount"`
	CurrentSpent   string  `json:"currentSpent"`
	PercentageUsed string  `json:"percentageUsed"`
	LastAlertSent  *string `json:"lastAlertSent,omitempty"`
}

// budgetView renders the budget with this month's spend on the default
// account. No default account means nothing to measure against.
func (s *Server) budgetView(ctx context.Context, ownerID string, budget core.Budget) (budgetJSON, error) {
	out := budgetJSON{
		Amount:         budget.Amount.String(),
		CurrentSpent:   "0",
		PercentageUsed: "0",
		LastAlertSent:  formatTimePtr(budget.LastAlertSent),
	}

	account, err := s.store.DefaultAccount(ctx, ownerID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return out, nil
		}
		return budgetJSON{}, err
	}

	from, to := core.MonthRange(time.Now())
	spent, err := s.store.ExpenseTotal(ctx, ownerID, account.ID, from, to)
	if err != nil {
		return budgetJSON{}, err
	}
	out.CurrentSpent = spent.String()
	out.PercentageUsed = core.PercentageUsed(spent, budget.Amount).String()
	return out, nil
}

// handleGetBudget returns the budget with this month's spend on the default
// account. No budget yet is a zero budget, not an error.
func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)

	budget, err := s.store.Budget(r.Context(), owner.ID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		writeError(w, r, err)
		return
	}

	out, err := s.budgetView(r.Context(), owner.ID, budget)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount string `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	owner := ownerFrom(r)
	budget := core.Budget{
		ID:      uuid.NewString(),
		OwnerID: owner.ID,
		Amount:  amount,
	}
	if existing, err := s.store.Budget(r.Context(), owner.ID); err == nil {
		budget.ID = existing.ID
	}
	if err := budget.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.store.UpsertBudget(r.Context(), budget); err != nil {
		writeError(w, r, err)
		return
	}
	s.views.Invalidate(owner.ID)

	out, err := s.budgetView(r.Context(), owner.ID, budget)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
