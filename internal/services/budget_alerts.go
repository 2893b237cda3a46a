package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// Budget alerts fire when current-month spending on the owner's default
// account reaches the threshold. The budget row is marked before dispatch,
// so an alert goes out at most once per calendar month even if dispatch
// fails (the failure is logged and dropped, never retried in-month).
const alertThresholdPercent = 80

type BudgetChecker struct {
	store    Store
	notifier Notifier
}

func NewBudgetChecker(store Store, notifier Notifier) *BudgetChecker {
	return &BudgetChecker{store: store, notifier: notifier}
}

// CheckAll evaluates every budget. Per-budget failures are logged and
// skipped. Returns the number of alerts dispatched.
func (c *BudgetChecker) CheckAll(ctx context.Context, now time.Time) (int, error) {
	budgets, err := c.store.ListBudgets(ctx)
	if err != nil {
		return 0, fmt.Errorf("list budgets: %w", err)
	}

	alerted := 0
	for _, budget := range budgets {
		sent, err := c.checkOne(ctx, budget, now)
		if err != nil {
			slog.ErrorContext(ctx, "Budget check failed",
				"budget_id", budget.ID,
				"owner_id", budget.OwnerID,
				"error", err)
			continue
		}
		if sent {
			alerted++
		}
	}

	slog.InfoContext(ctx, "Budget check complete",
		"budgets", len(budgets),
		"alerts", alerted)
	return alerted, nil
}

func (c *BudgetChecker) checkOne(ctx context.Context, budget core.Budget, now time.Time) (bool, error) {
	account, err := c.store.DefaultAccount(ctx, budget.OwnerID)
	if err != nil {
		// No default account means nothing to measure against.
		return false, nil
	}

	from, to := core.MonthRange(now)
	spent, err := c.store.ExpenseTotal(ctx, budget.OwnerID, account.ID, from, to)
	if err != nil {
		return false, fmt.Errorf("sum month expenses: %w", err)
	}

	used := core.PercentageUsed(spent, budget.Amount)
	if used.LessThan(decimal.NewFromInt(alertThresholdPercent)) {
		return false, nil
	}
	if core.SameMonth(budget.LastAlertSent, now) {
		return false, nil
	}

	// Mark first: the store only flips lastAlertSent if no alert has gone
	// out this month, so concurrent checks race safely.
	marked, err := c.store.MarkAlertSent(ctx, budget.ID, now)
	if err != nil {
		return false, fmt.Errorf("mark alert sent: %w", err)
	}
	if !marked {
		return false, nil
	}

	owner, err := c.store.Owner(ctx, budget.OwnerID)
	if err != nil {
		return false, fmt.Errorf("load owner: %w", err)
	}

	n := Notification{
		Recipient: owner.Email,
		Subject:   fmt.Sprintf("Budget Alert for %s", account.Name),
		Kind:      "budget-alert",
		Payload: map[string]any{
			"percentageUsed": used.Round(2).String(),
			"budgetAmount":   budget.Amount.String(),
			"totalExpenses":  spent.String(),
			"accountName":    account.Name,
		},
	}
	if err := c.notifier.Send(ctx, n); err != nil {
		// At-most-once: the month is already marked, the alert is dropped.
		slog.ErrorContext(ctx, "Budget alert dispatch failed",
			"budget_id", budget.ID,
			"recipient", owner.Email,
			"error", err)
		return false, nil
	}

	slog.InfoContext(ctx, "Budget alert sent",
		"budget_id", budget.ID,
		"account_id", account.ID,
		"percentage_used", used.Round(2).String())
	return true, nil
}
