package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tally/internal/core"
)

// MonthlyReporter sends every owner a report of the previous calendar month.
// The report log dedups against repeated cron firings: at most one report
// per owner per month.
type MonthlyReporter struct {
	store    Store
	notifier Notifier
	insights InsightGenerator
}

func NewMonthlyReporter(store Store, notifier Notifier, insights InsightGenerator) *MonthlyReporter {
	return &MonthlyReporter{store: store, notifier: notifier, insights: insights}
}

// Run generates and dispatches last month's report for every owner that has
// not received one yet. Per-owner failures are logged and skipped. Returns
// the number of reports dispatched.
func (r *MonthlyReporter) Run(ctx context.Context, now time.Time) (int, error) {
	owners, err := r.store.ListOwners(ctx)
	if err != nil {
		return 0, fmt.Errorf("list owners: %w", err)
	}

	// Step back through the first of the month: AddDate(0, -1, 0) on a 29th-31st
	// can normalize forward into the current month and report it early.
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	from, to := core.MonthRange(firstOfMonth.AddDate(0, 0, -1))
	monthKey := from.Format("2006-01")
	monthName := from.Format("January")

	sent := 0
	for _, owner := range owners {
		ok, err := r.reportOne(ctx, owner, from, to, monthKey, monthName, now)
		if err != nil {
			slog.ErrorContext(ctx, "Monthly report failed",
				"owner_id", owner.ID,
				"month", monthKey,
				"error", err)
			continue
		}
		if ok {
			sent++
		}
	}

	slog.InfoContext(ctx, "Monthly report run complete",
		"owners", len(owners),
		"reports", sent,
		"month", monthKey)
	return sent, nil
}

func (r *MonthlyReporter) reportOne(ctx context.Context, owner core.Owner, from, to time.Time, monthKey, monthName string, now time.Time) (bool, error) {
	transactions, err := r.store.TransactionsInRange(ctx, owner.ID, from, to)
	if err != nil {
		return false, fmt.Errorf("load month transactions: %w", err)
	}
	stats := core.ComputeMonthlyStats(transactions)

	// Mark only once the month's data is in hand: a failed read above retries
	// on the next tick, while the CAS here keeps repeated runs to one
	// dispatch. Insight generation never fails hard, it only falls back.
	marked, err := r.store.MarkReportSent(ctx, owner.ID, monthKey, now)
	if err != nil {
		return false, fmt.Errorf("mark report sent: %w", err)
	}
	if !marked {
		return false, nil
	}

	insights := fallbackInsights()
	if r.insights != nil {
		generated, err := r.insights.Insights(ctx, stats, monthName)
		if err != nil || len(generated) == 0 {
			slog.WarnContext(ctx, "Insight generation failed, using fallback",
				"owner_id", owner.ID,
				"error", err)
		} else {
			insights = generated
		}
	}

	byCategory := make(map[string]string, len(stats.ByCategory))
	for category, amount := range stats.ByCategory {
		byCategory[category] = amount.String()
	}

	n := Notification{
		Recipient: owner.Email,
		Subject:   fmt.Sprintf("Your Monthly Financial Report - %s", monthName),
		Kind:      "monthly-report",
		Payload: map[string]any{
			"month":            monthName,
			"totalIncome":      stats.TotalIncome.String(),
			"totalExpenses":    stats.TotalExpenses.String(),
			"net":              stats.Net().String(),
			"byCategory":       byCategory,
			"transactionCount": stats.TransactionCount,
			"insights":         insights,
		},
	}

	if err := r.notifier.Send(ctx, n); err != nil {
		// The month stays marked; reports follow the same at-most-once
		// behavior as budget alerts.
		slog.ErrorContext(ctx, "Monthly report dispatch failed",
			"owner_id", owner.ID,
			"recipient", owner.Email,
			"error", err)
		return false, nil
	}
	return true, nil
}

func fallbackInsights() []string {
	return []string{
		"Your expenses are high in one category - review and cut back.",
		"Set a budget to improve savings.",
		"Track recurring costs for better planning.",
	}
}
