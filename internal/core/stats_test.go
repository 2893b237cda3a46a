package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeMonthlyStats(t *testing.T) {
	transactions := []Transaction{
		{Kind: Income, Amount: amt("2500"), Category: "salary"},
		{Kind: Expense, Amount: amt("800.50"), Category: "housing"},
		{Kind: Expense, Amount: amt("120.25"), Category: "groceries"},
		{Kind: Expense, Amount: amt("79.75"), Category: "groceries"},
	}

	stats := ComputeMonthlyStats(transactions)

	if !stats.TotalIncome.Equal(amt("2500")) {
		t.Errorf("TotalIncome = %s, want 2500", stats.TotalIncome)
	}
	if !stats.TotalExpenses.Equal(amt("1000.50")) {
		t.Errorf("TotalExpenses = %s, want 1000.50", stats.TotalExpenses)
	}
	if !stats.Net().Equal(amt("1499.50")) {
		t.Errorf("Net = %s, want 1499.50", stats.Net())
	}
	if stats.TransactionCount != 4 {
		t.Errorf("TransactionCount = %d, want 4", stats.TransactionCount)
	}
	if got := stats.ByCategory["groceries"]; !got.Equal(amt("200")) {
		t.Errorf("groceries = %s, want 200", got)
	}
	if got := stats.ByCategory["housing"]; !got.Equal(amt("800.50")) {
		t.Errorf("housing = %s, want 800.50", got)
	}
	if _, ok := stats.ByCategory["salary"]; ok {
		t.Error("income categories must not appear in the expense breakdown")
	}
}

func TestComputeMonthlyStatsEmpty(t *testing.T) {
	stats := ComputeMonthlyStats(nil)
	if !stats.TotalIncome.IsZero() || !stats.TotalExpenses.IsZero() || stats.TransactionCount != 0 {
		t.Errorf("empty fold = %+v, want zeros", stats)
	}
}

func TestPercentageUsed(t *testing.T) {
	tests := []struct {
		name          string
		spent, budget string
		want          string
	}{
		{name: "under", spent: "400", budget: "1000", want: "40"},
		{name: "at threshold", spent: "800", budget: "1000", want: "80"},
		{name: "over budget", spent: "1500", budget: "1000", want: "150"},
		{name: "zero budget yields zero", spent: "500", budget: "0", want: "0"},
		{name: "nothing spent", spent: "0", budget: "1000", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PercentageUsed(amt(tt.spent), amt(tt.budget))
			if !got.Equal(amt(tt.want)) {
				t.Errorf("PercentageUsed(%s, %s) = %s, want %s", tt.spent, tt.budget, got, tt.want)
			}
		})
	}
}
