package core

import "github.com/shopspring/decimal"

// MonthlyStats is the aggregate view over one owner's transactions for a
// calendar month. It is always recomputed from the ledger, never maintained
// as standing counters.
type MonthlyStats struct {
	TotalIncome      decimal.Decimal
	TotalExpenses    decimal.Decimal
	ByCategory       map[string]decimal.Decimal
	TransactionCount int
}

// ComputeMonthlyStats folds a month's transactions into totals and an
// expense-by-category breakdown. Pure; the caller supplies the rows.
func ComputeMonthlyStats(transactions []Transaction) MonthlyStats {
	stats := MonthlyStats{
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
		ByCategory:    make(map[string]decimal.Decimal),
	}
	for _, t := range transactions {
		stats.TransactionCount++
		if t.Kind == Expense {
			stats.TotalExpenses = stats.TotalExpenses.Add(t.Amount)
			stats.ByCategory[t.Category] = stats.ByCategory[t.Category].Add(t.Amount)
		} else {
			stats.TotalIncome = stats.TotalIncome.Add(t.Amount)
		}
	}
	return stats
}

// Net is income minus expenses.
func (s MonthlyStats) Net() decimal.Decimal {
	return s.TotalIncome.Sub(s.TotalExpenses)
}

// PercentageUsed is 100 * spent / budget, and 0 when the budget is zero so a
// missing cap never divides by zero.
func PercentageUsed(spent, budget decimal.Decimal) decimal.Decimal {
	if budget.IsZero() {
		return decimal.Zero
	}
	return spent.Mul(decimal.NewFromInt(100)).Div(budget)
}
