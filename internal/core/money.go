// Package core holds the domain model of the ledger: entities, money
// handling, recurrence arithmetic and the monthly aggregation fold. It has
// no storage or transport dependencies and every function here is pure.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a decimal string into an exact amount. Both dot and
// comma decimal separators are accepted. The result must be strictly
// positive; signs are never part of an amount, they are implied by the
// transaction kind.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: amount is required", ErrValidation)
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, fmt.Errorf("%w: amount must not carry a sign", ErrValidation)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid amount %q", ErrValidation, s)
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount enforces the amount invariant: strictly positive.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	return nil
}

// SignedAmount maps a kind and amount to the balance delta it causes.
func SignedAmount(kind TransactionKind, amount decimal.Decimal) decimal.Decimal {
	if kind == Expense {
		return amount.Neg()
	}
	return amount
}
