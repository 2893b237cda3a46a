package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Expense TransactionKind = "EXPENSE"
	Income  TransactionKind = "INCOME"
)

const (
	Current AccountKind = "CURRENT"
	Savings AccountKind = "SAVINGS"
)

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
)

const (
	Daily   RecurringInterval = "DAILY"
	Weekly  RecurringInterval = "WEEKLY"
	Monthly RecurringInterval = "MONTHLY"
	Yearly  RecurringInterval = "YEARLY"
)

type (
	TransactionKind   string
	AccountKind       string
	TransactionStatus string
	RecurringInterval string

	// Owner is the identity every account, transaction and budget hangs off.
	// Credential handling lives outside the core; the api key is only the
	// lookup handle the HTTP layer resolves to an owner id.
	Owner struct {
		ID     string
		Email  string
		Name   string
		APIKey string
	}

	Account struct {
		ID        string
		OwnerID   string
		Name      string
		Kind      AccountKind
		Balance   decimal.Decimal
		IsDefault bool
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Transaction struct {
		ID                string
		AccountID         string
		OwnerID           string
		Kind              TransactionKind
		Amount            decimal.Decimal
		Date              time.Time
		Category          string
		Description       string
		Status            TransactionStatus
		IsRecurring       bool
		RecurringInterval RecurringInterval
		NextRecurringDate time.Time
		LastProcessed     time.Time
		CreatedAt         time.Time
		UpdatedAt         time.Time
	}

	Budget struct {
		ID            string
		OwnerID       string
		Amount        decimal.Decimal
		LastAlertSent time.Time
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}
)

func (k TransactionKind) Valid() bool { return k == Expense || k == Income }

func (k AccountKind) Valid() bool { return k == Current || k == Savings }

func (s TransactionStatus) Valid() bool {
	return s == StatusPending || s == StatusCompleted || s == StatusFailed
}

func (i RecurringInterval) Valid() bool {
	switch i {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: account name is required", ErrValidation)
	}
	if !a.Kind.Valid() {
		return fmt.Errorf("%w: invalid account kind %q", ErrValidation, a.Kind)
	}
	return nil
}

// Validate checks the ledger invariants on a single row: positive amount,
// known enums, and the recurrence pairing (isRecurring implies an interval
// and a computable next date, not recurring implies neither).
func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return fmt.Errorf("%w: invalid transaction kind %q", ErrValidation, t.Kind)
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	if strings.TrimSpace(t.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	if len(t.Description) > 200 {
		return fmt.Errorf("%w: description too long (max 200 characters)", ErrValidation)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, t.Status)
	}
	if t.IsRecurring {
		if !t.RecurringInterval.Valid() {
			return fmt.Errorf("%w: recurring transaction needs a valid interval", ErrValidation)
		}
		if t.NextRecurringDate.IsZero() {
			return fmt.Errorf("%w: recurring transaction needs a next recurring date", ErrValidation)
		}
	} else {
		if t.RecurringInterval != "" || !t.NextRecurringDate.IsZero() {
			return fmt.Errorf("%w: recurrence fields set on a non-recurring transaction", ErrValidation)
		}
	}
	return nil
}

// SignedContribution is the transaction's effect on its account balance:
// +amount for income, -amount for expense.
func (t Transaction) SignedContribution() decimal.Decimal {
	return SignedAmount(t.Kind, t.Amount)
}

func (b Budget) Validate() error {
	if b.Amount.IsNegative() {
		return fmt.Errorf("%w: budget amount cannot be negative", ErrValidation)
	}
	return nil
}
