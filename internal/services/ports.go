// Package services holds the business logic of the ledger: the mutation
// engine, account lifecycle, the recurrence processor and the budget/report
// engines. Storage and collaborators are consumed through the narrow ports
// below.
package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// TransactionFilter narrows a ledger listing. Zero fields mean "all".
type TransactionFilter struct {
	AccountID string
	Year      int
	Month     int
}

// Notification is the payload handed to the notification collaborator.
type Notification struct {
	Recipient string         `json:"recipient"`
	Subject   string         `json:"subject"`
	Kind      string         `json:"kind"`
	Payload   map[string]any `json:"payload"`
}

// Receipt carries the structured fields extracted from a receipt image.
type Receipt struct {
	Amount       decimal.Decimal
	Date         time.Time
	Description  string
	Category     string
	MerchantName string
}

// Ports for the durable store. Each mutating method is one atomic unit: it
// commits fully or leaves no effect.
type (
	OwnerStore interface {
		CreateOwner(ctx context.Context, o core.Owner) error
		Owner(ctx context.Context, id string) (core.Owner, error)
		OwnerByAPIKey(ctx context.Context, apiKey string) (core.Owner, error)
		ListOwners(ctx context.Context) ([]core.Owner, error)
	}

	AccountStore interface {
		// CreateAccount inserts the account; when clearDefault is set the
		// owner's previous default is cleared in the same unit.
		CreateAccount(ctx context.Context, a core.Account, clearDefault bool) error
		Account(ctx context.Context, ownerID, id string) (core.Account, error)
		ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error)
		DefaultAccount(ctx context.Context, ownerID string) (core.Account, error)
		SetDefaultAccount(ctx context.Context, ownerID, id string) error
		DeleteAccount(ctx context.Context, ownerID, id string) error
		CountTransactions(ctx context.Context, ownerID, accountID string) (int64, error)
	}

	LedgerStore interface {
		Transaction(ctx context.Context, ownerID, id string) (core.Transaction, error)
		Transactions(ctx context.Context, ownerID string, f TransactionFilter) ([]core.Transaction, error)
		TransactionsInRange(ctx context.Context, ownerID string, from, to time.Time) ([]core.Transaction, error)
		TransactionsByIDs(ctx context.Context, ownerID string, ids []string) ([]core.Transaction, error)
		// InsertTransaction writes the row and applies its signed
		// contribution to the account balance in one unit.
		InsertTransaction(ctx context.Context, t core.Transaction) error
		// UpdateTransaction overwrites the row and applies netDelta to the
		// account balance in one unit.
		UpdateTransaction(ctx context.Context, t core.Transaction, netDelta decimal.Decimal) error
		// DeleteTransactions removes the rows and applies one reversal per
		// affected account, all in one unit.
		DeleteTransactions(ctx context.Context, ownerID string, ids []string, reversals map[string]decimal.Decimal) error
		ExpenseTotal(ctx context.Context, ownerID, accountID string, from, to time.Time) (decimal.Decimal, error)
	}

	RecurrenceStore interface {
		DueRecurring(ctx context.Context, now time.Time) ([]core.Transaction, error)
		// RegenerateRecurring inserts the occurrence, applies its balance
		// delta and advances the source row in one unit. The source update
		// is guarded by the due predicate; false means another run already
		// processed this cycle and nothing was written.
		RegenerateRecurring(ctx context.Context, source, occurrence core.Transaction, now, next time.Time) (bool, error)
	}

	BudgetStore interface {
		Budget(ctx context.Context, ownerID string) (core.Budget, error)
		ListBudgets(ctx context.Context) ([]core.Budget, error)
		UpsertBudget(ctx context.Context, b core.Budget) error
		// MarkAlertSent advances lastAlertSent, guarded by "empty or in an
		// earlier calendar month than at". False means already alerted.
		MarkAlertSent(ctx context.Context, budgetID string, at time.Time) (bool, error)
	}

	ReportStore interface {
		// MarkReportSent records that month's report for the owner; false
		// means a report was already recorded for that month.
		MarkReportSent(ctx context.Context, ownerID, month string, at time.Time) (bool, error)
	}

	// Store is the full durable-store surface, for wiring.
	Store interface {
		OwnerStore
		AccountStore
		LedgerStore
		RecurrenceStore
		BudgetStore
		ReportStore
	}
)

// Collaborator ports.
type (
	// Notifier dispatches an alert or report. Failures are non-fatal to
	// ledger state.
	Notifier interface {
		Send(ctx context.Context, n Notification) error
	}

	// InsightGenerator is the best-effort AI collaborator.
	InsightGenerator interface {
		Insights(ctx context.Context, stats core.MonthlyStats, month string) ([]string, error)
		ScanReceipt(ctx context.Context, image []byte, mimeType string) (Receipt, error)
	}

	// ViewInvalidator drops cached views for an owner after a mutation.
	ViewInvalidator interface {
		Invalidate(ownerID string)
	}
)
