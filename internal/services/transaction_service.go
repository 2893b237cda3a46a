package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// TransactionService is the mutation engine: every ledger write and its
// paired balance change go through here as one atomic unit against the
// store. Nothing else writes balances.
type TransactionService struct {
	store    Store
	insights InsightGenerator
	views    ViewInvalidator
}

func NewTransactionService(store Store, insights InsightGenerator, views ViewInvalidator) *TransactionService {
	return &TransactionService{
		store:    store,
		insights: insights,
		views:    views,
	}
}

// CreateTransactionInput is the allow-listed field set for Create.
type CreateTransactionInput struct {
	AccountID         string
	Kind              core.TransactionKind
	Amount            decimal.Decimal
	Date              time.Time
	Category          string
	Description       string
	IsRecurring       bool
	RecurringInterval core.RecurringInterval
}

// UpdateTransactionInput is the allow-listed field set for Update. Nil
// pointers leave the stored value untouched. Moving a transaction to a
// different account is not supported.
type UpdateTransactionInput struct {
	Kind              *core.TransactionKind
	Amount            *decimal.Decimal
	Date              *time.Time
	Category          *string
	Description       *string
	IsRecurring       *bool
	RecurringInterval *core.RecurringInterval
}

// Create validates the input, inserts the transaction and applies its signed
// contribution to the account balance in one unit.
func (s *TransactionService) Create(ctx context.Context, ownerID string, in CreateTransactionInput) (core.Transaction, error) {
	account, err := s.store.Account(ctx, ownerID, in.AccountID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load account: %w", err)
	}

	now := time.Now()
	t := core.Transaction{
		ID:          uuid.NewString(),
		AccountID:   account.ID,
		OwnerID:     ownerID,
		Kind:        in.Kind,
		Amount:      in.Amount,
		Date:        in.Date,
		Category:    in.Category,
		Description: in.Description,
		Status:      core.StatusCompleted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.IsRecurring {
		t.IsRecurring = true
		t.RecurringInterval = in.RecurringInterval
		t.NextRecurringDate = core.NextRecurringDate(in.Date, in.RecurringInterval)
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.store.InsertTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	s.invalidate(ownerID)
	slog.InfoContext(ctx, "Transaction created",
		"transaction_id", t.ID,
		"account_id", t.AccountID,
		"kind", t.Kind,
		"amount", t.Amount.String(),
		"recurring", t.IsRecurring)
	return t, nil
}

// Update loads the stored transaction, merges the allow-listed fields and
// applies the net balance delta (new contribution minus old) in the same
// unit as the row overwrite.
func (s *TransactionService) Update(ctx context.Context, ownerID, id string, in UpdateTransactionInput) (core.Transaction, error) {
	existing, err := s.store.Transaction(ctx, ownerID, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load transaction: %w", err)
	}

	oldDelta := existing.SignedContribution()
	updated := existing
	recurrenceChanged := false

	if in.Kind != nil {
		updated.Kind = *in.Kind
	}
	if in.Amount != nil {
		updated.Amount = *in.Amount
	}
	if in.Date != nil {
		updated.Date = *in.Date
		recurrenceChanged = recurrenceChanged || updated.IsRecurring
	}
	if in.Category != nil {
		updated.Category = *in.Category
	}
	if in.Description != nil {
		updated.Description = *in.Description
	}
	if in.IsRecurring != nil && *in.IsRecurring != updated.IsRecurring {
		updated.IsRecurring = *in.IsRecurring
		recurrenceChanged = true
	}
	if in.RecurringInterval != nil && *in.RecurringInterval != updated.RecurringInterval {
		updated.RecurringInterval = *in.RecurringInterval
		recurrenceChanged = true
	}

	if recurrenceChanged {
		if updated.IsRecurring {
			updated.NextRecurringDate = core.NextRecurringDate(updated.Date, updated.RecurringInterval)
		} else {
			updated.RecurringInterval = ""
			updated.NextRecurringDate = time.Time{}
		}
	}
	updated.UpdatedAt = time.Now()

	if err := updated.Validate(); err != nil {
		return core.Transaction{}, err
	}

	netDelta := updated.SignedContribution().Sub(oldDelta)
	if err := s.store.UpdateTransaction(ctx, updated, netDelta); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.invalidate(ownerID)
	slog.InfoContext(ctx, "Transaction updated",
		"transaction_id", updated.ID,
		"account_id", updated.AccountID,
		"net_delta", netDelta.String())
	return updated, nil
}

// Delete removes a set of transactions and reverses their aggregated
// contribution, one balance write per affected account. If any id is missing
// or not owned by the caller the whole call fails and nothing is deleted.
func (s *TransactionService) Delete(ctx context.Context, ownerID string, ids []string) error {
	unique := dedupe(ids)
	if len(unique) == 0 {
		return fmt.Errorf("%w: no transaction ids given", core.ErrValidation)
	}

	rows, err := s.store.TransactionsByIDs(ctx, ownerID, unique)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	if len(rows) != len(unique) {
		return fmt.Errorf("%w: %d of %d transactions do not exist or are not yours",
			core.ErrValidation, len(unique)-len(rows), len(unique))
	}

	// Aggregate the signed contribution per account; the store subtracts it.
	reversals := make(map[string]decimal.Decimal)
	for _, t := range rows {
		reversals[t.AccountID] = reversals[t.AccountID].Add(t.SignedContribution())
	}

	if err := s.store.DeleteTransactions(ctx, ownerID, unique, reversals); err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}

	s.invalidate(ownerID)
	slog.InfoContext(ctx, "Transactions deleted",
		"count", len(unique),
		"accounts_touched", len(reversals))
	return nil
}

// Get returns one owned transaction.
func (s *TransactionService) Get(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	return s.store.Transaction(ctx, ownerID, id)
}

// List returns the owner's transactions, optionally filtered.
func (s *TransactionService) List(ctx context.Context, ownerID string, f TransactionFilter) ([]core.Transaction, error) {
	return s.store.Transactions(ctx, ownerID, f)
}

// ScanReceipt asks the insight collaborator to extract structured fields
// from a receipt image. Any failure is soft: the caller-supplied defaults
// come back and the error is only logged.
func (s *TransactionService) ScanReceipt(ctx context.Context, image []byte, mimeType string, defaults Receipt) Receipt {
	if s.insights == nil {
		return defaults
	}
	scanned, err := s.insights.ScanReceipt(ctx, image, mimeType)
	if err != nil {
		slog.WarnContext(ctx, "Receipt scan failed, using caller defaults", "error", err)
		return defaults
	}
	if !scanned.Amount.IsPositive() {
		slog.WarnContext(ctx, "Receipt scan returned no usable amount, using caller defaults")
		return defaults
	}
	if scanned.Description == "" {
		scanned.Description = defaults.Description
	}
	if scanned.Category == "" {
		scanned.Category = defaults.Category
	}
	return scanned
}

func (s *TransactionService) invalidate(ownerID string) {
	if s.views != nil {
		s.views.Invalidate(ownerID)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
