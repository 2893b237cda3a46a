package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tally/internal/core"
)

// RecurringProcessor regenerates due recurring transactions. Each due source
// produces at most one occurrence per cycle: processing holds a per-id lock
// and the store advances the source row under the due-predicate guard, so
// overlapping runs cannot double-book.
type RecurringProcessor struct {
	store Store
	views ViewInvalidator

	locks sync.Map // transaction id -> *sync.Mutex
}

func NewRecurringProcessor(store Store, views ViewInvalidator) *RecurringProcessor {
	return &RecurringProcessor{store: store, views: views}
}

// ProcessDue scans for due recurring transactions and regenerates each one.
// A failure on one transaction is logged and skipped; the scan continues.
// Returns the number of occurrences created.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	due, err := p.store.DueRecurring(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("scan due recurring transactions: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring transactions",
		"due", len(due),
		"processing_date", now.Format("2006-01-02"))

	processed := 0
	for _, source := range due {
		created, err := p.processOne(ctx, source, now)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to regenerate recurring transaction",
				"transaction_id", source.ID,
				"account_id", source.AccountID,
				"error", err)
			continue
		}
		if created {
			processed++
			p.invalidate(source.OwnerID)
		}
	}

	slog.InfoContext(ctx, "Recurring transaction processing complete",
		"created", processed,
		"checked", len(due))
	return processed, nil
}

func (p *RecurringProcessor) processOne(ctx context.Context, source core.Transaction, now time.Time) (bool, error) {
	mu := p.lockFor(source.ID)
	mu.Lock()
	defer mu.Unlock()

	// Re-read under the lock; another run may have advanced the row already.
	fresh, err := p.store.Transaction(ctx, source.OwnerID, source.ID)
	if err != nil {
		return false, fmt.Errorf("reload source: %w", err)
	}
	if !fresh.Due(now) {
		return false, nil
	}

	occurrence := core.Transaction{
		ID:          uuid.NewString(),
		AccountID:   fresh.AccountID,
		OwnerID:     fresh.OwnerID,
		Kind:        fresh.Kind,
		Amount:      fresh.Amount,
		Date:        now,
		Category:    fresh.Category,
		Description: annotateRecurring(fresh.Description),
		Status:      core.StatusCompleted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	next := core.NextRecurringDate(now, fresh.RecurringInterval)
	created, err := p.store.RegenerateRecurring(ctx, fresh, occurrence, now, next)
	if err != nil {
		return false, fmt.Errorf("regenerate: %w", err)
	}
	if !created {
		return false, nil
	}

	slog.InfoContext(ctx, "Created occurrence from recurring transaction",
		"source_id", fresh.ID,
		"occurrence_id", occurrence.ID,
		"amount", occurrence.Amount.String(),
		"interval", fresh.RecurringInterval,
		"next_recurring_date", next.Format("2006-01-02"))
	return true, nil
}

func (p *RecurringProcessor) lockFor(id string) *sync.Mutex {
	mu, _ := p.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (p *RecurringProcessor) invalidate(ownerID string) {
	if p.views != nil {
		p.views.Invalidate(ownerID)
	}
}

func annotateRecurring(description string) string {
	if description == "" {
		return "(Recurring)"
	}
	return description + " (Recurring)"
}
