package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/services"
)

func seedRecurringExpense(t *testing.T, store interface {
	InsertTransaction(context.Context, core.Transaction) error
}, ownerID, accountID string, next time.Time) core.Transaction {
	t.Helper()
	source := core.Transaction{
		ID:                "recurring-1",
		AccountID:         accountID,
		OwnerID:           ownerID,
		Kind:              core.Expense,
		Amount:            amt("50"),
		Date:              date(2024, time.May, 10),
		Category:          "rent",
		Description:       "Monthly rent",
		Status:            core.StatusCompleted,
		IsRecurring:       true,
		RecurringInterval: core.Monthly,
		NextRecurringDate: next,
	}
	if err := store.InsertTransaction(context.Background(), source); err != nil {
		t.Fatalf("seed recurring source: %v", err)
	}
	return source
}

func TestProcessDueCreatesOccurrence(t *testing.T) {
	ctx := context.Background()
	store, owner, account := seedOwnerAccount(t, "500")
	source := seedRecurringExpense(t, store, owner.ID, account.ID, date(2024, time.June, 10))
	// Seeding the source already charged 50.
	if got := accountBalance(t, store, owner.ID, account.ID); !got.Equal(amt("450")) {
		t.Fatalf("balance after seed = %s, want 450", got)
	}

	processor := services.NewRecurringProcessor(store, nil)
	now := date(2024, time.June, 15)

	created, err := processor.ProcessDue(ctx, now)
	if err != nil {
		t.Fatalf("process due: %v", err)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}
	if got := accountBalance(t, store, owner.ID, account.ID); !got.Equal(amt("400")) {
		t.Errorf("balance after occurrence = %s, want 400", got)
	}

	all, err := store.Transactions(ctx, owner.ID, services.TransactionFilter{AccountID: account.ID})
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	var occurrence *core.Transaction
	for i := range all {
		if all[i].ID != source.ID {
			occurrence = &all[i]
		}
	}
	if occurrence == nil {
		t.Fatal("no occurrence row found")
	}
	if occurrence.IsRecurring {
		t.Error("occurrence must not itself be recurring")
	}
	if !strings.HasSuffix(occurrence.Description, "(Recurring)") {
		t.Errorf("description = %q, want (Recurring) suffix", occurrence.Description)
	}
	if !occurrence.Date.Equal(now) {
		t.Errorf("occurrence date = %s, want %s", occurrence.Date, now)
	}
	if !occurrence.Amount.Equal(source.Amount) {
		t.Errorf("occurrence amount = %s, want %s", occurrence.Amount, source.Amount)
	}

	advanced, err := store.Transaction(ctx, owner.ID, source.ID)
	if err != nil {
		t.Fatalf("reload source: %v", err)
	}
	if !advanced.LastProcessed.Equal(now) {
		t.Errorf("lastProcessed = %s, want %s", advanced.LastProcessed, now)
	}
	if !advanced.NextRecurringDate.Equal(date(2024, time.July, 15)) {
		t.Errorf("next date = %s, want 2024-07-15", advanced.NextRecurringDate)
	}
}

func TestProcessDueIsIdempotentWithinCycle(t *testing.T) {
	ctx := context.Background()
	store, owner, account := seedOwnerAccount(t, "500")
	seedRecurringExpense(t, store, owner.ID, account.ID, date(2024, time.June, 10))

	processor := services.NewRecurringProcessor(store, nil)
	now := date(2024, time.June, 15)

	if created, err := processor.ProcessDue(ctx, now); err != nil || created != 1 {
		t.Fatalf("first run: created = %d, err = %v", created, err)
	}
	balanceAfterFirst := accountBalance(t, store, owner.ID, account.ID)

	created, err := processor.ProcessDue(ctx, now)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if created != 0 {
		t.Errorf("second run created = %d, want 0", created)
	}
	if got := accountBalance(t, store, owner.ID, account.ID); !got.Equal(balanceAfterFirst) {
		t.Errorf("second run moved balance from %s to %s", balanceAfterFirst, got)
	}
}

func TestProcessDueSkipsNotYetDue(t *testing.T) {
	ctx := context.Background()
	store, owner, account := seedOwnerAccount(t, "500")
	seedRecurringExpense(t, store, owner.ID, account.ID, date(2024, time.July, 10))

	processor := services.NewRecurringProcessor(store, nil)
	created, err := processor.ProcessDue(ctx, date(2024, time.June, 15))
	if err != nil {
		t.Fatalf("process due: %v", err)
	}
	if created != 0 {
		t.Errorf("created = %d, want 0", created)
	}
}

func TestProcessDueSkipsPending(t *testing.T) {
	ctx := context.Background()
	store, owner, account := seedOwnerAccount(t, "500")

	source := core.Transaction{
		ID:                "recurring-pending",
		AccountID:         account.ID,
		OwnerID:           owner.ID,
		Kind:              core.Expense,
		Amount:            amt("50"),
		Date:              date(2024, time.May, 10),
		Category:          "rent",
		Status:            core.StatusPending,
		IsRecurring:       true,
		RecurringInterval: core.Monthly,
		NextRecurringDate: date(2024, time.June, 10),
	}
	if err := store.InsertTransaction(ctx, source); err != nil {
		t.Fatalf("seed: %v", err)
	}

	processor := services.NewRecurringProcessor(store, nil)
	created, err := processor.ProcessDue(ctx, date(2024, time.June, 15))
	if err != nil {
		t.Fatalf("process due: %v", err)
	}
	if created != 0 {
		t.Errorf("pending source regenerated, created = %d", created)
	}
}
