package services_test

import (
	"context"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/services"
	"tally/internal/storage/memory"
)

func seedBudget(t *testing.T, store *memory.Store, ownerID, amount string) core.Budget {
	t.Helper()
	b := core.Budget{ID: "budget-" + ownerID, OwnerID: ownerID, Amount: amt(amount)}
	if err := store.UpsertBudget(context.Background(), b); err != nil {
		t.Fatalf("seed budget: %v", err)
	}
	return b
}

func spend(t *testing.T, store *memory.Store, ownerID, accountID, amount string, on time.Time) {
	t.Helper()
	tx := core.Transaction{
		ID:        "spend-" + amount + "-" + on.Format("2006-01-02"),
		AccountID: accountID,
		OwnerID:   ownerID,
		Kind:      core.Expense,
		Amount:    amt(amount),
		Date:      on,
		Category:  "groceries",
		Status:    core.StatusCompleted,
	}
	if err := store.InsertTransaction(context.Background(), tx); err != nil {
		t.Fatalf("seed expense: %v", err)
	}
}

func TestBudgetAlertAtThreshold(t *testing.T) {
	ctx := context.Background()
	store, owner, account := seedOwnerAccount(t, "5000")
	seedBudget(t, store, owner.ID, "1000")
	now := date(2024, time.June, 20)
	spend(t, store, owner.ID, account.ID, "800", date(2024, time.June, 10))

	notifier := &fakeNotifier{}
	checker := services.NewBudgetChecker(store, notifier)

	alerted, err := checker.CheckAll(ctx, now)
	if err != nil {
		t.Fatalf("check all: %v", err)
	}
	if alerted != 1 {
		t.Fatalf("alerted = %d, want 1", alerted)
	}
	n := notifier.sent[0]
	if n.Recipient != owner.Email {
		t.Errorf("recipient = %s, want %s", n.Recipient, owner.Email)
	}
	if n.Kind != "budget-alert" {
		t.Errorf("kind = %s, want budget-alert", n.Kind)
	}
	if got := n.Payload["percentageUsed"]; got != "80" {
		t.Errorf("percentageUsed = %v, want 80", got)
	}

	// Same month: the budget is already marked, no second alert.
	alerted, err = checker.CheckAll(ctx, date(2024, time.June, 25))
	if err != nil {
		t.Fatalf("re-check: %v", err)
	}
	if alerted != 0 || notifier.count() != 1 {
		t.Errorf("same-month re-check alerted = %d, sent = %d", alerted, notifier.count())
	}

	// New month over threshold alerts again.
	spend(t, store, owner.ID, account.ID, "900", date(2024, time.July, 2))
	alerted, err = checker.CheckAll(ctx, date(2024, time.July, 3))
	if err != nil {
		t.Fatalf("next-month check: %v", err)
	}
	if alerted != 1 || notifier.count() != 2 {
		t.Errorf("next-month check alerted = %d, sent = %d", alerted, notifier.count())
	}
}

func TestBudgetAlertBelowThreshold(t *testing.T) {
	ctx := context.Background()
	store, owner, account := seedOwnerAccount(t, "5000")
	seedBudget(t, store, owner.ID, "1000")
	spend(t, store, owner.ID, account.ID, "799.99", date(2024, time.June, 10))

	notifier := &fakeNotifier{}
	checker := services.NewBudgetChecker(store, notifier)

	alerted, err := checker.CheckAll(ctx, date(2024, time.June, 20))
	if err != nil {
		t.Fatalf("check all: %v", err)
	}
	if alerted != 0 || notifier.count() != 0 {
		t.Errorf("below-threshold alerted = %d, sent = %d", alerted, notifier.count())
	}
}

func TestBudgetAlertZeroBudget(t *testing.T) {
	ctx := context.Background()
	store, owner, account := seedOwnerAccount(t, "5000")
	seedBudget(t, store, owner.ID, "0")
	spend(t, store, owner.ID, account.ID, "500", date(2024, time.June, 10))

	notifier := &fakeNotifier{}
	checker := services.NewBudgetChecker(store, notifier)

	alerted, err := checker.CheckAll(ctx, date(2024, time.June, 20))
	if err != nil {
		t.Fatalf("check all: %v", err)
	}
	if alerted != 0 {
		t.Errorf("zero budget alerted = %d, want 0", alerted)
	}
}

func TestBudgetAlertNoDefaultAccount(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	owner := core.Owner{ID: "owner-2", Email: "two@example.com"}
	if err := store.CreateOwner(ctx, owner); err != nil {
		t.Fatalf("seed owner: %v", err)
	}
	seedBudget(t, store, owner.ID, "1000")

	notifier := &fakeNotifier{}
	checker := services.NewBudgetChecker(store, notifier)

	alerted, err := checker.CheckAll(ctx, date(2024, time.June, 20))
	if err != nil {
		t.Fatalf("check all: %v", err)
	}
	if alerted != 0 {
		t.Errorf("budget with no default account alerted = %d, want 0", alerted)
	}
}

// Dispatch failure still consumes the month: at most one attempt per
// calendar month, even when that attempt is lost.
func TestBudgetAlertAtMostOncePerMonth(t *testing.T) {
	ctx := context.Background()
	store, owner, account := seedOwnerAccount(t, "5000")
	seedBudget(t, store, owner.ID, "1000")
	spend(t, store, owner.ID, account.ID, "950", date(2024, time.June, 10))

	failing := &fakeNotifier{err: context.DeadlineExceeded}
	checker := services.NewBudgetChecker(store, failing)

	alerted, err := checker.CheckAll(ctx, date(2024, time.June, 20))
	if err != nil {
		t.Fatalf("check all: %v", err)
	}
	if alerted != 0 {
		t.Errorf("failed dispatch counted as alerted = %d", alerted)
	}

	budget, err := store.Budget(ctx, owner.ID)
	if err != nil {
		t.Fatalf("load budget: %v", err)
	}
	if budget.LastAlertSent.IsZero() {
		t.Fatal("month not marked after failed dispatch")
	}

	// A healthy notifier later the same month must stay silent.
	working := &fakeNotifier{}
	checker = services.NewBudgetChecker(store, working)
	alerted, err = checker.CheckAll(ctx, date(2024, time.June, 25))
	if err != nil {
		t.Fatalf("re-check: %v", err)
	}
	if alerted != 0 || working.count() != 0 {
		t.Errorf("retry within month alerted = %d, sent = %d", alerted, working.count())
	}
}
