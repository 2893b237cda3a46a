package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/services"
)

func TestCreateTransactionAppliesBalance(t *testing.T) {
	ctx := context.Background()
	store, owner, account := seedOwnerAccount(t, "100")
	svc := services.NewTransactionService(store, nil, nil)

	expense, err := svc.Create(ctx, owner.ID, services.CreateTransactionInput{
		AccountID: account.ID,
		Kind:      core.Expense,
		Amount:    amt("25.50"),
		Date:      date(2024, time.June, 5),
		Category:  "groceries",
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if expense.Status != core.StatusCompleted {
		t.Errorf("status = %s, want COMPLETED", expense.Status)
	}
	if got := accountBalance(t, store, owner.ID, account.ID); !got.Equal(amt("74.50")) {
		t.Errorf("balance after expense = %s, want 74.50", got)
	}

	_, err = svc.Create(ctx, owner.ID, services.CreateTransactionInput{
		AccountID: account.ID,
		Kind:      core.Income,
		Amount:    amt("10"),
		Date:      date(2024, time.June, 6),
		Category:  "salary",
	})
	if err != nil {
		t.Fatalf("create income: %v", err)
	}
	if got := accountBalance(t, store, owner.ID, account.ID); !got.Equal(amt("84.50")) {
		t.Errorf("balance after income = %s, want 84.50", got)
	}
}

func TestCreateTransactionRejectsForeignAccount(t *testing.T) {
	ctx := context.Background()
	store, owner, _ := seedOwnerAccount(t, "100")
	svc := services.NewTransactionService(store, nil, nil)

	_, err := svc.Create(ctx, owner.ID, services.CreateTransactionInput{
		AccountID: "someone-elses-account",
		Kind:      core.Expense,
		Amount:    amt("5"),
		Date:      date(2024, time.June, 5),
		Category:  "misc",
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if got := accountBalance(t, store, owner.ID, "account-1"); !got.Equal(amt("100")) {
		t.Errorf("balance changed to %s on failed create", got)
	}
}

func TestCreateRecurringSetsNextDate(t *testing.T) {
	ctx := context.Background()
	store, owner, account := seedOwnerAccount(t, "100")
	svc := services.NewTransactionService(store, nil, nil)

	created, err := svc.Create(ctx, owner.ID, services.CreateTransactionInput{
		AccountID:         account.ID,
		Kind:              core.Expense,
		Amount:            amt("9.99"),
		Date:              date(2024, time.June, 1),
		Category:          "subscriptions",
		IsRecurring:       true,
		RecurringInterval: core.Monthly,
	})
	if err != nil {
		t.Fatalf("create recurring: %v", err)
	}
	if !created.NextRecurringDate.Equal(date(2024, time.July, 1)) {
		t.Errorf("next date = %s, want 2024-07-01", created.NextRecurringDate)
	}
}

func TestUpdateTransactionKindFlip(t *testing.T) {
	ctx := context.Background()
	store, owner, account := seedOwnerAccount(t, "100")
	svc := services.NewTransactionService(store, nil, nil)

	created, err := svc.Create(ctx, owner.ID, services.CreateTransactionInput{
		AccountID: account.ID,
		Kind:      core.Expense,
		Amount:    amt("25.50"),
		Date:      date(2024, time.June, 5),
		Category:  "groceries",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Flipping expense to income moves the balance by twice the amount.
	income := core.Income
	if _, err := svc.Update(ctx, owner.ID, created.ID, services.UpdateTransactionInput{Kind: &income}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := accountBalance(t, store, owner.ID, account.ID); !got.Equal(amt("125.50")) {
		t.Errorf("balance after kind flip = %s, want 125.50", got)
	}
}

func TestUpdateTransactionAmount(t *testing.T) {
	ctx := context.Background()
	store, owner, account := seedOwnerAccount(t, "100")
	svc := services.NewTransactionService(store, nil, nil)

	created, err := svc.Create(ctx, owner.ID, services.CreateTransactionInput{
		AccountID: account.ID,
		Kind:      core.Expense,
		Amount:    amt("30"),
		Date:      date(2024, time.June, 5),
		Category:  "groceries",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newAmount := amt("12.25")
	updated, err := svc.Update(ctx, owner.ID, created.ID, services.UpdateTransactionInput{Amount: &newAmount})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Amount.Equal(newAmount) {
		t.Errorf("amount = %s, want 12.25", updated.Amount)
	}
	if got := accountBalance(t, store, owner.ID, account.ID); !got.Equal(amt("87.75")) {
		t.Errorf("balance after amount change = %s, want 87.75", got)
	}
}

func TestUpdateTransactionTurnsRecurrenceOff(t *testing.T) {
	ctx := context.Background()
	store, owner, account := seedOwnerAccount(t, "100")
	svc := services.NewTransactionService(store, nil, nil)

	created, err := svc.Create(ctx, owner.ID, services.CreateTransactionInput{
		AccountID:         account.ID,
		Kind:              core.Expense,
		Amount:            amt("9.99"),
		Date:              date(2024, time.June, 1),
		Category:          "subscriptions",
		IsRecurring:       true,
		RecurringInterval: core.Monthly,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	off := false
	updated, err := svc.Update(ctx, owner.ID, created.ID, services.UpdateTransactionInput{IsRecurring: &off})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.IsRecurring || updated.RecurringInterval != "" || !updated.NextRecurringDate.IsZero() {
		t.Errorf("recurrence fields not cleared: %+v", updated)
	}
}

func TestDeleteTransactionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, owner, account := seedOwnerAccount(t, "100")
	svc := services.NewTransactionService(store, nil, nil)

	before := accountBalance(t, store, owner.ID, account.ID)

	first, err := svc.Create(ctx, owner.ID, services.CreateTransactionInput{
		AccountID: account.ID,
		Kind:      core.Expense,
		Amount:    amt("33.33"),
		Date:      date(2024, time.June, 5),
		Category:  "groceries",
	})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := svc.Create(ctx, owner.ID, services.CreateTransactionInput{
		AccountID: account.ID,
		Kind:      core.Income,
		Amount:    amt("10.01"),
		Date:      date(2024, time.June, 6),
		Category:  "salary",
	})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	if err := svc.Delete(ctx, owner.ID, []string{first.ID, second.ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := accountBalance(t, store, owner.ID, account.ID); !got.Equal(before) {
		t.Errorf("balance after round trip = %s, want %s", got, before)
	}
	if _, err := svc.Get(ctx, owner.ID, first.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("deleted transaction still loadable: %v", err)
	}
}

func TestDeleteTransactionsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store, owner, account := seedOwnerAccount(t, "100")
	svc := services.NewTransactionService(store, nil, nil)

	created, err := svc.Create(ctx, owner.ID, services.CreateTransactionInput{
		AccountID: account.ID,
		Kind:      core.Expense,
		Amount:    amt("20"),
		Date:      date(2024, time.June, 5),
		Category:  "groceries",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	balanceBefore := accountBalance(t, store, owner.ID, account.ID)

	err = svc.Delete(ctx, owner.ID, []string{created.ID, "missing-id"})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	if _, err := svc.Get(ctx, owner.ID, created.ID); err != nil {
		t.Errorf("existing transaction was deleted despite failed batch: %v", err)
	}
	if got := accountBalance(t, store, owner.ID, account.ID); !got.Equal(balanceBefore) {
		t.Errorf("balance changed to %s on failed batch", got)
	}
}

func TestDeleteTransactionsEmptyInput(t *testing.T) {
	store, owner, _ := seedOwnerAccount(t, "100")
	svc := services.NewTransactionService(store, nil, nil)

	if err := svc.Delete(context.Background(), owner.ID, []string{"", ""}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestScanReceiptFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	store, _, _ := seedOwnerAccount(t, "100")
	defaults := services.Receipt{Description: "lunch", Category: "dining", Date: date(2024, time.June, 5)}

	svc := services.NewTransactionService(store, &fakeInsights{scanErr: errors.New("model offline")}, nil)
	if got := svc.ScanReceipt(ctx, []byte("img"), "image/jpeg", defaults); got != defaults {
		t.Errorf("scan failure should return defaults, got %+v", got)
	}

	scanned := services.Receipt{Amount: amt("18.40"), Date: date(2024, time.June, 4), MerchantName: "Cafe"}
	svc = services.NewTransactionService(store, &fakeInsights{receipt: scanned}, nil)
	got := svc.ScanReceipt(ctx, []byte("img"), "image/jpeg", defaults)
	if !got.Amount.Equal(amt("18.40")) || got.MerchantName != "Cafe" {
		t.Errorf("scan result not used: %+v", got)
	}
	if got.Description != "lunch" || got.Category != "dining" {
		t.Errorf("empty scanned fields should fall back to defaults: %+v", got)
	}
}
