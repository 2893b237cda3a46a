package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/services"
	"tally/internal/storage/memory"
)

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// seedOwnerAccount creates an owner with one default account and returns the
// store plus both ids.
func seedOwnerAccount(t *testing.T, balance string) (*memory.Store, core.Owner, core.Account) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	owner := core.Owner{ID: "owner-1", Email: "owner@example.com", Name: "Owner", APIKey: "key-1"}
	if err := store.CreateOwner(ctx, owner); err != nil {
		t.Fatalf("seed owner: %v", err)
	}

	account := core.Account{
		ID:        "account-1",
		OwnerID:   owner.ID,
		Name:      "Main",
		Kind:      core.Current,
		Balance:   amt(balance),
		IsDefault: true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := store.CreateAccount(ctx, account, false); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return store, owner, account
}

func accountBalance(t *testing.T, store *memory.Store, ownerID, accountID string) decimal.Decimal {
	t.Helper()
	a, err := store.Account(context.Background(), ownerID, accountID)
	if err != nil {
		t.Fatalf("load account: %v", err)
	}
	return a.Balance
}

// fakeNotifier records every notification; a non-nil err fails each Send.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []services.Notification
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, n services.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakeInsights returns canned insights and receipt data.
type fakeInsights struct {
	insights []string
	err      error
	receipt  services.Receipt
	scanErr  error
}

func (f *fakeInsights) Insights(context.Context, core.MonthlyStats, string) ([]string, error) {
	return f.insights, f.err
}

func (f *fakeInsights) ScanReceipt(context.Context, []byte, string) (services.Receipt, error) {
	return f.receipt, f.scanErr
}
