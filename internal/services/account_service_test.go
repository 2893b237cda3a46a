package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/services"
	"tally/internal/storage/memory"
)

func TestAccountCreateFirstBecomesDefault(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := services.NewAccountService(store, nil)

	first, err := svc.Create(ctx, "owner-1", services.CreateAccountInput{Name: "Main", Kind: core.Current, Balance: amt("0")})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if !first.IsDefault {
		t.Error("first account must be the default")
	}

	second, err := svc.Create(ctx, "owner-1", services.CreateAccountInput{Name: "Savings", Kind: core.Savings, Balance: amt("250")})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.IsDefault {
		t.Error("second account must not steal the default")
	}
	if def, err := store.DefaultAccount(ctx, "owner-1"); err != nil || def.ID != first.ID {
		t.Errorf("default = %+v, err = %v, want first account", def, err)
	}
}

func TestAccountCreateExplicitDefaultDemotesPrevious(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := services.NewAccountService(store, nil)

	first, err := svc.Create(ctx, "owner-1", services.CreateAccountInput{Name: "Main", Kind: core.Current})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := svc.Create(ctx, "owner-1", services.CreateAccountInput{Name: "New Main", Kind: core.Current, IsDefault: true})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	def, err := store.DefaultAccount(ctx, "owner-1")
	if err != nil {
		t.Fatalf("default account: %v", err)
	}
	if def.ID != second.ID {
		t.Errorf("default = %s, want %s", def.ID, second.ID)
	}
	if reloaded, _ := store.Account(ctx, "owner-1", first.ID); reloaded.IsDefault {
		t.Error("previous default was not demoted")
	}
}

func TestAccountCreateRejectsNegativeBalance(t *testing.T) {
	store := memory.NewStore()
	svc := services.NewAccountService(store, nil)

	_, err := svc.Create(context.Background(), "owner-1", services.CreateAccountInput{
		Name: "Main", Kind: core.Current, Balance: amt("-10"),
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestAccountDeleteRefusesWithHistory(t *testing.T) {
	ctx := context.Background()
	store, owner, account := seedOwnerAccount(t, "100")
	spend(t, store, owner.ID, account.ID, "10", date(2024, time.June, 5))

	svc := services.NewAccountService(store, nil)
	if err := svc.Delete(ctx, owner.ID, account.ID); !errors.Is(err, core.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
	if _, err := store.Account(ctx, owner.ID, account.ID); err != nil {
		t.Errorf("account was deleted despite history: %v", err)
	}
}

func TestAccountDeletePromotesNewestDefault(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := services.NewAccountService(store, nil)

	first, err := svc.Create(ctx, "owner-1", services.CreateAccountInput{Name: "Main", Kind: core.Current})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	time.Sleep(time.Millisecond) // created-at ordering decides promotion
	second, err := svc.Create(ctx, "owner-1", services.CreateAccountInput{Name: "Savings", Kind: core.Savings})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	if err := svc.Delete(ctx, "owner-1", first.ID); err != nil {
		t.Fatalf("delete default: %v", err)
	}
	def, err := store.DefaultAccount(ctx, "owner-1")
	if err != nil {
		t.Fatalf("default after delete: %v", err)
	}
	if def.ID != second.ID {
		t.Errorf("promoted default = %s, want %s", def.ID, second.ID)
	}
}

func TestAccountSetDefault(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := services.NewAccountService(store, nil)

	first, _ := svc.Create(ctx, "owner-1", services.CreateAccountInput{Name: "Main", Kind: core.Current})
	second, _ := svc.Create(ctx, "owner-1", services.CreateAccountInput{Name: "Savings", Kind: core.Savings})

	promoted, err := svc.SetDefault(ctx, "owner-1", second.ID)
	if err != nil {
		t.Fatalf("set default: %v", err)
	}
	if !promoted.IsDefault {
		t.Error("returned account not marked default")
	}
	if reloaded, _ := store.Account(ctx, "owner-1", first.ID); reloaded.IsDefault {
		t.Error("previous default still set")
	}

	if _, err := svc.SetDefault(ctx, "owner-1", "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("missing account error = %v, want ErrNotFound", err)
	}
}
