package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// AccountService owns the account lifecycle and the single-default
// invariant: whenever an owner has accounts, exactly one of them is the
// default.
type AccountService struct {
	store Store
	views ViewInvalidator
}

func NewAccountService(store Store, views ViewInvalidator) *AccountService {
	return &AccountService{store: store, views: views}
}

type CreateAccountInput struct {
	Name      string
	Kind      core.AccountKind
	Balance   decimal.Decimal
	IsDefault bool
}

// Create inserts a new account. The owner's first account always becomes the
// default; an explicit default demotes the previous one in the same unit.
func (s *AccountService) Create(ctx context.Context, ownerID string, in CreateAccountInput) (core.Account, error) {
	if in.Balance.IsNegative() {
		return core.Account{}, fmt.Errorf("%w: opening balance cannot be negative", core.ErrValidation)
	}

	existing, err := s.store.ListAccounts(ctx, ownerID)
	if err != nil {
		return core.Account{}, fmt.Errorf("list accounts: %w", err)
	}

	now := time.Now()
	a := core.Account{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      in.Name,
		Kind:      in.Kind,
		Balance:   in.Balance,
		IsDefault: len(existing) == 0 || in.IsDefault,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	if err := s.store.CreateAccount(ctx, a, a.IsDefault); err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}

	s.invalidate(ownerID)
	slog.InfoContext(ctx, "Account created",
		"account_id", a.ID,
		"kind", a.Kind,
		"default", a.IsDefault)
	return a, nil
}

// SetDefault makes the given account the owner's default, demoting the
// previous default in the same unit.
func (s *AccountService) SetDefault(ctx context.Context, ownerID, accountID string) (core.Account, error) {
	if err := s.store.SetDefaultAccount(ctx, ownerID, accountID); err != nil {
		return core.Account{}, fmt.Errorf("set default account: %w", err)
	}
	s.invalidate(ownerID)
	return s.store.Account(ctx, ownerID, accountID)
}

// Get returns one owned account.
func (s *AccountService) Get(ctx context.Context, ownerID, accountID string) (core.Account, error) {
	return s.store.Account(ctx, ownerID, accountID)
}

// GetWithTransactions returns the account and its transactions, newest
// first.
func (s *AccountService) GetWithTransactions(ctx context.Context, ownerID, accountID string) (core.Account, []core.Transaction, error) {
	account, err := s.store.Account(ctx, ownerID, accountID)
	if err != nil {
		return core.Account{}, nil, err
	}
	transactions, err := s.store.Transactions(ctx, ownerID, TransactionFilter{AccountID: accountID})
	if err != nil {
		return core.Account{}, nil, fmt.Errorf("list account transactions: %w", err)
	}
	return account, transactions, nil
}

// List returns the owner's accounts.
func (s *AccountService) List(ctx context.Context, ownerID string) ([]core.Account, error) {
	return s.store.ListAccounts(ctx, ownerID)
}

// Delete removes an account that has no transactions left. Accounts with
// ledger history refuse deletion so no balance contribution is orphaned.
func (s *AccountService) Delete(ctx context.Context, ownerID, accountID string) error {
	count, err := s.store.CountTransactions(ctx, ownerID, accountID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return err
		}
		return fmt.Errorf("count transactions: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: account still has %d transactions", core.ErrConflict, count)
	}
	if err := s.store.DeleteAccount(ctx, ownerID, accountID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	s.invalidate(ownerID)
	slog.InfoContext(ctx, "Account deleted", "account_id", accountID)
	return nil
}

func (s *AccountService) invalidate(ownerID string) {
	if s.views != nil {
		s.views.Invalidate(ownerID)
	}
}
