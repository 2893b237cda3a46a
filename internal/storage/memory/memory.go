// Package memory is an in-process Store for tests and throwaway setups. It
// mirrors the SQLite repository's semantics, including the compare-and-swap
// guards on recurrence, alerts and reports.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/services"
)

type Store struct {
	mu           sync.Mutex
	owners       map[string]core.Owner
	accounts     map[string]core.Account
	transactions map[string]core.Transaction
	budgets      map[string]core.Budget // keyed by owner id
	reportLog    map[string]time.Time   // keyed by "ownerID|month"
}

var _ services.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		owners:       make(map[string]core.Owner),
		accounts:     make(map[string]core.Account),
		transactions: make(map[string]core.Transaction),
		budgets:      make(map[string]core.Budget),
		reportLog:    make(map[string]time.Time),
	}
}

// --- owners ---

func (s *Store) CreateOwner(_ context.Context, o core.Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[o.ID] = o
	return nil
}

func (s *Store) Owner(_ context.Context, id string) (core.Owner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.owners[id]
	if !ok {
		return core.Owner{}, fmt.Errorf("%w: owner", core.ErrNotFound)
	}
	return o, nil
}

func (s *Store) OwnerByAPIKey(_ context.Context, apiKey string) (core.Owner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.owners {
		if o.APIKey == apiKey {
			return o, nil
		}
	}
	return core.Owner{}, fmt.Errorf("%w: owner", core.ErrNotFound)
}

func (s *Store) ListOwners(_ context.Context) ([]core.Owner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owners := make([]core.Owner, 0, len(s.owners))
	for _, o := range s.owners {
		owners = append(owners, o)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i].ID < owners[j].ID })
	return owners, nil
}

// --- accounts ---

func (s *Store) CreateAccount(_ context.Context, a core.Account, clearDefault bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if clearDefault {
		for id, other := range s.accounts {
			if other.OwnerID == a.OwnerID && other.IsDefault {
				other.IsDefault = false
				s.accounts[id] = other
			}
		}
	}
	s.accounts[a.ID] = a
	return nil
}

func (s *Store) Account(_ context.Context, ownerID, id string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountLocked(ownerID, id)
}

func (s *Store) accountLocked(ownerID, id string) (core.Account, error) {
	a, ok := s.accounts[id]
	if !ok || a.OwnerID != ownerID {
		return core.Account{}, fmt.Errorf("%w: account", core.ErrNotFound)
	}
	return a, nil
}

func (s *Store) ListAccounts(_ context.Context, ownerID string) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var accounts []core.Account
	for _, a := range s.accounts {
		if a.OwnerID == ownerID {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.After(accounts[j].CreatedAt)
	})
	return accounts, nil
}

func (s *Store) DefaultAccount(_ context.Context, ownerID string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.OwnerID == ownerID && a.IsDefault {
			return a, nil
		}
	}
	return core.Account{}, fmt.Errorf("%w: default account", core.ErrNotFound)
}

func (s *Store) SetDefaultAccount(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.accounts[id]
	if !ok || target.OwnerID != ownerID {
		return fmt.Errorf("%w: account %s", core.ErrNotFound, id)
	}
	for otherID, other := range s.accounts {
		if other.OwnerID == ownerID && other.IsDefault {
			other.IsDefault = false
			s.accounts[otherID] = other
		}
	}
	target.IsDefault = true
	target.UpdatedAt = time.Now().UTC()
	s.accounts[id] = target
	return nil
}

func (s *Store) DeleteAccount(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.OwnerID != ownerID {
		return fmt.Errorf("%w: account %s", core.ErrNotFound, id)
	}
	count := 0
	for _, t := range s.transactions {
		if t.AccountID == id {
			count++
		}
	}
	if count > 0 {
		return fmt.Errorf("%w: account still has %d transactions", core.ErrConflict, count)
	}
	delete(s.accounts, id)
	if a.IsDefault {
		var newest *core.Account
		for otherID := range s.accounts {
			other := s.accounts[otherID]
			if other.OwnerID != ownerID {
				continue
			}
			if newest == nil || other.CreatedAt.After(newest.CreatedAt) {
				newest = &other
			}
		}
		if newest != nil {
			newest.IsDefault = true
			s.accounts[newest.ID] = *newest
		}
	}
	return nil
}

func (s *Store) CountTransactions(_ context.Context, ownerID, accountID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.accountLocked(ownerID, accountID); err != nil {
		return 0, err
	}
	var count int64
	for _, t := range s.transactions {
		if t.AccountID == accountID && t.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

// --- ledger ---

func (s *Store) Transaction(_ context.Context, ownerID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok || t.OwnerID != ownerID {
		return core.Transaction{}, fmt.Errorf("%w: transaction", core.ErrNotFound)
	}
	return t, nil
}

func (s *Store) Transactions(_ context.Context, ownerID string, f services.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.OwnerID != ownerID {
			continue
		}
		if f.AccountID != "" && t.AccountID != f.AccountID {
			continue
		}
		if f.Year != 0 && f.Month != 0 {
			from, to := core.MonthRange(time.Date(f.Year, time.Month(f.Month), 1, 0, 0, 0, 0, time.UTC))
			if t.Date.Before(from) || !t.Date.Before(to) {
				continue
			}
		}
		out = append(out, t)
	}
	sortByDateDesc(out)
	return out, nil
}

func (s *Store) TransactionsInRange(_ context.Context, ownerID string, from, to time.Time) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.OwnerID != ownerID || t.Date.Before(from) || !t.Date.Before(to) {
			continue
		}
		out = append(out, t)
	}
	sortByDateDesc(out)
	return out, nil
}

func (s *Store) TransactionsByIDs(_ context.Context, ownerID string, ids []string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, id := range ids {
		t, ok := s.transactions[id]
		if !ok || t.OwnerID != ownerID {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) InsertTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.applyDeltaLocked(t.OwnerID, t.AccountID, t.SignedContribution()); err != nil {
		return err
	}
	s.transactions[t.ID] = t
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction, netDelta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.transactions[t.ID]
	if !ok || existing.OwnerID != t.OwnerID {
		return fmt.Errorf("%w: transaction %s", core.ErrNotFound, t.ID)
	}
	if !netDelta.IsZero() {
		if err := s.applyDeltaLocked(t.OwnerID, t.AccountID, netDelta); err != nil {
			return err
		}
	}
	s.transactions[t.ID] = t
	return nil
}

func (s *Store) DeleteTransactions(_ context.Context, ownerID string, ids []string, reversals map[string]decimal.Decimal) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		t, ok := s.transactions[id]
		if !ok || t.OwnerID != ownerID {
			return fmt.Errorf("%w: some transactions do not exist or are not yours", core.ErrValidation)
		}
	}
	for accountID, contribution := range reversals {
		if err := s.applyDeltaLocked(ownerID, accountID, contribution.Neg()); err != nil {
			return err
		}
	}
	for _, id := range ids {
		delete(s.transactions, id)
	}
	return nil
}

func (s *Store) ExpenseTotal(_ context.Context, ownerID, accountID string, from, to time.Time) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, t := range s.transactions {
		if t.OwnerID != ownerID || t.AccountID != accountID || t.Kind != core.Expense {
			continue
		}
		if t.Date.Before(from) || !t.Date.Before(to) {
			continue
		}
		total = total.Add(t.Amount)
	}
	return total, nil
}

// --- recurrence ---

func (s *Store) DueRecurring(_ context.Context, now time.Time) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.Due(now) {
			out = append(out, t)
		}
	}
	sortByDateDesc(out)
	return out, nil
}

func (s *Store) RegenerateRecurring(_ context.Context, source, occurrence core.Transaction, now, next time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fresh, ok := s.transactions[source.ID]
	if !ok || fresh.OwnerID != source.OwnerID || !fresh.Due(now) {
		return false, nil
	}
	if err := s.applyDeltaLocked(occurrence.OwnerID, occurrence.AccountID, occurrence.SignedContribution()); err != nil {
		return false, err
	}
	fresh.LastProcessed = now
	fresh.NextRecurringDate = next
	fresh.UpdatedAt = now
	s.transactions[fresh.ID] = fresh
	s.transactions[occurrence.ID] = occurrence
	return true, nil
}

// --- budgets ---

func (s *Store) Budget(_ context.Context, ownerID string) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[ownerID]
	if !ok {
		return core.Budget{}, fmt.Errorf("%w: budget", core.ErrNotFound)
	}
	return b, nil
}

func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	budgets := make([]core.Budget, 0, len(s.budgets))
	for _, b := range s.budgets {
		budgets = append(budgets, b)
	}
	sort.Slice(budgets, func(i, j int) bool { return budgets[i].OwnerID < budgets[j].OwnerID })
	return budgets, nil
}

func (s *Store) UpsertBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := s.budgets[b.OwnerID]; ok {
		existing.Amount = b.Amount
		existing.UpdatedAt = now
		s.budgets[b.OwnerID] = existing
		return nil
	}
	b.CreatedAt = now
	b.UpdatedAt = now
	s.budgets[b.OwnerID] = b
	return nil
}

func (s *Store) MarkAlertSent(_ context.Context, budgetID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ownerID, b := range s.budgets {
		if b.ID != budgetID {
			continue
		}
		monthStart, _ := core.MonthRange(at)
		if !b.LastAlertSent.IsZero() && !b.LastAlertSent.Before(monthStart) {
			return false, nil
		}
		b.LastAlertSent = at
		b.UpdatedAt = at
		s.budgets[ownerID] = b
		return true, nil
	}
	return false, fmt.Errorf("%w: budget %s", core.ErrNotFound, budgetID)
}

// --- reports ---

func (s *Store) MarkReportSent(_ context.Context, ownerID, month string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ownerID + "|" + month
	if _, ok := s.reportLog[key]; ok {
		return false, nil
	}
	s.reportLog[key] = at
	return true, nil
}

// --- helpers ---

func (s *Store) applyDeltaLocked(ownerID, accountID string, delta decimal.Decimal) error {
	a, err := s.accountLocked(ownerID, accountID)
	if err != nil {
		return err
	}
	a.Balance = a.Balance.Add(delta)
	a.UpdatedAt = time.Now().UTC()
	s.accounts[accountID] = a
	return nil
}

func sortByDateDesc(ts []core.Transaction) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].Date.Equal(ts[j].Date) {
			return strings.Compare(ts[i].ID, ts[j].ID) < 0
		}
		return ts[i].Date.After(ts[j].Date)
	})
}
