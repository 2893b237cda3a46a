// Package storage persists the ledger in SQLite. Every mutating method runs
// inside a single database transaction: either the transaction row and its
// balance effect both land, or neither does.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"tally/internal/core"
	"tally/internal/services"
)

// Timestamps are stored as RFC3339 UTC text truncated to seconds, so the
// lexicographic comparisons inside SQL match chronological order.
const timeLayout = time.RFC3339

type SQLiteRepository struct {
	db *sql.DB
}

var _ services.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// inTx runs fn inside one database transaction and rolls back on any error.
func (r *SQLiteRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// --- owners ---

func (r *SQLiteRepository) CreateOwner(ctx context.Context, o core.Owner) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO owners (id, email, name, api_key, created_at) VALUES (?, ?, ?, ?, ?)`,
		o.ID, o.Email, o.Name, o.APIKey, fmtTime(time.Now()))
	if err != nil {
		return fmt.Errorf("insert owner: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Owner(ctx context.Context, id string) (core.Owner, error) {
	return r.ownerBy(ctx, `SELECT id, email, name, api_key FROM owners WHERE id = ?`, id)
}

func (r *SQLiteRepository) OwnerByAPIKey(ctx context.Context, apiKey string) (core.Owner, error) {
	return r.ownerBy(ctx, `SELECT id, email, name, api_key FROM owners WHERE api_key = ?`, apiKey)
}

func (r *SQLiteRepository) ownerBy(ctx context.Context, query, arg string) (core.Owner, error) {
	var o core.Owner
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&o.ID, &o.Email, &o.Name, &o.APIKey)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Owner{}, fmt.Errorf("%w: owner", core.ErrNotFound)
	}
	if err != nil {
		return core.Owner{}, fmt.Errorf("query owner: %w", err)
	}
	return o, nil
}

func (r *SQLiteRepository) ListOwners(ctx context.Context) ([]core.Owner, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, email, name, api_key FROM owners ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	defer rows.Close()

	var owners []core.Owner
	for rows.Next() {
		var o core.Owner
		if err := rows.Scan(&o.ID, &o.Email, &o.Name, &o.APIKey); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

// --- accounts ---

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account, clearDefault bool) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if clearDefault {
			if _, err := tx.ExecContext(ctx,
				`UPDATE accounts SET is_default = 0, updated_at = ? WHERE owner_id = ? AND is_default = 1`,
				fmtTime(time.Now()), a.OwnerID); err != nil {
				return fmt.Errorf("clear previous default: %w", err)
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (id, owner_id, name, kind, balance, is_default, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.OwnerID, a.Name, string(a.Kind), a.Balance.String(), boolToInt(a.IsDefault),
			fmtTime(a.CreatedAt), fmtTime(a.UpdatedAt))
		if err != nil {
			return fmt.Errorf("insert account: %w", err)
		}
		return nil
	})
}

const accountColumns = `id, owner_id, name, kind, balance, is_default, created_at, updated_at`

func (r *SQLiteRepository) Account(ctx context.Context, ownerID, id string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ? AND owner_id = ?`, id, ownerID)
	return scanAccount(row)
}

func (r *SQLiteRepository) DefaultAccount(ctx context.Context, ownerID string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE owner_id = ? AND is_default = 1`, ownerID)
	return scanAccount(row)
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *SQLiteRepository) SetDefaultAccount(ctx context.Context, ownerID, id string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		now := fmtTime(time.Now())
		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET is_default = 0, updated_at = ? WHERE owner_id = ? AND is_default = 1`,
			now, ownerID); err != nil {
			return fmt.Errorf("clear previous default: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE accounts SET is_default = 1, updated_at = ? WHERE id = ? AND owner_id = ?`,
			now, id, ownerID)
		if err != nil {
			return fmt.Errorf("set default: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: account %s", core.ErrNotFound, id)
		}
		return nil
	})
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, ownerID, id string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var count int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM transactions WHERE account_id = ? AND owner_id = ?`, id, ownerID).Scan(&count); err != nil {
			return fmt.Errorf("count transactions: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("%w: account still has %d transactions", core.ErrConflict, count)
		}

		var wasDefault int
		err := tx.QueryRowContext(ctx,
			`SELECT is_default FROM accounts WHERE id = ? AND owner_id = ?`, id, ownerID).Scan(&wasDefault)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: account %s", core.ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM accounts WHERE id = ? AND owner_id = ?`, id, ownerID); err != nil {
			return fmt.Errorf("delete account: %w", err)
		}

		// Keep the single-default invariant: promote the newest remaining
		// account when the default itself was deleted.
		if wasDefault == 1 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE accounts SET is_default = 1, updated_at = ?
				 WHERE id = (SELECT id FROM accounts WHERE owner_id = ? ORDER BY created_at DESC LIMIT 1)`,
				fmtTime(time.Now()), ownerID); err != nil {
				return fmt.Errorf("promote new default: %w", err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) CountTransactions(ctx context.Context, ownerID, accountID string) (int64, error) {
	if _, err := r.Account(ctx, ownerID, accountID); err != nil {
		return 0, err
	}
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE account_id = ? AND owner_id = ?`,
		accountID, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

// --- ledger ---

const transactionColumns = `id, account_id, owner_id, kind, amount, date, category, description,
	status, is_recurring, recurring_interval, next_recurring_date, last_processed, created_at, updated_at`

func (r *SQLiteRepository) Transaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND owner_id = ?`, id, ownerID)
	return scanTransaction(row)
}

func (r *SQLiteRepository) Transactions(ctx context.Context, ownerID string, f services.TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE owner_id = ?`
	args := []any{ownerID}
	if f.AccountID != "" {
		query += ` AND account_id = ?`
		args = append(args, f.AccountID)
	}
	if f.Year != 0 && f.Month != 0 {
		from, to := core.MonthRange(time.Date(f.Year, time.Month(f.Month), 1, 0, 0, 0, 0, time.UTC))
		query += ` AND date >= ? AND date < ?`
		args = append(args, fmtTime(from), fmtTime(to))
	}
	query += ` ORDER BY date DESC, created_at DESC`
	return r.queryTransactions(ctx, query, args...)
}

func (r *SQLiteRepository) TransactionsInRange(ctx context.Context, ownerID string, from, to time.Time) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE owner_id = ? AND date >= ? AND date < ? ORDER BY date DESC`,
		ownerID, fmtTime(from), fmtTime(to))
}

func (r *SQLiteRepository) TransactionsByIDs(ctx context.Context, ownerID string, ids []string) ([]core.Transaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, ownerID)
	return r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE id IN (`+placeholders+`) AND owner_id = ?`, args...)
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertTransactionRow(ctx, tx, t); err != nil {
			return err
		}
		return applyBalanceDelta(ctx, tx, t.OwnerID, t.AccountID, t.SignedContribution())
	})
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction, netDelta decimal.Decimal) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE transactions SET kind = ?, amount = ?, date = ?, category = ?, description = ?,
				status = ?, is_recurring = ?, recurring_interval = ?, next_recurring_date = ?, updated_at = ?
			 WHERE id = ? AND owner_id = ?`,
			string(t.Kind), t.Amount.String(), fmtTime(t.Date), t.Category, t.Description,
			string(t.Status), boolToInt(t.IsRecurring), nullString(string(t.RecurringInterval)),
			nullTime(t.NextRecurringDate), fmtTime(t.UpdatedAt),
			t.ID, t.OwnerID)
		if err != nil {
			return fmt.Errorf("update transaction row: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: transaction %s", core.ErrNotFound, t.ID)
		}
		if netDelta.IsZero() {
			return nil
		}
		return applyBalanceDelta(ctx, tx, t.OwnerID, t.AccountID, netDelta)
	})
}

func (r *SQLiteRepository) DeleteTransactions(ctx context.Context, ownerID string, ids []string, reversals map[string]decimal.Decimal) error {
	if len(ids) == 0 {
		return nil
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		placeholders := strings.Repeat("?,", len(ids)-1) + "?"
		args := make([]any, 0, len(ids)+1)
		for _, id := range ids {
			args = append(args, id)
		}
		args = append(args, ownerID)

		var count int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM transactions WHERE id IN (`+placeholders+`) AND owner_id = ?`,
			args...).Scan(&count); err != nil {
			return fmt.Errorf("verify ownership: %w", err)
		}
		if count != int64(len(ids)) {
			return fmt.Errorf("%w: some transactions do not exist or are not yours", core.ErrValidation)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM transactions WHERE id IN (`+placeholders+`) AND owner_id = ?`, args...); err != nil {
			return fmt.Errorf("delete transactions: %w", err)
		}

		// One balance write per affected account.
		for accountID, contribution := range reversals {
			if err := applyBalanceDelta(ctx, tx, ownerID, accountID, contribution.Neg()); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) ExpenseTotal(ctx context.Context, ownerID, accountID string, from, to time.Time) (decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT amount FROM transactions
		 WHERE owner_id = ? AND account_id = ? AND kind = 'EXPENSE' AND date >= ? AND date < ?`,
		ownerID, accountID, fmtTime(from), fmtTime(to))
	if err != nil {
		return decimal.Zero, fmt.Errorf("query expense total: %w", err)
	}
	defer rows.Close()

	// Amounts live as TEXT; summing happens in decimal, never in SQL floats.
	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse stored amount %q: %w", raw, err)
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}

// --- recurrence ---

func (r *SQLiteRepository) DueRecurring(ctx context.Context, now time.Time) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE is_recurring = 1 AND status = 'COMPLETED'
		   AND next_recurring_date IS NOT NULL AND next_recurring_date <= ?
		   AND (last_processed IS NULL OR last_processed < next_recurring_date)`,
		fmtTime(now))
}

func (r *SQLiteRepository) RegenerateRecurring(ctx context.Context, source, occurrence core.Transaction, now, next time.Time) (bool, error) {
	created := false
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		// The due predicate doubles as a compare-and-swap: if another run
		// advanced the source row first, zero rows match and nothing is
		// written.
		res, err := tx.ExecContext(ctx,
			`UPDATE transactions SET last_processed = ?, next_recurring_date = ?, updated_at = ?
			 WHERE id = ? AND owner_id = ? AND is_recurring = 1 AND status = 'COMPLETED'
			   AND next_recurring_date IS NOT NULL AND next_recurring_date <= ?
			   AND (last_processed IS NULL OR last_processed < next_recurring_date)`,
			fmtTime(now), fmtTime(next), fmtTime(now),
			source.ID, source.OwnerID, fmtTime(now))
		if err != nil {
			return fmt.Errorf("advance source row: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return nil
		}

		if err := insertTransactionRow(ctx, tx, occurrence); err != nil {
			return err
		}
		if err := applyBalanceDelta(ctx, tx, occurrence.OwnerID, occurrence.AccountID, occurrence.SignedContribution()); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

// --- budgets ---

const budgetColumns = `id, owner_id, amount, last_alert_sent, created_at, updated_at`

func (r *SQLiteRepository) Budget(ctx context.Context, ownerID string) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE owner_id = ?`, ownerID)
	return scanBudget(row)
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+budgetColumns+` FROM budgets ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) error {
	now := fmtTime(time.Now())
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (id, owner_id, amount, last_alert_sent, created_at, updated_at)
		 VALUES (?, ?, ?, NULL, ?, ?)
		 ON CONFLICT(owner_id) DO UPDATE SET amount = excluded.amount, updated_at = excluded.updated_at`,
		b.ID, b.OwnerID, b.Amount.String(), now, now)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkAlertSent(ctx context.Context, budgetID string, at time.Time) (bool, error) {
	monthStart, _ := core.MonthRange(at)
	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET last_alert_sent = ?, updated_at = ?
		 WHERE id = ? AND (last_alert_sent IS NULL OR last_alert_sent < ?)`,
		fmtTime(at), fmtTime(at), budgetID, fmtTime(monthStart))
	if err != nil {
		return false, fmt.Errorf("mark alert sent: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// --- reports ---

func (r *SQLiteRepository) MarkReportSent(ctx context.Context, ownerID, month string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO report_log (owner_id, month, sent_at) VALUES (?, ?, ?)
		 ON CONFLICT(owner_id, month) DO NOTHING`,
		ownerID, month, fmtTime(at))
	if err != nil {
		return false, fmt.Errorf("mark report sent: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// --- helpers ---

func insertTransactionRow(ctx context.Context, tx *sql.Tx, t core.Transaction) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (id, account_id, owner_id, kind, amount, date, category, description,
			status, is_recurring, recurring_interval, next_recurring_date, last_processed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.OwnerID, string(t.Kind), t.Amount.String(), fmtTime(t.Date),
		t.Category, t.Description, string(t.Status), boolToInt(t.IsRecurring),
		nullString(string(t.RecurringInterval)), nullTime(t.NextRecurringDate),
		nullTime(t.LastProcessed), fmtTime(t.CreatedAt), fmtTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert transaction row: %w", err)
	}
	return nil
}

// applyBalanceDelta reads the balance and writes it back inside the caller's
// transaction, keeping all decimal arithmetic in Go.
func applyBalanceDelta(ctx context.Context, tx *sql.Tx, ownerID, accountID string, delta decimal.Decimal) error {
	var raw string
	err := tx.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE id = ? AND owner_id = ?`, accountID, ownerID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: account %s", core.ErrNotFound, accountID)
	}
	if err != nil {
		return fmt.Errorf("read balance: %w", err)
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("parse stored balance %q: %w", raw, err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ? AND owner_id = ?`,
		balance.Add(delta).String(), fmtTime(time.Now()), accountID, ownerID)
	if err != nil {
		return fmt.Errorf("write balance: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (core.Account, error) {
	var (
		a                    core.Account
		kind, balance        string
		isDefault            int
		createdAt, updatedAt string
	)
	err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &kind, &balance, &isDefault, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("%w: account", core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("scan account: %w", err)
	}
	a.Kind = core.AccountKind(kind)
	a.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return core.Account{}, fmt.Errorf("parse stored balance %q: %w", balance, err)
	}
	a.IsDefault = isDefault == 1
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return a, nil
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t                          core.Transaction
		kind, amount, date, status string
		isRecurring                int
		interval                   sql.NullString
		nextDate, lastProcessed    sql.NullString
		createdAt, updatedAt       string
	)
	err := row.Scan(&t.ID, &t.AccountID, &t.OwnerID, &kind, &amount, &date, &t.Category, &t.Description,
		&status, &isRecurring, &interval, &nextDate, &lastProcessed, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("%w: transaction", core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Kind = core.TransactionKind(kind)
	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	t.Date = parseTime(date)
	t.Status = core.TransactionStatus(status)
	t.IsRecurring = isRecurring == 1
	if interval.Valid {
		t.RecurringInterval = core.RecurringInterval(interval.String)
	}
	if nextDate.Valid {
		t.NextRecurringDate = parseTime(nextDate.String)
	}
	if lastProcessed.Valid {
		t.LastProcessed = parseTime(lastProcessed.String)
	}
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}

func scanBudget(row rowScanner) (core.Budget, error) {
	var (
		b                    core.Budget
		amount               string
		lastAlertSent        sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&b.ID, &b.OwnerID, &amount, &lastAlertSent, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("%w: budget", core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("scan budget: %w", err)
	}
	b.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return core.Budget{}, fmt.Errorf("parse stored budget amount %q: %w", amount, err)
	}
	if lastAlertSent.Valid {
		b.LastAlertSent = parseTime(lastAlertSent.String)
	}
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return b, nil
}

func fmtTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(timeLayout)
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return fmtTime(t)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
