package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"saldo/internal/core"
	"saldo/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate")
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

// CreateProfile implements store.ProfileStore
func (r *SQLiteRepository) CreateProfile(ctx context.Context, p core.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `INSERT INTO profiles (id, name) VALUES (?, ?)`, p.ID, p.Name); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	slog.InfoContext(ctx, "Profile saved to SQLite", "profile_id", p.ID, "name", p.Name)
	return nil
}

// ListProfiles implements store.ProfileStore
func (r *SQLiteRepository) ListProfiles(ctx context.Context) ([]core.Profile, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM profiles ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []core.Profile
	for rows.Next() {
		var p core.Profile
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListAccounts implements store.AccountStore
func (r *SQLiteRepository) ListAccounts(ctx context.Context, profileID string) ([]core.BankAccount, error) {
	if err := r.requireProfile(ctx, profileID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, color FROM bank_accounts WHERE profile_id = ? ORDER BY name, id`, profileID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.BankAccount
	for rows.Next() {
		var a core.BankAccount
		if err := rows.Scan(&a.ID, &a.Name, &a.Color); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveAccount implements store.AccountStore
func (r *SQLiteRepository) SaveAccount(ctx context.Context, profileID string, a core.BankAccount) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := r.requireProfile(ctx, profileID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bank_accounts (profile_id, id, name, color) VALUES (?, ?, ?, ?)
		ON CONFLICT (profile_id, id) DO UPDATE SET name = excluded.name, color = excluded.color`,
		profileID, a.ID, a.Name, a.Color)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

// DeleteAccount implements store.AccountStore
func (r *SQLiteRepository) DeleteAccount(ctx context.Context, profileID, accountID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM bank_accounts WHERE profile_id = ? AND id = ?`, profileID, accountID)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return expectOneRow(res, "account", accountID)
}

const transactionColumns = `id, amount_cents, day, type, account, is_gift, is_hidden,
	description, category_id, transfer_id, asset_id, liability_id, loan_id, details`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Update runs fn inside one write transaction. The database is opened with
// _txlock=immediate, so the write lock is taken at BEGIN and a second
// process validating the same log waits until this one commits.
func (r *SQLiteRepository) Update(ctx context.Context, profileID string, fn func(txs store.TransactionStore) error) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer dbtx.Rollback()

	if err := requireProfile(ctx, dbtx, profileID); err != nil {
		return err
	}
	if err := fn(txStore{q: dbtx}); err != nil {
		return err
	}
	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListTransactions implements store.TransactionStore
func (r *SQLiteRepository) ListTransactions(ctx context.Context, profileID string) ([]core.Transaction, error) {
	return txStore{q: r.db}.ListTransactions(ctx, profileID)
}

// InsertTransactions implements store.TransactionStore. All of txs are
// written in one transaction.
func (r *SQLiteRepository) InsertTransactions(ctx context.Context, profileID string, txs ...core.Transaction) error {
	return r.Update(ctx, profileID, func(ts store.TransactionStore) error {
		return ts.InsertTransactions(ctx, profileID, txs...)
	})
}

// UpdateTransaction implements store.TransactionStore
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, profileID string, tx core.Transaction) error {
	return txStore{q: r.db}.UpdateTransaction(ctx, profileID, tx)
}

// DeleteTransaction implements store.TransactionStore
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, profileID, id string) error {
	return txStore{q: r.db}.DeleteTransaction(ctx, profileID, id)
}

// txStore runs the transaction log queries on a database or on an open
// write transaction.
type txStore struct {
	q querier
}

func (t txStore) ListTransactions(ctx context.Context, profileID string) ([]core.Transaction, error) {
	if err := requireProfile(ctx, t.q, profileID); err != nil {
		return nil, err
	}
	rows, err := t.q.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE profile_id = ? ORDER BY day, rowid`, profileID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (t txStore) InsertTransactions(ctx context.Context, profileID string, txs ...core.Transaction) error {
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			return err
		}
	}
	for _, tx := range txs {
		_, err := t.q.ExecContext(ctx,
			`INSERT INTO transactions (profile_id, `+transactionColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			append([]any{profileID}, transactionArgs(tx)...)...)
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
		}
	}
	slog.InfoContext(ctx, "Transactions saved to SQLite", "profile_id", profileID, "count", len(txs))
	return nil
}

func (t txStore) UpdateTransaction(ctx context.Context, profileID string, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	args := transactionArgs(tx)
	res, err := t.q.ExecContext(ctx, `
		UPDATE transactions SET amount_cents = ?, day = ?, type = ?, account = ?, is_gift = ?, is_hidden = ?,
			description = ?, category_id = ?, transfer_id = ?, asset_id = ?, liability_id = ?, loan_id = ?, details = ?
		WHERE profile_id = ? AND id = ?`,
		append(args[1:], profileID, tx.ID)...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return expectOneRow(res, "transaction", tx.ID)
}

func (t txStore) DeleteTransaction(ctx context.Context, profileID, id string) error {
	res, err := t.q.ExecContext(ctx, `DELETE FROM transactions WHERE profile_id = ? AND id = ?`, profileID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectOneRow(res, "transaction", id)
}

// ListFixedExpenses implements store.FixedExpenseStore
func (r *SQLiteRepository) ListFixedExpenses(ctx context.Context, profileID string) ([]core.FixedExpense, error) {
	if err := r.requireProfile(ctx, profileID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, start_day, end_day, every, description, amount_cents, account, category_id, last_execution
		FROM fixed_expenses WHERE profile_id = ? ORDER BY start_day, id`, profileID)
	if err != nil {
		return nil, fmt.Errorf("list fixed expenses: %w", err)
	}
	defer rows.Close()

	var out []core.FixedExpense
	for rows.Next() {
		var (
			fe                          core.FixedExpense
			start, end, every, acct, le string
		)
		if err := rows.Scan(&fe.ID, &start, &end, &every, &fe.Description, &fe.Amount.Cents, &acct, &fe.CategoryID, &le); err != nil {
			return nil, fmt.Errorf("scan fixed expense: %w", err)
		}
		fe.Every = core.Frequency(every)
		if fe.StartDate, err = core.ParseDate(start); err != nil {
			return nil, fmt.Errorf("fixed expense %s start: %w", fe.ID, err)
		}
		if fe.EndDate, err = parseOptionalDate(end); err != nil {
			return nil, fmt.Errorf("fixed expense %s end: %w", fe.ID, err)
		}
		if fe.LastExecution, err = parseOptionalDate(le); err != nil {
			return nil, fmt.Errorf("fixed expense %s last execution: %w", fe.ID, err)
		}
		if fe.Account, err = core.ParseAccountRef(acct); err != nil {
			return nil, fmt.Errorf("fixed expense %s account: %w", fe.ID, err)
		}
		out = append(out, fe)
	}
	return out, rows.Err()
}

// SaveFixedExpense implements store.FixedExpenseStore
func (r *SQLiteRepository) SaveFixedExpense(ctx context.Context, profileID string, fe core.FixedExpense) error {
	if err := fe.Validate(); err != nil {
		return err
	}
	if err := r.requireProfile(ctx, profileID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fixed_expenses
			(profile_id, id, start_day, end_day, every, description, amount_cents, account, category_id, last_execution)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (profile_id, id) DO UPDATE SET
			start_day = excluded.start_day, end_day = excluded.end_day, every = excluded.every,
			description = excluded.description, amount_cents = excluded.amount_cents,
			account = excluded.account, category_id = excluded.category_id`,
		profileID, fe.ID, fe.StartDate.String(), fe.EndDate.String(), string(fe.Every), fe.Description,
		fe.Amount.Cents, fe.Account.String(), fe.CategoryID, fe.LastExecution.String())
	if err != nil {
		return fmt.Errorf("save fixed expense: %w", err)
	}
	return nil
}

// MarkFixedExpenseExecuted implements store.FixedExpenseStore
func (r *SQLiteRepository) MarkFixedExpenseExecuted(ctx context.Context, profileID, id string, day core.Date) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE fixed_expenses SET last_execution = ? WHERE profile_id = ? AND id = ?`,
		day.String(), profileID, id)
	if err != nil {
		return fmt.Errorf("mark fixed expense executed: %w", err)
	}
	return expectOneRow(res, "fixed expense", id)
}

func (r *SQLiteRepository) requireProfile(ctx context.Context, profileID string) error {
	return requireProfile(ctx, r.db, profileID)
}

func requireProfile(ctx context.Context, q querier, profileID string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM profiles WHERE id = ?`, profileID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("profile %q: %w", profileID, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lookup profile: %w", err)
	}
	return nil
}

func transactionArgs(tx core.Transaction) []any {
	return []any{
		tx.ID, tx.Amount.Cents, tx.Date.String(), string(tx.Type), tx.Account.String(),
		tx.IsGift, tx.IsHidden,
		tx.Description, tx.CategoryID, tx.TransferID, tx.AssetID, tx.LiabilityID, tx.LoanID, tx.Details,
	}
}

func scanTransaction(rows *sql.Rows) (core.Transaction, error) {
	var (
		tx             core.Transaction
		day, typ, acct string
	)
	err := rows.Scan(&tx.ID, &tx.Amount.Cents, &day, &typ, &acct, &tx.IsGift, &tx.IsHidden,
		&tx.Description, &tx.CategoryID, &tx.TransferID, &tx.AssetID, &tx.LiabilityID, &tx.LoanID, &tx.Details)
	if err != nil {
		return tx, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Type = core.TransactionType(typ)
	if tx.Date, err = core.ParseDate(day); err != nil {
		return tx, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	if tx.Account, err = core.ParseAccountRef(acct); err != nil {
		return tx, fmt.Errorf("transaction %s account: %w", tx.ID, err)
	}
	return tx, nil
}

func parseOptionalDate(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}

func expectOneRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", kind, id, store.ErrNotFound)
	}
	return nil
}
