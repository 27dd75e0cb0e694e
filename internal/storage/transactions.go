package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// TransactionFilter narrows ListTransactions. Zero times leave that bound
// open and a zero Limit returns everything.
type TransactionFilter struct {
	UserID string
	From   time.Time
	To     time.Time
	Limit  int
}

const transactionColumns = `id, user_id, date, description, merchant, amount, currency, category_id, account, payment_method, notes, source, created_at`

func insertTransaction(ctx context.Context, db execer, t *core.Transaction, now time.Time) error {
	ensureID(&t.ID)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.Source == "" {
		t.Source = core.SourceManual
	}
	t.Currency = core.NormalizeCurrency(t.Currency)
	_, err := db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, formatTime(t.Date), t.Description, t.Merchant, t.Amount, t.Currency,
		t.CategoryID, t.Account, t.PaymentMethod, t.Notes, string(t.Source), formatTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		t             core.Transaction
		date, created string
		source        string
	)
	if err := s.Scan(&t.ID, &t.UserID, &date, &t.Description, &t.Merchant, &t.Amount, &t.Currency,
		&t.CategoryID, &t.Account, &t.PaymentMethod, &t.Notes, &source, &created); err != nil {
		return t, err
	}
	t.Source = core.TransactionSource(source)
	var err error
	if t.Date, err = parseTime(date); err != nil {
		return t, err
	}
	t.CreatedAt, err = parseTime(created)
	return t, err
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	return insertTransaction(ctx, r.db, t, r.now())
}

// CreateTransactions inserts all transactions or none of them.
func (r *SQLiteRepository) CreateTransactions(ctx context.Context, txs []core.Transaction) error {
	now := r.now()
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for i := range txs {
			if err := insertTransaction(ctx, tx, &txs[i], now); err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return t, notFound(err, "transaction")
	}
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return checkAffected(res, "transaction")
}

// UpdateTransactionCategory sets a transaction's category and, when rule is
// non-nil, stores the rule in the same database transaction.
func (r *SQLiteRepository) UpdateTransactionCategory(ctx context.Context, userID, id, categoryID string, rule *core.CategorizationRule) error {
	now := r.now()
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE transactions SET category_id = ? WHERE id = ? AND user_id = ?`, categoryID, id, userID)
		if err != nil {
			return fmt.Errorf("update transaction category: %w", err)
		}
		if err := checkAffected(res, "transaction"); err != nil {
			return err
		}
		if rule == nil {
			return nil
		}
		return insertRule(ctx, tx, rule, now)
	})
}

// ListTransactions returns transactions newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ?`
	args := []any{f.UserID}
	if !f.From.IsZero() {
		query += ` AND date >= ?`
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		query += ` AND date <= ?`
		args = append(args, formatTime(f.To))
	}
	query += ` ORDER BY date DESC, created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
