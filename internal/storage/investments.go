package storage

import (
	"context"
	"database/sql"
	"fmt"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

func (r *SQLiteRepository) CreateInvestmentAccount(ctx context.Context, a *core.InvestmentAccount) error {
	ensureID(&a.ID)
	a.Currency = core.NormalizeCurrency(a.Currency)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO investment_accounts (id, user_id, name, provider, currency) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, a.Provider, a.Currency)
	if err != nil {
		return fmt.Errorf("insert investment account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetInvestmentAccount(ctx context.Context, userID, id string) (core.InvestmentAccount, error) {
	var a core.InvestmentAccount
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, provider, currency FROM investment_accounts WHERE id = ? AND user_id = ?`,
		id, userID).Scan(&a.ID, &a.UserID, &a.Name, &a.Provider, &a.Currency)
	if err != nil {
		return a, notFound(err, "investment account")
	}
	return a, nil
}

func (r *SQLiteRepository) ListInvestmentAccounts(ctx context.Context, userID string) ([]core.InvestmentAccount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, provider, currency FROM investment_accounts WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list investment accounts: %w", err)
	}
	defer rows.Close()

	var out []core.InvestmentAccount
	for rows.Next() {
		var a core.InvestmentAccount
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Provider, &a.Currency); err != nil {
			return nil, fmt.Errorf("scan investment account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const holdingColumns = `h.id, h.account_id, h.symbol, h.name, h.quantity, h.avg_cost, h.current_price`

func scanHolding(s rowScanner) (core.Holding, error) {
	var h core.Holding
	err := s.Scan(&h.ID, &h.AccountID, &h.Symbol, &h.Name, &h.Quantity, &h.AvgCost, &h.CurrentPrice)
	return h, err
}

// UpsertHolding creates the holding or, when the account already holds the
// symbol, overwrites its quantity, cost and price. h.ID is set to the stored
// row's ID.
func (r *SQLiteRepository) UpsertHolding(ctx context.Context, h *core.Holding) error {
	ensureID(&h.ID)
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO holdings (id, account_id, symbol, name, quantity, avg_cost, current_price)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (account_id, symbol) DO UPDATE SET
		   name = excluded.name,
		   quantity = excluded.quantity,
		   avg_cost = excluded.avg_cost,
		   current_price = excluded.current_price
		 RETURNING id`,
		h.ID, h.AccountID, h.Symbol, h.Name, h.Quantity, h.AvgCost, h.CurrentPrice).Scan(&h.ID)
	if err != nil {
		return fmt.Errorf("upsert holding: %w", err)
	}
	return nil
}

// GetHolding loads a holding, checking that it belongs to the user.
func (r *SQLiteRepository) GetHolding(ctx context.Context, userID, id string) (core.Holding, error) {
	h, err := scanHolding(r.db.QueryRowContext(ctx,
		`SELECT `+holdingColumns+` FROM holdings h
		 JOIN investment_accounts a ON a.id = h.account_id
		 WHERE h.id = ? AND a.user_id = ?`, id, userID))
	if err != nil {
		return h, notFound(err, "holding")
	}
	return h, nil
}

// ListHoldings returns every holding across the user's accounts.
func (r *SQLiteRepository) ListHoldings(ctx context.Context, userID string) ([]core.Holding, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+holdingColumns+` FROM holdings h
		 JOIN investment_accounts a ON a.id = h.account_id
		 WHERE a.user_id = ? ORDER BY h.symbol`, userID)
	if err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}
	defer rows.Close()

	var out []core.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateHoldingPrice(ctx context.Context, id string, price decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx, `UPDATE holdings SET current_price = ? WHERE id = ?`, price, id)
	if err != nil {
		return fmt.Errorf("update holding price: %w", err)
	}
	return checkAffected(res, "holding")
}

// AddInvestmentTransaction stores the transaction and, when h is non-nil,
// the holding's new quantity, average cost and last traded price.
func (r *SQLiteRepository) AddInvestmentTransaction(ctx context.Context, t *core.InvestmentTransaction, h *core.Holding) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		ensureID(&t.ID)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO investment_transactions (id, account_id, holding_id, type, quantity, price, amount, date, notes)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.AccountID, t.HoldingID, string(t.Type), t.Quantity, t.Price, t.Amount, formatTime(t.Date), t.Notes); err != nil {
			return fmt.Errorf("insert investment transaction: %w", err)
		}
		if h == nil {
			return nil
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE holdings SET quantity = ?, avg_cost = ?, current_price = ? WHERE id = ?`,
			h.Quantity, h.AvgCost, h.CurrentPrice, h.ID)
		if err != nil {
			return fmt.Errorf("update holding: %w", err)
		}
		return checkAffected(res, "holding")
	})
}

func (r *SQLiteRepository) ListInvestmentTransactions(ctx context.Context, accountID string) ([]core.InvestmentTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, holding_id, type, quantity, price, amount, date, notes
		 FROM investment_transactions WHERE account_id = ? ORDER BY date DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list investment transactions: %w", err)
	}
	defer rows.Close()

	var out []core.InvestmentTransaction
	for rows.Next() {
		var (
			t          core.InvestmentTransaction
			kind, date string
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &t.HoldingID, &kind, &t.Quantity, &t.Price, &t.Amount, &date, &t.Notes); err != nil {
			return nil, fmt.Errorf("scan investment transaction: %w", err)
		}
		t.Type = core.InvestmentTxType(kind)
		if t.Date, err = parseTime(date); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
