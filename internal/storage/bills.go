package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// BillReminder is the outcome of processing one due bill. RemindedOn is the
// local date (YYYY-MM-DD) of the run that produced it.
type BillReminder struct {
	BillID        string
	Notifications []core.Notification
	NextDueDate   time.Time
	Active        bool
	RemindedOn    string
}

const billColumns = `id, user_id, name, amount, currency, frequency, due_day, due_date, next_due_date, category_id, active`

func scanBill(s rowScanner) (core.Bill, error) {
	var (
		b                core.Bill
		frequency        string
		dueDate, nextDue string
		active           int
	)
	if err := s.Scan(&b.ID, &b.UserID, &b.Name, &b.Amount, &b.Currency, &frequency, &b.DueDay,
		&dueDate, &nextDue, &b.CategoryID, &active); err != nil {
		return b, err
	}
	b.Frequency = core.Frequency(frequency)
	b.Active = active == 1
	var err error
	if b.DueDate, err = parseTime(dueDate); err != nil {
		return b, err
	}
	b.NextDueDate, err = parseTime(nextDue)
	return b, err
}

func (r *SQLiteRepository) queryBills(ctx context.Context, query string, args ...any) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	var out []core.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateBill(ctx context.Context, b *core.Bill) error {
	ensureID(&b.ID)
	b.Currency = core.NormalizeCurrency(b.Currency)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bills (`+billColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.Name, b.Amount, b.Currency, string(b.Frequency), b.DueDay,
		formatTime(b.DueDate), formatTime(b.NextDueDate), b.CategoryID, boolToInt(b.Active))
	if err != nil {
		return fmt.Errorf("insert bill: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetBill(ctx context.Context, userID, id string) (core.Bill, error) {
	b, err := scanBill(r.db.QueryRowContext(ctx,
		`SELECT `+billColumns+` FROM bills WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return b, notFound(err, "bill")
	}
	return b, nil
}

func (r *SQLiteRepository) ListBills(ctx context.Context, userID string) ([]core.Bill, error) {
	return r.queryBills(ctx,
		`SELECT `+billColumns+` FROM bills WHERE user_id = ? ORDER BY next_due_date`, userID)
}

// ListUpcomingBills returns the user's active bills, soonest first.
func (r *SQLiteRepository) ListUpcomingBills(ctx context.Context, userID string, limit int) ([]core.Bill, error) {
	return r.queryBills(ctx,
		`SELECT `+billColumns+` FROM bills WHERE user_id = ? AND active = 1 ORDER BY next_due_date LIMIT ?`,
		userID, limit)
}

// ListDueBills returns active bills of every user due on or before the
// cutoff that have not been reminded on day (YYYY-MM-DD) or later.
func (r *SQLiteRepository) ListDueBills(ctx context.Context, cutoff time.Time, day string) ([]core.Bill, error) {
	return r.queryBills(ctx,
		`SELECT `+billColumns+` FROM bills
		WHERE active = 1 AND next_due_date <= ? AND last_reminded_on < ?
		ORDER BY next_due_date`,
		formatTime(cutoff), day)
}

func (r *SQLiteRepository) SetBillActive(ctx context.Context, userID, id string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bills SET active = ? WHERE id = ? AND user_id = ?`, boolToInt(active), id, userID)
	if err != nil {
		return fmt.Errorf("update bill: %w", err)
	}
	return checkAffected(res, "bill")
}

// MarkBillPaid records the optional payment transaction and the
// confirmation notification together.
func (r *SQLiteRepository) MarkBillPaid(ctx context.Context, payment *core.Transaction, n *core.Notification) error {
	now := r.now()
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if payment != nil {
			if err := insertTransaction(ctx, tx, payment, now); err != nil {
				return err
			}
		}
		return insertNotification(ctx, tx, n, now)
	})
}

// ApplyBillReminder stores the reminder notifications and moves the bill's
// schedule forward atomically.
func (r *SQLiteRepository) ApplyBillReminder(ctx context.Context, rem BillReminder) error {
	now := r.now()
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for i := range rem.Notifications {
			if err := insertNotification(ctx, tx, &rem.Notifications[i], now); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE bills SET next_due_date = ?, active = ?, last_reminded_on = ? WHERE id = ?`,
			formatTime(rem.NextDueDate), boolToInt(rem.Active), rem.RemindedOn, rem.BillID)
		if err != nil {
			return fmt.Errorf("advance bill: %w", err)
		}
		return checkAffected(res, "bill")
	})
}
