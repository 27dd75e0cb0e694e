package storage

import (
	"context"
	"database/sql"
	"fmt"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

const goalColumns = `id, user_id, name, target_amount, current_amount, target_date`

func scanGoal(s rowScanner) (core.Goal, error) {
	var (
		g          core.Goal
		targetDate string
	)
	if err := s.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &targetDate); err != nil {
		return g, err
	}
	var err error
	g.TargetDate, err = parseTime(targetDate)
	return g, err
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g *core.Goal) error {
	ensureID(&g.ID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (`+goalColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Name, g.TargetAmount, g.CurrentAmount, formatTime(g.TargetDate))
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, userID, id string) (core.Goal, error) {
	g, err := scanGoal(r.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return g, notFound(err, "goal")
	}
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// AddContribution records the contribution, its optional linked transaction
// and the goal's new current amount in one database transaction. It returns
// the updated current amount.
func (r *SQLiteRepository) AddContribution(ctx context.Context, c *core.Contribution, linked *core.Transaction) (decimal.Decimal, error) {
	now := r.now()
	var current decimal.Decimal
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`SELECT current_amount FROM goals WHERE id = ?`, c.GoalID).Scan(&current); err != nil {
			return notFound(err, "goal")
		}
		if linked != nil {
			if err := insertTransaction(ctx, tx, linked, now); err != nil {
				return err
			}
			c.TransactionID = linked.ID
		}
		ensureID(&c.ID)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO contributions (id, goal_id, amount, date, transaction_id) VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.GoalID, c.Amount, formatTime(c.Date), c.TransactionID); err != nil {
			return fmt.Errorf("insert contribution: %w", err)
		}
		current = current.Add(c.Amount)
		if _, err := tx.ExecContext(ctx,
			`UPDATE goals SET current_amount = ? WHERE id = ?`, current, c.GoalID); err != nil {
			return fmt.Errorf("update goal amount: %w", err)
		}
		return nil
	})
	return current, err
}

func (r *SQLiteRepository) ListContributions(ctx context.Context, goalID string) ([]core.Contribution, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, goal_id, amount, date, transaction_id FROM contributions WHERE goal_id = ? ORDER BY date DESC`, goalID)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer rows.Close()

	var out []core.Contribution
	for rows.Next() {
		var (
			c    core.Contribution
			date string
		)
		if err := rows.Scan(&c.ID, &c.GoalID, &c.Amount, &date, &c.TransactionID); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		if c.Date, err = parseTime(date); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
