package storage

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

const commentColumns = `id, user_id, body, created_at`

func (r *SQLiteRepository) CreateComment(ctx context.Context, c *core.Comment) error {
	ensureID(&c.ID)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO comments (`+commentColumns+`) VALUES (?, ?, ?, ?)`,
		c.ID, c.UserID, c.Body, formatTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// ListComments returns the user's comments, newest first.
func (r *SQLiteRepository) ListComments(ctx context.Context, userID string, limit int) ([]core.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var out []core.Comment
	for rows.Next() {
		var (
			c       core.Comment
			created string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Body, &created); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		if c.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
