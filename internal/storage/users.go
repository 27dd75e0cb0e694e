package storage

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
)

func (r *SQLiteRepository) CreateUser(ctx context.Context, u *core.User) error {
	ensureID(&u.ID)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now()
	}
	u.Currency = core.NormalizeCurrency(u.Currency)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, currency, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Currency, formatTime(u.CreatedAt))
	if isUniqueViolation(err) {
		return core.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const userColumns = `id, email, name, password_hash, currency, created_at`

func scanUser(s rowScanner) (core.User, error) {
	var (
		u       core.User
		created string
	)
	if err := s.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Currency, &created); err != nil {
		return u, err
	}
	var err error
	u.CreatedAt, err = parseTime(created)
	return u, err
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return u, notFound(err, "user")
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return u, notFound(err, "user")
	}
	return u, nil
}

func (r *SQLiteRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, s core.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		s.Token, s.UserID, formatTime(s.ExpiresAt))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetSession(ctx context.Context, token string) (core.Session, error) {
	var (
		s       core.Session
		expires string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT token, user_id, expires_at FROM sessions WHERE token = ?`, token).
		Scan(&s.Token, &s.UserID, &expires)
	if err != nil {
		return s, notFound(err, "session")
	}
	s.ExpiresAt, err = parseTime(expires)
	return s, err
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired before now.
func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
