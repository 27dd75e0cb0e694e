package storage

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
)

const notificationColumns = `id, user_id, title, body, channel, is_read, delivered_at, created_at`

func insertNotification(ctx context.Context, db execer, n *core.Notification, now time.Time) error {
	ensureID(&n.ID)
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.Channel == "" {
		n.Channel = core.ChannelInApp
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO notifications (`+notificationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Title, n.Body, string(n.Channel), boolToInt(n.Read),
		formatTime(n.DeliveredAt), formatTime(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func scanNotification(s rowScanner) (core.Notification, error) {
	var (
		n                  core.Notification
		channel            string
		read               int
		delivered, created string
	)
	if err := s.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &channel, &read, &delivered, &created); err != nil {
		return n, err
	}
	n.Channel = core.NotificationChannel(channel)
	n.Read = read == 1
	var err error
	if n.DeliveredAt, err = parseTime(delivered); err != nil {
		return n, err
	}
	n.CreatedAt, err = parseTime(created)
	return n, err
}

func (r *SQLiteRepository) CreateNotification(ctx context.Context, n *core.Notification) error {
	return insertNotification(ctx, r.db, n, r.now())
}

func (r *SQLiteRepository) GetNotification(ctx context.Context, id string) (core.Notification, error) {
	n, err := scanNotification(r.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id))
	if err != nil {
		return n, notFound(err, "notification")
	}
	return n, nil
}

// ListNotifications returns the user's in-app notifications, newest first.
func (r *SQLiteRepository) ListNotifications(ctx context.Context, userID string, limit int) ([]core.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE user_id = ? AND channel = ? ORDER BY created_at DESC LIMIT ?`,
		userID, string(core.ChannelInApp), limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []core.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// ListUndelivered returns email notifications not yet handed to the mailer.
func (r *SQLiteRepository) ListUndelivered(ctx context.Context, limit int) ([]core.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE channel = ? AND delivered_at = '' ORDER BY created_at LIMIT ?`,
		string(core.ChannelEmail), limit)
	if err != nil {
		return nil, fmt.Errorf("list undelivered notifications: %w", err)
	}
	defer rows.Close()

	var out []core.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkNotificationRead(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return checkAffected(res, "notification")
}

func (r *SQLiteRepository) MarkNotificationDelivered(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET delivered_at = ? WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("mark notification delivered: %w", err)
	}
	return checkAffected(res, "notification")
}
