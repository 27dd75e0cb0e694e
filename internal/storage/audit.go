package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"fintrack/internal/core"
)

func (r *SQLiteRepository) CreateAuditEvent(ctx context.Context, e *core.AuditEvent) error {
	ensureID(&e.ID)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	meta := []byte("{}")
	if len(e.Metadata) > 0 {
		var err error
		if meta, err = json.Marshal(e.Metadata); err != nil {
			return fmt.Errorf("encode audit metadata: %w", err)
		}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, user_id, action, metadata, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Action, string(meta), formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListAuditEvents(ctx context.Context, userID string, limit int) ([]core.AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, action, metadata, created_at FROM audit_events
		 WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []core.AuditEvent
	for rows.Next() {
		var (
			e             core.AuditEvent
			meta, created string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &meta, &created); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode audit metadata: %w", err)
		}
		if e.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
