package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// CreateCategories inserts categories, skipping names the user already has.
// IDs assigned to skipped entries do not exist in the store.
func (r *SQLiteRepository) CreateCategories(ctx context.Context, categories []core.Category) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for i := range categories {
			c := &categories[i]
			ensureID(&c.ID)
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO categories (id, user_id, name, color) VALUES (?, ?, ?, ?)
				 ON CONFLICT (user_id, name) DO NOTHING`,
				c.ID, c.UserID, c.Name, c.Color); err != nil {
				return fmt.Errorf("insert category %q: %w", c.Name, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, color FROM categories WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FindCategoryByName matches a category name case-insensitively.
func (r *SQLiteRepository) FindCategoryByName(ctx context.Context, userID, name string) (core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, color FROM categories WHERE user_id = ? AND lower(name) = lower(?)`,
		userID, name).Scan(&c.ID, &c.UserID, &c.Name, &c.Color)
	if err != nil {
		return c, notFound(err, "category")
	}
	return c, nil
}

func (r *SQLiteRepository) CreateRule(ctx context.Context, rule *core.CategorizationRule) error {
	return insertRule(ctx, r.db, rule, r.now())
}

func insertRule(ctx context.Context, db execer, rule *core.CategorizationRule, now time.Time) error {
	ensureID(&rule.ID)
	_, err := db.ExecContext(ctx,
		`INSERT INTO categorization_rules (id, user_id, priority, merchant_pattern, keyword_pattern, category_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.UserID, rule.Priority, rule.MerchantPattern, rule.KeywordPattern, rule.CategoryID, formatTime(now))
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	return nil
}

// ListRules returns a user's rules in creation order.
func (r *SQLiteRepository) ListRules(ctx context.Context, userID string) ([]core.CategorizationRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, priority, merchant_pattern, keyword_pattern, category_id
		 FROM categorization_rules WHERE user_id = ? ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var out []core.CategorizationRule
	for rows.Next() {
		var rule core.CategorizationRule
		if err := rows.Scan(&rule.ID, &rule.UserID, &rule.Priority, &rule.MerchantPattern, &rule.KeywordPattern, &rule.CategoryID); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteRule(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categorization_rules WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return checkAffected(res, "rule")
}

// AddKeywords appends dictionary entries. Insertion order is preserved by
// ListKeywords.
func (r *SQLiteRepository) AddKeywords(ctx context.Context, entries []core.KeywordEntry) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for i := range entries {
			e := &entries[i]
			ensureID(&e.ID)
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO keyword_dictionary (id, user_id, keyword, category_id) VALUES (?, ?, ?, ?)`,
				e.ID, e.UserID, e.Keyword, e.CategoryID); err != nil {
				return fmt.Errorf("insert keyword %q: %w", e.Keyword, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) ListKeywords(ctx context.Context, userID string) ([]core.KeywordEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, keyword, category_id FROM keyword_dictionary WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list keywords: %w", err)
	}
	defer rows.Close()

	var out []core.KeywordEntry
	for rows.Next() {
		var e core.KeywordEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Keyword, &e.CategoryID); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
