package views

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SQLiteCounter keeps counts in the project_views table. Timestamps are
// whole UTC seconds so their text form compares in time order.
type SQLiteCounter struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ Counter = (*SQLiteCounter)(nil)
	_ Expirer = (*SQLiteCounter)(nil)
)

func NewSQLiteCounter(db *sql.DB) *SQLiteCounter {
	return &SQLiteCounter{db: db, now: func() time.Time { return time.Now().UTC().Truncate(time.Second) }}
}

func (c *SQLiteCounter) Views(ctx context.Context, slugs []string) (map[string]int64, error) {
	out := zeroed(slugs)
	if len(slugs) == 0 {
		return out, nil
	}

	args := make([]any, len(slugs))
	for i, s := range slugs {
		args[i] = s
	}
	query := `SELECT slug, views FROM project_views WHERE slug IN (?` + strings.Repeat(",?", len(slugs)-1) + `)`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query view counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var slug string
		var n int64
		if err := rows.Scan(&slug, &n); err != nil {
			return nil, fmt.Errorf("failed to scan view count: %w", err)
		}
		out[slug] = n
	}
	return out, rows.Err()
}

func (c *SQLiteCounter) Record(ctx context.Context, slug, visitor string) (int64, bool, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin view tx: %w", err)
	}
	defer tx.Rollback()

	if visitor != "" {
		now := c.now()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO view_dedup (hashed_ip, slug, expires_at) VALUES (?, ?, ?)
			ON CONFLICT (hashed_ip, slug) DO UPDATE SET expires_at = excluded.expires_at
			WHERE view_dedup.expires_at <= ?`,
			visitor, slug, now.Add(DedupWindow), now)
		if err != nil {
			return 0, false, fmt.Errorf("failed to deduplicate view: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			var n int64
			err := tx.QueryRowContext(ctx, `SELECT views FROM project_views WHERE slug = ?`, slug).Scan(&n)
			if err != nil && err != sql.ErrNoRows {
				return 0, false, fmt.Errorf("failed to get views: %w", err)
			}
			return n, false, nil
		}
	}

	var n int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO project_views (slug, views) VALUES (?, 1)
		ON CONFLICT (slug) DO UPDATE SET views = views + 1
		RETURNING views`, slug).Scan(&n)
	if err != nil {
		return 0, false, fmt.Errorf("failed to increment views: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("failed to commit view: %w", err)
	}
	return n, true, nil
}

// PurgeExpired drops dedup rows whose window has passed.
func (c *SQLiteCounter) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM view_dedup WHERE expires_at <= ?`, c.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge view dedup rows: %w", err)
	}
	return res.RowsAffected()
}
