// Package visitors records privacy-conscious page visits: raw IP addresses
// are never stored, only a salted hash.
package visitors

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"
)

// Retention is how long visit rows are kept.
const Retention = 365 * 24 * time.Hour

type Visit struct {
	ID        int64     `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

type PathStat struct {
	Path   string `json:"path"`
	Visits int64  `json:"visits"`
}

type Stats struct {
	TotalVisitors    int64      `json:"total_visitors"`
	UniqueVisitors   int64      `json:"unique_visitors"`
	VisitorsToday    int64      `json:"visitors_today"`
	VisitorsThisWeek int64      `json:"visitors_this_week"`
	TopPaths         []PathStat `json:"top_paths"`
	RecentVisitors   []Visit    `json:"recent_visitors"`
}

// Hasher derives stable, salted visitor ids from IP addresses.
type Hasher struct {
	salt string
}

// NewHasher uses salt when given, otherwise a random per-process salt.
func NewHasher(salt string) (*Hasher, error) {
	if salt == "" {
		s, err := RandomToken()
		if err != nil {
			return nil, err
		}
		salt = s
	}
	return &Hasher{salt: salt}, nil
}

func (h *Hasher) Hash(ip string) string {
	sum := sha256.Sum256([]byte(ip + h.salt))
	return hex.EncodeToString(sum[:])[:16]
}

// RandomToken returns 32 random bytes, hex encoded.
func RandomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

type Tracker struct {
	db  *sql.DB
	now func() time.Time
}

func NewTracker(db *sql.DB) *Tracker {
	return &Tracker{db: db, now: func() time.Time { return time.Now().UTC().Truncate(time.Second) }}
}

func (t *Tracker) Record(ctx context.Context, hashedIP, userAgent, path string) error {
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO visitors (hashed_ip, user_agent, path, timestamp)
		VALUES (?, ?, ?, ?)`, hashedIP, userAgent, path, t.now())
	if err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}
	return nil
}

// Cleanup removes visits older than Retention.
func (t *Tracker) Cleanup(ctx context.Context) (int64, error) {
	res, err := t.db.ExecContext(ctx, `DELETE FROM visitors WHERE timestamp < ?`, t.now().Add(-Retention))
	if err != nil {
		return 0, fmt.Errorf("failed to clean up visits: %w", err)
	}
	return res.RowsAffected()
}

func (t *Tracker) Recent(ctx context.Context, limit int) ([]Visit, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), timestamp
		FROM visitors
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		var v Visit
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

func (t *Tracker) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	now := t.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.TotalVisitors, `SELECT COUNT(*) FROM visitors`, nil},
		{&stats.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil},
		{&stats.VisitorsToday, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{startOfDay}},
		{&stats.VisitorsThisWeek, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{now.Add(-7 * 24 * time.Hour)}},
	}
	for _, c := range counts {
		if err := t.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("failed to count visits: %w", err)
		}
	}

	rows, err := t.db.QueryContext(ctx, `
		SELECT COALESCE(path, ''), COUNT(*) AS visits
		FROM visitors
		GROUP BY path
		ORDER BY visits DESC, path ASC
		LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("failed to query top paths: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p PathStat
		if err := rows.Scan(&p.Path, &p.Visits); err != nil {
			return nil, fmt.Errorf("failed to scan top path: %w", err)
		}
		stats.TopPaths = append(stats.TopPaths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats.RecentVisitors, err = t.Recent(ctx, 50)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
