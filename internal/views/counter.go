// Package views counts project page views. Counts live in Redis when it is
// configured and in sqlite otherwise.
package views

import (
	"context"
	"time"
)

// DedupWindow is how long a visitor is counted at most once per project.
const DedupWindow = 24 * time.Hour

type Counter interface {
	// Views returns the count for every slug in one round trip. Slugs that
	// were never viewed map to 0.
	Views(ctx context.Context, slugs []string) (map[string]int64, error)
	// Record counts a view of slug by visitor, a hashed visitor id. An empty
	// visitor is always counted. It returns the resulting count and whether
	// this call incremented it.
	Record(ctx context.Context, slug, visitor string) (int64, bool, error)
}

// Expirer is implemented by counters whose dedup markers need explicit
// purging. Redis expires them on its own.
type Expirer interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Key is the counter key for a project slug.
func Key(slug string) string {
	return "pageviews:projects:" + slug
}

func dedupKey(visitor, slug string) string {
	return "deduplicate:" + visitor + ":" + slug
}

func zeroed(slugs []string) map[string]int64 {
	out := make(map[string]int64, len(slugs))
	for _, s := range slugs {
		out[s] = 0
	}
	return out
}
