// Package statcache fronts the expensive dashboard aggregation with a
// best-effort key/value cache partitioned per identity hint.
package statcache

import (
	"context"
	"time"

	"github.com/FarelZIKRI/matchhub/internal/stats"
)

// DefaultTTL bounds how long a computed dashboard payload stays fresh.
const DefaultTTL = 300 * time.Second

const keyPrefix = "dashboard_stats_"

// Key derives the deterministic cache key for a token subject. The same
// subject always maps to the same key; distinct subjects never collide
// because subject values come from an external trusted issuer.
func Key(subject string) string {
	return keyPrefix + subject
}

// Entry is a cached dashboard payload. Entries are replaced wholesale, never
// mutated, and expire passively once now exceeds ExpiresAt.
type Entry struct {
	Payload   stats.Payload `json:"payload"`
	StoredAt  time.Time     `json:"storedAt"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// StatsCache abstracts the cache binding. Backends must treat their own
// failures as recoverable: the service absorbs every error as a miss or a
// no-op so the cache never fails the primary request path.
type StatsCache interface {
	Lookup(ctx context.Context, key string) (Entry, bool, error)
	Store(ctx context.Context, key string, entry Entry) error
	Close(ctx context.Context) error
}
