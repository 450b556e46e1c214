// Package store reads influencer marketplace data from the relational
// backend. All queries are read-only: the core never writes business data.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
)

// Candidate is a read-only snapshot of an influencer row joined with the
// owning user's display data.
type Candidate struct {
	ID             string  `json:"id"`
	Niche          string  `json:"niche"`
	Platform       string  `json:"platform"`
	Followers      int64   `json:"followers_count"`
	EngagementRate float64 `json:"engagement_rate"`
	PricePerPost   int64   `json:"price_per_post"`
	Location       string  `json:"location"`
	Rating         float64 `json:"avg_rating"`
	TotalOrders    int64   `json:"total_orders"`
	Name           string  `json:"name"`
	AvatarURL      string  `json:"avatar_url,omitempty"`
}

// SearchFilter narrows the candidate search. Niche is mandatory for
// relevance; Location and MaxPrice are optional refinements.
type SearchFilter struct {
	Niche    string
	Location string
	MaxPrice *int64
	Limit    int
}

// Store wraps the relational backend connection.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to the Postgres backend and verifies reachability.
func Open(ctx context.Context, url string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("store: database url required")
	}
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger.With(slog.String("agent", "store"))}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// CountAvailableInfluencers counts influencers currently open for campaigns.
func (s *Store) CountAvailableInfluencers(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM influencers WHERE is_available`)
}

// CountBusinessUsers counts registered small-business accounts.
func (s *Store) CountBusinessUsers(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM users WHERE user_type = 'sme'`)
}

// CountOrders counts campaigns ever placed through the marketplace.
func (s *Store) CountOrders(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM orders`)
}

func (s *Store) count(ctx context.Context, query string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, query).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

const candidateColumns = `
	i.id, i.niche, i.platform, i.followers_count, i.engagement_rate,
	i.price_per_post, i.location, i.avg_rating, i.total_orders,
	u.name, COALESCE(u.avatar_url, '')`

// TopInfluencers returns the highest-rated available influencers with their
// profile display data. Rating ties fall back to the store's default order.
func (s *Store) TopInfluencers(ctx context.Context, limit int) ([]Candidate, error) {
	query := `SELECT ` + candidateColumns + `
		FROM influencers i
		JOIN users u ON u.id = i.user_id
		WHERE i.is_available
		ORDER BY i.avg_rating DESC
		LIMIT $1`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: top influencers: %w", err)
	}
	defer rows.Close()
	return scanCandidates(rows)
}

// Search returns available influencers matching the filter, ordered by
// descending rating. The niche constraint is always applied when set.
func (s *Store) Search(ctx context.Context, filter SearchFilter) ([]Candidate, error) {
	var (
		conds = []string{"i.is_available"}
		args  []any
	)
	if filter.Niche != "" {
		args = append(args, filter.Niche)
		conds = append(conds, fmt.Sprintf("i.niche = $%d", len(args)))
	}
	if filter.Location != "" {
		args = append(args, "%"+filter.Location+"%")
		conds = append(conds, fmt.Sprintf("i.location ILIKE $%d", len(args)))
	}
	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		conds = append(conds, fmt.Sprintf("i.price_per_post <= $%d", len(args)))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit)

	query := `SELECT ` + candidateColumns + `
		FROM influencers i
		JOIN users u ON u.id = i.user_id
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY i.avg_rating DESC
		LIMIT $` + fmt.Sprint(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()
	return scanCandidates(rows)
}

func scanCandidates(rows *sql.Rows) ([]Candidate, error) {
	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(
			&c.ID, &c.Niche, &c.Platform, &c.Followers, &c.EngagementRate,
			&c.PricePerPost, &c.Location, &c.Rating, &c.TotalOrders,
			&c.Name, &c.AvatarURL,
		); err != nil {
			return nil, fmt.Errorf("store: scan candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: rows: %w", err)
	}
	return out, nil
}
