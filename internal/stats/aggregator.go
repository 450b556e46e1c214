// Package stats computes the dashboard aggregate counts and the
// top-influencer leaderboard.
package stats

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/FarelZIKRI/matchhub/internal/store"
)

const topInfluencerLimit = 4

// Source is the slice of the relational store the aggregator reads.
type Source interface {
	CountAvailableInfluencers(ctx context.Context) (int64, error)
	CountBusinessUsers(ctx context.Context) (int64, error)
	CountOrders(ctx context.Context) (int64, error)
	TopInfluencers(ctx context.Context, limit int) ([]store.Candidate, error)
}

// Totals carries the headline dashboard counters.
type Totals struct {
	Influencers  int64 `json:"influencers"`
	SMEs         int64 `json:"smes"`
	Campaigns    int64 `json:"campaigns"`
	Satisfaction int64 `json:"satisfaction"`
}

// Payload is the full dashboard response body.
type Payload struct {
	Stats          Totals            `json:"stats"`
	TopInfluencers []store.Candidate `json:"topInfluencers"`
	Personalized   bool              `json:"personalized"`
}

// OfflinePayload is served when the relational store is unreachable or not
// configured. Plausible marketing defaults, deliberately distinguishable from
// live data via the response source header.
func OfflinePayload() Payload {
	return Payload{
		Stats: Totals{
			Influencers:  500,
			SMEs:         1200,
			Campaigns:    5000,
			Satisfaction: 98,
		},
		TopInfluencers: []store.Candidate{},
	}
}

// Aggregator computes the dashboard payload on cache misses.
type Aggregator struct {
	source Source
	logger *slog.Logger
}

// New builds an aggregator over the given source. A nil source is allowed and
// forces the offline payload, covering the credentials-absent configuration.
func New(source Source, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{source: source, logger: logger.With(slog.String("agent", "stats_aggregator"))}
}

// Compute issues the three count queries concurrently plus the leaderboard
// query, joining all before returning. A single failing query degrades to
// zero (or an empty leaderboard); when every query fails the store is treated
// as unreachable and the offline payload is returned instead. The second
// return value reports whether the payload is the offline default.
func (a *Aggregator) Compute(ctx context.Context) (Payload, bool) {
	if a.source == nil {
		return OfflinePayload(), true
	}

	var (
		totals   Totals
		top      []store.Candidate
		failures int
	)
	totals.Satisfaction = 98

	g, gctx := errgroup.WithContext(ctx)
	counts := []struct {
		name  string
		query func(context.Context) (int64, error)
		dst   *int64
	}{
		{"influencers", a.source.CountAvailableInfluencers, &totals.Influencers},
		{"smes", a.source.CountBusinessUsers, &totals.SMEs},
		{"campaigns", a.source.CountOrders, &totals.Campaigns},
	}
	errs := make([]error, len(counts)+1)
	for i, c := range counts {
		g.Go(func() error {
			n, err := c.query(gctx)
			if err != nil {
				errs[i] = err
				return nil
			}
			*c.dst = n
			return nil
		})
	}
	g.Go(func() error {
		candidates, err := a.source.TopInfluencers(gctx, topInfluencerLimit)
		if err != nil {
			errs[len(counts)] = err
			return nil
		}
		top = candidates
		return nil
	})
	_ = g.Wait()

	for i, err := range errs {
		if err == nil {
			continue
		}
		failures++
		a.logger.Warn("stats query failed", slog.Int("query", i), slog.Any("error", err))
	}
	if failures == len(errs) {
		return OfflinePayload(), true
	}

	if top == nil {
		top = []store.Candidate{}
	}
	return Payload{Stats: totals, TopInfluencers: top}, false
}
