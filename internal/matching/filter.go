package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/FarelZIKRI/matchhub/internal/store"
)

const searchLimit = 6

// ErrNoInventory reports that no available influencer exists for the
// requested niche, even with every optional constraint relaxed.
var ErrNoInventory = errors.New("matching: no influencers available for this niche")

// Searcher is the slice of the relational store the filter chain queries.
type Searcher interface {
	Search(ctx context.Context, filter store.SearchFilter) ([]store.Candidate, error)
}

// FilterChain runs a progressive constraint-relaxation search: the full
// criteria first, then without location, then with niche alone. The niche
// constraint is never dropped.
type FilterChain struct {
	searcher Searcher
	logger   *slog.Logger
}

// NewFilterChain builds the relaxation search over the given store.
func NewFilterChain(searcher Searcher, logger *slog.Logger) *FilterChain {
	if logger == nil {
		logger = slog.Default()
	}
	return &FilterChain{searcher: searcher, logger: logger.With(slog.String("agent", "filter_chain"))}
}

// Search returns the first non-empty attempt's candidates, at most 6,
// ordered by descending rating. When even the niche-only attempt finds
// nothing it returns ErrNoInventory.
func (f *FilterChain) Search(ctx context.Context, criteria Criteria) ([]store.Candidate, error) {
	attempts := []store.SearchFilter{
		{Niche: criteria.Niche, MaxPrice: criteria.Budget, Limit: searchLimit},
		{Niche: criteria.Niche, MaxPrice: criteria.Budget, Limit: searchLimit},
		{Niche: criteria.Niche, Limit: searchLimit},
	}
	if criteria.LocationConstrained() {
		attempts[0].Location = criteria.Location
	}

	for i, filter := range attempts {
		candidates, err := f.searcher.Search(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("matching: search attempt %d: %w", i+1, err)
		}
		if len(candidates) > 0 {
			if i > 0 {
				f.logger.Debug("constraints relaxed", slog.Int("attempt", i+1), slog.String("niche", criteria.Niche))
			}
			return candidates, nil
		}
	}
	return nil, ErrNoInventory
}
