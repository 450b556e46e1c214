// Package recommend combines the relational candidate query, the external
// ranking model, and a deterministic fallback into a single recommendation
// result that never fails for model-side reasons.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/FarelZIKRI/matchhub/internal/matching"
	"github.com/FarelZIKRI/matchhub/internal/metrics"
	"github.com/FarelZIKRI/matchhub/internal/store"
)

const (
	candidateLimit = 10
	resultLimit    = 5

	fallbackReason = "Cocok berdasarkan niche dan budget."
)

// CandidateSource is the slice of the relational store the orchestrator
// queries for ranking candidates.
type CandidateSource interface {
	Search(ctx context.Context, filter store.SearchFilter) ([]store.Candidate, error)
}

// Orchestrator owns the model-or-fallback recommendation policy.
type Orchestrator struct {
	source  CandidateSource
	model   ModelClient
	timeout time.Duration
	logger  *slog.Logger
}

// Options configures the orchestrator. Model may be nil, in which case the
// deterministic fallback always serves.
type Options struct {
	Source  CandidateSource
	Model   ModelClient
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewOrchestrator wires the recommendation pipeline.
func NewOrchestrator(opts Options) *Orchestrator {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		source:  opts.Source,
		model:   opts.Model,
		timeout: timeout,
		logger:  logger.With(slog.String("agent", "recommendation")),
	}
}

// Recommend fetches up to 10 candidates for the profile's niche (and budget
// when present), asks the model to rank them, and falls back to the fixed
// index ranking when the model is unavailable or its reply is unusable.
// Model-side failures are absorbed; only a store error is surfaced.
func (o *Orchestrator) Recommend(ctx context.Context, profile Profile) ([]matching.ScoredCandidate, metrics.RankingSource, error) {
	candidates, err := o.source.Search(ctx, store.SearchFilter{
		Niche:    profile.Niche,
		MaxPrice: profile.Budget,
		Limit:    candidateLimit,
	})
	if err != nil {
		return nil, metrics.RankingSourceFallback, fmt.Errorf("recommend: fetch candidates: %w", err)
	}
	if len(candidates) == 0 {
		return []matching.ScoredCandidate{}, metrics.RankingSourceFallback, nil
	}

	if ranked := o.rankWithModel(ctx, profile, candidates); len(ranked) > 0 {
		return ranked, metrics.RankingSourceModel, nil
	}
	return fallbackRanking(candidates), metrics.RankingSourceFallback, nil
}

// rankWithModel runs the external ranking path. Any failure returns nil and
// is logged; no partial results are merged with the fallback.
func (o *Orchestrator) rankWithModel(ctx context.Context, profile Profile, candidates []store.Candidate) []matching.ScoredCandidate {
	if o.model == nil {
		return nil
	}
	prompt, err := BuildPrompt(profile, candidates)
	if err != nil {
		o.logger.Warn("prompt build failed", slog.Any("error", err))
		return nil
	}

	modelCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	reply, err := o.model.Complete(modelCtx, prompt)
	if err != nil {
		o.logger.Warn("ranking model call failed", slog.Any("error", err))
		return nil
	}

	rankings := ParseRankings(reply)
	if len(rankings) == 0 {
		o.logger.Warn("ranking model reply unparsable", slog.Int("reply_len", len(reply)))
		return nil
	}

	byID := make(map[string]store.Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}
	ranked := make([]matching.ScoredCandidate, 0, len(rankings))
	for _, r := range rankings {
		candidate, ok := byID[r.ID]
		if !ok {
			// Hallucinated ids are dropped silently.
			continue
		}
		ranked = append(ranked, matching.ScoredCandidate{
			Candidate:  candidate,
			MatchScore: clampScore(r.MatchScore),
			Reason:     r.Reason,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MatchScore > ranked[j].MatchScore
	})
	if len(ranked) > resultLimit {
		ranked = ranked[:resultLimit]
	}
	return ranked
}

// fallbackRanking assigns 90, 82, 74, ... floored at 50 to the first five
// candidates in their original store order.
func fallbackRanking(candidates []store.Candidate) []matching.ScoredCandidate {
	n := len(candidates)
	if n > resultLimit {
		n = resultLimit
	}
	ranked := make([]matching.ScoredCandidate, 0, n)
	for i := 0; i < n; i++ {
		score := 90 - 8*i
		if score < 50 {
			score = 50
		}
		ranked = append(ranked, matching.ScoredCandidate{
			Candidate:  candidates[i],
			MatchScore: score,
			Reason:     fallbackReason,
		})
	}
	return ranked
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
