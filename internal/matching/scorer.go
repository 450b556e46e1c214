package matching

import (
	"sort"
	"strings"

	"github.com/FarelZIKRI/matchhub/internal/store"
)

// MaxLocalScore caps deterministic scores at 98, reserving 99-100 for
// model or human judgments.
const MaxLocalScore = 98

// Score rates a single candidate against the criteria with the additive
// point rule. Pure: same inputs always yield the same score in [0, 98].
func Score(candidate store.Candidate, criteria Criteria) int {
	score := 40
	if candidate.Niche == criteria.Niche {
		score += 30
	}
	if criteria.LocationConstrained() &&
		strings.Contains(strings.ToLower(candidate.Location), strings.ToLower(criteria.Location)) {
		score += 15
	}
	if criteria.Budget != nil && candidate.PricePerPost <= *criteria.Budget {
		score += 10
	}
	if candidate.Rating >= 4.5 {
		score += 5
	}
	if score > MaxLocalScore {
		score = MaxLocalScore
	}
	return score
}

// RankLocal scores every candidate and orders the result by descending
// score. The sort is stable so rating ties keep the store's original order.
func RankLocal(candidates []store.Candidate, criteria Criteria) []ScoredCandidate {
	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		scored = append(scored, ScoredCandidate{
			Candidate:  candidate,
			MatchScore: Score(candidate, criteria),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].MatchScore > scored[j].MatchScore
	})
	return scored
}
