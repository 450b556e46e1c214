// Package matching implements the deterministic candidate search and
// point-based ranking used by the matchmaking wizard.
package matching

import "github.com/FarelZIKRI/matchhub/internal/store"

// AllLocations is the wizard's "anywhere" choice; it disables the location
// constraint entirely.
const AllLocations = "Semua Lokasi"

// Criteria captures one matching session's constraints. Immutable for the
// duration of a recommendation request. Niche is the one non-negotiable
// criterion; budget and location are relaxable.
type Criteria struct {
	Niche    string
	Budget   *int64
	Location string
	Goal     string
}

// LocationConstrained reports whether the location criterion actually
// narrows the search.
func (c Criteria) LocationConstrained() bool {
	return c.Location != "" && c.Location != AllLocations
}

// ScoredCandidate pairs a candidate with its match score and rationale.
// Created per request and discarded after the response is returned.
type ScoredCandidate struct {
	store.Candidate
	MatchScore int    `json:"match_score"`
	Reason     string `json:"ai_reason,omitempty"`
}
