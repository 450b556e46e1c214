package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/FarelZIKRI/matchhub/internal/identity"
	"github.com/FarelZIKRI/matchhub/internal/matching"
	"github.com/FarelZIKRI/matchhub/internal/metrics"
	"github.com/FarelZIKRI/matchhub/internal/recommend"
)

// flexInt64 accepts a JSON number or a numeric string: the wizard submits
// budgets as strings. Null, empty, and unparsable values resolve to unset.
type flexInt64 struct {
	value *int64
}

func (f *flexInt64) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		n := int64(v)
		f.value = &n
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil
		}
		n := int64(parsed)
		f.value = &n
	}
	return nil
}

type profileRequest struct {
	SMEProfile struct {
		BusinessName   string    `json:"business_name"`
		Niche          string    `json:"niche"`
		Budget         flexInt64 `json:"budget"`
		TargetAudience string    `json:"target_audience"`
		Location       string    `json:"location"`
		CampaignGoal   string    `json:"campaign_goal"`
	} `json:"sme_profile"`
}

type criteriaRequest struct {
	Niche    string    `json:"niche"`
	Budget   flexInt64 `json:"budget"`
	Location string    `json:"location"`
	Goal     string    `json:"goal"`
}

type recommendationsResponse struct {
	Recommendations []matching.ScoredCandidate `json:"recommendations"`
	Message         string                     `json:"message,omitempty"`
}

// handleStats serves the personalized dashboard payload. The cache status
// and the key used are echoed as headers for observability; the offline
// default payload is flagged so it is never mistaken for live data.
func (rt *router) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rt.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	start := time.Now()
	hint := identity.FromAuthorization(r.Header.Get("Authorization"))
	result := rt.stats.Fetch(r.Context(), hint)

	w.Header().Set("X-Cache-Status", string(result.Status))
	w.Header().Set("X-Cache-Key", result.Key)
	source := "live"
	if result.Offline {
		source = "offline"
	}
	w.Header().Set("X-Stats-Source", source)

	rt.metrics.ObserveStatsRequest(string(result.Status), result.Offline, time.Since(start))
	rt.writeJSON(w, http.StatusOK, result.Payload)
}

// handleRecommendations serves the model-ranked recommendation list with the
// deterministic fallback behind it. Requires the relational store: without a
// candidate source there is no meaningful degradation.
func (rt *router) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rt.writeJSON(w, http.StatusOK, map[string]string{"message": "AI Recommendations API is running."})
		return
	case http.MethodPost:
	default:
		rt.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if rt.orchestrator == nil {
		rt.writeError(w, http.StatusInternalServerError, "missing backend configuration")
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rt.writeError(w, http.StatusInternalServerError, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	start := time.Now()
	ranked, source, err := rt.orchestrator.Recommend(r.Context(), recommend.Profile{
		BusinessName:   req.SMEProfile.BusinessName,
		Niche:          req.SMEProfile.Niche,
		Budget:         req.SMEProfile.Budget.value,
		TargetAudience: req.SMEProfile.TargetAudience,
		Location:       req.SMEProfile.Location,
		CampaignGoal:   req.SMEProfile.CampaignGoal,
	})
	if err != nil {
		rt.logger.Error("recommendation failed", slog.Any("error", err))
		rt.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rt.metrics.ObserveRecommendation(source, time.Since(start))
	rt.writeJSON(w, http.StatusOK, recommendationsResponse{Recommendations: ranked})
}

// handleMatchmaking serves the deterministic matching path: progressive
// constraint relaxation followed by the local point-based scorer.
func (rt *router) handleMatchmaking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rt.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if rt.matcher == nil {
		rt.writeError(w, http.StatusInternalServerError, "missing backend configuration")
		return
	}

	var req criteriaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rt.writeError(w, http.StatusInternalServerError, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	criteria := matching.Criteria{
		Niche:    req.Niche,
		Budget:   req.Budget.value,
		Location: req.Location,
		Goal:     req.Goal,
	}

	start := time.Now()
	candidates, err := rt.matcher.Search(r.Context(), criteria)
	if errors.Is(err, matching.ErrNoInventory) {
		rt.writeJSON(w, http.StatusOK, recommendationsResponse{
			Recommendations: []matching.ScoredCandidate{},
			Message:         "Belum ada influencer yang tersedia untuk kategori ini.",
		})
		return
	}
	if err != nil {
		rt.logger.Error("matchmaking failed", slog.Any("error", err))
		rt.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ranked := matching.RankLocal(candidates, criteria)
	rt.metrics.ObserveRecommendation(metrics.RankingSourceScorer, time.Since(start))
	rt.writeJSON(w, http.StatusOK, recommendationsResponse{Recommendations: ranked})
}

// handleHealth reports liveness plus whether the optional collaborators are
// wired, without touching any of them.
func (rt *router) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rt.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rt.writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"store":           rt.matcher != nil,
		"recommendations": rt.orchestrator != nil,
	})
}
