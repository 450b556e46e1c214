package server

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/stretchr/testify/require"

	"github.com/FarelZIKRI/matchhub/internal/matching"
	"github.com/FarelZIKRI/matchhub/internal/recommend"
	"github.com/FarelZIKRI/matchhub/internal/statcache"
	"github.com/FarelZIKRI/matchhub/internal/stats"
	"github.com/FarelZIKRI/matchhub/internal/store"
)

type stubAggregator struct {
	payload stats.Payload
	offline bool
}

func (a stubAggregator) Compute(context.Context) (stats.Payload, bool) {
	return a.payload, a.offline
}

type stubSearcher struct {
	candidates []store.Candidate
	filters    []store.SearchFilter
}

func (s *stubSearcher) Search(_ context.Context, filter store.SearchFilter) ([]store.Candidate, error) {
	s.filters = append(s.filters, filter)
	return s.candidates, nil
}

type stubModel struct {
	reply string
}

func (m stubModel) Complete(context.Context, string) (string, error) {
	return m.reply, nil
}

func livePayload() stats.Payload {
	return stats.Payload{
		Stats: stats.Totals{Influencers: 21, SMEs: 8, Campaigns: 40, Satisfaction: 98},
		TopInfluencers: []store.Candidate{
			{ID: "inf-1", Name: "Sari", Rating: 4.9},
		},
	}
}

func newClient(t *testing.T, opts RouterOptions) *httpexpect.Expect {
	t.Helper()
	srv := httptest.NewServer(NewRouter(opts))
	t.Cleanup(srv.Close)
	return httpexpect.Default(t, srv.URL)
}

func bearer(payload string) string {
	return "Bearer h." + base64.RawURLEncoding.EncodeToString([]byte(payload)) + ".s"
}

func statsOptions(agg statcache.Computer) RouterOptions {
	return RouterOptions{
		Stats: statcache.NewService(statcache.Options{
			Cache:      statcache.NewMemory(time.Minute),
			Aggregator: agg,
			TTL:        time.Minute,
		}),
	}
}

func TestStatsEndpointMissThenHit(t *testing.T) {
	e := newClient(t, statsOptions(stubAggregator{payload: livePayload()}))

	first := e.GET("/stat-cache").Expect().Status(http.StatusOK)
	first.Header("X-Cache-Status").IsEqual("MISS")
	first.Header("X-Cache-Key").IsEqual("dashboard_stats_public")
	first.Header("X-Stats-Source").IsEqual("live")
	body := first.JSON().Object()
	body.Path("$.stats.influencers").IsEqual(21)
	body.Path("$.topInfluencers[0].name").IsEqual("Sari")
	body.Value("personalized").IsEqual(false)

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp := e.GET("/stat-cache").Expect().Status(http.StatusOK)
		if resp.Raw().Header.Get("X-Cache-Status") == "MISS" {
			if time.Now().After(deadline) {
				t.Fatalf("cache never converged to HIT")
			}
			time.Sleep(5 * time.Millisecond)
			continue
		}
		resp.Header("X-Cache-Status").IsEqual("HIT")
		resp.JSON().Object().Path("$.stats.influencers").IsEqual(21)
		break
	}
}

func TestStatsEndpointPersonalizedPerSubject(t *testing.T) {
	e := newClient(t, statsOptions(stubAggregator{payload: livePayload()}))

	resp := e.GET("/stat-cache").
		WithHeader("Authorization", bearer(`{"sub":"user-7","role":"authenticated"}`)).
		Expect().Status(http.StatusOK)
	resp.Header("X-Cache-Key").IsEqual("dashboard_stats_user-7")
	resp.JSON().Object().Value("personalized").IsEqual(true)
}

func TestStatsEndpointMalformedTokenFallsBackToPublic(t *testing.T) {
	e := newClient(t, statsOptions(stubAggregator{payload: livePayload()}))

	resp := e.GET("/stat-cache").
		WithHeader("Authorization", "Bearer not-a-jwt").
		Expect().Status(http.StatusOK)
	resp.Header("X-Cache-Key").IsEqual("dashboard_stats_public")
	resp.JSON().Object().Value("personalized").IsEqual(false)
}

func TestStatsEndpointOfflineNeverCached(t *testing.T) {
	e := newClient(t, statsOptions(stats.New(nil, nil)))

	for i := 0; i < 2; i++ {
		resp := e.GET("/stat-cache").Expect().Status(http.StatusOK)
		resp.Header("X-Cache-Status").IsEqual("MISS")
		resp.Header("X-Stats-Source").IsEqual("offline")
		body := resp.JSON().Object()
		body.Path("$.stats.influencers").IsEqual(500)
		body.Path("$.stats.smes").IsEqual(1200)
		body.Path("$.stats.campaigns").IsEqual(5000)
		body.Value("topInfluencers").Array().IsEmpty()
	}
}

func TestStatsEndpointRejectsPost(t *testing.T) {
	e := newClient(t, statsOptions(stubAggregator{payload: livePayload()}))
	e.POST("/stat-cache").Expect().Status(http.StatusMethodNotAllowed)
}

func TestPreflightAnsweredWithCORS(t *testing.T) {
	e := newClient(t, statsOptions(stubAggregator{payload: livePayload()}))

	resp := e.OPTIONS("/api/ai-recommendations").Expect().Status(http.StatusOK)
	resp.Header("Access-Control-Allow-Origin").IsEqual("*")
	resp.Header("Access-Control-Allow-Headers").IsEqual("authorization, content-type")
}

func TestRecommendationsLiveness(t *testing.T) {
	e := newClient(t, RouterOptions{Stats: statcache.NewService(statcache.Options{Aggregator: stats.New(nil, nil)})})

	e.GET("/api/ai-recommendations").Expect().Status(http.StatusOK).
		JSON().Object().Value("message").IsEqual("AI Recommendations API is running.")
}

func TestRecommendationsWithoutStoreFails(t *testing.T) {
	e := newClient(t, RouterOptions{Stats: statcache.NewService(statcache.Options{Aggregator: stats.New(nil, nil)})})

	e.POST("/api/ai-recommendations").
		WithJSON(map[string]any{"sme_profile": map[string]any{"niche": "beauty"}}).
		Expect().Status(http.StatusInternalServerError).
		JSON().Object().Value("error").IsEqual("missing backend configuration")
}

func TestRecommendationsFallbackRanking(t *testing.T) {
	searcher := &stubSearcher{candidates: []store.Candidate{
		{ID: "inf-1", Niche: "beauty"},
		{ID: "inf-2", Niche: "beauty"},
	}}
	e := newClient(t, RouterOptions{
		Stats:        statcache.NewService(statcache.Options{Aggregator: stats.New(nil, nil)}),
		Orchestrator: recommend.NewOrchestrator(recommend.Options{Source: searcher}),
	})

	body := e.POST("/api/ai-recommendations").
		WithJSON(map[string]any{"sme_profile": map[string]any{
			"business_name": "Kopi Nusantara",
			"niche":         "beauty",
			"budget":        "750000",
		}}).
		Expect().Status(http.StatusOK).JSON().Object()

	recs := body.Value("recommendations").Array()
	recs.Length().IsEqual(2)
	recs.Value(0).Object().Value("match_score").IsEqual(90)
	recs.Value(0).Object().Value("ai_reason").IsEqual("Cocok berdasarkan niche dan budget.")
	recs.Value(1).Object().Value("match_score").IsEqual(82)

	require.Len(t, searcher.filters, 1)
	filter := searcher.filters[0]
	require.NotNil(t, filter.MaxPrice)
	require.EqualValues(t, 750000, *filter.MaxPrice)
}

func TestRecommendationsModelRanking(t *testing.T) {
	searcher := &stubSearcher{candidates: []store.Candidate{
		{ID: "inf-1", Niche: "beauty", Name: "Sari"},
		{ID: "inf-2", Niche: "beauty", Name: "Dewi"},
	}}
	model := stubModel{reply: `[{"id": "inf-2", "match_score": 96, "reason": "audiens cocok"}]`}
	e := newClient(t, RouterOptions{
		Stats:        statcache.NewService(statcache.Options{Aggregator: stats.New(nil, nil)}),
		Orchestrator: recommend.NewOrchestrator(recommend.Options{Source: searcher, Model: model}),
	})

	recs := e.POST("/api/ai-recommendations").
		WithJSON(map[string]any{"sme_profile": map[string]any{"niche": "beauty"}}).
		Expect().Status(http.StatusOK).
		JSON().Object().Value("recommendations").Array()

	recs.Length().IsEqual(1)
	top := recs.Value(0).Object()
	top.Value("id").IsEqual("inf-2")
	top.Value("match_score").IsEqual(96)
	top.Value("ai_reason").IsEqual("audiens cocok")
	top.Value("name").IsEqual("Dewi")
}

func TestMatchmakingRanksLocally(t *testing.T) {
	searcher := &stubSearcher{candidates: []store.Candidate{
		{ID: "far", Niche: "beauty", Location: "Medan", PricePerPost: 2000000, Rating: 3.2},
		{ID: "near", Niche: "beauty", Location: "Jakarta", PricePerPost: 800000, Rating: 4.8},
	}}
	e := newClient(t, RouterOptions{
		Stats:   statcache.NewService(statcache.Options{Aggregator: stats.New(nil, nil)}),
		Matcher: matching.NewFilterChain(searcher, nil),
	})

	recs := e.POST("/api/matchmaking").
		WithJSON(map[string]any{"niche": "beauty", "budget": 1000000, "location": "Jakarta"}).
		Expect().Status(http.StatusOK).
		JSON().Object().Value("recommendations").Array()

	recs.Length().IsEqual(2)
	recs.Value(0).Object().Value("id").IsEqual("near")
	recs.Value(0).Object().Value("match_score").IsEqual(98)
	recs.Value(1).Object().Value("id").IsEqual("far")
	recs.Value(1).Object().Value("match_score").IsEqual(70)
}

func TestMatchmakingEmptyInventoryMessage(t *testing.T) {
	e := newClient(t, RouterOptions{
		Stats:   statcache.NewService(statcache.Options{Aggregator: stats.New(nil, nil)}),
		Matcher: matching.NewFilterChain(&stubSearcher{}, nil),
	})

	body := e.POST("/api/matchmaking").
		WithJSON(map[string]any{"niche": "gaming"}).
		Expect().Status(http.StatusOK).JSON().Object()

	body.Value("recommendations").Array().IsEmpty()
	body.Value("message").IsEqual("Belum ada influencer yang tersedia untuk kategori ini.")
}

func TestMatchmakingWithoutStoreFails(t *testing.T) {
	e := newClient(t, RouterOptions{Stats: statcache.NewService(statcache.Options{Aggregator: stats.New(nil, nil)})})

	e.POST("/api/matchmaking").
		WithJSON(map[string]any{"niche": "beauty"}).
		Expect().Status(http.StatusInternalServerError).
		JSON().Object().Value("error").IsEqual("missing backend configuration")
}

func TestHealthReportsCollaborators(t *testing.T) {
	searcher := &stubSearcher{}
	e := newClient(t, RouterOptions{
		Stats:        statcache.NewService(statcache.Options{Aggregator: stats.New(nil, nil)}),
		Orchestrator: recommend.NewOrchestrator(recommend.Options{Source: searcher}),
	})

	body := e.GET("/healthz").Expect().Status(http.StatusOK).JSON().Object()
	body.Value("status").IsEqual("ok")
	body.Value("recommendations").IsEqual(true)
	body.Value("store").IsEqual(false)
}
