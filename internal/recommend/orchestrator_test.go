package recommend

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/FarelZIKRI/matchhub/internal/metrics"
	"github.com/FarelZIKRI/matchhub/internal/store"
)

type fixedSource struct {
	candidates []store.Candidate
	err        error
	lastFilter store.SearchFilter
}

func (s *fixedSource) Search(_ context.Context, filter store.SearchFilter) ([]store.Candidate, error) {
	s.lastFilter = filter
	return s.candidates, s.err
}

type fixedModel struct {
	reply string
	err   error
	calls int
}

func (m *fixedModel) Complete(context.Context, string) (string, error) {
	m.calls++
	return m.reply, m.err
}

func sixCandidates() []store.Candidate {
	out := make([]store.Candidate, 6)
	for i := range out {
		out[i] = store.Candidate{ID: fmt.Sprintf("inf-%d", i+1), Niche: "beauty"}
	}
	return out
}

func TestRecommendModelPath(t *testing.T) {
	source := &fixedSource{candidates: sixCandidates()}
	model := &fixedModel{reply: `Berikut hasilnya:
[{"id": "inf-3", "match_score": 97, "reason": "audience fit"},
 {"id": "inf-1", "match_score": 88, "reason": "budget fit"}]`}
	orch := NewOrchestrator(Options{Source: source, Model: model})

	ranked, src, err := orch.Recommend(context.Background(), Profile{Niche: "beauty"})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if src != metrics.RankingSourceModel {
		t.Fatalf("expected model source, got %s", src)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected 2 results, got %d", len(ranked))
	}
	if ranked[0].ID != "inf-3" || ranked[0].MatchScore != 97 || ranked[0].Reason != "audience fit" {
		t.Fatalf("unexpected top result: %+v", ranked[0])
	}
	if ranked[1].ID != "inf-1" {
		t.Fatalf("unexpected second result: %+v", ranked[1])
	}
}

func TestRecommendQueryCarriesNicheAndBudget(t *testing.T) {
	price := int64(500000)
	source := &fixedSource{candidates: sixCandidates()}
	orch := NewOrchestrator(Options{Source: source})

	if _, _, err := orch.Recommend(context.Background(), Profile{Niche: "beauty", Budget: &price}); err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if source.lastFilter.Niche != "beauty" {
		t.Fatalf("expected niche filter, got %q", source.lastFilter.Niche)
	}
	if source.lastFilter.MaxPrice == nil || *source.lastFilter.MaxPrice != 500000 {
		t.Fatalf("expected budget ceiling, got %v", source.lastFilter.MaxPrice)
	}
	if source.lastFilter.Limit != 10 {
		t.Fatalf("expected candidate limit 10, got %d", source.lastFilter.Limit)
	}
	if source.lastFilter.Location != "" {
		t.Fatalf("location must not constrain the recommendation query")
	}
}

func TestRecommendProseReplyFallsBack(t *testing.T) {
	source := &fixedSource{candidates: sixCandidates()}
	model := &fixedModel{reply: "Maaf, saya tidak bisa memberikan ranking dalam format itu."}
	orch := NewOrchestrator(Options{Source: source, Model: model})

	ranked, src, err := orch.Recommend(context.Background(), Profile{Niche: "beauty"})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if src != metrics.RankingSourceFallback {
		t.Fatalf("expected fallback source, got %s", src)
	}
	if model.calls != 1 {
		t.Fatalf("expected one model call, got %d", model.calls)
	}
	if len(ranked) != 5 {
		t.Fatalf("fallback must cap at 5 results, got %d", len(ranked))
	}
	wantScores := []int{90, 82, 74, 66, 58}
	for i, want := range wantScores {
		if ranked[i].MatchScore != want {
			t.Fatalf("fallback score %d = %d, want %d", i, ranked[i].MatchScore, want)
		}
		if ranked[i].ID != fmt.Sprintf("inf-%d", i+1) {
			t.Fatalf("fallback must keep store order, got %s at %d", ranked[i].ID, i)
		}
		if ranked[i].Reason != "Cocok berdasarkan niche dan budget." {
			t.Fatalf("unexpected fallback reason %q", ranked[i].Reason)
		}
	}
}

func TestRecommendModelErrorFallsBack(t *testing.T) {
	source := &fixedSource{candidates: sixCandidates()}
	model := &fixedModel{err: errors.New("deadline exceeded")}
	orch := NewOrchestrator(Options{Source: source, Model: model})

	ranked, src, err := orch.Recommend(context.Background(), Profile{Niche: "beauty"})
	if err != nil {
		t.Fatalf("model failures must be absorbed, got %v", err)
	}
	if src != metrics.RankingSourceFallback {
		t.Fatalf("expected fallback source, got %s", src)
	}
	if len(ranked) != 5 {
		t.Fatalf("expected 5 fallback results, got %d", len(ranked))
	}
}

func TestRecommendNilModelUsesFallback(t *testing.T) {
	source := &fixedSource{candidates: sixCandidates()[:2]}
	orch := NewOrchestrator(Options{Source: source})

	ranked, src, err := orch.Recommend(context.Background(), Profile{Niche: "beauty"})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if src != metrics.RankingSourceFallback {
		t.Fatalf("expected fallback source, got %s", src)
	}
	if len(ranked) != 2 || ranked[0].MatchScore != 90 || ranked[1].MatchScore != 82 {
		t.Fatalf("unexpected fallback: %+v", ranked)
	}
}

func TestRecommendDropsHallucinatedIDs(t *testing.T) {
	source := &fixedSource{candidates: sixCandidates()}
	model := &fixedModel{reply: `[
		{"id": "ghost-1", "match_score": 99, "reason": "invented"},
		{"id": "inf-2", "match_score": 91, "reason": "real"}]`}
	orch := NewOrchestrator(Options{Source: source, Model: model})

	ranked, src, err := orch.Recommend(context.Background(), Profile{Niche: "beauty"})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if src != metrics.RankingSourceModel {
		t.Fatalf("one valid id is enough for the model path, got %s", src)
	}
	if len(ranked) != 1 || ranked[0].ID != "inf-2" {
		t.Fatalf("hallucinated ids must be dropped: %+v", ranked)
	}
}

func TestRecommendCapsModelResultsAtFive(t *testing.T) {
	source := &fixedSource{candidates: sixCandidates()}
	reply := "["
	for i := 1; i <= 6; i++ {
		if i > 1 {
			reply += ","
		}
		reply += fmt.Sprintf(`{"id": "inf-%d", "match_score": %d, "reason": "r"}`, i, 70+i)
	}
	reply += "]"
	model := &fixedModel{reply: reply}
	orch := NewOrchestrator(Options{Source: source, Model: model})

	ranked, _, err := orch.Recommend(context.Background(), Profile{Niche: "beauty"})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(ranked) != 5 {
		t.Fatalf("expected 5 results, got %d", len(ranked))
	}
	if ranked[0].ID != "inf-6" {
		t.Fatalf("expected highest score first, got %s", ranked[0].ID)
	}
}

func TestRecommendClampsModelScores(t *testing.T) {
	source := &fixedSource{candidates: sixCandidates()}
	model := &fixedModel{reply: `[
		{"id": "inf-1", "match_score": 150, "reason": "too high"},
		{"id": "inf-2", "match_score": -20, "reason": "too low"}]`}
	orch := NewOrchestrator(Options{Source: source, Model: model})

	ranked, _, err := orch.Recommend(context.Background(), Profile{Niche: "beauty"})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if ranked[0].MatchScore != 100 || ranked[1].MatchScore != 0 {
		t.Fatalf("scores not clamped: %d, %d", ranked[0].MatchScore, ranked[1].MatchScore)
	}
}

func TestRecommendEmptyInventory(t *testing.T) {
	source := &fixedSource{}
	model := &fixedModel{reply: `[{"id": "inf-1", "match_score": 90, "reason": "r"}]`}
	orch := NewOrchestrator(Options{Source: source, Model: model})

	ranked, src, err := orch.Recommend(context.Background(), Profile{Niche: "gaming"})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(ranked) != 0 {
		t.Fatalf("expected empty result, got %+v", ranked)
	}
	if src != metrics.RankingSourceFallback {
		t.Fatalf("expected fallback source, got %s", src)
	}
	if model.calls != 0 {
		t.Fatalf("no candidates means no model call, got %d", model.calls)
	}
}

func TestRecommendStoreErrorSurfaces(t *testing.T) {
	boom := errors.New("connection refused")
	orch := NewOrchestrator(Options{Source: &fixedSource{err: boom}})

	if _, _, err := orch.Recommend(context.Background(), Profile{Niche: "tech"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
