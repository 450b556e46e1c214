package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/FarelZIKRI/matchhub/internal/matching"
	"github.com/FarelZIKRI/matchhub/internal/metrics"
	"github.com/FarelZIKRI/matchhub/internal/recommend"
	"github.com/FarelZIKRI/matchhub/internal/statcache"
)

// RouterOptions carries the services the HTTP surface dispatches to.
// Orchestrator and Matcher may be nil when the relational store is not
// configured; the affected endpoints then answer with a structured 500.
type RouterOptions struct {
	Stats        *statcache.Service
	Orchestrator *recommend.Orchestrator
	Matcher      *matching.FilterChain
	Logger       *slog.Logger
	Metrics      *metrics.Recorder
}

type router struct {
	stats        *statcache.Service
	orchestrator *recommend.Orchestrator
	matcher      *matching.FilterChain
	logger       *slog.Logger
	metrics      *metrics.Recorder
}

// NewRouter wires URL dispatch for the public API. Every endpoint carries
// permissive CORS headers so the hosted front end can call across origins.
func NewRouter(opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rt := &router{
		stats:        opts.Stats,
		orchestrator: opts.Orchestrator,
		matcher:      opts.Matcher,
		logger:       logger.With(slog.String("agent", "router")),
		metrics:      opts.Metrics,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/stat-cache", rt.handleStats)
	mux.HandleFunc("/api/ai-recommendations", rt.handleRecommendations)
	mux.HandleFunc("/api/matchmaking", rt.handleMatchmaking)
	mux.HandleFunc("/healthz", rt.handleHealth)
	return withCORS(mux)
}

// withCORS allows all origins and the headers the front end sends. OPTIONS
// preflights are answered here so handlers only see real requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "authorization, content-type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rt *router) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		rt.logger.Error("response encode failed", slog.Any("error", err))
	}
}

func (rt *router) writeError(w http.ResponseWriter, status int, message string) {
	rt.writeJSON(w, status, map[string]string{"error": message})
}
