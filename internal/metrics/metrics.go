package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CacheLookupOutcome captures the result of a stats cache lookup.
type CacheLookupOutcome string

const (
	// CacheLookupHit indicates the lookup reused a cached payload.
	CacheLookupHit CacheLookupOutcome = "hit"
	// CacheLookupMiss indicates no cached payload was present.
	CacheLookupMiss CacheLookupOutcome = "miss"
	// CacheLookupError indicates the lookup failed due to an error.
	CacheLookupError CacheLookupOutcome = "error"
)

// CacheStoreOutcome captures the result of a cache write-back attempt.
type CacheStoreOutcome string

const (
	// CacheStoreStored indicates the payload was persisted.
	CacheStoreStored CacheStoreOutcome = "stored"
	// CacheStoreError indicates the write-back failed.
	CacheStoreError CacheStoreOutcome = "error"
)

// RankingSource identifies which path produced a recommendation list.
type RankingSource string

const (
	// RankingSourceModel means the external ranking model supplied the list.
	RankingSourceModel RankingSource = "model"
	// RankingSourceFallback means the deterministic index ranking was used.
	RankingSourceFallback RankingSource = "fallback"
	// RankingSourceScorer means the local point-based scorer was used.
	RankingSourceScorer RankingSource = "scorer"
)

// Recorder publishes Prometheus metrics for request activity.
type Recorder struct {
	gatherer prometheus.Gatherer
	handler  http.Handler

	statsRequests *prometheus.CounterVec
	statsLatency  *prometheus.HistogramVec

	cacheOperations *prometheus.CounterVec

	recommendations       *prometheus.CounterVec
	recommendationLatency *prometheus.HistogramVec
}

// NewRecorder constructs a Prometheus-backed Recorder. When reg is nil a
// dedicated registry is created so multiple recorders can coexist without
// conflicting with the global default registerer.
func NewRecorder(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	statsRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchhub",
		Subsystem: "stats",
		Name:      "requests_total",
		Help:      "Dashboard stats requests served, by cache status and data source.",
	}, []string{"cache_status", "source"})

	statsLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "matchhub",
		Subsystem: "stats",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for completed stats requests.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"cache_status"})

	cacheOperations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchhub",
		Subsystem: "cache",
		Name:      "operations_total",
		Help:      "Stats cache operations executed by the service.",
	}, []string{"operation", "result"})

	recommendations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchhub",
		Subsystem: "recommend",
		Name:      "requests_total",
		Help:      "Recommendation requests served, by ranking source.",
	}, []string{"source"})

	recommendationLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "matchhub",
		Subsystem: "recommend",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for completed recommendation requests.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"source"})

	reg.MustRegister(statsRequests, statsLatency, cacheOperations, recommendations, recommendationLatency)

	return &Recorder{
		gatherer:              reg,
		handler:               promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		statsRequests:         statsRequests,
		statsLatency:          statsLatency,
		cacheOperations:       cacheOperations,
		recommendations:       recommendations,
		recommendationLatency: recommendationLatency,
	}
}

// Handler exposes the Prometheus HTTP handler for the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics unavailable", http.StatusServiceUnavailable)
		})
	}
	return r.handler
}

// Gatherer returns the underlying Prometheus gatherer for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.gatherer
}

// ObserveStatsRequest records the outcome and latency of a stats request.
func (r *Recorder) ObserveStatsRequest(cacheStatus string, offline bool, duration time.Duration) {
	if r == nil {
		return
	}
	source := "live"
	if offline {
		source = "offline"
	}
	status := normalizeLabel(strings.ToLower(cacheStatus))
	r.statsRequests.WithLabelValues(status, source).Inc()
	r.statsLatency.WithLabelValues(status).Observe(duration.Seconds())
}

// ObserveCacheLookup records the result of a stats cache lookup.
func (r *Recorder) ObserveCacheLookup(result CacheLookupOutcome, _ time.Duration) {
	if r == nil {
		return
	}
	label := string(result)
	if label == "" {
		label = string(CacheLookupMiss)
	}
	r.cacheOperations.WithLabelValues("lookup", label).Inc()
}

// ObserveCacheStore records the result of a cache write-back attempt.
func (r *Recorder) ObserveCacheStore(result CacheStoreOutcome, _ time.Duration) {
	if r == nil {
		return
	}
	label := string(result)
	if label == "" {
		label = string(CacheStoreError)
	}
	r.cacheOperations.WithLabelValues("store", label).Inc()
}

// ObserveRecommendation records which ranking path served a recommendation
// request and how long it took.
func (r *Recorder) ObserveRecommendation(source RankingSource, duration time.Duration) {
	if r == nil {
		return
	}
	label := normalizeLabel(string(source))
	r.recommendations.WithLabelValues(label).Inc()
	r.recommendationLatency.WithLabelValues(label).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
