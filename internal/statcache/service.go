package statcache

import (
	"context"
	"log/slog"
	"time"

	"github.com/FarelZIKRI/matchhub/internal/identity"
	"github.com/FarelZIKRI/matchhub/internal/metrics"
	"github.com/FarelZIKRI/matchhub/internal/stats"
)

// Status tags whether a response was served from cache.
type Status string

const (
	// StatusHit means the payload came straight from the cache.
	StatusHit Status = "HIT"
	// StatusMiss means the payload was recomputed from the backing store.
	StatusMiss Status = "MISS"
)

// Computer produces a fresh dashboard payload on cache misses.
type Computer interface {
	Compute(ctx context.Context) (stats.Payload, bool)
}

// Result is the outcome of one dashboard fetch, echoing the cache key used
// for observability.
type Result struct {
	Payload stats.Payload
	Status  Status
	Key     string
	Offline bool
}

// Service runs the check-cache / compute / write-back state machine.
type Service struct {
	cache      StatsCache
	aggregator Computer
	ttl        time.Duration
	logger     *slog.Logger
	metrics    *metrics.Recorder
}

// Options configures the service.
type Options struct {
	Cache      StatsCache
	Aggregator Computer
	TTL        time.Duration
	Logger     *slog.Logger
	Metrics    *metrics.Recorder
}

// NewService wires the cache façade in front of the aggregator.
func NewService(opts Options) *Service {
	cache := opts.Cache
	if cache == nil {
		cache = NewNull()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cache:      cache,
		aggregator: opts.Aggregator,
		ttl:        ttl,
		logger:     logger.With(slog.String("agent", "stat_cache")),
		metrics:    opts.Metrics,
	}
}

// Fetch resolves the dashboard payload for the given identity hint. A cache
// hit returns immediately without touching the backing store. On a miss the
// aggregator recomputes and the result is written back off the response path;
// write-back failures are logged, never surfaced. Cache errors of any kind
// degrade to a miss.
func (s *Service) Fetch(ctx context.Context, hint identity.Hint) Result {
	key := Key(hint.Subject)

	lookupStart := time.Now()
	entry, ok, err := s.cache.Lookup(ctx, key)
	if err != nil {
		s.logger.Warn("cache lookup failed", slog.String("cache_key", key), slog.Any("error", err))
		s.metrics.ObserveCacheLookup(metrics.CacheLookupError, time.Since(lookupStart))
	} else if ok {
		s.metrics.ObserveCacheLookup(metrics.CacheLookupHit, time.Since(lookupStart))
		return Result{Payload: entry.Payload, Status: StatusHit, Key: key}
	} else {
		s.metrics.ObserveCacheLookup(metrics.CacheLookupMiss, time.Since(lookupStart))
	}

	payload, offline := s.aggregator.Compute(ctx)
	payload.Personalized = !hint.Anonymous()

	// Offline defaults are placeholders, not data; caching them would mask
	// the store coming back within the TTL window.
	if !offline {
		s.writeBack(key, payload)
	}

	return Result{Payload: payload, Status: StatusMiss, Key: key, Offline: offline}
}

// writeBack persists the computed payload without delaying the response. The
// goroutine owns a detached context so a canceled request cannot abort it.
func (s *Service) writeBack(key string, payload stats.Payload) {
	storedAt := time.Now().UTC()
	entry := Entry{
		Payload:   payload,
		StoredAt:  storedAt,
		ExpiresAt: storedAt.Add(s.ttl),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		start := time.Now()
		if err := s.cache.Store(ctx, key, entry); err != nil {
			s.logger.Warn("cache write-back failed", slog.String("cache_key", key), slog.Any("error", err))
			s.metrics.ObserveCacheStore(metrics.CacheStoreError, time.Since(start))
			return
		}
		s.metrics.ObserveCacheStore(metrics.CacheStoreStored, time.Since(start))
	}()
}
