package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/FarelZIKRI/matchhub/internal/config"
	"github.com/FarelZIKRI/matchhub/internal/logging"
	"github.com/FarelZIKRI/matchhub/internal/matching"
	"github.com/FarelZIKRI/matchhub/internal/metrics"
	"github.com/FarelZIKRI/matchhub/internal/recommend"
	"github.com/FarelZIKRI/matchhub/internal/server"
	"github.com/FarelZIKRI/matchhub/internal/statcache"
	"github.com/FarelZIKRI/matchhub/internal/stats"
	"github.com/FarelZIKRI/matchhub/internal/store"
)

func main() {
	var (
		configFile = flag.String("config", "", "path to server configuration file")
		envPrefix  = flag.String("env-prefix", "MATCHHUB", "environment variable prefix")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := config.NewLoader(*envPrefix, *configFile)
	cfg, err := loader.Load(ctx)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Server.Logging)
	if err != nil {
		log.Fatalf("failed to configure logger: %v", err)
	}

	statsCache := buildStatsCache(logger.With(slog.String("agent", "cache_factory")), cfg.Server.Cache)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := statsCache.Close(closeCtx); err != nil {
			logger.Error("cache shutdown failed", slog.Any("error", err))
		}
	}()

	// The relational store is optional at startup: without it the stats path
	// degrades to offline defaults and the recommendation endpoints answer 500.
	var db *store.Store
	if url := strings.TrimSpace(cfg.Server.Database.URL); url != "" {
		db, err = store.Open(ctx, url, logger)
		if err != nil {
			logger.Warn("relational store unavailable, stats will serve offline defaults", slog.Any("error", err))
		} else {
			defer func() {
				if err := db.Close(); err != nil {
					logger.Error("store shutdown failed", slog.Any("error", err))
				}
			}()
		}
	} else {
		logger.Warn("no database url configured, stats will serve offline defaults")
	}

	var model recommend.ModelClient
	if key := strings.TrimSpace(cfg.Server.AI.APIKey); key != "" {
		gemini, err := recommend.NewGeminiClient(ctx, key, cfg.Server.AI.Model)
		if err != nil {
			logger.Warn("ranking model unavailable, using deterministic fallback", slog.Any("error", err))
		} else {
			model = gemini
		}
	} else {
		logger.Info("no ranking model configured, using deterministic fallback")
	}

	promRegistry := prometheus.NewRegistry()
	metricsRecorder := metrics.NewRecorder(promRegistry)

	var aggregatorSource stats.Source
	if db != nil {
		aggregatorSource = db
	}
	statService := statcache.NewService(statcache.Options{
		Cache:      statsCache,
		Aggregator: stats.New(aggregatorSource, logger),
		TTL:        time.Duration(cfg.Server.Cache.TTLSeconds) * time.Second,
		Logger:     logger,
		Metrics:    metricsRecorder,
	})

	var (
		orchestrator *recommend.Orchestrator
		matcher      *matching.FilterChain
	)
	if db != nil {
		orchestrator = recommend.NewOrchestrator(recommend.Options{
			Source:  db,
			Model:   model,
			Timeout: time.Duration(cfg.Server.AI.TimeoutSeconds) * time.Second,
			Logger:  logger,
		})
		matcher = matching.NewFilterChain(db, logger)
	}

	handler := server.NewRouter(server.RouterOptions{
		Stats:        statService,
		Orchestrator: orchestrator,
		Matcher:      matcher,
		Logger:       logger,
		Metrics:      metricsRecorder,
	})
	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsRecorder.Handler())
	mux.Handle("/", handler)

	srv, err := server.New(cfg, logger, mux)
	if err != nil {
		logger.Error("unable to construct server", slog.Any("error", err))
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server terminated unexpectedly", slog.Any("error", err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger.Info("server shutdown complete")
}

// buildStatsCache selects the cache backend from configuration. The absence
// of a binding is a supported setup: the null backend always misses and the
// service recomputes per request.
func buildStatsCache(logger *slog.Logger, cfg config.CacheConfig) statcache.StatsCache {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	backend := strings.TrimSpace(strings.ToLower(cfg.Backend))
	switch backend {
	case "", "none":
		logger.Info("stats cache disabled, every request recomputes")
		return statcache.NewNull()
	case "memory":
		logger.Info("using memory stats cache", slog.Duration("ttl", ttl))
		return statcache.NewMemory(ttl)
	case "redis":
		redisCache, err := statcache.NewRedis(statcache.RedisConfig{
			Address:  cfg.Redis.Address,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Error("redis cache initialization failed", slog.Any("error", err))
			logger.Info("falling back to memory cache")
			return statcache.NewMemory(ttl)
		}
		logger.Info("using redis stats cache", slog.String("address", cfg.Redis.Address))
		return redisCache
	default:
		logger.Warn("unsupported cache backend, defaulting to memory", slog.String("backend", cfg.Backend))
		return statcache.NewMemory(ttl)
	}
}
