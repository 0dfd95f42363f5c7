package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/query"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/store"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/config"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/health"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/kafka"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/logger"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/metrics"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/middleware"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/postgres"

	pkgerrors "github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/errors"
	pkgredis "github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"shard_size", cfg.Index.ShardSize,
		"result_cap", cfg.Index.ResultCap,
	)

	pgClient, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgClient.Close()
	pgStore := store.NewPostgresStore(pgClient)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	engine, err := query.NewEngine(ctx, pgStore, cfg.Index, m)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrConfigMismatch) {
			slog.Error("index parameters disagree with configuration, refusing to serve", "error", err)
		} else {
			slog.Error("failed to create query engine", "error", err)
		}
		os.Exit(1)
	}

	var queryCache *query.Cache
	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, query caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = query.NewCache(redisClient, cfg.Redis)
		slog.Info("query cache enabled",
			"addr", cfg.Redis.Addr,
			"ttl", cfg.Redis.CacheTTL,
		)
	}

	if queryCache != nil {
		invalidateConsumer := kafka.NewConsumer(
			cfg.Kafka,
			cfg.Kafka.Topics.CacheInvalidate,
			func(ctx context.Context, key, value []byte) error {
				return queryCache.Invalidate(ctx)
			},
		)
		go func() {
			if err := invalidateConsumer.Start(ctx); err != nil {
				slog.Error("cache-invalidate consumer error", "error", err)
			}
		}()
		slog.Info("cache invalidation consumer started", "topic", cfg.Kafka.Topics.CacheInvalidate)
	}

	checker := health.NewChecker()
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := pgClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := query.NewHandler(engine, queryCache, m, cfg.Index.ResultCap)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /query", h.Query)
	mux.HandleFunc("GET /cache/stats", h.CacheStats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var handlerChain http.Handler = mux
	handlerChain = middleware.Timeout(cfg.Server.WriteTimeout)(handlerChain)
	if m != nil {
		handlerChain = middleware.Metrics(m)(handlerChain)
	}
	handlerChain = middleware.RequestID(handlerChain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handlerChain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
