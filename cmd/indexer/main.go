package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/index"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/ingest"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/store"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/config"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/kafka"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/logger"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/metrics"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/postgres"
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
	slog.Info("starting indexer service",
		"shard_size", cfg.Index.ShardSize,
		"bloom_m", cfg.Index.BloomM,
		"bloom_k", cfg.Index.BloomK,
	)

	pgClient, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pgStore := store.NewPostgresStore(pgClient)
	if err := pgStore.CreateSchema(ctx); err != nil {
		slog.Error("failed to create index schema", "error", err)
		os.Exit(1)
	}

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

	builder := index.NewBuilder(pgStore, cfg.Index, m)

	notify := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
	defer notify.Close()
	cacheBust := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CacheInvalidate)
	defer cacheBust.Close()

	batcher := ingest.NewBatcher(builder, notify, cacheBust)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ChainBlocks, batcher.HandleMessage)

	slog.Info("indexer service ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.ChainBlocks,
		"group", cfg.Kafka.ConsumerGroup,
	)

	if err := consumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	slog.Info("indexer service stopped")
}
