package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/chain"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/ingest"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/config"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/kafka"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/logger"
)

// publishChunk bounds how many block envelopes go into one Kafka write.
const publishChunk = 500

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	numBlocks := flag.Int("blocks", 0, "override generator block count")
	seed := flag.Int64("seed", 0, "override generator seed")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *numBlocks > 0 {
		cfg.Generator.NumBlocks = *numBlocks
	}
	if *seed != 0 {
		cfg.Generator.Seed = *seed
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("generating chain batch",
		"blocks", cfg.Generator.NumBlocks,
		"avg_txs_per_block", cfg.Generator.AvgTxsPerBlock,
		"seed", cfg.Generator.Seed,
	)

	records := chain.Generate(cfg.Generator)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ChainBlocks)
	defer producer.Close()

	batchID := newBatchID()
	events := make([]kafka.Event, 0, publishChunk)
	published := 0
	for _, record := range records {
		rec := record
		events = append(events, kafka.Event{
			Key: fmt.Sprintf("%d", rec.BlockNumber),
			Value: ingest.Envelope{
				Type:   ingest.TypeBlock,
				Record: &rec,
			},
		})
		if len(events) == publishChunk {
			if err := producer.PublishBatch(ctx, events); err != nil {
				slog.Error("failed to publish block chunk", "error", err)
				os.Exit(1)
			}
			published += len(events)
			events = events[:0]
		}
	}
	if len(events) > 0 {
		if err := producer.PublishBatch(ctx, events); err != nil {
			slog.Error("failed to publish block chunk", "error", err)
			os.Exit(1)
		}
		published += len(events)
	}

	marker := kafka.Event{
		Key: batchID,
		Value: ingest.Envelope{
			Type:       ingest.TypeBatchComplete,
			BatchID:    batchID,
			BlockCount: len(records),
		},
	}
	if err := producer.Publish(ctx, marker); err != nil {
		slog.Error("failed to publish batch-complete marker", "error", err)
		os.Exit(1)
	}

	slog.Info("chain batch published",
		"batch_id", batchID,
		"blocks", published,
		"topic", cfg.Kafka.Topics.ChainBlocks,
	)
}

func newBatchID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "batch-unknown"
	}
	return "batch-" + hex.EncodeToString(b)
}
