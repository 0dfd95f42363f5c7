package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/bloom"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/codec"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/store"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/config"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/metrics"
)

// Builder turns an input batch into a sharded, compressed index and writes
// it to the store as one atomic replacement of the previous index. A Builder
// is the sole writer for the duration of a build; queries must not run
// concurrently with it.
type Builder struct {
	store   store.Store
	cfg     config.IndexConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// BuildStats summarises one completed build.
type BuildStats struct {
	Blocks       int
	Transactions int
	Shards       int
	Postings     int
	Duration     time.Duration
}

// NewBuilder creates a Builder. m may be nil when no metrics are wanted
// (tests, the demo binary).
func NewBuilder(st store.Store, cfg config.IndexConfig, m *metrics.Metrics) *Builder {
	return &Builder{
		store:   st,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "index-builder"),
	}
}

// Build scans the batch once, accumulating per-shard bloom filters and
// per-(shard, key) block lists, then deduplicates, sorts, compresses, and
// replaces the persisted index in a single store write. Rebuilding with an
// identical batch produces byte-identical shard and postings rows.
func (b *Builder) Build(ctx context.Context, batch []Record) (*BuildStats, error) {
	start := time.Now()

	// Per-build accumulation state, discarded after the flush.
	shardPostings := make(map[uint64]map[string][]uint64)
	shardBlooms := make(map[uint64]*bloom.Filter)
	txCount := 0

	for _, record := range batch {
		shardID := ShardID(record.BlockNumber, b.cfg.ShardSize)
		filter, ok := shardBlooms[shardID]
		if !ok {
			filter = bloom.New(b.cfg.BloomM, b.cfg.BloomK)
			shardBlooms[shardID] = filter
			shardPostings[shardID] = make(map[string][]uint64)
		}
		postings := shardPostings[shardID]
		for _, tx := range record.Transactions {
			txCount++
			for _, key := range tx.Keys() {
				postings[key] = append(postings[key], record.BlockNumber)
				filter.Add(key)
			}
		}
	}

	shards := make([]store.ShardMeta, 0, len(shardBlooms))
	entries := make([]store.PostingsEntry, 0)
	for shardID, filter := range shardBlooms {
		startBlock, endBlock := ShardRange(shardID, b.cfg.ShardSize)
		shards = append(shards, store.ShardMeta{
			ShardID:    shardID,
			StartBlock: startBlock,
			EndBlock:   endBlock,
			Bloom:      filter.Bytes(),
		})
		for key, blocks := range shardPostings[shardID] {
			entries = append(entries, store.PostingsEntry{
				Key:      key,
				ShardID:  shardID,
				Postings: codec.CompressPostings(sortedUnique(blocks)),
			})
		}
	}

	// Deterministic write order keeps rebuilds reproducible.
	sort.Slice(shards, func(i, j int) bool { return shards[i].ShardID < shards[j].ShardID })
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ShardID != entries[j].ShardID {
			return entries[i].ShardID < entries[j].ShardID
		}
		return entries[i].Key < entries[j].Key
	})

	params := store.IndexParams{
		ShardSize: b.cfg.ShardSize,
		BloomM:    b.cfg.BloomM,
		BloomK:    b.cfg.BloomK,
	}
	if err := b.store.ReplaceIndex(ctx, params, shards, entries); err != nil {
		if b.metrics != nil {
			b.metrics.IndexBuildsTotal.WithLabelValues("error").Inc()
		}
		return nil, fmt.Errorf("replacing index: %w", err)
	}

	stats := &BuildStats{
		Blocks:       len(batch),
		Transactions: txCount,
		Shards:       len(shards),
		Postings:     len(entries),
		Duration:     time.Since(start),
	}
	if b.metrics != nil {
		b.metrics.IndexBuildsTotal.WithLabelValues("success").Inc()
		b.metrics.IndexBuildDuration.Observe(stats.Duration.Seconds())
		b.metrics.BlocksIndexedTotal.Add(float64(stats.Blocks))
		b.metrics.IndexShardCount.Set(float64(stats.Shards))
		b.metrics.IndexPostingsCount.Set(float64(stats.Postings))
	}
	b.logger.Info("index built",
		"blocks", stats.Blocks,
		"transactions", stats.Transactions,
		"shards", stats.Shards,
		"postings", stats.Postings,
		"duration", stats.Duration,
	)
	return stats, nil
}

// sortedUnique sorts blocks ascending and drops duplicates in place.
func sortedUnique(blocks []uint64) []uint64 {
	if len(blocks) <= 1 {
		return blocks
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })
	out := blocks[:1]
	for _, b := range blocks[1:] {
		if b != out[len(out)-1] {
			out = append(out, b)
		}
	}
	return out
}
