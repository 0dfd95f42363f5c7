// Command demo runs the whole pipeline in process against the in-memory
// store: generate a synthetic chain, build the sharded index, and answer a
// few boolean queries both through the index and with a naive full scan so
// the speedup is visible.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/chain"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/index"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/query"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/store"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/config"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, "text")

	slog.Info("generating synthetic chain",
		"blocks", cfg.Generator.NumBlocks,
		"seed", cfg.Generator.Seed,
	)
	records := chain.Generate(cfg.Generator)

	ctx := context.Background()
	st := store.NewMemoryStore()
	builder := index.NewBuilder(st, cfg.Index, nil)

	stats, err := builder.Build(ctx, records)
	if err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}
	slog.Info("index built",
		"blocks", stats.Blocks,
		"transactions", stats.Transactions,
		"shards", stats.Shards,
		"postings", stats.Postings,
		"duration", stats.Duration,
	)

	engine, err := query.NewEngine(ctx, st, cfg.Index, nil)
	if err != nil {
		slog.Error("engine creation failed", "error", err)
		os.Exit(1)
	}

	addrA, addrB, topic, ok := fixtureKeys(records)
	if !ok {
		slog.Error("demo needs at least two generated blocks", "blocks", len(records))
		os.Exit(1)
	}

	queries := []struct {
		name     string
		mustHave []string
		anyOf    []string
	}{
		{"single address", []string{addrA}, nil},
		{"address AND topic", []string{addrA, topic}, nil},
		{"either address", nil, []string{addrA, addrB}},
		{"address AND (topic OR address)", []string{addrA}, []string{topic, addrB}},
	}

	for _, q := range queries {
		start := time.Now()
		indexed, err := engine.BooleanQuery(ctx, q.mustHave, q.anyOf)
		if err != nil {
			slog.Error("query failed", "query", q.name, "error", err)
			os.Exit(1)
		}
		indexedDur := time.Since(start)

		start = time.Now()
		scanned := naiveScan(records, q.mustHave, q.anyOf)
		scanDur := time.Since(start)

		if !equalBlocks(indexed, scanned) {
			slog.Error("index and scan disagree",
				"query", q.name,
				"indexed", len(indexed),
				"scanned", len(scanned),
			)
			os.Exit(1)
		}
		speedup := float64(scanDur) / float64(max64(int64(indexedDur), 1))
		slog.Info("query verified",
			"query", q.name,
			"matches", len(indexed),
			"indexed", indexedDur,
			"full_scan", scanDur,
			"speedup", fmt.Sprintf("%.1fx", speedup),
		)
	}
}

// naiveScan answers the same boolean query by walking every transaction of
// every block. It is the correctness oracle the index is checked against.
func naiveScan(records []index.Record, mustHave, anyOf []string) []uint64 {
	var out []uint64
	for _, record := range records {
		keys := make(map[string]struct{})
		for _, tx := range record.Transactions {
			for _, key := range tx.Keys() {
				keys[key] = struct{}{}
			}
		}
		if len(mustHave) == 0 && len(anyOf) == 0 {
			continue
		}
		matched := true
		for _, key := range mustHave {
			if _, ok := keys[key]; !ok {
				matched = false
				break
			}
		}
		if matched && len(anyOf) > 0 {
			matched = false
			for _, key := range anyOf {
				if _, ok := keys[key]; ok {
					matched = true
					break
				}
			}
		}
		if matched {
			out = append(out, record.BlockNumber)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// fixtureKeys picks live keys out of the generated batch so every demo query
// has matches to show. ok is false when the batch is too small to supply them.
func fixtureKeys(records []index.Record) (addrA, addrB, topic string, ok bool) {
	if len(records) < 2 || len(records[0].Transactions) == 0 || len(records[1].Transactions) == 0 {
		return "", "", "", false
	}
	return records[0].Transactions[0].From, records[1].Transactions[0].To, firstTopicKey(records), true
}

func firstTopicKey(records []index.Record) string {
	for _, record := range records {
		for _, tx := range record.Transactions {
			if len(tx.Topics) > 0 {
				return index.TopicKey(tx.Topics[0])
			}
		}
	}
	return index.TopicKey("0")
}

func equalBlocks(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
