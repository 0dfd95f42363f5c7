// Package benchmark contains Go benchmarks for the index builder, postings
// codec, bloom filter, and query engine, measuring throughput and allocation
// behaviour over a synthetic chain.
package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/bloom"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/chain"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/codec"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/index"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/query"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/store"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/config"
)

func benchIndexConfig() config.IndexConfig {
	return config.IndexConfig{ShardSize: 100, BloomM: 8192, BloomK: 6, ResultCap: 200}
}

func benchBatch(blocks int) []index.Record {
	return chain.Generate(config.GeneratorConfig{
		NumBlocks:        blocks,
		AvgTxsPerBlock:   15,
		UniqueAddresses:  5000,
		TopicCardinality: 101,
		Seed:             42,
	})
}

// BenchmarkBuild measures full index construction over a 2000-block batch.
func BenchmarkBuild(b *testing.B) {
	batch := benchBatch(2000)
	cfg := benchIndexConfig()
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		builder := index.NewBuilder(store.NewMemoryStore(), cfg, nil)
		if _, err := builder.Build(ctx, batch); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkCompressPostings measures delta-varint encoding of a dense list.
func BenchmarkCompressPostings(b *testing.B) {
	blocks := make([]uint64, 10000)
	for i := range blocks {
		blocks[i] = uint64(i * 3)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = codec.CompressPostings(blocks)
	}
}

// BenchmarkDecompressPostings measures decoding of the same list.
func BenchmarkDecompressPostings(b *testing.B) {
	blocks := make([]uint64, 10000)
	for i := range blocks {
		blocks[i] = uint64(i * 3)
	}
	data := codec.CompressPostings(blocks)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := codec.DecompressPostings(data); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkBloomAdd measures insert cost including the sha256 per key.
func BenchmarkBloomAdd(b *testing.B) {
	f := bloom.New(8192, 6)
	keys := make([]string, 1024)
	for i := range keys {
		keys[i] = fmt.Sprintf("0xaddr%04d", i)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Add(keys[i%len(keys)])
	}
}

// BenchmarkBloomContains measures membership probes against a loaded filter.
func BenchmarkBloomContains(b *testing.B) {
	f := bloom.New(8192, 6)
	keys := make([]string, 1024)
	for i := range keys {
		keys[i] = fmt.Sprintf("0xaddr%04d", i)
		f.Add(keys[i])
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = f.Contains(keys[i%len(keys)])
	}
}

// BenchmarkBooleanQuery measures an AND/OR query over the built index.
func BenchmarkBooleanQuery(b *testing.B) {
	batch := benchBatch(2000)
	cfg := benchIndexConfig()
	ctx := context.Background()
	st := store.NewMemoryStore()
	if _, err := index.NewBuilder(st, cfg, nil).Build(ctx, batch); err != nil {
		b.Fatal(err)
	}
	engine, err := query.NewEngine(ctx, st, cfg, nil)
	if err != nil {
		b.Fatal(err)
	}
	mustHave := []string{batch[0].Transactions[0].From}
	anyOf := []string{index.TopicKey("5"), index.TopicKey("42")}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.BooleanQuery(ctx, mustHave, anyOf); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkIntersectSorted measures the two-pointer merge on large inputs.
func BenchmarkIntersectSorted(b *testing.B) {
	x := make([]uint64, 50000)
	y := make([]uint64, 50000)
	for i := range x {
		x[i] = uint64(i * 2)
		y[i] = uint64(i * 3)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = query.IntersectSorted(x, y)
	}
}
