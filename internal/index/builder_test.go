package index

import (
	"context"
	"testing"

	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/bloom"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/codec"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/store"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/config"
)

func testIndexConfig() config.IndexConfig {
	return config.IndexConfig{ShardSize: 100, BloomM: 1024, BloomK: 4, ResultCap: 200}
}

func testBatch() []Record {
	return []Record{
		{BlockNumber: 0, Transactions: []Transaction{
			{Hash: "t0", From: "0xA", To: "0xB"},
		}},
		{BlockNumber: 1, Transactions: []Transaction{
			{Hash: "t1", From: "0xC", To: "0xD", Topics: []string{"5"}},
		}},
		{BlockNumber: 150, Transactions: []Transaction{
			{Hash: "t2", From: "0xA", To: "0xD", Topics: []string{"5", "7"}},
		}},
	}
}

func TestBuildShardAssignment(t *testing.T) {
	st := store.NewMemoryStore()
	builder := NewBuilder(st, testIndexConfig(), nil)

	stats, err := builder.Build(context.Background(), testBatch())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if stats.Shards != 2 {
		t.Errorf("stats.Shards = %d, want 2", stats.Shards)
	}
	if stats.Blocks != 3 || stats.Transactions != 3 {
		t.Errorf("stats = %+v, want 3 blocks, 3 transactions", stats)
	}

	shard0, ok := st.GetShard(0)
	if !ok {
		t.Fatal("shard 0 missing")
	}
	if shard0.StartBlock != 0 || shard0.EndBlock != 99 {
		t.Errorf("shard 0 range = [%d, %d], want [0, 99]", shard0.StartBlock, shard0.EndBlock)
	}
	shard1, ok := st.GetShard(1)
	if !ok {
		t.Fatal("shard 1 missing")
	}
	if shard1.StartBlock != 100 || shard1.EndBlock != 199 {
		t.Errorf("shard 1 range = [%d, %d], want [100, 199]", shard1.StartBlock, shard1.EndBlock)
	}
}

func TestBuildPostingsContent(t *testing.T) {
	st := store.NewMemoryStore()
	cfg := testIndexConfig()
	builder := NewBuilder(st, cfg, nil)
	if _, err := builder.Build(context.Background(), testBatch()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	ctx := context.Background()
	cases := []struct {
		key     string
		shardID uint64
		want    []uint64
	}{
		{"0xA", 0, []uint64{0}},
		{"0xA", 1, []uint64{150}},
		{"topic:5", 0, []uint64{1}},
		{"topic:5", 1, []uint64{150}},
		{"topic:7", 1, []uint64{150}},
		{"0xD", 0, []uint64{1}},
	}
	for _, tc := range cases {
		data, err := st.GetPostings(ctx, tc.key, tc.shardID)
		if err != nil {
			t.Fatalf("GetPostings(%q, %d): %v", tc.key, tc.shardID, err)
		}
		blocks, err := codec.DecompressPostings(data)
		if err != nil {
			t.Fatalf("DecompressPostings(%q, %d): %v", tc.key, tc.shardID, err)
		}
		if len(blocks) != len(tc.want) {
			t.Errorf("postings for %q shard %d = %v, want %v", tc.key, tc.shardID, blocks, tc.want)
			continue
		}
		for i := range tc.want {
			if blocks[i] != tc.want[i] {
				t.Errorf("postings for %q shard %d = %v, want %v", tc.key, tc.shardID, blocks, tc.want)
				break
			}
		}
	}
}

func TestBuildBloomCoversShardKeys(t *testing.T) {
	st := store.NewMemoryStore()
	cfg := testIndexConfig()
	builder := NewBuilder(st, cfg, nil)
	if _, err := builder.Build(context.Background(), testBatch()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	shard0, _ := st.GetShard(0)
	f := bloom.FromBytes(shard0.Bloom, cfg.BloomM, cfg.BloomK)
	for _, key := range []string{"0xA", "0xB", "0xC", "0xD", "topic:5"} {
		if !f.Contains(key) {
			t.Errorf("shard 0 bloom missing key %q", key)
		}
	}

	shard1, _ := st.GetShard(1)
	f = bloom.FromBytes(shard1.Bloom, cfg.BloomM, cfg.BloomK)
	for _, key := range []string{"0xA", "0xD", "topic:5", "topic:7"} {
		if !f.Contains(key) {
			t.Errorf("shard 1 bloom missing key %q", key)
		}
	}
}

func TestBuildDeduplicatesBlocks(t *testing.T) {
	// The same key appearing in several transactions of one block must
	// produce a single posting for that block.
	batch := []Record{
		{BlockNumber: 7, Transactions: []Transaction{
			{Hash: "t0", From: "0xA", To: "0xB"},
			{Hash: "t1", From: "0xA", To: "0xA", Topics: []string{"9", "9"}},
		}},
	}
	st := store.NewMemoryStore()
	builder := NewBuilder(st, testIndexConfig(), nil)
	if _, err := builder.Build(context.Background(), batch); err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, key := range []string{"0xA", "topic:9"} {
		data, err := st.GetPostings(context.Background(), key, 0)
		if err != nil {
			t.Fatalf("GetPostings(%q): %v", key, err)
		}
		blocks, err := codec.DecompressPostings(data)
		if err != nil {
			t.Fatalf("DecompressPostings(%q): %v", key, err)
		}
		if len(blocks) != 1 || blocks[0] != 7 {
			t.Errorf("postings for %q = %v, want [7]", key, blocks)
		}
	}
}

func TestBuildPersistsParams(t *testing.T) {
	st := store.NewMemoryStore()
	cfg := testIndexConfig()
	builder := NewBuilder(st, cfg, nil)
	if _, err := builder.Build(context.Background(), testBatch()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	params, err := st.GetParams(context.Background())
	if err != nil {
		t.Fatalf("GetParams: %v", err)
	}
	if params == nil {
		t.Fatal("GetParams returned nil after build")
	}
	if params.ShardSize != cfg.ShardSize || params.BloomM != cfg.BloomM || params.BloomK != cfg.BloomK {
		t.Errorf("persisted params = %+v, want %+v", params, cfg)
	}
}

func TestBuildReplacesPreviousIndex(t *testing.T) {
	st := store.NewMemoryStore()
	builder := NewBuilder(st, testIndexConfig(), nil)
	ctx := context.Background()

	if _, err := builder.Build(ctx, testBatch()); err != nil {
		t.Fatalf("first Build: %v", err)
	}
	second := []Record{
		{BlockNumber: 3, Transactions: []Transaction{
			{Hash: "t0", From: "0xZ", To: "0xY"},
		}},
	}
	if _, err := builder.Build(ctx, second); err != nil {
		t.Fatalf("second Build: %v", err)
	}

	if _, err := st.GetPostings(ctx, "0xA", 0); err == nil {
		t.Error("postings from the first build survived the rebuild")
	}
	if _, ok := st.GetShard(1); ok {
		t.Error("shard from the first build survived the rebuild")
	}
	if st.PostingsCount() != 2 {
		t.Errorf("PostingsCount = %d, want 2", st.PostingsCount())
	}
}

func TestBuildIdempotent(t *testing.T) {
	ctx := context.Background()
	cfg := testIndexConfig()

	first := store.NewMemoryStore()
	if _, err := NewBuilder(first, cfg, nil).Build(ctx, testBatch()); err != nil {
		t.Fatalf("Build: %v", err)
	}
	second := store.NewMemoryStore()
	if _, err := NewBuilder(second, cfg, nil).Build(ctx, testBatch()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, shardID := range []uint64{0, 1} {
		a, okA := first.GetShard(shardID)
		b, okB := second.GetShard(shardID)
		if !okA || !okB {
			t.Fatalf("shard %d missing from one of the builds", shardID)
		}
		if string(a.Bloom) != string(b.Bloom) {
			t.Errorf("shard %d bloom bytes differ between identical builds", shardID)
		}
	}
	for _, probe := range []struct {
		key     string
		shardID uint64
	}{{"0xA", 0}, {"0xA", 1}, {"topic:5", 0}} {
		a, errA := first.GetPostings(ctx, probe.key, probe.shardID)
		b, errB := second.GetPostings(ctx, probe.key, probe.shardID)
		if errA != nil || errB != nil {
			t.Fatalf("GetPostings(%q, %d): %v / %v", probe.key, probe.shardID, errA, errB)
		}
		if string(a) != string(b) {
			t.Errorf("postings bytes for %q shard %d differ between identical builds", probe.key, probe.shardID)
		}
	}
}

func TestBuildEmptyBatch(t *testing.T) {
	st := store.NewMemoryStore()
	builder := NewBuilder(st, testIndexConfig(), nil)
	stats, err := builder.Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("Build(nil): %v", err)
	}
	if stats.Shards != 0 || stats.Postings != 0 {
		t.Errorf("stats = %+v, want empty index", stats)
	}
	params, err := st.GetParams(context.Background())
	if err != nil {
		t.Fatalf("GetParams: %v", err)
	}
	if params == nil {
		t.Error("an empty build must still persist its parameters")
	}
}

func TestTransactionKeys(t *testing.T) {
	tx := Transaction{From: "0xA", To: "0xB", Topics: []string{"5", "7"}}
	keys := tx.Keys()
	want := []string{"0xA", "0xB", "topic:5", "topic:7"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestShardMath(t *testing.T) {
	if got := ShardID(0, 100); got != 0 {
		t.Errorf("ShardID(0, 100) = %d", got)
	}
	if got := ShardID(99, 100); got != 0 {
		t.Errorf("ShardID(99, 100) = %d", got)
	}
	if got := ShardID(100, 100); got != 1 {
		t.Errorf("ShardID(100, 100) = %d", got)
	}
	start, end := ShardRange(3, 100)
	if start != 300 || end != 399 {
		t.Errorf("ShardRange(3, 100) = [%d, %d], want [300, 399]", start, end)
	}
}
