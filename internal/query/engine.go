// Package query resolves keys to their postings lists and composes boolean
// AND/OR semantics over the sharded index via sorted-list merges.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/bloom"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/codec"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/store"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/config"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/metrics"

	pkgerrors "github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/errors"
)

// Engine answers postings lookups and boolean queries against a built
// index. It is read-only and safe for concurrent use, provided no build is
// running against the same store.
type Engine struct {
	store   store.Store
	cfg     config.IndexConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewEngine creates an Engine and validates the configured index parameters
// against the ones persisted with the index. A mismatch would otherwise
// surface only as silent false negatives (wrong bloom geometry or shard
// boundaries), so it is rejected here with ErrConfigMismatch. A store that
// has never been built carries no parameters and is accepted; every lookup
// then returns empty results. m may be nil when no metrics are wanted.
func NewEngine(ctx context.Context, st store.Store, cfg config.IndexConfig, m *metrics.Metrics) (*Engine, error) {
	params, err := st.GetParams(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading index parameters: %w", err)
	}
	if params != nil {
		if params.ShardSize != cfg.ShardSize || params.BloomM != cfg.BloomM || params.BloomK != cfg.BloomK {
			return nil, fmt.Errorf(
				"%w: index built with shard_size=%d bloom_m=%d bloom_k=%d, configured shard_size=%d bloom_m=%d bloom_k=%d",
				pkgerrors.ErrConfigMismatch,
				params.ShardSize, params.BloomM, params.BloomK,
				cfg.ShardSize, cfg.BloomM, cfg.BloomK,
			)
		}
	}
	return &Engine{
		store:   st,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "query-engine"),
	}, nil
}

// PostingsFor returns every block number in which key occurs, strictly
// ascending and duplicate-free. Shard bloom filters are scanned in
// ascending shard-id order to prune the shards that must be read; because
// shards cover disjoint ascending block ranges and each decompressed list
// is itself ascending, the per-shard lists concatenate into the final
// result without re-sorting. A key that was never indexed yields an empty
// list, not an error.
func (e *Engine) PostingsFor(ctx context.Context, key string) ([]uint64, error) {
	shards, err := e.store.ListShards(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing shards: %w", err)
	}

	candidates := 0
	var result []uint64
	for _, shard := range shards {
		filter := bloom.FromBytes(shard.Bloom, e.cfg.BloomM, e.cfg.BloomK)
		if !filter.Contains(key) {
			continue
		}
		candidates++
		data, err := e.store.GetPostings(ctx, key, shard.ShardID)
		if errors.Is(err, pkgerrors.ErrPostingsNotFound) {
			// Bloom false positive: the shard saw other keys hashing onto
			// the same bits.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fetching postings for shard %d: %w", shard.ShardID, err)
		}
		blocks, err := codec.DecompressPostings(data)
		if err != nil {
			return nil, fmt.Errorf("decoding postings for key %q shard %d: %w", key, shard.ShardID, err)
		}
		if e.metrics != nil {
			e.metrics.PostingsBytesRead.Add(float64(len(data)))
		}
		result = append(result, blocks...)
	}
	if e.metrics != nil {
		e.metrics.BloomShardsScanned.Add(float64(len(shards)))
		e.metrics.BloomShardCandidates.Add(float64(candidates))
	}
	return result, nil
}

// BooleanQuery evaluates required (AND) and optional (OR) key constraints:
// mustHave keys are intersected pairwise left-to-right, anyOf keys are
// unioned, and when both are given the two results are intersected. An
// empty mustHave acts as an unconstrained sentinel rather than an empty
// list; a query with no constraints at all returns an empty result.
func (e *Engine) BooleanQuery(ctx context.Context, mustHave, anyOf []string) ([]uint64, error) {
	var required []uint64
	haveRequired := false
	for _, key := range mustHave {
		postings, err := e.PostingsFor(ctx, key)
		if err != nil {
			return nil, err
		}
		if !haveRequired {
			required = postings
			haveRequired = true
			continue
		}
		required = IntersectSorted(required, postings)
	}

	var optional []uint64
	for _, key := range anyOf {
		postings, err := e.PostingsFor(ctx, key)
		if err != nil {
			return nil, err
		}
		optional = UnionSorted(optional, postings)
	}

	switch {
	case !haveRequired && len(anyOf) == 0:
		return nil, nil
	case !haveRequired:
		return optional, nil
	case len(anyOf) == 0:
		return required, nil
	default:
		return IntersectSorted(required, optional), nil
	}
}

// IntersectSorted returns the elements present in both a and b. Inputs must
// be sorted ascending and duplicate-free; the output is too. Runs in
// O(len(a)+len(b)) with two pointers.
func IntersectSorted(a, b []uint64) []uint64 {
	var out []uint64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}

// UnionSorted merges a and b, dropping duplicates during the merge. Inputs
// must be sorted ascending and duplicate-free; the output is too. Runs in
// O(len(a)+len(b)) with two pointers.
func UnionSorted(a, b []uint64) []uint64 {
	out := make([]uint64, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		default:
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
