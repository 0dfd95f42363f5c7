package store

import (
	"context"
	"sort"
	"sync"

	pkgerrors "github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/errors"
)

type postingsKey struct {
	key     string
	shardID uint64
}

// MemoryStore is an in-memory Store used by unit tests and the demo binary.
// It is safe for concurrent readers; ReplaceIndex swaps the whole state
// under the write lock, mirroring the atomicity of the Postgres rebuild.
type MemoryStore struct {
	mu       sync.RWMutex
	shards   map[uint64]ShardMeta
	postings map[postingsKey][]byte
	params   *IndexParams
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		shards:   make(map[uint64]ShardMeta),
		postings: make(map[postingsKey][]byte),
	}
}

func (s *MemoryStore) CreateSchema(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	return nil
}

func (s *MemoryStore) clearLocked() {
	s.shards = make(map[uint64]ShardMeta)
	s.postings = make(map[postingsKey][]byte)
	s.params = nil
}

func (s *MemoryStore) PutShard(ctx context.Context, shard ShardMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shards[shard.ShardID] = shard
	return nil
}

func (s *MemoryStore) PutPostings(ctx context.Context, entry PostingsEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postings[postingsKey{entry.Key, entry.ShardID}] = entry.Postings
	return nil
}

func (s *MemoryStore) ReplaceIndex(ctx context.Context, params IndexParams, shards []ShardMeta, postings []PostingsEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	for _, shard := range shards {
		s.shards[shard.ShardID] = shard
	}
	for _, entry := range postings {
		s.postings[postingsKey{entry.Key, entry.ShardID}] = entry.Postings
	}
	p := params
	s.params = &p
	return nil
}

func (s *MemoryStore) ListShards(ctx context.Context) ([]ShardBloom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ShardBloom, 0, len(s.shards))
	for _, shard := range s.shards {
		out = append(out, ShardBloom{ShardID: shard.ShardID, Bloom: shard.Bloom})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShardID < out[j].ShardID })
	return out, nil
}

func (s *MemoryStore) GetPostings(ctx context.Context, key string, shardID uint64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.postings[postingsKey{key, shardID}]
	if !ok {
		return nil, pkgerrors.ErrPostingsNotFound
	}
	return data, nil
}

func (s *MemoryStore) GetParams(ctx context.Context) (*IndexParams, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.params == nil {
		return nil, nil
	}
	p := *s.params
	return &p, nil
}

// GetShard returns the full metadata row for one shard, for tests.
func (s *MemoryStore) GetShard(shardID uint64) (ShardMeta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shard, ok := s.shards[shardID]
	return shard, ok
}

// PostingsCount returns the number of stored postings entries, for tests.
func (s *MemoryStore) PostingsCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.postings)
}
