// Package store defines the durable key/value table contract the index is
// written to and read from, with a Postgres implementation for the services
// and an in-memory implementation for tests and the demo binary.
package store

import "context"

// ShardMeta describes one shard: its id, the inclusive block range derived
// from it, and the serialized bloom filter over the keys seen in it.
type ShardMeta struct {
	ShardID    uint64
	StartBlock uint64
	EndBlock   uint64
	Bloom      []byte
}

// PostingsEntry holds the compressed postings list for one (key, shard).
type PostingsEntry struct {
	Key      string
	ShardID  uint64
	Postings []byte
}

// IndexParams are the build-time parameters persisted with the index so a
// reader can detect configuration drift instead of silently missing matches.
type IndexParams struct {
	ShardSize uint64
	BloomM    int
	BloomK    int
}

// ShardBloom pairs a shard id with its serialized bloom filter, as returned
// by ListShards.
type ShardBloom struct {
	ShardID uint64
	Bloom   []byte
}

// Store is the persistence contract for the index. Implementations must
// return ListShards results in ascending shard-id order; the query engine
// depends on that ordering to concatenate per-shard postings without
// re-sorting. GetPostings returns ErrPostingsNotFound for an absent pair,
// and GetParams returns (nil, nil) for a store that has never been built.
type Store interface {
	// CreateSchema idempotently ensures the shards, postings, and metadata
	// tables exist.
	CreateSchema(ctx context.Context) error
	// Clear drops all shard, postings, and metadata rows.
	Clear(ctx context.Context) error
	// PutShard writes a single shard row.
	PutShard(ctx context.Context, shard ShardMeta) error
	// PutPostings writes a single postings row.
	PutPostings(ctx context.Context, entry PostingsEntry) error
	// ReplaceIndex atomically clears the previous index and writes the new
	// shards, postings, and parameters. Readers never observe a partially
	// replaced index.
	ReplaceIndex(ctx context.Context, params IndexParams, shards []ShardMeta, postings []PostingsEntry) error
	// ListShards returns every shard's id and bloom filter, ascending.
	ListShards(ctx context.Context) ([]ShardBloom, error)
	// GetPostings returns the compressed postings for (key, shardID).
	GetPostings(ctx context.Context, key string, shardID uint64) ([]byte, error)
	// GetParams returns the persisted index parameters, or nil if the index
	// has never been built.
	GetParams(ctx context.Context) (*IndexParams, error)
}
