// Package ingest assembles chain record batches arriving over Kafka and
// triggers a full index rebuild once a batch is complete. The build and
// serve phases never interleave: records are only accumulated until the
// batch-complete marker arrives, and the rebuild replaces the whole index
// in one store transaction.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/index"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/kafka"
)

// Message types carried on the chain-blocks topic.
const (
	TypeBlock         = "block"
	TypeBatchComplete = "batch-complete"
)

// Envelope wraps every message on the chain-blocks topic.
type Envelope struct {
	Type       string        `json:"type"`
	Record     *index.Record `json:"record,omitempty"`
	BatchID    string        `json:"batch_id,omitempty"`
	BlockCount int           `json:"block_count,omitempty"`
}

// IndexCompleteEvent is published after a successful rebuild.
type IndexCompleteEvent struct {
	BatchID   string    `json:"batch_id"`
	Blocks    int       `json:"blocks"`
	Shards    int       `json:"shards"`
	Postings  int       `json:"postings"`
	Timestamp time.Time `json:"timestamp"`
}

// CacheInvalidateEvent tells query services to drop cached results.
type CacheInvalidateEvent struct {
	Reason    string    `json:"reason"`
	BatchID   string    `json:"batch_id"`
	Timestamp time.Time `json:"timestamp"`
}

// IndexBuilder is the subset of the index builder the batcher needs.
type IndexBuilder interface {
	Build(ctx context.Context, batch []index.Record) (*index.BuildStats, error)
}

// Batcher accumulates records from the chain-blocks topic and rebuilds the
// index when the batch-complete marker arrives.
type Batcher struct {
	builder   IndexBuilder
	notify    *kafka.Producer
	cacheBust *kafka.Producer
	pending   []index.Record
	logger    *slog.Logger
}

// NewBatcher creates a Batcher. notify and cacheBust may be nil to skip the
// corresponding post-build events.
func NewBatcher(builder IndexBuilder, notify, cacheBust *kafka.Producer) *Batcher {
	return &Batcher{
		builder:   builder,
		notify:    notify,
		cacheBust: cacheBust,
		logger:    slog.Default().With("component", "ingest-batcher"),
	}
}

// HandleMessage is the kafka.MessageHandler for the chain-blocks topic.
func (b *Batcher) HandleMessage(ctx context.Context, key, value []byte) error {
	env, err := kafka.DecodeJSON[Envelope](value)
	if err != nil {
		return err
	}
	switch env.Type {
	case TypeBlock:
		if env.Record == nil {
			return fmt.Errorf("block message without record (key %q)", key)
		}
		b.pending = append(b.pending, *env.Record)
		return nil
	case TypeBatchComplete:
		return b.rebuild(ctx, env)
	default:
		return fmt.Errorf("unknown message type %q", env.Type)
	}
}

// Pending returns the number of accumulated records, for tests.
func (b *Batcher) Pending() int {
	return len(b.pending)
}

func (b *Batcher) rebuild(ctx context.Context, env Envelope) error {
	if env.BlockCount > 0 && env.BlockCount != len(b.pending) {
		b.logger.Warn("batch-complete block count disagrees with received records",
			"batch_id", env.BatchID,
			"expected", env.BlockCount,
			"received", len(b.pending),
		)
	}
	b.logger.Info("batch complete, rebuilding index",
		"batch_id", env.BatchID,
		"blocks", len(b.pending),
	)
	stats, err := b.builder.Build(ctx, b.pending)
	if err != nil {
		// The batch is kept: a failed rebuild can be retried by replaying
		// the batch-complete marker.
		return fmt.Errorf("rebuilding index for batch %s: %w", env.BatchID, err)
	}
	b.pending = nil

	now := time.Now().UTC()
	if b.notify != nil {
		event := IndexCompleteEvent{
			BatchID:   env.BatchID,
			Blocks:    stats.Blocks,
			Shards:    stats.Shards,
			Postings:  stats.Postings,
			Timestamp: now,
		}
		if err := b.notify.Publish(ctx, kafka.Event{Key: env.BatchID, Value: event}); err != nil {
			b.logger.Error("failed to publish index-complete event", "error", err)
		}
	}
	if b.cacheBust != nil {
		event := CacheInvalidateEvent{
			Reason:    "index-rebuilt",
			BatchID:   env.BatchID,
			Timestamp: now,
		}
		if err := b.cacheBust.Publish(ctx, kafka.Event{Key: env.BatchID, Value: event}); err != nil {
			b.logger.Error("failed to publish cache-invalidate event", "error", err)
		}
	}
	return nil
}
