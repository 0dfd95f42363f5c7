// Package index builds the sharded, compressed inverted index over a batch
// of chain records. Shards partition the block-number space into disjoint,
// equal-width ranges; each shard carries a bloom filter over the keys seen
// in it plus one compressed postings list per key.
package index

// Transaction is a single event inside a block. From and To are address
// keys; Topics are raw topic values, indexed under a "topic:" prefix.
type Transaction struct {
	Hash   string   `json:"hash"`
	From   string   `json:"from"`
	To     string   `json:"to"`
	Topics []string `json:"topics,omitempty"`
}

// Record is one block of the input batch. Block numbers need not be
// contiguous but are assumed monotonically non-decreasing across the batch.
type Record struct {
	BlockNumber  uint64        `json:"block_number"`
	Transactions []Transaction `json:"transactions"`
}

// TopicKeyPrefix namespaces topic values apart from address keys.
const TopicKeyPrefix = "topic:"

// TopicKey returns the index key for a raw topic value.
func TopicKey(topic string) string {
	return TopicKeyPrefix + topic
}

// Keys returns the index keys derived from a transaction: its from and to
// addresses plus the prefixed form of every topic.
func (t Transaction) Keys() []string {
	keys := make([]string, 0, 2+len(t.Topics))
	keys = append(keys, t.From, t.To)
	for _, topic := range t.Topics {
		keys = append(keys, TopicKey(topic))
	}
	return keys
}

// ShardID returns the shard owning the given block number.
func ShardID(block, shardSize uint64) uint64 {
	return block / shardSize
}

// ShardRange returns the inclusive block range covered by a shard.
func ShardRange(shardID, shardSize uint64) (start, end uint64) {
	start = shardID * shardSize
	end = start + shardSize - 1
	return
}
