// Package chain generates deterministic synthetic chain batches for demos,
// benchmarks, and load generation. The same GeneratorConfig always yields
// the same batch, so rebuild-idempotency can be exercised end to end.
package chain

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"strconv"

	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/internal/index"
	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/config"
)

// Generate produces cfg.NumBlocks records with a gaussian-distributed
// transaction count per block, sha1-derived hex addresses, and 0-3 random
// topics per transaction drawn from cfg.TopicCardinality distinct values.
func Generate(cfg config.GeneratorConfig) []index.Record {
	rng := rand.New(rand.NewSource(cfg.Seed))

	addresses := make([]string, cfg.UniqueAddresses)
	for i := range addresses {
		sum := sha1.Sum([]byte(strconv.Itoa(i)))
		addresses[i] = "0x" + hex.EncodeToString(sum[:])[:40]
	}

	records := make([]index.Record, 0, cfg.NumBlocks)
	txCounter := 0
	for blk := 0; blk < cfg.NumBlocks; blk++ {
		numTxs := int(rng.NormFloat64()*float64(cfg.AvgTxsPerBlock)*0.3 + float64(cfg.AvgTxsPerBlock))
		if numTxs < 1 {
			numTxs = 1
		}
		txs := make([]index.Transaction, 0, numTxs)
		for i := 0; i < numTxs; i++ {
			sender := addresses[rng.Intn(len(addresses))]
			receiver := addresses[rng.Intn(len(addresses))]
			sum := sha256.Sum256([]byte(fmt.Sprintf("%d-%d-%s-%s", blk, txCounter, sender, receiver)))
			topics := make([]string, rng.Intn(4))
			for t := range topics {
				topics[t] = strconv.Itoa(rng.Intn(cfg.TopicCardinality))
			}
			txs = append(txs, index.Transaction{
				Hash:   hex.EncodeToString(sum[:]),
				From:   sender,
				To:     receiver,
				Topics: topics,
			})
			txCounter++
		}
		records = append(records, index.Record{
			BlockNumber:  uint64(blk),
			Transactions: txs,
		})
	}
	return records
}
