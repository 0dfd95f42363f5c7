package chain

import (
	"strconv"
	"strings"
	"testing"

	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/config"
)

func testGeneratorConfig() config.GeneratorConfig {
	return config.GeneratorConfig{
		NumBlocks:        50,
		AvgTxsPerBlock:   10,
		UniqueAddresses:  100,
		TopicCardinality: 11,
		Seed:             42,
	}
}

func TestGenerateDeterministic(t *testing.T) {
	cfg := testGeneratorConfig()
	a := Generate(cfg)
	b := Generate(cfg)
	if len(a) != len(b) {
		t.Fatalf("runs produced %d and %d records", len(a), len(b))
	}
	for i := range a {
		if len(a[i].Transactions) != len(b[i].Transactions) {
			t.Fatalf("block %d: tx counts differ", i)
		}
		for j := range a[i].Transactions {
			if a[i].Transactions[j].Hash != b[i].Transactions[j].Hash {
				t.Fatalf("block %d tx %d: hashes differ", i, j)
			}
		}
	}
}

func TestGenerateSeedChangesOutput(t *testing.T) {
	cfg := testGeneratorConfig()
	a := Generate(cfg)
	cfg.Seed = 43
	b := Generate(cfg)
	if a[0].Transactions[0].Hash == b[0].Transactions[0].Hash {
		t.Error("different seeds produced the same first transaction")
	}
}

func TestGenerateBlockNumbering(t *testing.T) {
	records := Generate(testGeneratorConfig())
	if len(records) != 50 {
		t.Fatalf("generated %d records, want 50", len(records))
	}
	for i, record := range records {
		if record.BlockNumber != uint64(i) {
			t.Errorf("record %d has block number %d", i, record.BlockNumber)
		}
		if len(record.Transactions) < 1 {
			t.Errorf("block %d has no transactions", i)
		}
	}
}

func TestGenerateShapes(t *testing.T) {
	cfg := testGeneratorConfig()
	records := Generate(cfg)
	for _, record := range records {
		for _, tx := range record.Transactions {
			if !strings.HasPrefix(tx.From, "0x") || len(tx.From) != 42 {
				t.Fatalf("malformed from address %q", tx.From)
			}
			if !strings.HasPrefix(tx.To, "0x") || len(tx.To) != 42 {
				t.Fatalf("malformed to address %q", tx.To)
			}
			if len(tx.Hash) != 64 {
				t.Fatalf("malformed tx hash %q", tx.Hash)
			}
			if len(tx.Topics) > 3 {
				t.Fatalf("transaction carries %d topics", len(tx.Topics))
			}
			for _, topic := range tx.Topics {
				n, err := strconv.Atoi(topic)
				if err != nil {
					t.Fatalf("topic %q is not numeric", topic)
				}
				if n < 0 || n >= cfg.TopicCardinality {
					t.Fatalf("topic %d outside [0, %d)", n, cfg.TopicCardinality)
				}
			}
		}
	}
}
