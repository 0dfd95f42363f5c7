package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Index.ShardSize != 100 || cfg.Index.BloomM != 8192 || cfg.Index.BloomK != 6 {
		t.Errorf("index defaults = %+v", cfg.Index)
	}
	if cfg.Index.ResultCap != 200 {
		t.Errorf("Index.ResultCap = %d, want 200", cfg.Index.ResultCap)
	}
	if cfg.Kafka.Topics.ChainBlocks != "chain-blocks" {
		t.Errorf("Topics.ChainBlocks = %q", cfg.Kafka.Topics.ChainBlocks)
	}
	if cfg.Generator.Seed != 42 {
		t.Errorf("Generator.Seed = %d, want 42", cfg.Generator.Seed)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9999
index:
  shardSize: 50
  bloomM: 4096
postgres:
  host: db.internal
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Index.ShardSize != 50 || cfg.Index.BloomM != 4096 {
		t.Errorf("index = %+v", cfg.Index)
	}
	// Unset values keep defaults.
	if cfg.Index.BloomK != 6 {
		t.Errorf("Index.BloomK = %d, want default 6", cfg.Index.BloomK)
	}
	if cfg.Postgres.Host != "db.internal" {
		t.Errorf("Postgres.Host = %q", cfg.Postgres.Host)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("Load of a missing file succeeded")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OSB_POSTGRES_HOST", "pg.override")
	t.Setenv("OSB_INDEX_SHARD_SIZE", "250")
	t.Setenv("OSB_INDEX_BLOOM_K", "8")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Postgres.Host != "pg.override" {
		t.Errorf("Postgres.Host = %q, want override", cfg.Postgres.Host)
	}
	if cfg.Index.ShardSize != 250 {
		t.Errorf("Index.ShardSize = %d, want 250", cfg.Index.ShardSize)
	}
	if cfg.Index.BloomK != 8 {
		t.Errorf("Index.BloomK = %d, want 8", cfg.Index.BloomK)
	}
}

func TestIndexConfigValidate(t *testing.T) {
	valid := IndexConfig{ShardSize: 100, BloomM: 1024, BloomK: 4}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate(valid) = %v", err)
	}
	invalid := []IndexConfig{
		{ShardSize: 0, BloomM: 1024, BloomK: 4},
		{ShardSize: 100, BloomM: 0, BloomK: 4},
		{ShardSize: 100, BloomM: 1024, BloomK: 0},
	}
	for _, cfg := range invalid {
		if err := cfg.Validate(); err == nil {
			t.Errorf("Validate(%+v) accepted invalid config", cfg)
		}
	}
}
