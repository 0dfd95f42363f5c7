package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/postgres"

	pkgerrors "github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/errors"
)

// Metadata row names for the persisted index parameters.
const (
	metaShardSize = "shard_size"
	metaBloomM    = "bloom_m"
	metaBloomK    = "bloom_k"
)

// PostgresStore implements Store on PostgreSQL via lib/pq. Rebuilds run
// inside a single transaction so the clear-then-write replacement is atomic
// to concurrent readers.
type PostgresStore struct {
	client *postgres.Client
}

// NewPostgresStore wraps an existing Postgres client.
func NewPostgresStore(client *postgres.Client) *PostgresStore {
	return &PostgresStore{client: client}
}

func (s *PostgresStore) CreateSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS shards (
			shard_id    BIGINT PRIMARY KEY,
			start_block BIGINT NOT NULL,
			end_block   BIGINT NOT NULL,
			bloom       BYTEA  NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS postings (
			key      TEXT   NOT NULL,
			shard_id BIGINT NOT NULL,
			postings BYTEA  NOT NULL,
			PRIMARY KEY (key, shard_id)
		)`,
		`CREATE TABLE IF NOT EXISTS index_meta (
			name  TEXT   PRIMARY KEY,
			value BIGINT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.client.DB.ExecContext(ctx, stmt); err != nil {
			return storeErr("creating schema", err)
		}
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.client.DB.ExecContext(ctx, `TRUNCATE postings, shards, index_meta`); err != nil {
		return storeErr("clearing index", err)
	}
	return nil
}

func (s *PostgresStore) PutShard(ctx context.Context, shard ShardMeta) error {
	_, err := s.client.DB.ExecContext(ctx,
		`INSERT INTO shards (shard_id, start_block, end_block, bloom) VALUES ($1, $2, $3, $4)`,
		int64(shard.ShardID), int64(shard.StartBlock), int64(shard.EndBlock), shard.Bloom,
	)
	if err != nil {
		return storeErr(fmt.Sprintf("writing shard %d", shard.ShardID), err)
	}
	return nil
}

func (s *PostgresStore) PutPostings(ctx context.Context, entry PostingsEntry) error {
	_, err := s.client.DB.ExecContext(ctx,
		`INSERT INTO postings (key, shard_id, postings) VALUES ($1, $2, $3)`,
		entry.Key, int64(entry.ShardID), entry.Postings,
	)
	if err != nil {
		return storeErr(fmt.Sprintf("writing postings for key %q shard %d", entry.Key, entry.ShardID), err)
	}
	return nil
}

func (s *PostgresStore) ReplaceIndex(ctx context.Context, params IndexParams, shards []ShardMeta, postings []PostingsEntry) error {
	err := s.client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `TRUNCATE postings, shards, index_meta`); err != nil {
			return fmt.Errorf("clearing previous index: %w", err)
		}

		shardStmt, err := tx.PrepareContext(ctx,
			`INSERT INTO shards (shard_id, start_block, end_block, bloom) VALUES ($1, $2, $3, $4)`)
		if err != nil {
			return fmt.Errorf("preparing shard insert: %w", err)
		}
		defer shardStmt.Close()
		for _, shard := range shards {
			if _, err := shardStmt.ExecContext(ctx,
				int64(shard.ShardID), int64(shard.StartBlock), int64(shard.EndBlock), shard.Bloom); err != nil {
				return fmt.Errorf("inserting shard %d: %w", shard.ShardID, err)
			}
		}

		postStmt, err := tx.PrepareContext(ctx,
			`INSERT INTO postings (key, shard_id, postings) VALUES ($1, $2, $3)`)
		if err != nil {
			return fmt.Errorf("preparing postings insert: %w", err)
		}
		defer postStmt.Close()
		for _, entry := range postings {
			if _, err := postStmt.ExecContext(ctx, entry.Key, int64(entry.ShardID), entry.Postings); err != nil {
				return fmt.Errorf("inserting postings for key %q shard %d: %w", entry.Key, entry.ShardID, err)
			}
		}

		for name, value := range map[string]int64{
			metaShardSize: int64(params.ShardSize),
			metaBloomM:    int64(params.BloomM),
			metaBloomK:    int64(params.BloomK),
		} {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO index_meta (name, value) VALUES ($1, $2)`, name, value); err != nil {
				return fmt.Errorf("inserting metadata %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return storeErr("replacing index", err)
	}
	return nil
}

func (s *PostgresStore) ListShards(ctx context.Context) ([]ShardBloom, error) {
	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT shard_id, bloom FROM shards ORDER BY shard_id ASC`)
	if err != nil {
		return nil, storeErr("listing shards", err)
	}
	defer rows.Close()

	var shards []ShardBloom
	for rows.Next() {
		var (
			id    int64
			bloom []byte
		)
		if err := rows.Scan(&id, &bloom); err != nil {
			return nil, storeErr("scanning shard row", err)
		}
		shards = append(shards, ShardBloom{ShardID: uint64(id), Bloom: bloom})
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating shard rows", err)
	}
	return shards, nil
}

func (s *PostgresStore) GetPostings(ctx context.Context, key string, shardID uint64) ([]byte, error) {
	var data []byte
	err := s.client.DB.QueryRowContext(ctx,
		`SELECT postings FROM postings WHERE key = $1 AND shard_id = $2`,
		key, int64(shardID),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrPostingsNotFound
	}
	if err != nil {
		return nil, storeErr(fmt.Sprintf("fetching postings for key %q shard %d", key, shardID), err)
	}
	return data, nil
}

func (s *PostgresStore) GetParams(ctx context.Context) (*IndexParams, error) {
	rows, err := s.client.DB.QueryContext(ctx, `SELECT name, value FROM index_meta`)
	if err != nil {
		return nil, storeErr("loading index metadata", err)
	}
	defer rows.Close()

	values := make(map[string]int64, 3)
	for rows.Next() {
		var (
			name  string
			value int64
		)
		if err := rows.Scan(&name, &value); err != nil {
			return nil, storeErr("scanning metadata row", err)
		}
		values[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating metadata rows", err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	return &IndexParams{
		ShardSize: uint64(values[metaShardSize]),
		BloomM:    int(values[metaBloomM]),
		BloomK:    int(values[metaBloomK]),
	}, nil
}

// storeErr tags persistence failures with the ErrStoreUnavailable sentinel
// so callers can classify them without knowing the backend.
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", pkgerrors.ErrStoreUnavailable, op, err)
}
