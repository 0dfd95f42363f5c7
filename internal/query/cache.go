package query

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/config"
	"golang.org/x/sync/singleflight"

	pkgredis "github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/redis"
)

const cacheKeyPrefix = "query:"

// Result is the answer to one boolean query: the total number of matching
// blocks and the (possibly capped) block list returned to the caller.
type Result struct {
	Count  int      `json:"count"`
	Blocks []uint64 `json:"blocks"`
}

// Cache is a Redis-backed result cache for boolean queries. Concurrent
// misses for the same query are collapsed through singleflight so the
// engine computes each distinct query once. The indexer invalidates the
// cache after every rebuild.
type Cache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates a Cache on top of an existing Redis client.
func NewCache(client *pkgredis.Client, cfg config.RedisConfig) *Cache {
	return &Cache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached result for the given constraints, if present.
func (c *Cache) Get(ctx context.Context, mustHave, anyOf []string, cap int) (*Result, bool) {
	key := c.buildKey(mustHave, anyOf, cap)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var result Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return &result, true
}

// Set stores a result under the query's cache key with the configured TTL.
func (c *Cache) Set(ctx context.Context, mustHave, anyOf []string, cap int, result *Result) {
	key := c.buildKey(mustHave, anyOf, cap)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or computes and caches it,
// collapsing concurrent computations of the same query.
func (c *Cache) GetOrCompute(
	ctx context.Context,
	mustHave, anyOf []string,
	cap int,
	computeFn func() (*Result, error),
) (*Result, bool, error) {
	if result, ok := c.Get(ctx, mustHave, anyOf, cap); ok {
		return result, true, nil
	}
	key := c.buildKey(mustHave, anyOf, cap)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if result, ok := c.Get(ctx, mustHave, anyOf, cap); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, mustHave, anyOf, cap, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Result), false, nil
}

// Invalidate drops every cached query result, called after index rebuilds.
func (c *Cache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, cacheKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns the running hit and miss counters.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// buildKey derives a stable cache key from the canonicalised constraints:
// key order inside mustHave/anyOf does not affect the result, so both sets
// are sorted before hashing.
func (c *Cache) buildKey(mustHave, anyOf []string, cap int) string {
	must := append([]string(nil), mustHave...)
	any := append([]string(nil), anyOf...)
	sort.Strings(must)
	sort.Strings(any)
	raw := fmt.Sprintf("must=%s|any=%s|cap=%d", strings.Join(must, ","), strings.Join(any, ","), cap)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", cacheKeyPrefix, hash[:16])
}
