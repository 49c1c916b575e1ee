package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/jimspencer/spidermap/internal/logger"
)

// RedisCache is the distributed pair-potential cache backend (§9.2): an
// in-process LRU front for the hottest pairs chained in front of a Redis
// hash, one HSET field per pair, so a multi-process run shares cache state
// instead of each process recomputing every potential from scratch.
//
// Keys are stored as a single Redis hash (hashKey) with field names
// "lo:hi" and values the float64 potential formatted in base-10. In Redis
// a tombstone is a field deletion (HDEL); there's no cheap way to mark a
// hash field dead without also shadowing it somewhere else, and every
// reader goes through the LRU front first anyway. The front is where a
// tombstone actually has to be authoritative: it keeps a dead marker in
// place of the deleted entry so a Get can never fall through to Redis and
// read a write from another shard that raced the tombstone.
//
// A mutex guards the LRU front and the Redis round-trip together, the
// same coarse-locking shape MemCache uses, since callers like
// bestpartner.InitializeParallel share one Cache across a worker pool.
type RedisCache struct {
	mu      sync.Mutex
	rc      *redis.Client
	hashKey string
	lru     *lruFront
	ctx     context.Context
}

const defaultLRUCapacity = 4096

// NewRedisCache wires an LRU-fronted Redis hash cache. rc may be nil, in
// which case every operation degrades to LRU-only behavior (useful for
// tests and for runs started without a Redis address configured).
func NewRedisCache(rc *redis.Client, hashKey string) *RedisCache {
	return &RedisCache{
		rc:      rc,
		hashKey: hashKey,
		lru:     newLRUFront(defaultLRUCapacity),
		ctx:     context.Background(),
	}
}

// ScopedHashKey builds the Redis hash key for a run, namespacing base by
// scope (§9.2) so that several shard processes pointed at the same scope
// share one hash while unrelated runs on the same Redis instance don't
// collide. An empty scope returns base unchanged.
func ScopedHashKey(base, scope string) string {
	if scope == "" {
		return base
	}
	return base + ":" + scope
}

func fieldName(k Key) string {
	return strconv.Itoa(k.Lo) + ":" + strconv.Itoa(k.Hi)
}

func (c *RedisCache) Get(a, b int) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := NewKey(a, b)
	if v, ok := c.lru.get(k); ok {
		return v, true
	}
	if c.lru.tombstoned(k) {
		return 0, false
	}
	if c.rc == nil {
		return 0, false
	}
	s, err := c.rc.HGet(c.ctx, c.hashKey, fieldName(k)).Result()
	if err != nil {
		if err != redis.Nil {
			logger.L().Warn("rediscache_get_error", "err", err)
		}
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	c.lru.set(k, v)
	return v, true
}

func (c *RedisCache) Set(a, b int, pot float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := NewKey(a, b)
	c.lru.set(k, pot)
	if c.rc == nil {
		return
	}
	v := strconv.FormatFloat(pot, 'g', -1, 64)
	if err := c.rc.HSet(c.ctx, c.hashKey, fieldName(k), v).Err(); err != nil {
		logger.L().Warn("rediscache_set_error", "err", err)
	}
}

func (c *RedisCache) Tombstone(a, b int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := NewKey(a, b)
	c.lru.tombstone(k)
	if c.rc == nil {
		return
	}
	if err := c.rc.HDel(c.ctx, c.hashKey, fieldName(k)).Err(); err != nil {
		logger.L().Warn("rediscache_tombstone_error", "err", err)
	}
}

// TombstoneAllWith invalidates every LRU entry referencing id immediately,
// and sweeps the Redis hash for matching fields. The Redis sweep is a full
// HGETALL scan rather than a secondary index, since the hash is expected
// to stay small under the §4.4 size-threshold gate even in distributed
// runs; a production deployment with a much larger cache would want a
// per-ID secondary set instead.
func (c *RedisCache) TombstoneAllWith(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.tombstoneAllWith(id)
	if c.rc == nil {
		return
	}
	fields, err := c.rc.HKeys(c.ctx, c.hashKey).Result()
	if err != nil {
		logger.L().Warn("rediscache_sweep_error", "err", err)
		return
	}
	prefix := strconv.Itoa(id) + ":"
	suffix := ":" + strconv.Itoa(id)
	var dead []string
	for _, f := range fields {
		if strings.HasPrefix(f, prefix) || strings.HasSuffix(f, suffix) {
			dead = append(dead, f)
		}
	}
	if len(dead) > 0 {
		if err := c.rc.HDel(c.ctx, c.hashKey, dead...).Err(); err != nil {
			logger.L().Warn("rediscache_sweep_hdel_error", "err", err)
		}
	}
}

func (c *RedisCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rc == nil {
		return c.lru.len()
	}
	n, err := c.rc.HLen(c.ctx, c.hashKey).Result()
	if err != nil {
		return c.lru.len()
	}
	return int(n)
}
