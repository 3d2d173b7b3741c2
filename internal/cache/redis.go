package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-tracker/internal/quiz"
)

const (
	DefaultPrefix = "quiz:"
	DefaultTTL    = 5 * time.Minute
)

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// RedisCache implements quiz.StatsCache. Redis failures are logged and treated
// as misses so the service keeps answering from the database.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(ctx context.Context, opts Options) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to redis at %s: %w", opts.Addr, err)
	}

	return newRedisCache(rdb, opts), nil
}

func newRedisCache(rdb *redis.Client, opts Options) *RedisCache {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

func (c *RedisCache) statsKey(userID int64) string {
	return c.prefix + "stats:" + strconv.FormatInt(userID, 10)
}

func (c *RedisCache) sectionsKey() string {
	return c.prefix + "sections"
}

func (c *RedisCache) Stats(ctx context.Context, userID int64) (quiz.UserStats, bool) {
	var stats quiz.UserStats
	if !c.get(ctx, c.statsKey(userID), &stats) {
		return quiz.UserStats{}, false
	}
	if stats.SectionStats == nil {
		stats.SectionStats = make([]quiz.SectionStats, 0)
	}
	return stats, true
}

func (c *RedisCache) StoreStats(ctx context.Context, userID int64, stats quiz.UserStats) {
	c.set(ctx, c.statsKey(userID), stats)
}

func (c *RedisCache) InvalidateStats(ctx context.Context, userID int64) {
	c.del(ctx, c.statsKey(userID))
}

func (c *RedisCache) Sections(ctx context.Context) ([]string, bool) {
	var sections []string
	if !c.get(ctx, c.sectionsKey(), &sections) {
		return nil, false
	}
	if sections == nil {
		sections = make([]string, 0)
	}
	return sections, true
}

func (c *RedisCache) StoreSections(ctx context.Context, sections []string) {
	c.set(ctx, c.sectionsKey(), sections)
}

func (c *RedisCache) InvalidateSections(ctx context.Context) {
	c.del(ctx, c.sectionsKey())
}

// Flush drops every key under the cache prefix.
func (c *RedisCache) Flush(ctx context.Context) {
	iter := c.rdb.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	keys := make([]string, 0)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("cache flush scan failed: %v", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Printf("cache flush failed: %v", err)
	}
}

func (c *RedisCache) get(ctx context.Context, key string, dest any) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("cache get %s failed: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		log.Printf("cache decode %s failed: %v", key, err)
		return false
	}
	return true
}

func (c *RedisCache) set(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		log.Printf("cache encode %s failed: %v", key, err)
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Printf("cache set %s failed: %v", key, err)
	}
}

func (c *RedisCache) del(ctx context.Context, key string) {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		log.Printf("cache delete %s failed: %v", key, err)
	}
}
