package quiz

import (
	"context"
	"sync"
	"time"
)

// StatsCache holds derived read models: per-user statistics and the section list.
// Implementations swallow their own failures; a miss only costs a query.
type StatsCache interface {
	Stats(ctx context.Context, userID int64) (UserStats, bool)
	StoreStats(ctx context.Context, userID int64, stats UserStats)
	InvalidateStats(ctx context.Context, userID int64)
	Sections(ctx context.Context) ([]string, bool)
	StoreSections(ctx context.Context, sections []string)
	InvalidateSections(ctx context.Context)
	Flush(ctx context.Context)
}

// MemoryCache keeps entries in process for at most ttl. It only sees writes
// made through its own Service, so other processes sharing the database are
// picked up once an entry expires.
type MemoryCache struct {
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
	stats    map[int64]statsEntry
	sections []string
	listAt   time.Time
	hasList  bool
}

type statsEntry struct {
	stats    UserStats
	storedAt time.Time
}

// NewMemoryCache returns a cache whose entries expire after ttl. A ttl of zero
// or less keeps entries until they are invalidated.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:   ttl,
		now:   time.Now,
		stats: make(map[int64]statsEntry),
	}
}

func (c *MemoryCache) fresh(storedAt time.Time) bool {
	return c.ttl <= 0 || c.now().Sub(storedAt) < c.ttl
}

func (c *MemoryCache) Stats(_ context.Context, userID int64) (UserStats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.stats[userID]
	if !ok || !c.fresh(entry.storedAt) {
		return UserStats{}, false
	}
	return cloneStats(entry.stats), true
}

func (c *MemoryCache) StoreStats(_ context.Context, userID int64, stats UserStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats[userID] = statsEntry{stats: cloneStats(stats), storedAt: c.now()}
}

func (c *MemoryCache) InvalidateStats(_ context.Context, userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.stats, userID)
}

func (c *MemoryCache) Sections(_ context.Context) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.hasList || !c.fresh(c.listAt) {
		return nil, false
	}
	return append([]string(nil), c.sections...), true
}

func (c *MemoryCache) StoreSections(_ context.Context, sections []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sections = append(make([]string, 0, len(sections)), sections...)
	c.listAt = c.now()
	c.hasList = true
}

func (c *MemoryCache) InvalidateSections(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sections = nil
	c.hasList = false
}

func (c *MemoryCache) Flush(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = make(map[int64]statsEntry)
	c.sections = nil
	c.hasList = false
}

// Cached values are copied in and out so callers cannot mutate shared state.
func cloneStats(stats UserStats) UserStats {
	stats.SectionStats = append(make([]SectionStats, 0, len(stats.SectionStats)), stats.SectionStats...)
	return stats
}

// NoCache returns a StatsCache that never holds anything, so every read goes
// to the repositories.
func NoCache() StatsCache {
	return noopCache{}
}

type noopCache struct{}

func (noopCache) Stats(context.Context, int64) (UserStats, bool) { return UserStats{}, false }
func (noopCache) StoreStats(context.Context, int64, UserStats) {}
func (noopCache) InvalidateStats(context.Context, int64) {}
func (noopCache) Sections(context.Context) ([]string, bool) { return nil, false }
func (noopCache) StoreSections(context.Context, []string) {}
func (noopCache) InvalidateSections(context.Context) {}
func (noopCache) Flush(context.Context) {}
