package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-tracker/internal/quiz"
)

func TestRedisCacheKeysAndDefaults(t *testing.T) {
	c := newRedisCache(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), Options{})
	t.Cleanup(func() { _ = c.Close() })

	assert.Equal(t, DefaultTTL, c.ttl)
	assert.Equal(t, "quiz:stats:42", c.statsKey(42))
	assert.Equal(t, "quiz:sections", c.sectionsKey())
}

func TestRedisCacheUnreachableIsAMiss(t *testing.T) {
	c := newRedisCache(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	}), Options{})
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	c.StoreStats(ctx, 1, quiz.NewUserStats(1, 1, 1, nil))
	_, ok := c.Stats(ctx, 1)
	assert.False(t, ok)
	_, ok = c.Sections(ctx)
	assert.False(t, ok)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("QUIZ_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("QUIZ_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	c, err := NewRedisCache(ctx, Options{
		Addr:   addr,
		Prefix: "quiz-test-" + uuid.NewString() + ":",
		TTL:    time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Flush(context.Background())
		_ = c.Close()
	})

	stats := quiz.NewUserStats(3, 2, 1, []quiz.SectionStats{{Section: "Math", TotalAnswered: 3, CorrectAnswers: 2}})
	c.StoreStats(ctx, 7, stats)
	got, ok := c.Stats(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, stats, got)

	c.InvalidateStats(ctx, 7)
	_, ok = c.Stats(ctx, 7)
	assert.False(t, ok)

	c.StoreSections(ctx, []string{})
	sections, ok := c.Sections(ctx)
	require.True(t, ok)
	assert.Empty(t, sections)
	assert.NotNil(t, sections)

	c.StoreSections(ctx, []string{"Art", "Math"})
	c.StoreStats(ctx, 8, stats)
	c.Flush(ctx)
	_, ok = c.Sections(ctx)
	assert.False(t, ok)
	_, ok = c.Stats(ctx, 8)
	assert.False(t, ok)
}
