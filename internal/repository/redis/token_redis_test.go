package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/SimpnicServerTeam/scs-authmail-server/internal/repository"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRedisTokenRepo(t *testing.T) (repo *RedisTokenRepository, mr *miniredis.Miniredis, clock *testClock) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })

	clock = &testClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	repo = NewRedisTokenRepository(client, 24*time.Hour, clock.Now)
	return repo, mr, clock
}

func TestRedisTokenRepository_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("TrackedTokenStoredWithTTL", func(t *testing.T) {
		repo, mr, clock := newTestRedisTokenRepo(t)
		defer mr.Close()

		token, err := repo.Generate(ctx, true)
		require.NoError(t, err)
		assert.Len(t, token, repository.TokenLength)

		stored, err := mr.Get(makeTokenKey(token))
		require.NoError(t, err)
		var record tokenRecord
		require.NoError(t, json.Unmarshal([]byte(stored), &record))
		assert.Equal(t, clock.Now().UnixMilli(), record.IssuedAt)

		ttl := mr.TTL(makeTokenKey(token))
		assert.InDelta(t, (24 * time.Hour).Seconds(), ttl.Seconds(), 5, "TTL is not set correctly")
	})

	t.Run("UntrackedTokenNotStored", func(t *testing.T) {
		repo, mr, _ := newTestRedisTokenRepo(t)
		defer mr.Close()

		token, err := repo.Generate(ctx, false)
		require.NoError(t, err)
		assert.Len(t, token, repository.TokenLength)
		assert.False(t, mr.Exists(makeTokenKey(token)))
		assert.Empty(t, mr.Keys())
	})

	t.Run("RedisError", func(t *testing.T) {
		repo, mr, _ := newTestRedisTokenRepo(t)
		mr.Close() // Close to cause error

		_, err := repo.Generate(ctx, true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to store token in redis")
	})
}

func TestRedisTokenRepository_CheckAndDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("CheckValid", func(t *testing.T) {
		repo, mr, _ := newTestRedisTokenRepo(t)
		defer mr.Close()

		token, err := repo.Generate(ctx, true)
		require.NoError(t, err)
		assert.True(t, repo.Check(ctx, token))
		assert.True(t, mr.Exists(makeTokenKey(token)), "check does not consume")
	})

	t.Run("CheckUnknownDoesNotMutate", func(t *testing.T) {
		repo, mr, _ := newTestRedisTokenRepo(t)
		defer mr.Close()

		token, err := repo.Generate(ctx, true)
		require.NoError(t, err)
		assert.False(t, repo.Check(ctx, "nonexistent"))
		assert.Equal(t, []string{makeTokenKey(token)}, mr.Keys())
	})

	t.Run("CheckExpiredEvicts", func(t *testing.T) {
		repo, mr, clock := newTestRedisTokenRepo(t)
		defer mr.Close()

		token, err := repo.Generate(ctx, true)
		require.NoError(t, err)

		clock.Advance(24 * time.Hour)
		assert.True(t, repo.Check(ctx, token), "still valid at exactly the window")

		clock.Advance(time.Second)
		assert.False(t, repo.Check(ctx, token))
		assert.False(t, mr.Exists(makeTokenKey(token)))
	})

	t.Run("KeyExpiredByRedis", func(t *testing.T) {
		repo, mr, _ := newTestRedisTokenRepo(t)
		defer mr.Close()

		token, err := repo.Generate(ctx, true)
		require.NoError(t, err)

		mr.FastForward(24*time.Hour + time.Second)
		assert.False(t, repo.Check(ctx, token))
	})

	t.Run("MalformedRecordCountsAsExpired", func(t *testing.T) {
		repo, mr, _ := newTestRedisTokenRepo(t)
		defer mr.Close()

		require.NoError(t, mr.Set(makeTokenKey("garbage"), "not-json"))
		assert.False(t, repo.Check(ctx, "garbage"))
		assert.False(t, mr.Exists(makeTokenKey("garbage")))
	})

	t.Run("Delete", func(t *testing.T) {
		repo, mr, _ := newTestRedisTokenRepo(t)
		defer mr.Close()

		token, err := repo.Generate(ctx, true)
		require.NoError(t, err)
		assert.True(t, repo.Delete(ctx, token))
		assert.False(t, repo.Check(ctx, token))
		assert.False(t, repo.Delete(ctx, token))
	})

	t.Run("RedisErrorReportsFalse", func(t *testing.T) {
		repo, mr, _ := newTestRedisTokenRepo(t)
		token, err := repo.Generate(ctx, true)
		require.NoError(t, err)
		mr.Close()

		assert.False(t, repo.Check(ctx, token))
		assert.False(t, repo.Delete(ctx, token))
		assert.False(t, repo.Consume(ctx, token))
	})
}

func TestRedisTokenRepository_Consume(t *testing.T) {
	ctx := context.Background()

	t.Run("SingleUse", func(t *testing.T) {
		repo, mr, _ := newTestRedisTokenRepo(t)
		defer mr.Close()

		token, err := repo.Generate(ctx, true)
		require.NoError(t, err)
		assert.True(t, repo.Consume(ctx, token))
		assert.False(t, repo.Consume(ctx, token))
		assert.False(t, mr.Exists(makeTokenKey(token)))
	})

	t.Run("Expired", func(t *testing.T) {
		repo, mr, clock := newTestRedisTokenRepo(t)
		defer mr.Close()

		token, err := repo.Generate(ctx, true)
		require.NoError(t, err)
		clock.Advance(48 * time.Hour)
		assert.False(t, repo.Consume(ctx, token))
		assert.False(t, mr.Exists(makeTokenKey(token)))
	})

	t.Run("Concurrent", func(t *testing.T) {
		repo, mr, _ := newTestRedisTokenRepo(t)
		defer mr.Close()

		token, err := repo.Generate(ctx, true)
		require.NoError(t, err)

		var successes atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if repo.Consume(ctx, token) {
					successes.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), successes.Load())
	})
}
