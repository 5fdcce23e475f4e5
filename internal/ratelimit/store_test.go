package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	mu      sync.Mutex
	values  map[string]int64
	ttls    map[string]time.Duration
	failGet bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return redis.NewStringResult("", errors.New("connection reset"))
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(strconv.FormatInt(v, 10), nil)
}

func (f *fakeRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key]++
	return redis.NewIntResult(f.values[key], nil)
}

func (f *fakeRedis) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			n++
		}
		delete(f.values, k)
		delete(f.ttls, k)
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisStore(t *testing.T) {
	fake := newFakeRedis()
	store := &RedisStore{store: fake}
	ctx := context.Background()

	count, err := store.Count(ctx, "rl:login:1.2.3.4")
	require.NoError(t, err)
	assert.Zero(t, count)

	for i := 1; i <= 3; i++ {
		count, err = store.IncrWithTTL(ctx, "rl:login:1.2.3.4", 15*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(i), count)
	}
	assert.Equal(t, 15*time.Minute, fake.ttls["rl:login:1.2.3.4"])

	count, err = store.Count(ctx, "rl:login:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	require.NoError(t, store.Reset(ctx, "rl:login:1.2.3.4"))
	count, err = store.Count(ctx, "rl:login:1.2.3.4")
	require.NoError(t, err)
	assert.Zero(t, count)

	fake.failGet = true
	_, err = store.Count(ctx, "rl:login:1.2.3.4")
	assert.Error(t, err)

	assert.NoError(t, store.Ping(ctx))
	assert.NoError(t, store.Close())
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "")
	assert.Error(t, err)
	_, err = NewRedisStore(context.Background(), "http://not-redis")
	assert.Error(t, err)
}

func TestMemoryStoreWindowExpires(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = store.IncrWithTTL(ctx, "k", time.Minute)
	now = now.Add(30 * time.Second)
	count, _ := store.IncrWithTTL(ctx, "k", time.Minute)
	assert.Equal(t, int64(2), count)

	now = now.Add(31 * time.Second)
	count, err := store.Count(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, count)

	count, _ = store.IncrWithTTL(ctx, "k", time.Minute)
	assert.Equal(t, int64(1), count)
}
